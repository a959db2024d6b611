/*
 *  MIT License
 *
 *  Copyright (c) 2020 Nicolas JUHEL
 *
 *  Permission is hereby granted, free of charge, to any person obtaining a copy
 *  of this software and associated documentation files (the "Software"), to deal
 *  in the Software without restriction, including without limitation the rights
 *  to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 *  copies of the Software, and to permit persons to whom the Software is
 *  furnished to do so, subject to the following conditions:
 *
 *  The above copyright notice and this permission notice shall be included in all
 *  copies or substantial portions of the Software.
 *
 *  THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 *  IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 *  FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 *  AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 *  LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 *  OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 *  SOFTWARE.
 *
 */

package lz77

// Config collects a Matcher's tunables, set through the With... Option
// functions the way sevenzip.Option configures a Reader.
type Config struct {
	windowSize     int
	minBackRefLen  int
	maxBackRefLen  int
	maxOffset      int
	maxLiteralLen  int
	niceBackRefLen int
	maxCandidates  int
	lazyMatching   bool
	lazyThreshold  int
}

// Option configures a Matcher at construction time.
type Option func(*Config)

func defaultConfig() *Config {
	return &Config{
		windowSize:     32 * 1024,
		minBackRefLen:  3,
		maxBackRefLen:  65535 + 3,
		maxOffset:      32*1024 - 1,
		maxLiteralLen:  1 << 20,
		niceBackRefLen: 128,
		maxCandidates:  64,
		lazyMatching:   false,
		lazyThreshold:  0,
	}
}

// WithWindowSize sets the sliding-window size; must be a power of two.
func WithWindowSize(size int) Option {
	return func(c *Config) { c.windowSize = size }
}

// WithMinBackRefLen sets the shortest back-reference the matcher will emit;
// must be at least 3, the length a hash triple can even identify.
func WithMinBackRefLen(n int) Option {
	return func(c *Config) { c.minBackRefLen = n }
}

// WithMaxBackRefLen sets the longest back-reference the matcher will emit.
func WithMaxBackRefLen(n int) Option {
	return func(c *Config) { c.maxBackRefLen = n }
}

// WithMaxOffset sets the furthest-back a match may reference; must be
// <= window_size - 1.
func WithMaxOffset(n int) Option {
	return func(c *Config) { c.maxOffset = n }
}

// WithMaxLiteralLen bounds how large a pending literal block grows before
// it is flushed.
func WithMaxLiteralLen(n int) Option {
	return func(c *Config) { c.maxLiteralLen = n }
}

// WithNiceBackRefLen sets the match length past which the chain search
// stops early.
func WithNiceBackRefLen(n int) Option {
	return func(c *Config) { c.niceBackRefLen = n }
}

// WithMaxCandidates bounds how many chain entries the matcher walks per
// input position.
func WithMaxCandidates(n int) Option {
	return func(c *Config) { c.maxCandidates = n }
}

// WithLazyMatching enables one-position lazy-match lookahead for matches
// at or below threshold bytes long.
func WithLazyMatching(threshold int) Option {
	return func(c *Config) {
		c.lazyMatching = true
		c.lazyThreshold = threshold
	}
}

func (c *Config) validate() error {
	if c.windowSize <= 0 || c.windowSize&(c.windowSize-1) != 0 {
		return newErr(CodeInvalidParameters)
	}
	if c.minBackRefLen < 3 {
		return newErr(CodeInvalidParameters)
	}
	if c.maxBackRefLen < c.minBackRefLen {
		return newErr(CodeInvalidParameters)
	}
	if c.maxOffset <= 0 || c.maxOffset > c.windowSize-1 {
		return newErr(CodeInvalidParameters)
	}
	if c.maxLiteralLen <= 0 {
		return newErr(CodeInvalidParameters)
	}
	if c.maxCandidates <= 0 {
		return newErr(CodeInvalidParameters)
	}
	return nil
}
