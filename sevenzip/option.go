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

package sevenzip

import (
	"github.com/sirupsen/logrus"
)

// config collects the reader's tunables, set through the With... Option
// functions the way nabbar-golib's component constructors are configured.
type config struct {
	defaultName                string
	useDefaultNameForUnnamed   bool
	password                   []byte
	maxMemoryLimitKiB          uint64
	tryRecoverBrokenArchives   bool
	recoverySearchLimitBytes   int64
	log                        *logrus.Entry
}

// Option configures a Reader at construction time.
type Option func(*config)

func defaultConfig() *config {
	return &config{
		defaultName:              "[no name]",
		useDefaultNameForUnnamed: false,
		maxMemoryLimitKiB:        1 << 20, // 1 GiB, a generous default ceiling
		tryRecoverBrokenArchives: false,
		recoverySearchLimitBytes: 1 << 20, // 1 MiB, per the recovery-mode design note
	}
}

// WithDefaultName sets the name substituted for unnamed entries when
// WithUseDefaultNameForUnnamedEntries is also set.
func WithDefaultName(name string) Option {
	return func(c *config) { c.defaultName = name }
}

// WithUseDefaultNameForUnnamedEntries enables the default-name substitution.
func WithUseDefaultNameForUnnamedEntries(use bool) Option {
	return func(c *config) { c.useDefaultNameForUnnamed = use }
}

// WithPassword sets the byte-level password used by password-protected
// coders. The buffer is copied; the reader zeroes its own copy on Close.
func WithPassword(password []byte) Option {
	return func(c *config) {
		c.password = append([]byte(nil), password...)
	}
}

// WithMaxMemoryLimitKiB bounds the pass-1 memory estimate; archives whose
// estimate exceeds this fail with CodeMemoryLimit rather than allocating.
func WithMaxMemoryLimitKiB(limit uint64) Option {
	return func(c *config) { c.maxMemoryLimitKiB = limit }
}

// WithTryToRecoverBrokenArchives enables the backward end-header scan when
// the start-header's CRC field is zeroed.
func WithTryToRecoverBrokenArchives(try bool) Option {
	return func(c *config) { c.tryRecoverBrokenArchives = try }
}

// WithRecoverySearchLimit overrides the 1 MiB recovery-mode scan budget;
// left configurable per the design note about the reference-defined limit.
func WithRecoverySearchLimit(limitBytes int64) Option {
	return func(c *config) { c.recoverySearchLimitBytes = limitBytes }
}

// WithLogger attaches a structured logger; a nil entry (the default)
// disables logging entirely.
func WithLogger(log *logrus.Entry) Option {
	return func(c *config) { c.log = log }
}

func (c *config) logf(format string, args ...interface{}) {
	if c.log == nil {
		return
	}
	c.log.Debugf(format, args...)
}

func (c *config) zeroPassword() {
	for i := range c.password {
		c.password[i] = 0
	}
	c.password = nil
}
