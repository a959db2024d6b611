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

const (
	noMatch   = -1
	hashBits  = 15
	hashSize  = 1 << hashBits
	hashMask  = hashSize - 1
	hashBytes = 3
)

// Matcher is a sliding-window hash-chain matcher: the search core shared,
// in spirit, by LZ4's block encoder and the back-reference matchers of
// DEFLATE/Deflate64/LZMA. It is not safe for concurrent use.
type Matcher struct {
	cfg *Config

	window []byte // 2*W bytes
	length int    // bytes written into window so far, <= len(window)

	head []int32 // hash -> most recent position with that triple hash
	prev []int32 // position % W -> previous position sharing the hash

	currentPosition int
	blockStart      int // start of the pending (unflushed) literal run
	matchStart      int // window offset matched positions are reported relative to

	missedInsertQueue []int // chain-insert positions deferred past the last Compress call

	prefillCalled bool
	started       bool // compression has consumed at least one byte
}

// NewMatcher builds a Matcher from the supplied options, validating the
// combination before returning.
func NewMatcher(opts ...Option) (*Matcher, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	w := cfg.windowSize
	m := &Matcher{
		cfg:    cfg,
		window: make([]byte, 2*w),
		head:   make([]int32, hashSize),
		prev:   make([]int32, w),
	}
	for i := range m.head {
		m.head[i] = noMatch
	}
	for i := range m.prev {
		m.prev[i] = noMatch
	}
	return m, nil
}

// Prefill seeds the window with the tail of data (the last min(W, len(data))
// bytes), inserting every complete triple into the hash chains, ready for
// compression to continue as if those bytes had already been processed.
// It is an error to call Prefill after compression has started.
func (m *Matcher) Prefill(data []byte) error {
	if m.started {
		return newErr(CodePrefillAfterStart)
	}

	w := m.cfg.windowSize
	n := len(data)
	if n > w {
		data = data[n-w:]
		n = w
	}

	copy(m.window[:n], data)
	m.length = n
	m.currentPosition = n
	m.blockStart = n
	m.matchStart = n
	m.prefillCalled = true

	for p := 0; p+hashBytes <= n; p++ {
		m.insertAt(p)
	}

	return nil
}

// hash3 folds three consecutive bytes into a 15-bit hash via the same
// shift-xor recurrence used for every insertion: h' = (h<<5 ^ b) & mask.
func hash3(b0, b1, b2 byte) uint32 {
	h := uint32(0)
	h = ((h << 5) ^ uint32(b0)) & hashMask
	h = ((h << 5) ^ uint32(b1)) & hashMask
	h = ((h << 5) ^ uint32(b2)) & hashMask
	return h
}

// insertAt records position p's triple hash in the chain, requiring
// window[p:p+3] to already be valid.
func (m *Matcher) insertAt(p int) {
	h := hash3(m.window[p], m.window[p+1], m.window[p+2])
	idx := p % m.cfg.windowSize
	m.prev[idx] = m.head[h]
	m.head[h] = int32(p)
}

// ensureRoom slides the window down by W bytes if the free tail can't hold
// incoming bytes of length n, rebasing every index that points into it.
func (m *Matcher) ensureRoom(n int, flushPending func()) {
	w := m.cfg.windowSize
	if m.length+n <= len(m.window) {
		return
	}

	// Flush whatever literal run is pending before it would straddle the
	// rebase point; the caller supplies the flush so block_start moves in
	// lockstep with the rebase below.
	if flushPending != nil {
		flushPending()
	}

	copy(m.window[:w], m.window[w:2*w])
	m.length -= w
	m.currentPosition -= w
	m.matchStart -= w
	m.blockStart -= w

	for i := range m.head {
		if m.head[i] != noMatch {
			m.head[i] -= int32(w)
			if m.head[i] < 0 {
				m.head[i] = noMatch
			}
		}
	}
	for i := range m.prev {
		if m.prev[i] != noMatch {
			m.prev[i] -= int32(w)
			if m.prev[i] < 0 {
				m.prev[i] = noMatch
			}
		}
	}

	rebased := m.missedInsertQueue[:0]
	for _, p := range m.missedInsertQueue {
		if p -= w; p >= 0 {
			rebased = append(rebased, p)
		}
	}
	m.missedInsertQueue = rebased
}
