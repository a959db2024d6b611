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

package lz4block

// expandedWindow retains the most recently materialised plaintext bytes -
// literal runs as-is, back-references already expanded - as a deque of
// runs, trimmed to the last capacity bytes. The finaliser uses it to
// expand a tail back-reference into literal bytes without needing the
// original input around.
type expandedWindow struct {
	runs     [][]byte
	starts   []int // absolute stream position of runs[i][0]
	streamPos int   // absolute position one past the last appended byte
	capacity int
}

func newExpandedWindow(capacity int) *expandedWindow {
	return &expandedWindow{capacity: capacity}
}

// Append records b as newly materialised plaintext and returns it
// unchanged (convenience for chaining with expansion calls).
func (w *expandedWindow) Append(b []byte) []byte {
	if len(b) == 0 {
		return b
	}
	w.starts = append(w.starts, w.streamPos)
	w.runs = append(w.runs, b)
	w.streamPos += len(b)
	w.trim()
	return b
}

func (w *expandedWindow) trim() {
	cutoff := w.streamPos - w.capacity
	for len(w.runs) > 0 && w.starts[0]+len(w.runs[0]) <= cutoff {
		w.runs = w.runs[1:]
		w.starts = w.starts[1:]
	}
	if len(w.runs) > 0 && w.starts[0] < cutoff {
		w.runs[0] = w.runs[0][cutoff-w.starts[0]:]
		w.starts[0] = cutoff
	}
}

// Expand materialises a length-byte back-reference offset bytes before the
// window's current end, appending the result to the window and returning
// it. It supports the self-overlapping case (offset < length) the same
// way a byte-at-a-time LZ copy would: bytes already produced by this same
// call become a valid source for the rest of it.
func (w *expandedWindow) Expand(offset, length int) []byte {
	out := make([]byte, 0, length)
	start := w.streamPos - offset

	for len(out) < length {
		pos := start + len(out)

		if pos >= w.streamPos {
			// overlap: the byte we need was itself produced earlier in
			// this same expansion.
			out = append(out, out[pos-w.streamPos])
			continue
		}

		run, runStart, ok := w.runContaining(pos)
		if !ok {
			// requested bytes fall outside anything retained; nothing
			// sound to return beyond what's been built so far.
			break
		}

		avail := runStart + len(run) - pos
		need := length - len(out)
		if need > avail {
			need = avail
		}
		off := pos - runStart
		out = append(out, run[off:off+need]...)
	}

	return w.Append(out)
}

func (w *expandedWindow) runContaining(pos int) ([]byte, int, bool) {
	for i := len(w.runs) - 1; i >= 0; i-- {
		if pos >= w.starts[i] && pos < w.starts[i]+len(w.runs[i]) {
			return w.runs[i], w.starts[i], true
		}
	}
	return nil, 0, false
}
