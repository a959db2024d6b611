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

package lz4block_test

import (
	"bytes"

	"github.com/nabbar/go7z/lz4block"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// decode replays a finalised pair stream back into plaintext, the same way
// an LZ4 block reader would, to check round-trip fidelity independent of
// the real wire encoding.
func decode(pairs []lz4block.Pair) []byte {
	var out []byte
	for _, p := range pairs {
		out = append(out, p.Literal...)
		if p.HasBackRef {
			start := len(out) - p.Offset
			for i := 0; i < p.Length; i++ {
				out = append(out, out[start+i])
			}
		}
	}
	return out
}

var _ = Describe("Finalizer", func() {
	It("leaves an already-short, all-literal stream untouched in shape", func() {
		f := lz4block.NewFinalizer(64 * 1024)
		pairs := []lz4block.Pair{{Literal: []byte("ab")}}

		out := f.Finalize(pairs)
		Expect(out).To(HaveLen(1))
		Expect(out[0].HasBackRef).To(BeFalse())
		Expect(out[0].Literal).To(Equal([]byte("ab")))
	})

	It("flattens a stream shorter than the trailing-byte budget into one literal pair", func() {
		f := lz4block.NewFinalizer(64 * 1024)
		pairs := []lz4block.Pair{
			{Literal: []byte("ab")},
			{Literal: []byte("cd"), HasBackRef: true, Offset: 2, Length: 4},
		}

		original := decode(pairs)
		out := f.Finalize(pairs)

		Expect(out).To(HaveLen(1))
		Expect(out[0].HasBackRef).To(BeFalse())
		Expect(out[0].Literal).To(Equal(original))
	})

	It("splits a trailing back-reference that straddles the end-of-block budget", func() {
		// the worked case: a single back-reference pair, offset 4 length
		// 20, preceded by a 100 byte literal run built from a repeating
		// 4 byte pattern so the self-overlapping expansion is well formed.
		pattern := []byte("WXYZ")
		literal := bytes.Repeat(pattern, 25) // 100 bytes

		pairs := []lz4block.Pair{
			{Literal: literal},
			{HasBackRef: true, Offset: 4, Length: 20},
		}

		f := lz4block.NewFinalizer(64 * 1024)
		out := f.Finalize(pairs)

		Expect(out).To(HaveLen(3))
		Expect(out[0].Literal).To(Equal(literal))
		Expect(out[0].HasBackRef).To(BeFalse())

		Expect(out[1].HasBackRef).To(BeTrue())
		Expect(out[1].Offset).To(Equal(4))
		Expect(out[1].Length).To(Equal(8))

		Expect(out[2].HasBackRef).To(BeFalse())
		Expect(out[2].Literal).To(HaveLen(12))
	})

	It("preserves the decoded bytes across the split", func() {
		pattern := []byte("WXYZ")
		literal := bytes.Repeat(pattern, 25)

		pairs := []lz4block.Pair{
			{Literal: literal},
			{HasBackRef: true, Offset: 4, Length: 20},
		}

		original := decode(pairs)

		f := lz4block.NewFinalizer(64 * 1024)
		out := f.Finalize(pairs)

		Expect(decode(out)).To(Equal(original))
	})

	It("never leaves the final pair carrying a back-reference", func() {
		f := lz4block.NewFinalizer(64 * 1024)
		pairs := []lz4block.Pair{
			{Literal: []byte("the quick brown ")},
			{Literal: []byte("fox "), HasBackRef: true, Offset: 16, Length: 17},
			{Literal: []byte("jumps over the lazy dog")},
		}

		out := f.Finalize(pairs)
		Expect(out[len(out)-1].HasBackRef).To(BeFalse())
	})

	It("round-trips a finalised stream through the real LZ4 block decoder", func() {
		pattern := []byte("0123456789")
		data := bytes.Repeat(pattern, 10) // 100 bytes, highly repetitive

		pairs := []lz4block.Pair{
			{Literal: data[:10]},
			{Literal: nil, HasBackRef: true, Offset: 10, Length: 90},
		}

		f := lz4block.NewFinalizer(64 * 1024)
		out := f.Finalize(pairs)

		Expect(f.Verify(data, out)).ToNot(HaveOccurred())
	})

	It("returns the input unchanged when it is already empty", func() {
		f := lz4block.NewFinalizer(64 * 1024)
		Expect(f.Finalize(nil)).To(BeEmpty())
	})
})
