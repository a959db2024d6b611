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

package lz77_test

import (
	"github.com/nabbar/go7z/lz77"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func collect(m *lz77.Matcher, data []byte) []lz77.Block {
	var out []lz77.Block
	emit := func(b lz77.Block) {
		if lit, ok := b.(lz77.Literal); ok {
			// the window backing a Literal is reused on every subsequent
			// call, so tests must copy it out immediately.
			cp := append([]byte(nil), lit.Bytes()...)
			out = append(out, lz77.Literal{Window: cp, Off: 0, Len: len(cp)})
			return
		}
		out = append(out, b)
	}
	m.Compress(data, emit)
	m.Finish(emit)
	return out
}

var _ = Describe("Matcher", func() {
	Context("construction", func() {
		It("rejects a non-power-of-two window size", func() {
			_, err := lz77.NewMatcher(lz77.WithWindowSize(100))
			Expect(err).To(HaveOccurred())
		})

		It("rejects a minimum back-reference length below 3", func() {
			_, err := lz77.NewMatcher(lz77.WithMinBackRefLen(2))
			Expect(err).To(HaveOccurred())
		})

		It("rejects a maximum offset beyond the window", func() {
			_, err := lz77.NewMatcher(lz77.WithWindowSize(16), lz77.WithMaxOffset(16))
			Expect(err).To(HaveOccurred())
		})

		It("accepts a valid configuration", func() {
			m, err := lz77.NewMatcher(lz77.WithWindowSize(16), lz77.WithMaxOffset(15))
			Expect(err).ToNot(HaveOccurred())
			Expect(m).ToNot(BeNil())
		})
	})

	Context("compression", func() {
		It("emits a single literal and EndOfData for input with no repeats", func() {
			m, err := lz77.NewMatcher()
			Expect(err).ToNot(HaveOccurred())

			blocks := collect(m, []byte("xyz"))
			Expect(blocks).To(HaveLen(2))
			lit, ok := blocks[0].(lz77.Literal)
			Expect(ok).To(BeTrue())
			Expect(lit.Bytes()).To(Equal([]byte("xyz")))
			Expect(blocks[1]).To(Equal(lz77.EndOfData{}))
		})

		It("finds the repeated 'abcde' run in a 15 byte input", func() {
			m, err := lz77.NewMatcher(
				lz77.WithWindowSize(16),
				lz77.WithMaxOffset(15),
				lz77.WithMinBackRefLen(3),
			)
			Expect(err).ToNot(HaveOccurred())

			blocks := collect(m, []byte("abcdeabcdeabcde"))
			Expect(blocks).To(HaveLen(3))

			lit, ok := blocks[0].(lz77.Literal)
			Expect(ok).To(BeTrue())
			Expect(lit.Bytes()).To(Equal([]byte("abcde")))

			ref, ok := blocks[1].(lz77.BackReference)
			Expect(ok).To(BeTrue())
			Expect(ref.Offset).To(Equal(5))
			Expect(ref.Length).To(Equal(10))

			Expect(blocks[2]).To(Equal(lz77.EndOfData{}))
		})

		It("never emits a match shorter than the configured minimum", func() {
			m, err := lz77.NewMatcher(lz77.WithMinBackRefLen(5))
			Expect(err).ToNot(HaveOccurred())

			blocks := collect(m, []byte("ababab"))
			for _, b := range blocks {
				if ref, ok := b.(lz77.BackReference); ok {
					Expect(ref.Length).To(BeNumerically(">=", 5))
				}
			}
		})

		It("never emits a back-reference whose offset exceeds max_offset", func() {
			m, err := lz77.NewMatcher(
				lz77.WithWindowSize(64),
				lz77.WithMaxOffset(8),
				lz77.WithMinBackRefLen(3),
			)
			Expect(err).ToNot(HaveOccurred())

			data := []byte("abcdefghabcdefghabcdefgh")
			blocks := collect(m, data)
			for _, b := range blocks {
				if ref, ok := b.(lz77.BackReference); ok {
					Expect(ref.Offset).To(BeNumerically("<=", 8))
				}
			}
		})

		It("reconstructs the original bytes by replaying literals and back-references", func() {
			m, err := lz77.NewMatcher(lz77.WithWindowSize(64), lz77.WithMaxOffset(63))
			Expect(err).ToNot(HaveOccurred())

			data := []byte("the quick brown fox the quick brown fox jumps over the quick brown fox")
			blocks := collect(m, data)

			var rebuilt []byte
			for _, b := range blocks {
				switch v := b.(type) {
				case lz77.Literal:
					rebuilt = append(rebuilt, v.Bytes()...)
				case lz77.BackReference:
					start := len(rebuilt) - v.Offset
					for i := 0; i < v.Length; i++ {
						rebuilt = append(rebuilt, rebuilt[start+i])
					}
				}
			}
			Expect(rebuilt).To(Equal(data))
		})

		It("feeds data across multiple Compress calls without losing matches", func() {
			m, err := lz77.NewMatcher(lz77.WithWindowSize(64), lz77.WithMaxOffset(63))
			Expect(err).ToNot(HaveOccurred())

			var out []lz77.Block
			emit := func(b lz77.Block) {
				if lit, ok := b.(lz77.Literal); ok {
					cp := append([]byte(nil), lit.Bytes()...)
					out = append(out, lz77.Literal{Window: cp, Off: 0, Len: len(cp)})
					return
				}
				out = append(out, b)
			}

			m.Compress([]byte("hello world "), emit)
			m.Compress([]byte("hello world "), emit)
			m.Finish(emit)

			var rebuilt []byte
			for _, b := range out {
				switch v := b.(type) {
				case lz77.Literal:
					rebuilt = append(rebuilt, v.Bytes()...)
				case lz77.BackReference:
					start := len(rebuilt) - v.Offset
					for i := 0; i < v.Length; i++ {
						rebuilt = append(rebuilt, rebuilt[start+i])
					}
				}
			}
			Expect(string(rebuilt)).To(Equal("hello world hello world "))
		})
	})

	Context("Prefill", func() {
		It("refuses to prefill once compression has started", func() {
			m, err := lz77.NewMatcher()
			Expect(err).ToNot(HaveOccurred())

			m.Compress([]byte("a"), func(lz77.Block) {})
			Expect(m.Prefill([]byte("seed"))).To(HaveOccurred())
		})

		It("lets a later match reach back into the prefilled tail", func() {
			m, err := lz77.NewMatcher(lz77.WithWindowSize(64), lz77.WithMaxOffset(63))
			Expect(err).ToNot(HaveOccurred())
			Expect(m.Prefill([]byte("previous dictionary content"))).ToNot(HaveOccurred())

			var found bool
			emit := func(b lz77.Block) {
				if ref, ok := b.(lz77.BackReference); ok && ref.Length >= 3 {
					found = true
				}
			}
			m.Compress([]byte("dictionary content follows"), emit)
			m.Finish(emit)
			Expect(found).To(BeTrue())
		})
	})

	Context("window sliding", func() {
		It("keeps matching correctly once input exceeds the window size", func() {
			m, err := lz77.NewMatcher(lz77.WithWindowSize(32), lz77.WithMaxOffset(31))
			Expect(err).ToNot(HaveOccurred())

			data := make([]byte, 0, 256)
			for i := 0; i < 8; i++ {
				data = append(data, []byte("0123456789abcdef")...)
			}

			blocks := collect(m, data)

			var rebuilt []byte
			for _, b := range blocks {
				switch v := b.(type) {
				case lz77.Literal:
					rebuilt = append(rebuilt, v.Bytes()...)
				case lz77.BackReference:
					start := len(rebuilt) - v.Offset
					for i := 0; i < v.Length; i++ {
						rebuilt = append(rebuilt, rebuilt[start+i])
					}
				}
			}
			Expect(rebuilt).To(Equal(data))
		})
	})

	Context("lazy matching", func() {
		It("still reconstructs the original input with lazy matching enabled", func() {
			m, err := lz77.NewMatcher(
				lz77.WithWindowSize(64),
				lz77.WithMaxOffset(63),
				lz77.WithLazyMatching(4),
			)
			Expect(err).ToNot(HaveOccurred())

			data := []byte("abcabcdabcabcdeabcabcdabcabcde")
			blocks := collect(m, data)

			var rebuilt []byte
			for _, b := range blocks {
				switch v := b.(type) {
				case lz77.Literal:
					rebuilt = append(rebuilt, v.Bytes()...)
				case lz77.BackReference:
					start := len(rebuilt) - v.Offset
					for i := 0; i < v.Length; i++ {
						rebuilt = append(rebuilt, rebuilt[start+i])
					}
				}
			}
			Expect(rebuilt).To(Equal(data))
		})
	})
})
