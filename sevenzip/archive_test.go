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

package sevenzip_test

import (
	"bytes"
	"hash/crc32"
	"io"

	liberr "github.com/nabbar/go7z/internal/errors"
	"github.com/nabbar/go7z/sevenzip"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Reader", func() {
	It("opens a single Copy-method entry and reads its content back", func() {
		data := archiveFixture{name: "hello.txt", content: []byte("hello")}.build()

		r, err := sevenzip.NewReader(bytes.NewReader(data), int64(len(data)))
		Expect(err).ToNot(HaveOccurred())
		defer r.Close()

		entries := r.Entries()
		Expect(entries).To(HaveLen(1))

		e := entries[0]
		Expect(e.Name()).To(Equal("hello.txt"))
		Expect(e.IsDir()).To(BeFalse())
		Expect(e.HasStream()).To(BeTrue())
		Expect(e.Size()).To(Equal(uint64(5)))

		rc, err := e.Open()
		Expect(err).ToNot(HaveOccurred())
		defer rc.Close()

		got, err := io.ReadAll(rc)
		Expect(err).ToNot(HaveOccurred())
		Expect(got).To(Equal([]byte("hello")))
	})

	It("rejects an entry whose content fails its folder CRC check", func() {
		data := archiveFixture{
			name:          "hello.txt",
			content:       []byte("hello"),
			withFolderCRC: true,
			folderCRC:     crc32.ChecksumIEEE([]byte("hello")) ^ 0xFFFFFFFF, // deliberately wrong
		}.build()

		r, err := sevenzip.NewReader(bytes.NewReader(data), int64(len(data)))
		Expect(err).ToNot(HaveOccurred())
		defer r.Close()

		rc, err := r.Entries()[0].Open()
		Expect(err).ToNot(HaveOccurred())
		defer rc.Close()

		_, err = io.ReadAll(rc)
		Expect(err).To(HaveOccurred())

		ce, ok := err.(liberr.Error)
		Expect(ok).To(BeTrue())
		Expect(ce.HasCode(sevenzip.CodeEntryCrcMismatch)).To(BeTrue())
	})

	It("accepts an entry whose content matches its folder CRC", func() {
		data := archiveFixture{
			name:          "hello.txt",
			content:       []byte("hello"),
			withFolderCRC: true,
			folderCRC:     crc32.ChecksumIEEE([]byte("hello")),
		}.build()

		r, err := sevenzip.NewReader(bytes.NewReader(data), int64(len(data)))
		Expect(err).ToNot(HaveOccurred())
		defer r.Close()

		rc, err := r.Entries()[0].Open()
		Expect(err).ToNot(HaveOccurred())
		defer rc.Close()

		got, err := io.ReadAll(rc)
		Expect(err).ToNot(HaveOccurred())
		Expect(got).To(Equal([]byte("hello")))
	})

	It("refuses to open an archive whose pass-1 memory estimate exceeds the configured limit", func() {
		data := archiveFixture{name: "hello.txt", content: []byte("hello")}.build()

		_, err := sevenzip.NewReader(bytes.NewReader(data), int64(len(data)), sevenzip.WithMaxMemoryLimitKiB(0))
		Expect(err).To(HaveOccurred())

		ce, ok := err.(liberr.Error)
		Expect(ok).To(BeTrue())
		Expect(ce.HasCode(sevenzip.CodeMemoryLimit)).To(BeTrue())
	})

	It("reports a zeroed start header as recoverable when recovery is disabled", func() {
		data := archiveFixture{name: "hello.txt", content: []byte("hello"), zeroStart: true}.build()

		_, err := sevenzip.NewReader(bytes.NewReader(data), int64(len(data)))
		Expect(err).To(HaveOccurred())

		ce, ok := err.(liberr.Error)
		Expect(ok).To(BeTrue())
		Expect(ce.HasCode(sevenzip.CodeRecoverable)).To(BeTrue())
	})

	It("recovers a zeroed start header by scanning backwards for the metadata header", func() {
		data := archiveFixture{name: "hello.txt", content: []byte("hello"), zeroStart: true}.build()

		r, err := sevenzip.NewReader(
			bytes.NewReader(data),
			int64(len(data)),
			sevenzip.WithTryToRecoverBrokenArchives(true),
		)
		Expect(err).ToNot(HaveOccurred())
		defer r.Close()

		entries := r.Entries()
		Expect(entries).To(HaveLen(1))
		Expect(entries[0].Name()).To(Equal("hello.txt"))

		rc, err := entries[0].Open()
		Expect(err).ToNot(HaveOccurred())
		defer rc.Close()

		got, err := io.ReadAll(rc)
		Expect(err).ToNot(HaveOccurred())
		Expect(got).To(Equal([]byte("hello")))
	})

	It("rejects a signature whose magic bytes do not match", func() {
		data := archiveFixture{name: "hello.txt", content: []byte("hello")}.build()
		data[0] = 0xFF

		_, err := sevenzip.NewReader(bytes.NewReader(data), int64(len(data)))
		Expect(err).To(HaveOccurred())

		ce, ok := err.(liberr.Error)
		Expect(ok).To(BeTrue())
		Expect(ce.HasCode(sevenzip.CodeBadMagic)).To(BeTrue())
	})

	It("rejects a metadata header whose CRC does not match its stored value", func() {
		data := archiveFixture{name: "hello.txt", content: []byte("hello")}.build()
		data[len(data)-1] ^= 0xFF // corrupt the last header byte without touching the start-header pointer

		_, err := sevenzip.NewReader(bytes.NewReader(data), int64(len(data)))
		Expect(err).To(HaveOccurred())

		ce, ok := err.(liberr.Error)
		Expect(ok).To(BeTrue())
		Expect(ce.HasCode(sevenzip.CodeHeaderCrcMismatch)).To(BeTrue())
	})
})
