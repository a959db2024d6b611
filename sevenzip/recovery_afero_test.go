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
	"io"

	"github.com/nabbar/go7z/sevenzip"
	"github.com/spf13/afero"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// These cases back a real in-memory filesystem file (afero.MemMapFs) rather
// than a plain bytes.Reader, so the reader's ReaderAt usage is exercised
// against an afero.File the same way a caller backing an archive by a real
// on-disk path would.
var _ = Describe("Reader over an afero-backed file", func() {
	It("recovers a zeroed start header scanning an afero.MemMapFs file", func() {
		data := archiveFixture{name: "hello.txt", content: []byte("hello"), zeroStart: true}.build()

		fs := afero.NewMemMapFs()
		f, err := fs.Create("archive.7z")
		Expect(err).ToNot(HaveOccurred())
		_, err = f.Write(data)
		Expect(err).ToNot(HaveOccurred())
		Expect(f.Close()).To(Succeed())

		f, err = fs.Open("archive.7z")
		Expect(err).ToNot(HaveOccurred())
		defer f.Close()

		r, err := sevenzip.NewReader(f, int64(len(data)), sevenzip.WithTryToRecoverBrokenArchives(true))
		Expect(err).ToNot(HaveOccurred())
		defer r.Close()

		entries := r.Entries()
		Expect(entries).To(HaveLen(1))

		rc, err := entries[0].Open()
		Expect(err).ToNot(HaveOccurred())
		defer rc.Close()

		got, err := io.ReadAll(rc)
		Expect(err).ToNot(HaveOccurred())
		Expect(got).To(Equal([]byte("hello")))
	})

	It("reads a well-formed archive straight off an afero.MemMapFs file", func() {
		data := archiveFixture{name: "hello.txt", content: []byte("hello")}.build()

		fs := afero.NewMemMapFs()
		Expect(afero.WriteFile(fs, "archive.7z", data, 0o644)).To(Succeed())

		f, err := fs.Open("archive.7z")
		Expect(err).ToNot(HaveOccurred())
		defer f.Close()

		r, err := sevenzip.NewReader(f, int64(len(data)))
		Expect(err).ToNot(HaveOccurred())
		defer r.Close()

		Expect(r.Entries()).To(HaveLen(1))
	})
})
