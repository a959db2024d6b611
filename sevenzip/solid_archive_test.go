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
	"encoding/binary"
	"hash/crc32"
	"io"

	"github.com/nabbar/go7z/sevenzip"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// buildSolidArchive renders a single Copy-method folder holding every
// name/content pair back to back (7z's solid layout), with an explicit
// SubStreamsInfo block: kNumUnpackStream (one varint per folder, here a
// single folder with len(names) substreams), kSize (one varint per
// substream but the last, whose size is implied by the folder total),
// and kCRC (an "all defined" byte of 0 followed by a one-byte all-zero
// bit vector, since this fixture declares no per-substream digests).
func buildSolidArchive(names []string, contents [][]byte) []byte {
	var all bytes.Buffer
	for _, c := range contents {
		all.Write(c)
	}
	content := all.Bytes()

	var b bytes.Buffer
	b.WriteByte(0x01) // idHeader
	b.WriteByte(0x04) // idMainStreamsInfo

	b.WriteByte(0x06) // idPackInfo
	b.WriteByte(0x00) // packPos = 0
	b.WriteByte(0x01) // packCount = 1
	b.WriteByte(0x09) // idSize
	b.WriteByte(byte(len(content)))
	b.WriteByte(0x00) // idEnd (PackInfo)

	b.WriteByte(0x07) // idUnpackInfo
	b.WriteByte(0x0B) // idFolder
	b.WriteByte(0x01) // numFolders = 1
	b.WriteByte(0x00) // external = 0
	b.WriteByte(0x01) // numCoders = 1
	b.WriteByte(0x01) // flagsByte: methodIDSize=1
	b.WriteByte(0x00) // methodID = Copy
	b.WriteByte(0x0C) // idCodersUnpackSize
	b.WriteByte(byte(len(content)))
	b.WriteByte(0x00) // idEnd (UnpackInfo) - no folder-level CRC

	b.WriteByte(0x08) // idSubStreamsInfo
	b.WriteByte(0x0D) // idNumUnpackStream
	b.WriteByte(byte(len(names)))
	b.WriteByte(0x09) // idSize
	for i := 0; i < len(contents)-1; i++ {
		b.WriteByte(byte(len(contents[i])))
	}
	b.WriteByte(0x0A) // idCRC
	b.WriteByte(0x00) // allDefined = false
	b.WriteByte(0x00) // bit vector byte, no digests defined
	b.WriteByte(0x00) // idEnd (SubStreamsInfo)

	b.WriteByte(0x00) // idEnd (MainStreamsInfo)

	b.WriteByte(0x05) // idFilesInfo
	b.WriteByte(byte(len(names)))
	var nameBytes []byte
	for _, name := range names {
		nameBytes = append(nameBytes, utf16leName(name)...)
	}
	b.WriteByte(0x11) // idName: every name in one block
	b.WriteByte(byte(1 + len(nameBytes)))
	b.WriteByte(0x00)
	b.Write(nameBytes)
	b.WriteByte(0x00) // idEnd (FilesInfo)
	b.WriteByte(0x00) // idEnd (Header)

	header := b.Bytes()

	var out bytes.Buffer
	out.Write(make([]byte, 32))
	out.Write(content)
	out.Write(header)

	buf := out.Bytes()
	copy(buf[0:6], []byte{0x37, 0x7A, 0xBC, 0xAF, 0x27, 0x1C})
	buf[6] = 0
	buf[7] = 4

	var start [20]byte
	binary.LittleEndian.PutUint64(start[0:8], uint64(len(content)))
	binary.LittleEndian.PutUint64(start[8:16], uint64(len(header)))
	binary.LittleEndian.PutUint32(start[16:20], crc32.ChecksumIEEE(header))
	copy(buf[12:32], start[:])
	binary.LittleEndian.PutUint32(buf[8:12], crc32.ChecksumIEEE(start[:]))

	return buf
}

var _ = Describe("Reader over a solid folder", func() {
	It("opens every entry of a multi-substream folder described by an explicit SubStreamsInfo block", func() {
		data := buildSolidArchive(
			[]string{"a.txt", "b.txt", "c.txt"},
			[][]byte{[]byte("abc"), []byte("defgh"), []byte("ij")},
		)

		r, err := sevenzip.NewReader(bytes.NewReader(data), int64(len(data)))
		Expect(err).ToNot(HaveOccurred())
		defer r.Close()

		entries := r.Entries()
		Expect(entries).To(HaveLen(3))

		want := map[string][]byte{
			"a.txt": []byte("abc"),
			"b.txt": []byte("defgh"),
			"c.txt": []byte("ij"),
		}

		for _, e := range entries {
			Expect(e.Size()).To(Equal(uint64(len(want[e.Name()]))))

			rc, err := e.Open()
			Expect(err).ToNot(HaveOccurred())
			got, err := io.ReadAll(rc)
			Expect(err).ToNot(HaveOccurred())
			Expect(rc.Close()).To(Succeed())

			Expect(got).To(Equal(want[e.Name()]))
		}
	})
})
