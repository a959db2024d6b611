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
)

// archiveFixture builds a minimal, single-folder, single-entry 7z archive
// byte-for-byte by hand: a Copy-method folder over content, one named file,
// and a plain (uncompressed) Header block. It exists so the reader's
// end-to-end behaviour can be checked without a real 7-Zip binary on hand.
type archiveFixture struct {
	name          string
	content       []byte
	withFolderCRC bool
	folderCRC     uint32 // only used when withFolderCRC is true
	zeroStart     bool   // build a zeroed, "recoverable" start header instead
}

func utf16leName(name string) []byte {
	buf := make([]byte, 0, len(name)*2+2)
	for _, r := range name {
		buf = append(buf, byte(r), 0)
	}
	return append(buf, 0, 0)
}

// buildHeader renders the plain (uncompressed) Header block: MainStreamsInfo
// (PackInfo + a one-coder Copy folder + CodersUnpackSize, optionally a
// folder CRC) followed by FilesInfo with a single named entry.
func (f archiveFixture) buildHeader() []byte {
	var b bytes.Buffer

	b.WriteByte(0x01) // idHeader
	b.WriteByte(0x04) // idMainStreamsInfo

	// PackInfo: one pack stream at offset 0, sized len(content).
	b.WriteByte(0x06) // idPackInfo
	b.WriteByte(0x00) // packPos = 0
	b.WriteByte(0x01) // packCount = 1
	b.WriteByte(0x09) // idSize
	b.WriteByte(byte(len(f.content)))
	b.WriteByte(0x00) // idEnd (PackInfo)

	// UnpackInfo: one folder, one Copy coder, unpack size = len(content).
	b.WriteByte(0x07) // idUnpackInfo
	b.WriteByte(0x0B) // idFolder
	b.WriteByte(0x01) // numFolders = 1
	b.WriteByte(0x00) // external = 0
	b.WriteByte(0x01) // numCoders = 1
	b.WriteByte(0x01) // flagsByte: methodIDSize=1
	b.WriteByte(0x00) // methodID = Copy
	b.WriteByte(0x0C) // idCodersUnpackSize
	b.WriteByte(byte(len(f.content)))
	if f.withFolderCRC {
		b.WriteByte(0x0A) // idCRC
		b.WriteByte(0xFF) // all defined
		var crc [4]byte
		binary.LittleEndian.PutUint32(crc[:], f.folderCRC)
		b.Write(crc[:])
	}
	b.WriteByte(0x00) // idEnd (UnpackInfo)

	b.WriteByte(0x00) // idEnd (MainStreamsInfo)

	// FilesInfo: one named entry with content.
	b.WriteByte(0x05) // idFilesInfo
	b.WriteByte(0x01) // numFiles = 1

	name := utf16leName(f.name)
	b.WriteByte(0x11)                    // idName
	b.WriteByte(byte(1 + len(name)))     // size: external byte + name bytes
	b.WriteByte(0x00)                    // external = 0
	b.Write(name)

	b.WriteByte(0x00) // idEnd (FilesInfo)
	b.WriteByte(0x00) // idEnd (Header)

	return b.Bytes()
}

// build renders the full archive: 32-byte signature header, pack data, then
// the metadata header.
func (f archiveFixture) build() []byte {
	header := f.buildHeader()

	var out bytes.Buffer
	out.Write(make([]byte, 32)) // placeholder signature, filled in below
	out.Write(f.content)
	out.Write(header)

	buf := out.Bytes()

	copy(buf[0:6], []byte{0x37, 0x7A, 0xBC, 0xAF, 0x27, 0x1C})
	buf[6] = 0 // major version
	buf[7] = 4 // minor version

	if f.zeroStart {
		for i := 8; i < 32; i++ {
			buf[i] = 0
		}
		return buf
	}

	var start [20]byte
	binary.LittleEndian.PutUint64(start[0:8], uint64(len(f.content)))
	binary.LittleEndian.PutUint64(start[8:16], uint64(len(header)))
	binary.LittleEndian.PutUint32(start[16:20], crc32.ChecksumIEEE(header))
	copy(buf[12:32], start[:])
	binary.LittleEndian.PutUint32(buf[8:12], crc32.ChecksumIEEE(start[:]))

	return buf
}
