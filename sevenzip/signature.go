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
	"encoding/binary"
	"hash/crc32"
	"io"
)

var magic = [6]byte{0x37, 0x7A, 0xBC, 0xAF, 0x27, 0x1C}

const signatureHeaderSize = 32 // 6 magic + 2 version + 4 CRC + 20 start-header

// startHeader is the 20-byte, CRC-32-protected pointer to the next
// (metadata) header.
type startHeader struct {
	nextHeaderOffset int64
	nextHeaderSize   int64
	nextHeaderCRC    uint32
}

// readSignature reads the 32-byte signature + start-header from the
// beginning of r, validating the magic, the major version, and the
// start-header's own CRC-32. size is the total archive length, used to
// bounds-check the header pointer.
//
// A start-header whose stored CRC is zero and whose 20 bytes are also
// all-zero is a special case (common in truncated multi-volume archives):
// readSignature returns recoverable=true and a nil error instead of
// failing, so the caller can decide whether to enter recovery mode.
func readSignature(r io.Reader, size int64) (sh startHeader, recoverable bool, err error) {
	var buf [signatureHeaderSize]byte
	if _, err = io.ReadFull(r, buf[:]); err != nil {
		return startHeader{}, false, newErr(CodeTruncatedInput, err)
	}

	if buf[0] != magic[0] || buf[1] != magic[1] || buf[2] != magic[2] ||
		buf[3] != magic[3] || buf[4] != magic[4] || buf[5] != magic[5] {
		return startHeader{}, false, newErr(CodeBadMagic)
	}

	if buf[6] != 0 {
		return startHeader{}, false, newErr(CodeUnsupportedVersion)
	}

	storedCRC := binary.LittleEndian.Uint32(buf[8:12])
	startBytes := buf[12:32]

	if storedCRC == 0 && allZero(startBytes) {
		return startHeader{}, true, nil
	}

	if crc32.ChecksumIEEE(startBytes) != storedCRC {
		return startHeader{}, false, newErr(CodeHeaderCrcMismatch)
	}

	sh.nextHeaderOffset = int64(binary.LittleEndian.Uint64(startBytes[0:8]))
	sh.nextHeaderSize = int64(binary.LittleEndian.Uint64(startBytes[8:16]))
	sh.nextHeaderCRC = binary.LittleEndian.Uint32(startBytes[16:20])

	if err = sh.validate(size); err != nil {
		return startHeader{}, false, err
	}

	return sh, false, nil
}

func (sh startHeader) validate(size int64) error {
	if sh.nextHeaderOffset < 0 || signatureHeaderSize+sh.nextHeaderOffset > size {
		return newErr(CodeNextHeaderOutOfBounds)
	}
	if sh.nextHeaderSize < 0 ||
		signatureHeaderSize+sh.nextHeaderOffset+sh.nextHeaderSize > size {
		return newErr(CodeNextHeaderOutOfBounds)
	}
	return nil
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
