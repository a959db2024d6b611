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
	"io"
)

// readNumber decodes one 7z varint: the first byte's high bits encode how
// many low bytes follow, mask starting at 0x80 and halving once per
// leading one-bit (up to 8 bytes). The effective value is
// (first & (mask-1)) << (8*k) | next_k_bytes_le, per the wire-encoding
// section of the format description.
func readNumber(r io.Reader) (uint64, error) {
	first, err := readByte(r)
	if err != nil {
		return 0, err
	}

	var (
		mask  byte   = 0x80
		value uint64
	)

	for i := 0; i < 8; i++ {
		if first&mask == 0 {
			value |= uint64(first&(mask-1)) << (8 * uint(i))
			return value, nil
		}

		b, err := readByte(r)
		if err != nil {
			return 0, err
		}
		value |= uint64(b) << (8 * uint(i))

		mask >>= 1
	}

	return value, nil
}

// readByte reads a single byte, reporting a short read as io.EOF.
func readByte(r io.Reader) (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		return 0, err
	}
	return b[0], nil
}

// readBoolVector reads n bits packed MSB-first into ceil(n/8) bytes, the
// representation used for kEmptyStream/kEmptyFile/kAnti bit vectors.
func readBoolVector(r io.Reader, n int) ([]bool, error) {
	res := make([]bool, n)

	var b byte
	var mask byte

	for i := 0; i < n; i++ {
		if mask == 0 {
			var err error
			b, err = readByte(r)
			if err != nil {
				return nil, err
			}
			mask = 0x80
		}
		res[i] = b&mask != 0
		mask >>= 1
	}

	return res, nil
}

// readBoolVectorAllDefined reads the "all defined" shortcut byte that
// precedes several optional per-entry attribute blocks (times, CRCs,
// attributes): when it is non-zero every element is defined and no
// bit-vector follows.
func readBoolVectorAllDefined(r io.Reader, n int) ([]bool, error) {
	allDefined, err := readByte(r)
	if err != nil {
		return nil, err
	}
	if allDefined != 0 {
		res := make([]bool, n)
		for i := range res {
			res[i] = true
		}
		return res, nil
	}
	return readBoolVector(r, n)
}
