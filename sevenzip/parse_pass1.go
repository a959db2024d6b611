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
	"bytes"
	"io"

	"github.com/hashicorp/go-multierror"
)

// pass1Counts is the tally pass 1 produces: every number pass 2 needs to
// size its allocations, and the inputs to the memory estimate formula.
type pass1Counts struct {
	packedStreams     uint64
	folders           uint64
	coders            uint64
	inStreams         uint64
	outStreams        uint64
	entries           uint64
	entriesWithStream uint64
	unpackSubStreams  uint64
}

// estimateKiB implements the conservative memory-estimate formula from the
// component design: estimate ~= 2*(16P + P/8 + F*folderSize + C*coderSize +
// (O-F)*bindPairSize + 8*(I-O+F) + 8*O + E*entrySize + streamMapSize),
// in bytes, rounded up to whole KiB.
func (c pass1Counts) estimateKiB() uint64 {
	const (
		folderSize   = 64
		coderSize    = 48
		bindPairSize = 16
		entrySize    = 128
	)

	p := c.packedStreams
	f := c.folders
	n := c.coders
	i := c.inStreams
	o := c.outStreams
	e := c.entries

	streamMapSize := 8*f + 8*p + 8*f + 8*e

	bytesEstimate := 2 * (16*p + p/8 +
		f*folderSize + n*coderSize +
		(o-f)*bindPairSize + 8*(i-o+f) + 8*o +
		e*entrySize +
		streamMapSize)

	return (bytesEstimate + 1023) / 1024
}

// parsePass1 walks the header buffer without allocating any Archive
// structure, tallying counts and validating the structural rules listed
// in the two-pass header parser's component design. Violations that do
// not prevent continuing the walk are accumulated via multierror and
// returned together; a malformed byte stream (truncated varint, buffer
// overrun) aborts immediately since there is nothing left to walk.
func parsePass1(data []byte, fileSize int64) (pass1Counts, error) {
	r := bytes.NewReader(data)

	id, err := readByte(r)
	if err != nil {
		return pass1Counts{}, newErr(CodeTruncatedInput, err)
	}
	if nid(id) != idHeader {
		return pass1Counts{}, newErr(CodeMalformedHeader)
	}

	var counts pass1Counts
	var violations *multierror.Error

	for {
		id, err := readByte(r)
		if err != nil {
			if err == io.EOF {
				break
			}
			return counts, newErr(CodeTruncatedInput, err)
		}

		switch nid(id) {
		case idEnd:
			return counts, violations.ErrorOrNil()
		case idArchiveProperties:
			if err := skipArchiveProperties(r); err != nil {
				return counts, err
			}
		case idMainStreamsInfo:
			if err := pass1StreamsInfo(r, &counts, fileSize, violations); err != nil {
				return counts, err
			}
		case idFilesInfo:
			if err := pass1FilesInfo(r, &counts, violations); err != nil {
				return counts, err
			}
		case idAdditionalStreams:
			violations = multierror.Append(violations, newErr(CodeUnsupportedCoder))
			if err := skipUnknownBlock(r); err != nil {
				return counts, err
			}
		default:
			violations = multierror.Append(violations, newErr(CodeMalformedHeader))
			if err := skipUnknownBlock(r); err != nil {
				return counts, err
			}
		}
	}

	return counts, violations.ErrorOrNil()
}

func skipArchiveProperties(r *bytes.Reader) error {
	// The kArchiveProperties block's semantics are undocumented upstream;
	// the reference implementation reads and discards it, so this parser
	// does the same (see the module's open-question record).
	for {
		propType, err := readByte(r)
		if err != nil {
			return newErr(CodeTruncatedInput, err)
		}
		if nid(propType) == idEnd {
			return nil
		}
		size, err := readNumber(r)
		if err != nil {
			return newErr(CodeTruncatedInput, err)
		}
		if _, err := r.Seek(int64(size), io.SeekCurrent); err != nil {
			return newErr(CodeMalformedHeader, err)
		}
	}
}

// skipUnknownBlock consumes a varint-sized property payload for a block
// this parser does not interpret further.
func skipUnknownBlock(r *bytes.Reader) error {
	size, err := readNumber(r)
	if err != nil {
		return newErr(CodeTruncatedInput, err)
	}
	if _, err := r.Seek(int64(size), io.SeekCurrent); err != nil {
		return newErr(CodeMalformedHeader, err)
	}
	return nil
}

func pass1StreamsInfo(r *bytes.Reader, counts *pass1Counts, fileSize int64, violations *multierror.Error) error {
	var folderHasCRC []bool

	for {
		id, err := readByte(r)
		if err != nil {
			return newErr(CodeTruncatedInput, err)
		}

		switch nid(id) {
		case idEnd:
			return nil
		case idPackInfo:
			if _, _, err = pass1PackInfo(r, counts, fileSize); err != nil {
				return err
			}
		case idUnpackInfo:
			hasCRC, err := pass1UnpackInfo(r, counts)
			if err != nil {
				return err
			}
			folderHasCRC = hasCRC
		case idSubStreamsInfo:
			if err := pass1SubStreamsInfo(r, counts, folderHasCRC); err != nil {
				return err
			}
		default:
			if err := skipUnknownBlock(r); err != nil {
				return err
			}
		}
	}
}

func pass1PackInfo(r *bytes.Reader, counts *pass1Counts, fileSize int64) (uint64, uint64, error) {
	packPos, err := readNumber(r)
	if err != nil {
		return 0, 0, newErr(CodeTruncatedInput, err)
	}
	packCount, err := readNumber(r)
	if err != nil {
		return 0, 0, newErr(CodeTruncatedInput, err)
	}

	var total uint64

	for {
		id, err := readByte(r)
		if err != nil {
			return 0, 0, newErr(CodeTruncatedInput, err)
		}
		switch nid(id) {
		case idEnd:
			counts.packedStreams += packCount
			if signatureHeaderSize+int64(packPos)+int64(total) > fileSize {
				return 0, 0, newErr(CodeNextHeaderOutOfBounds)
			}
			return packPos, packCount, nil
		case idSize:
			for i := uint64(0); i < packCount; i++ {
				sz, err := readNumber(r)
				if err != nil {
					return 0, 0, newErr(CodeTruncatedInput, err)
				}
				total += sz
			}
		case idCRC:
			defined, err := readBoolVectorAllDefined(r, int(packCount))
			if err != nil {
				return 0, 0, newErr(CodeTruncatedInput, err)
			}
			for _, d := range defined {
				if d {
					if _, err := io.CopyN(io.Discard, r, 4); err != nil {
						return 0, 0, newErr(CodeTruncatedInput, err)
					}
				}
			}
		default:
			if err := skipUnknownBlock(r); err != nil {
				return 0, 0, err
			}
		}
	}
}

func pass1UnpackInfo(r *bytes.Reader, counts *pass1Counts) ([]bool, error) {
	id, err := readByte(r)
	if err != nil {
		return nil, newErr(CodeTruncatedInput, err)
	}
	if nid(id) != idFolder {
		return nil, newErr(CodeMalformedHeader)
	}

	numFolders, err := readNumber(r)
	if err != nil {
		return nil, newErr(CodeTruncatedInput, err)
	}

	external, err := readByte(r)
	if err != nil {
		return nil, newErr(CodeTruncatedInput, err)
	}
	if external != 0 {
		return nil, newErr(CodeMalformedHeader)
	}

	counts.folders += numFolders
	outTotals := make([]uint64, numFolders)

	for f := uint64(0); f < numFolders; f++ {
		numCoders, err := readNumber(r)
		if err != nil {
			return nil, newErr(CodeTruncatedInput, err)
		}
		if numCoders < 1 {
			return nil, newErr(CodeMalformedHeader)
		}
		counts.coders += numCoders

		var in, out, bindPairs uint64
		for c := uint64(0); c < numCoders; c++ {
			flagsByte, err := readByte(r)
			if err != nil {
				return nil, newErr(CodeTruncatedInput, err)
			}
			methodIDSize := uint64(flagsByte & 0x0F)
			isComplex := flagsByte&0x10 != 0
			hasAttrs := flagsByte&0x20 != 0
			altMethods := flagsByte&0x80 != 0
			if altMethods {
				return nil, newErr(CodeUnsupportedCoder)
			}
			if _, err := io.CopyN(io.Discard, r, int64(methodIDSize)); err != nil {
				return nil, newErr(CodeTruncatedInput, err)
			}

			numIn, numOut := uint64(1), uint64(1)
			if isComplex {
				numIn, err = readNumber(r)
				if err != nil {
					return nil, newErr(CodeTruncatedInput, err)
				}
				numOut, err = readNumber(r)
				if err != nil {
					return nil, newErr(CodeTruncatedInput, err)
				}
			}
			if numIn != 1 || numOut != 1 {
				return nil, newErr(CodeUnsupportedCoder)
			}
			if hasAttrs {
				propSize, err := readNumber(r)
				if err != nil {
					return nil, newErr(CodeTruncatedInput, err)
				}
				if _, err := r.Seek(int64(propSize), io.SeekCurrent); err != nil {
					return nil, newErr(CodeMalformedHeader, err)
				}
			}

			in += numIn
			out += numOut
		}

		numBindPairs := out - 1
		for b := uint64(0); b < numBindPairs; b++ {
			inIdx, err := readNumber(r)
			if err != nil {
				return nil, newErr(CodeTruncatedInput, err)
			}
			if inIdx >= in {
				return nil, newErr(CodeMalformedHeader)
			}
			if _, err := readNumber(r); err != nil { // outIdx
				return nil, newErr(CodeTruncatedInput, err)
			}
			bindPairs++
		}

		numPackedStreamsRequired := in - bindPairs
		if numPackedStreamsRequired > 1 {
			for p := uint64(0); p < numPackedStreamsRequired; p++ {
				if _, err := readNumber(r); err != nil {
					return nil, newErr(CodeTruncatedInput, err)
				}
			}
		}

		counts.inStreams += in
		counts.outStreams += out
		outTotals[f] = out
	}

	id, err = readByte(r)
	if err != nil {
		return nil, newErr(CodeTruncatedInput, err)
	}
	if nid(id) != idCodersUnpackSize {
		return nil, newErr(CodeMalformedHeader)
	}
	for _, out := range outTotals {
		for i := uint64(0); i < out; i++ {
			if _, err := readNumber(r); err != nil {
				return nil, newErr(CodeTruncatedInput, err)
			}
		}
	}

	folderHasCRC := make([]bool, numFolders)

	for {
		id, err := readByte(r)
		if err != nil {
			return nil, newErr(CodeTruncatedInput, err)
		}
		switch nid(id) {
		case idEnd:
			return folderHasCRC, nil
		case idCRC:
			defined, err := readBoolVectorAllDefined(r, int(numFolders))
			if err != nil {
				return nil, newErr(CodeTruncatedInput, err)
			}
			for i, d := range defined {
				if d {
					if _, err := io.CopyN(io.Discard, r, 4); err != nil {
						return nil, newErr(CodeTruncatedInput, err)
					}
					folderHasCRC[i] = true
				}
			}
		default:
			if err := skipUnknownBlock(r); err != nil {
				return nil, err
			}
		}
	}
}

// pass1SubStreamsInfo walks a SubStreamsInfo block the same way pass 2's
// pass2SubStreamsInfo does: none of its three sub-blocks are length-
// prefixed, so each must be stepped through varint-by-varint (or
// bitvector-plus-digests, for the CRC block) rather than skipped as an
// opaque byte run. folderHasCRC is the per-folder CRC-defined flags
// pass1UnpackInfo already read, needed here to size the CRC block's
// digest count exactly as pass 2 does.
func pass1SubStreamsInfo(r *bytes.Reader, counts *pass1Counts, folderHasCRC []bool) error {
	numFolders := len(folderHasCRC)
	numUnpackStreams := make([]uint64, numFolders)
	for i := range numUnpackStreams {
		numUnpackStreams[i] = 1
	}

	for {
		id, err := readByte(r)
		if err != nil {
			return newErr(CodeTruncatedInput, err)
		}
		switch nid(id) {
		case idEnd:
			var total uint64
			for _, n := range numUnpackStreams {
				total += n
			}
			counts.unpackSubStreams += total
			return nil
		case idNumUnpackStream:
			for i := 0; i < numFolders; i++ {
				n, err := readNumber(r)
				if err != nil {
					return newErr(CodeTruncatedInput, err)
				}
				numUnpackStreams[i] = n
			}
		case idSize:
			for _, n := range numUnpackStreams {
				if n == 0 {
					continue
				}
				for i := uint64(0); i < n-1; i++ {
					if _, err := readNumber(r); err != nil {
						return newErr(CodeTruncatedInput, err)
					}
				}
			}
		case idCRC:
			numDigests := 0
			for i, n := range numUnpackStreams {
				if n != 1 || !folderHasCRC[i] {
					numDigests += int(n)
				}
			}
			defined, err := readBoolVectorAllDefined(r, numDigests)
			if err != nil {
				return newErr(CodeTruncatedInput, err)
			}
			for _, d := range defined {
				if d {
					if _, err := io.CopyN(io.Discard, r, 4); err != nil {
						return newErr(CodeTruncatedInput, err)
					}
				}
			}
		default:
			if err := skipUnknownBlock(r); err != nil {
				return err
			}
		}
	}
}

func pass1FilesInfo(r *bytes.Reader, counts *pass1Counts, violations *multierror.Error) error {
	numFiles, err := readNumber(r)
	if err != nil {
		return newErr(CodeTruncatedInput, err)
	}
	counts.entries += numFiles

	emptyStreamCount := uint64(0)
	sawEmptyStream := false

	for {
		propType, err := readByte(r)
		if err != nil {
			return newErr(CodeTruncatedInput, err)
		}
		if nid(propType) == idEnd {
			counts.entriesWithStream += numFiles - emptyStreamCount
			return nil
		}

		size, err := readNumber(r)
		if err != nil {
			return newErr(CodeTruncatedInput, err)
		}

		switch nid(propType) {
		case idEmptyStream:
			sawEmptyStream = true
			bits, err := readBoolVector(r, int(numFiles))
			if err != nil {
				return newErr(CodeTruncatedInput, err)
			}
			for _, b := range bits {
				if b {
					emptyStreamCount++
				}
			}
		case idEmptyFile, idAnti:
			if !sawEmptyStream {
				return newErr(CodeMalformedHeader)
			}
			if _, err := io.CopyN(io.Discard, r, int64(size)); err != nil {
				return newErr(CodeTruncatedInput, err)
			}
		case idName:
			external, err := readByte(r)
			if err != nil {
				return newErr(CodeTruncatedInput, err)
			}
			if external != 0 {
				return newErr(CodeMalformedHeader)
			}
			rest := int64(size) - 1
			if rest < 0 || rest%2 != 0 {
				return newErr(CodeMalformedHeader)
			}
			buf := make([]byte, rest)
			if _, err := io.ReadFull(r, buf); err != nil {
				return newErr(CodeTruncatedInput, err)
			}
			if n := countUTF16NullTerminated(buf); uint64(n) != numFiles {
				return newErr(CodeMalformedHeader)
			}
		case idStartPos:
			return newErr(CodeMalformedHeader)
		default:
			if _, err := io.CopyN(io.Discard, r, int64(size)); err != nil {
				return newErr(CodeTruncatedInput, err)
			}
		}
	}
}

func countUTF16NullTerminated(buf []byte) int {
	count := 0
	for i := 0; i+1 < len(buf); i += 2 {
		if buf[i] == 0 && buf[i+1] == 0 {
			count++
		}
	}
	return count
}
