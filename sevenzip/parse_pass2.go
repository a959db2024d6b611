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
	"time"
)

// parsePass2 re-walks the same header buffer pass 1 already validated and
// sized, this time allocating and populating the real Archive/Folder/File
// structures plus whatever SubStreamsInfo refinement is present. It trusts
// pass 1's structural guarantees (coder arity, bind-pair indices, name
// block shape) and does not re-validate them.
func parsePass2(data []byte, counts pass1Counts) (*header, error) {
	r := bytes.NewReader(data)

	id, err := readByte(r)
	if err != nil {
		return nil, newErr(CodeTruncatedInput, err)
	}
	if nid(id) != idHeader {
		return nil, newErr(CodeMalformedHeader)
	}

	h := &header{}

	for {
		id, err := readByte(r)
		if err != nil {
			if err == io.EOF {
				return h, nil
			}
			return nil, newErr(CodeTruncatedInput, err)
		}

		switch nid(id) {
		case idEnd:
			return h, nil
		case idArchiveProperties:
			if err := skipArchiveProperties(r); err != nil {
				return nil, err
			}
		case idMainStreamsInfo:
			si, err := pass2StreamsInfo(r)
			if err != nil {
				return nil, err
			}
			h.streamsInfo = si
		case idFilesInfo:
			files, err := pass2FilesInfo(r)
			if err != nil {
				return nil, err
			}
			h.files = files
		default:
			if err := skipUnknownBlock(r); err != nil {
				return nil, err
			}
		}
	}
}

func pass2StreamsInfo(r *bytes.Reader) (*streamsInfo, error) {
	si := &streamsInfo{}

	for {
		id, err := readByte(r)
		if err != nil {
			return nil, newErr(CodeTruncatedInput, err)
		}

		switch nid(id) {
		case idEnd:
			return si, nil
		case idPackInfo:
			pi, err := pass2PackInfo(r)
			if err != nil {
				return nil, err
			}
			si.packInfo = pi
		case idUnpackInfo:
			folders, err := pass2UnpackInfo(r)
			if err != nil {
				return nil, err
			}
			si.folders = folders
		case idSubStreamsInfo:
			ssi, err := pass2SubStreamsInfo(r, si.folders)
			if err != nil {
				return nil, err
			}
			si.subStreamsInfo = ssi
		default:
			if err := skipUnknownBlock(r); err != nil {
				return nil, err
			}
		}
	}
}

func pass2PackInfo(r *bytes.Reader) (packInfo, error) {
	pi := packInfo{}

	packPos, err := readNumber(r)
	if err != nil {
		return pi, newErr(CodeTruncatedInput, err)
	}
	packCount, err := readNumber(r)
	if err != nil {
		return pi, newErr(CodeTruncatedInput, err)
	}
	pi.packPos = packPos

	for {
		id, err := readByte(r)
		if err != nil {
			return pi, newErr(CodeTruncatedInput, err)
		}
		switch nid(id) {
		case idEnd:
			return pi, nil
		case idSize:
			pi.packSizes = make([]uint64, packCount)
			for i := range pi.packSizes {
				sz, err := readNumber(r)
				if err != nil {
					return pi, newErr(CodeTruncatedInput, err)
				}
				pi.packSizes[i] = sz
			}
		case idCRC:
			defined, err := readBoolVectorAllDefined(r, int(packCount))
			if err != nil {
				return pi, newErr(CodeTruncatedInput, err)
			}
			pi.hasCRC = defined
			pi.packCRC = make([]uint32, packCount)
			for i, d := range defined {
				if d {
					pi.packCRC[i], err = readUint32LE(r)
					if err != nil {
						return pi, newErr(CodeTruncatedInput, err)
					}
				}
			}
		default:
			if err := skipUnknownBlock(r); err != nil {
				return pi, err
			}
		}
	}
}

func pass2UnpackInfo(r *bytes.Reader) ([]folder, error) {
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
	if _, err := readByte(r); err != nil { // external, already validated in pass 1
		return nil, newErr(CodeTruncatedInput, err)
	}

	folders := make([]folder, numFolders)

	for f := range folders {
		numCoders, err := readNumber(r)
		if err != nil {
			return nil, newErr(CodeTruncatedInput, err)
		}

		coders := make([]coder, numCoders)
		var in, out uint64

		for c := range coders {
			flagsByte, err := readByte(r)
			if err != nil {
				return nil, newErr(CodeTruncatedInput, err)
			}
			methodIDSize := int(flagsByte & 0x0F)
			isComplex := flagsByte&0x10 != 0
			hasAttrs := flagsByte&0x20 != 0

			methodID := make([]byte, methodIDSize)
			if _, err := io.ReadFull(r, methodID); err != nil {
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

			var props []byte
			if hasAttrs {
				propSize, err := readNumber(r)
				if err != nil {
					return nil, newErr(CodeTruncatedInput, err)
				}
				props = make([]byte, propSize)
				if _, err := io.ReadFull(r, props); err != nil {
					return nil, newErr(CodeTruncatedInput, err)
				}
			}

			coders[c] = coder{methodID: methodID, properties: props, numIn: numIn, numOut: numOut}
			in += numIn
			out += numOut
		}

		numBindPairs := out - 1
		bindPairs := make([]bindPair, numBindPairs)
		for b := range bindPairs {
			inIdx, err := readNumber(r)
			if err != nil {
				return nil, newErr(CodeTruncatedInput, err)
			}
			outIdx, err := readNumber(r)
			if err != nil {
				return nil, newErr(CodeTruncatedInput, err)
			}
			bindPairs[b] = bindPair{inIndex: inIdx, outIndex: outIdx}
		}

		numPackedStreamsRequired := in - uint64(len(bindPairs))
		var packedStreams []uint64
		if numPackedStreamsRequired == 1 {
			// the single packed input is whichever in-index has no bind pair
			for idx := uint64(0); idx < in; idx++ {
				bound := false
				for _, bp := range bindPairs {
					if bp.inIndex == idx {
						bound = true
						break
					}
				}
				if !bound {
					packedStreams = []uint64{idx}
					break
				}
			}
		} else {
			packedStreams = make([]uint64, numPackedStreamsRequired)
			for p := range packedStreams {
				idx, err := readNumber(r)
				if err != nil {
					return nil, newErr(CodeTruncatedInput, err)
				}
				packedStreams[p] = idx
			}
		}

		folders[f] = folder{
			coders:        coders,
			bindPairs:     bindPairs,
			packedStreams: packedStreams,
		}
	}

	id, err = readByte(r)
	if err != nil {
		return nil, newErr(CodeTruncatedInput, err)
	}
	if nid(id) != idCodersUnpackSize {
		return nil, newErr(CodeMalformedHeader)
	}
	for f := range folders {
		total := folders[f].numOutTotal()
		sizes := make([]uint64, total)
		for i := range sizes {
			sz, err := readNumber(r)
			if err != nil {
				return nil, newErr(CodeTruncatedInput, err)
			}
			sizes[i] = sz
		}
		folders[f].unpackSizes = sizes
	}

	for {
		id, err := readByte(r)
		if err != nil {
			return nil, newErr(CodeTruncatedInput, err)
		}
		switch nid(id) {
		case idEnd:
			return folders, nil
		case idCRC:
			defined, err := readBoolVectorAllDefined(r, len(folders))
			if err != nil {
				return nil, newErr(CodeTruncatedInput, err)
			}
			for i, d := range defined {
				if d {
					crc, err := readUint32LE(r)
					if err != nil {
						return nil, newErr(CodeTruncatedInput, err)
					}
					folders[i].hasCRC = true
					folders[i].crc = crc
				}
			}
		default:
			if err := skipUnknownBlock(r); err != nil {
				return nil, err
			}
		}
	}
}

func pass2SubStreamsInfo(r *bytes.Reader, folders []folder) (*subStreamsInfo, error) {
	ssi := &subStreamsInfo{
		numUnpackStreamsInFolders: make([]uint64, len(folders)),
	}
	for i := range ssi.numUnpackStreamsInFolders {
		ssi.numUnpackStreamsInFolders[i] = 1
	}

	haveNumUnpackStream := false

	for {
		id, err := readByte(r)
		if err != nil {
			return nil, newErr(CodeTruncatedInput, err)
		}

		switch nid(id) {
		case idEnd:
			if !haveNumUnpackStream {
				ssi.unpackSizes = make([]uint64, len(folders))
				for i := range folders {
					ssi.unpackSizes[i] = folders[i].unpackSize()
				}
			}
			return ssi, nil
		case idNumUnpackStream:
			haveNumUnpackStream = true
			for i := range folders {
				n, err := readNumber(r)
				if err != nil {
					return nil, newErr(CodeTruncatedInput, err)
				}
				ssi.numUnpackStreamsInFolders[i] = n
			}
		case idSize:
			ssi.unpackSizes = make([]uint64, 0, len(folders))
			for f := range folders {
				n := int(ssi.numUnpackStreamsInFolders[f])
				if n == 0 {
					continue
				}
				var sum uint64
				for i := 0; i < n-1; i++ {
					sz, err := readNumber(r)
					if err != nil {
						return nil, newErr(CodeTruncatedInput, err)
					}
					ssi.unpackSizes = append(ssi.unpackSizes, sz)
					sum += sz
				}
				ssi.unpackSizes = append(ssi.unpackSizes, folders[f].unpackSize()-sum)
			}
		case idCRC:
			// digests are defined for every substream that doesn't already
			// inherit its folder's own CRC (single-substream folders with a
			// folder CRC already carry it).
			numDigests := 0
			for f := range folders {
				n := int(ssi.numUnpackStreamsInFolders[f])
				if n != 1 || !folders[f].hasCRC {
					numDigests += n
				}
			}
			defined, err := readBoolVectorAllDefined(r, numDigests)
			if err != nil {
				return nil, newErr(CodeTruncatedInput, err)
			}
			ssi.hasCRC = make([]bool, 0, len(defined))
			ssi.crc = make([]uint32, 0, len(defined))
			di := 0
			for f := range folders {
				n := int(ssi.numUnpackStreamsInFolders[f])
				if n == 1 && folders[f].hasCRC {
					ssi.hasCRC = append(ssi.hasCRC, true)
					ssi.crc = append(ssi.crc, folders[f].crc)
					continue
				}
				for i := 0; i < n; i++ {
					d := defined[di]
					di++
					ssi.hasCRC = append(ssi.hasCRC, d)
					if d {
						crc, err := readUint32LE(r)
						if err != nil {
							return nil, newErr(CodeTruncatedInput, err)
						}
						ssi.crc = append(ssi.crc, crc)
					} else {
						ssi.crc = append(ssi.crc, 0)
					}
				}
			}
		default:
			if err := skipUnknownBlock(r); err != nil {
				return nil, err
			}
		}
	}
}

func pass2FilesInfo(r *bytes.Reader) ([]fileHeader, error) {
	numFiles, err := readNumber(r)
	if err != nil {
		return nil, newErr(CodeTruncatedInput, err)
	}

	files := make([]fileHeader, numFiles)
	for i := range files {
		files[i].hasStream = true
	}

	var emptyStream []bool
	var emptyFile []bool
	var anti []bool

	for {
		propType, err := readByte(r)
		if err != nil {
			return nil, newErr(CodeTruncatedInput, err)
		}
		if nid(propType) == idEnd {
			break
		}

		size, err := readNumber(r)
		if err != nil {
			return nil, newErr(CodeTruncatedInput, err)
		}

		switch nid(propType) {
		case idEmptyStream:
			emptyStream, err = readBoolVector(r, int(numFiles))
			if err != nil {
				return nil, newErr(CodeTruncatedInput, err)
			}
			for i, e := range emptyStream {
				files[i].hasStream = !e
			}
		case idEmptyFile:
			n := countTrue(emptyStream)
			emptyFile, err = readBoolVector(r, n)
			if err != nil {
				return nil, newErr(CodeTruncatedInput, err)
			}
		case idAnti:
			n := countTrue(emptyStream)
			anti, err = readBoolVector(r, n)
			if err != nil {
				return nil, newErr(CodeTruncatedInput, err)
			}
		case idName:
			if _, err := readByte(r); err != nil { // external
				return nil, newErr(CodeTruncatedInput, err)
			}
			buf := make([]byte, int64(size)-1)
			if _, err := io.ReadFull(r, buf); err != nil {
				return nil, newErr(CodeTruncatedInput, err)
			}
			names := splitUTF16NullTerminated(buf)
			for i := range files {
				if i < len(names) {
					files[i].name = names[i]
				}
			}
		case idCTime:
			if err := readTimeVector(r, files, func(f *fileHeader, t timeValue) {
				f.hasCreationTime = t.defined
				f.creationTime = t.value
			}); err != nil {
				return nil, err
			}
		case idATime:
			if err := readTimeVector(r, files, func(f *fileHeader, t timeValue) {
				f.hasAccessTime = t.defined
				f.accessTime = t.value
			}); err != nil {
				return nil, err
			}
		case idMTime:
			if err := readTimeVector(r, files, func(f *fileHeader, t timeValue) {
				f.hasModTime = t.defined
				f.modTime = t.value
			}); err != nil {
				return nil, err
			}
		case idWinAttributes:
			defined, err := readBoolVectorAllDefined(r, int(numFiles))
			if err != nil {
				return nil, newErr(CodeTruncatedInput, err)
			}
			if _, err := readByte(r); err != nil { // external
				return nil, newErr(CodeTruncatedInput, err)
			}
			for i, d := range defined {
				if d {
					attr, err := readUint32LE(r)
					if err != nil {
						return nil, newErr(CodeTruncatedInput, err)
					}
					files[i].attributes = attr
					files[i].hasAttributes = true
				}
			}
		default:
			if _, err := io.CopyN(io.Discard, r, int64(size)); err != nil {
				return nil, newErr(CodeTruncatedInput, err)
			}
		}
	}

	emptyIdx := 0
	for i := range files {
		if files[i].hasStream {
			continue
		}
		isEmptyFile := emptyIdx < len(emptyFile) && emptyFile[emptyIdx]
		isAnti := emptyIdx < len(anti) && anti[emptyIdx]
		files[i].isEmptyFile = isEmptyFile
		files[i].isAnti = isAnti
		files[i].isDirectory = !isEmptyFile && !isAnti
		emptyIdx++
	}

	return files, nil
}

func countTrue(b []bool) int {
	n := 0
	for _, v := range b {
		if v {
			n++
		}
	}
	return n
}

type timeValue struct {
	defined bool
	value   time.Time
}

// readTimeVector reads one kCTime/kATime/kMTime block: an all-defined
// shortcut byte or bit-vector, an external byte (always 0 here), then one
// NTFS 100ns-tick u64 per defined entry, applied via set.
func readTimeVector(r *bytes.Reader, files []fileHeader, set func(*fileHeader, timeValue)) error {
	defined, err := readBoolVectorAllDefined(r, len(files))
	if err != nil {
		return newErr(CodeTruncatedInput, err)
	}
	if _, err := readByte(r); err != nil { // external
		return newErr(CodeTruncatedInput, err)
	}
	for i, d := range defined {
		if !d {
			continue
		}
		ticks, err := readUint64LE(r)
		if err != nil {
			return newErr(CodeTruncatedInput, err)
		}
		set(&files[i], timeValue{defined: true, value: ntfsTicksToTime(ticks)})
	}
	return nil
}
