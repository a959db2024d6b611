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

import "time"

// coder is one node of a folder's pipeline: a method id (Copy, LZMA, ...),
// its opaque properties, and its declared in/out stream counts. Only
// 1-in/1-out coders are supported; anything else is rejected in pass 1.
type coder struct {
	methodID   []byte
	properties []byte
	numIn      uint64
	numOut     uint64
}

// bindPair connects coder output outIndex to coder input inIndex within
// one folder, the wiring a decoder-stack factory walks to compose coders.
type bindPair struct {
	inIndex  uint64
	outIndex uint64
}

// folder is a coder pipeline: one unit of compression, possibly shared by
// many entries (solid compression).
type folder struct {
	coders        []coder
	bindPairs     []bindPair
	packedStreams []uint64 // in-stream indices fed directly from pack streams
	unpackSizes   []uint64 // one per coder output, in coder/output order
	hasCRC        bool
	crc           uint32
}

// numInTotal returns the folder's total input stream count across coders.
func (f *folder) numInTotal() uint64 {
	var n uint64
	for _, c := range f.coders {
		n += c.numIn
	}
	return n
}

// numOutTotal returns the folder's total output stream count across coders.
func (f *folder) numOutTotal() uint64 {
	var n uint64
	for _, c := range f.coders {
		n += c.numOut
	}
	return n
}

// findBindPairForInIndex returns the bind-pair whose inIndex matches, if any.
func (f *folder) findBindPairForInIndex(in uint64) (bindPair, bool) {
	for _, bp := range f.bindPairs {
		if bp.inIndex == in {
			return bp, true
		}
	}
	return bindPair{}, false
}

// findBindPairForOutIndex returns the bind-pair whose outIndex matches, if any.
func (f *folder) findBindPairForOutIndex(out uint64) (bindPair, bool) {
	for _, bp := range f.bindPairs {
		if bp.outIndex == out {
			return bp, true
		}
	}
	return bindPair{}, false
}

// finalOutIndex returns the one coder-output index that is never the
// target of a bind-pair: the folder's overall decoded output.
func (f *folder) finalOutIndex() (uint64, bool) {
	total := f.numOutTotal()
	for out := uint64(0); out < total; out++ {
		if _, bound := f.findBindPairForOutIndex(out); !bound {
			return out, true
		}
	}
	return 0, false
}

// unpackSize is the folder's overall decoded size: the unpack size of its
// final (unbound) output.
func (f *folder) unpackSize() uint64 {
	out, ok := f.finalOutIndex()
	if !ok || int(out) >= len(f.unpackSizes) {
		return 0
	}
	return f.unpackSizes[out]
}

// packInfo is the PackInfo header block: the absolute offset and sizes of
// every pack stream.
type packInfo struct {
	packPos    uint64
	packSizes  []uint64
	hasCRC     []bool
	packCRC    []uint32
}

// subStreamsInfo refines a folder's single decoded stream into the
// per-entry sizes and CRCs needed for solid compression.
type subStreamsInfo struct {
	numUnpackStreamsInFolders []uint64
	unpackSizes               []uint64
	hasCRC                    []bool
	crc                       []uint32
}

// streamsInfo bundles PackInfo, the per-folder UnpackInfo, and the
// optional SubStreamsInfo refinement - the MainStreamsInfo block.
type streamsInfo struct {
	packInfo       packInfo
	folders        []folder
	subStreamsInfo *subStreamsInfo
}

// numUnpackSubStreamsInFolder returns how many entries folder i contains,
// defaulting to one (the whole folder is one entry) when SubStreamsInfo
// is absent.
func (si *streamsInfo) numUnpackSubStreamsInFolder(i int) uint64 {
	if si.subStreamsInfo == nil {
		return 1
	}
	return si.subStreamsInfo.numUnpackStreamsInFolders[i]
}

// fileHeader is one Entry (File) as materialised by pass 2.
type fileHeader struct {
	name            string
	hasStream       bool
	isEmptyFile     bool
	isAnti          bool
	isDirectory     bool
	size            uint64
	hasCRC          bool
	crc             uint32
	attributes      uint32
	hasAttributes   bool
	creationTime    time.Time
	accessTime      time.Time
	modTime         time.Time
	hasCreationTime bool
	hasAccessTime   bool
	hasModTime      bool

	// folder/offset are filled in by the stream-map builder; folder is -1
	// for entries with no content stream.
	folder int
	offset uint64
}

// header is the fully parsed 7z metadata header: MainStreamsInfo plus
// FilesInfo.
type header struct {
	streamsInfo *streamsInfo
	files       []fileHeader
}

// streamMap holds the derived per-folder/per-file index arrays described
// in the data model: never stored on Archive, always recomputed from the
// parsed header.
type streamMap struct {
	folderFirstPackStreamIndex []int
	packStreamOffsets          []int64
	folderFirstFileIndex       []int
	fileFolderIndex            []int // -1 for empty-stream entries
}

// ntfsEpoch is 1601-01-01 00:00:00 UTC, the origin of 7z's 100ns-tick
// timestamps.
var ntfsEpoch = time.Date(1601, time.January, 1, 0, 0, 0, 0, time.UTC)

func ntfsTicksToTime(ticks uint64) time.Time {
	return ntfsEpoch.Add(time.Duration(ticks) * 100)
}
