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

// buildStreamMap derives the parallel index arrays described in the data
// model from the already-parsed header: never stored on disk, always
// recomputed here.
func buildStreamMap(h *header) *streamMap {
	sm := &streamMap{}

	si := h.streamsInfo
	if si == nil {
		sm.fileFolderIndex = make([]int, len(h.files))
		for i := range sm.fileFolderIndex {
			sm.fileFolderIndex[i] = -1
			h.files[i].folder = -1
		}
		return sm
	}

	numFolders := len(si.folders)
	sm.folderFirstPackStreamIndex = make([]int, numFolders)
	sm.packStreamOffsets = make([]int64, len(si.packInfo.packSizes))
	sm.folderFirstFileIndex = make([]int, numFolders)
	sm.fileFolderIndex = make([]int, len(h.files))

	packCursor := 0
	var offset int64
	for i, sz := range si.packInfo.packSizes {
		sm.packStreamOffsets[i] = offset
		offset += int64(sz)
	}

	for f := 0; f < numFolders; f++ {
		sm.folderFirstPackStreamIndex[f] = packCursor
		packCursor += folderPackedStreamCount(&si.folders[f])
	}

	folderCursor := 0
	remainingInFolder := uint64(0)
	if numFolders > 0 {
		remainingInFolder = si.numUnpackSubStreamsInFolder(0)
	}

	for f := 0; f < numFolders; f++ {
		sm.folderFirstFileIndex[f] = -1
	}

	// sizesFlat mirrors the per-entry decoded sizes SubStreamsInfo records,
	// in the same folder-then-substream-index order this loop walks; its
	// absence (no SubStreamsInfo) means every folder holds exactly one
	// entry sized to the folder's own unpack size.
	var sizesFlat []uint64
	if si.subStreamsInfo != nil {
		sizesFlat = si.subStreamsInfo.unpackSizes
	}
	sizeCursor := 0

	var folderByteOffset uint64
	lastFolderCursor := -1

	for i := range h.files {
		if !h.files[i].hasStream {
			sm.fileFolderIndex[i] = -1
			h.files[i].folder = -1
			continue
		}

		for folderCursor < numFolders && remainingInFolder == 0 {
			folderCursor++
			if folderCursor < numFolders {
				remainingInFolder = si.numUnpackSubStreamsInFolder(folderCursor)
			}
		}
		if folderCursor >= numFolders {
			sm.fileFolderIndex[i] = -1
			h.files[i].folder = -1
			continue
		}

		if folderCursor != lastFolderCursor {
			folderByteOffset = 0
			lastFolderCursor = folderCursor
		}

		if sm.folderFirstFileIndex[folderCursor] == -1 {
			sm.folderFirstFileIndex[folderCursor] = i
		}

		sm.fileFolderIndex[i] = folderCursor
		h.files[i].folder = folderCursor
		h.files[i].offset = folderByteOffset

		sz := si.folders[folderCursor].unpackSize()
		if sizesFlat != nil && sizeCursor < len(sizesFlat) {
			sz = sizesFlat[sizeCursor]
		}
		h.files[i].size = sz
		folderByteOffset += sz
		sizeCursor++

		remainingInFolder--
	}

	return sm
}

func folderPackedStreamCount(f *folder) int {
	if len(f.packedStreams) == 0 {
		return 1
	}
	return len(f.packedStreams)
}
