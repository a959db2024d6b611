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
	"hash/crc32"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
)

// Reader is a random-access 7z archive, opened over an io.ReaderAt so
// entries can be decoded independently of one another's position in the
// underlying file or blob.
type Reader struct {
	ra   io.ReaderAt
	size int64
	cfg  *config

	id uuid.UUID

	hdr *header
	sm  *streamMap

	mu     sync.Mutex
	closed bool
}

// NewReader opens a 7z archive backed by ra, whose total size is size.
func NewReader(ra io.ReaderAt, size int64, opts ...Option) (*Reader, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(cfg)
	}

	r := &Reader{
		ra:   ra,
		size: size,
		cfg:  cfg,
		id:   uuid.New(),
	}

	if err := r.load(); err != nil {
		return nil, err
	}

	return r, nil
}

func (r *Reader) load() error {
	sig := make([]byte, signatureHeaderSize)
	if _, err := r.ra.ReadAt(sig, 0); err != nil && err != io.EOF {
		return newErr(CodeTruncatedInput, err)
	}

	sh, recoverable, err := readSignature(bytes.NewReader(sig), r.size)
	if err != nil {
		return err
	}
	if recoverable {
		if !r.cfg.tryRecoverBrokenArchives {
			return newErr(CodeRecoverable)
		}
		return r.recover()
	}

	hdr, err := r.readHeaderAt(signatureHeaderSize+sh.nextHeaderOffset, sh.nextHeaderSize, sh.nextHeaderCRC)
	if err != nil {
		return err
	}

	r.hdr = hdr
	r.sm = buildStreamMap(hdr)
	r.cfg.logf("go7z: loaded archive %s: %d folder(s), %d entr(y/ies)", r.id, len(folders(hdr)), len(hdr.files))
	return nil
}

func folders(h *header) []folder {
	if h.streamsInfo == nil {
		return nil
	}
	return h.streamsInfo.folders
}

// readHeaderAt reads, CRC-checks, and parses the metadata header located at
// the given absolute offset, recursing once through an encoded header if
// the archive stores its header compressed.
func (r *Reader) readHeaderAt(offset, size int64, wantCRC uint32) (*header, error) {
	if offset < 0 || size < 0 || offset+size > r.size {
		return nil, newErr(CodeNextHeaderOutOfBounds)
	}

	buf := make([]byte, size)
	if _, err := r.ra.ReadAt(buf, offset); err != nil && err != io.EOF {
		return nil, newErr(CodeTruncatedInput, err)
	}
	if crc32.ChecksumIEEE(buf) != wantCRC {
		return nil, newErr(CodeHeaderCrcMismatch)
	}

	if len(buf) == 0 {
		return &header{}, nil
	}

	switch nid(buf[0]) {
	case idHeader:
		return r.parseHeaderBytes(buf)

	case idEncodedHeader:
		decoded, err := r.decodeEncodedHeader(buf[1:])
		if err != nil {
			return nil, err
		}
		if len(decoded) == 0 || nid(decoded[0]) != idHeader {
			return nil, newErr(CodeMalformedHeader)
		}
		return r.parseHeaderBytes(decoded)

	default:
		return nil, newErr(CodeMalformedHeader)
	}
}

func (r *Reader) parseHeaderBytes(buf []byte) (*header, error) {
	counts, err := parsePass1(buf, r.size)
	if err != nil {
		return nil, err
	}
	if counts.estimateKiB() > r.cfg.maxMemoryLimitKiB {
		return nil, newErr(CodeMemoryLimit)
	}
	return parsePass2(buf, counts)
}

// decodeEncodedHeader decodes the single folder that holds a compressed
// metadata header, using the same decoder-stack factory entries do.
//
// Unlike the Header block, an EncodedHeader's body is a bare StreamsInfo -
// it is never wrapped in a kMainStreamsInfo tag - so this goes straight to
// the StreamsInfo parsers rather than through parsePass1/parsePass2's
// top-level Header dispatch.
func (r *Reader) decodeEncodedHeader(buf []byte) ([]byte, error) {
	var counts pass1Counts
	var violations *multierror.Error
	rdr := bytes.NewReader(buf)
	if err := pass1StreamsInfo(rdr, &counts, r.size, violations); err != nil {
		return nil, err
	}
	if counts.estimateKiB() > r.cfg.maxMemoryLimitKiB {
		return nil, newErr(CodeMemoryLimit)
	}

	rdr2 := bytes.NewReader(buf)
	si, err := pass2StreamsInfo(rdr2)
	if err != nil {
		return nil, err
	}
	if si == nil || len(si.folders) != 1 {
		return nil, newErr(CodeMalformedHeader)
	}

	hdr := &header{streamsInfo: si}
	sm := buildStreamMap(hdr)
	f := &si.folders[0]
	n := folderPackedStreamCount(f)
	offsets := make([]int64, n)
	sizes := make([]uint64, n)
	base := signatureHeaderSize + int64(si.packInfo.packPos)
	for i := 0; i < n; i++ {
		offsets[i] = base + sm.packStreamOffsets[sm.folderFirstPackStreamIndex[0]+i]
		sizes[i] = si.packInfo.packSizes[sm.folderFirstPackStreamIndex[0]+i]
	}

	var discard int64
	folderRdr, err := buildFolderReader(r.ra, f, offsets, sizes, r.cfg.password, &discard)
	if err != nil {
		return nil, err
	}

	return io.ReadAll(folderRdr)
}

func (r *Reader) recover() error {
	hdr, err := r.recoverHeader(r.cfg.recoverySearchLimitBytes)
	if err != nil {
		return err
	}
	r.hdr = hdr
	r.sm = buildStreamMap(hdr)
	return nil
}

// Entries returns every file header in archive order.
func (r *Reader) Entries() []Entry {
	entries := make([]Entry, len(r.hdr.files))
	for i := range r.hdr.files {
		entries[i] = Entry{r: r, index: i}
	}
	return entries
}

// Entry is one archive member, exposing its metadata and an opener for its
// content stream (if it has one).
type Entry struct {
	r     *Reader
	index int
}

func (e Entry) fh() *fileHeader { return &e.r.hdr.files[e.index] }

func (e Entry) Name() string {
	fh := e.fh()
	if fh.name == "" && e.r.cfg.useDefaultNameForUnnamed {
		return e.r.cfg.defaultName
	}
	return fh.name
}

func (e Entry) IsDir() bool     { return e.fh().isDirectory }
func (e Entry) IsAnti() bool    { return e.fh().isAnti }
func (e Entry) Size() uint64    { return e.fh().size }
func (e Entry) HasStream() bool { return e.fh().hasStream }

// ModTime returns the entry's last-modified time and whether the archive
// actually recorded one.
func (e Entry) ModTime() (time.Time, bool) {
	fh := e.fh()
	return fh.modTime, fh.hasModTime
}

// Open returns a reader over this entry's decoded content. For entries in
// a solid folder, opening any entry other than the folder's first replays
// and discards the preceding entries' bytes from the start of the folder's
// decoded stream - 7z's solid layout carries no per-entry seek points.
func (e Entry) Open() (io.ReadCloser, error) {
	fh := e.fh()
	if !fh.hasStream {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}

	r := e.r
	sm := r.sm
	folderIdx := fh.folder
	if folderIdx < 0 {
		return nil, newErr(CodeMalformedHeader)
	}

	si := r.hdr.streamsInfo
	f := &si.folders[folderIdx]
	n := folderPackedStreamCount(f)

	firstPack := sm.folderFirstPackStreamIndex[folderIdx]
	offsets := make([]int64, n)
	sizes := make([]uint64, n)
	base := signatureHeaderSize + int64(si.packInfo.packPos)
	for i := 0; i < n; i++ {
		offsets[i] = base + sm.packStreamOffsets[firstPack+i]
		sizes[i] = si.packInfo.packSizes[firstPack+i]
	}

	var discard int64
	folderStream, err := buildFolderReader(r.ra, f, offsets, sizes, r.cfg.password, &discard)
	if err != nil {
		return nil, err
	}

	skip := fh.offset
	if skip > 0 {
		if _, err := io.CopyN(io.Discard, folderStream, int64(skip)); err != nil {
			return nil, newErr(CodeTruncatedInput, err)
		}
	}

	return io.NopCloser(io.LimitReader(folderStream, int64(fh.size))), nil
}

// Close zeroes any stored password. The underlying io.ReaderAt is owned by
// the caller and is not closed here.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	r.cfg.zeroPassword()
	return nil
}
