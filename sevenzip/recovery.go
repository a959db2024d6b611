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
)

// recoverHeader scans backwards from the end of the archive, up to
// searchLimitBytes, looking for a byte that could start a Header or
// EncodedHeader block. The start-header's CRC is skipped entirely (it was
// the very thing that was zeroed); instead a candidate is accepted once it
// parses into a structurally sound header describing at least one pack
// stream and one file - the same sanity bar a deliberately-truncated
// start-header can't pass by accident.
func (r *Reader) recoverHeader(searchLimitBytes int64) (*header, error) {
	size := r.size
	if searchLimitBytes <= 0 || searchLimitBytes > size-signatureHeaderSize {
		searchLimitBytes = size - signatureHeaderSize
	}
	if searchLimitBytes <= 0 {
		return nil, newErr(CodeTruncatedInput)
	}

	scanStart := size - searchLimitBytes
	if scanStart < signatureHeaderSize {
		scanStart = signatureHeaderSize
	}

	buf := make([]byte, size-scanStart)
	if _, err := r.ra.ReadAt(buf, scanStart); err != nil && err != io.EOF {
		return nil, newErr(CodeTruncatedInput, err)
	}

	for pos := len(buf) - 1; pos >= 0; pos-- {
		switch nid(buf[pos]) {
		case idHeader:
			if h, ok := acceptHeaderCandidate(buf[pos:], size); ok {
				return h, nil
			}
		case idEncodedHeader:
			if h, ok := r.acceptEncodedHeaderCandidate(buf[pos:]); ok {
				return h, nil
			}
		}
	}

	return nil, newErr(CodeRecoverable)
}

func acceptHeaderCandidate(candidate []byte, size int64) (h *header, ok bool) {
	defer func() {
		if recover() != nil {
			h, ok = nil, false
		}
	}()

	counts, err := parsePass1(candidate, size)
	if err != nil {
		return nil, false
	}
	parsed, err := parsePass2(candidate, counts)
	if err != nil {
		return nil, false
	}
	if parsed.streamsInfo == nil || len(parsed.streamsInfo.packInfo.packSizes) == 0 || len(parsed.files) == 0 {
		return nil, false
	}
	return parsed, true
}

// acceptEncodedHeaderCandidate validates the candidate's StreamsInfo shape,
// then fully decodes it through the folder decoder-stack factory the same
// way a normally-pointed-to encoded header would be, so the result is a
// real Header with real files rather than the compressed header's own
// bookkeeping structure.
func (r *Reader) acceptEncodedHeaderCandidate(candidate []byte) (h *header, ok bool) {
	defer func() {
		if recover() != nil {
			h, ok = nil, false
		}
	}()

	var counts pass1Counts
	pr := bytes.NewReader(candidate[1:])
	if err := pass1StreamsInfo(pr, &counts, r.size, nil); err != nil {
		return nil, false
	}

	decoded, err := r.decodeEncodedHeader(candidate[1:])
	if err != nil {
		return nil, false
	}
	if len(decoded) == 0 || nid(decoded[0]) != idHeader {
		return nil, false
	}

	parsed, err := r.parseHeaderBytes(decoded)
	if err != nil {
		return nil, false
	}
	if parsed.streamsInfo == nil || len(parsed.streamsInfo.packInfo.packSizes) == 0 || len(parsed.files) == 0 {
		return nil, false
	}
	return parsed, true
}
