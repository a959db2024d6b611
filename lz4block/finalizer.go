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

package lz4block

import (
	"bytes"
	"encoding/binary"

	"github.com/pierrec/lz4/v4"
)

// minTrailingBytes is the LZ4 block format's end-of-block budget: the
// final sequence carries no match, and nothing in the last 12 bytes of
// the block may belong to a match that started before them.
const minTrailingBytes = 12

// minFinalLiteral is the shortest the very last literal run may be.
const minFinalLiteral = 5

// minBackRefAfterSplit is the shortest back-reference worth keeping once
// part of it has been donated to the trailing literal; shorter than this
// and it is simpler to expand the whole thing.
const minBackRefAfterSplit = 4

// Finalizer post-processes a compressor's emitted Pair stream so it
// satisfies the LZ4 block format's end-of-block constraints.
type Finalizer struct {
	windowSize int
}

// NewFinalizer returns a Finalizer that retains up to windowSize bytes of
// history when expanding back-references.
func NewFinalizer(windowSize int) *Finalizer {
	return &Finalizer{windowSize: windowSize}
}

// Finalize rewrites the tail of pairs so the final pair is literal-only
// and no match starts within the last minTrailingBytes bytes of the block:
// those bytes are all literals, though they may be split between the final
// pair and a literal-only pair just before it. pairs is not mutated.
func (f *Finalizer) Finalize(pairs []Pair) []Pair {
	if len(pairs) == 0 {
		return pairs
	}

	win := newExpandedWindow(f.windowSize)

	total := 0
	for _, p := range pairs {
		total += p.DecodedLen()
	}
	if total < minTrailingBytes {
		// Too short for a conforming block's own trailing rules to bite;
		// the safest conforming output is all-literal.
		return []Pair{{Literal: flattenAll(win, pairs)}}
	}

	idx := len(pairs)
	collected := 0
	for idx > 0 && collected < minTrailingBytes {
		idx--
		collected += pairs[idx].DecodedLen()
	}

	kept := pairs[:idx]
	tail := pairs[idx:]

	for _, p := range kept {
		materialise(win, p)
	}

	first := tail[0]
	rest := tail[1:]

	collectedRest := 0
	for _, p := range rest {
		collectedRest += p.DecodedLen()
	}

	// Materialise first's literal run (its back-reference, if any, is
	// handled below since it may need splitting).
	win.Append(first.Literal)

	var newFirst Pair
	var donated []byte

	stillNeeded := minTrailingBytes - collectedRest

	switch {
	case !first.HasBackRef:
		newFirst = Pair{Literal: first.Literal}

	case stillNeeded <= 0:
		newFirst = Pair{Literal: first.Literal, HasBackRef: true, Offset: first.Offset, Length: first.Length}
		win.Expand(first.Offset, first.Length)

	case first.Length-stillNeeded >= minBackRefAfterSplit:
		full := win.Expand(first.Offset, first.Length)
		keepLen := first.Length - stillNeeded
		newFirst = Pair{Literal: first.Literal, HasBackRef: true, Offset: first.Offset, Length: keepLen}
		donated = append([]byte(nil), full[keepLen:]...)

	default:
		full := win.Expand(first.Offset, first.Length)
		newFirst = Pair{Literal: first.Literal}
		donated = full
	}

	replacement := append([]byte(nil), donated...)
	for _, p := range rest {
		replacement = append(replacement, literalOf(win, p)...)
	}

	out := make([]Pair, 0, len(kept)+2)
	out = append(out, kept...)
	out = append(out, newFirst)
	out = append(out, Pair{Literal: replacement})

	return out
}

// materialise appends p's full decoded bytes (expanding any back-reference)
// into win, without altering p.
func materialise(win *expandedWindow, p Pair) {
	win.Append(p.Literal)
	if p.HasBackRef {
		win.Expand(p.Offset, p.Length)
	}
}

// literalOf returns p's decoded bytes as a flat literal run, expanding any
// back-reference against win and recording the result.
func literalOf(win *expandedWindow, p Pair) []byte {
	out := append([]byte(nil), p.Literal...)
	win.Append(p.Literal)
	if p.HasBackRef {
		out = append(out, win.Expand(p.Offset, p.Length)...)
	}
	return out
}

func flattenAll(win *expandedWindow, pairs []Pair) []byte {
	var out []byte
	for _, p := range pairs {
		out = append(out, literalOf(win, p)...)
	}
	return out
}

// encodeBlock renders pairs as a real LZ4 block, the format described in
// the external-interfaces section: token nibbles, 0xFF-continuation
// lengths, little-endian 2-byte offsets. Every sequence but the last ends
// in a match, so the bytes of a literal-only pair that is not the last
// pair are carried into the next pair's literal run.
func encodeBlock(pairs []Pair) []byte {
	var buf bytes.Buffer
	var pending []byte

	for i, p := range pairs {
		if !p.HasBackRef && i < len(pairs)-1 {
			pending = append(pending, p.Literal...)
			continue
		}
		lit := append(pending, p.Literal...)
		pending = nil

		litLen := len(lit)
		brLen := 0
		if p.HasBackRef {
			brLen = p.Length - 4
		}

		litNibble := litLen
		if litNibble > 15 {
			litNibble = 15
		}
		brNibble := 0
		if p.HasBackRef {
			brNibble = brLen
			if brNibble > 15 {
				brNibble = 15
			}
		}

		buf.WriteByte(byte(litNibble<<4) | byte(brNibble))
		writeExtendedLength(&buf, litLen, litNibble)
		buf.Write(lit)

		if !p.HasBackRef {
			continue
		}

		var off [2]byte
		binary.LittleEndian.PutUint16(off[:], uint16(p.Offset))
		buf.Write(off[:])
		writeExtendedLength(&buf, brLen, brNibble)
	}

	return buf.Bytes()
}

func writeExtendedLength(buf *bytes.Buffer, total, nibble int) {
	if nibble < 15 {
		return
	}
	remaining := total - 15
	for remaining >= 255 {
		buf.WriteByte(0xFF)
		remaining -= 255
	}
	buf.WriteByte(byte(remaining))
}

// Verify round-trips the finalised pair stream through the real LZ4 block
// decoder and checks the result against original, a self-check grounded
// on the round-trip testable property every supported codec must satisfy.
func (f *Finalizer) Verify(original []byte, pairs []Pair) error {
	encoded := encodeBlock(pairs)

	dst := make([]byte, len(original))
	n, err := lz4.UncompressBlock(encoded, dst)
	if err != nil {
		return newErr(CodeVerifyMismatch, err)
	}
	if n != len(original) || !bytes.Equal(dst[:n], original) {
		return newErr(CodeVerifyMismatch)
	}
	return nil
}
