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

package lz77

// match is an internal candidate: Length bytes matched starting distance
// Offset bytes back. Length 0 means "no match found".
type match struct {
	Offset int
	Length int
}

// findMatchAt walks the hash chain for the triple at p, without inserting
// p itself, returning the longest candidate at most maxCandidates deep
// whose offset is within the configured window.
func (m *Matcher) findMatchAt(p int) match {
	lookahead := m.length - p
	if lookahead < hashBytes {
		return match{}
	}

	maxLen := m.cfg.maxBackRefLen
	if lookahead < maxLen {
		maxLen = lookahead
	}

	h := hash3(m.window[p], m.window[p+1], m.window[p+2])
	candidate := m.head[h]

	var best match
	minOffset := p - m.cfg.maxOffset

	for tries := 0; candidate != noMatch && int(candidate) >= minOffset && tries < m.cfg.maxCandidates; tries++ {
		c := int(candidate)
		if c < p {
			length := matchLength(m.window, c, p, maxLen)
			if length > best.Length && length >= m.cfg.minBackRefLen {
				best = match{Offset: p - c, Length: length}
				if length >= m.cfg.niceBackRefLen {
					break
				}
			}
		}
		candidate = m.prev[c%m.cfg.windowSize]
	}

	return best
}

func matchLength(window []byte, a, b, max int) int {
	n := 0
	for n < max && window[a+n] == window[b+n] {
		n++
	}
	return n
}

// queueMissedInserts records the positions [from, to) the current match
// skipped over; drainMissedInserts inserts each into the hash chains as
// soon as its triple is in the window, so positions whose triple is not
// yet available wait there until more data arrives.
func (m *Matcher) queueMissedInserts(from, to int) {
	for p := from; p < to; p++ {
		m.missedInsertQueue = append(m.missedInsertQueue, p)
	}
}

func (m *Matcher) drainMissedInserts() {
	for len(m.missedInsertQueue) > 0 {
		p := m.missedInsertQueue[0]
		if p+hashBytes > m.length {
			break
		}
		m.insertAt(p)
		m.missedInsertQueue = m.missedInsertQueue[1:]
	}
}

// Compress feeds data into the matcher, sliding the window as needed and
// calling emit for every Literal/BackReference block produced. Blocks
// referencing the window are only valid until the next Compress, Finish,
// or Prefill call.
func (m *Matcher) Compress(data []byte, emit func(Block)) {
	m.started = true

	for len(data) > 0 {
		room := len(m.window) - m.length
		if room == 0 {
			m.ensureRoom(len(data), func() { m.flushLiteral(emit) })
			room = len(m.window) - m.length
		}

		n := len(data)
		if n > room {
			n = room
		}
		copy(m.window[m.length:m.length+n], data[:n])
		m.length += n
		data = data[n:]

		m.drainMissedInserts()
		m.scan(emit)
	}
}

// scan advances currentPosition as far as the window's lookahead allows,
// searching for matches and emitting blocks.
func (m *Matcher) scan(emit func(Block)) {
	for m.currentPosition+hashBytes <= m.length {
		p := m.currentPosition

		cand := m.findMatchAt(p)
		m.insertAt(p)

		if m.cfg.lazyMatching && cand.Length > 0 && cand.Length <= m.cfg.lazyThreshold &&
			p+1+hashBytes <= m.length {
			next := m.findMatchAt(p + 1)
			if next.Length > cand.Length {
				// emit the literal byte at p, then use the longer match at p+1.
				m.currentPosition = p + 1
				m.insertAt(p + 1)
				m.emitMatch(p+1, next, emit)
				continue
			}
		}

		if cand.Length > 0 {
			m.emitMatch(p, cand, emit)
			continue
		}

		m.currentPosition++
		if m.currentPosition-m.blockStart >= m.cfg.maxLiteralLen {
			m.flushLiteral(emit)
		}
	}
}

func (m *Matcher) emitMatch(p int, mt match, emit func(Block)) {
	m.flushLiteral(emit)

	emit(BackReference{Offset: mt.Offset, Length: mt.Length})

	m.queueMissedInserts(p+1, p+mt.Length)
	m.drainMissedInserts()

	m.currentPosition = p + mt.Length
	m.blockStart = m.currentPosition
}

func (m *Matcher) flushLiteral(emit func(Block)) {
	if m.currentPosition <= m.blockStart {
		return
	}
	emit(Literal{Window: m.window, Off: m.blockStart, Len: m.currentPosition - m.blockStart})
	m.blockStart = m.currentPosition
}

// Finish flushes any pending literal run covering the remaining
// unprocessed tail of the window, then emits EndOfData.
func (m *Matcher) Finish(emit func(Block)) {
	m.currentPosition = m.length
	m.flushLiteral(emit)
	emit(EndOfData{})
}
