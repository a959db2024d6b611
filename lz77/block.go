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

// Block is one record the matcher emits: Literal, BackReference, or
// EndOfData.
type Block interface {
	isBlock()
}

// Literal is a borrowed view into the matcher's window. It is only valid
// until the next call to Compress, Finish, or Prefill - callers that need
// to retain the bytes must copy them before returning from the emit
// callback.
type Literal struct {
	Window []byte
	Off    int
	Len    int
}

func (Literal) isBlock() {}

// Bytes returns the literal run's bytes. Valid only until the matcher's
// next call.
func (l Literal) Bytes() []byte {
	return l.Window[l.Off : l.Off+l.Len]
}

// BackReference is a (offset, length) copy instruction: copy Length bytes
// from Offset bytes before the current output position.
type BackReference struct {
	Offset int
	Length int
}

func (BackReference) isBlock() {}

// EndOfData marks the end of the emitted block stream.
type EndOfData struct{}

func (EndOfData) isBlock() {}
