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

import (
	liberr "github.com/nabbar/go7z/internal/errors"
)

// Error codes for the hash-chain matcher.
const (
	CodePrefillAfterStart liberr.CodeError = liberr.MinPkgLZ77 + iota
	CodeInvalidParameters
)

func init() {
	liberr.RegisterIdFctMessage(CodePrefillAfterStart, lz77Message)
	liberr.RegisterIdFctMessage(CodeInvalidParameters, lz77Message)
}

func lz77Message(code liberr.CodeError) string {
	switch code {
	case CodePrefillAfterStart:
		return "lz77: prefill called after compression has started"
	case CodeInvalidParameters:
		return "lz77: matcher parameters are inconsistent"
	default:
		return ""
	}
}

func newErr(c liberr.CodeError, parents ...error) error {
	return c.Error(parents...)
}
