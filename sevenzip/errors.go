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
	liberr "github.com/nabbar/go7z/internal/errors"
)

// Error codes for the 7z reader, registered once below so callers can
// branch with err.(liberr.Error).IsCode(sevenzip.CodeBadMagic) instead of
// comparing against a bare sentinel.
const (
	CodeBadMagic liberr.CodeError = liberr.MinPkgSevenzip + iota
	CodeUnsupportedVersion
	CodeTruncatedInput
	CodeNextHeaderOutOfBounds
	CodeHeaderCrcMismatch
	CodePackDataCrcMismatch
	CodeEntryCrcMismatch
	CodeMalformedHeader
	CodeUnsupportedCoder
	CodePasswordRequired
	CodeMemoryLimit
	CodeRecoverable
)

func init() {
	liberr.RegisterIdFctMessage(CodeBadMagic, sevenzipMessage)
	liberr.RegisterIdFctMessage(CodeUnsupportedVersion, sevenzipMessage)
	liberr.RegisterIdFctMessage(CodeTruncatedInput, sevenzipMessage)
	liberr.RegisterIdFctMessage(CodeNextHeaderOutOfBounds, sevenzipMessage)
	liberr.RegisterIdFctMessage(CodeHeaderCrcMismatch, sevenzipMessage)
	liberr.RegisterIdFctMessage(CodePackDataCrcMismatch, sevenzipMessage)
	liberr.RegisterIdFctMessage(CodeEntryCrcMismatch, sevenzipMessage)
	liberr.RegisterIdFctMessage(CodeMalformedHeader, sevenzipMessage)
	liberr.RegisterIdFctMessage(CodeUnsupportedCoder, sevenzipMessage)
	liberr.RegisterIdFctMessage(CodePasswordRequired, sevenzipMessage)
	liberr.RegisterIdFctMessage(CodeMemoryLimit, sevenzipMessage)
	liberr.RegisterIdFctMessage(CodeRecoverable, sevenzipMessage)
}

func sevenzipMessage(code liberr.CodeError) string {
	switch code {
	case CodeBadMagic:
		return "7z: signature does not match the 7z magic bytes"
	case CodeUnsupportedVersion:
		return "7z: unsupported archive format major version"
	case CodeTruncatedInput:
		return "7z: unexpected end of input"
	case CodeNextHeaderOutOfBounds:
		return "7z: next-header offset/size falls outside the archive"
	case CodeHeaderCrcMismatch:
		return "7z: header CRC-32 does not match"
	case CodePackDataCrcMismatch:
		return "7z: pack stream CRC-32 does not match"
	case CodeEntryCrcMismatch:
		return "7z: entry CRC-32 does not match"
	case CodeMalformedHeader:
		return "7z: malformed metadata header"
	case CodeUnsupportedCoder:
		return "7z: unsupported or multi-stream coder"
	case CodePasswordRequired:
		return "7z: coder requires a password"
	case CodeMemoryLimit:
		return "7z: pass-1 memory estimate exceeds the configured limit"
	case CodeRecoverable:
		return "7z: start-header is zeroed; retry with recovery enabled"
	default:
		return ""
	}
}

// newErr wraps CodeError c into this package's Error flavour, chaining parents.
func newErr(c liberr.CodeError, parents ...error) error {
	return c.Error(parents...)
}
