/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package compress sniffs and dispatches the byte-stream compression
// algorithms this module recognises by magic number. It is the thin
// factory the sevenzip package's reader is discovered behind: Detect
// peeks enough bytes to tell a gzip/bzip2/lz4/xz stream from a 7z
// container, and for the former group hands back a ready-to-read
// io.ReadCloser; for the latter it reports SevenZip and leaves opening
// the archive to the caller, since a container needs an io.ReaderAt and
// a known size rather than a plain io.Reader.
package compress

import "errors"

// ErrUnsupportedAlgorithm is returned when Reader or Writer is called on
// an Algorithm that has no stream-codec implementation in this package
// (None aside, that is only SevenZip: see the sevenzip package instead).
var ErrUnsupportedAlgorithm = errors.New("compress: unsupported algorithm")
