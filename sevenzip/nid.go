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

// nid is a single-byte tag identifying a header block type, grounded on
// the NID table in the external-interfaces section of the format
// description and cross-checked against bodgit/sevenzip's constant set.
type nid byte

const (
	idEnd                nid = 0x00
	idHeader             nid = 0x01
	idArchiveProperties  nid = 0x02
	idAdditionalStreams  nid = 0x03
	idMainStreamsInfo    nid = 0x04
	idFilesInfo          nid = 0x05
	idPackInfo           nid = 0x06
	idUnpackInfo         nid = 0x07
	idSubStreamsInfo     nid = 0x08
	idSize               nid = 0x09
	idCRC                nid = 0x0A
	idFolder             nid = 0x0B
	idCodersUnpackSize   nid = 0x0C
	idNumUnpackStream    nid = 0x0D
	idEmptyStream        nid = 0x0E
	idEmptyFile          nid = 0x0F
	idAnti               nid = 0x10
	idName               nid = 0x11
	idCTime              nid = 0x12
	idATime              nid = 0x13
	idMTime              nid = 0x14
	idWinAttributes      nid = 0x15
	idComment            nid = 0x16
	idEncodedHeader      nid = 0x17
	idStartPos           nid = 0x18
	idDummy              nid = 0x19
)

func (n nid) String() string {
	switch n {
	case idEnd:
		return "kEnd"
	case idHeader:
		return "kHeader"
	case idArchiveProperties:
		return "kArchiveProperties"
	case idAdditionalStreams:
		return "kAdditionalStreamsInfo"
	case idMainStreamsInfo:
		return "kMainStreamsInfo"
	case idFilesInfo:
		return "kFilesInfo"
	case idPackInfo:
		return "kPackInfo"
	case idUnpackInfo:
		return "kUnpackInfo"
	case idSubStreamsInfo:
		return "kSubStreamsInfo"
	case idSize:
		return "kSize"
	case idCRC:
		return "kCRC"
	case idFolder:
		return "kFolder"
	case idCodersUnpackSize:
		return "kCodersUnpackSize"
	case idNumUnpackStream:
		return "kNumUnpackStream"
	case idEmptyStream:
		return "kEmptyStream"
	case idEmptyFile:
		return "kEmptyFile"
	case idAnti:
		return "kAnti"
	case idName:
		return "kName"
	case idCTime:
		return "kCTime"
	case idATime:
		return "kATime"
	case idMTime:
		return "kMTime"
	case idWinAttributes:
		return "kWinAttributes"
	case idComment:
		return "kComment"
	case idEncodedHeader:
		return "kEncodedHeader"
	case idStartPos:
		return "kStartPos"
	case idDummy:
		return "kDummy"
	default:
		return "kUnknown"
	}
}
