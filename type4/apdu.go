// go-nfctag
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-nfctag.
//
// go-nfctag is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-nfctag is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-nfctag; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package type4

import "fmt"

// Instruction bytes
const (
	insSelect     = 0xA4
	insReadBinary = 0xB0
)

// StatusWord is the trailer of a response APDU
type StatusWord uint16

// Status words sent by the tag
const (
	SWSuccess           StatusWord = 0x9000
	SWWrongLength       StatusWord = 0x6700
	SWNoFileSelected    StatusWord = 0x6986
	SWFileNotFound      StatusWord = 0x6A82
	SWWrongOffset       StatusWord = 0x6B00
	SWInsNotSupported   StatusWord = 0x6D00
	SWClassNotSupported StatusWord = 0x6E00
	SWWrongParameters   StatusWord = 0x6A86
)

func (sw StatusWord) String() string {
	return fmt.Sprintf("%04X", uint16(sw))
}

func (sw StatusWord) bytes() []byte {
	return []byte{byte(sw >> 8), byte(sw)}
}

// apdu is a parsed command APDU. Only short APDUs are supported.
type apdu struct {
	data []byte
	le   int
	cla  byte
	ins  byte
	p1   byte
	p2   byte
}

func parseAPDU(raw []byte) (apdu, error) {
	if len(raw) < 4 {
		return apdu{}, fmt.Errorf("apdu of %d bytes is shorter than its header", len(raw))
	}
	cmd := apdu{cla: raw[0], ins: raw[1], p1: raw[2], p2: raw[3]}
	body := raw[4:]

	switch {
	case len(body) == 0:
		// case 1
	case len(body) == 1:
		cmd.le = leValue(body[0])
	default:
		lc := int(body[0])
		if lc == 0 || len(body) < 1+lc {
			return apdu{}, fmt.Errorf("apdu Lc %d does not match %d body bytes", lc, len(body)-1)
		}
		cmd.data = body[1 : 1+lc]
		switch rest := body[1+lc:]; len(rest) {
		case 0:
		case 1:
			cmd.le = leValue(rest[0])
		default:
			return apdu{}, fmt.Errorf("apdu has %d trailing bytes", len(rest))
		}
	}
	return cmd, nil
}

// leValue decodes a short Le byte, where zero means 256
func leValue(b byte) int {
	if b == 0 {
		return 256
	}
	return int(b)
}
