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

package frame

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// Frame errors
var (
	ErrFrameCorrupted   = errors.New("frame corrupted")
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrFrameTooLarge    = errors.New("frame too large")
)

// Encode builds a frame carrying tfi and payload:
//
//	00 00 FF LEN_H LEN_L LCS TFI PAYLOAD... DCS 00
//
// LEN counts TFI and payload.
func Encode(tfi byte, payload []byte) ([]byte, error) {
	length := 1 + len(payload)
	if length > MaxPayloadLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, length)
	}

	frm := make([]byte, 0, Overhead+length)
	frm = append(frm, Preamble, StartCode1, StartCode2,
		byte(length>>8), byte(length), CalculateLengthChecksum(uint16(length)), tfi)
	frm = append(frm, payload...)
	frm = append(frm, CalculateDataChecksum(tfi, payload), Postamble)
	return frm, nil
}

// Reader decodes frames from a byte stream. Bytes before a start code are
// skipped, which absorbs idle fill from polled links.
type Reader struct {
	r *bufio.Reader
}

// NewReader creates a frame reader on r
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// ReadFrame returns the TFI and payload of the next frame. Corrupted frames
// are reported with ErrFrameCorrupted or ErrChecksumMismatch; the reader can
// be used again afterwards.
func (fr *Reader) ReadFrame() (tfi byte, payload []byte, err error) {
	if err := fr.syncStart(); err != nil {
		return 0, nil, err
	}

	var hdr [3]byte
	if _, err := io.ReadFull(fr.r, hdr[:]); err != nil {
		return 0, nil, fmt.Errorf("reading frame length: %w", err)
	}
	if !ZeroSum(hdr[:]) {
		return 0, nil, fmt.Errorf("%w: length checksum", ErrChecksumMismatch)
	}

	length := int(hdr[0])<<8 | int(hdr[1])
	if length == 0 {
		return 0, nil, fmt.Errorf("%w: empty frame", ErrFrameCorrupted)
	}
	if length > MaxPayloadLength {
		return 0, nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, length)
	}

	body := make([]byte, length+2) // TFI + payload + DCS + postamble
	if _, err := io.ReadFull(fr.r, body); err != nil {
		return 0, nil, fmt.Errorf("reading frame body: %w", err)
	}
	if !ZeroSum(body[:length+1]) {
		return 0, nil, fmt.Errorf("%w: data checksum", ErrChecksumMismatch)
	}
	if body[length+1] != Postamble {
		return 0, nil, fmt.Errorf("%w: missing postamble", ErrFrameCorrupted)
	}

	return body[0], body[1:length], nil
}

// syncStart consumes bytes up to and including the 00 FF start code
func (fr *Reader) syncStart() error {
	prev := byte(0xFF)
	for {
		b, err := fr.r.ReadByte()
		if err != nil {
			return err
		}
		if prev == StartCode1 && b == StartCode2 {
			return nil
		}
		prev = b
	}
}
