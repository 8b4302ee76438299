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
	"encoding/binary"
	"fmt"
)

// Opcode identifies a bridge message
type Opcode byte

// Bridge opcodes. Requests flow host to device and are each answered by one
// OpResult; OpUpcall and OpBufferSync are sent by the device at any time.
const (
	OpCommand     Opcode = 0x01
	OpSubscribe   Opcode = 0x02
	OpUnsubscribe Opcode = 0x03
	OpAllow       Opcode = 0x04
	OpUnallow     Opcode = 0x05
	OpResult      Opcode = 0x81
	OpUpcall      Opcode = 0x90
	OpBufferSync  Opcode = 0x91
)

func (o Opcode) String() string {
	switch o {
	case OpCommand:
		return "command"
	case OpSubscribe:
		return "subscribe"
	case OpUnsubscribe:
		return "unsubscribe"
	case OpAllow:
		return "allow"
	case OpUnallow:
		return "unallow"
	case OpResult:
		return "result"
	case OpUpcall:
		return "upcall"
	case OpBufferSync:
		return "buffer-sync"
	default:
		return fmt.Sprintf("opcode(%#02x)", byte(o))
	}
}

// Message is one decoded bridge message. Fields unused by an opcode are zero.
type Message struct {
	Data   []byte    // OpAllow, OpBufferSync
	Driver uint32    // all but OpResult
	Num    uint32    // all but OpResult
	Args   [3]uint32 // OpCommand uses Args[0:2], OpUpcall Args[0:3]
	Code   int32     // OpResult
	Op     Opcode
}

// header is opcode + driver + num
const header = 1 + 4 + 4

// MarshalBinary encodes m as a frame payload
func (m *Message) MarshalBinary() ([]byte, error) {
	var buf []byte
	switch m.Op {
	case OpResult:
		buf = make([]byte, 5)
		buf[0] = byte(m.Op)
		binary.LittleEndian.PutUint32(buf[1:], uint32(m.Code))
		return buf, nil
	case OpCommand:
		buf = make([]byte, header+8)
		binary.LittleEndian.PutUint32(buf[header:], m.Args[0])
		binary.LittleEndian.PutUint32(buf[header+4:], m.Args[1])
	case OpUpcall:
		buf = make([]byte, header+12)
		binary.LittleEndian.PutUint32(buf[header:], m.Args[0])
		binary.LittleEndian.PutUint32(buf[header+4:], m.Args[1])
		binary.LittleEndian.PutUint32(buf[header+8:], m.Args[2])
	case OpAllow, OpBufferSync:
		buf = make([]byte, header+len(m.Data))
		copy(buf[header:], m.Data)
	case OpSubscribe, OpUnsubscribe, OpUnallow:
		buf = make([]byte, header)
	default:
		return nil, fmt.Errorf("%w: cannot encode %s", ErrFrameCorrupted, m.Op)
	}

	buf[0] = byte(m.Op)
	binary.LittleEndian.PutUint32(buf[1:], m.Driver)
	binary.LittleEndian.PutUint32(buf[5:], m.Num)
	return buf, nil
}

// UnmarshalBinary decodes a frame payload into m
func (m *Message) UnmarshalBinary(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty message", ErrFrameCorrupted)
	}
	*m = Message{Op: Opcode(data[0])}

	if m.Op == OpResult {
		if len(data) != 5 {
			return fmt.Errorf("%w: result of %d bytes", ErrFrameCorrupted, len(data))
		}
		m.Code = int32(binary.LittleEndian.Uint32(data[1:]))
		return nil
	}

	if len(data) < header {
		return fmt.Errorf("%w: %s of %d bytes", ErrFrameCorrupted, m.Op, len(data))
	}
	m.Driver = binary.LittleEndian.Uint32(data[1:])
	m.Num = binary.LittleEndian.Uint32(data[5:])
	body := data[header:]

	switch m.Op {
	case OpCommand:
		if len(body) != 8 {
			return fmt.Errorf("%w: command body of %d bytes", ErrFrameCorrupted, len(body))
		}
		m.Args[0] = binary.LittleEndian.Uint32(body)
		m.Args[1] = binary.LittleEndian.Uint32(body[4:])
	case OpUpcall:
		if len(body) != 12 {
			return fmt.Errorf("%w: upcall body of %d bytes", ErrFrameCorrupted, len(body))
		}
		m.Args[0] = binary.LittleEndian.Uint32(body)
		m.Args[1] = binary.LittleEndian.Uint32(body[4:])
		m.Args[2] = binary.LittleEndian.Uint32(body[8:])
	case OpAllow, OpBufferSync:
		m.Data = append([]byte(nil), body...)
	case OpSubscribe, OpUnsubscribe, OpUnallow:
		if len(body) != 0 {
			return fmt.Errorf("%w: trailing bytes after %s", ErrFrameCorrupted, m.Op)
		}
	default:
		return fmt.Errorf("%w: unknown %s", ErrFrameCorrupted, m.Op)
	}
	return nil
}
