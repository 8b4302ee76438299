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

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ZaparooProject/go-nfctag"
	"github.com/ZaparooProject/go-nfctag/session"
	"github.com/hsanjuan/go-ndef"
	"go.uber.org/zap"
)

// NDEF application and file identifiers
var (
	NDEFApplicationID = []byte{0xD2, 0x76, 0x00, 0x00, 0x85, 0x01, 0x01}
	CCFileID          = []byte{0xE1, 0x03}
	NDEFFileID        = []byte{0xE1, 0x04}
)

const (
	// MaxMessageSize is the largest NDEF message the NDEF file can hold
	MaxMessageSize = 0xFFFE - nlenSize
	// MaxReadLength is the largest READ BINARY response the tag announces.
	// It keeps a reply inside the driver's frame buffer.
	MaxReadLength = 0x003B
	maxCommandLen = 0x0034

	// maxChainedLength bounds a command reassembled from chained I-blocks
	maxChainedLength = nfctag.RecvBufferSize

	nlenSize      = 2
	ccLength      = 0x000F
	mappingV2     = 0x20
	readAccess    = 0x00
	noWriteAccess = 0xFF
)

// Errors returned by the constructors
var (
	ErrMessageTooLarge = errors.New("NDEF message too large for a Type 4 tag")
	ErrInvalidMessage  = errors.New("invalid NDEF message")
)

type selectedFile int

const (
	fileNone selectedFile = iota
	fileCC
	fileNDEF
)

// Tag is a Type 4 tag application serving a read-only NDEF file. It
// implements session.Handler.
//
// Thread Safety: a Tag keeps the protocol state of one reader session and
// must only be driven by the goroutine running the session.
type Tag struct {
	log       *zap.Logger
	message   *ndef.Message
	cc        []byte
	ndefFile  []byte
	ats       []byte
	lastReply []byte
	chained   []byte
	selected  selectedFile
	appActive bool
}

var _ session.Handler = (*Tag)(nil)

// New creates a tag serving the encoded NDEF message raw
func New(raw []byte, opts ...Option) (*Tag, error) {
	if len(raw) > MaxMessageSize {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrMessageTooLarge, len(raw), MaxMessageSize)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty message", ErrInvalidMessage)
	}
	msg := &ndef.Message{}
	if _, err := msg.Unmarshal(raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	if len(msg.Records) == 0 {
		return nil, fmt.Errorf("%w: no records", ErrInvalidMessage)
	}

	t := &Tag{
		log:     nfctag.Logger(),
		message: msg,
		ats:     DefaultATS(),
	}
	t.ndefFile = make([]byte, nlenSize+len(raw))
	binary.BigEndian.PutUint16(t.ndefFile, uint16(len(raw)))
	copy(t.ndefFile[nlenSize:], raw)
	t.cc = capabilityContainer(len(t.ndefFile))

	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// NewText creates a tag holding a single well-known text record
func NewText(text, lang string, opts ...Option) (*Tag, error) {
	return newFromMessage(ndef.NewTextMessage(text, lang), opts...)
}

// NewURI creates a tag holding a single well-known URI record
func NewURI(uri string, opts ...Option) (*Tag, error) {
	return newFromMessage(ndef.NewURIMessage(uri), opts...)
}

func newFromMessage(msg *ndef.Message, opts ...Option) (*Tag, error) {
	raw, err := msg.Marshal()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	return New(raw, opts...)
}

// DefaultATS returns the answer to RATS: 256-byte frames, frame waiting
// time integer 7, no NAD or CID support.
func DefaultATS() []byte {
	return []byte{0x05, 0x78, 0x80, 0x70, 0x00}
}

func capabilityContainer(fileSize int) []byte {
	cc := make([]byte, ccLength)
	binary.BigEndian.PutUint16(cc[0:], ccLength)
	cc[2] = mappingV2
	binary.BigEndian.PutUint16(cc[3:], MaxReadLength)
	binary.BigEndian.PutUint16(cc[5:], maxCommandLen)
	cc[7] = 0x04 // NDEF file control TLV
	cc[8] = 0x06
	copy(cc[9:], NDEFFileID)
	binary.BigEndian.PutUint16(cc[11:], uint16(fileSize))
	cc[13] = readAccess
	cc[14] = noWriteAccess
	return cc
}

// Message returns the NDEF message the tag serves
func (t *Tag) Message() *ndef.Message {
	return t.message
}

// NDEFFile returns the content of the NDEF file: the message length
// followed by the message
func (t *Tag) NDEFFile() []byte {
	return bytes.Clone(t.ndefFile)
}

// CapabilityContainer returns the content of the CC file
func (t *Tag) CapabilityContainer() []byte {
	return bytes.Clone(t.cc)
}

// OnSelected implements session.Handler. It resets the protocol state for
// a new reader.
func (t *Tag) OnSelected(_ context.Context) error {
	t.reset()
	return nil
}

func (t *Tag) reset() {
	t.selected = fileNone
	t.appActive = false
	t.lastReply = nil
	t.chained = nil
}

// HandleFrame implements session.Handler
func (t *Tag) HandleFrame(_ context.Context, frame []byte) ([]byte, error) {
	if len(frame) == 0 {
		return nil, nil
	}
	pcb := frame[0]

	switch {
	case pcb == ratsStart:
		t.log.Debug("RATS", zap.Binary("frame", frame))
		return t.remember(bytes.Clone(t.ats)), nil
	case pcb&ppsMask == ppsStart:
		return t.remember([]byte{pcb}), nil
	case isIBlock(pcb):
		return t.handleIBlock(frame)
	case isRBlock(pcb):
		return t.handleRBlock(pcb)
	case isSBlock(pcb):
		return t.handleSBlock(frame)
	default:
		t.log.Debug("ignoring unknown frame", zap.Binary("frame", frame))
		return nil, nil
	}
}

func (t *Tag) handleIBlock(frame []byte) ([]byte, error) {
	pcb := frame[0]
	hdr, payload, err := splitBlock(frame)
	if err != nil {
		t.log.Debug("malformed I-block", zap.Error(err))
		return nil, nil
	}

	if len(t.chained)+len(payload) > maxChainedLength {
		t.log.Debug("chained command too long", zap.Int("length", len(t.chained)+len(payload)))
		t.chained = nil
		return t.remember(t.iBlock(pcb, hdr, SWWrongLength.bytes())), nil
	}
	if pcb&pcbChaining != 0 {
		t.chained = append(t.chained, payload...)
		reply := append([]byte{rBlockAck(pcb)}, hdr[1:1+cidLength(pcb)]...)
		return t.remember(reply), nil
	}
	if t.chained != nil {
		payload = append(t.chained, payload...)
		t.chained = nil
	}

	return t.remember(t.iBlock(pcb, hdr, t.handleAPDU(payload))), nil
}

func (t *Tag) iBlock(pcb byte, hdr, resp []byte) []byte {
	reply := make([]byte, 0, len(hdr)+len(resp))
	reply = append(reply, iBlockReply(pcb))
	reply = append(reply, hdr[1:]...)
	return append(reply, resp...)
}

func (t *Tag) handleRBlock(pcb byte) ([]byte, error) {
	if t.lastReply == nil {
		return nil, nil
	}
	if pcb&pcbNak != 0 {
		t.log.Debug("R(NAK), resending last block")
	}
	return bytes.Clone(t.lastReply), nil
}

func (t *Tag) handleSBlock(frame []byte) ([]byte, error) {
	pcb := frame[0]
	if pcb&sBlockTypeMask == sBlockDeselect {
		t.log.Debug("S(DESELECT)")
		t.reset()
		n := min(len(frame), 1+cidLength(pcb))
		return bytes.Clone(frame[:n]), session.ErrDeselected
	}
	// S(WTX) responses from the reader need no answer
	return nil, nil
}

func (t *Tag) remember(reply []byte) []byte {
	t.lastReply = reply
	return reply
}

func (t *Tag) handleAPDU(raw []byte) []byte {
	cmd, err := parseAPDU(raw)
	if err != nil {
		t.log.Debug("malformed APDU", zap.Error(err))
		return SWWrongLength.bytes()
	}
	if cmd.cla != 0x00 {
		return SWClassNotSupported.bytes()
	}

	switch cmd.ins {
	case insSelect:
		return t.selectCommand(cmd).bytes()
	case insReadBinary:
		return t.readBinary(cmd)
	default:
		t.log.Debug("unsupported instruction", zap.Uint8("ins", cmd.ins))
		return SWInsNotSupported.bytes()
	}
}

func (t *Tag) selectCommand(cmd apdu) StatusWord {
	switch cmd.p1 {
	case 0x04: // by name
		if !bytes.Equal(cmd.data, NDEFApplicationID) {
			t.appActive = false
			t.selected = fileNone
			return SWFileNotFound
		}
		t.appActive = true
		t.selected = fileNone
		return SWSuccess
	case 0x00: // by file identifier
		if !t.appActive {
			return SWFileNotFound
		}
		switch {
		case bytes.Equal(cmd.data, CCFileID):
			t.selected = fileCC
		case bytes.Equal(cmd.data, NDEFFileID):
			t.selected = fileNDEF
		default:
			return SWFileNotFound
		}
		return SWSuccess
	default:
		return SWWrongParameters
	}
}

func (t *Tag) readBinary(cmd apdu) []byte {
	var file []byte
	switch t.selected {
	case fileCC:
		file = t.cc
	case fileNDEF:
		file = t.ndefFile
	default:
		return SWNoFileSelected.bytes()
	}

	offset := int(cmd.p1)<<8 | int(cmd.p2)
	if offset > len(file) {
		return SWWrongOffset.bytes()
	}
	length := cmd.le
	if length == 0 || length > MaxReadLength {
		length = MaxReadLength
	}
	end := min(offset+length, len(file))

	resp := make([]byte, 0, end-offset+2)
	resp = append(resp, file[offset:end]...)
	return append(resp, SWSuccess.bytes()...)
}
