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
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ZaparooProject/go-nfctag"
	testutil "github.com/ZaparooProject/go-nfctag/internal/testing"
	"github.com/ZaparooProject/go-nfctag/session"
	"github.com/hsanjuan/go-ndef"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	selectApp  = []byte{0x00, 0xA4, 0x04, 0x00, 0x07, 0xD2, 0x76, 0x00, 0x00, 0x85, 0x01, 0x01, 0x00}
	selectCC   = []byte{0x00, 0xA4, 0x00, 0x0C, 0x02, 0xE1, 0x03}
	selectNDEF = []byte{0x00, 0xA4, 0x00, 0x0C, 0x02, 0xE1, 0x04}
	ok         = []byte{0x90, 0x00}
)

func iblock(pcb byte, apdu []byte) []byte {
	return append([]byte{pcb}, apdu...)
}

func readBinary(offset uint16, le byte) []byte {
	return []byte{0x00, 0xB0, byte(offset >> 8), byte(offset), le}
}

func exchange(t *testing.T, tag *Tag, frame []byte) []byte {
	t.Helper()
	reply, err := tag.HandleFrame(context.Background(), frame)
	require.NoError(t, err)
	return reply
}

func newTextTag(t *testing.T, text string) *Tag {
	t.Helper()
	tag, err := NewText(text, "en")
	require.NoError(t, err)
	require.NoError(t, tag.OnSelected(context.Background()))
	return tag
}

func TestTag_ReaderWalkthrough(t *testing.T) {
	t.Parallel()

	tag := newTextTag(t, "hello")
	msg, err := ndef.NewTextMessage("hello", "en").Marshal()
	require.NoError(t, err)

	assert.Equal(t, DefaultATS(), exchange(t, tag, []byte{0xE0, 0x80}))
	assert.Equal(t, []byte{0x02, 0x90, 0x00}, exchange(t, tag, iblock(0x02, selectApp)))
	assert.Equal(t, []byte{0x03, 0x90, 0x00}, exchange(t, tag, iblock(0x03, selectCC)))

	cc := exchange(t, tag, iblock(0x02, readBinary(0, 0x0F)))
	require.Len(t, cc, 1+15+2)
	assert.Equal(t, byte(0x02), cc[0])
	assert.Equal(t, tag.CapabilityContainer(), cc[1:16])
	assert.Equal(t, ok, cc[16:])

	assert.Equal(t, []byte{0x03, 0x90, 0x00}, exchange(t, tag, iblock(0x03, selectNDEF)))

	nlen := exchange(t, tag, iblock(0x02, readBinary(0, 2)))
	assert.Equal(t, []byte{0x02, 0x00, byte(len(msg)), 0x90, 0x00}, nlen)

	body := exchange(t, tag, iblock(0x03, readBinary(2, byte(len(msg)))))
	assert.Equal(t, append(append([]byte{0x03}, msg...), ok...), body)

	reply, err := tag.HandleFrame(context.Background(), []byte{0xC2})
	require.ErrorIs(t, err, session.ErrDeselected)
	assert.Equal(t, []byte{0xC2}, reply)
}

func TestTag_CapabilityContainer(t *testing.T) {
	t.Parallel()

	tag, err := New([]byte{0xD1, 0x01, 0x02, 0x55, 0x00, 0x41})
	require.NoError(t, err)

	assert.Equal(t, []byte{
		0x00, 0x0F,             // CCLEN
		0x20,                   // mapping version 2.0
		0x00, 0x3B,             // MLe
		0x00, 0x34,             // MLc
		0x04, 0x06, 0xE1, 0x04, // NDEF file control TLV
		0x00, 0x08,             // NDEF file size
		0x00, 0xFF,             // read granted, write denied
	}, tag.CapabilityContainer())
	assert.Equal(t, []byte{0x00, 0x06, 0xD1, 0x01, 0x02, 0x55, 0x00, 0x41}, tag.NDEFFile())
}

func TestTag_StatusWords(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		setup [][]byte
		apdu  []byte
		want  []byte
	}{
		{
			name: "unknown instruction",
			apdu: []byte{0x00, 0xD6, 0x00, 0x00, 0x01, 0xAA},
			want: []byte{0x6D, 0x00},
		},
		{
			name: "unknown application",
			apdu: []byte{0x00, 0xA4, 0x04, 0x00, 0x02, 0xA0, 0x00, 0x00},
			want: []byte{0x6A, 0x82},
		},
		{
			name: "file selected before application",
			apdu: selectCC,
			want: []byte{0x6A, 0x82},
		},
		{
			name:  "unknown file",
			setup: [][]byte{selectApp},
			apdu:  []byte{0x00, 0xA4, 0x00, 0x0C, 0x02, 0xE1, 0x05},
			want:  []byte{0x6A, 0x82},
		},
		{
			name:  "read without selected file",
			setup: [][]byte{selectApp},
			apdu:  readBinary(0, 2),
			want:  []byte{0x69, 0x86},
		},
		{
			name:  "read past end of file",
			setup: [][]byte{selectApp, selectCC},
			apdu:  readBinary(0x10, 1),
			want:  []byte{0x6B, 0x00},
		},
		{
			name: "class not supported",
			apdu: []byte{0x90, 0xA4, 0x04, 0x00},
			want: []byte{0x6E, 0x00},
		},
		{
			name: "truncated apdu",
			apdu: []byte{0x00, 0xA4},
			want: []byte{0x67, 0x00},
		},
		{
			name: "select with bad P1",
			apdu: []byte{0x00, 0xA4, 0x02, 0x00, 0x02, 0xE1, 0x03},
			want: []byte{0x6A, 0x86},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tag := newTextTag(t, "status")
			for _, apdu := range tt.setup {
				require.Equal(t, ok, exchange(t, tag, iblock(0x02, apdu))[1:])
			}
			reply := exchange(t, tag, iblock(0x02, tt.apdu))
			assert.Equal(t, tt.want, reply[1:])
		})
	}
}

func TestTag_ReadIsCappedToMaxReadLength(t *testing.T) {
	t.Parallel()

	tag := newTextTag(t, strings.Repeat("x", 200))
	exchange(t, tag, iblock(0x02, selectApp))
	exchange(t, tag, iblock(0x03, selectNDEF))

	reply := exchange(t, tag, iblock(0x02, readBinary(0, 0x00)))
	require.Len(t, reply, 1+MaxReadLength+2)
	assert.Equal(t, tag.NDEFFile()[:MaxReadLength], reply[1:1+MaxReadLength])
	assert.Equal(t, ok, reply[1+MaxReadLength:])
}

func TestTag_ReadShortAtEndOfFile(t *testing.T) {
	t.Parallel()

	tag := newTextTag(t, "end")
	exchange(t, tag, iblock(0x02, selectApp))
	exchange(t, tag, iblock(0x03, selectCC))

	reply := exchange(t, tag, iblock(0x02, readBinary(0x0D, 0x10)))
	assert.Equal(t, []byte{0x02, 0x00, 0xFF, 0x90, 0x00}, reply)
}

func TestTag_NakResendsLastBlock(t *testing.T) {
	t.Parallel()

	tag := newTextTag(t, "nak")
	assert.Nil(t, exchange(t, tag, []byte{0xB2}), "nothing to resend yet")

	first := exchange(t, tag, iblock(0x02, selectApp))
	assert.Equal(t, first, exchange(t, tag, []byte{0xB2}))
	assert.Equal(t, first, exchange(t, tag, []byte{0xB3}))
}

func TestTag_ChainedCommand(t *testing.T) {
	t.Parallel()

	tag := newTextTag(t, "chain")

	ack := exchange(t, tag, iblock(0x12, selectApp[:4]))
	assert.Equal(t, []byte{0xA2}, ack)

	reply := exchange(t, tag, iblock(0x03, selectApp[4:]))
	assert.Equal(t, []byte{0x03, 0x90, 0x00}, reply)
}

func TestTag_ChainedCommandTooLong(t *testing.T) {
	t.Parallel()

	tag := newTextTag(t, "chain")
	chunk := make([]byte, 100)

	assert.Equal(t, []byte{0xA2}, exchange(t, tag, iblock(0x12, chunk)))
	assert.Equal(t, []byte{0xA3}, exchange(t, tag, iblock(0x13, chunk)))
	assert.Equal(t, []byte{0x02, 0x67, 0x00}, exchange(t, tag, iblock(0x12, chunk)))

	// The oversized chain is discarded, later commands start afresh
	assert.Equal(t, []byte{0x03, 0x90, 0x00}, exchange(t, tag, iblock(0x03, selectApp)))
}

func TestTag_CIDIsEchoed(t *testing.T) {
	t.Parallel()

	tag := newTextTag(t, "cid")
	reply := exchange(t, tag, append([]byte{0x0A, 0x01}, selectApp...))
	assert.Equal(t, []byte{0x0A, 0x01, 0x90, 0x00}, reply)
}

func TestTag_PPSAnswered(t *testing.T) {
	t.Parallel()

	tag := newTextTag(t, "pps")
	assert.Equal(t, []byte{0xD0}, exchange(t, tag, []byte{0xD0, 0x11, 0x00}))
}

func TestTag_DeselectResetsState(t *testing.T) {
	t.Parallel()

	tag := newTextTag(t, "reset")
	exchange(t, tag, iblock(0x02, selectApp))
	exchange(t, tag, iblock(0x03, selectNDEF))

	_, err := tag.HandleFrame(context.Background(), []byte{0xC2})
	require.ErrorIs(t, err, session.ErrDeselected)

	reply := exchange(t, tag, iblock(0x02, readBinary(0, 2)))
	assert.Equal(t, []byte{0x02, 0x69, 0x86}, reply)
}

func TestTag_WithATS(t *testing.T) {
	t.Parallel()

	tag, err := NewURI("https://zaparoo.org", WithATS([]byte{0x02, 0x00}))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02, 0x00}, exchange(t, tag, []byte{0xE0, 0x50}))
	assert.Len(t, tag.Message().Records, 1)
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	_, err := New(nil)
	require.ErrorIs(t, err, ErrInvalidMessage)

	_, err = New(make([]byte, MaxMessageSize+1))
	require.ErrorIs(t, err, ErrMessageTooLarge)
}

func TestTag_ServedBySession(t *testing.T) {
	t.Parallel()

	tag, err := NewText("session", "en")
	require.NoError(t, err)

	sim := nfctag.NewSimKernel()
	reader := testutil.NewVirtualReader(sim,
		[]byte{0xE0, 0x80},
		iblock(0x02, selectApp),
		iblock(0x03, selectNDEF),
		iblock(0x02, readBinary(0, 2)),
	)
	binding, err := nfctag.New(sim)
	require.NoError(t, err)
	s, err := session.New(binding, tag, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Start(ctx))

	select {
	case <-reader.FieldGone():
	case <-time.After(2 * time.Second):
		t.Fatal("reader never drained its frames")
	}
	require.NoError(t, s.Stop())

	nlen := tag.NDEFFile()[:2]
	assert.Equal(t, [][]byte{
		DefaultATS(),
		{0x02, 0x90, 0x00},
		{0x03, 0x90, 0x00},
		{0x02, nlen[0], nlen[1], 0x90, 0x00},
	}, reader.Replies())
	assert.Equal(t, nfctag.TagType4, reader.Configured())
}
