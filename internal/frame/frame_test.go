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
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	t.Parallel()

	frm, err := Encode(HostToDevice, []byte{0x02})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x00, 0xFF, 0x00, 0x02, 0xFE, 0xD4, 0x02, 0x2A, 0x00}, frm)
}

func TestEncode_TooLarge(t *testing.T) {
	t.Parallel()

	_, err := Encode(HostToDevice, make([]byte, MaxPayloadLength))
	require.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestReader_ReadFrame(t *testing.T) {
	t.Parallel()

	payload := bytes.Repeat([]byte{0xA5}, 300)
	frm, err := Encode(DeviceToHost, payload)
	require.NoError(t, err)

	// Idle fill and line noise before the frame are skipped
	stream := append([]byte{0x00, 0x00, 0x00, 0x7F}, frm...)
	second, err := Encode(HostToDevice, []byte{0x05})
	require.NoError(t, err)
	stream = append(stream, second...)

	r := NewReader(bytes.NewReader(stream))

	tfi, got, err := r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, byte(DeviceToHost), tfi)
	assert.Equal(t, payload, got)

	tfi, got, err = r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, byte(HostToDevice), tfi)
	assert.Equal(t, []byte{0x05}, got)

	_, _, err = r.ReadFrame()
	require.ErrorIs(t, err, io.EOF)
}

func TestReader_Corruption(t *testing.T) {
	t.Parallel()

	valid, err := Encode(DeviceToHost, []byte{0x81, 0, 0, 0, 0})
	require.NoError(t, err)

	tests := []struct {
		mutate  func([]byte) []byte
		wantErr error
		name    string
	}{
		{
			name:    "bad length checksum",
			mutate:  func(f []byte) []byte { f[5]++; return f },
			wantErr: ErrChecksumMismatch,
		},
		{
			name:    "bad data checksum",
			mutate:  func(f []byte) []byte { f[7] ^= 0x01; return f },
			wantErr: ErrChecksumMismatch,
		},
		{
			name:    "missing postamble",
			mutate:  func(f []byte) []byte { f[len(f)-1] = 0x42; return f },
			wantErr: ErrFrameCorrupted,
		},
		{
			name: "empty frame",
			mutate: func([]byte) []byte {
				return []byte{0x00, 0x00, 0xFF, 0x00, 0x00, 0x00}
			},
			wantErr: ErrFrameCorrupted,
		},
		{
			name: "oversized length",
			mutate: func([]byte) []byte {
				return []byte{0x00, 0x00, 0xFF, 0x10, 0x00, 0xF0}
			},
			wantErr: ErrFrameTooLarge,
		},
		{
			name:    "truncated body",
			mutate:  func(f []byte) []byte { return f[:8] },
			wantErr: io.ErrUnexpectedEOF,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			frm := tt.mutate(append([]byte(nil), valid...))
			_, _, err := NewReader(bytes.NewReader(frm)).ReadFrame()
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestReader_RecoversAfterCorruption(t *testing.T) {
	t.Parallel()

	bad, err := Encode(DeviceToHost, []byte{0x90, 0x01})
	require.NoError(t, err)
	bad[len(bad)-2]++ // break DCS

	good, err := Encode(DeviceToHost, []byte{0x91})
	require.NoError(t, err)

	r := NewReader(bytes.NewReader(append(bad, good...)))

	_, _, err = r.ReadFrame()
	require.ErrorIs(t, err, ErrChecksumMismatch)

	_, payload, err := r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x91}, payload)
}
