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

package nfctag

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReturnCode_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want string
		rc   ReturnCode
	}{
		{name: "success", rc: Success, want: "SUCCESS"},
		{name: "fail", rc: ErrFail, want: "FAIL"},
		{name: "busy", rc: ErrBusy, want: "EBUSY"},
		{name: "no ack", rc: ErrNoAck, want: "ENOACK"},
		{name: "unknown negative", rc: ReturnCode(-42), want: "ReturnCode(-42)"},
		{name: "positive", rc: ReturnCode(3), want: "ReturnCode(3)"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.rc.String())
			assert.Equal(t, "kernel returned "+tt.want, tt.rc.Error())
		})
	}
}

func TestReturnCode_Err(t *testing.T) {
	t.Parallel()

	require.NoError(t, Success.Err())
	assert.True(t, Success.IsSuccess())
	require.ErrorIs(t, ErrSize.Err(), ErrSize)
	assert.False(t, ErrSize.IsSuccess())
}

func TestReturnCodeFromUpcall(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Success, ReturnCodeFromUpcall(0))
	assert.Equal(t, ErrFail, ReturnCodeFromUpcall(0xFFFFFFFF))
	assert.Equal(t, ErrNoAck, ReturnCodeFromUpcall(uint32(0xFFFFFFF3)))
	assert.Equal(t, ReturnCode(12), ReturnCodeFromUpcall(12))

	for _, rc := range []ReturnCode{Success, ErrFail, ErrInvalid, ErrNoAck} {
		assert.Equal(t, rc, ReturnCodeFromUpcall(rc.UpcallArg()))
	}
}

func TestSyscallError(t *testing.T) {
	t.Parallel()

	err := &SyscallError{
		Op:      "receive",
		Syscall: "subscribe",
		Driver:  DriverNumber,
		Number:  uint32(SubscribeReceive),
		Err:     ErrReserve,
	}

	assert.Equal(t, "receive: subscribe 2 on driver 0x30003: kernel returned ERESERVE", err.Error())

	wrapped := fmt.Errorf("session: %w", err)
	require.ErrorIs(t, wrapped, ErrReserve)
	assert.NotErrorIs(t, wrapped, ErrBusy)

	var sysErr *SyscallError
	require.ErrorAs(t, wrapped, &sysErr)
	assert.Equal(t, "subscribe", sysErr.Syscall)
}

func TestReturnCodeOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		name string
		want ReturnCode
	}{
		{name: "nil error", err: nil, want: Success},
		{name: "bare code", err: ErrBusy, want: ErrBusy},
		{name: "wrapped code", err: &SyscallError{Err: ErrOff}, want: ErrOff},
		{name: "foreign error", err: errors.New("link down"), want: ErrFail},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ReturnCodeOf(tt.err))
		})
	}
}
