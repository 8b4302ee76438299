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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectorValues(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DriverNum(0x30003), DriverNumber)

	assert.Equal(t, []uint32{0, 1, 2, 3, 4, 5}, []uint32{
		uint32(CommandCheck), uint32(CommandTransmit), uint32(CommandReceive),
		uint32(CommandEmulate), uint32(CommandConfigure), uint32(CommandFrameDelayMax),
	})
	assert.Equal(t, []uint32{1, 2, 3}, []uint32{
		uint32(SubscribeTransmit), uint32(SubscribeReceive), uint32(SubscribeSelect),
	})
	assert.Equal(t, []uint32{1, 2}, []uint32{uint32(AllowTransmit), uint32(AllowReceive)})
}

func TestSelectorStrings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value interface{ String() string }
		want  string
	}{
		{value: DriverNumber, want: "0x30003"},
		{value: CommandCheck, want: "check"},
		{value: CommandFrameDelayMax, want: "framedelaymax"},
		{value: Command(9), want: "command(9)"},
		{value: SubscribeSelect, want: "select"},
		{value: SubscribeNum(0), want: "subscribe(0)"},
		{value: AllowReceive, want: "receive"},
		{value: AllowNum(7), want: "allow(7)"},
		{value: TagType4, want: "Type 4"},
		{value: TagType(0), want: "TagType(0)"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.value.String())
	}
}
