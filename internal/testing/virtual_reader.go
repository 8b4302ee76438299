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

package testing

import (
	"sync"

	"github.com/ZaparooProject/go-nfctag"
)

// VirtualReader simulates an NFC reader in the field of the emulated tag. It
// drives a SimKernel: once emulation is enabled and frames are queued it
// selects the tag, hands each queued frame to a receive and records every
// transmitted reply. When the frames run out the field is removed and the
// pending receive fails.
type VirtualReader struct {
	sim        *nfctag.SimKernel
	fieldGone  chan struct{}
	frames     [][]byte
	replies    [][]byte
	configured nfctag.TagType
	frameDelay uint32
	selections int
	mu         sync.Mutex
	emulating  bool
	gone       bool
}

// NewVirtualReader attaches a reader to sim. It takes over sim's command hook.
func NewVirtualReader(sim *nfctag.SimKernel, frames ...[]byte) *VirtualReader {
	r := &VirtualReader{
		sim:       sim,
		frames:    frames,
		fieldGone: make(chan struct{}),
	}
	sim.OnCommand(r.onCommand)
	return r
}

func (r *VirtualReader) onCommand(cmd nfctag.Command, arg1, _ uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch cmd {
	case nfctag.CommandEmulate:
		r.emulating = arg1 == 1
		if r.emulating && len(r.frames) > 0 {
			r.selections++
			r.sim.QueueUpcall(nfctag.SubscribeSelect, 0, 0, 0)
		}
	case nfctag.CommandConfigure:
		r.configured = nfctag.TagType(arg1)
	case nfctag.CommandFrameDelayMax:
		r.frameDelay = arg1
	case nfctag.CommandReceive:
		if len(r.frames) == 0 {
			if !r.gone {
				r.gone = true
				close(r.fieldGone)
			}
			r.sim.QueueUpcall(nfctag.SubscribeReceive, nfctag.ErrFail.UpcallArg(), 0, 0)
			return
		}
		next := r.frames[0]
		r.frames = r.frames[1:]
		n := copy(r.sim.Buffer(nfctag.AllowReceive), next)
		r.sim.QueueUpcall(nfctag.SubscribeReceive, 0, uint32(n), 0)
	case nfctag.CommandTransmit:
		reply := append([]byte(nil), r.sim.Buffer(nfctag.AllowTransmit)[:arg1]...)
		r.replies = append(r.replies, reply)
		r.sim.QueueUpcall(nfctag.SubscribeTransmit, 0, 0, 0)
	default:
	}
}

// FieldGone is closed once the reader has sent every queued frame and the
// tag asked for more
func (r *VirtualReader) FieldGone() <-chan struct{} {
	return r.fieldGone
}

// Replies returns the frames the tag transmitted, in order
func (r *VirtualReader) Replies() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]byte(nil), r.replies...)
}

// Configured returns the last tag type configured
func (r *VirtualReader) Configured() nfctag.TagType {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.configured
}

// FrameDelay returns the last maximum frame delay set
func (r *VirtualReader) FrameDelay() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frameDelay
}

// Emulating reports whether emulation is currently enabled
func (r *VirtualReader) Emulating() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.emulating
}

// Selections returns how many times the reader selected the tag
func (r *VirtualReader) Selections() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selections
}
