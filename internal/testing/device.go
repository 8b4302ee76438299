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

// Package testing provides simulated peers for exercising the binding: a
// bridge device hosting a simulated kernel and a virtual NFC reader.
package testing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/ZaparooProject/go-nfctag"
	"github.com/ZaparooProject/go-nfctag/internal/frame"
)

type slotKey struct {
	driver uint32
	num    uint32
}

// FakeDevice is the device end of a bridge link. It executes the requests it
// receives against Sim and reports upcalls and buffer writes back to the
// host, the way a board-side bridge firmware would.
type FakeDevice struct {
	Sim     *nfctag.SimKernel
	conn    io.ReadWriteCloser
	subs    map[slotKey]nfctag.Grant
	allows  map[slotKey]nfctag.Grant
	buffers map[slotKey][]byte
	synced  map[slotKey][]byte
	mu      sync.Mutex
	writeMu sync.Mutex
}

// NewFakeDevice creates a device serving conn with a fresh simulated kernel
func NewFakeDevice(conn io.ReadWriteCloser) *FakeDevice {
	return &FakeDevice{
		Sim:     nfctag.NewSimKernel(),
		conn:    conn,
		subs:    make(map[slotKey]nfctag.Grant),
		allows:  make(map[slotKey]nfctag.Grant),
		buffers: make(map[slotKey][]byte),
		synced:  make(map[slotKey][]byte),
	}
}

// Serve handles requests until the link closes or ctx is done. Queued
// simulated upcalls are delivered while it runs.
func (d *FakeDevice) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go d.Sim.Serve(ctx)
	go func() {
		<-ctx.Done()
		_ = d.conn.Close()
	}()

	fr := frame.NewReader(d.conn)
	for {
		tfi, payload, err := fr.ReadFrame()
		if err != nil {
			if errors.Is(err, frame.ErrChecksumMismatch) || errors.Is(err, frame.ErrFrameCorrupted) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if tfi != frame.HostToDevice {
			continue
		}

		var msg frame.Message
		if err := msg.UnmarshalBinary(payload); err != nil {
			if err := d.sendResult(nfctag.ErrInvalid); err != nil {
				return err
			}
			continue
		}
		if err := d.sendResult(nfctag.ReturnCodeOf(d.handle(&msg))); err != nil {
			return err
		}
	}
}

func (d *FakeDevice) handle(msg *frame.Message) error {
	driver := nfctag.DriverNum(msg.Driver)
	key := slotKey{driver: msg.Driver, num: msg.Num}

	switch msg.Op {
	case frame.OpCommand:
		return d.Sim.Command(driver, nfctag.Command(msg.Num), msg.Args[0], msg.Args[1])
	case frame.OpSubscribe:
		g, err := d.Sim.Subscribe(driver, nfctag.SubscribeNum(msg.Num), func(a0, a1, a2 uint32) {
			_ = d.forwardUpcall(key, a0, a1, a2)
		})
		if err != nil {
			return err
		}
		d.mu.Lock()
		d.subs[key] = g
		d.mu.Unlock()
		return nil
	case frame.OpUnsubscribe:
		d.mu.Lock()
		g, ok := d.subs[key]
		delete(d.subs, key)
		d.mu.Unlock()
		if !ok {
			return nfctag.ErrAlready
		}
		return g.Release()
	case frame.OpAllow:
		buf := append([]byte(nil), msg.Data...)
		g, err := d.Sim.Allow(driver, nfctag.AllowNum(msg.Num), buf)
		if err != nil {
			return err
		}
		d.mu.Lock()
		d.allows[key] = g
		d.buffers[key] = buf
		d.synced[key] = append([]byte(nil), buf...)
		d.mu.Unlock()
		return nil
	case frame.OpUnallow:
		d.mu.Lock()
		g, ok := d.allows[key]
		delete(d.allows, key)
		delete(d.buffers, key)
		delete(d.synced, key)
		d.mu.Unlock()
		if !ok {
			return nfctag.ErrAlready
		}
		return g.Release()
	default:
		return nfctag.ErrNoSupport
	}
}

// forwardUpcall reports changed lent buffers, then the upcall itself
func (d *FakeDevice) forwardUpcall(key slotKey, a0, a1, a2 uint32) error {
	d.mu.Lock()
	var syncs []frame.Message
	for k, buf := range d.buffers {
		if k.driver != key.driver || bytes.Equal(buf, d.synced[k]) {
			continue
		}
		d.synced[k] = append([]byte(nil), buf...)
		syncs = append(syncs, frame.Message{Op: frame.OpBufferSync, Driver: k.driver, Num: k.num, Data: d.synced[k]})
	}
	d.mu.Unlock()

	for i := range syncs {
		if err := d.send(&syncs[i]); err != nil {
			return err
		}
	}
	return d.send(&frame.Message{
		Op:     frame.OpUpcall,
		Driver: key.driver,
		Num:    key.num,
		Args:   [3]uint32{a0, a1, a2},
	})
}

func (d *FakeDevice) sendResult(rc nfctag.ReturnCode) error {
	return d.send(&frame.Message{Op: frame.OpResult, Code: int32(rc)})
}

func (d *FakeDevice) send(msg *frame.Message) error {
	payload, err := msg.MarshalBinary()
	if err != nil {
		return err
	}
	frm, err := frame.Encode(frame.DeviceToHost, payload)
	if err != nil {
		return err
	}
	return d.WriteRaw(frm)
}

// WriteRaw writes bytes to the host unchanged, for injecting line noise or
// corrupted frames
func (d *FakeDevice) WriteRaw(data []byte) error {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	if _, err := d.conn.Write(data); err != nil {
		return fmt.Errorf("fake device write: %w", err)
	}
	return nil
}

// Outstanding returns how many subscriptions and lendings the host holds
func (d *FakeDevice) Outstanding() (subs, allows int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.subs), len(d.allows)
}
