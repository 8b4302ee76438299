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

// Package bridge implements nfctag.Kernel by forwarding syscalls to a device
// kernel over a byte link (UART or I2C).
package bridge

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ZaparooProject/go-nfctag"
	"github.com/ZaparooProject/go-nfctag/internal/frame"
	"go.uber.org/zap"
)

// Bridge errors
var (
	ErrLinkClosed      = errors.New("bridge link closed")
	ErrRequestTimeout  = errors.New("bridge request timeout")
	ErrUnexpectedFrame = errors.New("unexpected frame")
)

type slot struct {
	driver uint32
	num    uint32
}

type registration struct {
	upcall nfctag.Upcall
	id     uint64
}

type lending struct {
	buf []byte
	id  uint64
}

// Kernel forwards syscalls over a link. Upcalls are delivered from the
// kernel's reader goroutine, so Kernel does not implement nfctag.Yielder.
type Kernel struct {
	link      io.ReadWriteCloser
	logger    *zap.Logger
	results   chan int32
	closed    chan struct{}
	upcalls   map[slot]registration
	buffers   map[slot]lending
	err       error
	timeout   time.Duration
	nextID    uint64
	awaiting  bool
	reqMu     sync.Mutex
	mu        sync.Mutex
	closeOnce sync.Once
}

// New creates a bridge kernel on link and starts reading from it
func New(link io.ReadWriteCloser, opts ...Option) *Kernel {
	k := &Kernel{
		link:    link,
		logger:  nfctag.Logger(),
		results: make(chan int32, 1),
		closed:  make(chan struct{}),
		upcalls: make(map[slot]registration),
		buffers: make(map[slot]lending),
	}
	for _, opt := range opts {
		opt(k)
	}

	go k.readLoop()
	return k
}

// Command implements nfctag.Kernel
func (k *Kernel) Command(driver nfctag.DriverNum, cmd nfctag.Command, arg1, arg2 uint32) error {
	return k.request(&frame.Message{
		Op:     frame.OpCommand,
		Driver: uint32(driver),
		Num:    uint32(cmd),
		Args:   [3]uint32{arg1, arg2, 0},
	})
}

// Subscribe implements nfctag.Kernel. The upcall is registered locally before
// the device is asked, so an upcall racing the device's answer is not lost.
func (k *Kernel) Subscribe(driver nfctag.DriverNum, num nfctag.SubscribeNum, upcall nfctag.Upcall) (nfctag.Grant, error) {
	if upcall == nil {
		return nil, nfctag.ErrInvalid
	}
	s := slot{driver: uint32(driver), num: uint32(num)}

	k.mu.Lock()
	k.nextID++
	id := k.nextID
	k.upcalls[s] = registration{upcall: upcall, id: id}
	k.mu.Unlock()

	if err := k.request(&frame.Message{Op: frame.OpSubscribe, Driver: s.driver, Num: s.num}); err != nil {
		k.forgetUpcall(s, id)
		return nil, err
	}

	return &grant{release: func() error {
		k.forgetUpcall(s, id)
		return k.request(&frame.Message{Op: frame.OpUnsubscribe, Driver: s.driver, Num: s.num})
	}}, nil
}

// Allow implements nfctag.Kernel. The buffer's current contents are sent to
// the device; writes the device reports back are copied into buf before the
// upcall announcing them.
func (k *Kernel) Allow(driver nfctag.DriverNum, num nfctag.AllowNum, buf []byte) (nfctag.Grant, error) {
	s := slot{driver: uint32(driver), num: uint32(num)}

	k.mu.Lock()
	k.nextID++
	id := k.nextID
	k.buffers[s] = lending{buf: buf, id: id}
	k.mu.Unlock()

	err := k.request(&frame.Message{Op: frame.OpAllow, Driver: s.driver, Num: s.num, Data: buf})
	if err != nil {
		k.forgetBuffer(s, id)
		return nil, err
	}

	return &grant{release: func() error {
		k.forgetBuffer(s, id)
		return k.request(&frame.Message{Op: frame.OpUnallow, Driver: s.driver, Num: s.num})
	}}, nil
}

// Close closes the link. Pending and later requests fail with ErrLinkClosed.
func (k *Kernel) Close() error {
	k.stop(ErrLinkClosed)
	if err := k.link.Close(); err != nil {
		return fmt.Errorf("failed to close link: %w", err)
	}
	return nil
}

// Err returns why the kernel stopped, or nil while it is running
func (k *Kernel) Err() error {
	select {
	case <-k.closed:
		return k.err
	default:
		return nil
	}
}

// request sends msg and waits for the device's result
func (k *Kernel) request(msg *frame.Message) error {
	k.reqMu.Lock()
	defer k.reqMu.Unlock()

	select {
	case <-k.closed:
		return fmt.Errorf("%s: %w", msg.Op, k.err)
	default:
	}

	payload, err := msg.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encoding %s: %w", msg.Op, err)
	}
	frm, err := frame.Encode(frame.HostToDevice, payload)
	if err != nil {
		return fmt.Errorf("framing %s: %w", msg.Op, err)
	}
	k.setAwaiting(true)
	defer k.setAwaiting(false)
	if _, err := k.link.Write(frm); err != nil {
		return fmt.Errorf("writing %s: %w", msg.Op, err)
	}

	var expired <-chan time.Time
	if k.timeout > 0 {
		timer := time.NewTimer(k.timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case code := <-k.results:
		return nfctag.ReturnCode(code).Err()
	case <-k.closed:
		return fmt.Errorf("%s: %w", msg.Op, k.err)
	case <-expired:
		k.stop(ErrRequestTimeout)
		_ = k.link.Close()
		return fmt.Errorf("%s after %v: %w", msg.Op, k.timeout, ErrRequestTimeout)
	}
}

func (k *Kernel) readLoop() {
	fr := frame.NewReader(k.link)
	for {
		tfi, payload, err := fr.ReadFrame()
		if err != nil {
			if errors.Is(err, frame.ErrChecksumMismatch) ||
				errors.Is(err, frame.ErrFrameCorrupted) ||
				errors.Is(err, frame.ErrFrameTooLarge) {
				k.logger.Warn("dropping corrupted bridge frame", zap.Error(err))
				continue
			}
			k.stop(fmt.Errorf("%w: %w", ErrLinkClosed, err))
			return
		}
		if tfi != frame.DeviceToHost {
			k.logger.Warn("dropping bridge frame", zap.Uint8("tfi", tfi))
			continue
		}

		var msg frame.Message
		if err := msg.UnmarshalBinary(payload); err != nil {
			k.logger.Warn("dropping undecodable bridge message", zap.Error(err))
			continue
		}
		k.dispatch(&msg)
	}
}

func (k *Kernel) dispatch(msg *frame.Message) {
	switch msg.Op {
	case frame.OpResult:
		k.mu.Lock()
		awaiting := k.awaiting
		if awaiting {
			k.awaiting = false
			k.results <- msg.Code
		}
		k.mu.Unlock()
		if !awaiting {
			k.logger.Warn("result without request", zap.Int32("code", msg.Code))
		}
	case frame.OpUpcall:
		s := slot{driver: msg.Driver, num: msg.Num}
		k.mu.Lock()
		reg, ok := k.upcalls[s]
		k.mu.Unlock()
		if !ok {
			k.logger.Debug("upcall without subscriber",
				zap.Uint32("driver", msg.Driver), zap.Uint32("num", msg.Num))
			return
		}
		reg.upcall(msg.Args[0], msg.Args[1], msg.Args[2])
	case frame.OpBufferSync:
		s := slot{driver: msg.Driver, num: msg.Num}
		k.mu.Lock()
		l, ok := k.buffers[s]
		if ok {
			copy(l.buf, msg.Data)
		}
		k.mu.Unlock()
		if !ok {
			k.logger.Debug("buffer sync for a buffer not lent",
				zap.Uint32("driver", msg.Driver), zap.Uint32("num", msg.Num))
		}
	default:
		k.logger.Warn("dropping bridge message",
			zap.Stringer("op", msg.Op), zap.Error(ErrUnexpectedFrame))
	}
}

// setAwaiting marks whether a request is waiting for its Result. Only one
// Result is accepted per request; any other is dropped.
func (k *Kernel) setAwaiting(v bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.awaiting = v
	if !v {
		select {
		case <-k.results:
		default:
		}
	}
}

func (k *Kernel) stop(err error) {
	k.closeOnce.Do(func() {
		k.err = err
		close(k.closed)
	})
}

func (k *Kernel) forgetUpcall(s slot, id uint64) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if cur, ok := k.upcalls[s]; ok && cur.id == id {
		delete(k.upcalls, s)
	}
}

func (k *Kernel) forgetBuffer(s slot, id uint64) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if cur, ok := k.buffers[s]; ok && cur.id == id {
		delete(k.buffers, s)
	}
}

type grant struct {
	release func() error
	err     error
	once    sync.Once
}

func (g *grant) Release() error {
	g.once.Do(func() {
		g.err = g.release()
	})
	return g.err
}

var _ nfctag.Kernel = (*Kernel)(nil)
