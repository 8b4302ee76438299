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
	"context"
	"sync"
)

// SimCall records one syscall made against a SimKernel
type SimCall struct {
	Syscall string // "command", "subscribe", "unsubscribe", "allow" or "unallow"
	Number  uint32
	Arg1    uint32
	Arg2    uint32
}

type simUpcall struct {
	num  SubscribeNum
	args [3]uint32
}

// SimKernel is a simulated cooperative kernel hosting one NFC driver. Upcalls
// queued with QueueUpcall are delivered while the application yields; tests
// use it to script driver behavior and to check that every subscription and
// buffer lending is returned.
type SimKernel struct {
	commandErrs   map[Command]error
	subscribeErrs map[SubscribeNum]error
	allowErrs     map[AllowNum]error
	upcalls       map[SubscribeNum]simSubscription
	buffers       map[AllowNum]simLending
	onCommand     func(cmd Command, arg1, arg2 uint32)
	pending       chan simUpcall
	calls         []SimCall
	driver        DriverNum
	nextID        uint64
	yields        int
	dropped       int
	mu            sync.Mutex
}

type simSubscription struct {
	upcall Upcall
	id     uint64
}

type simLending struct {
	buf []byte
	id  uint64
}

// NewSimKernel creates a simulated kernel with the NFC driver installed at
// DriverNumber
func NewSimKernel() *SimKernel {
	return &SimKernel{
		commandErrs:   make(map[Command]error),
		subscribeErrs: make(map[SubscribeNum]error),
		allowErrs:     make(map[AllowNum]error),
		upcalls:       make(map[SubscribeNum]simSubscription),
		buffers:       make(map[AllowNum]simLending),
		pending:       make(chan simUpcall, 64),
		driver:        DriverNumber,
	}
}

// SetDriver moves the simulated driver to another driver number
func (k *SimKernel) SetDriver(driver DriverNum) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.driver = driver
}

// SetCommandError makes cmd fail with err. A nil err clears the failure.
func (k *SimKernel) SetCommandError(cmd Command, err error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if err == nil {
		delete(k.commandErrs, cmd)
		return
	}
	k.commandErrs[cmd] = err
}

// SetSubscribeError makes subscriptions on num fail with err
func (k *SimKernel) SetSubscribeError(num SubscribeNum, err error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if err == nil {
		delete(k.subscribeErrs, num)
		return
	}
	k.subscribeErrs[num] = err
}

// SetAllowError makes buffer lending on num fail with err
func (k *SimKernel) SetAllowError(num AllowNum, err error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if err == nil {
		delete(k.allowErrs, num)
		return
	}
	k.allowErrs[num] = err
}

// OnCommand installs a hook run after each accepted command. The hook runs
// without the kernel lock held and may call FireUpcall, QueueUpcall or Buffer.
func (k *SimKernel) OnCommand(fn func(cmd Command, arg1, arg2 uint32)) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.onCommand = fn
}

// Command implements Kernel
func (k *SimKernel) Command(driver DriverNum, cmd Command, arg1, arg2 uint32) error {
	k.mu.Lock()
	k.calls = append(k.calls, SimCall{Syscall: "command", Number: uint32(cmd), Arg1: arg1, Arg2: arg2})
	if driver != k.driver {
		k.mu.Unlock()
		return ErrNoDevice
	}
	if err := k.commandErrs[cmd]; err != nil {
		k.mu.Unlock()
		return err
	}
	hook := k.onCommand
	k.mu.Unlock()

	if hook != nil {
		hook(cmd, arg1, arg2)
	}
	return nil
}

// Subscribe implements Kernel
func (k *SimKernel) Subscribe(driver DriverNum, num SubscribeNum, upcall Upcall) (Grant, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.calls = append(k.calls, SimCall{Syscall: "subscribe", Number: uint32(num)})
	if driver != k.driver {
		return nil, ErrNoDevice
	}
	if err := k.subscribeErrs[num]; err != nil {
		return nil, err
	}
	if upcall == nil {
		return nil, ErrInvalid
	}

	k.nextID++
	id := k.nextID
	k.upcalls[num] = simSubscription{upcall: upcall, id: id}
	return &simGrant{release: func() {
		k.mu.Lock()
		defer k.mu.Unlock()
		k.calls = append(k.calls, SimCall{Syscall: "unsubscribe", Number: uint32(num)})
		if cur, ok := k.upcalls[num]; ok && cur.id == id {
			delete(k.upcalls, num)
		}
	}}, nil
}

// Allow implements Kernel
func (k *SimKernel) Allow(driver DriverNum, num AllowNum, buf []byte) (Grant, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.calls = append(k.calls, SimCall{Syscall: "allow", Number: uint32(num), Arg1: uint32(len(buf))})
	if driver != k.driver {
		return nil, ErrNoDevice
	}
	if err := k.allowErrs[num]; err != nil {
		return nil, err
	}

	k.nextID++
	id := k.nextID
	k.buffers[num] = simLending{buf: buf, id: id}
	return &simGrant{release: func() {
		k.mu.Lock()
		defer k.mu.Unlock()
		k.calls = append(k.calls, SimCall{Syscall: "unallow", Number: uint32(num)})
		if cur, ok := k.buffers[num]; ok && cur.id == id {
			delete(k.buffers, num)
		}
	}}, nil
}

// Yield implements Yielder. It delivers one queued upcall, blocking until
// one is queued or ctx is done.
func (k *SimKernel) Yield(ctx context.Context) error {
	k.mu.Lock()
	k.yields++
	k.mu.Unlock()

	select {
	case u := <-k.pending:
		k.deliver(u)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// QueueUpcall schedules an upcall for delivery at the next yield
func (k *SimKernel) QueueUpcall(num SubscribeNum, arg0, arg1, arg2 uint32) {
	k.pending <- simUpcall{num: num, args: [3]uint32{arg0, arg1, arg2}}
}

// FireUpcall delivers an upcall immediately from the calling goroutine. It
// reports whether a subscriber received it.
func (k *SimKernel) FireUpcall(num SubscribeNum, arg0, arg1, arg2 uint32) bool {
	return k.deliver(simUpcall{num: num, args: [3]uint32{arg0, arg1, arg2}})
}

// Serve delivers queued upcalls from the calling goroutine until ctx is
// done. Together with Preemptive it simulates a kernel that delivers upcalls
// without the application yielding.
func (k *SimKernel) Serve(ctx context.Context) {
	for {
		select {
		case u := <-k.pending:
			k.deliver(u)
		case <-ctx.Done():
			return
		}
	}
}

// Preemptive returns a view of k that does not implement Yielder
func (k *SimKernel) Preemptive() Kernel {
	return simPreemptive{k: k}
}

func (k *SimKernel) deliver(u simUpcall) bool {
	k.mu.Lock()
	sub, ok := k.upcalls[u.num]
	if !ok {
		k.dropped++
	}
	k.mu.Unlock()

	if !ok {
		return false
	}
	sub.upcall(u.args[0], u.args[1], u.args[2])
	return true
}

// Buffer returns the buffer currently lent on num, or nil
func (k *SimKernel) Buffer(num AllowNum) []byte {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.buffers[num].buf
}

// OutstandingSubscriptions returns the number of live subscriptions
func (k *SimKernel) OutstandingSubscriptions() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.upcalls)
}

// OutstandingAllows returns the number of live buffer lendings
func (k *SimKernel) OutstandingAllows() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.buffers)
}

// Calls returns a copy of the syscall log
func (k *SimKernel) Calls() []SimCall {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([]SimCall(nil), k.calls...)
}

// CommandCalls returns the commands issued, in order
func (k *SimKernel) CommandCalls() []Command {
	k.mu.Lock()
	defer k.mu.Unlock()
	var cmds []Command
	for _, c := range k.calls {
		if c.Syscall == "command" {
			cmds = append(cmds, Command(c.Number))
		}
	}
	return cmds
}

// Yields returns how many times the application yielded
func (k *SimKernel) Yields() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.yields
}

// Dropped returns how many upcalls found no subscriber
func (k *SimKernel) Dropped() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.dropped
}

type simGrant struct {
	release func()
	once    sync.Once
}

func (g *simGrant) Release() error {
	g.once.Do(g.release)
	return nil
}

type simPreemptive struct {
	k *SimKernel
}

func (p simPreemptive) Command(driver DriverNum, cmd Command, arg1, arg2 uint32) error {
	return p.k.Command(driver, cmd, arg1, arg2)
}

func (p simPreemptive) Subscribe(driver DriverNum, num SubscribeNum, upcall Upcall) (Grant, error) {
	return p.k.Subscribe(driver, num, upcall)
}

func (p simPreemptive) Allow(driver DriverNum, num AllowNum, buf []byte) (Grant, error) {
	return p.k.Allow(driver, num, buf)
}
