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
	"fmt"
)

// SelectedContext is Selected with cancellation. It returns false if the
// upcall cannot be registered or ctx ends before the tag is selected.
func (t *Tag) SelectedContext(ctx context.Context) bool {
	selected := newCompletion[struct{}]()
	sub, err := t.kernel.Subscribe(t.config.Driver, SubscribeSelect, func(_, _, _ uint32) {
		selected.set(struct{}{})
	})
	if err != nil {
		debugf(t.log(), "subscribe %s failed: %v", SubscribeSelect, err)
		return false
	}
	defer t.release(sub, "subscribe:select")

	if err := waitFor(ctx, t.kernel, selected); err != nil {
		debugf(t.log(), "waiting for selection: %v", err)
		return false
	}
	return true
}

// ReceiveContext is Receive with cancellation. Cancelling releases the
// subscription and the buffer; the driver may still complete the reception
// afterwards, and its upcall is then lost.
func (t *Tag) ReceiveContext(ctx context.Context, buf *[RecvBufferSize]byte) (RecvOp, error) {
	if buf == nil {
		return RecvOp{}, fmt.Errorf("receive: %w", ErrInvalidParameter)
	}

	allow, err := t.kernel.Allow(t.config.Driver, AllowReceive, buf[:])
	if err != nil {
		return RecvOp{}, t.syscallError("receive", "allow", uint32(AllowReceive), err)
	}
	defer t.release(allow, "allow:receive")

	done := newCompletion[RecvOp]()
	sub, err := t.kernel.Subscribe(t.config.Driver, SubscribeReceive, func(result, amount, _ uint32) {
		done.set(RecvOp{
			ResultCode: ReturnCodeFromUpcall(result),
			Amount:     int(amount),
		})
	})
	if err != nil {
		return RecvOp{}, t.syscallError("receive", "subscribe", uint32(SubscribeReceive), err)
	}
	defer t.release(sub, "subscribe:receive")

	if err := t.kernel.Command(t.config.Driver, CommandReceive, 0, 0); err != nil {
		return RecvOp{}, t.syscallError("receive", "command", uint32(CommandReceive), err)
	}

	if err := waitFor(ctx, t.kernel, done); err != nil {
		return RecvOp{}, fmt.Errorf("receive: %w", err)
	}

	op := done.value()
	debugf(t.log(), "received %d bytes, result %s", op.Amount, op.ResultCode)
	return op, nil
}

// TransmitContext is Transmit with cancellation.
func (t *Tag) TransmitContext(ctx context.Context, buf []byte, amount int) (ReturnCode, error) {
	if amount < 0 || amount > len(buf) {
		return ErrFail, fmt.Errorf("transmit: amount %d outside buffer of %d bytes: %w",
			amount, len(buf), ErrInvalidParameter)
	}

	allow, err := t.kernel.Allow(t.config.Driver, AllowTransmit, buf)
	if err != nil {
		return ErrFail, t.syscallError("transmit", "allow", uint32(AllowTransmit), err)
	}
	defer t.release(allow, "allow:transmit")

	done := newCompletion[ReturnCode]()
	sub, err := t.kernel.Subscribe(t.config.Driver, SubscribeTransmit, func(result, _, _ uint32) {
		done.set(ReturnCodeFromUpcall(result))
	})
	if err != nil {
		return ErrFail, t.syscallError("transmit", "subscribe", uint32(SubscribeTransmit), err)
	}
	defer t.release(sub, "subscribe:transmit")

	if err := t.kernel.Command(t.config.Driver, CommandTransmit, uint32(amount), 0); err != nil {
		return ErrFail, t.syscallError("transmit", "command", uint32(CommandTransmit), err)
	}

	if err := waitFor(ctx, t.kernel, done); err != nil {
		return ErrFail, fmt.Errorf("transmit: %w", err)
	}

	rc := done.value()
	debugf(t.log(), "transmitted %d bytes, result %s", amount, rc)
	return rc, nil
}

func (t *Tag) syscallError(op, syscall string, number uint32, err error) error {
	return &SyscallError{
		Op:      op,
		Syscall: syscall,
		Driver:  t.config.Driver,
		Number:  number,
		Err:     err,
	}
}
