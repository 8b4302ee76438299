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
	"sync"
)

// completion is a one-shot result set by an upcall and observed by the
// waiting operation. Only the first set is kept.
type completion[T any] struct {
	done chan struct{}
	val  T
	once sync.Once
}

func newCompletion[T any]() *completion[T] {
	return &completion[T]{done: make(chan struct{})}
}

// set records v unless a value was already recorded
func (c *completion[T]) set(v T) {
	c.once.Do(func() {
		c.val = v
		close(c.done)
	})
}

func (c *completion[T]) isSet() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// value must only be called after the completion is set
func (c *completion[T]) value() T {
	<-c.done
	return c.val
}

// waitFor blocks until c is set. Cooperative kernels are yielded to until
// the upcall has run; other kernels deliver upcalls on their own.
func waitFor[T any](ctx context.Context, k Kernel, c *completion[T]) error {
	if y, ok := k.(Yielder); ok {
		for !c.isSet() {
			if err := y.Yield(ctx); err != nil {
				if c.isSet() {
					return nil
				}
				return fmt.Errorf("yield: %w", err)
			}
		}
		return nil
	}

	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		if c.isSet() {
			return nil
		}
		return fmt.Errorf("context cancelled while waiting for upcall: %w", ctx.Err())
	}
}
