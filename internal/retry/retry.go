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

// Package retry provides the retry loop shared by start-up probes
package retry

import (
	"context"
	"errors"
	"time"
)

// ErrExhausted is returned when every attempt asked for a retry
var ErrExhausted = errors.New("retries exhausted")

// Operation is a function that can be retried.
// Returns: data, shouldRetry, error
//   - data: the result if successful
//   - shouldRetry: true if the operation should be retried
//   - error: a permanent error that stops retrying
type Operation[T any] func(ctx context.Context) (T, bool, error)

// Config configures retry behavior
type Config struct {
	// OnRetry runs before each new attempt. An error stops retrying.
	OnRetry func(attempt int) error
	// MaxRetries is the number of attempts after the first one
	MaxRetries int
	Delay      time.Duration
}

// Do runs operation until it succeeds, fails permanently, asks for more
// than MaxRetries retries or ctx ends
func Do[T any](ctx context.Context, config Config, operation Operation[T]) (T, error) {
	var zero T

	for attempt := 0; ; attempt++ {
		result, shouldRetry, err := operation(ctx)
		if err != nil {
			return zero, err
		}
		if !shouldRetry {
			return result, nil
		}
		if attempt >= config.MaxRetries {
			return zero, ErrExhausted
		}

		if config.OnRetry != nil {
			if err := config.OnRetry(attempt + 1); err != nil {
				return zero, err
			}
		}
		if err := sleep(ctx, config.Delay); err != nil {
			return zero, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
