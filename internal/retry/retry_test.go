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

package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_SucceedsAfterRetries(t *testing.T) {
	t.Parallel()

	calls := 0
	var retried []int
	got, err := Do(context.Background(), Config{
		MaxRetries: 3,
		OnRetry: func(attempt int) error {
			retried = append(retried, attempt)
			return nil
		},
	}, func(context.Context) (string, bool, error) {
		calls++
		if calls < 3 {
			return "", true, nil
		}
		return "ready", false, nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ready", got)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestDo_Exhausted(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := Do(context.Background(), Config{MaxRetries: 2}, func(context.Context) (int, bool, error) {
		calls++
		return 0, true, nil
	})

	require.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 3, calls)
}

func TestDo_PermanentError(t *testing.T) {
	t.Parallel()

	errPermanent := errors.New("permanent")
	calls := 0
	_, err := Do(context.Background(), Config{MaxRetries: 5}, func(context.Context) (int, bool, error) {
		calls++
		return 0, false, errPermanent
	})

	require.ErrorIs(t, err, errPermanent)
	assert.Equal(t, 1, calls)
}

func TestDo_OnRetryStops(t *testing.T) {
	t.Parallel()

	errStop := errors.New("stop")
	_, err := Do(context.Background(), Config{
		MaxRetries: 5,
		OnRetry:    func(int) error { return errStop },
	}, func(context.Context) (int, bool, error) {
		return 0, true, nil
	})

	require.ErrorIs(t, err, errStop)
}

func TestDo_ContextCancelledDuringDelay(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := Do(ctx, Config{MaxRetries: 10, Delay: time.Second}, func(context.Context) (int, bool, error) {
		return 0, true, nil
	})

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}
