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

package uart

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// timeoutPort behaves like a serial port with a read timeout: reads return
// (0, nil) until data is queued
type timeoutPort struct {
	writeErr error
	chunks   [][]byte
	written  []byte
	reads    int
	closed   bool
	mu       sync.Mutex
}

func (p *timeoutPort) Read(buf []byte) (int, error) {
	time.Sleep(time.Millisecond)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reads++
	if len(p.chunks) == 0 {
		return 0, nil
	}
	n := copy(buf, p.chunks[0])
	p.chunks = p.chunks[1:]
	return n, nil
}

func (p *timeoutPort) Write(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	p.written = append(p.written, buf...)
	return len(buf), nil
}

func (p *timeoutPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *timeoutPort) queue(b []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chunks = append(p.chunks, b)
}

func (p *timeoutPort) readCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reads
}

func TestPort_ReadSkipsTimeouts(t *testing.T) {
	t.Parallel()

	raw := &timeoutPort{}
	port := &Port{raw: raw, path: "/dev/ttyACM0"}

	go func() {
		for raw.readCount() < 3 {
			time.Sleep(time.Millisecond)
		}
		raw.queue([]byte{0x00, 0xFF})
	}()

	buf := make([]byte, 8)
	n, err := port.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0xFF}, buf[:n])
	assert.GreaterOrEqual(t, raw.readCount(), 3)
}

func TestPort_CloseUnblocksRead(t *testing.T) {
	t.Parallel()

	raw := &timeoutPort{}
	port := &Port{raw: raw, path: "/dev/ttyACM0"}

	result := make(chan error, 1)
	go func() {
		_, err := port.Read(make([]byte, 4))
		result <- err
	}()

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, port.Close())
	require.NoError(t, port.Close(), "second close is a no-op")

	select {
	case err := <-result:
		require.ErrorIs(t, err, ErrPortClosed)
	case <-time.After(time.Second):
		t.Fatal("read did not return after close")
	}
	assert.True(t, raw.closed)

	_, err := port.Write([]byte{0x01})
	require.ErrorIs(t, err, ErrPortClosed)
}

func TestPort_WriteError(t *testing.T) {
	t.Parallel()

	errBroken := errors.New("broken pipe")
	port := &Port{raw: &timeoutPort{writeErr: errBroken}, path: "/dev/ttyUSB0"}

	_, err := port.Write([]byte{0x01})
	require.ErrorIs(t, err, errBroken)
	assert.Contains(t, err.Error(), "/dev/ttyUSB0")
}

func TestPort_Write(t *testing.T) {
	t.Parallel()

	raw := &timeoutPort{}
	port := &Port{raw: raw, path: "/dev/ttyUSB0"}

	n, err := port.Write([]byte{0x00, 0x00, 0xFF})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []byte{0x00, 0x00, 0xFF}, raw.written)
}

func TestOptions(t *testing.T) {
	t.Parallel()

	p := &Port{baudRate: DefaultBaudRate, readTimeout: DefaultReadTimeout}
	require.NoError(t, WithBaudRate(9600)(p))
	require.NoError(t, WithReadTimeout(time.Second)(p))
	assert.Equal(t, 9600, p.BaudRate())
	assert.Equal(t, time.Second, p.readTimeout)

	require.Error(t, WithBaudRate(0)(p))
	require.Error(t, WithReadTimeout(-time.Second)(p))
}

func TestOpen_MissingDevice(t *testing.T) {
	t.Parallel()

	_, err := Open("/dev/nfctag-does-not-exist")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/dev/nfctag-does-not-exist")

	_, err = Open("/dev/ttyACM0", WithBaudRate(-1))
	require.Error(t, err)
}
