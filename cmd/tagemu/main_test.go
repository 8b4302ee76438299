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

package main

import (
	"flag"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func parseTestFlags(t *testing.T, args ...string) *config {
	t.Helper()
	fs := flag.NewFlagSet("tagemu", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	cfg, err := parseFlags(fs, args)
	require.NoError(t, err)
	return cfg
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		errText string
		args    []string
	}{
		{name: "serial text", args: []string{"-device", "/dev/ttyACM0", "-text", "hi"}},
		{name: "i2c uri", args: []string{"-i2c", "/dev/i2c-1", "-uri", "https://zaparoo.org"}},
		{name: "list needs nothing else", args: []string{"-list"}},
		{name: "no link", args: []string{"-text", "hi"}, errText: "-device or -i2c"},
		{name: "two links", args: []string{"-device", "COM3", "-i2c", "1", "-text", "hi"}, errText: "mutually exclusive"},
		{name: "no record", args: []string{"-device", "COM3"}, errText: "-text or -uri"},
		{name: "two records", args: []string{"-device", "COM3", "-text", "a", "-uri", "b"}, errText: "mutually exclusive"},
		{name: "bad address", args: []string{"-i2c", "1", "-i2c-addr", "200", "-text", "a"}, errText: "invalid I2C address"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := parseTestFlags(t, tt.args...).validate()
			if tt.errText == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errText)
		})
	}
}

func TestParseFlags_Defaults(t *testing.T) {
	t.Parallel()

	cfg := parseTestFlags(t)
	assert.Equal(t, "en", *cfg.lang)
	assert.Equal(t, uint(0x24), *cfg.i2cAddr)
	assert.Equal(t, 115200, *cfg.baudRate)
	assert.Zero(t, *cfg.frameDelay)
}

func TestParseFlags_Unknown(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("tagemu", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	_, err := parseFlags(fs, []string{"-bogus"})
	require.Error(t, err)
}

func TestNewHandler(t *testing.T) {
	t.Parallel()

	text, err := newHandler(parseTestFlags(t, "-text", "hello", "-lang", "de"), zap.NewNop())
	require.NoError(t, err)
	assert.Len(t, text.Message().Records, 1)

	uri, err := newHandler(parseTestFlags(t, "-uri", "https://zaparoo.org"), zap.NewNop())
	require.NoError(t, err)
	assert.Len(t, uri.Message().Records, 1)
	assert.NotEqual(t, text.NDEFFile(), uri.NDEFFile())
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	logger, err := newLogger(false)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.DebugLevel))

	logger, err = newLogger(true)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))
}
