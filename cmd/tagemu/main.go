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

// Command tagemu emulates an NFC Forum Type 4 tag holding an NDEF text or
// URI record through a bridge device.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ZaparooProject/go-nfctag"
	"github.com/ZaparooProject/go-nfctag/bridge"
	"github.com/ZaparooProject/go-nfctag/link/i2c"
	"github.com/ZaparooProject/go-nfctag/link/uart"
	"github.com/ZaparooProject/go-nfctag/session"
	"github.com/ZaparooProject/go-nfctag/type4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type config struct {
	devicePath     *string
	i2cBus         *string
	i2cAddr        *uint
	text           *string
	uri            *string
	lang           *string
	frameDelay     *uint
	baudRate       *int
	requestTimeout *time.Duration
	list           *bool
	debug          *bool
}

func parseFlags(fs *flag.FlagSet, args []string) (*config, error) {
	cfg := &config{
		devicePath: fs.String("device", "", "Serial device of the bridge (e.g., /dev/ttyACM0 or COM3)"),
		i2cBus:     fs.String("i2c", "", "I2C bus of the bridge (e.g., /dev/i2c-1 or I2C1), instead of -device"),
		i2cAddr:    fs.Uint("i2c-addr", i2c.DefaultAddress, "7-bit I2C address of the bridge"),
		text:       fs.String("text", "", "Text record to serve"),
		uri:        fs.String("uri", "", "URI record to serve"),
		lang:       fs.String("lang", "en", "Language code of the text record"),
		frameDelay: fs.Uint("frame-delay", 0, "Maximum frame delay passed to the driver (0 keeps the driver default)"),
		baudRate:   fs.Int("baud", uart.DefaultBaudRate, "Serial line speed"),
		requestTimeout: fs.Duration("request-timeout", 2*time.Second,
			"How long to wait for the bridge to answer a syscall (0 waits forever)"),
		list:  fs.Bool("list", false, "List serial ports and I2C buses, then exit"),
		debug: fs.Bool("debug", false, "Enable debug output"),
	}
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}
	return cfg, nil
}

func (cfg *config) validate() error {
	if *cfg.list {
		return nil
	}
	switch {
	case *cfg.devicePath == "" && *cfg.i2cBus == "":
		return errors.New("one of -device or -i2c is required")
	case *cfg.devicePath != "" && *cfg.i2cBus != "":
		return errors.New("-device and -i2c are mutually exclusive")
	case *cfg.text == "" && *cfg.uri == "":
		return errors.New("one of -text or -uri is required")
	case *cfg.text != "" && *cfg.uri != "":
		return errors.New("-text and -uri are mutually exclusive")
	case *cfg.i2cAddr == 0 || *cfg.i2cAddr > 0x7F:
		return fmt.Errorf("invalid I2C address 0x%X", *cfg.i2cAddr)
	case uint64(*cfg.frameDelay) > uint64(^uint32(0)):
		return fmt.Errorf("frame delay %d out of range", *cfg.frameDelay)
	}
	return nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	zc := zap.NewDevelopmentConfig()
	zc.DisableStacktrace = true
	if !debug {
		zc.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

// openLink opens the serial or I2C link selected on the command line
func openLink(cfg *config) (io.ReadWriteCloser, error) {
	if *cfg.i2cBus != "" {
		link, err := i2c.Open(*cfg.i2cBus, uint16(*cfg.i2cAddr))
		if err != nil {
			return nil, fmt.Errorf("failed to open I2C link: %w", err)
		}
		return link, nil
	}

	link, err := uart.Open(*cfg.devicePath, uart.WithBaudRate(*cfg.baudRate))
	if err != nil {
		return nil, fmt.Errorf("failed to open UART link: %w", err)
	}
	return link, nil
}

func newHandler(cfg *config, logger *zap.Logger) (*type4.Tag, error) {
	opts := []type4.Option{type4.WithLogger(logger.Named("type4"))}
	if *cfg.uri != "" {
		return type4.NewURI(*cfg.uri, opts...)
	}
	return type4.NewText(*cfg.text, *cfg.lang, opts...)
}

func listDevices(w io.Writer) {
	ports, err := uart.ListPorts(nil)
	if err != nil {
		_, _ = fmt.Fprintf(w, "Serial ports: %v\n", err)
	} else {
		_, _ = fmt.Fprintf(w, "Serial ports (%d):\n", len(ports))
		for _, p := range ports {
			_, _ = fmt.Fprintf(w, "  %s\n", p)
		}
	}

	buses, err := i2c.ListBuses()
	if err != nil {
		_, _ = fmt.Fprintf(w, "I2C buses: %v\n", err)
		return
	}
	_, _ = fmt.Fprintf(w, "I2C buses (%d):\n", len(buses))
	for _, b := range buses {
		_, _ = fmt.Fprintf(w, "  %s\n", b)
	}
}

func run(ctx context.Context, cfg *config, logger *zap.Logger) error {
	handler, err := newHandler(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build tag: %w", err)
	}

	link, err := openLink(cfg)
	if err != nil {
		return err
	}

	kernel := bridge.New(link,
		bridge.WithLogger(logger.Named("bridge")),
		bridge.WithRequestTimeout(*cfg.requestTimeout))
	defer func() { _ = kernel.Close() }()

	tag, err := nfctag.New(kernel, nfctag.WithLogger(logger.Named("nfctag")))
	if err != nil {
		return fmt.Errorf("failed to create tag binding: %w", err)
	}

	sessionConfig := session.DefaultConfig()
	sessionConfig.Logger = logger.Named("session")
	sessionConfig.FrameDelayMax = uint32(*cfg.frameDelay)

	s, err := session.New(tag, handler, sessionConfig)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	logger.Info("emulating tag",
		zap.Int("records", len(handler.Message().Records)),
		zap.Int("ndef_bytes", len(handler.NDEFFile())-2))

	err = s.Run(ctx)
	m := s.GetMetrics()
	logger.Info("session ended",
		zap.Int64("selections", m.Selections),
		zap.Int64("frames_in", m.FramesIn),
		zap.Int64("frames_out", m.FramesOut),
		zap.Int64("errors", m.Errors))

	if errors.Is(err, context.Canceled) {
		return nil
	}
	if linkErr := kernel.Err(); linkErr != nil {
		return fmt.Errorf("%w (link: %w)", err, linkErr)
	}
	return err
}

func main() {
	cfg, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if *cfg.list {
		listDevices(os.Stdout)
		return
	}
	if err := cfg.validate(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%v\n\n", err)
		flag.Usage()
		os.Exit(2)
	}

	logger, err := newLogger(*cfg.debug)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	nfctag.SetLogger(logger)
	nfctag.SetDebugEnabled(*cfg.debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("tag emulation failed", zap.Error(err))
		stop()
		_ = logger.Sync()
		os.Exit(1)
	}
}
