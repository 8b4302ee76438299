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

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ZaparooProject/go-nfctag"
	"github.com/ZaparooProject/go-nfctag/internal/retry"
	"go.uber.org/zap"
)

// Handler implements the tag application served to the reader
type Handler interface {
	// OnSelected is called each time a reader selects the tag, before the
	// first frame is received
	OnSelected(ctx context.Context) error
	// HandleFrame returns the reply to a frame from the reader. An empty
	// reply sends nothing. Returning ErrDeselected ends the exchange after
	// the reply, if any, has been sent.
	HandleFrame(ctx context.Context, frame []byte) ([]byte, error)
}

// Session errors
var (
	ErrDeselected        = errors.New("tag deselected by reader")
	ErrDriverUnavailable = errors.New("NFC driver not available")
	ErrConfigureRejected = errors.New("driver rejected configuration")
	ErrAlreadyRunning    = errors.New("session is already running")
	ErrNilHandler        = errors.New("handler cannot be nil")
	ErrNilTag            = errors.New("tag cannot be nil")
	ErrFrameTooLong      = errors.New("received frame longer than the receive buffer")
)

// Metrics is a snapshot of the session counters
type Metrics struct {
	Selections int64 // Number of times a reader selected the tag
	FramesIn   int64 // Frames received from the reader
	FramesOut  int64 // Replies transmitted to the reader
	FieldLost  int64 // Exchanges ended by a failed reception or transmission
	Errors     int64 // Syscall and handler failures
}

// Session runs the emulation loop of one tag: it arms the driver, waits for
// a reader and relays frames between the reader and a Handler until the
// reader goes away, then arms the driver again.
type Session struct {
	tag      *nfctag.Tag
	handler  Handler
	config   *Config
	log      *zap.Logger
	cancel   context.CancelFunc
	done     chan struct{}
	err      error
	stopMu   sync.Mutex
	running  atomic.Bool
	state    atomic.Int32
	metrics  struct {
		selections atomic.Int64
		framesIn   atomic.Int64
		framesOut  atomic.Int64
		fieldLost  atomic.Int64
		errors     atomic.Int64
	}
}

// New creates a session serving handler on tag. A nil config means
// DefaultConfig.
func New(tag *nfctag.Tag, handler Handler, config *Config) (*Session, error) {
	if tag == nil {
		return nil, ErrNilTag
	}
	if handler == nil {
		return nil, ErrNilHandler
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Session{
		tag:     tag,
		handler: handler,
		config:  config,
		log:     config.logger(),
	}, nil
}

// State returns the current phase of the loop
func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(st State) {
	if State(s.state.Swap(int32(st))) != st {
		s.log.Debug("session state", zap.Stringer("state", st))
	}
}

// GetMetrics returns a snapshot of the session counters
func (s *Session) GetMetrics() Metrics {
	return Metrics{
		Selections: s.metrics.selections.Load(),
		FramesIn:   s.metrics.framesIn.Load(),
		FramesOut:  s.metrics.framesOut.Load(),
		FieldLost:  s.metrics.fieldLost.Load(),
		Errors:     s.metrics.errors.Load(),
	}
}

// Run drives the emulation loop until ctx is done. It returns
// ErrDriverUnavailable if the driver is still missing after the setup
// retries, ErrConfigureRejected if the driver refuses the configuration and
// ctx.Err() otherwise. Emulation is disabled before Run returns.
func (s *Session) Run(ctx context.Context) error {
	defer s.setState(StateStopped)

	if err := s.setup(ctx); err != nil {
		return err
	}
	if !s.tag.Configure(s.config.TagType) {
		return fmt.Errorf("%w: tag type %s", ErrConfigureRejected, s.config.TagType)
	}
	if s.config.FrameDelayMax != 0 && !s.tag.SetFrameDelayMax(s.config.FrameDelayMax) {
		return fmt.Errorf("%w: frame delay %d", ErrConfigureRejected, s.config.FrameDelayMax)
	}
	defer func() {
		if !s.tag.DisableEmulation() {
			s.log.Warn("failed to disable emulation")
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.setState(StateArming)
		if !s.tag.EnableEmulation() {
			s.metrics.errors.Add(1)
			s.log.Warn("driver refused to enable emulation")
			if err := s.pause(ctx); err != nil {
				return err
			}
			continue
		}

		s.setState(StateWaitingForReader)
		if !s.tag.SelectedContext(ctx) {
			if err := ctx.Err(); err != nil {
				return err
			}
			s.metrics.errors.Add(1)
			if err := s.pause(ctx); err != nil {
				return err
			}
			continue
		}
		s.metrics.selections.Add(1)
		s.log.Debug("tag selected by reader")

		if err := s.handler.OnSelected(ctx); err != nil {
			s.metrics.errors.Add(1)
			s.log.Warn("handler rejected selection", zap.Error(err))
			if err := s.pause(ctx); err != nil {
				return err
			}
			continue
		}

		s.setState(StateExchanging)
		if err := s.exchange(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			s.metrics.errors.Add(1)
			s.log.Warn("frame exchange failed", zap.Error(err))
			if err := s.pause(ctx); err != nil {
				return err
			}
		}
	}
}

// setup checks for the driver, retrying while it is missing
func (s *Session) setup(ctx context.Context) error {
	_, err := retry.Do(ctx, retry.Config{
		MaxRetries: s.config.SetupRetries,
		Delay:      s.config.RetryDelay,
		OnRetry: func(attempt int) error {
			s.log.Debug("NFC driver not answering, retrying", zap.Int("attempt", attempt))
			return nil
		},
	}, func(context.Context) (struct{}, bool, error) {
		return struct{}{}, !s.tag.Setup(), nil
	})
	if errors.Is(err, retry.ErrExhausted) {
		return ErrDriverUnavailable
	}
	return err
}

// exchange relays frames until the reader leaves the field or deselects
// the tag. It returns nil in both cases.
func (s *Session) exchange(ctx context.Context) error {
	var buf [nfctag.RecvBufferSize]byte
	for {
		op, err := s.tag.ReceiveContext(ctx, &buf)
		if err != nil {
			return err
		}
		if !op.ResultCode.IsSuccess() {
			s.metrics.fieldLost.Add(1)
			s.log.Debug("reader left the field", zap.Stringer("result", op.ResultCode))
			return nil
		}
		if op.Amount < 0 || op.Amount > len(buf) {
			return fmt.Errorf("%w: %d bytes", ErrFrameTooLong, op.Amount)
		}
		s.metrics.framesIn.Add(1)

		reply, handleErr := s.handler.HandleFrame(ctx, buf[:op.Amount])
		deselected := errors.Is(handleErr, ErrDeselected)
		if handleErr != nil && !deselected {
			return fmt.Errorf("handler: %w", handleErr)
		}

		if len(reply) > 0 {
			rc, err := s.tag.TransmitContext(ctx, reply, len(reply))
			if err != nil {
				return err
			}
			if !rc.IsSuccess() {
				s.metrics.fieldLost.Add(1)
				s.log.Debug("reply not delivered", zap.Stringer("result", rc))
				return nil
			}
			s.metrics.framesOut.Add(1)
		}

		if deselected {
			s.log.Debug("tag deselected")
			return nil
		}
	}
}

func (s *Session) pause(ctx context.Context) error {
	if s.config.RetryDelay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.config.RetryDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start runs the loop in a background goroutine
func (s *Session) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.stopMu.Lock()
	s.cancel = cancel
	s.done = done
	s.err = nil
	s.stopMu.Unlock()

	go func() {
		defer close(done)
		err := s.Run(runCtx)
		if err != nil && !errors.Is(err, context.Canceled) {
			s.log.Error("session stopped", zap.Error(err))
		}
		s.stopMu.Lock()
		s.err = err
		s.stopMu.Unlock()
		s.running.Store(false)
	}()

	return nil
}

// Stop cancels a loop started with Start and waits for it to finish. It
// returns the loop's error unless the loop ended by being stopped.
func (s *Session) Stop() error {
	s.stopMu.Lock()
	cancel, done := s.cancel, s.done
	s.stopMu.Unlock()
	if cancel == nil {
		return nil
	}

	cancel()
	<-done

	s.stopMu.Lock()
	defer s.stopMu.Unlock()
	if errors.Is(s.err, context.Canceled) {
		return nil
	}
	return s.err
}

// Done is closed when a loop started with Start has finished
func (s *Session) Done() <-chan struct{} {
	s.stopMu.Lock()
	defer s.stopMu.Unlock()
	return s.done
}

// IsRunning returns whether a loop started with Start is active
func (s *Session) IsRunning() bool {
	return s.running.Load()
}
