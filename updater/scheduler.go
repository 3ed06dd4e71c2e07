/*
 * Cherry - An OpenFlow Controller
 *
 * Copyright (C) 2015 Samjung Data Service, Inc. All rights reserved.
 * Kitae Kim <superkkt@sds.co.kr>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation; either version 2 of the License, or
 * any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License along
 * with this program; if not, write to the Free Software Foundation, Inc.,
 * 51 Franklin Street, Fifth Floor, Boston, MA 02110-1301 USA.
 */

package updater

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/superkkt/netstate/database"
	"github.com/superkkt/netstate/network"

	"github.com/pkg/errors"
)

const defaultInterval = 60 * time.Second

// Cycler executes one poll cycle.
type Cycler interface {
	Update(ctx context.Context) (changed bool, err error)
}

type State int

const (
	StateIdle State = iota
	StateRunning
	StateStopping
	StateStopped
)

func (r State) String() string {
	switch r {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("unknown(%d)", int(r))
	}
}

// Scheduler runs poll cycles on its own goroutine, sleeping interval between
// them. A stopped scheduler can be started again.
type Scheduler struct {
	cycler   Cycler
	interval time.Duration

	mutex sync.Mutex
	state State
	quit  chan struct{}
	done  chan struct{}
}

func NewScheduler(cycler Cycler, interval time.Duration) *Scheduler {
	if cycler == nil {
		panic("nil cycler")
	}
	if interval <= 0 {
		interval = defaultInterval
	}

	return &Scheduler{
		cycler:   cycler,
		interval: interval,
		state:    StateIdle,
	}
}

func (r *Scheduler) State() State {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return r.state
}

// Start begins the poll loop, which runs the first cycle immediately. The loop
// also exits when ctx is canceled. Starting a running scheduler is an error.
func (r *Scheduler) Start(ctx context.Context) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.state == StateRunning || r.state == StateStopping {
		return &LifecycleError{Op: "start", Reason: fmt.Sprintf("scheduler is %v", r.state)}
	}
	r.quit = make(chan struct{})
	r.done = make(chan struct{})
	r.state = StateRunning
	go r.run(ctx, r.quit, r.done)
	logger.Infof("scheduler started: interval=%v", r.interval)

	return nil
}

// Stop signals the poll loop to exit and blocks until it has exited. A cycle
// in progress is not interrupted, so no store mutation occurs after Stop returns.
func (r *Scheduler) Stop() {
	r.mutex.Lock()
	switch r.state {
	case StateRunning:
		r.state = StateStopping
		close(r.quit)
	case StateStopping:
		// Another caller is stopping the loop. Wait for it as well.
	default:
		r.mutex.Unlock()
		return
	}
	done := r.done
	r.mutex.Unlock()

	<-done
	logger.Info("scheduler stopped")
}

func (r *Scheduler) run(ctx context.Context, quit, done chan struct{}) {
	defer func() {
		r.mutex.Lock()
		r.state = StateStopped
		r.mutex.Unlock()
		close(done)
	}()

	for {
		r.cycle(ctx)

		// Exit before sleeping if the stop signal has been raised.
		select {
		case <-quit:
			return
		default:
		}

		timer := time.NewTimer(r.interval)
		// Wait the stop signal, the context cancels or the timer rasises.
		select {
		case <-quit:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			logger.Infof("scheduler exits: %v", ctx.Err())
			return
		case <-timer.C:
		}
	}
}

// cycle runs one poll cycle. An error or a panic only skips this cycle.
func (r *Scheduler) cycle(ctx context.Context) {
	defer func() {
		if v := recover(); v != nil {
			cyclesTotal.WithLabelValues(outcomePanic).Inc()
			err := &LifecycleError{Op: "cycle", Reason: fmt.Sprintf("panic: %v", v)}
			logger.Criticalf("%v\n%s", err, debug.Stack())
		}
	}()

	changed, err := r.cycler.Update(ctx)
	if err != nil {
		var retrieval *network.RetrievalError
		var bulk *database.BulkError
		switch {
		case errors.As(err, &retrieval):
			cyclesTotal.WithLabelValues(outcomeRetrieval).Inc()
			logger.Errorf("poll cycle aborted: %v", err)
		case errors.As(err, &bulk):
			cyclesTotal.WithLabelValues(outcomeStore).Inc()
			logger.Errorf("poll cycle partially failed: %v", err)
		default:
			cyclesTotal.WithLabelValues(outcomeError).Inc()
			logger.Errorf("poll cycle failed: %v", err)
		}
		return
	}

	if changed {
		cyclesTotal.WithLabelValues(outcomeChanged).Inc()
	} else {
		cyclesTotal.WithLabelValues(outcomeUnchanged).Inc()
	}
}
