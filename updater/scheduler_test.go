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
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

type blockingCycler struct {
	started  chan struct{}
	release  chan struct{}
	finished int32
}

func newBlockingCycler() *blockingCycler {
	return &blockingCycler{
		started: make(chan struct{}, 16),
		release: make(chan struct{}),
	}
}

func (r *blockingCycler) Update(ctx context.Context) (bool, error) {
	r.started <- struct{}{}
	<-r.release
	atomic.AddInt32(&r.finished, 1)

	return true, nil
}

func (r *blockingCycler) count() int {
	return int(atomic.LoadInt32(&r.finished))
}

func waitState(t *testing.T, s *Scheduler, expected State) {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if s.State() == expected {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("unexpected scheduler state: expected=%v, got=%v", expected, s.State())
}

func TestSchedulerStopWaitsCycle(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := newBlockingCycler()
	s := NewScheduler(c, time.Hour)
	if s.State() != StateIdle {
		t.Fatalf("unexpected initial state: %v", s.State())
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	<-c.started

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	waitState(t, s, StateStopping)
	select {
	case <-stopped:
		t.Fatal("stop returned while a cycle is in progress")
	case <-time.After(50 * time.Millisecond):
	}

	c.release <- struct{}{}
	<-stopped
	if c.count() != 1 {
		t.Fatalf("unexpected number of cycles: %v", c.count())
	}
	if s.State() != StateStopped {
		t.Fatalf("unexpected state: %v", s.State())
	}

	// No more cycles after stop.
	time.Sleep(20 * time.Millisecond)
	if len(c.started) != 0 || c.count() != 1 {
		t.Fatalf("cycle executed after stop")
	}

	// Restart.
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	<-c.started
	c.release <- struct{}{}
	s.Stop()
	if c.count() != 2 {
		t.Fatalf("unexpected number of cycles: %v", c.count())
	}
}

func TestSchedulerDoubleStart(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := newBlockingCycler()
	close(c.release)
	s := NewScheduler(c, time.Hour)
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	err := s.Start(context.Background())
	var e *LifecycleError
	if !errors.As(err, &e) {
		t.Fatalf("expected lifecycle error, got=%v", err)
	}
}

func TestSchedulerStopIdle(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewScheduler(newBlockingCycler(), 0)
	if s.interval != defaultInterval {
		t.Fatalf("unexpected default interval: %v", s.interval)
	}
	// Must not block.
	s.Stop()
	if s.State() != StateIdle {
		t.Fatalf("unexpected state: %v", s.State())
	}
}

func TestSchedulerContextCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := newBlockingCycler()
	close(c.release)
	s := NewScheduler(c, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	<-c.started
	cancel()
	waitState(t, s, StateStopped)
	// Stopping a stopped scheduler is a no-op.
	s.Stop()
}

type panicCycler struct {
	calls int32
}

func (r *panicCycler) Update(ctx context.Context) (bool, error) {
	atomic.AddInt32(&r.calls, 1)
	panic("unexpected nil pointer")
}

type errorCycler struct {
	calls int32
}

func (r *errorCycler) Update(ctx context.Context) (bool, error) {
	atomic.AddInt32(&r.calls, 1)
	return false, errors.New("connection refused")
}

func TestSchedulerSurvivesFailures(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := &panicCycler{}
	e := &errorCycler{}
	for _, c := range []Cycler{p, e} {
		s := NewScheduler(c, time.Millisecond)
		if err := s.Start(context.Background()); err != nil {
			t.Fatal(err)
		}
		time.Sleep(30 * time.Millisecond)
		if s.State() != StateRunning {
			t.Fatalf("unexpected state: %v", s.State())
		}
		s.Stop()
	}

	if atomic.LoadInt32(&p.calls) < 2 || atomic.LoadInt32(&e.calls) < 2 {
		t.Fatalf("expected repeated cycles: panic=%v, error=%v", p.calls, e.calls)
	}
}
