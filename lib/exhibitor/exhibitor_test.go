// Copyright 2026 The DC/OS Authors
// SPDX-License-Identifier: Apache-2.0

package exhibitor

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dcos/dcos-bootstrap/lib/clock"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeMasterCount(t *testing.T, value string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "master_count")
	if err := os.WriteFile(path, []byte(value), 0o644); err != nil {
		t.Fatalf("writing master count: %v", err)
	}
	return path
}

// statusSequence serves one canned response per poll, repeating the
// last one once the sequence is exhausted.
type statusSequence struct {
	mu        sync.Mutex
	responses [][]nodeStatus
	calls     int
}

func (s *statusSequence) handler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	index := s.calls
	if index >= len(s.responses) {
		index = len(s.responses) - 1
	}
	s.calls++
	response := s.responses[index]
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func (s *statusSequence) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func serving(hostname string, leader bool) nodeStatus {
	return nodeStatus{Hostname: hostname, Description: "serving", IsLeader: leader, Code: 3}
}

func TestWaitImmediateSuccess(t *testing.T) {
	sequence := &statusSequence{responses: [][]nodeStatus{
		{serving("10.0.0.1", true), serving("10.0.0.2", false), serving("10.0.0.3", false)},
	}}
	server := httptest.NewServer(http.HandlerFunc(sequence.handler))
	defer server.Close()

	w := &Waiter{
		Client:    server.Client(),
		StatusURL: server.URL,
		Interval:  time.Second,
		Clock:     clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
		Logger:    discardLogger(),
	}
	if err := w.Wait(context.Background(), writeMasterCount(t, "3\n")); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if got := sequence.callCount(); got != 1 {
		t.Errorf("polls = %d, want 1", got)
	}
}

// The wait must keep polling through partial membership, missing
// leadership, and non-serving members until the ensemble converges.
func TestWaitConvergesAfterRetries(t *testing.T) {
	sequence := &statusSequence{responses: [][]nodeStatus{
		{serving("10.0.0.1", true)},
		{serving("10.0.0.1", false), serving("10.0.0.2", false), serving("10.0.0.3", false)},
		{serving("10.0.0.1", true), serving("10.0.0.2", false), {Hostname: "10.0.0.3", Description: "latent"}},
		{serving("10.0.0.1", true), serving("10.0.0.2", false), serving("10.0.0.3", false)},
	}}
	server := httptest.NewServer(http.HandlerFunc(sequence.handler))
	defer server.Close()

	fakeClock := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	w := &Waiter{
		Client:    server.Client(),
		StatusURL: server.URL,
		Interval:  2 * time.Second,
		Clock:     fakeClock,
		Logger:    discardLogger(),
	}

	done := make(chan error, 1)
	go func() { done <- w.Wait(context.Background(), writeMasterCount(t, "3")) }()

	for i := 0; i < 3; i++ {
		fakeClock.WaitForTimers(1)
		fakeClock.Advance(2 * time.Second)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Wait: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Wait did not return after the ensemble converged")
	}
	if got := sequence.callCount(); got != 4 {
		t.Errorf("polls = %d, want 4", got)
	}
}

func TestWaitRetriesEndpointErrors(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		failing := calls == 1
		mu.Unlock()
		if failing {
			http.Error(w, "starting up", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode([]nodeStatus{serving("10.0.0.1", true)})
	}))
	defer server.Close()

	fakeClock := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	w := &Waiter{
		Client:    server.Client(),
		StatusURL: server.URL,
		Interval:  time.Second,
		Clock:     fakeClock,
		Logger:    discardLogger(),
	}

	done := make(chan error, 1)
	go func() { done <- w.Wait(context.Background(), writeMasterCount(t, "1")) }()

	fakeClock.WaitForTimers(1)
	fakeClock.Advance(time.Second)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Wait: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Wait did not recover from the endpoint error")
	}
}

func TestWaitContextCanceled(t *testing.T) {
	// One member reporting, three expected: never converges.
	sequence := &statusSequence{responses: [][]nodeStatus{
		{serving("10.0.0.1", true)},
	}}
	server := httptest.NewServer(http.HandlerFunc(sequence.handler))
	defer server.Close()

	fakeClock := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	ctx, cancel := context.WithCancel(context.Background())
	w := &Waiter{
		Client:    server.Client(),
		StatusURL: server.URL,
		Interval:  time.Second,
		Clock:     fakeClock,
		Logger:    discardLogger(),
	}

	done := make(chan error, 1)
	go func() { done <- w.Wait(ctx, writeMasterCount(t, "3")) }()

	fakeClock.WaitForTimers(1)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Wait error = %v, want context.Canceled", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Wait did not return after cancellation")
	}
}

func TestWaitMissingMasterCount(t *testing.T) {
	w := &Waiter{Logger: discardLogger(), Clock: clock.Fake(time.Now())}
	err := w.Wait(context.Background(), filepath.Join(t.TempDir(), "absent"))
	if err == nil {
		t.Fatal("Wait succeeded without a master-count file, want error")
	}
}

func TestWaitMalformedMasterCount(t *testing.T) {
	w := &Waiter{Logger: discardLogger(), Clock: clock.Fake(time.Now())}
	err := w.Wait(context.Background(), writeMasterCount(t, "three"))
	if err == nil {
		t.Fatal("Wait succeeded with malformed master count, want error")
	}
}
