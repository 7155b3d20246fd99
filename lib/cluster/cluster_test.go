// Copyright 2026 The DC/OS Authors
// SPDX-License-Identifier: Apache-2.0

package cluster

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

// fakeConsensus records proposals and returns a canned winner.
type fakeConsensus struct {
	winner    string
	err       error
	calls     int
	lastZNode string
	proposed  []byte
}

func (f *fakeConsensus) ensureValue(znode string, proposed []byte) ([]byte, error) {
	f.calls++
	f.lastZNode = znode
	f.proposed = proposed
	if f.err != nil {
		return nil, f.err
	}
	if f.winner != "" {
		return []byte(f.winner), nil
	}
	return proposed, nil
}

func newTestBootstrapper(t *testing.T, fake *fakeConsensus) *Bootstrapper {
	t.Helper()
	b := New("127.0.0.1:2181", filepath.Join(t.TempDir(), "cluster-id"), 0, slog.New(slog.NewTextHandler(io.Discard, nil)))
	b.consensus = fake
	return b
}

func TestClusterIDFromExistingFile(t *testing.T) {
	fake := &fakeConsensus{}
	b := newTestBootstrapper(t, fake)
	if err := os.WriteFile(b.idPath, []byte("existing-id\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	id, err := b.ClusterID(context.Background(), false)
	if err != nil {
		t.Fatalf("ClusterID: %v", err)
	}
	if id != "existing-id" {
		t.Errorf("id = %q, want %q", id, "existing-id")
	}
	if fake.calls != 0 {
		t.Errorf("consensus called %d times, want 0", fake.calls)
	}
}

func TestClusterIDReadonlyMissingFile(t *testing.T) {
	fake := &fakeConsensus{}
	b := newTestBootstrapper(t, fake)

	if _, err := b.ClusterID(context.Background(), true); err == nil {
		t.Fatal("ClusterID succeeded without a cluster id file in readonly mode")
	}
	if fake.calls != 0 {
		t.Errorf("consensus called %d times in readonly mode, want 0", fake.calls)
	}
}

func TestClusterIDDerivesAndPersists(t *testing.T) {
	fake := &fakeConsensus{winner: "winning-id"}
	b := newTestBootstrapper(t, fake)

	id, err := b.ClusterID(context.Background(), false)
	if err != nil {
		t.Fatalf("ClusterID: %v", err)
	}
	if id != "winning-id" {
		t.Errorf("id = %q, want %q", id, "winning-id")
	}
	if fake.lastZNode != "/cluster-id" {
		t.Errorf("znode = %q, want %q", fake.lastZNode, "/cluster-id")
	}

	data, err := os.ReadFile(b.idPath)
	if err != nil {
		t.Fatalf("reading persisted id: %v", err)
	}
	if string(data) != "winning-id\n" {
		t.Errorf("persisted %q, want %q", data, "winning-id\n")
	}
	info, err := os.Stat(b.idPath)
	if err != nil {
		t.Fatal(err)
	}
	if got := info.Mode().Perm(); got != 0o644 {
		t.Errorf("mode = %v, want 0644", got)
	}
}

func TestClusterIDProposesUUID(t *testing.T) {
	fake := &fakeConsensus{}
	b := newTestBootstrapper(t, fake)

	id, err := b.ClusterID(context.Background(), false)
	if err != nil {
		t.Fatalf("ClusterID: %v", err)
	}
	parsed, err := uuid.Parse(string(fake.proposed))
	if err != nil {
		t.Fatalf("proposal %q is not a UUID: %v", fake.proposed, err)
	}
	if id != parsed.String() {
		t.Errorf("id = %q, want the proposal %q back when no other writer won", id, parsed)
	}
}

func TestClusterIDCachesAcrossCalls(t *testing.T) {
	fake := &fakeConsensus{winner: "cached-id"}
	b := newTestBootstrapper(t, fake)

	for i := 0; i < 3; i++ {
		id, err := b.ClusterID(context.Background(), false)
		if err != nil {
			t.Fatalf("ClusterID call %d: %v", i, err)
		}
		if id != "cached-id" {
			t.Errorf("call %d: id = %q, want %q", i, id, "cached-id")
		}
	}
	if fake.calls != 1 {
		t.Errorf("consensus called %d times, want 1", fake.calls)
	}
}

func TestClusterIDConsensusFailure(t *testing.T) {
	fake := &fakeConsensus{err: errors.New("no quorum")}
	b := newTestBootstrapper(t, fake)

	if _, err := b.ClusterID(context.Background(), false); err == nil {
		t.Fatal("ClusterID succeeded despite consensus failure")
	}
	if _, err := os.Stat(b.idPath); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("cluster id file written despite consensus failure: %v", err)
	}
}

func TestClusterIDEmptyFileRegenerates(t *testing.T) {
	fake := &fakeConsensus{winner: "regenerated-id"}
	b := newTestBootstrapper(t, fake)
	if err := os.WriteFile(b.idPath, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	id, err := b.ClusterID(context.Background(), false)
	if err != nil {
		t.Fatalf("ClusterID: %v", err)
	}
	if id != "regenerated-id" {
		t.Errorf("id = %q, want %q", id, "regenerated-id")
	}
	if fake.calls != 1 {
		t.Errorf("consensus called %d times, want 1", fake.calls)
	}
}

func TestClusterIDEmptyFileReadonlyFails(t *testing.T) {
	fake := &fakeConsensus{}
	b := newTestBootstrapper(t, fake)
	if err := os.WriteFile(b.idPath, []byte("\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := b.ClusterID(context.Background(), true); err == nil {
		t.Fatal("ClusterID succeeded on an empty cluster id file in readonly mode")
	}
	if fake.calls != 0 {
		t.Errorf("consensus called %d times in readonly mode, want 0", fake.calls)
	}
}
