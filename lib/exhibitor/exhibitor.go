// Copyright 2026 The DC/OS Authors
// SPDX-License-Identifier: Apache-2.0

// Package exhibitor waits for the ZooKeeper ensemble on a master node.
// Exhibitor supervises ZooKeeper and exposes a status endpoint listing
// every ensemble member; bootstrap blocks until the ensemble has the
// expected number of members, all of them serving, with a single
// elected leader. Retry lives here and only here; the downstream
// bootstrap steps treat the coordination service as ready.
package exhibitor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dcos/dcos-bootstrap/lib/clock"
	"github.com/dcos/dcos-bootstrap/lib/fsutil"
	"github.com/dcos/dcos-bootstrap/lib/netutil"
)

// DefaultStatusURL is Exhibitor's cluster status endpoint on the local
// master.
const DefaultStatusURL = "http://127.0.0.1:8181/exhibitor/v1/cluster/status"

// DefaultPollInterval is the pause between status polls.
const DefaultPollInterval = 2 * time.Second

// DefaultMasterCountPath records the expected ensemble size, written
// at install time.
const DefaultMasterCountPath = "/opt/mesosphere/etc/master_count"

// nodeStatus is one ensemble member in the status response.
type nodeStatus struct {
	Hostname    string `json:"hostname"`
	Description string `json:"description"`
	IsLeader    bool   `json:"isLeader"`
	Code        int    `json:"code"`
}

// Waiter polls Exhibitor until the ensemble converges. Zero-value
// fields fall back to defaults when Wait is called.
type Waiter struct {
	Client    *http.Client
	StatusURL string
	Interval  time.Duration
	Clock     clock.Clock
	Logger    *slog.Logger
}

// Wait reads the expected ensemble size from the master-count file and
// polls the status endpoint until the ensemble reaches that size with
// every member serving and exactly one leader. It retries indefinitely
// on unreachable or unready states; cancellation comes from the
// context. A missing or malformed master-count file is an immediate
// error: the node is misconfigured, not slow.
func (w *Waiter) Wait(ctx context.Context, masterCountPath string) error {
	if w.Client == nil {
		w.Client = http.DefaultClient
	}
	if w.StatusURL == "" {
		w.StatusURL = DefaultStatusURL
	}
	if w.Interval <= 0 {
		w.Interval = DefaultPollInterval
	}
	if w.Clock == nil {
		w.Clock = clock.Real()
	}
	if w.Logger == nil {
		w.Logger = slog.Default()
	}

	line, err := fsutil.ReadFileLine(masterCountPath)
	if err != nil {
		return fmt.Errorf("reading master count: %w", err)
	}
	clusterSize, err := strconv.Atoi(line)
	if err != nil {
		return fmt.Errorf("parsing master count %q from %s: %w", line, masterCountPath, err)
	}

	w.Logger.Info("waiting for ZooKeeper ensemble",
		"expected_members", clusterSize, "status_url", w.StatusURL)

	for {
		ready, state, err := w.check(ctx, clusterSize)
		switch {
		case err != nil:
			w.Logger.Info("Exhibitor not reachable yet", "error", err)
		case ready:
			w.Logger.Info("ZooKeeper ensemble ready", "members", clusterSize)
			return nil
		default:
			w.Logger.Info("ZooKeeper ensemble not ready yet", "state", state)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for ZooKeeper ensemble: %w", ctx.Err())
		case <-w.Clock.After(w.Interval):
		}
	}
}

// check performs one status poll. The error return covers transport
// and decode failures; an unready ensemble is reported through the
// state string instead so the caller logs it differently.
func (w *Waiter) check(ctx context.Context, clusterSize int) (bool, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.StatusURL, nil)
	if err != nil {
		return false, "", fmt.Errorf("building status request: %w", err)
	}
	resp, err := w.Client.Do(req)
	if err != nil {
		return false, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, "", fmt.Errorf("status endpoint returned %s: %s",
			resp.Status, netutil.ErrorBody(resp.Body))
	}

	var members []nodeStatus
	if err := netutil.DecodeResponse(resp.Body, &members); err != nil {
		return false, "", fmt.Errorf("decoding status response: %w", err)
	}

	if len(members) != clusterSize {
		return false, fmt.Sprintf("%d of %d members reporting", len(members), clusterSize), nil
	}
	serving, leaders := 0, 0
	for _, member := range members {
		if member.Description == "serving" {
			serving++
		}
		if member.IsLeader {
			leaders++
		}
	}
	if serving != clusterSize {
		return false, fmt.Sprintf("%d of %d members serving", serving, clusterSize), nil
	}
	if leaders != 1 {
		return false, fmt.Sprintf("%d leaders elected", leaders), nil
	}
	return true, "", nil
}
