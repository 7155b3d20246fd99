// Copyright 2026 The DC/OS Authors
// SPDX-License-Identifier: Apache-2.0

// Package cluster derives and persists the cluster identifier. The
// first master to bootstrap proposes a fresh UUID to ZooKeeper; every
// node thereafter adopts the stored value, so concurrent master
// bootstraps converge on one identifier. The winning value persists in
// a node-local file that later runs and read-only callers (agents)
// consult without touching ZooKeeper.
package cluster

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/go-zookeeper/zk"
	"github.com/google/uuid"

	"github.com/dcos/dcos-bootstrap/lib/fsutil"
)

// DefaultIDPath is where the cluster identifier persists on a node.
const DefaultIDPath = "/var/lib/dcos/cluster-id"

// idZNode is the ZooKeeper node holding the cluster-wide identifier.
const idZNode = "/cluster-id"

// consensus is the create-or-read primitive the Bootstrapper needs
// from ZooKeeper. Tests substitute a fake.
type consensus interface {
	// ensureValue writes proposed to znode if the znode does not
	// exist, then returns the stored value, which wins over the
	// proposal when another writer got there first.
	ensureValue(znode string, proposed []byte) ([]byte, error)
}

// Bootstrapper is the session handed to every bootstrap handler. It is
// not safe for concurrent use; the dispatcher runs handlers strictly
// in sequence.
type Bootstrapper struct {
	idPath    string
	logger    *slog.Logger
	consensus consensus
	cached    string
}

// New returns a session that derives the cluster identifier through
// the ZooKeeper ensemble at zkAddress (a host:port list) and persists
// it at idPath.
func New(zkAddress, idPath string, sessionTimeout time.Duration, logger *slog.Logger) *Bootstrapper {
	return &Bootstrapper{
		idPath: idPath,
		logger: logger,
		consensus: &zkConsensus{
			address: zkAddress,
			timeout: sessionTimeout,
		},
	}
}

// ClusterID returns the cluster identifier, deriving it on first use.
// The node-local file always wins when present. Read-only callers
// never contact ZooKeeper: a missing file means cluster bootstrap has
// not progressed far enough, which is an error they surface rather
// than repair.
//
// The context is accepted for interface symmetry with the HTTP-backed
// collaborators; the underlying ZooKeeper client bounds its own waits
// with the configured session timeout.
func (b *Bootstrapper) ClusterID(ctx context.Context, readonly bool) (string, error) {
	if b.cached != "" {
		return b.cached, nil
	}

	id, err := fsutil.ReadFileLine(b.idPath)
	switch {
	case err == nil && id != "":
		b.cached = id
		return id, nil
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("reading cluster id: %w", err)
	}

	if readonly {
		return "", fmt.Errorf("cluster id %s not present yet; a master must complete bootstrap first", b.idPath)
	}

	proposal, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generating cluster id proposal: %w", err)
	}
	winner, err := b.consensus.ensureValue(idZNode, []byte(proposal.String()))
	if err != nil {
		return "", fmt.Errorf("agreeing on cluster id: %w", err)
	}

	id = strings.TrimSpace(string(winner))
	if id == "" {
		return "", errors.New("coordination service returned an empty cluster id")
	}
	if err := fsutil.WriteFileAtomic(b.idPath, []byte(id+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("persisting cluster id: %w", err)
	}

	b.logger.Info("cluster id established", "cluster_id", id)
	b.cached = id
	return id, nil
}

// zkConsensus implements consensus against a real ZooKeeper ensemble.
// Each call opens a fresh session; bootstrap needs at most one.
type zkConsensus struct {
	address string
	timeout time.Duration
}

func (z *zkConsensus) ensureValue(znode string, proposed []byte) ([]byte, error) {
	conn, _, err := zk.Connect(strings.Split(z.address, ","), z.timeout, zk.WithLogInfo(false))
	if err != nil {
		return nil, fmt.Errorf("connecting to ZooKeeper at %s: %w", z.address, err)
	}
	defer conn.Close()

	_, err = conn.Create(znode, proposed, 0, zk.WorldACL(zk.PermAll))
	if err != nil && !errors.Is(err, zk.ErrNodeExists) {
		return nil, fmt.Errorf("creating %s: %w", znode, err)
	}

	value, _, err := conn.Get(znode)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", znode, err)
	}
	return value, nil
}
