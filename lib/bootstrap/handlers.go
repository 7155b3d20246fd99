// Copyright 2026 The DC/OS Authors
// SPDX-License-Identifier: Apache-2.0

package bootstrap

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dcos/dcos-bootstrap/lib/provision"
	"github.com/dcos/dcos-bootstrap/lib/roles"
)

// Service users owning provisioned state. Variables rather than
// constants to allow test overrides.
var (
	bouncerUser   = "dcos_bouncer"
	cockroachUser = "dcos_cockroach"
)

// adminRouter publishes the token verification key for the edge proxy.
// The cluster identifier is derived first purely to confirm that
// cluster bootstrap has progressed far enough for the authority
// service to hold an agreed signing key.
func (d *Dispatcher) adminRouter(ctx context.Context, session Session, options Options) error {
	if _, err := session.ClusterID(ctx, false); err != nil {
		return err
	}
	return d.publishVerificationKey(ctx)
}

// bouncer provisions the identity service's runtime and temp
// directories. The temp directory holds sensitive session state and
// compiled helpers, so it lives under the exec-enabled base with
// access restricted to the service user.
func (d *Dispatcher) bouncer(ctx context.Context, session Session, options Options) error {
	runtimeDir := filepath.Join(d.runDir, "dcos-bouncer")
	if err := provision.EnsureDirectory(runtimeDir); err != nil {
		return err
	}
	if err := provision.Chown(runtimeDir, bouncerUser); err != nil {
		return fmt.Errorf("assigning %s to %s: %w", runtimeDir, bouncerUser, err)
	}

	execBase, err := provision.KnownExecDirectory()
	if err != nil {
		return err
	}
	// Matches the TMPDIR configured in the bouncer's service unit.
	return provision.EnsurePrivateDirectory(filepath.Join(execBase, bouncerUser), bouncerUser)
}

// cockroachConfigChange provisions the private temp directory the
// database reconfiguration unit runs out of.
func (d *Dispatcher) cockroachConfigChange(ctx context.Context, session Session, options Options) error {
	execBase, err := provision.KnownExecDirectory()
	if err != nil {
		return err
	}
	return provision.EnsurePrivateDirectory(filepath.Join(execBase, cockroachUser), cockroachUser)
}

// signal confirms cluster identity for the telemetry reporter.
func (d *Dispatcher) signal(ctx context.Context, session Session, options Options) error {
	_, err := session.ClusterID(ctx, false)
	return err
}

// network handles the overlay network daemon, which runs on every
// node: masters establish the cluster identifier, agents only verify
// one has been persisted locally.
func (d *Dispatcher) network(ctx context.Context, session Session, options Options) error {
	_, err := session.ClusterID(ctx, !options.Roles.Has(roles.Master))
	return err
}

// telegrafMaster establishes the cluster identifier the metrics
// pipeline tags its series with.
func (d *Dispatcher) telegrafMaster(ctx context.Context, session Session, options Options) error {
	_, err := session.ClusterID(ctx, false)
	return err
}

// telegrafAgent verifies the cluster identifier without contacting
// the coordination service; agents never create it.
func (d *Dispatcher) telegrafAgent(ctx context.Context, session Session, options Options) error {
	_, err := session.ClusterID(ctx, true)
	return err
}
