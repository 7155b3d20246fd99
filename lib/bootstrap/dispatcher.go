// Copyright 2026 The DC/OS Authors
// SPDX-License-Identifier: Apache-2.0

// Package bootstrap dispatches per-service provisioning routines that
// prepare a node before its DC/OS services start: private runtime
// directories with exact ownership, the token verification key, and
// cluster identity checks. Every handler requires root and converges
// to the same end state on rerun, so service units can invoke the
// dispatcher on every start.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/dcos/dcos-bootstrap/lib/jwks"
	"github.com/dcos/dcos-bootstrap/lib/roles"
	"github.com/dcos/dcos-bootstrap/lib/svcconfig"
)

// DefaultRunDir is the base directory for per-service runtime state.
const DefaultRunDir = "/run/dcos"

var (
	// ErrNotRoot reports an invocation without root privilege. Every
	// handler is gated on it, no-ops included.
	ErrNotRoot = errors.New("bootstrap must be run as root")

	// ErrUnknownService reports a service name with no registry entry.
	// Services with nothing to provision have explicit no-op entries,
	// so a lookup miss means a typo or a deployment mismatch.
	ErrUnknownService = errors.New("unknown service")
)

// Session derives the node's cluster identity. It is implemented by
// the cluster package's Bootstrapper; handlers treat it as read-mostly
// apart from the identifier derivation itself.
type Session interface {
	// ClusterID returns the cluster identifier, deriving and
	// persisting it on first use. Readonly callers only verify that
	// an identifier has already been established on this node.
	ClusterID(ctx context.Context, readonly bool) (string, error)
}

// Options carries the per-invocation inputs handlers may consult.
type Options struct {
	// Roles is the node's role set, resolved once at startup and
	// immutable for the process lifetime.
	Roles roles.Set
}

// handlerFunc provisions one service. Handlers must be idempotent:
// bootstrap reruns on every service start.
type handlerFunc func(ctx context.Context, session Session, options Options) error

// Config carries the dispatcher's collaborator endpoints and paths.
type Config struct {
	// RunDir is the base directory for per-service runtime state.
	// DefaultRunDir when empty.
	RunDir string

	// JWKSEndpoint is the local authority's signing key set URL.
	// jwks.DefaultEndpoint when empty.
	JWKSEndpoint string

	// Client fetches the signing key set. http.DefaultClient when nil.
	Client *http.Client

	// ServiceConfig applies per-service system configuration before
	// each handler runs. Nil skips that step.
	ServiceConfig *svcconfig.Applier

	// Logger receives progress records. slog.Default() when nil.
	Logger *slog.Logger
}

// Dispatcher routes service names to their provisioning handlers. The
// registry is fixed at construction; it is not safe to mutate after.
type Dispatcher struct {
	runDir        string
	jwksEndpoint  string
	client        *http.Client
	serviceConfig *svcconfig.Applier
	logger        *slog.Logger

	// euid reports the effective user id for the privilege gate. Nil
	// means os.Geteuid; tests substitute a fake.
	euid func() int

	handlers map[string]handlerFunc
}

// NewDispatcher builds the dispatcher and its service registry. Every
// registered handler is wrapped with the root privilege gate here, at
// construction, so no handler body can run unprivileged.
func NewDispatcher(cfg Config) *Dispatcher {
	d := &Dispatcher{
		runDir:        cfg.RunDir,
		jwksEndpoint:  cfg.JWKSEndpoint,
		client:        cfg.Client,
		serviceConfig: cfg.ServiceConfig,
		logger:        cfg.Logger,
	}
	if d.runDir == "" {
		d.runDir = DefaultRunDir
	}
	if d.jwksEndpoint == "" {
		d.jwksEndpoint = jwks.DefaultEndpoint
	}
	if d.client == nil {
		d.client = http.DefaultClient
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}

	d.handlers = map[string]handlerFunc{
		"dcos-adminrouter":             d.requireRoot(d.adminRouter),
		"dcos-bouncer":                 d.requireRoot(d.bouncer),
		"dcos-signal":                  d.requireRoot(d.signal),
		"dcos-diagnostics-master":      d.requireRoot(noop),
		"dcos-diagnostics-agent":       d.requireRoot(noop),
		"dcos-checks-master":           d.requireRoot(noop),
		"dcos-checks-agent":            d.requireRoot(noop),
		"dcos-fluent-bit-master":       d.requireRoot(noop),
		"dcos-fluent-bit-agent":        d.requireRoot(noop),
		"dcos-marathon":                d.requireRoot(noop),
		"dcos-mesos-master":            d.requireRoot(noop),
		"dcos-mesos-slave":             d.requireRoot(noop),
		"dcos-mesos-slave-public":      d.requireRoot(noop),
		"dcos-cosmos":                  d.requireRoot(noop),
		"dcos-cockroach":               d.requireRoot(noop),
		"dcos-cockroach-config-change": d.requireRoot(d.cockroachConfigChange),
		"dcos-metronome":               d.requireRoot(noop),
		"dcos-mesos-dns":               d.requireRoot(noop),
		"dcos-net":                     d.requireRoot(d.network),
		"dcos-telegraf-master":         d.requireRoot(d.telegrafMaster),
		"dcos-telegraf-agent":          d.requireRoot(d.telegrafAgent),
		"dcos-ui-update-service":       d.requireRoot(noop),
	}
	return d
}

// requireRoot wraps a handler so the privilege check runs before any
// handler body. Handlers mutate system paths and service ownership;
// a partial unprivileged run would leave half-converged state.
func (d *Dispatcher) requireRoot(handler handlerFunc) handlerFunc {
	return func(ctx context.Context, session Session, options Options) error {
		euid := d.euid
		if euid == nil {
			euid = os.Geteuid
		}
		if euid() != 0 {
			return ErrNotRoot
		}
		return handler(ctx, session, options)
	}
}

// Run provisions the requested services strictly in the order given.
// The first failure aborts the whole batch: an unknown name or a
// failed handler indicates a misconfigured deployment, and continuing
// would start services on top of unprovisioned state.
func (d *Dispatcher) Run(ctx context.Context, session Session, options Options, services []string) error {
	for _, service := range services {
		handler, ok := d.handlers[service]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownService, service)
		}
		if d.serviceConfig != nil {
			if err := d.serviceConfig.Apply(service); err != nil {
				return fmt.Errorf("applying service configuration for %s: %w", service, err)
			}
		}
		d.logger.Info("bootstrapping service", "service", service)
		if err := handler(ctx, session, options); err != nil {
			return fmt.Errorf("bootstrapping %s: %w", service, err)
		}
	}
	return nil
}

// noop is the explicit handler for services with nothing to provision.
// Registry presence distinguishes "intentionally nothing to do" from
// an unknown name.
func noop(ctx context.Context, session Session, options Options) error {
	return nil
}
