// Copyright 2026 The DC/OS Authors
// SPDX-License-Identifier: Apache-2.0

// Dcos-bootstrap prepares a node for its DC/OS services. Service units
// invoke it as a pre-start step, as root, with their service names as
// arguments; it runs once and exits.
//
// On startup:
//  1. Clears proxy environment variables; every endpoint bootstrap
//     talks to is node-local.
//  2. Reads the node's role markers and resolves the coordination
//     service address from them (overridable with --zk).
//  3. On masters, waits for the coordination quorum to converge.
//  4. Opens the cluster session and dispatches each requested service
//     to its provisioning handler.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/dcos/dcos-bootstrap/lib/bootstrap"
	"github.com/dcos/dcos-bootstrap/lib/cluster"
	"github.com/dcos/dcos-bootstrap/lib/config"
	"github.com/dcos/dcos-bootstrap/lib/exhibitor"
	"github.com/dcos/dcos-bootstrap/lib/roles"
	"github.com/dcos/dcos-bootstrap/lib/svcconfig"
	"github.com/dcos/dcos-bootstrap/lib/version"
	"github.com/dcos/dcos-bootstrap/lib/zkaddr"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		zkAddress       string
		masterCountPath string
		configPath      string
		verbose         bool
		showVersion     bool
	)

	flagSet := pflag.NewFlagSet("dcos-bootstrap", pflag.ContinueOnError)
	flagSet.StringVar(&zkAddress, "zk", "", "host:port list for the ZooKeeper client (default: resolved from the node's role)")
	flagSet.StringVar(&masterCountPath, "master-count", exhibitor.DefaultMasterCountPath, "file with the number of master servers")
	flagSet.StringVar(&configPath, "config", "", "bootstrap configuration file (default: "+config.DefaultPath+")")
	flagSet.BoolVar(&verbose, "verbose", false, "enable debug logging")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if showVersion {
		fmt.Printf("dcos-bootstrap %s\n", version.Info())
		return nil
	}

	services := flagSet.Args()
	if len(services) == 0 {
		return errors.New("at least one service name is required")
	}

	logger := bootstrap.NewLogger(verbose)

	clearProxyEnvironment(logger)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	roleSet, err := roles.Read(cfg.Paths.RolesDir)
	if err != nil {
		return fmt.Errorf("reading node roles: %w", err)
	}

	if !flagSet.Changed("zk") {
		zkAddress, err = zkaddr.Resolve(roleSet, cfg.Paths.MasterList, cfg.ZooKeeper.StaticHosts)
		if err != nil {
			return err
		}
	}
	if !flagSet.Changed("master-count") {
		masterCountPath = cfg.Paths.MasterCount
	}
	logger.Info("resolved coordination service", "zk", zkAddress, "roles", roleSet.Names())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Masters run the coordination service themselves; wait for the
	// whole quorum before creating anything in it. Agents skip the
	// wait because their services retry on their own.
	if roleSet.Has(roles.Master) {
		waiter := &exhibitor.Waiter{
			StatusURL: cfg.Endpoints.ExhibitorStatus,
			Interval:  cfg.PollInterval(),
			Logger:    logger,
		}
		if err := waiter.Wait(ctx, masterCountPath); err != nil {
			return fmt.Errorf("waiting for coordination quorum: %w", err)
		}
	}

	session := cluster.New(zkAddress, cfg.Paths.ClusterID, cfg.SessionTimeout(), logger)

	dispatcher := bootstrap.NewDispatcher(bootstrap.Config{
		RunDir:       cfg.Paths.RunDir,
		JWKSEndpoint: cfg.Endpoints.JWKS,
		ServiceConfig: &svcconfig.Applier{
			Path:   cfg.Paths.ServiceConfig,
			Logger: logger,
		},
		Logger: logger,
	})
	return dispatcher.Run(ctx, session, bootstrap.Options{Roles: roleSet}, services)
}

// clearProxyEnvironment drops proxy settings from the process
// environment before any network call. Bootstrap only talks to
// node-local endpoints; an inherited proxy would route loopback
// requests off the node.
func clearProxyEnvironment(logger *slog.Logger) {
	logger.Info("clearing proxy environment variables")
	for _, name := range []string{"HTTP_PROXY", "HTTPS_PROXY", "NO_PROXY"} {
		os.Unsetenv(name)
		os.Unsetenv(strings.ToLower(name))
	}
}
