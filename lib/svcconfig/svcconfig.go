// Copyright 2026 The DC/OS Authors
// SPDX-License-Identifier: Apache-2.0

// Package svcconfig applies per-service node configuration before a
// service's bootstrap handler runs. The configuration document is an
// operator-editable JSON file (comments tolerated) with one section
// per concern; the only section understood today is "sysctl", mapping
// service names to kernel parameters:
//
//	{
//	    "sysctl": {
//	        "dcos-mesos-slave": {
//	            "vm.swappiness": "1"
//	        }
//	    }
//	}
//
// Rejected kernel settings are logged and skipped rather than failing
// the bootstrap: the tunables are advisory and a kernel that does not
// know a parameter should not keep a service from starting.
package svcconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"slices"
	"strings"

	"github.com/tidwall/jsonc"
)

// DefaultPath is the node's service configuration document.
const DefaultPath = "/opt/mesosphere/etc/dcos-service-configuration.json"

// document is the configuration file shape.
type document struct {
	Sysctl map[string]map[string]string `json:"sysctl"`
}

// Applier applies the configuration document for one service at a
// time.
type Applier struct {
	// Path of the configuration document. A missing file means the
	// deployment has nothing to apply.
	Path string

	// Logger receives warnings about rejected settings.
	Logger *slog.Logger

	// runCommand overrides command execution in tests. Nil means the
	// real implementation.
	runCommand func(name string, args ...string) error
}

// Apply applies every configured setting for the named service.
func (a *Applier) Apply(service string) error {
	if a.Logger == nil {
		a.Logger = slog.Default()
	}

	data, err := os.ReadFile(a.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading service configuration %s: %w", a.Path, err)
	}

	var doc document
	if err := json.Unmarshal(jsonc.ToJSON(data), &doc); err != nil {
		return fmt.Errorf("parsing service configuration %s: %w", a.Path, err)
	}

	settings := doc.Sysctl[service]
	if len(settings) == 0 {
		return nil
	}

	run := a.runCommand
	if run == nil {
		run = runCommand
	}

	// Deterministic application order.
	params := make([]string, 0, len(settings))
	for param := range settings {
		params = append(params, param)
	}
	slices.Sort(params)

	for _, param := range params {
		value := settings[param]
		if err := run("/sbin/sysctl", "-q", "-w", param+"="+value); err != nil {
			a.Logger.Warn("could not apply sysctl setting",
				"service", service, "setting", param, "value", value, "error", err)
		}
	}
	return nil
}

func runCommand(name string, args ...string) error {
	command := exec.Command(name, args...)
	output, err := command.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %s: %w: %s",
			name, strings.Join(args, " "), err, strings.TrimSpace(string(output)))
	}
	return nil
}
