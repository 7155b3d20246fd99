// Copyright 2026 The DC/OS Authors
// SPDX-License-Identifier: Apache-2.0

// Package roles reads the node's role markers. A node's roles are the
// entry names of a marker directory written at install time; the set is
// immutable for the life of the process.
package roles

import (
	"fmt"
	"os"
	"slices"
)

// DefaultDirectory is where the installer writes the role markers.
const DefaultDirectory = "/opt/mesosphere/etc/roles"

// Role marker names recognized by bootstrap.
const (
	Master      = "master"
	Slave       = "slave"
	SlavePublic = "slave_public"
)

// Set is the node's role set. Membership, not order, is meaningful.
type Set map[string]struct{}

// Read lists the role marker directory and returns the resulting set.
// A node with no readable role directory cannot be bootstrapped, so the
// listing error propagates.
func Read(dir string) (Set, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing role directory %s: %w", dir, err)
	}
	set := make(Set, len(entries))
	for _, entry := range entries {
		set[entry.Name()] = struct{}{}
	}
	return set, nil
}

// Has reports whether the named role is present.
func (s Set) Has(role string) bool {
	_, ok := s[role]
	return ok
}

// Names returns the roles in sorted order, for logs and error messages.
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
