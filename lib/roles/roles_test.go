// Copyright 2026 The DC/OS Authors
// SPDX-License-Identifier: Apache-2.0

package roles

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeMarker(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
		t.Fatalf("writing marker %s: %v", name, err)
	}
}

func TestRead(t *testing.T) {
	dir := t.TempDir()
	writeMarker(t, dir, "master")

	set, err := Read(dir)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !set.Has(Master) {
		t.Error("master role missing from set")
	}
	if set.Has(Slave) {
		t.Error("slave role present, want absent")
	}
	if got := set.Names(); !reflect.DeepEqual(got, []string{"master"}) {
		t.Errorf("Names = %v, want [master]", got)
	}
}

func TestReadMultipleRoles(t *testing.T) {
	dir := t.TempDir()
	writeMarker(t, dir, "slave_public")
	writeMarker(t, dir, "slave")

	set, err := Read(dir)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got := set.Names(); !reflect.DeepEqual(got, []string{"slave", "slave_public"}) {
		t.Errorf("Names = %v, want sorted [slave slave_public]", got)
	}
}

func TestReadEmptyDirectory(t *testing.T) {
	set, err := Read(t.TempDir())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(set) != 0 {
		t.Errorf("set = %v, want empty", set.Names())
	}
}

func TestReadMissingDirectory(t *testing.T) {
	if _, err := Read(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Fatal("Read succeeded on missing directory, want error")
	}
}
