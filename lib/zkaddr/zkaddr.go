// Copyright 2026 The DC/OS Authors
// SPDX-License-Identifier: Apache-2.0

// Package zkaddr resolves the ZooKeeper connection string for a node
// from its role set. Masters run ZooKeeper locally and always use the
// loopback address. Agents locate the masters through one of three
// mechanisms, tried in order: a static master-list file selected by
// MASTER_SOURCE=master_list, a single address in EXHIBITOR_ADDRESS, or
// a fixed list of well-known coordination host names.
package zkaddr

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"strings"

	"github.com/dcos/dcos-bootstrap/lib/roles"
)

// MasterAddress is the connection string used on master nodes, valid
// before any cluster-wide naming is in place.
const MasterAddress = "127.0.0.1:2181"

// DefaultMasterListPath is the static master list consulted when
// MASTER_SOURCE=master_list.
const DefaultMasterListPath = "/opt/mesosphere/etc/master_list"

const zookeeperPort = "2181"

// DefaultStaticHosts is the agent fallback when no addressing mode is
// selected through the environment: five well-known names served by the
// cluster's internal DNS.
var DefaultStaticHosts = []string{
	"zk-1.zk:2181",
	"zk-2.zk:2181",
	"zk-3.zk:2181",
	"zk-4.zk:2181",
	"zk-5.zk:2181",
}

// Resolve maps the node's role set to a ZooKeeper connection string.
// The result becomes the default value of the --zk flag; an
// unrecognized role set is fatal because no sensible default exists.
func Resolve(set roles.Set, masterListPath string, staticHosts []string) (string, error) {
	switch {
	case set.Has(roles.Master):
		return MasterAddress, nil
	case set.Has(roles.Slave) || set.Has(roles.SlavePublic):
		return resolveAgent(masterListPath, staticHosts)
	default:
		return "", fmt.Errorf("cannot resolve ZooKeeper address, unknown roles: %s",
			strings.Join(set.Names(), ", "))
	}
}

func resolveAgent(masterListPath string, staticHosts []string) (string, error) {
	if os.Getenv("MASTER_SOURCE") == "master_list" {
		host, err := pickMaster(masterListPath)
		if err != nil {
			return "", err
		}
		return host + ":" + zookeeperPort, nil
	}
	if address := os.Getenv("EXHIBITOR_ADDRESS"); address != "" {
		return address + ":" + zookeeperPort, nil
	}
	return strings.Join(staticHosts, ","), nil
}

// pickMaster selects one entry uniformly at random from the master-list
// file, a JSON array of host strings. Spreading agents across masters
// balances ZooKeeper client load.
func pickMaster(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading master list %s: %w", path, err)
	}
	var masters []string
	if err := json.Unmarshal(data, &masters); err != nil {
		return "", fmt.Errorf("parsing master list %s: %w", path, err)
	}
	if len(masters) == 0 {
		return "", fmt.Errorf("master list %s is empty", path)
	}
	return masters[rand.Intn(len(masters))], nil
}
