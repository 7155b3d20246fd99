// Copyright 2026 The DC/OS Authors
// SPDX-License-Identifier: Apache-2.0

package bootstrap

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dcos/dcos-bootstrap/lib/fsutil"
	"github.com/dcos/dcos-bootstrap/lib/jwks"
	"github.com/dcos/dcos-bootstrap/lib/provision"
)

// verificationKeyFile is the file name authentication token consumers
// watch for under the edge proxy's runtime directory.
const verificationKeyFile = "auth-token-verification-key"

// adminRouterUser owns the published key. Variable rather than
// constant to allow test overrides.
var adminRouterUser = "dcos_adminrouter"

// publishVerificationKey fetches the authority's active signing key
// and publishes it as a PEM public key the edge proxy validates
// tokens against. The fetch is a single attempt: the readiness wait
// earlier in the pipeline owns retrying, and a failure here means the
// authority has not completed its own key agreement yet.
//
// The key is world-readable (it is public material); ownership moves
// to the proxy's service user. The atomic write keeps a proxy that
// opens the file mid-publish from ever seeing a truncated key.
func (d *Dispatcher) publishVerificationKey(ctx context.Context) error {
	key, err := jwks.FetchVerificationKey(ctx, d.client, d.jwksEndpoint)
	if err != nil {
		return fmt.Errorf("fetching verification key: %w", err)
	}
	pemBytes, err := jwks.MarshalPublicKeyPEM(key)
	if err != nil {
		return fmt.Errorf("encoding verification key: %w", err)
	}

	dir := filepath.Join(d.runDir, "dcos-adminrouter")
	if err := provision.EnsureDirectory(dir); err != nil {
		return err
	}
	path := filepath.Join(dir, verificationKeyFile)
	if err := fsutil.WriteFileAtomic(path, pemBytes, 0o644); err != nil {
		return fmt.Errorf("writing verification key: %w", err)
	}
	if err := provision.Chown(path, adminRouterUser); err != nil {
		return fmt.Errorf("assigning %s to %s: %w", path, adminRouterUser, err)
	}

	d.logger.Info("published token verification key", "path", path)
	return nil
}
