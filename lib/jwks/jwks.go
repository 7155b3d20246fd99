// Copyright 2026 The DC/OS Authors
// SPDX-License-Identifier: Apache-2.0

// Package jwks fetches the cluster authority's token verification key.
// The authority publishes its RSA public keys as a JSON Web Key Set on
// a loopback HTTP endpoint; the first entry is the active signing key.
// This package converts that entry to an rsa.PublicKey and to the PEM
// SubjectPublicKeyInfo encoding consumed by the services that verify
// authentication tokens.
//
// The two-field RSA JWK the authority emits is simple enough that no
// external JWT library is needed for this constrained use case.
package jwks

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"github.com/dcos/dcos-bootstrap/lib/netutil"
)

// DefaultEndpoint is the loopback address where the authority serves
// its key set.
const DefaultEndpoint = "http://127.0.0.1:8101/acs/api/v1/auth/jwks"

// keySet is the authority's JWKS document.
type keySet struct {
	Keys []key `json:"keys"`
}

// key is a single RSA JWK. Only the modulus and exponent are used; the
// other fields identify and describe the key.
type key struct {
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// FetchVerificationKey performs a single GET against the authority's
// JWKS endpoint and returns the first key of the set as an RSA public
// key. The first entry is by contract the currently active signing
// key; there is no freshness or signature check beyond transport trust
// on loopback, and no retry. A failed fetch means the authority has
// not finished its own key agreement and the caller must treat that as
// fatal.
func FetchVerificationKey(ctx context.Context, client *http.Client, endpoint string) (*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building key set request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching key set from %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("key set fetch from %s returned %s: %s",
			endpoint, resp.Status, netutil.ErrorBody(resp.Body))
	}

	var set keySet
	if err := netutil.DecodeResponse(resp.Body, &set); err != nil {
		return nil, fmt.Errorf("decoding key set from %s: %w", endpoint, err)
	}
	return set.activeKey()
}

// activeKey converts the first entry of the set. An empty set or an
// entry missing its modulus or exponent is an error, not a reason to
// try later entries.
func (s *keySet) activeKey() (*rsa.PublicKey, error) {
	if len(s.Keys) == 0 {
		return nil, errors.New("authority returned an empty key set")
	}
	active := s.Keys[0]
	if active.N == "" || active.E == "" {
		return nil, fmt.Errorf("active key %q is missing modulus or exponent", active.Kid)
	}

	modulusBytes, err := decodeBase64URL(active.N)
	if err != nil {
		return nil, fmt.Errorf("decoding modulus of key %q: %w", active.Kid, err)
	}
	exponentBytes, err := decodeBase64URL(active.E)
	if err != nil {
		return nil, fmt.Errorf("decoding exponent of key %q: %w", active.Kid, err)
	}

	modulus := new(big.Int).SetBytes(modulusBytes)
	exponent := 0
	for _, b := range exponentBytes {
		exponent = exponent<<8 | int(b)
	}
	if modulus.Sign() <= 0 || exponent <= 0 {
		return nil, fmt.Errorf("key %q has a zero modulus or exponent", active.Kid)
	}

	return &rsa.PublicKey{N: modulus, E: exponent}, nil
}

// decodeBase64URL decodes a JWK integer field. RFC 7518 wants unpadded
// base64url, but some authorities emit padding; tolerate both.
func decodeBase64URL(value string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(value, "="))
}

// MarshalPublicKeyPEM encodes an RSA public key as a PEM
// SubjectPublicKeyInfo block, the format the token-verifying services
// read from disk.
func MarshalPublicKeyPEM(key *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return nil, fmt.Errorf("encoding public key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}
