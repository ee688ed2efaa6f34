/*******************************************************************************
*
* Copyright 2026 The swupdate-core Authors
*
* Licensed under the Apache License, Version 2.0 (the "License");
* you may not use this file except in compliance with the License.
* You should have received a copy of the License along with this
* program. If not, you may obtain a copy of the License at
*
*     http://www.apache.org/licenses/LICENSE-2.0
*
* Unless required by applicable law or agreed to in writing, software
* distributed under the License is distributed on an "AS IS" BASIS,
* WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
* See the License for the specific language governing permissions and
* limitations under the License.
*
*******************************************************************************/

// Package crypto resolves the crypto provider names carried in a
// manifest.CryptoConfig (hash-check, signature-verifier,
// decrypt-provider) to concrete implementations, so the manifest and
// handler packages never import a specific algorithm directly.
package crypto

import (
	"fmt"
	"sync"

	"github.com/swupdate-go/core/transform"
)

// DecryptProvider builds a transform.Stage from a key and IV. Different
// providers interpret key length differently (AES-128/192/256 by byte
// count); Stage returns an error for an unsupported length rather than
// silently truncating or padding it.
type DecryptProvider interface {
	Stage(key, iv []byte) transform.Stage
}

// SignatureVerifier checks a detached signature over a byte payload
// against a provider-specific public key encoding.
type SignatureVerifier interface {
	Verify(payload, signature, publicKey []byte) error
}

// Registry is the constructor-time-populated set of named providers.
// Unlike manifest's Grammar registry (tried in order until one works),
// provider lookups are by exact name: a manifest names its provider
// explicitly, so there is nothing to try in sequence.
type Registry struct {
	mu        sync.RWMutex
	decrypt   map[string]DecryptProvider
	signature map[string]SignatureVerifier
}

// NewRegistry returns an empty registry. Callers register providers
// explicitly at construction time (see RegisterDefaults) instead of via
// package-level init side effects, so a program can choose exactly
// which providers it exposes.
func NewRegistry() *Registry {
	return &Registry{
		decrypt:   make(map[string]DecryptProvider),
		signature: make(map[string]SignatureVerifier),
	}
}

// RegisterDecrypt adds a named decrypt provider.
func (r *Registry) RegisterDecrypt(name string, p DecryptProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decrypt[name] = p
}

// RegisterSignatureVerifier adds a named signature verifier.
func (r *Registry) RegisterSignatureVerifier(name string, v SignatureVerifier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signature[name] = v
}

// Decrypt looks up a decrypt provider by name.
func (r *Registry) Decrypt(name string) (DecryptProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.decrypt[name]
	if !ok {
		return nil, fmt.Errorf("crypto: no decrypt provider registered as %q", name)
	}
	return p, nil
}

// SignatureVerifier looks up a signature verifier by name.
func (r *Registry) SignatureVerifier(name string) (SignatureVerifier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.signature[name]
	if !ok {
		return nil, fmt.Errorf("crypto: no signature verifier registered as %q", name)
	}
	return v, nil
}

// RegisterDefaults populates r with this module's built-in providers:
// "aes-cbc" for DecryptProvider and "rsa-sha256" for SignatureVerifier.
func RegisterDefaults(r *Registry) {
	r.RegisterDecrypt("aes-cbc", aesCBCProvider{})
	r.RegisterSignatureVerifier("rsa-sha256", rsaSHA256Verifier{})
}
