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

// Package config loads the daemon's own TOML configuration: where to
// find the device identity, the control socket, and bootloader
// preferences. This is the agent's own operating configuration, not a
// manifest artifact.
package config

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/swupdate-go/core/manifest"
)

// Config is the daemon's top-level configuration, loaded once at
// startup from a TOML file.
type Config struct {
	Device struct {
		Board    string `toml:"board"`
		Revision string `toml:"revision"`
	} `toml:"device"`

	Sockets struct {
		Control  string `toml:"control"`  // client-facing request socket
		Progress string `toml:"progress"` // receiver socket for subprocess progress reports
	} `toml:"sockets"`

	Bootloader struct {
		// Preferred lists backend names in probe order, most specific
		// first. An empty list falls back to the package's own default
		// ordering.
		Preferred []string `toml:"preferred"`
	} `toml:"bootloader"`

	Logging struct {
		Level string `toml:"level"` // parsed with logrus.ParseLevel
	} `toml:"logging"`

	Crypto struct {
		// RequireSignedImage rejects any package whose second archive
		// entry is not a valid signature over the first. This is the
		// device's own policy; it is never read from the package being
		// installed.
		RequireSignedImage   bool   `toml:"require-signed-image"`
		SignatureVerifier    string `toml:"signature-verifier"` // name registered in the crypto registry
		PublicKeyPath        string `toml:"public-key-path"`    // PEM-encoded public key or certificate
		KeyFilePath          string `toml:"key-file-path"`      // raw AES key bytes for encrypted artifacts
		StatusKey            string `toml:"status-key"`         // bootenv variable name, defaults to "recovery_status"
	} `toml:"crypto"`
}

// PublicKey reads and returns the configured signature-verification
// public key. An empty PublicKeyPath returns (nil, nil): signature
// verification is simply unavailable, which is only an error if
// RequireSignedImage is also set.
func (c *Config) PublicKey() ([]byte, error) {
	if c.Crypto.PublicKeyPath == "" {
		return nil, nil
	}
	data, err := os.ReadFile(c.Crypto.PublicKeyPath)
	if err != nil {
		return nil, &Error{Path: c.Crypto.PublicKeyPath, Err: err}
	}
	return data, nil
}

// AESKey reads and returns the configured AES decryption key. An empty
// KeyFilePath returns (nil, nil).
func (c *Config) AESKey() ([]byte, error) {
	if c.Crypto.KeyFilePath == "" {
		return nil, nil
	}
	data, err := os.ReadFile(c.Crypto.KeyFilePath)
	if err != nil {
		return nil, &Error{Path: c.Crypto.KeyFilePath, Err: err}
	}
	return data, nil
}

// Load reads and decodes a TOML config file at path.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	return &cfg, nil
}

// DeviceIdentity converts the config's device section into the type
// manifest.Validate expects.
func (c *Config) DeviceIdentity() manifest.DeviceIdentity {
	return manifest.DeviceIdentity{Board: c.Device.Board, Revision: c.Device.Revision}
}
