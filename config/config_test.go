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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = `
[device]
board = "widget-v2"
revision = "rev-c"

[sockets]
control = "/run/swupdate-core/control.sock"
progress = "/run/swupdate-core/progress.sock"

[bootloader]
preferred = ["efi-bootguard", "file"]

[logging]
level = "info"

[crypto]
require-signed-image = true
signature-verifier = "rsa-sha256"
`

func TestLoadParsesAllSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(fixture), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "widget-v2", cfg.Device.Board)
	assert.Equal(t, "rev-c", cfg.Device.Revision)
	assert.Equal(t, "/run/swupdate-core/control.sock", cfg.Sockets.Control)
	assert.Equal(t, []string{"efi-bootguard", "file"}, cfg.Bootloader.Preferred)
	assert.Equal(t, "info", cfg.Logging.Level)

	assert.Equal(t, "widget-v2", cfg.DeviceIdentity().Board)
	assert.True(t, cfg.Crypto.RequireSignedImage)
	assert.Equal(t, "rsa-sha256", cfg.Crypto.SignatureVerifier)
}

func TestPublicKeyAndAESKeyAreOptional(t *testing.T) {
	cfg := &Config{}
	key, err := cfg.PublicKey()
	require.NoError(t, err)
	assert.Nil(t, key)

	aes, err := cfg.AESKey()
	require.NoError(t, err)
	assert.Nil(t, aes)
}

func TestLoadErrorsOnMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	require.Error(t, err)
	var cfgErr *Error
	assert.ErrorAs(t, err, &cfgErr)
}
