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

package transaction

import (
	"bytes"
	"compress/zlib"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swupdate-go/core/archive"
	"github.com/swupdate-go/core/bootloader"
	"github.com/swupdate-go/core/crypto"
	"github.com/swupdate-go/core/handler"
	"github.com/swupdate-go/core/handler/partition"
	"github.com/swupdate-go/core/handler/rawfile"
	"github.com/swupdate-go/core/handler/script"
	"github.com/swupdate-go/core/manifest"
	"github.com/swupdate-go/core/notifier"
)

func newTestRegistry() *handler.Registry {
	reg := handler.NewRegistry()
	reg.Register("rawfile", rawfile.New())
	reg.Register("partition", partition.New())
	reg.Register("script", &script.Handler{})
	return reg
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Scenario 1: happy path, a single raw image installs and the
// transaction reaches StatusDone.
func TestRunInstallsSingleRawImage(t *testing.T) {
	dir := t.TempDir()
	destPath := filepath.Join(dir, "rootfs.img")
	payload := []byte("a fresh root filesystem image")

	desc := fmt.Sprintf(`
name = "acme-firmware"
version = "2.1.0"

[crypto]
hash-check = true

[software.release.widget-v2.default]

[[software.release.widget-v2.default.images]]
name = "rootfs"
type = "rawfile"
filename = "rootfs.img"
path = %q
sha256 = %q
`, destPath, sha256Hex(payload))

	ar := archive.BuildTestArchive([]archive.Entry{
		{Name: "sw-description", Payload: []byte(desc)},
		{Name: "rootfs.img", Payload: payload},
	})

	envPath := filepath.Join(dir, "bootenv")
	bl := bootloader.NewFileBootloader(envPath)
	bus := notifier.NewBus()

	coord := NewCoordinator(manifest.DeviceIdentity{}, newTestRegistry(), bl, bus, nil)
	err := coord.Run(context.Background(), bytes.NewReader(ar), "")
	require.NoError(t, err)

	written, err := os.ReadFile(destPath)
	require.NoError(t, err)
	assert.Equal(t, payload, written)

	st, err := NewStatusStore(bl, "").Get()
	require.NoError(t, err)
	assert.Equal(t, StatusDone, st)
}

// Scenario 2: a declared hash that does not match the payload aborts
// the transaction and leaves the persistent status as failed.
func TestRunAbortsOnHashMismatch(t *testing.T) {
	dir := t.TempDir()
	destPath := filepath.Join(dir, "rootfs.img")
	payload := []byte("a fresh root filesystem image")

	desc := fmt.Sprintf(`
name = "acme-firmware"
version = "2.1.0"

[crypto]
hash-check = true

[software.release.widget-v2.default]

[[software.release.widget-v2.default.images]]
name = "rootfs"
type = "rawfile"
filename = "rootfs.img"
path = %q
sha256 = "0000000000000000000000000000000000000000000000000000000000000000"
`, destPath)

	ar := archive.BuildTestArchive([]archive.Entry{
		{Name: "sw-description", Payload: []byte(desc)},
		{Name: "rootfs.img", Payload: payload},
	})

	bl := bootloader.NewFileBootloader(filepath.Join(dir, "bootenv"))
	coord := NewCoordinator(manifest.DeviceIdentity{}, newTestRegistry(), bl, notifier.NewBus(), nil)
	err := coord.Run(context.Background(), bytes.NewReader(ar), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hash mismatch")

	_, statErr := os.Stat(destPath)
	assert.True(t, os.IsNotExist(statErr), "rawfile handler must not commit a mismatched artifact")

	st, err := NewStatusStore(bl, "").Get()
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, st)
}

// Scenario 3: a manifest whose hardware-compatibility list names no
// entry matching the installing device is rejected before any artifact
// is touched.
func TestRunRejectsIncompatibleHardware(t *testing.T) {
	dir := t.TempDir()
	desc := `
name = "acme-firmware"
version = "2.1.0"

[[hardware-compatibility]]
board = "other-board"
revision = "rev-z"

[software.release.other-board.default]

[[software.release.other-board.default.images]]
name = "rootfs"
type = "rawfile"
filename = "rootfs.img"
path = "/tmp/does-not-matter"
`
	ar := archive.BuildTestArchive([]archive.Entry{
		{Name: "sw-description", Payload: []byte(desc)},
		{Name: "rootfs.img", Payload: []byte("x")},
	})

	bl := bootloader.NewFileBootloader(filepath.Join(dir, "bootenv"))
	coord := NewCoordinator(manifest.DeviceIdentity{Board: "widget-v2", Revision: "rev-c"}, newTestRegistry(), bl, notifier.NewBus(), nil)
	err := coord.Run(context.Background(), bytes.NewReader(ar), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "matches no hardware-compatibility entry")
}

// Scenario 4: a manifest declaring no-downgrading is refused against a
// newer currently-installed version.
func TestRunBlocksDowngrade(t *testing.T) {
	dir := t.TempDir()
	destPath := filepath.Join(dir, "rootfs.img")
	payload := []byte("old image")

	desc := fmt.Sprintf(`
name = "acme-firmware"
version = "1.0.0"
no-downgrading = true

[crypto]
hash-check = true

[software.release.widget-v2.default]

[[software.release.widget-v2.default.images]]
name = "rootfs"
type = "rawfile"
filename = "rootfs.img"
path = %q
sha256 = %q
`, destPath, sha256Hex(payload))

	ar := archive.BuildTestArchive([]archive.Entry{
		{Name: "sw-description", Payload: []byte(desc)},
		{Name: "rootfs.img", Payload: payload},
	})

	bl := bootloader.NewFileBootloader(filepath.Join(dir, "bootenv"))
	coord := NewCoordinator(manifest.DeviceIdentity{}, newTestRegistry(), bl, notifier.NewBus(), nil)
	err := coord.Run(context.Background(), bytes.NewReader(ar), "2.0.0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refusing downgrade")

	_, statErr := os.Stat(destPath)
	assert.True(t, os.IsNotExist(statErr))
}

// Scenario 5: a preinstall script that fails causes the transaction to
// fail and run every script artifact opted into the failure phase via
// the on-failure property, even though that script never reached its
// own ordinary preinstall turn.
func TestRunFailureScriptsOnScriptFailure(t *testing.T) {
	dir := t.TempDir()
	cleanupMarker := filepath.Join(dir, "cleanup-ran")

	failerScript := "#!/bin/sh\nexit 1\n"
	cleanupScript := fmt.Sprintf("#!/bin/sh\ntouch %q\n", cleanupMarker)

	desc := fmt.Sprintf(`
name = "acme-firmware"
version = "2.1.0"

[software.release.widget-v2.default]

[[software.release.widget-v2.default.scripts]]
name = "failer"
type = "script"
filename = "failer.sh"

[[software.release.widget-v2.default.scripts]]
name = "cleanup"
type = "script"
filename = "cleanup.sh"

[software.release.widget-v2.default.scripts.properties]
on-failure = "true"
`)

	ar := archive.BuildTestArchive([]archive.Entry{
		{Name: "sw-description", Payload: []byte(desc)},
		{Name: "failer.sh", Payload: []byte(failerScript)},
		{Name: "cleanup.sh", Payload: []byte(cleanupScript)},
	})

	bl := bootloader.NewFileBootloader(filepath.Join(dir, "bootenv"))
	coord := NewCoordinator(manifest.DeviceIdentity{}, newTestRegistry(), bl, notifier.NewBus(), nil)
	err := coord.Run(context.Background(), bytes.NewReader(ar), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failer")

	_, statErr := os.Stat(cleanupMarker)
	require.NoError(t, statErr, "the on-failure script must run even though the failing script aborted the preinstall phase")

	st, err := NewStatusStore(bl, "").Get()
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, st)
}

// Scenario 6: an artifact that is both compressed and encrypted installs
// correctly when the key provider supplies the matching key/IV; the
// hash check covers the final plaintext, not the wire bytes.
func TestRunInstallsEncryptedCompressedArtifact(t *testing.T) {
	dir := t.TempDir()
	destPath := filepath.Join(dir, "secret.bin")
	plaintext := []byte("payload that is compressed then encrypted before shipping")

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	_, err := zw.Write(plaintext)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	key := []byte("0123456789abcdef") // AES-128
	iv := []byte("fedcba9876543210")
	ciphertext := aesCBCEncryptPKCS7(t, key, iv, compressed.Bytes())

	desc := fmt.Sprintf(`
name = "acme-firmware"
version = "2.1.0"

[crypto]
hash-check = true
decrypt-provider = "aes-cbc"

[software.release.widget-v2.default]

[[software.release.widget-v2.default.images]]
name = "secret"
type = "rawfile"
filename = "secret.bin.zlib.enc"
path = %q
sha256 = %q
compressed = "zlib"
encrypted = true
iv = %q
`, destPath, sha256Hex(plaintext), hex.EncodeToString(iv))

	ar := archive.BuildTestArchive([]archive.Entry{
		{Name: "sw-description", Payload: []byte(desc)},
		{Name: "secret.bin.zlib.enc", Payload: ciphertext},
	})

	cryptoReg := crypto.NewRegistry()
	crypto.RegisterDefaults(cryptoReg)

	rawfileHandler := rawfile.New()
	rawfileHandler.Crypto = cryptoReg
	rawfileHandler.KeyProvider = func(a *manifest.Artifact) (k, v []byte, err error) {
		iv, err := hex.DecodeString(a.IVHex)
		if err != nil {
			return nil, nil, err
		}
		return key, iv, nil
	}
	reg := handler.NewRegistry()
	reg.Register("rawfile", rawfileHandler)
	reg.Register("partition", partition.New())
	reg.Register("script", &script.Handler{})

	bl := bootloader.NewFileBootloader(filepath.Join(dir, "bootenv"))
	coord := NewCoordinator(manifest.DeviceIdentity{}, reg, bl, notifier.NewBus(), nil)
	runErr := coord.Run(context.Background(), bytes.NewReader(ar), "")
	require.NoError(t, runErr)

	written, err := os.ReadFile(destPath)
	require.NoError(t, err)
	assert.Equal(t, plaintext, written)
}

func aesCBCEncryptPKCS7(t *testing.T, key, iv, plaintext []byte) []byte {
	t.Helper()
	block, err := aes.NewCipher(key)
	require.NoError(t, err)

	padLen := aes.BlockSize - len(plaintext)%aes.BlockSize
	padded := append(append([]byte{}, plaintext...), bytes.Repeat([]byte{byte(padLen)}, padLen)...)

	ciphertext := make([]byte, len(padded))
	mode := cipher.NewCBCEncrypter(block, iv)
	mode.CryptBlocks(ciphertext, padded)
	return ciphertext
}
