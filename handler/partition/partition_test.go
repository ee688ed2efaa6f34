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

package partition

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	coreCrypto "github.com/swupdate-go/core/crypto"
	"github.com/swupdate-go/core/handler"
	"github.com/swupdate-go/core/manifest"
	"github.com/swupdate-go/core/transform"
)

// fakeDevice stands in for a block device node: Close just records that
// it was called, no underlying descriptor to release.
type fakeDevice struct {
	bytes.Buffer
	closed bool
}

func (d *fakeDevice) Close() error {
	d.closed = true
	return nil
}

func openFake(dev *fakeDevice) DeviceOpener {
	return func(path string) (io.WriteCloser, error) { return dev, nil }
}

func TestInstallWritesPartitionAndVerifiesHash(t *testing.T) {
	payload := []byte("raw partition image bytes")
	sum := sha256.Sum256(payload)

	dev := &fakeDevice{}
	h := New()
	h.Open = openFake(dev)

	a := &manifest.Artifact{
		Name:           "rootfs",
		Device:         "/dev/mmcblk0p2",
		ExpectedSHA256: hex.EncodeToString(sum[:]),
	}
	hctx := &handler.Context{
		Context:  context.Background(),
		Plan:     &manifest.Plan{},
		Artifact: a,
		Payload:  bytes.NewReader(payload),
	}

	require.NoError(t, h.Install(hctx))
	assert.Equal(t, payload, dev.Bytes())
	assert.True(t, dev.closed)
}

func TestInstallRejectsPartitionHashMismatch(t *testing.T) {
	dev := &fakeDevice{}
	h := New()
	h.Open = openFake(dev)

	a := &manifest.Artifact{
		Name:           "rootfs",
		Device:         "/dev/mmcblk0p2",
		ExpectedSHA256: "0000000000000000000000000000000000000000000000000000000000000000",
	}
	hctx := &handler.Context{
		Context:  context.Background(),
		Plan:     &manifest.Plan{},
		Artifact: a,
		Payload:  bytes.NewReader([]byte("mismatched content")),
	}

	err := h.Install(hctx)
	require.Error(t, err)
	var hashErr *transform.HashMismatchError
	require.ErrorAs(t, err, &hashErr)
}

func TestInstallRejectsEncryptedPartitionWithoutDecryptCapability(t *testing.T) {
	dev := &fakeDevice{}
	h := New()
	h.Open = openFake(dev)

	a := &manifest.Artifact{Name: "secret-partition", Device: "/dev/mmcblk0p3", Encrypted: true}
	hctx := &handler.Context{
		Context:  context.Background(),
		Plan:     &manifest.Plan{},
		Artifact: a,
		Payload:  bytes.NewReader([]byte("cipher")),
	}

	err := h.Install(hctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no decrypt capability")
	assert.Empty(t, dev.Bytes(), "ciphertext must never reach the device when decrypt is misconfigured")
}

func TestInstallDecryptsEncryptedPartition(t *testing.T) {
	plaintext := []byte("payload that must be decrypted before it reaches the device")
	key := []byte("0123456789abcdef") // AES-128
	iv := []byte("fedcba9876543210")
	ciphertext := aesCBCEncryptPKCS7(t, key, iv, plaintext)

	dev := &fakeDevice{}
	h := New()
	h.Open = openFake(dev)
	h.Crypto = coreCrypto.NewRegistry()
	coreCrypto.RegisterDefaults(h.Crypto)
	h.KeyProvider = func(a *manifest.Artifact) (k, v []byte, err error) {
		iv, err := hex.DecodeString(a.IVHex)
		if err != nil {
			return nil, nil, err
		}
		return key, iv, nil
	}

	sum := sha256.Sum256(plaintext)
	a := &manifest.Artifact{
		Name:           "secret-partition",
		Device:         "/dev/mmcblk0p3",
		Encrypted:      true,
		IVHex:          hex.EncodeToString(iv),
		ExpectedSHA256: hex.EncodeToString(sum[:]),
	}
	plan := &manifest.Plan{Crypto: manifest.CryptoConfig{DecryptProvider: "aes-cbc"}}
	hctx := &handler.Context{
		Context:  context.Background(),
		Plan:     plan,
		Artifact: a,
		Payload:  bytes.NewReader(ciphertext),
	}

	require.NoError(t, h.Install(hctx))
	assert.Equal(t, plaintext, dev.Bytes())
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
