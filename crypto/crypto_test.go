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

package crypto

import (
	"bytes"
	"context"
	gocrypto "crypto"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swupdate-go/core/transform"
)

func TestRegistryResolvesDefaults(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)

	_, err := r.Decrypt("aes-cbc")
	require.NoError(t, err)
	_, err = r.SignatureVerifier("rsa-sha256")
	require.NoError(t, err)

	_, err = r.Decrypt("does-not-exist")
	assert.Error(t, err)
}

func TestAESCBCProviderBuildsAWorkingStage(t *testing.T) {
	key := bytes.Repeat([]byte{0x11}, 32)
	iv := bytes.Repeat([]byte{0x22}, 16)

	plaintext := []byte("twelve bytes")
	padded := pkcs7Pad(plaintext, 16)

	block, err := aes.NewCipher(key)
	require.NoError(t, err)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	r := NewRegistry()
	RegisterDefaults(r)
	provider, err := r.Decrypt("aes-cbc")
	require.NoError(t, err)

	var out bytes.Buffer
	_, err = transform.Chain(context.Background(), bytes.NewReader(ciphertext), &out, provider.Stage(key, iv))
	require.NoError(t, err)
	assert.Equal(t, plaintext, out.Bytes())
}

func TestRSASHA256VerifierAcceptsValidSignature(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})

	payload := []byte("firmware bytes to sign")
	digest := sha256.Sum256(payload)
	sig, err := rsa.SignPKCS1v15(rand.Reader, priv, gocrypto.SHA256, digest[:])
	require.NoError(t, err)

	v := rsaSHA256Verifier{}
	assert.NoError(t, v.Verify(payload, sig, pubPEM))
	assert.Error(t, v.Verify([]byte("tampered"), sig, pubPEM))
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padding := bytes.Repeat([]byte{byte(padLen)}, padLen)
	return append(append([]byte{}, data...), padding...)
}

func TestCMSUnwrapperRoundTrip(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	plaintext := []byte("sealed key material")
	ciphertext, err := rsa.EncryptPKCS1v15(rand.Reader, &priv.PublicKey, plaintext)
	require.NoError(t, err)

	unwrapper := NewCMSUnwrapper(priv)
	stage := transform.DecryptCMS(unwrapper, 4096)

	var out bytes.Buffer
	_, err = transform.Chain(context.Background(), bytes.NewReader(ciphertext), &out, stage)
	require.NoError(t, err)
	assert.Equal(t, plaintext, out.Bytes())
}
