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

package transform

import (
	"bytes"
	"compress/zlib"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChainPassThrough(t *testing.T) {
	var out bytes.Buffer
	n, err := Chain(context.Background(), bytes.NewReader([]byte("hello")), &out)
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)
	assert.Equal(t, "hello", out.String())
}

func TestChainDecompressZlib(t *testing.T) {
	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	_, err := zw.Write([]byte("payload bytes go here"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	var out bytes.Buffer
	_, err = Chain(context.Background(), bytes.NewReader(compressed.Bytes()), &out, Decompress("zlib"))
	require.NoError(t, err)
	assert.Equal(t, "payload bytes go here", out.String())
}

func TestChainHashTee(t *testing.T) {
	data := []byte("hash me please")
	stage, sum := HashTee()

	var out bytes.Buffer
	_, err := Chain(context.Background(), bytes.NewReader(data), &out, stage)
	require.NoError(t, err)

	want := sha256.Sum256(data)
	assert.Equal(t, hex.EncodeToString(want[:]), sum())
	assert.Equal(t, data, out.Bytes())
}

func TestChainStopsOnCancelWithinOneChunk(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	data := bytes.Repeat([]byte("x"), chunkSize*4)
	var out bytes.Buffer
	n, err := Chain(ctx, bytes.NewReader(data), &out)

	var cancelled *CancelledError
	require.ErrorAs(t, err, &cancelled)
	assert.Less(t, n, int64(len(data)), "a cancelled chain must not drain the whole source")
}

func TestDecryptAESCBCRoundTrip(t *testing.T) {
	key := make([]byte, 32)
	iv := make([]byte, aes.BlockSize)
	_, err := rand.Read(key)
	require.NoError(t, err)
	_, err = rand.Read(iv)
	require.NoError(t, err)

	plaintext := []byte("this message is not a multiple of the block size!")
	padded := pkcs7Pad(plaintext, aes.BlockSize)

	block, err := aes.NewCipher(key)
	require.NoError(t, err)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	var out bytes.Buffer
	_, err = Chain(context.Background(), bytes.NewReader(ciphertext), &out, DecryptAESCBC(key, iv))
	require.NoError(t, err)
	assert.Equal(t, plaintext, out.Bytes())
}

func TestFileSinkCommitRenamesIntoPlace(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "rootfs.img")

	sink, err := NewFileSink(dest, 0o644)
	require.NoError(t, err)
	_, err = sink.Write([]byte("image bytes"))
	require.NoError(t, err)
	require.NoError(t, sink.Commit())

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "image bytes", string(got))
}

func TestFileSinkAbortLeavesNoFinalFile(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "rootfs.img")

	sink, err := NewFileSink(dest, 0o644)
	require.NoError(t, err)
	_, err = sink.Write([]byte("partial"))
	require.NoError(t, err)
	require.NoError(t, sink.Abort())

	_, err = os.Stat(dest)
	assert.True(t, os.IsNotExist(err))
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padding := bytes.Repeat([]byte{byte(padLen)}, padLen)
	return append(append([]byte{}, data...), padding...)
}

var _ io.Writer = (*FileSink)(nil)
