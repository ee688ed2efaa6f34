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

// Package partition installs image artifacts directly onto a block
// device node (an eMMC/UBI partition), with no filesystem or rename
// step in between: the destination is a fixed-size device, not a file
// that can be atomically swapped in.
package partition

import (
	"fmt"
	"io"
	"os"

	"github.com/swupdate-go/core/crypto"
	"github.com/swupdate-go/core/handler"
	"github.com/swupdate-go/core/manifest"
	"github.com/swupdate-go/core/transform"
)

// DeviceOpener abstracts *os.File so tests can substitute an in-memory
// block device stand-in.
type DeviceOpener func(path string) (io.WriteCloser, error)

// Handler writes partition artifacts straight to Artifact.Device.
type Handler struct {
	Open DeviceOpener
	// KeyProvider resolves the raw key and IV for an encrypted artifact.
	// Left nil, Install fails any artifact with Encrypted set instead of
	// silently writing ciphertext to the device.
	KeyProvider func(a *manifest.Artifact) (key, iv []byte, err error)
	// Crypto resolves a plan's named decrypt-provider to the
	// transform.Stage that decrypts with the key/iv KeyProvider returns.
	// Left nil, Install fails any artifact with Encrypted set.
	Crypto *crypto.Registry
}

// New returns a Handler that opens real block device nodes and has no
// decrypt capability; set KeyProvider and Crypto to install encrypted
// partition artifacts.
func New() *Handler {
	return &Handler{Open: func(path string) (io.WriteCloser, error) {
		return os.OpenFile(path, os.O_WRONLY, 0)
	}}
}

func (h *Handler) Accepts() manifest.Classification {
	return manifest.ClassPartition
}

func (h *Handler) Install(hctx *handler.Context) error {
	a := hctx.Artifact
	if a.Device == "" {
		return fmt.Errorf("partition: artifact %q has no destination device", a.Name)
	}

	dev, err := h.Open(a.Device)
	if err != nil {
		return fmt.Errorf("partition: %q: opening %s: %w", a.Name, a.Device, err)
	}

	var stages []transform.Stage
	if a.Encrypted {
		if h.KeyProvider == nil || h.Crypto == nil {
			dev.Close()
			return fmt.Errorf("partition: %q: artifact is encrypted but no decrypt capability is configured", a.Name)
		}
		key, iv, err := h.KeyProvider(a)
		if err != nil {
			dev.Close()
			return fmt.Errorf("partition: %q: resolving decrypt key: %w", a.Name, err)
		}
		provider, err := h.Crypto.Decrypt(hctx.Plan.Crypto.DecryptProvider)
		if err != nil {
			dev.Close()
			return fmt.Errorf("partition: %q: %w", a.Name, err)
		}
		// Decrypt before decompress: artifacts are encrypted after
		// compression on the build side, so the chain reverses that.
		stages = append(stages, provider.Stage(key, iv))
	}
	stages = append(stages, transform.Decompress(string(a.Compressed)))

	// Hash-tee must be the last stage: the running hash covers the
	// plaintext, post-decrypt and post-decompress, not the raw archive
	// bytes.
	hashStage, sum := transform.HashTee()
	stages = append(stages, hashStage)

	if _, err := transform.Chain(hctx.Context, hctx.Payload, dev, stages...); err != nil {
		dev.Close()
		return fmt.Errorf("partition: %q: %w", a.Name, err)
	}
	if err := dev.Close(); err != nil {
		return fmt.Errorf("partition: %q: closing device: %w", a.Name, err)
	}
	if a.ExpectedSHA256 != "" && sum() != a.ExpectedSHA256 {
		return fmt.Errorf("partition: %w", &transform.HashMismatchError{Artifact: a.Name, Got: sum(), Want: a.ExpectedSHA256})
	}
	return nil
}
