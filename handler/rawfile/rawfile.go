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

// Package rawfile installs image and plain-file artifacts by streaming
// them through the transform chain onto a regular filesystem path.
package rawfile

import (
	"fmt"
	"os"

	"github.com/swupdate-go/core/crypto"
	"github.com/swupdate-go/core/handler"
	"github.com/swupdate-go/core/manifest"
	"github.com/swupdate-go/core/transform"
)

// Handler writes image/file artifacts to Artifact.Path via a FileSink,
// applying decryption then decompression then a hash check before the
// bytes ever reach disk.
type Handler struct {
	// FileMode is applied to every artifact this handler installs.
	FileMode os.FileMode
	// KeyProvider resolves the raw key and IV for an encrypted artifact.
	// Left nil, Install fails any artifact with Encrypted set.
	KeyProvider func(a *manifest.Artifact) (key, iv []byte, err error)
	// Crypto resolves a plan's named decrypt-provider (e.g. "aes-cbc")
	// to the transform.Stage that actually decrypts with the key/iv
	// KeyProvider returns. Left nil, Install fails any artifact with
	// Encrypted set, since there would be no way to pick the decrypt
	// algorithm the manifest named.
	Crypto *crypto.Registry
}

// New returns a Handler with the conventional 0644 file mode and no
// decrypt capability; set both KeyProvider and Crypto to install
// encrypted artifacts.
func New() *Handler {
	return &Handler{FileMode: 0o644}
}

func (h *Handler) Accepts() manifest.Classification {
	return manifest.ClassImage | manifest.ClassFile
}

func (h *Handler) Install(hctx *handler.Context) error {
	a := hctx.Artifact
	if a.Path == "" {
		return fmt.Errorf("rawfile: artifact %q has no destination path", a.Name)
	}

	sink, err := transform.NewFileSink(a.Path, h.FileMode)
	if err != nil {
		return fmt.Errorf("rawfile: %q: %w", a.Name, err)
	}

	var stages []transform.Stage

	if a.Encrypted {
		if h.KeyProvider == nil {
			sink.Abort()
			return fmt.Errorf("rawfile: %q: artifact is encrypted but no key provider is configured", a.Name)
		}
		if h.Crypto == nil {
			sink.Abort()
			return fmt.Errorf("rawfile: %q: artifact is encrypted but no crypto registry is configured", a.Name)
		}
		key, iv, err := h.KeyProvider(a)
		if err != nil {
			sink.Abort()
			return fmt.Errorf("rawfile: %q: resolving decrypt key: %w", a.Name, err)
		}
		provider, err := h.Crypto.Decrypt(hctx.Plan.Crypto.DecryptProvider)
		if err != nil {
			sink.Abort()
			return fmt.Errorf("rawfile: %q: %w", a.Name, err)
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

	if _, err := transform.Chain(hctx.Context, hctx.Payload, sink, stages...); err != nil {
		sink.Abort()
		return fmt.Errorf("rawfile: %q: %w", a.Name, err)
	}

	if a.ExpectedSHA256 != "" && sum() != a.ExpectedSHA256 {
		sink.Abort()
		return fmt.Errorf("rawfile: %w", &transform.HashMismatchError{Artifact: a.Name, Got: sum(), Want: a.ExpectedSHA256})
	}

	if err := sink.Commit(); err != nil {
		return fmt.Errorf("rawfile: %q: %w", a.Name, err)
	}
	return nil
}
