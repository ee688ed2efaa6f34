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

// Package script extracts a script artifact to a temporary file and
// executes it, passing the transaction's current phase as an argument
// so one script can branch on preinstall/postinstall.
package script

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/swupdate-go/core/handler"
	"github.com/swupdate-go/core/manifest"
	"github.com/swupdate-go/core/transform"
)

// Handler extracts and runs script artifacts. A script artifact is
// installed by the coordinator up to three times across one
// transaction (preinstall, postinstall, and optionally on failure);
// the same Handler value is reused for every call, with hctx.Phase
// telling it which invocation this is.
type Handler struct{}

func (h *Handler) Accepts() manifest.Classification {
	return manifest.ClassScript
}

func (h *Handler) Install(hctx *handler.Context) error {
	a := hctx.Artifact

	tmp, err := os.CreateTemp("", "update-script-*")
	if err != nil {
		return fmt.Errorf("script: %q: %w", a.Name, err)
	}
	defer os.Remove(tmp.Name())

	stages := []transform.Stage{transform.Decompress(string(a.Compressed))}
	if _, err := transform.Chain(hctx.Context, hctx.Payload, tmp, stages...); err != nil {
		tmp.Close()
		return fmt.Errorf("script: %q: extracting: %w", a.Name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("script: %q: %w", a.Name, err)
	}
	if err := os.Chmod(tmp.Name(), 0o755); err != nil {
		return fmt.Errorf("script: %q: %w", a.Name, err)
	}

	cmd := exec.CommandContext(hctx.Context, tmp.Name(), hctx.Phase)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("script: %q: exited: %w", a.Name, err)
	}
	return nil
}
