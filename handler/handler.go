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

// Package handler dispatches one artifact from the install plan to the
// named backend registered to install it.
package handler

import (
	"context"
	"io"

	"github.com/swupdate-go/core/manifest"
)

// Context bundles everything a Handler needs to install one artifact,
// without handing it the whole transaction coordinator.
type Context struct {
	context.Context
	Plan     *manifest.Plan
	Artifact *manifest.Artifact
	// Payload is the artifact's raw archive bytes. Decompression,
	// decryption, and hashing are the handler's own responsibility via
	// the transform package, since only the handler knows which stages
	// its artifact class needs and which writer the final stage feeds.
	Payload io.Reader
	// Phase is set by the transaction coordinator before each call to a
	// script handler's Install: "pre", "post", or "failure". Data-bearing
	// handlers ignore it; they are only ever invoked once, during the
	// installing phase.
	Phase string
}

// Handler installs one artifact. Implementations must be safe to call
// at most once per Context; the coordinator never retries a handler
// call automatically.
type Handler interface {
	// Accepts reports which manifest.Classification bits this handler
	// can install.
	Accepts() manifest.Classification
	// Install performs the install action. Returning an error fails the
	// whole transaction.
	Install(hctx *Context) error
}
