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

package handler

import (
	"fmt"
	"sort"
	"sync"

	"github.com/swupdate-go/core/manifest"
)

// Lifetime controls how long a registered handler stays looked-up-able.
// LifetimeGlobal handlers persist across update sessions; LifetimeSession
// handlers are torn down by EndSession, for the case spec.md §4.4 calls
// out: a script artifact that registers a handler dynamically (via the
// Lua-embedding capability out of scope for this module) for that
// session only.
type Lifetime int

const (
	LifetimeGlobal Lifetime = iota
	LifetimeSession
)

func (l Lifetime) String() string {
	if l == LifetimeSession {
		return "session"
	}
	return "global"
}

type registryEntry struct {
	handler  Handler
	lifetime Lifetime
}

// Registry is a name-keyed set of handlers. Registration is idempotent
// by name: registering the same name twice with an identical handler
// value and lifetime is a no-op; registering a different handler, or
// the same handler under a different lifetime, under an already-used
// name panics (a programming error, caught at init time). spec.md §9's
// open question ("registered twice at different lifetimes?") is
// resolved this way: lifetime is part of a name's identity, so a
// lifetime change is just another kind of conflicting re-registration.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]registryEntry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]registryEntry)}
}

// Register adds a handler under name with LifetimeGlobal, persisting
// across update sessions.
func (r *Registry) Register(name string, h Handler) {
	r.register(name, h, LifetimeGlobal)
}

// RegisterSession adds a handler under name with LifetimeSession. Such a
// handler is removed the next time EndSession runs, modeling a script
// artifact that only needs its handler for the session that registered
// it.
func (r *Registry) RegisterSession(name string, h Handler) {
	r.register(name, h, LifetimeSession)
}

func (r *Registry) register(name string, h Handler, lifetime Lifetime) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.handlers[name]; ok {
		if existing.handler == h && existing.lifetime == lifetime {
			return
		}
		panic(fmt.Sprintf("handler: name %q already registered with a different handler or lifetime", name))
	}
	r.handlers[name] = registryEntry{handler: h, lifetime: lifetime}
}

// EndSession unregisters every LifetimeSession handler, leaving
// LifetimeGlobal handlers untouched. The transaction coordinator calls
// this once per Run, win or lose, so a session-scoped handler never
// outlives the session that registered it.
func (r *Registry) EndSession() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, entry := range r.handlers {
		if entry.lifetime == LifetimeSession {
			delete(r.handlers, name)
		}
	}
}

// Lookup returns the handler registered under name, if any.
func (r *Registry) Lookup(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.handlers[name]
	return entry.handler, ok
}

// Capabilities reports the manifest.Classification mask accepted by
// every registered handler, in the shape manifest.Validate expects.
func (r *Registry) Capabilities() manifest.HandlerCapabilities {
	r.mu.RLock()
	defer r.mu.RUnlock()
	caps := make(manifest.HandlerCapabilities, len(r.handlers))
	for name, entry := range r.handlers {
		caps[name] = entry.handler.Accepts()
	}
	return caps
}

// Names returns the registered handler names in sorted order, useful for
// diagnostics and log output.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
