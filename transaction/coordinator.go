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
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/swupdate-go/core/archive"
	"github.com/swupdate-go/core/bootloader"
	"github.com/swupdate-go/core/crypto"
	"github.com/swupdate-go/core/handler"
	"github.com/swupdate-go/core/manifest"
	"github.com/swupdate-go/core/notifier"
)

// onFailureProperty is the manifest artifact property key a script
// artifact sets (to any non-empty value) to opt into a third,
// failure-phase invocation when some other artifact fails to install.
const onFailureProperty = "on-failure"

// Coordinator drives one update archive through the full lifecycle. It
// is not reusable: call Run once per *Coordinator.
type Coordinator struct {
	Device     manifest.DeviceIdentity
	Registry   *handler.Registry
	Bootloader bootloader.Bootloader
	Bus        *notifier.Bus
	Log        *logrus.Entry

	// StatusKey names the bootenv variable the persistent transaction
	// status is stored under; empty defaults to DefaultStatusKey.
	StatusKey string

	// Crypto resolves named signature verifiers and decrypt providers.
	// May be nil if RequireSignedImage is false and no artifact in any
	// package this coordinator will ever see is encrypted.
	Crypto *crypto.Registry
	// RequireSignedImage, when true, makes every Run reject a package
	// whose second archive entry is not a valid detached signature over
	// the first, verified with SignatureVerifierName/PublicKey. This is
	// a property of the device's own configuration, not of the
	// manifest: a manifest cannot turn off a signature requirement the
	// device was configured to enforce.
	RequireSignedImage     bool
	SignatureVerifierName  string
	PublicKey              []byte

	state  State
	status *StatusStore
}

// NewCoordinator wires a coordinator from its collaborators. log may be
// nil, in which case a silent no-op entry is used.
func NewCoordinator(device manifest.DeviceIdentity, reg *handler.Registry, bl bootloader.Bootloader, bus *notifier.Bus, log *logrus.Entry) *Coordinator {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = logrus.NewEntry(l)
	}
	return &Coordinator{
		Device:     device,
		Registry:   reg,
		Bootloader: bl,
		Bus:        bus,
		Log:        log,
		state:      StateIdle,
	}
}

// State reports the coordinator's current in-memory lifecycle state.
// This is distinct from the persistent Status (see Status/StatusStore),
// which survives across reboots; State starts at StateIdle when the
// Coordinator is created and Run does not reset it.
func (c *Coordinator) State() State { return c.state }

func (c *Coordinator) advance(next State) {
	if !c.state.canTransitionTo(next) {
		panic(fmt.Sprintf("transaction: illegal transition %s -> %s", c.state, next))
	}
	c.state = next
	c.notify(notifier.LevelInfo, next.String(), "entering phase "+next.String(), -1)
}

func (c *Coordinator) notify(level notifier.Level, phase, message string, percent int) {
	if c.Bus != nil {
		c.Bus.Publish(notifier.Record{Level: level, Phase: phase, Message: message, Percent: percent})
	}
}

// Run parses src as a cpio archive, validates its manifest against the
// installing device and registered handlers, and then executes
// preinstall, installing, and postinstall handler calls in manifest
// order before committing bootenv changes. Any error before Commit
// leaves the plan's staged bootenv variables unapplied: Commit is the
// only phase that writes them, and it is reached only once every other
// phase has returned success. The persistent status variable is still
// written (in-progress at the start, failed on error) whenever a
// Bootloader is set; with no Bootloader, no bootenv is touched at all.
func (c *Coordinator) Run(ctx context.Context, src io.Reader, currentVersion string) error {
	if c.Registry != nil {
		defer c.Registry.EndSession()
	}
	if c.Bootloader != nil {
		c.status = NewStatusStore(c.Bootloader, c.StatusKey)
		if err := c.status.Set(StatusInProgress); err != nil {
			return c.fail(fmt.Errorf("transaction: marking update in-progress: %w", err), nil, nil)
		}
	}

	c.advance(StateParsing)
	plan, payloads, err := c.parse(src)
	if err != nil {
		return c.fail(err, nil, nil)
	}
	if err := c.checkVersionPolicy(plan, currentVersion); err != nil {
		return c.fail(err, plan, payloads)
	}

	progress := newProgressTracker(plan)

	c.advance(StatePreinstall)
	if err := c.runScriptPhase(ctx, plan, payloads, "pre", progress); err != nil {
		return c.fail(err, plan, payloads)
	}

	c.advance(StateInstalling)
	if err := c.runInstallPhase(ctx, plan, payloads, progress); err != nil {
		return c.fail(err, plan, payloads)
	}

	c.advance(StatePostinstall)
	if err := c.runScriptPhase(ctx, plan, payloads, "post", progress); err != nil {
		return c.fail(err, plan, payloads)
	}

	c.advance(StateCommit)
	if err := c.commit(plan); err != nil {
		return c.fail(err, plan, payloads)
	}

	c.state = StateDone
	c.notify(notifier.LevelInfo, StateDone.String(), "update installed", 100)
	return nil
}

// fail records cause as the session result: it runs every opted-in
// failure script on a best-effort basis (their own errors are logged
// but never replace cause), persists StatusFailed, and emits a single
// failure notification. The staged bootenv set is never applied, since
// commit is the only step that writes it and fail is only ever called
// before commit succeeds.
func (c *Coordinator) fail(cause error, plan *manifest.Plan, payloads map[string][]byte) error {
	c.state = StateFail
	if plan != nil {
		c.runFailureScripts(plan, payloads)
	}
	if c.status != nil {
		if err := c.status.Set(StatusFailed); err != nil {
			c.Log.WithError(err).Error("transaction: failed to persist failed status")
		}
	}
	c.notify(notifier.LevelError, StateFail.String(), cause.Error(), -1)
	return cause
}

func (c *Coordinator) runFailureScripts(plan *manifest.Plan, payloads map[string][]byte) {
	for i := range plan.Artifacts {
		a := &plan.Artifacts[i]
		if !a.IsScript() || !wantsFailurePhase(a) {
			continue
		}
		h, ok := c.Registry.Lookup(a.HandlerType)
		if !ok {
			continue
		}
		hctx := &handler.Context{
			Context:  context.Background(),
			Plan:     plan,
			Artifact: a,
			Payload:  newByteReader(payloads[a.SourceFilename]),
			Phase:    "failure",
		}
		if err := h.Install(hctx); err != nil {
			c.Log.WithField("artifact", a.Name).WithError(err).Warn("transaction: failure-phase script returned an error")
		}
	}
}

func wantsFailurePhase(a *manifest.Artifact) bool {
	v, ok := a.Properties[onFailureProperty]
	return ok && len(v) > 0 && v[0] != "" && v[0] != "false"
}

// parse reads every archive entry. The first entry must be
// "sw-description"; if RequireSignedImage is set, the next entry must
// be a detached signature over it, verified before the manifest bytes
// are parsed at all. Every later entry is buffered by name so handler
// phases can look payloads up by the artifact's SourceFilename -- a
// deliberate departure from pure streaming for anything after the
// manifest, since artifacts in phase order do not generally match
// their order inside the archive.
func (c *Coordinator) parse(src io.Reader) (*manifest.Plan, map[string][]byte, error) {
	r := archive.Open(src)
	hdr, err := r.Next()
	if err != nil {
		return nil, nil, fmt.Errorf("transaction: reading first archive entry: %w", err)
	}
	if hdr.Name != "sw-description" {
		return nil, nil, fmt.Errorf("transaction: first archive entry must be sw-description, got %q", hdr.Name)
	}
	descBytes, err := io.ReadAll(r.Payload())
	if err != nil {
		return nil, nil, fmt.Errorf("transaction: reading sw-description: %w", err)
	}

	if c.RequireSignedImage {
		if err := c.verifySignature(r, descBytes); err != nil {
			return nil, nil, err
		}
	}

	plan, err := manifest.Parse(descBytes)
	if err != nil {
		return nil, nil, err
	}
	if err := manifest.Validate(plan, manifest.ValidateOptions{
		Device:             c.Device,
		Handlers:           c.Registry.Capabilities(),
		RequireSignedImage: c.RequireSignedImage,
	}); err != nil {
		return nil, nil, err
	}

	payloads := make(map[string][]byte)
	for {
		hdr, err := r.Next()
		if err != nil {
			return nil, nil, fmt.Errorf("transaction: reading archive: %w", err)
		}
		if hdr.IsTrailer() {
			break
		}
		data, err := io.ReadAll(r.Payload())
		if err != nil {
			return nil, nil, fmt.Errorf("transaction: reading entry %q: %w", hdr.Name, err)
		}
		payloads[hdr.Name] = data
	}
	return plan, payloads, nil
}

// verifySignature reads the archive's second entry as a detached
// signature over descBytes and checks it with the configured verifier.
// The manifest content in descBytes must not be acted on (parsed,
// denormalized, or validated) until this returns nil.
func (c *Coordinator) verifySignature(r *archive.Reader, descBytes []byte) error {
	if c.Crypto == nil {
		return fmt.Errorf("transaction: signed image required but no crypto registry is configured")
	}
	sigHdr, err := r.Next()
	if err != nil {
		return fmt.Errorf("transaction: reading signature entry: %w", err)
	}
	sigBytes, err := io.ReadAll(r.Payload())
	if err != nil {
		return fmt.Errorf("transaction: reading signature entry %q: %w", sigHdr.Name, err)
	}
	verifier, err := c.Crypto.SignatureVerifier(c.SignatureVerifierName)
	if err != nil {
		return fmt.Errorf("transaction: %w", err)
	}
	if err := verifier.Verify(descBytes, sigBytes, c.PublicKey); err != nil {
		return fmt.Errorf("transaction: signature verification failed: %w", err)
	}
	return nil
}

func (c *Coordinator) checkVersionPolicy(plan *manifest.Plan, currentVersion string) error {
	if currentVersion == "" {
		return nil
	}
	if plan.NoDowngrading && manifest.CompareVersions(plan.Version, currentVersion) < 0 {
		return fmt.Errorf("transaction: refusing downgrade from %s to %s", currentVersion, plan.Version)
	}
	if plan.NoReinstalling && manifest.CompareVersions(plan.Version, currentVersion) == 0 {
		return fmt.Errorf("transaction: refusing reinstall of already-installed version %s", currentVersion)
	}
	if plan.CheckMaxVersion && plan.MaximumVersion != "" && manifest.CompareVersions(currentVersion, plan.MaximumVersion) > 0 {
		return fmt.Errorf("transaction: installed version %s exceeds manifest maximum-version %s", currentVersion, plan.MaximumVersion)
	}
	return nil
}

// runScriptPhase invokes every script artifact, in declaration order,
// for one of the "pre"/"post" phases. A script artifact runs once per
// phase: both calls see the same payload bytes (a fresh reader each
// time), since a temp-file extraction consumes its source exactly
// once per invocation.
func (c *Coordinator) runScriptPhase(ctx context.Context, plan *manifest.Plan, payloads map[string][]byte, phase string, progress *progressTracker) error {
	for i := range plan.Artifacts {
		a := &plan.Artifacts[i]
		if !a.IsScript() {
			continue
		}
		if err := c.install(ctx, plan, payloads, a, phase); err != nil {
			return err
		}
		c.notify(notifier.LevelInfo, phase, "ran "+phase+"install script "+a.Name, progress.step())
	}
	return nil
}

// runInstallPhase dispatches every non-script artifact to its handler,
// in plan order. Validate/denormalize is responsible for ordering
// partition artifacts ahead of the image/file artifacts that target
// them; the coordinator trusts that ordering and simply walks the list.
func (c *Coordinator) runInstallPhase(ctx context.Context, plan *manifest.Plan, payloads map[string][]byte, progress *progressTracker) error {
	for i := range plan.Artifacts {
		a := &plan.Artifacts[i]
		if a.IsScript() {
			continue
		}
		if err := c.install(ctx, plan, payloads, a, ""); err != nil {
			return err
		}
		c.notify(notifier.LevelInfo, "installing", "installed "+a.Name, progress.step())
	}
	return nil
}

func (c *Coordinator) install(ctx context.Context, plan *manifest.Plan, payloads map[string][]byte, a *manifest.Artifact, phase string) error {
	h, ok := c.Registry.Lookup(a.HandlerType)
	if !ok {
		return fmt.Errorf("transaction: no handler registered for %q (artifact %q)", a.HandlerType, a.Name)
	}

	var payload io.Reader
	if a.SourceFilename != "" {
		data, ok := payloads[a.SourceFilename]
		if !ok {
			return fmt.Errorf("transaction: artifact %q references missing archive entry %q", a.Name, a.SourceFilename)
		}
		payload = newByteReader(data)
	} else {
		payload = newByteReader(nil)
	}

	hctx := &handler.Context{Context: ctx, Plan: plan, Artifact: a, Payload: payload, Phase: phase}
	if err := h.Install(hctx); err != nil {
		return fmt.Errorf("transaction: installing %q: %w", a.Name, &handler.Error{Name: a.HandlerType, Err: err})
	}
	return nil
}

func (c *Coordinator) commit(plan *manifest.Plan) error {
	if c.Bootloader != nil && len(plan.Bootenv) > 0 {
		vars := make(map[string]string, len(plan.Bootenv))
		for _, v := range plan.Bootenv {
			vars[v.Key] = v.Value
		}
		if err := c.Bootloader.SetEnv(vars); err != nil {
			return fmt.Errorf("transaction: commit: %w", &bootloader.Error{Backend: c.Bootloader.Name(), Op: "SetEnv", Err: err})
		}
	}
	if c.status == nil {
		return nil
	}
	next := StatusDone
	if _, transactional := c.Bootloader.(TransactionalBootloader); transactional {
		next = StatusTesting
	}
	if err := c.status.Set(next); err != nil {
		return fmt.Errorf("transaction: commit: persisting status: %w", err)
	}
	return nil
}

// Acknowledge marks a StatusTesting update as having booted
// successfully, upgrading it to StatusDone. This is called by the
// front-end after boot, outside of Run; it is the only way a
// transactional bootloader's pending revision becomes permanent.
func (c *Coordinator) Acknowledge() error {
	store := NewStatusStore(c.Bootloader, c.StatusKey)
	return store.Set(StatusDone)
}

// progressTracker turns artifact counts into the percent figures the
// spec's progress accounting calls for: steps = count(non-script
// artifacts) + 2*count(script artifacts), since every script runs at
// both preinstall and postinstall.
type progressTracker struct {
	total int
	done  int
}

func newProgressTracker(plan *manifest.Plan) *progressTracker {
	var scripts, other int
	for i := range plan.Artifacts {
		if plan.Artifacts[i].IsScript() {
			scripts++
		} else {
			other++
		}
	}
	total := other + 2*scripts
	if total == 0 {
		total = 1
	}
	return &progressTracker{total: total}
}

// step records one completed step and returns the new percent complete.
func (p *progressTracker) step() int {
	p.done++
	if p.done > p.total {
		p.done = p.total
	}
	return p.done * 100 / p.total
}
