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

package manifest

import "fmt"

// HandlerCapabilities reports, for each registered handler name, which
// Classification bits it accepts. Passed in by the caller so this package
// does not import the handler registry (which would create an import
// cycle, since handlers accept a *Plan).
type HandlerCapabilities map[string]Classification

// ValidateOptions bundles everything Validate needs beyond the plan itself.
type ValidateOptions struct {
	Device       DeviceIdentity
	Handlers     HandlerCapabilities
	SkipHWCompat bool // set by tests exercising a device-agnostic manifest

	// RequireSignedImage is the device's own signing policy, set by the
	// transaction coordinator from its configuration rather than from
	// the manifest: a manifest cannot opt itself out of a signature
	// requirement the device enforces. When true, every data-bearing
	// artifact must declare a hash regardless of what the manifest's
	// own crypto section says.
	RequireSignedImage bool
}

// Validate enforces every cross-cutting policy rule from a parsed plan:
// hardware compatibility, handler resolution, and hash/signature policy
// self-consistency. It does no version gating and does not compare
// against a currently-installed version; that is CompareVersions plus
// Plan.NoDowngrading/NoReinstalling, applied by the transaction coordinator
// which alone knows the running version.
func Validate(p *Plan, opts ValidateOptions) error {
	var errs errorList

	if opts.RequireSignedImage {
		p.Crypto.SignedImage = true
	}

	if p.SoftwareName == "" {
		errs.add("manifest is missing a software name")
	}
	if p.Version == "" {
		errs.add("manifest is missing a version")
	}

	if !opts.SkipHWCompat && len(p.HardwareCompatibility) > 0 {
		if !AnyMatches(p.HardwareCompatibility, opts.Device) {
			errs.add(fmt.Sprintf("device board=%q revision=%q matches no hardware-compatibility entry",
				opts.Device.Board, opts.Device.Revision))
		}
	}

	if len(p.Artifacts) == 0 {
		errs.add(fmt.Sprintf("update type %q selects no artifacts", p.UpdateType))
	}

	seenNames := make(map[string]bool, len(p.Artifacts))
	for i := range p.Artifacts {
		a := &p.Artifacts[i]
		if a.Name == "" {
			errs.add(fmt.Sprintf("artifact #%d has no name", i))
			continue
		}
		if seenNames[a.Name] {
			errs.add(fmt.Sprintf("artifact name %q is used more than once", a.Name))
		}
		seenNames[a.Name] = true

		if !a.IsScript() && a.Class&ClassNoData == 0 && a.SourceFilename == "" {
			errs.add(fmt.Sprintf("artifact %q needs a source filename", a.Name))
		}
		if opts.Handlers != nil {
			mask, known := opts.Handlers[a.HandlerType]
			if !known {
				errs.add(fmt.Sprintf("artifact %q references unregistered handler %q", a.Name, a.HandlerType))
			} else if mask&a.Class == 0 {
				errs.add(fmt.Sprintf("handler %q does not accept artifact class %s (artifact %q)", a.HandlerType, a.Class, a.Name))
			}
		}
		if !a.IsScript() && a.Class&ClassNoData == 0 {
			switch {
			case p.Crypto.SignedImage && a.ExpectedSHA256 == "":
				errs.add(fmt.Sprintf("artifact %q has no expected hash but signed-image mode requires one for every data-bearing artifact", a.Name))
			case !p.Crypto.SignedImage && p.Crypto.HashCheckEnabled && a.ExpectedSHA256 == "":
				errs.add(fmt.Sprintf("artifact %q has no expected hash but hash checking is enabled", a.Name))
			case !p.Crypto.SignedImage && !p.Crypto.HashCheckEnabled && a.ExpectedSHA256 != "":
				errs.add(fmt.Sprintf("artifact %q declares an expected hash but hash checking is disabled", a.Name))
			}
		}
		if a.Encrypted && p.Crypto.DecryptProvider == "" {
			errs.add(fmt.Sprintf("artifact %q is marked encrypted but no decrypt-provider is configured", a.Name))
		}
	}

	if p.Crypto.SignedImage && p.Crypto.SignatureVerifier == "" {
		errs.add("manifest requires a signed image but names no signature-verifier")
	}

	return errs.asError()
}

type errorList struct {
	items []string
}

func (e *errorList) add(msg string) { e.items = append(e.items, msg) }

func (e *errorList) asError() error {
	if len(e.items) == 0 {
		return nil
	}
	detail := e.items[0]
	for _, extra := range e.items[1:] {
		detail += "; " + extra
	}
	return &ValidationError{Detail: detail}
}
