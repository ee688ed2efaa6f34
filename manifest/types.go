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

// Package manifest parses the first archive entry ("sw-description") into a
// validated, immutable install plan. Parsing tries each registered grammar
// in turn; validation enforces hardware compatibility, handler resolution,
// and hash/signature policy. Version gating is left to the caller, using
// CompareVersions.
package manifest

import "fmt"

// Classification is a bitset describing what an artifact is, matched
// against a handler's declared capability mask.
type Classification uint8

const (
	ClassImage Classification = 1 << iota
	ClassFile
	ClassPartition
	ClassScript
	ClassBootloader
	ClassNoData
)

func (c Classification) String() string {
	names := []struct {
		bit  Classification
		name string
	}{
		{ClassImage, "image"}, {ClassFile, "file"}, {ClassPartition, "partition"},
		{ClassScript, "script"}, {ClassBootloader, "bootloader"}, {ClassNoData, "no-data"},
	}
	out := ""
	for _, n := range names {
		if c&n.bit != 0 {
			if out != "" {
				out += "|"
			}
			out += n.name
		}
	}
	if out == "" {
		return "none"
	}
	return out
}

// Compression names the decompression stage an artifact's payload needs.
type Compression string

const (
	CompressionNone Compression = ""
	CompressionZlib Compression = "zlib"
	CompressionZstd Compression = "zstd"
)

// HardwareCompatibility is one (board, revision-pattern) entry from the
// manifest's hardware-compatibility list. Pattern is either a literal
// revision string or, when RegexPattern is true or Pattern starts with
// RegexMarker, an anchored regular expression.
type HardwareCompatibility struct {
	Board        string
	Pattern      string
	RegexPattern bool
}

// DeviceIdentity is the (board, revision) pair read from the device, used
// to select a matching HardwareCompatibility entry.
type DeviceIdentity struct {
	Board    string
	Revision string
}

// Artifact is one entry in the install plan's ordered artifact list.
type Artifact struct {
	Name           string
	Version        string
	HandlerType    string
	SourceFilename string // name within the archive; empty for no-data handlers

	Device     string
	Path       string
	Volume     string
	MTDName    string
	Filesystem string

	ExpectedSHA256 string // hex, 64 chars; empty if hash checking is disabled
	Size           int64
	Compressed     Compression
	Encrypted      bool
	IVHex          string // per-artifact IV override, 32 hex chars

	InstalledDirectly  bool
	InstallIfDifferent bool
	InstallIfHigher    bool

	Properties map[string][]string
	Class      Classification
}

// IsScript reports whether this artifact is invoked as a script rather than
// streamed through a handler's data sink.
func (a *Artifact) IsScript() bool {
	return a.Class&ClassScript != 0
}

// BootenvVar is one (key, value) pair to be applied atomically at commit.
type BootenvVar struct {
	Key   string
	Value string
}

// CryptoConfig carries a manifest's own hash/signature/decrypt policy.
// It travels on the Plan value itself rather than through package-level
// state, so two plans parsed in the same process never share config.
type CryptoConfig struct {
	HashCheckEnabled     bool
	SignedImage          bool
	SignatureVerifier    string // name registered in the crypto registry
	DecryptProvider      string // name registered in the crypto registry, empty if unencrypted
	KeyLengthBits        int    // 128, 192, or 256 for AES
	GlobalIVHex          string
}

// Plan is the immutable install plan built from a validated manifest.
// Handlers may read it freely but must never mutate it.
type Plan struct {
	SoftwareName    string
	Version         string
	Description     string
	MinimumVersion  string
	MaximumVersion  string
	CurrentVersion  string
	NoDowngrading   bool
	CheckMaxVersion bool
	NoReinstalling  bool

	HardwareCompatibility []HardwareCompatibility
	UpdateType            string
	Artifacts             []Artifact
	Bootenv               []BootenvVar
	Crypto                CryptoConfig
}

// ParseError reports that no registered grammar could decode a manifest.
type ParseError struct{ Detail string }

func (e *ParseError) Error() string { return fmt.Sprintf("manifest parse error: %s", e.Detail) }

// ValidationError reports that a parsed plan fails a cross-cutting policy
// check (hardware compatibility, handler resolution, version gating, ...).
type ValidationError struct{ Detail string }

func (e *ValidationError) Error() string { return fmt.Sprintf("manifest validation error: %s", e.Detail) }
