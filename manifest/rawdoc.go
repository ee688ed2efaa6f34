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

import (
	"fmt"
)

// denormalize walks the generic document produced by any Grammar into a
// *Plan. Top-level layout:
//
//	name, version, description                     strings
//	minimum-version, maximum-version                strings
//	no-downgrading, check-max-version, no-reinstalling   bools
//	update-type                                     string, default "default"
//	hardware-compatibility                          list of {board, revision, regex}
//	crypto                                          table, see readCrypto
//	software.<section>.<board>.<selector>           nested tables, see readSoftwareTree
//
// The type-section is a free-form grouping (e.g. a release channel); board
// must match the installing device's hardware board; selector groups a
// named variant of the update (e.g. "default", "bootonly") and becomes
// Plan.UpdateType when it is selected.
func denormalize(doc map[string]interface{}) (*Plan, error) {
	p := &Plan{
		SoftwareName:    getString(doc, "name"),
		Version:         getString(doc, "version"),
		Description:     getString(doc, "description"),
		MinimumVersion:  getString(doc, "minimum-version"),
		MaximumVersion:  getString(doc, "maximum-version"),
		NoDowngrading:   getBool(doc, "no-downgrading"),
		CheckMaxVersion: getBool(doc, "check-max-version"),
		NoReinstalling:  getBool(doc, "no-reinstalling"),
		UpdateType:      getString(doc, "update-type"),
	}
	if p.UpdateType == "" {
		p.UpdateType = "default"
	}

	for _, raw := range getSlice(doc, "hardware-compatibility") {
		entry, ok := raw.(map[string]interface{})
		if !ok {
			return nil, &ParseError{Detail: "hardware-compatibility entries must be tables"}
		}
		p.HardwareCompatibility = append(p.HardwareCompatibility, HardwareCompatibility{
			Board:        getString(entry, "board"),
			Pattern:      getString(entry, "revision"),
			RegexPattern: getBool(entry, "regex"),
		})
	}

	if cryptoRaw, ok := doc["crypto"].(map[string]interface{}); ok {
		p.Crypto = readCrypto(cryptoRaw)
	}

	software, _ := doc["software"].(map[string]interface{})
	artifacts, bootenv, err := readSoftwareTree(software, p.UpdateType)
	if err != nil {
		return nil, err
	}
	p.Artifacts = artifacts
	p.Bootenv = bootenv

	return p, nil
}

func readCrypto(m map[string]interface{}) CryptoConfig {
	return CryptoConfig{
		HashCheckEnabled:  getBool(m, "hash-check"),
		SignedImage:       getBool(m, "signed"),
		SignatureVerifier: getString(m, "signature-verifier"),
		DecryptProvider:   getString(m, "decrypt-provider"),
		KeyLengthBits:     getInt(m, "key-length-bits"),
		GlobalIVHex:       getString(m, "iv"),
	}
}

// readSoftwareTree walks software.<section>.<board>.<selector> and
// flattens every selector table matching wantSelector into one artifact
// list plus one bootenv list. Sections and boards are otherwise
// unconstrained; selector is the caller's chosen UpdateType.
func readSoftwareTree(software map[string]interface{}, wantSelector string) ([]Artifact, []BootenvVar, error) {
	var artifacts []Artifact
	var bootenv []BootenvVar

	for sectionName, sectionRaw := range software {
		section, ok := sectionRaw.(map[string]interface{})
		if !ok {
			continue
		}
		for boardName, boardRaw := range section {
			board, ok := boardRaw.(map[string]interface{})
			if !ok {
				continue
			}
			for selectorName, selectorRaw := range board {
				if selectorName != wantSelector {
					continue
				}
				selector, ok := selectorRaw.(map[string]interface{})
				if !ok {
					return nil, nil, &ParseError{Detail: fmt.Sprintf(
						"software.%s.%s.%s must be a table", sectionName, boardName, selectorName)}
				}
				a, err := readArtifactGroup(selector, sectionName, boardName)
				if err != nil {
					return nil, nil, err
				}
				artifacts = append(artifacts, a...)
				bootenv = append(bootenv, readBootenv(selector)...)
			}
		}
	}
	return artifacts, bootenv, nil
}

func readArtifactGroup(selector map[string]interface{}, section, board string) ([]Artifact, error) {
	var out []Artifact
	// partitions must precede images/files in the flattened artifact
	// list: the coordinator installs non-script artifacts in plan order,
	// and a partition must exist before anything is written into it.
	kinds := []struct {
		key   string
		class Classification
	}{
		{"partitions", ClassPartition},
		{"images", ClassImage},
		{"files", ClassFile},
		{"scripts", ClassScript},
		{"bootloader", ClassBootloader},
	}
	for _, kind := range kinds {
		for _, raw := range getSlice(selector, kind.key) {
			entryMap, ok := raw.(map[string]interface{})
			if !ok {
				return nil, &ParseError{Detail: fmt.Sprintf("%s entry in section %s/%s must be a table", kind.key, section, board)}
			}
			out = append(out, readArtifact(entryMap, kind.class))
		}
	}
	return out, nil
}

func readArtifact(m map[string]interface{}, class Classification) Artifact {
	a := Artifact{
		Name:               getString(m, "name"),
		Version:            getString(m, "version"),
		HandlerType:        getString(m, "type"),
		SourceFilename:     getString(m, "filename"),
		Device:             getString(m, "device"),
		Path:               getString(m, "path"),
		Volume:             getString(m, "volume"),
		MTDName:            getString(m, "mtd-name"),
		Filesystem:         getString(m, "filesystem"),
		ExpectedSHA256:     getString(m, "sha256"),
		Size:               int64(getInt(m, "size")),
		Compressed:         Compression(getString(m, "compressed")),
		Encrypted:          getBool(m, "encrypted"),
		IVHex:              getString(m, "iv"),
		InstalledDirectly:  getBool(m, "installed-directly"),
		InstallIfDifferent: getBool(m, "install-if-different"),
		InstallIfHigher:    getBool(m, "install-if-higher"),
		Class:              class,
	}
	if props, ok := m["properties"].(map[string]interface{}); ok {
		a.Properties = make(map[string][]string, len(props))
		for k, v := range props {
			for _, item := range getSlice(props, k) {
				a.Properties[k] = append(a.Properties[k], fmt.Sprint(item))
			}
			if len(a.Properties[k]) == 0 {
				a.Properties[k] = []string{fmt.Sprint(v)}
			}
		}
	}
	return a
}

func readBootenv(selector map[string]interface{}) []BootenvVar {
	var out []BootenvVar
	for _, raw := range getSlice(selector, "bootenv") {
		entry, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		out = append(out, BootenvVar{Key: getString(entry, "key"), Value: getString(entry, "value")})
	}
	return out
}

// --- tolerant accessors -----------------------------------------------
//
// The three grammars decode numbers differently (TOML: int64; JSON, with
// UseNumber: json.Number; YAML: int or uint64), so every read goes through
// these helpers instead of a direct type assertion.

func getString(m map[string]interface{}, key string) string {
	v, ok := m[key]
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func getBool(m map[string]interface{}, key string) bool {
	v, ok := m[key]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

func getInt(m map[string]interface{}, key string) int {
	v, ok := m[key]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case uint64:
		return int(n)
	case float64:
		return int(n)
	case fmt.Stringer:
		var out int
		fmt.Sscanf(n.String(), "%d", &out)
		return out
	default:
		var out int
		fmt.Sscanf(fmt.Sprint(v), "%d", &out)
		return out
	}
}

func getSlice(m map[string]interface{}, key string) []interface{} {
	v, ok := m[key]
	if !ok {
		return nil
	}
	switch s := v.(type) {
	case []interface{}:
		return s
	case []map[string]interface{}:
		// TOML array-of-tables decodes straight to this concrete type
		// instead of []interface{} when the target is interface{}.
		out := make([]interface{}, len(s))
		for i, item := range s {
			out[i] = item
		}
		return out
	default:
		return nil
	}
}
