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
	"strconv"
	"strings"
)

// versionComponent is a dot-separated segment decomposed into a leading
// unsigned integer and a trailing string tail, e.g. "9rc2" -> (9, "rc2").
type versionComponent struct {
	num  uint64
	tail string
	// hasDigits is false when the component has no leading digits at all
	// (e.g. "beta"); only meaningful for the first component, see
	// CompareVersions.
	hasDigits bool
}

func splitComponent(s string) versionComponent {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return versionComponent{tail: s}
	}
	n, err := strconv.ParseUint(s[:i], 10, 64)
	if err != nil {
		return versionComponent{tail: s}
	}
	return versionComponent{num: n, tail: s[i:], hasDigits: true}
}

// CompareVersions orders two version strings as up to four dot-separated
// components. Each component compares integer-first, then tail
// lexicographically; missing trailing components are treated as zero. If
// the very first component of either string has no leading digits, the
// whole comparison falls back to plain lexicographic string comparison.
//
// Returns -1, 0, or 1 as a < b, a == b, a > b.
func CompareVersions(a, b string) int {
	aParts := strings.SplitN(a, ".", 4)
	bParts := strings.SplitN(b, ".", 4)

	aFirst := splitComponent(aParts[0])
	bFirst := splitComponent(bParts[0])
	if !aFirst.hasDigits || !bFirst.hasDigits {
		return strings.Compare(a, b)
	}

	n := len(aParts)
	if len(bParts) > n {
		n = len(bParts)
	}
	for i := 0; i < n; i++ {
		var ac, bc versionComponent
		if i < len(aParts) {
			ac = splitComponent(aParts[i])
		}
		if i < len(bParts) {
			bc = splitComponent(bParts[i])
		}
		if ac.num != bc.num {
			if ac.num < bc.num {
				return -1
			}
			return 1
		}
		if c := strings.Compare(ac.tail, bc.tail); c != 0 {
			return c
		}
	}
	return 0
}
