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
	"regexp"
	"strings"
)

// RegexMarker prefixes a HardwareCompatibility.Pattern to mark it as an
// anchored regular expression instead of a literal match.
const RegexMarker = "#RE:"

// Matches reports whether this compatibility entry accepts the given
// device identity. The board name must match exactly; the revision either
// equals Pattern literally, or, when Pattern carries the regex marker
// (which is stripped) or RegexPattern is set, matches it as an anchored
// regular expression.
func (h HardwareCompatibility) Matches(device DeviceIdentity) bool {
	if h.Board != device.Board {
		return false
	}
	pattern, isRegex := h.Pattern, h.RegexPattern
	if strings.HasPrefix(pattern, RegexMarker) {
		pattern, isRegex = strings.TrimPrefix(pattern, RegexMarker), true
	}
	if isRegex {
		rx, err := regexp.Compile("^(?:" + pattern + ")$")
		if err != nil {
			return false
		}
		return rx.MatchString(device.Revision)
	}
	return pattern == device.Revision
}

// AnyMatches reports whether any entry in the list matches the device.
func AnyMatches(list []HardwareCompatibility, device DeviceIdentity) bool {
	for _, h := range list {
		if h.Matches(device) {
			return true
		}
	}
	return false
}
