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

import "testing"

func TestCompareVersions(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.0.0", 0},
		{"1.0.0", "1.0.1", -1},
		{"1.2.0", "1.10.0", -1},
		{"2.0.0", "1.9.9", 1},
		{"1.0", "1.0.0", 0},
		{"1.0.0rc1", "1.0.0rc2", -1},
		{"1.0.0", "1.0.0rc1", -1},
		{"beta", "alpha", 1},
	}
	for _, c := range cases {
		if got := CompareVersions(c.a, c.b); got != c.want {
			t.Errorf("CompareVersions(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestCompareVersionsAntisymmetric(t *testing.T) {
	pairs := [][2]string{{"1.2.3", "1.2.4"}, {"3.0.0", "3.0.0.1"}, {"9", "10"}}
	for _, p := range pairs {
		fwd := CompareVersions(p[0], p[1])
		rev := CompareVersions(p[1], p[0])
		if fwd != -rev {
			t.Errorf("CompareVersions(%q,%q)=%d not antisymmetric with reverse=%d", p[0], p[1], fwd, rev)
		}
	}
}
