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

package transform

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// HashTee returns a Stage that feeds every byte it sees into a SHA-256
// digest while passing it through unchanged, and a Sum function that
// reports the hex digest once the chain has been fully drained. Sum
// must only be called after Chain returns.
func HashTee() (stage Stage, sum func() string) {
	h := sha256.New()
	stage = func(src io.Reader) (io.Reader, func() error, error) {
		return io.TeeReader(src, h), nil, nil
	}
	sum = func() string {
		return hex.EncodeToString(h.Sum(nil))
	}
	return stage, sum
}
