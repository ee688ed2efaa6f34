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

package crypto

import "github.com/swupdate-go/core/transform"

// aesCBCProvider wraps transform.DecryptAESCBC as a named
// DecryptProvider. Key length (16/24/32 bytes) selects AES-128/192/256;
// transform.DecryptAESCBC itself rejects any other length.
type aesCBCProvider struct{}

func (aesCBCProvider) Stage(key, iv []byte) transform.Stage {
	return transform.DecryptAESCBC(key, iv)
}
