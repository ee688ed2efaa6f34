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

import "fmt"

// SignatureError reports that a detached signature failed to verify,
// or that the public key/signature bytes could not even be parsed.
type SignatureError struct{ Detail string }

func (e *SignatureError) Error() string { return fmt.Sprintf("crypto: signature: %s", e.Detail) }
