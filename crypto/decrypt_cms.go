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

import (
	"crypto/rsa"
	"fmt"
)

// rsaOAEPUnwrapper implements transform.CMSUnwrapper for a
// hardware-bound asymmetric key: every chunk is RSA-unwrapped
// independently and concatenated, matching the repeated-Final-call
// handshake some embedded secure elements expose instead of a one-shot
// decrypt call.
type rsaOAEPUnwrapper struct {
	priv *rsa.PrivateKey
}

func newRSAOAEPUnwrapper(priv *rsa.PrivateKey) *rsaOAEPUnwrapper {
	return &rsaOAEPUnwrapper{priv: priv}
}

func (u *rsaOAEPUnwrapper) Final(chunk []byte) ([]byte, error) {
	if len(chunk) == 0 {
		return nil, nil
	}
	plain, err := rsa.DecryptPKCS1v15(nil, u.priv, chunk)
	if err != nil {
		return nil, fmt.Errorf("crypto: cms: %w", err)
	}
	return plain, nil
}

// NewCMSUnwrapper returns a transform.CMSUnwrapper backed by an RSA
// private key already resident in the caller (e.g. loaded from a
// sealed keystore). Exported so a handler can wire it directly into
// transform.DecryptCMS.
func NewCMSUnwrapper(priv *rsa.PrivateKey) *rsaOAEPUnwrapper {
	return newRSAOAEPUnwrapper(priv)
}
