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
	"fmt"
	"io"
)

// CMSUnwrapper is implemented by a hardware-bound asymmetric decrypt
// provider (e.g. a TPM-sealed key). Final is called repeatedly as
// ciphertext chunks arrive and must return the plaintext produced so
// far, mirroring the repeated-"final"-call handshake some embedded
// crypto engines expose instead of a single one-shot call.
type CMSUnwrapper interface {
	Final(chunk []byte) ([]byte, error)
}

// DecryptCMS returns a Stage that drains src through an already-keyed
// CMSUnwrapper in fixed-size chunks. Unlike DecryptAESCBC this does not
// need to buffer the whole ciphertext, since the unwrapper itself knows
// how to finalize incrementally.
func DecryptCMS(unwrapper CMSUnwrapper, chunkSize int) Stage {
	if chunkSize <= 0 {
		chunkSize = 64 * 1024
	}
	return func(src io.Reader) (io.Reader, func() error, error) {
		pr, pw := io.Pipe()
		go func() {
			buf := make([]byte, chunkSize)
			for {
				n, rerr := src.Read(buf)
				if n > 0 {
					plain, err := unwrapper.Final(buf[:n])
					if err != nil {
						pw.CloseWithError(&DecryptError{Detail: fmt.Sprintf("cms: %s", err)})
						return
					}
					if _, werr := pw.Write(plain); werr != nil {
						pw.CloseWithError(werr)
						return
					}
				}
				if rerr == io.EOF {
					pw.Close()
					return
				}
				if rerr != nil {
					pw.CloseWithError(rerr)
					return
				}
			}
		}()
		return pr, nil, nil
	}
}
