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

import "fmt"

// CancelledError is returned by Chain when its ctx is done before
// the chain finishes copying into its sink. The sink has received
// whatever bytes made it through before the cancel was observed; it is
// the caller's responsibility to discard them.
type CancelledError struct{}

func (*CancelledError) Error() string { return "transform: cancelled" }

// HashMismatchError reports that a fully-written artifact's digest does
// not match the value the manifest declared for it.
type HashMismatchError struct {
	Artifact  string
	Got, Want string
}

func (e *HashMismatchError) Error() string {
	return fmt.Sprintf("hash mismatch: got %s want %s (artifact %q)", e.Got, e.Want, e.Artifact)
}

// DecryptError reports that a decrypt stage could not recover
// plaintext from its input, whether from a malformed key/IV, corrupt
// ciphertext, or bad padding.
type DecryptError struct{ Detail string }

func (e *DecryptError) Error() string { return fmt.Sprintf("transform: decrypt: %s", e.Detail) }

// DecompressError reports that a decompress stage could not read its
// input as the codec it was configured for.
type DecompressError struct{ Codec, Detail string }

func (e *DecompressError) Error() string {
	return fmt.Sprintf("transform: decompress: %s: %s", e.Codec, e.Detail)
}

// IOError reports a filesystem failure underneath a Sink (creating the
// temporary file, syncing, renaming into place), distinct from a
// malformed artifact or a policy violation.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string { return fmt.Sprintf("transform: sink: %s: %s", e.Op, e.Err) }

func (e *IOError) Unwrap() error { return e.Err }
