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

package handler

import "fmt"

// Error reports that a named handler's Install call returned an error,
// preserving which handler failed alongside the underlying cause so a
// caller can distinguish a handler failure from every other stage of
// the pipeline without parsing error strings.
type Error struct {
	Name string // the handler's registered name, e.g. "rawfile"
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("handler %q: %s", e.Name, e.Err) }

func (e *Error) Unwrap() error { return e.Err }
