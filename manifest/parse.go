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

// Parse decodes raw manifest bytes with the first registered grammar that
// accepts them and flattens the result into a *Plan. It performs no
// validation; call Validate on the result before acting on it.
func Parse(data []byte) (*Plan, error) {
	doc, err := decodeDocument(data)
	if err != nil {
		return nil, err
	}
	return denormalize(doc)
}

// ParseAndValidate is the common entry point: parse, then validate against
// the installing device and handler registry.
func ParseAndValidate(data []byte, opts ValidateOptions) (*Plan, error) {
	p, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if err := Validate(p, opts); err != nil {
		return nil, err
	}
	return p, nil
}
