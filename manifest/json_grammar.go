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
	"bytes"
	"encoding/json"
)

// jsonGrammar decodes the JSON manifest syntax, using json.Number so
// integer and float manifest values decode without precision loss.
type jsonGrammar struct{}

func (jsonGrammar) Name() string { return "json" }

func (jsonGrammar) Decode(data []byte) (map[string]interface{}, error) {
	doc := make(map[string]interface{})
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func init() {
	RegisterGrammar(jsonGrammar{})
}
