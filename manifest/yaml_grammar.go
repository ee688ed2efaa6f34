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
	"fmt"

	"gopkg.in/yaml.v3"
)

// yamlGrammar decodes the YAML manifest syntax, grounded on the same
// dependency the ambient logging/config stack pulls in elsewhere.
type yamlGrammar struct{}

func (yamlGrammar) Name() string { return "yaml" }

func (yamlGrammar) Decode(data []byte) (map[string]interface{}, error) {
	doc := make(map[string]interface{})
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return normalizeYAMLMaps(doc).(map[string]interface{}), nil
}

// normalizeYAMLMaps recursively converts map[string]interface{} nodes that
// yaml.v3 may produce as map[interface{}]interface{} (via nested nodes) into
// map[string]interface{}, so downstream denormalization code never has to
// type-switch on two different map shapes depending on grammar.
func normalizeYAMLMaps(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, vv := range val {
			out[k] = normalizeYAMLMaps(vv)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, vv := range val {
			out[toStringKey(k)] = normalizeYAMLMaps(vv)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, vv := range val {
			out[i] = normalizeYAMLMaps(vv)
		}
		return out
	default:
		return v
	}
}

func toStringKey(k interface{}) string {
	if s, ok := k.(string); ok {
		return s
	}
	return fmt.Sprint(k)
}

func init() {
	RegisterGrammar(yamlGrammar{})
}
