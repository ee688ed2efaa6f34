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

import "fmt"

// Grammar decodes one textual manifest syntax into the generic document
// tree shared by every grammar. The typed Plan produced downstream is
// normative; the grammar it was decoded from is not.
type Grammar interface {
	Name() string
	Decode(data []byte) (map[string]interface{}, error)
}

// registry holds the grammars tried, in order, by Parse.
var registry []Grammar

// RegisterGrammar adds a grammar to the end of the try-in-order list.
// Intended to be called from package init functions.
func RegisterGrammar(g Grammar) {
	for _, existing := range registry {
		if existing.Name() == g.Name() {
			panic(fmt.Sprintf("manifest: grammar %q already registered", g.Name()))
		}
	}
	registry = append(registry, g)
}

// decodeDocument tries every registered grammar in registration order and
// returns the first successful parse. If every grammar fails, a
// *ParseError is returned summarizing the attempts.
func decodeDocument(data []byte) (map[string]interface{}, error) {
	if len(registry) == 0 {
		return nil, &ParseError{Detail: "no manifest grammars registered"}
	}
	var attempts []string
	for _, g := range registry {
		doc, err := g.Decode(data)
		if err == nil {
			return doc, nil
		}
		attempts = append(attempts, fmt.Sprintf("%s: %v", g.Name(), err))
	}
	return nil, &ParseError{Detail: fmt.Sprintf("no registered grammar could parse the manifest (%v)", attempts)}
}
