// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package editorprotocol

// commandExplain, commandImprove, commandFix, and commandAtMention are the
// execute-command identifiers this endpoint registers, namespaced under the
// domain prefix the original implementation used ("claude-code.*").
const (
	commandExplain   = "claude-code.explain"
	commandImprove   = "claude-code.improve"
	commandFix       = "claude-code.fix"
	commandAtMention = "claude-code.at-mention"
)

func serverCapabilities() map[string]interface{} {
	return map[string]interface{}{
		"textDocumentSync": map[string]interface{}{
			"openClose": true,
			"change":    2, // incremental
			"save":      map[string]interface{}{"includeText": false},
		},
		"hoverProvider": true,
		"completionProvider": map[string]interface{}{
			"resolveProvider":   false,
			"triggerCharacters": []string{"@"},
		},
		"selectionRangeProvider": true,
		"definitionProvider":     true,
		"referencesProvider":     true,
		"documentSymbolProvider": true,
		"workspaceSymbolProvider": true,
		"codeActionProvider":     true,
		"executeCommandProvider": map[string]interface{}{
			"commands": []string{commandExplain, commandImprove, commandFix, commandAtMention},
		},
	}
}

func initializeResult() map[string]interface{} {
	return map[string]interface{}{
		"capabilities": serverCapabilities(),
		"serverInfo": map[string]interface{}{
			"name":    "Claude Code Language Server",
			"version": "0.1.0",
		},
	}
}
