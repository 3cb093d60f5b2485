package outline

// javascriptLanguage detects function and class boundaries in JavaScript
// by delegating to typescriptLanguage and filtering out the
// TypeScript-only block types (interface, type) it would otherwise
// produce.
type javascriptLanguage struct {
	ts typescriptLanguage
}

func init() {
	RegisterLanguage("javascript", javascriptLanguage{})
}

// DetectBlocks identifies function and class boundaries in JavaScript.
func (js javascriptLanguage) DetectBlocks(content string) []Block {
	blocks := js.ts.DetectBlocks(content)

	var jsBlocks []Block
	for _, block := range blocks {
		if block.Type != "interface" && block.Type != "type" {
			jsBlocks = append(jsBlocks, block)
		}
	}

	return jsBlocks
}
