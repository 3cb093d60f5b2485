package outline

import (
	"strings"
	"unicode"
)

// typescriptLanguage detects function, class, interface, and type alias
// boundaries in TypeScript source using brace depth tracking after
// stripping strings and comments.
type typescriptLanguage struct{}

func init() {
	RegisterLanguage("typescript", typescriptLanguage{})
}

// DetectBlocks identifies function, class, interface, and type boundaries
// in the content. Arrow functions with simple expressions (no braces) are
// treated as single-line blocks.
func (ts typescriptLanguage) DetectBlocks(content string) []Block {
	if content == "" {
		return []Block{}
	}

	s := newStripper("//", "/*", "*/")
	stripped, err := s.strip(content)
	if err != nil {
		lines := strings.Split(content, "\n")
		return []Block{{Type: "block", StartLine: 0, EndLine: len(lines) - 1}}
	}

	originalLines := strings.Split(content, "\n")
	strippedLines := strings.Split(stripped, "\n")
	var blocks []Block

	for i := 0; i < len(strippedLines); i++ {
		strippedLine := strings.TrimSpace(strippedLines[i])
		originalLine := strings.TrimSpace(originalLines[i])

		if strings.HasPrefix(strippedLine, "class ") || strings.Contains(strippedLine, " class ") {
			if block := ts.detectBraceBlock(originalLines, strippedLines, i, "class", stripped); block != nil {
				blocks = append(blocks, *block)
			}
			continue
		}

		if strings.HasPrefix(strippedLine, "interface ") || strings.Contains(strippedLine, " interface ") {
			if block := ts.detectBraceBlock(originalLines, strippedLines, i, "interface", stripped); block != nil {
				blocks = append(blocks, *block)
			}
			continue
		}

		if strings.HasPrefix(strippedLine, "type ") || strings.Contains(strippedLine, " type ") {
			if block := ts.detectTypeBlock(originalLines, strippedLines, i, stripped); block != nil {
				blocks = append(blocks, *block)
			}
			continue
		}

		if strings.HasPrefix(strippedLine, "function ") || strings.Contains(strippedLine, " function ") ||
			strings.HasPrefix(strippedLine, "async function ") {
			if block := ts.detectBraceBlock(originalLines, strippedLines, i, "function", stripped); block != nil {
				blocks = append(blocks, *block)
			}
			continue
		}

		if (strings.HasPrefix(originalLine, "const ") || strings.HasPrefix(originalLine, "let ") ||
			strings.HasPrefix(originalLine, "var ") || strings.HasPrefix(originalLine, "export const ") ||
			strings.HasPrefix(originalLine, "export let ")) && strings.Contains(strippedLine, "=>") {
			if block := ts.detectArrowFunction(originalLines, strippedLines, i, stripped); block != nil {
				blocks = append(blocks, *block)
			}
			continue
		}
	}

	return blocks
}

// detectBraceBlock finds a block that starts with a keyword and is
// delimited by braces. Used for classes, interfaces, and traditional
// functions.
func (ts typescriptLanguage) detectBraceBlock(originalLines []string, strippedLines []string, startLine int, blockType string, stripped string) *Block {
	name := ts.extractName(originalLines[startLine], blockType)

	openBraceLine := -1
	for i := startLine; i < len(strippedLines); i++ {
		if strings.Contains(strippedLines[i], "{") {
			openBraceLine = i
			break
		}
		if strings.Contains(strippedLines[i], ";") {
			return nil
		}
	}

	if openBraceLine == -1 {
		return nil
	}

	depth := 0
	allStrippedLines := strings.Split(stripped, "\n")

	for i := openBraceLine; i < len(allStrippedLines); i++ {
		for _, ch := range allStrippedLines[i] {
			if ch == '{' {
				depth++
			} else if ch == '}' {
				depth--
				if depth == 0 {
					return &Block{Type: blockType, Name: name, StartLine: startLine, EndLine: i}
				}
			}
		}
	}

	return &Block{Type: blockType, Name: name, StartLine: startLine, EndLine: len(originalLines) - 1}
}

// detectTypeBlock handles type alias declarations, which may be simple
// (type X = Y;) or span multiple lines with braces (type X = { ... }).
func (ts typescriptLanguage) detectTypeBlock(originalLines []string, strippedLines []string, startLine int, stripped string) *Block {
	name := ts.extractName(originalLines[startLine], "type")

	if strings.Contains(strippedLines[startLine], "{") {
		return ts.detectBraceBlock(originalLines, strippedLines, startLine, "type", stripped)
	}

	for i := startLine; i < len(strippedLines); i++ {
		if strings.Contains(strippedLines[i], ";") {
			return &Block{Type: "type", Name: name, StartLine: startLine, EndLine: i}
		}
		trimmed := strings.TrimSpace(strippedLines[i])
		if i > startLine && (strings.HasPrefix(trimmed, "import ") ||
			strings.HasPrefix(trimmed, "export ") ||
			strings.HasPrefix(trimmed, "const ") ||
			strings.HasPrefix(trimmed, "let ") ||
			strings.HasPrefix(trimmed, "var ") ||
			strings.HasPrefix(trimmed, "function ") ||
			strings.HasPrefix(trimmed, "class ") ||
			strings.HasPrefix(trimmed, "interface ") ||
			strings.HasPrefix(trimmed, "type ")) {
			return &Block{Type: "type", Name: name, StartLine: startLine, EndLine: i - 1}
		}
	}

	return &Block{Type: "type", Name: name, StartLine: startLine, EndLine: startLine}
}

// detectArrowFunction handles arrow function expressions. Simple
// expression bodies (x => x + 1) are single-line blocks; block bodies
// (x => { ... }) are tracked by brace depth.
func (ts typescriptLanguage) detectArrowFunction(originalLines []string, strippedLines []string, startLine int, stripped string) *Block {
	originalLine := originalLines[startLine]
	strippedLine := strippedLines[startLine]
	name := ts.extractArrowFunctionName(originalLine)

	arrowIdx := strings.Index(strippedLine, "=>")
	openBraceLine := startLine

	if arrowIdx == -1 {
		for i := startLine; i < len(strippedLines) && i < startLine+5; i++ {
			if strings.Contains(strippedLines[i], "=>") {
				arrowIdx = strings.Index(strippedLines[i], "=>")
				strippedLine = strippedLines[i]
				openBraceLine = i
				break
			}
		}
		if arrowIdx == -1 {
			return nil
		}
	}

	afterArrow := strings.TrimSpace(strippedLine[arrowIdx+2:])

	if strings.HasPrefix(afterArrow, "{") || strings.Contains(strippedLine, "=> {") {
		depth := 0
		allStrippedLines := strings.Split(stripped, "\n")

		for i := openBraceLine; i < len(allStrippedLines); i++ {
			for _, ch := range allStrippedLines[i] {
				if ch == '{' {
					depth++
				} else if ch == '}' {
					depth--
					if depth == 0 {
						return &Block{Type: "function", Name: name, StartLine: startLine, EndLine: i}
					}
				}
			}
		}

		return &Block{Type: "function", Name: name, StartLine: startLine, EndLine: len(originalLines) - 1}
	}

	return &Block{Type: "function", Name: name, StartLine: startLine, EndLine: startLine}
}

// extractName extracts the identifier name following blockType's keyword
// in a declaration line.
func (ts typescriptLanguage) extractName(line string, blockType string) string {
	line = strings.TrimSpace(line)
	tokens := strings.Fields(line)

	for i, token := range tokens {
		if token == blockType {
			if i+1 < len(tokens) {
				name := tokens[i+1]
				name = strings.TrimFunc(name, func(r rune) bool {
					return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
				})
				return name
			}
		}
	}

	return ""
}

// extractArrowFunctionName extracts the bound variable name from a
// const/let/var arrow function declaration, with or without an export
// modifier.
func (ts typescriptLanguage) extractArrowFunctionName(line string) string {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "export ")
	line = strings.TrimSpace(line)

	for _, keyword := range []string{"const ", "let ", "var "} {
		if strings.HasPrefix(line, keyword) {
			rest := strings.TrimSpace(line[len(keyword):])
			tokens := strings.Fields(rest)
			if len(tokens) > 0 {
				name := tokens[0]
				name = strings.TrimFunc(name, func(r rune) bool {
					return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '$'
				})
				return name
			}
		}
	}

	return ""
}
