package outline

import (
	"strings"
)

// goLanguage detects function, method, and type block boundaries in Go
// source.
type goLanguage struct{}

func init() {
	RegisterLanguage("go", goLanguage{})
}

// DetectBlocks returns all function, method, and type boundaries in the
// content, found by bracket counting after detecting func/type keywords.
func (g goLanguage) DetectBlocks(content string) []Block {
	if content == "" {
		return []Block{}
	}

	s := newStripper("//", "/*", "*/")
	stripped, err := s.strip(content)
	if err != nil {
		lines := strings.Split(content, "\n")
		return []Block{{Type: "block", StartLine: 0, EndLine: len(lines) - 1}}
	}

	strippedLines := strings.Split(stripped, "\n")

	var blocks []Block

	for i := 0; i < len(strippedLines); i++ {
		trimmed := strings.TrimSpace(strippedLines[i])

		if strings.HasPrefix(trimmed, "func ") {
			block := g.detectFunctionBlock(strippedLines, i)
			if block != nil {
				blocks = append(blocks, *block)
				i = block.EndLine
			}
			continue
		}

		if strings.HasPrefix(trimmed, "type ") {
			block := g.detectTypeBlock(strippedLines, i)
			if block != nil {
				blocks = append(blocks, *block)
				i = block.EndLine
			}
			continue
		}
	}

	return blocks
}

// detectFunctionBlock detects a function or method block starting at the
// given line. Handles both functions and methods with receivers:
// func (r *Type) Method()
func (g goLanguage) detectFunctionBlock(strippedLines []string, startLine int) *Block {
	if startLine >= len(strippedLines) {
		return nil
	}

	line := strings.TrimSpace(strippedLines[startLine])
	name := g.extractFunctionName(line)

	braceStart := -1
	for i := startLine; i < len(strippedLines); i++ {
		if strings.Contains(strippedLines[i], "{") {
			braceStart = i
			break
		}
		trimmed := strings.TrimSpace(strippedLines[i])
		if strings.HasSuffix(trimmed, ";") || (i > startLine && strings.HasPrefix(trimmed, "func ")) {
			return nil
		}
	}

	if braceStart == -1 {
		return nil
	}

	depth := 0
	for i := braceStart; i < len(strippedLines); i++ {
		for _, ch := range strippedLines[i] {
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

	return &Block{Type: "function", Name: name, StartLine: startLine, EndLine: len(strippedLines) - 1}
}

// detectTypeBlock detects a type declaration starting at the given line,
// including struct bodies delimited by braces.
func (g goLanguage) detectTypeBlock(strippedLines []string, startLine int) *Block {
	if startLine >= len(strippedLines) {
		return nil
	}

	line := strings.TrimSpace(strippedLines[startLine])
	name := g.extractTypeName(line)

	if !strings.Contains(line, "struct") {
		return &Block{Type: "type", Name: name, StartLine: startLine, EndLine: startLine}
	}

	braceStart := -1
	for i := startLine; i < len(strippedLines); i++ {
		if strings.Contains(strippedLines[i], "{") {
			braceStart = i
			break
		}
		trimmed := strings.TrimSpace(strippedLines[i])
		if i > startLine && (strings.HasPrefix(trimmed, "type ") || strings.HasPrefix(trimmed, "func ")) {
			return &Block{Type: "type", Name: name, StartLine: startLine, EndLine: i - 1}
		}
	}

	if braceStart == -1 {
		return &Block{Type: "type", Name: name, StartLine: startLine, EndLine: startLine}
	}

	depth := 0
	for i := braceStart; i < len(strippedLines); i++ {
		for _, ch := range strippedLines[i] {
			if ch == '{' {
				depth++
			} else if ch == '}' {
				depth--
				if depth == 0 {
					return &Block{Type: "type", Name: name, StartLine: startLine, EndLine: i}
				}
			}
		}
	}

	return &Block{Type: "type", Name: name, StartLine: startLine, EndLine: len(strippedLines) - 1}
}

// extractFunctionName extracts the function or method name from a func
// declaration line. Handles: func Name(), func (r Receiver) Name(),
// func (r *Receiver) Name()
func (g goLanguage) extractFunctionName(line string) string {
	line = strings.TrimPrefix(strings.TrimSpace(line), "func ")

	if strings.HasPrefix(line, "(") {
		closeIdx := strings.Index(line, ")")
		if closeIdx > 0 && closeIdx < len(line)-1 {
			line = line[closeIdx+1:]
		}
	}

	line = strings.TrimSpace(line)
	parenIdx := strings.Index(line, "(")
	if parenIdx > 0 {
		return strings.TrimSpace(line[:parenIdx])
	}

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// extractTypeName extracts the type name from a type declaration line.
// Handles: type Name struct, type Name interface, type Name = OtherType
func (g goLanguage) extractTypeName(line string) string {
	line = strings.TrimPrefix(strings.TrimSpace(line), "type ")

	fields := strings.Fields(line)
	if len(fields) > 0 {
		return fields[0]
	}
	return ""
}
