package outline

import (
	"strings"
)

// pythonLanguage detects function and class block boundaries in Python
// source using indentation tracking.
type pythonLanguage struct{}

func init() {
	RegisterLanguage("python", pythonLanguage{})
}

// DetectBlocks returns all function and class boundaries in the content.
func (p pythonLanguage) DetectBlocks(content string) []Block {
	if content == "" {
		return []Block{}
	}

	s := newStripper("#", `"""`, `"""`)
	stripped, err := s.strip(content)
	if err != nil {
		lines := strings.Split(content, "\n")
		return []Block{{Type: "block", StartLine: 0, EndLine: len(lines) - 1}}
	}

	strippedLines := strings.Split(stripped, "\n")

	var blocks []Block
	i := 0

	for i < len(strippedLines) {
		trimmed := strings.TrimSpace(strippedLines[i])

		if strings.HasPrefix(trimmed, "@") {
			decoratorStart := i
			i++
			for i < len(strippedLines) {
				nextTrimmed := strings.TrimSpace(strippedLines[i])
				if nextTrimmed == "" || strings.HasPrefix(nextTrimmed, "@") {
					i++
					continue
				}
				if strings.HasPrefix(nextTrimmed, "def ") || strings.HasPrefix(nextTrimmed, "async def ") {
					block := p.detectFunctionBlock(strippedLines, decoratorStart)
					if block != nil {
						blocks = append(blocks, *block)
						i = block.EndLine + 1
					}
					break
				}
				if strings.HasPrefix(nextTrimmed, "class ") {
					block := p.detectClassBlock(strippedLines, decoratorStart)
					if block != nil {
						blocks = append(blocks, *block)
						i = block.EndLine + 1
					}
					break
				}
				i = decoratorStart + 1
				break
			}
			continue
		}

		if strings.HasPrefix(trimmed, "def ") || strings.HasPrefix(trimmed, "async def ") {
			block := p.detectFunctionBlock(strippedLines, i)
			if block != nil {
				blocks = append(blocks, *block)
				i = block.EndLine + 1
				continue
			}
		}

		if strings.HasPrefix(trimmed, "class ") {
			block := p.detectClassBlock(strippedLines, i)
			if block != nil {
				blocks = append(blocks, *block)
				i = block.EndLine + 1
				continue
			}
		}

		i++
	}

	return blocks
}

// detectFunctionBlock detects a function or method block starting at or
// before the given line; startLine may point at a decorator.
func (p pythonLanguage) detectFunctionBlock(strippedLines []string, startLine int) *Block {
	if startLine >= len(strippedLines) {
		return nil
	}

	defLine := startLine
	for defLine < len(strippedLines) {
		trimmed := strings.TrimSpace(strippedLines[defLine])
		if strings.HasPrefix(trimmed, "def ") || strings.HasPrefix(trimmed, "async def ") {
			break
		}
		if trimmed != "" && !strings.HasPrefix(trimmed, "@") {
			return nil
		}
		defLine++
	}

	if defLine >= len(strippedLines) {
		return nil
	}

	line := strings.TrimSpace(strippedLines[defLine])
	name := p.extractFunctionName(line)

	baseIndent := p.getIndentation(strippedLines[defLine])

	endLine := defLine
	foundBody := false

	for i := defLine + 1; i < len(strippedLines); i++ {
		trimmed := strings.TrimSpace(strippedLines[i])
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		indent := p.getIndentation(strippedLines[i])

		if indent > baseIndent {
			foundBody = true
			endLine = i
			continue
		}

		break
	}
	_ = foundBody

	return &Block{Type: "function", Name: name, StartLine: startLine, EndLine: endLine}
}

// detectClassBlock detects a class block starting at or before the given
// line; startLine may point at a decorator.
func (p pythonLanguage) detectClassBlock(strippedLines []string, startLine int) *Block {
	if startLine >= len(strippedLines) {
		return nil
	}

	classLine := startLine
	for classLine < len(strippedLines) {
		trimmed := strings.TrimSpace(strippedLines[classLine])
		if strings.HasPrefix(trimmed, "class ") {
			break
		}
		if trimmed != "" && !strings.HasPrefix(trimmed, "@") {
			return nil
		}
		classLine++
	}

	if classLine >= len(strippedLines) {
		return nil
	}

	line := strings.TrimSpace(strippedLines[classLine])
	name := p.extractClassName(line)

	baseIndent := p.getIndentation(strippedLines[classLine])

	endLine := classLine

	for i := classLine + 1; i < len(strippedLines); i++ {
		trimmed := strings.TrimSpace(strippedLines[i])
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		indent := p.getIndentation(strippedLines[i])

		if indent > baseIndent {
			endLine = i
			continue
		}

		break
	}

	return &Block{Type: "class", Name: name, StartLine: startLine, EndLine: endLine}
}

// getIndentation returns the number of leading spaces in a line; tabs
// count as 4 spaces.
func (p pythonLanguage) getIndentation(line string) int {
	indent := 0
	for _, ch := range line {
		if ch == ' ' {
			indent++
		} else if ch == '\t' {
			indent += 4
		} else {
			break
		}
	}
	return indent
}

// extractFunctionName extracts the function name from a def line. Handles:
// def name(), async def name()
func (p pythonLanguage) extractFunctionName(line string) string {
	line = strings.TrimPrefix(strings.TrimSpace(line), "async ")
	line = strings.TrimPrefix(strings.TrimSpace(line), "def ")

	parenIdx := strings.Index(line, "(")
	if parenIdx > 0 {
		return strings.TrimSpace(line[:parenIdx])
	}

	fields := strings.Fields(line)
	if len(fields) > 0 {
		return fields[0]
	}
	return ""
}

// extractClassName extracts the class name from a class line. Handles:
// class Name:, class Name(Base):, class Name(Base1, Base2):
func (p pythonLanguage) extractClassName(line string) string {
	line = strings.TrimPrefix(strings.TrimSpace(line), "class ")

	colonIdx := strings.Index(line, ":")
	parenIdx := strings.Index(line, "(")

	if parenIdx > 0 && (colonIdx == -1 || parenIdx < colonIdx) {
		return strings.TrimSpace(line[:parenIdx])
	}

	if colonIdx > 0 {
		return strings.TrimSpace(line[:colonIdx])
	}

	fields := strings.Fields(line)
	if len(fields) > 0 {
		return fields[0]
	}
	return ""
}
