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

// Package utf16range converts editor-protocol UTF-16 code-unit positions
// into UTF-8 byte offsets over on-disk line content, and extracts the text
// spanned by a selection range. It is kept as a small set of pure functions
// deliberately separate from any I/O path, per the numerically subtle
// position arithmetic this system depends on.
package utf16range

import "strings"

// Position is a zero-based line/character pair, character measured in
// UTF-16 code units (the editor protocol's native coordinate system).
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range spans from Start to End within a document.
type Range struct {
	Start Position
	End   Position
}

// ByteOffset converts a UTF-16 code-unit position within line into a byte
// offset into line's UTF-8 encoding. It walks line's runes, accumulating
// UTF-16 code-unit counts (1 for BMP runes, 2 for supplementary-plane
// runes, matching Rust's char::len_utf16 semantics), and returns the byte
// position where the accumulator first reaches target. If target equals
// or exceeds the line's total UTF-16 length, the line's byte length is
// returned.
func ByteOffset(line string, target int) int {
	if target <= 0 {
		return 0
	}

	utf16Pos := 0
	for bytePos, r := range line {
		if utf16Pos == target {
			return bytePos
		}
		width := 1
		if r > 0xFFFF {
			width = 2
		}
		if target < utf16Pos+width {
			return bytePos
		}
		utf16Pos += width
	}

	return len(line)
}

// ExtractText returns the substring of content spanned by r, applying the
// editor protocol's single-line/multi-line extraction rules: a single-line
// range slices one line between two byte offsets; a multi-line range joins
// a partial first line, verbatim middle lines, and a partial last line with
// "\n". Lines are split on "\n" (a trailing "\r" in CRLF content is left
// attached to the line's text, matching Rust's str::lines-free byte slicing
// in the original implementation this mirrors).
func ExtractText(content string, r Range) string {
	lines := strings.Split(content, "\n")

	if r.Start.Line < 0 || r.Start.Line >= len(lines) {
		return ""
	}

	if r.Start.Line == r.End.Line {
		line := lines[r.Start.Line]
		startByte := ByteOffset(line, r.Start.Character)
		endByte := ByteOffset(line, r.End.Character)
		if startByte > endByte || startByte > len(line) {
			return ""
		}
		if endByte > len(line) {
			endByte = len(line)
		}
		return line[startByte:endByte]
	}

	if r.End.Line < r.Start.Line || r.End.Line >= len(lines) {
		return ""
	}

	var b strings.Builder
	for i := r.Start.Line; i <= r.End.Line; i++ {
		line := lines[i]
		switch {
		case i == r.Start.Line:
			startByte := ByteOffset(line, r.Start.Character)
			if startByte <= len(line) {
				b.WriteString(line[startByte:])
			}
		case i == r.End.Line:
			endByte := ByteOffset(line, r.End.Character)
			if endByte <= len(line) {
				b.WriteString(line[:endByte])
			}
		default:
			b.WriteString(line)
		}
		if i < r.End.Line {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// IsEmpty reports whether r's start and end positions coincide.
func (r Range) IsEmpty() bool {
	return r.Start == r.End
}
