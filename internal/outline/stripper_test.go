package outline

import "testing"

func TestStripper_Go(t *testing.T) {
	s := newStripper("//", "/*", "*/")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty string", input: "", want: ""},
		{
			name:  "code without strings or comments",
			input: "func main() {\n\tx := 42\n}",
			want:  "func main() {\n\tx := 42\n}",
		},
		{
			name:  "single line comment",
			input: "x := 42 // comment here\ny := 10",
			want:  "x := 42                \ny := 10",
		},
		{
			name:  "multi-line comment",
			input: "x := 42 /* comment\nacross lines */ y := 10",
			want:  "x := 42           \n                y := 10",
		},
		{
			name:  "double-quoted string",
			input: `s := "hello world"`,
			want:  `s :=              `,
		},
		{
			name:  "backtick raw string",
			input: "s := `raw\nstring`",
			want:  "s :=     \n       ",
		},
		{
			name:  "bracket in string - preserved",
			input: `s := "text { bracket }"`,
			want:  `s :=                   `,
		},
		{
			name:  "bracket in comment - stripped",
			input: `// comment { with bracket }`,
			want:  `                           `,
		},
		{
			name:  "unclosed string",
			input: `s := "unclosed`,
			want:  `s :=          `,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.strip(tt.input)
			if err != nil {
				t.Fatalf("strip() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("strip(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestStripper_Python(t *testing.T) {
	s := newStripper("#", `"""`, `"""`)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "single line comment",
			input: "x = 42 # comment\ny = 10",
			want:  "x = 42          \ny = 10",
		},
		{
			name:  "triple-quoted docstring",
			input: `"""doc"""` + "\nx = 1",
			want:  "          \nx = 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.strip(tt.input)
			if err != nil {
				t.Fatalf("strip() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("strip(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestStripper_MaxNestingDepth(t *testing.T) {
	s := newStripper("//", "/*", "*/")
	s.maxDepth = 0

	_, err := s.strip("/* comment */")
	if err != ErrMaxNestingDepthExceeded {
		t.Errorf("strip() with maxDepth=0: got error %v, want %v", err, ErrMaxNestingDepthExceeded)
	}
}

func TestNewStripper_DefaultMaxDepth(t *testing.T) {
	s := newStripper("//", "/*", "*/")
	if s.maxDepth != defaultMaxNestingDepth {
		t.Errorf("newStripper() maxDepth = %d, want %d", s.maxDepth, defaultMaxNestingDepth)
	}
}
