package bot

import (
	"testing"
)

func TestBuildKeywordRegex(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		keywords []string
		input    string
		expected string
	}{
		{
			name:     "Single keyword at start with space",
			keywords: []string{"eliminar"},
			input:    "eliminar 2",
			expected: "eliminar",
		},
		{
			name:     "Multiple keywords - longest first",
			keywords: []string{"quitar", "quitar flex"},
			input:    "quitar flex por favor",
			expected: "quitar flex",
		},
		{
			name:     "Case insensitive",
			keywords: []string{"vaciar"},
			input:    "Vaciar carrito",
			expected: "Vaciar",
		},
		{
			name:     "No match - keyword not present",
			keywords: []string{"eliminar", "borrar"},
			input:    "agregar 2 jugos",
			expected: "",
		},
		{
			name:     "No match - keyword not at start",
			keywords: []string{"eliminar"},
			input:    "quiero eliminar 2",
			expected: "",
		},
		{
			name:     "No match - keyword without space",
			keywords: []string{"eliminar"},
			input:    "eliminarlo",
			expected: "",
		},
		{
			name:     "Match - keyword is entire text",
			keywords: []string{"vaciar"},
			input:    "vaciar",
			expected: "vaciar",
		},
		{
			name:     "Match - keyword with tab separator",
			keywords: []string{"eliminar"},
			input:    "eliminar\t3",
			expected: "eliminar",
		},
		{
			name:     "Regex metacharacters are literal",
			keywords: []string{"c.c"},
			input:    "coc 1",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			regex := BuildKeywordRegex(tt.keywords)
			got := MatchKeyword(regex, tt.input)
			if got != tt.expected {
				t.Errorf("MatchKeyword(BuildKeywordRegex(%v), %q) = %q, want %q",
					tt.keywords, tt.input, got, tt.expected)
			}
		})
	}
}

func TestBuildKeywordRegex_EmptyKeywordsPanics(t *testing.T) {
	t.Parallel()
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("BuildKeywordRegex([]string{}) should panic, but did not")
		}
	}()
	BuildKeywordRegex([]string{})
}

func TestExtractSearchTerm(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		text     string
		keyword  string
		expected string
	}{
		{"Keyword at beginning", "eliminar 2", "eliminar", "2"},
		{"Keyword at beginning with extra space", "eliminar   2", "eliminar", "2"},
		{"Keyword at end", "todo eliminar", "eliminar", "todo"},
		{"Keyword in middle", "por favor eliminar 2", "eliminar", "por favor  2"},
		{"Empty keyword", "eliminar 2", "", "eliminar 2"},
		{"Keyword not in text", "2", "eliminar", "2"},
		{"Only keyword", "vaciar", "vaciar", ""},
		{"Keyword with spaces around", "  quitar flex  ", "quitar", "flex"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ExtractSearchTerm(tt.text, tt.keyword)
			if got != tt.expected {
				t.Errorf("ExtractSearchTerm(%q, %q) = %q, want %q",
					tt.text, tt.keyword, got, tt.expected)
			}
		})
	}
}

func TestNormalizeWhitespace(t *testing.T) {
	t.Parallel()
	if got := normalizeWhitespace("  hola \n\t grumete  "); got != "hola grumete" {
		t.Errorf("normalizeWhitespace() = %q", got)
	}
}
