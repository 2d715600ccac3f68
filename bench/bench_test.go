package bench

import (
	"reflect"
	"testing"
)

func TestIsDirective(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    bool
	}{
		{"bare keyword", "bench", true},
		{"keyword with names", "bench Alice Bob", true},
		{"colon form", "bench: Alice, Bob", true},
		{"comma delimiter", "bench,Alice", true},
		{"period delimiter", "bench. Alice", true},
		{"semicolon delimiter", "bench;Alice", true},
		{"leading whitespace", "   bench Alice", true},
		{"crlf after keyword", "bench\r\nAlice", true},
		{"no-break space after keyword", "bench Alice", true},
		{"uppercase", "BENCH Alice", true},
		{"mixed case", "Bench: Carol", true},
		{"substring false positive", "Benchwarmer online", false},
		{"keyword mid-sentence", "put Alice on the bench", false},
		{"empty", "", false},
		{"unrelated", "great logs tonight", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsDirective(tt.content); got != tt.want {
				t.Errorf("IsDirective(%q) = %v, want %v", tt.content, got, tt.want)
			}
		})
	}
}

func TestParseNames(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{
			name:    "simple list",
			content: "bench Alice Bob",
			want:    []string{"Alice", "Bob"},
		},
		{
			name:    "colon form tokenizes only the payload",
			content: "bench: Alice, Bob",
			want:    []string{"Alice", "Bob"},
		},
		{
			name:    "first bench consumed later bench kept as a name",
			content: "bench Alice bench Bob",
			want:    []string{"Alice", "bench", "Bob"},
		},
		{
			name:    "newlines and comma runs",
			content: "bench Alice,,Bob\nCarol",
			want:    []string{"Alice", "Bob", "Carol"},
		},
		{
			name:    "crlf separators",
			content: "bench\r\nAlice\r\nBob",
			want:    []string{"Alice", "Bob"},
		},
		{
			name:    "trailing punctuation stripped",
			content: "bench Alice, Bob.",
			want:    []string{"Alice", "Bob"},
		},
		{
			name:    "duplicates preserved in order",
			content: "bench Alice Bob Alice",
			want:    []string{"Alice", "Bob", "Alice"},
		},
		{
			name:    "case-insensitive keyword removal",
			content: "BENCH Alice",
			want:    []string{"Alice"},
		},
		{
			name:    "internal apostrophe kept",
			content: "bench Mal'ganis",
			want:    []string{"Mal'ganis"},
		},
		{
			name:    "only keyword",
			content: "bench",
			want:    nil,
		},
		{
			name:    "colon form with empty payload",
			content: "bench:",
			want:    nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseNames(tt.content)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseNames(%q) = %v, want %v", tt.content, got, tt.want)
			}
		})
	}
}
