package wcl

import (
	"reflect"
	"testing"
)

func TestExtractReportURLs(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{
			name:    "vanilla host",
			content: "logs here https://vanilla.warcraftlogs.com/reports/AbCdEf1234567890",
			want:    []string{"https://vanilla.warcraftlogs.com/reports/AbCdEf1234567890"},
		},
		{
			name:    "classic host canonicalized to vanilla",
			content: "https://classic.warcraftlogs.com/reports/aaaabbbbccccdddd check it out",
			want:    []string{"https://vanilla.warcraftlogs.com/reports/aaaabbbbccccdddd"},
		},
		{
			name:    "http scheme accepted",
			content: "http://vanilla.warcraftlogs.com/reports/AbCdEf1234567890",
			want:    []string{"https://vanilla.warcraftlogs.com/reports/AbCdEf1234567890"},
		},
		{
			name:    "multiple links preserve input order",
			content: "https://vanilla.warcraftlogs.com/reports/1111111111111111 and https://classic.warcraftlogs.com/reports/2222222222222222",
			want: []string{
				"https://vanilla.warcraftlogs.com/reports/1111111111111111",
				"https://vanilla.warcraftlogs.com/reports/2222222222222222",
			},
		},
		{
			name:    "wrong host ignored",
			content: "https://www.warcraftlogs.com/reports/AbCdEf1234567890",
			want:    nil,
		},
		{
			name:    "no links",
			content: "tonight's raid was great",
			want:    nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractReportURLs(tt.content)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractReportURLs(%q) = %v, want %v", tt.content, got, tt.want)
			}
		})
	}
}

func TestExtractReportID(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"valid 16-char id", "https://vanilla.warcraftlogs.com/reports/AbCdEf1234567890", "AbCdEf1234567890"},
		{"15-char token rejected", "https://vanilla.warcraftlogs.com/reports/AbCdEf123456789", ""},
		{"id with trailing path segment", "https://vanilla.warcraftlogs.com/reports/AbCdEf1234567890#fight=3", "AbCdEf1234567890"},
		{"not a report url", "https://templeashkandi.com/raids/42", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractReportID(tt.url); got != tt.want {
				t.Errorf("ExtractReportID(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestTokenLengthBoundary(t *testing.T) {
	// 17 alphanumerics contain a 16-char prefix; the pattern must reject the
	// whole token rather than truncate it.
	if urls := ExtractReportURLs("https://vanilla.warcraftlogs.com/reports/AbCdEf12345678901"); urls != nil {
		t.Errorf("17-char token matched: %v", urls)
	}
	if urls := ExtractReportURLs("https://vanilla.warcraftlogs.com/reports/AbCdEf123456789"); urls != nil {
		t.Errorf("15-char token matched: %v", urls)
	}
	if got := ExtractReportID("https://vanilla.warcraftlogs.com/reports/AbCdEf12345678901"); got != "" {
		t.Errorf("ExtractReportID on 17-char token = %q, want empty", got)
	}
}

func TestExtractRaidID(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int64
		ok      bool
	}{
		{"plain link", "Raid created: https://templeashkandi.com/raids/123", 123, true},
		{"markdown link", "[View Raid](https://templeashkandi.com/raids/9876)", 9876, true},
		{"bare path", "see /raids/7", 7, true},
		{"no link", "bench Alice Bob", 0, false},
		{"non-numeric", "/raids/abc", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractRaidID(tt.content)
			if got != tt.want || ok != tt.ok {
				t.Errorf("ExtractRaidID(%q) = (%d, %v), want (%d, %v)", tt.content, got, ok, tt.want, tt.ok)
			}
		})
	}
}
