package formatting_test

import (
	"testing"

	"github.com/JaimeStill/pestwatch/pkg/formatting"
)

func TestParseBytes(t *testing.T) {
	tests := []struct {
		input string
		want  int64
	}{
		{"2048", 2048},
		{"512B", 512},
		{"1KB", 1024},
		{"10MB", 10 << 20},
		{"10 mb", 10 << 20},
		{"1.5GB", 3 << 29},
		{"2k", 2048},
		{"1T", 1 << 40},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := formatting.ParseBytes(tt.input)
			if err != nil {
				t.Fatalf("ParseBytes(%q) error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseBytes(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseBytesInvalid(t *testing.T) {
	for _, input := range []string{"", "MB", "ten MB", "5PB", "1.2.3KB"} {
		t.Run(input, func(t *testing.T) {
			if _, err := formatting.ParseBytes(input); err == nil {
				t.Errorf("ParseBytes(%q) expected error", input)
			}
		})
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n         int64
		precision int
		want      string
	}{
		{0, 0, "0 B"},
		{900, 2, "900 B"},
		{1024, 0, "1 KB"},
		{1536, 1, "1.5 KB"},
		{10 << 20, 0, "10 MB"},
		{3 << 29, 2, "1.50 GB"},
		{1 << 40, -1, "1 TB"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := formatting.FormatBytes(tt.n, tt.precision); got != tt.want {
				t.Errorf("FormatBytes(%d, %d) = %q, want %q", tt.n, tt.precision, got, tt.want)
			}
		})
	}
}
