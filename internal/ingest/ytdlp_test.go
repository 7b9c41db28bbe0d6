package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFirstLine(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   string
	}{
		{"single line", "https://cdn.example.com/live.m3u8", "https://cdn.example.com/live.m3u8"},
		{"picks first of several", "https://a.example.com/v\nhttps://a.example.com/a\n", "https://a.example.com/v"},
		{"trims whitespace", "  https://cdn.example.com/live.m3u8 \n", "https://cdn.example.com/live.m3u8"},
		{"empty output", "\n\n", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, firstLine(tt.output))
		})
	}
}
