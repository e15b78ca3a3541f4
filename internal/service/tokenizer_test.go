package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFallbackTokenCount(t *testing.T) {
	counter := FallbackTokenCounter{}

	tests := []struct {
		name     string
		text     string
		expected int
	}{
		{"empty", "", 0},
		{"whitespace only", "   \t\n", 0},
		{"four runes", "abcd", 1},
		{"five runes", "abcde", 2},
		{"trims before counting", "  abcd  ", 1},
		{"multibyte runes", "धारा", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, counter.Count(tt.text))
		})
	}
}

func TestTiktokenCounter(t *testing.T) {
	counter := NewTokenCounter()

	assert.Zero(t, counter.Count(""))
	assert.Positive(t, counter.Count("the possession was open and hostile"))

	// Longer text never counts fewer tokens than its prefix.
	short := counter.Count("adverse possession")
	long := counter.Count("adverse possession requires open hostile and continuous occupation")
	assert.GreaterOrEqual(t, long, short)
}
