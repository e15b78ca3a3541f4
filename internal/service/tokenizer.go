package service

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter counts subword tokens for chunk budgeting.
type TokenCounter interface {
	Count(text string) int
}

// TiktokenCounter counts tokens with the cl100k_base BPE when the encoding
// can be loaded, and falls back to a character-count heuristic otherwise.
// Segmentation order must not depend on which path is active.
type TiktokenCounter struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
}

// NewTokenCounter returns the default token counter.
func NewTokenCounter() *TiktokenCounter {
	return &TiktokenCounter{}
}

func (c *TiktokenCounter) Count(text string) int {
	c.once.Do(func() {
		enc, err := tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
		if err == nil {
			c.enc = enc
		}
	})
	if c.enc != nil {
		return len(c.enc.Encode(text, nil, nil))
	}
	return fallbackTokenCount(text)
}

// FallbackTokenCounter always uses the deterministic character heuristic.
// Used in tests and in deployments without the BPE vocabulary on disk.
type FallbackTokenCounter struct{}

func (FallbackTokenCounter) Count(text string) int {
	return fallbackTokenCount(text)
}

// fallbackTokenCount approximates subword tokens as ceil(runes/4).
func fallbackTokenCount(text string) int {
	n := utf8.RuneCountInString(strings.TrimSpace(text))
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}
