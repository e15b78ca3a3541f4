package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyayatech/nyaya/internal/domain"
)

func TestNormalizeFilters_Empty(t *testing.T) {
	assert.True(t, NormalizeFilters(nil).IsZero())
	assert.True(t, NormalizeFilters(map[string]any{}).IsZero())
	assert.Nil(t, NormalizeFilters(nil).Conditions())
}

func TestNormalizeFilters_UnknownKeysDropped(t *testing.T) {
	f := NormalizeFilters(map[string]any{
		"colour":   "blue",
		"page":     3,
		"language": "en",
	})
	assert.True(t, f.IsZero())
}

func TestNormalizeFilters_Courts(t *testing.T) {
	f := NormalizeFilters(map[string]any{
		"court": []any{"sc", "hc-del", "SC", "  ", "hc-bom"},
	})
	assert.Equal(t, []string{"HC-BOM", "HC-DEL", "SC"}, f.Courts)
}

func TestNormalizeFilters_CourtsCommaString(t *testing.T) {
	f := NormalizeFilters(map[string]any{
		"courts": "sc, hc-del",
	})
	assert.Equal(t, []string{"HC-DEL", "SC"}, f.Courts)
}

func TestNormalizeFilters_Year(t *testing.T) {
	f := NormalizeFilters(map[string]any{"year": float64(2004)})
	assert.Equal(t, 2004, f.YearFrom)
	assert.Equal(t, 2004, f.YearTo)

	f = NormalizeFilters(map[string]any{"year_from": "2010", "year_to": 2020})
	assert.Equal(t, 2010, f.YearFrom)
	assert.Equal(t, 2020, f.YearTo)
}

func TestNormalizeFilters_YearOutOfRangeDropped(t *testing.T) {
	f := NormalizeFilters(map[string]any{"year": 1850})
	assert.Zero(t, f.YearFrom)
	assert.Zero(t, f.YearTo)

	future := time.Now().UTC().Year() + 1
	f = NormalizeFilters(map[string]any{"year": future})
	assert.Zero(t, f.YearFrom)

	f = NormalizeFilters(map[string]any{"year": "not-a-year"})
	assert.Zero(t, f.YearFrom)
}

func TestNormalizeFilters_InvertedRangeZeroed(t *testing.T) {
	f := NormalizeFilters(map[string]any{"year_from": 2015, "year_to": 2005})
	assert.Zero(t, f.YearFrom)
	assert.Zero(t, f.YearTo)
}

func TestNormalizeFilters_Judge(t *testing.T) {
	f := NormalizeFilters(map[string]any{"judge": "  Krishna Iyer "})
	assert.Equal(t, "Krishna Iyer", f.Judge)

	f = NormalizeFilters(map[string]any{"judge": "K"})
	assert.Empty(t, f.Judge)

	f = NormalizeFilters(map[string]any{"judge": 42})
	assert.Empty(t, f.Judge)
}

func TestNormalizeFilters_StatuteTags(t *testing.T) {
	f := NormalizeFilters(map[string]any{
		"statute_tags": []any{"section 302", "SEC-302", "article 21", ""},
	})
	assert.Equal(t, []string{"ART-21", "SEC-302"}, f.StatuteTags)
}

func TestNormalizeFilters_RequireCitation(t *testing.T) {
	f := NormalizeFilters(map[string]any{"has_citation": true})
	require.NotNil(t, f.RequireCitation)
	assert.True(t, *f.RequireCitation)

	f = NormalizeFilters(map[string]any{"require_citation": "false"})
	require.NotNil(t, f.RequireCitation)
	assert.False(t, *f.RequireCitation)

	f = NormalizeFilters(map[string]any{"has_citation": "maybe"})
	assert.Nil(t, f.RequireCitation)
}

func TestNormalizeFilters_ChunkType(t *testing.T) {
	f := NormalizeFilters(map[string]any{"chunk_type": "HEADNOTE"})
	assert.Equal(t, domain.ChunkTypeHeadnote, f.ChunkType)

	f = NormalizeFilters(map[string]any{"chunk_type": "bogus"})
	assert.Empty(t, f.ChunkType)
}

func TestNormalizeFilters_NeverFails(t *testing.T) {
	// Every value is malformed; normalization still returns a usable
	// (empty) filter set.
	f := NormalizeFilters(map[string]any{
		"court":        42,
		"year":         []string{"2004"},
		"judge":        nil,
		"statute_tags": 3.14,
		"has_citation": []any{},
		"chunk_type":   false,
	})
	assert.True(t, f.IsZero())
}

func TestSearchFilters_Conditions(t *testing.T) {
	cited := true
	f := SearchFilters{
		Courts:          []string{"SC"},
		YearFrom:        2000,
		YearTo:          2010,
		Judge:           "Krishna Iyer",
		StatuteTags:     []string{"SEC-302"},
		RequireCitation: &cited,
		ChunkType:       domain.ChunkTypeContent,
	}

	conditions := f.Conditions()
	require.Len(t, conditions, 6)

	byField := make(map[string]FilterCondition, len(conditions))
	for _, c := range conditions {
		byField[c.Field] = c
	}

	assert.Equal(t, FilterOpIn, byField["court"].Op)
	assert.Equal(t, []string{"SC"}, byField["court"].Values)
	assert.Equal(t, FilterOpRange, byField["year"].Op)
	assert.Equal(t, 2000, byField["year"].From)
	assert.Equal(t, 2010, byField["year"].To)
	assert.Equal(t, FilterOpMatch, byField["judge"].Op)
	assert.Equal(t, []string{"true"}, byField["has_citation"].Values)
	assert.Equal(t, []string{"content"}, byField["chunk_type"].Values)
}
