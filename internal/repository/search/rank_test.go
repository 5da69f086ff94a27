package search

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeLike(t *testing.T) {
	cases := map[string]string{
		"react":   "react",
		"50%":     `50\%`,
		"a_b":     `a\_b`,
		`a\b`:     `a\\b`,
		"%_":      `\%\_`,
		"100% _x": `100\% \_x`,
	}
	for in, want := range cases {
		assert.Equal(t, want, EscapeLike(in), "input %q", in)
	}
}

func TestPattern(t *testing.T) {
	assert.Equal(t, "%react%", Pattern("react"))
	assert.Equal(t, `%50\%%`, Pattern("50%"))
}

func TestRecencyDecay(t *testing.T) {
	// fresh content keeps its full score
	assert.InDelta(t, 1.0, RecencyDecay(0, 30), 1e-9)
	// exactly one half-life halves it
	assert.InDelta(t, 0.5, RecencyDecay(30, 30), 1e-9)
	// two half-lives quarter it
	assert.InDelta(t, 0.25, RecencyDecay(60, 30), 1e-9)
	// shorter half-life decays faster at the same age
	assert.Less(t, RecencyDecay(14, 7), RecencyDecay(14, 30))
}

func TestTSRank_BindsParameters(t *testing.T) {
	expr := TSRank("react", 30)
	assert.Contains(t, expr.SQL, "ts_rank")
	assert.Contains(t, expr.SQL, "plainto_tsquery")
	assert.Contains(t, expr.SQL, "POWER(0.5")
	assert.NotContains(t, expr.SQL, "react", "query text must be bound, never inlined")
	assert.Equal(t, []interface{}{"react", 30.0}, expr.Vars)
}

func TestTSMatch_BindsParameters(t *testing.T) {
	expr := TSMatch("react; drop")
	assert.Contains(t, expr.SQL, "@@")
	assert.NotContains(t, expr.SQL, "drop")
	assert.Equal(t, []interface{}{"react; drop"}, expr.Vars)
}

func TestTrigramSimilarity_BindsParameters(t *testing.T) {
	expr := TrigramSimilarity("alice")
	assert.Contains(t, expr.SQL, "GREATEST")
	assert.Contains(t, expr.SQL, "similarity(name")
	assert.NotContains(t, expr.SQL, "alice")
	assert.Len(t, expr.Vars, 2)
}

func TestOrderClauses_Deterministic(t *testing.T) {
	assert.True(t, strings.HasSuffix(OrderRelevance(), "id DESC"))
	assert.True(t, strings.HasSuffix(OrderLatest(), "id DESC"))
	assert.Contains(t, OrderRelevance(), "rank DESC")
	assert.NotContains(t, OrderLatest(), "rank")
	assert.Contains(t, OrderLatest(), "COALESCE(published_at, created_at)")
}

func TestUniqueStrings(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, uniqueStrings([]string{"a", "b", "a", "b", "a"}))
	assert.Empty(t, uniqueStrings(nil))
}
