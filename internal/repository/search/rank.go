package search

import (
	"fmt"
	"math"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// effectiveTime is the publish timestamp with creation fallback; every
// date filter and latest-sort ordering goes through it.
const effectiveTime = "COALESCE(published_at, created_at)"

// EscapeLike escapes LIKE/ILIKE wildcards in user-supplied text so it can
// only ever match literally.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// Pattern returns the bound substring-match parameter for ILIKE.
func Pattern(text string) string {
	return "%" + EscapeLike(text) + "%"
}

// RecencyDecay halves a score every halfLifeDays of age.
func RecencyDecay(ageDays, halfLifeDays float64) float64 {
	return math.Pow(0.5, ageDays/halfLifeDays)
}

// TSMatch matches the row's search vector against the plain-parsed query.
func TSMatch(text string) clause.Expr {
	return gorm.Expr("search_vector @@ plainto_tsquery('simple', ?)", text)
}

// TSRank is the relevance expression for full-text mode: textual rank
// damped by recency half-life decay.
func TSRank(text string, halfLifeDays float64) clause.Expr {
	expr := fmt.Sprintf(
		"ts_rank(search_vector, plainto_tsquery('simple', ?)) * POWER(0.5, EXTRACT(EPOCH FROM (NOW() - %s)) / 86400.0 / ?)",
		effectiveTime)
	return gorm.Expr(expr, text, halfLifeDays)
}

// TrigramSimilarity is the primary user scoring expression. Requires the
// pg_trgm extension; its absence is what the fallback wrapper catches.
func TrigramSimilarity(text string) clause.Expr {
	return gorm.Expr("GREATEST(similarity(name, ?), similarity(COALESCE(bio, ''), ?))", text, text)
}

// OrderRelevance orders by the computed rank with deterministic tie-breaks.
func OrderRelevance() string {
	return "rank DESC, " + effectiveTime + " DESC, id DESC"
}

// OrderLatest ignores textual rank entirely.
func OrderLatest() string {
	return effectiveTime + " DESC, id DESC"
}
