package catalog

import "strings"

// Score weights mirror the per-field bonuses spec.md assigns: name beats
// hostname beats user, and an earlier/prefix substring match beats a later
// one. Fuzzy (second pass) scores reuse the same field bonuses; the two
// passes never mix in one result, because the fuzzy pass runs only when
// the strict pass finds nothing.
const (
	fieldBonusName     = 300
	fieldBonusHostname = 200
	fieldBonusUser     = 100
	prefixBonus        = 50
)

// Index is the precomputed lowercase search index over a flat host list.
type Index struct {
	hosts     []Host
	lowerName []string
	lowerHost []string
	lowerUser []string
}

// NewIndex precomputes lowercase forms of name/hostname/user for each host.
func NewIndex(hosts []Host) *Index {
	idx := &Index{
		hosts:     hosts,
		lowerName: make([]string, len(hosts)),
		lowerHost: make([]string, len(hosts)),
		lowerUser: make([]string, len(hosts)),
	}
	for i, h := range hosts {
		idx.lowerName[i] = strings.ToLower(h.Name)
		idx.lowerHost[i] = strings.ToLower(h.Hostname)
		idx.lowerUser[i] = strings.ToLower(h.User)
	}
	return idx
}

// Search returns a map of host index to score for the given query.
//
// Pass 1 is a strict substring search across name/hostname/user: a prefix
// match scores highest, an earlier match position beats a later one, and
// per-field bonuses favor name over hostname over user. If pass 1 finds
// nothing, pass 2 falls back to a fuzzy (subsequence) match with a bonus for
// consecutive runs.
func (idx *Index) Search(query string) map[int]int {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		out := make(map[int]int, len(idx.hosts))
		for i := range idx.hosts {
			out[i] = 0
		}
		return out
	}

	strict := make(map[int]int)
	for i := range idx.hosts {
		score := 0
		if s, ok := substringScore(idx.lowerName[i], query, fieldBonusName); ok {
			score = max(score, s)
		}
		if s, ok := substringScore(idx.lowerHost[i], query, fieldBonusHostname); ok {
			score = max(score, s)
		}
		if s, ok := substringScore(idx.lowerUser[i], query, fieldBonusUser); ok {
			score = max(score, s)
		}
		if score > 0 {
			strict[i] = score
		}
	}
	if len(strict) > 0 {
		return strict
	}

	fuzzy := make(map[int]int)
	for i := range idx.hosts {
		best := -1
		if s, ok := fuzzyScore(idx.lowerName[i], query); ok {
			best = max(best, s+fieldBonusName)
		}
		if s, ok := fuzzyScore(idx.lowerHost[i], query); ok {
			best = max(best, s+fieldBonusHostname)
		}
		if s, ok := fuzzyScore(idx.lowerUser[i], query); ok {
			best = max(best, s+fieldBonusUser)
		}
		if best >= 0 {
			fuzzy[i] = best
		}
	}
	return fuzzy
}

func substringScore(field, query string, bonus int) (int, bool) {
	if field == "" {
		return 0, false
	}
	pos := strings.Index(field, query)
	if pos < 0 {
		return 0, false
	}
	score := bonus - pos
	if pos == 0 {
		score += prefixBonus
	}
	return score, true
}

// fuzzyScore awards one point per matched character plus a bonus for
// consecutive runs; it requires every rune of query to appear in field, in
// order (a subsequence match), or it fails entirely.
func fuzzyScore(field, query string) (int, bool) {
	if field == "" || query == "" {
		return 0, false
	}
	fr := []rune(field)
	qr := []rune(query)

	score := 0
	consecutive := 0
	fi := 0
	for _, qc := range qr {
		found := false
		for ; fi < len(fr); fi++ {
			if fr[fi] == qc {
				score += 1 + consecutive
				consecutive++
				fi++
				found = true
				break
			}
			consecutive = 0
		}
		if !found {
			return 0, false
		}
	}
	return score, true
}
