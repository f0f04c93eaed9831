// Package highlight overlays user-configured regex rules onto raw SSH
// output as additional SGR attributes, without corrupting whatever SGR
// state the remote program had already established in that byte stream.
package highlight

import (
	"regexp"
	"strings"

	"github.com/mpecarina/colorssh/internal/config"
)

// ColorState tracks the active SGR foreground color across chunk
// boundaries so a later highlighted chunk can restore "whatever color
// was active before," not a hard reset, per spec.md's explicit
// requirement that restoring must not clobber a remote program's own
// SGR state (e.g. reverse video set by `\x1b[7m`).
type ColorState struct {
	ActiveFg string // the most recent "set foreground" SGR sequence seen, or "" for default
}

// sgrRe matches every SGR ("m"-terminated CSI) sequence; ColorState.scan
// uses it to record the last one that sets a foreground color, updating
// state in place. scan is applied to every chunk regardless of whether
// any rule matched, because color continuity must advance even on a
// no-match chunk.
var sgrRe = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func (cs *ColorState) scan(s string) {
	matches := sgrRe.FindAllString(s, -1)
	for _, m := range matches {
		if m == "\x1b[0m" || m == "\x1b[m" {
			cs.ActiveFg = ""
			continue
		}
		// Any sequence containing a foreground-setting parameter (30-39,
		// 90-97, or the bare "39" reset-to-default) replaces ActiveFg;
		// sequences touching only other attributes (bold, bg, etc.) leave
		// it unchanged, matching how a real terminal layers SGR state.
		if setsForeground(m) {
			if m == "\x1b[39m" {
				cs.ActiveFg = ""
			} else {
				cs.ActiveFg = m
			}
		}
	}
}

func setsForeground(seq string) bool {
	body := strings.TrimSuffix(strings.TrimPrefix(seq, "\x1b["), "m")
	if body == "" {
		return true // bare reset, sets everything including fg to default
	}
	parts := strings.Split(body, ";")
	for i := 0; i < len(parts); i++ {
		switch {
		case parts[i] == "0":
			return true
		case parts[i] == "38":
			return true
		case parts[i] == "39":
			return true
		case parts[i] == "48":
			// Skip a background color's sub-parameters so a component
			// such as the "31" in 48;2;31;0;0 is not read as a fg code.
			if i+1 < len(parts) && parts[i+1] == "5" {
				i += 2
			} else if i+1 < len(parts) && parts[i+1] == "2" {
				i += 4
			}
		case len(parts[i]) == 2 && parts[i][0] == '3':
			return true
		case len(parts[i]) == 2 && parts[i][0] == '9':
			return true
		}
	}
	return false
}

// Restore returns the SGR sequence that re-establishes the tracked
// active foreground color: the last explicit fg-setting sequence seen
// alone, or "\x1b[39m" (default foreground) if none. It must never
// emit both — the active-fg sequence already supersedes the default,
// and prefixing it with "\x1b[39m" would stack a visible reset into
// the output byte-for-byte, which spec's end-to-end scenarios forbid.
func (cs *ColorState) Restore() string {
	if cs.ActiveFg == "" {
		return "\x1b[39m"
	}
	return cs.ActiveFg
}

type span struct {
	start, end int
	text       string
	style      string
}

// ProcessChunk overlays rules onto chunk, preserving pre-existing SGR
// state across calls via state. rules is applied in order; ruleSet, if
// non-nil, is consulted first as a cheap prefilter — if it reports no
// match at all, the rule loop is skipped (but the SGR scan for state
// continuity still runs).
func ProcessChunk(chunk string, rules []config.CompiledRule, ruleSet *regexp.Regexp, state *ColorState) string {
	if chunk == "" {
		return chunk
	}

	clean, mapping := buildIndexMapping(chunk)

	state.scan(chunk)

	if ruleSet != nil && !ruleSet.MatchString(clean) {
		return chunk
	}

	var spans []span
	for _, rule := range rules {
		for _, loc := range rule.Regex.FindAllStringIndex(clean, -1) {
			cleanStart, cleanEnd := loc[0], loc[1]
			rawStart := mapRawIndex(mapping, cleanStart, len(chunk))
			rawEnd := mapRawIndex(mapping, cleanEnd, len(chunk))
			if rawStart >= rawEnd {
				continue
			}
			spans = append(spans, span{start: rawStart, end: rawEnd, text: chunk[rawStart:rawEnd], style: rule.Style})
		}
	}
	if len(spans) == 0 {
		return chunk
	}

	// Non-overlapping greedy-by-start: sort by start (stable, preserving
	// rule declaration order on ties), then drop any span that begins
	// before the end of the last emitted span.
	sortSpansByStart(spans)

	var out strings.Builder
	lastEnd := 0
	restore := state.Restore()
	for _, sp := range spans {
		if sp.start < lastEnd {
			continue
		}
		out.WriteString(chunk[lastEnd:sp.start])
		out.WriteString(sp.style)
		out.WriteString(sp.text)
		out.WriteString(restore)
		lastEnd = sp.end
	}
	out.WriteString(chunk[lastEnd:])
	return out.String()
}

// buildIndexMapping returns a whitespace-clean view of raw (newlines
// become spaces) and a mapping from each rune position in the clean view
// back to the byte offset of that rune in raw.
func buildIndexMapping(raw string) (string, []int) {
	var clean strings.Builder
	clean.Grow(len(raw))
	mapping := make([]int, 0, len(raw))

	byteIdx := 0
	for _, r := range raw {
		if r == '\n' || r == '\r' {
			clean.WriteByte(' ')
		} else {
			clean.WriteRune(r)
		}
		mapping = append(mapping, byteIdx)
		byteIdx += utf8Len(r)
	}
	return clean.String(), mapping
}

func utf8Len(r rune) int {
	switch {
	case r < 0x80:
		return 1
	case r < 0x800:
		return 2
	case r < 0x10000:
		return 3
	default:
		return 4
	}
}

func mapRawIndex(mapping []int, cleanIdx, rawLen int) int {
	if cleanIdx < len(mapping) {
		return mapping[cleanIdx]
	}
	return rawLen
}

func sortSpansByStart(spans []span) {
	// Insertion sort: N is tiny (rule-match count per chunk), and it is
	// stable, which a library sort.Slice is not by default.
	for i := 1; i < len(spans); i++ {
		j := i
		for j > 0 && spans[j-1].start > spans[j].start {
			spans[j-1], spans[j] = spans[j], spans[j-1]
			j--
		}
	}
}

// BuildRuleSet compiles an alternation of every rule's pattern into one
// RegexSet-style prefilter: if it doesn't match, no individual rule can
// either, so the (more expensive) per-rule scan can be skipped. Returns
// nil if rules is empty or no pattern compiles.
func BuildRuleSet(rules []config.CompiledRule) *regexp.Regexp {
	if len(rules) == 0 {
		return nil
	}
	parts := make([]string, 0, len(rules))
	for _, r := range rules {
		parts = append(parts, "(?:"+r.Regex.String()+")")
	}
	set, err := regexp.Compile(strings.Join(parts, "|"))
	if err != nil {
		return nil
	}
	return set
}
