package highlight

import (
	"regexp"
	"testing"

	"github.com/mpecarina/colorssh/internal/config"
)

func rule(pattern, style string) config.CompiledRule {
	return config.CompiledRule{Regex: regexp.MustCompile(pattern), Style: style}
}

func TestProcessChunk_HighlightsMatchAndRestoresDefault(t *testing.T) {
	rules := []config.CompiledRule{rule(`\bERROR\b`, "\x1b[31m")}
	state := &ColorState{}
	out := ProcessChunk("an ERROR occurred", rules, nil, state)
	if out != "an \x1b[31mERROR\x1b[39m occurred" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestProcessChunk_NoMatchStillAdvancesColorState(t *testing.T) {
	rules := []config.CompiledRule{rule(`\bERROR\b`, "\x1b[31m")}
	state := &ColorState{}
	// No rule matches, but the chunk's SGR sequences are still scanned: it
	// sets green and then resets, so the tracked foreground ends cleared.
	out := ProcessChunk("\x1b[32mok\x1b[0m", rules, nil, state)
	if out != "\x1b[32mok\x1b[0m" {
		t.Fatalf("expected chunk unchanged, got %q", out)
	}
	if state.ActiveFg != "" {
		t.Fatalf("expected reset to clear active fg, got %q", state.ActiveFg)
	}
}

func TestProcessChunk_RestoreReinstatesPriorColorNotHardReset(t *testing.T) {
	rules := []config.CompiledRule{rule(`down`, "\x1b[33m")}
	state := &ColorState{ActiveFg: "\x1b[32m"} // simulate a prior chunk having set green

	out := ProcessChunk("\x1b[7mdown\x1b[27m", rules, nil, state)

	if containsHardReset(out) {
		t.Fatalf("expected no hard reset in output, got %q", out)
	}
	want := "\x1b[7m\x1b[33mdown\x1b[32m\x1b[27m"
	if out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestProcessChunk_CrossChunkColorRestoreExactBytes(t *testing.T) {
	// §8 scenario 2, literal input/output.
	rules := []config.CompiledRule{rule(`down`, "\x1b[31m")}
	state := &ColorState{}

	ProcessChunk("\x1b[32m", rules, nil, state) // no match, just sets green

	out := ProcessChunk("down", rules, nil, state)
	if out != "\x1b[31mdown\x1b[32m" {
		t.Fatalf("got %q, want %q", out, "\x1b[31mdown\x1b[32m")
	}
}

func containsHardReset(s string) bool {
	for i := 0; i+4 <= len(s); i++ {
		if s[i:i+4] == "\x1b[0m" {
			return true
		}
	}
	return false
}

func TestProcessChunk_NonOverlappingGreedyByStart(t *testing.T) {
	rules := []config.CompiledRule{
		rule(`foobar`, "\x1b[31m"),
		rule(`bar`, "\x1b[32m"),
	}
	state := &ColorState{}
	out := ProcessChunk("foobar", rules, nil, state)
	// "foobar" (rule 1) matches first at start=0; "bar" at start=3 is
	// dropped because it begins before the end of the first emitted span.
	want := "\x1b[31mfoobar\x1b[39m"
	if out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestProcessChunk_RuleSetPrefilterSkipsScanWhenNoMatch(t *testing.T) {
	rules := []config.CompiledRule{rule(`ERROR`, "\x1b[31m")}
	set := BuildRuleSet(rules)
	state := &ColorState{}
	out := ProcessChunk("all good here", rules, set, state)
	if out != "all good here" {
		t.Fatalf("expected unchanged output, got %q", out)
	}
}

func TestBuildIndexMapping_NewlinesBecomeSpacesPreservingByteOffsets(t *testing.T) {
	clean, mapping := buildIndexMapping("a\nb")
	if clean != "a b" {
		t.Fatalf("expected newline replaced with space, got %q", clean)
	}
	if len(mapping) != 3 || mapping[2] != 2 {
		t.Fatalf("unexpected mapping: %v", mapping)
	}
}
