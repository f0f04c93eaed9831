package session

import (
	"bytes"
	"testing"

	"github.com/mpecarina/colorssh/internal/vt"
)

func TestEncodeControl(t *testing.T) {
	cases := map[rune]byte{
		'a': 1, 'z': 26, 'A': 1, '[': 27, '\\': 28, ']': 29, '^': 30, '_': 31, '?': 127, ' ': 0, '@': 0,
	}
	for r, want := range cases {
		got := EncodeControl(r)
		if len(got) != 1 || got[0] != want {
			t.Errorf("EncodeControl(%q) = %v, want [%d]", r, got, want)
		}
	}
}

func TestEncodeChar_AltPrependsEsc(t *testing.T) {
	got := EncodeChar('x', true)
	if !bytes.Equal(got, []byte{0x1B, 'x'}) {
		t.Fatalf("unexpected: %v", got)
	}
	plain := EncodeChar('x', false)
	if !bytes.Equal(plain, []byte{'x'}) {
		t.Fatalf("unexpected: %v", plain)
	}
}

func TestEncodeNamedKey_ArrowsWithAndWithoutModifiers(t *testing.T) {
	up := EncodeNamedKey(KeyUp, Modifiers{})
	if string(up) != "\x1b[A" {
		t.Fatalf("unexpected plain up arrow: %q", up)
	}
	shiftUp := EncodeNamedKey(KeyUp, Modifiers{Shift: true})
	if string(shiftUp) != "\x1b[1;2A" {
		t.Fatalf("unexpected shift-up: %q", shiftUp)
	}
	ctrlAltRight := EncodeNamedKey(KeyRight, Modifiers{Ctrl: true, Alt: true})
	if string(ctrlAltRight) != "\x1b[1;7C" {
		t.Fatalf("unexpected ctrl-alt-right: %q", ctrlAltRight)
	}
}

func TestEncodeNamedKey_PageAndDeleteUseTildeForm(t *testing.T) {
	pgup := EncodeNamedKey(KeyPageUp, Modifiers{})
	if string(pgup) != "\x1b[5~" {
		t.Fatalf("unexpected pgup: %q", pgup)
	}
	del := EncodeNamedKey(KeyDelete, Modifiers{Shift: true})
	if string(del) != "\x1b[3;2~" {
		t.Fatalf("unexpected shift-delete: %q", del)
	}
}

func TestEncodeNamedKey_SimpleKeys(t *testing.T) {
	if string(EncodeNamedKey(KeyEnter, Modifiers{})) != "\r" {
		t.Fatalf("enter mismatch")
	}
	if EncodeNamedKey(KeyBackspace, Modifiers{})[0] != 0x7F {
		t.Fatalf("backspace mismatch")
	}
	if string(EncodeNamedKey(KeyTab, Modifiers{})) != "\t" {
		t.Fatalf("tab mismatch")
	}
	if EncodeNamedKey(KeyEsc, Modifiers{})[0] != 0x1B {
		t.Fatalf("esc mismatch")
	}
}

func TestWrapBracketedPaste(t *testing.T) {
	got := string(WrapBracketedPaste("hello"))
	want := "\x1b[200~hello\x1b[201~"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestEncodeMouse_SGR(t *testing.T) {
	press := EncodeMouse(vt.EncodingSGR, 0, 10, 5, false)
	if string(press) != "\x1b[<0;10;5M" {
		t.Fatalf("unexpected SGR press: %q", press)
	}
	release := EncodeMouse(vt.EncodingSGR, 0, 10, 5, true)
	if string(release) != "\x1b[<0;10;5m" {
		t.Fatalf("unexpected SGR release: %q", release)
	}
}

func TestEncodeMouse_X10ClampsCoordinates(t *testing.T) {
	got := EncodeMouse(vt.EncodingDefault, 0, 300, 300, false)
	want := []byte{0x1B, '[', 'M', byte(0 + 32), byte(223 + 32), byte(223 + 32)}
	if !bytes.Equal(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestParsePassthroughFlag(t *testing.T) {
	if !ParsePassthroughFlag([]string{"host", "-G"}) {
		t.Fatalf("expected -G to trigger passthrough")
	}
	if !ParsePassthroughFlag([]string{"host", "-vG"}) {
		t.Fatalf("expected combined short flag -vG to trigger passthrough via G")
	}
	if ParsePassthroughFlag([]string{"host", "-l", "user"}) {
		t.Fatalf("did not expect plain args to trigger passthrough")
	}
}

func TestScanOSC52_CompleteSequenceForwardedAndStrippedFromBuffer(t *testing.T) {
	s := &Session{}
	seq := []byte("\x1b]52;c;aGVsbG8=\x07")
	forwarded := s.scanOSC52(append([]byte("leading text"), seq...))
	if !bytes.Equal(forwarded, seq) {
		t.Fatalf("expected full OSC52 sequence forwarded, got %q", forwarded)
	}
	if s.oscBuf.Len() != 0 {
		t.Fatalf("expected no partial buffer retained, got %q", s.oscBuf.String())
	}
}

func TestScanOSC52_PartialSequenceBuffersAcrossReads(t *testing.T) {
	s := &Session{}
	part1 := []byte("\x1b]52;c;aGVs")
	forwarded := s.scanOSC52(part1)
	if len(forwarded) != 0 {
		t.Fatalf("expected nothing forwarded yet, got %q", forwarded)
	}
	if s.oscBuf.Len() == 0 {
		t.Fatalf("expected partial sequence buffered")
	}

	part2 := []byte("bG8=\x07")
	forwarded2 := s.scanOSC52(part2)
	want := []byte("\x1b]52;c;aGVsbG8=\x07")
	if !bytes.Equal(forwarded2, want) {
		t.Fatalf("got %q want %q", forwarded2, want)
	}
}

func TestQueryResponses_DA1DA2DSRCPR(t *testing.T) {
	resp := queryResponses([]byte("\x1b[c"))
	if len(resp) != 1 || string(resp[0]) != "\x1b[?62;1;2;6;9;15;22c" {
		t.Fatalf("unexpected DA1 response: %v", resp)
	}

	resp = queryResponses([]byte("\x1b[>c"))
	if len(resp) != 1 || string(resp[0]) != "\x1b[>41;279;0c" {
		t.Fatalf("unexpected DA2 response: %v", resp)
	}

	resp = queryResponses([]byte("\x1b[5n"))
	if len(resp) != 1 || string(resp[0]) != "\x1b[0n" {
		t.Fatalf("unexpected DSR response: %v", resp)
	}

	resp = queryResponses([]byte("\x1b[6n"))
	if len(resp) != 1 || string(resp[0]) != "\x1b[1;1R" {
		t.Fatalf("unexpected CPR response: %v", resp)
	}

	if resp := queryResponses([]byte("plain output, no queries")); len(resp) != 0 {
		t.Fatalf("expected no responses for plain output, got %v", resp)
	}
}
