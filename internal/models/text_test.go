package models

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateShortStringUnchanged(t *testing.T) {
	if got := Truncate("hello", 100); got != "hello" {
		t.Errorf("expected unchanged string, got %q", got)
	}
	if got := Truncate("", 10); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

func TestTruncateASCII(t *testing.T) {
	if got := Truncate("abcdef", 3); got != "abc" {
		t.Errorf("expected %q, got %q", "abc", got)
	}
}

func TestTruncateDoesNotSplitRunes(t *testing.T) {
	// λ is two bytes; a cut at byte 4 lands mid-rune and must back off.
	s := "a" + strings.Repeat("λ", 10)
	got := Truncate(s, 4)
	if got != "aλ" {
		t.Errorf("expected %q, got %q", "aλ", got)
	}
	for n := 0; n <= len(s); n++ {
		if out := Truncate(s, n); !utf8.ValidString(out) {
			t.Errorf("Truncate(%q, %d) = %q is not valid UTF-8", s, n, out)
		}
	}
}

func TestTruncateNonPositive(t *testing.T) {
	if got := Truncate("abc", 0); got != "" {
		t.Errorf("expected empty string for n=0, got %q", got)
	}
	if got := Truncate("abc", -5); got != "" {
		t.Errorf("expected empty string for n<0, got %q", got)
	}
}
