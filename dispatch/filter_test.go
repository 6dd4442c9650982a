package dispatch

import "testing"

func TestMatchKeywords_EmptyKeywordsAdmitsAnyNonEmptyText(t *testing.T) {
	m := matchKeywords("", "anything at all")
	if !m.matched {
		t.Fatal("expected empty keywords to admit non-empty text")
	}
	if m.foundIndex != -1 {
		t.Fatalf("expected foundIndex -1 for unconfigured keywords, got %d", m.foundIndex)
	}
}

func TestMatchKeywords_EmptyKeywordsRejectsEmptyText(t *testing.T) {
	m := matchKeywords("", "")
	if m.matched {
		t.Fatal("expected empty text to never match")
	}
}

func TestMatchKeywords_CaseInsensitiveSubstring(t *testing.T) {
	m := matchKeywords("buy, sell", "We need to Buy paint")
	if !m.matched {
		t.Fatal("expected a match")
	}
	if m.keyword != "buy" {
		t.Fatalf("expected matched keyword %q, got %q", "buy", m.keyword)
	}
	if m.foundIndex != 11 {
		t.Fatalf("expected match at byte offset 11, got %d", m.foundIndex)
	}
}

func TestMatchKeywords_TrimsEndsPreservesInternalWhitespace(t *testing.T) {
	m := matchKeywords(" red car , blue bike ", "I drive a blue bike every day")
	if !m.matched {
		t.Fatal("expected a match")
	}
	if m.keyword != "blue bike" {
		t.Fatalf("expected keyword %q, got %q", "blue bike", m.keyword)
	}
}

func TestMatchKeywords_EmptyItemsIgnored(t *testing.T) {
	m := matchKeywords("foo,,bar", "just some bar talk")
	if !m.matched || m.keyword != "bar" {
		t.Fatalf("expected match on bar, got %+v", m)
	}
}

func TestMatchKeywords_NoKeywordOccurs(t *testing.T) {
	m := matchKeywords("foo, bar", "nothing relevant here")
	if m.matched {
		t.Fatal("expected no match")
	}
}

func TestMatchKeywords_EarliestOccurrenceWins(t *testing.T) {
	// "sell" occurs earlier in the text than "buy", so it wins even though
	// "buy" is configured first.
	m := matchKeywords("buy, sell", "sell sell, but also buy")
	if m.keyword != "sell" {
		t.Fatalf("expected earliest-occurring keyword to win, got %q", m.keyword)
	}
}

func TestMatchKeywords_EarliestOccurrenceWinsRegardlessOfConfiguredOrder(t *testing.T) {
	// "buy" occurs before "paint" in the text, even though "paint" is
	// configured first.
	m := matchKeywords("paint, buy", "We need to Buy paint")
	if m.keyword != "buy" {
		t.Fatalf("expected earliest-occurring keyword to win, got %q", m.keyword)
	}
}
