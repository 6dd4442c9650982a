package dispatch

import "strings"

// matchResult is what the keyword predicate found, if anything.
type matchResult struct {
	matched    bool
	keyword    string // original casing, as configured
	foundIndex int    // byte offset of the match within text; -1 if not applicable
}

// matchKeywords implements the chat's keyword predicate. An empty keywords
// field admits any non-empty text. Otherwise keywords is a comma-separated
// list, trimmed at each end (internal whitespace preserved), empty items
// ignored, matched case-insensitively as a substring of text. The keyword
// that occurs at the smallest position in text wins, regardless of its
// position in the configured list — matching original_source/client/
// message_processor.py's _format_message, which tracks first_pos across all
// configured keywords rather than stopping at the first list entry found.
func matchKeywords(keywords, text string) matchResult {
	if strings.TrimSpace(keywords) == "" {
		if text == "" {
			return matchResult{foundIndex: -1}
		}
		return matchResult{matched: true, foundIndex: -1}
	}

	lowerText := strings.ToLower(text)
	best := matchResult{}
	bestIndex := -1
	for _, raw := range strings.Split(keywords, ",") {
		kw := strings.TrimSpace(raw)
		if kw == "" {
			continue
		}
		idx := strings.Index(lowerText, strings.ToLower(kw))
		if idx < 0 {
			continue
		}
		if bestIndex == -1 || idx < bestIndex {
			bestIndex = idx
			best = matchResult{matched: true, keyword: kw, foundIndex: idx}
		}
	}
	return best
}

// MatchKeywords exposes the predicate to C5, which must apply the identical
// rule during history backfill (spec.md §4.4).
func MatchKeywords(keywords, text string) bool {
	return matchKeywords(keywords, text).matched
}
