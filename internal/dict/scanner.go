// Package dict matches versioned dictionary terms against call transcripts and
// caches compiled term sets per (code, version).
package dict

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/velmed/callscore/internal/model"
)

// snippetRadius is how many characters of context surround the first match.
const snippetRadius = 30

// compiledTerm pairs a dictionary term with its compiled pattern (regex terms
// only). Terms whose pattern failed to compile are dropped before scanning.
type compiledTerm struct {
	term model.DictionaryTerm
	re   *regexp.Regexp
}

// Compile prepares a term list for scanning. Zero-weight terms are excluded
// up front; a regex term that fails to compile is logged and skipped so one
// bad pattern never takes the dictionary down.
func Compile(terms []model.DictionaryTerm) []compiledTerm {
	out := make([]compiledTerm, 0, len(terms))
	for _, t := range terms {
		if t.Weight == 0 {
			continue
		}
		ct := compiledTerm{term: t}
		if t.MatchType == model.MatchRegex {
			re, err := regexp.Compile("(?i)" + t.Term)
			if err != nil {
				zap.L().Warn("dict: skipping term with invalid pattern",
					zap.String("dict_code", t.DictCode),
					zap.String("term", t.Term),
					zap.Error(err),
				)
				continue
			}
			ct.re = re
		}
		out = append(out, ct)
	}
	return out
}

// Scan runs every compiled term against the transcript and returns the hits.
// Phrase and stem terms use case-insensitive substring search; regex terms
// count all matches. The snippet always surrounds the first occurrence.
func Scan(transcript string, terms []compiledTerm, now time.Time) []model.DictionaryHit {
	if transcript == "" || len(terms) == 0 {
		return nil
	}
	lowered := strings.ToLower(transcript)

	var hits []model.DictionaryHit
	for _, ct := range terms {
		// firstRune is the rune position of the first match, counted in the
		// string that was searched. Lowercasing can change byte lengths, but
		// it maps rune for rune, so rune positions carry over to the original.
		var count, firstRune int
		switch ct.term.MatchType {
		case model.MatchRegex:
			locs := ct.re.FindAllStringIndex(transcript, -1)
			if len(locs) == 0 {
				continue
			}
			count = len(locs)
			firstRune = utf8.RuneCountInString(transcript[:locs[0][0]])
		default: // phrase, stem
			needle := strings.ToLower(ct.term.Term)
			if needle == "" {
				continue
			}
			first := strings.Index(lowered, needle)
			if first < 0 {
				continue
			}
			count = strings.Count(lowered, needle)
			firstRune = utf8.RuneCountInString(lowered[:first])
		}

		hits = append(hits, model.DictionaryHit{
			HistoryID:   0, // filled in by the caller
			DictCode:    ct.term.DictCode,
			Term:        ct.term.Term,
			MatchType:   ct.term.MatchType,
			Weight:      ct.term.Weight,
			HitCount:    count,
			Snippet:     snippet(transcript, firstRune),
			IsNegative:  ct.term.IsNegative,
			DictVersion: ct.term.Version,
			DetectedAt:  now,
		})
	}
	return hits
}

// snippet extracts ±snippetRadius characters around the rune position,
// respecting rune boundaries so multi-byte transcripts never split
// mid-character.
func snippet(text string, rpos int) string {
	runes := []rune(text)
	start := rpos - snippetRadius
	if start < 0 {
		start = 0
	}
	end := rpos + snippetRadius
	if end > len(runes) {
		end = len(runes)
	}
	return string(runes[start:end])
}
