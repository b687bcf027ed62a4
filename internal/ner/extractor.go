// Package ner provides lexical-heuristic entity extraction. It is a cheap
// stand-in for a learned model: type assignment relies on suffix and
// keyword matching and is expected to produce some label noise. Callers
// treat it as one signal among several, never as ground truth.
package ner

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/eaas-labs/recall-cli/internal/core/domain"
	"github.com/eaas-labs/recall-cli/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.EntityExtractor = (*Extractor)(nil)

// orgSuffixes flag organisation names.
var orgSuffixes = []string{
	"Inc", "Inc.", "Ltd", "Ltd.", "LLC", "Corp", "Corp.", "GmbH", "AG",
	"Company", "Corporation", "Technologies", "Labs", "Systems", "Group",
	"Bank", "Holdings", "Partners",
}

// locKeywords flag street and city phrases.
var locKeywords = []string{
	"Street", "Avenue", "Road", "Boulevard", "Lane", "Drive", "Square",
	"City", "Town", "Village", "County", "District", "Province", "State",
	"River", "Lake", "Mount", "Island", "Valley",
}

// productKeywords is a fixed list of product mentions.
var productKeywords = []string{
	"iphone", "ipad", "android", "windows", "linux", "macos", "chrome",
	"firefox", "excel", "photoshop", "kubernetes", "postgres", "redis",
}

// dateKeywords is a fixed day/month/relative-date list.
var dateKeywords = []string{
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday",
	"sunday", "january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
	"today", "tomorrow", "yesterday",
}

// numericDateRe matches numeric date patterns such as 2024-01-31 or 31/01/2024.
var numericDateRe = regexp.MustCompile(`\b\d{1,4}[-/.]\d{1,2}[-/.]\d{1,4}\b`)

// sentenceStarters are capitalised function words that start sentences and
// are never entities on their own.
var sentenceStarters = map[string]struct{}{
	"The": {}, "A": {}, "An": {}, "It": {}, "He": {}, "She": {}, "They": {},
	"We": {}, "I": {}, "You": {}, "This": {}, "That": {}, "These": {},
	"Those": {}, "There": {}, "Here": {}, "But": {}, "And": {}, "Or": {},
	"If": {}, "When": {}, "While": {}, "After": {}, "Before": {}, "In": {},
	"On": {}, "At": {}, "For": {}, "With": {}, "As": {}, "By": {}, "To": {},
	"Its": {}, "Is": {}, "Are": {}, "Was": {}, "Were": {}, "Not": {},
}

// Extractor derives typed entities from text using lexical heuristics.
type Extractor struct{}

// New creates a lexical extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract returns the entity mentions found in text, deduplicated by
// (type, value).
func (e *Extractor) Extract(text string) []domain.EntityMention {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	type key struct {
		typ   domain.EntityType
		value string
	}
	seen := make(map[key]*domain.EntityMention)
	var order []key

	add := func(typ domain.EntityType, value string, freq int) {
		k := key{typ, value}
		if m, ok := seen[k]; ok {
			m.Frequency += freq
			return
		}
		seen[k] = &domain.EntityMention{Type: typ, Value: value, Frequency: freq}
		order = append(order, k)
	}

	// Frequencies already count every occurrence, so repeated runs are
	// added once.
	seenRuns := make(map[string]struct{})
	for _, run := range capitalisedRuns(text) {
		if _, ok := seenRuns[run]; ok {
			continue
		}
		seenRuns[run] = struct{}{}
		add(classify(run), run, countOccurrences(text, run))
	}

	lower := strings.ToLower(text)
	words := fieldsAlnum(lower)
	for _, kw := range productKeywords {
		if n := countWord(words, kw); n > 0 {
			add(domain.EntityProduct, kw, n)
		}
	}
	for _, kw := range dateKeywords {
		if n := countWord(words, kw); n > 0 {
			add(domain.EntityDate, kw, n)
		}
	}
	for _, m := range numericDateRe.FindAllString(text, -1) {
		add(domain.EntityDate, m, 1)
	}

	mentions := make([]domain.EntityMention, 0, len(order))
	for _, k := range order {
		mentions = append(mentions, *seen[k])
	}
	return mentions
}

// capitalisedRuns merges consecutive capitalised words into candidate
// entities, dropping runs that are only sentence-initial function words.
func capitalisedRuns(text string) []string {
	words := strings.Fields(text)
	var runs []string
	var current []string

	flush := func() {
		if len(current) == 0 {
			return
		}
		// A lone sentence starter is not an entity.
		if len(current) == 1 {
			if _, ok := sentenceStarters[current[0]]; ok {
				current = nil
				return
			}
		}
		runs = append(runs, strings.Join(current, " "))
		current = nil
	}

	for _, w := range words {
		trimmed := strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if trimmed != "" && unicode.IsUpper([]rune(trimmed)[0]) {
			current = append(current, trimmed)
			// Punctuation after the word ends the run.
			if strings.IndexFunc(w, unicode.IsPunct) >= 0 {
				flush()
			}
			continue
		}
		flush()
	}
	flush()
	return runs
}

// classify assigns a coarse type to a capitalised run.
func classify(run string) domain.EntityType {
	words := strings.Fields(run)

	for _, w := range words {
		for _, suffix := range orgSuffixes {
			if w == suffix {
				return domain.EntityOrg
			}
		}
		for _, kw := range locKeywords {
			if w == kw {
				return domain.EntityLocation
			}
		}
	}

	// All-caps acronyms are ambiguous between ORG and MISC; they are not
	// person names.
	if isAcronym(run) {
		return domain.EntityMisc
	}

	if len(words) >= 1 && len(words) <= 3 {
		return domain.EntityPerson
	}
	return domain.EntityMisc
}

// isAcronym reports whether the run is a single all-uppercase token of at
// least two letters.
func isAcronym(run string) bool {
	if strings.ContainsRune(run, ' ') || len(run) < 2 {
		return false
	}
	for _, r := range run {
		if unicode.IsLetter(r) && !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}

func countOccurrences(text, value string) int {
	n := strings.Count(text, value)
	if n < 1 {
		n = 1
	}
	return n
}

// fieldsAlnum splits on any non-alphanumeric rune.
func fieldsAlnum(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func countWord(words []string, w string) int {
	n := 0
	for _, x := range words {
		if x == w {
			n++
		}
	}
	return n
}
