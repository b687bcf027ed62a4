// Package chunker splits text into bounded-size, sentence-aligned segments.
package chunker

import (
	"regexp"
	"strings"
)

// DefaultMaxChars is the default character budget per chunk.
const DefaultMaxChars = 2048

// sentenceRe matches one sentence including its terminator.
var sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]+["')\]]*`)

// Splitter accumulates whole sentences greedily up to a character budget.
// Sentences are never split across chunks, except when a single sentence
// alone exceeds the budget.
type Splitter struct {
	maxChars int
}

// Option configures the splitter.
type Option func(*Splitter)

// WithMaxChars sets the character budget per chunk.
func WithMaxChars(n int) Option {
	return func(s *Splitter) {
		if n > 0 {
			s.maxChars = n
		}
	}
}

// New creates a splitter with the given options.
func New(opts ...Option) *Splitter {
	s := &Splitter{maxChars: DefaultMaxChars}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxChars returns the configured character budget.
func (s *Splitter) MaxChars() int {
	return s.maxChars
}

// Split breaks text into chunks of whole sentences. Empty or
// whitespace-only input produces no chunks.
func (s *Splitter) Split(text string) []string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}

	for _, sentence := range sentences {
		if len(sentence) > s.maxChars {
			// Forced overflow: a lone sentence beyond the budget is
			// hard-split on rune boundaries.
			flush()
			chunks = append(chunks, hardSplit(sentence, s.maxChars)...)
			continue
		}

		// +1 for the joining space
		if current.Len() > 0 && current.Len()+1+len(sentence) > s.maxChars {
			flush()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(sentence)
	}
	flush()

	return chunks
}

// splitSentences returns trimmed sentences, treating any trailing text
// without a terminator as a final sentence.
func splitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var sentences []string
	last := 0
	for _, loc := range sentenceRe.FindAllStringIndex(text, -1) {
		sentence := strings.TrimSpace(text[loc[0]:loc[1]])
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		last = loc[1]
	}
	if rest := strings.TrimSpace(text[last:]); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}

// hardSplit cuts an oversized sentence into budget-sized pieces without
// breaking UTF-8 sequences.
func hardSplit(sentence string, maxChars int) []string {
	var parts []string
	runes := []rune(sentence)
	for start := 0; start < len(runes); {
		end := start
		size := 0
		for end < len(runes) {
			r := len(string(runes[end]))
			if size+r > maxChars && size > 0 {
				break
			}
			size += r
			end++
		}
		parts = append(parts, string(runes[start:end]))
		start = end
	}
	return parts
}
