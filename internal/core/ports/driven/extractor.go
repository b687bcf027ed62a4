package driven

import "github.com/eaas-labs/recall-cli/internal/core/domain"

// EntityExtractor derives typed entity mentions from chunk text. The
// default implementation is lexical-heuristic; it is an interface so a
// statistical or learned extractor can be substituted without touching
// the graph persistence layer.
type EntityExtractor interface {
	// Extract returns the deduplicated mentions found in text.
	Extract(text string) []domain.EntityMention
}
