// Package plaintext parses plain text and markdown files into the
// normalised parser output, extracting markdown image references as
// sub-images.
package plaintext

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/eaas-labs/recall-cli/internal/core/domain"
	"github.com/eaas-labs/recall-cli/internal/core/ports/driven"
)

// Ensure Parser implements the interface.
var _ driven.DocumentParser = (*Parser)(nil)

// DefaultMaxFileBytes caps the file size the parser will read.
const DefaultMaxFileBytes = 16 << 20 // 16 MiB

// markdownImageRe matches ![caption](uri) references.
var markdownImageRe = regexp.MustCompile(`!\[([^\]]*)\]\(([^)\s]+)\)`)

// Parser reads .txt and .md files.
type Parser struct {
	maxBytes int64
}

// Option configures the parser.
type Option func(*Parser)

// WithMaxFileBytes overrides the file size ceiling.
func WithMaxFileBytes(n int64) Option {
	return func(p *Parser) { p.maxBytes = n }
}

// NewParser creates a plaintext parser.
func NewParser(opts ...Option) *Parser {
	p := &Parser{maxBytes: DefaultMaxFileBytes}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse reads and converts the file at path. Markdown image references
// are lifted out as sub-images; the reference text stays in place so
// chunk positions remain stable.
func (p *Parser) Parse(_ context.Context, path string) (*driven.ParsedDocument, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("statting %s: %w", path, err)
	}
	if info.Size() > p.maxBytes {
		return nil, fmt.Errorf("%s is %d bytes: %w", path, info.Size(), domain.ErrResponseTooLarge)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	text := string(content)
	doc := &driven.ParsedDocument{
		Text: text,
		Metadata: map[string]any{
			"filename":  filepath.Base(path),
			"extension": strings.TrimPrefix(filepath.Ext(path), "."),
			"bytes":     info.Size(),
		},
	}

	for _, m := range markdownImageRe.FindAllStringSubmatch(text, -1) {
		uri := m[2]
		if !filepath.IsAbs(uri) && !strings.Contains(uri, "://") {
			uri = filepath.Join(filepath.Dir(path), uri)
		}
		doc.Images = append(doc.Images, driven.ParsedImage{URI: uri, Caption: m[1]})
	}

	return doc, nil
}
