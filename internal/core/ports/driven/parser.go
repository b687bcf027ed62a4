package driven

import "context"

// ParsedImage is an image reference extracted from a parsed document.
type ParsedImage struct {
	// URI is the image location (local path or URL).
	URI string

	// Caption is an optional caption.
	Caption string
}

// ParsedDocument is the parser's normalised output.
type ParsedDocument struct {
	// Text is the plain text content.
	Text string

	// Metadata contains format-specific key-value pairs.
	Metadata map[string]any

	// Images are sub-images extracted from the document.
	Images []ParsedImage
}

// DocumentParser converts heterogeneous file formats into plain text plus
// extracted sub-images. The parser is assumed to have validated file type
// and size and performed OCR where relevant.
type DocumentParser interface {
	// Parse reads and converts the file at path.
	Parse(ctx context.Context, path string) (*ParsedDocument, error)
}

// Fetcher retrieves externally-sourced buffers under a request timeout and
// a maximum byte-size ceiling.
type Fetcher interface {
	// Fetch downloads the resource at url, honouring the size ceiling.
	Fetch(ctx context.Context, url string) ([]byte, error)
}
