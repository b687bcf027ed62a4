package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/eaas-labs/recall-cli/internal/chunker"
	"github.com/eaas-labs/recall-cli/internal/core/domain"
	"github.com/eaas-labs/recall-cli/internal/core/ports/driven"
	"github.com/eaas-labs/recall-cli/internal/core/ports/driving"
	"github.com/eaas-labs/recall-cli/internal/logger"
)

// Ensure IngestionService implements the interface.
var _ driving.IngestionService = (*IngestionService)(nil)

// IngestionService converts one external artifact into persisted
// documents, chunks, embeddings and entity links. Chunks are persisted
// before they are embedded, so a mid-document failure leaves every
// earlier chunk intact and queryable; the report says exactly which
// chunks made it.
type IngestionService struct {
	docStore     driven.DocumentStore
	vectorStore  *VectorStore
	graph        *GraphService
	parser       driven.DocumentParser
	fetcher      driven.Fetcher
	textEncoder  driven.TextEncoder
	imageEncoder driven.ImageEncoder
	extractor    driven.EntityExtractor
	splitter     *chunker.Splitter
	imageWidth   int
	imageHeight  int
}

// IngestionConfig wires the ingestion pipeline's collaborators.
type IngestionConfig struct {
	DocStore     driven.DocumentStore
	VectorStore  *VectorStore
	Graph        *GraphService
	Parser       driven.DocumentParser
	Fetcher      driven.Fetcher
	TextEncoder  driven.TextEncoder
	ImageEncoder driven.ImageEncoder
	Extractor    driven.EntityExtractor
	Splitter     *chunker.Splitter

	// ImageWidth and ImageHeight are the encoder's expected input size.
	ImageWidth  int
	ImageHeight int
}

// NewIngestionService creates an ingestion service. The image encoder,
// fetcher and parser are optional; paths needing an absent collaborator
// degrade to metadata-only chunks or errors at the call site.
func NewIngestionService(cfg IngestionConfig) *IngestionService {
	if cfg.Splitter == nil {
		cfg.Splitter = chunker.New()
	}
	return &IngestionService{
		docStore:     cfg.DocStore,
		vectorStore:  cfg.VectorStore,
		graph:        cfg.Graph,
		parser:       cfg.Parser,
		fetcher:      cfg.Fetcher,
		textEncoder:  cfg.TextEncoder,
		imageEncoder: cfg.ImageEncoder,
		extractor:    cfg.Extractor,
		splitter:     cfg.Splitter,
		imageWidth:   cfg.ImageWidth,
		imageHeight:  cfg.ImageHeight,
	}
}

// IngestDocument parses and ingests the file at path. Text content is
// chunked and embedded; extracted sub-images become image chunks.
func (s *IngestionService) IngestDocument(ctx context.Context, tenantID, path, sourceURI string, metadata map[string]any) (*domain.IngestReport, error) {
	if s.parser == nil {
		return nil, fmt.Errorf("no document parser configured: %w", domain.ErrInvalidInput)
	}

	logger.Section("Ingest Document")
	logger.Debug("Parsing %s", path)

	parsed, err := s.parser.Parse(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	merged := make(map[string]any, len(parsed.Metadata)+len(metadata))
	for k, v := range parsed.Metadata {
		merged[k] = v
	}
	for k, v := range metadata {
		merged[k] = v
	}
	if sourceURI == "" {
		sourceURI = path
	}

	doc, err := s.createDocument(ctx, tenantID, sourceURI, merged)
	if err != nil {
		return nil, err
	}

	report := &domain.IngestReport{DocumentID: doc.ID}
	position := s.ingestText(ctx, doc, parsed.Text, 0, report)
	s.ingestImages(ctx, doc, parsed.Images, position, report)
	return report, nil
}

// IngestRawText ingests a raw text string.
func (s *IngestionService) IngestRawText(ctx context.Context, tenantID, text, sourceURI string, metadata map[string]any) (*domain.IngestReport, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty text: %w", domain.ErrInvalidInput)
	}

	logger.Section("Ingest Raw Text")

	doc, err := s.createDocument(ctx, tenantID, sourceURI, metadata)
	if err != nil {
		return nil, err
	}

	report := &domain.IngestReport{DocumentID: doc.ID}
	s.ingestText(ctx, doc, text, 0, report)
	return report, nil
}

// IngestImage ingests a single image by URI.
func (s *IngestionService) IngestImage(ctx context.Context, tenantID, imageURI, sourceURI string, metadata map[string]any) (*domain.IngestReport, error) {
	if imageURI == "" {
		return nil, fmt.Errorf("empty image uri: %w", domain.ErrInvalidInput)
	}

	logger.Section("Ingest Image")

	if sourceURI == "" {
		sourceURI = imageURI
	}
	doc, err := s.createDocument(ctx, tenantID, sourceURI, metadata)
	if err != nil {
		return nil, err
	}

	report := &domain.IngestReport{DocumentID: doc.ID}
	s.ingestImages(ctx, doc, []driven.ParsedImage{{URI: imageURI}}, 0, report)
	return report, nil
}

// DeleteDocument cascades deletion within the tenant. Stale ANN index
// entries are tolerated; the query path filters them out.
func (s *IngestionService) DeleteDocument(ctx context.Context, tenantID, documentID string) error {
	logger.Debug("Deleting document %s (tenant %s)", documentID, tenantID)
	if err := s.docStore.DeleteDocument(ctx, tenantID, documentID); err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

func (s *IngestionService) createDocument(ctx context.Context, tenantID, sourceURI string, metadata map[string]any) (*domain.Document, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("empty tenant id: %w", domain.ErrInvalidInput)
	}

	doc := &domain.Document{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		SourceURI: sourceURI,
		Metadata:  metadata,
	}
	if err := s.docStore.SaveDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("saving document: %w", err)
	}
	return doc, nil
}

// ingestText chunks text, persists every chunk, batch-encodes them, and
// then upserts embeddings and entity links per chunk in position order.
// Returns the next free position.
func (s *IngestionService) ingestText(ctx context.Context, doc *domain.Document, text string, position int, report *domain.IngestReport) int {
	segments := s.splitter.Split(text)
	if len(segments) == 0 {
		return position
	}

	chunks := make([]*domain.Chunk, 0, len(segments))
	for _, segment := range segments {
		chunk := &domain.Chunk{
			ID:         uuid.New().String(),
			TenantID:   doc.TenantID,
			DocumentID: doc.ID,
			Modality:   domain.ModalityText,
			Position:   position,
			Content:    segment,
		}
		position++
		if err := s.docStore.SaveChunk(ctx, chunk); err != nil {
			report.Chunks = append(report.Chunks, domain.ChunkStatus{
				ChunkID: chunk.ID, Position: chunk.Position,
				State: domain.ChunkFailed, Error: err.Error(),
			})
			report.Failed++
			continue
		}
		chunks = append(chunks, chunk)
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}
	vectors, err := s.textEncoder.EncodeBatch(ctx, texts)
	if err != nil || len(vectors) != len(chunks) {
		// Batch failure: the chunks stay queryable as metadata only.
		if err == nil {
			err = fmt.Errorf("encoder returned %d vectors for %d chunks", len(vectors), len(chunks))
		}
		logger.Warn("Batch encoding failed: %v", err)
		for _, chunk := range chunks {
			report.Chunks = append(report.Chunks, domain.ChunkStatus{
				ChunkID: chunk.ID, Position: chunk.Position,
				State: domain.ChunkFailed, Error: err.Error(),
			})
			report.Failed++
		}
		return position
	}

	for i, chunk := range chunks {
		status := domain.ChunkStatus{ChunkID: chunk.ID, Position: chunk.Position, State: domain.ChunkIngested}

		if err := s.vectorStore.UpsertEmbedding(ctx, chunk.TenantID, chunk.ID,
			vectors[i], s.textEncoder.ModelName(), domain.ModalityText); err != nil {
			logger.Warn("Embedding chunk %s failed: %v", chunk.ID, err)
			status.State = domain.ChunkFailed
			status.Error = err.Error()
			report.Failed++
			report.Chunks = append(report.Chunks, status)
			continue
		}

		if s.extractor != nil && s.graph != nil {
			mentions := s.extractor.Extract(chunk.Content)
			if err := s.graph.UpsertEntitiesWithLinks(ctx, chunk.TenantID, chunk.ID, mentions); err != nil {
				logger.Warn("Entity links for chunk %s failed: %v", chunk.ID, err)
			}
		}

		report.Chunks = append(report.Chunks, status)
	}
	return position
}

// ingestImages persists one image chunk per reference. Resolvable
// images are decoded and embedded; the rest stay metadata-only.
func (s *IngestionService) ingestImages(ctx context.Context, doc *domain.Document, images []driven.ParsedImage, position int, report *domain.IngestReport) {
	for _, ref := range images {
		chunk := &domain.Chunk{
			ID:         uuid.New().String(),
			TenantID:   doc.TenantID,
			DocumentID: doc.ID,
			Modality:   domain.ModalityImage,
			Position:   position,
			ImageURI:   ref.URI,
			Caption:    ref.Caption,
		}
		position++
		if err := s.docStore.SaveChunk(ctx, chunk); err != nil {
			report.Chunks = append(report.Chunks, domain.ChunkStatus{
				ChunkID: chunk.ID, Position: chunk.Position,
				State: domain.ChunkFailed, Error: err.Error(),
			})
			report.Failed++
			continue
		}

		status := domain.ChunkStatus{ChunkID: chunk.ID, Position: chunk.Position, State: domain.ChunkIngested}
		if err := s.embedImage(ctx, chunk); err != nil {
			logger.Warn("Image chunk %s kept metadata-only: %v", chunk.ID, err)
			status.State = domain.ChunkMetadataOnly
			status.Error = err.Error()
		}
		report.Chunks = append(report.Chunks, status)
	}
}

func (s *IngestionService) embedImage(ctx context.Context, chunk *domain.Chunk) error {
	if s.imageEncoder == nil {
		return fmt.Errorf("no image encoder configured")
	}

	raw, err := s.loadImageBytes(ctx, chunk.ImageURI)
	if err != nil {
		return err
	}

	img, err := decodeRGBA(raw, s.imageWidth, s.imageHeight)
	if err != nil {
		return err
	}

	vectors, err := s.imageEncoder.EncodeBatch(ctx, []driven.Image{img})
	if err != nil {
		return fmt.Errorf("encoding image: %w", err)
	}
	if len(vectors) != 1 {
		return fmt.Errorf("encoder returned %d vectors for one image", len(vectors))
	}

	return s.vectorStore.UpsertEmbedding(ctx, chunk.TenantID, chunk.ID,
		vectors[0], s.imageEncoder.ModelName(), domain.ModalityImage)
}

func (s *IngestionService) loadImageBytes(ctx context.Context, uri string) ([]byte, error) {
	if strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://") {
		if s.fetcher == nil {
			return nil, fmt.Errorf("no fetcher configured for remote uri %s", uri)
		}
		return s.fetcher.Fetch(ctx, uri)
	}

	raw, err := os.ReadFile(uri)
	if err != nil {
		return nil, fmt.Errorf("reading image %s: %w", uri, err)
	}
	return raw, nil
}

// decodeRGBA decodes a PNG or JPEG buffer and scales it to the
// encoder's input size with nearest-neighbour sampling.
func decodeRGBA(raw []byte, width, height int) (driven.Image, error) {
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return driven.Image{}, fmt.Errorf("decoding image: %w", err)
	}

	bounds := src.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, src, bounds.Min, draw.Src)

	if width <= 0 || height <= 0 {
		width, height = bounds.Dx(), bounds.Dy()
	}

	scaled := make([]byte, width*height*4)
	for y := 0; y < height; y++ {
		srcY := bounds.Min.Y + y*bounds.Dy()/height
		for x := 0; x < width; x++ {
			srcX := bounds.Min.X + x*bounds.Dx()/width
			i := rgba.PixOffset(srcX, srcY)
			o := (y*width + x) * 4
			copy(scaled[o:o+4], rgba.Pix[i:i+4])
		}
	}

	return driven.Image{Pixels: scaled, Width: width, Height: height}, nil
}
