package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/core/ports/driven"
	"github.com/custodia-labs/clause/internal/core/ports/driving"
	"github.com/custodia-labs/clause/internal/logger"
)

// Ensure IngestionService implements the interface.
var _ driving.IngestionService = (*IngestionService)(nil)

// embedBatchSize is the number of chunk texts sent per EmbedBatch call.
const embedBatchSize = 16

// sessionCreator resolves or creates sessions for ingestion.
type sessionCreator interface {
	GetOrCreate(ctx context.Context, id string) (*Session, error)
}

// IngestionService turns documents into indexed chunks in a session.
type IngestionService struct {
	sessions    sessionCreator
	chunker     driven.Chunker
	embedder    driven.EmbeddingService
	normalisers driven.NormaliserRegistry
	timeout     time.Duration
	concurrency int
}

// NewIngestionService creates an ingestion service. Provider calls are
// bounded by the retrieval settings' timeout and concurrency.
func NewIngestionService(
	sessions sessionCreator,
	chunker driven.Chunker,
	embedder driven.EmbeddingService,
	normalisers driven.NormaliserRegistry,
	settings domain.RetrievalSettings,
) *IngestionService {
	return &IngestionService{
		sessions:    sessions,
		chunker:     chunker,
		embedder:    embedder,
		normalisers: normalisers,
		timeout:     settings.ProviderTimeout,
		concurrency: max(1, settings.MaxConcurrency),
	}
}

// IngestRaw normalises raw and ingests the parsed result.
func (s *IngestionService) IngestRaw(
	ctx context.Context,
	sessionID string,
	raw *domain.RawDocument,
) (*domain.IngestResult, error) {
	if raw == nil {
		return nil, fmt.Errorf("raw document: %w", domain.ErrInvalidInput)
	}
	if s.normalisers == nil {
		return nil, fmt.Errorf("no normalisers configured: %w", domain.ErrUnsupportedType)
	}
	n, err := s.normalisers.Get(raw.MIMEType)
	if err != nil {
		return nil, err
	}
	doc, err := n.Normalise(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("normalise %s: %w", raw.URI, err)
	}
	return s.Ingest(ctx, sessionID, doc)
}

// Ingest chunks doc, embeds every chunk and appends the result to the
// session. Nothing is written unless every chunk embedded successfully.
func (s *IngestionService) Ingest(
	ctx context.Context,
	sessionID string,
	doc *domain.ParsedDocument,
) (*domain.IngestResult, error) {
	if doc == nil {
		return nil, fmt.Errorf("document: %w", domain.ErrInvalidInput)
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	start := time.Now()

	// 1. RESOLVE SESSION
	session, err := s.sessions.GetOrCreate(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}

	logger.Section("Ingestion")
	logger.Debug("session=%s document=%s paragraphs=%d tables=%d",
		sessionID, doc.ID, len(doc.Paragraphs), len(doc.Tables))

	// 2. CHUNK
	chunks, err := s.chunker.Chunk(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("chunk: %w", err)
	}

	// 3. EMBED
	vectors, err := s.embedChunks(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	model := s.embedder.ModelName()
	for i := range chunks {
		chunks[i].EmbeddingModel = model
	}

	// 4. INDEX AND STORE
	first, err := session.appendChunks(ctx, chunks, vectors)
	if err != nil {
		return nil, err
	}

	// 5. RECORD DOCUMENT
	session.recordDocument(doc.ID, documentMetadata(doc, len(chunks)))

	result := &domain.IngestResult{
		SessionID:     sessionID,
		DocumentID:    doc.ID,
		ChunkCount:    len(chunks),
		FirstPosition: first,
		TotalChunks:   session.Len(),
		Duration:      time.Since(start),
	}
	logger.Info("Ingested %d chunks into session %s in %s",
		result.ChunkCount, sessionID, result.Duration.Round(time.Millisecond))
	return result, nil
}

// embedChunks embeds chunk contents in fixed-size batches with bounded
// concurrency. The first failure cancels the remaining batches.
func (s *IngestionService) embedChunks(ctx context.Context, chunks []domain.Chunk) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))
	if len(chunks) == 0 {
		return vectors, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := min(start+embedBatchSize, len(chunks))
		g.Go(func() error {
			texts := make([]string, 0, end-start)
			for _, c := range chunks[start:end] {
				texts = append(texts, c.Content)
			}

			bctx, cancel := s.withTimeout(gctx)
			defer cancel()
			batch, err := s.embedder.EmbedBatch(bctx, texts)
			if err != nil {
				return err
			}
			if len(batch) != len(texts) {
				return fmt.Errorf("got %d embeddings for %d texts: %w",
					len(batch), len(texts), domain.ErrEmbeddingUnavailable)
			}
			copy(vectors[start:end], batch)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

func (s *IngestionService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func documentMetadata(doc *domain.ParsedDocument, chunkCount int) map[string]any {
	meta := make(map[string]any, len(doc.Metadata)+5)
	for k, v := range doc.Metadata {
		meta[k] = v
	}
	meta["title"] = doc.Title
	meta["uri"] = doc.URI
	meta["paragraphs"] = len(doc.Paragraphs)
	meta["tables"] = len(doc.Tables)
	meta["chunks"] = chunkCount
	return meta
}
