package chunkers

import (
	"context"
	"errors"
	"testing"

	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/core/ports/driven"
)

// registryMockChunker is a simple mock for testing registry functionality.
type registryMockChunker struct {
	name string
}

func (m *registryMockChunker) Name() string { return m.name }
func (m *registryMockChunker) Chunk(_ context.Context, _ *domain.ParsedDocument) ([]domain.Chunk, error) {
	return nil, nil
}

// mockEmbeddingService satisfies the semantic chunker's dependency.
type mockEmbeddingService struct{}

func (m *mockEmbeddingService) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0}, nil
}
func (m *mockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, 0}
	}
	return out, nil
}
func (m *mockEmbeddingService) Dimensions() int              { return 2 }
func (m *mockEmbeddingService) ModelName() string            { return "mock" }
func (m *mockEmbeddingService) Ping(_ context.Context) error { return nil }
func (m *mockEmbeddingService) Close() error                 { return nil }

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry returned nil")
	}
	if len(r.builders) != 0 {
		t.Errorf("expected empty builders, got %d", len(r.builders))
	}
}

func TestRegistry_Build_Success(t *testing.T) {
	r := NewRegistry()
	r.Register("test", func(s domain.ChunkerSettings, _ driven.EmbeddingService) (driven.Chunker, error) {
		return &registryMockChunker{name: string(s.Strategy)}, nil
	})

	c, err := r.Build("test", domain.ChunkerSettings{Strategy: "custom"}, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if c.Name() != "custom" {
		t.Errorf("expected name 'custom', got %q", c.Name())
	}
}

func TestRegistry_Build_UnknownChunker(t *testing.T) {
	r := NewRegistry()

	_, err := r.Build("unknown", domain.ChunkerSettings{}, nil)
	if !errors.Is(err, domain.ErrUnsupportedType) {
		t.Errorf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestRegistry_HasAndNames(t *testing.T) {
	r := NewRegistry()
	if r.Has("beta") {
		t.Error("expected Has to return false for unregistered chunker")
	}

	builder := func(_ domain.ChunkerSettings, _ driven.EmbeddingService) (driven.Chunker, error) {
		return &registryMockChunker{}, nil
	}
	r.Register("beta", builder)
	r.Register("alpha", builder)

	if !r.Has("beta") {
		t.Error("expected Has to return true for registered chunker")
	}
	names := r.Names()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "beta" {
		t.Errorf("expected [alpha beta], got %v", names)
	}
}

func TestRegisterDefaults(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)

	for _, name := range []string{"semantic", "fixed"} {
		if !r.Has(name) {
			t.Errorf("expected %q to be registered after RegisterDefaults", name)
		}
	}
}

func TestNewDefault(t *testing.T) {
	settings := domain.DefaultAppSettings().Chunker

	c, err := NewDefault(settings, &mockEmbeddingService{})
	if err != nil {
		t.Fatalf("NewDefault failed: %v", err)
	}
	if c.Name() != "semantic" {
		t.Errorf("expected semantic chunker, got %q", c.Name())
	}

	settings.Strategy = domain.ChunkerFixed
	c, err = NewDefault(settings, nil)
	if err != nil {
		t.Fatalf("NewDefault fixed failed: %v", err)
	}
	if c.Name() != "fixed" {
		t.Errorf("expected fixed chunker, got %q", c.Name())
	}
}

func TestNewDefault_ConfigErrors(t *testing.T) {
	_, err := NewDefault(domain.ChunkerSettings{Strategy: domain.ChunkerSemantic}, nil)
	if !errors.Is(err, domain.ErrInvalidConfig) {
		t.Errorf("semantic without embedder: expected ErrInvalidConfig, got %v", err)
	}

	_, err = NewDefault(domain.ChunkerSettings{Strategy: domain.ChunkerFixed, ChunkSize: 100, ChunkOverlap: 100}, nil)
	if !errors.Is(err, domain.ErrInvalidConfig) {
		t.Errorf("fixed with overlap == size: expected ErrInvalidConfig, got %v", err)
	}

	_, err = NewDefault(domain.ChunkerSettings{Strategy: "sentences"}, nil)
	if !errors.Is(err, domain.ErrUnsupportedType) {
		t.Errorf("unknown strategy: expected ErrUnsupportedType, got %v", err)
	}
}
