package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/clause/internal/core/domain"
)

const testSettle = 20 * time.Millisecond

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func receive(t *testing.T, ch <-chan *domain.RawDocument) *domain.RawDocument {
	t.Helper()
	select {
	case doc, ok := <-ch:
		require.True(t, ok, "channel closed before a document arrived")
		return doc
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for document")
		return nil
	}
}

func TestNew(t *testing.T) {
	c := New("/contracts")

	assert.Equal(t, "/contracts", c.Root())
	assert.Equal(t, DefaultSettle, c.settle)
}

func TestWithSettle_IgnoresNonPositive(t *testing.T) {
	c := New("/contracts", WithSettle(0))

	assert.Equal(t, DefaultSettle, c.settle)
}

func TestConnector_Scan(t *testing.T) {
	t.Run("lists visible files recursively", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "msa.md"), "# MSA")
		writeFile(t, filepath.Join(dir, "schedules", "sow.txt"), "Scope")
		writeFile(t, filepath.Join(dir, ".draft.md"), "hidden")
		writeFile(t, filepath.Join(dir, ".git", "HEAD"), "ref")

		paths, err := New(dir).Scan(context.Background())

		require.NoError(t, err)
		assert.ElementsMatch(t, []string{
			filepath.Join(dir, "msa.md"),
			filepath.Join(dir, "schedules", "sow.txt"),
		}, paths)
	})

	t.Run("applies the filter", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "msa.md"), "# MSA")
		writeFile(t, filepath.Join(dir, "logo.png"), "png")

		c := New(dir, WithFilter(func(path string) bool {
			return strings.HasSuffix(path, ".md")
		}))
		paths, err := c.Scan(context.Background())

		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(dir, "msa.md")}, paths)
	})

	t.Run("reports each file once", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "msa.md"), "# MSA")
		c := New(dir)

		first, err := c.Scan(context.Background())
		require.NoError(t, err)
		second, err := c.Scan(context.Background())
		require.NoError(t, err)

		assert.Len(t, first, 1)
		assert.Empty(t, second)
	})

	t.Run("missing root", func(t *testing.T) {
		_, err := New("/non/existent/path").Scan(context.Background())

		assert.ErrorContains(t, err, "root path error")
	})

	t.Run("root is a file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "msa.md")
		writeFile(t, path, "# MSA")

		_, err := New(path).Scan(context.Background())

		assert.ErrorContains(t, err, "not a directory")
	})
}

func TestConnector_Watch(t *testing.T) {
	t.Run("emits new files", func(t *testing.T) {
		dir := t.TempDir()
		c := New(dir, WithSettle(testSettle))
		defer c.Close()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		ch, err := c.Watch(ctx)
		require.NoError(t, err)

		writeFile(t, filepath.Join(dir, "amendment.md"), "# Amendment No. 1")

		doc := receive(t, ch)
		assert.True(t, strings.HasSuffix(doc.URI, "amendment.md"))
		assert.Equal(t, "text/markdown", doc.MIMEType)
		assert.Equal(t, "# Amendment No. 1", string(doc.Content))
		assert.Equal(t, "amendment.md", doc.Metadata[domain.MetaSource])
	})

	t.Run("emits files in new subdirectories", func(t *testing.T) {
		dir := t.TempDir()
		c := New(dir, WithSettle(testSettle))
		defer c.Close()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		ch, err := c.Watch(ctx)
		require.NoError(t, err)

		writeFile(t, filepath.Join(dir, "exhibits", "exhibit-a.txt"), "Pricing")

		doc := receive(t, ch)
		assert.True(t, strings.HasSuffix(doc.URI, "exhibit-a.txt"))
	})

	t.Run("ignores files already scanned", func(t *testing.T) {
		dir := t.TempDir()
		existing := filepath.Join(dir, "msa.md")
		writeFile(t, existing, "# MSA")
		c := New(dir, WithSettle(testSettle))
		defer c.Close()
		_, err := c.Scan(context.Background())
		require.NoError(t, err)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		ch, err := c.Watch(ctx)
		require.NoError(t, err)

		writeFile(t, existing, "# MSA (revised)")
		writeFile(t, filepath.Join(dir, "nda.md"), "# NDA")

		doc := receive(t, ch)
		assert.True(t, strings.HasSuffix(doc.URI, "nda.md"))
	})

	t.Run("ignores hidden files", func(t *testing.T) {
		dir := t.TempDir()
		c := New(dir, WithSettle(testSettle))
		defer c.Close()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		ch, err := c.Watch(ctx)
		require.NoError(t, err)

		writeFile(t, filepath.Join(dir, ".msa.md.swp"), "swap")
		writeFile(t, filepath.Join(dir, "msa.md"), "# MSA")

		doc := receive(t, ch)
		assert.True(t, strings.HasSuffix(doc.URI, "msa.md"))
	})

	t.Run("closes channel when context is cancelled", func(t *testing.T) {
		c := New(t.TempDir(), WithSettle(testSettle))
		defer c.Close()
		ctx, cancel := context.WithCancel(context.Background())

		ch, err := c.Watch(ctx)
		require.NoError(t, err)
		cancel()

		select {
		case _, ok := <-ch:
			assert.False(t, ok)
		case <-time.After(time.Second):
			t.Fatal("channel did not close after context cancellation")
		}
	})

	t.Run("closes channel when connector is closed", func(t *testing.T) {
		c := New(t.TempDir(), WithSettle(testSettle))

		ch, err := c.Watch(context.Background())
		require.NoError(t, err)
		require.NoError(t, c.Close())

		select {
		case _, ok := <-ch:
			assert.False(t, ok)
		case <-time.After(time.Second):
			t.Fatal("channel did not close after Close")
		}
	})

	t.Run("missing root", func(t *testing.T) {
		ch, err := New("/non/existent/path").Watch(context.Background())

		assert.ErrorContains(t, err, "root path error")
		assert.Nil(t, ch)
	})

	t.Run("closed connector", func(t *testing.T) {
		c := New(t.TempDir())
		require.NoError(t, c.Close())

		ch, err := c.Watch(context.Background())

		assert.ErrorIs(t, err, ErrClosed)
		assert.Nil(t, ch)
	})
}

func TestConnector_CloseTwice(t *testing.T) {
	c := New(t.TempDir())

	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}

func TestReadDocument(t *testing.T) {
	t.Run("reads content and metadata", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "terms.html")
		writeFile(t, path, "<p>Terms</p>")

		doc, err := ReadDocument(path)

		require.NoError(t, err)
		assert.True(t, filepath.IsAbs(doc.URI))
		assert.Equal(t, "text/html", doc.MIMEType)
		assert.Equal(t, "terms.html", doc.Metadata[domain.MetaSource])
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := ReadDocument(filepath.Join(t.TempDir(), "missing.md"))

		assert.ErrorContains(t, err, "reading")
	})
}

func TestResolvePath(t *testing.T) {
	tests := []struct {
		name string
		uri  string
		want string
	}{
		{"file URI", "file:///contracts/msa.md", "/contracts/msa.md"},
		{"file URI with spaces", "file:///my contracts/msa.md", "/my contracts/msa.md"},
		{"bare path", "/contracts/msa.md", "/contracts/msa.md"},
		{"relative path", "contracts/*.md", "contracts/*.md"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolvePath(tt.uri))
		})
	}
}
