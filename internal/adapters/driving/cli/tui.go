package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/clause/internal/adapters/driving/tui"
	"github.com/custodia-labs/clause/internal/connectors/filesystem"
	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/core/ports/driven"
	"github.com/custodia-labs/clause/internal/logger"
	"github.com/custodia-labs/clause/internal/normalisers"
)

// tuiRunner runs the interactive app. Replaced in tests.
var tuiRunner = func(app *tui.App) error { return app.Run() }

var tuiCmd = &cobra.Command{
	Use:   "tui [--file <file|pattern>]... [--watch <dir>]",
	Short: "Launch the interactive terminal UI",
	Long: `Load documents into a session and open an interactive query view.

With --watch, supported files in the directory are loaded too, and files
added to it while the UI is open join the session. Files already loaded
are not reloaded when they change.

Controls:
  enter    - Ask / open passage
  ↑/k, ↓/j - Navigate passages
  n        - New question
  d        - Toggle dynamic k
  esc      - Back
  ?        - Toggle help
  q        - Quit`,
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().StringArrayP("file", "f", nil, "document to load (repeatable, globs allowed)")
	tuiCmd.Flags().StringP("watch", "w", "", "directory to load and watch for new documents")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			err = fmt.Errorf("tui panic: %v", r)
		}
	}()

	files, _ := cmd.Flags().GetStringArray("file")
	watchDir, _ := cmd.Flags().GetString("watch")
	if len(files) == 0 && watchDir == "" {
		return errors.New("at least one --file or a --watch directory is required")
	}

	var paths []string
	if len(files) > 0 {
		if paths, err = expandPaths(files); err != nil {
			return err
		}
	}

	e, err := requireEngine(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	sessionID := uuid.New().String()
	defer func() {
		_, _ = e.Sessions.Delete(context.WithoutCancel(ctx), sessionID)
	}()

	var dir *filesystem.Connector
	if watchDir != "" {
		dir = filesystem.New(watchDir, filesystem.WithFilter(supportedBy(e.Normalisers)))
		defer func() { _ = dir.Close() }()

		scanned, err := dir.Scan(ctx)
		if err != nil {
			return err
		}
		paths = mergePaths(paths, scanned)
	}

	if err := ingestFiles(ctx, cmd, e, sessionID, paths); err != nil {
		return err
	}

	if dir != nil {
		watchCtx, cancel := context.WithCancel(ctx)
		docs, err := dir.Watch(watchCtx)
		if err != nil {
			cancel()
			return err
		}
		done := ingestWatched(watchCtx, e, sessionID, docs)
		defer func() {
			cancel()
			<-done
		}()
	}

	app, err := tui.NewApp(&tui.Ports{
		Retrieval: e.Retrieval,
		Sessions:  e.Sessions,
		SessionID: sessionID,
		Options:   e.Settings.Retrieval.Options(),
	})
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	app.WithContext(ctx)

	if err := tuiRunner(app); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// ingestWatched adds documents from docs to the session until docs is
// closed. The returned channel is closed when the loop exits.
func ingestWatched(
	ctx context.Context,
	e *Engine,
	sessionID string,
	docs <-chan *domain.RawDocument,
) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for doc := range docs {
			res, err := e.Ingestion.IngestRaw(ctx, sessionID, doc)
			if err != nil {
				logger.Warn("watch: ingest %s: %v", doc.URI, err)
				continue
			}
			logger.Info("watch: loaded %s (%d chunks)", doc.URI, res.ChunkCount)
		}
	}()
	return done
}

// supportedBy accepts paths whose detected type has a normaliser.
func supportedBy(registry driven.NormaliserRegistry) func(string) bool {
	return func(path string) bool {
		_, err := registry.Get(normalisers.DetectMIMEType(path))
		return err == nil
	}
}

// mergePaths appends extra to paths, skipping files already listed under
// another spelling.
func mergePaths(paths, extra []string) []string {
	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		seen[absPath(p)] = true
	}
	for _, p := range extra {
		if abs := absPath(p); !seen[abs] {
			seen[abs] = true
			paths = append(paths, p)
		}
	}
	return paths
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
