package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/clause/internal/core/domain"
)

var queryCmd = &cobra.Command{
	Use:   "query --file <file|pattern> [--file ...] <question>",
	Short: "Answer a question from a set of documents",
	Long: `Load documents into a temporary session and return the passages most
relevant to the question.

The question is reformulated by the configured language model when one is
set up. Each reformulation is searched and results are fused by best score.

Examples:
  clause query --file msa.md "What is the limitation of liability?"
  clause query -f "contracts/**/*.md" --top-k 8 --dynamic "termination for convenience"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringArrayP("file", "f", nil, "document to load (repeatable, globs allowed)")
	queryCmd.Flags().IntP("top-k", "k", 0, "number of results (default from settings)")
	queryCmd.Flags().Bool("dynamic", false, "size the result set by score distribution")
	queryCmd.Flags().Float32("threshold", 0, "minimum similarity score")
	queryCmd.Flags().Bool("json", false, "print the result as JSON")
	_ = queryCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return errors.New("query cannot be empty")
	}

	files, _ := cmd.Flags().GetStringArray("file")
	paths, err := expandPaths(files)
	if err != nil {
		return err
	}

	e, err := requireEngine(cmd)
	if err != nil {
		return err
	}

	opts, err := queryOptions(cmd, e.Settings.Retrieval.Options())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	sessionID := uuid.New().String()
	defer func() {
		_, _ = e.Sessions.Delete(context.WithoutCancel(ctx), sessionID)
	}()

	if err := ingestFiles(ctx, cmd, e, sessionID, paths); err != nil {
		return err
	}

	result, err := e.Retrieval.Retrieve(ctx, sessionID, question, opts)
	if err != nil {
		return fmt.Errorf("retrieval failed: %w", err)
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	printResult(cmd.OutOrStdout(), result)
	return nil
}

// queryOptions applies explicitly set flags over the defaults.
func queryOptions(cmd *cobra.Command, opts domain.RetrievalOptions) (domain.RetrievalOptions, error) {
	flags := cmd.Flags()
	if flags.Changed("top-k") {
		k, _ := flags.GetInt("top-k")
		if k <= 0 {
			return opts, errors.New("--top-k must be positive")
		}
		opts.TopK = k
	}
	if flags.Changed("dynamic") {
		opts.DynamicK, _ = flags.GetBool("dynamic")
	}
	if flags.Changed("threshold") {
		t, _ := flags.GetFloat32("threshold")
		if t < -1 || t > 1 {
			return opts, errors.New("--threshold must be between -1 and 1")
		}
		opts.Threshold = t
	}
	return opts, nil
}

func ingestFiles(ctx context.Context, cmd *cobra.Command, e *Engine, sessionID string, paths []string) error {
	for _, path := range paths {
		raw, err := readDocument(path)
		if err != nil {
			return err
		}
		res, err := e.Ingestion.IngestRaw(ctx, sessionID, raw)
		if err != nil {
			return fmt.Errorf("ingest %s: %w", path, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %s %s\n",
			okStyle("loaded"), path, dimStyle(fmt.Sprintf("(%d chunks)", res.ChunkCount)))
	}
	return nil
}

func printResult(w io.Writer, result *domain.RetrievalResult) {
	if len(result.RewrittenQueries) > 1 {
		fmt.Fprintln(w, headingStyle("Queries:"))
		for _, q := range result.RewrittenQueries {
			fmt.Fprintf(w, "  - %s\n", q)
		}
		fmt.Fprintln(w)
	}

	if len(result.Hits) == 0 {
		fmt.Fprintln(w, "No relevant passages found.")
		return
	}

	fmt.Fprintln(w, headingStyle(fmt.Sprintf("%d passages:", len(result.Hits))))
	for i := range result.Hits {
		hit := &result.Hits[i]
		fmt.Fprintf(w, "\n%d. %s %s\n", i+1, scoreStyle(fmt.Sprintf("[%.3f]", hit.Score)),
			dimStyle(fmt.Sprintf("chunk %d", hit.Position)))
		if hit.MatchedQuery != "" && hit.MatchedQuery != result.Query {
			fmt.Fprintf(w, "   %s\n", dimStyle("matched: "+hit.MatchedQuery))
		}
		fmt.Fprintln(w, indent(hit.Content))
	}

	m := result.Metadata
	fmt.Fprintf(w, "\n%s\n", dimStyle(fmt.Sprintf("%d candidates, rewrite %s, search %s",
		m.CandidateCount, m.RewriteTime.Round(time.Millisecond), m.SearchTime.Round(time.Millisecond))))
	if m.FailedQueries > 0 {
		fmt.Fprintf(w, "%s %d of %d queries failed\n",
			warnStyle("warning:"), m.FailedQueries, len(result.RewrittenQueries))
	}
}
