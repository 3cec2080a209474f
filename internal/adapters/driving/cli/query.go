package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/skim-cli/internal/core/domain"
)

var (
	queryType string
	queryJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query [file] [query]",
	Short: "Rank a document's segments against a query",
	Long: `Extracts a document and then fuses lexical match, embedding
similarity and salience into one ranked segment list for the query.
Without a query the ranking is pure salience. A few top-salience
fallback segments are always included so the output covers the document
even when the query is narrow.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVarP(&queryType, "type", "t", "auto", "content type: auto, narrative, expository")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := ensureServices(ctx); err != nil {
		return err
	}
	defer closeServices()

	path := args[0]
	query := ""
	if len(args) > 1 {
		query = args[1]
	}

	spans, err := spanSource.Spans(ctx, path)
	if err != nil {
		return err
	}

	contentType, err := resolveContentType(ctx, queryType, spans)
	if err != nil {
		return err
	}

	result, err := extractionService.Extract(ctx, filepath.Base(path), spans, contentType)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	ranked, err := retrievalService.Retrieve(ctx, result, query)
	if err != nil {
		return fmt.Errorf("retrieval failed: %w", err)
	}

	if queryJSON {
		return outputQueryJSON(cmd, ranked)
	}
	return outputQueryText(cmd, query, ranked)
}

// rankedOutput is the JSON shape of one ranked segment.
type rankedOutput struct {
	Citation     string  `json:"citation"`
	ContentHash  string  `json:"content_hash"`
	Score        float64 `json:"score"`
	FromFallback bool    `json:"from_fallback,omitempty"`
	Heading      string  `json:"heading,omitempty"`
	Text         string  `json:"text"`
}

func outputQueryJSON(cmd *cobra.Command, ranked []domain.RankedSegment) error {
	out := make([]rankedOutput, len(ranked))
	for i, r := range ranked {
		out[i] = rankedOutput{
			Citation:     r.Citation,
			ContentHash:  r.Segment.ContentHash,
			Score:        r.Score,
			FromFallback: r.FromFallback,
			Heading:      r.Segment.Heading,
			Text:         r.Segment.Text,
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputQueryText(cmd *cobra.Command, query string, ranked []domain.RankedSegment) error {
	if len(ranked) == 0 {
		cmd.Println("No segments selected.")
		return nil
	}

	if query == "" {
		cmd.Println(headerStyle.Render(fmt.Sprintf("Top %d segments by salience", len(ranked))))
	} else {
		cmd.Println(headerStyle.Render(fmt.Sprintf("Top %d segments for %q", len(ranked), query)))
	}
	cmd.Println()

	for _, r := range ranked {
		marker := ""
		if r.FromFallback {
			marker = " " + fallbackStyle.Render("[coverage]")
		}
		cmd.Printf("  %s %s %s%s\n",
			citationStyle.Render(r.Citation),
			r.Segment.Text,
			scoreStyle.Render(fmt.Sprintf("(%.4f)", r.Score)),
			marker)
	}
	return nil
}
