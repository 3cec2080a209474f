package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/skim-cli/internal/core/domain"
)

var (
	extractType  string
	extractJSON  bool
	extractLimit int
)

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Extract the most salient segments from a document",
	Long: `Runs one extraction pass over a plain text or Markdown file:
segments the document, scores every segment for salience, and selects a
bounded, diverse subset. Each selected segment carries a stable citation
that survives re-extraction as long as its text is unchanged.`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVarP(&extractType, "type", "t", "auto", "content type: auto, narrative, expository")
	extractCmd.Flags().BoolVar(&extractJSON, "json", false, "output results as JSON")
	extractCmd.Flags().IntVarP(&extractLimit, "limit", "n", 0, "limit printed segments (0 = all selected)")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := ensureServices(ctx); err != nil {
		return err
	}
	defer closeServices()

	result, err := extractFile(cmd, args[0])
	if err != nil {
		return err
	}

	if extractJSON {
		return outputExtractJSON(cmd, result)
	}
	return outputExtractText(cmd, result)
}

// extractFile runs the extraction pipeline over one file.
func extractFile(cmd *cobra.Command, path string) (*domain.ExtractionResult, error) {
	ctx := cmd.Context()

	spans, err := spanSource.Spans(ctx, path)
	if err != nil {
		return nil, err
	}

	contentType, err := resolveContentType(ctx, extractType, spans)
	if err != nil {
		return nil, err
	}

	documentID := filepath.Base(path)
	result, err := extractionService.Extract(ctx, documentID, spans, contentType)
	if err != nil {
		return nil, fmt.Errorf("extraction failed: %w", err)
	}
	return result, nil
}

// extractedSegment is the JSON shape of one selected segment.
type extractedSegment struct {
	Citation    string  `json:"citation"`
	ID          string  `json:"id"`
	ContentHash string  `json:"content_hash"`
	Type        string  `json:"type"`
	Salience    float64 `json:"salience"`
	Heading     string  `json:"heading,omitempty"`
	Line        *int    `json:"line,omitempty"`
	Text        string  `json:"text"`
}

// extractOutput is the JSON shape of an extraction pass.
type extractOutput struct {
	PassID      string             `json:"pass_id"`
	DocumentID  string             `json:"document_id"`
	Status      string             `json:"status"`
	ContentType string             `json:"content_type"`
	Segments    int                `json:"segments"`
	Selected    []extractedSegment `json:"selected"`
	Fallback    []string           `json:"fallback_citations"`
}

func buildExtractOutput(result *domain.ExtractionResult, limit int) extractOutput {
	out := extractOutput{
		PassID:      result.PassID,
		DocumentID:  result.DocumentID,
		Status:      string(result.Status),
		ContentType: result.ContentType.String(),
		Segments:    len(result.Segments),
	}

	selected := result.TopBySalience
	if limit > 0 && len(selected) > limit {
		selected = selected[:limit]
	}

	for _, idx := range selected {
		seg, ok := result.SegmentByIndex(idx)
		if !ok {
			continue
		}
		out.Selected = append(out.Selected, extractedSegment{
			Citation:    seg.Citation(),
			ID:          seg.ID,
			ContentHash: seg.ContentHash,
			Type:        seg.Type.String(),
			Salience:    result.Scores.At(idx).Salience,
			Heading:     seg.Heading,
			Line:        seg.LineNumber,
			Text:        seg.Text,
		})
	}

	for _, idx := range result.Fallback {
		if seg, ok := result.SegmentByIndex(idx); ok {
			out.Fallback = append(out.Fallback, seg.Citation())
		}
	}

	return out
}

func outputExtractJSON(cmd *cobra.Command, result *domain.ExtractionResult) error {
	data, err := json.MarshalIndent(buildExtractOutput(result, extractLimit), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputExtractText(cmd *cobra.Command, result *domain.ExtractionResult) error {
	if result.IsEmpty() {
		cmd.Println("Nothing to extract: the document has no text segments.")
		return nil
	}

	out := buildExtractOutput(result, extractLimit)

	cmd.Println(headerStyle.Render(fmt.Sprintf("%s — %d of %d segments selected (%s)",
		out.DocumentID, len(out.Selected), out.Segments, out.ContentType)))
	if result.Status == domain.ExtractionHeuristicOnly {
		cmd.Println(warnStyle.Render("note: no embeddings available, ranking is heuristic-only"))
	}
	cmd.Println()

	for _, seg := range out.Selected {
		line := ""
		if seg.Line != nil {
			line = fmt.Sprintf(" L%d", *seg.Line)
		}
		cmd.Printf("  %s %s %s\n",
			citationStyle.Render(seg.Citation),
			seg.Text,
			scoreStyle.Render(fmt.Sprintf("(%.3f%s)", seg.Salience, line)))
	}

	if len(out.Fallback) > 0 {
		cmd.Println()
		cmd.Println(fallbackStyle.Render(fmt.Sprintf("fallback bucket: %v", out.Fallback)))
	}
	return nil
}
