package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/duynguyendang/gapagent/pkg/export"
	"github.com/duynguyendang/gapagent/pkg/ingest"
	"github.com/duynguyendang/gapagent/pkg/service"
	"github.com/duynguyendang/gapagent/pkg/session"
	"github.com/duynguyendang/gapagent/pkg/table"
	"github.com/spf13/cobra"
)

type analyzeFlags struct {
	outDir   string
	gapTable bool
	review   bool
	concise  bool
	pageSize string
}

func newAnalyzeCommand(a *app) *cobra.Command {
	var f analyzeFlags

	cmd := &cobra.Command{
		Use:   "analyze <file>...",
		Short: "Generate the gap table and literature review for PDF/DOCX papers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("page-size") {
				f.pageSize = a.cfg.PageSize
			}
			return a.runAnalyze(cmd.Context(), cmd.OutOrStdout(), args, f)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&f.outDir, "out-dir", "o", ".", "directory for the exported documents")
	flags.BoolVar(&f.gapTable, "gap-table", true, "generate the research gap table")
	flags.BoolVar(&f.review, "review", true, "generate the literature review")
	flags.BoolVar(&f.concise, "concise", false, "also condense the gap table")
	flags.StringVar(&f.pageSize, "page-size", "A3", "PDF page size, always landscape")
	return cmd
}

func (a *app) runAnalyze(ctx context.Context, out io.Writer, paths []string, f analyzeFlags) error {
	docs, err := ingest.ReadFiles(paths)
	if err != nil {
		return err
	}
	analysis, err := a.analysisService()
	if err != nil {
		return err
	}

	sess := session.New()
	results, err := analysis.Ingest(ctx, sess, docs)
	printResults(out, results)
	if err != nil {
		return err
	}

	res, err := analysis.Analyze(ctx, sess, service.AnalyzeOptions{GapTable: f.gapTable, LiteratureReview: f.review}, a.cfg.APIKey())
	if err != nil {
		return err
	}
	if !res.Valid {
		return errors.New(res.Message)
	}
	if err := os.MkdirAll(f.outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	if res.GapTable != nil {
		if res.GapTable.Degraded() {
			fmt.Fprintf(out, "⚠️  %s\n", res.GapTable.Message())
		}
		if err := writeTable(out, f, "research_gap", res.GapTable); err != nil {
			return err
		}
		if f.concise && !res.GapTable.Degraded() {
			concise, err := analysis.Condense(ctx, sess, a.cfg.APIKey())
			if err != nil {
				return err
			}
			if err := writeTable(out, f, "concise_gap", concise); err != nil {
				return err
			}
		}
	}

	if f.review {
		if sess.Review == "" {
			fmt.Fprintf(out, "❌ %s\n", res.Review)
			return nil
		}
		doc, err := export.RenderReviewDOCX(sess.Review)
		if err != nil {
			return err
		}
		if err := writeDocument(out, f.outDir, "literature_review", doc); err != nil {
			return err
		}
	}
	return nil
}

func printResults(out io.Writer, results []ingest.Result) {
	for _, r := range results {
		if r.Error != "" {
			fmt.Fprintf(out, "❌ %s: %s\n", r.Name, r.Error)
			continue
		}
		fmt.Fprintf(out, "📄 %s: %d characters\n", r.Name, r.Chars)
	}
}

func writeTable(out io.Writer, f analyzeFlags, base string, t *table.Table) error {
	pdf, err := export.RenderTablePDF(t, export.PDFOptions{PageSize: f.pageSize, Title: export.TableHeading})
	if err != nil {
		return err
	}
	if err := writeDocument(out, f.outDir, base, pdf); err != nil {
		return err
	}
	docx, err := export.RenderTableDOCX(t)
	if err != nil {
		return err
	}
	return writeDocument(out, f.outDir, base, docx)
}

func writeDocument(out io.Writer, dir, base string, doc *export.RenderedDocument) error {
	path := filepath.Join(dir, base+"."+doc.Extension())
	if err := os.WriteFile(path, doc.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(out, "💾 %s\n", path)
	return nil
}
