package testrunner

import (
	"encoding/json"
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/fresnel-build/fresnel/pkg/config"
)

// Coverage output file names, one per file-producing reporter.
const (
	coverageJSONFile    = "coverage.json"
	coverageSummaryFile = "coverage-summary.json"
	coverageLCOVFile    = "lcov.info"
	coverageHTMLFile    = "coverage.html"
)

// EmitCoverage writes the summary through every reporter in order. The
// text reporter writes to w; file-producing reporters write under dir,
// creating it if needed. The reporter list comes validated and non-empty
// from the resolver when coverage is enabled.
func EmitCoverage(w io.Writer, dir string, reporters []config.Reporter, sum *CoverageSummary) error {
	for _, r := range reporters {
		var err error
		switch r {
		case config.ReporterText:
			err = emitText(w, sum)
		case config.ReporterJSON:
			err = emitFile(dir, coverageJSONFile, func(f io.Writer) error {
				return emitJSON(f, sum)
			})
		case config.ReporterJSONSummary:
			err = emitFile(dir, coverageSummaryFile, func(f io.Writer) error {
				return emitJSONSummary(f, sum)
			})
		case config.ReporterLCOV:
			err = emitFile(dir, coverageLCOVFile, func(f io.Writer) error {
				return emitLCOV(f, sum)
			})
		case config.ReporterHTML:
			err = emitFile(dir, coverageHTMLFile, func(f io.Writer) error {
				return emitHTML(f, sum)
			})
		default:
			err = fmt.Errorf("unknown coverage reporter %q", r)
		}
		if err != nil {
			return fmt.Errorf("coverage reporter %s: %w", r, err)
		}
	}
	return nil
}

func emitFile(dir, name string, write func(io.Writer) error) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func emitText(w io.Writer, sum *CoverageSummary) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "File\tStmts\tCovered\t%")
	for _, fc := range sum.Files {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.2f\n", fc.Path, fc.Statements, fc.Covered, fc.Ratio*100)
	}
	fmt.Fprintf(tw, "total\t%d\t%d\t%.2f\n", sum.Statements, sum.Covered, sum.Ratio*100)
	return tw.Flush()
}

func emitJSON(w io.Writer, sum *CoverageSummary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(sum)
}

func emitJSONSummary(w io.Writer, sum *CoverageSummary) error {
	summary := struct {
		Total FileCoverage `json:"total"`
		Files int          `json:"files"`
	}{
		Total: FileCoverage{
			Path:       "total",
			Statements: sum.Statements,
			Covered:    sum.Covered,
			Ratio:      sum.Ratio,
		},
		Files: len(sum.Files),
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}

// emitLCOV writes the line-oriented lcov tracefile format. Statement
// counters map onto the LF/LH line summary fields.
func emitLCOV(w io.Writer, sum *CoverageSummary) error {
	var b strings.Builder
	for _, fc := range sum.Files {
		fmt.Fprintf(&b, "TN:\nSF:%s\nLF:%d\nLH:%d\nend_of_record\n", fc.Path, fc.Statements, fc.Covered)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func emitHTML(w io.Writer, sum *CoverageSummary) error {
	var b strings.Builder
	b.WriteString("<!doctype html>\n<html><head><title>Coverage</title></head><body>\n")
	b.WriteString("<h1>Coverage</h1>\n<table border=\"1\">\n")
	b.WriteString("<tr><th>File</th><th>Statements</th><th>Covered</th><th>%</th></tr>\n")
	for _, fc := range sum.Files {
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%d</td><td>%d</td><td>%.2f</td></tr>\n",
			html.EscapeString(fc.Path), fc.Statements, fc.Covered, fc.Ratio*100)
	}
	fmt.Fprintf(&b, "<tr><td>total</td><td>%d</td><td>%d</td><td>%.2f</td></tr>\n",
		sum.Statements, sum.Covered, sum.Ratio*100)
	b.WriteString("</table>\n</body></html>\n")
	_, err := io.WriteString(w, b.String())
	return err
}
