package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/mcartmell/yard-perl-plugin/internal/indexer"
	"github.com/mcartmell/yard-perl-plugin/internal/storage"
	"github.com/mcartmell/yard-perl-plugin/pkg/types"
)

var (
	headerColor   = color.New(color.FgCyan, color.Bold)
	moduleColor   = color.New(color.FgYellow, color.Bold)
	functionColor = color.New(color.FgGreen)
	dimColor      = color.New(color.Faint)
	errorColor    = color.New(color.FgRed)
)

// fileReport is the serialized form of one parsed file
type fileReport struct {
	File     string             `json:"file" yaml:"file"`
	Entities []types.Record     `json:"entities" yaml:"entities"`
	Errors   []types.ParseError `json:"errors,omitempty" yaml:"errors,omitempty"`
}

func newFileReport(result *types.ParseResult) fileReport {
	return fileReport{
		File:     result.SourceID,
		Entities: result.Records(),
		Errors:   result.Errors,
	}
}

// writeStructured encodes v as json or yaml
func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

// renderParseResult prints the entities of one file. Free-standing comments
// and POD blocks are listed only with all.
func renderParseResult(w io.Writer, result *types.ParseResult, all bool) {
	headerColor.Fprintln(w, result.SourceID)
	for _, e := range result.Entities {
		switch v := e.(type) {
		case *types.Module:
			line := moduleColor.Sprint(v.Show())
			if v.Superclass != "" {
				line += dimColor.Sprintf(" isa %s", v.Superclass)
			}
			fmt.Fprintf(w, "  %s\n", line)
			writeDoc(w, v.Docstring())
		case *types.Function:
			line := functionColor.Sprint(v.Show())
			line += dimColor.Sprintf(" [%s]", v.Visibility())
			if params := formatParams(v.Parameters()); params != "" {
				line += " " + params
			}
			if v.Group != "" {
				line += dimColor.Sprintf(" @group %s", v.Group)
			}
			fmt.Fprintf(w, "  %s\n", line)
			writeDoc(w, v.Docstring())
		default:
			if !all {
				continue
			}
			src := e.Source()
			fmt.Fprintf(w, "  %s\n", dimColor.Sprintf("%s at %s:%d", e.Kind(), src.SourceID, src.Line))
			writeDoc(w, e.Docstring())
		}
	}
	for _, pe := range result.Errors {
		errorColor.Fprintf(w, "  error: %s\n", pe.Message)
	}
}

func formatParams(params []types.Parameter) string {
	if len(params) == 0 {
		return ""
	}
	parts := make([]string, 0, len(params))
	for _, p := range params {
		if p.Default != nil {
			parts = append(parts, p.Expr+" = "+*p.Default)
			continue
		}
		parts = append(parts, p.Expr)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// writeDoc indents a docstring under its entity, dropping blank edges
func writeDoc(w io.Writer, doc string) {
	doc = strings.Trim(doc, "\n")
	if strings.TrimSpace(doc) == "" {
		return
	}
	for _, line := range strings.Split(doc, "\n") {
		fmt.Fprintf(w, "      %s\n", line)
	}
}

// renderRecord prints a stored entity the way parse prints a live one
func renderRecord(w io.Writer, r types.Record) {
	var line string
	switch r.Kind {
	case types.KindModule:
		line = moduleColor.Sprintf("package %s in %s:%d", r.Name, r.SourceID, r.Line)
		if r.Superclass != "" {
			line += dimColor.Sprintf(" isa %s", r.Superclass)
		}
	case types.KindFunction:
		line = functionColor.Sprintf("sub %s in %s:%d", r.Name, r.SourceID, r.Line)
		line += dimColor.Sprintf(" [%s]", r.Visibility)
		if params := formatParams(r.Parameters); params != "" {
			line += " " + params
		}
	default:
		line = dimColor.Sprintf("%s at %s:%d", r.Kind, r.SourceID, r.Line)
	}
	fmt.Fprintf(w, "%s\n", line)
	writeDoc(w, r.Docstring)
}

func renderStats(w io.Writer, stats *indexer.Statistics) {
	fmt.Fprintf(w, "%s %d indexed, %d unchanged, %d failed, %d removed, %d entities in %s\n",
		headerColor.Sprintf("run %.8s:", stats.RunID),
		stats.FilesIndexed, stats.FilesSkipped, stats.FilesFailed, stats.FilesRemoved,
		stats.EntitiesExtracted, stats.Duration.Round(time.Millisecond))
	for _, msg := range stats.ErrorMessages {
		errorColor.Fprintf(w, "  %s\n", msg)
	}
}

func renderStatus(w io.Writer, status *storage.ProjectStatus) {
	p := status.Project
	headerColor.Fprintln(w, p.RootPath)
	fmt.Fprintf(w, "  files:     %d (%d with errors)\n", status.FilesCount, status.FailedFiles)
	fmt.Fprintf(w, "  entities:  %d\n", status.EntitiesCount)
	for _, kind := range []types.EntityKind{types.KindModule, types.KindFunction, types.KindDocBlock, types.KindComment} {
		if n := status.KindCounts[string(kind)]; n > 0 {
			fmt.Fprintf(w, "    %-9s %d\n", kind, n)
		}
	}
	fmt.Fprintf(w, "  index:     %.2f MB, schema %s\n", status.IndexSizeMB, status.Health.SchemaVersion)
	if !p.LastIndexedAt.IsZero() {
		fmt.Fprintf(w, "  last run:  %s at %s\n", p.LastRunID, p.LastIndexedAt.Format("2006-01-02 15:04:05"))
	}
}
