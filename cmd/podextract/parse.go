package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mcartmell/yard-perl-plugin/internal/tokenizer"
	"github.com/mcartmell/yard-perl-plugin/pkg/types"
)

var parseCmd = &cobra.Command{
	Use:   "parse FILE...",
	Short: "Extract documentation entities from Perl files",
	Long: `Parse runs the extractor over each file and prints the packages, subs,
POD blocks and comments it finds. Files ending in .yaml or .yml are read as
recorded scope traces instead of Perl source.

With --trace the scope events produced by the tokenizer are printed as a
trace file instead; feeding that file back to parse replays the same
extraction.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().StringP("format", "f", "text", "output format: text, json or yaml")
	parseCmd.Flags().Bool("trace", false, "print the recorded scope event trace instead of entities")
	parseCmd.Flags().Bool("all", false, "list free-standing comments and POD blocks in text output")
	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	trace, _ := cmd.Flags().GetBool("trace")
	all, _ := cmd.Flags().GetBool("all")
	out := cmd.OutOrStdout()

	switch format {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("unsupported format %q", format)
	}

	p, err := cfg.NewParser(logger)
	if err != nil {
		return err
	}

	if trace {
		for _, path := range args {
			content, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			rec := tokenizer.NewRecorder(path, nil)
			if err := p.TokenizerFor(path).Tokenize(content, rec); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			data, err := rec.Encode()
			if err != nil {
				return err
			}
			if _, err := out.Write(data); err != nil {
				return err
			}
		}
		return nil
	}

	var results []*types.ParseResult
	failed := 0
	for _, path := range args {
		result, err := p.ParseFile(path)
		if err != nil {
			return err
		}
		if result.HasErrors() {
			failed++
		}
		logger.Debug("parsed file", "file", path, "events", result.Events, "entities", len(result.Entities))
		results = append(results, result)
	}

	if format == "text" {
		for _, r := range results {
			renderParseResult(out, r, all)
		}
	} else {
		reports := make([]fileReport, 0, len(results))
		for _, r := range results {
			reports = append(reports, newFileReport(r))
		}
		if err := writeStructured(out, format, reports); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d file(s) had extraction errors", failed, len(results))
	}
	return nil
}
