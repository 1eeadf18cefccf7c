package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/docsmcp/docs-mcp-server/internal/indexing"
)

// LineViolations are the schema failures of one JSONL line
type LineViolations struct {
	Line       int
	Violations []indexing.Violation
}

// ValidationReport summarizes a validate pass
type ValidationReport struct {
	Lines   int
	Valid   int
	Invalid []LineViolations
}

// ValidateAction checks every line of a JSONL file against the record schema
func ValidateAction(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("usage: validate <file.jsonl>")
	}

	_, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	report, err := ValidateStream(f)
	if err != nil {
		return err
	}

	for _, lv := range report.Invalid {
		for _, v := range lv.Violations {
			logger.Error().Int("line", lv.Line).Str("path", v.Path).Msg(v.Message)
		}
	}

	if len(report.Invalid) > 0 {
		return fmt.Errorf("%d of %d lines in %s are invalid", len(report.Invalid), report.Lines, path)
	}

	logger.Info().Int("lines", report.Lines).Msgf("✓ %s is valid", path)
	return nil
}

// ValidateStream validates each non-blank line of r
func ValidateStream(r io.Reader) (*ValidationReport, error) {
	report := &ValidationReport{}

	err := indexing.ScanLines(r, func(line int, data []byte) {
		report.Lines++

		violations, err := indexing.ValidateJSON(data)
		if err != nil {
			violations = []indexing.Violation{{Path: "$", Message: err.Error()}}
		}
		if len(violations) > 0 {
			report.Invalid = append(report.Invalid, LineViolations{Line: line, Violations: violations})
			return
		}
		report.Valid++
	})
	if err != nil {
		return nil, err
	}

	return report, nil
}
