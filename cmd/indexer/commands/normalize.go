package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/phuslu/log"
	"github.com/urfave/cli/v3"

	"github.com/docsmcp/docs-mcp-server/internal/indexing"
)

// NormalizeStats summarizes one normalize pass
type NormalizeStats struct {
	Pages   int
	Written int
	Skipped []indexing.LineError
}

// NormalizeAction converts scraped pages into DocumentRecord JSONL
func NormalizeAction(ctx context.Context, cmd *cli.Command) error {
	in := cmd.Args().Get(0)
	out := cmd.Args().Get(1)
	if in == "" || out == "" {
		return fmt.Errorf("usage: normalize <raw.jsonl> <out.jsonl>")
	}

	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	module := cmd.String("module")
	logger.Info().Str("input", in).Str("output", out).Str("module", module).Msg("normalizing pages")

	stats, err := NormalizeFile(in, out, module, normalizeOptions(cfg), logger)
	if err != nil {
		return err
	}

	logger.Info().
		Int("pages", stats.Pages).
		Int("written", stats.Written).
		Int("skipped", len(stats.Skipped)).
		Msgf("✓ Wrote %s", out)
	return nil
}

// NormalizeFile reads raw pages from in and writes normalized records to out.
// module, when set, is assigned to every record.
func NormalizeFile(in, out, module string, opts indexing.NormalizeOptions, logger *log.Logger) (*NormalizeStats, error) {
	src, err := os.Open(in)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", in, err)
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	dst, err := os.Create(out)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", out, err)
	}

	stats, err := normalizeStream(src, dst, module, opts, logger)
	if closeErr := dst.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to close %s: %w", out, closeErr)
	}
	return stats, err
}

func normalizeStream(r io.Reader, w io.Writer, module string, opts indexing.NormalizeOptions, logger *log.Logger) (*NormalizeStats, error) {
	pages, lineErrs, err := indexing.ReadRawPages(r)
	if err != nil {
		return nil, err
	}
	for _, le := range lineErrs {
		logger.Warn().Int("line", le.Line).Err(le.Err).Msg("skipping undecodable page")
	}

	records := make([]indexing.DocumentRecord, 0, len(pages))
	for _, page := range pages {
		records = append(records, indexing.Normalize(page, "", module, opts))
	}

	if err := indexing.WriteRecords(w, records); err != nil {
		return nil, err
	}

	return &NormalizeStats{
		Pages:   len(pages) + len(lineErrs),
		Written: len(records),
		Skipped: lineErrs,
	}, nil
}
