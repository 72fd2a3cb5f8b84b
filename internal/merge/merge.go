// Package merge writes a selection of pages into one new PDF.
package merge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/local/pagemerge/internal/pages"
	"github.com/local/pagemerge/internal/pdfio"
)

// Progress is called after each page has been extracted.
type Progress func(done, total int)

// Executor performs merges with a PDF engine.
type Executor struct {
	engine pdfio.Engine
}

func NewExecutor(engine pdfio.Engine) *Executor {
	return &Executor{engine: engine}
}

// Merge writes the pages of selection, in order, to outputPath and returns the
// number of pages written. Every page is re-parsed from its source bytes, so
// the catalog it came from may already be gone. The document is written to a
// temporary file next to outputPath and renamed over it only once complete;
// on failure outputPath is left as it was.
func (e *Executor) Merge(ctx context.Context, selection []*pages.Descriptor, outputPath string, progress Progress) (int, error) {
	extracted := make([]pdfio.Page, 0, len(selection))
	for i, d := range selection {
		if err := ctx.Err(); err != nil {
			return 0, &MergeError{Kind: Cancelled, Output: outputPath, Err: err}
		}
		p, err := e.extract(d)
		if err != nil {
			return 0, &MergeError{Kind: ReadFailure, Page: d.Label, Output: outputPath, Err: err}
		}
		extracted = append(extracted, p)
		if progress != nil {
			progress(i+1, len(selection))
		}
	}

	n, err := e.write(extracted, outputPath)
	if err != nil {
		return 0, &MergeError{Kind: WriteFailure, Output: outputPath, Err: err}
	}
	log.Info().Str("output", outputPath).Int("pages", n).Msg("merged pdf written")
	return n, nil
}

func (e *Executor) extract(d *pages.Descriptor) (pdfio.Page, error) {
	doc, err := e.engine.Open(d.Source.Data)
	if err != nil {
		return nil, err
	}
	return doc.Page(d.PageIndex)
}

func (e *Executor) write(extracted []pdfio.Page, outputPath string) (int, error) {
	dir := filepath.Dir(outputPath)
	tmp, err := os.CreateTemp(dir, ".pagemerge-*.pdf")
	if err != nil {
		return 0, err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	n, err := e.engine.Assemble(extracted, tmp)
	if err != nil {
		_ = tmp.Close()
		return 0, err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}
	// CreateTemp uses 0600
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return 0, err
	}
	if err := os.Rename(tmpName, outputPath); err != nil {
		return 0, fmt.Errorf("replace output: %w", err)
	}
	committed = true
	return n, nil
}
