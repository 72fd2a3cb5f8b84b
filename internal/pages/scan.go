package pages

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/errgroup"

	"github.com/local/pagemerge/internal/filetype"
	"github.com/local/pagemerge/internal/metrics"
	"github.com/local/pagemerge/internal/pdfio"
)

// Scanner builds catalogs from folders.
type Scanner struct {
	engine   pdfio.Engine
	detector *filetype.Detector
	workers  int
}

// NewScanner returns a scanner that parses up to workers files at once
// (workers <= 0 means one per CPU).
func NewScanner(engine pdfio.Engine, workers int) *Scanner {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Scanner{engine: engine, detector: filetype.New(), workers: workers}
}

type parsed struct {
	path  string
	data  []byte
	pages int
	err   error
}

// Scan lists the *.pdf files directly inside folder (any letter case of the
// extension), sorted by name, and returns one descriptor per page. Files that
// cannot be read or parsed are recorded in Catalog.Skipped and do not fail the
// scan. A missing or unreadable folder is a *ScanError of kind NotFound.
func (s *Scanner) Scan(ctx context.Context, folder string) (*Catalog, error) {
	start := time.Now()
	paths, err := listPDFs(folder)
	if err != nil {
		metrics.ObserveScan("not_found", 0)
		return nil, err
	}

	results := make([]parsed, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = s.parse(p)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		metrics.ObserveScan("cancelled", 0)
		return nil, err
	}

	cat := newCatalog(folder)
	for _, r := range results {
		if r.err != nil {
			se := &ScanError{Kind: FileUnreadable, Path: r.path, Err: r.err}
			cat.Skipped = append(cat.Skipped, se)
			metrics.IncSkipped()
			log.Warn().Err(r.err).Str("file", r.path).Msg("skipping unreadable pdf")
			continue
		}
		sum := blake2b.Sum256(r.data)
		src := &Source{Path: r.path, Data: r.data, Digest: hex.EncodeToString(sum[:]), Pages: r.pages}
		cat.Files = append(cat.Files, src)
		for i := 0; i < r.pages; i++ {
			cat.add(newDescriptor(src, i))
		}
	}

	metrics.ObserveScan("ok", cat.Len())
	log.Info().
		Str("folder", folder).
		Int("files", len(cat.Files)).
		Int("skipped", len(cat.Skipped)).
		Int("pages", cat.Len()).
		Dur("took", time.Since(start)).
		Msg("scanned input folder")
	return cat, nil
}

func (s *Scanner) parse(path string) parsed {
	r := parsed{path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		r.err = err
		return r
	}
	if err := s.detector.CheckPDF(path, data); err != nil {
		r.err = err
		return r
	}
	doc, err := s.engine.Open(data)
	if err != nil {
		r.err = err
		return r
	}
	if doc.PageCount() <= 0 {
		r.err = pdfio.ErrNoPages
		return r
	}
	r.data = data
	r.pages = doc.PageCount()
	return r
}

// listPDFs returns the paths of regular *.pdf files in folder, sorted by name.
func listPDFs(folder string) ([]string, error) {
	fi, err := os.Stat(folder)
	if err != nil {
		return nil, &ScanError{Kind: NotFound, Path: folder, Err: err}
	}
	if !fi.IsDir() {
		return nil, &ScanError{Kind: NotFound, Path: folder, Err: errors.New("not a directory")}
	}
	// ReadDir sorts entries by file name
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, &ScanError{Kind: NotFound, Path: folder, Err: fmt.Errorf("list folder: %w", err)}
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !filetype.HasPDFExtension(e.Name()) {
			continue
		}
		p := filepath.Join(folder, e.Name())
		// follow symlinks; skip anything that is not a regular file
		st, err := os.Stat(p)
		if err != nil || !st.Mode().IsRegular() {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}
