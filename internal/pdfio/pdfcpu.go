package pdfio

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFCPU implements Engine on top of github.com/pdfcpu/pdfcpu.
type PDFCPU struct {
	mode int // model.ValidationStrict or model.ValidationRelaxed
}

// NewPDFCPU returns an engine using the given validation mode ("strict" or
// "relaxed"; anything else means relaxed).
func NewPDFCPU(validation string) *PDFCPU {
	// keep pdfcpu from creating a config dir under the user's home
	api.DisableConfigDir()
	mode := model.ValidationRelaxed
	if strings.EqualFold(strings.TrimSpace(validation), "strict") {
		mode = model.ValidationStrict
	}
	return &PDFCPU{mode: mode}
}

// conf builds a fresh configuration per call; pdfcpu writes to it while working
// and scans open documents in parallel.
func (e *PDFCPU) conf() *model.Configuration {
	c := model.NewDefaultConfiguration()
	c.ValidationMode = e.mode
	return c
}

func (e *PDFCPU) Open(data []byte) (Document, error) {
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), e.conf())
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	return &pdfcpuDoc{ctx: ctx}, nil
}

func (e *PDFCPU) Assemble(pages []Page, w io.Writer) (int, error) {
	switch len(pages) {
	case 0:
		return 0, ErrNoPages
	case 1:
		if _, err := w.Write(pages[0]); err != nil {
			return 0, err
		}
		return 1, nil
	}
	rsc := make([]io.ReadSeeker, len(pages))
	for i, p := range pages {
		rsc[i] = bytes.NewReader(p)
	}
	if err := api.MergeRaw(rsc, w, false, e.conf()); err != nil {
		return 0, fmt.Errorf("merge pages: %w", err)
	}
	return len(pages), nil
}

type pdfcpuDoc struct {
	ctx *model.Context
}

func (d *pdfcpuDoc) PageCount() int { return d.ctx.PageCount }

func (d *pdfcpuDoc) Page(i int) (Page, error) {
	if i < 0 || i >= d.ctx.PageCount {
		return nil, fmt.Errorf("%w: %d of %d", ErrPageRange, i, d.ctx.PageCount)
	}
	// pdfcpu numbers pages from 1
	r, err := api.ExtractPage(d.ctx, i+1)
	if err != nil {
		return nil, fmt.Errorf("extract page %d: %w", i+1, err)
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read page %d: %w", i+1, err)
	}
	return Page(b), nil
}
