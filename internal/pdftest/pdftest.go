// Package pdftest builds small PDF fixtures whose page widths encode which file
// and page they came from, so tests can check page order in merged output.
package pdftest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/jung-kurt/gofpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PageHeight is the height in points of every fixture page.
const PageHeight = 1000.0

// Width returns the fixture width of page i (zero-based) of the document tagged tag.
func Width(tag, i int) float64 {
	return float64(100 + tag*100 + i*10)
}

// Build returns a PDF with n pages; page i is Width(tag, i) points wide.
func Build(t testing.TB, tag, n int) []byte {
	t.Helper()
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetFont("Helvetica", "", 12)
	for i := 0; i < n; i++ {
		pdf.AddPageFormat("P", gofpdf.SizeType{Wd: Width(tag, i), Ht: PageHeight})
		pdf.Text(20, 40, fmt.Sprintf("doc %d page %d", tag, i+1))
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		t.Fatalf("build fixture pdf: %v", err)
	}
	return buf.Bytes()
}

// Write stores Build(tag, n) as dir/name and returns its path.
func Write(t testing.TB, dir, name string, tag, n int) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, Build(t, tag, n), 0o644); err != nil {
		t.Fatalf("write fixture %s: %v", name, err)
	}
	return p
}

// WriteRaw stores arbitrary bytes as dir/name, for corrupt fixtures.
func WriteRaw(t testing.TB, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatalf("write fixture %s: %v", name, err)
	}
	return p
}

// Widths parses data and returns the width of each page in order.
func Widths(t testing.TB, data []byte) []float64 {
	t.Helper()
	api.DisableConfigDir()
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		t.Fatalf("read pdf: %v", err)
	}
	dims, err := ctx.PageDims()
	if err != nil {
		t.Fatalf("page dims: %v", err)
	}
	out := make([]float64, len(dims))
	for i, d := range dims {
		out[i] = d.Width
	}
	return out
}

// WidthsFile is Widths for a file on disk.
func WidthsFile(t testing.TB, path string) []float64 {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return Widths(t, data)
}
