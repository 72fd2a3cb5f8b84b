package filetype

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/local/pagemerge/internal/pdftest"
)

func TestHasPDFExtension(t *testing.T) {
	for name, want := range map[string]bool{
		"a.pdf":     true,
		"b.PDF":     true,
		"c.Pdf":     true,
		"d.pdf.txt": false,
		"pdf":       false,
		"notes.txt": false,
		"dir/e.pdf": true,
	} {
		assert.Equal(t, want, HasPDFExtension(name), name)
	}
}

func TestCheckPDF(t *testing.T) {
	d := New()
	assert.NoError(t, d.CheckPDF("ok.pdf", pdftest.Build(t, 1, 1)))

	err := d.CheckPDF("notes.pdf", []byte("just some text\n"))
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "notes.pdf")
		assert.Contains(t, err.Error(), "not a PDF")
	}

	info := d.Detect("blob.pdf", []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'})
	assert.False(t, info.Supported)
	assert.Equal(t, "image/png", info.MIMEType)
}
