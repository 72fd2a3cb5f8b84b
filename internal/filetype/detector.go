package filetype

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
)

// PDFMIME is the MIME type reported for PDF documents.
const PDFMIME = "application/pdf"

// FileTypeInfo contains detected file type information
type FileTypeInfo struct {
	MIMEType    string
	Extension   string
	Supported   bool
	Description string
}

// Detector handles file type detection using magic bytes
type Detector struct{}

// New creates a new file type detector
func New() *Detector {
	return &Detector{}
}

// HasPDFExtension reports whether name ends in .pdf, in any letter case.
func HasPDFExtension(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}

// Detect detects the actual content type using magic bytes, not the filename.
// name is only used for logging.
func (d *Detector) Detect(name string, data []byte) *FileTypeInfo {
	mtype := mimetype.Detect(data)
	info := &FileTypeInfo{
		MIMEType:  mtype.String(),
		Extension: mtype.Extension(),
	}
	log.Debug().Str("mime", info.MIMEType).Str("ext", info.Extension).Str("file", name).Msg("detected file type")
	d.classify(info, mtype)
	return info
}

// classify marks PDFs as supported; everything else is rejected with a description
// that ends up in the scan's skip reason.
func (d *Detector) classify(info *FileTypeInfo, mtype *mimetype.MIME) {
	switch {
	case mtype.Is(PDFMIME):
		info.Supported = true
		info.Description = "PDF document"
	case strings.HasPrefix(info.MIMEType, "text/"):
		info.Description = "plain text, not a PDF"
	case strings.HasPrefix(info.MIMEType, "image/"):
		info.Description = "image file, not a PDF"
	default:
		info.Description = fmt.Sprintf("unsupported file type: %s", info.MIMEType)
	}
}

// CheckPDF returns an error describing the detected type unless data is a PDF.
func (d *Detector) CheckPDF(name string, data []byte) error {
	info := d.Detect(name, data)
	if !info.Supported {
		return fmt.Errorf("%s: %s", filepath.Base(name), info.Description)
	}
	return nil
}
