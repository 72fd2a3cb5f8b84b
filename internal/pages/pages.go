// Package pages discovers the pages of every PDF in a folder and describes each
// one with enough information to pull it back out at merge time.
package pages

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
)

// ID identifies a descriptor. IDs increase monotonically across all scans in the
// process, so an ID from a discarded catalog never matches a page of a new one.
type ID uint64

var lastID atomic.Uint64

func nextID() ID { return ID(lastID.Add(1)) }

// Source is one scanned PDF file. Every descriptor of the file shares the same
// Source, and Data is never modified after the scan.
type Source struct {
	Path   string
	Data   []byte
	Digest string // blake2b-256 of Data, hex
	Pages  int
}

// Stem is the file name without its extension.
func (s *Source) Stem() string {
	base := filepath.Base(s.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Key is the identity used for duplicate suppression: one page of one file.
type Key struct {
	Path      string
	PageIndex int
}

// Descriptor is one page of one source PDF.
type Descriptor struct {
	ID        ID
	Source    *Source
	PageIndex int
	Label     string
}

func newDescriptor(src *Source, pageIndex int) *Descriptor {
	return &Descriptor{
		ID:        nextID(),
		Source:    src,
		PageIndex: pageIndex,
		Label:     fmt.Sprintf("%s - Page %d", src.Stem(), pageIndex+1),
	}
}

// PageNumber is the 1-based page number shown to users.
func (d *Descriptor) PageNumber() int { return d.PageIndex + 1 }

func (d *Descriptor) Key() Key { return Key{Path: d.Source.Path, PageIndex: d.PageIndex} }

// ErrPosition is returned when a list position does not exist.
var ErrPosition = errors.New("pages: position out of range")

// Catalog is the ordered set of pages found in one folder: file name order, then
// page order. It is not modified after Scan returns.
type Catalog struct {
	Folder  string
	Pages   []*Descriptor
	Files   []*Source
	Skipped []*ScanError

	byID map[ID]int
}

func newCatalog(folder string) *Catalog {
	return &Catalog{Folder: folder, byID: map[ID]int{}}
}

func (c *Catalog) add(d *Descriptor) {
	c.byID[d.ID] = len(c.Pages)
	c.Pages = append(c.Pages, d)
}

// Len returns the number of pages; a nil catalog is empty.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Pages)
}

// ByID looks a descriptor up by id.
func (c *Catalog) ByID(id ID) (*Descriptor, bool) {
	if c == nil {
		return nil, false
	}
	i, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	return c.Pages[i], true
}

// Contains reports whether id belongs to this catalog.
func (c *Catalog) Contains(id ID) bool {
	_, ok := c.ByID(id)
	return ok
}

// IDsAt translates zero-based catalog positions into ids, in the order given.
func (c *Catalog) IDsAt(positions []int) ([]ID, error) {
	ids := make([]ID, 0, len(positions))
	for _, p := range positions {
		if p < 0 || p >= c.Len() {
			return nil, fmt.Errorf("%w: %d (catalog has %d pages)", ErrPosition, p, c.Len())
		}
		ids = append(ids, c.Pages[p].ID)
	}
	return ids, nil
}
