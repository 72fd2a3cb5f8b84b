// Package session holds the interaction state of one user: the loaded folder,
// its catalog, the selection, the output path and the status line. Methods are
// safe for concurrent use; each call is one step of the interaction loop.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/pagemerge/internal/merge"
	"github.com/local/pagemerge/internal/metrics"
	"github.com/local/pagemerge/internal/pages"
	"github.com/local/pagemerge/internal/selection"
	"github.com/local/pagemerge/internal/store"
)

var (
	ErrNothingToMerge = errors.New("please select pages to merge")
	ErrNoOutput       = errors.New("please choose an output location")
	ErrNoCatalog      = errors.New("no folder loaded")
)

// States reported alongside the status text.
const (
	StateIdle    = "idle"
	StateLoaded  = "loaded"
	StateMerging = "merging"
	StateDone    = "done"
	StateFailed  = "failed"
)

// StatusStore mirrors the status line somewhere other processes can read it.
type StatusStore interface {
	Set(ctx context.Context, key string, st store.Status) error
	Get(ctx context.Context, key string) (store.Status, bool, error)
}

type Dependencies struct {
	Scanner   *pages.Scanner
	Runner    *merge.Runner
	Status    StatusStore
	StatusKey string
}

// Session is the state behind one interaction surface.
type Session struct {
	deps Dependencies
	life context.Context

	mu       sync.Mutex
	catalog  *pages.Catalog
	sel      *selection.List
	output   string
	status   store.Status
	lastJob  string
	location string
}

// New returns a session whose merges live as long as ctx.
func New(ctx context.Context, deps Dependencies) *Session {
	if deps.StatusKey == "" {
		deps.StatusKey = "pagemerge:status"
	}
	s := &Session{deps: deps, life: ctx, sel: selection.New()}
	s.status = store.Status{Text: "Select input folder to start", State: StateIdle}
	return s
}

// Snapshot is a consistent copy of the session state.
type Snapshot struct {
	Folder    string
	Catalog   *pages.Catalog
	Selection []*pages.Descriptor
	Focus     int
	Output    string
	Status    store.Status
	LastJob   string
	Location  string
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Catalog:   s.catalog,
		Selection: s.sel.Items(),
		Focus:     s.sel.Focus(),
		Output:    s.output,
		Status:    s.status,
		LastJob:   s.lastJob,
		Location:  s.location,
	}
	if s.catalog != nil {
		snap.Folder = s.catalog.Folder
	}
	return snap
}

// Status returns the current status line.
func (s *Session) Status() store.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Load scans folder and replaces the catalog. The selection starts over because
// its entries belong to the old catalog.
func (s *Session) Load(ctx context.Context, folder string) (*pages.Catalog, error) {
	cat, err := s.deps.Scanner.Scan(ctx, folder)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.loadStatusLocked(fmt.Sprintf("Error loading PDF files: %v", err), StateFailed)
		return nil, err
	}
	s.catalog = cat
	s.sel = selection.New()
	metrics.SetSelection(0)
	if cat.Len() == 0 {
		s.loadStatusLocked("No PDF files found in selected folder", StateLoaded)
	} else {
		s.loadStatusLocked(fmt.Sprintf("Loaded %d pages from %d PDF files", cat.Len(), len(cat.Files)), StateLoaded)
	}
	return cat, nil
}

// loadStatusLocked reports the outcome of a load unless a merge is in flight,
// in which case the merge text stays until its result arrives.
func (s *Session) loadStatusLocked(text, state string) {
	if s.status.Merging {
		log.Info().Str("outcome", text).Msg("load finished during merge")
		s.setStatusLocked(s.status.Text, StateMerging)
		return
	}
	s.setStatusLocked(text, state)
}

// Add appends the catalog pages at positions to the selection.
func (s *Session) Add(positions []int) (int, error) {
	if len(positions) == 0 {
		return 0, selection.ErrEmptySelection
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.catalog == nil {
		return 0, ErrNoCatalog
	}
	ids, err := s.catalog.IDsAt(positions)
	if err != nil {
		return 0, err
	}
	n, err := s.sel.Add(s.catalog, ids)
	if err != nil {
		return 0, err
	}
	s.selectionChangedLocked()
	return n, nil
}

// Remove drops the selection entries at positions.
func (s *Session) Remove(positions []int) (int, error) {
	if len(positions) == 0 {
		return 0, selection.ErrEmptySelection
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ids, err := s.sel.IDsAt(positions)
	if err != nil {
		return 0, err
	}
	n, err := s.sel.Remove(ids)
	if err != nil {
		return 0, err
	}
	s.selectionChangedLocked()
	return n, nil
}

func (s *Session) MoveUp(position int) (int, error) {
	return s.move(position, (*selection.List).MoveUp)
}

func (s *Session) MoveDown(position int) (int, error) {
	return s.move(position, (*selection.List).MoveDown)
}

// Reposition moves the entry at from so that it ends up at to.
func (s *Session) Reposition(from, to int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids, err := s.sel.IDsAt([]int{from})
	if err != nil {
		return -1, err
	}
	return s.sel.Reposition(ids[0], to)
}

// move resolves s.sel under the lock; a Load may swap the list at any time.
func (s *Session) move(position int, fn func(l *selection.List, id pages.ID) (int, error)) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids, err := s.sel.IDsAt([]int{position})
	if err != nil {
		return -1, err
	}
	return fn(s.sel, ids[0])
}

func (s *Session) SetOutput(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.output = path
}

// CanMerge reports whether the merge trigger should be enabled.
func (s *Session) CanMerge() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.output != "" && s.sel.Len() > 0 && !s.status.Merging
}

// StartMerge hands the current selection to the runner. The selection is left
// as it is whatever the outcome.
func (s *Session) StartMerge() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sel.Len() == 0 {
		return "", ErrNothingToMerge
	}
	if s.output == "" {
		return "", ErrNoOutput
	}
	if s.status.Merging {
		return "", merge.ErrBusy
	}
	id, err := s.deps.Runner.Start(s.life, merge.Job{Pages: s.sel.Items(), Output: s.output})
	if err != nil {
		return "", err
	}
	s.lastJob = id
	s.location = ""
	s.status.Merging = true
	s.setStatusLocked("Creating merged PDF...", StateMerging)
	return id, nil
}

// Run consumes merge results until ctx is done. It is the only place merge
// outcomes touch session state.
func (s *Session) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case res := <-s.deps.Runner.Done():
			s.finish(res)
		}
	}
}

func (s *Session) finish(res merge.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Merging = false
	if res.JobID == s.lastJob {
		s.location = res.Location
	}
	if res.Err != nil {
		s.setStatusLocked(fmt.Sprintf("Error occurred during PDF creation: %v", res.Err), StateFailed)
		return
	}
	if res.PublishErr != nil {
		s.setStatusLocked(fmt.Sprintf("Success! Created PDF with %d pages; upload failed: %v", res.Pages, res.PublishErr), StateDone)
		return
	}
	s.setStatusLocked(fmt.Sprintf("Success! Created PDF with %d pages", res.Pages), StateDone)
}

// Mirrored reads the status back from the mirror store. ok is false when no
// store is configured or nothing has been mirrored under the key yet.
func (s *Session) Mirrored(ctx context.Context) (store.Status, bool, error) {
	if s.deps.Status == nil {
		return store.Status{}, false, nil
	}
	return s.deps.Status.Get(ctx, s.deps.StatusKey)
}

func (s *Session) selectionChangedLocked() {
	metrics.SetSelection(s.sel.Len())
	if s.status.Merging {
		return
	}
	s.setStatusLocked(fmt.Sprintf("Selected %d pages", s.sel.Len()), s.status.State)
}

func (s *Session) setStatusLocked(text, state string) {
	now := time.Now()
	s.status.Text = text
	s.status.State = state
	s.status.Selected = s.sel.Len()
	s.status.Updated = &now
	if s.catalog != nil {
		s.status.Pages = s.catalog.Len()
		s.status.Files = len(s.catalog.Files)
		s.status.Metadata = map[string]interface{}{"folder": s.catalog.Folder, "skipped": len(s.catalog.Skipped)}
	}
	log.Info().Str("state", state).Int("selected", s.status.Selected).Msg(text)

	if s.deps.Status == nil {
		return
	}
	ctx, cancel := context.WithTimeout(s.life, 3*time.Second)
	defer cancel()
	if err := s.deps.Status.Set(ctx, s.deps.StatusKey, s.status); err != nil {
		log.Warn().Err(err).Str("key", s.deps.StatusKey).Msg("status mirror failed")
	}
}
