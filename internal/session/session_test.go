package session

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/local/pagemerge/internal/merge"
	"github.com/local/pagemerge/internal/pages"
	"github.com/local/pagemerge/internal/pdfio"
	"github.com/local/pagemerge/internal/pdftest"
	"github.com/local/pagemerge/internal/selection"
	"github.com/local/pagemerge/internal/store"
)

func newSession(t *testing.T) (*Session, *store.Memory) {
	t.Helper()
	return newSessionWith(t, pdfio.NewPDFCPU("relaxed"), nil)
}

func newSessionWith(t *testing.T, eng pdfio.Engine, pub merge.Publisher) (*Session, *store.Memory) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	mem := store.NewMemory()
	s := New(ctx, Dependencies{
		Scanner: pages.NewScanner(eng, 2),
		Runner:  merge.NewRunner(merge.NewExecutor(eng), pub),
		Status:  mem,
	})
	go s.Run(ctx)
	return s, mem
}

type failingPublisher struct{}

func (failingPublisher) Publish(ctx context.Context, path string) (string, error) {
	return "", errors.New("bucket unreachable")
}

// gatedEngine holds every Assemble until release is closed.
type gatedEngine struct {
	pdfio.Engine
	release chan struct{}
}

func (g *gatedEngine) Assemble(p []pdfio.Page, w io.Writer) (int, error) {
	<-g.release
	return g.Engine.Assemble(p, w)
}

func newGatedEngine(t *testing.T) (*gatedEngine, func()) {
	g := &gatedEngine{Engine: pdfio.NewPDFCPU("relaxed"), release: make(chan struct{})}
	var once sync.Once
	open := func() { once.Do(func() { close(g.release) }) }
	t.Cleanup(open)
	return g, open
}

// folderAB holds a.pdf (3 pages, tag 1) and b.pdf (2 pages, tag 2).
func folderAB(t *testing.T) string {
	dir := t.TempDir()
	pdftest.Write(t, dir, "a.pdf", 1, 3)
	pdftest.Write(t, dir, "b.pdf", 2, 2)
	return dir
}

func labels(ds []*pages.Descriptor) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.Label
	}
	return out
}

func waitState(t *testing.T, s *Session, state string) store.Status {
	t.Helper()
	require.Eventually(t, func() bool { return s.Status().State == state }, 10*time.Second, 10*time.Millisecond)
	return s.Status()
}

func TestLoadReportsCounts(t *testing.T) {
	s, mem := newSession(t)
	assert.Equal(t, "Select input folder to start", s.Status().Text)

	cat, err := s.Load(context.Background(), folderAB(t))
	require.NoError(t, err)
	assert.Equal(t, 5, cat.Len())
	assert.Equal(t, "Loaded 5 pages from 2 PDF files", s.Status().Text)

	st, ok, err := mem.Get(context.Background(), "pagemerge:status")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Loaded 5 pages from 2 PDF files", st.Text)
	assert.Equal(t, 2, st.Files)
}

func TestLoadEmptyFolder(t *testing.T) {
	s, _ := newSession(t)
	_, err := s.Load(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "No PDF files found in selected folder", s.Status().Text)
}

func TestLoadMissingFolder(t *testing.T) {
	s, _ := newSession(t)
	_, err := s.Load(context.Background(), filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(s.Status().Text, "Error loading PDF files"))
	assert.Equal(t, StateFailed, s.Status().State)
}

func TestLoadResetsSelection(t *testing.T) {
	s, _ := newSession(t)
	dir := folderAB(t)
	_, err := s.Load(context.Background(), dir)
	require.NoError(t, err)
	_, err = s.Add([]int{0, 1})
	require.NoError(t, err)

	_, err = s.Load(context.Background(), dir)
	require.NoError(t, err)
	assert.Empty(t, s.Snapshot().Selection)
}

func TestEditingThroughPositions(t *testing.T) {
	s, _ := newSession(t)
	_, err := s.Load(context.Background(), folderAB(t))
	require.NoError(t, err)

	_, err = s.Add(nil)
	assert.ErrorIs(t, err, selection.ErrEmptySelection)

	n, err := s.Add([]int{4, 0, 2})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "Selected 3 pages", s.Status().Text)
	assert.Equal(t, []string{"a - Page 1", "a - Page 3", "b - Page 2"}, labels(s.Snapshot().Selection))

	pos, err := s.MoveUp(2)
	require.NoError(t, err)
	assert.Equal(t, 1, pos)
	assert.Equal(t, []string{"a - Page 1", "b - Page 2", "a - Page 3"}, labels(s.Snapshot().Selection))

	pos, err = s.MoveDown(0)
	require.NoError(t, err)
	assert.Equal(t, 1, pos)
	assert.Equal(t, 1, s.Snapshot().Focus)

	pos, err = s.Reposition(2, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, pos)
	assert.Equal(t, []string{"a - Page 3", "b - Page 2", "a - Page 1"}, labels(s.Snapshot().Selection))

	n, err = s.Remove([]int{0, 2})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "Selected 1 pages", s.Status().Text)

	_, err = s.Remove([]int{5})
	assert.ErrorIs(t, err, pages.ErrPosition)
}

func TestAddWithoutCatalog(t *testing.T) {
	s, _ := newSession(t)
	_, err := s.Add([]int{0})
	assert.ErrorIs(t, err, ErrNoCatalog)
}

func TestStartMergeValidates(t *testing.T) {
	s, _ := newSession(t)
	_, err := s.Load(context.Background(), folderAB(t))
	require.NoError(t, err)

	_, err = s.StartMerge()
	assert.ErrorIs(t, err, ErrNothingToMerge)

	_, err = s.Add([]int{0})
	require.NoError(t, err)
	assert.False(t, s.CanMerge())
	_, err = s.StartMerge()
	assert.ErrorIs(t, err, ErrNoOutput)
}

func TestMergeSuccess(t *testing.T) {
	s, _ := newSession(t)
	_, err := s.Load(context.Background(), folderAB(t))
	require.NoError(t, err)
	_, err = s.Add([]int{2, 3})
	require.NoError(t, err)
	out := filepath.Join(t.TempDir(), "merged.pdf")
	s.SetOutput(out)
	assert.True(t, s.CanMerge())

	id, err := s.StartMerge()
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	st := waitState(t, s, StateDone)
	assert.Equal(t, "Success! Created PDF with 2 pages", st.Text)
	assert.False(t, st.Merging)
	assert.Len(t, pdftest.WidthsFile(t, out), 2)

	// a merge never clears the selection
	assert.Len(t, s.Snapshot().Selection, 2)
	assert.Equal(t, id, s.Snapshot().LastJob)
}

func TestMergeFailureKeepsSelection(t *testing.T) {
	s, _ := newSession(t)
	_, err := s.Load(context.Background(), folderAB(t))
	require.NoError(t, err)
	_, err = s.Add([]int{1, 4})
	require.NoError(t, err)
	before := labels(s.Snapshot().Selection)
	s.SetOutput(filepath.Join(t.TempDir(), "missing", "dir", "out.pdf"))

	_, err = s.StartMerge()
	require.NoError(t, err)

	st := waitState(t, s, StateFailed)
	assert.True(t, strings.HasPrefix(st.Text, "Error occurred during PDF creation"))
	assert.False(t, st.Merging)
	assert.True(t, s.CanMerge())
	assert.Equal(t, before, labels(s.Snapshot().Selection))
}

func TestLoadCountsExcludeCorruptFiles(t *testing.T) {
	s, _ := newSession(t)
	dir := folderAB(t)
	pdftest.WriteRaw(t, dir, "broken.pdf", []byte("%PDF-1.4 garbage"))

	cat, err := s.Load(context.Background(), dir)
	require.NoError(t, err)
	assert.Len(t, cat.Skipped, 1)
	st := s.Status()
	assert.Equal(t, "Loaded 5 pages from 2 PDF files", st.Text)
	assert.Equal(t, 2, st.Files)
	assert.Equal(t, 1, st.Metadata["skipped"])
}

func TestMergeUploadFailureShownInStatus(t *testing.T) {
	s, _ := newSessionWith(t, pdfio.NewPDFCPU("relaxed"), failingPublisher{})
	_, err := s.Load(context.Background(), folderAB(t))
	require.NoError(t, err)
	_, err = s.Add([]int{0, 4})
	require.NoError(t, err)
	out := filepath.Join(t.TempDir(), "merged.pdf")
	s.SetOutput(out)

	_, err = s.StartMerge()
	require.NoError(t, err)

	st := waitState(t, s, StateDone)
	assert.Equal(t, "Success! Created PDF with 2 pages; upload failed: bucket unreachable", st.Text)
	assert.Empty(t, s.Snapshot().Location)
	assert.FileExists(t, out)
}

func TestLoadDuringMergeKeepsMergeText(t *testing.T) {
	eng, release := newGatedEngine(t)
	s, _ := newSessionWith(t, eng, nil)
	dir := folderAB(t)
	_, err := s.Load(context.Background(), dir)
	require.NoError(t, err)
	_, err = s.Add([]int{1, 2})
	require.NoError(t, err)
	s.SetOutput(filepath.Join(t.TempDir(), "merged.pdf"))

	_, err = s.StartMerge()
	require.NoError(t, err)

	cat, err := s.Load(context.Background(), dir)
	require.NoError(t, err)
	st := s.Status()
	assert.Equal(t, "Creating merged PDF...", st.Text)
	assert.Equal(t, StateMerging, st.State)
	assert.True(t, st.Merging)
	assert.Same(t, cat, s.Snapshot().Catalog)
	assert.Empty(t, s.Snapshot().Selection)

	release()
	st = waitState(t, s, StateDone)
	assert.Equal(t, "Success! Created PDF with 2 pages", st.Text)
}

func TestMoveAfterLoadUsesNewSelection(t *testing.T) {
	s, _ := newSession(t)
	dir := folderAB(t)
	_, err := s.Load(context.Background(), dir)
	require.NoError(t, err)
	_, err = s.Add([]int{0, 1})
	require.NoError(t, err)

	_, err = s.Load(context.Background(), dir)
	require.NoError(t, err)
	_, err = s.MoveUp(1)
	assert.ErrorIs(t, err, pages.ErrPosition)
	_, err = s.MoveDown(0)
	assert.ErrorIs(t, err, pages.ErrPosition)
}

// Run with -race: moves must never touch a list that Load is replacing.
func TestMoveConcurrentWithLoad(t *testing.T) {
	s, _ := newSession(t)
	dir := folderAB(t)
	_, err := s.Load(context.Background(), dir)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 10; i++ {
			_, _ = s.Load(context.Background(), dir)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_, _ = s.Add([]int{0, 1})
			_, _ = s.MoveUp(1)
			_, _ = s.MoveDown(0)
		}
	}()
	wg.Wait()

	for i, d := range s.Snapshot().Selection {
		assert.NotNil(t, d, "entry %d", i)
	}
}

func TestMirroredReadsBackStatus(t *testing.T) {
	s, _ := newSession(t)
	_, ok, err := s.Mirrored(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Load(context.Background(), folderAB(t))
	require.NoError(t, err)
	st, ok, err := s.Mirrored(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Loaded 5 pages from 2 PDF files", st.Text)
	assert.Equal(t, 5, st.Pages)

	bare := New(context.Background(), Dependencies{})
	_, ok, err = bare.Mirrored(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}
