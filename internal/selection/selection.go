// Package selection holds the user's ordered choice of pages. Its order is the
// page order of the merged document.
package selection

import (
	"errors"
	"fmt"
	"sort"

	"github.com/local/pagemerge/internal/pages"
)

var (
	// ErrEmptySelection is a caller-side warning: add or remove with nothing chosen.
	ErrEmptySelection = errors.New("nothing selected")
	ErrUnknownID      = errors.New("selection: unknown page id")
)

// List is an ordered sequence of catalog descriptors. Entries point into the
// catalog; page bytes are never copied. A List is not safe for concurrent use.
type List struct {
	items []*pages.Descriptor
	focus int
}

// New returns an empty list.
func New() *List { return &List{focus: -1} }

func (l *List) Len() int { return len(l.items) }

// Items returns a snapshot of the list.
func (l *List) Items() []*pages.Descriptor {
	out := make([]*pages.Descriptor, len(l.items))
	copy(out, l.items)
	return out
}

// Focus is the position of the most recently moved item, or -1.
func (l *List) Focus() int { return l.focus }

func (l *List) indexOf(id pages.ID) int {
	for i, d := range l.items {
		if d.ID == id {
			return i
		}
	}
	return -1
}

func (l *List) containsKey(k pages.Key) bool {
	for _, d := range l.items {
		if d.Key() == k {
			return true
		}
	}
	return false
}

// IDsAt translates zero-based list positions into ids, in the order given.
func (l *List) IDsAt(positions []int) ([]pages.ID, error) {
	ids := make([]pages.ID, 0, len(positions))
	for _, p := range positions {
		if p < 0 || p >= len(l.items) {
			return nil, fmt.Errorf("%w: %d (selection has %d pages)", pages.ErrPosition, p, len(l.items))
		}
		ids = append(ids, l.items[p].ID)
	}
	return ids, nil
}

// Add appends the catalog pages named by ids. Pages are appended in catalog
// order whatever the order of ids, and a page whose file and page index is
// already in the list is skipped. It returns how many pages were appended.
func (l *List) Add(cat *pages.Catalog, ids []pages.ID) (int, error) {
	if len(ids) == 0 {
		return 0, ErrEmptySelection
	}
	want := make(map[pages.ID]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	added := 0
	for _, d := range cat.Pages {
		if _, ok := want[d.ID]; !ok {
			continue
		}
		if l.containsKey(d.Key()) {
			continue
		}
		l.items = append(l.items, d)
		added++
	}
	return added, nil
}

// Remove drops every entry named by ids and returns how many were removed.
func (l *List) Remove(ids []pages.ID) (int, error) {
	if len(ids) == 0 {
		return 0, ErrEmptySelection
	}
	var positions []int
	seen := map[int]bool{}
	for _, id := range ids {
		if i := l.indexOf(id); i >= 0 && !seen[i] {
			seen[i] = true
			positions = append(positions, i)
		}
	}
	// highest first so earlier deletions do not shift later ones
	sort.Sort(sort.Reverse(sort.IntSlice(positions)))
	for _, i := range positions {
		l.items = append(l.items[:i], l.items[i+1:]...)
	}
	l.focus = -1
	return len(positions), nil
}

// MoveUp swaps the entry with its predecessor and returns its new position.
// At the top it does nothing.
func (l *List) MoveUp(id pages.ID) (int, error) {
	i := l.indexOf(id)
	if i < 0 {
		return -1, ErrUnknownID
	}
	if i > 0 {
		l.items[i-1], l.items[i] = l.items[i], l.items[i-1]
		i--
	}
	l.focus = i
	return i, nil
}

// MoveDown swaps the entry with its successor and returns its new position.
// At the bottom it does nothing.
func (l *List) MoveDown(id pages.ID) (int, error) {
	i := l.indexOf(id)
	if i < 0 {
		return -1, ErrUnknownID
	}
	if i < len(l.items)-1 {
		l.items[i+1], l.items[i] = l.items[i], l.items[i+1]
		i++
	}
	l.focus = i
	return i, nil
}

// Reposition takes the entry out of the list and inserts it at position to,
// counted in the list as it is after the removal. to is clamped to the list
// bounds. The entry's new position is returned.
func (l *List) Reposition(id pages.ID, to int) (int, error) {
	from := l.indexOf(id)
	if from < 0 {
		return -1, ErrUnknownID
	}
	last := len(l.items) - 1
	if to < 0 {
		to = 0
	}
	if to > last {
		to = last
	}
	if to == from {
		l.focus = from
		return from, nil
	}
	d := l.items[from]
	l.items = append(l.items[:from], l.items[from+1:]...)
	l.items = append(l.items, nil)
	copy(l.items[to+1:], l.items[to:])
	l.items[to] = d
	l.focus = to
	return to, nil
}
