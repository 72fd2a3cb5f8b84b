package main

import (
    "context"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/local/pagemerge/internal/pages"
    "github.com/local/pagemerge/internal/pdfio"
    "github.com/local/pagemerge/internal/pdftest"
    "github.com/local/pagemerge/internal/selection"
)

func TestParsePositions(t *testing.T) {
    got, err := parsePositions("3, 1,2,")
    require.NoError(t, err)
    assert.Equal(t, []int{2, 0, 1}, got)

    _, err = parsePositions("")
    assert.ErrorIs(t, err, selection.ErrEmptySelection)
    _, err = parsePositions("1,x")
    assert.Error(t, err)
    _, err = parsePositions("0")
    assert.Error(t, err)
}

func TestBuildSelectionKeepsGivenOrder(t *testing.T) {
    dir := t.TempDir()
    pdftest.Write(t, dir, "a.pdf", 1, 3)
    pdftest.Write(t, dir, "b.pdf", 2, 2)
    cat, err := pages.NewScanner(pdfio.NewPDFCPU("relaxed"), 1).Scan(context.Background(), dir)
    require.NoError(t, err)

    list, err := buildSelection(cat, []int{2, 4, 0, 2})
    require.NoError(t, err)
    var got []string
    for _, d := range list.Items() {
        got = append(got, d.Label)
    }
    assert.Equal(t, []string{"a - Page 3", "b - Page 2", "a - Page 1"}, got)

    _, err = buildSelection(cat, []int{5})
    assert.ErrorIs(t, err, pages.ErrPosition)
}
