// Package mupdf pulls the text layer of catalog pages through go-fitz, so a page
// can be recognised without rendering it.
package mupdf

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/rs/zerolog/log"
)

// PageText returns the cleaned text of page pageIndex (0-based) of the PDF in data.
func PageText(data []byte, pageIndex int) (string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	if pageIndex < 0 || pageIndex >= doc.NumPage() {
		return "", fmt.Errorf("page %d out of range (document has %d pages)", pageIndex+1, doc.NumPage())
	}
	raw, err := doc.Text(pageIndex)
	if err != nil {
		return "", fmt.Errorf("failed to extract text from page %d: %w", pageIndex+1, err)
	}
	text := Clean(raw, pageIndex+1)

	log.Debug().
		Int("page", pageIndex+1).
		Int("raw_chars", len(raw)).
		Int("cleaned_chars", len(text)).
		Msg("extracted page text")
	return text, nil
}

// Clean drops blank lines, bare page numbers and punctuation-only lines, then
// joins lines broken mid-sentence.
func Clean(text string, pageNum int) string {
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || isPageNumber(trimmed, pageNum) || isNoise(trimmed) {
			continue
		}
		kept = append(kept, trimmed)
	}
	return strings.TrimSpace(joinBroken(kept))
}

// Snippet shortens text to at most n runes on one line.
func Snippet(text string, n int) string {
	flat := strings.Join(strings.Fields(text), " ")
	r := []rune(flat)
	if len(r) <= n {
		return flat
	}
	return strings.TrimSpace(string(r[:n])) + "…"
}

func isPageNumber(line string, pageNum int) bool {
	if line == strconv.Itoa(pageNum) {
		return true
	}
	for _, p := range []string{
		fmt.Sprintf("Page %d", pageNum),
		fmt.Sprintf("- %d -", pageNum),
		fmt.Sprintf("[%d]", pageNum),
	} {
		if strings.EqualFold(line, p) {
			return true
		}
	}
	return false
}

// isNoise is true for lines with no letters or digits.
func isNoise(line string) bool {
	for _, r := range line {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r > 127 {
			return false
		}
	}
	return true
}

func joinBroken(lines []string) string {
	var out []string
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if i+1 < len(lines) {
			next := lines[i+1]
			last := line[len(line)-1]
			sentenceEnd := strings.ContainsRune(".!?:;", rune(last))
			if !sentenceEnd && next[0] >= 'a' && next[0] <= 'z' && !strings.HasSuffix(line, "-") {
				out = append(out, line+" "+next)
				i++
				continue
			}
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
