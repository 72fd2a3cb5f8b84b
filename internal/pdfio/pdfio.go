// Package pdfio is the PDF capability the rest of the module depends on: parse a
// document from memory, pull out single pages, and assemble pages from any number
// of documents into a new one.
package pdfio

import (
	"errors"
	"io"
)

// Page is one page lifted out of a document, held as a self-contained
// single-page PDF so it stays valid after its parent document is gone.
type Page []byte

// Document abstracts a parsed PDF.
type Document interface {
	PageCount() int
	// Page returns the page at zero-based index i.
	Page(i int) (Page, error)
}

// Engine abstracts the PDF library.
type Engine interface {
	Open(data []byte) (Document, error)
	// Assemble writes a new document holding pages in the given order and
	// returns the number of pages written.
	Assemble(pages []Page, w io.Writer) (int, error)
}

var (
	ErrNoPages   = errors.New("pdfio: no pages")
	ErrPageRange = errors.New("pdfio: page index out of range")
)
