package documents

import (
	"go.lsp.dev/uri"
)

// Store holds the documents a client has open, in the order they were opened.
type Store interface {
	// Open registers a document. Opening a URI that is already open replaces
	// it in place.
	Open(u uri.URI, languageID string, version int32, text string) *Document

	// Change applies edits to an open document. It reports false, and does
	// nothing, when the URI is not open.
	Change(u uri.URI, version int32, changes []Change) (bool, error)

	Close(u uri.URI) bool
	Get(u uri.URI) (*Document, bool)

	Len() int
	URIs() []uri.URI
	Snapshot() []Info
}

// Info summarises a document for status reporting.
type Info struct {
	URI        uri.URI `json:"uri"`
	LanguageID string  `json:"languageId"`
	Version    int32   `json:"version"`
	Lines      int     `json:"lines"`
	Bytes      int     `json:"bytes"`
}
