package session

import (
	"encoding/json"
	"fmt"

	lsp "go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"go.uber.org/zap"
)

func (s *Session) didOpen(log *zap.Logger, raw json.RawMessage) error {
	var params lsp.DidOpenTextDocumentParams
	if err := decodeParams(raw, &params); err != nil {
		return err
	}

	item := params.TextDocument
	if item.URI == "" {
		return schemaError("%v", ErrMissingURI)
	}

	u := uri.URI(item.URI)
	store := s.initialized.documents

	if _, open := store.Get(u); open {
		log.Debug("Document opened again, replacing it", zap.String("uri", string(u)))
	}

	doc := store.Open(u, string(item.LanguageID), item.Version, item.Text)

	log.Debug("Document opened",
		zap.String("uri", string(u)),
		zap.String("languageID", doc.LanguageID()),
		zap.Int32("version", doc.Version()),
		zap.Int("lines", doc.LineCount()),
	)

	return nil
}

func (s *Session) didChange(log *zap.Logger, raw json.RawMessage) error {
	var params DidChangeTextDocumentParams
	if err := decodeParams(raw, &params); err != nil {
		return err
	}

	if params.TextDocument.URI == "" {
		return schemaError("%v", ErrMissingURI)
	}

	u := uri.URI(params.TextDocument.URI)
	version := params.TextDocument.Version
	store := s.initialized.documents

	doc, open := store.Get(u)
	if !open {
		log.Debug("Ignoring change to a document that is not open", zap.String("uri", string(u)))
		return nil
	}

	if version <= doc.Version() {
		log.Warn("Document version did not increase",
			zap.String("uri", string(u)),
			zap.Int32("current", doc.Version()),
			zap.Int32("received", version),
		)
	}

	if _, err := store.Change(u, version, params.ContentChanges); err != nil {
		return fmt.Errorf("Document %s is out of sync with the editor: %w", u, err)
	}

	log.Debug("Document changed",
		zap.String("uri", string(u)),
		zap.Int32("version", version),
		zap.Int("changes", len(params.ContentChanges)),
	)

	return nil
}

func (s *Session) didClose(log *zap.Logger, raw json.RawMessage) error {
	var params lsp.DidCloseTextDocumentParams
	if err := decodeParams(raw, &params); err != nil {
		return err
	}

	u := uri.URI(params.TextDocument.URI)

	if !s.initialized.documents.Close(u) {
		log.Debug("Ignoring close of a document that is not open", zap.String("uri", string(u)))
		return nil
	}

	log.Debug("Document closed", zap.String("uri", string(u)))
	return nil
}
