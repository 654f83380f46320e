package documents

import (
	"go.lsp.dev/uri"
)

// MemoryStore is a Store that keeps documents in memory. It is owned by a
// single goroutine and does no locking.
type MemoryStore struct {
	docs  []*Document
	index map[uri.URI]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:  make([]*Document, 0),
		index: make(map[uri.URI]int),
	}
}

func (m *MemoryStore) Open(u uri.URI, languageID string, version int32, text string) *Document {
	doc := NewDocument(u, languageID, version, text)

	if i, ok := m.index[u]; ok {
		m.docs[i] = doc
		return doc
	}

	m.index[u] = len(m.docs)
	m.docs = append(m.docs, doc)

	return doc
}

func (m *MemoryStore) Change(u uri.URI, version int32, changes []Change) (bool, error) {
	doc, ok := m.Get(u)
	if !ok {
		return false, nil
	}

	return true, doc.ApplyChanges(version, changes)
}

func (m *MemoryStore) Close(u uri.URI) bool {
	i, ok := m.index[u]
	if !ok {
		return false
	}

	copy(m.docs[i:], m.docs[i+1:])
	m.docs[len(m.docs)-1] = nil
	m.docs = m.docs[:len(m.docs)-1]

	delete(m.index, u)
	for j := i; j < len(m.docs); j++ {
		m.index[m.docs[j].URI()] = j
	}

	return true
}

func (m *MemoryStore) Get(u uri.URI) (*Document, bool) {
	i, ok := m.index[u]
	if !ok {
		return nil, false
	}

	return m.docs[i], true
}

func (m *MemoryStore) Len() int {
	return len(m.docs)
}

func (m *MemoryStore) URIs() []uri.URI {
	uris := make([]uri.URI, len(m.docs))
	for i, doc := range m.docs {
		uris[i] = doc.URI()
	}

	return uris
}

func (m *MemoryStore) Snapshot() []Info {
	infos := make([]Info, len(m.docs))
	for i, doc := range m.docs {
		infos[i] = Info{
			URI:        doc.URI(),
			LanguageID: doc.LanguageID(),
			Version:    doc.Version(),
			Lines:      doc.LineCount(),
			Bytes:      len(doc.Text()),
		}
	}

	return infos
}

var _ Store = (*MemoryStore)(nil)
