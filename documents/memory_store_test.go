package documents_test

import (
	"errors"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"go.lsp.dev/uri"

	"github.com/luma/humlsp/documents"
)

var _ = Describe("MemoryStore", func() {
	var store *documents.MemoryStore

	first := uri.URI("file:///a.huml")
	second := uri.URI("file:///b.huml")
	third := uri.URI("file:///c.huml")

	BeforeEach(func() {
		store = documents.NewMemoryStore()
	})

	Describe("Open()", func() {
		It("keeps documents in the order they were opened", func() {
			store.Open(second, "huml", 1, "b")
			store.Open(first, "huml", 1, "a")
			store.Open(third, "huml", 1, "c")

			Expect(store.URIs()).To(Equal([]uri.URI{second, first, third}))
			Expect(store.Len()).To(Equal(3))
		})

		It("replaces a document that is opened again in place", func() {
			store.Open(first, "huml", 1, "a")
			store.Open(second, "huml", 1, "b")
			store.Open(first, "huml", 5, "reopened")

			Expect(store.URIs()).To(Equal([]uri.URI{first, second}))

			doc, ok := store.Get(first)
			Expect(ok).To(BeTrue())
			Expect(doc.Text()).To(Equal("reopened"))
			Expect(doc.Version()).To(Equal(int32(5)))
		})
	})

	Describe("Change()", func() {
		It("applies edits to an open document", func() {
			store.Open(first, "huml", 1, "key: 1")

			ok, err := store.Change(first, 2, []documents.Change{edit(rng(0, 5, 0, 6), "2")})
			Expect(err).To(Succeed())
			Expect(ok).To(BeTrue())

			doc, _ := store.Get(first)
			Expect(doc.Text()).To(Equal("key: 2"))
			Expect(doc.Version()).To(Equal(int32(2)))
		})

		It("ignores documents that are not open", func() {
			ok, err := store.Change(first, 2, []documents.Change{edit(nil, "x")})
			Expect(err).To(Succeed())
			Expect(ok).To(BeFalse())
			Expect(store.Len()).To(Equal(0))
		})

		It("returns edit errors", func() {
			store.Open(first, "huml", 1, "key: 1")

			ok, err := store.Change(first, 2, []documents.Change{edit(rng(4, 0, 4, 1), "x")})
			Expect(ok).To(BeTrue())
			Expect(errors.Is(err, documents.ErrPositionOutOfRange)).To(BeTrue())
		})
	})

	Describe("Close()", func() {
		It("removes a document and keeps the order of the rest", func() {
			store.Open(first, "huml", 1, "a")
			store.Open(second, "huml", 1, "b")
			store.Open(third, "huml", 1, "c")

			Expect(store.Close(first)).To(BeTrue())
			Expect(store.URIs()).To(Equal([]uri.URI{second, third}))

			doc, ok := store.Get(third)
			Expect(ok).To(BeTrue())
			Expect(doc.Text()).To(Equal("c"))

			_, ok = store.Get(first)
			Expect(ok).To(BeFalse())
		})

		It("reports documents that are not open", func() {
			Expect(store.Close(first)).To(BeFalse())
		})
	})

	Describe("Snapshot()", func() {
		It("summarises every document", func() {
			store.Open(first, "huml", 3, "a\nb\n")

			Expect(store.Snapshot()).To(Equal([]documents.Info{
				{URI: first, LanguageID: "huml", Version: 3, Lines: 3, Bytes: 4},
			}))
		})
	})
})
