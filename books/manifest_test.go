package books_test

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/goliatone/go-repository-bun"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-bookshelf/books"
)

// stubShelf records upserts; the embedded interface covers the rest of the
// repository surface.
type stubShelf struct {
	books.Books
	records map[string]*books.Book
	err     error
}

func newStubShelf() *stubShelf {
	return &stubShelf{records: map[string]*books.Book{}}
}

func (s *stubShelf) Upsert(ctx context.Context, record *books.Book, _ ...repository.UpdateCriteria) (*books.Book, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.records[record.Slug] = record
	return record, nil
}

func (s *stubShelf) UpsertTx(ctx context.Context, tx bun.IDB, record *books.Book, criteria ...repository.UpdateCriteria) (*books.Book, error) {
	return s.Upsert(ctx, record, criteria...)
}

func TestImportFS(t *testing.T) {
	t.Run("imports every manifest in the directory", func(t *testing.T) {
		fsys := fstest.MapFS{
			"sample-book.json": &fstest.MapFile{
				Data: []byte(`{"title":"Sample Book","author":"A. Writer","pdf":"sample-book.pdf","coverImage":"sample-book.png"}`),
			},
			"second-book.json": &fstest.MapFile{
				Data: []byte(`{"title":"Second Book","pdf":"second-book.pdf"}`),
			},
			"notes.txt": &fstest.MapFile{
				Data: []byte("not a manifest"),
			},
		}

		shelf := newStubShelf()
		importer := books.NewImporter(shelf)

		count, err := importer.ImportFS(context.Background(), fsys)
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		sample, ok := shelf.records["sample-book"]
		require.True(t, ok, "slug derives from the filename")
		assert.Equal(t, "Sample Book", sample.Title)
		assert.Equal(t, "A. Writer", sample.Author)
		assert.Equal(t, "sample-book.pdf", sample.PDFFile)
		assert.Equal(t, "sample-book.png", sample.CoverImage)

		second, ok := shelf.records["second-book"]
		require.True(t, ok)
		assert.Empty(t, second.Author)
	})

	t.Run("skips malformed manifests and keeps importing", func(t *testing.T) {
		fsys := fstest.MapFS{
			"broken.json": &fstest.MapFile{
				Data: []byte(`{not json`),
			},
			"untitled.json": &fstest.MapFile{
				Data: []byte(`{"pdf":"untitled.pdf"}`),
			},
			"good.json": &fstest.MapFile{
				Data: []byte(`{"title":"Good Book"}`),
			},
		}

		shelf := newStubShelf()
		importer := books.NewImporter(shelf)

		count, err := importer.ImportFS(context.Background(), fsys)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
		assert.Contains(t, shelf.records, "good")
	})

	t.Run("stops on store failure", func(t *testing.T) {
		fsys := fstest.MapFS{
			"good.json": &fstest.MapFile{
				Data: []byte(`{"title":"Good Book"}`),
			},
		}

		shelf := newStubShelf()
		shelf.err = errors.New("db offline")

		importer := books.NewImporter(shelf)

		_, err := importer.ImportFS(context.Background(), fsys)
		require.Error(t, err)
	})
}
