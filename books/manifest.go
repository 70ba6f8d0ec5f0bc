package books

import (
	"context"
	"encoding/json"
	"io/fs"
	"path"
	"strings"

	"github.com/goliatone/go-errors"

	bookshelf "github.com/goliatone/go-bookshelf"
)

// Manifest is the per-book JSON descriptor the web client ships next to the
// book assets, one file per book with the slug taken from the filename.
type Manifest struct {
	Title      string `json:"title"`
	Author     string `json:"author"`
	PDF        string `json:"pdf"`
	CoverImage string `json:"coverImage"`
}

// Importer loads manifest files into the catalog.
type Importer struct {
	shelf  Books
	logger bookshelf.Logger
}

type ImporterOption func(*Importer) *Importer

func WithImporterLogger(logger bookshelf.Logger) ImporterOption {
	return func(i *Importer) *Importer {
		if logger != nil {
			i.logger = logger
		}
		return i
	}
}

func NewImporter(shelf Books, opts ...ImporterOption) *Importer {
	i := &Importer{
		shelf:  shelf,
		logger: bookshelf.DefaultLogger(),
	}

	for _, opt := range opts {
		i = opt(i)
	}

	return i
}

// ImportFS walks fsys for *.json manifests and upserts one catalog record
// per file. A malformed manifest is logged and skipped, the import keeps
// going. Returns the number of records written.
func (i *Importer) ImportFS(ctx context.Context, fsys fs.FS) (int, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return 0, errors.Wrap(err, errors.CategoryInternal, "failed to read manifest directory")
	}

	imported := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		record, err := i.loadManifest(fsys, entry.Name())
		if err != nil {
			i.logger.Warn("skipping book manifest", "file", entry.Name(), "error", err)
			continue
		}

		if _, err := i.shelf.Upsert(ctx, record); err != nil {
			return imported, errors.Wrap(err, errors.CategoryInternal, "failed to store book record").
				WithMetadata(map[string]any{
					"slug": record.Slug,
				})
		}

		imported++
	}

	return imported, nil
}

func (i *Importer) loadManifest(fsys fs.FS, name string) (*Book, error) {
	raw, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}

	manifest := Manifest{}
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return nil, err
	}

	if manifest.Title == "" {
		return nil, errors.New("manifest has no title", errors.CategoryValidation)
	}

	slug := strings.TrimSuffix(path.Base(name), ".json")

	return &Book{
		Slug:       slug,
		Title:      manifest.Title,
		Author:     manifest.Author,
		PDFFile:    manifest.PDF,
		CoverImage: manifest.CoverImage,
	}, nil
}
