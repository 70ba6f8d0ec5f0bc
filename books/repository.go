package books

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Books interface {
	repository.Repository[*Book]

	GetBySlug(ctx context.Context, slug string) (*Book, error)
	GetBySlugTx(ctx context.Context, tx bun.IDB, slug string) (*Book, error)
	Upsert(ctx context.Context, record *Book, criteria ...repository.UpdateCriteria) (*Book, error)
	UpsertTx(ctx context.Context, tx bun.IDB, record *Book, criteria ...repository.UpdateCriteria) (*Book, error)
	ListByTitle(ctx context.Context) ([]*Book, error)
	ListByTitleTx(ctx context.Context, tx bun.IDB) ([]*Book, error)
}

type books struct {
	repository.Repository[*Book]
	db *bun.DB
}

var (
	_ Books                        = (*books)(nil)
	_ repository.Repository[*Book] = (*books)(nil)
)

func NewRepository(db *bun.DB) Books {
	repo := repository.NewRepository[*Book](db, repository.ModelHandlers[*Book]{
		NewRecord: func() *Book { return &Book{} },
		GetID: func(b *Book) uuid.UUID {
			if b == nil {
				return uuid.Nil
			}
			return b.ID
		},
		SetID: func(b *Book, id uuid.UUID) {
			if b != nil {
				b.ID = id
			}
		},
	})

	return &books{
		Repository: repo,
		db:         db,
	}
}

func (a *books) GetBySlug(ctx context.Context, slug string) (*Book, error) {
	return a.GetBySlugTx(ctx, a.db, slug)
}

func (a *books) GetBySlugTx(ctx context.Context, tx bun.IDB, slug string) (*Book, error) {
	record := &Book{}

	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.slug = ?", slug).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"slug": slug,
				})
		}
		return nil, err
	}

	return record, nil
}

// Upsert writes the record keyed by slug so re-importing a manifest converges
// on one row per book.
func (a *books) Upsert(ctx context.Context, record *Book, criteria ...repository.UpdateCriteria) (*Book, error) {
	return a.UpsertTx(ctx, a.db, record, criteria...)
}

func (a *books) UpsertTx(ctx context.Context, tx bun.IDB, record *Book, _ ...repository.UpdateCriteria) (*Book, error) {
	prepareBookDefaults(record)

	_, err := tx.NewInsert().
		Model(record).
		On("CONFLICT (slug) DO UPDATE").
		Set("title = EXCLUDED.title").
		Set("author = EXCLUDED.author").
		Set("pdf_file = EXCLUDED.pdf_file").
		Set("cover_image = EXCLUDED.cover_image").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)

	if err != nil {
		return nil, err
	}

	return record, nil
}

func (a *books) ListByTitle(ctx context.Context) ([]*Book, error) {
	return a.ListByTitleTx(ctx, a.db)
}

func (a *books) ListByTitleTx(ctx context.Context, tx bun.IDB) ([]*Book, error) {
	records := []*Book{}

	err := tx.NewSelect().
		Model(&records).
		Order("title ASC").
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}

func prepareBookDefaults(record *Book) {
	if record == nil {
		return
	}

	if record.ID == uuid.Nil {
		if id, err := hashid.NewUUID(record.Slug); err == nil {
			record.ID = id
		} else {
			record.ID = uuid.New()
		}
	}

	if record.CreatedAt == nil {
		now := time.Now()
		record.CreatedAt = &now
		record.UpdatedAt = &now
	}
}
