package books

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Book is a catalog entry on the shelf. Slug is the stable identifier the
// client uses in routes, derived from the manifest filename.
type Book struct {
	bun.BaseModel `bun:"table:books,alias:bok"`

	ID         uuid.UUID  `bun:"id,pk,notnull" json:"id"`
	Slug       string     `bun:"slug,notnull,unique" json:"slug"`
	Title      string     `bun:"title,notnull" json:"title"`
	Author     string     `bun:"author" json:"author,omitempty"`
	PDFFile    string     `bun:"pdf_file" json:"pdf,omitempty"`
	CoverImage string     `bun:"cover_image" json:"cover_image,omitempty"`
	CreatedAt  *time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt  *time.Time `bun:"updated_at,notnull" json:"updated_at"`
}
