package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

type documentModel struct {
	bun.BaseModel `bun:"table:documents,alias:d"`

	ID        string    `bun:"id,pk"`
	Content   string    `bun:"content,notnull"`
	Version   int       `bun:"version,notnull,default:0"`
	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

type revisionModel struct {
	bun.BaseModel `bun:"table:document_revisions,alias:r"`

	DocumentID string    `bun:"document_id,pk"`
	Version    int       `bun:"version,pk"`
	Content    string    `bun:"content,notnull"`
	Words      int       `bun:"words,notnull"`
	Characters int       `bun:"characters,notnull"`
	SavedAt    time.Time `bun:"saved_at,notnull"`
}

// OpenSQLite opens a SQLite database through the go-sqlite3 driver. The
// pool is limited to one connection so ":memory:" databases survive
// between queries.
func OpenSQLite(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())
	db.SetMaxOpenConns(1)
	return db, nil
}

// BunStore persists documents in SQL tables through bun.
type BunStore struct {
	db *bun.DB
}

func NewBunStore(db *bun.DB) *BunStore {
	return &BunStore{db: db}
}

// Migrate creates the document tables when they are missing.
func (s *BunStore) Migrate(ctx context.Context) error {
	models := []any{
		(*documentModel)(nil),
		(*revisionModel)(nil),
	}
	for _, model := range models {
		if _, err := s.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *BunStore) Create(ctx context.Context, id, content string) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		found, err := tx.NewSelect().Model((*documentModel)(nil)).Where("id = ?", id).Exists(ctx)
		if err != nil {
			return err
		}
		if found {
			return exists(id)
		}
		now := time.Now().UTC()
		model := &documentModel{ID: id, Content: content, CreatedAt: now, UpdatedAt: now}
		_, err = tx.NewInsert().Model(model).Exec(ctx)
		return err
	})
}

func (s *BunStore) Get(ctx context.Context, id string) (*DocumentInfo, error) {
	var model documentModel
	if err := s.db.NewSelect().Model(&model).Where("id = ?", id).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(id)
		}
		return nil, err
	}
	info := modelToDocInfo(&model)
	return &info, nil
}

func (s *BunStore) List(ctx context.Context) ([]DocumentInfo, error) {
	var models []documentModel
	if err := s.db.NewSelect().Model(&models).Order("id ASC").Scan(ctx); err != nil {
		return nil, err
	}
	result := make([]DocumentInfo, 0, len(models))
	for i := range models {
		result = append(result, modelToDocInfo(&models[i]))
	}
	return result, nil
}

func (s *BunStore) UpdateContent(ctx context.Context, id, content string, version int) error {
	res, err := s.db.NewUpdate().
		Model((*documentModel)(nil)).
		Set("content = ?", content).
		Set("version = ?", version).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFound(id)
	}
	return nil
}

func (s *BunStore) AppendRevision(ctx context.Context, id string, rev Revision) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		found, err := tx.NewSelect().Model((*documentModel)(nil)).Where("id = ?", id).Exists(ctx)
		if err != nil {
			return err
		}
		if !found {
			return notFound(id)
		}
		count, err := tx.NewSelect().Model((*revisionModel)(nil)).Where("document_id = ?", id).Count(ctx)
		if err != nil {
			return err
		}
		if want := count + 1; rev.Version != want {
			return revisionConflict(id, rev.Version, want)
		}
		model := &revisionModel{
			DocumentID: id,
			Version:    rev.Version,
			Content:    rev.Content,
			Words:      rev.Words,
			Characters: rev.Characters,
			SavedAt:    rev.SavedAt.UTC(),
		}
		_, err = tx.NewInsert().Model(model).Exec(ctx)
		return err
	})
}

func (s *BunStore) GetRevisions(ctx context.Context, id string, fromVersion int) ([]Revision, error) {
	found, err := s.db.NewSelect().Model((*documentModel)(nil)).Where("id = ?", id).Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, notFound(id)
	}

	var models []revisionModel
	if err := s.db.NewSelect().
		Model(&models).
		Where("document_id = ?", id).
		Where("version > ?", fromVersion).
		Order("version ASC").
		Scan(ctx); err != nil {
		return nil, err
	}
	revs := make([]Revision, 0, len(models))
	for _, m := range models {
		revs = append(revs, Revision{
			Version:    m.Version,
			Content:    m.Content,
			Words:      m.Words,
			Characters: m.Characters,
			SavedAt:    m.SavedAt,
		})
	}
	return revs, nil
}

func modelToDocInfo(m *documentModel) DocumentInfo {
	return DocumentInfo{
		ID:        m.ID,
		Content:   m.Content,
		Version:   m.Version,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
