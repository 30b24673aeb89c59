package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/content-catalog/pkg/catalog"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements catalog.Repository using PostgreSQL
type Repository struct {
	db   DBTX
	pool *pgxpool.Pool
}

// New creates a new PostgreSQL repository on an existing connection or
// transaction. Operations that need their own transaction (category
// replacement) fall back to sequential statements on the given handle.
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with a connection pool.
// The pool is shared process-wide; individual operations acquire their own
// connections, so concurrent requests never share a session.
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool, pool: pool}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Content operations

func (r *Repository) CreateContent(ctx context.Context, content *catalog.Content) error {
	query := `
		INSERT INTO contents (
			id, title, description, language, duration,
			publication_date, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.Exec(ctx, query,
		content.ID, content.Title, content.Description, content.Language,
		content.Duration, content.PublicationDate, string(content.Status),
		content.CreatedAt, content.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create content: %w", err)
	}
	return nil
}

func (r *Repository) GetContent(ctx context.Context, id uuid.UUID) (*catalog.Content, error) {
	query := `
		SELECT id, title, description, language, duration,
		       publication_date, status, created_at, updated_at
		FROM contents WHERE id = $1`

	var content catalog.Content
	err := r.db.QueryRow(ctx, query, id).Scan(
		&content.ID, &content.Title, &content.Description, &content.Language,
		&content.Duration, &content.PublicationDate, &content.Status,
		&content.CreatedAt, &content.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrContentNotFound
		}
		return nil, fmt.Errorf("get content: %w", err)
	}

	names, err := r.categoryNames(ctx, id)
	if err != nil {
		return nil, err
	}
	content.Categories = names
	return &content, nil
}

func (r *Repository) UpdateContent(ctx context.Context, content *catalog.Content) error {
	query := `
		UPDATE contents SET
			title = $2, description = $3, language = $4, duration = $5,
			publication_date = $6, status = $7, updated_at = $8
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		content.ID, content.Title, content.Description, content.Language,
		content.Duration, content.PublicationDate, string(content.Status),
		content.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update content: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrContentNotFound
	}
	return nil
}

func (r *Repository) DeleteContent(ctx context.Context, id uuid.UUID) (bool, error) {
	// content_media and content_categories rows cascade at the schema level
	tag, err := r.db.Exec(ctx, `DELETE FROM contents WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete content: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) ListContent(ctx context.Context, filters catalog.ListContentFilters) ([]*catalog.Content, error) {
	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filters.Query != "" {
		p := arg("%" + filters.Query + "%")
		conds = append(conds, fmt.Sprintf("(c.title ILIKE %s OR c.description ILIKE %s)", p, p))
	}
	if filters.Language != "" {
		conds = append(conds, "c.language = "+arg(filters.Language))
	}
	if filters.Status != "" {
		conds = append(conds, "c.status = "+arg(string(filters.Status)))
	}
	if filters.Category != "" {
		conds = append(conds, `EXISTS (
			SELECT 1 FROM content_categories cc
			JOIN categories cat ON cat.id = cc.category_id
			WHERE cc.content_id = c.id AND cat.name = `+arg(filters.Category)+")")
	}

	query := `
		SELECT c.id, c.title, c.description, c.language, c.duration,
		       c.publication_date, c.status, c.created_at, c.updated_at
		FROM contents c`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY c.publication_date DESC NULLS LAST, c.created_at DESC"
	query += " LIMIT " + arg(filters.Limit) + " OFFSET " + arg(filters.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list content: %w", err)
	}
	defer rows.Close()

	var contents []*catalog.Content
	for rows.Next() {
		var content catalog.Content
		if err := rows.Scan(
			&content.ID, &content.Title, &content.Description, &content.Language,
			&content.Duration, &content.PublicationDate, &content.Status,
			&content.CreatedAt, &content.UpdatedAt); err != nil {
			return nil, err
		}
		contents = append(contents, &content)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachCategories(ctx, contents); err != nil {
		return nil, err
	}
	return contents, nil
}

// Category operations

func (r *Repository) EnsureCategories(ctx context.Context, names []string) ([]*catalog.Category, error) {
	if len(names) == 0 {
		return nil, nil
	}

	existing, err := r.categoriesByName(ctx, names)
	if err != nil {
		return nil, err
	}

	for _, name := range names {
		if _, ok := existing[name]; ok {
			continue
		}
		_, err := r.db.Exec(ctx,
			`INSERT INTO categories (id, name) VALUES ($1, $2)`, uuid.New(), name)
		if err != nil {
			// Concurrent creation of the same name: lose the race quietly
			// and pick the winner up in the re-read below.
			if isUniqueViolation(err) {
				continue
			}
			return nil, fmt.Errorf("ensure categories: %w", err)
		}
	}

	existing, err = r.categoriesByName(ctx, names)
	if err != nil {
		return nil, err
	}

	result := make([]*catalog.Category, 0, len(names))
	for _, name := range names {
		c, ok := existing[name]
		if !ok {
			return nil, fmt.Errorf("ensure categories: %w", catalog.ErrCategoryConflict)
		}
		result = append(result, c)
	}
	return result, nil
}

func (r *Repository) categoriesByName(ctx context.Context, names []string) (map[string]*catalog.Category, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name FROM categories WHERE name = ANY($1)`, names)
	if err != nil {
		return nil, fmt.Errorf("select categories: %w", err)
	}
	defer rows.Close()

	result := make(map[string]*catalog.Category, len(names))
	for rows.Next() {
		var c catalog.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		result[c.Name] = &c
	}
	return result, rows.Err()
}

func (r *Repository) ReplaceContentCategories(ctx context.Context, contentID uuid.UUID, categoryIDs []uuid.UUID) error {
	// Delete-then-insert inside one transaction when we own a pool;
	// otherwise the caller's handle is assumed to be transactional already.
	if r.pool != nil {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("replace categories: %w", err)
		}
		defer tx.Rollback(ctx)

		if err := replaceCategories(ctx, tx, contentID, categoryIDs); err != nil {
			return err
		}
		return tx.Commit(ctx)
	}
	return replaceCategories(ctx, r.db, contentID, categoryIDs)
}

func replaceCategories(ctx context.Context, db DBTX, contentID uuid.UUID, categoryIDs []uuid.UUID) error {
	if _, err := db.Exec(ctx,
		`DELETE FROM content_categories WHERE content_id = $1`, contentID); err != nil {
		return fmt.Errorf("replace categories: %w", err)
	}
	if len(categoryIDs) == 0 {
		return nil
	}
	_, err := db.Exec(ctx, `
		INSERT INTO content_categories (content_id, category_id)
		SELECT $1, unnest($2::uuid[])
		ON CONFLICT DO NOTHING`, contentID, categoryIDs)
	if err != nil {
		return fmt.Errorf("replace categories: %w", err)
	}
	return nil
}

func (r *Repository) ListContentCategories(ctx context.Context, contentID uuid.UUID) ([]*catalog.Category, error) {
	rows, err := r.db.Query(ctx, `
		SELECT cat.id, cat.name
		FROM content_categories cc
		JOIN categories cat ON cat.id = cc.category_id
		WHERE cc.content_id = $1
		ORDER BY cat.name`, contentID)
	if err != nil {
		return nil, fmt.Errorf("list content categories: %w", err)
	}
	defer rows.Close()

	var result []*catalog.Category
	for rows.Next() {
		var c catalog.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		result = append(result, &c)
	}
	return result, rows.Err()
}

func (r *Repository) categoryNames(ctx context.Context, contentID uuid.UUID) ([]string, error) {
	cats, err := r.ListContentCategories(ctx, contentID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(cats))
	for _, c := range cats {
		names = append(names, c.Name)
	}
	return names, nil
}

func (r *Repository) attachCategories(ctx context.Context, contents []*catalog.Content) error {
	if len(contents) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(contents))
	byID := make(map[uuid.UUID]*catalog.Content, len(contents))
	for _, c := range contents {
		ids = append(ids, c.ID)
		byID[c.ID] = c
		c.Categories = []string{}
	}

	rows, err := r.db.Query(ctx, `
		SELECT cc.content_id, cat.name
		FROM content_categories cc
		JOIN categories cat ON cat.id = cc.category_id
		WHERE cc.content_id = ANY($1)
		ORDER BY cat.name`, ids)
	if err != nil {
		return fmt.Errorf("attach categories: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var contentID uuid.UUID
		var name string
		if err := rows.Scan(&contentID, &name); err != nil {
			return err
		}
		if c, ok := byID[contentID]; ok {
			c.Categories = append(c.Categories, name)
		}
	}
	return rows.Err()
}

// Media operations

func (r *Repository) SetMedia(ctx context.Context, media *catalog.Media) error {
	// Upsert on the unique content_id: an existing record keeps its id and
	// created_at, which RETURNING reflects back into the struct.
	query := `
		INSERT INTO content_media (
			id, content_id, media_type, source, provider,
			media_file, external_url, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (content_id) DO UPDATE SET
			media_type = EXCLUDED.media_type,
			source = EXCLUDED.source,
			provider = EXCLUDED.provider,
			media_file = EXCLUDED.media_file,
			external_url = EXCLUDED.external_url,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		media.ID, media.ContentID, string(media.MediaType), string(media.Source),
		string(media.Provider), media.MediaFile, media.ExternalURL,
		media.CreatedAt, media.UpdatedAt).Scan(&media.ID, &media.CreatedAt)
	if err != nil {
		return fmt.Errorf("set media: %w", err)
	}
	return nil
}

func (r *Repository) GetMediaByContentID(ctx context.Context, contentID uuid.UUID) (*catalog.Media, error) {
	query := `
		SELECT id, content_id, media_type, source, provider,
		       media_file, external_url, created_at, updated_at
		FROM content_media WHERE content_id = $1`

	var media catalog.Media
	err := r.db.QueryRow(ctx, query, contentID).Scan(
		&media.ID, &media.ContentID, &media.MediaType, &media.Source,
		&media.Provider, &media.MediaFile, &media.ExternalURL,
		&media.CreatedAt, &media.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrMediaNotFound
		}
		return nil, fmt.Errorf("get media: %w", err)
	}
	return &media, nil
}

func (r *Repository) GetMediaByContentIDs(ctx context.Context, contentIDs []uuid.UUID) (map[uuid.UUID]*catalog.Media, error) {
	if len(contentIDs) == 0 {
		return map[uuid.UUID]*catalog.Media{}, nil
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, content_id, media_type, source, provider,
		       media_file, external_url, created_at, updated_at
		FROM content_media WHERE content_id = ANY($1)`, contentIDs)
	if err != nil {
		return nil, fmt.Errorf("get media batch: %w", err)
	}
	defer rows.Close()

	result := make(map[uuid.UUID]*catalog.Media, len(contentIDs))
	for rows.Next() {
		var media catalog.Media
		if err := rows.Scan(
			&media.ID, &media.ContentID, &media.MediaType, &media.Source,
			&media.Provider, &media.MediaFile, &media.ExternalURL,
			&media.CreatedAt, &media.UpdatedAt); err != nil {
			return nil, err
		}
		result[media.ContentID] = &media
	}
	return result, rows.Err()
}

func (r *Repository) DeleteMediaByContentID(ctx context.Context, contentID uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM content_media WHERE content_id = $1`, contentID)
	if err != nil {
		return false, fmt.Errorf("delete media: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
