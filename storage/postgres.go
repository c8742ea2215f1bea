// Package storage provides the Postgres-backed article store. The memory
// store in package article remains the default; this one is selected when
// DATABASE_DSN is set.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"exposure/types"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresStore implements article.Store on Postgres. The version-history
// invariant is enforced by a compare-and-swap UPDATE and the composite
// primary key on (article_id, version_number).
type PostgresStore struct {
	db *sql.DB
}

// Open connects to Postgres and ensures the schema exists
func Open(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PostgresStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the connection pool
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS articles (
			id            TEXT PRIMARY KEY,
			status        TEXT NOT NULL,
			version       INTEGER NOT NULL,
			title         TEXT NOT NULL,
			slug          TEXT NOT NULL,
			category      TEXT NOT NULL DEFAULT '',
			excerpt       TEXT NOT NULL DEFAULT '',
			content       TEXT NOT NULL,
			images        JSONB NOT NULL DEFAULT '{}',
			products      JSONB NOT NULL DEFAULT '[]',
			tracking_link TEXT NOT NULL DEFAULT '',
			merchant_url  TEXT NOT NULL DEFAULT '',
			brand_name    TEXT NOT NULL DEFAULT '',
			keyword_count INTEGER NOT NULL DEFAULT 0,
			publish_date  TIMESTAMPTZ,
			author_id     TEXT NOT NULL,
			reviewer_id   TEXT NOT NULL DEFAULT '',
			reject_reason TEXT NOT NULL DEFAULT '',
			published_at  TIMESTAMPTZ,
			commit_sha    TEXT NOT NULL DEFAULT '',
			created_at    TIMESTAMPTZ NOT NULL,
			updated_at    TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS article_versions (
			article_id     TEXT NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
			version_number INTEGER NOT NULL,
			snapshot       JSONB NOT NULL,
			change_type    TEXT NOT NULL,
			change_reason  TEXT NOT NULL DEFAULT '',
			changed_by     TEXT NOT NULL,
			created_at     TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (article_id, version_number)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Insert stores a new article and its create version in one transaction
func (s *PostgresStore) Insert(ctx context.Context, a *types.Article, v *types.ArticleVersion) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		images, products, err := encodeArticleJSON(a)
		if err != nil {
			return err
		}

		query, args, err := psql.Insert("articles").
			Columns("id", "status", "version", "title", "slug", "category", "excerpt",
				"content", "images", "products", "tracking_link", "merchant_url",
				"brand_name", "keyword_count", "publish_date", "author_id",
				"reviewer_id", "reject_reason", "published_at", "commit_sha",
				"created_at", "updated_at").
			Values(a.ID, a.Status, a.Version, a.Title, a.Slug, a.Category, a.Excerpt,
				a.Content, images, products, a.TrackingLink, a.MerchantURL,
				a.BrandName, a.KeywordCount, a.PublishDate, a.AuthorID,
				a.ReviewerID, a.RejectReason, a.PublishedAt, a.CommitSHA,
				a.CreatedAt, a.UpdatedAt).
			ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert article: %w", err)
		}

		if v != nil {
			return insertVersion(ctx, tx, v)
		}
		return nil
	})
}

// Get loads one article
func (s *PostgresStore) Get(ctx context.Context, id string) (*types.Article, error) {
	query, args, err := selectArticles().Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, query, args...)
	a, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("article %s: %w", id, types.ErrNotFound)
	}
	return a, err
}

// List loads all articles, newest first
func (s *PostgresStore) List(ctx context.Context) ([]*types.Article, error) {
	query, args, err := selectArticles().OrderBy("created_at DESC").ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	defer rows.Close()

	var out []*types.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Update replaces the article iff its stored version equals expectedVersion,
// appending the version record in the same transaction
func (s *PostgresStore) Update(ctx context.Context, a *types.Article, expectedVersion int, v *types.ArticleVersion) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		images, products, err := encodeArticleJSON(a)
		if err != nil {
			return err
		}

		query, args, err := psql.Update("articles").
			Set("status", a.Status).
			Set("version", a.Version).
			Set("title", a.Title).
			Set("slug", a.Slug).
			Set("category", a.Category).
			Set("excerpt", a.Excerpt).
			Set("content", a.Content).
			Set("images", images).
			Set("products", products).
			Set("tracking_link", a.TrackingLink).
			Set("merchant_url", a.MerchantURL).
			Set("brand_name", a.BrandName).
			Set("keyword_count", a.KeywordCount).
			Set("publish_date", a.PublishDate).
			Set("reviewer_id", a.ReviewerID).
			Set("reject_reason", a.RejectReason).
			Set("published_at", a.PublishedAt).
			Set("commit_sha", a.CommitSHA).
			Set("updated_at", a.UpdatedAt).
			Where(sq.Eq{"id": a.ID, "version": expectedVersion}).
			ToSql()
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("update article: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			// Either the row is gone or someone moved the version under us
			current, getErr := s.Get(ctx, a.ID)
			if getErr != nil {
				return getErr
			}
			return &types.StaleVersionError{Expected: expectedVersion, Actual: current.Version}
		}

		if v != nil {
			return insertVersion(ctx, tx, v)
		}
		return nil
	})
}

// ListVersions returns the article's history, version numbers ascending
func (s *PostgresStore) ListVersions(ctx context.Context, articleID string) ([]types.ArticleVersion, error) {
	if _, err := s.Get(ctx, articleID); err != nil {
		return nil, err
	}

	query, args, err := psql.Select("article_id", "version_number", "snapshot",
		"change_type", "change_reason", "changed_by", "created_at").
		From("article_versions").
		Where(sq.Eq{"article_id": articleID}).
		OrderBy("version_number ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var out []types.ArticleVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

// GetVersion returns one historical version record
func (s *PostgresStore) GetVersion(ctx context.Context, articleID string, number int) (*types.ArticleVersion, error) {
	query, args, err := psql.Select("article_id", "version_number", "snapshot",
		"change_type", "change_reason", "changed_by", "created_at").
		From("article_versions").
		Where(sq.Eq{"article_id": articleID, "version_number": number}).
		ToSql()
	if err != nil {
		return nil, err
	}

	v, err := scanVersion(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("article %s version %d: %w", articleID, number, types.ErrNotFound)
	}
	return v, err
}

// Delete removes the article; versions cascade via the foreign key
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	query, args, err := psql.Delete("articles").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete article: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("article %s: %w", id, types.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func insertVersion(ctx context.Context, tx *sql.Tx, v *types.ArticleVersion) error {
	snapshot, err := json.Marshal(v.Snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	query, args, err := psql.Insert("article_versions").
		Columns("article_id", "version_number", "snapshot", "change_type",
			"change_reason", "changed_by", "created_at").
		Values(v.ArticleID, v.VersionNumber, snapshot, v.ChangeType,
			v.ChangeReason, v.ChangedBy, v.CreatedAt).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert version: %w", err)
	}
	return nil
}

func selectArticles() sq.SelectBuilder {
	return psql.Select("id", "status", "version", "title", "slug", "category",
		"excerpt", "content", "images", "products", "tracking_link",
		"merchant_url", "brand_name", "keyword_count", "publish_date",
		"author_id", "reviewer_id", "reject_reason", "published_at",
		"commit_sha", "created_at", "updated_at").
		From("articles")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (*types.Article, error) {
	var a types.Article
	var images, products []byte

	err := row.Scan(&a.ID, &a.Status, &a.Version, &a.Title, &a.Slug, &a.Category,
		&a.Excerpt, &a.Content, &images, &products, &a.TrackingLink,
		&a.MerchantURL, &a.BrandName, &a.KeywordCount, &a.PublishDate,
		&a.AuthorID, &a.ReviewerID, &a.RejectReason, &a.PublishedAt,
		&a.CommitSHA, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(images, &a.Images); err != nil {
		return nil, fmt.Errorf("decode images: %w", err)
	}
	if err := json.Unmarshal(products, &a.Products); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	return &a, nil
}

func scanVersion(row rowScanner) (*types.ArticleVersion, error) {
	var v types.ArticleVersion
	var snapshot []byte

	err := row.Scan(&v.ArticleID, &v.VersionNumber, &snapshot, &v.ChangeType,
		&v.ChangeReason, &v.ChangedBy, &v.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(snapshot, &v.Snapshot); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &v, nil
}

func encodeArticleJSON(a *types.Article) (images, products []byte, err error) {
	images, err = json.Marshal(a.Images)
	if err != nil {
		return nil, nil, fmt.Errorf("encode images: %w", err)
	}
	products, err = json.Marshal(a.Products)
	if err != nil {
		return nil, nil, fmt.Errorf("encode products: %w", err)
	}
	return images, products, nil
}
