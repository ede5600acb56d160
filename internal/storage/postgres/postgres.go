// Package postgres implements storage.Storage on top of a pgx connection pool.
// The schema is applied with golang-migrate from the embedded migrations directory.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/ButyrinIA/yatube/internal/models"
	"github.com/ButyrinIA/yatube/internal/storage"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

const postColumns = "id, text, author_id, group_id, image, created_at"

//go:embed migrations/*.sql
var migrations embed.FS

type Config struct {
	DSN      string
	MaxConns int32
}

type PostgresStorage struct {
	pool   *pgxpool.Pool
	sb     sq.StatementBuilderType
	logger *zap.Logger
}

func New(ctx context.Context, cfg Config, logger *zap.Logger) (*PostgresStorage, error) {
	if err := runMigrations(cfg.DSN, logger); err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	logger.Info("пул соединений PostgreSQL готов", zap.Int32("max_conns", poolCfg.MaxConns))

	return &PostgresStorage{
		pool:   pool,
		sb:     sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		logger: logger,
	}, nil
}

func runMigrations(dsn string, logger *zap.Logger) error {
	// отдельное *sql.DB через pgx/stdlib, пул pgxpool для миграций не используется
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("sql.Open pgx: %w", err)
	}
	defer db.Close()

	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("postgres driver: %w", err)
	}
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("iofs source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migrate.New: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Debug("новых миграций нет")
			return nil
		}
		return fmt.Errorf("apply migrations: %w", err)
	}
	logger.Info("миграции применены")
	return nil
}

func (s *PostgresStorage) CreateUser(ctx context.Context, user *models.User) error {
	q, args, err := s.sb.Insert("users").
		Columns("username", "first_name", "last_name", "password_hash").
		Values(user.Username, user.FirstName, user.LastName, user.PasswordHash).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return err
	}
	err = s.pool.QueryRow(ctx, q, args...).Scan(&user.ID, &user.CreatedAt)
	if isCode(err, codeUniqueViolation) {
		return fmt.Errorf("user %q: %w", user.Username, storage.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PostgresStorage) GetUser(ctx context.Context, id int64) (*models.User, error) {
	u, err := s.getUser(ctx, sq.Eq{"id": id})
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("user %d: %w", id, err)
	}
	return u, err
}

func (s *PostgresStorage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	u, err := s.getUser(ctx, sq.Eq{"username": username})
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("user %q: %w", username, err)
	}
	return u, err
}

func (s *PostgresStorage) getUser(ctx context.Context, where sq.Sqlizer) (*models.User, error) {
	q, args, err := s.sb.Select("id, username, first_name, last_name, password_hash, created_at").
		From("users").
		Where(where).
		ToSql()
	if err != nil {
		return nil, err
	}
	var u models.User
	err = s.pool.QueryRow(ctx, q, args...).
		Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (s *PostgresStorage) GetUsersByIDs(ctx context.Context, ids []int64) (map[int64]*models.User, error) {
	res := make(map[int64]*models.User, len(ids))
	if len(ids) == 0 {
		return res, nil
	}
	q, args, err := s.sb.Select("id, username, first_name, last_name, created_at").
		From("users").
		Where(sq.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("get users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.CreatedAt); err != nil {
			return nil, err
		}
		res[u.ID] = &u
	}
	return res, rows.Err()
}

func (s *PostgresStorage) CreateGroup(ctx context.Context, group *models.Group) error {
	q, args, err := s.sb.Insert("post_groups").
		Columns("slug", "title", "description").
		Values(group.Slug, group.Title, group.Description).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return err
	}
	err = s.pool.QueryRow(ctx, q, args...).Scan(&group.ID)
	if isCode(err, codeUniqueViolation) {
		return fmt.Errorf("group %q: %w", group.Slug, storage.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("create group: %w", err)
	}
	return nil
}

func (s *PostgresStorage) GetGroupBySlug(ctx context.Context, slug string) (*models.Group, error) {
	q, args, err := s.sb.Select("id, slug, title, description").
		From("post_groups").
		Where(sq.Eq{"slug": slug}).
		ToSql()
	if err != nil {
		return nil, err
	}
	var g models.Group
	err = s.pool.QueryRow(ctx, q, args...).Scan(&g.ID, &g.Slug, &g.Title, &g.Description)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("group %q: %w", slug, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}
	return &g, nil
}

func (s *PostgresStorage) GetGroupsByIDs(ctx context.Context, ids []int64) (map[int64]*models.Group, error) {
	res := make(map[int64]*models.Group, len(ids))
	if len(ids) == 0 {
		return res, nil
	}
	groups, err := s.listGroups(ctx, sq.Eq{"id": ids})
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		res[g.ID] = g
	}
	return res, nil
}

func (s *PostgresStorage) ListGroups(ctx context.Context) ([]*models.Group, error) {
	return s.listGroups(ctx, nil)
}

func (s *PostgresStorage) listGroups(ctx context.Context, where sq.Sqlizer) ([]*models.Group, error) {
	b := s.sb.Select("id, slug, title, description").From("post_groups").OrderBy("title")
	if where != nil {
		b = b.Where(where)
	}
	q, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var groups []*models.Group
	for rows.Next() {
		var g models.Group
		if err := rows.Scan(&g.ID, &g.Slug, &g.Title, &g.Description); err != nil {
			return nil, err
		}
		groups = append(groups, &g)
	}
	return groups, rows.Err()
}

func (s *PostgresStorage) DeleteGroup(ctx context.Context, id int64) error {
	q, args, err := s.sb.Delete("post_groups").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("group %d: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (s *PostgresStorage) CreatePost(ctx context.Context, post *models.Post) error {
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now()
	}
	q, args, err := s.sb.Insert("posts").
		Columns("text", "author_id", "group_id", "image", "created_at").
		Values(post.Text, post.AuthorID, post.GroupID, post.Image, post.CreatedAt).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return err
	}
	err = s.pool.QueryRow(ctx, q, args...).Scan(&post.ID, &post.CreatedAt)
	if isCode(err, codeForeignKeyViolation) {
		return fmt.Errorf("author or group of post: %w", storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	return nil
}

func (s *PostgresStorage) GetPost(ctx context.Context, id int64) (*models.Post, error) {
	q, args, err := s.sb.Select(postColumns).From("posts").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	p, err := scanPost(s.pool.QueryRow(ctx, q, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("post %d: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	return p, nil
}

func (s *PostgresStorage) UpdatePost(ctx context.Context, post *models.Post) error {
	q, args, err := s.sb.Update("posts").
		Set("text", post.Text).
		Set("group_id", post.GroupID).
		Set("image", post.Image).
		Where(sq.Eq{"id": post.ID}).
		ToSql()
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, q, args...)
	if isCode(err, codeForeignKeyViolation) {
		return fmt.Errorf("group of post %d: %w", post.ID, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("post %d: %w", post.ID, storage.ErrNotFound)
	}
	return nil
}

func (s *PostgresStorage) DeletePost(ctx context.Context, id int64) error {
	q, args, err := s.sb.Delete("posts").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("post %d: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (s *PostgresStorage) ListPosts(ctx context.Context, filter models.PostFilter) ([]*models.Post, error) {
	b := applyFilter(s.sb.Select(postColumns).From("posts"), filter).
		OrderBy("created_at DESC", "id DESC")
	if filter.Offset > 0 {
		b = b.Offset(uint64(filter.Offset))
	}
	if filter.Limit > 0 {
		b = b.Limit(uint64(filter.Limit))
	}
	q, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	posts := make([]*models.Post, 0)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (s *PostgresStorage) CountPosts(ctx context.Context, filter models.PostFilter) (int, error) {
	q, args, err := applyFilter(s.sb.Select("COUNT(*)").From("posts"), filter).ToSql()
	if err != nil {
		return 0, err
	}
	var count int
	if err := s.pool.QueryRow(ctx, q, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return count, nil
}

func (s *PostgresStorage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStorage) Close() error {
	s.pool.Close()
	return nil
}

func applyFilter(b sq.SelectBuilder, filter models.PostFilter) sq.SelectBuilder {
	if filter.GroupID != nil {
		b = b.Where(sq.Eq{"group_id": *filter.GroupID})
	}
	if filter.AuthorID != nil {
		b = b.Where(sq.Eq{"author_id": *filter.AuthorID})
	}
	return b
}

func scanPost(row pgx.Row) (*models.Post, error) {
	var p models.Post
	if err := row.Scan(&p.ID, &p.Text, &p.AuthorID, &p.GroupID, &p.Image, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func isCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
