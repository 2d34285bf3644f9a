// Package pgstore is the Postgres store backend on a pgx connection pool.
package pgstore

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anatolykoptev/go_edunote/internal/store"
)

//go:embed schema/*.sql
var schemaFS embed.FS

const uniqueViolation = "23505"

// Store is a Postgres-backed store.Store.
type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

// Connect creates a pgx pool and runs schema migrations.
func Connect(ctx context.Context, databaseURL string) (*Store, error) {
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	slog.Info("postgres store connected", slog.String("addr", config.ConnConfig.Host))
	return s, nil
}

func (s *Store) runMigrations(ctx context.Context) error {
	entries, err := schemaFS.ReadDir("schema")
	if err != nil {
		return fmt.Errorf("read schema dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire migration connection: %w", err)
	}
	defer conn.Release()

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		data, err := schemaFS.ReadFile("schema/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		if _, err := conn.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("execute %s: %w", entry.Name(), err)
		}
		slog.Info("migration applied", slog.String("file", entry.Name()))
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Reset truncates every table. Used by integration tests.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `TRUNCATE users, videos, notes`)
	return err
}

// --- Users ---

func (s *Store) CreateUser(ctx context.Context, u *store.User) error {
	store.PrepareUser(u)
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, name, email, password_hash, role, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.CreatedAt, u.UpdatedAt)
	return mapErr(err)
}

const userCols = `id, name, email, password_hash, role, created_at, updated_at`

func (s *Store) UserByID(ctx context.Context, id string) (*store.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id))
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*store.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE email = $1`, email))
}

func scanUser(row pgx.Row) (*store.User, error) {
	var u store.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	u.CreatedAt, u.UpdatedAt = u.CreatedAt.UTC(), u.UpdatedAt.UTC()
	return &u, nil
}

// --- Videos ---

func (s *Store) CreateVideo(ctx context.Context, v *store.Video) error {
	store.PrepareVideo(v)
	_, err := s.pool.Exec(ctx,
		`INSERT INTO videos (id, video_id, url, title, duration_seconds, channel_name, transcript,
		                     language, transcript_source, uploaded_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		v.ID, v.VideoID, v.URL, v.Title, v.DurationSeconds, v.ChannelName, v.Transcript,
		v.Language, v.TranscriptSource, v.UploadedBy, v.CreatedAt, v.UpdatedAt)
	return mapErr(err)
}

const videoCols = `id, video_id, url, title, duration_seconds, channel_name, transcript,
	language, transcript_source, uploaded_by, created_at, updated_at`

func (s *Store) VideoByID(ctx context.Context, id string) (*store.Video, error) {
	return scanVideo(s.pool.QueryRow(ctx, `SELECT `+videoCols+` FROM videos WHERE id = $1`, id))
}

func (s *Store) VideoByVideoID(ctx context.Context, videoID string) (*store.Video, error) {
	return scanVideo(s.pool.QueryRow(ctx, `SELECT `+videoCols+` FROM videos WHERE video_id = $1`, videoID))
}

func scanVideo(row pgx.Row) (*store.Video, error) {
	var v store.Video
	err := row.Scan(&v.ID, &v.VideoID, &v.URL, &v.Title, &v.DurationSeconds, &v.ChannelName, &v.Transcript,
		&v.Language, &v.TranscriptSource, &v.UploadedBy, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	v.CreatedAt, v.UpdatedAt = v.CreatedAt.UTC(), v.UpdatedAt.UTC()
	return &v, nil
}

// --- Notes ---

func (s *Store) CreateNote(ctx context.Context, n *store.Note) error {
	store.PrepareNote(n)
	_, err := s.pool.Exec(ctx,
		`INSERT INTO notes (id, user_id, video_id, title, content, structured, highlights, tags,
		                    folder, is_translated, translation, is_pinned, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		n.ID, n.UserID, n.VideoID, n.Title, n.Content, n.Structured, n.Highlights, n.Tags,
		n.Folder, n.IsTranslated, n.Translation, n.IsPinned, n.CreatedAt, n.UpdatedAt)
	return mapErr(err)
}

func (s *Store) UpdateNote(ctx context.Context, n *store.Note) error {
	n.Normalize()
	n.UpdatedAt = store.Now()
	tag, err := s.pool.Exec(ctx,
		`UPDATE notes SET title = $2, content = $3, structured = $4, highlights = $5, tags = $6,
		                  folder = $7, is_translated = $8, translation = $9, is_pinned = $10, updated_at = $11
		 WHERE id = $1`,
		n.ID, n.Title, n.Content, n.Structured, n.Highlights, n.Tags,
		n.Folder, n.IsTranslated, n.Translation, n.IsPinned, n.UpdatedAt)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteNote(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM notes WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

const noteCols = `id, user_id, video_id, title, content, structured, highlights, tags,
	folder, is_translated, translation, is_pinned, created_at, updated_at`

func (s *Store) NoteByID(ctx context.Context, id string) (*store.Note, error) {
	n, err := scanNote(s.pool.QueryRow(ctx, `SELECT `+noteCols+` FROM notes WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr(err)
	}
	return n, nil
}

func (s *Store) ListNotes(ctx context.Context, f store.NoteFilter) ([]store.Note, error) {
	var (
		where = []string{"user_id = $1"}
		args  = []any{f.UserID}
	)
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if f.Folder != "" {
		where = append(where, "folder = "+next(f.Folder))
	}
	if len(f.Tags) > 0 {
		where = append(where, "tags && "+next(f.Tags)+"::text[]")
	}
	if f.Search != "" {
		p := next("%" + escapeLike(f.Search) + "%")
		where = append(where, "(title ILIKE "+p+" OR content ILIKE "+p+")")
	}

	query := `SELECT ` + noteCols + ` FROM notes WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY is_pinned DESC, created_at DESC`
	if f.Limit > 0 {
		query += ` LIMIT ` + next(f.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	notes := []store.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, *n)
	}
	return notes, rows.Err()
}

func scanNote(row pgx.Row) (*store.Note, error) {
	var n store.Note
	err := row.Scan(&n.ID, &n.UserID, &n.VideoID, &n.Title, &n.Content,
		&n.Structured, &n.Highlights, &n.Tags, &n.Folder, &n.IsTranslated,
		&n.Translation, &n.IsPinned, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, err
	}
	n.CreatedAt, n.UpdatedAt = n.CreatedAt.UTC(), n.UpdatedAt.UTC()
	n.Normalize()
	return &n, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", store.ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}
