// Package sqlitestore is the embedded single-file store backend.
package sqlitestore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"modernc.org/sqlite"

	"github.com/anatolykoptev/go_edunote/internal/store"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// SQLite's built-in lower() only folds ASCII, so search goes through a
// Go-side fold that handles the full Unicode range.
func init() {
	sqlite.MustRegisterDeterministicScalarFunction("fold", 1, foldFunc)
}

func foldFunc(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	case nil:
		return nil, nil
	default:
		return fmt.Sprint(v), nil
	}
}

// tsLayout is fixed-width so TEXT ordering matches time ordering.
const tsLayout = "2006-01-02T15:04:05.000000Z07:00"

// Store is a SQLite-backed store.Store.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// Open opens (or creates) the database at path and applies migrations.
// ":memory:" gives a private in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			return nil, fmt.Errorf("sqlite: mkdir %s: %w", filepath.Dir(path), err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}
	slog.Info("sqlite store opened", slog.String("path", path))
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return err
	}
	entries, err := schemaFS.ReadDir("schema")
	if err != nil {
		return fmt.Errorf("read schema dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		data, err := schemaFS.ReadFile("schema/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		for _, stmt := range strings.Split(string(data), ";") {
			if strings.TrimSpace(stmt) == "" {
				continue
			}
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("execute %s: %w", entry.Name(), err)
			}
		}
		slog.Debug("migration applied", slog.String("file", entry.Name()))
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }
func (s *Store) Close() error                   { return s.db.Close() }

// --- Users ---

func (s *Store) CreateUser(ctx context.Context, u *store.User) error {
	store.PrepareUser(u)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, role, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Role, fmtTime(u.CreatedAt), fmtTime(u.UpdatedAt))
	return mapErr(err)
}

const userCols = `id, name, email, password_hash, role, created_at, updated_at`

func (s *Store) UserByID(ctx context.Context, id string) (*store.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id = ?`, id))
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*store.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE email = ?`, email))
}

func (s *Store) scanUser(row *sql.Row) (*store.User, error) {
	var u store.User
	var created, updated string
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &created, &updated); err != nil {
		return nil, mapErr(err)
	}
	u.CreatedAt, u.UpdatedAt = parseTime(created), parseTime(updated)
	return &u, nil
}

// --- Videos ---

func (s *Store) CreateVideo(ctx context.Context, v *store.Video) error {
	store.PrepareVideo(v)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO videos (id, video_id, url, title, duration_seconds, channel_name, transcript,
		                     language, transcript_source, uploaded_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.VideoID, v.URL, v.Title, v.DurationSeconds, v.ChannelName, v.Transcript,
		v.Language, v.TranscriptSource, v.UploadedBy, fmtTime(v.CreatedAt), fmtTime(v.UpdatedAt))
	return mapErr(err)
}

const videoCols = `id, video_id, url, title, duration_seconds, channel_name, transcript,
	language, transcript_source, uploaded_by, created_at, updated_at`

func (s *Store) VideoByID(ctx context.Context, id string) (*store.Video, error) {
	return s.scanVideo(s.db.QueryRowContext(ctx, `SELECT `+videoCols+` FROM videos WHERE id = ?`, id))
}

func (s *Store) VideoByVideoID(ctx context.Context, videoID string) (*store.Video, error) {
	return s.scanVideo(s.db.QueryRowContext(ctx, `SELECT `+videoCols+` FROM videos WHERE video_id = ?`, videoID))
}

func (s *Store) scanVideo(row *sql.Row) (*store.Video, error) {
	var v store.Video
	var created, updated string
	err := row.Scan(&v.ID, &v.VideoID, &v.URL, &v.Title, &v.DurationSeconds, &v.ChannelName, &v.Transcript,
		&v.Language, &v.TranscriptSource, &v.UploadedBy, &created, &updated)
	if err != nil {
		return nil, mapErr(err)
	}
	v.CreatedAt, v.UpdatedAt = parseTime(created), parseTime(updated)
	return &v, nil
}

// --- Notes ---

func (s *Store) CreateNote(ctx context.Context, n *store.Note) error {
	store.PrepareNote(n)
	cols, err := encodeNote(n)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO notes (id, user_id, video_id, title, content, structured, highlights, tags,
		                    folder, is_translated, translation, is_pinned, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.VideoID, n.Title, n.Content, cols.structured, cols.highlights, cols.tags,
		n.Folder, n.IsTranslated, cols.translation, n.IsPinned, fmtTime(n.CreatedAt), fmtTime(n.UpdatedAt))
	return mapErr(err)
}

func (s *Store) UpdateNote(ctx context.Context, n *store.Note) error {
	n.Normalize()
	n.UpdatedAt = store.Now()
	cols, err := encodeNote(n)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE notes SET title = ?, content = ?, structured = ?, highlights = ?, tags = ?, folder = ?,
		                  is_translated = ?, translation = ?, is_pinned = ?, updated_at = ?
		 WHERE id = ?`,
		n.Title, n.Content, cols.structured, cols.highlights, cols.tags, n.Folder,
		n.IsTranslated, cols.translation, n.IsPinned, fmtTime(n.UpdatedAt), n.ID)
	if err != nil {
		return mapErr(err)
	}
	return requireRow(res)
}

func (s *Store) DeleteNote(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return mapErr(err)
	}
	return requireRow(res)
}

const noteCols = `id, user_id, video_id, title, content, structured, highlights, tags,
	folder, is_translated, translation, is_pinned, created_at, updated_at`

func (s *Store) NoteByID(ctx context.Context, id string) (*store.Note, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+noteCols+` FROM notes WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	notes, err := scanNotes(rows)
	if err != nil {
		return nil, err
	}
	if len(notes) == 0 {
		return nil, store.ErrNotFound
	}
	return &notes[0], nil
}

func (s *Store) ListNotes(ctx context.Context, f store.NoteFilter) ([]store.Note, error) {
	var (
		where = []string{"user_id = ?"}
		args  = []any{f.UserID}
	)
	if f.Folder != "" {
		where = append(where, "folder = ?")
		args = append(args, f.Folder)
	}
	if len(f.Tags) > 0 {
		marks := strings.TrimSuffix(strings.Repeat("?,", len(f.Tags)), ",")
		where = append(where, `EXISTS (SELECT 1 FROM json_each(notes.tags) WHERE json_each.value IN (`+marks+`))`)
		for _, t := range f.Tags {
			args = append(args, t)
		}
	}
	if f.Search != "" {
		pattern := "%" + escapeLike(strings.ToLower(f.Search)) + "%"
		where = append(where, `(fold(title) LIKE ? ESCAPE '\' OR fold(content) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}

	query := `SELECT ` + noteCols + ` FROM notes WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY is_pinned DESC, created_at DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return scanNotes(rows)
}

type noteJSON struct {
	structured, highlights, tags string
	translation                  sql.NullString
}

func encodeNote(n *store.Note) (noteJSON, error) {
	var out noteJSON
	b, err := json.Marshal(n.Structured)
	if err != nil {
		return out, err
	}
	out.structured = string(b)
	if b, err = json.Marshal(n.Highlights); err != nil {
		return out, err
	}
	out.highlights = string(b)
	if b, err = json.Marshal(n.Tags); err != nil {
		return out, err
	}
	out.tags = string(b)
	if n.Translation != nil {
		if b, err = json.Marshal(n.Translation); err != nil {
			return out, err
		}
		out.translation = sql.NullString{String: string(b), Valid: true}
	}
	return out, nil
}

func scanNotes(rows *sql.Rows) ([]store.Note, error) {
	defer rows.Close()
	notes := []store.Note{}
	for rows.Next() {
		var (
			n                store.Note
			cols             noteJSON
			created, updated string
		)
		err := rows.Scan(&n.ID, &n.UserID, &n.VideoID, &n.Title, &n.Content,
			&cols.structured, &cols.highlights, &cols.tags, &n.Folder, &n.IsTranslated,
			&cols.translation, &n.IsPinned, &created, &updated)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(cols.structured), &n.Structured); err != nil {
			return nil, fmt.Errorf("note %s structured: %w", n.ID, err)
		}
		if err := json.Unmarshal([]byte(cols.highlights), &n.Highlights); err != nil {
			return nil, fmt.Errorf("note %s highlights: %w", n.ID, err)
		}
		if err := json.Unmarshal([]byte(cols.tags), &n.Tags); err != nil {
			return nil, fmt.Errorf("note %s tags: %w", n.ID, err)
		}
		if cols.translation.Valid {
			var tr store.Translation
			if err := json.Unmarshal([]byte(cols.translation.String), &tr); err != nil {
				return nil, fmt.Errorf("note %s translation: %w", n.ID, err)
			}
			n.Translation = &tr
		}
		n.CreatedAt, n.UpdatedAt = parseTime(created), parseTime(updated)
		n.Normalize()
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// --- helpers ---

func fmtTime(t time.Time) string { return t.UTC().Format(tsLayout) }

func parseTime(s string) time.Time {
	t, err := time.Parse(tsLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t.UTC()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return store.ErrNotFound
	case strings.Contains(err.Error(), "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
	}
	return err
}
