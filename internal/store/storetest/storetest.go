// Package storetest is a conformance suite shared by every store backend.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_edunote/internal/store"
)

// Run exercises a backend. open must return an empty store; Run closes it.
func Run(t *testing.T, open func(t *testing.T) store.Store) {
	t.Helper()

	t.Run("users", func(t *testing.T) { testUsers(t, openClean(t, open)) })
	t.Run("videos", func(t *testing.T) { testVideos(t, openClean(t, open)) })
	t.Run("notes crud", func(t *testing.T) { testNotesCRUD(t, openClean(t, open)) })
	t.Run("notes listing", func(t *testing.T) { testNotesListing(t, openClean(t, open)) })
}

func openClean(t *testing.T, open func(t *testing.T) store.Store) store.Store {
	t.Helper()
	s := open(t)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Ping(context.Background()))
	return s
}

func testUsers(t *testing.T, s store.Store) {
	ctx := context.Background()

	u := &store.User{Name: "Ada", Email: "ada@example.com", PasswordHash: "hash"}
	require.NoError(t, s.CreateUser(ctx, u))
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, store.RoleUser, u.Role)
	assert.False(t, u.CreatedAt.IsZero())

	got, err := s.UserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "hash", got.PasswordHash)
	assert.True(t, u.CreatedAt.Equal(got.CreatedAt), "created %v != %v", u.CreatedAt, got.CreatedAt)

	got, err = s.UserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Name)

	err = s.CreateUser(ctx, &store.User{Name: "Dup", Email: "ada@example.com", PasswordHash: "x"})
	assert.True(t, errors.Is(err, store.ErrDuplicate), "got %v", err)

	_, err = s.UserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.UserByID(ctx, store.NewID())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testVideos(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := mustUser(t, s, "v@example.com")

	v := &store.Video{
		VideoID:          "dQw4w9WgXcQ",
		URL:              "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		Title:            "Never Gonna",
		DurationSeconds:  213,
		Transcript:       "hello world",
		TranscriptSource: "innertube",
		UploadedBy:       u.ID,
	}
	require.NoError(t, s.CreateVideo(ctx, v))
	assert.Equal(t, "en", v.Language)

	got, err := s.VideoByVideoID(ctx, "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, v.ID, got.ID)
	assert.Equal(t, 213, got.DurationSeconds)
	assert.Equal(t, "hello world", got.Transcript)

	got, err = s.VideoByID(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "dQw4w9WgXcQ", got.VideoID)

	err = s.CreateVideo(ctx, &store.Video{VideoID: "dQw4w9WgXcQ", URL: "x", UploadedBy: u.ID})
	assert.ErrorIs(t, err, store.ErrDuplicate)

	_, err = s.VideoByVideoID(ctx, "missing0000")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testNotesCRUD(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := mustUser(t, s, "n@example.com")
	v := mustVideo(t, s, u.ID, "aaaaaaaaaaa")

	n := &store.Note{
		UserID:  u.ID,
		VideoID: v.ID,
		Title:   "Lecture 1",
		Content: "<p>body</p>",
		Structured: store.Structured{
			Summary:   "sum",
			KeyPoints: []string{"k1", "k2"},
			Sections:  []store.Section{{Heading: "H", Content: "C"}},
		},
		Tags: []string{"go"},
	}
	require.NoError(t, s.CreateNote(ctx, n))
	assert.Equal(t, store.DefaultFolder, n.Folder)
	assert.NotNil(t, n.Highlights)

	got, err := s.NoteByID(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, n.Structured, got.Structured)
	assert.Equal(t, []string{"go"}, got.Tags)
	assert.Empty(t, got.Highlights)
	assert.Nil(t, got.Translation)
	assert.Equal(t, u.ID, got.UserID)
	assert.Equal(t, v.ID, got.VideoID)

	got.Highlights = append(got.Highlights, store.Highlight{
		Text: "body", Color: store.ColorGreen, Position: store.Position{Start: 3, End: 7},
	})
	got.Translation = &store.Translation{Language: "es", Content: "cuerpo"}
	got.IsTranslated = true
	got.IsPinned = true
	before := got.UpdatedAt
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, s.UpdateNote(ctx, got))

	again, err := s.NoteByID(ctx, n.ID)
	require.NoError(t, err)
	require.Len(t, again.Highlights, 1)
	assert.Equal(t, store.ColorGreen, again.Highlights[0].Color)
	assert.Equal(t, 7, again.Highlights[0].Position.End)
	require.NotNil(t, again.Translation)
	assert.Equal(t, "cuerpo", again.Translation.Content)
	assert.True(t, again.IsTranslated)
	assert.True(t, again.IsPinned)
	assert.True(t, again.UpdatedAt.After(before))
	assert.True(t, again.CreatedAt.Equal(n.CreatedAt))

	require.NoError(t, s.DeleteNote(ctx, n.ID))
	_, err = s.NoteByID(ctx, n.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteNote(ctx, n.ID), store.ErrNotFound)
	assert.ErrorIs(t, s.UpdateNote(ctx, &store.Note{ID: n.ID}), store.ErrNotFound)
}

func testNotesListing(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := mustUser(t, s, "l@example.com")
	other := mustUser(t, s, "o@example.com")
	v := mustVideo(t, s, u.ID, "bbbbbbbbbbb")

	mk := func(owner, title, content, folder string, tags []string, pinned bool) *store.Note {
		n := &store.Note{UserID: owner, VideoID: v.ID, Title: title, Content: content,
			Folder: folder, Tags: tags, IsPinned: pinned}
		require.NoError(t, s.CreateNote(ctx, n))
		time.Sleep(2 * time.Millisecond)
		return n
	}
	a := mk(u.ID, "Alpha", "graph theory", "", []string{"math"}, false)
	b := mk(u.ID, "Beta", "Go channels", "Work", []string{"go", "cs"}, false)
	c := mk(u.ID, "Gamma 50%", "pinned note", "Work", nil, true)
	d := mk(u.ID, "Delta", "more GRAPH stuff", "", []string{"cs"}, false)
	mk(other.ID, "Alpha", "someone else", "", []string{"math"}, true)

	ids := func(notes []store.Note) []string {
		out := make([]string, 0, len(notes))
		for _, n := range notes {
			out = append(out, n.ID)
		}
		return out
	}

	all, err := s.ListNotes(ctx, store.NoteFilter{UserID: u.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{c.ID, d.ID, b.ID, a.ID}, ids(all), "pinned first, then newest")

	got, err := s.ListNotes(ctx, store.NoteFilter{UserID: u.ID, Folder: "Work"})
	require.NoError(t, err)
	assert.Equal(t, []string{c.ID, b.ID}, ids(got))

	got, err = s.ListNotes(ctx, store.NoteFilter{UserID: u.ID, Tags: []string{"math", "go"}})
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID, a.ID}, ids(got), "tags match any-of")

	got, err = s.ListNotes(ctx, store.NoteFilter{UserID: u.ID, Search: "graph"})
	require.NoError(t, err)
	assert.Equal(t, []string{d.ID, a.ID}, ids(got), "search is case-insensitive over content")

	got, err = s.ListNotes(ctx, store.NoteFilter{UserID: u.ID, Search: "beta"})
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, ids(got), "search covers title")

	got, err = s.ListNotes(ctx, store.NoteFilter{UserID: u.ID, Search: "50%"})
	require.NoError(t, err)
	assert.Equal(t, []string{c.ID}, ids(got), "search is literal")

	got, err = s.ListNotes(ctx, store.NoteFilter{UserID: u.ID, Folder: "Work", Tags: []string{"cs"}, Search: "chan"})
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, ids(got))

	got, err = s.ListNotes(ctx, store.NoteFilter{UserID: u.ID, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = s.ListNotes(ctx, store.NoteFilter{UserID: store.NewID()})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	ru := mk(other.ID, "ПРИВЕТ мир", "Конспект ЛЕКЦИИ о Ёлках", "", nil, false)
	for _, q := range []string{"привет", "ПРИВЕТ", "лекции", "ёлках"} {
		got, err = s.ListNotes(ctx, store.NoteFilter{UserID: other.ID, Search: q})
		require.NoError(t, err)
		assert.Equal(t, []string{ru.ID}, ids(got), "search folds non-ASCII case: %q", q)
	}
}

func mustUser(t *testing.T, s store.Store, email string) *store.User {
	t.Helper()
	u := &store.User{Name: email, Email: email, PasswordHash: "h"}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func mustVideo(t *testing.T, s store.Store, owner, videoID string) *store.Video {
	t.Helper()
	v := &store.Video{VideoID: videoID, URL: "https://youtu.be/" + videoID, Title: "Video " + videoID, UploadedBy: owner}
	require.NoError(t, s.CreateVideo(context.Background(), v))
	return v
}
