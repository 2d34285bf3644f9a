// Package store defines the persistence models and the Store interface
// implemented by the SQLite, Postgres and MongoDB backends.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a lookup matches nothing.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate is returned when a unique key (user email, platform video id) already exists.
	ErrDuplicate = errors.New("store: duplicate")
)

// DefaultFolder is assigned to notes saved without a folder.
const DefaultFolder = "General"

// Roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is an account.
type User struct {
	ID           string    `json:"id" bson:"_id"`
	Name         string    `json:"name" bson:"name"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"passwordHash"`
	Role         string    `json:"role" bson:"role"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Video is a fetched video with its transcript, stored once per platform video id.
type Video struct {
	ID               string    `json:"id" bson:"_id"`
	VideoID          string    `json:"videoId" bson:"videoId"`
	URL              string    `json:"url" bson:"url"`
	Title            string    `json:"title" bson:"title"`
	DurationSeconds  int       `json:"durationSeconds,omitempty" bson:"durationSeconds"`
	ChannelName      string    `json:"channelName,omitempty" bson:"channelName"`
	Transcript       string    `json:"transcript,omitempty" bson:"transcript"`
	Language         string    `json:"language" bson:"language"`
	TranscriptSource string    `json:"transcriptSource,omitempty" bson:"transcriptSource"`
	UploadedBy       string    `json:"uploadedBy" bson:"uploadedBy"`
	CreatedAt        time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Section is one heading of generated notes.
type Section struct {
	Heading string `json:"heading" bson:"heading"`
	Content string `json:"content" bson:"content"`
}

// Structured is the machine-readable form of generated notes.
type Structured struct {
	Summary   string    `json:"summary" bson:"summary"`
	KeyPoints []string  `json:"keyPoints" bson:"keyPoints"`
	Sections  []Section `json:"sections" bson:"sections"`
}

// Position is a character range inside note content.
type Position struct {
	Start int `json:"start" bson:"start"`
	End   int `json:"end" bson:"end"`
}

// Highlight colors.
const (
	ColorYellow = "yellow"
	ColorGreen  = "green"
	ColorBlue   = "blue"
	ColorPink   = "pink"
	ColorOrange = "orange"
)

// HighlightColors lists the accepted highlight colors.
var HighlightColors = []string{ColorYellow, ColorGreen, ColorBlue, ColorPink, ColorOrange}

// Highlight marks a span of note content.
type Highlight struct {
	Text     string   `json:"text" bson:"text"`
	Color    string   `json:"color" bson:"color"`
	Position Position `json:"position" bson:"position"`
}

// Translation is a stored translation of note content.
type Translation struct {
	Language string `json:"language" bson:"language"`
	Content  string `json:"content" bson:"content"`
}

// Note is a user's saved note for a video.
type Note struct {
	ID           string       `json:"id" bson:"_id"`
	UserID       string       `json:"user" bson:"user"`
	VideoID      string       `json:"video" bson:"video"` // Video.ID
	Title        string       `json:"title" bson:"title"`
	Content      string       `json:"content" bson:"content"`
	Structured   Structured   `json:"structuredNotes" bson:"structuredNotes"`
	Highlights   []Highlight  `json:"highlights" bson:"highlights"`
	Tags         []string     `json:"tags" bson:"tags"`
	Folder       string       `json:"folder" bson:"folder"`
	IsTranslated bool         `json:"isTranslated" bson:"isTranslated"`
	Translation  *Translation `json:"translatedContent,omitempty" bson:"translatedContent,omitempty"`
	IsPinned     bool         `json:"isPinned" bson:"isPinned"`
	CreatedAt    time.Time    `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt" bson:"updatedAt"`
}

// NoteFilter selects a user's notes. Empty fields do not filter.
// Tags match any-of; Search is a case-insensitive substring of title or content.
type NoteFilter struct {
	UserID string
	Folder string
	Tags   []string
	Search string
	Limit  int
}

// Store is implemented by every persistence backend.
// Listing order is pinned first, then newest first.
type Store interface {
	CreateUser(ctx context.Context, u *User) error
	UserByID(ctx context.Context, id string) (*User, error)
	UserByEmail(ctx context.Context, email string) (*User, error)

	CreateVideo(ctx context.Context, v *Video) error
	VideoByID(ctx context.Context, id string) (*Video, error)
	VideoByVideoID(ctx context.Context, videoID string) (*Video, error)

	CreateNote(ctx context.Context, n *Note) error
	NoteByID(ctx context.Context, id string) (*Note, error)
	UpdateNote(ctx context.Context, n *Note) error
	DeleteNote(ctx context.Context, id string) error
	ListNotes(ctx context.Context, f NoteFilter) ([]Note, error)

	Ping(ctx context.Context) error
	Close() error
}

// NewID returns a fresh record id.
func NewID() string { return uuid.NewString() }

// Now returns the current time in UTC truncated to milliseconds, the
// precision every backend round-trips.
func Now() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }

// PrepareUser fills id, role and timestamps on a new user.
func PrepareUser(u *User) {
	if u.ID == "" {
		u.ID = NewID()
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	now := Now()
	u.CreatedAt, u.UpdatedAt = now, now
}

// PrepareVideo fills id, language and timestamps on a new video.
func PrepareVideo(v *Video) {
	if v.ID == "" {
		v.ID = NewID()
	}
	if v.Language == "" {
		v.Language = "en"
	}
	now := Now()
	v.CreatedAt, v.UpdatedAt = now, now
}

// PrepareNote fills id, folder, non-nil slices and timestamps on a new note.
func PrepareNote(n *Note) {
	if n.ID == "" {
		n.ID = NewID()
	}
	if n.Folder == "" {
		n.Folder = DefaultFolder
	}
	n.Normalize()
	now := Now()
	n.CreatedAt, n.UpdatedAt = now, now
}

// Normalize replaces nil slices so they serialize as [] rather than null.
func (n *Note) Normalize() {
	if n.Highlights == nil {
		n.Highlights = []Highlight{}
	}
	if n.Tags == nil {
		n.Tags = []string{}
	}
	if n.Structured.KeyPoints == nil {
		n.Structured.KeyPoints = []string{}
	}
	if n.Structured.Sections == nil {
		n.Structured.Sections = []Section{}
	}
}
