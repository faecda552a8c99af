package note

import (
	"errors"
	"strings"
	"time"
)

const (
	MaxTitleLength = 255
	MaxTagLength   = 50
)

var ErrNotFound = errors.New("note not found")

type Note struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"-"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateNoteRequest struct {
	Title   string   `json:"title" binding:"required,max=255"`
	Content string   `json:"content" binding:"required"`
	Tags    []string `json:"tags" binding:"omitempty,dive,min=1,max=50"`
}

// full replacement (PUT); omitted tags keep their stored value.
type ReplaceNoteRequest struct {
	Title   string    `json:"title" binding:"required,max=255"`
	Content string    `json:"content" binding:"required"`
	Tags    *[]string `json:"tags" binding:"omitnil,dive,min=1,max=50"`
}

// partial update (PATCH); nil fields are left untouched.
type PatchNoteRequest struct {
	Title   *string   `json:"title" binding:"omitnil,min=1,max=255"`
	Content *string   `json:"content" binding:"omitnil,min=1"`
	Tags    *[]string `json:"tags" binding:"omitnil,dive,min=1,max=50"`
}

// Patch is the storage-level change set shared by PUT and PATCH.
type Patch struct {
	Title   *string
	Content *string
	Tags    *[]string
}

func (p Patch) Empty() bool {
	return p.Title == nil && p.Content == nil && p.Tags == nil
}

func (r ReplaceNoteRequest) ToPatch() Patch {
	title, content := r.Title, r.Content
	return Patch{Title: &title, Content: &content, Tags: normalizeTagsPtr(r.Tags)}
}

func (r PatchNoteRequest) ToPatch() Patch {
	return Patch{Title: r.Title, Content: r.Content, Tags: normalizeTagsPtr(r.Tags)}
}

// SearchFilter narrows an owner's notes. Empty fields do not filter.
type SearchFilter struct {
	Tag     string
	Keyword string
}

func (f SearchFilter) IsEmpty() bool {
	return f.Tag == "" && f.Keyword == ""
}

func NewFromCreateRequest(userID int64, req CreateNoteRequest, now time.Time) Note {
	return Note{
		UserID:    userID,
		Title:     req.Title,
		Content:   req.Content,
		Tags:      NormalizeTags(req.Tags),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NormalizeTags trims each tag and drops blank ones, so stored tags match
// the trimmed tag queries exactly. It never returns nil so the JSON shape is
// always an array.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func normalizeTagsPtr(tags *[]string) *[]string {
	if tags == nil {
		return nil
	}
	out := NormalizeTags(*tags)
	return &out
}
