package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/geocoder89/notehub/internal/domain/note"
	"github.com/geocoder89/notehub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type NoteStore interface {
	Create(ctx context.Context, userID int64, req note.CreateNoteRequest) (note.Note, error)
	List(ctx context.Context, userID int64) ([]note.Note, error)
	Search(ctx context.Context, userID int64, filter note.SearchFilter) ([]note.Note, error)
	GetByID(ctx context.Context, userID, id int64) (note.Note, error)
	Update(ctx context.Context, userID, id int64, patch note.Patch) (note.Note, error)
	Delete(ctx context.Context, userID, id int64) error
}

type NotesHandler struct {
	repo NoteStore
}

func NewNotesHandler(repo NoteStore) *NotesHandler {
	return &NotesHandler{repo: repo}
}

func (h *NotesHandler) ListNotes(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}

	cctx, cancel := storeContext(ctx, 2*time.Second)
	defer cancel()

	notes, err := h.repo.List(cctx, userID)
	if err != nil {
		h.internal(ctx, "list notes failed", err)
		return
	}

	respondNotes(ctx, notes)
}

func (h *NotesHandler) CreateNote(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}

	var req note.CreateNoteRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := storeContext(ctx, 2*time.Second)
	defer cancel()

	n, err := h.repo.Create(cctx, userID, req)
	if err != nil {
		h.internal(ctx, "create note failed", err)
		return
	}

	ctx.JSON(http.StatusCreated, n)
}

func (h *NotesHandler) GetNoteByID(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}

	id, ok := noteIDParam(ctx)
	if !ok {
		return
	}

	cctx, cancel := storeContext(ctx, 2*time.Second)
	defer cancel()

	n, err := h.repo.GetByID(cctx, userID, id)
	if err != nil {
		h.respondRepoError(ctx, "get note failed", err)
		return
	}

	respondNote(ctx, n)
}

// ReplaceNote handles PUT: title and content are required.
func (h *NotesHandler) ReplaceNote(ctx *gin.Context) {
	var req note.ReplaceNoteRequest
	h.update(ctx, &req, func() note.Patch { return req.ToPatch() })
}

// PatchNote handles PATCH: any subset of fields.
func (h *NotesHandler) PatchNote(ctx *gin.Context) {
	var req note.PatchNoteRequest
	h.update(ctx, &req, func() note.Patch { return req.ToPatch() })
}

func (h *NotesHandler) update(ctx *gin.Context, req interface{}, patch func() note.Patch) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}

	id, ok := noteIDParam(ctx)
	if !ok {
		return
	}

	if !BindJSON(ctx, req) {
		return
	}

	p := patch()
	if p.Empty() {
		RespondBadRequest(ctx, "Provide at least one of title, content or tags", nil)
		return
	}

	cctx, cancel := storeContext(ctx, 2*time.Second)
	defer cancel()

	n, err := h.repo.Update(cctx, userID, id, p)
	if err != nil {
		h.respondRepoError(ctx, "update note failed", err)
		return
	}

	ctx.JSON(http.StatusOK, n)
}

func (h *NotesHandler) DeleteNote(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}

	id, ok := noteIDParam(ctx)
	if !ok {
		return
	}

	cctx, cancel := storeContext(ctx, 2*time.Second)
	defer cancel()

	if err := h.repo.Delete(cctx, userID, id); err != nil {
		h.respondRepoError(ctx, "delete note failed", err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

// SearchNotes combines ?q= and ?tag=; at least one must be non-blank.
func (h *NotesHandler) SearchNotes(ctx *gin.Context) {
	filter := note.SearchFilter{
		Tag:     strings.TrimSpace(ctx.Query("tag")),
		Keyword: strings.TrimSpace(ctx.Query("q")),
	}

	if filter.IsEmpty() {
		RespondBadRequest(ctx, "Provide a search query or tag", gin.H{
			"fields": []FieldError{
				{Field: "q", Rule: "required_without", Param: "tag", Message: "is required when tag is empty"},
				{Field: "tag", Rule: "required_without", Param: "q", Message: "is required when q is empty"},
			},
		})
		return
	}

	h.search(ctx, filter)
}

func (h *NotesHandler) SearchByTag(ctx *gin.Context) {
	tag := strings.TrimSpace(ctx.Query("tag"))
	if tag == "" {
		RespondFieldErrors(ctx, FieldError{Field: "tag", Rule: "required", Message: validationMessage("required", "")})
		return
	}

	h.search(ctx, note.SearchFilter{Tag: tag})
}

func (h *NotesHandler) SearchByKeyword(ctx *gin.Context) {
	keyword := strings.TrimSpace(ctx.Query("keyword"))
	if keyword == "" {
		RespondFieldErrors(ctx, FieldError{Field: "keyword", Rule: "required", Message: validationMessage("required", "")})
		return
	}

	h.search(ctx, note.SearchFilter{Keyword: keyword})
}

func (h *NotesHandler) search(ctx *gin.Context, filter note.SearchFilter) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}

	cctx, cancel := storeContext(ctx, 2*time.Second)
	defer cancel()

	notes, err := h.repo.Search(cctx, userID, filter)
	if err != nil {
		h.internal(ctx, "search notes failed", err)
		return
	}

	respondNotes(ctx, notes)
}

func (h *NotesHandler) respondRepoError(ctx *gin.Context, msg string, err error) {
	if errors.Is(err, note.ErrNotFound) {
		RespondNotFound(ctx, "Note not found")
		return
	}
	h.internal(ctx, msg, err)
}

func (h *NotesHandler) internal(ctx *gin.Context, msg string, err error) {
	slog.ErrorContext(ctx.Request.Context(), msg, "err", err)
	RespondInternal(ctx, "Something went wrong")
}

func currentUser(ctx *gin.Context) (int64, bool) {
	id, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return 0, false
	}
	return id, true
}

// a malformed id cannot name any note, so it is a 404 like any other miss
func noteIDParam(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		RespondNotFound(ctx, "Note not found")
		return 0, false
	}
	return id, true
}
