package handlers

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/geocoder89/notehub/internal/domain/note"
	"github.com/gin-gonic/gin"
)

// respondNotes writes a note list with an ETag and honours If-None-Match.
func respondNotes(ctx *gin.Context, notes []note.Note) {
	if notModified(ctx, notesETag(notes...)) {
		return
	}
	ctx.JSON(http.StatusOK, notes)
}

func respondNote(ctx *gin.Context, n note.Note) {
	if notModified(ctx, notesETag(n)) {
		return
	}
	ctx.JSON(http.StatusOK, n)
}

// notesETag fingerprints notes by id and updated_at; every write moves
// updated_at forward, so the tag changes whenever a listed note does.
func notesETag(notes ...note.Note) string {
	h := sha256.New()

	var buf [16]byte
	for _, n := range notes {
		binary.BigEndian.PutUint64(buf[:8], uint64(n.ID))
		binary.BigEndian.PutUint64(buf[8:], uint64(n.UpdatedAt.UnixNano()))
		h.Write(buf[:])
	}

	return `"` + hex.EncodeToString(h.Sum(nil)[:16]) + `"`
}

func notModified(ctx *gin.Context, etag string) bool {
	ctx.Header("ETag", etag)

	if !etagMatches(ctx.GetHeader("If-None-Match"), etag) {
		return false
	}
	ctx.Status(http.StatusNotModified)
	return true
}

// etagMatches uses weak comparison, so W/"x" matches "x".
func etagMatches(header, etag string) bool {
	header = strings.TrimSpace(header)
	if header == "" {
		return false
	}
	if header == "*" {
		return true
	}

	for _, candidate := range strings.Split(header, ",") {
		if strings.TrimPrefix(strings.TrimSpace(candidate), "W/") == etag {
			return true
		}
	}
	return false
}
