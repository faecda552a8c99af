package integration_test

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestNotesFlowMemory(t *testing.T) {
	runNotesFlow(t, func(t *testing.T) *gin.Engine { return newMemoryRouter(t, testConfig()) })
}

func TestNotesFlowPostgres(t *testing.T) {
	runNotesFlow(t, newPostgresRouter)
}

func runNotesFlow(t *testing.T, newRouter func(t *testing.T) *gin.Engine) {
	t.Run("register then login", func(t *testing.T) {
		router := newRouter(t)
		register(t, router, "ada")

		anon := client{t: t, router: router}
		anon.expect(anon.do(http.MethodPost, "/auth/login", map[string]string{
			"username": "ada", "password": "password123",
		}), http.StatusOK)
		anon.expect(anon.do(http.MethodPost, "/auth/login", map[string]string{
			"username": "ada@example.com", "password": "password123",
		}), http.StatusOK)
		anon.expect(anon.do(http.MethodPost, "/auth/login", map[string]string{
			"username": "ada", "password": "nope-nope",
		}), http.StatusUnauthorized)
		anon.expect(anon.do(http.MethodPost, "/auth/login", map[string]string{
			"username": "ghost", "password": "password123",
		}), http.StatusNotFound)
	})

	t.Run("duplicate registration is a 400", func(t *testing.T) {
		router := newRouter(t)
		register(t, router, "ada")

		anon := client{t: t, router: router}
		w := anon.do(http.MethodPost, "/auth/register", map[string]string{
			"username": "ada", "email": "second@example.com", "password": "password123",
		})
		anon.expect(w, http.StatusBadRequest)
		if !strings.Contains(w.Body.String(), `"unique"`) {
			t.Fatalf("expected unique rule, got %s", w.Body.String())
		}
	})

	t.Run("notes require a token", func(t *testing.T) {
		router := newRouter(t)
		anon := client{t: t, router: router}
		anon.expect(anon.do(http.MethodGet, "/notes", nil), http.StatusUnauthorized)

		bogus := client{t: t, router: router, token: "not-a-jwt"}
		bogus.expect(bogus.do(http.MethodGet, "/notes", nil), http.StatusUnauthorized)
	})

	t.Run("create retrieve update delete", func(t *testing.T) {
		router := newRouter(t)
		u := register(t, router, "ada")

		w := u.do(http.MethodPost, "/notes", map[string]any{"title": "T", "content": "C", "tags": []string{"x"}})
		u.expect(w, http.StatusCreated)

		var created noteJSON
		decode(t, w, &created)
		if created.ID == 0 || created.Title != "T" || created.Content != "C" || len(created.Tags) != 1 || created.Tags[0] != "x" {
			t.Fatalf("unexpected note %+v", created)
		}
		if !created.CreatedAt.Equal(created.UpdatedAt) {
			t.Fatalf("created_at %s != updated_at %s", created.CreatedAt, created.UpdatedAt)
		}

		path := fmt.Sprintf("/notes/%d", created.ID)

		w = u.do(http.MethodGet, path, nil)
		u.expect(w, http.StatusOK)
		var got noteJSON
		decode(t, w, &got)
		if got.ID != created.ID || got.Title != "T" || !got.UpdatedAt.Equal(created.UpdatedAt) {
			t.Fatalf("round trip mismatch: %+v vs %+v", got, created)
		}

		prev := created
		for i := 0; i < 3; i++ {
			w = u.do(http.MethodPatch, path, map[string]any{"content": fmt.Sprintf("C%d", i)})
			u.expect(w, http.StatusOK)

			var updated noteJSON
			decode(t, w, &updated)
			if !updated.UpdatedAt.After(prev.UpdatedAt) {
				t.Fatalf("updated_at must increase: %s -> %s", prev.UpdatedAt, updated.UpdatedAt)
			}
			if !updated.CreatedAt.Equal(created.CreatedAt) {
				t.Fatalf("created_at changed: %s -> %s", created.CreatedAt, updated.CreatedAt)
			}
			if updated.Title != "T" || len(updated.Tags) != 1 {
				t.Fatalf("patch touched other fields: %+v", updated)
			}
			prev = updated
		}

		w = u.do(http.MethodPut, path, map[string]any{"title": "T2", "content": "C2", "tags": []string{}})
		u.expect(w, http.StatusOK)
		var replaced noteJSON
		decode(t, w, &replaced)
		if replaced.Title != "T2" || replaced.Tags == nil || len(replaced.Tags) != 0 {
			t.Fatalf("unexpected replace result %+v", replaced)
		}

		u.expect(u.do(http.MethodPut, path, map[string]any{"title": "only title"}), http.StatusBadRequest)

		u.expect(u.do(http.MethodDelete, path, nil), http.StatusNoContent)
		u.expect(u.do(http.MethodGet, path, nil), http.StatusNotFound)
		u.expect(u.do(http.MethodDelete, path, nil), http.StatusNotFound)
	})

	t.Run("notes are owner scoped", func(t *testing.T) {
		router := newRouter(t)
		a := register(t, router, "ada")
		b := register(t, router, "bob")

		w := a.do(http.MethodPost, "/notes", map[string]any{"title": "T", "content": "C", "tags": []string{"x"}})
		a.expect(w, http.StatusCreated)
		var n noteJSON
		decode(t, w, &n)
		path := fmt.Sprintf("/notes/%d", n.ID)

		b.expect(b.do(http.MethodGet, path, nil), http.StatusNotFound)
		b.expect(b.do(http.MethodPatch, path, map[string]any{"title": "stolen"}), http.StatusNotFound)
		b.expect(b.do(http.MethodPut, path, map[string]any{"title": "stolen", "content": "x"}), http.StatusNotFound)
		b.expect(b.do(http.MethodDelete, path, nil), http.StatusNotFound)

		w = b.do(http.MethodGet, "/notes", nil)
		b.expect(w, http.StatusOK)
		if strings.TrimSpace(w.Body.String()) != "[]" {
			t.Fatalf("bob should see no notes, got %s", w.Body.String())
		}

		w = b.do(http.MethodGet, "/notes/search?tag=x", nil)
		b.expect(w, http.StatusOK)
		if strings.TrimSpace(w.Body.String()) != "[]" {
			t.Fatalf("bob's search should be empty, got %s", w.Body.String())
		}

		// still intact for the owner
		w = a.do(http.MethodGet, path, nil)
		a.expect(w, http.StatusOK)
		if strings.Contains(w.Body.String(), "stolen") {
			t.Fatalf("foreign update leaked through: %s", w.Body.String())
		}
	})

	t.Run("list is newest first", func(t *testing.T) {
		router := newRouter(t)
		u := register(t, router, "ada")

		for _, title := range []string{"first", "second", "third"} {
			u.expect(u.do(http.MethodPost, "/notes", map[string]any{"title": title, "content": "c"}), http.StatusCreated)
			time.Sleep(2 * time.Millisecond)
		}

		w := u.do(http.MethodGet, "/notes", nil)
		u.expect(w, http.StatusOK)
		var list []noteJSON
		decode(t, w, &list)
		if len(list) != 3 || list[0].Title != "third" || list[2].Title != "first" {
			t.Fatalf("unexpected order: %+v", list)
		}
	})

	t.Run("search", func(t *testing.T) {
		router := newRouter(t)
		u := register(t, router, "ada")

		u.expect(u.do(http.MethodPost, "/notes", map[string]any{"title": "Shopping List", "content": "milk", "tags": []string{"cat"}}), http.StatusCreated)
		u.expect(u.do(http.MethodPost, "/notes", map[string]any{"title": "Ideas", "content": "100% done_ish", "tags": []string{"category"}}), http.StatusCreated)

		titles := func(path string) []string {
			w := u.do(http.MethodGet, path, nil)
			u.expect(w, http.StatusOK)
			var list []noteJSON
			decode(t, w, &list)
			out := make([]string, 0, len(list))
			for _, n := range list {
				out = append(out, n.Title)
			}
			return out
		}

		assertTitles := func(path string, want ...string) {
			t.Helper()
			got := titles(path)
			if strings.Join(got, "|") != strings.Join(want, "|") {
				t.Fatalf("%s: got %v, want %v", path, got, want)
			}
		}

		assertTitles("/notes/search_by_keyword?keyword=shopping", "Shopping List")
		assertTitles("/notes/search?q=MILK", "Shopping List")
		assertTitles("/notes/search_by_tag?tag=cat", "Shopping List")
		assertTitles("/notes/search?tag=category", "Ideas")
		assertTitles("/notes/search?tag=cat&q=ideas")
		assertTitles("/notes/search?q=%25", "Ideas")
		assertTitles("/notes/search?q=e_i", "Ideas")
		assertTitles("/notes/search?q=e_l")

		u.expect(u.do(http.MethodGet, "/notes/search", nil), http.StatusBadRequest)
		u.expect(u.do(http.MethodGet, "/notes/search?q=&tag=", nil), http.StatusBadRequest)
		u.expect(u.do(http.MethodGet, "/notes/search_by_tag", nil), http.StatusBadRequest)
	})
}
