package routes_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/JaimeStill/preflight/pkg/routes"
)

func named(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(name + ":" + chi.URLParam(r, "id")))
	}
}

func TestRegisterNestedGroups(t *testing.T) {
	r := chi.NewRouter()
	routes.Register(r, routes.Group{
		Prefix: "/sessions",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "", Handler: named("create")},
			{Method: "GET", Pattern: "/{id}", Handler: named("find")},
		},
		Children: []routes.Group{
			{
				Prefix: "/{id}/rules",
				Routes: []routes.Route{
					{Method: "GET", Pattern: "", Handler: named("rules")},
				},
			},
		},
	})

	tests := []struct {
		method, path, want string
	}{
		{"POST", "/sessions", "create:"},
		{"GET", "/sessions/abc", "find:abc"},
		{"GET", "/sessions/abc/rules", "rules:abc"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want, rec.Body.String())
		})
	}
}

func TestUnregisteredMethod(t *testing.T) {
	r := chi.NewRouter()
	routes.Register(r, routes.Group{
		Prefix: "/rules",
		Routes: []routes.Route{{Method: "GET", Pattern: "", Handler: named("list")}},
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("DELETE", "/rules", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
