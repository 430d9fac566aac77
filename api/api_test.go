package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aluiziolira/go-scrape-perfumes/catalog"
	"github.com/aluiziolira/go-scrape-perfumes/models"
)

type staticSource struct {
	cat *catalog.Catalog
	err error
}

func (s staticSource) Catalog() (*catalog.Catalog, error) {
	return s.cat, s.err
}

func testRecords() []*models.Perfume {
	return []*models.Perfume{
		{
			URL: "https://www.fragrantica.com/perfume/Creed/Aventus-9828.html", Name: "Aventus", Brand: "Creed",
			Category: "niche", Rating: 4.33, Votes: 20000, Accords: []string{"fruity"},
			TopNotes:   []string{"Pineapple"},
			ImageLocal: "perfume_images/Creed_Aventus.png",
			Longevity:  models.VoteDistribution{"long_lasting": 60, "moderate": 40},
		},
		{
			URL: "https://www.fragrantica.com/perfume/Dior/Sauvage-31861.html", Name: "Sauvage", Brand: "Dior",
			Category: "designer", Rating: 3.91, Votes: 30000, Accords: []string{"fresh spicy", "fruity"},
			MiddleNotes: []string{"Pepper"},
			Longevity:   models.VoteDistribution{"moderate": 70, "long_lasting": 30},
		},
	}
}

func setupRouter(t *testing.T, source Source, imageDir string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(NewHandler(source, logger), imageDir, logger)
}

func get(t *testing.T, router http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, target, http.NoBody)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestListPerfumes(t *testing.T) {
	router := setupRouter(t, staticSource{cat: catalog.New(testRecords())}, "")

	w := get(t, router, "/api/perfumes")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Total    int              `json:"total"`
		Page     int              `json:"page"`
		Limit    int              `json:"limit"`
		Perfumes []map[string]any `json:"perfumes"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, catalog.DefaultLimit, resp.Limit)
	require.Len(t, resp.Perfumes, 2)
	assert.Equal(t, "Aventus", resp.Perfumes[0]["name"])
	assert.Equal(t, "/images/Creed_Aventus.png", resp.Perfumes[0]["image_path"])
	assert.NotContains(t, resp.Perfumes[1], "image_path")
	assert.Equal(t, "https://www.fragrantica.com/perfume/Creed/Aventus-9828.html", resp.Perfumes[0]["url"])
}

func TestListPerfumesFilters(t *testing.T) {
	router := setupRouter(t, staticSource{cat: catalog.New(testRecords())}, "")

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"brand", "?brand=dior", []string{"Sauvage"}},
		{"accord", "?accord=fruity&sort=votes", []string{"Sauvage", "Aventus"}},
		{"longevity share", "?longevity=moderate", []string{"Sauvage", "Aventus"}},
		{"longevity dominant", "?longevity=long_lasting&dominant=true", []string{"Aventus"}},
		{"note", "?note=pepp", []string{"Sauvage"}},
		{"paged", "?sort=name&order=asc&page=2&limit=1", []string{"Sauvage"}},
		{"past the end", "?page=9223372036854775807", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(t, router, "/api/perfumes"+tt.query)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			var resp struct {
				Perfumes []struct {
					Name string `json:"name"`
				} `json:"perfumes"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			got := make([]string, 0, len(resp.Perfumes))
			for _, p := range resp.Perfumes {
				got = append(got, p.Name)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestListPerfumesBadRequest(t *testing.T) {
	router := setupRouter(t, staticSource{cat: catalog.New(testRecords())}, "")

	for _, query := range []string{"?limit=1001", "?limit=abc", "?sort=price", "?longevity=forever"} {
		w := get(t, router, "/api/perfumes"+query)
		assert.Equal(t, http.StatusBadRequest, w.Code, query)
	}
}

func TestListings(t *testing.T) {
	router := setupRouter(t, staticSource{cat: catalog.New(testRecords())}, "")

	w := get(t, router, "/api/brands")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"name":"Creed","count":1},{"name":"Dior","count":1}]`, w.Body.String())

	w = get(t, router, "/api/accords")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"name":"fruity","count":2},{"name":"fresh spicy","count":1}]`, w.Body.String())

	w = get(t, router, "/api/notes")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `["Pepper","Pineapple"]`, w.Body.String())

	w = get(t, router, "/api/stats")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"total_perfumes":2,"total_brands":2,"total_notes":2,"avg_rating":4.12}`, w.Body.String())
}

func TestSourceError(t *testing.T) {
	router := setupRouter(t, staticSource{err: errors.New("corrupt dataset")}, "")

	w := get(t, router, "/api/stats")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "corrupt")
}

func TestServesImages(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Creed_Aventus.png"), []byte("png-bytes"), 0o644))
	router := setupRouter(t, staticSource{cat: catalog.New(nil)}, dir)

	w := get(t, router, "/images/Creed_Aventus.png")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "png-bytes", w.Body.String())
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
