package api

import (
	"errors"
	"log/slog"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"

	"github.com/aluiziolira/go-scrape-perfumes/catalog"
	"github.com/aluiziolira/go-scrape-perfumes/models"
)

const imagePrefix = "/images"

// Source yields the catalog to answer from. *catalog.Store implements it.
type Source interface {
	Catalog() (*catalog.Catalog, error)
}

// Handler answers catalog queries.
type Handler struct {
	source Source
	logger *slog.Logger
}

// NewHandler creates a handler over source.
func NewHandler(source Source, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{source: source, logger: logger}
}

type perfumesQuery struct {
	Search    string `form:"search"`
	Brand     string `form:"brand"`
	Category  string `form:"category"`
	Gender    string `form:"gender"`
	Note      string `form:"note"`
	Accord    string `form:"accord"`
	Season    string `form:"season"`
	Price     string `form:"price"`
	Longevity string `form:"longevity"`
	Sillage   string `form:"sillage"`
	Dominant  bool   `form:"dominant"`
	Sort      string `form:"sort"`
	Order     string `form:"order"`
	Page      int    `form:"page"`
	Limit     int    `form:"limit"`
}

// perfumeView adds the served image path to a record.
type perfumeView struct {
	*models.Perfume
	ImagePath string `json:"image_path,omitempty"`
}

type perfumesResponse struct {
	Total    int           `json:"total"`
	Page     int           `json:"page"`
	Limit    int           `json:"limit"`
	Perfumes []perfumeView `json:"perfumes"`
}

// ListPerfumes handles GET /api/perfumes.
func (h *Handler) ListPerfumes(c *gin.Context) {
	var params perfumesQuery
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cat, ok := h.catalog(c)
	if !ok {
		return
	}

	page, err := cat.Query(catalog.Query{
		Search:    params.Search,
		Brand:     params.Brand,
		Category:  params.Category,
		Gender:    params.Gender,
		Note:      params.Note,
		Accord:    params.Accord,
		Price:     params.Price,
		Longevity: params.Longevity,
		Sillage:   params.Sillage,
		Season:    params.Season,
		Dominant:  params.Dominant,
		Sort:      params.Sort,
		Order:     params.Order,
		Page:      params.Page,
		Limit:     params.Limit,
	})
	if err != nil {
		if errors.Is(err, catalog.ErrInvalidQuery) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.fail(c, err)
		return
	}

	resp := perfumesResponse{
		Total:    page.Total,
		Page:     page.Page,
		Limit:    page.Limit,
		Perfumes: make([]perfumeView, 0, len(page.Perfumes)),
	}
	for _, rec := range page.Perfumes {
		view := perfumeView{Perfume: rec}
		if rec.ImageLocal != "" {
			view.ImagePath = imagePrefix + "/" + path.Base(rec.ImageLocal)
		}
		resp.Perfumes = append(resp.Perfumes, view)
	}
	c.JSON(http.StatusOK, resp)
}

// Brands handles GET /api/brands.
func (h *Handler) Brands(c *gin.Context) {
	if cat, ok := h.catalog(c); ok {
		c.JSON(http.StatusOK, cat.Brands())
	}
}

// Accords handles GET /api/accords.
func (h *Handler) Accords(c *gin.Context) {
	if cat, ok := h.catalog(c); ok {
		c.JSON(http.StatusOK, cat.Accords())
	}
}

// Notes handles GET /api/notes.
func (h *Handler) Notes(c *gin.Context) {
	if cat, ok := h.catalog(c); ok {
		c.JSON(http.StatusOK, cat.Notes())
	}
}

// Stats handles GET /api/stats.
func (h *Handler) Stats(c *gin.Context) {
	if cat, ok := h.catalog(c); ok {
		c.JSON(http.StatusOK, cat.Stats())
	}
}

func (h *Handler) catalog(c *gin.Context) (*catalog.Catalog, bool) {
	cat, err := h.source.Catalog()
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	return cat, true
}

func (h *Handler) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "dataset unavailable"})
}
