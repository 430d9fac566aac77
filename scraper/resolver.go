package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aluiziolira/go-scrape-perfumes/browser"
	"github.com/aluiziolira/go-scrape-perfumes/models"
)

type listingRenderer interface {
	RenderListing(ctx context.Context, url string) (*browser.Rendered, error)
}

// brandSlugOverrides covers designers whose page slug is not derivable from the name.
var brandSlugOverrides = map[string]string{
	"Bath & Body Works": "Bath-Body-Works",
	"Dolce&Gabbana":     "Dolce-Gabbana",
	"PARIS CORNER":      "Paris-Corner",
}

// BrandSlug converts a brand name into its designer page slug.
func BrandSlug(brand string) string {
	if slug, ok := brandSlugOverrides[brand]; ok {
		return slug
	}
	slug := strings.ReplaceAll(brand, " ", "-")
	return strings.ReplaceAll(slug, "&", "")
}

// BrandURL is the popularity-ordered designer page for brand.
func BrandURL(baseURL, brand string) string {
	return strings.TrimSuffix(baseURL, "/") + "/designers/" + BrandSlug(brand) + ".html#popular"
}

// ParseItemLinks collects item page links in document order, resolved against pageURL,
// deduplicated by their last path segment and capped at limit.
func ParseItemLinks(pageURL, html string, limit int) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	var links []string
	seen := make(map[string]struct{})
	doc.Find(`a[href*="/perfume/"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return true
		}
		abs := base.ResolveReference(ref)
		abs.Fragment = ""
		abs.RawQuery = ""
		if !strings.HasSuffix(abs.Path, ".html") || !strings.Contains(abs.Path, "/perfume/") {
			return true
		}
		key := path.Base(abs.Path)
		if _, ok := seen[key]; ok {
			return true
		}
		seen[key] = struct{}{}
		links = append(links, abs.String())
		return limit <= 0 || len(links) < limit
	})
	return links
}

// resolver turns a target group into item URLs, caching per brand for the run.
type resolver struct {
	baseURL string
	session listingRenderer
	retry   *retryManager
	cache   *lru.Cache[string, []string]
	logger  *slog.Logger
}

func newResolver(baseURL string, session listingRenderer, retry *retryManager, logger *slog.Logger) (*resolver, error) {
	cache, err := lru.New[string, []string](256)
	if err != nil {
		return nil, fmt.Errorf("create resolver cache: %w", err)
	}
	return &resolver{
		baseURL: baseURL,
		session: session,
		retry:   retry,
		cache:   cache,
		logger:  logger,
	}, nil
}

// Resolve returns the target's item URLs, most popular first. An empty group yields
// ErrGroupEmpty; session-start failures pass through untouched.
func (r *resolver) Resolve(ctx context.Context, target models.Target) ([]string, error) {
	if links, ok := r.cache.Get(target.Brand); ok && len(links) >= target.Limit {
		return links[:target.Limit], nil
	}

	pageURL := BrandURL(r.baseURL, target.Brand)
	r.logger.Info("resolving group", slog.String("brand", target.Brand), slog.String("url", pageURL))

	var links []string
	err := r.retry.Do(ctx, pageURL, func(ctx context.Context) error {
		rendered, err := r.session.RenderListing(ctx, pageURL)
		if err != nil {
			return err
		}
		links = ParseItemLinks(pageURL, rendered.HTML, target.Limit)
		return nil
	})
	if err != nil {
		if isFatal(err) {
			return nil, err
		}
		return nil, ErrGroupEmpty{Brand: target.Brand, Err: err}
	}
	if len(links) == 0 {
		return nil, ErrGroupEmpty{Brand: target.Brand}
	}

	r.cache.Add(target.Brand, links)
	return links, nil
}
