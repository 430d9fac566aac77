// Package parser extracts perfume fields from rendered item pages.
package parser

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	nethtml "golang.org/x/net/html"

	"github.com/aluiziolira/go-scrape-perfumes/models"
)

// Content is a rendered item page.
type Content struct {
	URL  string
	HTML string
	// DescriptionText is the live rendered text of the description node, if the
	// session could read it.
	DescriptionText string
}

// Result is a best-effort record plus the completeness note for logging.
type Result struct {
	Record  *models.Perfume
	Missing []string
	// Sources maps each populated field to the strategy that produced it.
	Sources map[string]string
}

const (
	minDescriptionLen = 30
	minReleaseYear    = 1900
	maxReleaseYear    = 2030
	accordWindow      = 4000
	maxAccords        = 12
)

var (
	titleAltPrefix = "perfume "
	launchedRe     = regexp.MustCompile(`(?i)launched in (\d{4})`)
	releasedRe     = regexp.MustCompile(`(?i)released in (\d{4})`)
	accordHeadRe   = regexp.MustCompile(`(?i)main accords`)
	accordChipRe   = regexp.MustCompile(`<span[^>]*class="[^"]*truncate[^"]*"[^>]*>([^<]{2,40})</span>`)

	audiencePhrases = []struct {
		re     *regexp.Regexp
		gender models.Gender
	}{
		{regexp.MustCompile(`(?i)\s*for women and men\s*`), models.GenderUnisex},
		{regexp.MustCompile(`(?i)\s*for women\s*`), models.GenderWomen},
		{regexp.MustCompile(`(?i)\s*for men\s*`), models.GenderMen},
	}
)

type page struct {
	content     Content
	doc         *goquery.Document
	description string
	pyr         *pyramid
}

func (p *page) pyramid() *pyramid {
	if p.pyr == nil {
		var root *nethtml.Node
		if sel := p.doc.Find("#pyramid"); sel.Length() > 0 {
			root = sel.Get(0)
		}
		p.pyr = parsePyramid(root)
	}
	return p.pyr
}

// Extract parses every field it can find. It never fails: a field no strategy can
// produce is left empty and listed in Result.Missing.
func Extract(content Content) Result {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content.HTML))
	if err != nil {
		doc = goquery.NewDocumentFromNode(&nethtml.Node{Type: nethtml.DocumentNode})
	}
	p := &page{content: content, doc: doc}
	rec := &models.Perfume{URL: content.URL}
	sources := make(map[string]string)
	note := func(field, source string) {
		if source != "" {
			sources[field] = source
		}
	}

	if title, src, ok := firstOf(p, titleStrategies...); ok {
		rec.Name, rec.Gender = ParseTitle(title)
		note("name", src)
	}
	if brand, src, ok := firstOf(p, brandStrategies...); ok {
		rec.Brand = brand
		note("brand", src)
	}
	if desc, src, ok := firstOf(p, descriptionStrategies...); ok {
		rec.Description = desc
		p.description = desc
		note("description", src)
	}
	if year, src, ok := firstOf(p, yearStrategies...); ok {
		rec.ReleaseYear = year
		note("release_year", src)
	}
	if tiers, src, ok := firstOf(p, noteStrategies...); ok {
		rec.TopNotes, rec.MiddleNotes, rec.BaseNotes = tiers.top, tiers.middle, tiers.base
		note("notes", src)
	}
	if images := p.pyramid().images; len(images) > 0 {
		rec.NoteImages = images
	}
	if accords, src, ok := firstOf(p, accordStrategies...); ok {
		rec.Accords = accords
		note("main_accords", src)
	}
	if rating, src, ok := firstOf(p, ratingStrategies...); ok {
		rec.Rating = rating
		note("rating", src)
	}
	if votes, src, ok := firstOf(p, voteCountStrategies...); ok {
		rec.Votes = votes
		note("votes", src)
	}
	if img, src, ok := firstOf(p, imageStrategies...); ok {
		rec.ImageURL = img
		note("image_url", src)
	}

	rec.Name = CleanName(rec.Name, rec.Brand)
	return Result{Record: rec, Missing: rec.MissingCore(), Sources: sources}
}

var titleStrategies = []strategy[string]{
	try("alt-marker", func(p *page) (string, bool) {
		var title string
		p.doc.Find("img[alt]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			alt, _ := s.Attr("alt")
			alt = collapseSpace(alt)
			if len(alt) > len(titleAltPrefix) && strings.EqualFold(alt[:len(titleAltPrefix)], titleAltPrefix) {
				title = strings.TrimSpace(alt[len(titleAltPrefix):])
				return false
			}
			return true
		})
		return title, title != ""
	}),
	try("heading", func(p *page) (string, bool) {
		h1 := p.doc.Find("h1").First()
		if h1.Length() == 0 {
			return "", false
		}
		title := nodeText(h1.Get(0))
		return title, title != ""
	}),
}

var brandStrategies = []strategy[string]{
	try("name-attribute", func(p *page) (string, bool) {
		var brand string
		p.doc.Find(`span[itemprop="name"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if s.Children().Length() > 0 {
				return true
			}
			brand = collapseSpace(s.Text())
			return brand == ""
		})
		return brand, brand != ""
	}),
}

var descriptionStrategies = []strategy[string]{
	try("live-text", func(p *page) (string, bool) {
		return acceptDescription(p.content.DescriptionText)
	}),
	try("markup", func(p *page) (string, bool) {
		sel := p.doc.Find(`[itemprop="description"]`).First()
		if sel.Length() == 0 {
			return "", false
		}
		return acceptDescription(nodeText(sel.Get(0)))
	}),
}

func acceptDescription(text string) (string, bool) {
	text = strings.TrimSpace(html.UnescapeString(text))
	if utf8.RuneCountInString(text) <= minDescriptionLen {
		return "", false
	}
	return text, true
}

func yearFrom(re *regexp.Regexp) func(*page) (int, bool) {
	return func(p *page) (int, bool) {
		m := re.FindStringSubmatch(p.description)
		if m == nil {
			return 0, false
		}
		year, err := strconv.Atoi(m[1])
		if err != nil || year < minReleaseYear || year > maxReleaseYear {
			return 0, false
		}
		return year, true
	}
}

var yearStrategies = []strategy[int]{
	try("launched-in", yearFrom(launchedRe)),
	try("released-in", yearFrom(releasedRe)),
}

var accordStrategies = []strategy[[]string]{
	try("accords-window", func(p *page) ([]string, bool) {
		raw := p.content.HTML
		loc := accordHeadRe.FindStringIndex(raw)
		if loc == nil {
			return nil, false
		}
		idx := loc[0]
		end := idx + accordWindow
		if end > len(raw) {
			end = len(raw)
		}
		var chips []string
		for _, m := range accordChipRe.FindAllStringSubmatch(raw[idx:end], -1) {
			chips = append(chips, html.UnescapeString(m[1]))
		}
		chips = dedupe(chips)
		if len(chips) > maxAccords {
			chips = chips[:maxAccords]
		}
		return chips, len(chips) > 0
	}),
}

var ratingStrategies = []strategy[float64]{
	try("rating-attribute", func(p *page) (float64, bool) {
		text := strings.TrimSpace(p.doc.Find(`[itemprop="ratingValue"]`).First().Text())
		if text == "" {
			return 0, false
		}
		rating, err := strconv.ParseFloat(text, 64)
		if err != nil || rating <= 0 {
			return 0, false
		}
		return rating, true
	}),
}

var voteCountStrategies = []strategy[int]{
	try("count-attribute", func(p *page) (int, bool) {
		return NormalizeVoteCount(p.doc.Find(`[itemprop="ratingCount"]`).First().Text())
	}),
}

var imageStrategies = []strategy[string]{
	try("image-attribute", func(p *page) (string, bool) {
		src, ok := p.doc.Find(`[itemprop="image"][src]`).First().Attr("src")
		src = strings.TrimSpace(src)
		return src, ok && src != ""
	}),
	try("cdn-asset", func(p *page) (string, bool) {
		var src string
		p.doc.Find(`[src*="` + noteImageHost + `"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			v, _ := s.Attr("src")
			if strings.Contains(v, "perfume") {
				src = v
				return false
			}
			return true
		})
		return src, src != ""
	}),
}

// ParseTitle splits "<name> for <audience>" into the name and its gender. The audience
// phrase is removed from the name; a title without one keeps its name unchanged.
func ParseTitle(title string) (string, models.Gender) {
	title = collapseSpace(html.UnescapeString(title))
	for _, phrase := range audiencePhrases {
		if phrase.re.MatchString(title) {
			return collapseSpace(phrase.re.ReplaceAllString(title, " ")), phrase.gender
		}
	}
	return title, models.GenderUnknown
}

// CleanName strips a trailing " <brand>" duplicated into the product name. A leading brand
// is left alone since it is often part of the product line.
func CleanName(name, brand string) string {
	if name == "" || brand == "" {
		return name
	}
	if suffix := " " + brand; strings.HasSuffix(name, suffix) {
		return strings.TrimSpace(strings.TrimSuffix(name, suffix))
	}
	return name
}

// NormalizeVoteCount parses a rating count such as "12,345" or "1.204".
func NormalizeVoteCount(text string) (int, bool) {
	text = strings.TrimSpace(text)
	text = strings.ReplaceAll(text, ",", "")
	text = strings.ReplaceAll(text, ".", "")
	if text == "" {
		return 0, false
	}
	n, err := strconv.Atoi(text)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// ValidateRecord ensures the extractor captured enough to keep the record.
func ValidateRecord(p *models.Perfume) error {
	if p == nil {
		return fmt.Errorf("record is nil")
	}
	if strings.TrimSpace(p.URL) == "" {
		return fmt.Errorf("record missing url")
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("record missing name for %s", p.URL)
	}
	for _, dim := range models.Dimensions {
		for label, count := range p.Distribution(dim) {
			if !dim.Accepts(label) {
				return fmt.Errorf("record %s: unknown %s label %q", p.URL, dim, label)
			}
			if count < 0 {
				return fmt.Errorf("record %s: negative %s count for %q", p.URL, dim, label)
			}
		}
	}
	return nil
}
