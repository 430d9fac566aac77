package browser

import (
	"fmt"
	"strings"
	"time"

	"github.com/aluiziolira/go-scrape-perfumes/config"
)

// Rendered is a page snapshot taken once the render protocol has settled.
type Rendered struct {
	URL  string
	HTML string
	// DescriptionText is the live innerText of the description micro-attribute, empty
	// when the node was not rendered.
	DescriptionText string
	FetchedAt       time.Time
}

// readyMarker is the primary content marker awaited after navigation.
const readyMarker = "h1"

// listingMarker is awaited on brand pages before links are collected.
const listingMarker = "div.cell"

// lazySections are scrolled into view one by one; the site renders them only on intersection.
var lazySections = []string{"voting", "demographics", "pyramid"}

var blockMarkers = []string{
	"429 Too Many Requests",
	"you've opened more pages",
	"you&#39;ve opened more pages",
	"Just a moment...",
	"cf-chl-",
	"Attention Required! | Cloudflare",
}

// DetectBlock classifies a rendered document as blocked when it is shorter than minBytes or
// contains a known rate-limit or challenge marker.
func DetectBlock(url, html string, minBytes int) error {
	if len(html) < minBytes {
		return ErrBlocked{URL: url, Reason: fmt.Sprintf("content too short (%d bytes)", len(html))}
	}
	for _, marker := range blockMarkers {
		if strings.Contains(html, marker) {
			return ErrBlocked{URL: url, Reason: fmt.Sprintf("challenge marker %q", marker)}
		}
	}
	return nil
}

type scrollStep struct {
	js    string
	pause time.Duration
}

// scrollPlan is the deterministic staged scroll: incremental fractions of the page height,
// each lazy section into view, then top and bottom to settle rendering.
func scrollPlan(cfg *config.Config) []scrollStep {
	steps := make([]scrollStep, 0, cfg.ScrollSteps+len(lazySections)+2)
	for i := 1; i <= cfg.ScrollSteps; i++ {
		fraction := float64(i) / float64(cfg.ScrollSteps)
		pause := cfg.ScrollPause
		if i == cfg.ScrollSteps {
			pause += cfg.SettlePause
		}
		steps = append(steps, scrollStep{
			js:    fmt.Sprintf(`() => window.scrollTo(0, document.body.scrollHeight * %.4f)`, fraction),
			pause: pause,
		})
	}
	for _, id := range lazySections {
		steps = append(steps, scrollStep{
			js: fmt.Sprintf(`() => {
				const el = document.querySelector('#%[1]s') || document.getElementById('%[1]s');
				if (el) el.scrollIntoView({behavior: 'instant', block: 'center'});
			}`, id),
			pause: cfg.SectionPause,
		})
	}
	steps = append(steps,
		scrollStep{js: `() => window.scrollTo(0, 0)`, pause: 500 * time.Millisecond},
		scrollStep{js: `() => window.scrollTo(0, document.body.scrollHeight)`, pause: cfg.SettlePause},
	)
	return steps
}

// stealthPatchJS runs before any page script, on top of the go-rod/stealth evasions.
const stealthPatchJS = `(() => {
	Object.defineProperty(navigator, 'webdriver', {get: () => undefined});
	window.chrome = window.chrome || {runtime: {}};
	Object.defineProperty(navigator, 'languages', {get: () => ['en-US', 'en']});
})();`

const descriptionJS = `() => {
	const el = document.querySelector('[itemprop="description"]');
	return el ? el.innerText.trim() : '';
}`

// headingJS finds a leaf heading styled as a vote-card label. The class check keeps review
// text that happens to use the same word from matching.
const headingJS = `
	const findHeading = (label) => {
		const els = document.querySelectorAll('span,div,p');
		for (let i = 0; i < els.length; i++) {
			const cl = (els[i].className || '').toString().toLowerCase();
			const styled = cl.indexOf('uppercase') >= 0 || cl.indexOf('tw-rating-card-label') >= 0;
			if (styled && els[i].children.length === 0 &&
				els[i].textContent.trim().toUpperCase() === label) {
				return els[i];
			}
		}
		return null;
	};`

const scrollToHeadingJS = `(label) => {` + headingJS + `
	const heading = findHeading(label);
	if (!heading) return false;
	heading.scrollIntoView({behavior: 'instant', block: 'center'});
	return true;
}`

const headingBoxJS = `(label, maxDepth) => {` + headingJS + `
	const heading = findHeading(label);
	if (!heading) return null;
	let box = heading;
	for (let j = 0; j < maxDepth; j++) {
		box = box.parentElement;
		if (!box) break;
		const text = box.innerText || '';
		if (text.split('\n').length > 2) return text;
	}
	return null;
}`

// maxBoxDepth bounds the ancestor walk from a vote heading to its widget box.
const maxBoxDepth = 8
