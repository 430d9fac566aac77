package parser

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	topNotesRe    = regexp.MustCompile(`(?i)top notes?\s+(?:are|is)\s+([^;.]+?)(?:;|\.)`)
	middleNotesRe = regexp.MustCompile(`(?i)middle notes?\s+(?:are|is)\s+([^;.]+?)(?:;|\.)`)
	baseNotesRe   = regexp.MustCompile(`(?i)base notes?\s+(?:are|is)\s+([^;.]+?)(?:\.|$)`)
	noteSplitRe   = regexp.MustCompile(`,\s*(?:and\s+)?|\s+and\s+`)
)

// noteTiers is the three-level ingredient pyramid.
type noteTiers struct {
	top, middle, base []string
}

func (t noteTiers) empty() bool {
	return len(t.top) == 0 && len(t.middle) == 0 && len(t.base) == 0
}

// pyramid is what the ingredient section yields: items grouped under the last seen
// header, every item in document order, and the CDN image of each item.
type pyramid struct {
	tiers  noteTiers
	all    []string
	images map[string]string
}

const noteImageHost = "fimgs.net"

// SplitNotes splits a "A, B and C" list into its items, dropping single characters.
func SplitNotes(list string) []string {
	var out []string
	for _, item := range noteSplitRe.Split(list, -1) {
		item = strings.TrimSpace(item)
		if len(item) > 1 {
			out = append(out, item)
		}
	}
	return dedupe(out)
}

func notesFromDescription(description string) noteTiers {
	match := func(re *regexp.Regexp) []string {
		m := re.FindStringSubmatch(description)
		if m == nil {
			return nil
		}
		return SplitNotes(m[1])
	}
	return noteTiers{
		top:    match(topNotesRe),
		middle: match(middleNotesRe),
		base:   match(baseNotesRe),
	}
}

func pyramidTier(text string) string {
	switch strings.ToUpper(text) {
	case "TOP NOTES", "TOP NOTE":
		return "top"
	case "MIDDLE NOTES", "MIDDLE NOTE", "HEART NOTES", "HEART NOTE":
		return "middle"
	case "BASE NOTES", "BASE NOTE":
		return "base"
	}
	return ""
}

// parsePyramid walks the section in document order. Header leaves switch the current
// tier; image alt texts are the note labels.
func parsePyramid(root *html.Node) *pyramid {
	out := &pyramid{}
	if root == nil {
		return out
	}
	var top, middle, base []string
	current := ""

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if !hasElementChild(c) {
				if tier := pyramidTier(nodeText(c)); tier != "" {
					current = tier
				}
			}
			if c.Data == "img" {
				if alt := strings.TrimSpace(attr(c, "alt")); alt != "" {
					out.all = append(out.all, alt)
					switch current {
					case "top":
						top = append(top, alt)
					case "middle":
						middle = append(middle, alt)
					case "base":
						base = append(base, alt)
					}
					if src := attr(c, "src"); strings.Contains(src, noteImageHost) {
						if out.images == nil {
							out.images = make(map[string]string)
						}
						out.images[alt] = src
					}
				}
			}
			walk(c)
		}
	}
	walk(root)

	out.tiers = noteTiers{top: dedupe(top), middle: dedupe(middle), base: dedupe(base)}
	out.all = dedupe(out.all)
	return out
}

var noteStrategies = []strategy[noteTiers]{
	try("description", func(p *page) (noteTiers, bool) {
		if p.description == "" {
			return noteTiers{}, false
		}
		t := notesFromDescription(p.description)
		return t, !t.empty()
	}),
	try("pyramid", func(p *page) (noteTiers, bool) {
		t := p.pyramid().tiers
		return t, !t.empty()
	}),
	try("pyramid-flat", func(p *page) (noteTiers, bool) {
		all := p.pyramid().all
		return noteTiers{top: all}, len(all) > 0
	}),
}
