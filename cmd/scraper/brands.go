package main

import (
	"strings"

	"github.com/aluiziolira/go-scrape-perfumes/models"
)

const (
	categoryDesigner = "designer"
	categoryNiche    = "niche"
)

var defaultDesignerBrands = []string{
	"Dior", "Yves Saint Laurent", "Gucci", "Chanel", "Giorgio Armani", "Versace",
	"Tom Ford", "Burberry", "Givenchy", "Lancome", "Dolce&Gabbana", "Paco Rabanne",
	"Hugo Boss", "Prada", "Narciso Rodriguez", "Jo Malone London", "Guerlain", "Kenzo",
	"Chloé", "Elie Saab", "Ferragamo", "Cacharel", "Jean Paul Gaultier", "Calvin Klein",
	"Police", "Trussardi", "Montblanc", "Maison Martin Margiela",
}

var defaultNicheBrands = []string{
	"Hermès", "Acqua di Parma", "Creed", "Byredo", "Kilian", "Xerjoff", "Sospiro",
	"Ex Nihilo", "The Merchant Of Venice", "Parfums de Marly", "Memo Paris", "Initio",
	"Penhaligons", "Tiziana Terenzi", "Maison Crivelli", "Maison Francis Kurkdjian",
	"Atkinsons", "Mancera", "Essential Parfums", "Toskovat", "Nishane",
}

// buildTargets turns the brand lists into scrape groups, designer brands first. Blank
// names and repeats are dropped; a brand listed in both keeps its first category.
func buildTargets(designer, niche []string, perBrand int) []models.Target {
	seen := make(map[string]bool)
	targets := make([]models.Target, 0, len(designer)+len(niche))
	add := func(brands []string, category string) {
		for _, brand := range brands {
			brand = strings.TrimSpace(brand)
			key := strings.ToLower(brand)
			if brand == "" || seen[key] {
				continue
			}
			seen[key] = true
			targets = append(targets, models.Target{Brand: brand, Category: category, Limit: perBrand})
		}
	}
	add(designer, categoryDesigner)
	add(niche, categoryNiche)
	return targets
}
