package votes

import (
	"context"
	"log/slog"

	"github.com/aluiziolira/go-scrape-perfumes/models"
)

// Locator finds a widget on the live page and returns the rendered text of its box.
// found is false when the widget is not on the page.
type Locator interface {
	LocateSection(ctx context.Context, label string) (text string, found bool, err error)
}

// Extractor reads vote distributions from a live session.
type Extractor struct {
	locator Locator
	logger  *slog.Logger
}

// NewExtractor returns an Extractor reading through locator.
func NewExtractor(locator Locator, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{locator: locator, logger: logger}
}

// Distribution returns the raw pairs under heading, or nil when the widget is missing
// or empty. Locator errors degrade to absence.
func (e *Extractor) Distribution(ctx context.Context, heading string) models.VoteDistribution {
	text, found, err := e.locator.LocateSection(ctx, heading)
	if err != nil {
		e.logger.Debug("vote widget unreadable",
			slog.String("heading", heading),
			slog.String("error", err.Error()),
		)
		return nil
	}
	if !found {
		return nil
	}
	return ParseSection(text, heading)
}

var dimensionHeadings = []struct {
	heading string
	dim     models.Dimension
}{
	{HeadingLongevity, models.DimensionLongevity},
	{HeadingSillage, models.DimensionSillage},
	{HeadingPriceValue, models.DimensionPriceValue},
}

// ExtractAll reads every dimension the record carries and stores it on rec. Each
// distribution is filtered to its vocabulary; season and day/night both come from the
// "when to wear" widget, or from the older "season" widget when that one is missing.
func (e *Extractor) ExtractAll(ctx context.Context, rec *models.Perfume) {
	for _, dh := range dimensionHeadings {
		rec.SetDistribution(dh.dim, e.Distribution(ctx, dh.heading).Filter(dh.dim))
	}

	when := e.Distribution(ctx, HeadingWhenToWear)
	season, dayNight := models.SplitWhenToWear(when)
	if season.Empty() && dayNight.Empty() {
		season, dayNight = models.SplitWhenToWear(e.Distribution(ctx, HeadingSeason))
	}
	rec.SetDistribution(models.DimensionSeason, season)
	rec.SetDistribution(models.DimensionDayNight, dayNight)
}
