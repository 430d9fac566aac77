package pipeline

import (
	"fmt"
	"reflect"

	"dario.cat/mergo"

	"github.com/aluiziolira/go-scrape-perfumes/models"
)

// wholeMaps keeps a populated map as one unit instead of letting mergo add keys into it:
// mixing counts from two renders would describe neither.
type wholeMaps struct{}

var (
	distributionType = reflect.TypeOf(models.VoteDistribution{})
	noteImagesType   = reflect.TypeOf(map[string]string{})
)

func (wholeMaps) Transformer(t reflect.Type) func(dst, src reflect.Value) error {
	if t == distributionType || t == noteImagesType {
		return func(dst, src reflect.Value) error {
			if dst.Len() == 0 && src.Len() > 0 && dst.CanSet() {
				dst.Set(src)
			}
			return nil
		}
	}
	return nil
}

// Merge folds src into dst. Fields already populated on dst are never replaced by empty
// ones. With refresh set, src also wins wherever it carries strictly more data: a longer
// description or list, a distribution with more votes, a rating backed by more votes.
func Merge(dst, src *models.Perfume, refresh bool) error {
	if dst == nil || src == nil {
		return nil
	}
	if dst.URL != src.URL {
		return fmt.Errorf("merge: url mismatch %q != %q", dst.URL, src.URL)
	}
	if err := mergo.Merge(dst, src, mergo.WithTransformers(wholeMaps{})); err != nil {
		return fmt.Errorf("merge %s: %w", dst.URL, err)
	}
	if refresh {
		takeRicher(dst, src)
	}
	return nil
}

func takeRicher(dst, src *models.Perfume) {
	if len(src.Description) > len(dst.Description) {
		dst.Description = src.Description
	}
	longer := func(dst *[]string, src []string) {
		if len(src) > len(*dst) {
			*dst = src
		}
	}
	longer(&dst.TopNotes, src.TopNotes)
	longer(&dst.MiddleNotes, src.MiddleNotes)
	longer(&dst.BaseNotes, src.BaseNotes)
	longer(&dst.Accords, src.Accords)

	if len(src.NoteImages) > len(dst.NoteImages) {
		dst.NoteImages = src.NoteImages
	}
	for _, dim := range models.Dimensions {
		if src.Distribution(dim).Total() > dst.Distribution(dim).Total() {
			dst.SetDistribution(dim, src.Distribution(dim))
		}
	}
	if src.Votes > dst.Votes && src.Rating > 0 {
		dst.Rating, dst.Votes = src.Rating, src.Votes
	}
}
