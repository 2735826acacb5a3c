package pipeline

import (
	"sort"

	"github.com/scentlab/accord/internal/knowledge"
	"github.com/scentlab/accord/internal/model"
)

// Deriver aggregates matched knowledge entries into deterministic formula
// features: the volatility split, dominant families, weighted notes, and
// declared allergens.
type Deriver struct {
	matcher *Matcher
}

func NewDeriver(matcher *Matcher) *Deriver {
	return &Deriver{matcher: matcher}
}

// Derive computes features over the matched subset of the formula.
// Unmatched items contribute nothing. The volatility profile is rescaled
// so it sums to 100 whenever any matched ingredient carries a known
// volatility class.
func (d *Deriver) Derive(items []model.NormalizedItem) model.DerivedFeatures {
	vol := map[string]float64{"top": 0, "heart": 0, "base": 0}
	familyWeight := make(map[string]float64)
	var familyOrder []string
	noteWeight := make(map[string]float64)
	var noteOrder []string
	allergenSet := make(map[string]struct{})

	for _, it := range items {
		entry, ok := d.matcher.Match(it.Label)
		if !ok {
			continue
		}

		switch entry.Volatility {
		case knowledge.VolatilityTop, knowledge.VolatilityHeart, knowledge.VolatilityBase:
			vol[string(entry.Volatility)] += it.WeightPercent
		}
		for _, fam := range entry.Families {
			if _, seen := familyWeight[fam]; !seen {
				familyOrder = append(familyOrder, fam)
			}
			familyWeight[fam] += it.WeightPercent
		}
		for _, note := range entry.PrimaryNotes {
			if _, seen := noteWeight[note]; !seen {
				noteOrder = append(noteOrder, note)
			}
			noteWeight[note] += it.WeightPercent
		}
		for _, a := range entry.Allergens {
			allergenSet[a] = struct{}{}
		}
	}

	volTotal := vol["top"] + vol["heart"] + vol["base"]
	if volTotal > 0 {
		for k, w := range vol {
			vol[k] = round2(w / volTotal * 100)
		}
	}

	// Stable sort keeps first-seen order among equal weights so the
	// output is deterministic for a given formula.
	sort.SliceStable(familyOrder, func(i, j int) bool {
		return familyWeight[familyOrder[i]] > familyWeight[familyOrder[j]]
	})
	if len(familyOrder) > 3 {
		familyOrder = familyOrder[:3]
	}
	if familyOrder == nil {
		familyOrder = []string{}
	}

	sort.SliceStable(noteOrder, func(i, j int) bool {
		return noteWeight[noteOrder[i]] > noteWeight[noteOrder[j]]
	})
	notes := make([]model.NoteWeight, 0, len(noteOrder))
	for _, n := range noteOrder {
		notes = append(notes, model.NoteWeight{Note: n, Weight: round2(noteWeight[n])})
	}

	allergens := make([]string, 0, len(allergenSet))
	for a := range allergenSet {
		allergens = append(allergens, a)
	}
	sort.Strings(allergens)

	return model.DerivedFeatures{
		VolatilityProfile: vol,
		DominantFamilies:  familyOrder,
		NotesByWeight:     notes,
		Allergens:         allergens,
	}
}
