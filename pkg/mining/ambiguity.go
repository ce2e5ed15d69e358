package mining

import (
	"github.com/plantmine/triplextract/pkg/pubmed"
)

// AmbiguityScore holds the paragraph-level discount multipliers, each in
// [0, 1]. A paragraph with a single distinct entity of every type scores 1.0
// across the board; every additional competing id lowers the multipliers.
type AmbiguityScore struct {
	Total   float64
	Traits  float64
	Genes   float64
	Species float64
}

// ScoreParagraph computes the ambiguity multipliers for a paragraph and its
// trait matches. Multiple mentions of the same id do not count as distinct.
func ScoreParagraph(paragraph *pubmed.Paragraph, matches []TraitMatch) AmbiguityScore {
	traitIDs := make(map[string]struct{})
	for _, match := range matches {
		traitIDs[match.TraitID] = struct{}{}
	}
	geneIDs := make(map[string]struct{})
	for _, annotation := range paragraph.GeneAnnotations {
		for _, id := range annotation.IDs {
			geneIDs[id] = struct{}{}
		}
	}
	speciesIDs := make(map[string]struct{})
	for _, annotation := range paragraph.SpeciesAnnotations {
		for _, id := range annotation.IDs {
			speciesIDs[id] = struct{}{}
		}
	}

	traitExcess := excess(len(traitIDs))
	geneExcess := excess(len(geneIDs))
	speciesExcess := excess(len(speciesIDs))
	totalExcess := traitExcess + geneExcess + speciesExcess

	return AmbiguityScore{
		Total:   discount(totalExcess, 1),
		Traits:  discount(traitExcess, 2),
		Genes:   discount(geneExcess, 2),
		Species: discount(speciesExcess, 2),
	}
}

// excess counts the distinct ids beyond the first.
func excess(count int) int {
	if count < 1 {
		count = 1
	}
	return count - 1
}

func discount(excess, weight int) float64 {
	value := 10 - excess*weight
	if value < 0 {
		value = 0
	}
	return float64(value) / 10
}
