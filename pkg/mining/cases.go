// Package mining turns the annotations and trait matches of a document into
// scored (species, gene, trait) association evidence. The classifier
// distinguishes nine cases by how close the three entities appear in the
// text, from full sentence-level agreement down to document-level
// co-occurrence.
package mining

// CaseType classifies the structural proximity of a species, gene and trait
// triple. The numeric values are persisted and must stay stable.
type CaseType int

const (
	// Case1A: gene and trait in the same sentence, species attributed to
	// the gene via its tax id.
	Case1A CaseType = iota + 1
	// Case1B: gene, trait and species all in the same sentence.
	Case1B
	// Case1C: gene and trait in the same sentence, species elsewhere in
	// the paragraph.
	Case1C
	// Case1D: gene and trait in the same sentence, species in the title
	// or abstract.
	Case1D
	// Case2A: gene and trait in the same paragraph, species attributed to
	// the gene via its tax id.
	Case2A
	// Case2BA: gene and trait in the same paragraph, species in the same
	// sentence as the trait.
	Case2BA
	// Case2BB: gene and trait in the same paragraph, species in the same
	// sentence as the gene.
	Case2BB
	// Case2C: gene, trait and species in the same paragraph, each in a
	// different sentence.
	Case2C
	// Case2D: gene and trait in the same paragraph, species in the title
	// or abstract.
	Case2D
)

func (c CaseType) String() string {
	switch c {
	case Case1A:
		return "CASE_1A"
	case Case1B:
		return "CASE_1B"
	case Case1C:
		return "CASE_1C"
	case Case1D:
		return "CASE_1D"
	case Case2A:
		return "CASE_2A"
	case Case2BA:
		return "CASE_2BA"
	case Case2BB:
		return "CASE_2BB"
	case Case2C:
		return "CASE_2C"
	case Case2D:
		return "CASE_2D"
	}
	return "CASE_UNKNOWN"
}
