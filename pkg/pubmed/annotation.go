package pubmed

import (
	"strings"

	"github.com/plantmine/triplextract/pkg/logger"
)

// AnnotationType represents the possible PubTator annotation types.
// Only GENE and SPECIES annotations are used downstream; the remaining
// variants exist so every incoming label parses to a known value.
type AnnotationType int

const (
	AnnotationGene AnnotationType = iota
	AnnotationSpecies
	AnnotationChemical
	AnnotationDisease
	AnnotationSNP
	AnnotationCellLine
	AnnotationProteinMutation
	AnnotationDNAMutation
	AnnotationDomainMotif
	AnnotationCopyNumberVariant
	AnnotationGenomicRegion
	AnnotationChromosome
	AnnotationDNAAcidChange
	AnnotationRefSeq
	AnnotationStrain
	AnnotationMutation
	AnnotationUnknown
	// AnnotationError marks annotations with a missing identifier, a known
	// defect in some PubTator exports. Such annotations are never used.
	AnnotationError
)

var annotationTypeNames = map[string]AnnotationType{
	"GENE":              AnnotationGene,
	"SPECIES":           AnnotationSpecies,
	"CHEMICAL":          AnnotationChemical,
	"DISEASE":           AnnotationDisease,
	"SNP":               AnnotationSNP,
	"CELLLINE":          AnnotationCellLine,
	"PROTEINMUTATION":   AnnotationProteinMutation,
	"DNAMUTATION":       AnnotationDNAMutation,
	"DOMAINMOTIF":       AnnotationDomainMotif,
	"COPYNUMBERVARIANT": AnnotationCopyNumberVariant,
	"GENOMICREGION":     AnnotationGenomicRegion,
	"CHROMOSOME":        AnnotationChromosome,
	"DNAACIDCHANGE":     AnnotationDNAAcidChange,
	"REFSEQ":            AnnotationRefSeq,
	"STRAIN":            AnnotationStrain,
	"MUTATION":          AnnotationMutation,
}

// ParseAnnotationType maps a free-text annotation label to its type.
// Unknown labels map to AnnotationUnknown with a warning; parsing never fails.
func ParseAnnotationType(label string) AnnotationType {
	if t, ok := annotationTypeNames[strings.ToUpper(label)]; ok {
		return t
	}
	logger.Warn("Unknown annotation type", "type", label)
	return AnnotationUnknown
}

// Annotation is a single pre-computed entity mention inside a paragraph.
// An annotation may carry several external identifiers (ambiguous mentions).
// The offset is relative to the start of the owning paragraph.
type Annotation struct {
	Type      AnnotationType `json:"type"`
	IDs       []string       `json:"ids"`
	Offset    int            `json:"offset"`
	Length    int            `json:"length"`
	Text      string         `json:"text"`
	Paragraph *Paragraph     `json:"-"`
}

func newAnnotation(raw biocAnnotation, paragraph *Paragraph, paragraphOffset int) *Annotation {
	ann := &Annotation{
		Type:      AnnotationUnknown,
		Paragraph: paragraph,
		Offset:    raw.Location.Offset - paragraphOffset,
		Length:    raw.Location.Length,
		Text:      raw.Text,
	}
	for _, infon := range raw.Infons {
		switch infon.Key {
		case "type":
			ann.Type = ParseAnnotationType(infon.Value)
		case "identifier":
			if infon.Value == "" {
				// Identifier-less annotations are unusable.
				ann.Type = AnnotationError
				return ann
			}
			for _, id := range strings.Split(infon.Value, ";") {
				ann.addID(id)
			}
		}
	}
	return ann
}

func (a *Annotation) addID(id string) {
	for _, existing := range a.IDs {
		if existing == id {
			return
		}
	}
	a.IDs = append(a.IDs, id)
}

// Equal reports whether two annotations carry the same identifier set at the
// same offset. Used to deduplicate gene mentions within a paragraph.
func (a *Annotation) Equal(other *Annotation) bool {
	if a.Offset != other.Offset || len(a.IDs) != len(other.IDs) {
		return false
	}
	ids := make(map[string]struct{}, len(a.IDs))
	for _, id := range a.IDs {
		ids[id] = struct{}{}
	}
	for _, id := range other.IDs {
		if _, ok := ids[id]; !ok {
			return false
		}
	}
	return true
}

// IsGene reports whether the annotation is a usable gene mention.
func (a *Annotation) IsGene() bool {
	if a.Type != AnnotationGene {
		return false
	}
	for _, id := range a.IDs {
		if id == "None" {
			return false
		}
	}
	return true
}

// IsSpecies reports whether the annotation is a species mention.
func (a *Annotation) IsSpecies() bool {
	return a.Type == AnnotationSpecies
}
