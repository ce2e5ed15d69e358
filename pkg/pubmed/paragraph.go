package pubmed

import (
	"strings"

	"github.com/plantmine/triplextract/pkg/logger"
)

// ParagraphType represents the section a paragraph belongs to. The ordinal
// order matters: types at or beyond the METHODS cutoff are discarded.
// Articles without sections use custom title types, which are normalized to
// ParagraphPlain during construction.
type ParagraphType int

const (
	ParagraphTitle ParagraphType = iota
	ParagraphTitle1
	ParagraphTitle2
	ParagraphTitle3
	ParagraphTitle4
	ParagraphTitle5
	ParagraphTitleCaption
	ParagraphAbstract
	ParagraphAbstractTitle1
	ParagraphIntro
	ParagraphResults
	ParagraphDiscuss
	ParagraphConcl
	ParagraphCase
	ParagraphSuppl
	ParagraphAppendix
	ParagraphPlain
	ParagraphMethods
	ParagraphFig
	ParagraphFigCaption
	ParagraphFigCaptionTitle
	ParagraphTable
	ParagraphTableCaption
	ParagraphTableFootnote
	ParagraphTableCaptionTitle
	ParagraphCompInt
	ParagraphAbbr
	ParagraphRef
	ParagraphAuthCont
	ParagraphAckFund
	ParagraphKeyword
	ParagraphReviewInfo
	ParagraphFront
	ParagraphFootnote
	// ParagraphUndefined handles newly added section labels.
	ParagraphUndefined
)

// sectionIgnoreCutoff: paragraphs of this type or later are discarded.
const sectionIgnoreCutoff = ParagraphMethods

// maxParagraphLength filters very long paragraphs, which generally
// correspond to badly formatted text.
const maxParagraphLength = 20_000

var paragraphTypeNames = map[string]ParagraphType{
	"TITLE":               ParagraphTitle,
	"TITLE_1":             ParagraphTitle1,
	"TITLE_2":             ParagraphTitle2,
	"TITLE_3":             ParagraphTitle3,
	"TITLE_4":             ParagraphTitle4,
	"TITLE_5":             ParagraphTitle5,
	"TITLE_CAPTION":       ParagraphTitleCaption,
	"ABSTRACT":            ParagraphAbstract,
	"ABSTRACT_TITLE_1":    ParagraphAbstractTitle1,
	"INTRO":               ParagraphIntro,
	"RESULTS":             ParagraphResults,
	"DISCUSS":             ParagraphDiscuss,
	"CONCL":               ParagraphConcl,
	"CASE":                ParagraphCase,
	"SUPPL":               ParagraphSuppl,
	"APPENDIX":            ParagraphAppendix,
	"PARAGRAPH":           ParagraphPlain,
	"METHODS":             ParagraphMethods,
	"FIG":                 ParagraphFig,
	"FIG_CAPTION":         ParagraphFigCaption,
	"FIG_CAPTION_TITLE":   ParagraphFigCaptionTitle,
	"TABLE":               ParagraphTable,
	"TABLE_CAPTION":       ParagraphTableCaption,
	"TABLE_FOOTNOTE":      ParagraphTableFootnote,
	"TABLE_CAPTION_TITLE": ParagraphTableCaptionTitle,
	"COMP_INT":            ParagraphCompInt,
	"ABBR":                ParagraphAbbr,
	"REF":                 ParagraphRef,
	"AUTH_CONT":           ParagraphAuthCont,
	"ACK_FUND":            ParagraphAckFund,
	"KEYWORD":             ParagraphKeyword,
	"REVIEW_INFO":         ParagraphReviewInfo,
	"FRONT":               ParagraphFront,
	"FOOTNOTE":            ParagraphFootnote,
}

var paragraphTypeStrings = func() map[ParagraphType]string {
	names := make(map[ParagraphType]string, len(paragraphTypeNames))
	for name, t := range paragraphTypeNames {
		names[t] = name
	}
	names[ParagraphUndefined] = "UNDEFINED"
	return names
}()

// ParseParagraphType maps a free-text section label to its type. Unknown
// labels map to ParagraphUndefined with an error log; parsing never fails.
func ParseParagraphType(label string) ParagraphType {
	if t, ok := paragraphTypeNames[strings.ToUpper(label)]; ok {
		return t
	}
	logger.Error("Unknown paragraph type detected", "type", strings.ToUpper(label))
	return ParagraphUndefined
}

func (t ParagraphType) String() string {
	if name, ok := paragraphTypeStrings[t]; ok {
		return name
	}
	return "UNDEFINED"
}

// Paragraph is one validated passage of a document with its species and gene
// mentions. Paragraphs are only retained in a document when relevant: known
// section type before the METHODS cutoff, non-empty text under the length
// bound, either a title or more than three words, and (outside
// title/abstract) at least one gene mention.
type Paragraph struct {
	Type               ParagraphType `json:"type"`
	Text               string        `json:"text"`
	SpeciesAnnotations []*Annotation `json:"species_annotations"`
	GeneAnnotations    []*Annotation `json:"gene_annotations"`

	relevant bool
}

// IsRelevant reports whether the paragraph qualifies for association mining.
func (p *Paragraph) IsRelevant() bool {
	return p.relevant
}

func newParagraph(raw biocPassage, filters Filters) *Paragraph {
	p := &Paragraph{}

	// section_type is only present in full-text articles; abstract-only
	// records carry the section in the plain type infon instead.
	sectionLabels := raw.infonValues("section_type")
	if len(sectionLabels) == 0 {
		sectionLabels = raw.infonValues("type")
	}
	if len(sectionLabels) != 1 {
		return p
	}
	p.Type = ParseParagraphType(sectionLabels[0])
	if p.Type >= sectionIgnoreCutoff {
		return p
	}

	// Sub-title variants carry no section semantics of their own.
	switch p.Type {
	case ParagraphTitle1, ParagraphTitle2, ParagraphTitle3, ParagraphTitle4,
		ParagraphTitle5, ParagraphTitleCaption, ParagraphAbstractTitle1:
		p.Type = ParagraphPlain
	}

	p.Text = raw.Text
	if p.Text == "" || len(p.Text) >= maxParagraphLength {
		return p
	}
	if p.Type != ParagraphTitle && len(strings.Split(p.Text, " ")) <= 3 {
		return p
	}

	p.retrieveAnnotations(raw, filters)
	if len(p.GeneAnnotations) > 0 || p.Type == ParagraphTitle || p.Type == ParagraphAbstract {
		p.relevant = true
	}
	return p
}

// retrieveAnnotations splits raw annotations into species and gene mention
// lists. Species mentions are kept only when at least one id survives the
// allow-list, the surface text is longer than two characters, and the text is
// not block-listed. Gene mentions are kept when not block-listed and
// deduplicated by (ids, offset).
func (p *Paragraph) retrieveAnnotations(raw biocPassage, filters Filters) {
	for _, rawAnn := range raw.Annotations {
		ann := newAnnotation(rawAnn, p, raw.Offset)
		switch {
		case ann.IsSpecies():
			kept := ann.IDs[:0]
			for _, id := range ann.IDs {
				if _, ok := filters.Species[id]; ok {
					kept = append(kept, id)
				}
			}
			ann.IDs = kept
			if len(ann.IDs) == 0 || len(ann.Text) <= 2 {
				continue
			}
			if _, blocked := filters.SpeciesBlocklist[strings.ToLower(ann.Text)]; blocked {
				continue
			}
			p.SpeciesAnnotations = append(p.SpeciesAnnotations, ann)
		case ann.IsGene():
			if _, blocked := filters.GeneBlocklist[strings.ToLower(ann.Text)]; blocked {
				continue
			}
			if p.hasGeneAnnotation(ann) {
				continue
			}
			p.GeneAnnotations = append(p.GeneAnnotations, ann)
		}
	}
}

func (p *Paragraph) hasGeneAnnotation(ann *Annotation) bool {
	for _, existing := range p.GeneAnnotations {
		if existing.Equal(ann) {
			return true
		}
	}
	return false
}
