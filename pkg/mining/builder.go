package mining

import (
	"context"
	"math"
	"strconv"

	"github.com/plantmine/triplextract/pkg/logger"
	"github.com/plantmine/triplextract/pkg/pubmed"
)

// missingTaxID marks a gene whose registry entry carries no taxonomic id.
const missingTaxID = -1

// TraitMatch is a persisted trait occurrence within a paragraph.
type TraitMatch struct {
	TraitID   string
	Surface   string
	Start     int
	MentionID int64
}

// Evidence is one scored association observation. SpeciesMentionID is nil
// when the species is attributed via the gene's taxonomy rather than via a
// species mention in the text.
type Evidence struct {
	DocumentID       int64
	ParagraphID      int64
	SpeciesID        int
	SpeciesMentionID *int64
	GeneID           int64
	GeneMentionID    int64
	TraitID          string
	TraitMentionID   int64
	TraitSurface     string
	Case             CaseType
	Score            int
}

// Store is the persistence surface the builder depends on. GeneTaxID
// returns -1 for genes without a known taxonomic id.
type Store interface {
	GeneTaxID(ctx context.Context, ncbiGeneID string) (int, error)
	GeneID(ctx context.Context, ncbiGeneID string) (int64, error)
	GeneMentionID(ctx context.Context, paragraphID int64, ncbiGeneID string, offset int) (int64, error)
	SpeciesMentionID(ctx context.Context, paragraphID int64, speciesID string, offset int) (int64, error)
	ParagraphID(ctx context.Context, documentID int64, text string) (int64, error)
	AddAssociationEvidence(ctx context.Context, evidence Evidence) error
}

// Linguist resolves sentence spans. Satisfied by nlp.Analyzer.
type Linguist interface {
	SentenceBounds(text string, pos int) (start, end int)
}

// Builder extracts association evidence from a paragraph's trait matches and
// gene mentions. Species are considered both at paragraph and at document
// level, and only when their id matches the tax id of the gene at hand.
type Builder struct {
	store   Store
	ling    Linguist
	species map[string]string
}

// NewBuilder creates a Builder over the given store, linguist and relevant
// species allow-list (tax id to synonym list).
func NewBuilder(store Store, ling Linguist, species map[string]string) *Builder {
	return &Builder{store: store, ling: ling, species: species}
}

// Extract classifies every (trait match, gene mention) pair of the paragraph
// and writes the resulting evidence. A failure on one pair is logged and
// does not stop the remaining pairs.
func (b *Builder) Extract(ctx context.Context, document *pubmed.Document, documentID int64, paragraph *pubmed.Paragraph, paragraphID int64, matches []TraitMatch) {
	for _, match := range matches {
		ambiguity := ScoreParagraph(paragraph, matches)
		sentStart, sentEnd := b.ling.SentenceBounds(paragraph.Text, match.Start)
		for _, gene := range paragraph.GeneAnnotations {
			// Species mentions already attributed to this (trait, gene)
			// pair, so the document-level fallback does not re-add them.
			seenMentions := make(map[int64]struct{})
			for _, ncbiGeneID := range gene.IDs {
				err := b.extractPair(ctx, document, documentID, paragraph, paragraphID, match, ambiguity, sentStart, sentEnd, gene, ncbiGeneID, seenMentions)
				if err != nil {
					logger.Warn("Association extraction failed",
						"document", document.PubmedID, "gene", ncbiGeneID, "trait", match.TraitID, "err", err)
				}
			}
		}
	}
}

func (b *Builder) extractPair(ctx context.Context, document *pubmed.Document, documentID int64, paragraph *pubmed.Paragraph, paragraphID int64,
	match TraitMatch, ambiguity AmbiguityScore, sentStart, sentEnd int, gene *pubmed.Annotation, ncbiGeneID string, seenMentions map[int64]struct{}) error {

	taxID, err := b.store.GeneTaxID(ctx, ncbiGeneID)
	if err != nil {
		return err
	}
	geneID, err := b.store.GeneID(ctx, ncbiGeneID)
	if err != nil {
		return err
	}
	geneMentionID, err := b.store.GeneMentionID(ctx, paragraphID, ncbiGeneID, gene.Offset)
	if err != nil {
		return err
	}

	evidence := Evidence{
		DocumentID:     documentID,
		ParagraphID:    paragraphID,
		GeneID:         geneID,
		GeneMentionID:  geneMentionID,
		TraitID:        match.TraitID,
		TraitMentionID: match.MentionID,
		TraitSurface:   match.Surface,
	}

	if sentStart < gene.Offset && gene.Offset < sentEnd {
		// Trait and gene share a sentence.
		if taxID != missingTaxID && b.relevantTaxID(taxID) {
			evidence.SpeciesID = taxID
			evidence.SpeciesMentionID = nil
			b.emit(ctx, evidence, Case1A, 60)
		}
		for _, species := range paragraph.SpeciesAnnotations {
			for _, speciesID := range species.IDs {
				id, ok := parseSpeciesID(speciesID)
				if !ok || taxID != id {
					continue
				}
				mentionID, err := b.store.SpeciesMentionID(ctx, paragraphID, speciesID, species.Offset)
				if err != nil {
					return err
				}
				seenMentions[mentionID] = struct{}{}
				evidence.SpeciesID = id
				evidence.SpeciesMentionID = &mentionID
				if sentStart < species.Offset && species.Offset < sentEnd {
					b.emit(ctx, evidence, Case1B, 100)
				} else if score := scale(80, ambiguity.Species); score > 0 {
					b.emit(ctx, evidence, Case1C, score)
				}
			}
		}
		b.documentCases(ctx, document.TitleSpecies, document, documentID, paragraphID, taxID, geneID, geneMentionID, match, seenMentions, Case1D, 2, 50)
		b.documentCases(ctx, document.AbstractSpecies, document, documentID, paragraphID, taxID, geneID, geneMentionID, match, seenMentions, Case1D, 2, 40)
		return nil
	}

	// Trait and gene only share the paragraph.
	if taxID != missingTaxID && b.relevantTaxID(taxID) && len(paragraph.SpeciesAnnotations) == 0 {
		evidence.SpeciesID = taxID
		evidence.SpeciesMentionID = nil
		b.emit(ctx, evidence, Case2A, 40)
	}
	for _, species := range paragraph.SpeciesAnnotations {
		for _, speciesID := range species.IDs {
			id, ok := parseSpeciesID(speciesID)
			if !ok || taxID != id {
				continue
			}
			mentionID, err := b.store.SpeciesMentionID(ctx, paragraphID, speciesID, species.Offset)
			if err != nil {
				return err
			}
			evidence.SpeciesID = id
			evidence.SpeciesMentionID = &mentionID
			if sentStart < species.Offset && species.Offset < sentEnd {
				// Species shares the trait's sentence.
				if score := scale(60, ambiguity.Genes); score > 0 {
					b.emit(ctx, evidence, Case2BA, score)
					seenMentions[mentionID] = struct{}{}
				}
				continue
			}
			spStart, spEnd := b.ling.SentenceBounds(paragraph.Text, species.Offset)
			gStart, gEnd := b.ling.SentenceBounds(paragraph.Text, gene.Offset)
			if spStart == gStart && spEnd == gEnd {
				// Species shares the gene's sentence.
				if score := scale(60, ambiguity.Traits); score > 0 {
					b.emit(ctx, evidence, Case2BB, score)
					seenMentions[mentionID] = struct{}{}
				}
			} else if score := scale(50, ambiguity.Total); score > 0 {
				b.emit(ctx, evidence, Case2C, score)
				seenMentions[mentionID] = struct{}{}
			}
		}
	}
	b.documentCases(ctx, document.TitleSpecies, document, documentID, paragraphID, taxID, geneID, geneMentionID, match, seenMentions, Case2D, 1, 30)
	b.documentCases(ctx, document.AbstractSpecies, document, documentID, paragraphID, taxID, geneID, geneMentionID, match, seenMentions, Case2D, 1, 20)
	return nil
}

// documentCases handles the fallback where the species only appears in the
// title or abstract. The score grows with the document-wide occurrence count
// of the species id, capped. At most one evidence record per distinct
// species id is emitted per call, and mentions already attributed to the
// pair are skipped.
func (b *Builder) documentCases(ctx context.Context, annotations []*pubmed.Annotation, document *pubmed.Document, documentID, paragraphID int64,
	taxID int, geneID, geneMentionID int64, match TraitMatch, seenMentions map[int64]struct{}, caseType CaseType, multiplier, cap int) {

	addedSpecies := make(map[int]struct{})
	for _, species := range annotations {
		for _, speciesID := range species.IDs {
			id, ok := parseSpeciesID(speciesID)
			if !ok || taxID != id {
				continue
			}
			mentionParagraphID, err := b.store.ParagraphID(ctx, documentID, species.Paragraph.Text)
			if err != nil {
				logger.Warn("Paragraph lookup failed", "document", document.PubmedID, "err", err)
				continue
			}
			mentionID, err := b.store.SpeciesMentionID(ctx, mentionParagraphID, speciesID, species.Offset)
			if err != nil {
				logger.Warn("Species mention lookup failed", "document", document.PubmedID, "err", err)
				continue
			}
			if _, used := seenMentions[mentionID]; used {
				continue
			}
			if _, added := addedSpecies[id]; added {
				continue
			}
			score := multiplier * document.RelevantSpeciesIDs[speciesID]
			if score > cap {
				score = cap
			}
			evidence := Evidence{
				DocumentID:       documentID,
				ParagraphID:      paragraphID,
				SpeciesID:        id,
				SpeciesMentionID: &mentionID,
				GeneID:           geneID,
				GeneMentionID:    geneMentionID,
				TraitID:          match.TraitID,
				TraitMentionID:   match.MentionID,
				TraitSurface:     match.Surface,
			}
			if b.emit(ctx, evidence, caseType, score) {
				addedSpecies[id] = struct{}{}
			}
		}
	}
}

// emit writes one evidence record and reports success.
func (b *Builder) emit(ctx context.Context, evidence Evidence, caseType CaseType, score int) bool {
	evidence.Case = caseType
	evidence.Score = score
	if err := b.store.AddAssociationEvidence(ctx, evidence); err != nil {
		logger.Warn("Writing association evidence failed",
			"case", caseType.String(), "score", score, "trait", evidence.TraitID, "err", err)
		return false
	}
	return true
}

func (b *Builder) relevantTaxID(taxID int) bool {
	_, ok := b.species[strconv.Itoa(taxID)]
	return ok
}

func parseSpeciesID(value string) (int, bool) {
	id, err := strconv.Atoi(value)
	if err != nil {
		logger.Warn("Species annotation with non-numeric id", "id", value)
		return 0, false
	}
	return id, true
}

func scale(base int, multiplier float64) int {
	return int(math.Round(float64(base) * multiplier))
}
