// Package export turns mined associations into the tab-separated triple
// files downstream analyses consume. Parental trait terms are propagated so
// a gene associated with "drought tolerance" also counts for the broader
// "stress trait".
package export

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/plantmine/triplextract/pkg/logger"
	"github.com/plantmine/triplextract/pkg/store"
)

// Reader is the storage surface the exporter reads from.
type Reader interface {
	SpeciesName(ctx context.Context, taxID int) (string, error)
	AssociationSummaries(ctx context.Context, taxID int) ([]store.AssociationSummary, error)
}

// Hierarchy resolves the ancestor terms of a trait.
type Hierarchy interface {
	Ancestors(termID, prefix string) []string
}

// traitPrefix restricts propagation to trait-ontology terms; the ontology
// also links into foreign namespaces (PATO, BFO) that must not leak into
// the export.
const traitPrefix = "TO:"

// Triple is one exported (species, gene, trait) row. Propagated marks rows
// created by walking the trait hierarchy rather than mined directly.
type Triple struct {
	TaxID         int
	SpeciesName   string
	GeneNCBIID    string
	GeneSymbol    string
	TraitID       string
	TraitName     string
	MaxScore      int
	EvidenceCount int
	Propagated    bool
}

// Exporter assembles triples for one species at a time.
type Exporter struct {
	reader    Reader
	hierarchy Hierarchy
	traits    map[string]string
}

// NewExporter creates an Exporter. The traits dictionary names the
// propagated terms; ancestors without a dictionary entry are dropped.
func NewExporter(reader Reader, hierarchy Hierarchy, traits map[string]string) *Exporter {
	return &Exporter{reader: reader, hierarchy: hierarchy, traits: traits}
}

// Triples returns the mined triples of a species followed by their
// propagated parent-term triples. A propagated triple inherits the metrics
// of the triple it was derived from; when several mined triples share a
// parent, the first one wins.
func (e *Exporter) Triples(ctx context.Context, taxID int) ([]Triple, error) {
	speciesName, err := e.reader.SpeciesName(ctx, taxID)
	if err != nil {
		return nil, err
	}
	summaries, err := e.reader.AssociationSummaries(ctx, taxID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(summaries))
	triples := make([]Triple, 0, len(summaries))
	for _, summary := range summaries {
		triples = append(triples, Triple{
			TaxID:         taxID,
			SpeciesName:   firstSynonym(speciesName),
			GeneNCBIID:    summary.GeneNCBIID,
			GeneSymbol:    summary.GeneSymbol,
			TraitID:       summary.TraitID,
			TraitName:     firstSynonym(summary.TraitSynonyms),
			MaxScore:      summary.MaxScore,
			EvidenceCount: summary.EvidenceCount,
		})
		seen[summary.GeneNCBIID+"/"+summary.TraitID] = struct{}{}
	}

	mined := len(triples)
	for i := 0; i < mined; i++ {
		base := triples[i]
		for _, ancestor := range e.hierarchy.Ancestors(base.TraitID, traitPrefix) {
			key := base.GeneNCBIID + "/" + ancestor
			if _, ok := seen[key]; ok {
				continue
			}
			synonyms, ok := e.traits[ancestor]
			if !ok {
				continue
			}
			seen[key] = struct{}{}
			parent := base
			parent.TraitID = ancestor
			parent.TraitName = firstSynonym(synonyms)
			parent.Propagated = true
			triples = append(triples, parent)
		}
	}

	logger.Info("Collected triples", "tax_id", taxID, "mined", mined, "propagated", len(triples)-mined)
	return triples, nil
}

// WriteTSV writes triples as tab-separated rows without a header, one
// triple per line.
func (e *Exporter) WriteTSV(w io.Writer, triples []Triple) error {
	writer := csv.NewWriter(w)
	writer.Comma = '\t'
	for _, triple := range triples {
		err := writer.Write([]string{
			strconv.Itoa(triple.TaxID),
			triple.SpeciesName,
			triple.GeneNCBIID,
			triple.GeneSymbol,
			triple.TraitID,
			triple.TraitName,
			strconv.Itoa(triple.MaxScore),
			strconv.Itoa(triple.EvidenceCount),
			strconv.FormatBool(triple.Propagated),
		})
		if err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// firstSynonym extracts the primary name from a pipe-separated synonym
// list, skipping a leading ontology id.
func firstSynonym(synonyms string) string {
	parts := strings.Split(synonyms, "|")
	for i, part := range parts {
		parts[i] = strings.TrimSpace(part)
	}
	if len(parts) > 1 && strings.Contains(parts[0], ":") {
		return parts[1]
	}
	return parts[0]
}
