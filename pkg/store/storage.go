// Package store defines the persistence surface of the pipeline. The
// postgres subpackage implements it; the mining and export packages consume
// it through the interfaces defined here.
package store

import (
	"context"

	"github.com/plantmine/triplextract/pkg/mining"
	"github.com/plantmine/triplextract/pkg/ncbi"
	"github.com/plantmine/triplextract/pkg/pubmed"
)

// AssociationSummary is one aggregated (gene, trait) association for a
// species, with its evidence metrics. Rows with only zero scores are
// excluded at the query level.
type AssociationSummary struct {
	GeneNCBIID    string
	GeneSymbol    string
	TraitID       string
	TraitSynonyms string
	MaxScore      int
	EvidenceCount int
}

// Storage is the full persistence contract: the registry lookups the
// association builder needs, document and mention persistence, dictionary
// import/export, and the aggregation reads the exporter works from.
type Storage interface {
	mining.Store

	// AddDocument persists a document with its authors, paragraphs and
	// species/gene mention rows, and returns the document id plus the
	// paragraph ids in paragraph order.
	AddDocument(ctx context.Context, document *pubmed.Document) (int64, []int64, error)
	// AddTraitMention persists one trait match and returns its id.
	AddTraitMention(ctx context.Context, paragraphID int64, traitID string, offset, length int, surface string) (int64, error)

	ImportSpecies(ctx context.Context, species map[string]string) error
	SpeciesDictionary(ctx context.Context) (map[string]string, error)
	ImportGenes(ctx context.Context, genes map[string]*ncbi.Gene) error
	ImportTraits(ctx context.Context, traits map[string]string) error
	TraitDictionary(ctx context.Context) (map[string]string, error)

	SpeciesName(ctx context.Context, taxID int) (string, error)
	AssociationSummaries(ctx context.Context, taxID int) ([]AssociationSummary, error)
}
