package postgres

import (
	"context"
	"strconv"

	pgxv5 "github.com/jackc/pgx/v5"

	"github.com/plantmine/triplextract/pkg/logger"
	"github.com/plantmine/triplextract/pkg/ncbi"
)

// ImportSpecies bulk-loads the species dictionary. Non-numeric tax ids are
// skipped with a warning.
func (s *Store) ImportSpecies(ctx context.Context, species map[string]string) error {
	rows := make([][]any, 0, len(species))
	for id, synonyms := range species {
		taxID, err := strconv.Atoi(id)
		if err != nil {
			logger.Warn("Skipping species with non-numeric id", "id", id)
			continue
		}
		rows = append(rows, []any{taxID, synonyms})
	}
	count, err := s.conn.CopyFrom(ctx,
		pgxv5.Identifier{"species_synonym"},
		[]string{"id", "ncbi_synonyms"},
		pgxv5.CopyFromRows(rows))
	if err != nil {
		return err
	}
	logger.Info("Imported species dictionary", "count", count)
	return nil
}

// SpeciesDictionary reads the species allow-list back, keyed by tax id.
func (s *Store) SpeciesDictionary(ctx context.Context) (map[string]string, error) {
	rows, err := s.conn.Query(ctx, `SELECT id, ncbi_synonyms FROM species_synonym`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	species := make(map[string]string)
	for rows.Next() {
		var id int64
		var synonyms string
		if err := rows.Scan(&id, &synonyms); err != nil {
			return nil, err
		}
		species[strconv.FormatInt(id, 10)] = synonyms
	}
	return species, rows.Err()
}

// ImportGenes bulk-loads the NCBI gene registry. The gene_info dump has
// tens of millions of rows, COPY is the only workable path.
func (s *Store) ImportGenes(ctx context.Context, genes map[string]*ncbi.Gene) error {
	ordered := make([]*ncbi.Gene, 0, len(genes))
	for _, gene := range genes {
		ordered = append(ordered, gene)
	}
	count, err := s.conn.CopyFrom(ctx,
		pgxv5.Identifier{"gene_synonym"},
		[]string{"ncbi_id", "ncbi_synonyms", "symbol", "tax_id", "locus_tag", "db_xref", "source"},
		pgxv5.CopyFromSlice(len(ordered), func(i int) ([]any, error) {
			gene := ordered[i]
			var taxID *int64
			if parsed, err := strconv.ParseInt(gene.TaxID, 10, 64); err == nil {
				taxID = &parsed
			}
			return []any{gene.NCBIID, gene.Synonyms, gene.Symbol, taxID, gene.LocusTag, gene.DBXref, "NCBI"}, nil
		}))
	if err != nil {
		return err
	}
	logger.Info("Imported gene registry", "count", count)
	return nil
}

// ImportTraits bulk-loads the trait dictionary.
func (s *Store) ImportTraits(ctx context.Context, traits map[string]string) error {
	rows := make([][]any, 0, len(traits))
	for id, synonyms := range traits {
		rows = append(rows, []any{id, synonyms})
	}
	count, err := s.conn.CopyFrom(ctx,
		pgxv5.Identifier{"trait_synonym"},
		[]string{"id", "synonyms"},
		pgxv5.CopyFromRows(rows))
	if err != nil {
		return err
	}
	logger.Info("Imported trait dictionary", "count", count)
	return nil
}

// TraitDictionary reads the trait dictionary back.
func (s *Store) TraitDictionary(ctx context.Context) (map[string]string, error) {
	rows, err := s.conn.Query(ctx, `SELECT id, synonyms FROM trait_synonym`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	traits := make(map[string]string)
	for rows.Next() {
		var id, synonyms string
		if err := rows.Scan(&id, &synonyms); err != nil {
			return nil, err
		}
		traits[id] = synonyms
	}
	return traits, rows.Err()
}
