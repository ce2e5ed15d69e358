package postgres

import (
	"context"

	"github.com/plantmine/triplextract/pkg/store"
)

// SpeciesName returns the pipe-separated name list of a species.
func (s *Store) SpeciesName(ctx context.Context, taxID int) (string, error) {
	var name string
	err := s.conn.QueryRow(ctx,
		`SELECT ncbi_synonyms FROM species_synonym WHERE id = $1`, patchSpeciesID(taxID)).Scan(&name)
	if err != nil {
		return "", err
	}
	return name, nil
}

// AssociationSummaries aggregates the mined associations of one species:
// one row per (gene, trait) with the evidence count and the best score.
// Zero-score evidence is excluded.
func (s *Store) AssociationSummaries(ctx context.Context, taxID int) ([]store.AssociationSummary, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT gs.ncbi_id, gs.symbol, a.trait_id, ts.synonyms, MAX(te.score), COUNT(*)
		 FROM association a
		 INNER JOIN tm_evidence te ON te.assoc_id = a.id
		 INNER JOIN gene_synonym gs ON gs.id = a.gene_id
		 INNER JOIN trait_synonym ts ON ts.id = a.trait_id
		 WHERE a.spec_id = $1 AND te.score <> 0
		 GROUP BY gs.ncbi_id, gs.symbol, a.trait_id, ts.synonyms
		 ORDER BY a.trait_id, gs.ncbi_id`,
		patchSpeciesID(taxID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []store.AssociationSummary
	for rows.Next() {
		var summary store.AssociationSummary
		var symbol *string
		err := rows.Scan(&summary.GeneNCBIID, &symbol, &summary.TraitID, &summary.TraitSynonyms,
			&summary.MaxScore, &summary.EvidenceCount)
		if err != nil {
			return nil, err
		}
		if symbol != nil {
			summary.GeneSymbol = *symbol
		}
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}
