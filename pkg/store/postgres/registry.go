package postgres

import (
	"context"
	"errors"
	"strconv"

	pgxv5 "github.com/jackc/pgx/v5"

	"github.com/plantmine/triplextract/internal/util"
	"github.com/plantmine/triplextract/pkg/logger"
)

// GeneTaxID resolves the taxonomic id of an NCBI gene id, or -1 when the
// gene is unknown or carries no tax id.
func (s *Store) GeneTaxID(ctx context.Context, ncbiGeneID string) (int, error) {
	s.mu.Lock()
	cached, ok := s.taxIDs[ncbiGeneID]
	s.mu.Unlock()
	if ok {
		return cached, nil
	}

	var taxID *int64
	err := s.conn.QueryRow(ctx,
		`SELECT tax_id FROM gene_synonym WHERE ncbi_id = $1 AND source LIKE '%NCBI%'`,
		ncbiGeneID).Scan(&taxID)
	result := -1
	switch {
	case errors.Is(err, pgxv5.ErrNoRows):
	case err != nil:
		return -1, err
	case taxID != nil:
		result = int(*taxID)
	}

	s.mu.Lock()
	s.taxIDs[ncbiGeneID] = result
	s.mu.Unlock()
	return result, nil
}

// GeneID resolves the internal gene id of an NCBI gene id, or -1 when the
// gene is unknown.
func (s *Store) GeneID(ctx context.Context, ncbiGeneID string) (int64, error) {
	s.mu.Lock()
	cached, ok := s.geneIDs[ncbiGeneID]
	s.mu.Unlock()
	if ok {
		return cached, nil
	}

	var id int64
	err := s.conn.QueryRow(ctx,
		`SELECT id FROM gene_synonym WHERE ncbi_id = $1`, ncbiGeneID).Scan(&id)
	if errors.Is(err, pgxv5.ErrNoRows) {
		id = -1
	} else if err != nil {
		return -1, err
	}

	s.mu.Lock()
	s.geneIDs[ncbiGeneID] = id
	s.mu.Unlock()
	return id, nil
}

// GeneMentionID resolves the row id of a persisted gene mention.
func (s *Store) GeneMentionID(ctx context.Context, paragraphID int64, ncbiGeneID string, offset int) (int64, error) {
	return s.firstID(ctx,
		`SELECT id FROM tm_gene_annotation WHERE par_id = $1 AND gene_id = $2 AND ann_offset = $3 ORDER BY id`,
		"gene mention", paragraphID, ncbiGeneID, offset)
}

// SpeciesMentionID resolves the row id of a persisted species mention. The
// lookup applies the same species id rewrite the insert path applies.
func (s *Store) SpeciesMentionID(ctx context.Context, paragraphID int64, speciesID string, offset int) (int64, error) {
	id, err := strconv.Atoi(speciesID)
	if err != nil {
		return -1, err
	}
	return s.firstID(ctx,
		`SELECT id FROM tm_species_annotation WHERE par_id = $1 AND spec_id = $2 AND ann_offset = $3 ORDER BY id`,
		"species mention", paragraphID, patchSpeciesID(id), offset)
}

// ParagraphID resolves a paragraph id from its document and text. The text
// is sanitized the same way AddDocument sanitizes it before storing, so a
// lookup with the raw paragraph text finds the stored row.
func (s *Store) ParagraphID(ctx context.Context, documentID int64, text string) (int64, error) {
	return s.firstID(ctx,
		`SELECT id FROM paragraph WHERE doc_id = $1 AND text = $2 ORDER BY id`,
		"paragraph", documentID, util.SanitizePostgresText(text))
}

// firstID runs an id query and returns the first row, warning when the
// lookup is ambiguous.
func (s *Store) firstID(ctx context.Context, sql, kind string, args ...any) (int64, error) {
	rows, err := s.conn.Query(ctx, sql, args...)
	if err != nil {
		return -1, err
	}
	ids, err := pgxv5.CollectRows(rows, pgxv5.RowTo[int64])
	if err != nil {
		return -1, err
	}
	if len(ids) == 0 {
		return -1, pgxv5.ErrNoRows
	}
	if len(ids) > 1 {
		logger.Warn("Ambiguous row lookup", "kind", kind, "count", len(ids))
	}
	return ids[0], nil
}
