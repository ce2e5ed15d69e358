package postgres

import (
	"context"
	"errors"
	"time"

	pgxv5 "github.com/jackc/pgx/v5"

	"github.com/plantmine/triplextract/internal/util"
	"github.com/plantmine/triplextract/pkg/logger"
	"github.com/plantmine/triplextract/pkg/mining"
)

// associationRetries: concurrent writers can race on the get-or-create of
// an association row, the loser retries.
const associationRetries = 5

const associationRetryDelay = 100 * time.Millisecond

// AddAssociationEvidence appends one evidence row to the association
// identified by (species, gene, trait), creating the association when it
// does not exist yet.
func (s *Store) AddAssociationEvidence(ctx context.Context, evidence mining.Evidence) error {
	speciesID := patchSpeciesID(evidence.SpeciesID)

	attempt := 0
	associationID, err := util.RetryWithBackoff(ctx, associationRetries, associationRetryDelay,
		func(ctx context.Context) (int64, error) {
			attempt++
			return s.associationID(ctx, speciesID, evidence.GeneID, evidence.TraitID)
		})
	if err != nil {
		return err
	}
	if attempt > 1 {
		logger.Info("Retrieved association id after retrying", "attempts", attempt)
	}

	_, err = s.conn.Exec(ctx,
		`INSERT INTO tm_evidence (assoc_id, doc_id, par_id, spec_ann_id, gene_ann_id, trait_ann_id, trait_synonym, type_id, score)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		associationID, evidence.DocumentID, evidence.ParagraphID, evidence.SpeciesMentionID,
		evidence.GeneMentionID, evidence.TraitMentionID, util.SanitizePostgresText(evidence.TraitSurface),
		int(evidence.Case), evidence.Score)
	return err
}

// associationID gets or creates the association row inside one transaction.
func (s *Store) associationID(ctx context.Context, speciesID int, geneID int64, traitID string) (int64, error) {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return -1, err
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx,
		`SELECT id FROM association WHERE spec_id = $1 AND gene_id = $2 AND trait_id = $3`,
		speciesID, geneID, traitID).Scan(&id)
	if errors.Is(err, pgxv5.ErrNoRows) {
		err = tx.QueryRow(ctx,
			`INSERT INTO association (spec_id, gene_id, trait_id) VALUES ($1, $2, $3) RETURNING id`,
			speciesID, geneID, traitID).Scan(&id)
	}
	if err != nil {
		return -1, err
	}
	if err := tx.Commit(ctx); err != nil {
		return -1, err
	}
	return id, nil
}
