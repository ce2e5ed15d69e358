package postgres

import (
	"context"
	"strconv"

	"github.com/plantmine/triplextract/internal/util"
	"github.com/plantmine/triplextract/pkg/logger"
	"github.com/plantmine/triplextract/pkg/pubmed"
)

// Column widths of the document table. Some titles and journal names in the
// corpus exceed them.
const (
	maxTitleLength   = 995
	maxJournalLength = 95
	maxVolumeLength  = 50
)

// AddDocument persists the document, its authors, its paragraphs and the
// species/gene mention rows, all in one transaction. Gene ids PubTator emits
// that are missing from the registry are backfilled as synonym rows so the
// mention inserts never dangle.
func (s *Store) AddDocument(ctx context.Context, document *pubmed.Document) (int64, []int64, error) {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return -1, nil, err
	}
	defer tx.Rollback(ctx)

	var documentID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO document (title, doi, pubmed_id, pmc_id, sici, publisher_id, year, journal, volume)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		util.Truncate(util.SanitizePostgresText(document.Title), maxTitleLength),
		document.DOI, document.PubmedID, document.PMCID, document.SICI, document.PublisherID,
		document.Year,
		util.Truncate(document.Journal, maxJournalLength),
		util.Truncate(document.Volume, maxVolumeLength),
	).Scan(&documentID)
	if err != nil {
		return -1, nil, err
	}

	for _, author := range document.Authors {
		_, err = tx.Exec(ctx,
			`INSERT INTO author (doc_id, first_name, last_name) VALUES ($1, $2, $3)`,
			documentID, author.GivenNames, author.Surname)
		if err != nil {
			return -1, nil, err
		}
	}

	paragraphIDs := make([]int64, 0, len(document.Paragraphs))
	for _, paragraph := range document.Paragraphs {
		var paragraphID int64
		err = tx.QueryRow(ctx,
			`INSERT INTO paragraph (doc_id, section_type, text) VALUES ($1, $2, $3) RETURNING id`,
			documentID, paragraph.Type.String(), util.SanitizePostgresText(paragraph.Text)).Scan(&paragraphID)
		if err != nil {
			return -1, nil, err
		}
		paragraphIDs = append(paragraphIDs, paragraphID)

		for _, annotation := range paragraph.SpeciesAnnotations {
			for _, rawID := range annotation.IDs {
				speciesID, err := strconv.Atoi(rawID)
				if err != nil {
					logger.Warn("Skipping species mention with non-numeric id", "id", rawID)
					continue
				}
				_, err = tx.Exec(ctx,
					`INSERT INTO tm_species_annotation (par_id, spec_id, ann_offset, ann_length, text)
					 VALUES ($1, $2, $3, $4, $5)`,
					paragraphID, patchSpeciesID(speciesID), annotation.Offset, annotation.Length,
					util.SanitizePostgresText(annotation.Text))
				if err != nil {
					return -1, nil, err
				}
			}
		}
		for _, annotation := range paragraph.GeneAnnotations {
			for _, geneID := range annotation.IDs {
				_, err = tx.Exec(ctx,
					`INSERT INTO gene_synonym (ncbi_id, ncbi_synonyms, source) VALUES ($1, $2, 'PubTator')
					 ON CONFLICT (ncbi_id) DO NOTHING`,
					geneID, util.SanitizePostgresText(annotation.Text))
				if err != nil {
					return -1, nil, err
				}
				_, err = tx.Exec(ctx,
					`INSERT INTO tm_gene_annotation (par_id, gene_id, ann_offset, ann_length, text)
					 VALUES ($1, $2, $3, $4, $5)`,
					paragraphID, geneID, annotation.Offset, annotation.Length,
					util.SanitizePostgresText(annotation.Text))
				if err != nil {
					return -1, nil, err
				}
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return -1, nil, err
	}
	logger.Debug("Document inserted", "pubmed_id", document.PubmedID, "paragraphs", len(document.Paragraphs))
	return documentID, paragraphIDs, nil
}

// AddTraitMention persists one trait match.
func (s *Store) AddTraitMention(ctx context.Context, paragraphID int64, traitID string, offset, length int, surface string) (int64, error) {
	var id int64
	err := s.conn.QueryRow(ctx,
		`INSERT INTO tm_trait_annotation (par_id, trait_id, ann_offset, ann_length, text)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		paragraphID, traitID, offset, length, util.SanitizePostgresText(surface)).Scan(&id)
	if err != nil {
		return -1, err
	}
	return id, nil
}
