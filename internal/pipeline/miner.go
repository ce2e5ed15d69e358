package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/plantmine/triplextract/pkg/logger"
	"github.com/plantmine/triplextract/pkg/mining"
	"github.com/plantmine/triplextract/pkg/nlp"
	"github.com/plantmine/triplextract/pkg/pubmed"

	"golang.org/x/sync/errgroup"
)

// Storage is the slice of the persistence layer the miner needs: document
// and trait mention writes plus the lookups the association builder makes.
type Storage interface {
	mining.Store

	AddDocument(ctx context.Context, document *pubmed.Document) (int64, []int64, error)
	AddTraitMention(ctx context.Context, paragraphID int64, traitID string, offset, length int, surface string) (int64, error)
}

const (
	// maxDocumentLine bounds a single PubTator document line. Full-text
	// documents with dense annotation sets routinely exceed the bufio
	// default.
	maxDocumentLine = 16 * 1024 * 1024

	progressInterval = 1000
)

var documentTag = []byte("<document>")

// Miner drives one mining run: it scans a PubTator stream document by
// document, matches trait terms in gene-bearing paragraphs and feeds the
// association builder. Documents are only persisted once a trait match
// exists.
type Miner struct {
	store        Storage
	matcher      *nlp.Matcher
	builder      *mining.Builder
	filters      pubmed.Filters
	concurrency  int
	maxLineBytes int
}

type NewMinerParams struct {
	Store   Storage
	Matcher *nlp.Matcher
	Builder *mining.Builder
	Filters pubmed.Filters
	// Concurrency bounds the per-paragraph matching fan-out.
	Concurrency int
}

func NewMiner(params NewMinerParams) *Miner {
	concurrency := params.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &Miner{
		store:        params.Store,
		matcher:      params.Matcher,
		builder:      params.Builder,
		filters:      params.Filters,
		concurrency:  concurrency,
		maxLineBytes: maxDocumentLine,
	}
}

// Run consumes the stream until EOF or context cancellation. Per-document
// failures are logged and skipped so one malformed document cannot abort
// the run; a line beyond the size bound is discarded and the run continues
// with the next line.
func (m *Miner) Run(ctx context.Context, r io.Reader) (*Stats, error) {
	stats := newStats()
	reader := bufio.NewReaderSize(r, 64*1024)

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		line, tooLong, err := readLine(reader, m.maxLineBytes)
		if err != nil && !errors.Is(err, io.EOF) {
			return stats, fmt.Errorf("failed to read input: %w", err)
		}

		if tooLong {
			if bytes.Contains(line, documentTag) {
				stats.DocumentsRead++
				stats.DocumentsFailed++
			}
			logger.Error("[Pipeline] Skipping oversized line", "limit", m.maxLineBytes)
		} else if trimmed := bytes.TrimSpace(line); bytes.Contains(trimmed, documentTag) {
			stats.DocumentsRead++
			if mineErr := m.mineDocument(ctx, trimmed, stats); mineErr != nil {
				stats.DocumentsFailed++
				logger.Error("[Pipeline] Failed to process document", "document", stats.DocumentsRead, "err", mineErr)
			}
			if stats.DocumentsRead%progressInterval == 0 {
				stats.log("[Pipeline] Progress")
			}
		}

		if errors.Is(err, io.EOF) {
			break
		}
	}

	stats.log("[Pipeline] Run complete")
	return stats, nil
}

// readLine returns the next line, accumulating buffer-sized chunks. A line
// longer than limit is reported as tooLong carrying only its head; the rest
// of the line is consumed and dropped so the next call starts on a fresh
// line.
func readLine(reader *bufio.Reader, limit int) ([]byte, bool, error) {
	var line []byte
	for {
		chunk, err := reader.ReadSlice('\n')
		line = append(line, chunk...)
		if errors.Is(err, bufio.ErrBufferFull) {
			if len(line) > limit {
				return line, true, discardLine(reader)
			}
			continue
		}
		if len(line) > limit {
			return line, true, err
		}
		return line, false, err
	}
}

// discardLine consumes input up to and including the next newline.
func discardLine(reader *bufio.Reader) error {
	for {
		_, err := reader.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return err
	}
}

func (m *Miner) mineDocument(ctx context.Context, line []byte, stats *Stats) error {
	document, err := pubmed.ParseDocument(line, m.filters)
	if err != nil {
		return err
	}
	if !document.IsRelevant() {
		return nil
	}
	stats.DocumentsKept++
	stats.recordSpecies(document)

	matches := make([][]nlp.TermMatch, len(document.Paragraphs))
	group, _ := errgroup.WithContext(ctx)
	group.SetLimit(m.concurrency)
	for i, paragraph := range document.Paragraphs {
		if len(paragraph.GeneAnnotations) == 0 {
			continue
		}
		group.Go(func() error {
			matches[i] = m.matcher.Match(paragraph.Text)
			return nil
		})
	}
	_ = group.Wait()

	var documentID int64
	var paragraphIDs []int64

	for i, paragraph := range document.Paragraphs {
		if len(matches[i]) == 0 {
			continue
		}

		if paragraphIDs == nil {
			documentID, paragraphIDs, err = m.store.AddDocument(ctx, document)
			if err != nil {
				return fmt.Errorf("failed to store document %s: %w", document.PubmedID, err)
			}
			stats.DocumentsStored++
		}

		traitMatches := make([]mining.TraitMatch, 0, len(matches[i]))
		for _, match := range matches[i] {
			mentionID, err := m.store.AddTraitMention(ctx, paragraphIDs[i], match.TermID, match.Start, match.Length, match.Surface)
			if err != nil {
				logger.Warn("[Pipeline] Failed to store trait mention", "document", document.PubmedID, "trait", match.TermID, "err", err)
				continue
			}
			stats.TraitMentions++
			traitMatches = append(traitMatches, mining.TraitMatch{
				TraitID:   match.TermID,
				Surface:   match.Surface,
				Start:     match.Start,
				MentionID: mentionID,
			})
		}

		m.builder.Extract(ctx, document, documentID, paragraph, paragraphIDs[i], traitMatches)
	}

	return nil
}
