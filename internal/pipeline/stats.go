package pipeline

import (
	"sort"

	"github.com/plantmine/triplextract/pkg/logger"
	"github.com/plantmine/triplextract/pkg/pubmed"
)

// Stats tracks the progress of one mining run. Counts are only touched from
// the run goroutine.
type Stats struct {
	DocumentsRead   int
	DocumentsKept   int
	DocumentsFailed int
	DocumentsStored int
	TraitMentions   int

	speciesDocuments map[string]int
}

func newStats() *Stats {
	return &Stats{
		speciesDocuments: make(map[string]int),
	}
}

// recordSpecies counts the document once for every allow-listed species it
// mentions.
func (s *Stats) recordSpecies(document *pubmed.Document) {
	for id := range document.RelevantSpeciesIDs {
		s.speciesDocuments[id]++
	}
}

func (s *Stats) log(message string) {
	logger.Info(
		message,
		"read", s.DocumentsRead,
		"kept", s.DocumentsKept,
		"failed", s.DocumentsFailed,
		"stored", s.DocumentsStored,
		"trait_mentions", s.TraitMentions,
		"species", len(s.speciesDocuments),
	)
}

// TopSpecies returns the most frequently mentioned species ids with their
// document counts, largest first.
func (s *Stats) TopSpecies(limit int) []SpeciesCount {
	counts := make([]SpeciesCount, 0, len(s.speciesDocuments))
	for id, documents := range s.speciesDocuments {
		counts = append(counts, SpeciesCount{SpeciesID: id, Documents: documents})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Documents != counts[j].Documents {
			return counts[i].Documents > counts[j].Documents
		}
		return counts[i].SpeciesID < counts[j].SpeciesID
	})
	if limit > 0 && len(counts) > limit {
		counts = counts[:limit]
	}
	return counts
}

type SpeciesCount struct {
	SpeciesID string
	Documents int
}
