package ncbi

import (
	"bufio"
	"io"
	"strings"

	"github.com/plantmine/triplextract/pkg/logger"
)

// Gene is one gene_info record. Synonyms is the pipe-separated list of the
// symbol and its aliases.
type Gene struct {
	NCBIID   string
	TaxID    string
	Symbol   string
	Synonyms string
	LocusTag string
	DBXref   string
}

// ParseGeneInfo reads an NCBI gene_info TSV stream into a registry keyed by
// gene id. The first line is the column header.
func ParseGeneInfo(r io.Reader) (map[string]*Gene, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1<<20), 1<<20)

	genes := make(map[string]*Gene)
	header := true
	for scanner.Scan() {
		if header {
			header = false
			continue
		}
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) < 6 {
			continue
		}
		gene := &Gene{
			NCBIID:   fields[1],
			TaxID:    fields[0],
			Symbol:   fields[2],
			Synonyms: fields[2],
			LocusTag: fields[3],
			DBXref:   fields[5],
		}
		if fields[4] != "-" {
			gene.Synonyms += " | " + strings.ReplaceAll(fields[4], "|", " | ")
		}
		genes[gene.NCBIID] = gene
	}
	logger.Info("Parsed gene identifiers", "count", len(genes))
	return genes, scanner.Err()
}
