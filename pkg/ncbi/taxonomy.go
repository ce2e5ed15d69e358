// Package ncbi parses NCBI taxonomy and gene_info dumps into the species
// allow-list and the gene registry the pipeline is seeded with.
package ncbi

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/plantmine/triplextract/pkg/logger"
)

// viridiplantaeRoot is the tax id of the green-plant kingdom. Only its
// subtree enters the species dictionary.
const viridiplantaeRoot = "33090"

// plantDivision is the NCBI division id covering plants and fungi.
const plantDivision = 4

// Taxonomy holds the parsed names and the parent-to-children topology of
// the plant division.
type Taxonomy struct {
	names    map[string]string
	children map[string][]string
}

// ParseTaxonomy reads the names.dmp and nodes.dmp streams of an NCBI
// taxdump.
func ParseTaxonomy(names, nodes io.Reader) (*Taxonomy, error) {
	taxonomy := &Taxonomy{
		names:    make(map[string]string),
		children: make(map[string][]string),
	}
	if err := taxonomy.parseNames(names); err != nil {
		return nil, err
	}
	if err := taxonomy.parseNodes(nodes); err != nil {
		return nil, err
	}
	return taxonomy, nil
}

// parseNames builds the id to name dictionary. The first name of an id is
// its primary name, later rows append as synonyms.
func (t *Taxonomy) parseNames(r io.Reader) error {
	scanner := newDmpScanner(r)
	count := 0
	for scanner.Scan() {
		fields := splitDmpLine(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		count++
		id, name := fields[0], fields[1]
		if existing, ok := t.names[id]; ok {
			t.names[id] = existing + " | " + name
		} else {
			t.names[id] = name
		}
		if count%1_000_000 == 0 {
			logger.Debug("Parsing species names", "count", count)
		}
	}
	logger.Info("Parsed species names", "count", count)
	return scanner.Err()
}

// parseNodes records the plant-division topology.
func (t *Taxonomy) parseNodes(r io.Reader) error {
	scanner := newDmpScanner(r)
	count := 0
	for scanner.Scan() {
		fields := splitDmpLine(scanner.Text())
		if len(fields) < 5 {
			continue
		}
		division, err := strconv.Atoi(fields[4])
		if err != nil || division != plantDivision {
			continue
		}
		count++
		t.children[fields[1]] = append(t.children[fields[1]], fields[0])
	}
	logger.Info("Parsed plant and fungi nodes", "count", count)
	return scanner.Err()
}

// PlantSpecies returns the species dictionary (tax id to pipe-separated
// name list) of the Viridiplantae subtree. Nodes without a name entry are
// skipped with a warning.
func (t *Taxonomy) PlantSpecies() map[string]string {
	dictionary := make(map[string]string)
	queue := []string{viridiplantaeRoot}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, child := range t.children[current] {
			if child == current {
				continue
			}
			names, ok := t.names[child]
			if !ok {
				logger.Warn("Taxonomy node without name", "tax_id", child)
				continue
			}
			dictionary[child] = names
			queue = append(queue, child)
		}
	}
	logger.Info("Retrieved plant species", "count", len(dictionary))
	return dictionary
}

func newDmpScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1<<20), 1<<20)
	return scanner
}

// splitDmpLine splits a taxdump row. Fields are separated by "\t|\t" and
// the line ends with "\t|".
func splitDmpLine(line string) []string {
	fields := strings.Split(line, "|")
	for i, field := range fields {
		fields[i] = strings.TrimSpace(field)
	}
	return fields
}
