// Package ontology parses OBO-format ontologies (trait ontology, plant
// phenotype ontology, gene ontology) into term dictionaries the matcher can
// be built from, and exposes the is_a hierarchy for term propagation during
// export.
package ontology

import (
	"bufio"
	"io"
	"strings"
)

const scannerBufferSize = 1 << 20

// termLengthThreshold: only synonyms of at least this many characters enter
// the dictionary, shorter ones produce too many false matches.
const termLengthThreshold = 4

// Term is one ontology term with its is_a parents.
type Term struct {
	ID       string
	Name     string
	Synonyms []string
	Parents  []string
	Obsolete bool
}

// Ontology is a parsed OBO file indexed by term id.
type Ontology struct {
	Name  string
	Terms map[string]*Term

	children map[string][]string
}

// Parse reads an OBO stream. Only [Term] stanzas are interpreted, other
// stanza types are skipped.
func Parse(r io.Reader) (*Ontology, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, scannerBufferSize), scannerBufferSize)

	ontology := &Ontology{
		Terms:    make(map[string]*Term),
		children: make(map[string][]string),
	}

	inTerm := false
	var term *Term
	flush := func() {
		if term != nil && term.ID != "" {
			ontology.Terms[term.ID] = term
			for _, parent := range term.Parents {
				ontology.children[parent] = append(ontology.children[parent], term.ID)
			}
		}
		term = nil
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "[") {
			flush()
			inTerm = line == "[Term]"
			if inTerm {
				term = &Term{}
			}
			continue
		}
		if !inTerm {
			key, value, ok := strings.Cut(line, ": ")
			if ok && key == "ontology" {
				ontology.Name = value
			}
			continue
		}

		key, value, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}
		switch key {
		case "id":
			term.ID = value
		case "name":
			term.Name = value
		case "synonym":
			term.Synonyms = append(term.Synonyms, parseQuoted(value))
		case "is_a":
			id, _, _ := strings.Cut(value, " ! ")
			term.Parents = append(term.Parents, strings.TrimSpace(id))
		case "is_obsolete":
			term.Obsolete = value == "true"
		}
	}
	flush()
	return ontology, scanner.Err()
}

// Dictionary builds the matcher dictionary: term id to a pipe-separated list
// of the id, name and synonyms. Terms are restricted to ids with the given
// prefix (empty prefix keeps everything), obsolete terms are dropped, and so
// are synonyms below the length threshold or on the blocklist.
func (o *Ontology) Dictionary(prefix string, blocklist map[string]struct{}) map[string]string {
	dictionary := make(map[string]string)
	for id, term := range o.Terms {
		if prefix != "" && !strings.HasPrefix(id, prefix) {
			continue
		}
		if term.Obsolete {
			continue
		}
		entry := id
		for _, synonym := range append([]string{term.Name}, term.Synonyms...) {
			normalized := NormalizeSynonym(synonym)
			if len(normalized) < termLengthThreshold {
				continue
			}
			if _, blocked := blocklist[normalized]; blocked {
				continue
			}
			entry += " | " + normalized
		}
		dictionary[id] = entry
	}
	return dictionary
}

// Ancestors returns every term reachable through is_a edges, restricted to
// ids with the given prefix. The term itself is not included.
func (o *Ontology) Ancestors(termID, prefix string) []string {
	return o.walk(termID, prefix, func(t *Term) []string {
		if t == nil {
			return nil
		}
		return t.Parents
	})
}

// Descendants returns every term that reaches the given term through is_a
// edges, restricted to ids with the given prefix.
func (o *Ontology) Descendants(termID, prefix string) []string {
	return o.walk(termID, prefix, func(t *Term) []string {
		if t == nil {
			return nil
		}
		return o.children[t.ID]
	})
}

func (o *Ontology) walk(termID, prefix string, edges func(*Term) []string) []string {
	visited := map[string]struct{}{termID: {}}
	queue := []string{termID}
	var result []string
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range edges(o.Terms[current]) {
			if _, seen := visited[next]; seen {
				continue
			}
			visited[next] = struct{}{}
			queue = append(queue, next)
			if prefix == "" || strings.HasPrefix(next, prefix) {
				result = append(result, next)
			}
		}
	}
	return result
}

// NormalizeSynonym strips scope suffixes and a trailing "trait"/"traits"
// word from a synonym and lowercases it. The scope strip recurses because a
// synonym can stack several suffixes.
func NormalizeSynonym(synonym string) string {
	result := strings.TrimSpace(synonym)
	if strings.Contains(result, `"`) {
		result = parseQuoted(result)
	}
	for _, suffix := range []string{" (related)", " (exact)", " (narrow)", " (broad)"} {
		if strings.HasSuffix(result, suffix) {
			return NormalizeSynonym(result[:len(result)-len(suffix)])
		}
	}
	for _, suffix := range []string{" trait", " traits"} {
		if strings.HasSuffix(result, suffix) && len(strings.Split(result, " ")) > 2 {
			result = result[:len(result)-len(suffix)]
		}
	}
	return strings.ToLower(result)
}

// parseQuoted extracts the text between the first pair of double quotes.
func parseQuoted(s string) string {
	start := strings.IndexByte(s, '"')
	if start < 0 {
		return s
	}
	start++
	end := strings.IndexByte(s[start:], '"')
	if end < 0 {
		return s[start:]
	}
	return s[start : start+end]
}
