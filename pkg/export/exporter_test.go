package export

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/plantmine/triplextract/pkg/store"
)

type fakeReader struct {
	names     map[int]string
	summaries map[int][]store.AssociationSummary
}

func (f *fakeReader) SpeciesName(_ context.Context, taxID int) (string, error) {
	return f.names[taxID], nil
}

func (f *fakeReader) AssociationSummaries(_ context.Context, taxID int) ([]store.AssociationSummary, error) {
	return f.summaries[taxID], nil
}

type fakeHierarchy struct {
	ancestors map[string][]string
}

func (f *fakeHierarchy) Ancestors(termID, prefix string) []string {
	var result []string
	for _, ancestor := range f.ancestors[termID] {
		if strings.HasPrefix(ancestor, prefix) {
			result = append(result, ancestor)
		}
	}
	return result
}

func testExporter() *Exporter {
	reader := &fakeReader{
		names: map[int]string{39947: "Oryza sativa Japonica Group | Japanese rice"},
		summaries: map[int][]store.AssociationSummary{
			39947: {
				{
					GeneNCBIID:    "4326813",
					GeneSymbol:    "OsDREB1A",
					TraitID:       "TO:0000276",
					TraitSynonyms: "TO:0000276 | drought tolerance | drought resistance",
					MaxScore:      100,
					EvidenceCount: 7,
				},
				{
					GeneNCBIID:    "4326813",
					GeneSymbol:    "OsDREB1A",
					TraitID:       "TO:0000237",
					TraitSynonyms: "TO:0000237 | stress trait",
					MaxScore:      40,
					EvidenceCount: 2,
				},
			},
		},
	}
	hierarchy := &fakeHierarchy{ancestors: map[string][]string{
		"TO:0000276": {"TO:0000237", "TO:0000387", "PATO:0000001"},
		"TO:0000237": {"TO:0000387"},
	}}
	traits := map[string]string{
		"TO:0000276": "TO:0000276 | drought tolerance | drought resistance",
		"TO:0000237": "TO:0000237 | stress trait",
		"TO:0000387": "TO:0000387 | plant vigor",
	}
	return NewExporter(reader, hierarchy, traits)
}

func TestTriples(t *testing.T) {
	triples, err := testExporter().Triples(context.Background(), 39947)
	if err != nil {
		t.Fatalf("Triples: %v", err)
	}

	// Two mined rows plus one propagated row: TO:0000237 is already mined
	// for this gene, TO:0000387 is new, the PATO ancestor is filtered.
	if len(triples) != 3 {
		t.Fatalf("got %d triples, want 3: %+v", len(triples), triples)
	}
	if triples[0].SpeciesName != "Oryza sativa Japonica Group" {
		t.Errorf("species name: got %q", triples[0].SpeciesName)
	}
	if triples[0].TraitName != "drought tolerance" || triples[0].Propagated {
		t.Errorf("mined triple: %+v", triples[0])
	}
	propagated := triples[2]
	if !propagated.Propagated || propagated.TraitID != "TO:0000387" || propagated.TraitName != "plant vigor" {
		t.Errorf("propagated triple: %+v", propagated)
	}
	// Propagated rows inherit the metrics of their source.
	if propagated.MaxScore != 100 || propagated.EvidenceCount != 7 {
		t.Errorf("propagated metrics: %+v", propagated)
	}
}

func TestWriteTSV(t *testing.T) {
	exporter := testExporter()
	triples, err := exporter.Triples(context.Background(), 39947)
	if err != nil {
		t.Fatalf("Triples: %v", err)
	}

	var buf bytes.Buffer
	if err := exporter.WriteTSV(&buf, triples); err != nil {
		t.Fatalf("WriteTSV: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), buf.String())
	}
	first := strings.Split(lines[0], "\t")
	want := []string{"39947", "Oryza sativa Japonica Group", "4326813", "OsDREB1A", "TO:0000276", "drought tolerance", "100", "7", "false"}
	if len(first) != len(want) {
		t.Fatalf("got %d columns, want %d: %v", len(first), len(want), first)
	}
	for i, column := range first {
		if column != want[i] {
			t.Errorf("column %d: got %q, want %q", i, column, want[i])
		}
	}
}
