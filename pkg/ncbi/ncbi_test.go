package ncbi

import (
	"strings"
	"testing"
)

const namesFixture = `1	|	root	|		|	scientific name	|
33090	|	Viridiplantae	|		|	scientific name	|
33090	|	green plants	|		|	common name	|
39947	|	Oryza sativa Japonica Group	|		|	scientific name	|
39947	|	Japanese rice	|		|	common name	|
3702	|	Arabidopsis thaliana	|		|	scientific name	|
9606	|	Homo sapiens	|		|	scientific name	|
`

const nodesFixture = `1	|	1	|	no rank	|		|	8	|
33090	|	2759	|	kingdom	|		|	4	|
39947	|	33090	|	subspecies	|		|	4	|
3702	|	39947	|	species	|		|	4	|
9606	|	33208	|	species	|		|	5	|
77777	|	33090	|	species	|		|	4	|
`

func TestPlantSpecies(t *testing.T) {
	taxonomy, err := ParseTaxonomy(strings.NewReader(namesFixture), strings.NewReader(nodesFixture))
	if err != nil {
		t.Fatalf("ParseTaxonomy: %v", err)
	}

	species := taxonomy.PlantSpecies()
	if got := species["39947"]; got != "Oryza sativa Japonica Group | Japanese rice" {
		t.Errorf("39947: got %q", got)
	}
	// Reachable through the subtree, not just direct children of the root.
	if got := species["3702"]; got != "Arabidopsis thaliana" {
		t.Errorf("3702: got %q", got)
	}
	if _, ok := species["9606"]; ok {
		t.Error("non-plant species must be excluded")
	}
	if _, ok := species["33090"]; ok {
		t.Error("the kingdom root itself is not a species entry")
	}
	// A node without a names row is skipped.
	if _, ok := species["77777"]; ok {
		t.Error("nameless node must be skipped")
	}
}

const geneInfoFixture = "#tax_id\tGeneID\tSymbol\tLocusTag\tSynonyms\tdbXrefs\n" +
	"39947\t4326813\tOsDREB1A\tLOC_Os09g35030\tDREB1A|OsDREB1\tGramene:4326813\n" +
	"3702\t814642\tABC1\t-\t-\t-\n"

func TestParseGeneInfo(t *testing.T) {
	genes, err := ParseGeneInfo(strings.NewReader(geneInfoFixture))
	if err != nil {
		t.Fatalf("ParseGeneInfo: %v", err)
	}
	if len(genes) != 2 {
		t.Fatalf("got %d genes, want 2", len(genes))
	}

	gene := genes["4326813"]
	if gene == nil {
		t.Fatal("4326813 missing")
	}
	if gene.TaxID != "39947" || gene.Symbol != "OsDREB1A" || gene.LocusTag != "LOC_Os09g35030" {
		t.Errorf("gene fields: %+v", gene)
	}
	if gene.Synonyms != "OsDREB1A | DREB1A | OsDREB1" {
		t.Errorf("synonyms: got %q", gene.Synonyms)
	}

	plain := genes["814642"]
	if plain == nil || plain.Synonyms != "ABC1" {
		t.Errorf("gene without aliases: %+v", plain)
	}
}
