package pubmed

import (
	"testing"
)

const biocFixture = `<document>
  <id>PMC1000001</id>
  <passage>
    <infon key="article-id_pmid">16397300</infon>
    <infon key="article-id_pmc">PMC1000001</infon>
    <infon key="journal">Plant Cell Physiol.; 2006 Jan; 47(1) 141-153. doi:10.1093/pcp/pci230</infon>
    <infon key="year">2006</infon>
    <infon key="name_0">surname:Ito;given-names:Yusuke</infon>
    <infon key="name_1">surname:Katsura</infon>
    <infon key="section_type">TITLE</infon>
    <infon key="type">front</infon>
    <offset>0</offset>
    <text>OsDREB1 improves drought tolerance in Oryza sativa</text>
    <annotation id="1">
      <infon key="type">Gene</infon>
      <infon key="identifier">9267894</infon>
      <location offset="0" length="7"/>
      <text>OsDREB1</text>
    </annotation>
    <annotation id="2">
      <infon key="type">Species</infon>
      <infon key="identifier">39947</infon>
      <location offset="38" length="12"/>
      <text>Oryza sativa</text>
    </annotation>
  </passage>
  <passage>
    <infon key="section_type">INTRO</infon>
    <offset>60</offset>
    <text>Too few words.</text>
  </passage>
  <passage>
    <infon key="section_type">RESULTS</infon>
    <offset>100</offset>
    <text>We overexpressed OsDREB1 in rice plants to assess drought tolerance.</text>
    <annotation id="3">
      <infon key="type">Gene</infon>
      <infon key="identifier">9267894</infon>
      <location offset="117" length="7"/>
      <text>OsDREB1</text>
    </annotation>
    <annotation id="4">
      <infon key="type">Species</infon>
      <infon key="identifier">39947</infon>
      <location offset="128" length="4"/>
      <text>rice</text>
    </annotation>
  </passage>
  <passage>
    <infon key="section_type">METHODS</infon>
    <offset>200</offset>
    <text>Plants were grown in a greenhouse under standard conditions.</text>
    <annotation id="5">
      <infon key="type">Gene</infon>
      <infon key="identifier">9267894</infon>
      <location offset="212" length="5"/>
      <text>grown</text>
    </annotation>
  </passage>
</document>`

func testFilters() Filters {
	return Filters{
		Species:          map[string]string{"39947": "rice|oryza sativa"},
		SpeciesBlocklist: map[string]struct{}{},
		GeneBlocklist:    map[string]struct{}{},
	}
}

func TestParseDocument(t *testing.T) {
	doc, err := ParseDocument([]byte(biocFixture), testFilters())
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}

	if doc.PubmedID != "16397300" {
		t.Errorf("pubmed id: got %q", doc.PubmedID)
	}
	if doc.PMCID != "1000001" {
		t.Errorf("pmc id: got %q", doc.PMCID)
	}
	if doc.Journal != "Plant Cell Physiol." {
		t.Errorf("journal: got %q", doc.Journal)
	}
	if doc.DOI != "10.1093/pcp/pci230" {
		t.Errorf("doi: got %q", doc.DOI)
	}
	if doc.Year != "2006" {
		t.Errorf("year: got %q", doc.Year)
	}
	if doc.Title != "OsDREB1 improves drought tolerance in Oryza sativa" {
		t.Errorf("title: got %q", doc.Title)
	}
	if len(doc.Authors) != 2 {
		t.Fatalf("got %d authors, want 2: %+v", len(doc.Authors), doc.Authors)
	}
	if doc.Authors[0] != (Author{Surname: "Ito", GivenNames: "Yusuke"}) {
		t.Errorf("author 0: got %+v", doc.Authors[0])
	}
	if doc.Authors[1] != (Author{Surname: "Katsura"}) {
		t.Errorf("author 1: got %+v", doc.Authors[1])
	}

	// The short INTRO and the METHODS passage must be discarded.
	if len(doc.Paragraphs) != 2 {
		t.Fatalf("got %d paragraphs, want 2", len(doc.Paragraphs))
	}
	if doc.Paragraphs[0].Type != ParagraphTitle || doc.Paragraphs[1].Type != ParagraphResults {
		t.Errorf("paragraph types: got %s, %s", doc.Paragraphs[0].Type, doc.Paragraphs[1].Type)
	}

	if !doc.IsRelevant() {
		t.Error("document must be relevant")
	}
	if doc.RelevantSpeciesIDs["39947"] != 2 {
		t.Errorf("species counts: got %v", doc.RelevantSpeciesIDs)
	}
	if doc.GeneIDs["9267894"] != 2 {
		t.Errorf("gene counts: got %v", doc.GeneIDs)
	}
	if len(doc.TitleSpecies) != 1 || len(doc.AbstractSpecies) != 0 {
		t.Errorf("document species lists: title %d, abstract %d", len(doc.TitleSpecies), len(doc.AbstractSpecies))
	}
}

func TestParseDocumentAnnotationOffsets(t *testing.T) {
	doc, err := ParseDocument([]byte(biocFixture), testFilters())
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}

	results := doc.Paragraphs[1]
	if len(results.GeneAnnotations) != 1 || len(results.SpeciesAnnotations) != 1 {
		t.Fatalf("results annotations: genes %d, species %d", len(results.GeneAnnotations), len(results.SpeciesAnnotations))
	}
	gene := results.GeneAnnotations[0]
	if gene.Offset != 17 || gene.Length != 7 {
		t.Errorf("gene span: got offset %d length %d", gene.Offset, gene.Length)
	}
	if got := results.Text[gene.Offset : gene.Offset+gene.Length]; got != "OsDREB1" {
		t.Errorf("gene span text: got %q", got)
	}
	species := results.SpeciesAnnotations[0]
	if species.Offset != 28 || species.Text != "rice" {
		t.Errorf("species span: got offset %d text %q", species.Offset, species.Text)
	}
	if species.Paragraph != results {
		t.Error("species annotation must point at its paragraph")
	}
}

func TestParseDocumentSpeciesFiltering(t *testing.T) {
	// Without the species on the allow-list the document keeps its
	// paragraphs but stops being relevant.
	doc, err := ParseDocument([]byte(biocFixture), Filters{
		Species:          map[string]string{},
		SpeciesBlocklist: map[string]struct{}{},
		GeneBlocklist:    map[string]struct{}{},
	})
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	if doc.IsRelevant() {
		t.Error("document without relevant species must not be relevant")
	}

	// A block-listed species surface is dropped even when allow-listed.
	blocked, err := ParseDocument([]byte(biocFixture), Filters{
		Species:          map[string]string{"39947": "rice"},
		SpeciesBlocklist: map[string]struct{}{"rice": {}, "oryza sativa": {}},
		GeneBlocklist:    map[string]struct{}{},
	})
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	for _, paragraph := range blocked.Paragraphs {
		if len(paragraph.SpeciesAnnotations) != 0 {
			t.Errorf("block-listed species survived: %+v", paragraph.SpeciesAnnotations)
		}
	}
}

func TestParseDocumentInvalidXML(t *testing.T) {
	if _, err := ParseDocument([]byte("<document><id>1</id>"), testFilters()); err == nil {
		t.Error("expected an error for truncated XML")
	}
}

func TestNewAnnotationMissingIdentifier(t *testing.T) {
	raw := biocAnnotation{
		Infons: []biocInfon{
			{Key: "type", Value: "Gene"},
			{Key: "identifier", Value: ""},
		},
		Location: biocLocation{Offset: 5, Length: 4},
	}
	ann := newAnnotation(raw, nil, 0)
	if ann.Type != AnnotationError {
		t.Errorf("got type %v, want AnnotationError", ann.Type)
	}
	if ann.IsGene() {
		t.Error("annotation without identifier must not be a usable gene")
	}
}
