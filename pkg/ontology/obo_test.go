package ontology

import (
	"sort"
	"strings"
	"testing"
)

const oboFixture = `format-version: 1.2
data-version: releases/2023-07-13
ontology: to

[Term]
id: TO:0000387
name: plant vigor

[Term]
id: TO:0000276
name: drought tolerance
synonym: "drought resistance" EXACT []
synonym: "DT" EXACT []
is_a: TO:0000237 ! stress trait

[Term]
id: TO:0000237
name: stress trait
is_a: TO:0000387 ! plant vigor

[Term]
id: TO:0009999
name: obsolete trait
is_obsolete: true

[Term]
id: PATO:0000001
name: quality

[Typedef]
id: part_of
name: part of
`

func parseFixture(t *testing.T) *Ontology {
	t.Helper()
	ontology, err := Parse(strings.NewReader(oboFixture))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return ontology
}

func TestParse(t *testing.T) {
	ontology := parseFixture(t)
	if ontology.Name != "to" {
		t.Errorf("ontology name: got %q", ontology.Name)
	}
	if len(ontology.Terms) != 5 {
		t.Fatalf("got %d terms, want 5", len(ontology.Terms))
	}
	term := ontology.Terms["TO:0000276"]
	if term == nil {
		t.Fatal("TO:0000276 missing")
	}
	if term.Name != "drought tolerance" {
		t.Errorf("name: got %q", term.Name)
	}
	if len(term.Synonyms) != 2 || term.Synonyms[0] != "drought resistance" {
		t.Errorf("synonyms: got %v", term.Synonyms)
	}
	if len(term.Parents) != 1 || term.Parents[0] != "TO:0000237" {
		t.Errorf("parents: got %v", term.Parents)
	}
	if !ontology.Terms["TO:0009999"].Obsolete {
		t.Error("obsolete flag not parsed")
	}
}

func TestDictionary(t *testing.T) {
	ontology := parseFixture(t)
	dictionary := ontology.Dictionary("TO:", map[string]struct{}{"dt": {}})

	if _, ok := dictionary["PATO:0000001"]; ok {
		t.Error("foreign-prefix term must be excluded")
	}
	if _, ok := dictionary["TO:0009999"]; ok {
		t.Error("obsolete term must be excluded")
	}
	// "DT" is block-listed and too short anyway; "stress trait" keeps its
	// "trait" word because it only has two words.
	if got := dictionary["TO:0000276"]; got != "TO:0000276 | drought tolerance | drought resistance" {
		t.Errorf("TO:0000276 entry: got %q", got)
	}
	if got := dictionary["TO:0000237"]; got != "TO:0000237 | stress trait" {
		t.Errorf("TO:0000237 entry: got %q", got)
	}
}

func TestAncestorsAndDescendants(t *testing.T) {
	ontology := parseFixture(t)

	ancestors := ontology.Ancestors("TO:0000276", "TO:")
	sort.Strings(ancestors)
	if len(ancestors) != 2 || ancestors[0] != "TO:0000237" || ancestors[1] != "TO:0000387" {
		t.Errorf("ancestors: got %v", ancestors)
	}

	descendants := ontology.Descendants("TO:0000387", "TO:")
	sort.Strings(descendants)
	if len(descendants) != 2 || descendants[0] != "TO:0000237" || descendants[1] != "TO:0000276" {
		t.Errorf("descendants: got %v", descendants)
	}

	if got := ontology.Ancestors("TO:0000387", "TO:"); len(got) != 0 {
		t.Errorf("root ancestors: got %v", got)
	}
}

func TestNormalizeSynonym(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`"drought resistance" EXACT []`, "drought resistance"},
		{"Grain Yield trait", "grain yield"},
		{"stress trait", "stress trait"},
		{"salt tolerance (exact) (related)", "salt tolerance"},
		{"  Plant Height  ", "plant height"},
	}
	for _, test := range tests {
		if got := NormalizeSynonym(test.in); got != test.want {
			t.Errorf("NormalizeSynonym(%q) = %q, want %q", test.in, got, test.want)
		}
	}
}
