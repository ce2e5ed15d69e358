// Package pubmed models annotated PubTator documents. A document is a list
// of passages (paragraphs), each carrying pre-computed species and gene
// mention spans. Construction validates and filters the raw payload down to
// the paragraphs and mentions worth mining.
package pubmed

import (
	"encoding/xml"
	"strings"
)

// Filters bundles the dictionaries applied to incoming mentions: the species
// allow-list (tax id -> synonyms) and the species/gene surface blocklists.
type Filters struct {
	Species          map[string]string
	SpeciesBlocklist map[string]struct{}
	GeneBlocklist    map[string]struct{}
}

// Author is one document author.
type Author struct {
	Surname    string `json:"surname"`
	GivenNames string `json:"given_names"`
}

// Document is a validated PubTator document: metadata, the retained
// paragraphs, and the document-wide species bookkeeping used for
// document-level association fallbacks.
type Document struct {
	PubmedID    string   `json:"pubmed_id"`
	PMCID       string   `json:"pmc_id"`
	DOI         string   `json:"doi"`
	SICI        string   `json:"sici"`
	PublisherID string   `json:"publisher_id"`
	Year        string   `json:"year"`
	Journal     string   `json:"journal"`
	Volume      string   `json:"volume"`
	Title       string   `json:"title"`
	Authors     []Author `json:"authors"`

	Paragraphs []*Paragraph `json:"paragraphs"`

	// RelevantSpeciesIDs counts occurrences of each allow-listed species id
	// across all retained paragraphs.
	RelevantSpeciesIDs map[string]int `json:"relevant_species_ids"`
	// GeneIDs counts occurrences of each gene id across retained paragraphs.
	GeneIDs map[string]int `json:"gene_ids"`

	// TitleSpecies and AbstractSpecies hold the species mentions found in
	// the title and abstract paragraphs, in order of appearance. They feed
	// the document-level fallback cases.
	TitleSpecies    []*Annotation `json:"-"`
	AbstractSpecies []*Annotation `json:"-"`
}

type biocInfon struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

type biocLocation struct {
	Offset int `xml:"offset,attr"`
	Length int `xml:"length,attr"`
}

type biocAnnotation struct {
	Infons   []biocInfon  `xml:"infon"`
	Location biocLocation `xml:"location"`
	Text     string       `xml:"text"`
}

type biocPassage struct {
	Infons      []biocInfon      `xml:"infon"`
	Offset      int              `xml:"offset"`
	Text        string           `xml:"text"`
	Annotations []biocAnnotation `xml:"annotation"`
}

type biocDocument struct {
	ID       string        `xml:"id"`
	Passages []biocPassage `xml:"passage"`
}

func (p biocPassage) infonValues(key string) []string {
	var values []string
	for _, infon := range p.Infons {
		if infon.Key == key {
			values = append(values, infon.Value)
		}
	}
	return values
}

func (p biocPassage) infon(key string) string {
	for _, infon := range p.Infons {
		if infon.Key == key {
			return infon.Value
		}
	}
	return ""
}

// ParseDocument builds a Document from one BioC XML document payload.
// Construction never fails on content issues (malformed mentions are
// filtered, unknown labels bucketed); only invalid XML returns an error.
func ParseDocument(payload []byte, filters Filters) (*Document, error) {
	var raw biocDocument
	if err := xml.Unmarshal(payload, &raw); err != nil {
		return nil, err
	}

	doc := &Document{
		RelevantSpeciesIDs: make(map[string]int),
		GeneIDs:            make(map[string]int),
	}
	doc.retrieveMetadata(raw)
	doc.retrieveParagraphs(raw, filters)
	return doc, nil
}

// IsRelevant reports whether the document is worth mining: at least one
// retained paragraph and at least one allow-listed species mention.
// Non-relevant documents must be discarded before persistence.
func (d *Document) IsRelevant() bool {
	return len(d.Paragraphs) > 0 && len(d.RelevantSpeciesIDs) > 0
}

// retrieveMetadata extracts document properties from the first passage node.
func (d *Document) retrieveMetadata(raw biocDocument) {
	if len(raw.Passages) == 0 {
		return
	}
	front := raw.Passages[0]

	d.PubmedID = front.infon("article-id_pmid")
	if d.PubmedID == "" {
		// Observed convention: the document id is the PMC id, falling back
		// to the PubMed id when no PMC id exists.
		d.PubmedID = raw.ID
	}
	d.PMCID = strings.TrimPrefix(front.infon("article-id_pmc"), "PMC")
	d.SICI = front.infon("article-id_sici")
	d.PublisherID = front.infon("article-id_publisher-id")
	d.Year = front.infon("year")
	d.DOI = front.infon("article-id_doi")

	// The journal infon is of the form "PLoS Genet.; 2007 Nov; 3(11) 194
	// doi:XXX"; only the name is wanted, and the doi is recovered from it
	// when the dedicated infon is empty.
	journal := front.infon("journal")
	d.Journal, _, _ = strings.Cut(journal, ";")
	if d.DOI == "" {
		if _, doi, ok := strings.Cut(journal, "doi:"); ok {
			d.DOI = doi
		}
	}
	d.Volume = front.infon("volume")
	d.Title = front.Text

	// Authors are encoded as "surname:Albai;given-names:Giuseppe" in
	// name_N infons.
	for _, infon := range front.Infons {
		if !strings.HasPrefix(infon.Key, "name_") {
			continue
		}
		parts := strings.Split(infon.Value, ";")
		author := Author{Surname: valueAfterColon(parts[0])}
		if len(parts) >= 2 {
			author.GivenNames = valueAfterColon(parts[1])
		}
		d.Authors = append(d.Authors, author)
	}
}

func valueAfterColon(field string) string {
	_, value, _ := strings.Cut(field, ":")
	return value
}

// retrieveParagraphs keeps the relevant paragraphs and accumulates the
// document-wide species and gene occurrence counts as a byproduct, plus the
// title and abstract species mention lists.
func (d *Document) retrieveParagraphs(raw biocDocument, filters Filters) {
	for _, passage := range raw.Passages {
		paragraph := newParagraph(passage, filters)
		if !paragraph.IsRelevant() {
			continue
		}
		d.Paragraphs = append(d.Paragraphs, paragraph)
		countAnnotationIDs(paragraph.SpeciesAnnotations, d.RelevantSpeciesIDs)
		countAnnotationIDs(paragraph.GeneAnnotations, d.GeneIDs)
		switch paragraph.Type {
		case ParagraphTitle:
			d.TitleSpecies = append(d.TitleSpecies, paragraph.SpeciesAnnotations...)
		case ParagraphAbstract:
			d.AbstractSpecies = append(d.AbstractSpecies, paragraph.SpeciesAnnotations...)
		}
	}
}

func countAnnotationIDs(annotations []*Annotation, counts map[string]int) {
	for _, ann := range annotations {
		for _, id := range ann.IDs {
			counts[id]++
		}
	}
}
