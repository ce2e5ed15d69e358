// Package nlp provides the linguistic capabilities the mining pipeline
// depends on: sentence segmentation, part-of-speech tagging, lemmatization,
// and dictionary phrase matching. The Analyzer and Matcher are built once at
// startup and are read-only afterwards, so they can be shared across all
// documents of a run.
package nlp

import (
	"strings"

	"github.com/aaaton/golem/v4"
	"github.com/aaaton/golem/v4/dicts/en"
	"github.com/jdkato/prose/v2"

	"github.com/plantmine/triplextract/pkg/logger"
)

// Analyzer wraps the sentence segmenter, the POS tagger and the lemmatizer.
type Analyzer struct {
	lemmatizer *golem.Lemmatizer
}

// NewAnalyzer loads the English lemmatizer dictionary. Model loading happens
// here, during setup, never inside the per-document hot path.
func NewAnalyzer() (*Analyzer, error) {
	lemmatizer, err := golem.New(en.New())
	if err != nil {
		return nil, err
	}
	return &Analyzer{lemmatizer: lemmatizer}, nil
}

// Lemma returns the dictionary lemma of a lowercase word, or the word itself
// when unknown.
func (a *Analyzer) Lemma(word string) string {
	return a.lemmatizer.Lemma(word)
}

// Sentences returns the sentences of the text, in order.
func (a *Analyzer) Sentences(text string) []string {
	doc, err := prose.NewDocument(text, prose.WithTagging(false), prose.WithExtraction(false))
	if err != nil {
		logger.Warn("Sentence segmentation failed", "err", err)
		return []string{text}
	}
	sentences := doc.Sentences()
	result := make([]string, len(sentences))
	for i, sentence := range sentences {
		result[i] = sentence.Text
	}
	return result
}

// SentenceBounds returns the [start, end) byte span of the sentence
// containing the given offset, by walking the segmented sentences and
// accumulating consumed length. An offset past the last resolvable sentence
// yields the bounds of the last sentence; this mirrors the behavior the
// downstream case classification was tuned against.
func (a *Analyzer) SentenceBounds(text string, pos int) (int, int) {
	sentences := a.Sentences(text)
	if len(sentences) == 0 {
		return -1, -1
	}
	current := 0
	var sentence string
	for _, s := range sentences {
		sentence = s
		if current+len(s) > pos {
			break
		}
		current += len(s)
	}
	start := strings.Index(text, sentence)
	return start, start + len(sentence)
}

// TagSpan is one tagged token with its byte span in the source text.
// The tag is a Penn Treebank POS tag.
type TagSpan struct {
	Start int
	End   int
	Tag   string
}

// TokenTags tags the text and aligns each token back to its byte span.
// Tokens the aligner cannot locate are dropped.
func (a *Analyzer) TokenTags(text string) []TagSpan {
	doc, err := prose.NewDocument(text, prose.WithExtraction(false))
	if err != nil {
		logger.Warn("POS tagging failed", "err", err)
		return nil
	}
	tokens := doc.Tokens()
	spans := make([]TagSpan, 0, len(tokens))
	cursor := 0
	for _, token := range tokens {
		idx := strings.Index(text[cursor:], token.Text)
		if idx < 0 {
			continue
		}
		start := cursor + idx
		end := start + len(token.Text)
		spans = append(spans, TagSpan{Start: start, End: end, Tag: token.Tag})
		cursor = end
	}
	return spans
}

// nominalAt reports whether the token covering [start, end) is a noun or
// proper noun. Spans with no aligned tag are kept rather than filtered.
func nominalAt(spans []TagSpan, start, end int) bool {
	for _, span := range spans {
		if span.End <= start {
			continue
		}
		if span.Start >= end {
			break
		}
		return strings.HasPrefix(span.Tag, "NN")
	}
	return true
}
