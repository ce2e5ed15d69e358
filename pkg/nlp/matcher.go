package nlp

import (
	"sort"
	"strings"
	"unicode"

	"github.com/coregx/ahocorasick"

	"github.com/plantmine/triplextract/pkg/logger"
)

// TermMatch is one dictionary term located in a text. Start and Length are
// byte-based and refer to the original text, not its lemmatized form.
type TermMatch struct {
	TermID  string
	Surface string
	Start   int
	Length  int
}

// Matcher finds dictionary terms in free text. Matching is lemma-based: both
// the dictionary phrases and the candidate text are lowercased, tokenized and
// lemmatized before the automaton runs, so "resistances" still hits a
// dictionary entry "resistance". Punctuation between tokens breaks phrase
// adjacency, so "drought. Tolerance" never matches "drought tolerance".
// Single-token matches are additionally required to be nominal, which
// suppresses hits like the verb "yield".
type Matcher struct {
	analyzer     *Analyzer
	automaton    *ahocorasick.Automaton
	patternTerms [][]string
}

// NewMatcher compiles a dictionary into an Aho-Corasick automaton. The
// dictionary maps a term id to its pipe-separated synonym list, the format
// the ontology and synonym loaders produce.
func NewMatcher(analyzer *Analyzer, dictionary map[string]string) (*Matcher, error) {
	m := &Matcher{analyzer: analyzer}

	patternIndex := make(map[string]int)
	var patterns []string
	for termID, synonyms := range dictionary {
		for _, synonym := range strings.Split(synonyms, "|") {
			phrase := m.canonicalPhrase(synonym)
			if phrase == "" {
				continue
			}
			idx, ok := patternIndex[phrase]
			if !ok {
				idx = len(patterns)
				patterns = append(patterns, phrase)
				m.patternTerms = append(m.patternTerms, nil)
				patternIndex[phrase] = idx
			}
			m.patternTerms[idx] = appendUnique(m.patternTerms[idx], termID)
		}
	}
	logger.Debug("Compiling term automaton", "terms", len(dictionary), "patterns", len(patterns))

	automaton, err := ahocorasick.NewBuilder().
		AddStrings(patterns).
		SetMatchKind(ahocorasick.LeftmostLongest).
		SetPrefilter(true).
		Build()
	if err != nil {
		return nil, err
	}
	m.automaton = automaton
	return m, nil
}

// canonicalPhrase normalizes a dictionary synonym into the lemma form the
// automaton is built over.
func (m *Matcher) canonicalPhrase(synonym string) string {
	tokens := tokenize(synonym)
	if len(tokens) == 0 {
		return ""
	}
	shadow, _, _ := m.lemmaShadow(synonym, tokens)
	return shadow
}

// Match returns every dictionary term found in the text. Overlapping hits
// are all reported; a synonym shared by several terms yields one match per
// term.
func (m *Matcher) Match(text string) []TermMatch {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return nil
	}

	shadow, shadowStarts, shadowEnds := m.lemmaShadow(text, tokens)

	var tags []TagSpan
	tagged := false

	var result []TermMatch
	for _, match := range m.automaton.FindAllOverlapping([]byte(shadow)) {
		first := sort.SearchInts(shadowStarts, match.Start)
		if first == len(shadowStarts) || shadowStarts[first] != match.Start {
			continue
		}
		last := sort.SearchInts(shadowEnds, match.End)
		if last == len(shadowEnds) || shadowEnds[last] != match.End {
			continue
		}
		start := tokens[first].start
		end := tokens[last].end
		if first == last {
			if !tagged {
				tags = m.analyzer.TokenTags(text)
				tagged = true
			}
			if !nominalAt(tags, start, end) {
				logger.Debug("Skipping non-nominal match", "surface", text[start:end])
				continue
			}
		}
		for _, termID := range m.patternTerms[match.PatternID] {
			result = append(result, TermMatch{
				TermID:  termID,
				Surface: text[start:end],
				Start:   start,
				Length:  end - start,
			})
		}
	}
	return result
}

// shadowSeparator marks a token gap that contains punctuation. It never
// appears in a dictionary phrase built from the same gap rules unless the
// synonym itself carries the punctuation, so a phrase cannot span it.
const shadowSeparator = "\x00"

// lemmaShadow builds the lemmatized form of text that the automaton runs
// over and records, per token, its byte span inside the shadow. Gaps that
// contain anything beyond whitespace are fenced with shadowSeparator.
func (m *Matcher) lemmaShadow(text string, tokens []token) (string, []int, []int) {
	var shadow strings.Builder
	starts := make([]int, len(tokens))
	ends := make([]int, len(tokens))
	for i, tok := range tokens {
		if i > 0 {
			if separated(text, tokens[i-1].end, tok.start) {
				shadow.WriteString(shadowSeparator)
			}
			shadow.WriteByte(' ')
		}
		starts[i] = shadow.Len()
		shadow.WriteString(m.analyzer.Lemma(tok.text))
		ends[i] = shadow.Len()
	}
	return shadow.String(), starts, ends
}

func separated(text string, start, end int) bool {
	for _, r := range text[start:end] {
		if !unicode.IsSpace(r) {
			return true
		}
	}
	return false
}

type token struct {
	text  string
	start int
	end   int
}

// tokenize splits text into lowercase word tokens with their byte spans in
// the source. Hyphens and apostrophes join, everything else separates.
func tokenize(text string) []token {
	var tokens []token
	var current strings.Builder
	start := -1
	for i, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '\'' {
			if start < 0 {
				start = i
			}
			current.WriteRune(unicode.ToLower(r))
			continue
		}
		if start >= 0 {
			tokens = append(tokens, token{text: current.String(), start: start, end: i})
			current.Reset()
			start = -1
		}
	}
	if start >= 0 {
		tokens = append(tokens, token{text: current.String(), start: start, end: len(text)})
	}
	return tokens
}

func appendUnique(values []string, value string) []string {
	for _, existing := range values {
		if existing == value {
			return values
		}
	}
	return append(values, value)
}
