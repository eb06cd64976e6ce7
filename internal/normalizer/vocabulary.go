package normalizer

import "strings"

// Vocabulary lists the textual encodings accepted for response flags.
// Tokens are compared after upper-casing and accent folding, so "Sí" and "SI"
// are the same token.
type Vocabulary struct {
	Affirmative []string `json:"affirmative" yaml:"affirmative"`
	Negative    []string `json:"negative" yaml:"negative"`
}

// DefaultVocabulary covers English and the Spanish spreadsheet exports
// ("VERDADERO"/"FALSO") the funnel data usually arrives in.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Affirmative: []string{"TRUE", "1", "YES", "Y", "SI", "SÍ", "VERDADERO", "X", "T"},
		Negative:    []string{"FALSE", "0", "NO", "N", "FALSO", "F"},
	}
}

type tokenSet map[string]bool

func (v Vocabulary) compile() tokenSet {
	set := make(tokenSet, len(v.Affirmative)+len(v.Negative))
	// negatives win when a token is listed in both
	for _, tok := range v.Affirmative {
		set[boolKey(tok)] = true
	}
	for _, tok := range v.Negative {
		set[boolKey(tok)] = false
	}
	return set
}

// parse resolves a textual flag. Unknown tokens, blanks and NaN are false.
func (s tokenSet) parse(value string) bool {
	return s[boolKey(value)]
}

func boolKey(value string) string {
	return strings.ToUpper(Fold(value))
}

// ParseBool coerces value using the vocabulary; it never fails
func (v Vocabulary) ParseBool(value string) bool {
	return v.compile().parse(value)
}
