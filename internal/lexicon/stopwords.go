package lexicon

import (
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
)

// EnglishStopWords returns the English stop list shipped with bleve.
func EnglishStopWords() analysis.TokenMap {
	m := analysis.NewTokenMap()
	// The embedded list always parses.
	_ = m.LoadBytes(en.EnglishStopWords)
	return m
}
