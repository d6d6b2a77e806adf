package lexicon

import (
	"strings"

	"github.com/jdkato/prose/v2"
)

// Token is a word with its Penn Treebank part-of-speech tag.
type Token struct {
	Text string
	Tag  string
}

// Tagger splits text into tokens and tags each one.
type Tagger interface {
	Tag(text string) []Token
}

// ProseTagger tags with the averaged perceptron model bundled in prose. The model is
// built once and shared by every Tag call.
type ProseTagger struct {
	model *prose.Model
}

// NewProseTagger loads the prose tagging model.
func NewProseTagger() *ProseTagger {
	p := &ProseTagger{}
	if doc, err := prose.NewDocument("", proseOptions()...); err == nil {
		p.model = doc.Model
	}
	return p
}

func proseOptions() []prose.DocOpt {
	return []prose.DocOpt{
		prose.WithSegmentation(false),
		prose.WithExtraction(false),
	}
}

// Tag tokenizes and tags text. If prose rejects the input the text is split on
// whitespace and left untagged, so nothing gets expanded.
func (p *ProseTagger) Tag(text string) []Token {
	opts := proseOptions()
	if p.model != nil {
		opts = append(opts, prose.UsingModel(p.model))
	}
	doc, err := prose.NewDocument(text, opts...)
	if err != nil {
		return untagged(text)
	}
	toks := doc.Tokens()
	out := make([]Token, 0, len(toks))
	for _, t := range toks {
		out = append(out, Token{Text: t.Text, Tag: t.Tag})
	}
	return out
}

func untagged(text string) []Token {
	fields := strings.Fields(text)
	out := make([]Token, len(fields))
	for i, f := range fields {
		out[i] = Token{Text: f}
	}
	return out
}
