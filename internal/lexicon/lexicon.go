// Package lexicon expands search queries by appending controlled synonym annotations
// after eligible words, leaving the original wording untouched.
package lexicon

import (
	"strings"

	"github.com/blevesearch/bleve/v2/analysis"
	"go.uber.org/zap"

	"github.com/hyperjump/tansaku/pkg/utils"
)

// Defaults for expansion.
var (
	DefaultAllowedPOS  = []string{"NN", "NNS", "JJ"}
	DefaultDoNotExpand = []string{"ram", "core", "thread", "gb", "windows", "os"}
	DefaultBlacklist   = []string{
		"windowpane", "dingle", "pane", "computing machine", "computing device",
		"electronic computer", "microcomputer", "window",
	}
	DefaultBrands = []string{
		"hp", "dell", "lenovo", "asus", "acer", "apple", "msi", "huawei", "xiaomi",
		"toshiba", "samsung", "google", "microsoft", "razer", "lg",
	}
)

const (
	DefaultMaxSynonyms = 2
	maxSynonymWords    = 2
)

// Expander appends up to N synonyms, in parentheses, after each eligible token.
type Expander struct {
	tagger      Tagger
	source      SynonymSource
	cache       *SynonymCache
	stopWords   analysis.TokenMap
	maxSynonyms int
	allowedPOS  map[string]bool
	doNotExpand map[string]bool
	blacklist   map[string]bool
	brands      map[string]bool
	logger      *zap.Logger
}

// Option configures an Expander.
type Option func(*Expander)

// WithMaxSynonyms caps synonyms per token.
func WithMaxSynonyms(n int) Option {
	return func(e *Expander) {
		if n > 0 {
			e.maxSynonyms = n
		}
	}
}

// WithAllowedPOS sets the Penn Treebank tags eligible for expansion.
func WithAllowedPOS(tags []string) Option {
	return func(e *Expander) { e.allowedPOS = set(tags, false) }
}

// WithDoNotExpand sets terms that are never expanded.
func WithDoNotExpand(terms []string) Option {
	return func(e *Expander) { e.doNotExpand = set(terms, true) }
}

// WithBlacklist sets synonyms that are never emitted. Underscores are read as spaces.
func WithBlacklist(terms []string) Option {
	return func(e *Expander) { e.blacklist = set(terms, true) }
}

// WithBrands sets brand names that are never expanded.
func WithBrands(brands []string) Option {
	return func(e *Expander) { e.brands = set(brands, true) }
}

// WithCache sets the synonym memo.
func WithCache(c *SynonymCache) Option {
	return func(e *Expander) {
		if c != nil {
			e.cache = c
		}
	}
}

// WithStopWords replaces the stop list.
func WithStopWords(m analysis.TokenMap) Option {
	return func(e *Expander) { e.stopWords = m }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Expander) { e.logger = utils.LoggerOrNop(l) }
}

// NewExpander creates an expander over tagger and source.
func NewExpander(tagger Tagger, source SynonymSource, opts ...Option) *Expander {
	e := &Expander{
		tagger:      tagger,
		source:      source,
		cache:       NewSynonymCache(DefaultCacheSize),
		stopWords:   EnglishStopWords(),
		maxSynonyms: DefaultMaxSynonyms,
		allowedPOS:  set(DefaultAllowedPOS, false),
		doNotExpand: set(DefaultDoNotExpand, true),
		blacklist:   set(DefaultBlacklist, true),
		brands:      set(DefaultBrands, true),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Cache returns the synonym memo.
func (e *Expander) Cache() *SynonymCache {
	return e.cache
}

// Expand returns the tokens of text joined by single spaces, each eligible token
// followed by "(syn1, syn2)". It never fails; unknown or odd tokens pass through.
func (e *Expander) Expand(text string) string {
	tokens := e.tagger.Tag(text)
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		out = append(out, tok.Text)
		lower := strings.ToLower(tok.Text)
		if !e.eligible(lower, tok.Tag) {
			continue
		}
		if syns := e.Synonyms(lower, CategoryForTag(tok.Tag)); len(syns) > 0 {
			out = append(out, "("+strings.Join(syns, ", ")+")")
		}
	}
	expanded := strings.Join(out, " ")
	e.logger.Debug("expanded query", zap.String("query", text), zap.String("expanded", expanded))
	return expanded
}

func (e *Expander) eligible(lower, tag string) bool {
	if !utils.IsAlpha(lower) {
		return false
	}
	if e.stopWords[lower] || e.doNotExpand[lower] || e.brands[lower] {
		return false
	}
	return e.allowedPOS[tag]
}

// Synonyms returns the filtered, ordered synonyms of term in category cat, memoized.
func (e *Expander) Synonyms(term string, cat Category) []string {
	term = strings.ToLower(term)
	if v, ok := e.cache.Get(term, cat); ok {
		return v
	}

	var out []string
	seen := make(map[string]bool)
	for _, cand := range e.source.Lemmas(term, cat) {
		lower := strings.ToLower(cand)
		if seen[lower] || !e.valid(lower, term) {
			continue
		}
		seen[lower] = true
		out = append(out, cand)
		if len(out) >= e.maxSynonyms {
			break
		}
	}
	e.cache.Set(term, cat, out)
	return out
}

func (e *Expander) valid(lower, term string) bool {
	if lower == "" || lower == term || e.blacklist[lower] {
		return false
	}
	parts := strings.Fields(lower)
	if len(parts) == 0 || len(parts) > maxSynonymWords {
		return false
	}
	for _, p := range parts {
		if !utils.IsAlpha(p) {
			return false
		}
	}
	return true
}

func set(items []string, normalize bool) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		if normalize {
			it = strings.ToLower(strings.ReplaceAll(it, "_", " "))
		}
		m[it] = true
	}
	return m
}
