package lexicon

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Category is a coarse lexical category used to scope synonym lookups.
type Category string

const (
	Noun Category = "noun"
	Verb Category = "verb"
	Adj  Category = "adj"
	Adv  Category = "adv"
	// Any matches every category.
	Any Category = ""
)

// CategoryForTag maps a Penn Treebank tag to a Category (JJ* adj, VB* verb, NN* noun, RB* adv).
func CategoryForTag(tag string) Category {
	switch {
	case strings.HasPrefix(tag, "J"):
		return Adj
	case strings.HasPrefix(tag, "V"):
		return Verb
	case strings.HasPrefix(tag, "N"):
		return Noun
	case strings.HasPrefix(tag, "R"):
		return Adv
	}
	return Any
}

// SynonymSource yields ordered synonym candidates for a term. Candidates may include
// the term itself and noisy entries; the expander filters them.
type SynonymSource interface {
	Lemmas(term string, cat Category) []string
}

// Synset is a group of lemmas sharing one sense, named like "laptop.n.01".
type Synset struct {
	Name   string   `yaml:"name"`
	POS    Category `yaml:"pos"`
	Lemmas []string `yaml:"lemmas"`
}

type thesaurusFile struct {
	Synsets []Synset `yaml:"synsets"`
}

// Thesaurus is an in-memory WordNet-style synonym source.
type Thesaurus struct {
	synsets []Synset
	// index maps a lowercase lemma (underscores kept) to synset positions.
	index map[string][]int
}

//go:embed thesaurus.yaml
var defaultThesaurus []byte

// NewThesaurus indexes the given synsets.
func NewThesaurus(synsets []Synset) *Thesaurus {
	t := &Thesaurus{synsets: synsets, index: make(map[string][]int)}
	for i, s := range synsets {
		for _, l := range s.Lemmas {
			key := strings.ToLower(l)
			t.index[key] = append(t.index[key], i)
		}
	}
	return t
}

// ParseThesaurus parses a YAML document with a top-level "synsets" list.
func ParseThesaurus(data []byte) (*Thesaurus, error) {
	var f thesaurusFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse thesaurus: %w", err)
	}
	for i, s := range f.Synsets {
		if s.Name == "" {
			return nil, fmt.Errorf("synset %d has no name", i)
		}
		switch s.POS {
		case Noun, Verb, Adj, Adv:
		default:
			return nil, fmt.Errorf("synset %s has invalid pos %q", s.Name, s.POS)
		}
	}
	return NewThesaurus(f.Synsets), nil
}

// LoadThesaurus reads a YAML thesaurus file, or a WordNet database when path is a
// directory. An empty path loads the built-in vocabulary.
func LoadThesaurus(path string) (*Thesaurus, error) {
	if path == "" {
		return DefaultThesaurus()
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return LoadWordNet(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read thesaurus: %w", err)
	}
	return ParseThesaurus(data)
}

// DefaultThesaurus returns the built-in vocabulary.
func DefaultThesaurus() (*Thesaurus, error) {
	return ParseThesaurus(defaultThesaurus)
}

// Len returns the number of synsets.
func (t *Thesaurus) Len() int {
	return len(t.synsets)
}

// Lemmas returns the lemmas of every synset containing term (or one of its base forms)
// in category cat. Synsets are ordered by name and lemmas by name within each synset;
// underscores become spaces.
func (t *Thesaurus) Lemmas(term string, cat Category) []string {
	seen := make(map[int]bool)
	var matched []Synset
	for _, form := range t.forms(strings.ToLower(term), cat) {
		for _, i := range t.index[form] {
			if seen[i] || !posMatches(t.synsets[i].POS, cat) {
				continue
			}
			seen[i] = true
			matched = append(matched, t.synsets[i])
		}
	}
	sort.Slice(matched, func(a, b int) bool { return matched[a].Name < matched[b].Name })

	var out []string
	for _, s := range matched {
		lemmas := append([]string(nil), s.Lemmas...)
		sort.Strings(lemmas)
		for _, l := range lemmas {
			out = append(out, strings.ReplaceAll(l, "_", " "))
		}
	}
	return out
}

func posMatches(pos, cat Category) bool {
	return cat == Any || pos == cat
}

type suffixRule struct{ suffix, replace string }

var nounSuffixes = []suffixRule{
	{"ses", "s"}, {"xes", "x"}, {"zes", "z"}, {"ches", "ch"}, {"shes", "sh"},
	{"men", "man"}, {"ies", "y"}, {"s", ""},
}

var verbSuffixes = []suffixRule{
	{"s", ""}, {"ies", "y"}, {"es", "e"}, {"es", ""}, {"ed", "e"}, {"ed", ""},
	{"ing", "e"}, {"ing", ""},
}

var adjSuffixes = []suffixRule{
	{"er", ""}, {"est", ""}, {"er", "e"}, {"est", "e"},
}

// forms returns term followed by the inflectional base forms present in the index.
func (t *Thesaurus) forms(term string, cat Category) []string {
	forms := []string{term}
	var rules []suffixRule
	switch cat {
	case Noun:
		rules = nounSuffixes
	case Verb:
		rules = verbSuffixes
	case Adj:
		rules = adjSuffixes
	default:
		rules = append(append(append(rules, nounSuffixes...), verbSuffixes...), adjSuffixes...)
	}
	for _, r := range rules {
		if !strings.HasSuffix(term, r.suffix) || len(term) <= len(r.suffix) {
			continue
		}
		base := strings.TrimSuffix(term, r.suffix) + r.replace
		if _, ok := t.index[base]; ok && base != term {
			forms = append(forms, base)
		}
	}
	return forms
}
