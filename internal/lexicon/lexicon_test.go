package lexicon

import (
	"reflect"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"
)

// staticTagger splits on whitespace and tags from a fixed table, defaulting to NN.
type staticTagger map[string]string

func (s staticTagger) Tag(text string) []Token {
	var out []Token
	for _, f := range strings.Fields(text) {
		tag, ok := s[strings.ToLower(f)]
		if !ok {
			tag = "NN"
		}
		out = append(out, Token{Text: f, Tag: tag})
	}
	return out
}

var annotation = regexp.MustCompile(` \([^()]*\)`)

func strip(s string) string {
	return annotation.ReplaceAllString(s, "")
}

func newTestExpander(t *testing.T, tags staticTagger, opts ...Option) *Expander {
	t.Helper()
	th, err := DefaultThesaurus()
	if err != nil {
		t.Fatalf("DefaultThesaurus: %v", err)
	}
	return NewExpander(tags, th, opts...)
}

func TestExpand(t *testing.T) {
	tags := staticTagger{"gaming": "NN", "laptop": "NN", "cheap": "JJ", "playing": "VBG", "16gb": "CD"}
	e := newTestExpander(t, tags)

	tests := []struct {
		in   string
		want string
	}{
		{"gaming laptop", "gaming (gambling, play) laptop (laptop computer)"},
		{"cheap laptop", "cheap (inexpensive, bum) laptop (laptop computer)"},
		{"a dell with ram", "a dell with ram"},
		{"16gb ₹85,000 laptop", "16gb ₹85,000 laptop (laptop computer)"},
		{"computer", "computer (data processor)"},
		{"laptops", "laptops (laptop, laptop computer)"},
		{"playing", "playing"},
		{"zyxwv", "zyxwv"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := e.Expand(tt.in); got != tt.want {
				t.Errorf("Expand(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExpand_additive(t *testing.T) {
	e := newTestExpander(t, staticTagger{})
	inputs := []string{
		"gaming laptop",
		"cheap   lightweight  notebook for students",
		"16GB RAM dell with nvidia graphics",
		"fast thin computer screen",
		"window display battery",
	}
	for _, in := range inputs {
		got := strip(e.Expand(in))
		want := strings.Join(strings.Fields(in), " ")
		if got != want {
			t.Errorf("strip(Expand(%q)) = %q, want %q", in, got, want)
		}
	}
}

func TestExpand_idempotentOnStrippedForm(t *testing.T) {
	e := newTestExpander(t, staticTagger{"cheap": "JJ", "fast": "JJ"})
	for _, in := range []string{"cheap fast laptop", "gaming notebook with large display"} {
		first := e.Expand(in)
		second := e.Expand(strip(first))
		if first != second {
			t.Errorf("re-expansion differs: %q vs %q", first, second)
		}
	}
}

func TestExpand_posFilter(t *testing.T) {
	e := newTestExpander(t, staticTagger{"gaming": "VBG"})
	if got := e.Expand("gaming"); got != "gaming" {
		t.Errorf("VBG should not expand by default, got %q", got)
	}
	e = newTestExpander(t, staticTagger{"gaming": "VBG"}, WithAllowedPOS([]string{"VBG"}))
	if got := e.Expand("gaming"); got != "gaming" {
		t.Errorf("gaming has no verb synsets, got %q", got)
	}
}

func TestExpand_blacklistAndMax(t *testing.T) {
	e := newTestExpander(t, staticTagger{}, WithMaxSynonyms(1), WithBlacklist([]string{"laptop_computer"}))
	if got := e.Expand("laptop"); got != "laptop" {
		t.Errorf("blacklisted synonym leaked: %q", got)
	}
	if got := e.Expand("gaming"); got != "gaming (gambling)" {
		t.Errorf("max synonyms 1: got %q", got)
	}
}

func TestExpand_windowBlacklisted(t *testing.T) {
	e := newTestExpander(t, staticTagger{})
	// windowpane.n.01 holds "window" but both entries are blacklisted.
	if got := e.Expand("windowpane"); got != "windowpane" {
		t.Errorf("got %q", got)
	}
}

func TestSynonyms_memoized(t *testing.T) {
	e := newTestExpander(t, staticTagger{})
	first := e.Synonyms("laptop", Noun)
	second := e.Synonyms("LAPTOP", Noun)
	if strings.Join(first, ",") != strings.Join(second, ",") {
		t.Errorf("memoized result differs: %v vs %v", first, second)
	}
	hits, misses := e.Cache().Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("Stats() = %d hits, %d misses; want 1, 1", hits, misses)
	}
}

func TestCategoryForTag(t *testing.T) {
	tests := map[string]Category{
		"JJ": Adj, "JJS": Adj, "VBG": Verb, "NN": Noun, "NNS": Noun, "RB": Adv, "CD": Any, "": Any,
	}
	for tag, want := range tests {
		if got := CategoryForTag(tag); got != want {
			t.Errorf("CategoryForTag(%q) = %q, want %q", tag, got, want)
		}
	}
}

func TestEnglishStopWords(t *testing.T) {
	m := EnglishStopWords()
	for _, w := range []string{"a", "with", "for", "the"} {
		if !m[w] {
			t.Errorf("%q should be a stop word", w)
		}
	}
	if m["laptop"] {
		t.Error("laptop is not a stop word")
	}
}

func TestProseTagger(t *testing.T) {
	toks := NewProseTagger().Tag("gaming laptop")
	if len(toks) != 2 {
		t.Fatalf("got %d tokens, want 2", len(toks))
	}
	if toks[0].Text != "gaming" || toks[1].Text != "laptop" {
		t.Errorf("tokens = %+v", toks)
	}
	for _, tok := range toks {
		if tok.Tag == "" {
			t.Errorf("token %q has no tag", tok.Text)
		}
	}
}

func TestProseTagger_reusesModel(t *testing.T) {
	tagger := NewProseTagger()
	if tagger.model == nil {
		t.Fatal("model should be loaded by the constructor")
	}
	want := tagger.Tag("16gb ram dell gaming laptop")

	// Rebuilding the perceptron costs hundreds of milliseconds a call.
	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := tagger.Tag("16gb ram dell gaming laptop"); !reflect.DeepEqual(got, want) {
				t.Errorf("Tag = %+v, want %+v", got, want)
			}
		}()
	}
	wg.Wait()
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("20 Tag calls took %s", elapsed)
	}
}

func BenchmarkProseTagger_Tag(b *testing.B) {
	tagger := NewProseTagger()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tagger.Tag("16gb ram dell gaming laptop")
	}
}
