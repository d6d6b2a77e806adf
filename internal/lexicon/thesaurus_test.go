package lexicon

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultThesaurus(t *testing.T) {
	th, err := LoadThesaurus("")
	if err != nil {
		t.Fatal(err)
	}
	if th.Len() == 0 {
		t.Fatal("default thesaurus is empty")
	}
	got := th.Lemmas("cheap", Adj)
	if len(got) < 3 || got[0] != "cheap" || got[1] != "inexpensive" || got[2] != "bum" {
		t.Errorf("Lemmas(cheap, adj) = %v", got)
	}
	if got := th.Lemmas("cheap", Noun); len(got) != 0 {
		t.Errorf("no noun sense for cheap, got %v", got)
	}
}

func TestThesaurus_orderAndUnderscores(t *testing.T) {
	th := NewThesaurus([]Synset{
		{Name: "b.n.01", POS: Noun, Lemmas: []string{"zeta", "term", "alpha_beta"}},
		{Name: "a.n.01", POS: Noun, Lemmas: []string{"term", "omega"}},
		{Name: "c.a.01", POS: Adj, Lemmas: []string{"term", "adjective"}},
	})
	got := strings.Join(th.Lemmas("term", Noun), "|")
	if want := "omega|term|alpha beta|term|zeta"; got != want {
		t.Errorf("Lemmas(noun) = %s, want %s", got, want)
	}
	got = strings.Join(th.Lemmas("TERM", Any), "|")
	if want := "omega|term|alpha beta|term|zeta|adjective|term"; got != want {
		t.Errorf("Lemmas(any) = %s, want %s", got, want)
	}
}

func TestLoadThesaurus(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	content := "synsets:\n  - name: ssd.n.01\n    pos: noun\n    lemmas: [ssd, solid_state_drive]\n"
	if err := os.WriteFile(good, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	th, err := LoadThesaurus(good)
	if err != nil {
		t.Fatal(err)
	}
	if got := th.Lemmas("ssd", Noun); len(got) != 2 || got[0] != "solid state drive" {
		t.Errorf("Lemmas = %v", got)
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("synsets:\n  - name: x.q.01\n    pos: pronoun\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadThesaurus(bad); err == nil {
		t.Error("expected error for invalid pos")
	}
	if _, err := LoadThesaurus(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
