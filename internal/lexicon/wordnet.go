package lexicon

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// wordnetFiles are the per-category database files of a WordNet dict directory.
var wordnetFiles = []struct {
	suffix string
	pos    Category
}{
	{"noun", Noun},
	{"verb", Verb},
	{"adj", Adj},
	{"adv", Adv},
}

// LoadWordNet reads the index.* and data.* files of a WordNet 3.x database (the "dict"
// directory of a WordNet distribution) into a Thesaurus. Synsets are named like
// "laptop.n.01" after their first lemma and its sense number. Missing category files
// are skipped; a directory with none of them is an error.
func LoadWordNet(dir string) (*Thesaurus, error) {
	var synsets []Synset
	found := false
	for _, f := range wordnetFiles {
		senses, err := readWordNetIndex(filepath.Join(dir, "index."+f.suffix))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		data, err := readWordNetData(filepath.Join(dir, "data."+f.suffix), f.pos, senses)
		if err != nil {
			return nil, err
		}
		found = true
		synsets = append(synsets, data...)
	}
	if !found {
		return nil, fmt.Errorf("no WordNet database files in %s", dir)
	}
	return NewThesaurus(synsets), nil
}

func scanWordNet(path string, line func(fields []string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	n := 0
	for scanner.Scan() {
		n++
		text := scanner.Text()
		// License header lines start with a space.
		if text == "" || text[0] == ' ' {
			continue
		}
		if err := line(strings.Fields(text)); err != nil {
			return fmt.Errorf("%s:%d: %w", filepath.Base(path), n, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}

// readWordNetIndex maps "lemma offset" to the 1-based sense number of that synset for
// the lemma. Index lines are:
// lemma pos synset_cnt p_cnt [ptr_symbol...] sense_cnt tagsense_cnt synset_offset...
func readWordNetIndex(path string) (map[string]int, error) {
	senses := make(map[string]int)
	err := scanWordNet(path, func(fields []string) error {
		if len(fields) < 6 {
			return errors.New("short index line")
		}
		count, err := strconv.Atoi(fields[2])
		if err != nil || count < 1 || count > len(fields)-5 {
			return fmt.Errorf("bad synset count %q", fields[2])
		}
		lemma := fields[0]
		for i, offset := range fields[len(fields)-count:] {
			senses[lemma+" "+offset] = i + 1
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return senses, nil
}

// readWordNetData parses data lines:
// synset_offset lex_filenum ss_type w_cnt word lex_id [word lex_id...] p_cnt ... | gloss
func readWordNetData(path string, pos Category, senses map[string]int) ([]Synset, error) {
	var out []Synset
	err := scanWordNet(path, func(fields []string) error {
		if len(fields) < 6 {
			return errors.New("short data line")
		}
		offset, ssType := fields[0], fields[2]
		count, err := strconv.ParseInt(fields[3], 16, 0)
		if err != nil || count < 1 || int(4+2*count) > len(fields) {
			return fmt.Errorf("bad word count %q", fields[3])
		}
		lemmas := make([]string, count)
		for i := range lemmas {
			w := fields[4+2*i]
			// Adjective syntactic markers: "galore(ip)".
			if j := strings.IndexByte(w, '('); j > 0 {
				w = w[:j]
			}
			lemmas[i] = w
		}
		first := strings.ToLower(lemmas[0])
		sense := senses[first+" "+offset]
		if sense == 0 {
			sense = 1
		}
		out = append(out, Synset{
			Name:   fmt.Sprintf("%s.%s.%02d", first, ssType, sense),
			POS:    pos,
			Lemmas: lemmas,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
