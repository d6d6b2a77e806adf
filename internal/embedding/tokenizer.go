package embedding

import (
	"hash/fnv"
	"strings"
	"unicode"
)

// BERT special token ids and vocabulary bound used by HashTokenizer.
const (
	clsTokenID = 101
	sepTokenID = 102
	vocabSize  = 30522
	// firstWordID keeps hashed ids clear of the special-token range.
	firstWordID = 1000
)

// Tokenizer produces BERT-style model inputs (input_ids, attention_mask, token_type_ids),
// padded to maxTokens.
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)
	// TokenizePair encodes "[CLS] a [SEP] b [SEP]" with segment ids 0 then 1, as
	// cross-encoders expect.
	TokenizePair(a, b string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)
}

// HashTokenizer splits on non-alphanumeric runes and maps lowercased words to ids by hash.
type HashTokenizer struct{}

// Tokenize encodes a single segment.
func (t *HashTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	return t.encode([][]string{Words(text)}, maxTokens)
}

// TokenizePair encodes two segments. When too long, the longer segment is trimmed first.
func (t *HashTokenizer) TokenizePair(a, b string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	return t.encode([][]string{Words(a), Words(b)}, maxTokens)
}

func (t *HashTokenizer) encode(segments [][]string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens <= 0 {
		maxTokens = 256
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)

	// [CLS] plus one [SEP] per segment.
	budget := maxTokens - 1 - len(segments)
	for total(segments) > budget && budget >= 0 {
		longest := 0
		for i := range segments {
			if len(segments[i]) > len(segments[longest]) {
				longest = i
			}
		}
		if len(segments[longest]) == 0 {
			break
		}
		segments[longest] = segments[longest][:len(segments[longest])-1]
	}

	pos := 0
	put := func(id int64, segment int) {
		if pos >= maxTokens {
			return
		}
		inputIDs[pos] = id
		attentionMask[pos] = 1
		tokenTypeIDs[pos] = int64(segment)
		pos++
	}
	put(clsTokenID, 0)
	for seg, words := range segments {
		for _, w := range words {
			put(wordID(w), seg)
		}
		put(sepTokenID, seg)
	}
	return inputIDs, attentionMask, tokenTypeIDs
}

func total(segments [][]string) int {
	n := 0
	for _, s := range segments {
		n += len(s)
	}
	return n
}

func wordID(w string) int64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(w))
	return int64(firstWordID + h.Sum32()%(vocabSize-firstWordID))
}

// Words lowercases text and splits it on anything that is not a letter or digit.
func Words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
