package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/hyperjump/tansaku/internal/config"
	"github.com/hyperjump/tansaku/internal/models"
)

// DataFingerprint hashes the catalog independent of record order: each record is
// digested over its id, sorted fields, text and source cells, and the sorted digests
// are hashed. Source cells make edits that canonicalize to the same value ("16" to
// "16.0") still change the fingerprint.
func DataFingerprint(records []*models.Record) string {
	digests := make([]string, len(records))
	for i, r := range records {
		digests[i] = recordDigest(r)
	}
	sort.Strings(digests)
	h := sha256.New()
	for _, d := range digests {
		h.Write([]byte(d))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func recordDigest(r *models.Record) string {
	keys := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	writeField(h, "id", r.ID)
	for _, k := range keys {
		writeField(h, k, r.Fields[k])
	}
	writeField(h, "text", r.Text)
	for i, cell := range r.Source {
		writeField(h, "source"+strconv.Itoa(i), cell)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// writeField length-prefixes key and value so adjacent fields cannot run together.
func writeField(w io.Writer, key, value string) {
	_, _ = io.WriteString(w, strconv.Itoa(len(key))+":"+key+strconv.Itoa(len(value))+":"+value)
}

// ConfigFingerprint hashes the settings that change the stored vectors or their meaning:
// embedding model, reranker model, index name, dimension and metric.
func ConfigFingerprint(cfg *config.Config) string {
	parts := []string{
		cfg.Embedding.ModelName,
		cfg.Reranker.ModelName,
		cfg.Vector.IndexName,
		strconv.Itoa(cfg.Embedding.Dimensions),
		cfg.Vector.Metric,
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
