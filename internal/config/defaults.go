package config

const defaultDataDir = "/usr/local/var/tansaku/data"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.IndexDir == "" {
		cfg.Storage.IndexDir = defaultDataDir + "/index"
	}
	if cfg.Storage.DocStore == "" {
		cfg.Storage.DocStore = "json"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = defaultDataDir + "/db/records.db"
	}
	if cfg.Storage.VectorIndexPath == "" {
		cfg.Storage.VectorIndexPath = defaultDataDir + "/index/vectors"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "onnx"
	}
	if cfg.Embedding.ModelName == "" {
		cfg.Embedding.ModelName = "all-MiniLM-L6-v2"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = defaultDataDir + "/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 1000
	}
	if cfg.Embedding.Workers == 0 {
		cfg.Embedding.Workers = 4
	}
	if cfg.Reranker.Provider == "" {
		cfg.Reranker.Provider = "onnx"
	}
	if cfg.Reranker.ModelName == "" {
		cfg.Reranker.ModelName = "cross-encoder/ms-marco-MiniLM-L-6-v2"
	}
	if cfg.Reranker.ModelPath == "" {
		cfg.Reranker.ModelPath = defaultDataDir + "/models/ms-marco-MiniLM-L-6-v2.onnx"
	}
	if cfg.Reranker.MaxTokens == 0 {
		cfg.Reranker.MaxTokens = 512
	}
	if cfg.Vector.IndexType == "" {
		cfg.Vector.IndexType = "memory"
	}
	if cfg.Vector.IndexName == "" {
		cfg.Vector.IndexName = "laptops"
	}
	if cfg.Vector.Metric == "" {
		cfg.Vector.Metric = "cosine"
	}
	if cfg.Vector.BatchSize == 0 {
		cfg.Vector.BatchSize = 100
	}
	if cfg.Search.RetrieveK == 0 {
		cfg.Search.RetrieveK = 50
	}
	if cfg.Search.TopK == 0 {
		cfg.Search.TopK = 5
	}
	if cfg.Search.MaxTopK == 0 {
		cfg.Search.MaxTopK = 100
	}
	if cfg.Expansion.MaxSynonyms == 0 {
		cfg.Expansion.MaxSynonyms = 2
	}
	if cfg.Expansion.AllowedPOS == nil {
		cfg.Expansion.AllowedPOS = []string{"NN", "NNS", "JJ"}
	}
	if cfg.Expansion.CacheSize == 0 {
		cfg.Expansion.CacheSize = 2048
	}
	if cfg.Expansion.DoNotExpand == nil {
		cfg.Expansion.DoNotExpand = []string{"ram", "core", "thread", "gb", "windows", "os"}
	}
	if cfg.Expansion.Blacklist == nil {
		cfg.Expansion.Blacklist = []string{
			"windowpane", "dingle", "pane", "computing machine", "computing device",
			"electronic computer", "microcomputer", "window",
		}
	}
	if cfg.Expansion.Brands == nil {
		cfg.Expansion.Brands = []string{
			"hp", "dell", "lenovo", "asus", "acer", "apple", "msi", "huawei", "xiaomi",
			"toshiba", "samsung", "google", "microsoft", "razer", "lg",
		}
	}
}
