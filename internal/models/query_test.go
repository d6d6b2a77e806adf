package models

import (
	"errors"
	"testing"
)

func TestSearchQuery_Validate(t *testing.T) {
	tests := []struct {
		name          string
		query         *SearchQuery
		wantErr       bool
		wantTopK      int
		wantRetrieveK int
	}{
		{"empty query", &SearchQuery{Query: ""}, true, 0, 0},
		{"blank query", &SearchQuery{Query: "   "}, true, 0, 0},
		{"defaults", &SearchQuery{Query: "gaming laptop"}, false, DefaultTopK, DefaultRetrieveK},
		{"keeps explicit values", &SearchQuery{Query: "x", TopK: 3, RetrieveK: 20}, false, 3, 20},
		{"caps top k", &SearchQuery{Query: "x", TopK: 500}, false, MaxTopK, DefaultRetrieveK},
		{"caps retrieve k", &SearchQuery{Query: "x", RetrieveK: 5000}, false, DefaultTopK, MaxRetrieveK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrEmptyQuery) {
					t.Errorf("error = %v, want ErrEmptyQuery", err)
				}
				return
			}
			if tt.query.TopK != tt.wantTopK {
				t.Errorf("TopK = %d, want %d", tt.query.TopK, tt.wantTopK)
			}
			if tt.query.RetrieveK != tt.wantRetrieveK {
				t.Errorf("RetrieveK = %d, want %d", tt.query.RetrieveK, tt.wantRetrieveK)
			}
		})
	}
}

func TestRecord_TotalStorage(t *testing.T) {
	r := &Record{ID: "1", Fields: map[string]string{FieldSSD: "256", FieldHDD: "1000"}}
	if got := r.TotalStorage(); got != 1256 {
		t.Errorf("TotalStorage() = %d, want 1256", got)
	}
	r = &Record{ID: "2", Fields: map[string]string{FieldSSD: "512.0", FieldHDD: "n/a"}}
	if got := r.TotalStorage(); got != 512 {
		t.Errorf("TotalStorage() = %d, want 512", got)
	}
	var nilRec *Record
	if nilRec.Field(FieldSSD) != "" || nilRec.HasField(FieldSSD) {
		t.Error("nil record should have no fields")
	}
}
