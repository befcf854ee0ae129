package analyzer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/verifychain/verifychain/internal/domain"
)

func testDoc() domain.BondDocument {
	return domain.BondDocument{Filename: "bond.pdf", Payload: []byte("certificate bytes")}
}

func TestAnalyzeSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/analyze_bond" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("missing file part: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"success": true,
			"ai_data": {
				"bond_name": "Treasury 2035",
				"isin": "IN0020350012",
				"face_value": 1000,
				"risk_rating": "AA",
				"raw_yield": 7.2
			}
		}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", 5*time.Second)
	result, err := client.Analyze(context.Background(), testDoc())
	if err != nil {
		t.Fatalf("Analyze(): %v", err)
	}
	if result.BondName != "Treasury 2035" || result.ISIN != "IN0020350012" {
		t.Errorf("result = %+v", result)
	}
	if result.FaceValue != 1000 {
		t.Errorf("FaceValue = %d, want 1000", result.FaceValue)
	}
	if result.RawYield != 7.2 {
		t.Errorf("RawYield = %v, want 7.2", result.RawYield)
	}
}

func TestAnalyzeStringNumerics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"success": true,
			"ai_data": {
				"bond_name": "Treasury 2035",
				"face_value": "2500",
				"raw_yield": null
			}
		}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", 5*time.Second)
	result, err := client.Analyze(context.Background(), testDoc())
	if err != nil {
		t.Fatalf("Analyze(): %v", err)
	}
	if result.FaceValue != 2500 {
		t.Errorf("FaceValue = %d, want 2500 (string numeric)", result.FaceValue)
	}
	if result.RawYield != 0 {
		t.Errorf("RawYield = %v, want 0 (null)", result.RawYield)
	}
}

func TestAnalyzeUnparseableFaceValueBecomesZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": true, "ai_data": {"bond_name": "X", "face_value": "n/a"}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", 5*time.Second)
	result, err := client.Analyze(context.Background(), testDoc())
	if err != nil {
		t.Fatalf("Analyze(): %v", err)
	}
	if result.FaceValue != 0 {
		t.Errorf("FaceValue = %d, want 0", result.FaceValue)
	}
}

func TestAnalyzeMalformedResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{not json`},
		{"service failure", `{"success": false}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient(srv.URL, "", 5*time.Second)
			_, err := client.Analyze(context.Background(), testDoc())
			if !errors.Is(err, domain.ErrMalformedResponse) {
				t.Fatalf("err = %v, want ErrMalformedResponse", err)
			}
		})
	}
}

func TestAnalyzeTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", 20*time.Millisecond)
	_, err := client.Analyze(context.Background(), testDoc())
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
}

func TestAnalyzeUnreachable(t *testing.T) {
	// Reserved TEST-NET address; nothing listens there.
	client := NewClient("http://127.0.0.1:1", "", 200*time.Millisecond)
	_, err := client.Analyze(context.Background(), testDoc())
	if !errors.Is(err, domain.ErrUnreachable) && !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("err = %v, want ErrUnreachable or ErrTimeout", err)
	}
}

func TestAnalyzeSendsAPIKey(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-Key")
		w.Write([]byte(`{"success": true, "ai_data": {}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret-key", 5*time.Second)
	if _, err := client.Analyze(context.Background(), testDoc()); err != nil {
		t.Fatalf("Analyze(): %v", err)
	}
	if gotKey != "secret-key" {
		t.Errorf("X-API-Key = %q, want secret-key", gotKey)
	}
}
