package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/complicheck/complicheck/internal/parse"
)

func TestADEClientRequiresKey(t *testing.T) {
	if _, err := NewADEClient(ADEConfig{}); !IsNotConfigured(err) {
		t.Fatalf("err = %v, want not-configured", err)
	}
}

func TestADEParse(t *testing.T) {
	var gotAuth, gotField string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Errorf("parsing multipart: %v", err)
		}
		for field := range r.MultipartForm.File {
			gotField = field
		}

		json.NewEncoder(w).Encode(adeResponse{
			Data: adeData{
				Markdown:    "# Site Plan\n\nCoverage table",
				CreditUsage: float64Ptr(12.5),
				Chunks: []adeChunk{
					{
						Text:      "Coverage table",
						ChunkType: "table",
						ChunkID:   "abc-123",
						Grounding: []adeGrounding{
							{Page: 1, Box: adeBox{L: 0.1, T: 0.2, R: 0.9, B: 0.8}},
						},
					},
					{
						// No grounding and no id: gets a full-page box on page
						// 0 and a generated id.
						Text: "Orphan note",
					},
				},
			},
		})
	}))
	defer srv.Close()

	client, err := NewADEClient(ADEConfig{APIKey: "secret", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewADEClient failed: %v", err)
	}

	result, err := client.Parse(context.Background(), []byte("%PDF-fake"), "consent.pdf")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if gotAuth != "Basic secret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotField != "pdf" {
		t.Errorf("file field = %q, want pdf for PDF uploads", gotField)
	}

	if result.Markdown != "# Site Plan\n\nCoverage table" {
		t.Errorf("markdown = %q", result.Markdown)
	}
	if result.Metadata.Parser != ADEName {
		t.Errorf("parser = %q, want %s", result.Metadata.Parser, ADEName)
	}
	if result.Metadata.CreditUsage == nil || *result.Metadata.CreditUsage != 12.5 {
		t.Errorf("credit usage = %v, want 12.5", result.Metadata.CreditUsage)
	}
	if result.Metadata.PageCount != 2 {
		t.Errorf("page count = %d, want 2 (max grounded page + 1)", result.Metadata.PageCount)
	}

	if len(result.Chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(result.Chunks))
	}

	grounded := result.Chunks[0]
	if grounded.ID != "abc-123" || grounded.Type != "table" {
		t.Errorf("grounded chunk = %+v", grounded)
	}
	if grounded.Grounding.Page != 1 {
		t.Errorf("grounded page = %d, want 1", grounded.Grounding.Page)
	}
	want := parse.Box{Left: 0.1, Top: 0.2, Right: 0.9, Bottom: 0.8}
	if grounded.Grounding.Box != want {
		t.Errorf("grounded box = %+v, want %+v", grounded.Grounding.Box, want)
	}

	orphan := result.Chunks[1]
	if orphan.Grounding.Box != parse.FullPage() || orphan.Grounding.Page != 0 {
		t.Errorf("ungrounded chunk grounding = %+v, want full page 0", orphan.Grounding)
	}
	if orphan.Type != "text" {
		t.Errorf("ungrounded chunk type = %q, want text", orphan.Type)
	}
	if !strings.HasPrefix(orphan.ID, "ade_0_1_") {
		t.Errorf("generated id = %q, want ade_0_1_ prefix", orphan.ID)
	}
}

func TestADEParseImageField(t *testing.T) {
	var gotField string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Errorf("parsing multipart: %v", err)
		}
		for field := range r.MultipartForm.File {
			gotField = field
		}
		json.NewEncoder(w).Encode(adeResponse{Data: adeData{Markdown: "ok"}})
	}))
	defer srv.Close()

	client, err := NewADEClient(ADEConfig{APIKey: "secret", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewADEClient failed: %v", err)
	}
	if _, err := client.Parse(context.Background(), []byte("png"), "photo.png"); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if gotField != "image" {
		t.Errorf("file field = %q, want image for non-PDF uploads", gotField)
	}
}

func TestADEParseErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"errors": ["unsupported document"]}`))
	}))
	defer srv.Close()

	client, err := NewADEClient(ADEConfig{APIKey: "secret", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewADEClient failed: %v", err)
	}

	_, err = client.Parse(context.Background(), []byte("data"), "plan.pdf")
	if err == nil {
		t.Fatal("expected error for non-200 status")
	}
	if !strings.Contains(err.Error(), "422") {
		t.Errorf("error = %q, want status code included", err.Error())
	}
}

func float64Ptr(f float64) *float64 { return &f }
