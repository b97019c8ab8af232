package transform

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// newModelServer returns a Model backed by a stub chat-completion endpoint
// that always replies with the given content.
func newModelServer(t *testing.T, content string) (*Model, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"id":     "cmpl-test",
			"object": "chat.completion",
			"choices": []map[string]any{
				{
					"index":         0,
					"finish_reason": "stop",
					"message": map[string]any{
						"role":    "assistant",
						"content": content,
					},
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	m := NewModel(ModelConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL + "/v1",
		Model:   "test-model",
	})
	return m, srv
}

func TestModelTransform(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantPath string
		wantName string
		wantErr  bool
	}{
		{
			name:     "clean JSON object",
			content:  `{"Target File Name": "BLINDED_TV_20231030.csv", "Target File Path": "rtft/P23-380/UC lab/"}`,
			wantPath: "rtft/P23-380/UC lab/",
			wantName: "BLINDED_TV_20231030.csv",
		},
		{
			name:     "prose around the object is stripped",
			content:  "Here is the result you asked for:\n{\"Target File Name\": \"my_report.pdf\", \"Target File Path\": \"rtft/Mock Study 33/unknownvendor/\"}\nLet me know if you need anything else.",
			wantPath: "rtft/Mock Study 33/unknownvendor/",
			wantName: "my_report.pdf",
		},
		{
			name:    "no JSON object at all",
			content: "I could not determine the target location.",
			wantErr: true,
		},
		{
			name:    "invalid JSON between braces",
			content: `{"Target File Name": `,
			wantErr: true,
		},
		{
			name:    "missing target path key",
			content: `{"Target File Name": "BLINDED_TV_20231030.csv"}`,
			wantErr: true,
		},
		{
			name:    "path not rooted at the fixed root segment",
			content: `{"Target File Name": "a.csv", "Target File Path": "elsewhere/P23-380/EPC/"}`,
			wantErr: true,
		},
		{
			name:    "path missing vendor segment",
			content: `{"Target File Name": "a.csv", "Target File Path": "rtft/P23-380/"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, srv := newModelServer(t, tt.content)
			defer srv.Close()

			loc, err := m.Transform(context.Background(), "any.csv", "samprod-fileingestion/P23-380/")
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Transform() error = nil, want ExtractionError")
				}
				var extErr *ExtractionError
				if !errors.As(err, &extErr) {
					t.Fatalf("Transform() error type = %T, want *ExtractionError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Transform() error = %v", err)
			}
			if got := loc.Path(); got != tt.wantPath {
				t.Errorf("Transform() path = %q, want %q", got, tt.wantPath)
			}
			if loc.FileName != tt.wantName {
				t.Errorf("Transform() name = %q, want %q", loc.FileName, tt.wantName)
			}
		})
	}
}

func TestModelTransform_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "boom"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	m := NewModel(ModelConfig{APIKey: "k", BaseURL: srv.URL + "/v1", Model: "test-model"})
	_, err := m.Transform(context.Background(), "a.csv", "p/")
	var extErr *ExtractionError
	if !errors.As(err, &extErr) {
		t.Fatalf("Transform() error = %v, want *ExtractionError", err)
	}
}
