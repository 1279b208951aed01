package classify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    string
		wantErr bool
	}{
		{"confident", http.StatusOK, `{"genre":" landscape ","confidence":0.92}`, "landscape", false},
		{"exactly at threshold", http.StatusOK, `{"genre":"portrait","confidence":0.5}`, "portrait", false},
		{"low confidence", http.StatusOK, `{"genre":"street","confidence":0.2}`, "", false},
		{"missing confidence", http.StatusOK, `{"genre":"street"}`, "", false},
		{"server error", http.StatusInternalServerError, `oops`, "", true},
		{"malformed body", http.StatusOK, `{"genre":`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
					t.Errorf("unexpected request %s %s", r.Method, r.Header.Get("Content-Type"))
				}
				var req request
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					t.Errorf("decode request: %v", err)
				}
				if raw, err := base64.StdEncoding.DecodeString(req.Image); err != nil || string(raw) != "pixels" {
					t.Errorf("image = %q, want base64 of pixels", req.Image)
				}
				if req.ContentType != "image/jpeg" {
					t.Errorf("contentType = %q, want image/jpeg", req.ContentType)
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			got, err := New(srv.URL, time.Second).Classify(context.Background(), []byte("pixels"), "image/jpeg")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Classify() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrUnavailable) {
				t.Errorf("Classify() error = %v, want ErrUnavailable", err)
			}
			if got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassifyUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url, time.Second).Classify(context.Background(), []byte("x"), "image/png")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Classify() error = %v, want ErrUnavailable", err)
	}
}

func TestNewDefaultsTimeout(t *testing.T) {
	c := New("http://localhost", 0)
	if c.client.Timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", c.client.Timeout, DefaultTimeout)
	}
}
