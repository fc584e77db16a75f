package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/tryon/pkg/errors"
	"github.com/matzehuels/tryon/pkg/fit"
)

func newClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, "u1", WithHTTPClient(srv.Client()), WithRetry(3, time.Millisecond))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestFetchFits(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(UserHeader) != "u1" {
			t.Errorf("user header = %q", r.Header.Get(UserHeader))
		}
		if r.URL.Query().Get("poseId") != "front_v1" || r.URL.Query().Get("itemIds") != "shirt,pants" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		_ = json.NewEncoder(w).Encode(FetchResponse{Fits: []fit.Record{{
			ItemID:    "shirt",
			PoseID:    "front_v1",
			Transform: fit.Transform{X: 0.1, Scale: 1.2},
			Mesh:      []fit.MeshPoint{{X: 1, Y: 1}},
		}}})
	})

	fits, err := c.FetchFits(context.Background(), "front_v1", []string{"shirt", "pants"})
	if err != nil {
		t.Fatalf("FetchFits: %v", err)
	}
	if len(fits) != 1 || fits["shirt"].Scale != 1.2 || len(fits["shirt"].Mesh) != 1 {
		t.Errorf("fits = %+v", fits)
	}
}

func TestFetchFitsRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"fits":[]}`))
	})

	if _, err := c.FetchFits(context.Background(), "front_v1", []string{"shirt"}); err != nil {
		t.Fatalf("FetchFits: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestSaveFitIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.SaveFit(context.Background(), "shirt", "front_v1", fit.Identity())
	if !errors.Is(err, errors.ErrCodeStore) {
		t.Errorf("err = %v, want STORE_ERROR", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want exactly 1", calls.Load())
	}
}

func TestSaveFit(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		var req SaveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
			return
		}
		if req.Transform == nil || req.Transform.X != 0.333333 {
			t.Errorf("transform not quantized: %+v", req.Transform)
		}
		_ = json.NewEncoder(w).Encode(fit.Record{ID: "r1", UserID: "u1", ItemID: req.ItemID, PoseID: req.PoseID, Transform: *req.Transform})
	})

	rec, err := c.SaveFit(context.Background(), "shirt", "front_v1", fit.Transform{X: 1.0 / 3, Scale: 1})
	if err != nil {
		t.Fatalf("SaveFit: %v", err)
	}
	if rec.ID != "r1" || rec.ItemID != "shirt" {
		t.Errorf("record = %+v", rec)
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		status int
		code   errors.Code
	}{
		{http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{http.StatusUnauthorized, errors.ErrCodeUnauthorized},
		{http.StatusNotFound, errors.ErrCodeNotFound},
		{http.StatusTeapot, errors.ErrCodeStore},
	}
	for _, tt := range tests {
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(tt.status) })
		_, err := c.FetchFits(context.Background(), "front_v1", []string{"shirt"})
		if !errors.Is(err, tt.code) {
			t.Errorf("status %d: err = %v, want %s", tt.status, err, tt.code)
		}
	}
}

func TestNewRejectsBadURL(t *testing.T) {
	if _, err := New("not a url", "u1"); err == nil {
		t.Error("expected error")
	}
}
