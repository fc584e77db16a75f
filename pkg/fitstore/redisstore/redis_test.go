package redisstore

import (
	"testing"

	"github.com/redis/go-redis/v9"
)

func TestHashKey(t *testing.T) {
	if got := HashKey("tryon:", "u1", "front_v1"); got != "tryon:fits:u1:front_v1" {
		t.Errorf("HashKey = %q", got)
	}
}

func TestNewDefaultPrefix(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer client.Close()

	if s := New(client, ""); s.prefix != DefaultPrefix {
		t.Errorf("prefix = %q, want %q", s.prefix, DefaultPrefix)
	}
	if s := New(client, "x:"); s.prefix != "x:" {
		t.Errorf("prefix = %q, want x:", s.prefix)
	}
}

func TestDecodeValues(t *testing.T) {
	rec := `{"id":"r1","userId":"u1","itemId":"shirt","poseId":"front_v1","transform":{"x":0.05,"y":-0.02,"scale":1.2,"rotationDeg":15},"mesh":[{"x":1,"y":2}],"updatedAt":"2026-01-02T03:04:05Z"}`

	recs, err := decodeValues([]any{nil, rec, []byte(rec)})
	if err != nil {
		t.Fatalf("decodeValues: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	r := recs[0]
	if r.ItemID != "shirt" || r.Transform.Scale != 1.2 || r.Transform.RotationDeg != 15 {
		t.Errorf("decoded record = %+v", r)
	}
	if got := r.Fit(); len(got.Mesh) != 1 || got.Mesh[0].Y != 2 {
		t.Errorf("mesh not carried: %+v", got.Mesh)
	}

	if _, err := decodeValues([]any{"not json"}); err == nil {
		t.Error("expected error for malformed value")
	}
	if _, err := decodeValues([]any{42}); err == nil {
		t.Error("expected error for unexpected type")
	}
}
