package mongostore

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/matzehuels/tryon/pkg/fit"
)

func sampleRecord() fit.Record {
	return fit.Record{
		ID:        "r1",
		UserID:    "u1",
		ItemID:    "shirt",
		PoseID:    "front_v1",
		Transform: fit.Transform{X: 0.05, Y: -0.02, Scale: 1.2, RotationDeg: 15},
		Mesh:      []fit.MeshPoint{{X: 0.1, Y: 0.2}},
		UpdatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	rec := sampleRecord()
	got := toDocument(rec).record()

	if got.ID != rec.ID || got.UserID != rec.UserID || got.ItemID != rec.ItemID || got.PoseID != rec.PoseID {
		t.Errorf("ids: got %+v", got)
	}
	if tr := got.Transform; tr.X != 0.05 || tr.Y != -0.02 || tr.Scale != 1.2 || tr.RotationDeg != 15 {
		t.Errorf("transform = %+v", got.Transform)
	}
	if len(got.Mesh) != 1 || got.Mesh[0] != rec.Mesh[0] {
		t.Errorf("mesh = %+v", got.Mesh)
	}
	if !got.UpdatedAt.Equal(rec.UpdatedAt) {
		t.Errorf("updatedAt = %v", got.UpdatedAt)
	}
}

func TestDocumentBSON(t *testing.T) {
	raw, err := bson.Marshal(toDocument(sampleRecord()))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"_id", "userId", "poseId", "itemId", "transform", "mesh", "updatedAt"} {
		if _, ok := m[key]; !ok {
			t.Errorf("missing field %q", key)
		}
	}

	rec := sampleRecord()
	rec.Mesh = nil
	raw, _ = bson.Marshal(toDocument(rec))
	m = bson.M{}
	_ = bson.Unmarshal(raw, &m)
	if _, ok := m["mesh"]; ok {
		t.Error("empty mesh should be omitted")
	}
}

func TestUpsertOps(t *testing.T) {
	filter, update := upsertOps(sampleRecord())

	want := bson.D{{Key: "userId", Value: "u1"}, {Key: "poseId", Value: "front_v1"}, {Key: "itemId", Value: "shirt"}}
	if len(filter) != len(want) {
		t.Fatalf("filter = %v", filter)
	}
	for i := range want {
		if filter[i] != want[i] {
			t.Errorf("filter[%d] = %v, want %v", i, filter[i], want[i])
		}
	}

	ops := map[string]bool{}
	for _, e := range update {
		ops[e.Key] = true
	}
	if !ops["$set"] || !ops["$setOnInsert"] || ops["$unset"] {
		t.Errorf("update ops = %v", ops)
	}

	rec := sampleRecord()
	rec.Mesh = nil
	_, update = upsertOps(rec)
	ops = map[string]bool{}
	for _, e := range update {
		ops[e.Key] = true
	}
	if !ops["$unset"] {
		t.Error("saving without mesh should unset the stored mesh")
	}
}

func TestFetchFilter(t *testing.T) {
	f := fetchFilter("u1", "front_v1", []string{"a", "b"})
	if len(f) != 3 || f[2].Key != "itemId" {
		t.Fatalf("filter = %v", f)
	}
	in, ok := f[2].Value.(bson.D)
	if !ok || in[0].Key != "$in" {
		t.Errorf("itemId filter = %v", f[2].Value)
	}
}
