package ml

import (
	"math"
	"math/rand"
	"reflect"
	"testing"
)

func blobCoords(seed int64) [][2]float64 {
	rnd := rand.New(rand.NewSource(seed))
	centers := [][2]float64{{-37.7, 144.9}, {-37.9, 145.1}, {-38.1, 144.7}}
	coords := make([][2]float64, 0, 90)
	for i := 0; i < 90; i++ {
		c := centers[i%3]
		coords = append(coords, [2]float64{c[0] + rnd.NormFloat64()*0.01, c[1] + rnd.NormFloat64()*0.01})
	}
	return coords
}

func TestSpatialClustererFindsBlobs(t *testing.T) {
	coords := blobCoords(1)
	model, err := NewSpatialClusterer(3, 42).Fit(coords)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if model.K() != 3 {
		t.Fatalf("expected 3 centroids, got %d", model.K())
	}

	// Every blob must land in its own cluster.
	clusterOf := make(map[int]int)
	for i, p := range coords {
		id := model.Assign(p[0], p[1])
		blob := i % 3
		if prev, ok := clusterOf[blob]; ok && prev != id {
			t.Fatalf("blob %d split across clusters %d and %d", blob, prev, id)
		}
		clusterOf[blob] = id
	}
	if len(map[int]bool{clusterOf[0]: true, clusterOf[1]: true, clusterOf[2]: true}) != 3 {
		t.Fatalf("blobs merged: %v", clusterOf)
	}
}

func TestSpatialClustererDeterministic(t *testing.T) {
	coords := blobCoords(2)
	first, err := NewSpatialClusterer(DefaultClusterCount, 42).Fit(coords)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := NewSpatialClusterer(DefaultClusterCount, 42).Fit(coords)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("same seed produced different centroids")
	}
	for _, c := range first.Centroids {
		if math.IsNaN(c[0]) || math.IsNaN(c[1]) {
			t.Fatalf("centroid is NaN: %v", first.Centroids)
		}
	}
}

func TestClusterModelAssignTieBreak(t *testing.T) {
	model := ClusterModel{Centroids: [][2]float64{{1, 0}, {-1, 0}, {0, 5}}}
	if got := model.Assign(0, 0); got != 0 {
		t.Fatalf("expected equidistant point to go to cluster 0, got %d", got)
	}
	if got := model.Assign(-0.9, 0); got != 1 {
		t.Fatalf("expected cluster 1, got %d", got)
	}
	if got := model.Assign(0, 4); got != 2 {
		t.Fatalf("expected cluster 2, got %d", got)
	}
}

func TestSpatialClustererErrors(t *testing.T) {
	if _, err := NewSpatialClusterer(3, 42).Fit(nil); err == nil {
		t.Fatal("expected error for empty coordinates")
	}
	same := [][2]float64{{1, 1}, {1, 1}, {1, 1}, {2, 2}}
	if _, err := NewSpatialClusterer(3, 42).Fit(same); err == nil {
		t.Fatal("expected error when there are fewer distinct points than clusters")
	}
}

func TestSpatialClustererDuplicatePoints(t *testing.T) {
	coords := [][2]float64{{0, 0}, {0, 0}, {0, 0}, {5, 5}, {5, 5}, {10, 0}}
	model, err := NewSpatialClusterer(3, 7).Fit(coords)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	seen := make(map[int]bool)
	for _, p := range coords {
		seen[model.Assign(p[0], p[1])] = true
	}
	if len(seen) != 3 {
		t.Fatalf("expected 3 non-empty clusters, got %d", len(seen))
	}
}
