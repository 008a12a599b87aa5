package ml

import (
	"errors"
	"testing"
)

func TestFeatureVectorOrder(t *testing.T) {
	record := AugmentedRecord{
		EncodedRecord: EncodedRecord{
			Rooms:        3,
			Distance:     5.2,
			Bedroom2:     3,
			Bathroom:     2,
			Car:          1,
			Landsize:     400,
			BuildingArea: 150,
			YearBuilt:    2005,
			Lattitude:    -37.8,
			Longtitude:   144.96,
			RegionCode:   4,
		},
		ClusterID: 7,
	}

	vector, err := FeatureVector(record, FeatureNames())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{3, 5.2, 3, 2, 1, 400, 150, 2005, -37.8, 144.96, 4, 7}
	if len(vector) != len(want) {
		t.Fatalf("expected %d features, got %d", len(want), len(vector))
	}
	for i := range want {
		if vector[i] != want[i] {
			t.Fatalf("feature %d: expected %v, got %v", i, want[i], vector[i])
		}
	}

	reordered, err := FeatureVector(record, []string{FeatureCluster, FeatureRooms})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reordered[0] != 7 || reordered[1] != 3 {
		t.Fatalf("expected [7 3], got %v", reordered)
	}
}

func TestFeatureVectorUnknownName(t *testing.T) {
	_, err := FeatureVector(AugmentedRecord{}, []string{"Price"})
	if !errors.Is(err, ErrFeatureMismatch) {
		t.Fatalf("expected ErrFeatureMismatch, got %v", err)
	}
}

func TestCheckFeatureNames(t *testing.T) {
	if err := checkFeatureNames(FeatureNames()); err != nil {
		t.Fatalf("canonical names rejected: %v", err)
	}
	if err := checkFeatureNames([]string{FeatureRooms, FeatureRooms}); err == nil {
		t.Fatal("expected duplicate name error")
	}
	if err := checkFeatureNames(nil); err == nil {
		t.Fatal("expected empty names error")
	}
}
