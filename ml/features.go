package ml

import (
	"errors"
	"fmt"
)

const (
	FeatureRooms        = "Rooms"
	FeatureDistance     = "Distance"
	FeatureBedroom2     = "Bedroom2"
	FeatureBathroom     = "Bathroom"
	FeatureCar          = "Car"
	FeatureLandsize     = "Landsize"
	FeatureBuildingArea = "BuildingArea"
	FeatureYearBuilt    = "YearBuilt"
	FeatureLattitude    = "Lattitude"
	FeatureLongtitude   = "Longtitude"
	FeatureRegionname   = "Regionname"
	FeatureCluster      = "Location_Cluster"
)

// RawRecord is one house as it arrives from a caller. BuildingArea is nil
// when unknown.
type RawRecord struct {
	Rooms        int
	Distance     float64
	Bathroom     int
	Car          int
	Landsize     float64
	BuildingArea *float64
	YearBuilt    int
	Lattitude    float64
	Longtitude   float64
	Regionname   string
}

// LabeledRecord is a training row.
type LabeledRecord struct {
	RawRecord
	Price float64
}

type EncodedRecord struct {
	Rooms        int
	Distance     float64
	Bedroom2     int
	Bathroom     int
	Car          int
	Landsize     float64
	BuildingArea float64
	YearBuilt    int
	Lattitude    float64
	Longtitude   float64
	RegionCode   int
}

type AugmentedRecord struct {
	EncodedRecord
	ClusterID int
}

// PredictionResult is what the inference pipeline hands back to callers.
type PredictionResult struct {
	PredictedPrice float64 `json:"predicted_price"`
	Tier           string  `json:"tier"`
	ClusterID      int     `json:"cluster_id"`
}

var featureAccessors = map[string]func(AugmentedRecord) float64{
	FeatureRooms:        func(r AugmentedRecord) float64 { return float64(r.Rooms) },
	FeatureDistance:     func(r AugmentedRecord) float64 { return r.Distance },
	FeatureBedroom2:     func(r AugmentedRecord) float64 { return float64(r.Bedroom2) },
	FeatureBathroom:     func(r AugmentedRecord) float64 { return float64(r.Bathroom) },
	FeatureCar:          func(r AugmentedRecord) float64 { return float64(r.Car) },
	FeatureLandsize:     func(r AugmentedRecord) float64 { return r.Landsize },
	FeatureBuildingArea: func(r AugmentedRecord) float64 { return r.BuildingArea },
	FeatureYearBuilt:    func(r AugmentedRecord) float64 { return float64(r.YearBuilt) },
	FeatureLattitude:    func(r AugmentedRecord) float64 { return r.Lattitude },
	FeatureLongtitude:   func(r AugmentedRecord) float64 { return r.Longtitude },
	FeatureRegionname:   func(r AugmentedRecord) float64 { return float64(r.RegionCode) },
	FeatureCluster:      func(r AugmentedRecord) float64 { return float64(r.ClusterID) },
}

// FeatureNames is the column order the trainer writes into every bundle.
func FeatureNames() []string {
	return []string{
		FeatureRooms,
		FeatureDistance,
		FeatureBedroom2,
		FeatureBathroom,
		FeatureCar,
		FeatureLandsize,
		FeatureBuildingArea,
		FeatureYearBuilt,
		FeatureLattitude,
		FeatureLongtitude,
		FeatureRegionname,
		FeatureCluster,
	}
}

// FeatureVector projects a record onto names, in that order.
func FeatureVector(record AugmentedRecord, names []string) ([]float64, error) {
	if len(names) == 0 {
		return nil, errors.New("feature names are empty")
	}
	vector := make([]float64, len(names))
	for i, name := range names {
		accessor, ok := featureAccessors[name]
		if !ok {
			return nil, fmt.Errorf("%w: unknown feature %q", ErrFeatureMismatch, name)
		}
		vector[i] = accessor(record)
	}
	return vector, nil
}

func checkFeatureNames(names []string) error {
	if len(names) == 0 {
		return errors.New("feature names are empty")
	}
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if _, ok := featureAccessors[name]; !ok {
			return fmt.Errorf("unknown feature %q", name)
		}
		if seen[name] {
			return fmt.Errorf("duplicate feature %q", name)
		}
		seen[name] = true
	}
	return nil
}
