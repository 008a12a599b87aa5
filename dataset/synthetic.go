// Package dataset produces and persists labelled house records.
package dataset

import (
	"fmt"
	"math"
	"math/rand"

	"housevalue/ml"
)

// SyntheticConfig describes the demo generator: houses scattered around a few
// Gaussian blobs near Melbourne, priced by room count and blob.
type SyntheticConfig struct {
	Rows       int
	Blobs      int
	BlobStdDev float64
	Seed       int64
}

func DefaultSyntheticConfig() SyntheticConfig {
	return SyntheticConfig{
		Rows:       2000,
		Blobs:      8,
		BlobStdDev: 0.4,
		Seed:       42,
	}
}

// Synthetic generates cfg.Rows labelled records. The same config always
// yields the same rows.
func Synthetic(cfg SyntheticConfig) ([]ml.LabeledRecord, error) {
	if cfg.Rows <= 0 {
		return nil, fmt.Errorf("rows must be positive, got %d", cfg.Rows)
	}
	if cfg.Blobs <= 0 {
		return nil, fmt.Errorf("blobs must be positive, got %d", cfg.Blobs)
	}

	rnd := rand.New(rand.NewSource(cfg.Seed))

	centers := make([][2]float64, cfg.Blobs)
	for i := range centers {
		centers[i] = [2]float64{rnd.Float64()*20 - 10, rnd.Float64()*20 - 10}
	}

	// Blob ids are spread evenly over the rows, then shuffled.
	blobs := make([]int, cfg.Rows)
	for i := range blobs {
		blobs[i] = i % cfg.Blobs
	}
	rnd.Shuffle(len(blobs), func(i, j int) { blobs[i], blobs[j] = blobs[j], blobs[i] })

	rows := make([]ml.LabeledRecord, cfg.Rows)
	for i, blob := range blobs {
		x := centers[blob][0] + rnd.NormFloat64()*cfg.BlobStdDev
		y := centers[blob][1] + rnd.NormFloat64()*cfg.BlobStdDev
		rooms := 1 + rnd.Intn(5)
		area := 150 + rnd.NormFloat64()*50

		rows[i] = ml.LabeledRecord{
			RawRecord: ml.RawRecord{
				Rooms:        rooms,
				Distance:     2 + rnd.Float64()*13,
				Bathroom:     1 + rnd.Intn(3),
				Car:          rnd.Intn(3),
				Landsize:     math.Abs(400 + rnd.NormFloat64()*100),
				BuildingArea: &area,
				YearBuilt:    1900 + rnd.Intn(120),
				Lattitude:    x*0.1 - 37.81,
				Longtitude:   y*0.1 + 144.96,
				Regionname:   fmt.Sprintf("Region_%d", blob%3),
			},
			Price: 300000 + float64(rooms)*150000 + float64(blob)*50000 + rnd.NormFloat64()*50000,
		}
	}
	return rows, nil
}
