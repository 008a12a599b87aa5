package ml

import (
	"errors"
	"fmt"
)

// ImputationStats holds the fill values learned at training time.
type ImputationStats struct {
	BuildingAreaMedian float64 `json:"building_area_median"`
}

// FeatureEncoder imputes missing values and encodes the region name. It has
// no state of its own; everything it learns is returned from Fit.
type FeatureEncoder struct{}

func (FeatureEncoder) Fit(rows []LabeledRecord) (ImputationStats, CategoryTable, error) {
	if len(rows) == 0 {
		return ImputationStats{}, CategoryTable{}, errors.New("rows is empty")
	}

	areas := make([]float64, 0, len(rows))
	regions := make([]string, len(rows))
	for i, row := range rows {
		if row.BuildingArea != nil {
			areas = append(areas, *row.BuildingArea)
		}
		regions[i] = row.Regionname
	}
	if len(areas) == 0 {
		return ImputationStats{}, CategoryTable{}, errors.New("building area is missing in every row")
	}

	table, err := NewCategoryTable(FeatureRegionname, regions)
	if err != nil {
		return ImputationStats{}, CategoryTable{}, err
	}
	return ImputationStats{BuildingAreaMedian: median(areas)}, table, nil
}

func (FeatureEncoder) Transform(record RawRecord, stats ImputationStats, regions CategoryTable) (EncodedRecord, error) {
	code, err := regions.Encode(record.Regionname)
	if err != nil {
		return EncodedRecord{}, fmt.Errorf("encode region: %w", err)
	}

	area := stats.BuildingAreaMedian
	if record.BuildingArea != nil {
		area = *record.BuildingArea
	}

	return EncodedRecord{
		Rooms:        record.Rooms,
		Distance:     record.Distance,
		Bedroom2:     record.Rooms,
		Bathroom:     record.Bathroom,
		Car:          record.Car,
		Landsize:     record.Landsize,
		BuildingArea: area,
		YearBuilt:    record.YearBuilt,
		Lattitude:    record.Lattitude,
		Longtitude:   record.Longtitude,
		RegionCode:   code,
	}, nil
}
