package pipeline

import (
	"errors"
	"math"
	"testing"
	"time"

	"housevalue/ml"
)

func validRecord() ml.RawRecord {
	area := 150.0
	return ml.RawRecord{
		Rooms:        3,
		Distance:     5.2,
		Bathroom:     2,
		Car:          1,
		Landsize:     400,
		BuildingArea: &area,
		YearBuilt:    2005,
		Lattitude:    -37.80,
		Longtitude:   144.96,
		Regionname:   "Region_0",
	}
}

func TestNewDataCleaner(t *testing.T) {
	cleaner := NewDataCleaner()
	if cleaner == nil {
		t.Fatal("NewDataCleaner returned nil")
	}

	if len(cleaner.rules) == 0 {
		t.Error("No default rules added")
	}
}

func TestValidate(t *testing.T) {
	negative := -10.0
	nan := math.NaN()

	tests := []struct {
		name    string
		mutate  func(*ml.RawRecord)
		field   string
		wantErr bool
	}{
		{
			name:    "valid record",
			mutate:  func(r *ml.RawRecord) {},
			wantErr: false,
		},
		{
			name:    "missing building area",
			mutate:  func(r *ml.RawRecord) { r.BuildingArea = nil },
			wantErr: false,
		},
		{
			name:    "negative rooms",
			mutate:  func(r *ml.RawRecord) { r.Rooms = -1 },
			field:   "Rooms",
			wantErr: true,
		},
		{
			name:    "too many cars",
			mutate:  func(r *ml.RawRecord) { r.Car = 51 },
			field:   "Car",
			wantErr: true,
		},
		{
			name:    "negative building area",
			mutate:  func(r *ml.RawRecord) { r.BuildingArea = &negative },
			field:   "BuildingArea",
			wantErr: true,
		},
		{
			name:    "nan building area",
			mutate:  func(r *ml.RawRecord) { r.BuildingArea = &nan },
			field:   "BuildingArea",
			wantErr: true,
		},
		{
			name:    "infinite distance",
			mutate:  func(r *ml.RawRecord) { r.Distance = math.Inf(1) },
			field:   "Distance",
			wantErr: true,
		},
		{
			name:    "year too old",
			mutate:  func(r *ml.RawRecord) { r.YearBuilt = 1700 },
			field:   "YearBuilt",
			wantErr: true,
		},
		{
			name:    "year far in the future",
			mutate:  func(r *ml.RawRecord) { r.YearBuilt = time.Now().Year() + 10 },
			field:   "YearBuilt",
			wantErr: true,
		},
		{
			name:    "latitude out of range",
			mutate:  func(r *ml.RawRecord) { r.Lattitude = -91 },
			field:   "Lattitude",
			wantErr: true,
		},
		{
			name:    "longitude out of range",
			mutate:  func(r *ml.RawRecord) { r.Longtitude = 181 },
			field:   "Longtitude",
			wantErr: true,
		},
		{
			name:    "blank region",
			mutate:  func(r *ml.RawRecord) { r.Regionname = "  " },
			field:   "Regionname",
			wantErr: true,
		},
	}

	cleaner := NewDataCleaner()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := validRecord()
			tt.mutate(&record)
			err := cleaner.Validate(record)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				return
			}
			var validation *ValidationError
			if !errors.As(err, &validation) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if validation.Field != tt.field {
				t.Errorf("expected field %s, got %s", tt.field, validation.Field)
			}
		})
	}
}

func TestClean(t *testing.T) {
	cleaner := NewDataCleaner()

	bad := validRecord()
	bad.Rooms = -3
	rows := []ml.LabeledRecord{
		{RawRecord: validRecord(), Price: 850000},
		{RawRecord: bad, Price: 900000},
		{RawRecord: validRecord(), Price: 0},
		{RawRecord: validRecord(), Price: math.NaN()},
		{RawRecord: validRecord(), Price: 1200000},
	}

	cleaned, issues := cleaner.Clean(rows)
	if len(cleaned) != 2 {
		t.Fatalf("expected 2 rows kept, got %d", len(cleaned))
	}
	if cleaned[0].Price != 850000 || cleaned[1].Price != 1200000 {
		t.Errorf("unexpected rows kept: %v, %v", cleaned[0].Price, cleaned[1].Price)
	}
	if len(issues) != 3 {
		t.Fatalf("expected 3 issues, got %d", len(issues))
	}
	if issues[0].Row != 1 || issues[0].Rule != "count_validation" {
		t.Errorf("unexpected first issue: %+v", issues[0])
	}

	stats := cleaner.GetStats()
	if stats.TotalProcessed != 5 || stats.Passed != 2 || stats.Rejected != 3 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.Issues["price_validation"] != 2 {
		t.Errorf("expected 2 price issues, got %d", stats.Issues["price_validation"])
	}
}

type forbidRegion string

func (f forbidRegion) Name() string { return "forbid_region" }

func (f forbidRegion) Apply(record *ml.RawRecord) error {
	if record.Regionname == string(f) {
		return &ValidationError{Rule: f.Name(), Field: "Regionname", Message: "forbidden"}
	}
	return nil
}

func TestAddRule(t *testing.T) {
	cleaner := NewDataCleaner()
	cleaner.AddRule(forbidRegion("Region_0"))

	if err := cleaner.Validate(validRecord()); err == nil {
		t.Fatal("expected custom rule to reject the record")
	}
}
