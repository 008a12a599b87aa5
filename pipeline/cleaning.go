package pipeline

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"housevalue/ml"
)

// ValidationError 记录不符合规则的字段
type ValidationError struct {
	Rule    string
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// CleaningRule 清洗规则
type CleaningRule interface {
	Apply(*ml.RawRecord) error
	Name() string
}

// QualityIssue 质量问题
type QualityIssue struct {
	Row       int       `json:"row"`
	Rule      string    `json:"rule"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// CleaningStats 清洗统计
type CleaningStats struct {
	TotalProcessed int64            `json:"total_processed"`
	Passed         int64            `json:"passed"`
	Rejected       int64            `json:"rejected"`
	Issues         map[string]int64 `json:"issues"`
	LastClean      time.Time        `json:"last_clean"`
}

// DataCleaner 数据清洗器. Validate is safe for concurrent use.
type DataCleaner struct {
	rules []CleaningRule

	stats     CleaningStats
	statsLock sync.RWMutex
}

// NewDataCleaner 创建数据清洗器
func NewDataCleaner() *DataCleaner {
	cleaner := &DataCleaner{
		rules: make([]CleaningRule, 0),
		stats: CleaningStats{
			Issues: make(map[string]int64),
		},
	}

	// 默认规则
	cleaner.AddRule(NewCountValidationRule())
	cleaner.AddRule(NewMeasurementValidationRule())
	cleaner.AddRule(NewYearBuiltValidationRule())
	cleaner.AddRule(NewCoordinateValidationRule())
	cleaner.AddRule(NewRegionValidationRule())

	return cleaner
}

// AddRule 添加清洗规则
func (dc *DataCleaner) AddRule(rule CleaningRule) {
	dc.rules = append(dc.rules, rule)
}

// Validate returns the first rule violation, as a *ValidationError.
func (dc *DataCleaner) Validate(record ml.RawRecord) error {
	for _, rule := range dc.rules {
		if err := rule.Apply(&record); err != nil {
			return err
		}
	}
	return nil
}

// Clean 清洗训练数据: rows that break a rule or carry an unusable price are
// dropped and reported.
func (dc *DataCleaner) Clean(rows []ml.LabeledRecord) ([]ml.LabeledRecord, []QualityIssue) {
	var cleaned []ml.LabeledRecord
	var issues []QualityIssue

	dc.statsLock.Lock()
	defer dc.statsLock.Unlock()

	for i, row := range rows {
		dc.stats.TotalProcessed++

		var rowIssues []QualityIssue
		for _, rule := range dc.rules {
			if err := rule.Apply(&row.RawRecord); err != nil {
				rowIssues = append(rowIssues, QualityIssue{
					Row:       i,
					Rule:      rule.Name(),
					Message:   err.Error(),
					Timestamp: time.Now(),
				})
				dc.stats.Issues[rule.Name()]++
			}
		}
		if math.IsNaN(row.Price) || math.IsInf(row.Price, 0) || row.Price <= 0 {
			rowIssues = append(rowIssues, QualityIssue{
				Row:       i,
				Rule:      "price_validation",
				Message:   fmt.Sprintf("price %v is not a positive number", row.Price),
				Timestamp: time.Now(),
			})
			dc.stats.Issues["price_validation"]++
		}

		if len(rowIssues) > 0 {
			dc.stats.Rejected++
			issues = append(issues, rowIssues...)
			continue
		}
		dc.stats.Passed++
		cleaned = append(cleaned, row)
	}

	dc.stats.LastClean = time.Now()
	return cleaned, issues
}

// GetStats 获取统计信息
func (dc *DataCleaner) GetStats() CleaningStats {
	dc.statsLock.RLock()
	defer dc.statsLock.RUnlock()

	stats := dc.stats
	stats.Issues = make(map[string]int64, len(dc.stats.Issues))
	for k, v := range dc.stats.Issues {
		stats.Issues[k] = v
	}
	return stats
}

// ============ 清洗规则实现 ============

// CountValidationRule 房间/浴室/车位数量
type CountValidationRule struct {
	MaxCount int
}

func NewCountValidationRule() *CountValidationRule {
	return &CountValidationRule{MaxCount: 50}
}

func (r *CountValidationRule) Name() string {
	return "count_validation"
}

func (r *CountValidationRule) Apply(record *ml.RawRecord) error {
	counts := []struct {
		field string
		value int
	}{
		{"Rooms", record.Rooms},
		{"Bathroom", record.Bathroom},
		{"Car", record.Car},
	}
	for _, c := range counts {
		if c.value < 0 || c.value > r.MaxCount {
			return &ValidationError{Rule: r.Name(), Field: c.field, Message: fmt.Sprintf("%d out of range [0, %d]", c.value, r.MaxCount)}
		}
	}
	return nil
}

// MeasurementValidationRule 距离/面积
type MeasurementValidationRule struct{}

func NewMeasurementValidationRule() *MeasurementValidationRule {
	return &MeasurementValidationRule{}
}

func (r *MeasurementValidationRule) Name() string {
	return "measurement_validation"
}

func (r *MeasurementValidationRule) Apply(record *ml.RawRecord) error {
	values := []struct {
		field string
		value float64
	}{
		{"Distance", record.Distance},
		{"Landsize", record.Landsize},
	}
	if record.BuildingArea != nil {
		values = append(values, struct {
			field string
			value float64
		}{"BuildingArea", *record.BuildingArea})
	}
	for _, v := range values {
		if math.IsNaN(v.value) || math.IsInf(v.value, 0) {
			return &ValidationError{Rule: r.Name(), Field: v.field, Message: "must be a finite number"}
		}
		if v.value < 0 {
			return &ValidationError{Rule: r.Name(), Field: v.field, Message: fmt.Sprintf("%v is negative", v.value)}
		}
	}
	return nil
}

// YearBuiltValidationRule 建造年份
type YearBuiltValidationRule struct {
	MinYear          int
	MaxYearsInFuture int
}

func NewYearBuiltValidationRule() *YearBuiltValidationRule {
	return &YearBuiltValidationRule{
		MinYear:          1800,
		MaxYearsInFuture: 5, // 在建项目
	}
}

func (r *YearBuiltValidationRule) Name() string {
	return "year_built_validation"
}

func (r *YearBuiltValidationRule) Apply(record *ml.RawRecord) error {
	maxYear := time.Now().Year() + r.MaxYearsInFuture
	if record.YearBuilt < r.MinYear || record.YearBuilt > maxYear {
		return &ValidationError{Rule: r.Name(), Field: "YearBuilt", Message: fmt.Sprintf("%d out of range [%d, %d]", record.YearBuilt, r.MinYear, maxYear)}
	}
	return nil
}

// CoordinateValidationRule 经纬度
type CoordinateValidationRule struct{}

func NewCoordinateValidationRule() *CoordinateValidationRule {
	return &CoordinateValidationRule{}
}

func (r *CoordinateValidationRule) Name() string {
	return "coordinate_validation"
}

func (r *CoordinateValidationRule) Apply(record *ml.RawRecord) error {
	if math.IsNaN(record.Lattitude) || record.Lattitude < -90 || record.Lattitude > 90 {
		return &ValidationError{Rule: r.Name(), Field: "Lattitude", Message: fmt.Sprintf("%v out of range [-90, 90]", record.Lattitude)}
	}
	if math.IsNaN(record.Longtitude) || record.Longtitude < -180 || record.Longtitude > 180 {
		return &ValidationError{Rule: r.Name(), Field: "Longtitude", Message: fmt.Sprintf("%v out of range [-180, 180]", record.Longtitude)}
	}
	return nil
}

// RegionValidationRule only checks presence; whether the region is known is
// decided by the bundle.
type RegionValidationRule struct{}

func NewRegionValidationRule() *RegionValidationRule {
	return &RegionValidationRule{}
}

func (r *RegionValidationRule) Name() string {
	return "region_validation"
}

func (r *RegionValidationRule) Apply(record *ml.RawRecord) error {
	if strings.TrimSpace(record.Regionname) == "" {
		return &ValidationError{Rule: r.Name(), Field: "Regionname", Message: "is required"}
	}
	return nil
}
