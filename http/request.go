package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"housevalue/ml"
	"housevalue/pipeline"
)

// PredictRequest 预测请求. Pointer fields tell a missing field apart from a
// zero value; BuildingArea may be omitted or null.
type PredictRequest struct {
	Rooms        *int     `json:"Rooms"`
	Distance     *float64 `json:"Distance"`
	Bathroom     *int     `json:"Bathroom"`
	Car          *int     `json:"Car"`
	Landsize     *float64 `json:"Landsize"`
	BuildingArea *float64 `json:"BuildingArea"`
	YearBuilt    *int     `json:"YearBuilt"`
	Lattitude    *float64 `json:"Lattitude"`
	Longtitude   *float64 `json:"Longtitude"`
	Regionname   *string  `json:"Regionname"`
}

func decodePredictRequest(r io.Reader) (PredictRequest, error) {
	var req PredictRequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return req, &pipeline.ValidationError{Rule: "request_body", Field: "body", Message: err.Error()}
	}
	return req, nil
}

// Record 转换为原始记录, 缺失必填字段时返回 *pipeline.ValidationError
func (req PredictRequest) Record() (ml.RawRecord, error) {
	var missing []string
	if req.Rooms == nil {
		missing = append(missing, ml.FeatureRooms)
	}
	if req.Distance == nil {
		missing = append(missing, ml.FeatureDistance)
	}
	if req.Bathroom == nil {
		missing = append(missing, ml.FeatureBathroom)
	}
	if req.Car == nil {
		missing = append(missing, ml.FeatureCar)
	}
	if req.Landsize == nil {
		missing = append(missing, ml.FeatureLandsize)
	}
	if req.YearBuilt == nil {
		missing = append(missing, ml.FeatureYearBuilt)
	}
	if req.Lattitude == nil {
		missing = append(missing, ml.FeatureLattitude)
	}
	if req.Longtitude == nil {
		missing = append(missing, ml.FeatureLongtitude)
	}
	if req.Regionname == nil {
		missing = append(missing, ml.FeatureRegionname)
	}
	if len(missing) > 0 {
		return ml.RawRecord{}, &pipeline.ValidationError{
			Rule:    "required_fields",
			Field:   strings.Join(missing, ","),
			Message: "required field missing",
		}
	}

	record := ml.RawRecord{
		Rooms:      *req.Rooms,
		Distance:   *req.Distance,
		Bathroom:   *req.Bathroom,
		Car:        *req.Car,
		Landsize:   *req.Landsize,
		YearBuilt:  *req.YearBuilt,
		Lattitude:  *req.Lattitude,
		Longtitude: *req.Longtitude,
		Regionname: *req.Regionname,
	}
	if req.BuildingArea != nil {
		area := *req.BuildingArea
		record.BuildingArea = &area
	}
	return record, nil
}

// cacheKey identifies a prediction for one bundle.
func cacheKey(bundleID string, record ml.RawRecord) string {
	area := "null"
	if record.BuildingArea != nil {
		area = strconv.FormatFloat(*record.BuildingArea, 'g', -1, 64)
	}
	return fmt.Sprintf("%s|%d|%g|%d|%d|%g|%s|%d|%g|%g|%q",
		bundleID,
		record.Rooms,
		record.Distance,
		record.Bathroom,
		record.Car,
		record.Landsize,
		area,
		record.YearBuilt,
		record.Lattitude,
		record.Longtitude,
		record.Regionname,
	)
}

// errorStatus 错误到HTTP状态码的映射
func errorStatus(err error) (int, string) {
	var validation *pipeline.ValidationError
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, ml.ErrUnseenCategory):
		return http.StatusUnprocessableEntity, "unseen_category"
	case errors.Is(err, errNoPredictor):
		return http.StatusServiceUnavailable, "no_bundle"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
