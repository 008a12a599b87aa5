package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"housevalue/db"
	"housevalue/ml"
	"housevalue/monitoring"
	"housevalue/pipeline"
)

var errNoPredictor = errors.New("no model bundle loaded")

// Handler 预测服务处理器
type Handler struct {
	store    *ml.BundleStore
	cleaner  *pipeline.DataCleaner
	cache    *lru.Cache[string, ml.PredictionResult]
	metrics  *monitoring.Metrics
	recorder *PredictionRecorder
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// HandlerOptions 可选依赖, 零值表示不启用
type HandlerOptions struct {
	CacheSize      int
	Metrics        *monitoring.Metrics
	Recorder       *PredictionRecorder
	AllowedOrigins []string
	Logger         *zap.Logger
}

// NewHandler 创建处理器
func NewHandler(store *ml.BundleStore, opts HandlerOptions) (*Handler, error) {
	if store == nil {
		return nil, errors.New("bundle store is required")
	}
	h := &Handler{
		store:    store,
		cleaner:  pipeline.NewDataCleaner(),
		metrics:  opts.Metrics,
		recorder: opts.Recorder,
		upgrader: newUpgrader(opts.AllowedOrigins),
		logger:   opts.Logger,
	}
	if h.metrics == nil {
		h.metrics = monitoring.NewMetrics()
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	if opts.CacheSize > 0 {
		cache, err := lru.New[string, ml.PredictionResult](opts.CacheSize)
		if err != nil {
			return nil, err
		}
		h.cache = cache
	}
	return h, nil
}

// Register 注册路由
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /predict", h.handlePredict)
	mux.HandleFunc("GET /api/health", h.handleHealth)
	mux.HandleFunc("GET /api/bundle", h.handleBundle)
	mux.HandleFunc("GET /api/ws/predict", h.handlePredictStream)
	mux.Handle("GET /metrics", h.metrics.Handler())
}

// PurgeCache drops cached predictions, e.g. after a bundle reload.
func (h *Handler) PurgeCache() {
	if h.cache != nil {
		h.cache.Purge()
	}
}

func (h *Handler) handlePredict(w http.ResponseWriter, r *http.Request) {
	req, err := decodePredictRequest(r.Body)
	if err != nil {
		h.writePredictError(w, r, err)
		return
	}
	result, err := h.predict(r.Context(), req)
	if err != nil {
		h.writePredictError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// predict 校验, 查缓存, 推理, 记录
func (h *Handler) predict(ctx context.Context, req PredictRequest) (ml.PredictionResult, error) {
	start := time.Now()

	record, err := req.Record()
	if err != nil {
		return ml.PredictionResult{}, err
	}
	if err := h.cleaner.Validate(record); err != nil {
		return ml.PredictionResult{}, err
	}

	predictor := h.store.Current()
	if predictor == nil {
		return ml.PredictionResult{}, errNoPredictor
	}

	key := cacheKey(predictor.ID(), record)
	var result ml.PredictionResult
	var ok bool
	if h.cache != nil {
		if result, ok = h.cache.Get(key); ok {
			h.metrics.ObserveCacheHit()
		}
	}
	if !ok {
		var err error
		result, err = predictor.Predict(record)
		if err != nil {
			return ml.PredictionResult{}, err
		}
		if h.cache != nil {
			h.cache.Add(key, result)
		}
	}
	h.metrics.ObservePrediction(result.Tier, time.Since(start))

	if h.recorder != nil {
		h.recorder.Record(db.PredictionLog{
			RequestID: GetRequestID(ctx),
			BundleID:  predictor.ID(),
			Request:   record,
			Result:    result,
			CreatedAt: time.Now(),
		})
	}
	return result, nil
}

func (h *Handler) writePredictError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := errorStatus(err)
	h.metrics.ObserveError(kind)
	if status == http.StatusInternalServerError {
		h.logger.Error("prediction failed",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err))
	}
	writeError(w, status, err.Error())
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	predictor := h.store.Current()
	if predictor == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"error":  errNoPredictor.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"bundle_id": predictor.ID(),
	})
}

// BundleInfo 当前模型包的摘要
type BundleInfo struct {
	BundleID       string             `json:"bundle_id"`
	SchemaVersion  int                `json:"schema_version"`
	TrainedAt      time.Time          `json:"trained_at"`
	FeatureNames   []string           `json:"feature_names"`
	Regions        []string           `json:"regions"`
	Tiers          []string           `json:"tiers"`
	TierThresholds ml.TierThresholds  `json:"tier_thresholds"`
	Clusters       int                `json:"clusters"`
	Metrics        ml.TrainingMetrics `json:"metrics"`
}

func (h *Handler) handleBundle(w http.ResponseWriter, r *http.Request) {
	predictor := h.store.Current()
	if predictor == nil {
		writeError(w, http.StatusServiceUnavailable, errNoPredictor.Error())
		return
	}
	bundle := predictor.Bundle()
	writeJSON(w, http.StatusOK, BundleInfo{
		BundleID:       predictor.ID(),
		SchemaVersion:  bundle.SchemaVersion,
		TrainedAt:      bundle.TrainedAt,
		FeatureNames:   append([]string(nil), bundle.FeatureNames...),
		Regions:        bundle.Regions.Values(),
		Tiers:          bundle.Tiers.Values(),
		TierThresholds: bundle.TierThresholds,
		Clusters:       predictor.Clusters(),
		Metrics:        bundle.Metrics,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
