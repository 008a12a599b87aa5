package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"housevalue/ml"
	"housevalue/pipeline"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = (wsPongWait * 9) / 10
	wsMaxMessageSize = 64 * 1024
)

// streamRequest 流式预测请求, ID 原样返回
type streamRequest struct {
	ID string `json:"id,omitempty"`
	PredictRequest
}

// StreamResponse 流式预测响应
type StreamResponse struct {
	ID     string               `json:"id,omitempty"`
	Result *ml.PredictionResult `json:"result,omitempty"`
	Error  string               `json:"error,omitempty"`
	Status int                  `json:"status"`
}

func newUpgrader(origins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			return originAllowed(origins, origin)
		},
	}
}

// handlePredictStream 每条消息是一个预测请求, 每个请求对应一条响应
func (h *Handler) handlePredictStream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	conn.SetReadLimit(wsMaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read failed", zap.Error(err))
			}
			return
		}

		response := h.streamPredict(r, data)
		conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(response); err != nil {
			h.logger.Warn("websocket write failed", zap.Error(err))
			return
		}
	}
}

func (h *Handler) streamPredict(r *http.Request, data []byte) StreamResponse {
	var req streamRequest
	if err := json.Unmarshal(data, &req); err != nil {
		err = &pipeline.ValidationError{Rule: "request_body", Field: "body", Message: err.Error()}
		return h.streamError("", r, err)
	}
	result, err := h.predict(r.Context(), req.PredictRequest)
	if err != nil {
		return h.streamError(req.ID, r, err)
	}
	return StreamResponse{ID: req.ID, Result: &result, Status: http.StatusOK}
}

func (h *Handler) streamError(id string, r *http.Request, err error) StreamResponse {
	status, kind := errorStatus(err)
	h.metrics.ObserveError(kind)
	if status == http.StatusInternalServerError {
		h.logger.Error("stream prediction failed",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err))
	}
	return StreamResponse{ID: id, Error: err.Error(), Status: status}
}
