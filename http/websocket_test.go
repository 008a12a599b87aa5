package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"housevalue/ml"
)

func TestPredictStream(t *testing.T) {
	predictor := trainedPredictor(t)
	router, _ := newTestRouter(t, ml.NewBundleStore(predictor), HandlerOptions{})
	server := httptest.NewServer(router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/ws/predict"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	request := `{"id": "a", ` + strings.TrimPrefix(strings.TrimSpace(validBody), "{")
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(request)))

	var response StreamResponse
	require.NoError(t, conn.ReadJSON(&response))
	assert.Equal(t, "a", response.ID)
	assert.Equal(t, http.StatusOK, response.Status)
	require.NotNil(t, response.Result)
	assert.Contains(t, []string{ml.TierLow, ml.TierMid, ml.TierHigh}, response.Result.Tier)

	unseen := strings.Replace(request, "Region_0", "Atlantis", 1)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(unseen)))
	response = StreamResponse{}
	require.NoError(t, conn.ReadJSON(&response))
	assert.Equal(t, http.StatusUnprocessableEntity, response.Status)
	assert.Nil(t, response.Result)
	assert.NotEmpty(t, response.Error)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	response = StreamResponse{}
	require.NoError(t, conn.ReadJSON(&response))
	assert.Equal(t, http.StatusBadRequest, response.Status)
}
