package handler

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/SiPilip/gathering-api/internal/middleware"
	"github.com/SiPilip/gathering-api/internal/models"
)

type responseEnvelope struct {
	Data       map[string]interface{} `json:"data"`
	Error      map[string]interface{} `json:"error"`
	Pagination map[string]interface{} `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

type listEnvelope struct {
	Data       []map[string]interface{} `json:"data"`
	Pagination map[string]interface{}   `json:"pagination"`
}

func newTestContext(method, target string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	var payload bytes.Buffer
	if body != nil {
		switch v := body.(type) {
		case string:
			payload.WriteString(v)
		default:
			_ = json.NewEncoder(&payload).Encode(v)
		}
	}
	c.Request = httptest.NewRequest(method, target, &payload)
	c.Request.Header.Set("Content-Type", "application/json")
	return c, rec
}

func withAdmin(c *gin.Context, userID string) {
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: userID, Role: models.RoleAdmin})
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var env responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}
