package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindsMapToStatus(t *testing.T) {
	cases := []struct {
		err  error
		code int
		kind Kind
	}{
		{Unauthenticated(""), http.StatusUnauthorized, KindUnauthenticated},
		{NotFound("product %s not found", "p1"), http.StatusNotFound, KindNotFound},
		{InvalidState("product is %q", "curated"), http.StatusBadRequest, KindInvalidState},
		{InvalidArgument("too many ids"), http.StatusBadRequest, KindInvalidArgument},
		{Upstream(http.StatusConflict, "conflict", nil), http.StatusConflict, KindUpstream},
		{InternalProxy(stderrors.New("dial tcp: refused")), http.StatusInternalServerError, KindInternalProxy},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.code, StatusCode(tc.err))
		assert.True(t, IsKind(tc.err, tc.kind))
	}
}

func TestWrappedErrorsKeepKind(t *testing.T) {
	err := fmt.Errorf("publish p1: %w", InvalidState("product is pending"))
	assert.True(t, IsKind(err, KindInvalidState))
	assert.Equal(t, http.StatusBadRequest, StatusCode(err))
	assert.Equal(t, "product is pending", Message(err))
}

func TestUpstreamWithoutErrorStatusBecomesBadGateway(t *testing.T) {
	assert.Equal(t, http.StatusBadGateway, Upstream(200, "odd", nil).Code)
}

func TestRespond(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("upstream detail is included", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)

		Respond(c, Upstream(http.StatusUnprocessableEntity, "bad sku", map[string]interface{}{"field": "sku"}))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "bad sku", body["error"])
		assert.Equal(t, map[string]interface{}{"field": "sku"}, body["detail"])
		assert.Equal(t, float64(http.StatusUnprocessableEntity), body["status"])
	})

	t.Run("local errors carry no upstream status", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)

		Respond(c, NotFound("Product %s not found", "p1"))

		assert.Equal(t, http.StatusNotFound, w.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.NotContains(t, body, "status")
	})

	t.Run("plain errors are hidden", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)

		Respond(c, stderrors.New("connection reset by peer"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "connection reset")
	})
}
