package clients

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	apperrors "curation-bff/common/errors"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func authedContext(token string) context.Context {
	return WithCredentials(context.Background(), CredentialsFromToken(token))
}

func TestBearerToken(t *testing.T) {
	cases := map[string]struct {
		header string
		token  string
		ok     bool
	}{
		"missing":     {"", "", false},
		"basic":       {"Basic abc", "", false},
		"empty":       {"Bearer   ", "", false},
		"valid":       {"Bearer abc.def", "abc.def", true},
		"lowercase":   {"bearer xyz", "xyz", true},
		"extra space": {"  Bearer  tok  ", "tok", true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				r.Header.Set("Authorization", tc.header)
			}
			token, ok := BearerToken(r)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.token, token)
		})
	}
}

func TestBuildAuthHeaders(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{"sub": "user-1", "tenant_id": "tenant-9"})

	t.Run("missing bearer is unauthenticated", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		_, err := BuildAuthHeaders(r, "key", ModeGlobal)
		require.Error(t, err)
		assert.True(t, apperrors.IsKind(err, apperrors.KindUnauthenticated))
		assert.Equal(t, apperrors.AuthRequiredMessage, apperrors.Message(err))
	})

	t.Run("global mode omits tenant", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		h, err := BuildAuthHeaders(r, "key", ModeGlobal)
		require.NoError(t, err)
		assert.Equal(t, "Bearer "+token, h.Get("Authorization"))
		assert.Equal(t, "key", h.Get(HeaderAPIKey))
		assert.Equal(t, "admin", h.Get(HeaderUserRole))
		assert.Empty(t, h.Get(HeaderTenantID))
	})

	t.Run("tenant mode adds tenant and user", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		h, err := BuildAuthHeaders(r, "key", ModeTenant)
		require.NoError(t, err)
		assert.Equal(t, "tenant-9", h.Get(HeaderTenantID))
		assert.Equal(t, "user-1", h.Get(HeaderUserID))
	})

	t.Run("tenant mode without claim fails", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer opaque-token")
		_, err := BuildAuthHeaders(r, "key", ModeTenant)
		assert.True(t, apperrors.IsKind(err, apperrors.KindUnauthenticated))
	})
}

func TestForward_SendsHeadersQueryAndBody(t *testing.T) {
	var got *http.Request
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	g := NewGatewayClient(srv.URL, "svc-key", time.Second, nil)
	var out struct {
		OK bool `json:"ok"`
	}
	err := g.ForwardJSON(authedContext("tok"), http.MethodPost, "/things", ForwardOptions{
		Query:   url.Values{"page": {"2"}},
		Body:    map[string]string{"name": "x"},
		Headers: http.Header{HeaderAPIKey: {"spoofed"}, "X-Trace": {"t1"}},
	}, &out)
	require.NoError(t, err)

	assert.True(t, out.OK)
	assert.Equal(t, "/things", got.URL.Path)
	assert.Equal(t, "2", got.URL.Query().Get("page"))
	assert.Equal(t, "Bearer tok", got.Header.Get("Authorization"))
	assert.Equal(t, "svc-key", got.Header.Get(HeaderAPIKey))
	assert.Equal(t, "t1", got.Header.Get("X-Trace"))
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
	assert.Equal(t, "x", gotBody["name"])
}

func TestForward_WithoutCredentials(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	_, err := NewGatewayClient(srv.URL, "k", time.Second, nil).Forward(context.Background(), http.MethodGet, "/x", ForwardOptions{})
	assert.True(t, apperrors.IsKind(err, apperrors.KindUnauthenticated))
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestForward_ErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		status     int
		body       string
		wantMsg    string
		wantDetail interface{}
	}{
		{"json error field", http.StatusConflict, `{"error":"sku taken"}`, "sku taken", map[string]interface{}{"error": "sku taken"}},
		{"json message field", http.StatusBadRequest, `{"message":"bad input","code":7}`, "bad input", map[string]interface{}{"message": "bad input", "code": float64(7)}},
		{"raw text", http.StatusBadGateway, "upstream exploded", "Upstream service error: Bad Gateway", "upstream exploded"},
		{"empty body", http.StatusServiceUnavailable, "", "Upstream service error: Service Unavailable", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewGatewayClient(srv.URL, "k", time.Second, nil).Forward(authedContext("tok"), http.MethodGet, "/x", ForwardOptions{})
			appErr, ok := apperrors.As(err)
			require.True(t, ok)
			assert.Equal(t, apperrors.KindUpstream, appErr.Kind)
			assert.Equal(t, tc.status, appErr.Code)
			assert.Equal(t, tc.wantMsg, appErr.Message)
			assert.Equal(t, tc.wantDetail, appErr.Detail)
		})
	}
}

func TestForward_DoesNotRetry(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewGatewayClient(srv.URL, "k", time.Second, nil).Forward(authedContext("tok"), http.MethodPatch, "/x", ForwardOptions{Body: map[string]string{}})
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestForward_NetworkFailureIsInternalProxy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := NewGatewayClient(srv.URL, "k", time.Second, nil).Forward(authedContext("tok"), http.MethodGet, "/x", ForwardOptions{})
	assert.True(t, apperrors.IsKind(err, apperrors.KindInternalProxy))
	assert.Equal(t, http.StatusInternalServerError, apperrors.StatusCode(err))
}

func TestForwardJSON_MalformedBodyIsInternalProxy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"job_id":`))
	}))
	defer srv.Close()

	var out map[string]interface{}
	err := NewGatewayClient(srv.URL, "k", time.Second, nil).ForwardJSON(authedContext("tok"), http.MethodGet, "/x", ForwardOptions{}, &out)
	assert.True(t, apperrors.IsKind(err, apperrors.KindInternalProxy))
}
