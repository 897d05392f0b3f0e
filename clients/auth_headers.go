package clients

import (
	"context"
	"net/http"
	"strings"

	apperrors "curation-bff/common/errors"

	"github.com/golang-jwt/jwt/v4"
)

// HeaderMode declares whether an upstream call is a global admin operation or
// scoped to the caller's tenant.
type HeaderMode int

const (
	// ModeGlobal omits tenant headers. Curation runs against the global catalog.
	ModeGlobal HeaderMode = iota
	ModeTenant
)

const (
	HeaderAPIKey   = "X-API-Key"
	HeaderUserRole = "X-User-Role"
	HeaderTenantID = "X-Tenant-ID"
	HeaderUserID   = "X-User-ID"

	adminRole = "admin"
)

// Credentials is the caller identity carried from the inbound request to
// every outbound call.
type Credentials struct {
	Token    string
	TenantID string
	Subject  string
}

type credentialsKey struct{}

// WithCredentials stores creds on ctx.
func WithCredentials(ctx context.Context, creds Credentials) context.Context {
	return context.WithValue(ctx, credentialsKey{}, creds)
}

// CredentialsFrom returns the credentials stored on ctx.
func CredentialsFrom(ctx context.Context) (Credentials, bool) {
	creds, ok := ctx.Value(credentialsKey{}).(Credentials)
	return creds, ok && creds.Token != ""
}

// BearerToken extracts the token from an `Authorization: Bearer <token>` header.
func BearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(header[7:])
	return token, token != ""
}

// CredentialsFromToken reads tenant and subject claims without verifying the
// signature. Verification belongs to the gateway; these claims only shape
// outbound headers. Opaque tokens yield credentials with no claims.
func CredentialsFromToken(token string) Credentials {
	creds := Credentials{Token: token}

	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return creds
	}
	for _, key := range []string{"tenant_id", "tenantId", "tid"} {
		if v, ok := claims[key].(string); ok && v != "" {
			creds.TenantID = v
			break
		}
	}
	if sub, ok := claims["sub"].(string); ok {
		creds.Subject = sub
	}
	return creds
}

// Headers returns the authenticated header set for mode.
func (c Credentials) Headers(apiKey string, mode HeaderMode) (http.Header, error) {
	if c.Token == "" {
		return nil, apperrors.Unauthenticated("")
	}
	h := http.Header{}
	h.Set("Authorization", "Bearer "+c.Token)
	h.Set(HeaderAPIKey, apiKey)
	h.Set(HeaderUserRole, adminRole)

	if mode == ModeTenant {
		if c.TenantID == "" {
			return nil, apperrors.Unauthenticated("Tenant context required. The bearer token carries no tenant claim.")
		}
		h.Set(HeaderTenantID, c.TenantID)
		if c.Subject != "" {
			h.Set(HeaderUserID, c.Subject)
		}
	}
	return h, nil
}

// BuildAuthHeaders derives the outbound header set from an inbound request.
// A missing bearer token fails with Unauthenticated; substituting a
// development token is left to the caller.
func BuildAuthHeaders(r *http.Request, apiKey string, mode HeaderMode) (http.Header, error) {
	token, ok := BearerToken(r)
	if !ok {
		return nil, apperrors.Unauthenticated("")
	}
	return CredentialsFromToken(token).Headers(apiKey, mode)
}
