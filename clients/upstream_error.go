package clients

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	apperrors "curation-bff/common/errors"
)

// upstreamError maps a non-2xx upstream response to an Upstream error. The
// body is kept as detail, decoded when it is JSON and as text otherwise.
func upstreamError(status int, body []byte) *apperrors.Error {
	trimmed := strings.TrimSpace(string(body))

	var decoded interface{}
	if trimmed != "" && json.Unmarshal(body, &decoded) == nil {
		return apperrors.Upstream(status, messageFrom(decoded, status), decoded)
	}

	var detail interface{}
	if trimmed != "" {
		detail = trimmed
	}
	return apperrors.Upstream(status, defaultMessage(status), detail)
}

func messageFrom(decoded interface{}, status int) string {
	obj, ok := decoded.(map[string]interface{})
	if !ok {
		return defaultMessage(status)
	}
	for _, key := range []string{"error", "message", "detail"} {
		if s, ok := obj[key].(string); ok && s != "" {
			return s
		}
	}
	// {"detail": [{"msg": ...}]} as produced by validation layers
	if items, ok := obj["detail"].([]interface{}); ok && len(items) > 0 {
		if first, ok := items[0].(map[string]interface{}); ok {
			if s, ok := first["msg"].(string); ok && s != "" {
				return s
			}
		}
	}
	return defaultMessage(status)
}

func defaultMessage(status int) string {
	if text := http.StatusText(status); text != "" {
		return fmt.Sprintf("Upstream service error: %s", text)
	}
	return fmt.Sprintf("Upstream service error: status %d", status)
}

// IsUpstreamStatus reports whether err is an upstream response with status.
func IsUpstreamStatus(err error, status int) bool {
	appErr, ok := apperrors.As(err)
	return ok && appErr.Kind == apperrors.KindUpstream && appErr.Code == status
}
