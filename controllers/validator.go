package controllers

import (
	"errors"
	"fmt"
	"io"
	"strings"

	apperrors "curation-bff/common/errors"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// BulkRequest is the body of bulk approve and bulk reject.
type BulkRequest struct {
	ProductIDs []string `json:"product_ids" validate:"required,min=1,dive,required"`
	Notes      string   `json:"notes" validate:"max=1000"`
}

// BulkDeleteRequest requires confirm to be true; it is checked by the service
// so the error names the confirmation rule.
type BulkDeleteRequest struct {
	ProductIDs []string `json:"product_ids" validate:"required,min=1,dive,required"`
	Confirm    bool     `json:"confirm"`
}

type BulkCurateRequest struct {
	ProductIDs []string `json:"product_ids" validate:"required,min=1,dive,required"`
	Mode       string   `json:"mode" validate:"omitempty,oneof=simple fallback"`
}

type AsyncCurationRequest struct {
	ProductIDs    []string `json:"product_ids" validate:"required,min=1,dive,required"`
	CurationNotes string   `json:"curation_notes" validate:"max=1000"`
}

type RejectRequest struct {
	Notes string `json:"notes" validate:"max=1000"`
}

type JobWebhookRequest struct {
	JobID  string `json:"job_id" validate:"required"`
	Status string `json:"status"`
}

// RequestValidator binds and validates JSON bodies
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	return &RequestValidator{validate: validator.New()}
}

// BindJSON decodes the body into out and validates it. An empty body is
// accepted when optional is set.
func (rv *RequestValidator) BindJSON(c *gin.Context, out interface{}, optional bool) error {
	if c.Request.ContentLength == 0 && optional {
		return nil
	}
	if err := c.ShouldBindJSON(out); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return apperrors.InvalidArgument("Invalid request body: %s", err.Error())
	}
	if err := rv.validate.Struct(out); err != nil {
		return apperrors.InvalidArgument("%s", describeValidation(err))
	}
	return nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	field := strings.Split(fe.Namespace(), ".")
	name := toSnake(field[len(field)-1])
	switch {
	case name == "product_ids":
		if fe.Tag() == "required" && strings.Contains(fe.Field(), "[") {
			return "product_ids must not contain empty values"
		}
		return "product_ids must be a non-empty array"
	case fe.Tag() == "required":
		return fmt.Sprintf("%s is required", name)
	case fe.Tag() == "oneof":
		return fmt.Sprintf("%s must be one of: %s", name, fe.Param())
	case fe.Tag() == "max":
		return fmt.Sprintf("%s must be at most %s characters", name, fe.Param())
	}
	return fmt.Sprintf("%s is invalid", name)
}

func toSnake(s string) string {
	if i := strings.Index(s, "["); i >= 0 {
		s = s[:i]
	}
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && !(s[i-1] >= 'A' && s[i-1] <= 'Z') {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
