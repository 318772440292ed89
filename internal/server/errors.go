package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	contractdomain "github.com/smallbiznis/regalia/internal/contract/domain"
	inbounddomain "github.com/smallbiznis/regalia/internal/inbound/domain"
	ingestiondomain "github.com/smallbiznis/regalia/internal/ingestion/domain"
	mappingdomain "github.com/smallbiznis/regalia/internal/mapping/domain"
	"github.com/smallbiznis/regalia/internal/providers/extraction"
	royaltydomain "github.com/smallbiznis/regalia/internal/royalty/domain"
	salesperioddomain "github.com/smallbiznis/regalia/internal/salesperiod/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictErrorCode(err),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, extraction.ErrNotConfigured):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	case errors.Is(err, ErrInternal):
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return true
	case isContractValidationError(err),
		isRoyaltyValidationError(err),
		isSalesPeriodValidationError(err),
		isMappingValidationError(err),
		isInboundValidationError(err),
		isIngestionValidationError(err):
		return true
	default:
		return false
	}
}

func isContractValidationError(err error) bool {
	switch {
	case errors.Is(err, contractdomain.ErrInvalidOrganization),
		errors.Is(err, contractdomain.ErrInvalidID),
		errors.Is(err, contractdomain.ErrMissingLicensee),
		errors.Is(err, contractdomain.ErrInvalidDates),
		errors.Is(err, contractdomain.ErrInvalidFrequency),
		errors.Is(err, contractdomain.ErrInvalidGuarantee),
		errors.Is(err, contractdomain.ErrInvalidAmount),
		errors.Is(err, contractdomain.ErrInvalidRate),
		errors.Is(err, contractdomain.ErrGuaranteeFinerThanReporting):
		return true
	default:
		return false
	}
}

func isRoyaltyValidationError(err error) bool {
	switch {
	case errors.Is(err, royaltydomain.ErrInvalidOrganization),
		errors.Is(err, royaltydomain.ErrInvalidID),
		errors.Is(err, royaltydomain.ErrInvalidPeriod),
		errors.Is(err, royaltydomain.ErrInvalidYearIndex),
		errors.Is(err, royaltydomain.ErrMalformedRateStructure),
		errors.Is(err, royaltydomain.ErrUnknownCategory),
		errors.Is(err, royaltydomain.ErrNegativeSales):
		return true
	default:
		return false
	}
}

func isSalesPeriodValidationError(err error) bool {
	switch {
	case errors.Is(err, salesperioddomain.ErrInvalidOrganization),
		errors.Is(err, salesperioddomain.ErrInvalidID),
		errors.Is(err, salesperioddomain.ErrInvalidRange),
		errors.Is(err, salesperioddomain.ErrNegativeSales):
		return true
	default:
		return false
	}
}

func isMappingValidationError(err error) bool {
	switch {
	case errors.Is(err, mappingdomain.ErrInvalidOrganization),
		errors.Is(err, mappingdomain.ErrInvalidID),
		errors.Is(err, mappingdomain.ErrInvalidRole),
		errors.Is(err, mappingdomain.ErrInvalidTerm),
		errors.Is(err, mappingdomain.ErrInvalidAssignment),
		errors.Is(err, mappingdomain.ErrMissingSalesColumn),
		errors.Is(err, mappingdomain.ErrUnresolvedCategories):
		return true
	default:
		return false
	}
}

func isInboundValidationError(err error) bool {
	switch {
	case errors.Is(err, inbounddomain.ErrInvalidOrganization),
		errors.Is(err, inbounddomain.ErrInvalidID),
		errors.Is(err, inbounddomain.ErrMissingSender),
		errors.Is(err, inbounddomain.ErrContractRequired):
		return true
	default:
		return false
	}
}

func isIngestionValidationError(err error) bool {
	switch {
	case errors.Is(err, ingestiondomain.ErrEmptyFile),
		errors.Is(err, ingestiondomain.ErrMissingPeriodDates),
		errors.Is(err, ingestiondomain.ErrMalformedCell):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, contractdomain.ErrNotDraft),
		errors.Is(err, royaltydomain.ErrContractNotActive),
		errors.Is(err, royaltydomain.ErrYearFinalized),
		errors.Is(err, salesperioddomain.ErrContractNotActive),
		errors.Is(err, salesperioddomain.ErrPeriodOverlap),
		errors.Is(err, salesperioddomain.ErrAlreadyVoided),
		errors.Is(err, inbounddomain.ErrNotPending),
		errors.Is(err, inbounddomain.ErrNotConfirmed):
		return true
	default:
		return false
	}
}

func conflictErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return err.Error()
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, contractdomain.ErrNotFound),
		errors.Is(err, royaltydomain.ErrContractNotFound),
		errors.Is(err, salesperioddomain.ErrNotFound),
		errors.Is(err, salesperioddomain.ErrContractNotFound),
		errors.Is(err, mappingdomain.ErrContractNotFound),
		errors.Is(err, inbounddomain.ErrNotFound),
		errors.Is(err, inbounddomain.ErrContractNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	default:
		return "invalid value"
	}
}
