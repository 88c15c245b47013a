package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeUnauthorized       ErrorCode = "COMMON_003"
	ErrCodeForbidden          ErrorCode = "COMMON_004"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeNotImplemented     ErrorCode = "COMMON_015"
)

// Aliases used throughout the services for the most frequent conditions.
const (
	CodeInternal       = ErrCodeInternal
	CodeInvalidParam   = ErrCodeBadRequest
	CodeUnauthorized   = ErrCodeUnauthorized
	CodeForbidden      = ErrCodeForbidden
	CodeNotFound       = ErrCodeNotFound
	CodeConflict       = ErrCodeConflict
	CodeRateLimit      = ErrCodeTooManyRequests
	CodeNotImplemented = ErrCodeNotImplemented
	CodeOK             = ErrorCode("OK")

	CodeInvalidScore    = ErrCodeInvalidScore
	CodeAssetNotFound   = ErrCodeAssetNotFound
	CodeThreatNotFound  = ErrCodeThreatNotFound
	CodeControlNotFound = ErrCodeControlNotFound
	CodeDuplicateApply  = ErrCodeControlAlreadyApplied
	CodeNotApplied      = ErrCodeControlNotApplied
)

// Risk Assessment Module Error Codes
const (
	ErrCodeInvalidScore         ErrorCode = "RISK_001"
	ErrCodeUnknownCriterion     ErrorCode = "RISK_002"
	ErrCodeUnknownCategory      ErrorCode = "RISK_003"
	ErrCodeAssessmentNotFound   ErrorCode = "RISK_004"
	ErrCodeAssessmentIncomplete ErrorCode = "RISK_005"
	ErrCodeMatrixLookupFailed   ErrorCode = "RISK_006"
	ErrCodeSnapshotFailed       ErrorCode = "RISK_007"
)

// Control Module Error Codes
const (
	ErrCodeControlNotFound       ErrorCode = "CTL_001"
	ErrCodeControlAlreadyApplied ErrorCode = "CTL_002"
	ErrCodeControlNotApplied     ErrorCode = "CTL_003"
	ErrCodeControlNoMatch        ErrorCode = "CTL_004"
	ErrCodeSegmentUnresolved     ErrorCode = "CTL_005"
	ErrCodeCriterionUnresolved   ErrorCode = "CTL_006"
	ErrCodeControlCatalogCorrupt ErrorCode = "CTL_007"
)

// Catalog Module Error Codes
const (
	ErrCodeAssetNotFound      ErrorCode = "CAT_001"
	ErrCodeThreatNotFound     ErrorCode = "CAT_002"
	ErrCodeCatalogLoadFailed  ErrorCode = "CAT_003"
	ErrCodeCatalogParseFailed ErrorCode = "CAT_004"
	ErrCodeCatalogDuplicate   ErrorCode = "CAT_005"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusInternalServerError,
	ErrCodeNotImplemented:     http.StatusNotImplemented,

	ErrCodeInvalidScore:         http.StatusBadRequest,
	ErrCodeUnknownCriterion:     http.StatusBadRequest,
	ErrCodeUnknownCategory:      http.StatusBadRequest,
	ErrCodeAssessmentNotFound:   http.StatusNotFound,
	ErrCodeAssessmentIncomplete: http.StatusUnprocessableEntity,
	ErrCodeMatrixLookupFailed:   http.StatusInternalServerError,
	ErrCodeSnapshotFailed:       http.StatusInternalServerError,

	ErrCodeControlNotFound:       http.StatusNotFound,
	ErrCodeControlAlreadyApplied: http.StatusConflict,
	ErrCodeControlNotApplied:     http.StatusConflict,
	ErrCodeControlNoMatch:        http.StatusUnprocessableEntity,
	ErrCodeSegmentUnresolved:     http.StatusUnprocessableEntity,
	ErrCodeCriterionUnresolved:   http.StatusUnprocessableEntity,
	ErrCodeControlCatalogCorrupt: http.StatusInternalServerError,

	ErrCodeAssetNotFound:      http.StatusNotFound,
	ErrCodeThreatNotFound:     http.StatusNotFound,
	ErrCodeCatalogLoadFailed:  http.StatusInternalServerError,
	ErrCodeCatalogParseFailed: http.StatusInternalServerError,
	ErrCodeCatalogDuplicate:   http.StatusConflict,
}

// ErrorCodeMessage maps ErrorCodes to default human readable messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeUnauthorized:       "unauthorized",
	ErrCodeForbidden:          "forbidden",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timed out",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization error",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeNotImplemented:     "not implemented",

	ErrCodeInvalidScore:         "score outside valid range",
	ErrCodeUnknownCriterion:     "unknown assessment criterion",
	ErrCodeUnknownCategory:      "unknown risk category",
	ErrCodeAssessmentNotFound:   "assessment not found",
	ErrCodeAssessmentIncomplete: "assessment has no recorded scores",
	ErrCodeMatrixLookupFailed:   "risk matrix lookup failed",
	ErrCodeSnapshotFailed:       "failed to persist assessment snapshot",

	ErrCodeControlNotFound:       "control not found",
	ErrCodeControlAlreadyApplied: "control already applied",
	ErrCodeControlNotApplied:     "control is not applied",
	ErrCodeControlNoMatch:        "control matched no threats",
	ErrCodeSegmentUnresolved:     "control segment resolved to no assets",
	ErrCodeCriterionUnresolved:   "control references no known criterion",
	ErrCodeControlCatalogCorrupt: "control catalog is corrupt",

	ErrCodeAssetNotFound:      "asset not found",
	ErrCodeThreatNotFound:     "threat not found",
	ErrCodeCatalogLoadFailed:  "failed to load catalog",
	ErrCodeCatalogParseFailed: "failed to parse catalog record",
	ErrCodeCatalogDuplicate:   "duplicate catalog entry",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
