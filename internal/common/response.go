package common

import (
	"encoding/json"
	"errors"
	"net/http"
)

// ErrorBody is the payload under "error" in every failed response. Code carries
// the API taxonomy: INSUFFICIENT_STOCK, QUANTITY_EXCEEDS_STOCK, COUPON_INELIGIBLE,
// DUPLICATE_COUPON_CODE, CART_EMPTY, the *_NOT_FOUND codes and the transport
// codes (VALIDATION_ERROR, RATE_LIMITED, PAYLOAD_TOO_LARGE, UNAUTHORIZED).
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type errorEnvelope struct {
	Error ErrorBody `json:"error"`
}

// JSON writes v with status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// JSONError writes {"error": {code, message, details}}.
func JSONError(w http.ResponseWriter, status int, code, message string, details any) {
	JSON(w, status, errorEnvelope{Error: ErrorBody{Code: code, Message: message, Details: details}})
}

// WriteError renders err in the error envelope. Anything but an AppError is a 500
// whose cause stays out of the response.
func WriteError(w http.ResponseWriter, err error) {
	appErr, ok := AsAppError(err)
	if !ok || appErr.Code == "" {
		JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
		return
	}
	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	message := appErr.Message
	if message == "" {
		message = http.StatusText(status)
	}
	details := appErr.Details
	var syntaxErr *json.SyntaxError
	if details == nil && errors.As(appErr.Err, &syntaxErr) {
		details = map[string]any{"offset": syntaxErr.Offset}
	}
	JSONError(w, status, appErr.Code, message, details)
}
