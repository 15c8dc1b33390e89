package server

import (
	"context"
	"errors"
	"log"
	"net/http"

	goahttp "goa.design/goa/v3/http"
	goa "goa.design/goa/v3/pkg"

	apperrors "leadcrm/pkg/errors"
)

// errorBody is the JSON shape of every error response
type errorBody struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// writeJSON encodes v with goa's response encoder
func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	enc := goahttp.ResponseEncoder(ctx, w)
	w.WriteHeader(status)
	if err := enc.Encode(v); err != nil {
		log.Printf("[ERROR] failed to encode response: %v", err)
	}
}

// decodeJSON decodes the request body into v. Malformed bodies become goa
// decode_payload errors.
func decodeJSON(r *http.Request, v any) error {
	if err := goahttp.RequestDecoder(r).Decode(v); err != nil {
		return goa.DecodePayloadError(err.Error())
	}
	return nil
}

// statusFor maps an error code to its HTTP status
func statusFor(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrCodeValidation, apperrors.ErrCodeBadRequest:
		return http.StatusBadRequest
	case apperrors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case apperrors.ErrCodeForbidden:
		return http.StatusForbidden
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError converts err into a structured error response. Internal errors
// are logged and their detail withheld from the caller.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		status := statusFor(appErr.Code)
		if status == http.StatusInternalServerError {
			log.Printf("[ERROR] %s %s: %v", r.Method, r.URL.Path, err)
			writeJSON(r.Context(), w, status, errorBody{Name: string(apperrors.ErrCodeInternalError), Message: "Internal server error"})
			return
		}
		writeJSON(r.Context(), w, status, errorBody{Name: string(appErr.Code), Message: appErr.Message})
		return
	}

	var svcErr *goa.ServiceError
	if errors.As(err, &svcErr) {
		writeJSON(r.Context(), w, http.StatusBadRequest, errorBody{Name: svcErr.Name, Message: svcErr.Message})
		return
	}

	log.Printf("[ERROR] %s %s: %v", r.Method, r.URL.Path, err)
	writeJSON(r.Context(), w, http.StatusInternalServerError, errorBody{Name: string(apperrors.ErrCodeInternalError), Message: "Internal server error"})
}
