package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	log "github.com/sirupsen/logrus"

	"rath-service/internal/apperr"
	"rath-service/pkg/validation"
)

const maxBodySize = 1 << 20

// Envelope is the body shared by every JSON response.
type Envelope map[string]any

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[httpx] encode response: %v", err)
	}
}

// Success writes 200 with status=success merged into payload.
func Success(w http.ResponseWriter, payload Envelope) {
	write(w, http.StatusOK, payload)
}

// Created writes 201 with status=success merged into payload.
func Created(w http.ResponseWriter, payload Envelope) {
	write(w, http.StatusCreated, payload)
}

func write(w http.ResponseWriter, status int, payload Envelope) {
	if payload == nil {
		payload = Envelope{}
	}
	payload["status"] = "success"
	JSON(w, status, payload)
}

// Error maps err to a status code and writes the error envelope.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	body := Envelope{"status": "error", "message": err.Error()}

	var verrs *validation.Errors
	if errors.As(err, &verrs) {
		body["message"] = "Validation failed"
		body["details"] = verrs.Fields
		JSON(w, http.StatusBadRequest, body)
		return
	}

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		body["message"] = appErr.Message
		body["code"] = appErr.Code
	}

	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		log.WithFields(log.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Errorf("[httpx] unhandled error: %v", err)
		body["message"] = "internal server error"
		delete(body, "code")
	}
	JSON(w, status, body)
}

// StatusFor returns the HTTP status for an error kind.
func StatusFor(err error) int {
	var verrs *validation.Errors
	if errors.As(err, &verrs) {
		return http.StatusBadRequest
	}
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Decode reads a single JSON value from the body.
func Decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError), errors.Is(err, io.ErrUnexpectedEOF):
			return apperr.Validation("malformed JSON")
		case errors.As(err, &unmarshalTypeError):
			return apperr.Validation("invalid type for field " + unmarshalTypeError.Field)
		case errors.As(err, &maxBytesError):
			return apperr.Validation("request body too large")
		case errors.Is(err, io.EOF):
			return apperr.Validation("request body is empty")
		default:
			return apperr.Validation(err.Error())
		}
	}
	return nil
}

// Bind decodes and validates the body.
func Bind(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := Decode(w, r, dst); err != nil {
		return err
	}
	return validation.Struct(dst)
}
