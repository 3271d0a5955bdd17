package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"zakatledger/internal/core"
	"zakatledger/internal/log"
	"zakatledger/internal/middleware/trace"
	"zakatledger/internal/services"
)

// errorBody is the JSON shape of every failed request.
type errorBody struct {
	Error     string                `json:"error"`
	Kind      string                `json:"kind"`
	Retryable bool                  `json:"retryable"`
	Fields    []services.FieldError `json:"fields,omitempty"`
	RequestID string                `json:"request_id,omitempty"`
}

// statusFor maps an error kind onto its HTTP status.
func statusFor(kind core.Kind) int {
	switch kind {
	case core.KindValidation:
		return http.StatusUnprocessableEntity
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindAuth:
		return http.StatusUnauthorized
	case core.KindPersistence:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err with the status of its kind. Unclassified errors
// are reported without their message.
func respondError(c *gin.Context, err error) {
	kind := core.KindOf(err)
	status := statusFor(kind)

	body := errorBody{
		Error:     err.Error(),
		Kind:      kind.String(),
		Retryable: core.IsRetryable(err),
		RequestID: c.Writer.Header().Get(trace.HeaderRequestID),
	}
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		body.Fields = verr.Fields
	}
	if status == http.StatusInternalServerError {
		body.Error = "internal error"
		log.FromContext(c.Request.Context()).ErrorContext(c.Request.Context(), "Unclassified request error",
			log.FieldError, err)
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}

// respondBindError reports a request body that could not be decoded (400)
// or failed its binding rules (422).
func respondBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]services.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, services.FieldError{Field: fe.Field(), Rule: fe.Tag()})
		}
		respondError(c, core.Validation("http.bind", &services.ValidationError{Fields: fields}))
		return
	}

	msg := "malformed request body"
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, io.EOF):
		msg = "request body is empty"
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		msg = "malformed request body: " + err.Error()
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{
		Error:     msg,
		Kind:      "bad_request",
		RequestID: c.Writer.Header().Get(trace.HeaderRequestID),
	})
}
