package handler

import (
	"github.com/jwalitptl/clinic-scheduler/pkg/errors"
)

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorData is the data of an error response.
type ErrorData struct {
	Code    errors.ErrorCode    `json:"code,omitempty"`
	Details []errors.FieldError `json:"details,omitempty"`
	TraceID string              `json:"trace_id,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// NewAppErrorResponse renders an application error with its code and
// field details.
func NewAppErrorResponse(err *errors.AppError, traceID string) *Response {
	return &Response{
		Status:  "error",
		Message: err.Message,
		Data: ErrorData{
			Code:    err.Code,
			Details: err.Details,
			TraceID: traceID,
		},
	}
}
