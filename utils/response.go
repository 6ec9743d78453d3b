package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ContextRequestIDKey is where Ginzap stores the request correlation id.
const ContextRequestIDKey = "request_id"

// Envelope is the body of every API response.
type Envelope struct {
	Code      int         `json:"code"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

func envelope(ctx *gin.Context, code int, message string, data interface{}) Envelope {
	return Envelope{
		Code:      code,
		Message:   message,
		Data:      data,
		RequestID: ctx.GetString(ContextRequestIDKey),
	}
}

// Respond writes an envelope with the given HTTP status.
func Respond(ctx *gin.Context, status int, code int, message string, data interface{}) {
	ctx.JSON(status, envelope(ctx, code, message, data))
}

// Success returns a standard success response.
func Success(ctx *gin.Context, data interface{}) {
	Respond(ctx, http.StatusOK, 0, "success", data)
}

// Created is Success with 201.
func Created(ctx *gin.Context, data interface{}) {
	Respond(ctx, http.StatusCreated, 0, "created", data)
}

// Error writes an envelope without data; code is the application error code.
func Error(ctx *gin.Context, status int, code int, message string) {
	Respond(ctx, status, code, message, nil)
}

// Abort writes an error envelope and stops the handler chain.
func Abort(ctx *gin.Context, status int, code int, message string) {
	ctx.AbortWithStatusJSON(status, envelope(ctx, code, message, nil))
}
