package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the envelope for the gateway's own (non-protocol) endpoints.
type Response struct {
	StatusCode int         `json:"status_code"`
	Msg        string      `json:"msg"`
	Data       interface{} `json:"data"`
}

// Success wraps data in the standard envelope.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		StatusCode: 0,
		Msg:        "success",
		Data:       data,
	})
}

// Error reports a failure in the standard envelope; the HTTP status stays
// 200, the envelope code carries the failure.
func Error(c *gin.Context, statusCode int, msg string) {
	c.JSON(http.StatusOK, Response{
		StatusCode: statusCode,
		Msg:        msg,
		Data:       attachRequestID(c, nil),
	})
}

// BadRequest reports an invalid request body or parameter.
func BadRequest(c *gin.Context, msg string) {
	Error(c, CodeBadRequest, msg)
}

// NotFound reports a missing resource.
func NotFound(c *gin.Context, msg string) {
	Error(c, CodeNotFound, msg)
}

// Internal reports an unexpected server-side failure.
func Internal(c *gin.Context, msg string) {
	Error(c, CodeInternal, msg)
}

// Protocol writes a raw payment-protocol body. Protocol responses carry no
// envelope; the platform parses them field by field.
func Protocol(c *gin.Context, body interface{}) {
	c.JSON(http.StatusOK, body)
}

// ProtocolPrivate writes a protocol body that must not be cached by
// intermediaries.
func ProtocolPrivate(c *gin.Context, body interface{}) {
	c.Header("Cache-Control", "private")
	c.JSON(http.StatusOK, body)
}

type protocolError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

// ProtocolError writes a protocol failure body.
func ProtocolError(c *gin.Context, httpStatus int, code string, message string) {
	c.JSON(httpStatus, protocolError{
		Code:      code,
		Message:   message,
		RequestID: requestID(c),
	})
}

func requestID(c *gin.Context) string {
	if c == nil {
		return ""
	}
	if value, ok := c.Get("request_id"); ok {
		if id, ok := value.(string); ok {
			return id
		}
	}
	return ""
}

func attachRequestID(c *gin.Context, data interface{}) interface{} {
	id := requestID(c)
	if id == "" {
		return data
	}
	if data == nil {
		return gin.H{"request_id": id}
	}
	switch v := data.(type) {
	case gin.H:
		if _, ok := v["request_id"]; !ok {
			v["request_id"] = id
		}
		return v
	default:
		return gin.H{
			"request_id": id,
			"data":       data,
		}
	}
}
