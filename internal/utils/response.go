package utils

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Response defines the standard API response envelope.
type Response struct {
	Success bool        `json:"success"`
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
	Meta    Meta        `json:"meta"`
}

// ErrorInfo provides details for error responses.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Meta contains request-scoped metadata.
type Meta struct {
	RequestID  string      `json:"requestId"`
	Timestamp  string      `json:"timestamp"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Pagination holds pagination metadata for list responses.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
}

// DefaultPageLimit is used when a list request does not ask for a size.
const DefaultPageLimit = 50

func meta(c *gin.Context) Meta {
	return Meta{RequestID: getRequestID(c), Timestamp: NowISO()}
}

// Success writes a success response with the standard envelope.
func Success(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, Response{Success: true, Code: code, Message: message, Data: data, Meta: meta(c)})
}

// Paginate returns the requested page of items with its metadata. Pages
// start at one; out of range pages are empty.
func Paginate[T any](items []T, page, limit int) ([]T, *Pagination) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	total := len(items)
	p := &Pagination{Page: page, Limit: limit, TotalItems: total, TotalPages: (total + limit - 1) / limit}

	start := min((page-1)*limit, total)
	end := min(start+limit, total)
	return append([]T{}, items[start:end]...), p
}

// SuccessWithPagination writes one page of a list response.
func SuccessWithPagination(c *gin.Context, code int, message string, data interface{}, p *Pagination) {
	m := meta(c)
	m.Pagination = p
	c.JSON(code, Response{Success: true, Code: code, Message: message, Data: data, Meta: m})
}

// Error writes an error response with provided API error code and message.
func Error(c *gin.Context, code int, errCode, message string) {
	c.JSON(code, Response{
		Success: false,
		Code:    code,
		Message: message,
		Error:   &ErrorInfo{Code: errCode, Message: message},
		Meta:    meta(c),
	})
}

// FromError writes an error response derived from the error's kind and code.
// Internal errors are reported with a generic message.
func FromError(c *gin.Context, err error, fallback string) {
	status := HTTPStatus(err)
	message := err.Error()
	if status == 500 {
		message = fallback
	}
	Error(c, status, Code(err), message)
}

func getRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	return uuid.New().String()[:8]
}

// StoreZone is the storefront's local time zone (Arabia Standard Time).
var StoreZone = time.FixedZone("AST", 3*3600)

// NowISO returns the current time in ISO 8601 format in the store time zone.
func NowISO() string {
	return time.Now().In(StoreZone).Format("2006-01-02T15:04:05+03:00")
}
