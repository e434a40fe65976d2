package response

import "net/http"

// 错误码直接沿用 HTTP 状态码
const (
	CodeBadRequest      = http.StatusBadRequest
	CodeUnauthorized    = http.StatusUnauthorized
	CodeForbidden       = http.StatusForbidden
	CodeNotFound        = http.StatusNotFound
	CodeConflict        = http.StatusConflict
	CodeTooLarge        = http.StatusRequestEntityTooLarge
	CodeTooManyRequests = http.StatusTooManyRequests
	CodeServerError     = http.StatusInternalServerError
	CodeUnavailable     = http.StatusServiceUnavailable
	CodeTimeout         = http.StatusGatewayTimeout
)

// CodeMsgMap 集中管理 code - 默认 msg
var CodeMsgMap = map[int]string{
	CodeBadRequest:      "Bad Request",
	CodeUnauthorized:    "Unauthorized",
	CodeForbidden:       "Forbidden",
	CodeNotFound:        "Not Found",
	CodeConflict:        "Conflict",
	CodeTooLarge:        "Request body too large",
	CodeTooManyRequests: "Too many requests",
	CodeServerError:     "Internal Server Error",
	CodeUnavailable:     "Server busy",
	CodeTimeout:         "Timeout",
}
