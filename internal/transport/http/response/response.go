package response

import "time"

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrorBody 所有失败响应的统一结构，不带内部错误细节
type ErrorBody struct {
	Status    int          `json:"status"`
	Message   string       `json:"message"`
	Errors    []FieldError `json:"errors,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// Error 失败响应（customMsg 为空时用默认 msg）
func Error(code int, customMsg string) ErrorBody {
	msg := CodeMsgMap[code]
	if customMsg != "" {
		msg = customMsg
	}
	return ErrorBody{Status: code, Message: msg, Timestamp: time.Now().UTC()}
}

// Invalid 400 + 字段级错误
func Invalid(msg string, fields []FieldError) ErrorBody {
	b := Error(CodeBadRequest, msg)
	b.Errors = fields
	return b
}
