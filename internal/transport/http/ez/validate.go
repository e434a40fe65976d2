package ez

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	resp "user-registry/internal/transport/http/response"
)

var registerOnce sync.Once

// RegisterValidations 在 gin 的 validator 上注册自定义规则，字段名取 json tag
func RegisterValidations() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
		_ = v.RegisterValidation("notblank", notBlank)
		_ = v.RegisterValidation("maxbytes", maxBytes)
	})
}

func notBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// maxbytes=N 按字节计长度（bcrypt 只认前 72 字节）
func maxBytes(fl validator.FieldLevel) bool {
	n, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= n
}

// BindError 绑定/校验错误 → 400（或 413）
func BindError(err error) *AErr {
	var ves validator.ValidationErrors
	if errors.As(err, &ves) {
		fields := make([]resp.FieldError, 0, len(ves))
		msgs := make([]string, 0, len(ves))
		for _, fe := range ves {
			m := FieldMessage(fe)
			fields = append(fields, resp.FieldError{Field: fieldPath(fe), Message: m})
			msgs = append(msgs, m)
		}
		return &AErr{Code: resp.CodeBadRequest, Msg: strings.Join(msgs, "; "), Fields: fields, Err: err}
	}
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return &AErr{Code: resp.CodeTooLarge, Msg: resp.CodeMsgMap[resp.CodeTooLarge], Err: err}
	}
	var se *json.SyntaxError
	var te *json.UnmarshalTypeError
	if errors.As(err, &se) || errors.As(err, &te) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &AErr{Code: resp.CodeBadRequest, Msg: "malformed JSON request body", Err: err}
	}
	return &AErr{Code: resp.CodeBadRequest, Msg: err.Error(), Err: err}
}

// fieldPath 取 json 名，内嵌结构体不带前缀；dive 元素形如 roles[0]
func fieldPath(fe validator.FieldError) string { return fe.Field() }

func FieldMessage(fe validator.FieldError) string {
	f := fieldPath(fe)
	switch fe.Tag() {
	case "required", "notblank":
		return f + " cannot be blank"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", f, fe.Param())
	case "max":
		return fmt.Sprintf("%s cannot exceed %s characters", f, fe.Param())
	case "maxbytes":
		return fmt.Sprintf("%s cannot exceed %s bytes", f, fe.Param())
	case "email":
		return f + " should be a valid email"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", f, fe.Param())
	}
	return fmt.Sprintf("%s is invalid (%s)", f, fe.Tag())
}
