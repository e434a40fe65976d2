package ez

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"user-registry/internal/domain"
	resp "user-registry/internal/transport/http/response"
)

type EZ struct {
	g   *gin.RouterGroup
	log *zap.Logger
}

func New(g *gin.RouterGroup, l *zap.Logger) EZ {
	RegisterValidations()
	if l == nil {
		l = zap.NewNop()
	}
	return EZ{g: g, log: l}
}

// 绑定方式
type Binder string

const (
	BindJSON Binder = "json" // 从 JSON 绑定
	BindNone Binder = "none" // 不绑定，自己从 c.Param 取
)

// AErr 统一错误对象，Code 即 HTTP 状态码
type AErr struct {
	Code   int
	Msg    string
	Fields []resp.FieldError
	Err    error
}

func (e *AErr) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "action error"
}

func (e *AErr) Unwrap() error { return e.Err }

// 动作定义：I 入参，O 出参
type Action[I any, O any] struct {
	Method  string // "GET" | "POST" | "PUT" | "DELETE"
	Path    string // 例："/users"、"/users/:id"
	Binder  Binder
	Status  int // 成功状态码，默认 200
	Handler func(c *gin.Context, in *I) (O, error)
}

func RegisterAction[I any, O any](e EZ, a Action[I, O]) {
	status := a.Status
	if status == 0 {
		status = http.StatusOK
	}
	h := func(c *gin.Context) {
		// 1) 绑定入参
		var in I
		var bindErr error
		switch a.Binder {
		case BindJSON:
			bindErr = c.ShouldBindJSON(&in)
		}
		if bindErr != nil {
			e.fail(c, BindError(bindErr))
			return
		}

		// 2) 执行
		out, err := a.Handler(c, &in)
		if err != nil {
			e.fail(c, err)
			return
		}
		c.JSON(status, out)
	}

	switch strings.ToUpper(a.Method) {
	case http.MethodGet:
		e.g.GET(a.Path, h)
	case http.MethodPut:
		e.g.PUT(a.Path, h)
	case http.MethodDelete:
		e.g.DELETE(a.Path, h)
	default: // 默认 POST
		e.g.POST(a.Path, h)
	}
}

// fail 统一错误映射；5xx 只记日志，不向调用方暴露细节
func (e EZ) fail(c *gin.Context, err error) {
	ae := ToAErr(err)
	if ae.Code >= http.StatusInternalServerError {
		_ = c.Error(err)
		e.log.Error("request failed",
			zap.String("rid", c.GetString("X-Request-ID")),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	body := resp.Error(ae.Code, ae.Msg)
	body.Errors = ae.Fields
	c.AbortWithStatusJSON(ae.Code, body)
}

// ToAErr 领域错误 → HTTP 错误
func ToAErr(err error) *AErr {
	var ae *AErr
	if errors.As(err, &ae) {
		if ae.Code >= http.StatusInternalServerError {
			return &AErr{Code: ae.Code, Msg: resp.CodeMsgMap[ae.Code], Err: ae.Err}
		}
		return ae
	}
	var de *domain.DuplicateResourceError
	switch {
	case errors.As(err, &de):
		return &AErr{Code: resp.CodeConflict, Msg: de.Error(), Err: err}
	case errors.Is(err, domain.ErrValidation):
		return &AErr{Code: resp.CodeBadRequest, Msg: err.Error(), Err: err}
	case errors.Is(err, domain.ErrNotFound):
		return &AErr{Code: resp.CodeNotFound, Msg: "user not found", Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &AErr{Code: resp.CodeTimeout, Msg: resp.CodeMsgMap[resp.CodeTimeout], Err: err}
	}
	return &AErr{Code: resp.CodeServerError, Msg: "internal error", Err: err}
}
