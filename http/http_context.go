package http

import (
	"context"
	"net/http"
)

type key int

const (
	errorKey     key = 0 // 处理错误的key
	requestIDKey key = 1 // 请求id的key
)

// RequestWithContext 向req的context中设置key = val,返回新的request
func RequestWithContext(req *http.Request, key, val interface{}) *http.Request {
	ctx := req.Context()
	ctx = context.WithValue(ctx, key, val)
	return req.WithContext(ctx)
}

// RequestWithError 向req中设置当前处理的错误,返回新的request.
// 设置了错误的请求不再交给处理器.
func RequestWithError(req *http.Request, err error) *http.Request {
	return RequestWithContext(req, errorKey, err)
}

// ErrorFromRequestContext 从req的context取得错误值
func ErrorFromRequestContext(req *http.Request) (bool, error) {
	err, ok := req.Context().Value(errorKey).(error)
	return ok, err
}

// RequestIDFromContext 取得请求id,没有时返回""
func RequestIDFromContext(req *http.Request) string {
	return RequestIDFrom(req.Context())
}

// RequestIDFrom 取得ctx中的请求id
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
