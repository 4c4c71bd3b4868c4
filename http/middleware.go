package http

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	c "github.com/d0ngw/timeline-counter/common"
	"github.com/google/uuid"
)

// Middleware 包装http处理器
type Middleware interface {
	// Handle 返回包装了next的处理器
	Handle(next http.Handler) http.Handler
}

// MiddlewareFunc adapts a function to Middleware
type MiddlewareFunc func(next http.Handler) http.Handler

// Handle implements Middleware
func (f MiddlewareFunc) Handle(next http.Handler) http.Handler {
	return f(next)
}

// RequestIDHeader 请求id的header
const RequestIDHeader = "X-Request-Id"

// RequestID 为每个请求分配id,已有的header值会被沿用
var RequestID = MiddlewareFunc(func(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, RequestWithContext(r, requestIDKey, id))
	})
})

// Recover 把处理器的panic转为500
var Recover = MiddlewareFunc(func(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				c.Errorf("handle %s %s panic:%v,stack:%s", r.Method, r.URL.Path, err, debug.Stack())
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
})

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (p *statusWriter) WriteHeader(status int) {
	p.status = status
	p.ResponseWriter.WriteHeader(status)
}

func (p *statusWriter) Write(b []byte) (int, error) {
	if p.status == 0 {
		p.status = http.StatusOK
	}
	return p.ResponseWriter.Write(b)
}

// AccessLog 记录请求的方法,路径,状态和耗时
var AccessLog = MiddlewareFunc(func(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)
		if sw.status == 0 {
			sw.status = http.StatusOK
		}
		level := c.Info
		if sw.status >= http.StatusInternalServerError {
			level = c.Warn
		}
		c.Logf(level, "%s %s %d %s id:%s", r.Method, r.URL.Path, sw.status, time.Since(start), RequestIDFromContext(r))
	})
})

// MaxBody 限制请求体的大小
func MaxBody(n int64) Middleware {
	return MiddlewareFunc(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if n > 0 && r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	})
}

// Methods 只允许指定的方法,其他的返回405
func Methods(methods ...string) Middleware {
	return MiddlewareFunc(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, m := range methods {
				if r.Method == m {
					next.ServeHTTP(w, r)
					return
				}
			}
			w.Header().Set("Allow", fmt.Sprint(methods))
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		})
	})
}
