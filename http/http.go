package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	c "github.com/d0ngw/timeline-counter/common"
	"golang.org/x/net/netutil"
)

type tcpKeepAliveListener struct {
	*net.TCPListener
}

// Accept接受连接
func (ln tcpKeepAliveListener) Accept() (net.Conn, error) {
	tc, err := ln.AcceptTCP()
	if err != nil {
		return nil, err
	}
	if err = tc.SetKeepAlive(true); err != nil {
		return nil, err
	}
	if err = tc.SetKeepAlivePeriod(3 * time.Minute); err != nil {
		return nil, err
	}
	return tc, nil
}

// GraceableHandler 安全地关闭的处理器
type GraceableHandler struct {
	handler   http.Handler
	waitGroup *sync.WaitGroup
}

func (p *GraceableHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.waitGroup.Add(1)
	defer p.waitGroup.Done()

	p.handler.ServeHTTP(w, r)
}

// Service Http服务
type Service struct {
	c.BaseService
	Conf         *Config
	listener     net.Listener
	serveMux     *http.ServeMux
	graceHandler *GraceableHandler
	server       *http.Server
	lock         sync.Mutex
}

// NewService creates the http service
func NewService(conf *Config) *Service {
	return &Service{BaseService: c.BaseService{SName: "http", Order: 100}, Conf: conf}
}

// Init 初始化Http服务
func (p *Service) Init() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.Conf == nil {
		return fmt.Errorf("no http config")
	}
	if err := p.Conf.Parse(); err != nil {
		return err
	}

	serveMux := http.NewServeMux()
	p.Conf.lock.Lock()
	for _, pattern := range p.Conf.patterns {
		serveMux.Handle(pattern, p.handleWithMiddleware(p.Conf.handles[pattern]))
	}
	p.Conf.lock.Unlock()

	graceHandler := &GraceableHandler{
		handler:   serveMux,
		waitGroup: &sync.WaitGroup{}}

	p.server = &http.Server{
		Addr:         p.Conf.Addr,
		ReadTimeout:  p.Conf.readTimeout(),
		WriteTimeout: p.Conf.writeTimeout(),
		Handler:      graceHandler}
	p.graceHandler = graceHandler
	p.serveMux = serveMux
	return nil
}

// handleWithMiddleware 依次调用各个middleware,全局的middleware在外层
func (p *Service) handleWithMiddleware(handler *handlerWithMiddleware) http.Handler {
	var h http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ok, err := ErrorFromRequestContext(r); ok {
			c.Errorf("stop handle %s,cause by error:%v", r.RequestURI, err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		handler.handler.ServeHTTP(w, r)
	})

	middlewares := make([]Middleware, 0, len(p.Conf.middlewares)+len(handler.middlewares))
	middlewares = append(middlewares, p.Conf.middlewares...)
	middlewares = append(middlewares, handler.middlewares...)
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i].Handle(h)
	}
	return h
}

// Handler returns the handler serving the registered patterns, Init must be called first
func (p *Service) Handler() http.Handler {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.graceHandler == nil {
		return nil
	}
	return p.graceHandler
}

// Start 启动Http服务,开始端口监听和服务处理
func (p *Service) Start() bool {
	p.lock.Lock()
	defer p.lock.Unlock()

	c.Infof("Listen at %s", p.Conf.Addr)
	ln, err := net.Listen("tcp", p.Conf.Addr)
	if err != nil {
		c.Errorf("Listen at %s fail,error:%v", p.Conf.Addr, err)
		return false
	}

	tcpListener := tcpKeepAliveListener{ln.(*net.TCPListener)}
	if p.Conf.MaxConns > 0 {
		p.listener = netutil.LimitListener(tcpListener, p.Conf.MaxConns)
	} else {
		p.listener = tcpListener
	}

	server, listener := p.server, p.listener
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.Errorf("server.Serve return with %v", err)
		}
	}()
	return true
}

// Addr returns the listen address, nil when the service is not started
func (p *Service) Addr() net.Addr {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.listener == nil {
		return nil
	}
	return p.listener.Addr()
}

// Stop 停止Http服务,关闭端口监听并等待处理中的请求完成
func (p *Service) Stop() bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.server == nil {
		return true
	}

	ok := true
	ctx, cancel := context.WithTimeout(context.Background(), p.Conf.shutdownTimeout())
	defer cancel()
	c.Infof("Waiting shutdown")
	if err := p.server.Shutdown(ctx); err != nil {
		c.Errorf("Shutdown http server error:%v", err)
		ok = false
	}
	p.graceHandler.waitGroup.Wait()
	c.Infof("Finish shutdown")

	p.listener = nil
	p.graceHandler = nil
	p.server = nil
	p.serveMux = nil
	return ok
}
