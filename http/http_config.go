// Package http 提供基本的http服务
package http

import (
	"fmt"
	"net/http"
	"sync"
	"time"
)

// 默认参数
const (
	DefaultAddr            = ":8080"
	DefaultReadTimeout     = 10
	DefaultWriteTimeout    = 10
	DefaultShutdownTimeout = 15
)

// Config Http配置
type Config struct {
	Addr            string `yaml:"addr"`             //Http监听地址
	ReadTimeout     int    `yaml:"read_timeout"`     //读超时,单位秒
	WriteTimeout    int    `yaml:"write_timeout"`    //写超时,单位秒
	MaxConns        int    `yaml:"max_conns"`        //最大的并发连接数,0表示不限制
	ShutdownTimeout int    `yaml:"shutdown_timeout"` //停止时等待请求完成的时间,单位秒
	MaxBodyBytes    int64  `yaml:"max_body_bytes"`   //请求体的最大字节数,0表示不限制

	middlewares []Middleware                      //过滤操作
	handles     map[string]*handlerWithMiddleware //handles
	patterns    []string                          //注册的次序
	lock        sync.Mutex
}

type handlerWithMiddleware struct {
	handler     http.Handler
	middlewares []Middleware
}

// NewConfig 创建配置
func NewConfig(addr string) *Config {
	conf := &Config{Addr: addr}
	_ = conf.Parse()
	return conf
}

// Parse implements Configurer
func (p *Config) Parse() error {
	if p.Addr == "" {
		p.Addr = DefaultAddr
	}
	if p.ReadTimeout == 0 {
		p.ReadTimeout = DefaultReadTimeout
	}
	if p.WriteTimeout == 0 {
		p.WriteTimeout = DefaultWriteTimeout
	}
	if p.ShutdownTimeout == 0 {
		p.ShutdownTimeout = DefaultShutdownTimeout
	}
	if p.ReadTimeout < 0 || p.WriteTimeout < 0 || p.ShutdownTimeout < 0 || p.MaxConns < 0 || p.MaxBodyBytes < 0 {
		return fmt.Errorf("invalid http config %+v", p)
	}
	return nil
}

func (p *Config) readTimeout() time.Duration {
	return time.Duration(p.ReadTimeout) * time.Second
}

func (p *Config) writeTimeout() time.Duration {
	return time.Duration(p.WriteTimeout) * time.Second
}

func (p *Config) shutdownTimeout() time.Duration {
	return time.Duration(p.ShutdownTimeout) * time.Second
}

// RegHandler 注册pattern的处理器,middlewares只作用于这个处理器
func (p *Config) RegHandler(pattern string, handler http.Handler, middlewares ...Middleware) error {
	if handler == nil {
		return fmt.Errorf("can't bind nil handler to %s", pattern)
	}
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.handles == nil {
		p.handles = map[string]*handlerWithMiddleware{}
	}
	if _, ok := p.handles[pattern]; ok {
		return fmt.Errorf("duplicate pattern:%s", pattern)
	}
	p.handles[pattern] = &handlerWithMiddleware{handler: handler, middlewares: middlewares}
	p.patterns = append(p.patterns, pattern)
	return nil
}

// RegHandleFunc 注册pattern的处理函数handlerFunc
func (p *Config) RegHandleFunc(pattern string, handlerFunc http.HandlerFunc, middlewares ...Middleware) error {
	if handlerFunc == nil {
		return fmt.Errorf("can't bind nil handlerFunc to %s", pattern)
	}
	return p.RegHandler(pattern, handlerFunc, middlewares...)
}

// RegMiddleware 注册全局的middleware,先注册的先执行
func (p *Config) RegMiddleware(middleware Middleware) error {
	if middleware == nil {
		return fmt.Errorf("invalid middleware")
	}
	p.lock.Lock()
	defer p.lock.Unlock()
	p.middlewares = append(p.middlewares, middleware)
	return nil
}
