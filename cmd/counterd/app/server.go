package app

import (
	"context"
	"fmt"
	nethttp "net/http"
	"time"

	"github.com/d0ngw/timeline-counter/api"
	"github.com/d0ngw/timeline-counter/cache"
	c "github.com/d0ngw/timeline-counter/common"
	"github.com/d0ngw/timeline-counter/counter"
	"github.com/d0ngw/timeline-counter/fields"
	"github.com/d0ngw/timeline-counter/http"
	"github.com/d0ngw/timeline-counter/item"
	"github.com/d0ngw/timeline-counter/metrics"
	"github.com/d0ngw/timeline-counter/notify"
)

// 路由
const (
	NotifyPath   = "/notify"
	CountersPath = "/counters"
)

// Server holds the assembled components of counterd
type Server struct {
	Conf     *ServiceConfig
	HTTP     *http.Service
	Manager  *counter.Manager
	Provider *metrics.Provider
	services *c.Services
}

// BuildOption tunes NewServer
type BuildOption struct {
	CreateTable bool //启动时创建item表
}

// NewServer assembles the components of conf. The redis client and the
// mysql store are inited here, the rest by Init.
func NewServer(conf *ServiceConfig, opt BuildOption) (*Server, error) {
	if conf == nil {
		return nil, fmt.Errorf("no service config")
	}
	var services []c.Service

	var redisClient *cache.RedisClient
	if conf.Redis != nil {
		redisClient = cache.NewRedisClientWithConf(conf.Redis)
		if !c.ServiceInit(redisClient) {
			return nil, fmt.Errorf("init redis client fail")
		}
		services = append(services, redisClient)
	}
	cc, err := cache.NewCoordinationCache(conf.Cache, redisClient)
	if err != nil {
		return nil, err
	}

	store, err := newStore(conf, opt)
	if err != nil {
		return nil, err
	}
	if svc, ok := store.(c.Service); ok {
		services = append(services, svc)
	}

	renderer, err := fields.NewTemplateRenderer(conf.CardTemplate)
	if err != nil {
		return nil, err
	}
	provider, err := metrics.NewProvider(conf.Metrics)
	if err != nil {
		return nil, err
	}
	counterMetrics, err := counter.NewMetrics(provider)
	if err != nil {
		return nil, err
	}
	coordinator, err := counter.NewCoordinator(cc, store, conf.Counter,
		counter.WithRenderer(renderer), counter.WithMetrics(counterMetrics))
	if err != nil {
		return nil, err
	}
	manager, err := counter.NewManager(store, coordinator, renderer)
	if err != nil {
		return nil, err
	}
	dispatcher, err := notify.NewDispatcher(coordinator)
	if err != nil {
		return nil, err
	}

	httpConf := conf.HTTP
	for _, m := range []http.Middleware{http.Recover, http.RequestID, http.AccessLog} {
		if err = httpConf.RegMiddleware(m); err != nil {
			return nil, err
		}
	}
	if err = api.NewNotifyHandler(dispatcher).Register(httpConf, NotifyPath); err != nil {
		return nil, err
	}
	if err = api.NewCounterHandler(manager).Register(httpConf, CountersPath); err != nil {
		return nil, err
	}
	if handler := provider.Handler(); handler != nil {
		if err = httpConf.RegHandler("GET "+conf.Metrics.Path, handler); err != nil {
			return nil, err
		}
	}
	if err = httpConf.RegHandleFunc("GET /healthz", func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		http.RenderText(w, nethttp.StatusOK, "ok")
	}); err != nil {
		return nil, err
	}

	httpService := http.NewService(httpConf)
	services = append(services, httpService)
	return &Server{
		Conf:     conf,
		HTTP:     httpService,
		Manager:  manager,
		Provider: provider,
		services: c.NewServices(services...),
	}, nil
}

func newStore(conf *ServiceConfig, opt BuildOption) (item.Store, error) {
	if conf.DB == nil {
		c.Warnf("no db config,items are kept in memory")
		store := item.NewMemoryStore()
		store.CheckVersion = true
		return store, nil
	}
	store := item.NewMySQLStore(conf.DB)
	if !c.ServiceInit(store) {
		return nil, fmt.Errorf("init mysql store fail")
	}
	if opt.CreateTable {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := store.CreateTable(ctx); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// Init inits the services
func (p *Server) Init() error {
	if !p.services.Init() {
		return fmt.Errorf("init services fail")
	}
	return nil
}

// Start starts the services
func (p *Server) Start() error {
	if !p.services.Start() {
		return fmt.Errorf("start services fail")
	}
	return nil
}

// Stop stops the services and flushes the metrics
func (p *Server) Stop() {
	if !p.services.Stop() {
		c.Warnf("stop services fail")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Provider.Shutdown(ctx); err != nil {
		c.Warnf("shutdown metrics provider fail,err:%v", err)
	}
}
