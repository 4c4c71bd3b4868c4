// Package metrics builds the OpenTelemetry meter provider and its
// prometheus scrape endpoint
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// DefaultPath is the default scrape path
const DefaultPath = "/metrics"

// Config 指标配置
type Config struct {
	Enabled bool   `yaml:"enabled"` //是否开启
	Path    string `yaml:"path"`    //prometheus抓取的路径
	Runtime bool   `yaml:"runtime"` //是否导出go运行时指标
}

// Parse implements Configurer
func (p *Config) Parse() error {
	if p.Path == "" {
		p.Path = DefaultPath
	}
	if !strings.HasPrefix(p.Path, "/") {
		return fmt.Errorf("invalid metrics path %q", p.Path)
	}
	return nil
}

// Provider is the meter provider with its scrape handler
type Provider struct {
	metric.MeterProvider
	handler  http.Handler
	shutdown func(context.Context) error
}

// Handler returns the scrape handler, nil when metrics are disabled
func (p *Provider) Handler() http.Handler {
	return p.handler
}

// Shutdown flushes and stops the provider
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.shutdown == nil {
		return nil
	}
	return p.shutdown(ctx)
}

// NewProvider creates the provider. A nil or disabled conf gives a no-op provider.
func NewProvider(conf *Config) (*Provider, error) {
	if conf == nil || !conf.Enabled {
		return &Provider{MeterProvider: noop.NewMeterProvider()}, nil
	}
	if err := conf.Parse(); err != nil {
		return nil, err
	}
	registry := prometheus.NewRegistry()
	if conf.Runtime {
		if err := registry.Register(collectors.NewGoCollector()); err != nil {
			return nil, fmt.Errorf("register go collector fail: %w", err)
		}
	}
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter fail: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	return &Provider{
		MeterProvider: provider,
		handler:       promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		shutdown:      provider.Shutdown,
	}, nil
}
