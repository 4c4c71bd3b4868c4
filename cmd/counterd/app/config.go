package app

import (
	"fmt"
	"os"
	"path"

	"github.com/d0ngw/timeline-counter/cache"
	c "github.com/d0ngw/timeline-counter/common"
	"github.com/d0ngw/timeline-counter/counter"
	"github.com/d0ngw/timeline-counter/fields"
	"github.com/d0ngw/timeline-counter/http"
	"github.com/d0ngw/timeline-counter/item"
	"github.com/d0ngw/timeline-counter/metrics"
)

// 配置文件
const (
	commonConfigFile = "common.yaml"
	envConfigPattern = "conf_%s.yaml"
	defaultConfigDir = "conf"
)

// ServiceConfig counterd的配置
type ServiceConfig struct {
	c.AppConfig  `yaml:",inline"`
	Redis        *cache.RedisConf        `yaml:"redis"`         //redis服务器与分组,使用redis协调缓存时需要
	Cache        *cache.CoordinationConf `yaml:"cache"`         //协调缓存
	DB           *item.DBConfig          `yaml:"db"`            //MySQL存储,为空时使用内存存储
	Counter      *counter.RetryConfig    `yaml:"counter"`       //重试参数
	HTTP         *http.Config            `yaml:"http"`          //http服务
	Metrics      *metrics.Config         `yaml:"metrics"`       //指标
	CardTemplate string                  `yaml:"card_template"` //卡片的html模板
}

// Parse implements Configurer, missing sections get their defaults
func (p *ServiceConfig) Parse() error {
	if p.Cache == nil {
		p.Cache = &cache.CoordinationConf{}
	}
	if p.Counter == nil {
		p.Counter = &counter.RetryConfig{}
	}
	if p.HTTP == nil {
		p.HTTP = &http.Config{}
	}
	if p.CardTemplate == "" {
		p.CardTemplate = fields.DefaultCardTemplate
	}
	if err := c.Parse(p); err != nil {
		return err
	}
	if p.Cache.Backend == cache.BackendRedis && p.Redis == nil {
		return fmt.Errorf("redis coordination cache needs the redis section")
	}
	return nil
}

// ConfigDir returns dir when set, otherwise conf under the work dir
func ConfigDir(dir string) string {
	if dir != "" {
		return dir
	}
	if workDir := os.Getenv(c.EnvWorkDir); workDir != "" {
		return path.Join(workDir, defaultConfigDir)
	}
	return defaultConfigDir
}

// LoadServiceConfig loads common.yaml and conf_<env>.yaml under configDir,
// a file missing is skipped but at least one must exist
func LoadServiceConfig(loader c.ConfigLoader, configDir, env string) (*ServiceConfig, error) {
	if env == "" {
		env = c.EnvDevelopment
	}
	names, err := c.ExistConfigs(loader, configDir, commonConfigFile, fmt.Sprintf(envConfigPattern, env))
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no config found in %s for env %s", configDir, env)
	}
	conf := &ServiceConfig{}
	if err = c.LoadConfigWithLoader(loader, conf, "", configDir, names...); err != nil {
		return nil, fmt.Errorf("load config fail: %w", err)
	}
	if err = conf.Parse(); err != nil {
		return nil, fmt.Errorf("parse config fail: %w", err)
	}
	return conf, nil
}
