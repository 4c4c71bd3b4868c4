package app

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"path"
	"strings"
	"testing"

	"github.com/d0ngw/timeline-counter/cache"
	c "github.com/d0ngw/timeline-counter/common"
	"github.com/d0ngw/timeline-counter/counter"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapLoader map[string]string

func (m mapLoader) Load(configPath string) ([]byte, error) {
	v, ok := m[configPath]
	if !ok {
		return nil, errors.New("not found " + configPath)
	}
	return []byte(v), nil
}

func (m mapLoader) Exist(configPath string) (bool, error) {
	_, ok := m[configPath]
	return ok, nil
}

const testCommon = `
log:
  env: development
  level: info
counter:
  max_attempts: 100
  backoff_initial: 1
  backoff_max: 2
`

const testDev = `
http:
  addr: 127.0.0.1:0
  max_body_bytes: 65536
metrics:
  enabled: true
`

func testLoader() mapLoader {
	return mapLoader{
		path.Join("conf", commonConfigFile): testCommon,
		path.Join("conf", "conf_development.yaml"): testDev,
	}
}

func TestLoadServiceConfig(t *testing.T) {
	conf, err := LoadServiceConfig(testLoader(), "conf", "")
	require.Nil(t, err)
	assert.Equal(t, cache.BackendMemory, conf.Cache.Backend)
	assert.Equal(t, 100, conf.Counter.MaxAttempts)
	assert.Equal(t, counter.DefaultPersistAttempts, conf.Counter.PersistAttempts)
	assert.Equal(t, "127.0.0.1:0", conf.HTTP.Addr)
	assert.Equal(t, "/metrics", conf.Metrics.Path)
	assert.Nil(t, conf.DB)
	assert.NotEmpty(t, conf.CardTemplate)

	// only common.yaml exists for production
	conf, err = LoadServiceConfig(testLoader(), "conf", c.EnvProduction)
	require.Nil(t, err)
	assert.Nil(t, conf.Metrics)

	_, err = LoadServiceConfig(testLoader(), "other", "")
	assert.NotNil(t, err)

	loader := testLoader()
	loader[path.Join("conf", "conf_redis.yaml")] = "cache:\n  backend: redis\n  group: counter\n"
	_, err = LoadServiceConfig(loader, "conf", "redis")
	assert.NotNil(t, err)
}

func TestConfigDir(t *testing.T) {
	assert.Equal(t, "/etc/counter", ConfigDir("/etc/counter"))
	t.Setenv(c.EnvWorkDir, "/opt/counter")
	assert.Equal(t, "/opt/counter/conf", ConfigDir(""))
	t.Setenv(c.EnvWorkDir, "")
	assert.Equal(t, defaultConfigDir, ConfigDir(""))
}

func TestServer(t *testing.T) {
	conf, err := LoadServiceConfig(testLoader(), "conf", "")
	require.Nil(t, err)
	server, err := NewServer(conf, BuildOption{})
	require.Nil(t, err)
	require.Nil(t, server.Init())
	handler := server.HTTP.Handler()
	require.NotNil(t, handler)

	do := func(method, target, body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(method, target, strings.NewReader(body)))
		return w
	}

	w := do(http.MethodPost, CountersPath, `{"name":"cups","num":7}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
	var created struct {
		Data counter.Counter `json:"data"`
	}
	require.Nil(t, jsoniter.Unmarshal(w.Body.Bytes(), &created))
	id := created.Data.ID

	w = do(http.MethodPost, NotifyPath, `{"collection":"timeline","itemId":"`+id+`","userActions":[{"type":"CUSTOM","payload":"increment"}]}`)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"value":8`)

	w = do(http.MethodGet, CountersPath+"/"+id, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"num":8`)

	w = do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(http.MethodGet, conf.Metrics.Path, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "counter_operations")

	server.Stop()
}

func TestRootCmd(t *testing.T) {
	cmd := NewRootCmd()
	var out strings.Builder
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.Nil(t, cmd.Execute())
	assert.Contains(t, out.String(), "counterd "+Version)
}
