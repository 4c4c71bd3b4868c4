package counter

import (
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// 默认的重试参数
const (
	DefaultMaxAttempts     = 16
	DefaultTimeout         = 3000
	DefaultBackoffInitial  = 5
	DefaultBackoffMax      = 200
	DefaultPersistAttempts = 5
)

// RetryConfig bounds the swap loop and the durable write
type RetryConfig struct {
	MaxAttempts     int `yaml:"max_attempts"`     //CAS最大尝试次数
	Timeout         int `yaml:"timeout"`          //单次调用的超时,单位毫秒
	BackoffInitial  int `yaml:"backoff_initial"`  //重试的初始间隔,单位毫秒
	BackoffMax      int `yaml:"backoff_max"`      //重试的最大间隔,单位毫秒
	PersistAttempts int `yaml:"persist_attempts"` //写存储的最大尝试次数
}

// Parse implements Configurer
func (p *RetryConfig) Parse() error {
	if p.MaxAttempts == 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.Timeout == 0 {
		p.Timeout = DefaultTimeout
	}
	if p.BackoffInitial == 0 {
		p.BackoffInitial = DefaultBackoffInitial
	}
	if p.BackoffMax == 0 {
		p.BackoffMax = DefaultBackoffMax
	}
	if p.PersistAttempts == 0 {
		p.PersistAttempts = DefaultPersistAttempts
	}
	if p.MaxAttempts < 1 || p.PersistAttempts < 1 {
		return fmt.Errorf("attempts must be positive,max_attempts:%d,persist_attempts:%d", p.MaxAttempts, p.PersistAttempts)
	}
	if p.Timeout < 0 || p.BackoffInitial < 0 || p.BackoffMax < p.BackoffInitial {
		return fmt.Errorf("invalid retry timing,timeout:%d,backoff_initial:%d,backoff_max:%d", p.Timeout, p.BackoffInitial, p.BackoffMax)
	}
	return nil
}

// TimeoutDuration is the deadline of one invocation
func (p *RetryConfig) TimeoutDuration() time.Duration {
	return time.Duration(p.Timeout) * time.Millisecond
}

func (p *RetryConfig) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Duration(p.BackoffInitial) * time.Millisecond
	b.MaxInterval = time.Duration(p.BackoffMax) * time.Millisecond
	return b
}
