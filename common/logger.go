package common

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// LogLevel 日志级别
type LogLevel int8

// 日志级别,数值越大级别越高
const (
	Debug LogLevel = iota + 1
	Info
	Warn
	Error
	Critical
)

var logLevelNames = map[LogLevel]string{
	Debug:    "debug",
	Info:     "info",
	Warn:     "warn",
	Error:    "error",
	Critical: "critical",
}

func (l LogLevel) String() string {
	if name, ok := logLevelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("LogLevel(%d)", int8(l))
}

// ParseLogLevel parses a level name such as "debug" or "WARN"
func ParseLogLevel(name string) (LogLevel, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for level, levelName := range logLevelNames {
		if levelName == name {
			return level, true
		}
	}
	return 0, false
}

// Logger 日志接口,包级别的日志函数都委托给当前的Logger
type Logger interface {
	Debugf(format string, params ...interface{})
	Infof(format string, params ...interface{})
	Warnf(format string, params ...interface{})
	Errorf(format string, params ...interface{})
	Criticalf(format string, params ...interface{})
	// Enabled reports whether level would be written
	Enabled(level LogLevel) bool
	// SetLevel changes the minimum level, unknown levels are ignored
	SetLevel(level LogLevel)
	Sync()
}

var (
	loggerMu sync.RWMutex
	logger   Logger = NewZapLogger(&LogConfig{})
)

func current() Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger
}

// SetLogger replaces the global logger, the previous one is synced
func SetLogger(l Logger) {
	if l == nil {
		return
	}
	loggerMu.Lock()
	prev := logger
	logger = l
	loggerMu.Unlock()
	if prev != nil {
		prev.Sync()
	}
}

func initLogger(conf *LogConfig) error {
	if conf == nil {
		return nil
	}
	if conf.Level != "" {
		if _, ok := ParseLogLevel(conf.Level); !ok {
			return fmt.Errorf("invalid log level %q", conf.Level)
		}
	}
	fmt.Fprintf(os.Stderr, "init logger,env:%s,level:%s,file:%s\n", conf.Env, conf.Level, conf.FileName)
	SetLogger(NewZapLogger(conf))
	return nil
}

// Debugf debug
func Debugf(format string, params ...interface{}) {
	current().Debugf(format, params...)
}

// Infof info
func Infof(format string, params ...interface{}) {
	current().Infof(format, params...)
}

// Warnf warn
func Warnf(format string, params ...interface{}) {
	current().Warnf(format, params...)
}

// Errorf error
func Errorf(format string, params ...interface{}) {
	current().Errorf(format, params...)
}

// Criticalf critical
func Criticalf(format string, params ...interface{}) {
	current().Criticalf(format, params...)
}

// Logf writes with the given level
func Logf(level LogLevel, format string, params ...interface{}) {
	l := current()
	switch level {
	case Debug:
		l.Debugf(format, params...)
	case Info:
		l.Infof(format, params...)
	case Warn:
		l.Warnf(format, params...)
	case Error:
		l.Errorf(format, params...)
	case Critical:
		l.Criticalf(format, params...)
	default:
		l.Infof(format, params...)
	}
}

// SetLogLevel 设置全局日志级别
func SetLogLevel(level LogLevel) {
	current().SetLevel(level)
}

// DebugEnabled is debug enabled
func DebugEnabled() bool {
	return current().Enabled(Debug)
}

// InfoEnabled is info enabled
func InfoEnabled() bool {
	return current().Enabled(Info)
}

// ErrorEnabled is error enabled
func ErrorEnabled() bool {
	return current().Enabled(Error)
}

// SyncLog flush buffered log entries
func SyncLog() {
	current().Sync()
}
