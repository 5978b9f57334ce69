package logsvc

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/trezcool/masomo/core"
)

// ZapLogger writes structured (JSON in production) logs.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

var _ core.Logger = (*ZapLogger)(nil)

// NewZapLogger builds a production logger for "json" format and a development one otherwise.
func NewZapLogger(format, name string) (*ZapLogger, error) {
	var cfg zap.Config
	switch strings.ToLower(format) {
	case "json", "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)

	zl, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return &ZapLogger{sugar: zl.Named(name).Sugar()}, nil
}

// NewZapLoggerFrom wraps an existing zap logger (tests use zaptest/observer cores).
func NewZapLoggerFrom(zl *zap.Logger) *ZapLogger {
	return &ZapLogger{sugar: zl.Sugar()}
}

func (l *ZapLogger) Sync() {
	_ = l.sugar.Sync()
}

// fields turns the core.Logger args into zap key-value pairs.
func fields(args []interface{}) []interface{} {
	kvs := make([]interface{}, 0, len(args)*2)
	var nErr, nArg int
	for _, arg := range args {
		switch v := arg.(type) {
		case nil:
		case error:
			key := "error"
			if nErr > 0 {
				key = fmt.Sprintf("error%d", nErr)
			}
			nErr++
			kvs = append(kvs, zap.NamedError(key, v))
		case map[string]interface{}:
			for k, val := range v {
				kvs = append(kvs, k, val)
			}
		default:
			kvs = append(kvs, fmt.Sprintf("arg%d", nArg), v)
			nArg++
		}
	}
	return kvs
}

func (l *ZapLogger) Debug(msg string, args ...interface{}) {
	l.sugar.Debugw(msg, fields(args)...)
}

func (l *ZapLogger) Info(msg string, args ...interface{}) {
	l.sugar.Infow(msg, fields(args)...)
}

func (l *ZapLogger) Warn(msg string, args ...interface{}) {
	l.sugar.Warnw(msg, fields(args)...)
}

func (l *ZapLogger) Error(msg string, args ...interface{}) {
	l.sugar.Errorw(msg, fields(args)...)
}

func (l *ZapLogger) Fatal(msg string, args ...interface{}) {
	l.sugar.Fatalw(msg, fields(args)...)
}
