package logger

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/noah-isme/studytrack-api/pkg/config"
	"github.com/noah-isme/studytrack-api/pkg/middleware/requestid"
)

func New(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Env == config.EnvProduction {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Log.Format {
	case "console":
		zapCfg.Encoding = "console"
	default:
		zapCfg.Encoding = "json"
	}

	if cfg.Log.Level != "" {
		if err := zapCfg.Level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
		}
	}

	zapCfg.EncoderConfig.TimeKey = "timestamp"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return zapCfg.Build()
}

func GinMiddleware(l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		latency := time.Since(start)
		reqID := requestid.Value(c)

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		}
		if reqID != "" {
			fields = append(fields, zap.String("request_id", reqID))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		if c.Writer.Status() >= 500 {
			l.Error("http_request", fields...)
			return
		}
		l.Info("http_request", fields...)
	}
}

// BadgerAdapter routes badger's internal logging through zap.
type BadgerAdapter struct {
	sugar *zap.SugaredLogger
}

// NewBadgerAdapter wraps l; a nil logger discards everything.
func NewBadgerAdapter(l *zap.Logger) *BadgerAdapter {
	if l == nil {
		l = zap.NewNop()
	}
	return &BadgerAdapter{sugar: l.Named("badger").Sugar()}
}

func (a *BadgerAdapter) Errorf(format string, args ...interface{}) {
	a.sugar.Errorf(format, args...)
}

func (a *BadgerAdapter) Warningf(format string, args ...interface{}) {
	a.sugar.Warnf(format, args...)
}

func (a *BadgerAdapter) Infof(format string, args ...interface{}) {
	a.sugar.Debugf(format, args...)
}

func (a *BadgerAdapter) Debugf(format string, args ...interface{}) {
	a.sugar.Debugf(format, args...)
}
