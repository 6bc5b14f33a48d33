// Package log 封装 zap，提供进程级 logger 和随请求传递的 logger。
package log

import (
	"context"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// 未调用 Init 之前（例如单元测试中）使用 no-op logger。
var sugar = zap.NewNop().Sugar()

// RequestIDKey 是请求 ID 在结构化日志中的字段名。
const RequestIDKey = "request_id"

type ctxKey struct{}

// Init 按配置构建全局 logger。format 为 console 时使用彩色开发格式，否则输出 JSON。
func Init(level, format, outputPath string) {
	logger, err := build(level, format, outputPath)
	if err != nil {
		panic(err)
	}
	sugar = logger.Sugar()
}

func build(level, format, outputPath string) (*zap.Logger, error) {
	atomic := zap.NewAtomicLevel()
	if err := atomic.UnmarshalText([]byte(level)); err != nil {
		atomic.SetLevel(zap.InfoLevel)
	}

	cfg := zap.NewProductionConfig()
	if format == "console" {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.Level = atomic
	cfg.OutputPaths = []string{"stdout"}
	if outputPath != "" {
		// 同时输出到文件和 stdout
		_ = os.MkdirAll(outputPath, os.ModePerm)
		cfg.OutputPaths = append(cfg.OutputPaths, outputPath+"/app.log")
	}
	return cfg.Build()
}

// SetLogger 替换全局 logger，供测试挂接 observer。返回恢复函数。
func SetLogger(l *zap.Logger) (restore func()) {
	prev := sugar
	sugar = l.Sugar()
	return func() { sugar = prev }
}

// With 返回附带固定字段的 logger，例如 log.With("component", "scorer")。
func With(keysAndValues ...interface{}) *zap.SugaredLogger {
	return sugar.With(keysAndValues...)
}

// NewContext 把附带字段的 logger 放进 ctx。已有 logger 时在其基础上追加字段。
func NewContext(ctx context.Context, keysAndValues ...interface{}) context.Context {
	return context.WithValue(ctx, ctxKey{}, FromContext(ctx).With(keysAndValues...))
}

// FromContext 返回 ctx 中的 logger；没有时返回全局 logger。
func FromContext(ctx context.Context) *zap.SugaredLogger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*zap.SugaredLogger); ok {
			return l
		}
	}
	return sugar
}

func Info(msg string) {
	sugar.Info(msg)
}

func Infof(template string, args ...interface{}) {
	sugar.Infof(template, args...)
}

// Infow 记录结构化日志，复杂上下文优先使用它。
func Infow(msg string, keysAndValues ...interface{}) {
	sugar.Infow(msg, keysAndValues...)
}

func Warnf(template string, args ...interface{}) {
	sugar.Warnf(template, args...)
}

func Warnw(msg string, keysAndValues ...interface{}) {
	sugar.Warnw(msg, keysAndValues...)
}

// Error 记录一条 error 级别的日志，并附带 error 字段
func Error(msg string, err error) {
	sugar.Errorw(msg, "error", err)
}

func Errorf(template string, args ...interface{}) {
	sugar.Errorf(template, args...)
}

// Fatal 记录日志后退出进程
func Fatal(msg string, err error) {
	sugar.Fatalw(msg, "error", err)
}

func Fatalf(template string, args ...interface{}) {
	sugar.Fatalf(template, args...)
}

// Sync 刷新缓冲的日志，进程退出前调用。
func Sync() {
	_ = sugar.Sync()
}
