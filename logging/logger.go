// Package logging 提供基于 zerolog 的全局日志。
//
// 进程启动时调用 Init 配置级别与输出格式；库代码通过 Debug/Info/Warn/Error
// 或 Ctx(ctx) 取 logger，始终以 .Msg()/.Send() 结束链式调用：
//
//	logging.Init(logging.Config{Level: "debug", Format: "console"})
//	logging.Info().Str("catalog", path).Int("items", n).Msg("catalog loaded")
package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config 日志配置。
type Config struct {
	// Level: trace, debug, info, warn, error, disabled。默认 info
	Level string `koanf:"level" validate:"omitempty,oneof=trace debug info warn warning error disabled"`

	// Format: json 或 console。默认 json
	Format string `koanf:"format" validate:"omitempty,oneof=json console"`

	// Caller 是否输出调用位置
	Caller bool `koanf:"caller"`

	Output io.Writer `koanf:"-"`
}

var (
	mu  sync.RWMutex
	log zerolog.Logger
)

func init() {
	initLogger(Config{})
}

// Init 重新配置全局 logger，可多次调用。
func Init(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	initLogger(cfg)
}

func initLogger(cfg Config) {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))
	zerolog.TimeFieldFormat = time.RFC3339

	out := cfg.Output
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: "15:04:05"}
	}
	l := zerolog.New(out).With().Timestamp().Logger()
	if cfg.Caller {
		l = l.With().Caller().Logger()
	}
	log = l
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Logger 返回全局 logger 的副本。
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

func Debug() *zerolog.Event { l := Logger(); return l.Debug() }
func Info() *zerolog.Event  { l := Logger(); return l.Info() }
func Warn() *zerolog.Event  { l := Logger(); return l.Warn() }
func Error() *zerolog.Event { l := Logger(); return l.Error() }

type requestIDKey struct{}

// WithRequestID 把请求 ID 放入 context，Ctx 取出的 logger 会自动带上 request_id。
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID 读取 context 中的请求 ID。
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Ctx 返回带请求上下文字段的 logger。
func Ctx(ctx context.Context) *zerolog.Logger {
	l := Logger()
	if id := RequestID(ctx); id != "" {
		l = l.With().Str("request_id", id).Logger()
	}
	return &l
}
