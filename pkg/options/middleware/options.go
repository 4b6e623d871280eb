// Package middleware provides middleware configuration options.
package middleware

import (
	"fmt"
	"log"
	"time"

	"github.com/kart-io/thoughtweave/pkg/infra/server/transport"
	"github.com/spf13/pflag"
)

// PathMatcher contains common path matching configuration.
type PathMatcher struct {
	SkipPaths        []string
	SkipPathPrefixes []string
}

// 中间件名称常量。
const (
	MiddlewareRecovery  = "recovery"
	MiddlewareRequestID = "request-id"
	MiddlewareLogger    = "logger"
	MiddlewareCORS      = "cors"
	MiddlewareTimeout   = "timeout"
	MiddlewareHealth    = "health"
	MiddlewareMetrics   = "metrics"
	MiddlewarePprof     = "pprof"

	MiddlewareBodyLimit       = "body-limit"
	MiddlewareCircuitBreaker  = "circuit-breaker"
	MiddlewareCompression     = "compression"
	MiddlewareRateLimit       = "rate-limit"
	MiddlewareSecurityHeaders = "security-headers"
	MiddlewareVersion         = "version"
)

// AllMiddlewares 所有支持的中间件名称。
var AllMiddlewares = []string{
	MiddlewareRecovery,
	MiddlewareRequestID,
	MiddlewareLogger,
	MiddlewareCORS,
	MiddlewareTimeout,
	MiddlewareHealth,
	MiddlewareMetrics,
	MiddlewarePprof,
	MiddlewareBodyLimit,
	MiddlewareCircuitBreaker,
	MiddlewareCompression,
	MiddlewareRateLimit,
	MiddlewareSecurityHeaders,
	MiddlewareVersion,
}

// Options 中间件配置。核心中间件（recovery、request-id、logger、health、
// metrics）默认启用；CORS、timeout、pprof 默认禁用，通过 Disable* 标志控制。
type Options struct {
	// DisableRecovery 禁用 panic 恢复中间件。
	DisableRecovery bool `json:"disable-recovery" mapstructure:"disable-recovery"`

	// DisableRequestID 禁用请求 ID 中间件。
	DisableRequestID bool `json:"disable-request-id" mapstructure:"disable-request-id"`

	// DisableLogger 禁用访问日志中间件。
	DisableLogger bool `json:"disable-logger" mapstructure:"disable-logger"`

	// DisableCORS 禁用 CORS 中间件（默认禁用）。
	DisableCORS bool `json:"disable-cors" mapstructure:"disable-cors"`

	// DisableTimeout 禁用超时中间件（默认禁用）。
	DisableTimeout bool `json:"disable-timeout" mapstructure:"disable-timeout"`

	// DisableHealth 禁用健康检查端点。
	DisableHealth bool `json:"disable-health" mapstructure:"disable-health"`

	// DisableMetrics 禁用 metrics 中间件和端点。
	DisableMetrics bool `json:"disable-metrics" mapstructure:"disable-metrics"`

	// DisablePprof 禁用 pprof 端点（默认禁用）。
	DisablePprof bool `json:"disable-pprof" mapstructure:"disable-pprof"`

	// Recovery 配置。
	Recovery *RecoveryOptions `json:"recovery" mapstructure:"recovery"`

	// RequestID 配置。
	RequestID *RequestIDOptions `json:"request-id" mapstructure:"request-id"`

	// Logger 配置。
	Logger *LoggerOptions `json:"logger" mapstructure:"logger"`

	// CORS 配置。
	CORS *CORSOptions `json:"cors" mapstructure:"cors"`

	// Timeout 配置。
	Timeout *TimeoutOptions `json:"timeout" mapstructure:"timeout"`

	// Health 配置。
	Health *HealthOptions `json:"health" mapstructure:"health"`

	// Metrics 配置。
	Metrics *MetricsOptions `json:"metrics" mapstructure:"metrics"`

	// Pprof 配置。
	Pprof *PprofOptions `json:"pprof" mapstructure:"pprof"`
}

// Option is a function that configures Options.
type Option func(*Options)

// NewOptions creates default middleware options.
func NewOptions() *Options {
	return &Options{
		DisableCORS:    true,
		DisableTimeout: true,
		DisablePprof:   true,
		Recovery:       NewRecoveryOptions(),
		RequestID:      NewRequestIDOptions(),
		Logger:         NewLoggerOptions(),
		CORS:           NewCORSOptions(),
		Timeout:        NewTimeoutOptions(),
		Health:         NewHealthOptions(),
		Metrics:        NewMetricsOptions(),
		Pprof:          NewPprofOptions(),
	}
}

// Validate validates the middleware options.
func (o *Options) Validate() error {
	var errs []error

	// 确保所有子选项都已初始化
	o.ensureDefaults()

	// 验证启用的中间件配置
	if !o.DisableTimeout {
		errs = append(errs, o.Timeout.Validate()...)
	}
	if !o.DisableCORS {
		errs = append(errs, o.CORS.Validate()...)
	}
	if !o.DisableHealth {
		errs = append(errs, o.Health.Validate()...)
	}
	if !o.DisableMetrics {
		errs = append(errs, o.Metrics.Validate()...)
	}
	if !o.DisablePprof {
		errs = append(errs, o.Pprof.Validate()...)
	}
	if !o.DisableRequestID {
		errs = append(errs, o.RequestID.Validate()...)
	}
	if !o.DisableRecovery {
		errs = append(errs, o.Recovery.Validate()...)
	}
	if !o.DisableLogger {
		errs = append(errs, o.Logger.Validate()...)
	}

	if len(errs) > 0 {
		return fmt.Errorf("middleware validation errors: %v", errs)
	}
	return nil
}

// Complete completes the middleware options with defaults.
func (o *Options) Complete() error {
	// 确保所有子选项都已初始化
	o.ensureDefaults()

	// 设置 Logger 默认输出
	if o.Logger.Output == nil {
		o.Logger.Output = log.Printf
	}

	// 调用各子选项的 Complete 方法
	if err := o.Recovery.Complete(); err != nil {
		return err
	}
	if err := o.RequestID.Complete(); err != nil {
		return err
	}
	if err := o.Logger.Complete(); err != nil {
		return err
	}
	if err := o.CORS.Complete(); err != nil {
		return err
	}
	if err := o.Timeout.Complete(); err != nil {
		return err
	}
	if err := o.Health.Complete(); err != nil {
		return err
	}
	if err := o.Metrics.Complete(); err != nil {
		return err
	}
	if err := o.Pprof.Complete(); err != nil {
		return err
	}
	return nil
}

// IsEnabled 检查指定的中间件是否启用。
func (o *Options) IsEnabled(name string) bool {
	switch name {
	case MiddlewareRecovery:
		return !o.DisableRecovery
	case MiddlewareRequestID:
		return !o.DisableRequestID
	case MiddlewareLogger:
		return !o.DisableLogger
	case MiddlewareCORS:
		return !o.DisableCORS
	case MiddlewareTimeout:
		return !o.DisableTimeout
	case MiddlewareHealth:
		return !o.DisableHealth
	case MiddlewareMetrics:
		return !o.DisableMetrics
	case MiddlewarePprof:
		return !o.DisablePprof
	default:
		return false
	}
}

// Enable 启用指定的中间件。
func (o *Options) Enable(names ...string) {
	o.setDisabled(names, false)
}

// Disable 禁用指定的中间件。
func (o *Options) Disable(names ...string) {
	o.setDisabled(names, true)
}

func (o *Options) setDisabled(names []string, disabled bool) {
	for _, name := range names {
		switch name {
		case MiddlewareRecovery:
			o.DisableRecovery = disabled
		case MiddlewareRequestID:
			o.DisableRequestID = disabled
		case MiddlewareLogger:
			o.DisableLogger = disabled
		case MiddlewareCORS:
			o.DisableCORS = disabled
		case MiddlewareTimeout:
			o.DisableTimeout = disabled
		case MiddlewareHealth:
			o.DisableHealth = disabled
		case MiddlewareMetrics:
			o.DisableMetrics = disabled
		case MiddlewarePprof:
			o.DisablePprof = disabled
		}
	}
}

// GetEnabledMiddlewares 返回所有启用的中间件名称列表。
func (o *Options) GetEnabledMiddlewares() []string {
	var enabled []string
	for _, name := range []string{
		MiddlewareRecovery, MiddlewareRequestID, MiddlewareLogger,
		MiddlewareCORS, MiddlewareTimeout, MiddlewareHealth,
		MiddlewareMetrics, MiddlewarePprof,
	} {
		if o.IsEnabled(name) {
			enabled = append(enabled, name)
		}
	}
	return enabled
}

// ensureDefaults ensures all sub-options are initialized.
func (o *Options) ensureDefaults() {
	if o.Recovery == nil {
		o.Recovery = NewRecoveryOptions()
	}
	if o.RequestID == nil {
		o.RequestID = NewRequestIDOptions()
	}
	if o.Logger == nil {
		o.Logger = NewLoggerOptions()
	}
	if o.CORS == nil {
		o.CORS = NewCORSOptions()
	}
	if o.Timeout == nil {
		o.Timeout = NewTimeoutOptions()
	}
	if o.Health == nil {
		o.Health = NewHealthOptions()
	}
	if o.Metrics == nil {
		o.Metrics = NewMetricsOptions()
	}
	if o.Pprof == nil {
		o.Pprof = NewPprofOptions()
	}
}

// AddFlags adds flags for middleware options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	// 确保所有子选项都已初始化
	o.ensureDefaults()

	fs.BoolVar(&o.DisableRecovery, "middleware.disable-recovery", o.DisableRecovery,
		"Disable the panic recovery middleware.")
	fs.BoolVar(&o.DisableRequestID, "middleware.disable-request-id", o.DisableRequestID,
		"Disable the request ID middleware.")
	fs.BoolVar(&o.DisableLogger, "middleware.disable-logger", o.DisableLogger,
		"Disable the access logging middleware.")
	fs.BoolVar(&o.DisableCORS, "middleware.disable-cors", o.DisableCORS,
		"Disable the CORS middleware.")
	fs.BoolVar(&o.DisableTimeout, "middleware.disable-timeout", o.DisableTimeout,
		"Disable the request timeout middleware.")
	fs.BoolVar(&o.DisableHealth, "middleware.disable-health", o.DisableHealth,
		"Disable the health check endpoints.")
	fs.BoolVar(&o.DisableMetrics, "middleware.disable-metrics", o.DisableMetrics,
		"Disable the metrics middleware and endpoint.")
	fs.BoolVar(&o.DisablePprof, "middleware.disable-pprof", o.DisablePprof,
		"Disable the pprof endpoints.")

	// 委托给各子选项的 AddFlags 方法
	o.Recovery.AddFlags(fs)
	o.RequestID.AddFlags(fs)
	o.Logger.AddFlags(fs)
	o.CORS.AddFlags(fs)
	o.Timeout.AddFlags(fs)
	o.Health.AddFlags(fs)
	o.Metrics.AddFlags(fs)
	o.Pprof.AddFlags(fs)
}

// WithRecovery configures and enables recovery middleware.
func WithRecovery(enableStackTrace bool, onPanic func(ctx transport.Context, err interface{}, stack []byte)) Option {
	return func(o *Options) {
		o.DisableRecovery = false
		o.Recovery.EnableStackTrace = enableStackTrace
		if onPanic != nil {
			o.Recovery.OnPanic = onPanic
		}
	}
}

// WithoutRecovery disables recovery middleware.
func WithoutRecovery() Option {
	return func(o *Options) { o.DisableRecovery = true }
}

// WithRequestID enables request ID middleware with custom header.
func WithRequestID(header string) Option {
	return func(o *Options) {
		o.DisableRequestID = false
		if header != "" {
			o.RequestID.Header = header
		}
	}
}

// WithoutRequestID disables request ID middleware.
func WithoutRequestID() Option {
	return func(o *Options) { o.DisableRequestID = true }
}

// WithLogger enables logger middleware.
func WithLogger(skipPaths ...string) Option {
	return func(o *Options) {
		o.DisableLogger = false
		if len(skipPaths) > 0 {
			o.Logger.SkipPaths = skipPaths
		}
	}
}

// WithoutLogger disables logger middleware.
func WithoutLogger() Option {
	return func(o *Options) { o.DisableLogger = true }
}

// WithCORS enables CORS middleware.
func WithCORS(origins ...string) Option {
	return func(o *Options) {
		o.DisableCORS = false
		if len(origins) > 0 {
			o.CORS.AllowOrigins = origins
		}
	}
}

// WithoutCORS disables CORS middleware.
func WithoutCORS() Option {
	return func(o *Options) { o.DisableCORS = true }
}

// WithHealth enables health check endpoints.
func WithHealth(path, livenessPath, readinessPath string) Option {
	return func(o *Options) {
		o.DisableHealth = false
		if path != "" {
			o.Health.Path = path
		}
		if livenessPath != "" {
			o.Health.LivenessPath = livenessPath
		}
		if readinessPath != "" {
			o.Health.ReadinessPath = readinessPath
		}
	}
}

// WithoutHealth disables health check endpoints.
func WithoutHealth() Option {
	return func(o *Options) { o.DisableHealth = true }
}

// WithMetrics enables metrics endpoint.
func WithMetrics(path, namespace, subsystem string) Option {
	return func(o *Options) {
		o.DisableMetrics = false
		if path != "" {
			o.Metrics.Path = path
		}
		if namespace != "" {
			o.Metrics.Namespace = namespace
		}
		if subsystem != "" {
			o.Metrics.Subsystem = subsystem
		}
	}
}

// WithoutMetrics disables metrics endpoint.
func WithoutMetrics() Option {
	return func(o *Options) { o.DisableMetrics = true }
}

// WithTimeoutDuration enables timeout middleware with the given budget.
func WithTimeoutDuration(timeout time.Duration, skipPaths ...string) Option {
	return func(o *Options) {
		o.DisableTimeout = false
		if timeout > 0 {
			o.Timeout.Timeout = timeout
		}
		if len(skipPaths) > 0 {
			o.Timeout.SkipPaths = skipPaths
		}
	}
}
