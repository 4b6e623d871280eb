package middleware

import (
	"github.com/gin-gonic/gin"
)

// Factory 根据纯配置创建 gin 中间件处理函数。
// 每个内置中间件在 pkg/infra/middleware 中提供一个工厂实现，
// 并通过 RegisterFactory 注册到全局注册器。
type Factory interface {
	// Name 返回工厂对应的中间件名称（见 Middleware* 常量）。
	Name() string

	// NeedsRuntime 表示该中间件是否需要运行时依赖（如限流器、
	// 认证器），无法仅凭可序列化配置创建。
	NeedsRuntime() bool

	// Create 根据配置创建中间件处理函数。
	Create(cfg MiddlewareConfig) (gin.HandlerFunc, error)
}

// RouteRegistrar 注册中间件的独立路由端点（health、metrics、pprof、version）。
type RouteRegistrar interface {
	RegisterRoutes(engine *gin.Engine, cfg MiddlewareConfig) error
}

// GetConfig 按名称返回 Options 中的子配置。
func (o *Options) GetConfig(name string) (MiddlewareConfig, bool) {
	o.ensureDefaults()
	switch name {
	case MiddlewareRecovery:
		return o.Recovery, true
	case MiddlewareRequestID:
		return o.RequestID, true
	case MiddlewareLogger:
		return o.Logger, true
	case MiddlewareCORS:
		return o.CORS, true
	case MiddlewareTimeout:
		return o.Timeout, true
	case MiddlewareHealth:
		return o.Health, true
	case MiddlewareMetrics:
		return o.Metrics, true
	case MiddlewarePprof:
		return o.Pprof, true
	default:
		return nil, false
	}
}

// SetConfig 按名称替换 Options 中的子配置。未知名称或类型不匹配时忽略。
func (o *Options) SetConfig(name string, cfg MiddlewareConfig) {
	switch name {
	case MiddlewareRecovery:
		if v, ok := cfg.(*RecoveryOptions); ok {
			o.Recovery = v
		}
	case MiddlewareRequestID:
		if v, ok := cfg.(*RequestIDOptions); ok {
			o.RequestID = v
		}
	case MiddlewareLogger:
		if v, ok := cfg.(*LoggerOptions); ok {
			o.Logger = v
		}
	case MiddlewareCORS:
		if v, ok := cfg.(*CORSOptions); ok {
			o.CORS = v
		}
	case MiddlewareTimeout:
		if v, ok := cfg.(*TimeoutOptions); ok {
			o.Timeout = v
		}
	case MiddlewareHealth:
		if v, ok := cfg.(*HealthOptions); ok {
			o.Health = v
		}
	case MiddlewareMetrics:
		if v, ok := cfg.(*MetricsOptions); ok {
			o.Metrics = v
		}
	case MiddlewarePprof:
		if v, ok := cfg.(*PprofOptions); ok {
			o.Pprof = v
		}
	}
}

// ListConfigs 返回 Options 持有子配置的中间件名称列表。
func (o *Options) ListConfigs() []string {
	return []string{
		MiddlewareRecovery, MiddlewareRequestID, MiddlewareLogger,
		MiddlewareCORS, MiddlewareTimeout, MiddlewareHealth,
		MiddlewareMetrics, MiddlewarePprof,
	}
}

// GetConfigTyped 按名称返回指定类型的子配置。
// 类型不匹配或名称未知时返回 (zero, false)。
func GetConfigTyped[T MiddlewareConfig](o *Options, name string) (T, bool) {
	var zero T
	cfg, ok := o.GetConfig(name)
	if !ok {
		return zero, false
	}
	typed, ok := cfg.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}
