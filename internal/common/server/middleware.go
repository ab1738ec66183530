package server

import (
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/FindOutRent/FindOutRent/internal/common/auth"
	"github.com/FindOutRent/FindOutRent/internal/common/config"
	"github.com/FindOutRent/FindOutRent/internal/common/logger"
	"github.com/FindOutRent/FindOutRent/internal/common/middleware"
	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
)

const authContextKey = "auth_info"

// AuthInfo 从 JWT 中解析出的最小用户信息（放入请求上下文，供业务侧使用）。
type AuthInfo struct {
	Subject string // 账号 ID
	Role    string // 角色
}

// AuthFromContext 从请求上下文取出鉴权信息。
func AuthFromContext(c *gin.Context) (AuthInfo, bool) {
	v, ok := c.Get(authContextKey)
	if !ok {
		return AuthInfo{}, false
	}
	ai, ok := v.(AuthInfo)
	return ai, ok
}

// Recovery 防止 panic 直接把进程打崩，并记录栈信息。
func Recovery(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				if log != nil {
					log.Errorf("panic in http path=%s err=%v stack=%s", c.FullPath(), r, string(debug.Stack()))
				}
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "An unexpected error occurred.", "status_code": 500, "success": false,
				})
			}
		}()
		c.Next()
	}
}

// AccessLog 记录每个请求的耗时/状态码。
func AccessLog(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		cost := time.Since(start)

		if log == nil {
			return
		}
		fields := map[string]interface{}{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
			"cost":   cost.String(),
		}
		if len(c.Errors) > 0 {
			fields["error"] = c.Errors.String()
		}
		if c.Writer.Status() >= http.StatusBadRequest {
			log.WithFields(fields).Warn("http request failed")
		} else {
			log.WithFields(fields).Info("http request ok")
		}
	}
}

// Tracing 基于 OpenTracing 的最小 server 中间件：
// - 从请求头提取上游 span context
// - 创建 server span 并注入 request context，业务侧可继续打子 span
func Tracing(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tracer := opentracing.GlobalTracer()

		var parent opentracing.SpanContext
		if sc, err := tracer.Extract(opentracing.HTTPHeaders,
			opentracing.HTTPHeadersCarrier(c.Request.Header)); err == nil {
			parent = sc
		}

		operation := c.Request.Method + " " + c.FullPath()
		var span opentracing.Span
		if parent != nil {
			span = tracer.StartSpan(operation, ext.RPCServerOption(parent))
		} else {
			span = tracer.StartSpan(operation)
		}
		defer span.Finish()

		ext.SpanKindRPCServer.Set(span)
		ext.HTTPMethod.Set(span, c.Request.Method)
		ext.HTTPUrl.Set(span, c.Request.URL.Path)
		if serviceName != "" {
			span.SetTag("service", serviceName)
		}

		c.Request = c.Request.WithContext(
			opentracing.ContextWithSpan(c.Request.Context(), span))
		c.Next()

		ext.HTTPStatusCode.Set(span, uint16(c.Writer.Status()))
	}
}

// JWTAuth JWT 鉴权中间件：
// - 公开路径直接放行
// - 从 `Authorization: Bearer <token>` 读 token，只接受 access 类型
// - 校验通过后把 AuthInfo 写入请求上下文
// 失败统一返回 401，不区分邮箱还是密码错。
func JWTAuth(cfg config.AuthConfig, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.Enabled || isPublicPath(cfg.PublicPaths, c.Request.URL.Path) {
			c.Next()
			return
		}
		if strings.TrimSpace(cfg.JWTSecret) == "" {
			if log != nil {
				log.Warn("auth enabled but jwt_secret is empty")
			}
			abortUnauthorized(c)
			return
		}

		raw := strings.TrimSpace(c.GetHeader("Authorization"))
		if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
			raw = strings.TrimSpace(raw[len("bearer "):])
		}
		if raw == "" {
			abortUnauthorized(c)
			return
		}

		claims, err := auth.ParseToken(cfg, raw)
		if err != nil || claims.TokenType != auth.TokenTypeAccess {
			abortUnauthorized(c)
			return
		}

		c.Set(authContextKey, AuthInfo{
			Subject: claims.Subject,
			Role:    claims.Role,
		})
		c.Next()
	}
}

// RBAC 基于 path -> roles 的简单访问控制：
// 配置了要求角色的路径，token 角色必须命中其一；未配置的路径默认放行。
func RBAC(cfg config.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.Enabled || isPublicPath(cfg.PublicPaths, c.Request.URL.Path) {
			c.Next()
			return
		}
		required := cfg.RBAC[c.FullPath()]
		if len(required) == 0 {
			c.Next()
			return
		}
		ai, ok := AuthFromContext(c)
		if !ok {
			abortUnauthorized(c)
			return
		}
		for _, r := range required {
			if strings.EqualFold(strings.TrimSpace(r), ai.Role) {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error": "permission denied", "status_code": 403, "success": false,
		})
	}
}

// RateLimit 对指定路径按客户端 IP 限流（登录/注册这类容易被刷的入口）。
func RateLimit(limiter middleware.Limiter, paths ...string) gin.HandlerFunc {
	limited := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		limited[p] = struct{}{}
	}
	return func(c *gin.Context) {
		if _, ok := limited[c.Request.URL.Path]; !ok {
			c.Next()
			return
		}
		if !limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many requests", "status_code": 429, "success": false,
			})
			return
		}
		c.Next()
	}
}

// Breaker 用熔断器包住读路径：存储持续出错时快速失败，别让请求堆死。
func Breaker(cb *middleware.CircuitBreaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := cb.Call(c.Request.Context(), func() error {
			c.Next()
			if c.Writer.Status() >= http.StatusInternalServerError {
				return errInternalStatus
			}
			return nil
		})
		if err == errInternalStatus || err == nil {
			return
		}
		// 熔断开启：请求没有被执行
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
			"error": "service temporarily unavailable", "status_code": 503, "success": false,
		})
	}
}

var errInternalStatus = &internalStatusError{}

type internalStatusError struct{}

func (*internalStatusError) Error() string { return "internal status" }

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": "Invalid credentials", "status_code": 401, "success": false,
	})
}

// isPublicPath 精确匹配放行；条目以 * 结尾时按前缀匹配，
// 用于 /media/* 这类静态资源（浏览器 <img> 带不了 Bearer token）。
func isPublicPath(public []string, path string) bool {
	if path == "" || len(public) == 0 {
		return false
	}
	for _, p := range public {
		p = strings.TrimSpace(p)
		if strings.HasSuffix(p, "*") {
			if prefix := strings.TrimSuffix(p, "*"); prefix != "" && strings.HasPrefix(path, prefix) {
				return true
			}
			continue
		}
		if p == path {
			return true
		}
	}
	return false
}
