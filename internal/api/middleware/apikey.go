package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/fortiban/fortiban/internal/auth"
	"github.com/fortiban/fortiban/internal/metrics"
	"github.com/fortiban/fortiban/internal/util"
)

const (
	// APIKeyHeader carries the principal key on protected routes.
	APIKeyHeader = "api-key"
	// PrincipalKey is the context key holding the admitted username.
	PrincipalKey = "principal"
)

var (
	deniedBody = gin.H{"result": "failed", "message": "api-key is not valid here"}
	faultBody  = gin.H{"result": "failed", "message": "Something went wrong, exiting..."}
)

// APIKeyAuth admits a request when a registry principal accepts its api-key
// header or its source address for the requested path. Denials and evaluation
// faults both answer 401; only the audit log tells them apart.
func APIKeyAuth(reg *auth.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(APIKeyHeader)
		addr := c.RemoteIP()
		route := c.Request.URL.Path

		entry := GetRequestLogger(c).WithFields(logrus.Fields{
			"path":          SanitizePath(route),
			"remote_ip":     addr,
			"forwarded_for": util.Truncate(util.SanitizeForLog(c.GetHeader("X-Forwarded-For")), 200),
		})

		p, method, ok, err := evaluate(reg, key, addr, route)
		if err != nil {
			metrics.IncAuthDecision(metrics.OutcomeError)
			entry.WithError(err).WithField("user", "unknown").Warn("api auth evaluation failed")
			c.AbortWithStatusJSON(http.StatusUnauthorized, faultBody)
			return
		}
		if !ok {
			metrics.IncAuthDecision(metrics.OutcomeDenied)
			entry.WithField("user", "unknown").Warn("api auth failed")
			c.AbortWithStatusJSON(http.StatusUnauthorized, deniedBody)
			return
		}

		outcome := metrics.OutcomeAdmitKey
		if method == auth.MethodWhitelist {
			outcome = metrics.OutcomeAdmitWhitelist
		}
		metrics.IncAuthDecision(outcome)
		entry.WithFields(logrus.Fields{"user": p.Username, "method": string(method)}).Info("api auth passed")

		c.Set(PrincipalKey, p.Username)
		c.Next()
	}
}

// evaluate turns a panic during matching into an error so it is reported as
// an evaluation fault rather than a 500.
func evaluate(reg *auth.Registry, key, addr, route string) (p auth.Principal, method auth.Method, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("evaluate credentials: %v", r)
		}
	}()
	return reg.Match(key, addr, route)
}

// Principal returns the username admitted by APIKeyAuth, or "unknown".
func Principal(c *gin.Context) string {
	if v := c.GetString(PrincipalKey); v != "" {
		return v
	}
	return "unknown"
}
