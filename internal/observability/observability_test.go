package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestCorrelationHeaders(t *testing.T) {
	assert.Empty(t, CorrelationHeaders(context.Background(), ""))
	assert.Equal(t, map[string]string{"x-request-id": "r1"}, CorrelationHeaders(context.Background(), "r1"))

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	}))

	assert.Equal(t, map[string]string{
		"x-request-id": "r2",
		"trace_id":     "4bf92f3577b34da6a3ce929d0e0e4736",
	}, CorrelationHeaders(ctx, "r2"))
}

func TestSplitFullMethod(t *testing.T) {
	service, method := splitFullMethod("/auth.AuthService/ValidateToken")
	assert.Equal(t, "auth.AuthService", service)
	assert.Equal(t, "ValidateToken", method)

	service, method = splitFullMethod("bogus")
	assert.Equal(t, "unknown", service)
	assert.Equal(t, "unknown", method)
}

func TestMetricsEndpointExposesHTTPCounters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(HTTPMetricsMiddleware())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", MetricsHandler())

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `skillswap_http_requests_total{method="GET",route="/ping",status="204"}`))
}
