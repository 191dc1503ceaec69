package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/barkatlearn/learn/libs/middlewares"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerMiddleware(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		expectedLevel zapcore.Level
	}{
		{name: "ok", status: http.StatusOK, expectedLevel: zapcore.InfoLevel},
		{name: "not found", status: http.StatusNotFound, expectedLevel: zapcore.WarnLevel},
		{name: "server error", status: http.StatusInternalServerError, expectedLevel: zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			handler := middlewares.RequestIDMiddleware(LoggerMiddleware(zap.New(core))(
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(tt.status)
					w.Write([]byte("body"))
				}),
			))

			req := httptest.NewRequest(http.MethodGet, "/api/cards?limit=5", nil)
			req.Header.Set(middlewares.RequestIDHeader, "req-1")
			handler.ServeHTTP(httptest.NewRecorder(), req)

			require.Equal(t, 1, logs.Len())
			entry := logs.All()[0]
			assert.Equal(t, tt.expectedLevel, entry.Level)
			fields := entry.ContextMap()
			assert.Equal(t, "req-1", fields["request_id"])
			assert.Equal(t, "/api/cards", fields["path"])
			assert.Equal(t, "limit=5", fields["query"])
			assert.Equal(t, int64(tt.status), fields["status"])
			assert.Equal(t, int64(4), fields["bytes"])
		})
	}
}
