package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"cargo/internal/http/middleware"
)

func TestRecoveryAndLogging(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	r := gin.New()
	r.Use(middleware.Logging(logger), middleware.Recovery(logger))
	r.GET("/boom", func(*gin.Context) { panic("boom") })
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("panic: status = %d, want 500", w.Code)
	}
	if logs.FilterMessage("panic recovered").Len() != 1 {
		t.Errorf("expected one panic log entry")
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("ok: status = %d", w.Code)
	}

	reqs := logs.FilterMessage("request").All()
	if len(reqs) != 2 {
		t.Fatalf("request log entries = %d, want 2", len(reqs))
	}
	if reqs[0].Level != zap.ErrorLevel || reqs[1].Level != zap.InfoLevel {
		t.Errorf("levels = %v, %v", reqs[0].Level, reqs[1].Level)
	}
}
