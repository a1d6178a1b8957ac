package logging

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestGinLogrusRecoveryRepanicsErrAbortHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	engine := gin.New()
	engine.Use(GinLogrusRecovery())
	engine.GET("/abort", func(c *gin.Context) {
		panic(http.ErrAbortHandler)
	})

	req := httptest.NewRequest(http.MethodGet, "/abort", nil)
	recorder := httptest.NewRecorder()

	defer func() {
		recovered := recover()
		if recovered == nil {
			t.Fatalf("expected panic, got nil")
		}
		err, ok := recovered.(error)
		if !ok {
			t.Fatalf("expected error panic, got %T", recovered)
		}
		if !errors.Is(err, http.ErrAbortHandler) {
			t.Fatalf("expected ErrAbortHandler, got %v", err)
		}
	}()

	engine.ServeHTTP(recorder, req)
}

func TestGinLogrusRecoveryCallsOnPanic(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var got any
	engine := gin.New()
	engine.Use(GinLogrusRecovery(func(c *gin.Context, recovered any) {
		got = recovered
		c.String(http.StatusInternalServerError, "handled")
	}))
	engine.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	recorder := httptest.NewRecorder()
	engine.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/panic", nil))
	if recorder.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", recorder.Code)
	}
	if got != "boom" {
		t.Fatalf("onPanic received %v", got)
	}
	if recorder.Body.String() != "handled" {
		t.Fatalf("body = %q", recorder.Body.String())
	}
}

func TestGinLogrusRecoveryHandlesRegularPanic(t *testing.T) {
	gin.SetMode(gin.TestMode)

	engine := gin.New()
	engine.Use(GinLogrusRecovery())
	engine.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	recorder := httptest.NewRecorder()
	engine.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/panic", nil))
	if recorder.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", recorder.Code)
	}
}

func TestGinLogrusLoggerMasksKeyAndTagsAttempt(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hook := test.NewGlobal()
	t.Cleanup(hook.Reset)

	engine := gin.New()
	engine.Use(GinLogrusLogger())
	engine.GET("/auth", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/auth?key=ABCDEFGHIJKLMNOP&openid.mode=id_res", nil)
	req = req.WithContext(WithAttemptID(context.Background(), "a1b2c3d4"))
	engine.ServeHTTP(httptest.NewRecorder(), req)

	var entry *log.Entry
	for _, e := range hook.AllEntries() {
		if strings.Contains(e.Message, "/auth") {
			entry = e
		}
	}
	if entry == nil {
		t.Fatal("no access log line recorded")
	}
	if strings.Contains(entry.Message, "ABCDEFGHIJKLMNOP") {
		t.Fatalf("key leaked into log line: %s", entry.Message)
	}
	if entry.Data[AttemptIDField] != "a1b2c3d4" {
		t.Fatalf("attempt id field = %v", entry.Data[AttemptIDField])
	}
	if entry.Level != log.InfoLevel {
		t.Fatalf("level = %s", entry.Level)
	}
}
