package handler_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/xxxsen/common/webapi"

	"github.com/xxxsen/imtahan-notifier/internal/handler"
	"github.com/xxxsen/imtahan-notifier/internal/middleware"
	"github.com/xxxsen/imtahan-notifier/internal/model"
	"github.com/xxxsen/imtahan-notifier/internal/repo"
	"github.com/xxxsen/imtahan-notifier/internal/service"
	"github.com/xxxsen/imtahan-notifier/internal/store"
)

func setupRouter(t *testing.T, rateLimit time.Duration) (http.Handler, *store.Memory) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mem := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, mem.Create(ctx, model.ProfilePath("with-token"), map[string]interface{}{
		model.FieldDeviceToken: "tok-1",
	}))
	require.NoError(t, mem.Create(ctx, model.ProfilePath("no-token"), map[string]interface{}{
		"display_name": "Leyla",
	}))

	enqueue := service.NewEnqueueService(repo.NewOutboxRepo(mem), repo.NewProfileRepo(mem))
	deps := handler.RouterDeps{
		Notifications: handler.NewNotificationHandler(enqueue),
		RateLimit:     rateLimit,
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		"",
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(),
		),
	)
	require.NoError(t, err)
	return engine, mem
}

func doRequest(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}
