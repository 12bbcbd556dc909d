package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"salesdesk/internal/database"
	"salesdesk/internal/handler"
	"salesdesk/internal/middleware"
	"salesdesk/internal/repository"
	"salesdesk/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const adminPassword = "admin-secret"

type testApp struct {
	t      *testing.T
	router *gin.Engine
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := database.NewConnection(database.DriverSQLite, dsn, false)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	require.NoError(t, database.Seed(db, adminPassword))

	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	statsRepo := repository.NewStatisticsRepository(db)
	txManager := repository.NewTransactionManager(db)

	auth := middleware.NewAuthenticator("handler-test-secret", time.Hour, false)
	saleService := service.NewSaleService(saleRepo, productRepo, auditRepo, txManager,
		service.NewReceiptGenerator(time.UTC),
		service.WithLinePolicy(service.LinePolicy{MaxQuantityPerProduct: 1}),
	)

	handlers := handler.Handlers{
		User:       handler.NewUserHandler(service.NewUserService(userRepo, auditRepo, txManager, auth), auth),
		Product:    handler.NewProductHandler(service.NewProductService(productRepo), auth),
		Sale:       handler.NewSaleHandler(saleService, auth, time.UTC),
		Statistics: handler.NewStatisticsHandler(service.NewStatisticsService(statsRepo, time.UTC), auth),
		Audit:      handler.NewAuditHandler(service.NewAuditService(auditRepo), auth),
	}

	router := gin.New()
	require.NoError(t, router.SetTrustedProxies(nil))
	router.Use(middleware.RequestID(), middleware.Recovery(), middleware.ErrorHandler())
	handlers.RegisterRoutes(router.Group(""))

	return &testApp{t: t, router: router}
}

// envelope mirrors response.Response with a raw data payload.
type envelope struct {
	Status     string          `json:"status"`
	StatusCode int             `json:"status_code"`
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error"`
	Code       string          `json:"code"`
}

func (a *testApp) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

// call performs the request, checks the status and decodes data into out.
func (a *testApp) call(method, path, token string, body interface{}, wantStatus int, out interface{}) envelope {
	a.t.Helper()
	w := a.do(method, path, token, body)
	require.Equal(a.t, wantStatus, w.Code, w.Body.String())

	var env envelope
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env))
	if out != nil {
		require.NoError(a.t, json.Unmarshal(env.Data, out))
	}
	return env
}

func (a *testApp) login(username, password string) string {
	a.t.Helper()
	var tok service.TokenResponse
	a.call(http.MethodPost, "/api/auth/login", "", service.LoginUserRequest{Username: username, Password: password}, http.StatusOK, &tok)
	require.NotEmpty(a.t, tok.Token)
	return tok.Token
}

func (a *testApp) createUser(adminToken, username, name, role string) string {
	a.t.Helper()
	a.call(http.MethodPost, "/api/users", adminToken, service.CreateUserRequest{
		Username: username, Password: "password1", Name: name, Role: role,
	}, http.StatusCreated, nil)
	return a.login(username, "password1")
}
