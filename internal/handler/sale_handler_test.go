package handler_test

import (
	"net/http"
	"strings"
	"testing"

	"salesdesk/internal/model"
	"salesdesk/internal/service"
	"salesdesk/pkg/pagination"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type actors struct {
	admin, agent, otherAgent, controller string
}

func setupActors(t *testing.T, app *testApp) actors {
	t.Helper()
	admin := app.login("admin", adminPassword)
	return actors{
		admin:      admin,
		agent:      app.createUser(admin, "awa", "Awa Ndiaye", model.RoleAgent),
		otherAgent: app.createUser(admin, "moussa", "Moussa Sow", model.RoleAgent),
		controller: app.createUser(admin, "fatou", "Fatou Diallo", model.RoleController),
	}
}

func catalogIDs(t *testing.T, app *testApp, token string) map[string]string {
	t.Helper()
	var products []model.Product
	app.call(http.MethodGet, "/api/products", token, nil, http.StatusOK, &products)
	require.Len(t, products, len(model.DefaultCatalog()))

	ids := make(map[string]string, len(products))
	for _, p := range products {
		ids[p.Label()] = p.ID.String()
	}
	return ids
}

func saleRequest(matricule string, productIDs ...string) service.CreateSaleRequest {
	req := service.CreateSaleRequest{Buyer: service.BuyerRequest{
		LastName: "Diop", FirstName: "Amadou", Matricule: matricule, Grade: string(model.GradeOfficier),
	}}
	for _, id := range productIDs {
		req.Items = append(req.Items, service.SaleLineRequest{ProductID: id, Quantity: 1})
	}
	return req
}

func TestSaleLifecycle(t *testing.T) {
	app := newTestApp(t)
	who := setupActors(t, app)
	ids := catalogIDs(t, app, who.agent)

	var created service.SaleResponse
	app.call(http.MethodPost, "/api/sales", who.agent,
		saleRequest("MAT-001", ids["Riz 50 KG"], ids["Riz 25 KG"]), http.StatusCreated, &created)
	assert.Equal(t, int64(24750), created.TotalAmount)
	assert.Equal(t, string(model.SaleStatusPending), created.Status)
	assert.Regexp(t, `^REC-\d{8}-\d{6}$`, created.ReceiptNumber)
	assert.Len(t, created.Items, 2)

	var pending []service.SaleResponse
	app.call(http.MethodGet, "/api/sales/pending?matricule=MAT-001", who.controller, nil, http.StatusOK, &pending)
	require.Len(t, pending, 1)
	assert.Equal(t, created.ReceiptNumber, pending[0].ReceiptNumber)

	var validated service.SaleResponse
	app.call(http.MethodPost, "/api/sales/"+created.ReceiptNumber+"/validate", who.controller, nil, http.StatusOK, &validated)
	assert.Equal(t, string(model.SaleStatusValidated), validated.Status)
	require.NotNil(t, validated.ValidatedAt)
	assert.Equal(t, "Fatou Diallo", validated.ValidatorName)

	env := app.call(http.MethodPost, "/api/sales/"+created.ReceiptNumber+"/validate", who.controller, nil, http.StatusConflict, nil)
	assert.Equal(t, "already_processed", env.Code)

	// second sale is withdrawn by its agent and must not move the figures
	var second service.SaleResponse
	app.call(http.MethodPost, "/api/sales", who.agent, saleRequest("MAT-002", ids["Mil 50 KG"]), http.StatusCreated, &second)

	var cancelled service.SaleResponse
	app.call(http.MethodPost, "/api/sales/"+second.ReceiptNumber+"/cancel", who.agent,
		service.CancelSaleRequest{Reason: string(model.ReasonStockUnavailable)}, http.StatusOK, &cancelled)
	assert.Equal(t, string(model.SaleStatusCancelled), cancelled.Status)
	require.NotNil(t, cancelled.CancellationReason)
	assert.Equal(t, string(model.ReasonStockUnavailable), *cancelled.CancellationReason)

	env = app.call(http.MethodPost, "/api/sales/"+created.ReceiptNumber+"/cancel", who.agent,
		service.CancelSaleRequest{Reason: string(model.ReasonOther)}, http.StatusConflict, nil)
	assert.Equal(t, "invalid_state", env.Code)

	var stats model.DashboardStats
	app.call(http.MethodGet, "/api/stats", who.admin, nil, http.StatusOK, &stats)
	assert.Equal(t, int64(1), stats.TotalSales)
	assert.Equal(t, int64(24750), stats.TotalRevenue)
	assert.Equal(t, int64(1), stats.ValidatedCount)
	assert.Equal(t, int64(1), stats.CancelledCount)
	assert.True(t, decimal.NewFromInt(24750).Equal(stats.AverageBasket), stats.AverageBasket.String())
	require.Len(t, stats.ByDay, 1)
	assert.Equal(t, int64(24750), stats.ByDay[0].Revenue)

	var mine []service.SaleResponse
	app.call(http.MethodGet, "/api/sales/mine", who.agent, nil, http.StatusOK, &mine)
	assert.Len(t, mine, 2)

	var audit struct {
		Items      []model.AuditLog `json:"items"`
		Pagination pagination.Meta  `json:"pagination"`
	}
	app.call(http.MethodGet, "/api/audit-logs", who.admin, nil, http.StatusOK, &audit)
	actions := make(map[string]int)
	for _, entry := range audit.Items {
		actions[entry.Action]++
	}
	assert.Equal(t, 2, actions[model.ActionCreateSale])
	assert.Equal(t, 1, actions[model.ActionValidateSale])
	assert.Equal(t, 1, actions[model.ActionCancelSale])

	var history struct {
		Items []service.AuditLogResponse `json:"items"`
	}
	app.call(http.MethodGet, "/api/audit-logs?entity_id="+created.ReceiptNumber, who.admin, nil, http.StatusOK, &history)
	require.Len(t, history.Items, 2)
	assert.Equal(t, model.ActionValidateSale, history.Items[0].Action)
	assert.Equal(t, "fatou", history.Items[0].Username)
}

func TestCreateSale_Rejections(t *testing.T) {
	app := newTestApp(t)
	who := setupActors(t, app)
	ids := catalogIDs(t, app, who.agent)

	tests := []struct {
		name   string
		req    service.CreateSaleRequest
		status int
		code   string
	}{
		{
			name:   "empty selection",
			req:    saleRequest("MAT-001"),
			status: http.StatusUnprocessableEntity,
			code:   "empty_selection",
		},
		{
			name: "unknown grade",
			req: func() service.CreateSaleRequest {
				r := saleRequest("MAT-001", ids["Riz 50 KG"])
				r.Buyer.Grade = "Colonel"
				return r
			}(),
			status: http.StatusBadRequest,
			code:   "invalid_payload",
		},
		{
			name:   "unknown product",
			req:    saleRequest("MAT-001", "00000000-0000-0000-0000-000000000001"),
			status: http.StatusUnprocessableEntity,
			code:   "unknown_product",
		},
		{
			name: "over the per-product cap",
			req: func() service.CreateSaleRequest {
				r := saleRequest("MAT-001", ids["Riz 50 KG"])
				r.Items[0].Quantity = 2
				return r
			}(),
			status: http.StatusUnprocessableEntity,
			code:   "quantity_cap",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := app.call(http.MethodPost, "/api/sales", who.agent, tc.req, tc.status, nil)
			assert.Equal(t, tc.code, env.Code)
		})
	}

	var page struct {
		Items      []service.SaleResponse `json:"items"`
		Pagination pagination.Meta        `json:"pagination"`
	}
	app.call(http.MethodGet, "/api/sales", who.admin, nil, http.StatusOK, &page)
	assert.Empty(t, page.Items)
	assert.Equal(t, int64(0), page.Pagination.Total)
}

func TestSaleRoutes_RoleChecks(t *testing.T) {
	app := newTestApp(t)
	who := setupActors(t, app)
	ids := catalogIDs(t, app, who.agent)

	var sale service.SaleResponse
	app.call(http.MethodPost, "/api/sales", who.agent, saleRequest("MAT-001", ids["Riz 50 KG"]), http.StatusCreated, &sale)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   interface{}
		status int
	}{
		{"anonymous create", http.MethodPost, "/api/sales", "", saleRequest("MAT-001", ids["Riz 50 KG"]), http.StatusUnauthorized},
		{"controller cannot create", http.MethodPost, "/api/sales", who.controller, saleRequest("MAT-001", ids["Riz 50 KG"]), http.StatusForbidden},
		{"agent cannot validate", http.MethodPost, "/api/sales/" + sale.ReceiptNumber + "/validate", who.agent, nil, http.StatusForbidden},
		{"admin cannot validate", http.MethodPost, "/api/sales/" + sale.ReceiptNumber + "/validate", who.admin, nil, http.StatusForbidden},
		{"agent cannot list all", http.MethodGet, "/api/sales", who.agent, nil, http.StatusForbidden},
		{"controller cannot read stats", http.MethodGet, "/api/stats", who.controller, nil, http.StatusForbidden},
		{"agent cannot export", http.MethodGet, "/api/sales/export.csv", who.agent, nil, http.StatusForbidden},
		{"other agent cannot see the sale", http.MethodGet, "/api/sales/" + sale.ReceiptNumber, who.otherAgent, nil, http.StatusNotFound},
		{"other agent cannot cancel", http.MethodPost, "/api/sales/" + sale.ReceiptNumber + "/cancel", who.otherAgent,
			service.CancelSaleRequest{Reason: string(model.ReasonOther)}, http.StatusNotFound},
		{"agent cannot create users", http.MethodPost, "/api/users", who.agent,
			service.CreateUserRequest{Username: "x", Password: "password1", Name: "X", Role: model.RoleAgent}, http.StatusForbidden},
		{"controller reads the sale", http.MethodGet, "/api/sales/" + sale.ReceiptNumber, who.controller, nil, http.StatusOK},
		{"unknown receipt", http.MethodGet, "/api/sales/REC-19990101-000001", who.controller, nil, http.StatusNotFound},
		{"pending lookup needs a matricule", http.MethodGet, "/api/sales/pending", who.controller, nil, http.StatusBadRequest},
		{"bad status filter", http.MethodGet, "/api/sales?status=archived", who.admin, nil, http.StatusBadRequest},
		{"bad agent filter", http.MethodGet, "/api/sales?agent_id=not-a-uuid", who.admin, nil, http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := app.do(tc.method, tc.path, tc.token, tc.body)
			assert.Equal(t, tc.status, w.Code, w.Body.String())
		})
	}
}

func TestCancelSale_InvalidReason(t *testing.T) {
	app := newTestApp(t)
	who := setupActors(t, app)
	ids := catalogIDs(t, app, who.agent)

	var sale service.SaleResponse
	app.call(http.MethodPost, "/api/sales", who.agent, saleRequest("MAT-001", ids["Riz 50 KG"]), http.StatusCreated, &sale)

	for _, reason := range []string{"changed_mind", ""} {
		env := app.call(http.MethodPost, "/api/sales/"+sale.ReceiptNumber+"/cancel", who.agent,
			service.CancelSaleRequest{Reason: reason}, http.StatusBadRequest, nil)
		assert.Equal(t, "invalid_reason", env.Code, "reason %q", reason)
	}

	var still service.SaleResponse
	app.call(http.MethodGet, "/api/sales/"+sale.ReceiptNumber, who.agent, nil, http.StatusOK, &still)
	assert.Equal(t, string(model.SaleStatusPending), still.Status)
}

func TestSaleDocuments(t *testing.T) {
	app := newTestApp(t)
	who := setupActors(t, app)
	ids := catalogIDs(t, app, who.agent)

	var sale service.SaleResponse
	app.call(http.MethodPost, "/api/sales", who.agent, saleRequest("MAT-001", ids["Riz 50 KG"], ids["Riz 25 KG"]), http.StatusCreated, &sale)

	t.Run("receipt pdf", func(t *testing.T) {
		w := app.do(http.MethodGet, "/api/sales/"+sale.ReceiptNumber+"/receipt.pdf", who.agent, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
		assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF"))
		assert.Contains(t, w.Header().Get("Content-Disposition"), sale.ReceiptNumber)
	})

	t.Run("csv export", func(t *testing.T) {
		w := app.do(http.MethodGet, "/api/sales/export.csv", who.admin, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")

		body := w.Body.String()
		require.True(t, strings.HasPrefix(body, "\ufeff"), "missing BOM")
		lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(body, "\ufeff")), "\n")
		require.Len(t, lines, 2)
		assert.True(t, strings.HasPrefix(lines[0], "N° Reçu,"))
		assert.Contains(t, lines[1], sale.ReceiptNumber)
		assert.Contains(t, lines[1], "En attente")
	})
}
