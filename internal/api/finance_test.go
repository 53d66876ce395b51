package api_test

import (
	"fmt"
	"net/http"
	"testing"

	"oficina/internal/api"
	"oficina/internal/domain"
	"oficina/internal/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryInUseCannotBeDeleted(t *testing.T) {
	e := newEnv(t)
	w := e.do(http.MethodPost, "/categorias", api.CategoryRequest{Name: "Peças", Kind: domain.KindExpense}, e.admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	category := decode[domain.Category](t, w)

	w = e.do(http.MethodPost, "/transacoes", api.TransactionRequest{Kind: domain.KindExpense, Amount: dec("300"), CategoryID: category.ID, Date: "2026-10-01"}, e.admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	tx := decode[domain.Transaction](t, w)
	assert.Equal(t, e.admin.ID, tx.UserID)

	path := fmt.Sprintf("/categorias/%d", category.ID)
	w = e.do(http.MethodDelete, path, nil, e.admin)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, int64(1), count(t, e.db, &domain.Category{}, "id = ?", category.ID))

	w = e.do(http.MethodPut, path, api.CategoryRequest{Name: "Peças", Kind: domain.KindIncome}, e.admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodDelete, fmt.Sprintf("/transacoes/%d", tx.ID), nil, e.admin)
	require.Equal(t, http.StatusNoContent, w.Code)
	w = e.do(http.MethodDelete, path, nil, e.admin)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, int64(0), count(t, e.db, &domain.Category{}, "id = ?", category.ID))
}

func TestTransactionValidation(t *testing.T) {
	e := newEnv(t)
	category := domain.Category{Name: "Serviços", Kind: domain.KindIncome}
	require.NoError(t, e.db.Create(&category).Error)

	tests := []struct {
		name string
		req  api.TransactionRequest
	}{
		{"kind mismatch", api.TransactionRequest{Kind: domain.KindExpense, Amount: dec("10"), CategoryID: category.ID}},
		{"zero amount", api.TransactionRequest{Kind: domain.KindIncome, Amount: dec("0"), CategoryID: category.ID}},
		{"negative amount", api.TransactionRequest{Kind: domain.KindIncome, Amount: dec("-5"), CategoryID: category.ID}},
		{"unknown kind", api.TransactionRequest{Kind: "outro", Amount: dec("10"), CategoryID: category.ID}},
		{"missing category", api.TransactionRequest{Kind: domain.KindIncome, Amount: dec("10"), CategoryID: 999}},
		{"bad date", api.TransactionRequest{Kind: domain.KindIncome, Amount: dec("10"), CategoryID: category.ID, Date: "01/10/2026"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := e.do(http.MethodPost, "/transacoes", tt.req, e.admin)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
	assert.Equal(t, int64(0), count(t, e.db, &domain.Transaction{}, ""))
}

func TestFinancialReportCache(t *testing.T) {
	e := newEnv(t)
	income := domain.Category{Name: "Serviços", Kind: domain.KindIncome}
	expense := domain.Category{Name: "Aluguel", Kind: domain.KindExpense}
	require.NoError(t, e.db.Create(&income).Error)
	require.NoError(t, e.db.Create(&expense).Error)

	w := e.do(http.MethodPost, "/transacoes", api.TransactionRequest{Kind: domain.KindIncome, Amount: dec("500"), CategoryID: income.ID}, e.admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = e.do(http.MethodGet, "/relatorios/financeiro", nil, e.admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	first := decode[report.Financial](t, w)
	assert.True(t, dec("500").Equal(first.Income))
	assert.True(t, first.Expense.IsZero())

	w = e.do(http.MethodGet, "/relatorios/financeiro", nil, e.admin)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))

	w = e.do(http.MethodPost, "/transacoes", api.TransactionRequest{Kind: domain.KindExpense, Amount: dec("120.50"), CategoryID: expense.ID}, e.admin)
	require.Equal(t, http.StatusCreated, w.Code)

	w = e.do(http.MethodGet, "/relatorios/financeiro", nil, e.admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	second := decode[report.Financial](t, w)
	assert.True(t, dec("120.5").Equal(second.Expense))
	assert.True(t, dec("379.5").Equal(second.Balance))
	assert.Len(t, second.ByCategory, 2)
}

func TestReportAccess(t *testing.T) {
	e := newEnv(t)
	orderFor(t, e.db, e.profile, "DSH1M22")

	for _, path := range []string{"/relatorios/financeiro", "/relatorios/funcionarios", "/relatorios/servicos"} {
		w := e.do(http.MethodGet, path, nil, e.employee)
		assert.Equal(t, http.StatusForbidden, w.Code, path)
		w = e.do(http.MethodGet, path, nil, e.admin)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	w := e.do(http.MethodGet, "/dashboard", nil, e.employee)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	dash := decode[report.Dashboard](t, w)
	assert.Equal(t, int64(1), dash.OpenOrders)
	assert.Equal(t, int64(1), dash.Clients)
	assert.Equal(t, int64(1), dash.Vehicles)

	w = e.do(http.MethodGet, "/relatorios/financeiro?inicio=ontem", nil, e.admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
