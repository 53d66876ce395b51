package api_test

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"oficina/internal/api"
	"oficina/internal/domain"
	"oficina/internal/testutil"
	"oficina/internal/utils"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type itemResponse struct {
	Item  domain.OrderItem `json:"item"`
	Total decimal.Decimal  `json:"valor_total"`
}

func TestCreateOrderChecksReferences(t *testing.T) {
	e := newEnv(t)
	vehicle := domain.Vehicle{ClientID: e.profile.ID, Plate: "ORD1A11", Make: "Ford", Model: "Ka"}
	require.NoError(t, e.db.Create(&vehicle).Error)
	other := domain.Client{Name: "Outro"}
	require.NoError(t, e.db.Create(&other).Error)

	req := api.OrderRequest{ClientID: other.ID, VehicleID: vehicle.ID, Problem: "Freio"}
	w := e.do(http.MethodPost, "/ordens-servico", req, e.employee)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"veículo não pertence ao cliente informado"}, decode[errorBody](t, w).Errors)

	req.ClientID = e.profile.ID
	req.EmployeeID = &e.customer.ID
	w = e.do(http.MethodPost, "/ordens-servico", req, e.employee)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req.EmployeeID = &e.employee.ID
	w = e.do(http.MethodPost, "/ordens-servico", req, e.employee)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	order := decode[domain.ServiceOrder](t, w)
	assert.Equal(t, domain.StatusOpen, order.Status)
	assert.True(t, order.Total.IsZero())
	assert.Equal(t, int64(1), count(t, e.db, &domain.HistoryRecord{}, "entity = ? AND entity_id = ?", "ordem_servico", order.ID))
}

func TestMistypedFieldsReportedWithOtherViolations(t *testing.T) {
	e := newEnv(t)

	body := []byte(`{"cliente_id":"abc","veiculo_id":0,"descricao_problema":""}`)
	w := e.do(http.MethodPost, "/ordens-servico", body, e.employee)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{
		"cliente_id possui tipo inválido",
		"veiculo_id é obrigatório",
		"descricao_problema é obrigatória",
	}, decode[errorBody](t, w).Errors)

	body = []byte(`{"tipo":"entrada","valor":"abc"}`)
	w = e.do(http.MethodPost, "/transacoes", body, e.admin)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"valor possui tipo inválido", "categoria_id é obrigatório"}, decode[errorBody](t, w).Errors)

	w = e.do(http.MethodPost, "/ordens-servico", []byte(`{"cliente_id":`), e.employee)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"corpo JSON inválido"}, decode[errorBody](t, w).Errors)
	assert.Equal(t, int64(0), count(t, e.db, &domain.ServiceOrder{}, ""))
}

func TestItemsKeepTotal(t *testing.T) {
	e := newEnv(t)
	order := orderFor(t, e.db, e.profile, "ITM1B22")
	svc := domain.Service{Name: "Troca de óleo", Price: dec("80.00"), Active: true}
	require.NoError(t, e.db.Create(&svc).Error)
	base := fmt.Sprintf("/ordens-servico/%d/itens", order.ID)

	w := e.do(http.MethodPost, base, api.ItemRequest{ServiceID: &svc.ID, Quantity: dec("1")}, e.employee)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	first := decode[itemResponse](t, w)
	assert.Equal(t, "Troca de óleo", first.Item.Description)
	assert.True(t, dec("80").Equal(first.Total))

	price := dec("25.50")
	w = e.do(http.MethodPost, base, api.ItemRequest{Description: "Filtro", Quantity: dec("2"), UnitPrice: &price}, e.employee)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	second := decode[itemResponse](t, w)
	assert.True(t, dec("131").Equal(second.Total), second.Total.String())

	w = e.do(http.MethodPut, fmt.Sprintf("%s/%d", base, second.Item.ID), api.ItemRequest{Description: "Filtro", Quantity: dec("1"), UnitPrice: &price}, e.employee)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, dec("105.5").Equal(decode[itemResponse](t, w).Total))

	w = e.do(http.MethodDelete, fmt.Sprintf("%s/%d", base, first.Item.ID), nil, e.employee)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, dec("25.5").Equal(decode[itemResponse](t, w).Total))

	var stored domain.ServiceOrder
	require.NoError(t, e.db.First(&stored, order.ID).Error)
	assert.True(t, dec("25.5").Equal(stored.Total))
}

func TestItemValidation(t *testing.T) {
	e := newEnv(t)
	order := orderFor(t, e.db, e.profile, "ITM2C33")
	base := fmt.Sprintf("/ordens-servico/%d/itens", order.ID)

	w := e.do(http.MethodPost, base, api.ItemRequest{Description: "Mão de obra", Quantity: decimal.Zero}, e.employee)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[errorBody](t, w).Errors, "quantidade deve ser maior que zero")

	missing := uint(999)
	w = e.do(http.MethodPost, base, api.ItemRequest{ProductID: &missing, Quantity: dec("1")}, e.employee)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodPost, "/ordens-servico/999/itens", api.ItemRequest{Description: "X", Quantity: dec("1")}, e.employee)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, int64(0), count(t, e.db, &domain.OrderItem{}, ""))
}

func TestStatusUpdateScenario(t *testing.T) {
	e := newEnv(t)
	order := orderFor(t, e.db, e.profile, "STA3D44")
	path := fmt.Sprintf("/ordens-servico/%d/atualizacoes", order.ID)

	w := e.do(http.MethodPost, path, api.OrderUpdateRequest{Type: "Status", Description: "Serviço finalizado", NewStatus: "Concluída"}, e.employee)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "Concluída", decode[struct {
		Status string `json:"status"`
	}](t, w).Status)

	var stored domain.ServiceOrder
	require.NoError(t, e.db.First(&stored, order.ID).Error)
	assert.Equal(t, "Concluída", stored.Status)
	assert.Equal(t, int64(1), count(t, e.db, &domain.OrderUpdate{}, "service_order_id = ?", order.ID))
	assert.Equal(t, int64(1), count(t, e.db, &domain.Notification{}, "user_id = ?", e.customer.ID))

	w = e.do(http.MethodPost, path, api.OrderUpdateRequest{Type: "Observação", Description: "Cliente avisado"}, e.employee)
	require.Equal(t, http.StatusCreated, w.Code)
	require.NoError(t, e.db.First(&stored, order.ID).Error)
	assert.Equal(t, "Concluída", stored.Status)
	assert.Equal(t, int64(1), count(t, e.db, &domain.Notification{}, "user_id = ?", e.customer.ID))

	w = e.do(http.MethodPost, path, api.OrderUpdateRequest{Type: "Status", Description: "Cliente ligou perguntando"}, e.employee)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.NoError(t, e.db.First(&stored, order.ID).Error)
	assert.Equal(t, "Concluída", stored.Status)
	assert.Equal(t, int64(3), count(t, e.db, &domain.OrderUpdate{}, "service_order_id = ?", order.ID))
	assert.Equal(t, int64(1), count(t, e.db, &domain.Notification{}, "user_id = ?", e.customer.ID))
}

func TestStatusUpdateMissingOrder(t *testing.T) {
	e := newEnv(t)
	w := e.do(http.MethodPost, "/ordens-servico/4242/atualizacoes", api.OrderUpdateRequest{Type: "Status", NewStatus: "em andamento"}, e.employee)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, int64(0), count(t, e.db, &domain.OrderUpdate{}, ""))
}

func TestStatusUpdateRollsBackOnFailure(t *testing.T) {
	e := newEnv(t)
	order := orderFor(t, e.db, e.profile, "RBK4E55")
	err := e.db.Callback().Update().Before("gorm:update").Register("test:fail_orders", func(tx *gorm.DB) {
		if tx.Statement.Table == "service_orders" {
			_ = tx.AddError(errors.New("forced failure"))
		}
	})
	require.NoError(t, err)

	w := e.do(http.MethodPost, fmt.Sprintf("/ordens-servico/%d/atualizacoes", order.ID),
		api.OrderUpdateRequest{Type: "Status", NewStatus: "em andamento"}, e.employee)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, int64(0), count(t, e.db, &domain.OrderUpdate{}, ""))
	assert.Equal(t, int64(0), count(t, e.db, &domain.Notification{}, ""))
}

func TestDeleteOrderRemovesChildren(t *testing.T) {
	e := newEnv(t)
	order := orderFor(t, e.db, e.profile, "DEL5F66")
	require.NoError(t, e.db.Create(&domain.Comment{ServiceOrderID: order.ID, UserID: e.employee.ID, Text: "ok"}).Error)
	category := domain.Category{Name: "Serviços", Kind: domain.KindIncome}
	require.NoError(t, e.db.Create(&category).Error)
	tx := domain.Transaction{Kind: domain.KindIncome, Amount: dec("50"), CategoryID: category.ID, ServiceOrderID: &order.ID, Date: time.Now()}
	require.NoError(t, e.db.Create(&tx).Error)

	w := e.do(http.MethodDelete, fmt.Sprintf("/ordens-servico/%d", order.ID), nil, e.employee)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, int64(0), count(t, e.db, &domain.ServiceOrder{}, "id = ?", order.ID))
	assert.Equal(t, int64(0), count(t, e.db, &domain.Comment{}, ""))
	assert.Equal(t, int64(1), count(t, e.db, &domain.Transaction{}, "id = ? AND service_order_id IS NULL", tx.ID))
}

func TestOrderPDF(t *testing.T) {
	e := newEnv(t)
	order := orderFor(t, e.db, e.profile, "PDF6G77")
	w := e.do(http.MethodGet, fmt.Sprintf("/ordens-servico/%d/pdf", order.ID), nil, e.employee)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))
}

func TestPublicLink(t *testing.T) {
	e := newEnv(t)
	email := "joana@cliente.com"
	require.NoError(t, e.db.Model(e.profile).Update("email", email).Error)
	order := orderFor(t, e.db, e.profile, "PUB7H88")

	w := e.do(http.MethodPost, fmt.Sprintf("/ordens-servico/%d/link-publico", order.ID), api.PublicLinkRequest{SendEmail: true}, e.employee)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	link := decode[struct {
		Token string `json:"token"`
		URL   string `json:"url"`
		Sent  bool   `json:"email_enviado"`
	}](t, w)
	assert.Equal(t, "http://localhost:5173/publico/ordens-servico/"+link.Token, link.URL)
	assert.True(t, link.Sent)
	require.Len(t, e.mailer.sent, 1)
	assert.Equal(t, email, e.mailer.sent[0].to)
	assert.Contains(t, e.mailer.sent[0].body, link.URL)

	w = e.do(http.MethodGet, "/publico/ordens-servico/"+link.Token, nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	view := decode[api.PublicOrder](t, w)
	assert.Equal(t, order.ID, view.ID)
	assert.Equal(t, "PUB7H88", view.Vehicle.Plate)
	assert.NotContains(t, w.Body.String(), "cpf_cnpj")

	expired, _, err := utils.GenerateViewToken(order.ID, testutil.Secret, -time.Minute)
	require.NoError(t, err)
	w = e.do(http.MethodGet, "/publico/ordens-servico/"+expired, nil, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	body := decode[map[string]any](t, w)
	assert.Len(t, body, 1)
	assert.Contains(t, body, "error")

	w = e.do(http.MethodGet, "/publico/ordens-servico/garbage", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPublicLinkEmailFailureStillIssuesLink(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.db.Model(e.profile).Update("email", "joana@cliente.com").Error)
	order := orderFor(t, e.db, e.profile, "PUB8J99")
	e.mailer.fail = true

	w := e.do(http.MethodPost, fmt.Sprintf("/ordens-servico/%d/link-publico", order.ID), api.PublicLinkRequest{SendEmail: true}, e.employee)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.False(t, decode[struct {
		Sent bool `json:"email_enviado"`
	}](t, w).Sent)
}

func TestSignatureUpload(t *testing.T) {
	e := newEnv(t)
	own := orderFor(t, e.db, e.profile, "SIG1K00")
	stranger := domain.Client{Name: "Estranho"}
	require.NoError(t, e.db.Create(&stranger).Error)
	foreign := orderFor(t, e.db, &stranger, "SIG2L11")
	png := []byte("\x89PNG\r\n\x1a\nfake")

	w := e.upload(fmt.Sprintf("/ordens-servico/%d/assinatura", own.ID), "assinatura", "sig.png", "image/png", png, e.customer)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	url := decode[map[string]string](t, w)["assinatura_url"]
	assert.Contains(t, url, "https://cdn.test/assinaturas/os-")

	var stored domain.ServiceOrder
	require.NoError(t, e.db.First(&stored, own.ID).Error)
	assert.Equal(t, url, stored.SignatureURL)

	w = e.upload(fmt.Sprintf("/ordens-servico/%d/assinatura", foreign.ID), "assinatura", "sig.png", "image/png", png, e.customer)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.upload(fmt.Sprintf("/ordens-servico/%d/assinatura", foreign.ID), "assinatura", "sig.txt", "text/plain", png, e.employee)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, e.uploader.keys, 1)
}
