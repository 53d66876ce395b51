package api_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"oficina/internal/api"
	"oficina/internal/domain"
	"oficina/internal/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type historyRow struct {
	Action   string `json:"acao"`
	Entity   string `json:"entidade"`
	EntityID uint   `json:"entidade_id"`
	UserID   *uint  `json:"usuario_id"`
}

func TestClientLifecycleWritesHistory(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodPost, "/clientes", api.ClientRequest{Name: "Pedro", Email: "Pedro@Mail.com", TaxID: "11.222.333/0001-81"}, e.employee)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[domain.Client](t, w)
	require.NotNil(t, created.Email)
	assert.Equal(t, "pedro@mail.com", *created.Email)
	assert.Equal(t, "11222333000181", *created.TaxID)
	assert.Nil(t, created.UserID)

	path := fmt.Sprintf("/clientes/%d", created.ID)
	w = e.do(http.MethodPut, path, api.ClientRequest{Name: "Pedro Alves", Email: "pedro@mail.com", Phone: "11 99999-0000"}, e.employee)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Pedro Alves", decode[domain.Client](t, w).Name)

	w = e.do(http.MethodGet, fmt.Sprintf("/historico?entidade=cliente&entidade_id=%d", created.ID), nil, e.admin)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Data  []historyRow `json:"data"`
		Total int64        `json:"total"`
	}](t, w)
	require.Equal(t, int64(2), list.Total)
	actions := []string{list.Data[0].Action, list.Data[1].Action}
	assert.ElementsMatch(t, []string{"create", "update"}, actions)
	for _, row := range list.Data {
		require.NotNil(t, row.UserID)
		assert.Equal(t, e.employee.ID, *row.UserID)
	}

	w = e.do(http.MethodDelete, path, nil, e.employee)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, int64(0), count(t, e.db, &domain.Client{}, "id = ?", created.ID))
}

func TestClientCreateWithLoginAndConflict(t *testing.T) {
	e := newEnv(t)
	w := e.do(http.MethodPost, "/clientes", api.ClientRequest{Name: "Rui", Email: "rui@mail.com", Password: "123456"}, e.admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotNil(t, decode[domain.Client](t, w).UserID)

	w = e.do(http.MethodPost, "/clientes", api.ClientRequest{Name: "Rui 2", Email: "rui@mail.com"}, e.admin)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "email", decode[errorBody](t, w).Field)

	w = e.do(http.MethodPost, "/clientes", api.ClientRequest{Name: "", TaxID: "123"}, e.admin)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, decode[errorBody](t, w).Errors, 2)
}

func TestAuditFailureDoesNotFailUpdate(t *testing.T) {
	e := newEnv(t)
	client := domain.Client{Name: "Lia"}
	require.NoError(t, e.db.Create(&client).Error)
	require.NoError(t, e.db.Migrator().DropTable(&domain.HistoryRecord{}))

	w := e.do(http.MethodPut, fmt.Sprintf("/clientes/%d", client.ID), api.ClientRequest{Name: "Lia Souza"}, e.employee)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var stored domain.Client
	require.NoError(t, e.db.First(&stored, client.ID).Error)
	assert.Equal(t, "Lia Souza", stored.Name)
}

func TestClientWithOrdersCannotBeDeleted(t *testing.T) {
	e := newEnv(t)
	order := orderFor(t, e.db, e.profile, "JOA1A23")

	w := e.do(http.MethodDelete, fmt.Sprintf("/clientes/%d", e.profile.ID), nil, e.admin)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, int64(1), count(t, e.db, &domain.Client{}, "id = ?", e.profile.ID))

	w = e.do(http.MethodDelete, fmt.Sprintf("/veiculos/%d", order.VehicleID), nil, e.admin)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestVehicleRules(t *testing.T) {
	e := newEnv(t)
	req := api.VehicleRequest{ClientID: e.profile.ID, Plate: "abc-1d23", Make: "Fiat", Model: "Argo", Year: 2020}

	w := e.do(http.MethodPost, "/veiculos", req, e.employee)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "ABC1D23", decode[domain.Vehicle](t, w).Plate)

	w = e.do(http.MethodPost, "/veiculos", req, e.employee)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "placa", decode[errorBody](t, w).Field)

	req.ClientID = 9999
	req.Plate = "XYZ9876"
	w = e.do(http.MethodPost, "/veiculos", req, e.employee)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetIsIdempotent(t *testing.T) {
	e := newEnv(t)
	orderFor(t, e.db, e.profile, "IDM1234")
	path := fmt.Sprintf("/clientes/%d", e.profile.ID)

	first := e.do(http.MethodGet, path, nil, e.employee)
	second := e.do(http.MethodGet, path, nil, e.employee)
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, first.Body.Bytes(), second.Body.Bytes())

	w := e.do(http.MethodGet, "/clientes/9999", nil, e.employee)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = e.do(http.MethodGet, "/clientes/abc", nil, e.employee)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteClientDisablesLogin(t *testing.T) {
	e := newEnv(t)
	req := api.ClientRequest{Name: "Bruno", Email: "bruno@mail.com", Password: "segredo1"}
	w := e.do(http.MethodPost, "/clientes", req, e.employee)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[domain.Client](t, w)
	require.NotNil(t, created.UserID)

	vehicle := domain.Vehicle{ClientID: created.ID, Plate: "BRU1A11", Make: "VW", Model: "Gol"}
	require.NoError(t, e.db.Create(&vehicle).Error)
	w = e.do(http.MethodGet, fmt.Sprintf("/clientes/%d/veiculos", created.ID), nil, e.employee)
	require.Equal(t, http.StatusOK, w.Code)
	vehicles := decode[[]domain.Vehicle](t, w)
	require.Len(t, vehicles, 1)
	assert.Equal(t, "BRU1A11", vehicles[0].Plate)

	w = e.do(http.MethodDelete, fmt.Sprintf("/clientes/%d", created.ID), nil, e.admin)
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())
	assert.Equal(t, int64(0), count(t, e.db, &domain.Vehicle{}, "client_id = ?", created.ID))

	var user domain.User
	require.NoError(t, e.db.First(&user, *created.UserID).Error)
	assert.False(t, user.Active)
	w = e.do(http.MethodPost, "/auth/login", api.LoginRequest{Email: "bruno@mail.com", Password: "segredo1"}, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDashboardFollowsRegistryWrites(t *testing.T) {
	e := newEnv(t)
	dashboard := func(wantCache string) report.Dashboard {
		t.Helper()
		w := e.do(http.MethodGet, "/dashboard", nil, e.employee)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, wantCache, w.Header().Get("X-Cache"))
		return decode[report.Dashboard](t, w)
	}

	assert.Equal(t, int64(1), dashboard("MISS").Clients)
	dashboard("HIT")

	w := e.do(http.MethodPost, "/clientes", api.ClientRequest{Name: "Rita"}, e.employee)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, int64(2), dashboard("MISS").Clients)

	w = e.do(http.MethodPost, "/veiculos", api.VehicleRequest{ClientID: e.profile.ID, Plate: "DSH1B22", Make: "Fiat", Model: "Uno"}, e.employee)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	vehicle := decode[domain.Vehicle](t, w)
	assert.Equal(t, int64(1), dashboard("MISS").Vehicles)

	when := time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339)
	w = e.do(http.MethodPost, "/agendamentos", api.AppointmentRequest{ClientID: e.profile.ID, ScheduledAt: when}, e.employee)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, int64(1), dashboard("MISS").UpcomingAppointments)

	w = e.do(http.MethodDelete, fmt.Sprintf("/veiculos/%d", vehicle.ID), nil, e.admin)
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())
	assert.Equal(t, int64(0), dashboard("MISS").Vehicles)
}
