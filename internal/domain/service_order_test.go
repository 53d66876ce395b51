package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeSubtotal(t *testing.T) {
	item := OrderItem{
		Quantity:  decimal.RequireFromString("3"),
		UnitPrice: decimal.RequireFromString("33.335"),
	}
	item.ComputeSubtotal()
	assert.Equal(t, "100.01", item.Subtotal.StringFixed(2))
}

func TestIsStatusUpdate(t *testing.T) {
	assert.True(t, IsStatusUpdate("Status", "Concluída"))
	assert.True(t, IsStatusUpdate(" status ", StatusInProgress))
	assert.False(t, IsStatusUpdate("Status", "  "))
	assert.False(t, IsStatusUpdate("Observação", StatusDone))
}

func TestHistoryRecordJSON(t *testing.T) {
	rec := HistoryRecord{Action: "update", Entity: "cliente", EntityID: 3, After: JSONText(`{"nome":"Ana"}`)}
	b, err := json.Marshal(rec)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Nil(t, out["dados_anteriores"])
	assert.Equal(t, map[string]any{"nome": "Ana"}, out["dados_novos"])
}

func TestConflictErrorUnwrap(t *testing.T) {
	var err error = &ConflictError{Field: "email"}
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, "conflict on email", err.Error())

	err = NewValidationError("nome é obrigatório")
	assert.ErrorIs(t, err, ErrValidation)
}
