package service

import (
	"context"
	"errors"
	"testing"

	"oficina/internal/domain"
	"oficina/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestCreateClientWithLogin(t *testing.T) {
	gdb := testutil.NewDB(t)
	svc := NewAccounts(gdb)

	client, user, err := svc.CreateClient(context.Background(), ClientInput{
		Name: "João Lima", Email: " Joao@Mail.com ", Password: "segredo1", TaxID: "123.456.789-09",
	})
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "joao@mail.com", user.Email)
	assert.Equal(t, domain.RoleClient, user.Role)
	require.NotNil(t, client.UserID)
	assert.Equal(t, user.ID, *client.UserID)
	assert.Equal(t, "12345678909", *client.TaxID)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("segredo1")))
}

func TestCreateClientConflicts(t *testing.T) {
	gdb := testutil.NewDB(t)
	svc := NewAccounts(gdb)
	ctx := context.Background()

	first, _, err := svc.CreateClient(ctx, ClientInput{Name: "Ana", Email: "ana@mail.com", Password: "segredo1", TaxID: "11122233344"})
	require.NoError(t, err)

	tests := []struct {
		name  string
		in    ClientInput
		field string
	}{
		{"same email with login", ClientInput{Name: "Outra", Email: "ANA@mail.com", Password: "segredo2"}, "email"},
		{"same email without login", ClientInput{Name: "Outra", Email: "ana@mail.com"}, "email"},
		{"same tax id", ClientInput{Name: "Outra", Email: "outra@mail.com", Password: "segredo2", TaxID: "111.222.333-44"}, "cpf_cnpj"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.CreateClient(ctx, tt.in)
			var conflict *domain.ConflictError
			require.True(t, errors.As(err, &conflict), "got %v", err)
			assert.Equal(t, tt.field, conflict.Field)
		})
	}

	// Nothing from the failed attempts survived and the first client is untouched
	var users, clients int64
	require.NoError(t, gdb.Model(&domain.User{}).Count(&users).Error)
	require.NoError(t, gdb.Model(&domain.Client{}).Count(&clients).Error)
	assert.Equal(t, int64(1), users)
	assert.Equal(t, int64(1), clients)

	var stored domain.Client
	require.NoError(t, gdb.First(&stored, first.ID).Error)
	assert.Equal(t, "Ana", stored.Name)
}

func TestCreateClientWithoutLogin(t *testing.T) {
	gdb := testutil.NewDB(t)
	client, user, err := NewAccounts(gdb).CreateClient(context.Background(), ClientInput{Name: "Sem Login", Phone: "11 9999-0000"})
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.Nil(t, client.UserID)
	assert.Nil(t, client.Email)
}
