package service

import (
	"context"
	"fmt"
	"strings"

	"oficina/internal/db"
	"oficina/internal/domain"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Accounts creates client profiles together with their login users
type Accounts struct {
	db *gorm.DB
}

// NewAccounts returns an Accounts service over db
func NewAccounts(db *gorm.DB) *Accounts {
	return &Accounts{db: db}
}

// ClientInput describes a client profile. Password, when set, also creates a
// login user with role cliente sharing the profile's name and email.
type ClientInput struct {
	Name     string
	Email    string
	Password string
	TaxID    string
	Phone    string
	Address  string
	Notes    string
}

// CreateClient inserts the optional login user and the client profile as one
// transaction. A unique violation rolls both back and yields *domain.ConflictError.
func (s *Accounts) CreateClient(ctx context.Context, in ClientInput) (*domain.Client, *domain.User, error) {
	email := NormalizeEmail(in.Email)
	var hash []byte
	if in.Password != "" {
		var err error
		if hash, err = bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost); err != nil {
			return nil, nil, fmt.Errorf("hash password: %w", err)
		}
	}

	client := &domain.Client{
		Name:    strings.TrimSpace(in.Name),
		Email:   optional(email),
		TaxID:   optional(NormalizeTaxID(in.TaxID)),
		Phone:   strings.TrimSpace(in.Phone),
		Address: strings.TrimSpace(in.Address),
		Notes:   in.Notes,
	}
	var user *domain.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if hash != nil {
			user = &domain.User{
				Name:     client.Name,
				Email:    email,
				Password: string(hash),
				Role:     domain.RoleClient,
				Phone:    client.Phone,
				Active:   true,
			}
			if err := tx.Create(user).Error; err != nil {
				return db.Classify(err)
			}
			client.UserID = &user.ID
		}
		if err := tx.Create(client).Error; err != nil {
			return db.Classify(err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return client, user, nil
}

// NormalizeEmail trims and lower-cases an address
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeTaxID keeps only the digits of a CPF or CNPJ
func NormalizeTaxID(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
