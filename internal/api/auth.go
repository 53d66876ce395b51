package api

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation
	"time"     // Token lifetime

	"oficina/internal/audit"      // History recorder
	"oficina/internal/domain"     // Importing domain models
	"oficina/internal/service"    // Account creation
	"oficina/internal/utils"      // Utility functions
	"oficina/internal/validation" // Field rules

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"golang.org/x/crypto/bcrypt" // Password hashing
	"gorm.io/gorm"               // GORM ORM library
)

// Request struct for login
type LoginRequest struct {
	Email    string `json:"email"` // Login email
	Password string `json:"senha"` // Plain password
}

func (r LoginRequest) rules() []validation.Rule {
	return []validation.Rule{
		{Field: "email", Value: r.Email, Tag: "required,email", Message: "email inválido"},
		{Field: "senha", Value: r.Password, Tag: "required", Message: "senha é obrigatória"},
	}
}

// RegisterRequest is the self-registration form of a client
type RegisterRequest struct {
	Name     string `json:"nome"`     // Full name
	Email    string `json:"email"`    // Login email
	Password string `json:"senha"`    // Plain password
	TaxID    string `json:"cpf_cnpj"` // CPF or CNPJ
	Phone    string `json:"telefone"` // Contact phone
	Address  string `json:"endereco"` // Postal address
}

func (r RegisterRequest) rules() []validation.Rule {
	rules := []validation.Rule{
		{Field: "nome", Value: r.Name, Tag: "notblank", Message: "nome é obrigatório"},
		{Field: "email", Value: r.Email, Tag: "required,email", Message: "email inválido"},
		{Field: "senha", Value: r.Password, Tag: "min=6", Message: "senha deve ter ao menos 6 caracteres"},
	}
	return append(rules, taxIDRules(r.TaxID)...)
}

// Response struct for authentication
type AuthResponse struct {
	Token  string         `json:"token"`             // JWT token
	User   *domain.User   `json:"usuario"`           // Authenticated user
	Client *domain.Client `json:"cliente,omitempty"` // Client profile, on registration
}

// ChangePasswordRequest replaces the caller's password
type ChangePasswordRequest struct {
	Current string `json:"senha_atual"` // Current password
	New     string `json:"nova_senha"`  // Replacement
}

func (r ChangePasswordRequest) rules() []validation.Rule {
	return []validation.Rule{
		{Field: "senha_atual", Value: r.Current, Tag: "required", Message: "senha_atual é obrigatória"},
		{Field: "nova_senha", Value: r.New, Tag: "min=6", Message: "nova_senha deve ter ao menos 6 caracteres"},
	}
}

func taxIDRules(raw string) []validation.Rule {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return []validation.Rule{{
		Field: "cpf_cnpj", Value: len(service.NormalizeTaxID(raw)), Tag: "oneof=11 14",
		Message: "cpf_cnpj deve ter 11 (CPF) ou 14 (CNPJ) dígitos",
	}}
}

// LoginHandler authenticates a user and returns a JWT token
func LoginHandler(db *gorm.DB, jwtSecret string, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest // Bind JSON request to struct
		if !bindJSON(c, &req) {
			return
		}
		if err := validation.Validate(req.rules()...); err != nil {
			respondError(c, err, "")
			return
		}
		var user domain.User // Fetch user from database
		if err := db.Where("email = ?", service.NormalizeEmail(req.Email)).First(&user).Error; err != nil {
			// Same answer for unknown email and wrong password
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Credenciais inválidas"})
			return
		}
		// Compare provided password with stored hash
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Credenciais inválidas"})
			return
		}
		if !user.Active {
			c.JSON(http.StatusForbidden, gin.H{"error": "Usuário inativo"})
			return
		}
		// Generate JWT token
		token, err := utils.GenerateJWT(user.Identity(), jwtSecret, ttl)
		if err != nil {
			respondError(c, err, "Falha ao gerar token")
			return
		}
		logrus.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("User logged in")
		c.JSON(http.StatusOK, AuthResponse{Token: token, User: &user}) // Return the token in the response
	}
}

// RegisterHandler creates a client profile with login access and signs the new user in
func RegisterHandler(accounts *service.Accounts, rec *audit.Recorder, cache utils.Cache, jwtSecret string, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest // Bind JSON request to struct
		if !bindJSON(c, &req) {
			return
		}
		if err := validation.Validate(req.rules()...); err != nil {
			respondError(c, err, "")
			return
		}
		client, user, err := accounts.CreateClient(c.Request.Context(), service.ClientInput{
			Name: req.Name, Email: req.Email, Password: req.Password, TaxID: req.TaxID, Phone: req.Phone, Address: req.Address,
		})
		if err != nil {
			logrus.WithError(err).WithField("email", req.Email).Warn("Registration failed")
			respondError(c, err, "Falha ao registrar cliente")
			return
		}
		rec.Record(c.Request.Context(), audit.Event{
			ActorID: user.ID, Action: audit.ActionCreate, Entity: audit.EntityClient, EntityID: client.ID, After: client,
		})
		token, err := utils.GenerateJWT(user.Identity(), jwtSecret, ttl)
		if err != nil {
			respondError(c, err, "Falha ao gerar token")
			return
		}
		logrus.WithFields(logrus.Fields{"user_id": user.ID, "client_id": client.ID}).Info("Client registered")
		invalidateDashboard(c.Request.Context(), cache)
		c.JSON(http.StatusCreated, AuthResponse{Token: token, User: user, Client: client})
	}
}

// MeHandler returns the caller's user row
func MeHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var user domain.User
		if err := db.First(&user, currentUser(c).UserID).Error; err != nil {
			respondError(c, classify(err), "Falha ao carregar usuário")
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

// ChangePasswordHandler replaces the caller's password after checking the current one
func ChangePasswordHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ChangePasswordRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := validation.Validate(req.rules()...); err != nil {
			respondError(c, err, "")
			return
		}
		var user domain.User
		if err := db.First(&user, currentUser(c).UserID).Error; err != nil {
			respondError(c, classify(err), "Falha ao carregar usuário")
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Current)); err != nil {
			respondError(c, domain.NewValidationError("senha_atual incorreta"), "")
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.New), bcrypt.DefaultCost)
		if err != nil {
			respondError(c, err, "Falha ao alterar senha")
			return
		}
		if err := db.Model(&user).Update("password", string(hash)).Error; err != nil {
			respondError(c, err, "Falha ao alterar senha")
			return
		}
		logrus.WithField("user_id", user.ID).Info("Password changed")
		c.JSON(http.StatusOK, gin.H{"message": "Senha alterada"})
	}
}
