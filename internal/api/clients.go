package api

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"oficina/internal/audit"      // History recorder
	"oficina/internal/domain"     // Importing domain models
	"oficina/internal/service"    // Account creation
	"oficina/internal/utils"      // Pagination and filters
	"oficina/internal/validation" // Field rules

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// ClientRequest is the staff form for client profiles. Email plus Password
// also creates login access on create; Password is ignored on update.
type ClientRequest struct {
	Name     string `json:"nome"`        // Full name
	Email    string `json:"email"`       // Contact and login email
	Password string `json:"senha"`       // Optional login password
	TaxID    string `json:"cpf_cnpj"`    // CPF or CNPJ
	Phone    string `json:"telefone"`    // Contact phone
	Address  string `json:"endereco"`    // Postal address
	Notes    string `json:"observacoes"` // Free-form notes
}

func (r ClientRequest) rules() []validation.Rule {
	rules := []validation.Rule{
		{Field: "nome", Value: r.Name, Tag: "notblank", Message: "nome é obrigatório"},
		{Field: "email", Value: strings.TrimSpace(r.Email), Tag: "omitempty,email", Message: "email inválido"},
		{Field: "senha", Value: r.Password, Tag: "omitempty,min=6", Message: "senha deve ter ao menos 6 caracteres"},
	}
	if r.Password != "" {
		rules = append(rules, validation.Rule{Field: "email", Value: strings.TrimSpace(r.Email), Tag: "required", Message: "email é obrigatório para acesso ao sistema"})
	}
	return append(rules, taxIDRules(r.TaxID)...)
}

// ListClientsHandler returns clients ordered by name, filtered by busca
func ListClientsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		page := utils.ParsePage(c)
		var f utils.Filter
		if q := strings.TrimSpace(c.Query("busca")); q != "" {
			like := "%" + q + "%"
			f.Where("(name LIKE ? OR email LIKE ? OR tax_id LIKE ? OR phone LIKE ?)", like, like, like, like)
		}
		query := f.Apply(db.Model(&domain.Client{}))
		var total int64
		if err := query.Count(&total).Error; err != nil {
			respondError(c, err, "Falha ao contar clientes")
			return
		}
		var clients []domain.Client
		if err := query.Order("name asc").Offset(page.Offset).Limit(page.Limit).Find(&clients).Error; err != nil {
			respondError(c, err, "Falha ao listar clientes")
			return
		}
		c.JSON(http.StatusOK, utils.NewList(clients, total, page))
	}
}

// GetClientHandler returns one client with its vehicles
func GetClientHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var client domain.Client
		if err := db.Preload("Vehicles", func(tx *gorm.DB) *gorm.DB { return tx.Order("id asc") }).First(&client, id).Error; err != nil {
			respondError(c, classify(err), "Falha ao carregar cliente")
			return
		}
		c.JSON(http.StatusOK, client)
	}
}

// CreateClientHandler creates a client profile, with login access when a password is sent
func CreateClientHandler(accounts *service.Accounts, rec *audit.Recorder, cache utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ClientRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := validation.Validate(req.rules()...); err != nil {
			respondError(c, err, "")
			return
		}
		client, user, err := accounts.CreateClient(c.Request.Context(), service.ClientInput{
			Name: req.Name, Email: req.Email, Password: req.Password, TaxID: req.TaxID,
			Phone: req.Phone, Address: req.Address, Notes: req.Notes,
		})
		actor := currentUser(c)
		if err != nil {
			logrus.WithError(err).WithField("actor_id", actor.UserID).Warn("Client creation failed")
			respondError(c, err, "Falha ao criar cliente")
			return
		}
		rec.Record(c.Request.Context(), audit.Event{ActorID: actor.UserID, Action: audit.ActionCreate, Entity: audit.EntityClient, EntityID: client.ID, After: client})
		logrus.WithFields(logrus.Fields{"client_id": client.ID, "actor_id": actor.UserID, "with_login": user != nil}).Info("Client created")
		invalidateDashboard(c.Request.Context(), cache)
		c.JSON(http.StatusCreated, client)
	}
}

// UpdateClientHandler replaces a client's mutable fields
func UpdateClientHandler(db *gorm.DB, rec *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var req ClientRequest
		if !bindJSON(c, &req) {
			return
		}
		req.Password = "" // Login access is managed through /usuarios
		if err := validation.Validate(req.rules()...); err != nil {
			respondError(c, err, "")
			return
		}
		var client domain.Client
		if err := db.First(&client, id).Error; err != nil {
			respondError(c, classify(err), "Falha ao carregar cliente")
			return
		}
		before := client
		client.Name = strings.TrimSpace(req.Name)
		client.Email = optionalString(service.NormalizeEmail(req.Email))
		client.TaxID = optionalString(service.NormalizeTaxID(req.TaxID))
		client.Phone = strings.TrimSpace(req.Phone)
		client.Address = strings.TrimSpace(req.Address)
		client.Notes = req.Notes
		err := db.Model(&client).Select("name", "email", "tax_id", "phone", "address", "notes").Updates(&client).Error
		if err != nil {
			respondError(c, classify(err), "Falha ao atualizar cliente")
			return
		}
		actor := currentUser(c)
		rec.Record(c.Request.Context(), audit.Event{ActorID: actor.UserID, Action: audit.ActionUpdate, Entity: audit.EntityClient, EntityID: client.ID, Before: before, After: client})
		logrus.WithFields(logrus.Fields{"client_id": client.ID, "actor_id": actor.UserID}).Info("Client updated")
		c.JSON(http.StatusOK, client)
	}
}

// DeleteClientHandler removes a client and its vehicles and deactivates its login.
// Clients with service orders or appointments are kept and answered with 409.
func DeleteClientHandler(db *gorm.DB, rec *audit.Recorder, cache utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var client domain.Client
		if err := db.First(&client, id).Error; err != nil {
			respondError(c, classify(err), "Falha ao carregar cliente")
			return
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := ensureUnreferenced(tx, "client_id = ?", id, &domain.ServiceOrder{}, &domain.Appointment{}); err != nil {
				return err
			}
			if err := tx.Where("client_id = ?", id).Delete(&domain.Vehicle{}).Error; err != nil {
				return classify(err)
			}
			if client.UserID != nil {
				// The linked login stays for history and is deactivated
				if err := tx.Model(&domain.User{}).Where("id = ?", *client.UserID).Update("active", false).Error; err != nil {
					return err
				}
			}
			return classify(tx.Delete(&client).Error)
		})
		if err != nil {
			respondError(c, err, "Falha ao excluir cliente")
			return
		}
		actor := currentUser(c)
		rec.Record(c.Request.Context(), audit.Event{ActorID: actor.UserID, Action: audit.ActionDelete, Entity: audit.EntityClient, EntityID: id, Before: client})
		logrus.WithFields(logrus.Fields{"client_id": id, "actor_id": actor.UserID}).Info("Client deleted")
		invalidateDashboard(c.Request.Context(), cache)
		c.Status(http.StatusNoContent)
	}
}

// ListClientVehiclesHandler returns the vehicles of one client
func ListClientVehiclesHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		if err := db.Select("id").First(&domain.Client{}, id).Error; err != nil {
			respondError(c, classify(err), "Falha ao carregar cliente")
			return
		}
		vehicles := []domain.Vehicle{}
		if err := db.Where("client_id = ?", id).Order("id asc").Find(&vehicles).Error; err != nil {
			respondError(c, err, "Falha ao listar veículos")
			return
		}
		c.JSON(http.StatusOK, vehicles)
	}
}

// ensureUnreferenced fails with ErrInUse when any of models has a row matching cond
func ensureUnreferenced(tx *gorm.DB, cond string, id uint, models ...any) error {
	for _, m := range models {
		var n int64
		if err := tx.Model(m).Where(cond, id).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return domain.ErrInUse
		}
	}
	return nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
