package api

import (
	"errors"   // Error inspection
	"net/http" // HTTP status codes
	"strings"  // String manipulation
	"time"     // Default transaction date

	"oficina/internal/audit"      // History recorder
	"oficina/internal/domain"     // Importing domain models
	"oficina/internal/utils"      // Pagination, filters and cache
	"oficina/internal/validation" // Field rules

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/shopspring/decimal" // Decimal arithmetic for money
	"github.com/sirupsen/logrus"    // Logging library
	"gorm.io/gorm"                  // GORM ORM library
)

var ledgerKinds = "oneof=" + domain.KindIncome + " " + domain.KindExpense

// CategoryRequest is the form for ledger categories
type CategoryRequest struct {
	Name string `json:"nome"` // Display name
	Kind string `json:"tipo"` // entrada or saida
}

func (r CategoryRequest) rules() []validation.Rule {
	return []validation.Rule{
		{Field: "nome", Value: r.Name, Tag: "notblank,max=80", Message: "nome é obrigatório (até 80 caracteres)"},
		{Field: "tipo", Value: r.Kind, Tag: ledgerKinds, Message: "tipo deve ser entrada ou saida"},
	}
}

// ListCategoriesHandler returns categories by name, optionally of one tipo
func ListCategoriesHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var f utils.Filter
		f.WhereIf(c.Query("tipo") != "", "kind = ?", c.Query("tipo"))
		categories := []domain.Category{}
		if err := f.Apply(db.Model(&domain.Category{})).Order("name asc").Find(&categories).Error; err != nil {
			respondError(c, err, "Falha ao listar categorias")
			return
		}
		c.JSON(http.StatusOK, categories)
	}
}

// CreateCategoryHandler adds a ledger category
func CreateCategoryHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CategoryRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := validation.Validate(req.rules()...); err != nil {
			respondError(c, err, "")
			return
		}
		category := domain.Category{Name: strings.TrimSpace(req.Name), Kind: req.Kind}
		if err := db.Create(&category).Error; err != nil {
			respondError(c, classify(err), "Falha ao criar categoria")
			return
		}
		logrus.WithFields(logrus.Fields{"category_id": category.ID, "actor_id": currentUser(c).UserID}).Info("Category created")
		c.JSON(http.StatusCreated, category)
	}
}

// UpdateCategoryHandler renames a category. Its tipo is fixed once transactions use it.
func UpdateCategoryHandler(db *gorm.DB, cache utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var req CategoryRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := validation.Validate(req.rules()...); err != nil {
			respondError(c, err, "")
			return
		}
		var category domain.Category
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.First(&category, id).Error; err != nil {
				return classify(err)
			}
			if req.Kind != category.Kind {
				var n int64
				if err := tx.Model(&domain.Transaction{}).Where("category_id = ?", id).Count(&n).Error; err != nil {
					return err
				}
				if n > 0 {
					return domain.NewValidationError("tipo não pode mudar enquanto houver transações na categoria")
				}
			}
			category.Name, category.Kind = strings.TrimSpace(req.Name), req.Kind
			return classify(tx.Model(&category).Select("name", "kind").Updates(&category).Error)
		})
		if err != nil {
			respondError(c, err, "Falha ao atualizar categoria")
			return
		}
		invalidateReports(c.Request.Context(), cache)
		c.JSON(http.StatusOK, category)
	}
}

// DeleteCategoryHandler removes a category. A category still used by any
// transaction is kept and answered with 409.
func DeleteCategoryHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Select("id").First(&domain.Category{}, id).Error; err != nil {
				return classify(err)
			}
			if err := ensureUnreferenced(tx, "category_id = ?", id, &domain.Transaction{}); err != nil {
				return err
			}
			return classify(tx.Delete(&domain.Category{}, id).Error)
		})
		actor := currentUser(c)
		if err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{"category_id": id, "actor_id": actor.UserID}).Warn("Category deletion refused")
			respondError(c, err, "Falha ao excluir categoria")
			return
		}
		logrus.WithFields(logrus.Fields{"category_id": id, "actor_id": actor.UserID}).Info("Category deleted")
		c.Status(http.StatusNoContent)
	}
}

// TransactionRequest is the form for ledger entries
type TransactionRequest struct {
	Kind           string          `json:"tipo"`             // entrada or saida
	Amount         decimal.Decimal `json:"valor"`            // Positive amount
	Description    string          `json:"descricao"`        // What it was for
	CategoryID     uint            `json:"categoria_id"`     // Category of the same tipo
	ServiceOrderID *uint           `json:"ordem_servico_id"` // Optional order this pays for
	Date           string          `json:"data"`             // ISO 8601, defaults to now
}

func (r TransactionRequest) rules() []validation.Rule {
	return []validation.Rule{
		{Field: "tipo", Value: r.Kind, Tag: ledgerKinds, Message: "tipo deve ser entrada ou saida"},
		{Field: "categoria_id", Value: r.CategoryID, Tag: "required", Message: "categoria_id é obrigatório"},
		{Field: "ordem_servico_id", Value: r.ServiceOrderID, Tag: "omitempty,gt=0", Message: "ordem_servico_id inválido"},
		{Field: "descricao", Value: r.Description, Tag: "max=255", Message: "descricao deve ter até 255 caracteres"},
		{Field: "data", Value: r.Date, Tag: "omitempty,isodate", Message: "data deve ser uma data ISO 8601"},
		validation.Assert("valor", r.Amount.IsPositive(), "valor deve ser maior que zero"),
	}
}

// checkReferences verifies the category matches the tipo and the order exists
func (r TransactionRequest) checkReferences(db *gorm.DB) error {
	var category domain.Category
	if err := db.First(&category, r.CategoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.NewValidationError("categoria informada não existe")
		}
		return err
	}
	if category.Kind != r.Kind {
		return domain.NewValidationError("categoria é do tipo " + category.Kind + ", diferente do tipo da transação")
	}
	if r.ServiceOrderID != nil {
		return mustExist(db, &domain.ServiceOrder{}, *r.ServiceOrderID, "ordem de serviço informada não existe")
	}
	return nil
}

func (r TransactionRequest) apply(t *domain.Transaction) {
	t.Kind = r.Kind
	t.Amount = r.Amount.Round(2)
	t.Description = strings.TrimSpace(r.Description)
	t.CategoryID = r.CategoryID
	t.ServiceOrderID = r.ServiceOrderID
	if d := optionalDate(r.Date); d != nil {
		t.Date = *d
	} else if t.Date.IsZero() {
		t.Date = time.Now()
	}
}

// ListTransactionsHandler returns ledger entries, most recent first, filtered by
// tipo, categoria_id, ordem_servico_id, inicio and fim
func ListTransactionsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		page := utils.ParsePage(c)
		window, err := parseDateRange(c)
		if err != nil {
			respondError(c, err, "")
			return
		}
		var f utils.Filter
		f.WhereIf(c.Query("tipo") != "", "kind = ?", c.Query("tipo"))
		if id, ok := queryID(c, "categoria_id"); ok {
			f.Eq("category_id", id)
		}
		if id, ok := queryID(c, "ordem_servico_id"); ok {
			f.Eq("service_order_id", id)
		}
		window.apply(&f, "date")
		query := f.Apply(db.Model(&domain.Transaction{}))
		var total int64
		if err := query.Count(&total).Error; err != nil {
			respondError(c, err, "Falha ao contar transações")
			return
		}
		var txs []domain.Transaction
		err = query.Preload("Category").Order("date desc, id desc").Offset(page.Offset).Limit(page.Limit).Find(&txs).Error
		if err != nil {
			respondError(c, err, "Falha ao listar transações")
			return
		}
		c.JSON(http.StatusOK, utils.NewList(txs, total, page))
	}
}

// GetTransactionHandler returns one ledger entry with its category
func GetTransactionHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var t domain.Transaction
		if err := db.Preload("Category").First(&t, id).Error; err != nil {
			respondError(c, classify(err), "Falha ao carregar transação")
			return
		}
		c.JSON(http.StatusOK, t)
	}
}

// CreateTransactionHandler records a ledger entry
func CreateTransactionHandler(db *gorm.DB, rec *audit.Recorder, cache utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TransactionRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := validation.Validate(req.rules()...); err != nil {
			respondError(c, err, "")
			return
		}
		if err := req.checkReferences(db); err != nil {
			respondError(c, err, "Falha ao validar transação")
			return
		}
		actor := currentUser(c)
		t := domain.Transaction{UserID: actor.UserID}
		req.apply(&t)
		if err := db.Omit("Category").Create(&t).Error; err != nil {
			logrus.WithError(err).WithField("actor_id", actor.UserID).Error("Transaction not recorded")
			respondError(c, classify(err), "Falha ao registrar transação")
			return
		}
		rec.Record(c.Request.Context(), audit.Event{ActorID: actor.UserID, Action: audit.ActionCreate, Entity: audit.EntityTransaction, EntityID: t.ID, After: t})
		invalidateReports(c.Request.Context(), cache)
		logrus.WithFields(logrus.Fields{"transaction_id": t.ID, "kind": t.Kind, "amount": t.Amount.StringFixed(2), "actor_id": actor.UserID}).Info("Transaction recorded")
		c.JSON(http.StatusCreated, t)
	}
}

// UpdateTransactionHandler replaces a ledger entry
func UpdateTransactionHandler(db *gorm.DB, rec *audit.Recorder, cache utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var req TransactionRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := validation.Validate(req.rules()...); err != nil {
			respondError(c, err, "")
			return
		}
		var t domain.Transaction
		if err := db.First(&t, id).Error; err != nil {
			respondError(c, classify(err), "Falha ao carregar transação")
			return
		}
		if err := req.checkReferences(db); err != nil {
			respondError(c, err, "Falha ao validar transação")
			return
		}
		before := t
		req.apply(&t)
		err := db.Model(&t).Select("kind", "amount", "description", "category_id", "service_order_id", "date").Updates(&t).Error
		if err != nil {
			respondError(c, classify(err), "Falha ao atualizar transação")
			return
		}
		actor := currentUser(c)
		rec.Record(c.Request.Context(), audit.Event{ActorID: actor.UserID, Action: audit.ActionUpdate, Entity: audit.EntityTransaction, EntityID: t.ID, Before: before, After: t})
		invalidateReports(c.Request.Context(), cache)
		logrus.WithFields(logrus.Fields{"transaction_id": t.ID, "actor_id": actor.UserID}).Info("Transaction updated")
		c.JSON(http.StatusOK, t)
	}
}

// DeleteTransactionHandler removes a ledger entry
func DeleteTransactionHandler(db *gorm.DB, rec *audit.Recorder, cache utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var t domain.Transaction
		if err := db.First(&t, id).Error; err != nil {
			respondError(c, classify(err), "Falha ao carregar transação")
			return
		}
		if err := db.Delete(&t).Error; err != nil {
			respondError(c, classify(err), "Falha ao excluir transação")
			return
		}
		actor := currentUser(c)
		rec.Record(c.Request.Context(), audit.Event{ActorID: actor.UserID, Action: audit.ActionDelete, Entity: audit.EntityTransaction, EntityID: id, Before: t})
		invalidateReports(c.Request.Context(), cache)
		logrus.WithFields(logrus.Fields{"transaction_id": id, "actor_id": actor.UserID}).Info("Transaction deleted")
		c.Status(http.StatusNoContent)
	}
}
