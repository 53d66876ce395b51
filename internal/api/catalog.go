package api

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"oficina/internal/domain"     // Importing domain models
	"oficina/internal/utils"      // Pagination and filters
	"oficina/internal/validation" // Field rules

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/shopspring/decimal" // Decimal arithmetic for money
	"github.com/sirupsen/logrus"    // Logging library
	"gorm.io/gorm"                  // GORM ORM library
)

// ServiceRequest is the form for catalog services
type ServiceRequest struct {
	Name             string          `json:"nome"`           // Display name
	Description      string          `json:"descricao"`      // Details
	Price            decimal.Decimal `json:"preco"`          // Default unit price
	EstimatedMinutes int             `json:"tempo_estimado"` // Expected duration in minutes
	Active           *bool           `json:"ativo"`          // Defaults to true
}

func (r ServiceRequest) rules() []validation.Rule {
	return []validation.Rule{
		{Field: "nome", Value: r.Name, Tag: "notblank,max=120", Message: "nome é obrigatório (até 120 caracteres)"},
		validation.Assert("preco", !r.Price.IsNegative(), "preco não pode ser negativo"),
		{Field: "tempo_estimado", Value: r.EstimatedMinutes, Tag: "min=0", Message: "tempo_estimado não pode ser negativo"},
	}
}

func (r ServiceRequest) apply(s *domain.Service) {
	s.Name = strings.TrimSpace(r.Name)
	s.Description = r.Description
	s.Price = r.Price.Round(2)
	s.EstimatedMinutes = r.EstimatedMinutes
	s.Active = r.Active == nil || *r.Active
}

// ProductRequest is the form for catalog products
type ProductRequest struct {
	Name        string          `json:"nome"`      // Display name
	Description string          `json:"descricao"` // Details
	SKU         string          `json:"codigo"`    // Supplier code
	Price       decimal.Decimal `json:"preco"`     // Default unit price
	Stock       int             `json:"estoque"`   // Units on hand
}

func (r ProductRequest) rules() []validation.Rule {
	return []validation.Rule{
		{Field: "nome", Value: r.Name, Tag: "notblank,max=120", Message: "nome é obrigatório (até 120 caracteres)"},
		{Field: "codigo", Value: strings.TrimSpace(r.SKU), Tag: "max=60", Message: "codigo deve ter até 60 caracteres"},
		validation.Assert("preco", !r.Price.IsNegative(), "preco não pode ser negativo"),
		{Field: "estoque", Value: r.Stock, Tag: "min=0", Message: "estoque não pode ser negativo"},
	}
}

func (r ProductRequest) apply(p *domain.Product) {
	p.Name = strings.TrimSpace(r.Name)
	p.Description = r.Description
	p.SKU = optionalString(strings.ToUpper(strings.TrimSpace(r.SKU)))
	p.Price = r.Price.Round(2)
	p.Stock = r.Stock
}

// ListServicesHandler returns catalog services by name. ativo=true hides inactive ones.
func ListServicesHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var f utils.Filter
		f.WhereIf(c.Query("ativo") == "true", "active = ?", true)
		if q := strings.TrimSpace(c.Query("busca")); q != "" {
			f.Where("name LIKE ?", "%"+q+"%")
		}
		services := []domain.Service{}
		if err := f.Apply(db.Model(&domain.Service{})).Order("name asc").Find(&services).Error; err != nil {
			respondError(c, err, "Falha ao listar serviços")
			return
		}
		c.JSON(http.StatusOK, services)
	}
}

// GetServiceHandler returns one catalog service
func GetServiceHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var svc domain.Service
		if err := db.First(&svc, id).Error; err != nil {
			respondError(c, classify(err), "Falha ao carregar serviço")
			return
		}
		c.JSON(http.StatusOK, svc)
	}
}

// CreateServiceHandler adds a catalog service
func CreateServiceHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ServiceRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := validation.Validate(req.rules()...); err != nil {
			respondError(c, err, "")
			return
		}
		var svc domain.Service
		req.apply(&svc)
		if err := db.Create(&svc).Error; err != nil {
			respondError(c, classify(err), "Falha ao criar serviço")
			return
		}
		logrus.WithFields(logrus.Fields{"service_id": svc.ID, "actor_id": currentUser(c).UserID}).Info("Catalog service created")
		c.JSON(http.StatusCreated, svc)
	}
}

// UpdateServiceHandler replaces a catalog service. Existing order items keep their prices.
func UpdateServiceHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var req ServiceRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := validation.Validate(req.rules()...); err != nil {
			respondError(c, err, "")
			return
		}
		var svc domain.Service
		if err := db.First(&svc, id).Error; err != nil {
			respondError(c, classify(err), "Falha ao carregar serviço")
			return
		}
		req.apply(&svc)
		if err := db.Model(&svc).Select("name", "description", "price", "estimated_minutes", "active").Updates(&svc).Error; err != nil {
			respondError(c, classify(err), "Falha ao atualizar serviço")
			return
		}
		c.JSON(http.StatusOK, svc)
	}
}

// DeleteServiceHandler removes a catalog service no order item references
func DeleteServiceHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Select("id").First(&domain.Service{}, id).Error; err != nil {
				return classify(err)
			}
			if err := ensureUnreferenced(tx, "service_id = ?", id, &domain.OrderItem{}); err != nil {
				return err
			}
			return classify(tx.Delete(&domain.Service{}, id).Error)
		})
		if err != nil {
			respondError(c, err, "Falha ao excluir serviço")
			return
		}
		logrus.WithFields(logrus.Fields{"service_id": id, "actor_id": currentUser(c).UserID}).Info("Catalog service deleted")
		c.Status(http.StatusNoContent)
	}
}

// ListProductsHandler returns catalog products by name
func ListProductsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var f utils.Filter
		if q := strings.TrimSpace(c.Query("busca")); q != "" {
			like := "%" + q + "%"
			f.Where("(name LIKE ? OR sku LIKE ?)", like, like)
		}
		products := []domain.Product{}
		if err := f.Apply(db.Model(&domain.Product{})).Order("name asc").Find(&products).Error; err != nil {
			respondError(c, err, "Falha ao listar produtos")
			return
		}
		c.JSON(http.StatusOK, products)
	}
}

// GetProductHandler returns one catalog product
func GetProductHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var prod domain.Product
		if err := db.First(&prod, id).Error; err != nil {
			respondError(c, classify(err), "Falha ao carregar produto")
			return
		}
		c.JSON(http.StatusOK, prod)
	}
}

// CreateProductHandler adds a catalog product
func CreateProductHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ProductRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := validation.Validate(req.rules()...); err != nil {
			respondError(c, err, "")
			return
		}
		var prod domain.Product
		req.apply(&prod)
		if err := db.Create(&prod).Error; err != nil {
			respondError(c, classify(err), "Falha ao criar produto")
			return
		}
		logrus.WithFields(logrus.Fields{"product_id": prod.ID, "actor_id": currentUser(c).UserID}).Info("Catalog product created")
		c.JSON(http.StatusCreated, prod)
	}
}

// UpdateProductHandler replaces a catalog product
func UpdateProductHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var req ProductRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := validation.Validate(req.rules()...); err != nil {
			respondError(c, err, "")
			return
		}
		var prod domain.Product
		if err := db.First(&prod, id).Error; err != nil {
			respondError(c, classify(err), "Falha ao carregar produto")
			return
		}
		req.apply(&prod)
		if err := db.Model(&prod).Select("name", "description", "sku", "price", "stock").Updates(&prod).Error; err != nil {
			respondError(c, classify(err), "Falha ao atualizar produto")
			return
		}
		c.JSON(http.StatusOK, prod)
	}
}

// DeleteProductHandler removes a catalog product no order item references
func DeleteProductHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Select("id").First(&domain.Product{}, id).Error; err != nil {
				return classify(err)
			}
			if err := ensureUnreferenced(tx, "product_id = ?", id, &domain.OrderItem{}); err != nil {
				return err
			}
			return classify(tx.Delete(&domain.Product{}, id).Error)
		})
		if err != nil {
			respondError(c, err, "Falha ao excluir produto")
			return
		}
		logrus.WithFields(logrus.Fields{"product_id": id, "actor_id": currentUser(c).UserID}).Info("Catalog product deleted")
		c.Status(http.StatusNoContent)
	}
}
