package api

import (
	"net/http" // HTTP methods and status codes
	"time"     // CORS max age

	"oficina/internal/audit"      // History recorder
	"oficina/internal/config"     // Application configuration
	"oficina/internal/domain"     // Roles
	"oficina/internal/mailer"     // Outbound email
	"oficina/internal/middleware" // Auth, roles and request logging
	"oficina/internal/realtime"   // Websocket hub
	"oficina/internal/service"    // Transactional writes
	"oficina/internal/storage"    // Object storage
	"oficina/internal/utils"      // Cache interface

	"github.com/gin-contrib/cors" // CORS middleware
	"github.com/gin-gonic/gin"    // Gin web framework
	"gorm.io/gorm"                // GORM ORM library
)

// Deps carries everything the handlers need. Storage and Mailer may be nil
// when the corresponding service is not configured.
type Deps struct {
	DB       *gorm.DB
	Config   *config.Config
	Cache    utils.Cache
	Audit    *audit.Recorder
	Orders   *service.Orders
	Accounts *service.Accounts
	Storage  storage.Uploader
	Mailer   mailer.Sender
	Hub      *realtime.Hub
}

// Allow-lists attached to protected routes. An empty list admits any authenticated role.
var (
	staff         = []domain.Role{domain.RoleAdmin, domain.RoleEmployee}
	adminOnly     = []domain.Role{domain.RoleAdmin}
	clientOnly    = []domain.Role{domain.RoleClient}
	authenticated = []domain.Role{}
)

// route is one protected endpoint and the roles allowed to call it
type route struct {
	Method  string
	Path    string
	Allow   []domain.Role
	Handler gin.HandlerFunc
}

// NewRouter builds the gin engine with middleware, public routes and the protected route table
func NewRouter(d *Deps) *gin.Engine {
	if d.Cache == nil {
		d.Cache = utils.NopCache{}
	}
	cfg := d.Config

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger())
	r.Use(cors.New(corsConfig(cfg.FrontendURL)))

	// Public routes never pass through the auth gate
	r.GET("/health", HealthHandler(d.DB))
	r.POST("/auth/login", LoginHandler(d.DB, cfg.JWTSecret, cfg.JWTTTL))
	r.POST("/auth/registro", RegisterHandler(d.Accounts, d.Audit, d.Cache, cfg.JWTSecret, cfg.JWTTTL))
	r.GET("/publico/ordens-servico/:token", PublicOrderHandler(d.DB, cfg.JWTSecret))

	// Browsers cannot set headers on websocket upgrades
	r.GET("/ws", middleware.QueryTokenAuthMiddleware(cfg.JWTSecret), WebsocketHandler(d.Hub))

	protected := r.Group("", middleware.JWTAuthMiddleware(cfg.JWTSecret))
	for _, rt := range routes(d) {
		protected.Handle(rt.Method, rt.Path, middleware.RequireRoles(rt.Allow...), rt.Handler)
	}
	return r
}

// corsConfig admits the SPA origin, or any origin when none is configured
func corsConfig(origin string) cors.Config {
	cc := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader, "Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
	if origin == "" {
		cc.AllowAllOrigins = true
		return cc
	}
	cc.AllowOrigins = []string{origin}
	cc.AllowCredentials = true
	return cc
}

func routes(d *Deps) []route {
	db, cfg, rec, cache := d.DB, d.Config, d.Audit, d.Cache
	link := PublicLinkConfig{Secret: cfg.JWTSecret, TTL: cfg.PublicLinkTTL, FrontendURL: cfg.FrontendURL, Shop: cfg.ShopName}
	return []route{
		// Session
		{http.MethodGet, "/auth/me", authenticated, MeHandler(db)},
		{http.MethodPut, "/auth/senha", authenticated, ChangePasswordHandler(db)},

		// Users and staff
		{http.MethodGet, "/usuarios", adminOnly, ListUsersHandler(db)},
		{http.MethodPost, "/usuarios", adminOnly, CreateUserHandler(db, rec)},
		{http.MethodGet, "/usuarios/:id", adminOnly, GetUserHandler(db)},
		{http.MethodPut, "/usuarios/:id", adminOnly, UpdateUserHandler(db, rec)},
		{http.MethodDelete, "/usuarios/:id", adminOnly, DeleteUserHandler(db, rec)},
		{http.MethodPost, "/usuarios/:id/foto", staff, UploadUserPhotoHandler(db, d.Storage, cfg.MaxUploadSize)},
		{http.MethodGet, "/funcionarios", staff, ListEmployeesHandler(db)},

		// Clients and vehicles
		{http.MethodGet, "/clientes", staff, ListClientsHandler(db)},
		{http.MethodPost, "/clientes", staff, CreateClientHandler(d.Accounts, rec, cache)},
		{http.MethodGet, "/clientes/:id", staff, GetClientHandler(db)},
		{http.MethodPut, "/clientes/:id", staff, UpdateClientHandler(db, rec)},
		{http.MethodDelete, "/clientes/:id", staff, DeleteClientHandler(db, rec, cache)},
		{http.MethodGet, "/clientes/:id/veiculos", staff, ListClientVehiclesHandler(db)},
		{http.MethodGet, "/veiculos", staff, ListVehiclesHandler(db)},
		{http.MethodPost, "/veiculos", staff, CreateVehicleHandler(db, rec, cache)},
		{http.MethodGet, "/veiculos/:id", staff, GetVehicleHandler(db)},
		{http.MethodPut, "/veiculos/:id", staff, UpdateVehicleHandler(db, rec)},
		{http.MethodDelete, "/veiculos/:id", staff, DeleteVehicleHandler(db, rec, cache)},

		// Client self-service
		{http.MethodGet, "/me/ordens-servico", clientOnly, MyOrdersHandler(db)},
		{http.MethodGet, "/me/veiculos", clientOnly, MyVehiclesHandler(db)},
		{http.MethodGet, "/me/agendamentos", clientOnly, MyAppointmentsHandler(db)},

		// Service orders
		{http.MethodGet, "/ordens-servico", staff, ListOrdersHandler(db)},
		{http.MethodPost, "/ordens-servico", staff, CreateOrderHandler(db, rec, cache)},
		{http.MethodGet, "/ordens-servico/:id", staff, GetOrderHandler(db)},
		{http.MethodPut, "/ordens-servico/:id", staff, UpdateOrderHandler(db, rec, cache)},
		{http.MethodDelete, "/ordens-servico/:id", staff, DeleteOrderHandler(d.Orders, rec, cache)},
		{http.MethodGet, "/ordens-servico/:id/itens", staff, ListItemsHandler(db)},
		{http.MethodPost, "/ordens-servico/:id/itens", staff, CreateItemHandler(d.Orders, rec, cache)},
		{http.MethodPut, "/ordens-servico/:id/itens/:itemId", staff, UpdateItemHandler(d.Orders, rec, cache)},
		{http.MethodDelete, "/ordens-servico/:id/itens/:itemId", staff, DeleteItemHandler(d.Orders, rec, cache)},
		{http.MethodGet, "/ordens-servico/:id/atualizacoes", staff, ListOrderUpdatesHandler(db)},
		{http.MethodPost, "/ordens-servico/:id/atualizacoes", staff, CreateOrderUpdateHandler(d.Orders, db, rec, d.Hub, cache)},
		{http.MethodPost, "/ordens-servico/:id/assinatura", authenticated, UploadSignatureHandler(db, d.Storage, cfg.MaxUploadSize)},
		{http.MethodGet, "/ordens-servico/:id/pdf", staff, OrderPDFHandler(db, cfg.ShopName)},
		{http.MethodPost, "/ordens-servico/:id/link-publico", staff, PublicLinkHandler(db, d.Mailer, link)},
		{http.MethodGet, "/ordens-servico/:id/comentarios", staff, ListCommentsHandler(db)},
		{http.MethodPost, "/ordens-servico/:id/comentarios", staff, CreateCommentHandler(db)},
		{http.MethodDelete, "/ordens-servico/:id/comentarios/:childId", staff, DeleteCommentHandler(db)},
		{http.MethodGet, "/ordens-servico/:id/checklist", staff, ListChecklistHandler(db)},
		{http.MethodPost, "/ordens-servico/:id/checklist", staff, CreateChecklistHandler(db)},
		{http.MethodPut, "/ordens-servico/:id/checklist/:childId", staff, UpdateChecklistHandler(db)},
		{http.MethodDelete, "/ordens-servico/:id/checklist/:childId", staff, DeleteChecklistHandler(db)},
		{http.MethodGet, "/ordens-servico/:id/anexos", staff, ListAttachmentsHandler(db)},
		{http.MethodPost, "/ordens-servico/:id/anexos", staff, CreateAttachmentHandler(db, d.Storage, cfg.MaxUploadSize)},
		{http.MethodDelete, "/ordens-servico/:id/anexos/:childId", staff, DeleteAttachmentHandler(db)},

		// Catalog
		{http.MethodGet, "/servicos", authenticated, ListServicesHandler(db)},
		{http.MethodGet, "/servicos/:id", authenticated, GetServiceHandler(db)},
		{http.MethodPost, "/servicos", adminOnly, CreateServiceHandler(db)},
		{http.MethodPut, "/servicos/:id", adminOnly, UpdateServiceHandler(db)},
		{http.MethodDelete, "/servicos/:id", adminOnly, DeleteServiceHandler(db)},
		{http.MethodGet, "/produtos", authenticated, ListProductsHandler(db)},
		{http.MethodGet, "/produtos/:id", authenticated, GetProductHandler(db)},
		{http.MethodPost, "/produtos", adminOnly, CreateProductHandler(db)},
		{http.MethodPut, "/produtos/:id", adminOnly, UpdateProductHandler(db)},
		{http.MethodDelete, "/produtos/:id", adminOnly, DeleteProductHandler(db)},

		// Finance
		{http.MethodGet, "/categorias", staff, ListCategoriesHandler(db)},
		{http.MethodPost, "/categorias", adminOnly, CreateCategoryHandler(db)},
		{http.MethodPut, "/categorias/:id", adminOnly, UpdateCategoryHandler(db, cache)},
		{http.MethodDelete, "/categorias/:id", adminOnly, DeleteCategoryHandler(db)},
		{http.MethodGet, "/transacoes", adminOnly, ListTransactionsHandler(db)},
		{http.MethodPost, "/transacoes", adminOnly, CreateTransactionHandler(db, rec, cache)},
		{http.MethodGet, "/transacoes/:id", adminOnly, GetTransactionHandler(db)},
		{http.MethodPut, "/transacoes/:id", adminOnly, UpdateTransactionHandler(db, rec, cache)},
		{http.MethodDelete, "/transacoes/:id", adminOnly, DeleteTransactionHandler(db, rec, cache)},

		// Scheduling
		{http.MethodGet, "/agendamentos", staff, ListAppointmentsHandler(db)},
		{http.MethodPost, "/agendamentos", authenticated, CreateAppointmentHandler(db, cache)},
		{http.MethodGet, "/agendamentos/:id", staff, GetAppointmentHandler(db)},
		{http.MethodPut, "/agendamentos/:id", staff, UpdateAppointmentHandler(db, cache)},
		{http.MethodDelete, "/agendamentos/:id", staff, DeleteAppointmentHandler(db, cache)},

		// Notifications and favorites
		{http.MethodGet, "/notificacoes", authenticated, ListNotificationsHandler(db)},
		{http.MethodPost, "/notificacoes", staff, CreateNotificationHandler(db, d.Hub)},
		{http.MethodPut, "/notificacoes/:id/lida", authenticated, MarkNotificationReadHandler(db)},
		{http.MethodDelete, "/notificacoes/:id", authenticated, DeleteNotificationHandler(db)},
		{http.MethodGet, "/favoritos", authenticated, ListFavoritesHandler(db)},
		{http.MethodPost, "/favoritos", authenticated, CreateFavoriteHandler(db)},
		{http.MethodDelete, "/favoritos/:id", authenticated, DeleteFavoriteHandler(db)},

		// Audit and reports
		{http.MethodGet, "/historico", adminOnly, ListHistoryHandler(db)},
		{http.MethodGet, "/dashboard", staff, DashboardHandler(db, cache, cfg.CacheTTL)},
		{http.MethodGet, "/relatorios/financeiro", adminOnly, FinancialReportHandler(db, cache, cfg.CacheTTL)},
		{http.MethodGet, "/relatorios/funcionarios", adminOnly, EmployeeReportHandler(db, cache, cfg.CacheTTL)},
		{http.MethodGet, "/relatorios/servicos", adminOnly, ServiceReportHandler(db, cache, cfg.CacheTTL)},
	}
}

// HealthHandler reports whether the database answers
func HealthHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "indisponivel"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
