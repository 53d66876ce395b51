package api

import (
	"net/http" // HTTP status codes

	"oficina/internal/audit"      // History recorder
	"oficina/internal/domain"     // Importing domain models
	"oficina/internal/service"    // Email normalization
	"oficina/internal/storage"    // Object storage
	"oficina/internal/utils"      // Pagination and filters
	"oficina/internal/validation" // Field rules

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"golang.org/x/crypto/bcrypt" // Password hashing
	"gorm.io/gorm"               // GORM ORM library
)

// UserRequest is the admin form for users. Password is optional on update.
type UserRequest struct {
	Name     string `json:"nome"`     // Display name
	Email    string `json:"email"`    // Login email
	Password string `json:"senha"`    // Plain password
	Role     string `json:"role"`     // admin, funcionario or cliente
	Phone    string `json:"telefone"` // Contact phone
	Active   *bool  `json:"ativo"`    // Defaults to true
}

func (r UserRequest) rules(creating bool) []validation.Rule {
	pwTag := "omitempty,min=6"
	if creating {
		pwTag = "min=6"
	}
	return []validation.Rule{
		{Field: "nome", Value: r.Name, Tag: "notblank", Message: "nome é obrigatório"},
		{Field: "email", Value: r.Email, Tag: "required,email", Message: "email inválido"},
		{Field: "senha", Value: r.Password, Tag: pwTag, Message: "senha deve ter ao menos 6 caracteres"},
		{Field: "role", Value: r.Role, Tag: "oneof=admin funcionario cliente", Message: "role deve ser admin, funcionario ou cliente"},
	}
}

// ListUsersHandler returns users, filtered by role, ativo and busca
func ListUsersHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		page := utils.ParsePage(c)
		var f utils.Filter
		f.WhereIf(c.Query("role") != "", "role = ?", c.Query("role"))
		f.WhereIf(c.Query("ativo") != "", "active = ?", c.Query("ativo") == "true")
		if q := c.Query("busca"); q != "" {
			f.Where("(name LIKE ? OR email LIKE ?)", "%"+q+"%", "%"+q+"%")
		}
		query := f.Apply(db.Model(&domain.User{}))
		var total int64
		if err := query.Count(&total).Error; err != nil {
			respondError(c, err, "Falha ao contar usuários")
			return
		}
		var users []domain.User
		if err := query.Order("name asc").Offset(page.Offset).Limit(page.Limit).Find(&users).Error; err != nil {
			respondError(c, err, "Falha ao listar usuários")
			return
		}
		c.JSON(http.StatusOK, utils.NewList(users, total, page))
	}
}

// ListEmployeesHandler returns active staff, used to assign orders and appointments
func ListEmployeesHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var users []domain.User
		err := db.Where("role IN ? AND active = ?", []domain.Role{domain.RoleAdmin, domain.RoleEmployee}, true).
			Order("name asc").Find(&users).Error
		if err != nil {
			respondError(c, err, "Falha ao listar funcionários")
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": users})
	}
}

// GetUserHandler returns one user
func GetUserHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var user domain.User
		if err := db.First(&user, id).Error; err != nil {
			respondError(c, classify(err), "Falha ao carregar usuário")
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

// CreateUserHandler creates a user of any role
func CreateUserHandler(db *gorm.DB, rec *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UserRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := validation.Validate(req.rules(true)...); err != nil {
			respondError(c, err, "")
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			respondError(c, err, "Falha ao criar usuário")
			return
		}
		user := domain.User{
			Name:     req.Name,
			Email:    service.NormalizeEmail(req.Email),
			Password: string(hash),
			Role:     domain.Role(req.Role),
			Phone:    req.Phone,
			Active:   req.Active == nil || *req.Active,
		}
		if err := db.Create(&user).Error; err != nil {
			respondError(c, classify(err), "Falha ao criar usuário")
			return
		}
		actor := currentUser(c)
		rec.Record(c.Request.Context(), audit.Event{ActorID: actor.UserID, Action: audit.ActionCreate, Entity: audit.EntityUser, EntityID: user.ID, After: user})
		logrus.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role, "actor_id": actor.UserID}).Info("User created")
		c.JSON(http.StatusCreated, user)
	}
}

// UpdateUserHandler replaces a user's mutable fields; the password only changes when sent
func UpdateUserHandler(db *gorm.DB, rec *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var req UserRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := validation.Validate(req.rules(false)...); err != nil {
			respondError(c, err, "")
			return
		}
		var user domain.User
		if err := db.First(&user, id).Error; err != nil {
			respondError(c, classify(err), "Falha ao carregar usuário")
			return
		}
		before := user
		user.Name = req.Name
		user.Email = service.NormalizeEmail(req.Email)
		user.Role = domain.Role(req.Role)
		user.Phone = req.Phone
		if req.Active != nil {
			user.Active = *req.Active
		}
		cols := []string{"name", "email", "role", "phone", "active"}
		if req.Password != "" {
			hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
			if err != nil {
				respondError(c, err, "Falha ao atualizar usuário")
				return
			}
			user.Password = string(hash)
			cols = append(cols, "password")
		}
		if err := db.Model(&user).Select(cols).Updates(&user).Error; err != nil {
			respondError(c, classify(err), "Falha ao atualizar usuário")
			return
		}
		rec.Record(c.Request.Context(), audit.Event{ActorID: currentUser(c).UserID, Action: audit.ActionUpdate, Entity: audit.EntityUser, EntityID: user.ID, Before: before, After: user})
		c.JSON(http.StatusOK, user)
	}
}

// DeleteUserHandler removes a user. Admins cannot remove themselves.
func DeleteUserHandler(db *gorm.DB, rec *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		actor := currentUser(c)
		if id == actor.UserID {
			respondError(c, domain.NewValidationError("não é possível excluir o próprio usuário"), "")
			return
		}
		var user domain.User
		if err := db.First(&user, id).Error; err != nil {
			respondError(c, classify(err), "Falha ao carregar usuário")
			return
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			// The client profile survives without login access
			if err := tx.Model(&domain.Client{}).Where("user_id = ?", id).Update("user_id", nil).Error; err != nil {
				return err
			}
			return tx.Delete(&user).Error
		})
		if err != nil {
			respondError(c, classify(err), "Falha ao excluir usuário")
			return
		}
		rec.Record(c.Request.Context(), audit.Event{ActorID: actor.UserID, Action: audit.ActionDelete, Entity: audit.EntityUser, EntityID: id, Before: user})
		logrus.WithFields(logrus.Fields{"user_id": id, "actor_id": actor.UserID}).Info("User deleted")
		c.Status(http.StatusNoContent)
	}
}

// UploadUserPhotoHandler stores a profile photo. Employees may only change their own.
func UploadUserPhotoHandler(db *gorm.DB, up storage.Uploader, maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		actor := currentUser(c)
		if actor.Role != domain.RoleAdmin && actor.UserID != id {
			respondError(c, domain.ErrForbidden, "")
			return
		}
		if !uploadsEnabled(c, up) {
			return
		}
		var user domain.User
		if err := db.First(&user, id).Error; err != nil {
			respondError(c, classify(err), "Falha ao carregar usuário")
			return
		}
		fh, err := receiveFile(c, "foto", maxSize, imageTypes)
		if err != nil {
			respondError(c, err, "")
			return
		}
		url, _, err := storeFile(c.Request.Context(), up, "usuarios", fh)
		if err != nil {
			respondError(c, err, "Falha ao enviar foto")
			return
		}
		if err := db.Model(&user).Update("photo_url", url).Error; err != nil {
			respondError(c, err, "Falha ao salvar foto")
			return
		}
		user.PhotoURL = url
		c.JSON(http.StatusOK, user)
	}
}
