package api

import (
	"net/http" // HTTP status codes

	"oficina/internal/domain" // Importing domain models
	"oficina/internal/utils"  // Pagination and filters

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

// ListHistoryHandler returns audit records, newest first, filtered by entidade,
// entidade_id, usuario_id, acao, inicio and fim
func ListHistoryHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		page := utils.ParsePage(c)
		window, err := parseDateRange(c)
		if err != nil {
			respondError(c, err, "")
			return
		}
		var f utils.Filter
		f.WhereIf(c.Query("entidade") != "", "entity = ?", c.Query("entidade"))
		f.WhereIf(c.Query("acao") != "", "action = ?", c.Query("acao"))
		if id, ok := queryID(c, "entidade_id"); ok {
			f.Eq("entity_id", id)
		}
		if id, ok := queryID(c, "usuario_id"); ok {
			f.Eq("user_id", id)
		}
		window.apply(&f, "created_at")
		query := f.Apply(db.Model(&domain.HistoryRecord{}))
		var total int64
		if err := query.Count(&total).Error; err != nil {
			respondError(c, err, "Falha ao contar histórico")
			return
		}
		var records []domain.HistoryRecord
		if err := query.Order("created_at desc, id desc").Offset(page.Offset).Limit(page.Limit).Find(&records).Error; err != nil {
			respondError(c, err, "Falha ao listar histórico")
			return
		}
		c.JSON(http.StatusOK, utils.NewList(records, total, page))
	}
}
