package api

import (
	"context"  // Cache context
	"net/http" // HTTP status codes
	"time"     // Cache TTL

	"oficina/internal/report" // Aggregate queries
	"oficina/internal/utils"  // Cache interface

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// cached answers from cache when key is present, otherwise builds, stores and answers.
// Cache failures only cost a rebuild.
func cached[T any](c *gin.Context, cache utils.Cache, ttl time.Duration, key string, build func(context.Context) (T, error)) {
	ctx := c.Request.Context()
	var hit T
	if ok, err := cache.Get(ctx, key, &hit); err != nil {
		logrus.WithError(err).WithField("key", key).Warn("report cache read failed")
	} else if ok {
		c.Header("X-Cache", "HIT")
		c.JSON(http.StatusOK, hit)
		return
	}
	v, err := build(ctx)
	if err != nil {
		respondError(c, err, "Falha ao gerar relatório")
		return
	}
	if err := cache.Set(ctx, key, v, ttl); err != nil {
		logrus.WithError(err).WithField("key", key).Warn("report cache write failed")
	}
	c.Header("X-Cache", "MISS")
	c.JSON(http.StatusOK, v)
}

// DashboardHandler returns the staff summary
func DashboardHandler(db *gorm.DB, cache utils.Cache, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		cached(c, cache, ttl, cachePrefixDashboard+"resumo", func(ctx context.Context) (*report.Dashboard, error) {
			return report.BuildDashboard(ctx, db, time.Now())
		})
	}
}

// FinancialReportHandler returns ledger totals per category between inicio and fim
func FinancialReportHandler(db *gorm.DB, cache utils.Cache, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		window, err := parseDateRange(c)
		if err != nil {
			respondError(c, err, "")
			return
		}
		cached(c, cache, ttl, cachePrefixReports+"financeiro:"+window.cacheSuffix(), func(ctx context.Context) (*report.Financial, error) {
			return report.BuildFinancial(ctx, db, report.Window(window))
		})
	}
}

// EmployeeReportHandler returns order output per employee between inicio and fim
func EmployeeReportHandler(db *gorm.DB, cache utils.Cache, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		window, err := parseDateRange(c)
		if err != nil {
			respondError(c, err, "")
			return
		}
		cached(c, cache, ttl, cachePrefixReports+"funcionarios:"+window.cacheSuffix(), func(ctx context.Context) ([]report.EmployeeTotal, error) {
			return report.BuildEmployees(ctx, db, report.Window(window))
		})
	}
}

// ServiceReportHandler returns catalog usage between inicio and fim
func ServiceReportHandler(db *gorm.DB, cache utils.Cache, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		window, err := parseDateRange(c)
		if err != nil {
			respondError(c, err, "")
			return
		}
		cached(c, cache, ttl, cachePrefixReports+"servicos:"+window.cacheSuffix(), func(ctx context.Context) (*report.Services, error) {
			return report.BuildServices(ctx, db, report.Window(window))
		})
	}
}
