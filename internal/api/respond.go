package api

import (
	"context"       // Context for cache operations
	"encoding/json" // Field by field decoding
	"errors"        // Error inspection
	"net/http"      // HTTP status codes
	"reflect"       // Request field access
	"strconv"       // String conversion
	"strings"       // Struct tag parsing
	"time"          // Date ranges

	store "oficina/internal/db"   // Driver error classification
	"oficina/internal/domain"     // Domain errors and identity
	"oficina/internal/middleware" // Caller identity
	"oficina/internal/utils"      // Cache interface
	"oficina/internal/validation" // Field rules and date parsing

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// Cache key prefixes invalidated by financial and order writes
const (
	cachePrefixDashboard = "dashboard:"
	cachePrefixReports   = "relatorios:"
)

// respondError translates err into the error taxonomy. msg is the generic text
// returned for unexpected failures, which are logged with full detail.
func respondError(c *gin.Context, err error, msg string) {
	var verr *domain.ValidationError
	var cerr *domain.ConflictError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dados inválidos", "errors": verr.Messages})
	case errors.As(err, &cerr):
		c.JSON(http.StatusConflict, gin.H{"error": conflictMessage(cerr.Field), "field": cerr.Field})
	case errors.Is(err, domain.ErrInUse):
		c.JSON(http.StatusConflict, gin.H{"error": "Registro em uso por outros cadastros"})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Registro não encontrado"})
	case errors.Is(err, domain.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Acesso negado"})
	case errors.Is(err, domain.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Não autenticado"})
	default:
		logrus.WithContext(c.Request.Context()).WithFields(logrus.Fields{
			"path":       c.FullPath(),
			"request_id": c.GetString("requestID"),
		}).WithError(err).Error(msg)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}

// classify maps driver errors onto the domain taxonomy
func classify(err error) error { return store.Classify(err) }

func conflictMessage(field string) string {
	switch field {
	case "email":
		return "Email já cadastrado"
	case "cpf_cnpj":
		return "CPF/CNPJ já cadastrado"
	case "placa":
		return "Placa já cadastrada"
	case "":
		return "Registro duplicado"
	default:
		return "Valor já cadastrado: " + field
	}
}

// ruled is a request form carrying its own field rules
type ruled interface {
	rules() []validation.Rule
}

// bindJSON decodes the body into dst. A body that is not a JSON object answers a
// generic 400. Values of the wrong type answer 400 with one message per such field
// followed by the rule violations of the fields that did decode.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindBodyWithJSON(dst); err == nil {
		return true
	}
	body, _ := c.Get(gin.BodyBytesKey)
	raw, _ := body.([]byte)
	mistyped, err := decodeFields(raw, dst)
	if err != nil || len(mistyped) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Requisição inválida", "errors": []string{"corpo JSON inválido"}})
		return false
	}
	msgs := make([]string, 0, len(mistyped))
	for _, field := range mistyped {
		msgs = append(msgs, field+" possui tipo inválido")
	}
	if r, ok := dst.(ruled); ok {
		msgs = append(msgs, validation.Check(validation.Without(r.rules(), mistyped...)...)...)
	}
	respondError(c, domain.NewValidationError(msgs...), "")
	return false
}

// decodeFields decodes a JSON object into the struct behind dst one field at a time
// and returns the JSON names of the fields whose values do not fit their Go type
func decodeFields(body []byte, dst any) ([]string, error) {
	var object map[string]json.RawMessage
	if err := json.Unmarshal(body, &object); err != nil {
		return nil, err
	}
	v := reflect.ValueOf(dst).Elem()
	if v.Kind() != reflect.Struct {
		return nil, errors.New("destination is not a struct")
	}
	var mistyped []string
	for i := 0; i < v.NumField(); i++ {
		field := v.Type().Field(i)
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		value, present := object[name]
		if !field.IsExported() || name == "" || name == "-" || !present {
			continue
		}
		target := reflect.New(field.Type)
		if err := json.Unmarshal(value, target.Interface()); err != nil {
			mistyped = append(mistyped, name)
			continue
		}
		v.Field(i).Set(target.Elem())
	}
	return mistyped, nil
}

// idParam reads a positive numeric path parameter, answering 400 otherwise
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID inválido"})
		return 0, false
	}
	return uint(id), true
}

// queryID reads an optional numeric query parameter; ok is false when it is absent or malformed
func queryID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Query(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// currentUser returns the caller set by the auth gate
func currentUser(c *gin.Context) domain.Identity {
	id, _ := middleware.CurrentUser(c)
	return id
}

// dateRange is an optional [From, To) window read from query parameters
type dateRange struct {
	From *time.Time
	To   *time.Time
}

// parseDateRange reads inicio and fim. A date-only fim covers that whole day.
func parseDateRange(c *gin.Context) (dateRange, error) {
	var r dateRange
	var msgs []string
	if s := c.Query("inicio"); s != "" {
		t, err := validation.ParseDate(s)
		if err != nil {
			msgs = append(msgs, "inicio deve ser uma data ISO 8601")
		} else {
			r.From = &t
		}
	}
	if s := c.Query("fim"); s != "" {
		t, err := validation.ParseDate(s)
		if err != nil {
			msgs = append(msgs, "fim deve ser uma data ISO 8601")
		} else {
			if validation.IsDateOnly(s) {
				t = t.AddDate(0, 0, 1)
			}
			r.To = &t
		}
	}
	if len(msgs) > 0 {
		return r, domain.NewValidationError(msgs...)
	}
	return r, nil
}

// apply adds the window on column to f
func (r dateRange) apply(f *utils.Filter, column string) {
	if r.From != nil {
		f.Where(column+" >= ?", *r.From)
	}
	if r.To != nil {
		f.Where(column+" < ?", *r.To)
	}
}

// cacheSuffix renders the window for cache keys
func (r dateRange) cacheSuffix() string {
	format := func(t *time.Time) string {
		if t == nil {
			return "-"
		}
		return t.UTC().Format(time.RFC3339)
	}
	return format(r.From) + ":" + format(r.To)
}

// invalidateReports drops cached dashboard and report responses after a write
func invalidateReports(ctx context.Context, cache utils.Cache) {
	dropCached(ctx, cache, cachePrefixDashboard, cachePrefixReports)
}

// invalidateDashboard drops cached dashboards after writes that only move its counters
func invalidateDashboard(ctx context.Context, cache utils.Cache) {
	dropCached(ctx, cache, cachePrefixDashboard)
}

func dropCached(ctx context.Context, cache utils.Cache, prefixes ...string) {
	if cache == nil {
		return
	}
	for _, prefix := range prefixes {
		if err := cache.DeletePrefix(ctx, prefix); err != nil {
			logrus.WithError(err).WithField("prefix", prefix).Warn("report cache not invalidated")
		}
	}
}

// optionalDate parses an optional ISO date already checked by the validator
func optionalDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := validation.ParseDate(s)
	if err != nil {
		return nil
	}
	return &t
}
