package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"
	"time"

	"oficina/internal/api"
	"oficina/internal/audit"
	"oficina/internal/config"
	"oficina/internal/domain"
	"oficina/internal/realtime"
	"oficina/internal/service"
	"oficina/internal/testutil"
	"oficina/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeUploader struct {
	mu   sync.Mutex
	keys []string
}

func (f *fakeUploader) Upload(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, key)
	return "https://cdn.test/" + key, nil
}

type sentMail struct{ to, subject, body string }

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	fail bool
}

func (f *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	if f.fail {
		return errors.New("smtp down")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{to, subject, body})
	return nil
}

// mapCache is an in-memory utils.Cache
type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMapCache() *mapCache { return &mapCache{data: map[string][]byte{}} }

func (m *mapCache) Get(_ context.Context, key string, dest any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dest)
}

func (m *mapCache) Set(_ context.Context, key string, v any, _ time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = b
	return nil
}

func (m *mapCache) DeletePrefix(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.data {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(m.data, k)
		}
	}
	return nil
}

type env struct {
	t        *testing.T
	db       *gorm.DB
	router   *gin.Engine
	uploader *fakeUploader
	mailer   *fakeMailer
	cache    *mapCache
	admin    *domain.User
	employee *domain.User
	customer *domain.User
	profile  *domain.Client // Client profile of customer
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logrus.SetOutput(io.Discard)

	gdb := testutil.NewDB(t)
	e := &env{t: t, db: gdb, uploader: &fakeUploader{}, mailer: &fakeMailer{}, cache: newMapCache()}
	cfg := &config.Config{
		JWTSecret:     testutil.Secret,
		JWTTTL:        time.Hour,
		PublicLinkTTL: time.Hour,
		CacheTTL:      time.Minute,
		MaxUploadSize: 1 << 20,
		FrontendURL:   "http://localhost:5173",
		ShopName:      "Oficina Teste",
	}
	e.router = api.NewRouter(&api.Deps{
		DB:       gdb,
		Config:   cfg,
		Cache:    e.cache,
		Audit:    audit.NewRecorder(gdb),
		Orders:   service.NewOrders(gdb),
		Accounts: service.NewAccounts(gdb),
		Storage:  e.uploader,
		Mailer:   e.mailer,
		Hub:      realtime.NewHub(""),
	})

	e.admin = testutil.CreateUser(t, gdb, "Admin", "admin@oficina.com", domain.RoleAdmin)
	e.employee = testutil.CreateUser(t, gdb, "Carlos", "carlos@oficina.com", domain.RoleEmployee)
	e.customer = testutil.CreateUser(t, gdb, "Joana", "joana@cliente.com", domain.RoleClient)
	e.profile = &domain.Client{Name: "Joana", UserID: &e.customer.ID}
	require.NoError(t, gdb.Create(e.profile).Error)
	return e
}

func (e *env) token(u *domain.User) string {
	e.t.Helper()
	tok, err := utils.GenerateJWT(u.Identity(), testutil.Secret, time.Hour)
	require.NoError(e.t, err)
	return tok
}

// do sends body as JSON, authenticated as u when u is not nil. A []byte body is sent as is.
func (e *env) do(method, path string, body any, u *domain.User) *httptest.ResponseRecorder {
	e.t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		rd = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(e.t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if u != nil {
		req.Header.Set("Authorization", "Bearer "+e.token(u))
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// upload posts one multipart file under field
func (e *env) upload(path, field, filename, contentType string, data []byte, u *domain.User) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(e.t, err)
	_, err = part.Write(data)
	require.NoError(e.t, err)
	require.NoError(e.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if u != nil {
		req.Header.Set("Authorization", "Bearer "+e.token(u))
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func count(t *testing.T, gdb *gorm.DB, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	q := gdb.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

// orderFor creates a vehicle and an open order owned by client
func orderFor(t *testing.T, gdb *gorm.DB, client *domain.Client, plate string) *domain.ServiceOrder {
	t.Helper()
	v := &domain.Vehicle{ClientID: client.ID, Plate: plate, Make: "VW", Model: "Gol", Year: 2015}
	require.NoError(t, gdb.Create(v).Error)
	o := &domain.ServiceOrder{ClientID: client.ID, VehicleID: v.ID, Status: domain.StatusOpen, Problem: "Revisão"}
	require.NoError(t, gdb.Create(o).Error)
	return o
}

type errorBody struct {
	Error  string   `json:"error"`
	Errors []string `json:"errors"`
	Field  string   `json:"field"`
}
