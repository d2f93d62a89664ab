package controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/inkpost/inkpost/config"
	"github.com/inkpost/inkpost/models"
	"github.com/inkpost/inkpost/routes"
	"github.com/inkpost/inkpost/utils"
)

var (
	dbSeq int64
	ipSeq int64
)

func TestMain(m *testing.M) {
	os.Setenv("JWT_SECRET", "test-secret")
	os.Setenv("GIN_MODE", gin.TestMode)
	os.Setenv("LOG_LEVEL", "error")

	// Run from a temp dir so the access log lands outside the source tree.
	dir, err := os.MkdirTemp("", "inkpost-test-")
	if err != nil {
		panic(err)
	}
	if err := os.Chdir(dir); err != nil {
		panic(err)
	}

	cfg := config.Load()
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

// testEnv bundles an isolated in-memory database with a fully wired router.
type testEnv struct {
	db     *gorm.DB
	router *gin.Engine
	ip     string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	name := fmt.Sprintf("file:inkpost_test_%d?mode=memory&cache=shared", atomic.AddInt64(&dbSeq, 1))
	db, err := gorm.Open(sqlite.Open(name), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Post{},
		&models.Comment{},
	))

	seq := atomic.AddInt64(&ipSeq, 1)
	return &testEnv{
		db:     db,
		router: routes.SetupRouter(db),
		ip:     fmt.Sprintf("10.1.%d.%d:4321", seq/256%256, seq%256),
	}
}

// request performs an HTTP round trip against the in-process router.
func (e *testEnv) request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = e.ip
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), "body: %s", w.Body.String())
}

// data unwraps the {"success":true,"data":...} envelope into out.
func data(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	decode(t, w, &envelope)
	require.True(t, envelope.Success, "body: %s", w.Body.String())
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

func (e *testEnv) createUser(t *testing.T, name, role string) (*models.User, string) {
	t.Helper()

	hash, err := utils.HashPassword("password123")
	require.NoError(t, err)

	user := models.User{
		Name:         name,
		Email:        fmt.Sprintf("%s-%d@example.com", name, atomic.AddInt64(&ipSeq, 1)),
		PasswordHash: hash,
		Role:         role,
	}
	require.NoError(t, e.db.Create(&user).Error)

	token, err := utils.GenerateToken(user.ID, user.Role, time.Hour)
	require.NoError(t, err)
	return &user, token
}

func (e *testEnv) createCategory(t *testing.T, name string) *models.Category {
	t.Helper()

	slugVal, err := models.UniqueSlug(e.db, &models.Category{}, name, 0)
	require.NoError(t, err)
	cat := models.Category{Name: name, Slug: slugVal}
	require.NoError(t, e.db.Create(&cat).Error)
	return &cat
}

func (e *testEnv) createPost(t *testing.T, author *models.User, title, status string, cats ...models.Category) *models.Post {
	t.Helper()

	slugVal, err := models.UniqueSlug(e.db, &models.Post{}, title, 0)
	require.NoError(t, err)
	post := models.Post{
		Title:      title,
		Slug:       slugVal,
		Content:    "Body for " + title,
		Status:     status,
		AuthorID:   author.ID,
		Categories: cats,
	}
	require.NoError(t, e.db.Create(&post).Error)
	return &post
}

func requireStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	require.Equal(t, want, w.Code, "body: %s", w.Body.String())
}
