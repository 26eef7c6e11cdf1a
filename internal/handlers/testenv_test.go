package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/bianchibruno/comp0034-fyp/internal/handlers"
	"github.com/bianchibruno/comp0034-fyp/internal/hash"
	"github.com/bianchibruno/comp0034-fyp/internal/middleware/auth"
	"github.com/bianchibruno/comp0034-fyp/internal/models"
	"github.com/bianchibruno/comp0034-fyp/internal/token"
	httpserver "github.com/bianchibruno/comp0034-fyp/internal/transport/http"
)

type testEnv struct {
	T      *testing.T
	E      *echo.Echo
	DB     *gorm.DB
	Tokens *token.Service
}

// newTestEnv wires the full application against a per-test in-memory
// database, so requests exercise the real router and guards.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Request{}))

	tokens := token.New([]byte("test-secret"))

	e := echo.New()
	httpserver.Register(e, &httpserver.Deps{
		AuthHandler:    &handlers.AuthHandler{DB: db, Tokens: tokens},
		RequestHandler: &handlers.RequestHandler{DB: db},
		Guard:          auth.NewGuard(db, tokens),
	})

	return &testEnv{T: t, E: e, DB: db, Tokens: tokens}
}

func (env *testEnv) do(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	env.T.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(env.T, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	env.E.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) decode(rec *httptest.ResponseRecorder) map[string]interface{} {
	env.T.Helper()

	var body map[string]interface{}
	require.NoError(env.T, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func (env *testEnv) message(rec *httptest.ResponseRecorder) string {
	env.T.Helper()

	msg, _ := env.decode(rec)["message"].(string)
	return msg
}

// createUser inserts a user directly and returns it.
func (env *testEnv) createUser(email, password, role string) models.User {
	env.T.Helper()

	pwHash, err := hash.HashPassword(password)
	require.NoError(env.T, err)
	user := models.User{Email: email, PasswordHash: pwHash, Role: role}
	require.NoError(env.T, env.DB.Create(&user).Error)
	return user
}

// loginToken registers nothing; it logs the given credentials in and
// returns the issued token.
func (env *testEnv) loginToken(email, password string) string {
	env.T.Helper()

	rec := env.do(http.MethodPost, "/login", map[string]string{"email": email, "password": password}, nil)
	require.Equal(env.T, http.StatusCreated, rec.Code)

	tok, _ := env.decode(rec)["token"].(string)
	require.NotEmpty(env.T, tok)
	return tok
}

func bearer(tok string) map[string]string {
	return map[string]string{echo.HeaderAuthorization: "Bearer " + tok}
}

func (env *testEnv) createRequest(fields map[string]string) models.Request {
	env.T.Helper()

	req := models.Request{
		CaseType:               "FOIA Case",
		Status:                 "Open",
		RequestReceivedYear:    "2018",
		RequestReceivedQuarter: "Quarter 4",
		RequestReceivedMonth:   "November",
		CaseActiveDaysGrouped:  "More than 60 days used",
	}
	if v, ok := fields["status"]; ok {
		req.Status = v
	}
	if v, ok := fields["case_type"]; ok {
		req.CaseType = v
	}
	require.NoError(env.T, env.DB.Create(&req).Error)
	return req
}
