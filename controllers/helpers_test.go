package controllers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/production-tracker-api/middleware"
	"github.com/kendall-kelly/production-tracker-api/routes"
	"github.com/kendall-kelly/production-tracker-api/services"
	"github.com/kendall-kelly/production-tracker-api/tests/testutil"
	"github.com/stretchr/testify/require"
)

type apiTest struct {
	t        *testing.T
	router   *gin.Engine
	fixture  *testutil.Fixture
	notifier *services.MockNotifier
}

// setupAPI mounts the full API over a fresh database. Requests authenticate
// as the fixture user whose handle is passed to do.
func setupAPI(t *testing.T) *apiTest {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.SetupTestDB(t)
	fixture := testutil.NewFixture(t, db, "Acme")

	previous := services.GetDispatcher()
	notifier := services.NewMockNotifier()
	dispatcher := notifier.SetAsMockForTesting()
	t.Cleanup(func() {
		dispatcher.Wait()
		services.SetDispatcher(previous)
	})

	router := gin.New()
	routes.Register(router.Group("/api/v1"), testutil.HeaderAuthMiddleware(), middleware.LoadRequester())

	return &apiTest{t: t, router: router, fixture: fixture, notifier: notifier}
}

func (a *apiTest) do(method, path, handle string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	a.t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if handle != "" {
		req.Header.Set("X-Test-User", a.fixture.Subject(handle))
	}
	return a.serve(req)
}

func (a *apiTest) serve(req *http.Request) (*httptest.ResponseRecorder, map[string]interface{}) {
	a.t.Helper()

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var response map[string]interface{}
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &response), "body: %s", w.Body.String())
	return w, response
}

func errorCode(response map[string]interface{}) string {
	errObj, ok := response["error"].(map[string]interface{})
	if !ok {
		return ""
	}
	code, _ := errObj["code"].(string)
	return code
}

func dataMap(t *testing.T, response map[string]interface{}) map[string]interface{} {
	t.Helper()
	data, ok := response["data"].(map[string]interface{})
	require.True(t, ok, "data is not an object: %v", response["data"])
	return data
}

func dataList(t *testing.T, response map[string]interface{}) []interface{} {
	t.Helper()
	data, ok := response["data"].([]interface{})
	require.True(t, ok, "data is not a list: %v", response["data"])
	return data
}
