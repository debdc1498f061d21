package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/production-tracker-api/middleware"
	"github.com/kendall-kelly/production-tracker-api/routes"
	"github.com/kendall-kelly/production-tracker-api/services"
	"github.com/kendall-kelly/production-tracker-api/tests/testutil"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

// workflowSuite gives every test a fresh tenant and the complete workflow API.
// Requests authenticate as the fixture user named by handle.
type workflowSuite struct {
	suite.Suite
	router     *gin.Engine
	db         *gorm.DB
	fixture    *testutil.Fixture
	dispatcher *services.Dispatcher
}

func (s *workflowSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	testutil.MustSetTestEnvironment(s.T())
}

func (s *workflowSuite) SetupTest() {
	s.db = testutil.SetupTestDB(s.T())
	s.fixture = testutil.NewFixture(s.T(), s.db, "Acme")

	// Notifications are stored for real so tests can read them back
	s.dispatcher = services.InitDispatcher(services.NewDBNotifier(s.db))

	s.router = gin.New()
	routes.Register(s.router.Group("/api/v1"), testutil.HeaderAuthMiddleware(), middleware.LoadRequester())
}

func (s *workflowSuite) TearDownTest() {
	s.dispatcher.Wait()
	services.SetDispatcher(nil)
}

// as sends a request authenticated as handle of fixture f
func (s *workflowSuite) as(f *testutil.Fixture, handle, method, path string, body interface{}) (int, map[string]interface{}) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if handle != "" {
		req.Header.Set("X-Test-User", f.Subject(handle))
	}
	return s.serve(req)
}

func (s *workflowSuite) request(handle, method, path string, body interface{}) (int, map[string]interface{}) {
	return s.as(s.fixture, handle, method, path, body)
}

func (s *workflowSuite) serve(req *http.Request) (int, map[string]interface{}) {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var response map[string]interface{}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response), "body: %s", w.Body.String())
	return w.Code, response
}

func errorCode(response map[string]interface{}) string {
	errObj, _ := response["error"].(map[string]interface{})
	code, _ := errObj["code"].(string)
	return code
}

func (s *workflowSuite) data(response map[string]interface{}) map[string]interface{} {
	data, ok := response["data"].(map[string]interface{})
	s.Require().True(ok, "data is not an object: %v", response["data"])
	return data
}

func (s *workflowSuite) list(response map[string]interface{}) []interface{} {
	data, ok := response["data"].([]interface{})
	s.Require().True(ok, "data is not a list: %v", response["data"])
	return data
}

// orderSteps returns the ids of the order's steps as the API lists them
func (s *workflowSuite) orderSteps(order map[string]interface{}) []uint {
	steps, ok := order["steps"].([]interface{})
	s.Require().True(ok)
	ids := make([]uint, len(steps))
	for i, step := range steps {
		ids[i] = uint(step.(map[string]interface{})["id"].(float64))
	}
	return ids
}

func idOf(object map[string]interface{}) uint {
	return uint(object["id"].(float64))
}
