package acceptance

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

// serverSuite runs the workflow API on a real listener for each test
type serverSuite struct {
	suite.Suite
	server     *httptest.Server
	db         *gorm.DB
	fixture    *testutil.Fixture
	dispatcher *services.Dispatcher
}

func (s *serverSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	testutil.MustSetTestEnvironment(s.T())
}

func (s *serverSuite) SetupTest() {
	s.db = testutil.SetupTestDB(s.T())
	s.fixture = testutil.NewFixture(s.T(), s.db, "Acme")
	s.dispatcher = services.InitDispatcher(services.NewDBNotifier(s.db))

	router := gin.New()
	router.Use(gin.Recovery())
	routes.Register(router.Group("/api/v1"), testutil.HeaderAuthMiddleware(), middleware.LoadRequester())
	s.server = httptest.NewServer(router)
}

func (s *serverSuite) TearDownTest() {
	s.server.Close()
	s.dispatcher.Wait()
	services.SetDispatcher(nil)
}

// makeRequest sends a JSON request as the fixture user named by handle
func (s *serverSuite) makeRequest(handle, method, path string, body interface{}) (*http.Response, map[string]interface{}) {
	var reader io.Reader = http.NoBody
	if body != nil {
		payload, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, s.server.URL+path, reader)
	s.Require().NoError(err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if handle != "" {
		req.Header.Set("X-Test-User", s.fixture.Subject(handle))
	}
	return s.do(req)
}

func (s *serverSuite) do(req *http.Request) (*http.Response, map[string]interface{}) {
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	var responseData map[string]interface{}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&responseData))
	return resp, responseData
}

func (s *serverSuite) data(response map[string]interface{}) map[string]interface{} {
	data, ok := response["data"].(map[string]interface{})
	s.Require().True(ok, "data is not an object: %v", response["data"])
	return data
}

func (s *serverSuite) list(response map[string]interface{}) []interface{} {
	data, ok := response["data"].([]interface{})
	s.Require().True(ok, "data is not a list: %v", response["data"])
	return data
}

func errorCode(response map[string]interface{}) string {
	errObj, _ := response["error"].(map[string]interface{})
	code, _ := errObj["code"].(string)
	return code
}

func idOf(object interface{}) uint {
	return uint(object.(map[string]interface{})["id"].(float64))
}
