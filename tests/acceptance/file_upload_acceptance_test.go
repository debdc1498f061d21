package acceptance

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/kendall-kelly/production-tracker-api/models"
	"github.com/kendall-kelly/production-tracker-api/services"
	"github.com/kendall-kelly/production-tracker-api/tests/testutil"
	"github.com/stretchr/testify/suite"
)

// FileUploadAcceptanceTestSuite covers proof-of-work photos taken on the shop floor
type FileUploadAcceptanceTestSuite struct {
	serverSuite
	store *services.MockObjectStore
}

// SetupTest runs before each test
func (s *FileUploadAcceptanceTestSuite) SetupTest() {
	s.serverSuite.SetupTest()
	s.store = services.NewMockObjectStore()
	services.InitImageService(s.store)
}

// TearDownTest runs after each test
func (s *FileUploadAcceptanceTestSuite) TearDownTest() {
	services.SetImageService(nil)
	s.serverSuite.TearDownTest()
}

func (s *FileUploadAcceptanceTestSuite) uploadProof(handle string, stepID uint, filename string) (*http.Response, map[string]interface{}) {
	body, contentType := testutil.MultipartImage(s.T(), filename, []byte("\x89PNG fake image"))
	req, err := http.NewRequest(http.MethodPost, fmt.Sprintf("%s/api/v1/my-jobs/%d/attachment", s.server.URL, stepID), body)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Test-User", s.fixture.Subject(handle))
	return s.do(req)
}

// TestCompleteFileUploadWorkflow_Acceptance: a worker photographs the finished
// step, retakes the photo and completes the step
func (s *FileUploadAcceptanceTestSuite) TestCompleteFileUploadWorkflow_Acceptance() {
	f := s.fixture
	frame := f.CreateProduct(s.T(), "Frame", f.Worker.ID)

	resp, response := s.makeRequest("manager", http.MethodPost, "/api/v1/orders", map[string]interface{}{
		"customer_id": f.Customer.ID,
		"products":    []map[string]interface{}{{"product_id": frame.ID}},
	})
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	stepID := idOf(s.data(response)["steps"].([]interface{})[0])

	resp, _ = s.makeRequest("worker", http.MethodPost, fmt.Sprintf("/api/v1/my-jobs/%d/start", stepID), nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	resp, response = s.uploadProof("worker", stepID, "first.png")
	s.Require().Equal(http.StatusOK, resp.StatusCode, "response: %v", response)
	firstKey := s.data(response)["image_s3_key"].(string)
	s.NotEmpty(s.data(response)["image_url"])

	resp, response = s.uploadProof("worker", stepID, "retake.png")
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	secondKey := s.data(response)["image_s3_key"].(string)
	s.NotEqual(firstKey, secondKey)
	s.Equal([]string{secondKey}, s.store.Keys())

	resp, response = s.makeRequest("worker", http.MethodPost, fmt.Sprintf("/api/v1/my-jobs/%d/complete", stepID), nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal(true, response["orderCompleted"])

	// Attachments stay possible after completion
	resp, _ = s.uploadProof("worker", stepID, "after.png")
	s.Equal(http.StatusOK, resp.StatusCode)

	var step models.OrderStep
	s.Require().NoError(s.db.First(&step, stepID).Error)
	s.Require().NotNil(step.ImageS3Key)
	s.Contains(*step.ImageS3Key, "after.png")
}

// TestFileUploadValidation_Acceptance: only PNG photos are accepted
func (s *FileUploadAcceptanceTestSuite) TestFileUploadValidation_Acceptance() {
	f := s.fixture
	frame := f.CreateProduct(s.T(), "Frame", f.Worker.ID)

	resp, response := s.makeRequest("manager", http.MethodPost, "/api/v1/orders", map[string]interface{}{
		"customer_id": f.Customer.ID,
		"products":    []map[string]interface{}{{"product_id": frame.ID}},
	})
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	stepID := idOf(s.data(response)["steps"].([]interface{})[0])

	for _, filename := range []string{"photo.jpg", "photo.gif", "photo"} {
		resp, response = s.uploadProof("worker", stepID, filename)
		s.Equal(http.StatusBadRequest, resp.StatusCode, filename)
		s.Equal("INVALID_FILE_FORMAT", errorCode(response), filename)
	}
	s.Empty(s.store.Keys())
}

func TestFileUploadAcceptanceSuite(t *testing.T) {
	suite.Run(t, new(FileUploadAcceptanceTestSuite))
}
