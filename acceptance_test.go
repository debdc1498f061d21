package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kendall-kelly/production-tracker-api/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestServerStartup verifies the full router can be built
func TestServerStartup(t *testing.T) {
	router := newTestRouter()
	assert.NotNil(t, router, "Router should be initialized")
	assert.NotEmpty(t, router.Routes())
}

// TestAPIHealthEndpointAcceptance calls the health endpoint over a real listener
func TestAPIHealthEndpointAcceptance(t *testing.T) {
	server := httptest.NewServer(newTestRouter())
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/v1/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode, "Health endpoint should return 200 OK")

	var response struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&response), "Response should be valid JSON")
	assert.True(t, response.Success, "Success field should be true")
	assert.Equal(t, "Production Tracker API is running", response.Message)
}

// TestHealthEndpointAvailability tests that the health endpoint answers consistently
func TestHealthEndpointAvailability(t *testing.T) {
	server := httptest.NewServer(newTestRouter())
	defer server.Close()

	for i := 0; i < 5; i++ {
		resp, err := http.Get(server.URL + "/api/v1/health")
		require.NoError(t, err)

		var response map[string]interface{}
		assert.NoError(t, json.NewDecoder(resp.Body).Decode(&response))
		resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode, fmt.Sprintf("Request %d should succeed", i+1))
		assert.Equal(t, true, response["success"], fmt.Sprintf("Request %d should have success=true", i+1))
	}
}

// TestHealthEndpointResponseTime tests that the endpoint responds quickly
func TestHealthEndpointResponseTime(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()

	start := time.Now()
	router.ServeHTTP(w, req)
	duration := time.Since(start)

	assert.Less(t, duration, 100*time.Millisecond, "Health endpoint should respond in less than 100ms")
}

// TestProfileAcceptance signs in as a seeded user through the full middleware chain
func TestProfileAcceptance(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixture := testutil.NewFixture(t, db, "Acme")

	server := httptest.NewServer(newTestRouter())
	defer server.Close()

	req, err := http.NewRequest("GET", server.URL+"/api/v1/users/me", nil)
	require.NoError(t, err)
	req.Header.Set("X-Test-User", fixture.Subject("worker"))

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var response struct {
		Success bool `json:"success"`
		Data    struct {
			User struct {
				Email string `json:"email"`
			} `json:"user"`
			Company struct {
				Name string `json:"name"`
			} `json:"company"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&response))
	assert.True(t, response.Success)
	assert.Equal(t, fixture.Worker.Email, response.Data.User.Email)
	assert.Equal(t, "Acme", response.Data.Company.Name)
}
