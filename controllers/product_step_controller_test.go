package controllers_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/kendall-kelly/production-tracker-api/services"
	"github.com/kendall-kelly/production-tracker-api/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListProductSteps(t *testing.T) {
	api := setupAPI(t)
	f := api.fixture
	frame := f.CreateProduct(t, "Frame", f.Worker.ID, 0)
	empty := f.CreateProduct(t, "Empty")

	w, response := api.do(http.MethodGet, fmt.Sprintf("/api/v1/product-steps/product/%d", frame.ID), "manager", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	steps := dataList(t, response)
	require.Len(t, steps, 2)
	first := steps[0].(map[string]interface{})
	assert.Equal(t, "Frame step 1", first["name"])
	assert.Equal(t, f.Worker.Email, first["responsible_user"].(map[string]interface{})["email"])

	w, response = api.do(http.MethodGet, fmt.Sprintf("/api/v1/product-steps/product/%d", empty.ID), "manager", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, dataList(t, response))

	w, response = api.do(http.MethodGet, "/api/v1/product-steps/product/9999", "manager", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, services.CodeProductNotFound, errorCode(response))

	w, response = api.do(http.MethodGet, fmt.Sprintf("/api/v1/product-steps/product/%d", frame.ID), "worker", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(response))
}

func TestReorderProductSteps(t *testing.T) {
	api := setupAPI(t)
	f := api.fixture
	frame := f.CreateProduct(t, "Frame", f.Worker.ID, f.Worker.ID, f.Worker2.ID)
	s1, s2, s3 := frame.Steps[0].ID, frame.Steps[1].ID, frame.Steps[2].ID
	path := fmt.Sprintf("/api/v1/product-steps/product/%d/reorder", frame.ID)

	w, response := api.do(http.MethodPut, path, "manager", map[string]interface{}{
		"steps": []map[string]interface{}{
			{"id": s1, "step_number": 3},
			{"id": s2, "step_number": 1},
			{"id": s3, "step_number": 2},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	steps := dataList(t, response)
	require.Len(t, steps, 3)
	gotIDs := make([]uint, len(steps))
	for i, s := range steps {
		step := s.(map[string]interface{})
		gotIDs[i] = uint(step["id"].(float64))
		assert.Equal(t, float64(i+1), step["step_number"])
	}
	assert.Equal(t, []uint{s2, s3, s1}, gotIDs)

	other := testutil.NewFixture(t, f.DB, "Globex")
	foreign := other.CreateProduct(t, "Foreign", other.Worker.ID)
	w, response = api.do(http.MethodPut, path, "manager", map[string]interface{}{
		"steps": []map[string]interface{}{
			{"id": s1, "step_number": 1},
			{"id": s2, "step_number": 2},
			{"id": foreign.Steps[0].ID, "step_number": 3},
		},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, services.CodeStepNotFound, errorCode(response))

	w, response = api.do(http.MethodPut, path, "manager", map[string]interface{}{
		"steps": []map[string]interface{}{{"step_number": 1}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, services.CodeValidation, errorCode(response))
}
