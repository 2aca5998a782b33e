package handlers

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/insight/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_Health(t *testing.T) {
	app := newTestApp(nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var healthResp models.HealthResponse
	require.NoError(t, json.Unmarshal(body, &healthResp))
	assert.Equal(t, "ok", healthResp.Status)
	assert.Equal(t, Version, healthResp.Version)
	assert.NotEmpty(t, healthResp.Timestamp)
	assert.Equal(t, "influxql", healthResp.Dialect)
	assert.Equal(t, 10, healthResp.MinSamples)
	assert.False(t, healthResp.AsyncJobs)
}

func TestHandler_HealthReportsAsyncJobs(t *testing.T) {
	app := newTestApp(&stubSubmitter{})

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)

	var healthResp models.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&healthResp))
	assert.True(t, healthResp.AsyncJobs)
}

func TestHandler_NotFound(t *testing.T) {
	app := newTestApp(nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/nonexistent", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	detail := decodeError(t, body)
	assert.Equal(t, "NOT_FOUND", detail.Code)
	assert.Equal(t, "/nonexistent", detail.Path)
	assert.Equal(t, "no route for GET /nonexistent", detail.Message)
}
