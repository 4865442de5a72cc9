package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"churn-detection/internal/api"
	"churn-detection/internal/artifact/artifacttest"
	"churn-detection/internal/cfg"
	"churn-detection/internal/common"
	"churn-detection/internal/customer"
	"churn-detection/internal/inference"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "client-secret"

func newAPI(t *testing.T, withBoosted bool) *httptest.Server {
	t.Helper()

	svc, err := inference.NewService(artifacttest.Store(t, withBoosted), nil, 8)
	require.NoError(t, err)

	srv := api.NewServer(cfg.Settings{
		AppName:        "Churn-Detection",
		Version:        "1.0",
		SecretKeyToken: secret,
		RequestTimeout: 5 * time.Second,
	}, svc, nil)

	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts
}

func input(t *testing.T, row map[string]any) customer.Input {
	t.Helper()
	rec, err := customer.FromMap(row)
	require.NoError(t, err)
	return rec.Input()
}

func TestClient_Predict(t *testing.T) {
	ts := newAPI(t, true)
	c := New(ts.URL+"/", secret, time.Second)

	out, err := c.Predict(context.Background(), common.ModelXGBoost, input(t, artifacttest.HighRisk()))
	require.NoError(t, err)
	assert.True(t, out.ChurnPrediction)
	assert.Greater(t, out.ChurnProbability, 0.5)
	assert.Equal(t, common.ModelXGBoost, out.ServedBy)
}

func TestClient_PredictAliased(t *testing.T) {
	ts := newAPI(t, false)
	c := New(ts.URL, secret, time.Second)

	out, err := c.Predict(context.Background(), common.ModelXGBoost, input(t, artifacttest.LowRisk()))
	require.NoError(t, err)
	assert.False(t, out.ChurnPrediction)
	assert.Equal(t, common.ModelForest, out.ServedBy)
}

func TestClient_Unauthorized(t *testing.T) {
	ts := newAPI(t, true)
	c := New(ts.URL, "wrong", time.Second)

	_, err := c.Predict(context.Background(), common.ModelForest, input(t, artifacttest.LowRisk()))
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Invalid API Key", apiErr.Detail)
	assert.Equal(t, "churn api: 401 Invalid API Key", apiErr.Error())
}

func TestClient_ValidationError(t *testing.T) {
	ts := newAPI(t, true)
	c := New(ts.URL, secret, time.Second)

	in := input(t, artifacttest.LowRisk())
	age := 10
	in.Age = &age

	_, err := c.Predict(context.Background(), common.ModelForest, in)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	require.Len(t, apiErr.Fields, 1)
	assert.Equal(t, []string{"body", "Age"}, apiErr.Fields[0].Loc)
	assert.Contains(t, apiErr.Error(), "body.Age: Input should be greater than or equal to 18")
}

func TestClient_MissingFieldIsSentAsNull(t *testing.T) {
	ts := newAPI(t, true)
	c := New(ts.URL, secret, time.Second)

	in := input(t, artifacttest.LowRisk())
	in.Tenure = nil

	_, err := c.Predict(context.Background(), common.ModelForest, in)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Len(t, apiErr.Fields, 1)
	assert.Equal(t, "missing", apiErr.Fields[0].Type)
}

func TestClient_UnknownModel(t *testing.T) {
	ts := newAPI(t, true)
	c := New(ts.URL, secret, time.Second)

	_, err := c.Predict(context.Background(), "svm", input(t, artifacttest.LowRisk()))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestClient_HealthAndModelInfo(t *testing.T) {
	ts := newAPI(t, false)
	c := New(ts.URL, secret, time.Second)

	health, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", health["status"])

	info, err := c.ModelInfo(context.Background())
	require.NoError(t, err)
	assert.Contains(t, info, "models")

	_, err = New(ts.URL, "", time.Second).ModelInfo(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestClient_ConnectionError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	_, err := New(url, secret, 200*time.Millisecond).Predict(context.Background(), common.ModelForest, customer.Input{})
	require.Error(t, err)

	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}
