package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/flower-explorer/vistool/internal/catalog"
	"github.com/flower-explorer/vistool/internal/conf"
	"github.com/flower-explorer/vistool/internal/datastore"
	"github.com/flower-explorer/vistool/internal/errors"
)

// MockDataStore overrides the lookups exercised by the error mapping tests.
// Calling any other method panics on the nil embedded interface.
type MockDataStore struct {
	datastore.Interface
	mock.Mock
}

func (m *MockDataStore) StudySites(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockDataStore) Image(ctx context.Context, id int64) (*datastore.Image, error) {
	args := m.Called(ctx, id)
	img, _ := args.Get(0).(*datastore.Image)
	return img, args.Error(1)
}

func (m *MockDataStore) TableCounts(ctx context.Context) (map[string]int64, error) {
	args := m.Called(ctx)
	counts, _ := args.Get(0).(map[string]int64)
	return counts, args.Error(1)
}

func setupMockEnvironment(t *testing.T) (*echo.Echo, *MockDataStore) {
	t.Helper()
	mockDS := new(MockDataStore)
	e := echo.New()
	New(e, catalog.New(mockDS, catalog.Options{Root: t.TempDir()}, nil, nil), nil, &conf.Settings{}, nil, nil)
	return e, mockDS
}

func TestCatalogErrorMapping(t *testing.T) {
	unavailable := errors.New(errors.ErrStorageUnavailable).
		Component("datastore").
		Category(errors.CategoryStorageUnavailable).
		Build()
	notFound := errors.Newf("image not found").
		Category(errors.CategoryNotFound).
		Build()

	tests := []struct {
		name string
		err  error
		code int
	}{
		{"generic failure", errors.NewStd("disk on fire"), http.StatusInternalServerError},
		{"storage unavailable", unavailable, http.StatusServiceUnavailable},
		{"not found", notFound, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, mockDS := setupMockEnvironment(t)
			mockDS.On("Image", mock.Anything, int64(7)).Return(nil, tt.err)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/images/7", http.NoBody)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tt.code, rec.Code)
			mockDS.AssertExpectations(t)
		})
	}
}

func TestListErrorIsNotCached(t *testing.T) {
	e, mockDS := setupMockEnvironment(t)
	mockDS.On("StudySites", mock.Anything).Return([]string(nil), errors.NewStd("timeout")).Once()
	mockDS.On("StudySites", mock.Anything).Return([]string{"Meise-A"}, nil).Once()

	for _, code := range []int{http.StatusInternalServerError, http.StatusOK, http.StatusOK} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/sites", http.NoBody)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		require.Equal(t, code, rec.Code)
	}
	// The third request is answered from the list cache
	mockDS.AssertNumberOfCalls(t, "StudySites", 2)
}

func TestHealthCheckDegraded(t *testing.T) {
	e, mockDS := setupMockEnvironment(t)
	mockDS.On("TableCounts", mock.Anything).Return(nil, errors.NewStd("database is closed"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "degraded")
}
