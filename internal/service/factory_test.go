package service

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagepilot/internal/browser"
	"github.com/xkilldash9x/pagepilot/internal/mocks"
	"github.com/xkilldash9x/pagepilot/internal/observability"
)

func newMockedFactory(driver *mocks.Driver) *concreteFactory {
	return &concreteFactory{
		newDriver: func(install bool, logger *zap.Logger) browser.Driver { return driver },
	}
}

func TestFactoryCreateAssemblesComponents(t *testing.T) {
	driver := &mocks.Driver{}
	factory := newMockedFactory(driver)

	components, err := factory.Create(t.Context(), testServiceConfig(t), observability.GetLogger())
	require.NoError(t, err)
	defer components.Shutdown()

	require.NotNil(t, components.Manager)
	require.NotNil(t, components.Handler)
	assert.True(t, driver.Started())

	// The routes are mounted and answer over the assembled handler.
	rec := httptest.NewRecorder()
	components.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestFactoryCreateFailsWhenDriverFails(t *testing.T) {
	driver := &mocks.Driver{StartErr: errors.New("no chromium build found")}
	factory := newMockedFactory(driver)

	_, err := factory.Create(t.Context(), testServiceConfig(t), observability.GetLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start browser manager")
}
