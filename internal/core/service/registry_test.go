package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olusolaa/sandbox-differ/internal/core/ports/mocks"
	"github.com/olusolaa/sandbox-differ/internal/core/service"
	"github.com/olusolaa/sandbox-differ/internal/errors"
)

func TestComponentRegistry_Fetchers(t *testing.T) {
	r := service.NewComponentRegistry()
	assert.True(t, errors.Is(r.RegisterFetcher(nil), errors.CodeInternal))

	fetcher := mocks.NewTreeFetcher(t)
	fetcher.On("Type").Return("local")
	require.NoError(t, r.RegisterFetcher(fetcher))
	assert.Error(t, r.RegisterFetcher(fetcher), "duplicate type")

	got, err := r.GetFetcher("local")
	require.NoError(t, err)
	assert.Same(t, fetcher, got)

	_, err = r.GetFetcher("adb")
	assert.True(t, errors.Is(err, errors.CodeConfigValidation))

	unnamed := mocks.NewTreeFetcher(t)
	unnamed.On("Type").Return("")
	assert.Error(t, r.RegisterFetcher(unnamed))
}

func TestComponentRegistry_Sinks(t *testing.T) {
	r := service.NewComponentRegistry()
	assert.Empty(t, r.Sinks())

	text := mocks.NewReportSink(t)
	text.On("Type").Return("text")
	s3 := mocks.NewReportSink(t)
	s3.On("Type").Return("s3")

	require.NoError(t, r.RegisterSink(text))
	require.NoError(t, r.RegisterSink(s3))
	assert.Error(t, r.RegisterSink(text))

	sinks := r.Sinks()
	require.Len(t, sinks, 2)
	assert.Same(t, text, sinks[0])
	assert.Same(t, s3, sinks[1])

	_, err := r.GetSink("json")
	assert.True(t, errors.Is(err, errors.CodeConfigValidation))
}
