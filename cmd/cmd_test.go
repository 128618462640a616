package main

import (
	"bytes"
	"context"
	"iter"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olusolaa/sandbox-differ/internal/core/domain"
	apperrors "github.com/olusolaa/sandbox-differ/internal/errors"
)

func TestConfirmOverwrite(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{" yes ", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"maybe\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var prompt bytes.Buffer
			got, err := confirmOverwrite(strings.NewReader(tt.input), &prompt, "app.x")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, prompt.String(), "Overwrite? [y/N]")
		})
	}
}

func summaries(entries ...any) iter.Seq2[domain.BaselineSummary, error] {
	return func(yield func(domain.BaselineSummary, error) bool) {
		for _, e := range entries {
			var ok bool
			switch v := e.(type) {
			case error:
				ok = yield(domain.BaselineSummary{}, v)
			case domain.BaselineSummary:
				ok = yield(v, nil)
			}
			if !ok {
				return
			}
		}
	}
}

func TestPrintBaselines(t *testing.T) {
	created := time.Date(2026, 10, 19, 10, 15, 0, 0, time.UTC)

	t.Run("Empty", func(t *testing.T) {
		var out, errOut bytes.Buffer
		require.NoError(t, printBaselines(&out, &errOut, summaries()))
		assert.Equal(t, "No baselines stored.\n", out.String())
		assert.Empty(t, errOut.String())
	})

	t.Run("Rows And Broken Entries", func(t *testing.T) {
		var out, errOut bytes.Buffer
		err := printBaselines(&out, &errOut, summaries(
			domain.BaselineSummary{Target: "app.a", Metadata: domain.Metadata{CreatedAt: created, Environment: map[string]string{
				domain.KeyDevice: "pixel-7", domain.KeyOSVersion: "14", domain.KeyTargetVersion: "2.1",
			}}},
			apperrors.NewUserFacing(apperrors.CodeIO, "baseline app.b is unreadable", ""),
			domain.BaselineSummary{Target: "app.c", Metadata: domain.Metadata{CreatedAt: created}},
		))
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		require.Len(t, lines, 3)
		assert.True(t, strings.HasPrefix(lines[0], "TARGET"))
		assert.Contains(t, lines[1], "app.a")
		assert.Contains(t, lines[1], "2026-10-19T10:15:00Z")
		assert.Contains(t, lines[1], "pixel-7")
		assert.Contains(t, lines[2], "app.c")
		assert.Equal(t, "WARNING: baseline app.b is unreadable\n", errOut.String())
	})

	t.Run("Cancelled", func(t *testing.T) {
		var out, errOut bytes.Buffer
		err := printBaselines(&out, &errOut, summaries(context.Canceled))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestPrintError(t *testing.T) {
	t.Run("User Facing", func(t *testing.T) {
		var buf bytes.Buffer
		printError(&buf, apperrors.NewUserFacing(apperrors.CodeBaselineNotFound, "no baseline for app.x", "Create one first."))
		assert.Equal(t, "ERROR: no baseline for app.x\nSuggestion: Create one first.\n", buf.String())
	})

	t.Run("Internal", func(t *testing.T) {
		var buf bytes.Buffer
		printError(&buf, apperrors.New(apperrors.CodeInternal, "boom"))
		assert.Contains(t, buf.String(), "ERROR: An unexpected error occurred.")
		assert.NotContains(t, buf.String(), "boom")
	})

	t.Run("Usage", func(t *testing.T) {
		var buf bytes.Buffer
		printError(&buf, assert.AnError)
		assert.Contains(t, buf.String(), assert.AnError.Error())
		assert.Contains(t, buf.String(), "--help")
	})
}
