package app_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olusolaa/sandbox-differ/internal/app"
	"github.com/olusolaa/sandbox-differ/internal/core/domain"
	"github.com/olusolaa/sandbox-differ/internal/errors"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newViper(t *testing.T) (*viper.Viper, string, string) {
	t.Helper()
	mount := t.TempDir()
	output := t.TempDir()

	v := viper.New()
	app.RegisterDefaults(v)
	v.Set("store.dir", output)
	v.Set("acquisition.local.mount_root", mount)
	v.Set("reporting.sinks", "text,json")
	v.Set("metadata", map[string]string{"lab": "east"})
	return v, mount, output
}

func TestLoadConfig(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		cfg, err := app.LoadConfig(context.Background(), viper.New())
		require.NoError(t, err)
		assert.Equal(t, "/data/data/{target}", cfg.Acquisition.SourceTemplate)
	})

	t.Run("String Values Are Decoded", func(t *testing.T) {
		v := viper.New()
		v.Set("acquisition.timeout", "90s")
		v.Set("reporting.sinks", "text,json")
		cfg, err := app.LoadConfig(context.Background(), v)
		require.NoError(t, err)
		assert.Equal(t, 90*time.Second, cfg.Acquisition.Timeout)
		assert.Equal(t, []string{"text", "json"}, cfg.Reporting.Sinks)
	})

	t.Run("Environment", func(t *testing.T) {
		t.Setenv("SANDBOX_DIFFER_SETTINGS_CONCURRENCY", "3")
		v := viper.New()
		app.RegisterDefaults(v)
		v.SetEnvPrefix("SANDBOX_DIFFER")
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()
		cfg, err := app.LoadConfig(context.Background(), v)
		require.NoError(t, err)
		assert.Equal(t, 3, cfg.Settings.Concurrency)
	})

	t.Run("Invalid", func(t *testing.T) {
		v := viper.New()
		v.Set("settings.log_level", "loud")
		_, err := app.LoadConfig(context.Background(), v)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.CodeConfigValidation))
		msg, _, ok := errors.GetUserFacingMessage(err)
		require.True(t, ok)
		assert.Contains(t, msg, "LogLevel")
	})
}

func TestBuildApplication_EndToEnd(t *testing.T) {
	ctx := context.Background()
	v, mount, output := newViper(t)
	app1 := filepath.Join(mount, "data", "data", "app.x")
	writeFile(t, filepath.Join(app1, "a.txt"), "v1")
	writeFile(t, filepath.Join(app1, "b.txt"), "x")
	writeFile(t, filepath.Join(app1, "shared_prefs", "s.xml"), "<map>\n<int name=\"n\" value=\"1\"/>\n</map>\n")

	var console bytes.Buffer
	application, err := app.BuildApplicationFromViper(ctx, v, app.Options{
		Console:   &console,
		LogOutput: io.Discard,
		Metadata:  map[string]string{domain.KeyDevice: "pixel-7"},
	})
	require.NoError(t, err)

	baseline, err := application.CreateBaseline(ctx, "app.x", "", false)
	require.NoError(t, err)
	assert.Len(t, baseline.Fingerprints, 3)
	assert.Equal(t, "pixel-7", baseline.Metadata.Environment[domain.KeyDevice])
	assert.Equal(t, "east", baseline.Metadata.Environment["lab"])
	assert.FileExists(t, filepath.Join(output, "baselines", "app.x", "metadata.json"))

	require.NoError(t, os.WriteFile(filepath.Join(app1, "a.txt"), []byte("v2"), 0o644))
	require.NoError(t, os.Remove(filepath.Join(app1, "b.txt")))
	writeFile(t, filepath.Join(app1, "c.txt"), "y")
	writeFile(t, filepath.Join(app1, "shared_prefs", "s.xml"), "<map>\n<int name=\"n\" value=\"2\"/>\n</map>\n")

	report, err := application.Compare(ctx, "app.x", "")
	require.NoError(t, err)
	assert.Len(t, report.Added(), 1)
	assert.Len(t, report.Removed(), 1)
	assert.Len(t, report.Modified(), 2)
	require.Len(t, report.Preferences, 1)

	reports, err := os.ReadDir(filepath.Join(output, "reports", "app.x"))
	require.NoError(t, err)
	var exts []string
	for _, r := range reports {
		exts = append(exts, filepath.Ext(r.Name()))
	}
	assert.ElementsMatch(t, []string{".txt", ".json"}, exts)
	assert.Contains(t, console.String(), "Comparison of app.x")

	_, err = application.CreateBaseline(ctx, "app.x", "", false)
	assert.True(t, errors.Is(err, errors.CodeBaselineConflict))
}

func TestBuildApplication_SourceOverride(t *testing.T) {
	v, mount, _ := newViper(t)
	writeFile(t, filepath.Join(mount, "sdcard", "app.x", "f.txt"), "data")

	application, err := app.BuildApplicationFromViper(context.Background(), v, app.Options{Console: io.Discard, LogOutput: io.Discard})
	require.NoError(t, err)

	assert.Equal(t, "/data/data/app.x", application.SourcePath("app.x", ""))
	assert.Equal(t, "/sdcard/app.x", application.SourcePath("app.x", "/sdcard/app.x"))

	baseline, err := application.CreateBaseline(context.Background(), "app.x", "/sdcard/app.x", false)
	require.NoError(t, err)
	assert.Contains(t, baseline.Fingerprints, "f.txt")
}

func TestBuildApplication_MissingSource(t *testing.T) {
	v, _, _ := newViper(t)
	application, err := app.BuildApplicationFromViper(context.Background(), v, app.Options{Console: io.Discard, LogOutput: io.Discard})
	require.NoError(t, err)

	_, err = application.Compare(context.Background(), "app.missing", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeTransport))
}
