// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// setupTestConfig points BUILDMEMO_CFG at a testdata file and resets the
// global Config.
func setupTestConfig(t *testing.T, testdataFile string) {
	t.Helper()

	absPath, err := filepath.Abs(filepath.Join("testdata", testdataFile))
	assert.NoError(t, err, "failed to get absolute path for test config")

	t.Setenv("BUILDMEMO_CFG", absPath)
	Config = Type{}
	t.Cleanup(func() { Config = Type{} })
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		testFile  string
		checkFunc func(*testing.T, Type)
	}{
		{
			name:     "simple values",
			testFile: "simple.yaml",
			checkFunc: func(t *testing.T, cfg Type) {
				assert.NotEmpty(t, cfg.Source)
				assert.Equal(t, ".cache/data", cfg.Data["root"])
				assert.Equal(t, "1h", cfg.Data["timeout"])
			},
		},
		{
			name:     "nested structure",
			testFile: "nested.yaml",
			checkFunc: func(t *testing.T, cfg Type) {
				s3, ok := cfg.Data["s3"].(map[string]interface{})
				assert.True(t, ok, "s3 should be a map")
				assert.Equal(t, "build-cache", s3["bucket"])
			},
		},
		{
			name:     "mixed types",
			testFile: "mixed-types.yaml",
			checkFunc: func(t *testing.T, cfg Type) {
				assert.Equal(t, 1, cfg.Data["version"])
				assert.Equal(t, true, cfg.Data["titles"])
				assert.Equal(t, 30.5, cfg.Data["latency"])
				tags, ok := cfg.Data["tags"].([]interface{})
				assert.True(t, ok)
				assert.Len(t, tags, 2)
			},
		},
		{
			name:     "empty file",
			testFile: "empty.yaml",
			checkFunc: func(t *testing.T, cfg Type) {
				// Empty YAML unmarshals to a nil map, which is acceptable.
				assert.NotEmpty(t, cfg.Source)
				assert.Empty(t, cfg.Data)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupTestConfig(t, tt.testFile)

			cfg, err := Load()
			assert.NoError(t, err)
			tt.checkFunc(t, cfg)
			assert.Equal(t, cfg.Source, Config.Source)
		})
	}
}

func TestLoad_ExplicitPath(t *testing.T) {
	t.Setenv("BUILDMEMO_CFG", "/nonexistent/buildmemo.yaml")
	cfg, err := Load(filepath.Join("testdata", "simple.yaml"))
	assert.NoError(t, err)
	assert.Equal(t, "json", cfg.Data["output"])
}

func TestLoad_NoConfigFile(t *testing.T) {
	t.Setenv("BUILDMEMO_CFG", "/nonexistent/path/buildmemo.yaml")

	_, err := Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestLoad_CfgIsDirectory(t *testing.T) {
	t.Setenv("BUILDMEMO_CFG", "testdata")

	_, err := Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "points to a directory")
}

func TestLoad_StandardLocations(t *testing.T) {
	home := t.TempDir()
	assert.NoError(t, os.WriteFile(filepath.Join(home, FileName), []byte("root: /from/home\n"), 0o600))

	t.Setenv("BUILDMEMO_CFG", "")
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("APPDATA", "")
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())

	cfg, err := Load()
	assert.NoError(t, err)
	v, err := cfg.GetString("root")
	assert.NoError(t, err)
	assert.Equal(t, "/from/home", v)
}

func TestLoad_Malformed(t *testing.T) {
	p := filepath.Join(t.TempDir(), FileName)
	assert.NoError(t, os.WriteFile(p, []byte("root: [unterminated\n"), 0o600))

	_, err := Load(p)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestGetString(t *testing.T) {
	tests := []struct {
		name         string
		testFile     string
		namespace    string
		key          string
		defaultValue []string
		want         string
		wantErr      bool
	}{
		{name: "simple", testFile: "simple.yaml", key: "root", want: ".cache/data"},
		{name: "nested", testFile: "nested.yaml", key: "s3.region", want: "us-west-2"},
		{name: "namespaced", testFile: "nested.yaml", namespace: "ls", key: "output", want: "yaml"},
		{name: "namespace falls back to global", testFile: "nested.yaml", namespace: "ls", key: "root", want: ".cache/data"},
		{name: "missing with default", testFile: "simple.yaml", key: "missing", defaultValue: []string{"dflt"}, want: "dflt"},
		{name: "missing without default", testFile: "simple.yaml", key: "missing", wantErr: true},
		{name: "not a string", testFile: "mixed-types.yaml", key: "version", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupTestConfig(t, tt.testFile)
			cfg, err := Load()
			assert.NoError(t, err)
			cfg.Namespace = tt.namespace

			got, err := cfg.GetString(tt.key, tt.defaultValue...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetInt(t *testing.T) {
	tests := []struct {
		name         string
		testFile     string
		key          string
		defaultValue []int
		want         int
		wantErr      bool
	}{
		{name: "int value", testFile: "mixed-types.yaml", key: "version", want: 1},
		{name: "float converted to int", testFile: "mixed-types.yaml", key: "latency", want: 30},
		{name: "nested int", testFile: "nested.yaml", key: "purge.hours", want: 48},
		{name: "missing with default", testFile: "simple.yaml", key: "missing", defaultValue: []int{60}, want: 60},
		{name: "missing without default", testFile: "simple.yaml", key: "missing", wantErr: true},
		{name: "not an int", testFile: "simple.yaml", key: "root", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupTestConfig(t, tt.testFile)
			cfg, err := Load()
			assert.NoError(t, err)

			got, err := cfg.GetInt(tt.key, tt.defaultValue...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetBool(t *testing.T) {
	setupTestConfig(t, "mixed-types.yaml")
	cfg, err := Load()
	assert.NoError(t, err)

	b, err := cfg.GetBool("titles")
	assert.NoError(t, err)
	assert.True(t, b)

	b, err = cfg.GetBool("color", true)
	assert.NoError(t, err)
	assert.True(t, b)

	_, err = cfg.GetBool("name")
	assert.Error(t, err)
}

func TestGetDuration(t *testing.T) {
	tests := []struct {
		name      string
		namespace string
		key       string
		want      time.Duration
		wantErr   bool
	}{
		{name: "duration string", key: "timeout", want: 30 * time.Minute},
		{name: "namespaced string", namespace: "ls", key: "timeout", want: 2 * time.Hour},
		{name: "bare number is milliseconds", key: "purge.timeout", want: 15 * time.Second},
		{name: "not a duration", key: "s3.bucket", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupTestConfig(t, "nested.yaml")
			cfg, err := Load()
			assert.NoError(t, err)
			cfg.Namespace = tt.namespace

			got, err := cfg.GetDuration(tt.key)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	var empty Type
	d, err := empty.GetDuration("timeout", time.Minute)
	assert.NoError(t, err)
	assert.Equal(t, time.Minute, d)
}

func TestGetStringSlice(t *testing.T) {
	setupTestConfig(t, "mixed-types.yaml")
	cfg, err := Load()
	assert.NoError(t, err)

	got, err := cfg.GetStringSlice("tags")
	assert.NoError(t, err)
	assert.Equal(t, []string{"build", "cache"}, got)

	got, err = cfg.GetStringSlice("name")
	assert.NoError(t, err)
	assert.Equal(t, []string{"test-site"}, got)

	_, err = cfg.GetStringSlice("version")
	assert.Error(t, err)

	got, err = cfg.GetStringSlice("missing", []string{"x"})
	assert.NoError(t, err)
	assert.Equal(t, []string{"x"}, got)
}

func TestGetStringSlice_Namespaced(t *testing.T) {
	setupTestConfig(t, "nested.yaml")
	cfg, err := Load()
	assert.NoError(t, err)

	got, err := cfg.GetStringSlice("ls.defaults")
	assert.NoError(t, err)
	assert.Equal(t, []string{"--sort -age", "--titles"}, got)
}
