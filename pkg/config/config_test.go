package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matzehuels/webgraph/pkg/errors"
	"github.com/matzehuels/webgraph/pkg/layout"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Configuration)
		code   errors.Code
	}{
		{"BadAppMode", func(c *Configuration) { c.AppMode = "frozen" }, errors.ErrCodeInvalidConfig},
		{"BadLayout", func(c *Configuration) { c.Layout = "spring" }, errors.ErrCodeInvalidLayout},
		{"BadNodeType", func(c *Configuration) { c.DefaultNodeType = "hexagon" }, errors.ErrCodeInvalidConfig},
		{"SelfPreApplied", func(c *Configuration) {
			c.LayoutConfig.ForceAtlas2 = &layout.ForceAtlas2Options{PreAppliedLayout: layout.KindForceAtlas2}
		}, errors.ErrCodeInvalidLayout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			err := cfg.Validate()
			if !errors.Is(err, tt.code) {
				t.Errorf("Validate() = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestParseTOML(t *testing.T) {
	data := []byte(`
layout = "forceatlas2"
enable_history = true
important_neighbors_color = "#fcabb2"

[cluster_colors]
0 = "#d1fce9"

[layout_config.forceatlas2]
iterations = 25
pre_applied_layout = "circular"
initial_worker_runtime = 100

[layout_config.forceatlas2.settings]
edge_weight_influence = 2.0

[info_box]
person = "https://kb.example.com/people/{key}"

[server]
addr = ":9090"
store = "sqlite"
session_ttl = "1h"
`)
	f, err := Parse(data, ".toml")
	if err != nil {
		t.Fatal(err)
	}
	if f.Layout != layout.KindForceAtlas2 || !f.EnableHistory {
		t.Errorf("Layout, EnableHistory = %q, %v", f.Layout, f.EnableHistory)
	}
	if f.AppMode != AppModeDynamic {
		t.Errorf("AppMode = %q, want default %q", f.AppMode, AppModeDynamic)
	}
	fa := f.LayoutConfig.ForceAtlas2
	if fa == nil || fa.Iterations != 25 || fa.PreAppliedLayout != layout.KindCircular {
		t.Fatalf("ForceAtlas2 = %+v", fa)
	}
	if fa.WorkerRuntime() != 100*time.Millisecond {
		t.Errorf("WorkerRuntime() = %v, want 100ms", fa.WorkerRuntime())
	}
	if fa.Settings == nil || fa.Settings.EdgeWeightInfluence != 2 {
		t.Errorf("Settings = %+v", fa.Settings)
	}
	if f.ClusterColors["0"] != "#d1fce9" {
		t.Errorf("ClusterColors = %v", f.ClusterColors)
	}
	if f.Server.Addr != ":9090" || f.Server.Store != "sqlite" || f.Server.SessionTTL != time.Hour {
		t.Errorf("Server = %+v", f.Server)
	}
	if f.InfoBox["person"] != "https://kb.example.com/people/{key}" {
		t.Errorf("InfoBox = %v", f.InfoBox)
	}
}

func TestParseYAML(t *testing.T) {
	data := []byte(`
appMode: static
layout: circlepack
layoutConfig:
  circlePack:
    hierarchy: [category]
server:
  store: redis
  redisAddr: localhost:6379
`)
	f, err := Parse(data, ".yml")
	if err != nil {
		t.Fatal(err)
	}
	if f.AppMode != AppModeStatic || f.Layout != layout.KindCirclePack {
		t.Errorf("AppMode, Layout = %q, %q", f.AppMode, f.Layout)
	}
	if cp := f.LayoutConfig.CirclePack; cp == nil || len(cp.Hierarchy) != 1 {
		t.Errorf("CirclePack = %+v", cp)
	}
	if f.Server.Addr != DefaultAddr || f.Server.RedisAddr != "localhost:6379" {
		t.Errorf("Server = %+v", f.Server)
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := Parse([]byte(`{}`), ".json"); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("Parse(.json) = %v, want %s", err, errors.ErrCodeInvalidFormat)
	}
	if _, err := Parse([]byte(`layout = [`), ".toml"); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("Parse(broken) = %v, want %s", err, errors.ErrCodeInvalidConfig)
	}
	if _, err := Parse([]byte(`layout = "spring"`), ".toml"); !errors.Is(err, errors.ErrCodeInvalidLayout) {
		t.Errorf("Parse(bad layout) = %v, want %s", err, errors.ErrCodeInvalidLayout)
	}
}

func TestLoaderReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "webgraph.toml")
	if err := os.WriteFile(path, []byte(`enable_history = false`), 0o644); err != nil {
		t.Fatal(err)
	}
	l, err := NewLoader(path)
	if err != nil {
		t.Fatal(err)
	}

	var got File
	l.OnChange(func(f File) { got = f })
	if err := os.WriteFile(path, []byte(`enable_history = true`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Reload(); err != nil {
		t.Fatal(err)
	}
	if !got.EnableHistory || !l.Current().EnableHistory {
		t.Error("reload did not pick up enable_history = true")
	}

	var reloadErr error
	l.OnError(func(err error) { reloadErr = err })
	_ = os.WriteFile(path, []byte(`layout = [`), 0o644)
	if _, err := l.Reload(); err == nil || reloadErr == nil {
		t.Error("Reload() of a broken file reported no error")
	}
	if !l.Current().EnableHistory {
		t.Error("failed reload replaced the current configuration")
	}
}
