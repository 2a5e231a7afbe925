// Package config defines the configuration of a graph session and the
// webgraph server, and loads it from TOML or YAML files.
//
// Every field has a default (see [Default]); a file only needs to set what
// differs. The file format is chosen by extension: .toml uses
// BurntSushi/toml, .yaml and .yml use gopkg.in/yaml.v3.
//
//	app_mode = "dynamic"
//	layout = "forceatlas2"
//	enable_history = true
//	initialize_forceatlas2_worker = true
//
//	[layout_config.forceatlas2]
//	iterations = 50
//	pre_applied_layout = "circular"
package config

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/webgraph/pkg/errors"
	"github.com/matzehuels/webgraph/pkg/layout"
)

// AppMode controls whether the user may drag nodes.
type AppMode string

// App modes.
const (
	AppModeDynamic AppMode = "dynamic"
	AppModeStatic  AppMode = "static"
)

// NodeType is the default shape used for nodes without a type attribute.
type NodeType string

// Node types.
const (
	NodeTypeCircle    NodeType = "circle"
	NodeTypeRing      NodeType = "ring"
	NodeTypeRectangle NodeType = "rectangle"
	NodeTypeTriangle  NodeType = "triangle"
)

// LabelSelector chooses how labels are picked for display.
type LabelSelector string

// Label selectors.
const (
	LabelSelectorAll       LabelSelector = "all"
	LabelSelectorDefault   LabelSelector = "default"
	LabelSelectorImportant LabelSelector = "important"
)

// Valid value sets, used by Validate and the CLI.
var (
	ValidAppModes       = map[AppMode]bool{AppModeDynamic: true, AppModeStatic: true}
	ValidNodeTypes      = map[NodeType]bool{NodeTypeCircle: true, NodeTypeRing: true, NodeTypeRectangle: true, NodeTypeTriangle: true}
	ValidLabelSelectors = map[LabelSelector]bool{LabelSelectorAll: true, LabelSelectorDefault: true, LabelSelectorImportant: true}
)

// Default values.
const (
	DefaultSubGraphHighlightColor = "#fc9044"
	DefaultAddr                   = ":8080"
	DefaultStore                  = "memory"
	DefaultSessionTTL             = 24 * time.Hour
)

// Configuration holds every setting of a graph session.
type Configuration struct {
	AppMode         AppMode       `json:"appMode" toml:"app_mode" yaml:"appMode"`
	Layout          layout.Kind   `json:"layout" toml:"layout" yaml:"layout"`
	LayoutConfig    layout.Config `json:"layoutConfig" toml:"layout_config" yaml:"layoutConfig"`
	DefaultNodeType NodeType      `json:"defaultNodeType" toml:"default_node_type" yaml:"defaultNodeType"`
	LabelSelector   LabelSelector `json:"labelSelector" toml:"label_selector" yaml:"labelSelector"`
	EnableHistory   bool          `json:"enableHistory" toml:"enable_history" yaml:"enableHistory"`

	HighlightSubGraphOnHover        bool   `json:"highlightSubGraphOnHover" toml:"highlight_subgraph_on_hover" yaml:"highlightSubGraphOnHover"`
	SubGraphHighlightColor          string `json:"subGraphHighlightColor" toml:"subgraph_highlight_color" yaml:"subGraphHighlightColor"`
	IncludeImportantNeighbors       bool   `json:"includeImportantNeighbors" toml:"include_important_neighbors" yaml:"includeImportantNeighbors"`
	ImportantNeighborsBidirectional bool   `json:"importantNeighborsBidirectional" toml:"important_neighbors_bidirectional" yaml:"importantNeighborsBidirectional"`
	ImportantNeighborsColor         string `json:"importantNeighborsColor,omitempty" toml:"important_neighbors_color" yaml:"importantNeighborsColor,omitempty"`

	InitializeForceAtlas2Worker bool `json:"initializeForceAtlas2Worker" toml:"initialize_forceatlas2_worker" yaml:"initializeForceAtlas2Worker"`

	HideEdges                bool              `json:"hideEdges" toml:"hide_edges" yaml:"hideEdges"`
	RenderJustImportantEdges bool              `json:"renderJustImportantEdges" toml:"render_just_important_edges" yaml:"renderJustImportantEdges"`
	RenderNodeBackdrop       bool              `json:"renderNodeBackdrop" toml:"render_node_backdrop" yaml:"renderNodeBackdrop"`
	ClusterColors            map[string]string `json:"clusterColors,omitempty" toml:"cluster_colors" yaml:"clusterColors,omitempty"`

	ShowNodeInfoBoxOnClick bool `json:"showNodeInfoBoxOnClick" toml:"show_node_info_box_on_click" yaml:"showNodeInfoBoxOnClick"`
	SuppressContextMenu    bool `json:"suppressContextMenu" toml:"suppress_context_menu" yaml:"suppressContextMenu"`
}

// Default returns the default session configuration.
func Default() Configuration {
	return Configuration{
		AppMode:                  AppModeDynamic,
		Layout:                   layout.KindRandom,
		DefaultNodeType:          NodeTypeCircle,
		LabelSelector:            LabelSelectorDefault,
		HighlightSubGraphOnHover: true,
		SubGraphHighlightColor:   DefaultSubGraphHighlightColor,
	}
}

// Clone returns a deep copy of the configuration.
func (c Configuration) Clone() Configuration {
	out := c
	out.LayoutConfig = c.LayoutConfig.Clone()
	out.ClusterColors = maps.Clone(c.ClusterColors)
	return out
}

// Validate checks enumerations and the layout configuration.
func (c Configuration) Validate() error {
	if !ValidAppModes[c.AppMode] {
		return errors.New(errors.ErrCodeInvalidConfig, "invalid app mode %q", c.AppMode)
	}
	if !layout.ValidKinds[c.Layout] {
		return errors.New(errors.ErrCodeInvalidLayout, "invalid layout %q", c.Layout)
	}
	if !ValidNodeTypes[c.DefaultNodeType] {
		return errors.New(errors.ErrCodeInvalidConfig, "invalid node type %q", c.DefaultNodeType)
	}
	if !ValidLabelSelectors[c.LabelSelector] {
		return errors.New(errors.ErrCodeInvalidConfig, "invalid label selector %q", c.LabelSelector)
	}
	if err := c.LayoutConfig.Validate(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidLayout, err, "invalid layout configuration")
	}
	return nil
}

// =============================================================================
// Server Configuration
// =============================================================================

// ServerConfig configures `webgraph serve`.
type ServerConfig struct {
	Addr       string        `json:"addr" toml:"addr" yaml:"addr"`
	Store      string        `json:"store" toml:"store" yaml:"store"`
	StoreDir   string        `json:"storeDir,omitempty" toml:"store_dir" yaml:"storeDir,omitempty"`
	RedisAddr  string        `json:"redisAddr,omitempty" toml:"redis_addr" yaml:"redisAddr,omitempty"`
	MongoURI   string        `json:"mongoURI,omitempty" toml:"mongo_uri" yaml:"mongoURI,omitempty"`
	MongoDB    string        `json:"mongoDB,omitempty" toml:"mongo_db" yaml:"mongoDB,omitempty"`
	SQLitePath string        `json:"sqlitePath,omitempty" toml:"sqlite_path" yaml:"sqlitePath,omitempty"`
	SessionTTL time.Duration `json:"sessionTTL,omitempty" toml:"session_ttl" yaml:"sessionTTL,omitempty"`
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Addr:       DefaultAddr,
		Store:      DefaultStore,
		SessionTTL: DefaultSessionTTL,
	}
}

// File is the on-disk layout: session settings at the top level, server
// settings in a [server] table. Cluster colors are keyed by category.
type File struct {
	Configuration `yaml:",inline"`
	Server        ServerConfig `json:"server" toml:"server" yaml:"server"`

	// InfoBox maps node categories to info box URL templates.
	InfoBox map[string]string `json:"infoBox,omitempty" toml:"info_box" yaml:"infoBox,omitempty"`
}

// =============================================================================
// Loading
// =============================================================================

// Load reads a configuration file on top of the defaults.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data, filepath.Ext(path))
}

// Parse decodes configuration bytes of the given format (".toml", ".yaml",
// ".yml") on top of the defaults and validates the result.
func Parse(data []byte, ext string) (File, error) {
	f := File{Configuration: Default(), Server: DefaultServer()}
	switch strings.ToLower(ext) {
	case ".toml":
		if err := toml.Unmarshal(data, &f); err != nil {
			return File{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse toml")
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &f); err != nil {
			return File{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse yaml")
		}
	default:
		return File{}, errors.New(errors.ErrCodeInvalidFormat, "unsupported config format %q", ext)
	}
	if err := f.Configuration.Validate(); err != nil {
		return File{}, err
	}
	return f, nil
}
