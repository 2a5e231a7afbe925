package history

import (
	"github.com/matzehuels/webgraph/pkg/config"
	"github.com/matzehuels/webgraph/pkg/graph"
	"github.com/matzehuels/webgraph/pkg/layout"
)

// Type names the kind of mutation an Action records.
type Type string

// Action types.
const (
	TypeAppMode              Type = "mutate-app-mode"
	TypeUpsertNodes          Type = "upsert-nodes"
	TypeDropNodes            Type = "drop-nodes"
	TypeReplaceEdges         Type = "replace-edges"
	TypeUpsertEdges          Type = "upsert-edges"
	TypeToggleEdgeRendering  Type = "toggle-edge-rendering"
	TypeToggleImportantEdges Type = "toggle-important-edge-rendering"
	TypeSetDefaultNodeType   Type = "set-default-node-type"
	TypeSetLayout            Type = "set-layout"
	TypeSetLayoutViaWorker   Type = "set-layout-via-worker"
)

// Change is the payload of an Action. Each implementation carries exactly
// the pre-state and post-state its undo and redo need. The set of
// implementations is closed: only this package defines Changes.
type Change interface {
	Type() Type
	change()
}

// AppModeChange records an app mode switch.
type AppModeChange struct {
	Old config.AppMode
	New config.AppMode
}

// UpsertNodesChange records a node merge.
type UpsertNodesChange struct {
	// Old holds snapshots of the nodes that existed before the merge.
	Old []graph.SerializedNode
	// New holds the merged input.
	New []graph.SerializedNode
	// Created lists the nodes the merge created.
	Created []string
}

// DropNodesChange records a node drop together with every edge the drop
// cascaded to. There is no post-state: the elements are gone.
type DropNodesChange struct {
	Nodes []graph.SerializedNode
	Edges []graph.SerializedEdge
}

// ReplaceEdgesChange records the replacement of the entire edge set.
type ReplaceEdgesChange struct {
	Old []graph.SerializedEdge
	New []graph.SerializedEdge
}

// UpsertEdgesChange records an edge merge.
type UpsertEdgesChange struct {
	// Old holds snapshots of the edges that existed before the merge.
	Old []graph.SerializedEdge
	// New holds the merged input with every key resolved.
	New []graph.SerializedEdge
	// Created lists the edges the merge created.
	Created []string
}

// ToggleEdgeRenderingChange records a hide-edges flip.
type ToggleEdgeRenderingChange struct {
	Old bool
	New bool
}

// ToggleImportantEdgesChange records an important-edges-only flip. Turning
// it on forces hide-edges off; OldHideEdges keeps what it was.
type ToggleImportantEdgesChange struct {
	Old          bool
	New          bool
	OldHideEdges bool
}

// SetDefaultNodeTypeChange records a default node type switch.
type SetDefaultNodeTypeChange struct {
	Old config.NodeType
	New config.NodeType
}

// LayoutState is the layout half of a layout change. Positions holds the
// node coordinates the layout produced, restored literally on undo and redo.
type LayoutState struct {
	Kind      layout.Kind
	Config    layout.Config
	Positions graph.Positions
}

// SetLayoutChange records a synchronous layout application.
type SetLayoutChange struct {
	Old LayoutState
	New LayoutState
}

// SetLayoutViaWorkerChange records one complete background worker run.
// New is nil until the worker stops.
type SetLayoutViaWorkerChange struct {
	Old LayoutState
	New *LayoutState
}

func (*AppModeChange) Type() Type              { return TypeAppMode }
func (*UpsertNodesChange) Type() Type          { return TypeUpsertNodes }
func (*DropNodesChange) Type() Type            { return TypeDropNodes }
func (*ReplaceEdgesChange) Type() Type         { return TypeReplaceEdges }
func (*UpsertEdgesChange) Type() Type          { return TypeUpsertEdges }
func (*ToggleEdgeRenderingChange) Type() Type  { return TypeToggleEdgeRendering }
func (*ToggleImportantEdgesChange) Type() Type { return TypeToggleImportantEdges }
func (*SetDefaultNodeTypeChange) Type() Type   { return TypeSetDefaultNodeType }
func (*SetLayoutChange) Type() Type            { return TypeSetLayout }
func (*SetLayoutViaWorkerChange) Type() Type   { return TypeSetLayoutViaWorker }

func (*AppModeChange) change()              {}
func (*UpsertNodesChange) change()          {}
func (*DropNodesChange) change()            {}
func (*ReplaceEdgesChange) change()         {}
func (*UpsertEdgesChange) change()          {}
func (*ToggleEdgeRenderingChange) change()  {}
func (*ToggleImportantEdgesChange) change() {}
func (*SetDefaultNodeTypeChange) change()   {}
func (*SetLayoutChange) change()            {}
func (*SetLayoutViaWorkerChange) change()   {}
