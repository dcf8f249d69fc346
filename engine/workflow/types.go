package workflow

// Workflow is an automation document in the workflow engine's JSON shape. The
// same type describes a parameterized template and an injected workflow.
type Workflow struct {
	ID          string         `json:"id,omitempty"`
	VersionID   string         `json:"versionId,omitempty"`
	Name        string         `json:"name"`
	Nodes       []Node         `json:"nodes"`
	Connections Connections    `json:"connections"`
	Settings    Settings       `json:"settings"`
	StaticData  map[string]any `json:"staticData,omitempty"`
	Meta        map[string]any `json:"meta,omitempty"`
	PinData     map[string]any `json:"pinData,omitempty"`
	Tags        []Tag          `json:"tags,omitempty"`
	Active      bool           `json:"active,omitempty"`
}

// Node is a single step of a workflow.
type Node struct {
	ID          string                   `json:"id"`
	Name        string                   `json:"name"`
	Type        string                   `json:"type"`
	TypeVersion float64                  `json:"typeVersion"`
	Position    [2]float64               `json:"position"`
	Parameters  map[string]any           `json:"parameters"`
	Credentials map[string]CredentialRef `json:"credentials,omitempty"`
	Disabled    bool                     `json:"disabled,omitempty"`
	Notes       string                   `json:"notes,omitempty"`
}

// CredentialRef points a node at a credential stored in the workflow engine.
type CredentialRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Connections maps a source node name to its outputs.
type Connections map[string]NodeConnections

// NodeConnections maps an output type (usually "main" or an ai_* port) to the
// ordered list of output slots, each holding its downstream references.
type NodeConnections map[string][][]Connection

// Connection is one downstream reference.
type Connection struct {
	Node  string `json:"node"`
	Type  string `json:"type"`
	Index int    `json:"index"`
}

// Settings is the free-form workflow settings record.
type Settings map[string]any

// Tag labels a workflow in the engine.
type Tag struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// NodeByName returns the node named name, or nil.
func (w *Workflow) NodeByName(name string) *Node {
	for i := range w.Nodes {
		if w.Nodes[i].Name == name {
			return &w.Nodes[i]
		}
	}
	return nil
}

// HasCategory reports whether any enabled node belongs to category c.
func (w *Workflow) HasCategory(c Category) bool {
	for i := range w.Nodes {
		if w.Nodes[i].Disabled {
			continue
		}
		if KindOf(w.Nodes[i].Type).Category() == c {
			return true
		}
	}
	return false
}

// ConnectionCount returns the number of downstream references in the graph.
func (w *Workflow) ConnectionCount() int {
	count := 0
	for _, outputs := range w.Connections {
		for _, slots := range outputs {
			for _, slot := range slots {
				count += len(slot)
			}
		}
	}
	return count
}

// DanglingConnections returns the names referenced by connections, as source
// or target, that do not match any node.
func (w *Workflow) DanglingConnections() []string {
	known := make(map[string]struct{}, len(w.Nodes))
	for i := range w.Nodes {
		known[w.Nodes[i].Name] = struct{}{}
	}
	seen := make(map[string]struct{})
	var missing []string
	add := func(name string) {
		if _, ok := known[name]; ok {
			return
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		missing = append(missing, name)
	}
	for _, source := range sortedKeys(w.Connections) {
		add(source)
		outputs := w.Connections[source]
		for _, port := range sortedKeys(outputs) {
			for _, slot := range outputs[port] {
				for _, conn := range slot {
					add(conn.Node)
				}
			}
		}
	}
	return missing
}
