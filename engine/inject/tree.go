package inject

import (
	"fmt"

	"github.com/inboxflow/inboxflow/engine/core"
	"github.com/inboxflow/inboxflow/engine/placeholder"
	"github.com/inboxflow/inboxflow/engine/workflow"
)

// substituter replaces whole tokens in every string leaf of a workflow and
// remembers which tokens matched. Two keys of one object that resolve to the
// same key are an error.
type substituter struct {
	values  *placeholder.Map
	seen    map[string]struct{}
	applied []string
	err     error
}

func newSubstituter(values *placeholder.Map) *substituter {
	return &substituter{values: values, seen: make(map[string]struct{})}
}

func (s *substituter) str(in string) string {
	out, applied := placeholder.Replace(in, s.values)
	for _, tok := range applied {
		if _, ok := s.seen[tok]; ok {
			continue
		}
		s.seen[tok] = struct{}{}
		s.applied = append(s.applied, tok)
	}
	return out
}

// value walks a decoded JSON value. Map keys are substituted too.
func (s *substituter) value(v any) any {
	switch t := v.(type) {
	case string:
		return s.str(t)
	case map[string]any:
		return s.object(t)
	case []any:
		for i := range t {
			t[i] = s.value(t[i])
		}
		return t
	default:
		return v
	}
}

func (s *substituter) object(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		key := s.str(k)
		if _, dup := out[key]; dup {
			s.collision(key)
		}
		out[key] = s.value(v)
	}
	return out
}

func (s *substituter) collision(key string) {
	if s.err == nil {
		s.err = &core.SubstitutionParseError{
			Offset: -1,
			Err:    fmt.Errorf("key %q produced twice by substitution", key),
		}
	}
}

// workflow rewrites every string leaf of wf in place.
func (s *substituter) workflow(wf *workflow.Workflow) error {
	wf.Name = s.str(wf.Name)
	for i := range wf.Nodes {
		node := &wf.Nodes[i]
		node.Name = s.str(node.Name)
		node.Notes = s.str(node.Notes)
		node.Parameters = s.object(node.Parameters)
		for kind, ref := range node.Credentials {
			node.Credentials[kind] = workflow.CredentialRef{ID: s.str(ref.ID), Name: s.str(ref.Name)}
		}
	}
	if wf.Connections != nil {
		conns := make(workflow.Connections, len(wf.Connections))
		for source, outputs := range wf.Connections {
			for _, slots := range outputs {
				for _, slot := range slots {
					for j := range slot {
						slot[j].Node = s.str(slot[j].Node)
					}
				}
			}
			key := s.str(source)
			if _, dup := conns[key]; dup {
				s.collision(key)
			}
			conns[key] = outputs
		}
		wf.Connections = conns
	}
	if wf.Settings != nil {
		wf.Settings = workflow.Settings(s.object(wf.Settings))
	}
	wf.StaticData = s.object(wf.StaticData)
	wf.Meta = s.object(wf.Meta)
	wf.PinData = s.object(wf.PinData)
	for i := range wf.Tags {
		wf.Tags[i].Name = s.str(wf.Tags[i].Name)
	}
	return s.err
}
