package template

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/inboxflow/inboxflow/engine/workflow"
)

// Cache stores parsed templates per provider. Stored values are treated as
// immutable; callers receive clones.
type Cache interface {
	Get(provider workflow.Provider) (*workflow.Workflow, bool)
	Add(provider workflow.Provider, wf *workflow.Workflow)
	Purge()
	Len() int
}

// LRUCache is a bounded Cache.
type LRUCache struct {
	entries *lru.Cache[workflow.Provider, *workflow.Workflow]
}

func NewLRUCache(size int) (*LRUCache, error) {
	if size <= 0 {
		size = len(workflow.Providers())
	}
	entries, err := lru.New[workflow.Provider, *workflow.Workflow](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create template cache: %w", err)
	}
	return &LRUCache{entries: entries}, nil
}

func (c *LRUCache) Get(provider workflow.Provider) (*workflow.Workflow, bool) {
	return c.entries.Get(provider)
}

func (c *LRUCache) Add(provider workflow.Provider, wf *workflow.Workflow) {
	c.entries.Add(provider, wf)
}

func (c *LRUCache) Purge() {
	c.entries.Purge()
}

func (c *LRUCache) Len() int {
	return c.entries.Len()
}
