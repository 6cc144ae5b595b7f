package catalog

import (
	"encoding/json"
	"strings"
)

// Category is a node of the storefront category tree.
type Category struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parentId,omitempty"`
	IsActive bool   `json:"isActive"`
}

// UnmarshalJSON accepts "_id" for the id and "parent" for the parent id.
func (c *Category) UnmarshalJSON(data []byte) error {
	type alias Category
	var payload struct {
		alias
		MongoID string `json:"_id"`
		Parent  string `json:"parent"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	*c = Category(payload.alias)
	if c.ID == "" {
		c.ID = payload.MongoID
	}
	if c.ParentID == "" {
		c.ParentID = payload.Parent
	}
	return nil
}

// Tree indexes categories by id.
type Tree struct {
	byID map[string]Category
}

// NewTree builds a tree from a flat category list. Later duplicates win.
func NewTree(categories []Category) Tree {
	byID := make(map[string]Category, len(categories))
	for _, c := range categories {
		id := strings.TrimSpace(c.ID)
		if id == "" {
			continue
		}
		byID[id] = c
	}
	return Tree{byID: byID}
}

// Len returns the number of indexed categories.
func (t Tree) Len() int {
	return len(t.byID)
}

// Get returns the category with the given id.
func (t Tree) Get(id string) (Category, bool) {
	c, ok := t.byID[id]
	return c, ok
}

// Path returns the root-to-leaf id chain ending at id. Unknown ids yield nil; a
// parent cycle stops the walk.
func (t Tree) Path(id string) []string {
	if _, ok := t.byID[id]; !ok {
		return nil
	}
	var reversed []string
	seen := make(map[string]struct{})
	for cur := id; cur != ""; {
		if _, dup := seen[cur]; dup {
			break
		}
		node, ok := t.byID[cur]
		if !ok {
			break
		}
		seen[cur] = struct{}{}
		reversed = append(reversed, cur)
		cur = node.ParentID
	}
	path := make([]string, len(reversed))
	for i, v := range reversed {
		path[len(reversed)-1-i] = v
	}
	return path
}

// FillCategoryPath sets p.CategoryPath from the tree when the snapshot omits it.
func (t Tree) FillCategoryPath(p *Product) {
	if p == nil || len(p.CategoryPath) > 0 || p.CategoryID == "" {
		return
	}
	p.CategoryPath = t.Path(p.CategoryID)
}
