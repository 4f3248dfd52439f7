package calendar

import (
	"strings"

	"calboard/internal/model"
)

// FallbackColor is returned for category IDs that no longer exist.
const FallbackColor = "#ccc"

// CategoryStore holds the category list. It always keeps at least one entry.
type CategoryStore struct {
	categories []model.Category
}

// NewCategoryStore seeds the store. An empty seed uses the defaults.
func NewCategoryStore(seed []model.Category) *CategoryStore {
	if len(seed) == 0 {
		seed = model.DefaultCategories()
	}
	cs := &CategoryStore{categories: make([]model.Category, len(seed))}
	copy(cs.categories, seed)
	return cs
}

// Add appends a category named name. The ID is derived from the name.
func (c *CategoryStore) Add(name, color string) (model.Category, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return model.Category{}, ErrCategoryName
	}
	id := model.CategoryID(trimmed)
	for _, cat := range c.categories {
		if strings.EqualFold(cat.Name, trimmed) || cat.ID == id {
			return model.Category{}, ErrCategoryExists
		}
	}

	cat := model.Category{ID: id, Name: trimmed, Color: color}
	c.categories = append(c.categories, cat)
	return cat, nil
}

// CheckDelete reports why id cannot be deleted, or nil if it can.
func (c *CategoryStore) CheckDelete(id string, inUse bool) error {
	if inUse {
		return ErrCategoryInUse
	}
	if len(c.categories) <= 1 {
		return ErrLastCategory
	}
	return nil
}

// Remove deletes id without checks and reports whether it existed.
func (c *CategoryStore) Remove(id string) bool {
	for i := range c.categories {
		if c.categories[i].ID == id {
			c.categories = append(c.categories[:i], c.categories[i+1:]...)
			return true
		}
	}
	return false
}

func (c *CategoryStore) Get(id string) (model.Category, bool) {
	for _, cat := range c.categories {
		if cat.ID == id {
			return cat, true
		}
	}
	return model.Category{}, false
}

func (c *CategoryStore) Exists(id string) bool {
	_, ok := c.Get(id)
	return ok
}

func (c *CategoryStore) ColorFor(id string) string {
	if cat, ok := c.Get(id); ok {
		return cat.Color
	}
	return FallbackColor
}

// Default is the first category in the list.
func (c *CategoryStore) Default() model.Category {
	return c.categories[0]
}

func (c *CategoryStore) List() []model.Category {
	out := make([]model.Category, len(c.categories))
	copy(out, c.categories)
	return out
}

func (c *CategoryStore) Len() int { return len(c.categories) }
