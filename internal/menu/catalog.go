// Package menu models restaurant catalogs and the providers that supply
// catalog snapshots to the search indexer.
package menu

import (
	"fmt"

	"gopkg.in/yaml.v3"

	merrors "github.com/Aman-CERP/menusearch/internal/errors"
	"github.com/Aman-CERP/menusearch/internal/store"
)

// Catalog is a menu snapshot grouped by order type.
type Catalog struct {
	OrderTypes []OrderType `yaml:"order_types" json:"order_types"`
}

// OrderType is one ordering context, e.g. "Delivery" or "Dine In".
type OrderType struct {
	Name       string     `yaml:"name" json:"name"`
	Categories []Category `yaml:"categories" json:"categories"`
}

// Category is a named group of items.
type Category struct {
	Name  string `yaml:"name" json:"name"`
	Items []Item `yaml:"items" json:"items"`
}

// Item is a menu entry. Only Name is searched.
type Item struct {
	Name        string  `yaml:"name" json:"name"`
	Description string  `yaml:"description,omitempty" json:"description,omitempty"`
	Price       float64 `yaml:"price,omitempty" json:"price,omitempty"`
}

// UnmarshalYAML accepts either a bare item name or a mapping.
func (it *Item) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		it.Name = node.Value
		return nil
	}
	type plain Item
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*it = Item(p)
	return nil
}

// ParseCatalog decodes a YAML or JSON catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, merrors.New(merrors.ErrCodeCatalogFile, "invalid catalog", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects unnamed or duplicate order types.
func (c *Catalog) Validate() error {
	seen := make(map[string]string, len(c.OrderTypes))
	for i, ot := range c.OrderTypes {
		key := store.SnakeCase(ot.Name)
		if key == "" {
			return merrors.New(merrors.ErrCodeCatalogFile,
				fmt.Sprintf("order type #%d has no name", i+1), nil)
		}
		if prev, ok := seen[key]; ok {
			return merrors.New(merrors.ErrCodeCatalogFile,
				fmt.Sprintf("order types %q and %q collide", prev, ot.Name), nil)
		}
		seen[key] = ot.Name
	}
	return nil
}

// OrderTypeNames returns the order type names in catalog order.
func (c *Catalog) OrderTypeNames() []string {
	names := make([]string, len(c.OrderTypes))
	for i, ot := range c.OrderTypes {
		names[i] = ot.Name
	}
	return names
}

// Find returns the order type whose snake_case name matches name.
func (c *Catalog) Find(name string) (*OrderType, bool) {
	key := store.SnakeCase(name)
	for i := range c.OrderTypes {
		if store.SnakeCase(c.OrderTypes[i].Name) == key {
			return &c.OrderTypes[i], true
		}
	}
	return nil, false
}

// Documents returns the searchable names of an order type: its category
// names, or every item name when items is set. Order follows the catalog.
func (c *Catalog) Documents(orderType string, items bool) ([]string, error) {
	ot, ok := c.Find(orderType)
	if !ok {
		return nil, merrors.New(merrors.ErrCodeUnknownOrderType,
			fmt.Sprintf("unknown order type %q", orderType), nil).
			WithDetail("order_type", orderType)
	}
	if !items {
		docs := make([]string, 0, len(ot.Categories))
		for _, cat := range ot.Categories {
			docs = append(docs, cat.Name)
		}
		return docs, nil
	}
	var docs []string
	for _, cat := range ot.Categories {
		for _, it := range cat.Items {
			docs = append(docs, it.Name)
		}
	}
	return docs, nil
}
