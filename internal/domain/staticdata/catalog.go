package staticdata

import (
	"math"
	"time"

	"github.com/longwelwind/spacebo-go/internal/domain/shared"
)

// Static game data: ship characteristics, resources, the system map and
// refinery blueprints. Loaded once at boot and immutable for the process
// lifetime.

// ShipType describes one buildable ship kind.
type ShipType struct {
	ID          string
	Name        string
	MiningPower int64
}

// Resource is a tradable/minable resource kind.
type Resource struct {
	ID   string
	Name string
}

// System is one star system of the map.
type System struct {
	ID             string
	Name           string
	X              float64
	Y              float64
	StartingSystem bool
	ResourceIDs    []string
}

// Blueprint is a refinery recipe: fixed input quantities are consumed and
// fixed output quantities produced, per batch count.
type Blueprint struct {
	ID       string
	Duration time.Duration
	Inputs   map[string]int64
	Outputs  map[string]int64
}

// Catalog is the in-memory index over all static game data.
type Catalog struct {
	shipTypes  map[string]*ShipType
	resources  map[string]*Resource
	systems    map[string]*System
	links      map[string]map[string]bool
	blueprints map[string]*Blueprint
}

// NewCatalog indexes the given static data. Links are undirected.
func NewCatalog(
	shipTypes []*ShipType,
	resources []*Resource,
	systems []*System,
	links [][2]string,
	blueprints []*Blueprint,
) *Catalog {
	c := &Catalog{
		shipTypes:  make(map[string]*ShipType, len(shipTypes)),
		resources:  make(map[string]*Resource, len(resources)),
		systems:    make(map[string]*System, len(systems)),
		links:      make(map[string]map[string]bool),
		blueprints: make(map[string]*Blueprint, len(blueprints)),
	}
	for _, st := range shipTypes {
		c.shipTypes[st.ID] = st
	}
	for _, r := range resources {
		c.resources[r.ID] = r
	}
	for _, s := range systems {
		c.systems[s.ID] = s
	}
	for _, l := range links {
		c.addLink(l[0], l[1])
		c.addLink(l[1], l[0])
	}
	for _, b := range blueprints {
		c.blueprints[b.ID] = b
	}
	return c
}

func (c *Catalog) addLink(from, to string) {
	if c.links[from] == nil {
		c.links[from] = make(map[string]bool)
	}
	c.links[from][to] = true
}

// ShipType looks up a ship type by id.
func (c *Catalog) ShipType(id string) (*ShipType, error) {
	st, ok := c.shipTypes[id]
	if !ok {
		return nil, shared.NewMissingReferenceError("ship type", id)
	}
	return st, nil
}

// Resource looks up a resource by id.
func (c *Catalog) Resource(id string) (*Resource, error) {
	r, ok := c.resources[id]
	if !ok {
		return nil, shared.NewMissingReferenceError("resource", id)
	}
	return r, nil
}

// System looks up a system by id.
func (c *Catalog) System(id string) (*System, error) {
	s, ok := c.systems[id]
	if !ok {
		return nil, shared.NewMissingReferenceError("system", id)
	}
	return s, nil
}

// Blueprint looks up a refinery blueprint by id.
func (c *Catalog) Blueprint(id string) (*Blueprint, error) {
	b, ok := c.blueprints[id]
	if !ok {
		return nil, shared.NewMissingReferenceError("blueprint", id)
	}
	return b, nil
}

// StartingSystem returns the system new users spawn in.
func (c *Catalog) StartingSystem() (*System, error) {
	for _, s := range c.systems {
		if s.StartingSystem {
			return s, nil
		}
	}
	return nil, shared.NewMissingReferenceError("system", "starting system")
}

// Linked reports whether two systems are directly connected.
func (c *Catalog) Linked(fromID, toID string) bool {
	return c.links[fromID][toID]
}

// HasResource reports whether a system contains a minable resource.
func (s *System) HasResource(resourceID string) bool {
	for _, id := range s.ResourceIDs {
		if id == resourceID {
			return true
		}
	}
	return false
}

// Distance is the euclidean distance between two systems, in map units.
func Distance(a, b *System) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}
