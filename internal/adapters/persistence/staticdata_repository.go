package persistence

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/longwelwind/spacebo-go/internal/domain/staticdata"
)

// GormStaticDataRepository loads the static game data tables into an
// in-memory catalog. Called once at boot; the catalog is immutable afterward.
type GormStaticDataRepository struct {
	db *gorm.DB
}

// NewGormStaticDataRepository creates a new GORM static data repository
func NewGormStaticDataRepository(db *gorm.DB) *GormStaticDataRepository {
	return &GormStaticDataRepository{db: db}
}

// LoadCatalog reads all static game data and indexes it.
func (r *GormStaticDataRepository) LoadCatalog(ctx context.Context) (*staticdata.Catalog, error) {
	db := r.db.WithContext(ctx)

	var shipTypeModels []ShipTypeModel
	if err := db.Find(&shipTypeModels).Error; err != nil {
		return nil, fmt.Errorf("failed to load ship types: %w", err)
	}
	shipTypes := make([]*staticdata.ShipType, 0, len(shipTypeModels))
	for _, m := range shipTypeModels {
		shipTypes = append(shipTypes, &staticdata.ShipType{
			ID:          m.ID,
			Name:        m.Name,
			MiningPower: m.MiningPower,
		})
	}

	var resourceModels []ResourceModel
	if err := db.Find(&resourceModels).Error; err != nil {
		return nil, fmt.Errorf("failed to load resources: %w", err)
	}
	resources := make([]*staticdata.Resource, 0, len(resourceModels))
	for _, m := range resourceModels {
		resources = append(resources, &staticdata.Resource{ID: m.ID, Name: m.Name})
	}

	var systemResourceModels []SystemResourceModel
	if err := db.Find(&systemResourceModels).Error; err != nil {
		return nil, fmt.Errorf("failed to load system resources: %w", err)
	}
	resourcesBySystem := make(map[string][]string)
	for _, m := range systemResourceModels {
		resourcesBySystem[m.SystemID] = append(resourcesBySystem[m.SystemID], m.ResourceID)
	}

	var systemModels []SystemModel
	if err := db.Find(&systemModels).Error; err != nil {
		return nil, fmt.Errorf("failed to load systems: %w", err)
	}
	systems := make([]*staticdata.System, 0, len(systemModels))
	for _, m := range systemModels {
		systems = append(systems, &staticdata.System{
			ID:             m.ID,
			Name:           m.Name,
			X:              m.X,
			Y:              m.Y,
			StartingSystem: m.StartingSystem,
			ResourceIDs:    resourcesBySystem[m.ID],
		})
	}

	var linkModels []SystemLinkModel
	if err := db.Find(&linkModels).Error; err != nil {
		return nil, fmt.Errorf("failed to load system links: %w", err)
	}
	links := make([][2]string, 0, len(linkModels))
	for _, m := range linkModels {
		links = append(links, [2]string{m.FirstSystemID, m.SecondSystemID})
	}

	var blueprintModels []BlueprintModel
	if err := db.Find(&blueprintModels).Error; err != nil {
		return nil, fmt.Errorf("failed to load blueprints: %w", err)
	}
	var inputModels []BlueprintInputResourceModel
	if err := db.Find(&inputModels).Error; err != nil {
		return nil, fmt.Errorf("failed to load blueprint inputs: %w", err)
	}
	var outputModels []BlueprintOutputResourceModel
	if err := db.Find(&outputModels).Error; err != nil {
		return nil, fmt.Errorf("failed to load blueprint outputs: %w", err)
	}

	inputsByBlueprint := make(map[string]map[string]int64)
	for _, m := range inputModels {
		if inputsByBlueprint[m.BlueprintID] == nil {
			inputsByBlueprint[m.BlueprintID] = make(map[string]int64)
		}
		inputsByBlueprint[m.BlueprintID][m.ResourceID] = m.Quantity
	}
	outputsByBlueprint := make(map[string]map[string]int64)
	for _, m := range outputModels {
		if outputsByBlueprint[m.BlueprintID] == nil {
			outputsByBlueprint[m.BlueprintID] = make(map[string]int64)
		}
		outputsByBlueprint[m.BlueprintID][m.ResourceID] = m.Quantity
	}

	blueprints := make([]*staticdata.Blueprint, 0, len(blueprintModels))
	for _, m := range blueprintModels {
		blueprints = append(blueprints, &staticdata.Blueprint{
			ID:       m.ID,
			Duration: time.Duration(m.DurationSeconds) * time.Second,
			Inputs:   inputsByBlueprint[m.ID],
			Outputs:  outputsByBlueprint[m.ID],
		})
	}

	return staticdata.NewCatalog(shipTypes, resources, systems, links, blueprints), nil
}
