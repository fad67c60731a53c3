package persistence

import (
	"time"
)

// UserModel represents the users table
type UserModel struct {
	ID        string    `gorm:"column:id;primaryKey;not null"`
	Name      string    `gorm:"column:name;unique;not null"`
	Token     string    `gorm:"column:token;unique;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null;autoCreateTime"`
}

func (UserModel) TableName() string {
	return "users"
}

// FleetModel represents the fleets table.
// The action-specific columns are nullable on purpose: only the columns of
// the current action are set, everything else stays NULL.
type FleetModel struct {
	ID                    string     `gorm:"column:id;primaryKey;not null"`
	OwnerUserID           *string    `gorm:"column:owner_user_id"`
	LocationSystemID      string     `gorm:"column:location_system_id;not null"`
	InventoryID           string     `gorm:"column:inventory_id;not null"`
	CurrentAction         string     `gorm:"column:current_action;not null;default:'idling'"`
	TravelingFromSystemID *string    `gorm:"column:traveling_from_system_id"`
	TravelingToSystemID   *string    `gorm:"column:traveling_to_system_id"`
	DepartureTime         *time.Time `gorm:"column:departure_time"`
	ArrivalTime           *time.Time `gorm:"column:arrival_time"`
	MiningResourceID      *string    `gorm:"column:mining_resource_id"`
	MiningFinishTime      *time.Time `gorm:"column:mining_finish_time"`
}

func (FleetModel) TableName() string {
	return "fleets"
}

// FleetShipModel represents the fleet_ships table: one ship-count record per
// (fleet, ship type). Quantity is stored as a numeric string so counters can
// grow past 64 bits. A row with quantity 0 must not exist.
type FleetShipModel struct {
	FleetID    string `gorm:"column:fleet_id;primaryKey;not null"`
	ShipTypeID string `gorm:"column:ship_type_id;primaryKey;not null"`
	Quantity   string `gorm:"column:quantity;type:numeric;not null"`
}

func (FleetShipModel) TableName() string {
	return "fleet_ships"
}

// InventoryModel represents the inventories table. It only anchors the
// quantity records of inventory_items.
type InventoryModel struct {
	ID string `gorm:"column:id;primaryKey;not null"`
}

func (InventoryModel) TableName() string {
	return "inventories"
}

// InventoryItemModel represents the inventory_items table: one resource-count
// record per (inventory, resource). Same storage rules as FleetShipModel.
type InventoryItemModel struct {
	InventoryID string `gorm:"column:inventory_id;primaryKey;not null"`
	ResourceID  string `gorm:"column:resource_id;primaryKey;not null"`
	Quantity    string `gorm:"column:quantity;type:numeric;not null"`
}

func (InventoryItemModel) TableName() string {
	return "inventory_items"
}

// StationInventoryModel represents the station_inventories table: a user's
// cargo space at a system's station.
type StationInventoryModel struct {
	UserID      string `gorm:"column:user_id;primaryKey;not null"`
	SystemID    string `gorm:"column:system_id;primaryKey;not null"`
	InventoryID string `gorm:"column:inventory_id;not null"`
}

func (StationInventoryModel) TableName() string {
	return "station_inventories"
}

// ModuleModel represents the modules table
type ModuleModel struct {
	ID           string `gorm:"column:id;primaryKey;not null"`
	UserID       string `gorm:"column:user_id;not null"`
	SystemID     string `gorm:"column:system_id;not null"`
	ModuleTypeID string `gorm:"column:module_type_id;not null"`
}

func (ModuleModel) TableName() string {
	return "modules"
}

// ModuleRefineryJobModel represents the module_refinery_jobs table. The row
// exists exactly while the batch is running; its finish_time is the durable
// source for rebuilding the pending completion after a restart.
type ModuleRefineryJobModel struct {
	ID          string    `gorm:"column:id;primaryKey;not null"`
	ModuleID    string    `gorm:"column:module_id;not null"`
	BlueprintID string    `gorm:"column:blueprint_id;not null"`
	Count       int64     `gorm:"column:count;not null"`
	FinishTime  time.Time `gorm:"column:finish_time;not null"`
}

func (ModuleRefineryJobModel) TableName() string {
	return "module_refinery_jobs"
}

// Static game data tables. Written by seeding tooling, read-only at runtime.

type ShipTypeModel struct {
	ID          string `gorm:"column:id;primaryKey;not null"`
	Name        string `gorm:"column:name;not null"`
	MiningPower int64  `gorm:"column:mining_power;not null"`
}

func (ShipTypeModel) TableName() string {
	return "ship_types"
}

type ResourceModel struct {
	ID   string `gorm:"column:id;primaryKey;not null"`
	Name string `gorm:"column:name;not null"`
}

func (ResourceModel) TableName() string {
	return "resources"
}

type SystemModel struct {
	ID             string  `gorm:"column:id;primaryKey;not null"`
	Name           string  `gorm:"column:name;not null"`
	X              float64 `gorm:"column:x;not null"`
	Y              float64 `gorm:"column:y;not null"`
	StartingSystem bool    `gorm:"column:starting_system;not null;default:false"`
}

func (SystemModel) TableName() string {
	return "systems"
}

type SystemLinkModel struct {
	FirstSystemID  string `gorm:"column:first_system_id;primaryKey;not null"`
	SecondSystemID string `gorm:"column:second_system_id;primaryKey;not null"`
}

func (SystemLinkModel) TableName() string {
	return "system_links"
}

type SystemResourceModel struct {
	SystemID   string `gorm:"column:system_id;primaryKey;not null"`
	ResourceID string `gorm:"column:resource_id;primaryKey;not null"`
}

func (SystemResourceModel) TableName() string {
	return "system_resources"
}

type BlueprintModel struct {
	ID              string `gorm:"column:id;primaryKey;not null"`
	DurationSeconds int64  `gorm:"column:duration_seconds;not null"`
}

func (BlueprintModel) TableName() string {
	return "blueprints"
}

type BlueprintInputResourceModel struct {
	BlueprintID string `gorm:"column:blueprint_id;primaryKey;not null"`
	ResourceID  string `gorm:"column:resource_id;primaryKey;not null"`
	Quantity    int64  `gorm:"column:quantity;not null"`
}

func (BlueprintInputResourceModel) TableName() string {
	return "blueprint_input_resources"
}

type BlueprintOutputResourceModel struct {
	BlueprintID string `gorm:"column:blueprint_id;primaryKey;not null"`
	ResourceID  string `gorm:"column:resource_id;primaryKey;not null"`
	Quantity    int64  `gorm:"column:quantity;not null"`
}

func (BlueprintOutputResourceModel) TableName() string {
	return "blueprint_output_resources"
}
