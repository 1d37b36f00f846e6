package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type SlotStatus string

const (
	SlotStatusAvailable SlotStatus = "available"
	SlotStatusOccupied  SlotStatus = "occupied"
	SlotStatusReserved  SlotStatus = "reserved"
	SlotStatusDisabled  SlotStatus = "disabled"
)

type SlotType string

const (
	SlotTypeRegular    SlotType = "regular"
	SlotTypeDisabled   SlotType = "disabled"
	SlotTypeElectric   SlotType = "electric"
	SlotTypeCompact    SlotType = "compact"
	SlotTypeMotorcycle SlotType = "motorcycle"
)

// Zone is a priced, geofenced parking area. TotalSlots, when positive, is the
// authoritative capacity regardless of how many slot rows exist.
type Zone struct {
	ID               int32           `json:"id"`
	CountryCode      string          `json:"country_code"`
	Name             string          `json:"name"`
	HourlyRate       decimal.Decimal `json:"hourly_rate"`
	TotalSlots       int32           `json:"total_slots"`
	Latitude         float64         `json:"latitude"`
	Longitude        float64         `json:"longitude"`
	RadiusMeters     int32           `json:"radius_meters"`
	MaxDurationHours int32           `json:"max_duration_hours"`
	IsActive         bool            `json:"is_active"`
	CreatedOn        time.Time       `json:"created_on"`
	UpdatedOn        time.Time       `json:"updated_on"`
}

type ParkingSlot struct {
	ID        int32      `json:"id"`
	ZoneID    int32      `json:"zone_id"`
	SlotCode  string     `json:"slot_code"`
	SlotType  SlotType   `json:"slot_type"`
	Status    SlotStatus `json:"status"`
	CreatedOn time.Time  `json:"created_on"`
	UpdatedOn time.Time  `json:"updated_on"`
}

// ZoneAvailability is the occupancy view of a zone served to drivers.
type ZoneAvailability struct {
	ZoneID        int32           `json:"zone_id"`
	ZoneName      string          `json:"zone_name"`
	Capacity      int32           `json:"capacity"`
	Available     int32           `json:"available_slots"`
	Occupied      int32           `json:"occupied_slots"`
	Reserved      int32           `json:"reserved_slots"`
	Disabled      int32           `json:"disabled_slots"`
	OccupancyRate float64         `json:"occupancy_rate"`
	HourlyRate    decimal.Decimal `json:"hourly_rate"`
	Latitude      float64         `json:"latitude"`
	Longitude     float64         `json:"longitude"`
	RadiusMeters  int32           `json:"radius_meters"`
}
