package model

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type LocationKind string

const (
	LocationUnspecified  LocationKind = "unspecified"
	LocationPhysical     LocationKind = "physical"
	LocationTelemedicine LocationKind = "telemedicine"
)

// LocationMode is where an appointment takes place. A physical location and
// telemedicine are mutually exclusive; an input that sets both is kept as-is so
// validation can reject it.
type LocationMode struct {
	Kind       LocationKind `json:"kind"`
	LocationID *uuid.UUID   `json:"location_id,omitempty"`
}

func PhysicalLocation(id uuid.UUID) LocationMode {
	return LocationMode{Kind: LocationPhysical, LocationID: &id}
}

func Telemedicine() LocationMode {
	return LocationMode{Kind: LocationTelemedicine}
}

func UnspecifiedLocation() LocationMode {
	return LocationMode{Kind: LocationUnspecified}
}

// LocationModeFrom maps the two independent form fields onto a mode.
func LocationModeFrom(locationID *uuid.UUID, telemedicine bool) LocationMode {
	switch {
	case telemedicine:
		return LocationMode{Kind: LocationTelemedicine, LocationID: locationID}
	case locationID != nil:
		return PhysicalLocation(*locationID)
	default:
		return UnspecifiedLocation()
	}
}

// Apply resolves a partial edit of the location fields against m. A field that
// was not sent keeps its current meaning, so telemedicine=false only clears a
// telemedicine appointment and leaves a physical location alone.
func (m LocationMode) Apply(locationID *uuid.UUID, telemedicine *bool) LocationMode {
	switch {
	case locationID == nil && telemedicine == nil:
		return m
	case telemedicine == nil:
		return PhysicalLocation(*locationID)
	case locationID != nil:
		return LocationModeFrom(locationID, *telemedicine)
	case *telemedicine:
		return Telemedicine()
	case m.Kind == LocationTelemedicine:
		return UnspecifiedLocation()
	default:
		return m
	}
}

// Normalized treats an empty kind as unspecified.
func (m LocationMode) Normalized() LocationMode {
	if m.Kind == "" {
		m.Kind = LocationUnspecified
	}
	return m
}

// Check returns a description of what is wrong, or "" when the mode is consistent.
func (m LocationMode) Check() string {
	switch m.Normalized().Kind {
	case LocationPhysical:
		if m.LocationID == nil || *m.LocationID == uuid.Nil {
			return "physical location requires location_id"
		}
	case LocationTelemedicine:
		if m.LocationID != nil {
			return "telemedicine and a physical location are mutually exclusive"
		}
	case LocationUnspecified:
		if m.LocationID != nil {
			return "location_id set without physical kind"
		}
	default:
		return fmt.Sprintf("unknown location kind %q", m.Kind)
	}
	return ""
}

type LocationFilterKind int

const (
	LocationFilterAll LocationFilterKind = iota
	LocationFilterTelemedicine
	LocationFilterSpecific
)

// LocationFilter selects appointments by location. The reserved words only
// exist at the parsing boundary, so a real location id can never collide with
// them.
type LocationFilter struct {
	Kind       LocationFilterKind
	LocationID uuid.UUID
}

func AllLocations() LocationFilter { return LocationFilter{Kind: LocationFilterAll} }

func TelemedicineOnly() LocationFilter { return LocationFilter{Kind: LocationFilterTelemedicine} }

func SpecificLocation(id uuid.UUID) LocationFilter {
	return LocationFilter{Kind: LocationFilterSpecific, LocationID: id}
}

// ParseLocationFilter accepts "all", "telemedicine" or a location uuid.
func ParseLocationFilter(raw string) (LocationFilter, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "all":
		return AllLocations(), nil
	case "telemedicine":
		return TelemedicineOnly(), nil
	}
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return LocationFilter{}, fmt.Errorf("invalid location filter %q", raw)
	}
	return SpecificLocation(id), nil
}

func (f LocationFilter) String() string {
	switch f.Kind {
	case LocationFilterTelemedicine:
		return "telemedicine"
	case LocationFilterSpecific:
		return f.LocationID.String()
	default:
		return "all"
	}
}

// Matches reports whether an appointment at mode passes the filter.
func (f LocationFilter) Matches(mode LocationMode) bool {
	switch f.Kind {
	case LocationFilterTelemedicine:
		return mode.Kind == LocationTelemedicine
	case LocationFilterSpecific:
		return mode.Kind == LocationPhysical && mode.LocationID != nil && *mode.LocationID == f.LocationID
	default:
		return true
	}
}
