package domain

import "math"

// earthRadiusMeters is the IUGG mean earth radius
const earthRadiusMeters = 6371008.8

// Coordinates is a WGS84 position in decimal degrees
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the position is on the globe
func (c Coordinates) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180 &&
		!math.IsNaN(c.Latitude) && !math.IsNaN(c.Longitude)
}

// Distance returns the great-circle distance in meters (haversine)
func Distance(a, b Coordinates) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

// GeofenceResult is the outcome of a geofence evaluation
type GeofenceResult struct {
	// Checked is false when the event has no geofence or no venue coordinates
	Checked          bool
	Within           bool
	RadiusMeters     float64
	ValidatorMissing bool
	HolderMissing    bool
	// Distances are nil when the corresponding coordinates were missing
	ValidatorDistance *float64
	HolderDistance    *float64
}

// LocationRequired reports whether a coordinate pair was missing
func (r GeofenceResult) LocationRequired() bool {
	return r.Checked && (r.ValidatorMissing || r.HolderMissing)
}

// EvaluateGeofence checks that both the validator and the holder are within
// radius of the venue. radius must already be resolved to a positive value.
func EvaluateGeofence(fence Geofence, radius float64, venue, validator, holder *Coordinates) GeofenceResult {
	if !fence.Enabled || venue == nil {
		return GeofenceResult{Within: true}
	}

	result := GeofenceResult{
		Checked:          true,
		RadiusMeters:     radius,
		ValidatorMissing: validator == nil,
		HolderMissing:    holder == nil,
	}

	if validator != nil {
		d := Distance(*venue, *validator)
		result.ValidatorDistance = &d
	}
	if holder != nil {
		d := Distance(*venue, *holder)
		result.HolderDistance = &d
	}

	if result.ValidatorMissing || result.HolderMissing {
		return result
	}

	result.Within = *result.ValidatorDistance <= radius && *result.HolderDistance <= radius
	return result
}
