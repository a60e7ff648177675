package visits

import (
	"fmt"
	"math"
	"strconv"

	"github.com/Yadlapure/health-care/pkg/types"
)

const earthRadiusMeters = 6371000.0

// checkGeofence rejects check events reported farther from the visit
// location than the configured radius
func checkGeofence(location types.GeoPoint, lat, lng string, radiusMeters float64) error {
	visitLat, visitLng, err := parseCoordinates(location.Lat, location.Lng)
	if err != nil {
		// Legacy visits may carry unparseable coordinates; skip the fence
		// rather than lock the employee out.
		return nil
	}

	eventLat, eventLng, err := parseCoordinates(lat, lng)
	if err != nil {
		return types.NewValidationError(types.ErrCodeValidationFailed, "Invalid coordinates", map[string]interface{}{
			"lat": lat,
			"lng": lng,
		})
	}

	distance := haversineMeters(visitLat, visitLng, eventLat, eventLng)
	if distance > radiusMeters {
		return types.NewPreconditionError("OUTSIDE_GEOFENCE",
			"Reported position is outside the visit location radius",
			map[string]interface{}{
				"distance_meters": fmt.Sprintf("%.0f", distance),
				"radius_meters":   fmt.Sprintf("%.0f", radiusMeters),
			})
	}

	return nil
}

func parseCoordinates(latStr, lngStr string) (float64, float64, error) {
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return 0, 0, err
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return 0, 0, err
	}
	return lat, lng, nil
}

// haversineMeters returns the great-circle distance between two points
func haversineMeters(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}
