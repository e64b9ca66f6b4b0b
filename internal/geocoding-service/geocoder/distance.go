package geocoder

import (
	"fmt"
	"math"
)

const earthRadiusKm = 6371.0

// DistanceKm calcula a distância de grande círculo (haversine) em km.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// FormatKm: "X.X km".
func FormatKm(km float64) string {
	return fmt.Sprintf("%.1f km", km)
}

func toRad(deg float64) float64 { return deg * math.Pi / 180 }
