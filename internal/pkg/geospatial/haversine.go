package geospatial

import "math"

const (
	earthRadiusKm = 6371.0
	kmPerDegree   = 111.32
)

// Haversine calculates the great-circle distance in kilometres between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// BoundingBox returns a box around a point reaching radiusKm in every
// direction. Longitude reach grows towards the poles; at the poles it is
// capped at half the globe.
func BoundingBox(lat, lon, radiusKm float64) (minLat, maxLat, minLon, maxLon float64) {
	latDelta := radiusKm / kmPerDegree
	lonDelta := 180.0
	if cos := math.Cos(toRad(lat)); cos > 1e-9 {
		lonDelta = math.Min(radiusKm/(kmPerDegree*cos), 180)
	}
	return lat - latDelta, lat + latDelta, lon - lonDelta, lon + lonDelta
}

// ExtentKm measures a box: width along its middle latitude, height along its
// middle meridian.
func ExtentKm(minLat, maxLat, minLon, maxLon float64) (widthKm, heightKm float64) {
	midLat := (minLat + maxLat) / 2
	midLon := (minLon + maxLon) / 2
	return Haversine(midLat, minLon, midLat, maxLon), Haversine(minLat, midLon, maxLat, midLon)
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
