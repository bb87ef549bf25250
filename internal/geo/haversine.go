// Package geo содержит геометрические вычисления для поиска ближайших аптек.
package geo

import "math"

const earthRadiusKm = 6371.0

// Distance возвращает расстояние между двумя точками в километрах
// по формуле гаверсинуса.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLng := radians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// WithinRadius сообщает, находится ли точка (lat2, lng2) в радиусе radiusKm
// от точки (lat1, lng1).
func WithinRadius(lat1, lng1, lat2, lng2, radiusKm float64) bool {
	return Distance(lat1, lng1, lat2, lng2) <= radiusKm
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
