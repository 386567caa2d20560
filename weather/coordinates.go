package weather

import (
	"math"
	"strconv"
	"strings"
)

// ParseCoordinates validates the latitude and longitude query values.
func ParseCoordinates(latitude, longitude string) (float64, float64, error) {
	latitude, longitude = strings.TrimSpace(latitude), strings.TrimSpace(longitude)
	if latitude == "" || longitude == "" {
		return 0, 0, ErrCoordinatesRequired
	}
	lat, err := strconv.ParseFloat(latitude, 64)
	if err != nil {
		return 0, 0, ErrInvalidCoordinates
	}
	lon, err := strconv.ParseFloat(longitude, 64)
	if err != nil {
		return 0, 0, ErrInvalidCoordinates
	}
	if !finite(lat) || !finite(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0, 0, ErrInvalidCoordinates
	}
	return lat, lon, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
