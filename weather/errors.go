package weather

// Error is an HTTP-facing failure. It serializes as {"error": Message} and
// Code becomes the response status.
type Error struct {
	Code    int    `json:"-"`
	Message string `json:"error"`
} // @name Error

func (e Error) Error() string {
	return e.Message
}

var (
	ErrCoordinatesRequired = Error{Code: 400, Message: "Latitude and longitude are required"}
	ErrInvalidCoordinates  = Error{Code: 400, Message: "Invalid coordinates"}
	ErrNoAPIKey            = Error{Code: 400, Message: "OpenWeatherMap API key not configured"}
)
