package location

// Location represents the geographical coordinates of a reporting device
type Location struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64
}
