package estimate

import "github.com/mohammed-shakir/climate-risk-cache/internal/core/model"

type City struct {
	Name string
	model.Location
}

// MajorCities is the reference list for isUrbanArea.
var MajorCities = []City{
	{"Dhaka", model.Location{Latitude: 23.8103, Longitude: 90.4125}},
	{"Kolkata", model.Location{Latitude: 22.5726, Longitude: 88.3639}},
	{"Mumbai", model.Location{Latitude: 19.0760, Longitude: 72.8777}},
	{"Delhi", model.Location{Latitude: 28.7041, Longitude: 77.1025}},
	{"Karachi", model.Location{Latitude: 24.8607, Longitude: 67.0011}},
	{"Shanghai", model.Location{Latitude: 31.2304, Longitude: 121.4737}},
	{"Beijing", model.Location{Latitude: 39.9042, Longitude: 116.4074}},
	{"Tokyo", model.Location{Latitude: 35.6762, Longitude: 139.6503}},
	{"Seoul", model.Location{Latitude: 37.5665, Longitude: 126.9780}},
	{"Manila", model.Location{Latitude: 14.5995, Longitude: 120.9842}},
	{"Jakarta", model.Location{Latitude: -6.2088, Longitude: 106.8456}},
	{"Bangkok", model.Location{Latitude: 13.7563, Longitude: 100.5018}},
	{"Singapore", model.Location{Latitude: 1.3521, Longitude: 103.8198}},
	{"Sydney", model.Location{Latitude: -33.8688, Longitude: 151.2093}},
	{"Cairo", model.Location{Latitude: 30.0444, Longitude: 31.2357}},
	{"Lagos", model.Location{Latitude: 6.5244, Longitude: 3.3792}},
	{"Nairobi", model.Location{Latitude: -1.2921, Longitude: 36.8219}},
	{"Johannesburg", model.Location{Latitude: -26.2041, Longitude: 28.0473}},
	{"Istanbul", model.Location{Latitude: 41.0082, Longitude: 28.9784}},
	{"Moscow", model.Location{Latitude: 55.7558, Longitude: 37.6173}},
	{"London", model.Location{Latitude: 51.5074, Longitude: -0.1278}},
	{"Paris", model.Location{Latitude: 48.8566, Longitude: 2.3522}},
	{"Berlin", model.Location{Latitude: 52.5200, Longitude: 13.4050}},
	{"Madrid", model.Location{Latitude: 40.4168, Longitude: -3.7038}},
	{"Stockholm", model.Location{Latitude: 59.3293, Longitude: 18.0686}},
	{"New York", model.Location{Latitude: 40.7128, Longitude: -74.0060}},
	{"Los Angeles", model.Location{Latitude: 34.0522, Longitude: -118.2437}},
	{"Chicago", model.Location{Latitude: 41.8781, Longitude: -87.6298}},
	{"Houston", model.Location{Latitude: 29.7604, Longitude: -95.3698}},
	{"Mexico City", model.Location{Latitude: 19.4326, Longitude: -99.1332}},
	{"Bogota", model.Location{Latitude: 4.7110, Longitude: -74.0721}},
	{"Lima", model.Location{Latitude: -12.0464, Longitude: -77.0428}},
	{"Sao Paulo", model.Location{Latitude: -23.5505, Longitude: -46.6333}},
	{"Buenos Aires", model.Location{Latitude: -34.6037, Longitude: -58.3816}},
}
