package domain

// DriverStatus represents the current status of a driver.
type DriverStatus string

const (
	DriverStatusOnline  DriverStatus = "online"
	DriverStatusOffline DriverStatus = "offline"
	DriverStatusOnTrip  DriverStatus = "on_trip"
)

// Driver represents a driver in the system.
type Driver struct {
	ID     string
	Name   string
	Phone  string
	Status DriverStatus
}

// Vehicle represents a vehicle registered to a driver.
type Vehicle struct {
	ID       string
	DriverID string
	Make     string
	Model    string
	Plate    string
	Type     string // matches PricingPlan.VehicleType
}
