package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jerrymcma/rideglad-sub000/internal/service"
)

// DriverHandler handles HTTP requests for driver presence.
type DriverHandler struct {
	driverService *service.DriverService
}

// NewDriverHandler creates a new DriverHandler.
func NewDriverHandler(driverService *service.DriverService) *DriverHandler {
	return &DriverHandler{driverService: driverService}
}

// RegisterDriverRequest is the HTTP request body for registering a
// driver with their vehicle.
type RegisterDriverRequest struct {
	Name         string `json:"name" binding:"required"`
	Phone        string `json:"phone" binding:"required"`
	VehicleMake  string `json:"vehicle_make" binding:"required"`
	VehicleModel string `json:"vehicle_model" binding:"required"`
	VehiclePlate string `json:"vehicle_plate" binding:"required"`
	VehicleType  string `json:"vehicle_type" binding:"required"`
}

// DriverResponse is the HTTP representation of a driver.
type DriverResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Status    string `json:"status"`
	VehicleID string `json:"vehicle_id,omitempty"`
}

// UpdateLocationRequest is the HTTP request body for a location ping.
type UpdateLocationRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Register handles POST /v1/drivers
func (h *DriverHandler) Register(c *gin.Context) {
	var req RegisterDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	driver, vehicle, err := h.driverService.Register(c.Request.Context(), service.RegisterDriverRequest{
		Name:         req.Name,
		Phone:        req.Phone,
		VehicleMake:  req.VehicleMake,
		VehicleModel: req.VehicleModel,
		VehiclePlate: req.VehiclePlate,
		VehicleType:  req.VehicleType,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, DriverResponse{
		ID:        driver.ID,
		Name:      driver.Name,
		Phone:     driver.Phone,
		Status:    string(driver.Status),
		VehicleID: vehicle.ID,
	})
}

// GetDriver handles GET /v1/drivers/:id
func (h *DriverHandler) GetDriver(c *gin.Context) {
	driver, err := h.driverService.GetDriver(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, DriverResponse{
		ID:     driver.ID,
		Name:   driver.Name,
		Phone:  driver.Phone,
		Status: string(driver.Status),
	})
}

// UpdateLocation handles POST /v1/drivers/:id/location
func (h *DriverHandler) UpdateLocation(c *gin.Context) {
	var req UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	if err := h.driverService.UpdateLocation(c.Request.Context(), c.Param("id"), req.Lat, req.Lng); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GoOnline handles POST /v1/drivers/:id/online
func (h *DriverHandler) GoOnline(c *gin.Context) {
	if err := h.driverService.GoOnline(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GoOffline handles POST /v1/drivers/:id/offline
func (h *DriverHandler) GoOffline(c *gin.Context) {
	if err := h.driverService.GoOffline(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
