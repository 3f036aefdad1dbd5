package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mkazantsev/tablebook/internal/domain"
	"github.com/mkazantsev/tablebook/internal/service/booking"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type createBookingRequest struct {
	RestaurantID string `json:"restaurant_id"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	PartySize    string `json:"party_size"`
}

type bookingResponse struct {
	ID             string `json:"id"`
	RestaurantID   string `json:"restaurant_id"`
	RestaurantName string `json:"restaurant_name,omitempty"`
	Date           string `json:"date"`
	Time           string `json:"time"`
	PartySize      int    `json:"party_size"`
	TableSize      int    `json:"table_size"`
	Status         string `json:"status"`
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("", h.create)
	router.GET("", h.list)
	router.DELETE("/:id", h.cancel)
	router.GET("/:id/qr", h.qr)
}

func (h *BookingHandler) create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.service.CreateBooking(c.Request.Context(), booking.CreateBookingInput{
		UserID:       c.GetString(ctxUserID),
		Email:        c.GetString(ctxEmail),
		RestaurantID: req.RestaurantID,
		Date:         req.Date,
		Time:         req.Time,
		PartySize:    req.PartySize,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toBookingResponse(view))
}

func (h *BookingHandler) list(c *gin.Context) {
	bookings, err := h.service.ListUserBookings(c.Request.Context(), c.GetString(ctxUserID))
	if err != nil {
		abortWithError(c, err)
		return
	}

	out := make([]bookingResponse, len(bookings))
	for i := range bookings {
		out[i] = toBookingResponse(&domain.BookingView{Booking: bookings[i]})
	}
	c.JSON(http.StatusOK, out)
}

func (h *BookingHandler) cancel(c *gin.Context) {
	view, err := h.service.CancelBooking(c.Request.Context(), c.Param("id"), requesterFrom(c))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, toBookingResponse(view))
}

func (h *BookingHandler) qr(c *gin.Context) {
	png, err := h.service.BookingQR(c.Request.Context(), c.Param("id"), requesterFrom(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func toBookingResponse(view *domain.BookingView) bookingResponse {
	return bookingResponse{
		ID:             view.ID,
		RestaurantID:   view.RestaurantID,
		RestaurantName: view.RestaurantName,
		Date:           view.Date.Format("2006-01-02"),
		Time:           view.Time,
		PartySize:      view.PartySize,
		TableSize:      view.TableSize,
		Status:         string(view.Status),
	}
}
