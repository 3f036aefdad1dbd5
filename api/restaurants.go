package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mkazantsev/tablebook/internal/service/restaurants"
	"github.com/mkazantsev/tablebook/internal/service/search"
)

type RestaurantHandler struct {
	service restaurants.RestaurantUseCase
	search  search.SearchUseCase
}

func NewRestaurantHandler(service restaurants.RestaurantUseCase, searchSvc search.SearchUseCase) *RestaurantHandler {
	return &RestaurantHandler{service: service, search: searchSvc}
}

// Register mounts the public read surface; RegisterProtected mounts the
// manager-side mutations behind auth.
func (h *RestaurantHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.list)
	router.GET("/:id", h.get)
}

func (h *RestaurantHandler) RegisterProtected(router *gin.RouterGroup) {
	router.POST("", h.create)
	router.PUT("/:id/availability", h.setAvailability)
}

func (h *RestaurantHandler) list(c *gin.Context) {
	results, err := h.search.Search(c.Request.Context(), search.SearchInput{
		City:       c.Query("city"),
		PostalCode: c.Query("postal_code"),
		Date:       c.Query("date"),
		Time:       c.Query("time"),
		PartySize:  c.Query("party_size"),
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

func (h *RestaurantHandler) get(c *gin.Context) {
	summary, err := h.search.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *RestaurantHandler) create(c *gin.Context) {
	var input restaurants.RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	input.ManagerID = c.GetString(ctxUserID)
	input.ManagerName = c.GetString(ctxEmail)

	rest, err := h.service.Register(c.Request.Context(), input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rest)
}

func (h *RestaurantHandler) setAvailability(c *gin.Context) {
	var input restaurants.SetAvailabilityInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	av, err := h.service.SetAvailability(c.Request.Context(), c.Param("id"), requesterFrom(c), input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, av)
}
