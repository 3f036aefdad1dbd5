package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mkazantsev/tablebook/api"
	"github.com/mkazantsev/tablebook/config"
	"github.com/mkazantsev/tablebook/internal/service/booking"
	"github.com/mkazantsev/tablebook/internal/service/restaurants"
	"github.com/mkazantsev/tablebook/internal/service/search"
	"github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Run assembles the HTTP server and blocks until the context is cancelled or
// the server fails.
func Run(
	ctx context.Context,
	cfg *config.Config,
	bookingSvc booking.BookingUseCase,
	restaurantSvc restaurants.RestaurantUseCase,
	searchSvc search.SearchUseCase,
) error {
	httpSrv := newServer(cfg, bookingSvc, restaurantSvc, searchSvc)

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

func newServer(
	cfg *config.Config,
	bookingSvc booking.BookingUseCase,
	restaurantSvc restaurants.RestaurantUseCase,
	searchSvc search.SearchUseCase,
) *http.Server {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	restaurantHandler := api.NewRestaurantHandler(restaurantSvc, searchSvc)
	bookingHandler := api.NewBookingHandler(bookingSvc)

	public := router.Group("/api/restaurants")
	restaurantHandler.Register(public)

	auth := api.Auth(cfg.Auth.JWTSecret)
	protected := router.Group("/api/restaurants", auth)
	restaurantHandler.RegisterProtected(protected)

	bookings := router.Group("/api/bookings", auth)
	bookingHandler.Register(bookings)

	if cfg.HTTP.SwaggerDir != "" {
		router.StaticFS("/swagger", http.Dir(cfg.HTTP.SwaggerDir))
		router.GET("/docs/*any", gin.WrapH(httpSwagger.Handler(
			httpSwagger.URL("/swagger/tablebook.swagger.json"),
		)))
	}

	corsWrapper := cors.New(cors.Options{
		AllowedOrigins:   cfg.HTTP.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	return &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: corsWrapper.Handler(router),
	}
}
