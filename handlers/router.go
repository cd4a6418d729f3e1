package handlers

import (
	"time"

	"github.com/gorilla/mux"
)

type RouterParams struct {
	Handler        *Handler
	Limiter        *LoginLimiter
	RequestTimeout time.Duration
}

func NewRouter(p RouterParams) *mux.Router {
	ha := p.Handler
	router := mux.NewRouter()
	router.Use(ha.ErrorHandleMiddleware, ha.ClientMiddleware)
	if p.RequestTimeout > 0 {
		router.Use(TimeoutMiddleware(p.RequestTimeout))
	}
	api := router.PathPrefix("/api").Subrouter()

	authLimited := api.NewRoute().Subrouter()
	if p.Limiter != nil {
		authLimited.Use(p.Limiter.Middleware)
	}
	subAuth := api.NewRoute().Subrouter()
	subAuth.Use(ha.AuthMiddleware)
	subAdmin := subAuth.NewRoute().Subrouter()
	subAdmin.Use(ha.AdminMiddleware)

	authLimited.HandleFunc("/auth/register/user", ha.Register).Methods("POST")
	authLimited.HandleFunc("/auth/login", ha.Login).Methods("POST")
	api.HandleFunc("/auth/session", ha.Session).Methods("GET")
	subAuth.HandleFunc("/auth/logout", ha.Logout).Methods("POST")
	subAuth.HandleFunc("/user/me", ha.Me).Methods("GET")
	subAuth.HandleFunc("/user/update/{id:[0-9]+}", ha.UpdateProfile).Methods("PUT")

	api.HandleFunc("/products", ha.GetProducts).Methods("GET")
	api.HandleFunc("/products/categories", ha.GetCategories).Methods("GET")
	api.HandleFunc("/products/{id:[0-9]+}", ha.GetProduct).Methods("GET")
	subAdmin.HandleFunc("/products", ha.CreateProduct).Methods("POST")
	subAdmin.HandleFunc("/products/{id:[0-9]+}", ha.UpdateProduct).Methods("PUT")
	subAdmin.HandleFunc("/products/{id:[0-9]+}", ha.DeleteProduct).Methods("DELETE")

	api.HandleFunc("/favorites", ha.GetFavorites).Methods("GET")
	api.HandleFunc("/favorites/{id:[0-9]+}/toggle", ha.ToggleFavorite).Methods("POST")

	api.HandleFunc("/cart", ha.GetCart).Methods("GET")
	api.HandleFunc("/cart", ha.ClearCart).Methods("DELETE")
	api.HandleFunc("/cart/{id:[0-9]+}", ha.AddToCart).Methods("POST")
	api.HandleFunc("/cart/{id:[0-9]+}", ha.SetCartQuantity).Methods("PUT")
	api.HandleFunc("/cart/{id:[0-9]+}", ha.DeleteFromCart).Methods("DELETE")

	subAuth.HandleFunc("/orders", ha.GetOrders).Methods("GET")
	subAuth.HandleFunc("/orders/checkout", ha.Checkout).Methods("POST")
	subAuth.HandleFunc("/orders/{id:[0-9]+}/cancel", ha.CancelOrder).Methods("POST")
	subAdmin.HandleFunc("/orders/{id:[0-9]+}/status", ha.SetOrderStatus).Methods("PUT")

	api.HandleFunc("/notifications", ha.GetNotifications).Methods("GET")
	api.HandleFunc("/notifications/read", ha.MarkAllNotificationsRead).Methods("POST")
	api.HandleFunc("/notifications/{id:[0-9]+}/read", ha.MarkNotificationRead).Methods("POST")
	api.HandleFunc("/notifications/{id:[0-9]+}", ha.DeleteNotification).Methods("DELETE")

	subAdmin.HandleFunc("/admin/dashboard", ha.Dashboard).Methods("GET")
	return router
}
