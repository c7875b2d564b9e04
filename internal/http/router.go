package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type Services struct {
	Cart     CartService
	Checkout CheckoutService
	Orders   OrdersService
}

// NewRouter wires every route of the storefront API. requestTimeout bounds
// each handler's calls into the services.
func NewRouter(svc Services, requestTimeout time.Duration, log *zap.Logger) http.Handler {
	cartHandler := NewCartHandler(svc.Cart, requestTimeout)
	checkoutHandler := NewCheckoutHandler(svc.Checkout, requestTimeout)
	ordersHandler := NewOrdersHandler(svc.Orders, requestTimeout)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)
	// the handler deadline is shorter, so services see it first
	r.Use(middleware.Timeout(requestTimeout + time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(MockAuthMiddleware)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Get("/totals", cartHandler.Totals)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{product_id}", cartHandler.UpdateQuantity)
			r.Delete("/items/{product_id}", cartHandler.RemoveItem)
		})

		r.Post("/checkout", checkoutHandler.InitiateCheckout)
		r.Get("/checkout/{checkout_id}", checkoutHandler.GetCheckout)

		r.Get("/orders", ordersHandler.ListOrders)

		r.Route("/admin", func(r chi.Router) {
			r.Use(MockAdminMiddleware)
			r.Put("/orders/{order_id}/status", ordersHandler.UpdateOrderStatus)
		})
	})

	return otelhttp.NewHandler(r, "storefront")
}
