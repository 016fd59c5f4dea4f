package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/obiagwu/vendara-backend/api/controllers"
	"github.com/obiagwu/vendara-backend/api/middleware"
	cartsvc "github.com/obiagwu/vendara-backend/internal/cart"
	notificationsvc "github.com/obiagwu/vendara-backend/internal/notifications"
	ordersvc "github.com/obiagwu/vendara-backend/internal/orders"
	paymentsvc "github.com/obiagwu/vendara-backend/internal/payments"
	settlementsvc "github.com/obiagwu/vendara-backend/internal/settlement"
	warehousesvc "github.com/obiagwu/vendara-backend/internal/warehouse"
	"github.com/obiagwu/vendara-backend/pkg/config"
	"github.com/obiagwu/vendara-backend/pkg/logger"
)

// NewRouter wires every HTTP surface of the service. Identity arrives via
// gateway-set headers, so the private routes only differ from the public
// ones in requiring those headers at the controller level.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	readiness map[string]controllers.Pinger,
	cartService cartsvc.Service,
	orderService ordersvc.Service,
	paymentService paymentsvc.Service,
	settlementService settlementsvc.Service,
	notificationService notificationsvc.Service,
	warehouseService warehousesvc.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Identity(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Post("/items", controllers.CartAdd(cartService, logg))
			r.Patch("/items/{itemID}", controllers.CartUpdate(cartService, logg))
			r.Delete("/items/{itemID}", controllers.CartRemove(cartService, logg))
			r.Get("/items", controllers.CartList(cartService, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.OrderCreate(orderService, logg))
			r.Get("/{orderID}", controllers.OrderGet(orderService, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/charge", controllers.PaymentCharge(paymentService, logg))
			r.Post("/verify", controllers.PaymentVerify(paymentService, logg))
			r.Post("/refund", controllers.PaymentRefund(paymentService, logg))
		})

		r.Route("/vendor", func(r chi.Router) {
			r.Post("/bank-details", controllers.SettlementSubmitBankDetail(settlementService, logg))
			r.Get("/order-items", controllers.VendorOrderItemList(warehouseService, logg))
			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", controllers.NotificationList(notificationService, logg))
				r.Post("/{notificationID}/read", controllers.NotificationMarkRead(notificationService, logg))
			})
		})
	})

	return r
}
