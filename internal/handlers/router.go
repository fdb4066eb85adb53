package handlers

import (
	"net/http"

	"dormitory/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter собирает маршруты /api
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", h.PingHandler)

		// заявки
		r.Get("/bids/my", h.GetUserBidsHandler)
		r.Get("/bids/my/opened-types", h.GetOpenedTypesHandler)
		r.Get("/bids/in-process", h.GetInProcessBidsHandler)
		r.Get("/bids/pending", h.GetPendingBidsHandler)
		r.Get("/bids/archived", h.GetArchivedBidsHandler)
		r.Get("/bids/{bidId}", h.GetBidHandler)

		r.Post("/bids/occupation", CreateBidHandler[models.OccupationPayload](h, models.RoleNonResident))
		r.Put("/bids/occupation/{bidId}", EditBidHandler[models.OccupationPayload](h, models.RoleNonResident))
		r.Post("/bids/eviction", CreateBidHandler[models.EvictionPayload](h, models.RoleResident))
		r.Put("/bids/eviction/{bidId}", EditBidHandler[models.EvictionPayload](h, models.RoleResident))
		r.Post("/bids/departure", CreateBidHandler[models.DeparturePayload](h, models.RoleResident))
		r.Put("/bids/departure/{bidId}", EditBidHandler[models.DeparturePayload](h, models.RoleResident))
		r.Post("/bids/room-change", CreateBidHandler[models.RoomChangePayload](h, models.RoleResident))
		r.Put("/bids/room-change/{bidId}", EditBidHandler[models.RoomChangePayload](h, models.RoleResident))

		r.Post("/bids/{bidId}/accept", h.AcceptBidHandler)
		r.Post("/bids/{bidId}/pend", h.PendBidHandler)
		r.Post("/bids/{bidId}/deny", h.DenyBidHandler)

		// проживающие
		r.Get("/residents/to-eviction", h.GetToEvictionHandler)
		r.Post("/residents/{login}/evict", h.EvictResidentHandler)
		r.Get("/residents", h.GetResidentsHandler)
		r.Get("/rooms/available", h.GetAvailableRoomsHandler)

		// персонал
		r.Get("/staff", h.GetStaffHandler)
		r.Delete("/staff/{login}", h.FireHandler)

		// оплата
		r.Get("/payments/my", h.GetSelfPaymentHandler)
		r.Post("/payments", h.PayHandler)
		r.Get("/payments/{login}", h.GetPaymentHandler)

		// проходная
		r.Post("/guard/{login}/entry", h.GuardEntryHandler)
		r.Post("/guard/{login}/exit", h.GuardExitHandler)
		r.Get("/guard/my/history", h.GetSelfGuardHistoryHandler)
		r.Get("/guard/{login}/history", h.GetGuardHistoryHandler)

		// уведомления
		r.Get("/notifications", h.GetNotificationsHandler)
		r.Post("/notifications/read-all", h.ReadAllNotificationsHandler)
		r.Post("/notifications/{id}/read", h.ReadNotificationHandler)
	})
	return r
}
