package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	mw "github.com/diagnosis/seatrips/pkg/middleware"
)

// RouteOptions carries the shared middleware dependencies for Routes.
// A nil Idempotency store or Limiter leaves that protection off.
type RouteOptions struct {
	Idempotency    mw.IdempotencyStore
	IdempotencyTTL time.Duration
	Limiter        *mw.RateLimiter
}

// Routes mounts the /v1 API on r.
func (h *Handlers) Routes(r chi.Router, opts RouteOptions) {
	passthrough := func(next http.Handler) http.Handler { return next }

	limit := passthrough
	if opts.Limiter != nil {
		limit = opts.Limiter.Limit(h.PreviewScope)
	}
	idempotent := passthrough
	if opts.Idempotency != nil {
		idempotent = mw.Idempotency(opts.Idempotency, opts.IdempotencyTTL, func(r *http.Request) string {
			return sessionID(r.Context())
		})
	}

	r.Route("/v1", func(r chi.Router) {
		r.Route("/session", func(r chi.Router) {
			r.Post("/", h.OpenSession)
			r.With(h.RequireSession).Get("/", h.GetSession)
		})

		r.Route("/auth", func(r chi.Router) {
			r.Use(h.RequireSession)
			r.Post("/login", h.Login)
			r.Post("/register", h.Register)
			r.Post("/logout", h.Logout)
		})

		r.Route("/trips", func(r chi.Router) {
			r.Use(h.OptionalSession)
			r.Get("/", h.SearchTrips)
			r.Get("/{id}", h.GetTrip)
			r.Get("/{id}/quote", h.Quote)
			r.Group(func(r chi.Router) {
				r.Use(h.RequireSession, h.RequireAuth)
				r.With(limit).Post("/{id}/promo-preview", h.PromoPreview)
				r.Delete("/{id}/promo-preview", h.ClearPromoPreview)
			})
		})

		r.Route("/bookings", func(r chi.Router) {
			r.Use(h.RequireSession, h.RequireAuth)
			r.Get("/", h.ListBookings)
			r.With(idempotent).Post("/", h.CreateBooking)
			r.Post("/{id}/pay-remaining", h.PayRemaining)
			r.Post("/{id}/check-in", h.CheckIn)
			r.Post("/{id}/cancel", h.CancelBooking)
		})

		r.Route("/profile", func(r chi.Router) {
			r.Use(h.RequireSession, h.RequireAuth)
			r.Get("/", h.Profile)
			r.Patch("/", h.UpdateProfile)
			r.Get("/calendar", h.Calendar)
			r.Get("/finances", h.Finances)
			r.Get("/verification", h.Verification)
		})

		r.With(h.RequireSession, h.RequireAuth).Get("/payments/{bookingID}/status", h.PaymentStatus)

		r.Route("/blog", func(r chi.Router) {
			r.Get("/", h.Articles)
			r.Get("/{slug}", h.Article)
		})
		r.Route("/faq", func(r chi.Router) {
			r.Get("/", h.FAQs)
			r.Get("/{slug}", h.FAQ)
		})

		r.With(h.OptionalSession).HandleFunc("/boats/*", h.Boats)
	})
}
