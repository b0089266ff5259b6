package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/dukerupert/clausedesk/internal/account"
	"github.com/dukerupert/clausedesk/internal/analysis"
	"github.com/dukerupert/clausedesk/internal/archive"
	"github.com/dukerupert/clausedesk/internal/auth"
	"github.com/dukerupert/clausedesk/internal/billing"
	"github.com/dukerupert/clausedesk/internal/config"
	"github.com/dukerupert/clausedesk/internal/email"
	"github.com/dukerupert/clausedesk/internal/handler"
	"github.com/dukerupert/clausedesk/internal/middleware"
	"github.com/dukerupert/clausedesk/internal/push"
	"github.com/dukerupert/clausedesk/internal/reminder"
	"github.com/dukerupert/clausedesk/internal/store"
	"github.com/dukerupert/clausedesk/internal/usage"
	ws "github.com/dukerupert/clausedesk/internal/websocket"
)

type Server struct {
	cfg           *config.Config
	db            *sql.DB
	hub           *ws.Hub
	tracker       *usage.Tracker
	registry      *usage.Registry
	accounts      *account.Service
	issuer        *auth.Issuer
	sessionStore  *store.SessionStore
	usageStore    *store.UsageStore
	rateLimiter   *middleware.RateLimiter
	scheduler     *reminder.Scheduler
	webhook       *billing.Webhook
	authH         *handler.AuthHandler
	usageH        *handler.UsageHandler
	analysisH     *handler.AnalysisHandler
	reportH       *handler.ReportHandler
	reminderH     *handler.ReminderHandler
	notificationH *handler.NotificationHandler
	supportH      *handler.SupportHandler
	billingH      *handler.BillingHandler
	logger        *slog.Logger
}

// New wires every component. gen is the language model backend used for
// analysis; pass analysis.Unavailable{} when none is configured.
func New(cfg *config.Config, db *sql.DB, gen analysis.Generator, logger *slog.Logger) (*Server, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	tracker, err := usage.NewTracker(cfg.UsageLimits(), usage.WithLocation(loc))
	if err != nil {
		return nil, err
	}
	registry := usage.NewRegistry()
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db)
	usageStore := store.NewUsageStore(db)
	reminderStore := store.NewReminderStore(db)
	notifyStore := store.NewNotificationStore(db)
	supportStore := store.NewSupportStore(db)
	reportStore := store.NewReportStore(db)

	emailClient := email.NewClient(cfg.Email.PostmarkToken, cfg.Email.From, cfg.Server.BaseURL)
	pushSvc := push.NewService(cfg.Push.VAPIDPublicKey, cfg.Push.VAPIDPrivateKey, cfg.Push.Subscriber)

	accounts := account.NewService(userStore, sessionStore, usageStore, tracker, registry, emailClient, hub,
		logger.With("component", "account"), account.WithSessionTTL(cfg.Auth.SessionTTL))
	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)

	analyzer := analysis.NewAnalyzer(gen, logger.With("component", "analysis"),
		analysis.WithRateLimit(rate.Limit(cfg.LLM.RateLimit), cfg.LLM.Burst),
		analysis.WithRetry(cfg.LLM.MaxRetries, cfg.LLM.Backoff))

	reminderLogger := logger.With("component", "reminder")
	reminderSvc := reminder.NewService(reminderStore, userStore, notifyStore, emailClient, reminderLogger,
		reminder.WithLocation(loc))
	scheduler := reminder.NewScheduler(reminderSvc, notifyStore, pushSvc, hub, cfg.Reminder.Interval, reminderLogger)

	reportArchive := archive.New(archive.Config{
		Endpoint:   cfg.Archive.Endpoint,
		Bucket:     cfg.Archive.Bucket,
		Region:     cfg.Archive.Region,
		AccessKey:  cfg.Archive.AccessKey,
		SecretKey:  cfg.Archive.SecretKey,
		Passphrase: cfg.Archive.Passphrase,
	})

	billingLogger := logger.With("component", "billing")
	billingClient := billing.NewClient(billing.Config{
		SecretKey:       cfg.Billing.StripeSecretKey,
		WebhookSecret:   cfg.Billing.WebhookSecret,
		PriceID:         cfg.Billing.PriceID,
		SuccessURL:      cfg.Billing.SuccessURL,
		CancelURL:       cfg.Billing.CancelURL,
		PortalReturnURL: cfg.Billing.PortalReturnURL,
	})

	gate := handler.NewGate(tracker, accounts, hub, logger.With("component", "usage"))

	return &Server{
		cfg:           cfg,
		db:            db,
		hub:           hub,
		tracker:       tracker,
		registry:      registry,
		accounts:      accounts,
		issuer:        issuer,
		sessionStore:  sessionStore,
		usageStore:    usageStore,
		rateLimiter:   middleware.NewRateLimiter(6*time.Second, 10),
		scheduler:     scheduler,
		webhook:       billing.NewWebhook(billingClient, userStore, accounts, billingLogger),
		authH:         handler.NewAuthHandler(accounts, issuer, cfg.Auth.CookieSecure, logger.With("component", "auth")),
		usageH:        handler.NewUsageHandler(tracker, accounts, logger.With("component", "usage")),
		analysisH:     handler.NewAnalysisHandler(gate, analyzer, logger.With("component", "analysis")),
		reportH:       handler.NewReportHandler(gate, reportStore, reportArchive, logger.With("component", "report")),
		reminderH:     handler.NewReminderHandler(reminderSvc, reminderLogger),
		notificationH: handler.NewNotificationHandler(notifyStore, pushSvc, logger.With("component", "push")),
		supportH:      handler.NewSupportHandler(supportStore, logger.With("component", "support")),
		billingH:      handler.NewBillingHandler(billingClient, userStore, accounts, billingLogger),
		logger:        logger,
	}, nil
}

// Accounts returns the account service.
func (s *Server) Accounts() *account.Service {
	return s.accounts
}

// Registry returns the live session registry for cleanup tasks.
func (s *Server) Registry() *usage.Registry {
	return s.registry
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// UsageStore returns the usage store for cleanup tasks.
func (s *Server) UsageStore() *store.UsageStore {
	return s.usageStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// ReminderScheduler returns the reminder delivery scheduler.
func (s *Server) ReminderScheduler() *reminder.Scheduler {
	return s.scheduler
}

// Tracker returns the usage tracker.
func (s *Server) Tracker() *usage.Tracker {
	return s.tracker
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	// Public routes
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("POST /api/auth/register", s.rateLimitedHandler(s.authH.Register))
	mux.HandleFunc("POST /api/auth/login", s.rateLimitedHandler(s.authH.Login))
	mux.Handle("POST /webhooks/stripe", s.webhook)

	s.registerProtectedRoutes(mux)

	authenticate := middleware.Authenticate(s.accounts, s.issuer, s.logger.With("component", "auth"))

	var h http.Handler = mux
	h = authenticate(h)
	h = chimw.Recoverer(h)
	h = middleware.RequestLogger(s.logger.With("component", "http"))(h)
	h = chimw.RequestID(h)
	return h
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	protect := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, middleware.RequireAuth(h))
	}

	protect("POST /api/auth/logout", s.authH.Logout)
	protect("GET /api/auth/me", s.authH.Me)

	// Usage
	protect("GET /api/usage", s.usageH.Status)
	protect("POST /api/usage/dismiss", s.usageH.Dismiss)
	protect("GET /api/usage/history", s.usageH.History)

	// Metered features
	protect("POST /api/analysis", s.analysisH.Analyze)
	protect("POST /api/analysis/clause", s.analysisH.Clause)
	protect("POST /api/analysis/ask", s.analysisH.Ask)
	protect("POST /api/contracts/generate", s.analysisH.Generate)
	protect("POST /api/reports", s.reportH.Create)
	protect("GET /api/reports", s.reportH.List)
	protect("GET /api/reports/{id}", s.reportH.Get)

	// Reminders
	protect("POST /api/reminders", s.reminderH.Create)
	protect("GET /api/reminders", s.reminderH.List)
	protect("GET /api/reminders/calendar", s.reminderH.Calendar)
	protect("POST /api/reminders/{id}/complete", s.reminderH.Complete)
	protect("POST /api/reminders/{id}/snooze", s.reminderH.Snooze)
	protect("DELETE /api/reminders/{id}", s.reminderH.Delete)

	// Notifications
	protect("GET /api/notifications/settings", s.notificationH.Settings)
	protect("PUT /api/notifications/settings", s.notificationH.SaveSettings)
	protect("GET /api/push/vapid-key", s.notificationH.VAPIDKey)
	protect("POST /api/push/subscribe", s.notificationH.Subscribe)
	protect("POST /api/push/unsubscribe", s.notificationH.Unsubscribe)
	protect("POST /api/push/test", s.notificationH.Test)

	// Support
	protect("POST /api/support/tickets", s.supportH.CreateTicket)
	protect("GET /api/support/tickets", s.supportH.ListTickets)
	protect("POST /api/support/reviews", s.supportH.CreateReview)

	// Billing
	protect("POST /api/billing/checkout", s.billingH.Checkout)
	protect("POST /api/billing/portal", s.billingH.Portal)
	if s.cfg.Billing.DemoCheckout {
		protect("POST /api/subscription/upgrade", s.billingH.DemoUpgrade)
		protect("POST /api/subscription/downgrade", s.billingH.DemoDowngrade)
	}

	// Live events
	protect("GET /ws", ws.HandleWebSocket(s.hub, s.cfg.Server.AllowedOrigins, s.logger.With("component", "websocket")))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]any{"status": "ok", "sessions": s.registry.Len(), "clients": s.hub.ClientCount()}
	if err := s.db.PingContext(r.Context()); err != nil {
		status = http.StatusServiceUnavailable
		body["status"] = "degraded"
		body["database"] = err.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, middleware.RealIP)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(h).ServeHTTP(w, r)
	}
}
