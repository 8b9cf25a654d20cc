// Package router wires the HTTP handlers into the versioned API surface.
package router

import (
	"github.com/finbooks/backend/internal/interfaces/http/handler"
	"github.com/finbooks/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// Handlers aggregates the handlers mounted under the API group.
type Handlers struct {
	System  *handler.SystemHandler
	Account *handler.AccountHandler
	Journal *handler.JournalHandler
	Period  *handler.PeriodHandler
	Tax     *handler.TaxHandler
	Report  *handler.ReportHandler
}

// Router mounts the API routes on a gin engine.
type Router struct {
	engine     *gin.Engine
	apiVersion string
	handlers   Handlers
	tenant     gin.HandlerFunc
}

// Option is a functional option for Router configuration
type Option func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) Option {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// WithTenantMiddleware overrides the middleware that resolves the tenant
// context for tenant-scoped routes. Used by tests and by deployments that
// resolve tenants differently (e.g., subdomain-based).
func WithTenantMiddleware(mw gin.HandlerFunc) Option {
	return func(r *Router) {
		r.tenant = mw
	}
}

// New creates a Router for the given engine and handler set.
func New(engine *gin.Engine, handlers Handlers, opts ...Option) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
		handlers:   handlers,
		tenant:     middleware.TenantMiddleware(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Setup registers all routes with the engine.
//
// System routes are mounted outside the tenant scope so probes and smoke
// checks work without an X-Tenant-ID header. Everything else requires a
// resolved tenant.
func (r *Router) Setup() {
	api := r.engine.Group("/api/" + r.apiVersion)

	if r.handlers.System != nil {
		system := api.Group("/system")
		system.GET("/info", r.handlers.System.GetSystemInfo)
		system.GET("/ping", r.handlers.System.Ping)
	}

	scoped := api.Group("")
	scoped.Use(r.tenant)

	if h := r.handlers.Account; h != nil {
		accounts := scoped.Group("/accounts")
		accounts.POST("", h.CreateAccount)
		accounts.GET("", h.ListAccounts)
		accounts.GET("/:id", h.GetAccount)
		accounts.GET("/:id/balance", h.GetBalance)
		accounts.POST("/:id/deactivate", h.DeactivateAccount)
		accounts.POST("/:id/reactivate", h.ReactivateAccount)
	}

	if h := r.handlers.Journal; h != nil {
		entries := scoped.Group("/journal-entries")
		entries.POST("", h.CreateEntry)
		entries.GET("", h.ListEntries)
		entries.GET("/:id", h.GetEntry)
		entries.POST("/:id/post", h.PostEntry)
		entries.POST("/:id/reverse", h.ReverseEntry)
		entries.DELETE("/:id", h.DeleteEntry)
	}

	if h := r.handlers.Period; h != nil {
		periods := scoped.Group("/periods")
		periods.POST("", h.CreatePeriod)
		periods.GET("", h.ListPeriods)
		periods.POST("/:id/close", h.ClosePeriod)
	}

	if h := r.handlers.Tax; h != nil {
		tax := scoped.Group("/tax")
		tax.POST("/transactions", h.RecordTransaction)
		tax.GET("/calendar", h.Calendar)
		tax.POST("/income-tax", h.CalculateIncomeTax)
		tax.POST("/periods/:id/file", h.FilePeriod)
		tax.POST("/periods/:id/pay", h.PayPeriod)
		tax.GET("/pending-liabilities", h.ListPendingLiabilities)
	}

	if h := r.handlers.Report; h != nil {
		reports := scoped.Group("/reports")
		reports.GET("/trial-balance", h.TrialBalance)
		reports.GET("/balance-sheet", h.BalanceSheet)
		reports.GET("/profit-and-loss", h.ProfitAndLoss)
		reports.GET("/cash-flow", h.CashFlow)
		reports.GET("/vat-return", h.VATReturn)
	}
}
