package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/atlasherbaltea-design/otg-track-99/internal/config"
	"github.com/atlasherbaltea-design/otg-track-99/internal/insights"
	"github.com/atlasherbaltea-design/otg-track-99/internal/model"
	"github.com/atlasherbaltea-design/otg-track-99/internal/status"
)

// Deps are the collaborators shared by the handlers.
type Deps struct {
	DB        *sql.DB
	JWTSecret string
	Config    *config.Config
	// Insights may be nil, which disables the summary endpoint.
	Insights *insights.Client
	// Today returns the current calendar date. Defaults to status.Today.
	Today func() string
	// Now defaults to time.Now.
	Now func() time.Time
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(d Deps) http.Handler {
	if d.Config == nil {
		d.Config = config.Default()
	}
	if d.Today == nil {
		d.Today = status.Today
	}
	if d.Now == nil {
		d.Now = time.Now
	}

	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: d.DB, JWTSecret: d.JWTSecret}
	usersHandler := &UsersHandler{DB: d.DB}
	itemsHandler := &ItemsHandler{deps: d, templates: d.Config.Workshop.CodeTemplates()}
	repairsHandler := &RepairsHandler{deps: d}
	dashboardHandler := &DashboardHandler{deps: d}
	workshopHandler := &WorkshopHandler{deps: d}

	authMW := AuthMiddleware(d.JWTSecret, d.DB)
	guard := func(perm string, h http.HandlerFunc) http.Handler {
		return authMW(RequirePermission(perm)(h))
	}

	// Public: login.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Any authenticated user.
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("GET /api/config", authMW(http.HandlerFunc(workshopHandler.Config)))

	// Users.
	mux.Handle("GET /api/users", guard(model.PermAdmin, usersHandler.List))
	mux.Handle("POST /api/users", guard(model.PermAdmin, usersHandler.Create))
	mux.Handle("GET /api/users/{id}", guard(model.PermAdmin, usersHandler.Get))
	mux.Handle("PUT /api/users/{id}", guard(model.PermAdmin, usersHandler.Update))
	mux.Handle("PUT /api/users/{id}/password", guard(model.PermAdmin, usersHandler.ResetPassword))
	mux.Handle("DELETE /api/users/{id}", guard(model.PermAdmin, usersHandler.Delete))
	mux.Handle("PUT /api/users/{id}/photo", guard(model.PermAdmin, usersHandler.UploadPhoto))
	mux.Handle("GET /api/users/{id}/photo", guard(model.PermAdmin, usersHandler.GetPhoto))

	// Production inventory.
	mux.Handle("GET /api/items", guard(model.PermInventory, itemsHandler.List))
	mux.Handle("POST /api/items", guard(model.PermInventory, itemsHandler.Create))
	mux.Handle("GET /api/items/export", guard(model.PermInventory, itemsHandler.Export))
	mux.Handle("POST /api/items/import", guard(model.PermInventory, itemsHandler.Import))
	mux.Handle("GET /api/items/{id}", guard(model.PermInventory, itemsHandler.Get))
	mux.Handle("PUT /api/items/{id}", guard(model.PermInventory, itemsHandler.Update))
	mux.Handle("DELETE /api/items/{id}", guard(model.PermInventory, itemsHandler.Delete))
	mux.Handle("GET /api/codes/next", guard(model.PermInventory, itemsHandler.NextCodes))

	// Repair tickets.
	mux.Handle("GET /api/repairs", guard(model.PermRepairs, repairsHandler.List))
	mux.Handle("POST /api/repairs", guard(model.PermRepairs, repairsHandler.Create))
	mux.Handle("GET /api/repairs/codes", guard(model.PermRepairs, repairsHandler.Codes))
	mux.Handle("GET /api/repairs/export", guard(model.PermRepairs, repairsHandler.Export))
	mux.Handle("POST /api/repairs/import", guard(model.PermRepairs, repairsHandler.Import))
	mux.Handle("GET /api/repairs/{id}", guard(model.PermRepairs, repairsHandler.Get))
	mux.Handle("PUT /api/repairs/{id}", guard(model.PermRepairs, repairsHandler.Update))
	mux.Handle("DELETE /api/repairs/{id}", guard(model.PermRepairs, repairsHandler.Delete))

	// Dashboard and tools.
	mux.Handle("GET /api/dashboard", guard(model.PermDashboard, dashboardHandler.Get))
	mux.Handle("POST /api/dashboard/insights", guard(model.PermDashboard, dashboardHandler.Insights))
	mux.Handle("POST /api/calculator", guard(model.PermCalculator, workshopHandler.Calculate))

	return mux
}
