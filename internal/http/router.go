package http

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/catalog/internal/auth"
	"github.com/mrlokans/catalog/internal/demo"
	"github.com/mrlokans/catalog/internal/entities"
	"github.com/mrlokans/catalog/internal/requestid"
	"github.com/mrlokans/catalog/internal/web"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) (*gin.Engine, error) {
	if cfg.Catalog == nil || cfg.AuthService == nil || cfg.AuthMiddleware == nil {
		return nil, errors.New("router requires the catalog repository and the auth stack")
	}

	router := gin.New()
	router.Use(requestid.Middleware())
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(auth.SecurityHeadersMiddleware())

	if cfg.Metrics != nil {
		router.Use(cfg.Metrics.Middleware())
	}

	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies, cfg.Tokens, "/api/auth/token"))
	}
	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.SessionLoadSave())
	}
	router.Use(cfg.AuthMiddleware.Handler())

	tmpl, err := web.Templates(cfg.TemplatesPath)
	if err != nil {
		return nil, err
	}
	router.SetHTMLTemplate(tmpl)

	if cfg.StaticPath != "" {
		router.Static("/static", cfg.StaticPath)
	} else {
		router.StaticFS("/static", web.Static())
	}
	if cfg.MediaDir != "" {
		router.Static("/media", cfg.MediaDir)
	}

	p := pages{sessions: cfg.SessionManager}
	ch := changes{audit: cfg.Audit, metrics: cfg.Metrics}
	m := cfg.AuthMiddleware
	m.SetForbiddenRenderer(p.forbidden)
	if cfg.DemoMode {
		router.Use(demo.NewMiddleware(true, p.forbidden).Handler())
	}
	router.NoRoute(func(c *gin.Context) {
		p.notFound(c, "Page not found.")
	})

	// Ops
	var pinger Pinger
	if cfg.Database != nil {
		pinger = cfg.Database
	}
	healthController := NewHealthController(pinger, cfg.Version)
	router.GET("/health", healthController.Status)
	router.GET("/ping", healthController.Ping)
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	// Accounts
	if cfg.AuthController != nil {
		if cfg.Metrics != nil {
			cfg.AuthController.SetLoginRecorder(cfg.Metrics.RecordLogin)
		}
		cfg.AuthController.RegisterRoutes(router)
	}
	profileController := NewProfileController(p, cfg.AuthService, cfg.MediaDir)
	router.GET("/profile/", m.RequireLogin(), profileController.Show)
	router.POST("/profile/", m.RequireLogin(), profileController.Update)
	router.GET("/profile/password/", m.RequireLogin(), profileController.PasswordPage)
	router.POST("/profile/password/", m.RequireLogin(), profileController.ChangePassword)

	homeController := NewHomeController(p, cfg.Catalog)
	router.GET("/", homeController.Home)

	// Books
	books := NewBooksController(p, ch, cfg.Catalog, cfg.AuthService)
	canView := m.RequirePermission(entities.PermViewBook)
	canAdd := m.RequirePermission(entities.PermAddBook)
	canChange := m.RequirePermission(entities.PermChangeBook)
	canDelete := m.RequirePermission(entities.PermDeleteBook)

	router.GET("/books/", canView, books.List)
	router.GET("/books/add/", canAdd, books.AddPage)
	router.POST("/books/add/", canAdd, books.Add)
	router.GET("/books/:id/", canView, books.Detail)
	router.GET("/books/:id/edit/", canChange, books.EditPage)
	router.POST("/books/:id/edit/", canChange, books.Edit)
	router.GET("/books/:id/delete/", canDelete, books.ConfirmDelete)
	router.POST("/books/:id/delete/", canDelete, books.Delete)

	router.GET("/add_book/", canAdd, books.AddPage)
	router.POST("/add_book/", canAdd, books.Add)
	router.GET("/edit_book/:id/", canChange, books.EditPage)
	router.POST("/edit_book/:id/", canChange, books.Edit)
	router.GET("/delete_book/:id/", canDelete, books.ConfirmDelete)
	router.POST("/delete_book/:id/", canDelete, books.Delete)

	// Authors
	authors := NewAuthorsController(p, ch, cfg.Catalog, cfg.AuthService)
	router.GET("/authors/", authors.List)
	router.GET("/authors/add/", canAdd, authors.AddPage)
	router.POST("/authors/add/", canAdd, authors.Add)

	// Libraries are public
	libraries := NewLibrariesController(p, cfg.Catalog)
	router.GET("/libraries/", libraries.List)
	router.GET("/library/:id/", libraries.Detail)

	// Bookshelf
	shelf := NewShelfController(p, ch, cfg.Catalog, cfg.AuthService)
	shelfGroup := router.Group("/bookshelf/books")
	{
		canCreate := m.RequirePermission(entities.PermShelfCreate)
		canEdit := m.RequirePermission(entities.PermShelfEdit)
		canRemove := m.RequirePermission(entities.PermShelfDelete)

		shelfGroup.GET("/", m.RequirePermission(entities.PermShelfView), shelf.List)
		shelfGroup.GET("/create/", canCreate, shelf.Create)
		shelfGroup.POST("/create/", canCreate, shelf.Create)
		shelfGroup.GET("/:id/edit/", canEdit, shelf.Edit)
		shelfGroup.POST("/:id/edit/", canEdit, shelf.Edit)
		shelfGroup.GET("/:id/delete/", canRemove, shelf.Delete)
		shelfGroup.POST("/:id/delete/", canRemove, shelf.Delete)
	}

	// Role dashboards
	var profiles ProfileLister = cfg.AuthService.Users()
	if cfg.Users != nil {
		profiles = cfg.Users
	}
	roles := NewRolesController(p, cfg.Catalog, profiles)
	router.GET("/admin_view/", m.RequireRole(entities.RoleAdmin), roles.AdminView)
	router.GET("/librarian_view/", m.RequireRole(entities.RoleLibrarian), roles.LibrarianView)
	router.GET("/member_view/", m.RequireRole(entities.RoleMember), roles.MemberView)

	// JSON API
	api := NewAPIController(cfg.Catalog, cfg.Catalog, cfg.AuthService)
	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/books", canView, api.ListBooks)
		apiGroup.GET("/books/:id", canView, api.GetBook)
		apiGroup.GET("/libraries", api.ListLibraries)
		apiGroup.GET("/libraries/:id", api.GetLibrary)
		apiGroup.GET("/me", m.RequireLogin(), api.Me)
	}

	// Admin site
	if cfg.Admin != nil {
		adminController := NewAdminController(p, cfg.Admin, cfg.Audit, cfg.AuthService)
		adminGroup := router.Group("/admin", m.RequireStaff())
		{
			adminGroup.GET("/", adminController.Index)
			adminGroup.GET("/:model/", adminController.Changelist)
			adminGroup.POST("/:model/", adminController.ModelAction)
			adminGroup.GET("/:model/:id/", adminController.Detail)
			adminGroup.POST("/:model/:id/", adminController.RecordAction)
			adminGroup.POST("/:model/:id/delete", adminController.Delete)
		}
	}

	return router, nil
}
