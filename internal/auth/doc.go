// Package auth provides authentication and authorization for the catalog.
//
// Users log in with their email address. Browser clients keep a session
// cookie (scs); API clients exchange credentials for a signed bearer token
// at POST /api/auth/token and send it in the Authorization header.
//
// # Configuration
//
//	AUTH_SESSION_SECRET=<random>   # CSRF key, generated when empty
//	AUTH_SESSION_LIFETIME=24h
//	AUTH_BCRYPT_COST=12
//	AUTH_SECURE_COOKIES=true       # HTTPS-only cookies
//	JWT_SECRET=<random>            # bearer tokens are disabled when empty
//	JWT_TTL=1h
//
// # Authorization
//
// Two independent axes guard routes:
//
//	router.GET("/books/", mw.RequirePermission(entities.PermViewBook), books.List)
//	router.GET("/admin_view/", mw.RequireRole(entities.RoleAdmin), roles.Admin)
//
// Permissions are granted to users directly or through groups; superusers
// hold every permission. Roles live on the user's profile. Anonymous
// browser requests are redirected to the login page, anonymous API calls
// get 401 and authenticated users lacking access get 403.
//
// Extract the user in handlers:
//
//	user := auth.CurrentUser(c) // nil when anonymous
package auth
