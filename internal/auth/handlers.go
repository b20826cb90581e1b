package auth

import (
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/catalog/internal/audit"
	"github.com/mrlokans/catalog/internal/config"
	"github.com/mrlokans/catalog/internal/entities"
	"github.com/mrlokans/catalog/internal/forms"
	"github.com/mrlokans/catalog/internal/utils"
)

// MaxPhotoSize caps profile photo uploads.
const MaxPhotoSize = 5 << 20

const dateLayout = "2006-01-02"

// isLocalPath validates that a redirect path is local to prevent open redirect attacks.
func isLocalPath(path string) bool {
	if path == "" || !strings.HasPrefix(path, "/") {
		return false
	}
	// Protocol-relative URLs (//evil.com), schemes and backslash tricks.
	if strings.HasPrefix(path, "//") || strings.Contains(path, "://") || strings.Contains(path, "\\") {
		return false
	}
	return true
}

// sanitizeRedirectPath returns a safe redirect path, defaulting to "/" if invalid.
func sanitizeRedirectPath(path string) string {
	if isLocalPath(path) {
		return path
	}
	return "/"
}

// TemplateData adds the values every page needs (current user, CSRF
// token, pending flash message) to data.
func TemplateData(c *gin.Context, sm *SessionManager, data gin.H) gin.H {
	if data == nil {
		data = gin.H{}
	}
	data["CurrentUser"] = CurrentUser(c)
	data["CSRFToken"] = GetCSRFToken(c)
	data["CSRFFieldName"] = CSRFFieldName
	data["DemoMode"] = c.GetBool(ContextKeyDemoMode)
	if _, ok := data["Flash"]; !ok && sm != nil {
		if flash := sm.PopFlash(c.Request); flash != "" {
			data["Flash"] = flash
		}
	}
	return data
}

// AuthController handles authentication-related HTTP endpoints.
type AuthController struct {
	service        *Service
	sessionManager *SessionManager
	tokens         *TokenManager
	rateLimiter    *RateLimiter
	audit          *audit.Service
	mediaDir       string
	recordLogin    func(result string)
}

// NewAuthController creates a new authentication controller. tokens and
// auditService may be nil.
func NewAuthController(service *Service, sessionManager *SessionManager, tokens *TokenManager, auditService *audit.Service, cfg config.Auth, mediaDir string) *AuthController {
	rateLimiter := NewRateLimiter(RateLimitConfig{
		MaxAttempts:     cfg.MaxLoginAttempts,
		WindowDuration:  cfg.RateLimitWindow,
		LockoutDuration: cfg.LockoutDuration,
	})

	return &AuthController{
		service:        service,
		sessionManager: sessionManager,
		tokens:         tokens,
		rateLimiter:    rateLimiter,
		audit:          auditService,
		mediaDir:       mediaDir,
	}
}

// RegisterRoutes registers authentication routes on the router.
func (ac *AuthController) RegisterRoutes(router gin.IRouter) {
	router.GET("/login/", ac.LoginPage)
	router.POST("/login/", ac.Login)
	router.GET("/logout/", ac.Logout)
	router.POST("/logout/", ac.Logout)
	router.GET("/register/", ac.RegisterPage)
	router.POST("/register/", ac.Register)
	router.POST("/api/auth/token", ac.IssueToken)
}

// SetLoginRecorder installs a hook called with "success" or "failure"
// after every password check.
func (ac *AuthController) SetLoginRecorder(fn func(result string)) {
	ac.recordLogin = fn
}

// Stop cleans up resources (rate limiter background goroutine).
func (ac *AuthController) Stop() {
	if ac.rateLimiter != nil {
		ac.rateLimiter.Stop()
	}
}

// LoginPage renders the login form.
func (ac *AuthController) LoginPage(c *gin.Context) {
	if CurrentUser(c) != nil {
		c.Redirect(http.StatusFound, "/")
		return
	}

	ac.render(c, http.StatusOK, "login", gin.H{
		"Title": "Login",
		"Next":  sanitizeRedirectPath(c.Query("next")),
	})
}

// Login handles the login form submission.
func (ac *AuthController) Login(c *gin.Context) {
	email := strings.TrimSpace(c.PostForm("email"))
	password := c.PostForm("password")
	next := sanitizeRedirectPath(c.PostForm("next"))
	clientIP := c.ClientIP()

	loginError := func(status int, message string) {
		ac.render(c, status, "login", gin.H{
			"Title": "Login",
			"Next":  next,
			"Email": email,
			"Error": message,
		})
	}

	allowed, retryAfter := ac.rateLimiter.Allow(clientIP, email)
	if !allowed {
		c.Header("Retry-After", fmt.Sprintf("%d", int(retryAfter.Seconds())+1))
		loginError(http.StatusTooManyRequests, "Too many login attempts. Please try again later.")
		return
	}

	user, err := ac.service.Authenticate(email, password)
	ac.observeLogin(err)
	if err != nil {
		ac.rateLimiter.RecordFailure(clientIP, email)
		ac.logAuth(c, 0, "login_failed", false)

		message := "Please enter a correct email and password."
		switch {
		case errors.Is(err, ErrAccountLocked):
			message = "Account is locked. Please try again later."
		case errors.Is(err, ErrUserInactive):
			message = "This account is inactive."
		}
		loginError(http.StatusUnauthorized, message)
		return
	}

	ac.rateLimiter.RecordSuccess(clientIP, email)

	if err := ac.sessionManager.CreateSession(c.Request, user); err != nil {
		log.Printf("Failed to create session for user %d: %v", user.ID, err)
		loginError(http.StatusInternalServerError, "Failed to create session")
		return
	}
	ac.logAuth(c, user.ID, "login", true)

	c.Redirect(http.StatusFound, next)
}

// Logout destroys the session and shows the logged-out page.
func (ac *AuthController) Logout(c *gin.Context) {
	if user := CurrentUser(c); user != nil {
		ac.logAuth(c, user.ID, "logout", true)
	}
	if err := ac.sessionManager.DestroySession(c.Request); err != nil {
		log.Printf("Failed to destroy session: %v", err)
	}
	c.Set(ContextKeyUser, nil)

	ac.render(c, http.StatusOK, "logout", gin.H{"Title": "Logged out"})
}

// registerForm mirrors the registration page fields.
type registerForm struct {
	Email       string `form:"email" binding:"required,email,max=254"`
	Username    string `form:"username" binding:"required,max=150"`
	FirstName   string `form:"first_name" binding:"max=150"`
	LastName    string `form:"last_name" binding:"max=150"`
	DateOfBirth string `form:"date_of_birth"`
	Bio         string `form:"bio" binding:"max=500"`
	PhoneNumber string `form:"phone_number" binding:"max=20"`
	Role        string `form:"role" binding:"omitempty,oneof=Admin Librarian Member"`
	Password1   string `form:"password1" binding:"required"`
	Password2   string `form:"password2" binding:"required,eqfield=Password1"`
}

var registerFieldNames = map[string]string{
	"Email":       "email",
	"Username":    "username",
	"FirstName":   "first_name",
	"LastName":    "last_name",
	"DateOfBirth": "date_of_birth",
	"Bio":         "bio",
	"PhoneNumber": "phone_number",
	"Role":        "role",
	"Password1":   "password1",
	"Password2":   "password2",
}

// RegisterPage renders the registration form.
func (ac *AuthController) RegisterPage(c *gin.Context) {
	ac.render(c, http.StatusOK, "register", gin.H{
		"Title":  "Register",
		"Form":   registerForm{Role: string(entities.RoleMember)},
		"Roles":  entities.Roles,
		"Errors": forms.Errors{},
	})
}

// Register creates the account with the chosen role, stores the optional
// photo, logs the new user in and redirects home.
func (ac *AuthController) Register(c *gin.Context) {
	var form registerForm
	bindErr := c.ShouldBind(&form)
	errs := forms.FromBinding(bindErr, registerFieldNames)

	var dob *time.Time
	if form.DateOfBirth != "" {
		parsed, err := time.Parse(dateLayout, form.DateOfBirth)
		if err != nil {
			errs.Add("date_of_birth", "Enter a valid date.")
		} else {
			dob = &parsed
		}
	}

	photo, err := c.FormFile("profile_photo")
	if err != nil && !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart) {
		errs.Add("profile_photo", "Upload a valid image.")
	}
	if photo != nil {
		if _, err := utils.ImageExtension(photo.Filename); err != nil {
			errs.Add("profile_photo", "Upload a valid image. Allowed types: jpg, png, gif, webp.")
		} else if photo.Size > MaxPhotoSize {
			errs.Add("profile_photo", "Image files must be at most 5 MB.")
		}
	}

	if errs.Any() {
		ac.renderRegister(c, http.StatusBadRequest, form, errs)
		return
	}

	user, err := ac.service.Register(RegisterInput{
		Email:       form.Email,
		Username:    form.Username,
		Password:    form.Password1,
		FirstName:   form.FirstName,
		LastName:    form.LastName,
		DateOfBirth: dob,
		Bio:         form.Bio,
		PhoneNumber: form.PhoneNumber,
		Role:        entities.Role(form.Role),
	})
	if err != nil {
		status := http.StatusBadRequest
		if !registrationError(err, errs) {
			log.Printf("Registration failed for %s: %v", form.Email, err)
			errs.AddGeneral("Registration failed. Please try again.")
			ac.logAuth(c, 0, "register", false)
			status = http.StatusInternalServerError
		}
		ac.renderRegister(c, status, form, errs)
		return
	}

	if photo != nil {
		if err := SaveProfilePhoto(c, ac.service, ac.mediaDir, user, photo); err != nil {
			log.Printf("Failed to store profile photo for user %d: %v", user.ID, err)
		}
	}
	ac.logAuth(c, user.ID, "register", true)

	if err := ac.sessionManager.CreateSession(c.Request, user); err != nil {
		log.Printf("Failed to create session for user %d: %v", user.ID, err)
		c.Redirect(http.StatusFound, LoginPath)
		return
	}
	ac.sessionManager.Flash(c.Request, "Welcome, "+user.FullName()+"!")
	c.Redirect(http.StatusFound, "/")
}

func (ac *AuthController) renderRegister(c *gin.Context, status int, form registerForm, errs forms.Errors) {
	form.Password1, form.Password2 = "", ""
	ac.render(c, status, "register", gin.H{
		"Title":  "Register",
		"Form":   form,
		"Roles":  entities.Roles,
		"Errors": errs,
	})
}

// registrationError maps service validation errors onto form fields and
// reports whether err was one of them.
func registrationError(err error, errs forms.Errors) bool {
	switch {
	case errors.Is(err, ErrUserExists):
		errs.Add("email", "A user with that email or username already exists.")
	case errors.Is(err, ErrEmailInvalid), errors.Is(err, ErrEmailRequired):
		errs.Add("email", "Enter a valid email address.")
	case errors.Is(err, ErrUsernameInvalid), errors.Is(err, ErrUsernameRequired):
		errs.Add("username", ErrUsernameInvalid.Error())
	case errors.Is(err, ErrPasswordTooShort):
		errs.Add("password1", fmt.Sprintf("This password is too short. It must contain at least %d characters.", MinPasswordLength))
	case errors.Is(err, ErrPasswordTooLong), errors.Is(err, ErrPasswordCommon), errors.Is(err, ErrPasswordNumeric):
		errs.Add("password1", err.Error())
	case errors.Is(err, ErrInvalidRole):
		errs.Add("role", "Select a valid choice.")
	case errors.Is(err, ErrBioTooLong):
		errs.Add("bio", ErrBioTooLong.Error())
	case errors.Is(err, ErrPhoneInvalid):
		errs.Add("phone_number", ErrPhoneInvalid.Error())
	default:
		return false
	}
	return true
}

// SaveProfilePhoto writes photo under mediaDir as the user's profile photo
// and records the media-relative path on the user.
func SaveProfilePhoto(c *gin.Context, service *Service, mediaDir string, user *entities.User, photo *multipart.FileHeader) error {
	relPath, err := utils.ProfilePhotoPath(user.ID, photo.Filename)
	if err != nil {
		return err
	}
	dst := filepath.Join(mediaDir, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create photo directory: %w", err)
	}
	if err := c.SaveUploadedFile(photo, dst); err != nil {
		return fmt.Errorf("failed to save photo: %w", err)
	}
	if err := service.SetProfilePhoto(user.ID, relPath); err != nil {
		return err
	}
	user.ProfilePhoto = relPath
	return nil
}

type tokenRequest struct {
	Email    string `json:"email" form:"email" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

// IssueToken exchanges email and password for a signed bearer token.
func (ac *AuthController) IssueToken(c *gin.Context) {
	if ac.tokens == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": ErrTokensDisabled.Error()})
		return
	}

	var req tokenRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	clientIP := c.ClientIP()
	if allowed, retryAfter := ac.rateLimiter.Allow(clientIP, req.Email); !allowed {
		c.Header("Retry-After", fmt.Sprintf("%d", int(retryAfter.Seconds())+1))
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many login attempts"})
		return
	}

	user, err := ac.service.Authenticate(req.Email, req.Password)
	ac.observeLogin(err)
	if err != nil {
		ac.rateLimiter.RecordFailure(clientIP, req.Email)
		ac.logAuth(c, 0, "token_failed", false)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	ac.rateLimiter.RecordSuccess(clientIP, req.Email)

	token, expiresAt, err := ac.tokens.Issue(user)
	if err != nil {
		log.Printf("Failed to issue token for user %d: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	ac.logAuth(c, user.ID, "token_issued", true)

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"token_type": "Bearer",
		"expires_at": expiresAt.UTC().Format(time.RFC3339),
	})
}

func (ac *AuthController) observeLogin(err error) {
	if ac.recordLogin == nil {
		return
	}
	if err != nil {
		ac.recordLogin("failure")
		return
	}
	ac.recordLogin("success")
}

func (ac *AuthController) logAuth(c *gin.Context, userID uint, action string, success bool) {
	if ac.audit == nil {
		return
	}
	ac.audit.LogAuth(audit.ActorFromContext(c, userID), action, success)
}

// render renders an auth template, or JSON for API clients.
func (ac *AuthController) render(c *gin.Context, status int, name string, data gin.H) {
	if IsAPIRequest(c) {
		if errs, ok := data["Errors"].(forms.Errors); ok && errs.Any() {
			c.JSON(status, gin.H{"error": "validation failed", "details": errs})
			return
		}
		if msg, ok := data["Error"].(string); ok && msg != "" {
			c.JSON(status, gin.H{"error": msg})
			return
		}
		c.JSON(status, gin.H{"page": name, "title": data["Title"]})
		return
	}
	c.HTML(status, name, TemplateData(c, ac.sessionManager, data))
}
