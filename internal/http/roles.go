package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/catalog/internal/auth"
	"github.com/mrlokans/catalog/internal/database/catalog"
	"github.com/mrlokans/catalog/internal/entities"
)

// RoleCount is one row of the admin dashboard.
type RoleCount struct {
	Role  entities.Role `json:"role"`
	Count int           `json:"count"`
}

// RolesController serves the three role dashboards. The router guards
// each with RequireRole.
type RolesController struct {
	pages
	libraries LibraryStore
	profiles  ProfileLister
}

func NewRolesController(p pages, libraries LibraryStore, profiles ProfileLister) *RolesController {
	return &RolesController{pages: p, libraries: libraries, profiles: profiles}
}

func (rc *RolesController) AdminView(c *gin.Context) {
	counts := make([]RoleCount, 0, len(entities.Roles))
	for _, role := range entities.Roles {
		profiles, err := rc.profiles.ListProfiles(role)
		if err != nil {
			rc.internalError(c, err, "list profiles")
			return
		}
		counts = append(counts, RoleCount{Role: role, Count: len(profiles)})
	}
	rc.render(c, http.StatusOK, "admin_view", gin.H{
		"Title":      "Admin Dashboard",
		"RoleCounts": counts,
	})
}

// LibrarianView shows the library the current user manages, if any.
func (rc *RolesController) LibrarianView(c *gin.Context) {
	var library *entities.Library
	librarian, err := rc.libraries.GetLibrarianByUser(auth.GetUserID(c))
	switch {
	case errors.Is(err, catalog.ErrNotFound):
	case err != nil:
		rc.internalError(c, err, "get librarian")
		return
	default:
		library, err = rc.libraries.GetLibrary(librarian.LibraryID)
		if err != nil && !errors.Is(err, catalog.ErrNotFound) {
			rc.internalError(c, err, "get library")
			return
		}
	}
	rc.render(c, http.StatusOK, "librarian_view", gin.H{
		"Title":   "Librarian Dashboard",
		"Library": library,
	})
}

func (rc *RolesController) MemberView(c *gin.Context) {
	libraries, err := rc.libraries.ListLibraries("")
	if err != nil {
		rc.internalError(c, err, "list libraries")
		return
	}
	rc.render(c, http.StatusOK, "member_view", gin.H{
		"Title":     "Member Area",
		"Libraries": libraries,
	})
}
