package http

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/catalog/internal/auth"
	"github.com/mrlokans/catalog/internal/entities"
	"github.com/mrlokans/catalog/internal/forms"
	"github.com/mrlokans/catalog/internal/utils"
)

const dateLayout = "2006-01-02"

type profileForm struct {
	FirstName   string `form:"first_name" binding:"max=150"`
	LastName    string `form:"last_name" binding:"max=150"`
	DateOfBirth string `form:"date_of_birth"`
	Bio         string `form:"bio" binding:"max=500"`
	PhoneNumber string `form:"phone_number" binding:"max=20"`
}

var profileFieldNames = map[string]string{
	"FirstName":   "first_name",
	"LastName":    "last_name",
	"DateOfBirth": "date_of_birth",
	"Bio":         "bio",
	"PhoneNumber": "phone_number",
}

func profileFormFrom(user *entities.User) profileForm {
	form := profileForm{
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		Bio:         user.Bio,
		PhoneNumber: user.PhoneNumber,
	}
	if user.DateOfBirth != nil {
		form.DateOfBirth = user.DateOfBirth.Format(dateLayout)
	}
	return form
}

// ProfileController lets a signed-in user edit their own details.
type ProfileController struct {
	pages
	service  *auth.Service
	mediaDir string
}

func NewProfileController(p pages, service *auth.Service, mediaDir string) *ProfileController {
	return &ProfileController{pages: p, service: service, mediaDir: mediaDir}
}

func (pc *ProfileController) Show(c *gin.Context) {
	user := auth.CurrentUser(c)
	pc.renderProfile(c, http.StatusOK, user, profileFormFrom(user), forms.Errors{})
}

func (pc *ProfileController) Update(c *gin.Context) {
	user := auth.CurrentUser(c)

	var form profileForm
	errs := forms.FromBinding(c.ShouldBind(&form), profileFieldNames)

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
		} else if photo.Size > auth.MaxPhotoSize {
			errs.Add("profile_photo", "Image files must be at most 5 MB.")
		}
	}

	if errs.Any() {
		pc.renderProfile(c, http.StatusBadRequest, user, form, errs)
		return
	}

	updated, err := pc.service.UpdateProfile(user.ID, auth.ProfileInput{
		FirstName:   form.FirstName,
		LastName:    form.LastName,
		DateOfBirth: dob,
		Bio:         form.Bio,
		PhoneNumber: form.PhoneNumber,
	})
	switch {
	case errors.Is(err, auth.ErrBioTooLong):
		errs.Add("bio", err.Error())
	case errors.Is(err, auth.ErrPhoneInvalid):
		errs.Add("phone_number", err.Error())
	case err != nil:
		pc.internalError(c, err, "update profile")
		return
	}
	if errs.Any() {
		pc.renderProfile(c, http.StatusBadRequest, user, form, errs)
		return
	}

	if photo != nil {
		if err := auth.SaveProfilePhoto(c, pc.service, pc.mediaDir, updated, photo); err != nil {
			log.Printf("Failed to store profile photo for user %d: %v", updated.ID, err)
		}
	}
	pc.redirect(c, http.StatusOK, "/profile/", "Your profile was updated.")
}

func (pc *ProfileController) renderProfile(c *gin.Context, status int, user *entities.User, form profileForm, errs forms.Errors) {
	perms, err := pc.service.UserPermissions(user)
	if err != nil {
		log.Printf("Failed to list permissions for user %d: %v", user.ID, err)
	}
	pc.render(c, status, "profile", gin.H{
		"Title":       "Your profile",
		"User":        user,
		"Form":        form,
		"Errors":      errs,
		"Permissions": perms,
	})
}

type passwordForm struct {
	OldPassword  string `form:"old_password" binding:"required"`
	NewPassword1 string `form:"new_password1" binding:"required"`
	NewPassword2 string `form:"new_password2" binding:"required"`
}

var passwordFieldNames = map[string]string{
	"OldPassword":  "old_password",
	"NewPassword1": "new_password1",
	"NewPassword2": "new_password2",
}

func (pc *ProfileController) PasswordPage(c *gin.Context) {
	pc.renderPassword(c, http.StatusOK, forms.Errors{})
}

// ChangePassword replaces the signed-in user's password after checking
// the current one.
func (pc *ProfileController) ChangePassword(c *gin.Context) {
	user := auth.CurrentUser(c)

	var form passwordForm
	errs := forms.FromBinding(c.ShouldBind(&form), passwordFieldNames)
	if !errs.Has("new_password2") && form.NewPassword1 != form.NewPassword2 {
		errs.Add("new_password2", "The two password fields didn't match.")
	}
	if errs.Any() {
		pc.renderPassword(c, http.StatusBadRequest, errs)
		return
	}

	err := pc.service.ChangePassword(user.ID, form.OldPassword, form.NewPassword1)
	switch {
	case errors.Is(err, auth.ErrInvalidPassword):
		errs.Add("old_password", "Your old password was entered incorrectly. Please enter it again.")
	case errors.Is(err, auth.ErrPasswordTooShort), errors.Is(err, auth.ErrPasswordTooLong),
		errors.Is(err, auth.ErrPasswordCommon), errors.Is(err, auth.ErrPasswordNumeric):
		errs.Add("new_password1", err.Error())
	case err != nil:
		pc.internalError(c, err, "change password")
		return
	}
	if errs.Any() {
		pc.renderPassword(c, http.StatusBadRequest, errs)
		return
	}
	pc.redirect(c, http.StatusOK, "/profile/", "Your password was changed.")
}

func (pc *ProfileController) renderPassword(c *gin.Context, status int, errs forms.Errors) {
	pc.render(c, status, "password_change", gin.H{
		"Title":  "Password change",
		"Errors": errs,
	})
}
