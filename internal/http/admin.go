package http

import (
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/catalog/internal/admin"
	"github.com/mrlokans/catalog/internal/audit"
	"github.com/mrlokans/catalog/internal/auth"
	"github.com/mrlokans/catalog/internal/database/catalog"
	"github.com/mrlokans/catalog/internal/database/users"
)

const adminPageSize = 25

type adminModelLink struct {
	Slug  string
	Name  string
	Count int64
}

type adminChoiceLink struct {
	Href   template.URL
	Active bool
	Label  string
}

type adminFilterView struct {
	Field    string
	Label    string
	Selected string
	AllHref  template.URL
	Choices  []adminChoiceLink
}

type adminFieldView struct {
	Name     string
	Label    string
	Select   bool
	Multiple bool
	Choices  []admin.Choice
}

type adminActionView struct {
	Slug   string
	Label  string
	Fields []adminFieldView
}

// AdminController renders the /admin/ area from the registered models.
// The router restricts it to staff and superusers; actions that name a
// permission additionally require it.
type AdminController struct {
	pages
	site  *admin.Site
	audit *audit.Service
	perms PermissionChecker
}

func NewAdminController(p pages, site *admin.Site, auditSvc *audit.Service, perms PermissionChecker) *AdminController {
	return &AdminController{pages: p, site: site, audit: auditSvc, perms: perms}
}

func (ac *AdminController) allowed(c *gin.Context, action *admin.Action) bool {
	return action.Permission == "" || ac.perms.HasPermission(auth.CurrentUser(c), action.Permission)
}

// actionViews builds the forms of the actions the current user may run.
func (ac *AdminController) actionViews(c *gin.Context, actions []admin.Action, id uint) ([]adminActionView, error) {
	views := make([]adminActionView, 0, len(actions))
	for i := range actions {
		action := &actions[i]
		if !ac.allowed(c, action) {
			continue
		}
		view := adminActionView{Slug: action.Slug, Label: action.Label}
		for _, f := range action.Fields {
			field := adminFieldView{Name: f.Name, Label: f.Label, Multiple: f.Multiple}
			if f.Choices != nil {
				choices, err := f.Choices(id)
				if err != nil {
					return nil, err
				}
				field.Select = true
				field.Choices = choices
			}
			view.Fields = append(view.Fields, field)
		}
		views = append(views, view)
	}
	return views, nil
}

func (ac *AdminController) Index(c *gin.Context) {
	models := ac.site.Models()
	links := make([]adminModelLink, 0, len(models))
	for _, m := range models {
		link := adminModelLink{Slug: m.Slug, Name: m.Name}
		if m.Count != nil {
			count, err := m.Count()
			if err != nil {
				ac.internalError(c, err, "count "+m.Slug)
				return
			}
			link.Count = count
		}
		links = append(links, link)
	}
	ac.render(c, http.StatusOK, "admin_index", gin.H{
		"Title":  "Site administration",
		"Models": links,
	})
}

func (ac *AdminController) model(c *gin.Context) (*admin.ModelAdmin, bool) {
	m, err := ac.site.Get(c.Param("model"))
	if err != nil {
		ac.notFound(c, "Unknown model \""+c.Param("model")+"\".")
		return nil, false
	}
	return m, true
}

// changelistHref builds a changelist URL for the given parameters,
// leaving out empty values.
func changelistHref(slug string, params url.Values) template.URL {
	clean := url.Values{}
	for k, vs := range params {
		if len(vs) > 0 && vs[0] != "" {
			clean.Set(k, vs[0])
		}
	}
	href := "/admin/" + slug + "/"
	if encoded := clean.Encode(); encoded != "" {
		href += "?" + encoded
	}
	return template.URL(href)
}

// Changelist lists a model's records with search, filters and paging.
func (ac *AdminController) Changelist(c *gin.Context) {
	m, ok := ac.model(c)
	if !ok {
		return
	}

	page := pageParam(c)
	query := admin.Query{
		Search:  strings.TrimSpace(c.Query("q")),
		Filters: map[string]string{},
		Limit:   adminPageSize,
		Offset:  (page - 1) * adminPageSize,
	}
	params := url.Values{}
	params.Set("q", query.Search)
	for _, f := range m.Filters {
		if v := c.Query(f.Field); v != "" {
			query.Filters[f.Field] = v
			params.Set(f.Field, v)
		}
	}

	filters := make([]adminFilterView, 0, len(m.Filters))
	for _, f := range m.Filters {
		choices, err := f.Choices()
		if err != nil {
			ac.internalError(c, err, "filter choices for "+m.Slug)
			return
		}
		view := adminFilterView{Field: f.Field, Label: f.Label, Selected: query.Filter(f.Field)}

		all := cloneValues(params)
		all.Del(f.Field)
		view.AllHref = changelistHref(m.Slug, all)
		for _, choice := range choices {
			withChoice := cloneValues(params)
			withChoice.Set(f.Field, choice.Value)
			view.Choices = append(view.Choices, adminChoiceLink{
				Href:   changelistHref(m.Slug, withChoice),
				Active: choice.Value == view.Selected,
				Label:  choice.Label,
			})
		}
		filters = append(filters, view)
	}

	rows, total, err := m.List(query)
	if err != nil {
		ac.internalError(c, err, "list "+m.Slug)
		return
	}
	actions, err := ac.actionViews(c, m.ModelActions, 0)
	if err != nil {
		ac.internalError(c, err, "actions for "+m.Slug)
		return
	}

	pageCount := totalPages(total, adminPageSize)
	var prevHref, nextHref template.URL
	if page > 1 {
		prev := cloneValues(params)
		prev.Set("page", strconv.Itoa(page-1))
		prevHref = changelistHref(m.Slug, prev)
	}
	if page < pageCount {
		next := cloneValues(params)
		next.Set("page", strconv.Itoa(page+1))
		nextHref = changelistHref(m.Slug, next)
	}

	ac.render(c, http.StatusOK, "admin_changelist", gin.H{
		"Title":      m.Name,
		"Model":      m,
		"Query":      query.Search,
		"Filters":    filters,
		"Rows":       rows,
		"CanDelete":  m.CanDelete(),
		"Total":      total,
		"Page":       page,
		"TotalPages": pageCount,
		"PrevHref":   prevHref,
		"NextHref":   nextHref,
		"Actions":    actions,
		"ActionURL":  "/admin/" + m.Slug + "/",
	})
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vs := range v {
		out[k] = append([]string(nil), vs...)
	}
	return out
}

// Detail shows one record with its inlines.
func (ac *AdminController) Detail(c *gin.Context) {
	m, ok := ac.model(c)
	if !ok {
		return
	}
	id, ok := ac.pageID(c)
	if !ok {
		return
	}
	if m.Detail == nil {
		ac.notFound(c, m.Name+" has no detail page.")
		return
	}
	detail, err := m.Detail(id)
	if isMissing(err) {
		ac.notFound(c, "No "+m.Name+" record matches the given query.")
		return
	}
	if err != nil {
		ac.internalError(c, err, "detail "+m.Slug)
		return
	}
	actions, err := ac.actionViews(c, m.Actions, id)
	if err != nil {
		ac.internalError(c, err, "actions for "+m.Slug)
		return
	}
	ac.render(c, http.StatusOK, "admin_detail", gin.H{
		"Title":     detail.Title,
		"Model":     m,
		"Detail":    detail,
		"ID":        id,
		"Actions":   actions,
		"ActionURL": "/admin/" + m.Slug + "/" + strconv.FormatUint(uint64(id), 10) + "/",
	})
}

// ModelAction runs the model action named by the "action" form field,
// e.g. adding a library.
func (ac *AdminController) ModelAction(c *gin.Context) {
	m, ok := ac.model(c)
	if !ok {
		return
	}
	action, err := m.ModelAction(c.PostForm("action"))
	if err != nil {
		ac.notFound(c, "Unknown action for "+m.Name+".")
		return
	}
	ac.runAction(c, m, action, 0)
}

// RecordAction runs the record action named by the "action" form field.
func (ac *AdminController) RecordAction(c *gin.Context) {
	m, ok := ac.model(c)
	if !ok {
		return
	}
	id, ok := ac.pageID(c)
	if !ok {
		return
	}
	action, err := m.Action(c.PostForm("action"))
	if err != nil {
		ac.notFound(c, "Unknown action for "+m.Name+".")
		return
	}
	ac.runAction(c, m, action, id)
}

func (ac *AdminController) runAction(c *gin.Context, m *admin.ModelAdmin, action *admin.Action, id uint) {
	if !ac.allowed(c, action) {
		ac.forbidden(c, "You do not have permission to "+strings.ToLower(action.Label)+".")
		return
	}
	if err := c.Request.ParseForm(); err != nil {
		ac.badRequest(c, "Malformed form data.")
		return
	}

	target, err := action.Run(id, c.Request.PostForm)
	subject := m.Name
	if id != 0 {
		subject += " #" + strconv.FormatUint(uint64(id), 10)
	}
	if ac.audit != nil {
		actor := audit.ActorFromContext(c, auth.GetUserID(c))
		ac.audit.LogAdmin(actor, action.Slug+"_"+m.Slug, subject, err)
	}
	switch {
	case errors.Is(err, admin.ErrInvalid):
		ac.badRequest(c, err.Error())
		return
	case isMissing(err):
		ac.notFound(c, "No "+m.Name+" record matches the given query.")
		return
	case err != nil:
		ac.internalError(c, err, action.Slug+" "+m.Slug)
		return
	}

	location := "/admin/" + m.Slug + "/"
	if target != 0 {
		location += strconv.FormatUint(uint64(target), 10) + "/"
	}
	ac.redirect(c, http.StatusOK, location, action.Label+": "+subject+" was changed.")
}

// Delete removes a record and logs the admin action.
func (ac *AdminController) Delete(c *gin.Context) {
	m, ok := ac.model(c)
	if !ok {
		return
	}
	id, ok := ac.pageID(c)
	if !ok {
		return
	}
	if !m.CanDelete() {
		ac.forbidden(c, m.Name+" records cannot be deleted here.")
		return
	}

	err := m.Delete(id)
	if ac.audit != nil {
		actor := audit.ActorFromContext(c, auth.GetUserID(c))
		ac.audit.LogAdmin(actor, "delete_"+m.Slug, m.Name+" #"+strconv.FormatUint(uint64(id), 10), err)
	}
	switch {
	case errors.Is(err, admin.ErrReadOnly):
		ac.forbidden(c, m.Name+" records cannot be deleted here.")
		return
	case isMissing(err):
		ac.notFound(c, "No "+m.Name+" record matches the given query.")
		return
	case err != nil:
		ac.internalError(c, err, "delete "+m.Slug)
		return
	}
	ac.redirect(c, http.StatusOK, "/admin/"+m.Slug+"/", m.Name+" #"+strconv.FormatUint(uint64(id), 10)+" was deleted.")
}

func isMissing(err error) bool {
	return errors.Is(err, catalog.ErrNotFound) || errors.Is(err, users.ErrNotFound) || errors.Is(err, auth.ErrUserNotFound)
}
