// Package admin describes the catalog models for the /admin/ area:
// which columns a changelist shows, what can be searched and filtered,
// which add and change actions exist, and how records are deleted.
package admin

import (
	"errors"
	"net/url"
	"sort"
	"strings"
)

var (
	ErrUnknownModel  = errors.New("unknown admin model")
	ErrUnknownAction = errors.New("unknown admin action")
	ErrReadOnly      = errors.New("model does not support deletion")
	// ErrInvalid marks action input the user has to correct.
	ErrInvalid = errors.New("invalid input")
)

// Query is a changelist request.
type Query struct {
	Search  string
	Filters map[string]string
	Limit   int
	Offset  int
}

// Filter returns the selected value of a list filter.
func (q Query) Filter(field string) string {
	return q.Filters[field]
}

// Row is one changelist line.
type Row struct {
	ID    uint
	Cells []string
}

// Choice is one option of a list filter or an action field.
type Choice struct {
	Value    string
	Label    string
	Selected bool
}

// ListFilter is a sidebar filter such as "by author".
type ListFilter struct {
	Field   string
	Label   string
	Choices func() ([]Choice, error)
}

// Field is a label/value pair on a detail page.
type Field struct {
	Label string
	Value string
}

// Inline is a related table shown under a record, e.g. a library's books.
type Inline struct {
	Title   string
	Columns []string
	Rows    []Row
}

// Detail is the read-only change view of a single record.
type Detail struct {
	Title   string
	Fields  []Field
	Inlines []Inline
}

// ActionField is one input of an action form. Fields without choices
// are free text.
type ActionField struct {
	Name     string
	Label    string
	Multiple bool
	Choices  func(id uint) ([]Choice, error) `json:"-"`
}

// Action adds or changes records. Record actions receive the record ID,
// model actions receive zero. Run returns the record to show afterwards,
// or zero for the changelist.
type Action struct {
	Slug  string
	Label string
	// Permission is required on top of staff status when set.
	Permission string
	Fields     []ActionField

	Run func(id uint, form url.Values) (uint, error) `json:"-"`
}

// ModelAdmin is the registration of one model.
type ModelAdmin struct {
	Name         string
	Slug         string
	Columns      []string
	SearchFields []string
	Filters      []ListFilter
	Ordering     string
	ModelActions []Action
	Actions      []Action

	List   func(q Query) ([]Row, int64, error) `json:"-"`
	Count  func() (int64, error)               `json:"-"`
	Detail func(id uint) (*Detail, error)      `json:"-"`
	Delete func(id uint) error                 `json:"-"`
}

func (m *ModelAdmin) CanDelete() bool {
	return m.Delete != nil
}

func (m *ModelAdmin) Searchable() bool {
	return len(m.SearchFields) > 0
}

// Action looks up a record action by slug.
func (m *ModelAdmin) Action(slug string) (*Action, error) {
	return findAction(m.Actions, slug)
}

// ModelAction looks up a model action by slug.
func (m *ModelAdmin) ModelAction(slug string) (*Action, error) {
	return findAction(m.ModelActions, slug)
}

func findAction(actions []Action, slug string) (*Action, error) {
	for i := range actions {
		if actions[i].Slug == slug {
			return &actions[i], nil
		}
	}
	return nil, ErrUnknownAction
}

// Site is the set of registered models.
type Site struct {
	models map[string]*ModelAdmin
}

func NewSite() *Site {
	return &Site{models: make(map[string]*ModelAdmin)}
}

// Register adds m, replacing an earlier registration with the same slug.
func (s *Site) Register(m *ModelAdmin) {
	s.models[m.Slug] = m
}

// Get looks up a registration by its URL slug.
func (s *Site) Get(slug string) (*ModelAdmin, error) {
	m, ok := s.models[strings.ToLower(slug)]
	if !ok {
		return nil, ErrUnknownModel
	}
	return m, nil
}

// Models returns registrations sorted by name.
func (s *Site) Models() []*ModelAdmin {
	out := make([]*ModelAdmin, 0, len(s.models))
	for _, m := range s.models {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
