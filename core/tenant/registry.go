package tenant

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/m3rciful/leadbot/core/lang"
)

// Registry is a read-only set of tenants with a designated default.
type Registry struct {
	tenants   map[string]*Tenant
	defaultID string
}

// NewRegistry builds a registry. defaultID must name one of the tenants.
func NewRegistry(defaultID string, tenants ...*Tenant) (*Registry, error) {
	r := &Registry{tenants: make(map[string]*Tenant, len(tenants)), defaultID: defaultID}
	for _, t := range tenants {
		if t == nil || strings.TrimSpace(t.ID) == "" {
			return nil, fmt.Errorf("tenant: empty tenant id")
		}
		if _, dup := r.tenants[t.ID]; dup {
			return nil, fmt.Errorf("tenant: duplicate tenant %q", t.ID)
		}
		if err := validateHours(t.Hours); err != nil {
			return nil, fmt.Errorf("tenant %q: %w", t.ID, err)
		}
		r.tenants[t.ID] = t
	}
	if _, ok := r.tenants[defaultID]; !ok {
		return nil, fmt.Errorf("tenant: default tenant %q not defined", defaultID)
	}
	return r, nil
}

// Lookup returns the tenant with the given id, or the default tenant when id is unknown.
func (r *Registry) Lookup(id string) *Tenant {
	if t, ok := r.tenants[id]; ok {
		return t
	}
	return r.tenants[r.defaultID]
}

// Has reports whether id is a configured tenant.
func (r *Registry) Has(id string) bool {
	_, ok := r.tenants[id]
	return ok
}

// IDs lists tenant ids sorted alphabetically.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.tenants))
	for id := range r.tenants {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DefaultID returns the fallback tenant id.
func (r *Registry) DefaultID() string {
	return r.defaultID
}

func validateHours(h WorkingHours) error {
	for _, d := range h.Days {
		if d < time.Sunday || d > time.Saturday {
			return fmt.Errorf("weekday %d out of range", int(d))
		}
	}
	if h.StartHour < 0 || h.StartHour > 23 {
		return fmt.Errorf("start hour %d out of range", h.StartHour)
	}
	if h.EndHour < 1 || h.EndHour > 24 {
		return fmt.Errorf("end hour %d out of range", h.EndHour)
	}
	if h.EndHour <= h.StartHour {
		return fmt.Errorf("end hour %d must be after start hour %d", h.EndHour, h.StartHour)
	}
	if h.UTCOffset < -14*time.Hour || h.UTCOffset > 14*time.Hour {
		return fmt.Errorf("utc offset %s out of range", h.UTCOffset)
	}
	return nil
}

type fileRegistry struct {
	Default string       `yaml:"default"`
	Tenants []fileTenant `yaml:"tenants"`
}

type fileTenant struct {
	ID       string               `yaml:"id"`
	Name     lang.Text            `yaml:"name"`
	Hours    fileHours            `yaml:"working_hours"`
	Services []fileService        `yaml:"services"`
	FAQ      []fileFAQ            `yaml:"faq"`
	Support  fileContact          `yaml:"support"`
	Labels   map[string]lang.Text `yaml:"labels"`
}

type fileHours struct {
	Days      []string `yaml:"days"`
	StartHour int      `yaml:"start_hour"`
	EndHour   int      `yaml:"end_hour"`
	UTCOffset string   `yaml:"utc_offset"`
}

type fileService struct {
	ID          string    `yaml:"id"`
	Title       lang.Text `yaml:"title"`
	Description lang.Text `yaml:"description"`
}

type fileFAQ struct {
	Keywords struct {
		EN []string `yaml:"en"`
		AR []string `yaml:"ar"`
	} `yaml:"keywords"`
	Answer lang.Text `yaml:"answer"`
}

type fileContact struct {
	Name  string `yaml:"name"`
	Phone string `yaml:"phone"`
	Email string `yaml:"email"`
}

// Load reads a YAML tenants file.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tenant: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML tenants document.
func Parse(data []byte) (*Registry, error) {
	var doc fileRegistry
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("tenant: parse yaml: %w", err)
	}
	if len(doc.Tenants) == 0 {
		return nil, fmt.Errorf("tenant: no tenants defined")
	}
	tenants := make([]*Tenant, 0, len(doc.Tenants))
	for _, ft := range doc.Tenants {
		t, err := ft.toTenant()
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	def := strings.TrimSpace(doc.Default)
	if def == "" {
		def = DefaultID
	}
	return NewRegistry(def, tenants...)
}

func (ft fileTenant) toTenant() (*Tenant, error) {
	days, err := parseDays(ft.Hours.Days)
	if err != nil {
		return nil, fmt.Errorf("tenant %q: %w", ft.ID, err)
	}
	offset, err := ParseUTCOffset(ft.Hours.UTCOffset)
	if err != nil {
		return nil, fmt.Errorf("tenant %q: %w", ft.ID, err)
	}
	t := &Tenant{
		ID:   strings.TrimSpace(ft.ID),
		Name: ft.Name,
		Hours: WorkingHours{
			Days:      days,
			StartHour: ft.Hours.StartHour,
			EndHour:   ft.Hours.EndHour,
			UTCOffset: offset,
		},
		Support: Contact(ft.Support),
		Labels:  ft.Labels,
	}
	for _, s := range ft.Services {
		t.Services = append(t.Services, Service(s))
	}
	for _, f := range ft.FAQ {
		t.FAQ = append(t.FAQ, FAQEntry{
			Keywords: map[lang.Language][]string{
				lang.English: f.Keywords.EN,
				lang.Arabic:  f.Keywords.AR,
			},
			Answer: f.Answer,
		})
	}
	return t, nil
}

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

func parseDays(raw []string) ([]time.Weekday, error) {
	days := make([]time.Weekday, 0, len(raw))
	for _, d := range raw {
		wd, ok := weekdays[strings.ToLower(strings.TrimSpace(d))]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", d)
		}
		days = append(days, wd)
	}
	return days, nil
}

// ParseUTCOffset parses "+04:00", "-0530", "+3" or "" (UTC).
func ParseUTCOffset(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "z") || strings.EqualFold(s, "utc") {
		return 0, nil
	}
	sign := time.Duration(1)
	switch s[0] {
	case '+':
		s = s[1:]
	case '-':
		sign = -1
		s = s[1:]
	}
	hh, mm := s, "0"
	if i := strings.IndexByte(s, ':'); i >= 0 {
		hh, mm = s[:i], s[i+1:]
	} else if len(s) == 4 {
		hh, mm = s[:2], s[2:]
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("invalid utc offset %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid utc offset %q", s)
	}
	return sign * (time.Duration(h)*time.Hour + time.Duration(m)*time.Minute), nil
}
