package access

import (
	_ "embed"
	"errors"
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"managerhr/internal/domain/session"
)

const (
	PageLogin     = "login"
	PageForbidden = "forbidden"
	PageHome      = "home"
)

//go:embed routes.yaml
var defaultRoutes []byte

type Route struct {
	Path  string         `yaml:"path"`
	Page  string         `yaml:"page"`
	Title string         `yaml:"title"`
	Icon  string         `yaml:"icon"`
	Menu  bool           `yaml:"menu"`
	Roles []session.Role `yaml:"roles"`
}

type Group struct {
	Name   string         `yaml:"name"`
	Roles  []session.Role `yaml:"roles"`
	Routes []Route        `yaml:"routes"`
	Groups []Group        `yaml:"groups"`
}

type document struct {
	Public []Route `yaml:"public"`
	Groups []Group `yaml:"groups"`
}

// Entry is a route with the role sets of every guard in front of it,
// outermost first. Public entries have an empty chain.
type Entry struct {
	Route
	Public bool
	Chain  [][]session.Role
}

type MenuItem struct {
	Page  string `json:"page"`
	Title string `json:"title"`
	Path  string `json:"path"`
	Icon  string `json:"icon,omitempty"`
}

// Table is the single source for page guards, API guards and the menu.
type Table struct {
	basePath string
	entries  []Entry
	byPage   map[string]int
}

func Load(basePath string) (*Table, error) {
	return Parse(defaultRoutes, basePath)
}

func Parse(data []byte, basePath string) (*Table, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse route table: %w", err)
	}

	t := &Table{basePath: strings.TrimRight(basePath, "/"), byPage: map[string]int{}}
	for _, route := range doc.Public {
		if len(route.Roles) > 0 {
			return nil, fmt.Errorf("public route %q must not name roles", route.Page)
		}
		if err := t.add(Entry{Route: route, Public: true}); err != nil {
			return nil, err
		}
	}
	for _, group := range doc.Groups {
		if err := t.addGroup(group, nil); err != nil {
			return nil, err
		}
	}
	for _, required := range []string{PageLogin, PageForbidden} {
		if _, ok := t.byPage[required]; !ok {
			return nil, fmt.Errorf("route table must define the %q page", required)
		}
	}
	return t, nil
}

func (t *Table) addGroup(g Group, parent [][]session.Role) error {
	if len(g.Roles) == 0 {
		return fmt.Errorf("group %q must name at least one role", g.Name)
	}
	chain := append(slices.Clone(parent), g.Roles)
	for _, route := range g.Routes {
		routeChain := chain
		if len(route.Roles) > 0 {
			routeChain = append(slices.Clone(chain), route.Roles)
		}
		if err := t.add(Entry{Route: route, Chain: routeChain}); err != nil {
			return err
		}
	}
	for _, child := range g.Groups {
		if err := t.addGroup(child, chain); err != nil {
			return err
		}
	}
	return nil
}

func (t *Table) add(e Entry) error {
	if e.Page == "" {
		return errors.New("route page id must not be empty")
	}
	if !strings.HasPrefix(e.Path, "/") {
		return fmt.Errorf("route %q path must start with /", e.Page)
	}
	if _, dup := t.byPage[e.Page]; dup {
		return fmt.Errorf("duplicate page id %q", e.Page)
	}
	for _, existing := range t.entries {
		if existing.Path == e.Path {
			return fmt.Errorf("duplicate route path %q", e.Path)
		}
	}
	t.byPage[e.Page] = len(t.entries)
	t.entries = append(t.entries, e)
	return nil
}

func (t *Table) Page(page string) (Entry, bool) {
	idx, ok := t.byPage[page]
	if !ok {
		return Entry{}, false
	}
	return t.entries[idx], true
}

func (t *Table) Entries() []Entry {
	return slices.Clone(t.entries)
}

// Match resolves a path relative to the mount path. Segments written as
// {name} match any single non-empty segment.
func (t *Table) Match(path string) (Entry, map[string]string, bool) {
	for _, e := range t.entries {
		if params, ok := matchPattern(e.Path, path); ok {
			return e, params, true
		}
	}
	return Entry{}, nil, false
}

// URL prefixes a relative route path with the mount path.
func (t *Table) URL(path string) string {
	if path == "/" && t.basePath != "" {
		return t.basePath + "/"
	}
	return t.basePath + path
}

// Relative strips the mount path from an absolute browser path.
func (t *Table) Relative(path string) string {
	if t.basePath == "" {
		return path
	}
	if path == t.basePath {
		return "/"
	}
	if rest, ok := strings.CutPrefix(path, t.basePath+"/"); ok {
		return "/" + rest
	}
	return path
}

func (t *Table) LoginURL() string {
	e, _ := t.Page(PageLogin)
	return t.URL(e.Path)
}

func (t *Table) ForbiddenURL() string {
	e, _ := t.Page(PageForbidden)
	return t.URL(e.Path)
}

// Menu lists the menu routes the role can open, in declaration order.
// {id} placeholders are filled with the session user id.
func (t *Table) Menu(role session.Role, userID string) []MenuItem {
	items := make([]MenuItem, 0, len(t.entries))
	for _, e := range t.entries {
		if !e.Menu || e.Public || Guard(role, e.Chain) != Allow {
			continue
		}
		items = append(items, MenuItem{
			Page:  e.Page,
			Title: e.Title,
			Path:  t.URL(strings.ReplaceAll(e.Path, "{id}", userID)),
			Icon:  e.Icon,
		})
	}
	return items
}

// Home is where a signed-in role lands after login: its first menu entry.
func (t *Table) Home(role session.Role, userID string) string {
	menu := t.Menu(role, userID)
	if len(menu) == 0 {
		return t.ForbiddenURL()
	}
	return menu[0].Path
}

func matchPattern(pattern, path string) (map[string]string, bool) {
	pattern = strings.Trim(pattern, "/")
	path = strings.Trim(path, "/")
	if pattern == "" || path == "" {
		return nil, pattern == path
	}
	ps := strings.Split(pattern, "/")
	xs := strings.Split(path, "/")
	if len(ps) != len(xs) {
		return nil, false
	}
	var params map[string]string
	for i, seg := range ps {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			if xs[i] == "" {
				return nil, false
			}
			if params == nil {
				params = map[string]string{}
			}
			params[seg[1:len(seg)-1]] = xs[i]
			continue
		}
		if seg != xs[i] {
			return nil, false
		}
	}
	return params, true
}
