package route

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// Audience classifies who may see a path.
type Audience uint8

const (
	// Public paths are reachable by everyone once the session is resolved.
	Public Audience = iota
	// GuestOnly paths only make sense to anonymous visitors (login, register).
	GuestOnly
	// MemberOnly paths require an authenticated session.
	MemberOnly
)

func (a Audience) String() string {
	switch a {
	case Public:
		return "public"
	case GuestOnly:
		return "guest-only"
	case MemberOnly:
		return "member-only"
	default:
		return "unknown"
	}
}

// Rule is the classification of one path pattern. RequiredRole is only
// meaningful for MemberOnly rules; empty means any authenticated role.
type Rule struct {
	Audience     Audience
	RequiredRole string
}

// Table maps path patterns to rules. A pattern is either an exact path or a
// subtree pattern ending in "/*", which matches every path strictly below the
// prefix.
type Table map[string]Rule

// Area is the multi-view authenticated area owned by one role. The last path
// visited inside Prefix is remembered per role and restored when the owner
// requests the home path.
type Area struct {
	Role        string
	Prefix      string
	DefaultHome string
}

// Contains reports whether the normalized path p lies in the area.
func (a Area) Contains(p string) bool {
	return p == a.Prefix || strings.HasPrefix(p, a.Prefix+"/")
}

// Policy is the full routing configuration.
type Policy struct {
	Table     Table
	LoginPath string
	HomePath  string
	Areas     []Area
}

// DefaultPolicy returns the Teachify route table.
func DefaultPolicy() Policy {
	const teacher = "TEACHER"
	return Policy{
		Table: Table{
			"/":                   {Audience: Public},
			"/login":              {Audience: GuestOnly},
			"/register":           {Audience: GuestOnly},
			"/tutors":             {Audience: MemberOnly},
			"/profile":            {Audience: MemberOnly},
			"/dashboard":          {Audience: MemberOnly, RequiredRole: teacher},
			"/dashboard/calendar": {Audience: MemberOnly, RequiredRole: teacher},
			"/dashboard/students": {Audience: MemberOnly, RequiredRole: teacher},
			"/dashboard/stats":    {Audience: MemberOnly, RequiredRole: teacher},
			"/dashboard/profile":  {Audience: MemberOnly, RequiredRole: teacher},
		},
		LoginPath: "/login",
		HomePath:  "/",
		Areas: []Area{
			{Role: teacher, Prefix: "/dashboard", DefaultHome: "/dashboard"},
		},
	}
}

// Clone returns a deep copy of the policy.
func (p Policy) Clone() Policy {
	out := p
	out.Table = make(Table, len(p.Table))
	for k, v := range p.Table {
		out.Table[k] = v
	}
	out.Areas = append([]Area(nil), p.Areas...)
	return out
}

// Validate checks the policy for internal consistency.
func (p Policy) Validate() error {
	if len(p.Table) == 0 {
		return errors.New("route table empty")
	}
	for pattern := range p.Table {
		if !strings.HasPrefix(pattern, "/") {
			return fmt.Errorf("route pattern %q must start with /", pattern)
		}
	}
	m := newMatcher(p.Table)

	if p.LoginPath == "" {
		return errors.New("LoginPath must be set")
	}
	if p.HomePath == "" {
		return errors.New("HomePath must be set")
	}
	if rule, ok := m.match(Normalize(p.LoginPath)); !ok || rule.Audience != GuestOnly {
		return errors.New("LoginPath must be classified guest-only")
	}
	if rule, ok := m.match(Normalize(p.HomePath)); !ok || rule.Audience != Public {
		return errors.New("HomePath must be classified public")
	}

	seen := make(map[string]struct{}, len(p.Areas))
	for _, a := range p.Areas {
		if a.Role == "" {
			return errors.New("area role empty")
		}
		if _, dup := seen[a.Role]; dup {
			return fmt.Errorf("duplicate area for role %q", a.Role)
		}
		seen[a.Role] = struct{}{}

		prefix := Normalize(a.Prefix)
		if prefix != a.Prefix || prefix == "/" {
			return fmt.Errorf("area prefix %q must be a normalized non-root path", a.Prefix)
		}
		rule, ok := m.match(prefix)
		if !ok || rule.Audience != MemberOnly {
			return fmt.Errorf("area prefix %q must be classified member-only", a.Prefix)
		}
		if rule.RequiredRole != "" && rule.RequiredRole != a.Role {
			return fmt.Errorf("area prefix %q is restricted to another role", a.Prefix)
		}
		if !a.Contains(Normalize(a.DefaultHome)) {
			return fmt.Errorf("area default home %q outside prefix %q", a.DefaultHome, a.Prefix)
		}
	}
	return nil
}

// Normalize strips query and fragment, resolves dot segments and removes the
// trailing slash. The empty string normalizes to "/".
func Normalize(raw string) string {
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		raw = raw[:i]
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "/"
	}
	if !strings.HasPrefix(raw, "/") {
		raw = "/" + raw
	}
	return path.Clean(raw)
}
