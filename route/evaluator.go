package route

import (
	"context"
	"errors"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Kind is the outcome of a navigation request.
type Kind uint8

const (
	// Allow renders the requested path.
	Allow Kind = iota
	// Redirect sends the caller to Verdict.Path instead.
	Redirect
	// Pending means the session is still bootstrapping; render a neutral
	// loading state and commit to neither the public nor the member view.
	Pending
)

func (k Kind) String() string {
	switch k {
	case Allow:
		return "allow"
	case Redirect:
		return "redirect"
	case Pending:
		return "pending"
	default:
		return "unknown"
	}
}

// Verdict is the result of Evaluate. Path is the normalized requested path
// for Allow and the target for Redirect; it is empty for Pending.
type Verdict struct {
	Kind Kind
	Path string
}

func (v Verdict) String() string {
	if v.Kind == Pending {
		return v.Kind.String()
	}
	return v.Kind.String() + "(" + v.Path + ")"
}

// SessionState mirrors the client session status.
type SessionState uint8

const (
	Bootstrapping SessionState = iota
	Anonymous
	Authenticated
)

func (s SessionState) String() string {
	switch s {
	case Bootstrapping:
		return "bootstrapping"
	case Anonymous:
		return "anonymous"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// View is the slice of session state the evaluator reads.
type View struct {
	State SessionState
	Role  string
}

// Memory persists the last path visited inside a role's area.
type Memory interface {
	LastVisitedPath(ctx context.Context, role string) (string, error)
	SetLastVisitedPath(ctx context.Context, role, path string) error
}

type subtree struct {
	prefix string
	rule   Rule
}

type matcher struct {
	exact    map[string]Rule
	subtrees []subtree
}

func newMatcher(t Table) matcher {
	m := matcher{exact: make(map[string]Rule, len(t))}
	for pattern, rule := range t {
		if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
			m.subtrees = append(m.subtrees, subtree{prefix: Normalize(prefix), rule: rule})
			continue
		}
		m.exact[Normalize(pattern)] = rule
	}
	sort.Slice(m.subtrees, func(i, j int) bool {
		return len(m.subtrees[i].prefix) > len(m.subtrees[j].prefix)
	})
	return m
}

func (m matcher) match(p string) (Rule, bool) {
	if rule, ok := m.exact[p]; ok {
		return rule, true
	}
	for _, st := range m.subtrees {
		if (st.prefix == "/" && p != "/") || strings.HasPrefix(p, st.prefix+"/") {
			return st.rule, true
		}
	}
	return Rule{}, false
}

// Evaluator applies a Policy. It is safe for concurrent use when its Memory
// is.
type Evaluator struct {
	policy  Policy
	matcher matcher
	areas   map[string]Area
	home    string
	login   string
	memory  Memory
	logger  *zap.Logger
}

// NewEvaluator validates p and returns an evaluator backed by memory. A nil
// memory disables last visited tracking; a nil logger discards logs.
func NewEvaluator(p Policy, memory Memory, logger *zap.Logger) (*Evaluator, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p = p.Clone()
	e := &Evaluator{
		policy:  p,
		matcher: newMatcher(p.Table),
		areas:   make(map[string]Area, len(p.Areas)),
		home:    Normalize(p.HomePath),
		login:   Normalize(p.LoginPath),
		memory:  memory,
		logger:  logger,
	}
	for _, a := range p.Areas {
		a.DefaultHome = Normalize(a.DefaultHome)
		e.areas[a.Role] = a
	}
	return e, nil
}

// Policy returns a copy of the evaluated policy.
func (e *Evaluator) Policy() Policy {
	return e.policy.Clone()
}

// Classify returns the rule governing the requested path.
func (e *Evaluator) Classify(requested string) (Rule, bool) {
	return e.matcher.match(Normalize(requested))
}

// Evaluate decides whether requested is reachable for view. Guest-only
// fencing is applied before any role rule, so an authenticated caller never
// reaches a guest-only page whatever the role.
func (e *Evaluator) Evaluate(ctx context.Context, view View, requested string) Verdict {
	p := Normalize(requested)

	switch view.State {
	case Anonymous:
		rule, known := e.matcher.match(p)
		switch {
		case !known:
			return redirect(e.home)
		case rule.Audience == MemberOnly:
			return redirect(e.login)
		default:
			return allow(p)
		}

	case Authenticated:
		rule, known := e.matcher.match(p)
		if known && rule.Audience == GuestOnly {
			return redirect(e.home)
		}
		area, ownsArea := e.areas[view.Role]
		if p == e.home && ownsArea {
			return redirect(e.restore(ctx, view.Role, area))
		}
		if !known {
			return redirect(e.home)
		}
		if rule.RequiredRole != "" && rule.RequiredRole != view.Role {
			return redirect(e.home)
		}
		if ownsArea && area.Contains(p) {
			e.remember(ctx, view.Role, p)
		}
		return allow(p)

	default:
		return Verdict{Kind: Pending}
	}
}

// restore returns the remembered path for role when it is still a reachable
// page of the role's own area, and the area default otherwise.
func (e *Evaluator) restore(ctx context.Context, role string, area Area) string {
	if e.memory == nil {
		return area.DefaultHome
	}
	stored, err := e.memory.LastVisitedPath(ctx, role)
	if err != nil {
		e.logger.Warn("last visited path read failed", zap.String("role", role), zap.Error(err))
		return area.DefaultHome
	}
	if stored == "" {
		return area.DefaultHome
	}
	p := Normalize(stored)
	if !area.Contains(p) {
		e.logger.Warn("ignoring last visited path outside area", zap.String("role", role), zap.String("path", p))
		return area.DefaultHome
	}
	rule, ok := e.matcher.match(p)
	if !ok || rule.Audience != MemberOnly || (rule.RequiredRole != "" && rule.RequiredRole != role) {
		return area.DefaultHome
	}
	return p
}

func (e *Evaluator) remember(ctx context.Context, role, p string) {
	if e.memory == nil {
		return
	}
	if err := e.memory.SetLastVisitedPath(ctx, role, p); err != nil && !errors.Is(err, context.Canceled) {
		e.logger.Warn("last visited path write failed", zap.String("role", role), zap.Error(err))
	}
}

func allow(p string) Verdict {
	return Verdict{Kind: Allow, Path: p}
}

func redirect(p string) Verdict {
	return Verdict{Kind: Redirect, Path: p}
}
