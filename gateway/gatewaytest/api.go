// Package gatewaytest provides an in-process fake of the Teachify REST API for
// tests and local demos.
//
// Accounts are kept in memory with bcrypt hashed passwords and tokens are
// HS256 JWTs whose subject is the account id. Knobs force the profile
// endpoint to fail or hold a login until it is released.
package gatewaytest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/teachify/teachify"
	"github.com/teachify/teachify/token"
	"golang.org/x/crypto/bcrypt"
)

// BasePath is where the API is mounted.
const BasePath = "/api/v1"

type account struct {
	id        string
	hash      []byte
	firstName string
	lastName  string
	username  string
	phone     string
	role      teachify.Role
	createdAt time.Time
}

// API is an http.Handler serving the fake API.
type API struct {
	router chi.Router
	issuer *token.Issuer
	cost   int

	mu            sync.Mutex
	byName        map[string]*account
	byID          map[string]*account
	profileStatus int
	loginGate     chan struct{}
	loginEntered  chan struct{}
	calls         map[string]int
}

// Option customizes an API.
type Option func(*API)

// WithTokenTTL sets the lifetime of issued tokens. The default is one hour.
func WithTokenTTL(ttl time.Duration) Option {
	return func(a *API) {
		issuer, err := token.NewIssuer(token.Config{Secret: testSecret, TTL: ttl, Issuer: "teachify-fake"})
		if err == nil {
			a.issuer = issuer
		}
	}
}

// WithBcryptCost sets the password hashing cost. The default is
// bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(a *API) { a.cost = cost }
}

var testSecret = []byte("teachify-gatewaytest-secret-0123456789")

// New returns an empty API.
func New(opts ...Option) *API {
	issuer, err := token.NewIssuer(token.Config{Secret: testSecret, TTL: time.Hour, Issuer: "teachify-fake"})
	if err != nil {
		panic(err)
	}
	a := &API{
		issuer: issuer,
		cost:   bcrypt.MinCost,
		byName: make(map[string]*account),
		byID:   make(map[string]*account),
		calls:  make(map[string]int),
	}
	for _, opt := range opts {
		opt(a)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Route(BasePath, func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", a.login)
			r.Post("/register", a.register)
		})
		r.With(a.requireAuth).Get("/users/me", a.me)
	})
	a.router = r
	return a
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

// Seed creates an account directly.
func (a *API) Seed(username, password string, role teachify.Role) error {
	if username == "" {
		return errors.New("missing required fields")
	}
	_, err := a.create(registerBody{
		FirstName: strings.ToUpper(username[:1]) + username[1:],
		LastName:  "Example",
		Username:  username,
		Phone:     "+10000000000",
		Role:      string(role),
		Password:  password,
	})
	return err
}

// Issue returns a valid token for an existing account.
func (a *API) Issue(username string) (string, error) {
	a.mu.Lock()
	acct, ok := a.byName[username]
	a.mu.Unlock()
	if !ok {
		return "", errors.New("unknown account " + username)
	}
	return a.issuer.Issue(acct.id, string(acct.role))
}

// FailProfile makes the profile endpoint answer with status. Zero restores
// normal behaviour.
func (a *API) FailProfile(status int) {
	a.mu.Lock()
	a.profileStatus = status
	a.mu.Unlock()
}

// BlockLogin holds every login until release is called. entered receives once
// per held request.
func (a *API) BlockLogin() (entered <-chan struct{}, release func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	gate := make(chan struct{})
	in := make(chan struct{}, 16)
	a.loginGate, a.loginEntered = gate, in
	var once sync.Once
	return in, func() {
		once.Do(func() {
			a.mu.Lock()
			if a.loginGate == gate {
				a.loginGate, a.loginEntered = nil, nil
			}
			a.mu.Unlock()
			close(gate)
		})
	}
}

// Calls returns how many requests reached the named endpoint: "login",
// "register" or "me".
func (a *API) Calls(endpoint string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls[endpoint]
}

func (a *API) count(endpoint string) {
	a.mu.Lock()
	a.calls[endpoint]++
	a.mu.Unlock()
}

/*
====================================
HANDLERS
====================================
*/

type loginBody struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerBody struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Username  string `json:"usernameField"`
	Phone     string `json:"phone"`
	Role      string `json:"role"`
	Password  string `json:"password"`
}

type authBody struct {
	Token    string `json:"token"`
	Username string `json:"usernameField"`
	Role     string `json:"role"`
}

type profileBody struct {
	ID        string    `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Username  string    `json:"usernameField"`
	Phone     string    `json:"phone"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

type errorBody struct {
	Message string `json:"message"`
}

var errTaken = errors.New("username already exists")

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	a.count("login")

	a.mu.Lock()
	gate, entered := a.loginGate, a.loginEntered
	a.mu.Unlock()
	if gate != nil {
		select {
		case entered <- struct{}{}:
		default:
		}
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}

	var req loginBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing credentials")
		return
	}

	a.mu.Lock()
	acct, ok := a.byName[req.Username]
	a.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(acct.hash, []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	a.writeAuth(w, http.StatusOK, acct)
}

func (a *API) register(w http.ResponseWriter, r *http.Request) {
	a.count("register")

	var req registerBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	acct, err := a.create(req)
	switch {
	case errors.Is(err, errTaken):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	a.writeAuth(w, http.StatusCreated, acct)
}

func (a *API) me(w http.ResponseWriter, r *http.Request) {
	a.count("me")

	a.mu.Lock()
	status := a.profileStatus
	a.mu.Unlock()
	if status != 0 {
		writeError(w, status, http.StatusText(status))
		return
	}

	acct, ok := r.Context().Value(accountKey{}).(*account)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, profileBody{
		ID:        acct.id,
		FirstName: acct.firstName,
		LastName:  acct.lastName,
		Username:  acct.username,
		Phone:     acct.phone,
		Role:      string(acct.role),
		CreatedAt: acct.createdAt,
	})
}

type accountKey struct{}

func (a *API) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		claims, err := a.issuer.Verify(raw)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		a.mu.Lock()
		acct, ok := a.byID[claims.Subject]
		a.mu.Unlock()
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), accountKey{}, acct)))
	})
}

func (a *API) create(req registerBody) (*account, error) {
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Username = strings.TrimSpace(req.Username)
	req.Phone = strings.TrimSpace(req.Phone)
	role := teachify.NormalizeRole(req.Role)
	if req.FirstName == "" || req.LastName == "" || req.Username == "" || req.Phone == "" || req.Password == "" {
		return nil, errors.New("missing required fields")
	}
	switch role {
	case teachify.RoleTeacher, teachify.RoleStudent, teachify.RoleAdmin:
	default:
		return nil, errors.New("unknown role")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), a.cost)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.byName[req.Username]; ok {
		return nil, errTaken
	}
	acct := &account{
		id:        uuid.NewString(),
		hash:      hash,
		firstName: req.FirstName,
		lastName:  req.LastName,
		username:  req.Username,
		phone:     req.Phone,
		role:      role,
		createdAt: time.Now().UTC(),
	}
	a.byName[acct.username] = acct
	a.byID[acct.id] = acct
	return acct, nil
}

func (a *API) writeAuth(w http.ResponseWriter, status int, acct *account) {
	tok, err := a.issuer.Issue(acct.id, string(acct.role))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create token")
		return
	}
	writeJSON(w, status, authBody{Token: tok, Username: acct.username, Role: string(acct.role)})
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Message: message})
}
