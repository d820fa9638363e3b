// Package providers adapts the Apple, Naver and Google login handshakes to a
// single contract: build the consent URL, then turn the provider callback into
// a normalized models.Identity.
package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/authrouter/authrouter/internal/models"
	"golang.org/x/oauth2"
)

const (
	Apple  = "apple"
	Naver  = "naver"
	Google = "google"
)

var (
	// ErrProviderDenied means the provider redirected back with an error
	// (user cancelled consent, invalid client, ...).
	ErrProviderDenied = errors.New("provider denied authorization")
	// ErrMissingCode means the callback carried no authorization code.
	ErrMissingCode = errors.New("callback missing authorization code")
	// ErrStateMismatch means the callback state does not match the one issued.
	ErrStateMismatch = errors.New("oauth state mismatch")
)

// Provider is one external identity provider.
type Provider interface {
	// Name is the stable provider id stored in the user table.
	Name() string
	// AuthCodeURL returns the consent screen address for the given state.
	AuthCodeURL(state string) string
	// Complete exchanges the callback for a normalized identity.
	Complete(ctx context.Context, cb Callback) (models.Identity, error)
}

// Callback is the provider redirect payload. Apple posts it as a form
// (response_mode=form_post); the others use the query string.
type Callback struct {
	Code  string
	State string
	Error string
}

// CallbackFromRequest reads code/state/error from the query string or a POST form.
func CallbackFromRequest(r *http.Request) Callback {
	return Callback{
		Code:  r.FormValue("code"),
		State: r.FormValue("state"),
		Error: r.FormValue("error"),
	}
}

func (cb Callback) check() error {
	if cb.Error != "" {
		return fmt.Errorf("%w: %s", ErrProviderDenied, cb.Error)
	}
	if cb.Code == "" {
		return ErrMissingCode
	}
	return nil
}

func defaultHTTPClient(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: 10 * time.Second}
}

// withClient makes oauth2 use c for token exchange and authenticated calls.
func withClient(ctx context.Context, c *http.Client) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c)
}

// Registry maps provider names to adapters.
type Registry struct {
	m map[string]Provider
}

func NewRegistry(ps ...Provider) *Registry {
	r := &Registry{m: map[string]Provider{}}
	for _, p := range ps {
		r.Add(p)
	}
	return r
}

func (r *Registry) Add(p Provider) {
	r.m[p.Name()] = p
}

func (r *Registry) Get(name string) (Provider, bool) {
	p, ok := r.m[name]
	return p, ok
}

// Names returns the configured provider names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.m))
	for n := range r.m {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) Len() int { return len(r.m) }
