package extension

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"

	"github.com/flosch/pongo2/v6"
	"github.com/gorilla/mux"
)

// URLGenerator builds the path of a named route.
type URLGenerator interface {
	RelativeURL(name string, params map[string]string, query url.Values) (string, error)
}

// RequestContext reports the scheme and host of the current request.
type RequestContext interface {
	BaseURL() (*url.URL, error)
}

// MuxURLGenerator generates URLs from named gorilla/mux routes.
type MuxURLGenerator struct {
	router *mux.Router
}

// NewMuxURLGenerator wraps router.
func NewMuxURLGenerator(router *mux.Router) *MuxURLGenerator {
	return &MuxURLGenerator{router: router}
}

func (g *MuxURLGenerator) RelativeURL(name string, params map[string]string, query url.Values) (string, error) {
	route := g.router.Get(name)
	if route == nil {
		return "", fmt.Errorf("extension: route %q not found", name)
	}

	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(params)*2)
	for _, key := range keys {
		pairs = append(pairs, key, params[key])
	}

	u, err := route.URLPath(pairs...)
	if err != nil {
		return "", fmt.Errorf("extension: build route %q: %w", name, err)
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String(), nil
}

// RequestProvider returns the request being served.
type RequestProvider func() *http.Request

// StaticRequest returns a provider that always yields req.
func StaticRequest(req *http.Request) RequestProvider {
	return func() *http.Request { return req }
}

func (p RequestProvider) BaseURL() (*url.URL, error) {
	req := p()
	if req == nil {
		return nil, errors.New("extension: no current request")
	}

	scheme := req.URL.Scheme
	if scheme == "" {
		scheme = "http"
		if req.TLS != nil {
			scheme = "https"
		}
	}
	host := req.Host
	if host == "" {
		host = req.URL.Host
	}
	return &url.URL{Scheme: scheme, Host: host}, nil
}

// Routing exposes absolute_url_for and relative_url_for. Both take the
// route name, then optional path parameters and query maps.
type Routing struct {
	urls    URLGenerator
	request RequestContext
}

// NewRouting returns the routing extension.
func NewRouting(urls URLGenerator, request RequestContext) *Routing {
	return &Routing{urls: urls, request: request}
}

func (r *Routing) Name() string { return "routing" }

func (r *Routing) Functions() map[string]any {
	return map[string]any{
		"absolute_url_for": r.AbsoluteURLFor,
		"relative_url_for": r.RelativeURLFor,
	}
}

func (r *Routing) Filters() map[string]pongo2.FilterFunction { return nil }

func (r *Routing) Globals() map[string]any { return nil }

// RelativeURLFor returns the path and query of the named route.
func (r *Routing) RelativeURLFor(name string, args ...any) (*pongo2.Value, error) {
	target, err := r.relative(name, args)
	if err != nil {
		return nil, err
	}
	return pongo2.AsSafeValue(target), nil
}

// AbsoluteURLFor prefixes the relative URL with the current scheme and host.
func (r *Routing) AbsoluteURLFor(name string, args ...any) (*pongo2.Value, error) {
	target, err := r.relative(name, args)
	if err != nil {
		return nil, err
	}
	base, err := r.request.BaseURL()
	if err != nil {
		return nil, err
	}
	return pongo2.AsSafeValue(base.Scheme + "://" + base.Host + target), nil
}

func (r *Routing) relative(name string, args []any) (string, error) {
	if len(args) > 2 {
		return "", fmt.Errorf("extension: %s takes at most params and query, got %d arguments", name, len(args))
	}

	var params map[string]string
	query := url.Values{}
	if len(args) > 0 {
		params = stringMap(args[0])
	}
	if len(args) > 1 {
		if values, ok := args[1].(url.Values); ok {
			query = values
		} else {
			for key, value := range stringMap(args[1]) {
				query.Set(key, value)
			}
		}
	}
	return r.urls.RelativeURL(name, params, query)
}

func stringMap(value any) map[string]string {
	out := map[string]string{}
	switch v := value.(type) {
	case map[string]string:
		for key, val := range v {
			out[key] = val
		}
	case map[string]any:
		for key, val := range v {
			out[key] = fmt.Sprint(val)
		}
	case pongo2.Context:
		for key, val := range v {
			out[key] = fmt.Sprint(val)
		}
	}
	return out
}
