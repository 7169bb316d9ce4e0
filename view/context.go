package view

import (
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/diewo77/cpq-app/auth"
)

// assetVersion holds the deploy-set static asset version. When no deploy has
// published one yet, pages fall back to an hourly bucket so browser caches
// still roll over.
var assetVersion = struct {
	sync.RWMutex
	v string
}{}

// SetAssetVersion stores the asset version published by the deploy hook.
func SetAssetVersion(v string) {
	assetVersion.Lock()
	assetVersion.v = v
	assetVersion.Unlock()
}

// AssetVersion returns the published asset version, or the current UTC hour
// formatted as yyyymmddHH when none has been published.
func AssetVersion() string {
	assetVersion.RLock()
	v := assetVersion.v
	assetVersion.RUnlock()
	if v != "" {
		return v
	}
	return time.Now().UTC().Format("2006010215")
}

// RequestInfo carries the request metadata templates need for canonical
// links and protocol-relative URLs.
type RequestInfo struct {
	IsSecure bool
	Host     string
	Path     string
	FullURI  string
}

// ServerInfo identifies the machine that rendered the page, useful when
// several instances sit behind a load balancer.
type ServerInfo struct {
	Hostname string
}

var (
	adminToolsJS = regexp.MustCompile(`admintools/(.*)$`)
	csrfCookie   = "csrftoken"
)

// rollbarEnv is the error-reporting environment published at startup. When
// unset, the ROLLBAR_ENV variable is read directly so ad-hoc tooling that
// bypasses the config layer still reports somewhere sensible.
var rollbarEnv = struct {
	sync.RWMutex
	v string
}{}

// SetRollbarEnv stores the error-reporting environment from the loaded config.
func SetRollbarEnv(v string) {
	rollbarEnv.Lock()
	rollbarEnv.v = v
	rollbarEnv.Unlock()
}

// RollbarEnv returns the published error-reporting environment.
func RollbarEnv() string {
	rollbarEnv.RLock()
	v := rollbarEnv.v
	rollbarEnv.RUnlock()
	if v != "" {
		return v
	}
	return os.Getenv("ROLLBAR_ENV")
}

// WrapData decorates a page's data map with the ambient keys every template
// expects: CSRF token, request and server metadata, error reporting
// environment, asset version, stylesheet mode and the signed-in user.
// The input map is mutated and returned; nil is allowed. A freshly minted
// CSRF token is persisted on w so the same token survives across renders.
func WrapData(w http.ResponseWriter, r *http.Request, data map[string]any) map[string]any {
	if data == nil {
		data = map[string]any{}
	}
	data["CSRFToken"] = csrfToken(w, r)
	data["Request"] = RequestInfo{
		IsSecure: r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https"),
		Host:     r.Host,
		Path:     r.URL.Path,
		FullURI:  r.URL.RequestURI(),
	}
	host, _ := os.Hostname()
	data["Server"] = ServerInfo{Hostname: host}
	data["RollbarEnv"] = RollbarEnv()
	data["AssetVersion"] = AssetVersion()

	// Stylesheets ship compiled to CSS. In dev the raw LESS sources can be
	// served instead by appending ?useless to any page URL.
	useLess := os.Getenv("DEV") == "1" && r.URL.Query().Has("useless")
	if useLess {
		data["CSSRel"] = "stylesheet/less"
		data["CSSExt"] = "less"
	} else {
		data["CSSRel"] = "stylesheet"
		data["CSSExt"] = "css"
	}

	if uid, ok := auth.UserIDFromContext(r.Context()); ok {
		data["UserID"] = uid
	}
	if _, exists := data["Errors"]; !exists {
		data["Errors"] = []string{}
	}
	return data
}

// csrfToken reuses the token from the request cookie when present; otherwise
// it mints one and sets the cookie so subsequent renders see the same token.
func csrfToken(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(csrfCookie); err == nil && c.Value != "" {
		return c.Value
	}
	tok := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookie,
		Value:    tok,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return tok
}

// Javascripts resolves the page-specific script fragment for a template.
// Fragments live in a fragments/js/ directory next to their pages; admin
// tool pages keep their own fragments/js/ under the admintools/ directory.
// A page without a fragment on disk gets no scripts at all.
func Javascripts(templateName, prefix string) []string {
	var frag string
	switch {
	case strings.HasPrefix(templateName, prefix+"admintools/"):
		m := adminToolsJS.FindStringSubmatch(templateName)
		if m == nil {
			return []string{}
		}
		frag = prefix + "admintools/fragments/js/" + m[1]
	case prefix != "" && strings.HasPrefix(templateName, prefix):
		frag = prefix + "fragments/js/" + strings.TrimPrefix(templateName, prefix)
	default:
		frag = "fragments/js/" + templateName
	}
	if baseDir == "" {
		once.Do(detectBase)
	}
	fi, err := os.Stat(filepath.Join(baseDir, filepath.FromSlash(frag)))
	if err != nil || fi.IsDir() {
		return []string{}
	}
	return []string{frag}
}

// RenderPage wraps data with the ambient context, resolves the page's script
// fragments and renders the template.
func RenderPage(w http.ResponseWriter, r *http.Request, name string, data map[string]any) error {
	data = WrapData(w, r, data)
	data["Javascripts"] = Javascripts(name, "")
	return Render(w, r, name, data)
}
