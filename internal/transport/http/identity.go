package http

import (
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

const (
	usernameCookie = "username"
	clientCookie   = "trivia_client"

	clientCookieTTL = 365 * 24 * time.Hour
)

// cookieIdentity keeps the player's name in the username cookie. Writes are
// visible to later reads within the same request.
type cookieIdentity struct {
	w   http.ResponseWriter
	r   *http.Request
	now func() time.Time

	written bool
	value   string
}

func newCookieIdentity(w http.ResponseWriter, r *http.Request) *cookieIdentity {
	return &cookieIdentity{w: w, r: r, now: time.Now}
}

func (c *cookieIdentity) Username() (string, bool) {
	if c.written {
		return c.value, c.value != ""
	}
	ck, err := c.r.Cookie(usernameCookie)
	if err != nil || ck.Value == "" {
		return "", false
	}
	name, err := url.QueryUnescape(ck.Value)
	if err != nil {
		name = ck.Value
	}
	return name, name != ""
}

func (c *cookieIdentity) SetUsername(name string, ttl time.Duration) {
	http.SetCookie(c.w, &http.Cookie{
		Name:     usernameCookie,
		Value:    url.QueryEscape(name),
		Path:     "/",
		Expires:  c.now().Add(ttl),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	c.written, c.value = true, name
}

func (c *cookieIdentity) ClearUsername() {
	http.SetCookie(c.w, &http.Cookie{
		Name:     usernameCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	c.written, c.value = true, ""
}

// clientID returns the browser's round/ledger key, issuing one if the request
// carries none or a malformed one.
func clientID(w http.ResponseWriter, r *http.Request, secure bool) string {
	if c, err := r.Cookie(clientCookie); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value
		}
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     clientCookie,
		Value:    id,
		Path:     "/",
		Expires:  time.Now().Add(clientCookieTTL),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// existingClientID reads the client cookie without issuing a new one.
func existingClientID(r *http.Request) (string, bool) {
	c, err := r.Cookie(clientCookie)
	if err != nil {
		return "", false
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return "", false
	}
	return c.Value, true
}
