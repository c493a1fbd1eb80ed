package session

import (
	"net/http"
	"slices"
	"time"
)

// Credentials are only ever held in memory for the duration of a login.
type Credentials struct {
	Username string
	Password string
}

func (c Credentials) Empty() bool {
	return c.Username == "" || c.Password == ""
}

type Cookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Domain   string    `json:"domain,omitempty"`
	Path     string    `json:"path,omitempty"`
	Expires  time.Time `json:"expires"`
	Secure   bool      `json:"secure,omitempty"`
	HttpOnly bool      `json:"http_only,omitempty"`
}

func (c Cookie) expired(now time.Time) bool {
	return !c.Expires.IsZero() && !c.Expires.After(now)
}

// Session is the cookie set issued by a successful login. It is treated as an
// immutable value once created, every method returns copies.
type Session struct {
	Cookies  []Cookie  `json:"cookies"`
	IssuedAt time.Time `json:"issued_at"`
}

// FromHTTP merges cookie sets in order, later cookies with the same name
// replace earlier ones. Cookies deleted by the server (MaxAge < 0 or an empty
// value) are dropped.
func FromHTTP(issuedAt time.Time, sets ...[]*http.Cookie) Session {
	var cookies []Cookie
	for _, set := range sets {
		for _, c := range set {
			idx := slices.IndexFunc(cookies, func(existing Cookie) bool {
				return existing.Name == c.Name
			})
			if c.MaxAge < 0 || c.Value == "" {
				if idx >= 0 {
					cookies = slices.Delete(cookies, idx, idx+1)
				}
				continue
			}

			converted := Cookie{
				Name:     c.Name,
				Value:    c.Value,
				Domain:   c.Domain,
				Path:     c.Path,
				Expires:  c.Expires,
				Secure:   c.Secure,
				HttpOnly: c.HttpOnly,
			}
			if c.MaxAge > 0 {
				converted.Expires = issuedAt.Add(time.Duration(c.MaxAge) * time.Second)
			}
			if idx >= 0 {
				cookies[idx] = converted
				continue
			}
			cookies = append(cookies, converted)
		}
	}
	return Session{Cookies: cookies, IssuedAt: issuedAt}
}

// HTTPCookies returns fresh copies of the cookies suitable for attaching to
// a request.
func (s Session) HTTPCookies() []*http.Cookie {
	out := make([]*http.Cookie, len(s.Cookies))
	for i, c := range s.Cookies {
		out[i] = &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
		}
	}
	return out
}

func (s Session) Cookie(name string) (Cookie, bool) {
	for _, c := range s.Cookies {
		if c.Name == name {
			return c, true
		}
	}
	return Cookie{}, false
}

// Complete reports whether every required cookie is present, non-empty and
// unexpired at `now`. A session that is not complete must be treated as
// absent.
func (s Session) Complete(now time.Time, required ...string) bool {
	if len(s.Cookies) == 0 {
		return false
	}
	for _, name := range required {
		c, ok := s.Cookie(name)
		if !ok || c.Value == "" || c.expired(now) {
			return false
		}
	}
	return true
}

func (s Session) Equal(other Session) bool {
	if !s.IssuedAt.Equal(other.IssuedAt) {
		return false
	}
	return slices.EqualFunc(s.Cookies, other.Cookies, func(a, b Cookie) bool {
		return a.Name == b.Name &&
			a.Value == b.Value &&
			a.Domain == b.Domain &&
			a.Path == b.Path &&
			a.Expires.Equal(b.Expires) &&
			a.Secure == b.Secure &&
			a.HttpOnly == b.HttpOnly
	})
}
