package core

import (
	"bytes"
	"context"
	"cpkit/lib/session"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const loginPath = "/login"

// Login performs the login handshake and returns the issued session. It does
// not persist anything.
//
// 1. GET /login, which yields the csrf token and the anonymous session
// cookie it is bound to.
// 2. POST the form with those cookies, a redirect away from /login means the
// credentials were accepted.
func (c *Client) Login(ctx context.Context, creds session.Credentials) (session.Session, error) {
	ctx, span := tracer.Start(ctx, "client:Login")
	defer span.End()

	if creds.Empty() {
		span.SetStatus(codes.Error, "empty credentials")
		return session.Session{}, fmt.Errorf("%w: username and password are required", ErrInvalidCredentials)
	}

	res, err := c.Http.R().
		SetContext(ctx).
		Get(loginPath)
	err = Classify(ctx, res, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch login page")
		return session.Session{}, unexpectedUnlessNetwork(err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse login page")
		return session.Session{}, fmt.Errorf("%w: %w", ErrUnexpectedResponse, err)
	}
	csrfToken := doc.Find("input[name=csrf_token]").AttrOr("value", "")
	if csrfToken == "" {
		span.SetStatus(codes.Error, "failed to find csrf token")
		return session.Session{}, fmt.Errorf("%w: could not find csrf token on login page", ErrUnexpectedResponse)
	}
	anonymous := res.Cookies()

	values := url.Values{
		"username":   {creds.Username},
		"password":   {creds.Password},
		"csrf_token": {csrfToken},
	}
	res, err = c.Http.R().
		SetContext(ctx).
		SetCookies(anonymous).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetBody(values.Encode()).
		Post(loginPath)
	if err != nil {
		err = Classify(ctx, res, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to post login form")
		return session.Session{}, err
	}
	span.SetAttributes(attribute.Int("login.status", res.StatusCode()))

	status := res.StatusCode()
	switch {
	case status == http.StatusTooManyRequests || status >= 500:
		span.SetStatus(codes.Error, "transient status on login")
		return session.Session{}, fmt.Errorf("%w: login returned %d", ErrNetwork, status)
	case status >= 300 && status < 400:
		if isLoginRedirect(res.Header().Get("Location")) {
			span.SetStatus(codes.Error, ErrInvalidCredentials.Error())
			return session.Session{}, ErrInvalidCredentials
		}
	case status == http.StatusOK:
		// some failures re-render the form with an alert instead of
		// redirecting
		doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
		if err == nil && doc.Find("div.alert-danger, div.alert-warning").Length() > 0 {
			span.SetStatus(codes.Error, ErrInvalidCredentials.Error())
			return session.Session{}, ErrInvalidCredentials
		}
		span.SetStatus(codes.Error, "login form was not redirected")
		return session.Session{}, fmt.Errorf("%w: login did not redirect", ErrUnexpectedResponse)
	default:
		span.SetStatus(codes.Error, "unexpected login status")
		return session.Session{}, fmt.Errorf("%w: login returned %d", ErrUnexpectedResponse, status)
	}

	issued := session.FromHTTP(c.Now(), anonymous, res.Cookies())
	if !issued.Complete(c.Now(), SessionCookie) {
		span.SetStatus(codes.Error, "session cookie missing after login")
		return session.Session{}, fmt.Errorf("%w: no %s cookie after login", ErrUnexpectedResponse, SessionCookie)
	}
	if !sessionChanged(anonymous, issued) {
		span.SetStatus(codes.Error, "session cookie was not reissued")
		return session.Session{}, fmt.Errorf("%w: session cookie was not reissued on login", ErrUnexpectedResponse)
	}

	slog.InfoContext(ctx, "logged in", "username", creds.Username, "cookies", len(issued.Cookies))
	return issued, nil
}

// a successful login always reissues the session cookie
func sessionChanged(anonymous []*http.Cookie, issued session.Session) bool {
	current, _ := issued.Cookie(SessionCookie)
	for _, c := range anonymous {
		if c.Name == SessionCookie {
			return c.Value != current.Value
		}
	}
	return true
}

// the login page has to exist, anything but a transient failure fetching it
// means the site is not shaped like expected
func unexpectedUnlessNetwork(err error) error {
	if IsRetryable(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUnexpectedResponse, err)
}
