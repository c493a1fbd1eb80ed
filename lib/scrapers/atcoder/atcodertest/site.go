// Package atcodertest serves a small fake of the contest site for tests.
package atcodertest

import (
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

const (
	SessionCookie = "REVEL_SESSION"
	csrfToken     = "csrf-0123456789"
	authedValue   = "authenticated-session"
)

type Task struct {
	Label string
	// Slug is the last path segment of the task url, e.g. "abc001_1".
	Slug string
	Name string
	// Page is served as the task page body.
	Page string
	// Status overrides the response status of the task page when non-zero.
	Status int
}

type Contest struct {
	Tasks         []Task
	RequiresLogin bool
}

type Site struct {
	Username string
	Password string
	Contests map[string]Contest
	// FailLoginPage makes GET /login answer with this status when non-zero.
	FailLoginPage int
	// OmitCsrf serves a login page without the csrf token.
	OmitCsrf bool

	Server *httptest.Server

	mu   sync.Mutex
	hits map[string]int
	// flaky holds how many more times a path answers 503.
	flaky map[string]int
}

// NewSite starts the fake and closes it with the test.
func NewSite(t testing.TB, username, password string, contests map[string]Contest) *Site {
	s := &Site{
		Username: username,
		Password: password,
		Contests: contests,
		hits:     map[string]int{},
		flaky:    map[string]int{},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Server.Close)
	return s
}

func (s *Site) URL() string {
	return s.Server.URL
}

// Hits returns how many requests reached path.
func (s *Site) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// FailNext makes the next n requests to path answer 503.
func (s *Site) FailNext(path string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flaky[path] = n
}

func (s *Site) record(path string) (fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hits[path]++
	if s.flaky[path] > 0 {
		s.flaky[path]--
		return true
	}
	return false
}

func (s *Site) authenticated(r *http.Request) bool {
	c, err := r.Cookie(SessionCookie)
	return err == nil && c.Value == authedValue
}

func (s *Site) serve(w http.ResponseWriter, r *http.Request) {
	if s.record(r.URL.Path) {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	if r.URL.Path == "/login" {
		s.serveLogin(w, r)
		return
	}

	segments := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(segments) < 3 || segments[0] != "contests" || segments[2] != "tasks" {
		http.NotFound(w, r)
		return
	}
	contest, ok := s.Contests[segments[1]]
	if !ok {
		http.NotFound(w, r)
		return
	}
	if contest.RequiresLogin && !s.authenticated(r) {
		http.Redirect(w, r, "/login?continue="+r.URL.Path, http.StatusFound)
		return
	}

	switch len(segments) {
	case 3:
		fmt.Fprint(w, TaskListPage(segments[1], contest.Tasks))
	case 4:
		for _, task := range contest.Tasks {
			if task.Slug != segments[3] {
				continue
			}
			if task.Status != 0 {
				http.Error(w, http.StatusText(task.Status), task.Status)
				return
			}
			fmt.Fprint(w, task.Page)
			return
		}
		http.NotFound(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (s *Site) serveLogin(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if s.FailLoginPage != 0 {
			http.Error(w, http.StatusText(s.FailLoginPage), s.FailLoginPage)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "anonymous", Path: "/"})
		token := fmt.Sprintf(`<input type="hidden" name="csrf_token" value="%s">`, csrfToken)
		if s.OmitCsrf {
			token = ""
		}
		fmt.Fprintf(w, `<html><body><form method="POST" action="/login">%s
			<input name="username"><input name="password" type="password">
		</form></body></html>`, token)
	case http.MethodPost:
		err := r.ParseForm()
		anon, cookieErr := r.Cookie(SessionCookie)
		if err != nil || cookieErr != nil || anon.Value != "anonymous" || r.PostForm.Get("csrf_token") != csrfToken {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if r.PostForm.Get("username") != s.Username || r.PostForm.Get("password") != s.Password {
			http.SetCookie(w, &http.Cookie{Name: "REVEL_FLASH", Value: "error", Path: "/"})
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: authedValue, Path: "/", MaxAge: 3600, HttpOnly: true})
		http.Redirect(w, r, "/home", http.StatusFound)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// TaskListPage renders the task table of a contest.
func TaskListPage(contest string, tasks []Task) string {
	var rows strings.Builder
	for _, task := range tasks {
		link := fmt.Sprintf("/contests/%s/tasks/%s", contest, task.Slug)
		fmt.Fprintf(
			&rows,
			`<tr>
				<td class="text-center no-break"><a href="%s">%s</a></td>
				<td><a href="%s">%s</a></td>
				<td class="text-right">2 sec</td>
				<td class="text-right">1024 MB</td>
			</tr>`,
			link, html.EscapeString(task.Label), link, html.EscapeString(task.Name),
		)
	}
	return fmt.Sprintf(`<html><body><div id="main-container">
		<div class="panel panel-default table-responsive">
		<table class="table table-bordered table-striped">
			<thead><tr><th>Task</th><th>Task Name</th><th>Time Limit</th><th>Memory Limit</th></tr></thead>
			<tbody>%s</tbody>
		</table></div></div></body></html>`, rows.String())
}

// StatementPage renders a bilingual task statement with the given sample
// pairs, each pair is {input, output}.
func StatementPage(samples ...[2]string) string {
	part := func(heading, body string) string {
		return fmt.Sprintf(
			`<div class="part"><section><h3>%s<span class="btn btn-default btn-sm btn-copy">Copy</span></h3><pre>%s</pre></section></div>`,
			heading, html.EscapeString(body),
		)
	}

	var ja, en strings.Builder
	for i, sample := range samples {
		ja.WriteString(part(fmt.Sprintf("入力例 %d", i+1), sample[0]))
		ja.WriteString(part(fmt.Sprintf("出力例 %d", i+1), sample[1]))
		en.WriteString(part(fmt.Sprintf("Sample Input %d", i+1), sample[0]))
		en.WriteString(part(fmt.Sprintf("Sample Output %d", i+1), sample[1]))
	}

	return fmt.Sprintf(`<html><body><div id="task-statement">
		<span class="lang">
		<span class="lang-ja">
			<div class="part"><section><h3>問題文</h3><p>整数を読め。</p></section></div>
			<div class="io-style">
				<div class="part"><section><h3>入力</h3><pre><var>N</var></pre></section></div>
				<div class="part"><section><h3>出力</h3><p>答えを出力せよ。</p></section></div>
			</div>
			%s
		</span>
		<span class="lang-en">
			<div class="part"><section><h3>Problem Statement</h3><p>Read an integer.</p></section></div>
			<div class="io-style">
				<div class="part"><section><h3>Input</h3><pre><var>N</var></pre></section></div>
				<div class="part"><section><h3>Output</h3><p>Print the answer.</p></section></div>
			</div>
			%s
		</span>
		</span>
	</div></body></html>`, ja.String(), en.String())
}
