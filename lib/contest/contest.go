package contest

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// ID is a validated contest identifier, e.g. "abc001".
type ID string

var idRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

const maxIDLength = 64

var ErrInvalidID = fmt.Errorf("invalid contest id")

// ParseID accepts either a bare contest id or a contest url
// (https://atcoder.jp/contests/<id>/...), the id is lowercased.
func ParseID(raw string) (ID, error) {
	raw = strings.Trim(raw, " \t\n")
	if strings.Contains(raw, "://") {
		link, err := url.Parse(raw)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrInvalidID, err)
		}
		segments := strings.Split(strings.Trim(link.Path, "/"), "/")
		if len(segments) < 2 || segments[0] != "contests" {
			return "", fmt.Errorf("%w: %q is not a contest url", ErrInvalidID, raw)
		}
		raw = segments[1]
	}

	id := strings.ToLower(raw)
	if id == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidID)
	}
	if len(id) > maxIDLength {
		return "", fmt.Errorf("%w: longer than %d characters", ErrInvalidID, maxIDLength)
	}
	if !idRegex.MatchString(id) {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, raw)
	}
	return ID(id), nil
}

func (id ID) String() string {
	return string(id)
}

// TaskRef points at one problem page of a contest.
type TaskRef struct {
	// Label is the display letter of the task ("A", "B", "Ex", ...).
	Label string `json:"label"`
	// Path is the site-relative url of the task page.
	Path string `json:"path"`
	Name string `json:"name"`
}

// SamplePair is one example input with its expected output. Index is 1-based.
type SamplePair struct {
	Index  int    `json:"index"`
	Input  string `json:"input"`
	Output string `json:"output"`
}

func (p SamplePair) Valid() bool {
	return p.Index > 0 && p.Input != "" && p.Output != ""
}

type TaskBundle struct {
	Task    TaskRef      `json:"task"`
	Samples []SamplePair `json:"samples"`
}

// Flagged reports a task without any samples, this is a legitimate state
// but worth surfacing to the user.
func (t TaskBundle) Flagged() bool {
	return len(t.Samples) == 0
}

type WarningKind string

const (
	WarningFetchFailed    WarningKind = "fetch_failed"
	WarningNoSamples      WarningKind = "no_samples"
	WarningSampleMismatch WarningKind = "sample_mismatch"
	WarningSessionLoad    WarningKind = "session_load"
	WarningSessionSave    WarningKind = "session_save"
)

type Warning struct {
	// Task is the label of the task the warning belongs to, empty for
	// contest-wide warnings.
	Task    string      `json:"task,omitempty"`
	Kind    WarningKind `json:"kind"`
	Message string      `json:"message"`
}

func (w Warning) String() string {
	if w.Task == "" {
		return fmt.Sprintf("%s: %s", w.Kind, w.Message)
	}
	return fmt.Sprintf("task %s: %s: %s", w.Task, w.Kind, w.Message)
}

// Bundle is the result of scraping one contest. It is built once per run and
// not modified afterwards.
type Bundle struct {
	Contest   ID           `json:"contest"`
	Tasks     []TaskBundle `json:"tasks"`
	Warnings  []Warning    `json:"warnings"`
	ScrapedAt time.Time    `json:"scraped_at"`
}

// FlaggedTasks returns the labels of tasks which ended up without samples.
func (b Bundle) FlaggedTasks() []string {
	var labels []string
	for _, t := range b.Tasks {
		if t.Flagged() {
			labels = append(labels, t.Task.Label)
		}
	}
	return labels
}

func (b Bundle) SampleCount() int {
	count := 0
	for _, t := range b.Tasks {
		count += len(t.Samples)
	}
	return count
}
