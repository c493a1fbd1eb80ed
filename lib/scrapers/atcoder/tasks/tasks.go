package tasks

import (
	"bytes"
	"context"
	"cpkit/lib/contest"
	"cpkit/lib/htmlutil"
	"cpkit/lib/scrapers/atcoder/core"
	"cpkit/lib/session"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("cpkit.lib.scrapers.atcoder.tasks")

// Fetcher reads contest pages. Whether a contest needs a session is decided
// by the caller, a nil session simply makes unauthenticated requests.
type Fetcher struct {
	client *core.Client
}

func NewFetcher(client *core.Client) Fetcher {
	return Fetcher{client: client}
}

func tasksPath(id contest.ID) string {
	return fmt.Sprintf("/contests/%s/tasks", url.PathEscape(id.String()))
}

// ListTasks returns the tasks of a contest in display order.
func (f Fetcher) ListTasks(ctx context.Context, id contest.ID, s *session.Session) ([]contest.TaskRef, error) {
	ctx, span := tracer.Start(ctx, "ListTasks")
	defer span.End()
	span.SetAttributes(attribute.String("contest", id.String()))

	res, err := f.client.R(ctx, s).Get(tasksPath(id))
	err = core.Classify(ctx, res, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch task list")
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse task list")
		return nil, fmt.Errorf("%w: %w", core.ErrUnexpectedResponse, err)
	}

	refs, err := parseTaskTable(ctx, doc, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read task table")
		return nil, err
	}
	span.SetAttributes(attribute.Int("tasks", len(refs)))
	slog.DebugContext(ctx, "listed tasks", "contest", id, "count", len(refs))
	return refs, nil
}

func parseTaskTable(ctx context.Context, doc *goquery.Document, id contest.ID) ([]contest.TaskRef, error) {
	prefix := tasksPath(id) + "/"

	table := doc.Find("table").FilterFunction(func(_ int, t *goquery.Selection) bool {
		return t.Find(fmt.Sprintf(`tbody a[href^="%s"]`, prefix)).Length() > 0
	}).First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("%w: no task table for contest %s", core.ErrUnexpectedResponse, id)
	}

	var refs []contest.TaskRef
	seen := map[string]bool{}
	var parseErr error
	table.Find("tbody tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		anchors := htmlutil.GetAnchors(ctx, row.Find("td a"))
		if len(anchors) == 0 {
			return true
		}
		label := anchors[0].Name
		path := anchors[0].Href
		if label == "" || !strings.HasPrefix(path, prefix) {
			parseErr = fmt.Errorf("%w: malformed task row %q", core.ErrUnexpectedResponse, label)
			return false
		}
		if seen[label] {
			parseErr = fmt.Errorf("%w: duplicate task label %q", core.ErrUnexpectedResponse, label)
			return false
		}
		seen[label] = true

		name := label
		if len(anchors) > 1 && anchors[1].Name != "" {
			name = anchors[1].Name
		}
		refs = append(refs, contest.TaskRef{
			Label: label,
			Path:  path,
			Name:  name,
		})
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return refs, nil
}

// FetchTaskPage returns the raw markup of a task page.
func (f Fetcher) FetchTaskPage(ctx context.Context, task contest.TaskRef, s *session.Session) (string, error) {
	ctx, span := tracer.Start(ctx, "FetchTaskPage")
	defer span.End()
	span.SetAttributes(
		attribute.String("task.label", task.Label),
		attribute.String("task.path", task.Path),
	)

	if !strings.HasPrefix(task.Path, "/") {
		span.SetStatus(codes.Error, "task path is not site relative")
		return "", fmt.Errorf("%w: task %s has path %q", core.ErrUnexpectedResponse, task.Label, task.Path)
	}

	res, err := f.client.R(ctx, s).Get(task.Path)
	err = core.Classify(ctx, res, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch task page")
		return "", err
	}
	span.SetAttributes(attribute.Int("body_size", len(res.Body())))
	return res.String(), nil
}
