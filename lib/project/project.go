// Package project lays out a contest bundle on disk as a Go module with one
// main package per task and its samples as test fixtures.
//
//	<root>/<contest>/go.mod
//	<root>/<contest>/bundle.json
//	<root>/<contest>/<label>/main.go
//	<root>/<contest>/<label>/main_test.go
//	<root>/<contest>/<label>/testdata/sample_<n>.in
//	<root>/<contest>/<label>/testdata/sample_<n>.out
//
// Stubs that already exist are never overwritten, fixtures and the manifest
// are rewritten on every run. Fixtures of a task whose page could not be
// fetched are left as they are.
package project

import (
	"bytes"
	"context"
	"cpkit/lib/contest"
	"cpkit/lib/osutil"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("cpkit.lib.project")

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

const ManifestName = "bundle.json"

var ErrLabelCollision = errors.New("task labels map to the same directory")

type Writer struct {
	Root string
	// BaseUrl prefixes task paths in the header comment of generated stubs.
	BaseUrl string
}

type Result struct {
	Dir string
	// Created lists the stubs written by this run.
	Created []string
	// Kept lists the stubs left alone because they already existed.
	Kept     []string
	Fixtures int
	// Unchanged lists the labels of tasks whose fixtures were left alone
	// because the page could not be fetched.
	Unchanged []string
}

type stubData struct {
	Module  string
	Contest string
	Label   string
	Name    string
	URL     string
}

var unsafeDirChars = regexp.MustCompile(`[^a-z0-9_-]+`)

// TaskDir is the directory name used for a task label.
func TaskDir(label string) string {
	return unsafeDirChars.ReplaceAllString(strings.ToLower(label), "_")
}

func fixtureName(index int, ext string) string {
	return fmt.Sprintf("sample_%d.%s", index, ext)
}

func (w Writer) Write(ctx context.Context, bundle contest.Bundle) (Result, error) {
	ctx, span := tracer.Start(ctx, "Write")
	defer span.End()
	span.SetAttributes(attribute.String("contest", bundle.Contest.String()))

	dir := filepath.Join(w.Root, bundle.Contest.String())
	result := Result{Dir: dir}

	seen := map[string]string{}
	for _, task := range bundle.Tasks {
		name := TaskDir(task.Task.Label)
		if name == "" || name == "_" {
			return result, fmt.Errorf("task label %q cannot be used as a directory", task.Task.Label)
		}
		if other, ok := seen[name]; ok {
			return result, fmt.Errorf("%w: %q and %q", ErrLabelCollision, other, task.Task.Label)
		}
		seen[name] = task.Task.Label
	}

	err := os.MkdirAll(dir, 0755)
	if err != nil {
		span.SetStatus(codes.Error, "failed to create project dir")
		return result, err
	}
	err = w.stub(&result, filepath.Join(dir, "go.mod"), "go.mod.tmpl", stubData{Module: bundle.Contest.String()})
	if err != nil {
		span.SetStatus(codes.Error, "failed to write go.mod")
		return result, err
	}

	fetchFailed := map[string]bool{}
	for _, warning := range bundle.Warnings {
		if warning.Kind == contest.WarningFetchFailed {
			fetchFailed[warning.Task] = true
		}
	}

	for _, task := range bundle.Tasks {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		err := w.writeTask(ctx, &result, dir, bundle.Contest, task, !fetchFailed[task.Task.Label])
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to write task")
			return result, fmt.Errorf("task %s: %w", task.Task.Label, err)
		}
	}

	manifest, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return result, err
	}
	err = osutil.WriteFileAtomic(filepath.Join(dir, ManifestName), append(manifest, '\n'), 0644)
	if err != nil {
		span.SetStatus(codes.Error, "failed to write manifest")
		return result, err
	}

	slog.InfoContext(
		ctx, "wrote project",
		"dir", dir,
		"created", len(result.Created),
		"kept", len(result.Kept),
		"fixtures", result.Fixtures,
	)
	return result, nil
}

func (w Writer) writeTask(ctx context.Context, result *Result, root string, id contest.ID, task contest.TaskBundle, fixtures bool) error {
	dir := filepath.Join(root, TaskDir(task.Task.Label))
	err := os.MkdirAll(filepath.Join(dir, "testdata"), 0755)
	if err != nil {
		return err
	}

	data := stubData{
		Contest: id.String(),
		Label:   task.Task.Label,
		Name:    task.Task.Name,
		URL:     strings.TrimSuffix(w.BaseUrl, "/") + task.Task.Path,
	}
	err = w.stub(result, filepath.Join(dir, "main.go"), "main.go.tmpl", data)
	if err != nil {
		return err
	}
	err = w.stub(result, filepath.Join(dir, "main_test.go"), "main_test.go.tmpl", data)
	if err != nil {
		return err
	}

	if !fixtures {
		slog.WarnContext(ctx, "keeping previous fixtures", "task", task.Task.Label)
		result.Unchanged = append(result.Unchanged, task.Task.Label)
		return nil
	}

	stale, err := filepath.Glob(filepath.Join(dir, "testdata", "sample_*"))
	if err != nil {
		return err
	}
	for _, path := range stale {
		err := os.Remove(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}

	for _, sample := range task.Samples {
		err := osutil.WriteFileAtomic(filepath.Join(dir, "testdata", fixtureName(sample.Index, "in")), []byte(sample.Input), 0644)
		if err != nil {
			return err
		}
		err = osutil.WriteFileAtomic(filepath.Join(dir, "testdata", fixtureName(sample.Index, "out")), []byte(sample.Output), 0644)
		if err != nil {
			return err
		}
		result.Fixtures++
	}
	slog.DebugContext(ctx, "wrote task", "task", task.Task.Label, "samples", len(task.Samples))
	return nil
}

// stub renders a template to path unless something is already there.
func (w Writer) stub(result *Result, path, name string, data stubData) error {
	var buf bytes.Buffer
	err := templates.ExecuteTemplate(&buf, name, data)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, os.ErrExist) {
		result.Kept = append(result.Kept, path)
		return nil
	}
	if err != nil {
		return err
	}
	_, err = f.Write(buf.Bytes())
	if err != nil {
		f.Close()
		return err
	}
	err = f.Close()
	if err != nil {
		return err
	}
	result.Created = append(result.Created, path)
	return nil
}
