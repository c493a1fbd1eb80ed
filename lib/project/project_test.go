package project

import (
	"context"
	"cpkit/lib/contest"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func abc001() contest.Bundle {
	return contest.Bundle{
		Contest: "abc001",
		Tasks: []contest.TaskBundle{
			{
				Task: contest.TaskRef{Label: "A", Path: "/contests/abc001/tasks/abc001_1", Name: "積雪深差"},
				Samples: []contest.SamplePair{
					{Index: 1, Input: "15\n10\n", Output: "5\n"},
					{Index: 2, Input: "0\n0\n", Output: "0\n"},
				},
			},
			{
				Task:    contest.TaskRef{Label: "B", Path: "/contests/abc001/tasks/abc001_2", Name: "視程の通報"},
				Samples: []contest.SamplePair{},
			},
		},
		Warnings: []contest.Warning{
			{Task: "B", Kind: contest.WarningNoSamples, Message: "no sample pairs found on the task page"},
		},
		ScrapedAt: time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC),
	}
}

func read(t *testing.T, path string) string {
	t.Helper()
	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(contents)
}

func TestWrite(t *testing.T) {
	root := t.TempDir()
	writer := Writer{Root: root, BaseUrl: "https://atcoder.jp/"}

	result, err := writer.Write(context.Background(), abc001())
	require.NoError(t, err)

	dir := filepath.Join(root, "abc001")
	require.Equal(t, dir, result.Dir)
	require.Equal(t, 2, result.Fixtures)
	require.Len(t, result.Created, 5)
	require.Empty(t, result.Kept)

	require.Equal(t, "module abc001\n\ngo 1.22\n", read(t, filepath.Join(dir, "go.mod")))
	require.Equal(t, "15\n10\n", read(t, filepath.Join(dir, "a", "testdata", "sample_1.in")))
	require.Equal(t, "5\n", read(t, filepath.Join(dir, "a", "testdata", "sample_1.out")))
	require.Equal(t, "0\n", read(t, filepath.Join(dir, "a", "testdata", "sample_2.out")))

	stub := read(t, filepath.Join(dir, "a", "main.go"))
	require.Contains(t, stub, "// abc001 A: 積雪深差")
	require.Contains(t, stub, "https://atcoder.jp/contests/abc001/tasks/abc001_1")
	require.Contains(t, stub, "func run(r io.Reader, w io.Writer)")
	require.Contains(t, read(t, filepath.Join(dir, "b", "main_test.go")), "func TestSamples")

	entries, err := os.ReadDir(filepath.Join(dir, "b", "testdata"))
	require.NoError(t, err)
	require.Empty(t, entries)

	var manifest contest.Bundle
	require.NoError(t, json.Unmarshal([]byte(read(t, filepath.Join(dir, ManifestName))), &manifest))
	if diff := cmp.Diff(abc001(), manifest); diff != "" {
		t.Fatalf("manifest (-want +got):\n%s", diff)
	}
}

func TestWriteKeepsStubsAndRewritesFixtures(t *testing.T) {
	root := t.TempDir()
	writer := Writer{Root: root}

	_, err := writer.Write(context.Background(), abc001())
	require.NoError(t, err)

	solution := filepath.Join(root, "abc001", "a", "main.go")
	require.NoError(t, os.WriteFile(solution, []byte("package main\n// solved\n"), 0644))

	bundle := abc001()
	bundle.Tasks[0].Samples = bundle.Tasks[0].Samples[:1]
	bundle.Tasks[0].Samples[0].Output = "6\n"

	result, err := writer.Write(context.Background(), bundle)
	require.NoError(t, err)
	require.Empty(t, result.Created)
	require.Len(t, result.Kept, 5)
	require.Equal(t, 1, result.Fixtures)

	require.Equal(t, "package main\n// solved\n", read(t, solution))
	require.Equal(t, "6\n", read(t, filepath.Join(root, "abc001", "a", "testdata", "sample_1.out")))
	_, err = os.Stat(filepath.Join(root, "abc001", "a", "testdata", "sample_2.in"))
	require.True(t, os.IsNotExist(err))
}

func TestWriteKeepsFixturesOfFailedFetch(t *testing.T) {
	root := t.TempDir()
	writer := Writer{Root: root}

	_, err := writer.Write(context.Background(), abc001())
	require.NoError(t, err)

	bundle := abc001()
	bundle.Tasks[0].Samples = []contest.SamplePair{}
	bundle.Warnings = append(bundle.Warnings, contest.Warning{
		Task:    "A",
		Kind:    contest.WarningFetchFailed,
		Message: "network error",
	})

	result, err := writer.Write(context.Background(), bundle)
	require.NoError(t, err)
	require.Equal(t, []string{"A"}, result.Unchanged)
	require.Equal(t, 0, result.Fixtures)

	testdata := filepath.Join(root, "abc001", "a", "testdata")
	require.Equal(t, "15\n10\n", read(t, filepath.Join(testdata, "sample_1.in")))
	require.Equal(t, "0\n", read(t, filepath.Join(testdata, "sample_2.out")))
}

func TestWriteRejectsCollidingLabels(t *testing.T) {
	bundle := abc001()
	bundle.Tasks[1].Task.Label = "a"

	_, err := Writer{Root: t.TempDir()}.Write(context.Background(), bundle)
	require.ErrorIs(t, err, ErrLabelCollision)
}

func TestTaskDir(t *testing.T) {
	cases := map[string]string{
		"A":   "a",
		"Ex":  "ex",
		"H-2": "h-2",
		"A/B": "a_b",
	}
	for label, expected := range cases {
		require.Equal(t, expected, TaskDir(label), label)
	}
}
