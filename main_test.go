package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"f95-crawler/config"
	"f95-crawler/utils"
)

func testApp(t *testing.T) *app {
	t.Helper()
	return &app{
		cfg: &config.Config{
			StoreDriver:      config.DriverMemory,
			DetailFetcher:    config.FetcherHTTP,
			DelayMs:          1000,
			RateLimitDelayMs: 1800000,
			ErrorDelayMs:     5000,
			HTTPTimeoutMs:    1000,
			ExportPath:       filepath.Join(t.TempDir(), "export.json"),
		},
		logger: utils.NewLoggerTo(&bytes.Buffer{}),
		out:    &bytes.Buffer{},
	}
}

func TestRunRejectsBadInput(t *testing.T) {
	a := testApp(t)
	ctx := context.Background()

	assert.Error(t, a.run(ctx, "crawl-everything", nil))
	assert.ErrorContains(t, a.run(ctx, "crawl-thread", []string{"-id", "0"}), "positive")
	assert.Error(t, a.run(ctx, "crawl-missing", []string{"-delay", "-5"}))
	assert.ErrorContains(t, a.run(ctx, "export", []string{"-format", "xml"}), "unsupported format")
}

func TestRunExportEmptyStore(t *testing.T) {
	a := testApp(t)

	for _, tc := range []struct{ file, want string }{
		{"games.json", "[]"},
		{"games.csv", "thread_id,title"},
	} {
		out := filepath.Join(t.TempDir(), tc.file)
		require.NoError(t, a.run(context.Background(), "export", []string{"-out", out}))

		b, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(b), tc.want), "%s starts with %q", tc.file, tc.want)
	}
}

func TestCrawlMissingNothingMissing(t *testing.T) {
	a := testApp(t)
	assert.NoError(t, a.run(context.Background(), "crawl-missing", nil))
}

func TestCreateDBSkipsNonPostgres(t *testing.T) {
	a := testApp(t)
	assert.NoError(t, a.run(context.Background(), "create-db", nil))
}

func TestMenu(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantText string
	}{
		{"exit", "6\n", ""},
		{"eof exits", "", ""},
		{"unknown option", "9\n6\n", "Unknown option"},
		{"bad thread id asks again", "2\nabc\n0\n", "Thread ID must be a positive integer"},
		{"negative delay asks again", "3\n-1\n", "must be a non-negative integer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := testApp(t)
			var out bytes.Buffer

			err := a.menu(context.Background(), strings.NewReader(tt.input), &out)
			assert.NoError(t, err)
			assert.Contains(t, out.String(), "Crawl games list")
			assert.Contains(t, out.String(), tt.wantText)
		})
	}
}

func TestMenuRunsActionsUntilExit(t *testing.T) {
	a := testApp(t)
	var report bytes.Buffer
	a.out = &report
	var out bytes.Buffer

	err := a.menu(context.Background(), strings.NewReader("4\n5\n6\n"), &out)
	require.NoError(t, err)

	_, err = os.Stat(a.cfg.ExportPath)
	assert.NoError(t, err, "export ran")
	assert.Contains(t, report.String(), "CATALOG VERIFICATION", "verify ran")
	assert.Equal(t, 3, strings.Count(out.String(), "Crawl games list"), "menu shown before each choice")
}

func TestMenuKeepsGoingAfterFailedAction(t *testing.T) {
	a := testApp(t)
	a.cfg.StoreDriver = config.DriverSQLite
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	a.cfg.SQLitePath = filepath.Join(blocker, "f95.db")
	var out bytes.Buffer

	err := a.menu(context.Background(), strings.NewReader("5\n6\n"), &out)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out.String(), "Crawl games list"))
}

func TestMemoryStoreSharedAcrossActions(t *testing.T) {
	a := testApp(t)

	first, err := a.openStore()
	require.NoError(t, err)
	second, err := a.openStore()
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestExportKeepsPreviousFileWhenStoreFails(t *testing.T) {
	a := testApp(t)
	a.cfg.StoreDriver = config.DriverSQLite
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	a.cfg.SQLitePath = filepath.Join(blocker, "f95.db")

	for _, name := range []string{"export.json", "export.csv"} {
		out := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(out, []byte(`[{"threadId":1}]`), 0644))

		err := a.run(context.Background(), "export", []string{"-out", out})
		require.Error(t, err)

		b, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Equal(t, `[{"threadId":1}]`, string(b), "%s left untouched", name)
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3, "no temp files left behind")
}
