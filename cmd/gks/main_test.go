package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gksapp/gks/internal/domain"
	"github.com/gksapp/gks/internal/quiz"
	"github.com/gksapp/gks/internal/remote"
)

const seedJSON = `{
  "songs": [
    {"id": "s1", "title": "Be Thou My Vision", "artist": "Choir", "downloadUrl": "https://cdn.example.com/s1.mp3"},
    {"id": "s2", "title": "Abide With Me"},
    {"id": "s3", "title": "Crown Him With Many Crowns", "downloadUrl": "https://cdn.example.com/s3.mp3"}
  ],
  "QuizQA": [
    {"id": "q1", "year": 2019, "content": "Who wrote Psalm 23?"},
    {"id": "q2", "year": 2020, "content": "How many psalms are there?"},
    {"id": "q3", "year": 2019, "content": "Which psalm is the longest?"},
    {"id": "q4", "year": 2021, "content": "Name a psalm of ascent."}
  ]
}`

type cliTestEnv struct {
	baseDir    string
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	base := t.TempDir()
	env := &cliTestEnv{baseDir: base, configPath: filepath.Join(base, "config.yaml")}
	writeTestConfig(t, env.configPath, fmt.Sprintf(`
store:
  path: %s
logging:
  file: %s
quiz:
  page_size: 2
`, filepath.Join(base, "gks.db"), filepath.Join(base, "gks.log")))
	return env
}

func writeTestConfig(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q\noutput:\n%s", needle, haystack)
	}
}

func seed(t *testing.T, env *cliTestEnv) {
	t.Helper()
	seedPath := filepath.Join(env.baseDir, "seed.json")
	if err := os.WriteFile(seedPath, []byte(seedJSON), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	out, _, err := runCLI(t, []string{"seed", seedPath}, env.configPath)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	requireContains(t, out, "QuizQA")
	requireContains(t, out, "songs")
}

func TestVersionSkipsConfig(t *testing.T) {
	out, _, err := runCLI(t, []string{"version"}, filepath.Join(t.TempDir(), "missing", "config.yaml"))
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	requireContains(t, out, "gks dev")
}

func TestSeedAndSongs(t *testing.T) {
	env := setupCLITestEnv(t)
	seed(t, env)

	out, _, err := runCLI(t, []string{"songs"}, env.configPath)
	if err != nil {
		t.Fatalf("songs: %v", err)
	}
	abide := strings.Index(out, "Abide With Me")
	vision := strings.Index(out, "Be Thou My Vision")
	if abide < 0 || vision < 0 || abide > vision {
		t.Fatalf("songs not listed in title order:\n%s", out)
	}

	out, _, err = runCLI(t, []string{"songs", "--filter", "crown"}, env.configPath)
	if err != nil {
		t.Fatalf("songs --filter: %v", err)
	}
	requireContains(t, out, "Crown Him With Many Crowns")
	if strings.Contains(out, "Abide With Me") {
		t.Fatalf("filter leaked other songs:\n%s", out)
	}
}

func TestQuizCommands(t *testing.T) {
	env := setupCLITestEnv(t)
	seed(t, env)

	out, _, err := runCLI(t, []string{"quiz"}, env.configPath)
	if err != nil {
		t.Fatalf("quiz: %v", err)
	}
	requireContains(t, out, "2 questions (more with --pages 2)")

	out, _, err = runCLI(t, []string{"quiz", "--pages", "3"}, env.configPath)
	if err != nil {
		t.Fatalf("quiz --pages: %v", err)
	}
	requireContains(t, out, "4 questions (end)")

	out, _, err = runCLI(t, []string{"quiz", "--year", "2019"}, env.configPath)
	if err != nil {
		t.Fatalf("quiz --year: %v", err)
	}
	requireContains(t, out, "Who wrote Psalm 23?")
	if strings.Contains(out, "How many psalms") {
		t.Fatalf("year filter leaked other years:\n%s", out)
	}

	if _, _, err := runCLI(t, []string{"quiz", "--year", "last"}, env.configPath); err == nil {
		t.Fatal("expected an invalid year error")
	}

	out, _, err = runCLI(t, []string{"quiz", "years"}, env.configPath)
	if err != nil {
		t.Fatalf("quiz years: %v", err)
	}
	if got := strings.Fields(out); strings.Join(got, ",") != "All,2019,2020,2021" {
		t.Fatalf("years: got %v", got)
	}
}

func TestHymnsCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"hymns", "grace"}, env.configPath)
	if err != nil {
		t.Fatalf("hymns: %v", err)
	}
	requireContains(t, out, "Amazing Grace")
	requireContains(t, out, "tsp_2_1")

	out, _, err = runCLI(t, []string{"hymns", "grce"}, env.configPath)
	if err != nil {
		t.Fatalf("hymns typo: %v", err)
	}
	requireContains(t, out, "Did you mean")

	out, _, err = runCLI(t, []string{"hymns", "--kind", "psalm", "23"}, env.configPath)
	if err != nil {
		t.Fatalf("hymns psalm: %v", err)
	}
	requireContains(t, out, "psalm_23_")

	if _, _, err := runCLI(t, []string{"hymns", "--kind", "carol"}, env.configPath); err == nil {
		t.Fatal("expected an unknown kind error")
	}
}

func TestConfigInit(t *testing.T) {
	target := filepath.Join(t.TempDir(), "conf", "config.yaml")
	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote default configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected an error for an existing file")
	}
}

func TestServeAndRemoteMode(t *testing.T) {
	env := setupCLITestEnv(t)
	seed(t, env)

	cliCtx := newCommandContext(&env.configPath)
	t.Cleanup(cliCtx.close)

	runCtx, cancel := context.WithCancel(context.Background())
	addrCh := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		errCh <- runServer(runCtx, cliCtx, "127.0.0.1:0", func(addr string) { addrCh <- addr })
	}()

	var addr string
	select {
	case addr = <-addrCh:
	case err := <-errCh:
		t.Fatalf("server exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	client, err := remote.NewClient("http://"+addr, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	page, err := client.Query(context.Background(), quiz.Collection, domain.QueryOptions{OrderField: quiz.OrderField})
	if err != nil {
		t.Fatalf("remote query: %v", err)
	}
	if len(page.Docs) != 4 {
		t.Fatalf("remote docs: got %d, want 4", len(page.Docs))
	}

	remoteConfig := filepath.Join(env.baseDir, "remote.yaml")
	writeTestConfig(t, remoteConfig, fmt.Sprintf(`
remote:
  mode: remote
  url: http://%s
logging:
  file: %s
`, addr, filepath.Join(env.baseDir, "remote.log")))

	out, _, err := runCLI(t, []string{"songs"}, remoteConfig)
	if err != nil {
		t.Fatalf("remote songs: %v", err)
	}
	requireContains(t, out, "Be Thou My Vision")

	if _, _, err := runCLI(t, []string{"seed", filepath.Join(env.baseDir, "seed.json")}, remoteConfig); err == nil {
		t.Fatal("seed should refuse remote mode")
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("server returned error: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}
