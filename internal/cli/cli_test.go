package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/linkscope/internal/config"
	lserrors "github.com/matzehuels/linkscope/pkg/errors"
)

// isolate points every user directory at a temp dir and returns a dataset
// file path.
func isolate(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(tmp, "cache"))

	path := filepath.Join(tmp, "relations.jsonl")
	if err := os.WriteFile(path, []byte(testDataset), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (*CLI, error) {
	t.Helper()
	var logs bytes.Buffer
	c := New(&logs, log.InfoLevel)
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	return c, root.Execute()
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := New(&bytes.Buffer{}, log.InfoLevel).RootCommand()
	want := []string{"explore", "expand", "stats", "export", "views", "serve", "config", "cache", "completion"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestExpandCommand(t *testing.T) {
	ds := isolate(t)
	if _, err := execute(t, "expand", "P:alice", "--dataset", ds, "--nodes"); err != nil {
		t.Fatalf("expand: %v", err)
	}
}

func TestExpandCommandRejectsBadLimit(t *testing.T) {
	ds := isolate(t)
	_, err := execute(t, "expand", "P:alice", "--dataset", ds, "--limit", "5000")
	if !lserrors.Is(err, lserrors.ErrCodeValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestExpandCommandMissingDataset(t *testing.T) {
	isolate(t)
	if _, err := execute(t, "expand", "P:alice", "--dataset", "/nonexistent/relations.json"); err == nil {
		t.Error("expected error for a missing dataset")
	}
}

func TestStatsCommand(t *testing.T) {
	ds := isolate(t)
	if _, err := execute(t, "stats", "P:alice", "--dataset", ds, "--depth", "2", "--filter", "P:"); err != nil {
		t.Fatalf("stats: %v", err)
	}
}

func TestExportCommandDOT(t *testing.T) {
	ds := isolate(t)
	out := filepath.Join(t.TempDir(), "alice.dot")
	if _, err := execute(t, "export", "P:alice", "--dataset", ds, "-o", out, "--algorithm", "circle"); err != nil {
		t.Fatalf("export: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"digraph", `"P:alice"`, `"O:acme"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("DOT output missing %s", want)
		}
	}
}

func TestExportCommandNeedsInput(t *testing.T) {
	ds := isolate(t)
	if _, err := execute(t, "export", "--dataset", ds, "-o", filepath.Join(t.TempDir(), "x.dot")); err == nil {
		t.Error("expected error without node ids or --view")
	}
}

func TestExportCommandUnknownFormat(t *testing.T) {
	ds := isolate(t)
	if _, err := execute(t, "export", "P:alice", "--dataset", ds, "-o", "graph.pdf"); err == nil {
		t.Error("expected error for an unsupported format")
	}
}

func TestViewsCommands(t *testing.T) {
	ds := isolate(t)
	if _, err := execute(t, "views", "list", "--dataset", ds); err != nil {
		t.Fatalf("views list: %v", err)
	}
	_, err := execute(t, "views", "show", "no-such-view", "--dataset", ds)
	if !lserrors.Is(err, lserrors.ErrCodePersistenceConflict) {
		t.Errorf("views show unknown id: got %v", err)
	}
}

func TestConfigFlag(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	body := "[layout]\nalgorithm = \"grid\"\n\n[expansion]\nlimit = 7\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := execute(t, "--config", path, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	cfg := c.Config()
	if cfg.Layout.Algorithm != "grid" || cfg.Expansion.Limit != 7 {
		t.Errorf("config = %+v / %+v, want grid and limit 7", cfg.Layout, cfg.Expansion)
	}
}

func TestConfigFlagMissingFile(t *testing.T) {
	isolate(t)
	_, err := execute(t, "--config", "/nonexistent/config.toml", "config", "show")
	if !lserrors.Is(err, lserrors.ErrCodeValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestConfigEnvOverride(t *testing.T) {
	isolate(t)
	t.Setenv("LINKSCOPE_LAYOUT_ALGORITHM", "circle")
	c, err := execute(t, "config", "path")
	if err != nil {
		t.Fatal(err)
	}
	if got := c.Config().Layout.Algorithm; got != "circle" {
		t.Errorf("algorithm = %q, want circle", got)
	}
}

func TestOpenBackendPrefersDataset(t *testing.T) {
	ds := isolate(t)
	c := New(&bytes.Buffer{}, log.InfoLevel)

	s, err := c.openBackend(sourceFlags{dataset: ds})
	if err != nil {
		t.Fatal(err)
	}
	if s.label != ds {
		t.Errorf("label = %q, want %q", s.label, ds)
	}

	s, err = c.openBackend(sourceFlags{url: "http://localhost:9999", noCache: true})
	if err != nil {
		t.Fatal(err)
	}
	if s.label != "http://localhost:9999" {
		t.Errorf("label = %q", s.label)
	}

	if _, err := c.openBackend(sourceFlags{url: "ftp://example.com"}); !lserrors.Is(err, lserrors.ErrCodeValidation) {
		t.Errorf("ftp url: got %v", err)
	}
}

func TestOpenRepository(t *testing.T) {
	ctx := t.Context()
	sc := config.Default().Server

	repo, closeRepo, err := openRepository(ctx, sc)
	if err != nil || repo == nil {
		t.Fatalf("memory store: %v", err)
	}
	if err := closeRepo(); err != nil {
		t.Error(err)
	}

	sc.Store = config.StoreFile
	sc.FileDir = t.TempDir()
	if _, _, err := openRepository(ctx, sc); err != nil {
		t.Errorf("file store: %v", err)
	}

	sc.Store = config.StoreBadger
	sc.BadgerPath = ""
	repo, closeRepo, err = openRepository(ctx, sc)
	if err != nil {
		t.Fatalf("badger store: %v", err)
	}
	if _, err := repo.List(ctx); err != nil {
		t.Error(err)
	}
	if err := closeRepo(); err != nil {
		t.Error(err)
	}

	sc.Store = "sqlite"
	if _, _, err := openRepository(ctx, sc); err == nil {
		t.Error("expected error for an unknown store")
	}
}

func TestServeRequiresDataset(t *testing.T) {
	isolate(t)
	_, err := execute(t, "serve", "--addr", "127.0.0.1:18080")
	if !lserrors.Is(err, lserrors.ErrCodeValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestGrow(t *testing.T) {
	ws := newTestWorkspace(t, nil)
	if err := grow(t.Context(), ws, []string{"P:alice"}, 2, nil); err != nil {
		t.Fatal(err)
	}
	if !ws.Store().Has("P:carol") {
		t.Error("depth 2 from P:alice should reach P:carol")
	}
}
