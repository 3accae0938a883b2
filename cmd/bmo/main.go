package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/marcus/bmo/internal/app"
	"github.com/marcus/bmo/internal/keymap"
	"github.com/marcus/bmo/internal/logging"
	"github.com/marcus/bmo/internal/plugin"
	"github.com/marcus/bmo/internal/plugins/bmo"
	"github.com/marcus/bmo/internal/plugins/filebrowser"
	"github.com/marcus/bmo/internal/plugins/notes"
	"github.com/marcus/bmo/internal/state"
	"github.com/marcus/bmo/internal/vault"
	"github.com/marcus/bmo/internal/workspace"
)

// Version is set at build time via ldflags
var Version = ""

var (
	vaultDir     = flag.String("vault", ".", "vault directory holding the notes")
	envFile      = flag.String("env", "", "dotenv file to load (default: <vault>/.env when present)")
	modKey       = flag.String("mod", keymap.DefaultMod, "modifier that Mod hotkeys resolve to")
	debugFlag    = flag.Bool("debug", false, "enable debug logging")
	versionFlag  = flag.Bool("version", false, "print version and exit")
	shortVersion = flag.Bool("v", false, "print version and exit (short)")
)

func main() {
	flag.Parse()

	if *versionFlag || *shortVersion {
		fmt.Printf("bmo version %s\n", effectiveVersion(Version))
		os.Exit(0)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "bmo: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	root, err := filepath.Abs(*vaultDir)
	if err != nil {
		return fmt.Errorf("resolve vault: %w", err)
	}
	v, err := vault.Open(root)
	if err != nil {
		return fmt.Errorf("open vault: %w", err)
	}

	// Log to a file inside the vault; the terminal belongs to the UI.
	logger, closer, err := logging.New(logging.Options{
		Path:  logging.DefaultPath(root),
		Debug: *debugFlag,
	})
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer closer.Close()
	slog.SetDefault(logger)

	if err := loadEnv(root, *envFile); err != nil {
		logger.Warn("dotenv not loaded", "err", err)
	}

	// Load persistent state (errors are not fatal - state is optional)
	if err := state.Init(root); err != nil {
		logger.Warn("workspace state not loaded", "err", err)
	}

	km := keymap.NewRegistry(*modKey)
	keymap.RegisterDefaults(km)
	km.SetUserOverrides(state.GetKeymapOverrides())

	mgr := plugin.NewManager(&plugin.Host{
		Vault:     v,
		Workspace: workspace.New(v, logger),
		Keymap:    km,
		Logger:    logger,
		DataRoot:  filepath.Join(state.Dir(root), "plugins"),
	})

	// Register plugins (order determines ribbon order)
	for _, p := range []plugin.Plugin{
		filebrowser.New(),
		notes.New(),
		bmo.New(),
	} {
		if err := mgr.Register(p); err != nil {
			return err
		}
	}
	if err := mgr.LoadAll(); err != nil {
		logger.Warn("plugins failed to load", "err", err)
	}

	model, err := app.New(mgr, app.Options{
		Version: effectiveVersion(Version),
		Watch:   true,
	})
	if err != nil {
		return err
	}

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	return nil
}

// loadEnv loads API keys and endpoints from a dotenv file. Variables already
// set in the environment win.
func loadEnv(root, explicit string) error {
	if explicit != "" {
		return godotenv.Load(explicit)
	}
	p := filepath.Join(root, ".env")
	if _, err := os.Stat(p); err != nil {
		return nil
	}
	return godotenv.Load(p)
}

// effectiveVersion returns the version string, with fallback to build info.
func effectiveVersion(v string) string {
	if v != "" {
		return v
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	if info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}

	var revision string
	var dirty bool
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	if revision == "" {
		return "devel"
	}
	ver := "devel+" + revision
	if len(ver) > 20 {
		ver = ver[:20]
	}
	if dirty {
		ver += "+dirty"
	}
	return ver
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: bmo [options]\n\n")
		fmt.Fprintf(os.Stderr, "A markdown notes workspace with an LLM chat sidebar.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
}
