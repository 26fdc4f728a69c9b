// ghsbrowse is a command-line client for gohttpserver-style file servers.
//
// Sub-commands:
//
//	ghsbrowse ls [path]                       List a directory
//	ghsbrowse info <path>                     Show file metadata
//	ghsbrowse cat <path>                      Print a file
//	ghsbrowse preview <path>                  Render a file or a directory README
//	ghsbrowse mkdir <dir> <name>              Create a folder
//	ghsbrowse edit <path> <localfile|->       Replace a text file's content
//	ghsbrowse rm [-y] <path>                  Delete a file or folder
//	ghsbrowse upload [-watch] <dir> <files>   Upload files, or watch a drop folder
//	ghsbrowse qr <path>                       Show the install QR code of a package
//	ghsbrowse link [-copy] <path>             Print a download link
//	ghsbrowse whoami                          Show the signed-in user
//	ghsbrowse version                         Show client and server versions
//	ghsbrowse login | logout                  Save or forget credentials
//	ghsbrowse tui [path]                      Browse interactively (default)
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/ghsbrowse/ghsbrowse/internal/config"
	"github.com/ghsbrowse/ghsbrowse/internal/logging"
	"github.com/ghsbrowse/ghsbrowse/internal/metrics"
	"github.com/ghsbrowse/ghsbrowse/internal/tui"
	"github.com/ghsbrowse/ghsbrowse/pkg/client"
	"github.com/ghsbrowse/ghsbrowse/pkg/viewmodel"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cmd, args := "tui", os.Args[1:]
	if len(os.Args) > 1 && !strings.HasPrefix(os.Args[1], "-") {
		cmd, args = os.Args[1], os.Args[2:]
	}

	switch cmd {
	case "ls", "list":
		cmdList(args)
	case "info":
		cmdInfo(args)
	case "cat":
		cmdCat(args)
	case "preview":
		cmdPreview(args)
	case "mkdir":
		cmdMkdir(args)
	case "edit":
		cmdEdit(args)
	case "rm", "delete":
		cmdDelete(args)
	case "upload":
		cmdUpload(args)
	case "qr":
		cmdQR(args)
	case "link":
		cmdLink(args)
	case "whoami":
		cmdWhoami(args)
	case "version":
		cmdVersion(args)
	case "login":
		cmdLogin(args)
	case "logout":
		cmdLogout(args)
	case "tui":
		cmdTUI(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`ghsbrowse - file server client

Usage: ghsbrowse <command> [flags] [args]

Flags go after the command name.

Commands:
  ls [path]                      List a directory (-a hidden, -t relative times)
  info <path>                    Show file metadata as JSON
  cat <path>                     Print a file to stdout
  preview <path>                 Render a file, or the README of a directory
  mkdir <dir> <name>             Create a folder
  edit <path> <localfile|->      Replace a yml/yaml file's content
  rm [-y] <path>                 Delete a file or folder
  upload [-watch] <dir> <files>  Upload files; with -watch, upload what lands in a local folder
  qr [-png file] <path>          Show the install QR code of an apk/ipa
  link [-copy] <path>            Print (or copy) the download link
  whoami                         Show the signed-in user
  version                        Show client and server versions
  login / logout                 Save or forget credentials
  tui [path]                     Browse interactively (default)

Common flags:
  -config <file>   Config file (default: $GHS_CONFIG or the user config dir)
  -server <url>    Server URL (overrides config and GHS_SERVER)
  -debug           Debug logging

Examples:
  ghsbrowse ls /
  ghsbrowse tui -server http://files.lan:8000 /releases
  ghsbrowse upload /inbox *.apk
  ghsbrowse upload -watch /inbox ~/Drop`)
}

// app is the per-command environment.
type app struct {
	cfg    *config.Config
	client *client.Client
}

// setup registers the common flags on fs, parses args and builds the
// client. It exits on error.
func setup(fs *flag.FlagSet, args []string) *app {
	configPath := fs.String("config", "", "Config file")
	server := fs.String("server", "", "Server URL")
	debug := fs.Bool("debug", false, "Debug logging")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatalf("Error loading config: %v", err)
	}
	if *server != "" {
		cfg.Server = *server
	}
	if *debug {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		fatalf("Error: %v", err)
	}

	if err := logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		fatalf("Error initializing logger: %v", err)
	}

	username, password := cfg.Username, cfg.Password
	if username == "" {
		if creds, err := client.LoadCredentials(client.CredentialsPath()); err == nil &&
			strings.TrimSuffix(creds.Server, "/") == strings.TrimSuffix(cfg.Server, "/") {
			username, password = creds.Username, creds.Password
			logging.Debug("using saved credentials", logging.String("user", username))
		}
	}

	c, err := client.New(client.Config{
		BaseURL:       cfg.Server,
		Timeout:       cfg.Timeout,
		MaxUploadSize: cfg.MaxUploadBytes(),
		Username:      username,
		Password:      password,
	})
	if err != nil {
		fatalf("Error: %v", err)
	}

	if cfg.MetricsAddr != "" {
		startMetrics(cfg.MetricsAddr)
	}
	return &app{cfg: cfg, client: c}
}

func startMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logging.Info("metrics listening", logging.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("metrics server failed", logging.Err(err))
		}
	}()
}

// store opens a view-model store at ref with the configured display options.
func (a *app) store(ref string, opts viewmodel.Options) *viewmodel.Store {
	opts.ShowHidden = opts.ShowHidden || a.cfg.ShowHidden
	opts.MtimeFromNow = opts.MtimeFromNow || a.cfg.MtimeFromNow
	return viewmodel.New(a.client, ref, opts)
}

// signalContext is cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	logging.Sync()
	os.Exit(1)
}

func cmdTUI(args []string) {
	fs := flag.NewFlagSet("tui", flag.ExitOnError)
	a := setup(fs, args)
	ref := "/"
	if fs.NArg() > 0 {
		ref = fs.Arg(0)
	}

	// The alternate screen owns the terminal; logs go to a file instead.
	logPath := tuiLogPath()
	if err := logging.Init(logging.Config{Level: a.cfg.LogLevel, Format: "json", OutputPath: logPath}); err != nil {
		fatalf("Error initializing logger: %v", err)
	}
	defer logging.Sync()

	ctx, cancel := signalContext()
	defer cancel()
	err := tui.Run(ctx, a.client, ref, viewmodel.Options{
		ShowHidden:   a.cfg.ShowHidden,
		MtimeFromNow: a.cfg.MtimeFromNow,
	})
	if err != nil {
		fatalf("Error: %v", err)
	}
}

// tuiLogPath is the browser's log file under the user cache dir.
func tuiLogPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	dir = filepath.Join(dir, "ghsbrowse")
	if err := os.MkdirAll(dir, 0700); err != nil {
		fatalf("Error creating log directory: %v", err)
	}
	return filepath.Join(dir, "tui.log")
}

func cmdLogin(args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	a := setup(fs, args)
	ctx := context.Background()

	reader := bufio.NewReader(os.Stdin)
	fmt.Print("Username: ")
	username, _ := reader.ReadString('\n')
	username = strings.TrimSpace(username)

	fmt.Print("Password: ")
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fatalf("Error reading password: %v", err)
	}
	password := string(passwordBytes)

	user, err := a.client.Login(ctx, username, password)
	if err != nil {
		fatalf("Error: %v", err)
	}

	creds := &client.Credentials{
		Server:   a.cfg.Server,
		Username: username,
		Password: password,
	}
	if err := client.SaveCredentials(client.CredentialsPath(), creds); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to save credentials: %v\n", err)
	}
	name := user.Name
	if name == "" {
		name = username
	}
	fmt.Printf("Login successful! Logged in as %s. Credentials saved to %s\n", name, client.CredentialsPath())
}

func cmdLogout(args []string) {
	fs := flag.NewFlagSet("logout", flag.ExitOnError)
	a := setup(fs, args)
	a.client.Logout()
	if err := client.DeleteCredentials(client.CredentialsPath()); err != nil {
		fatalf("Error: %v", err)
	}
	fmt.Println("Logged out.")
}

func cmdWhoami(args []string) {
	fs := flag.NewFlagSet("whoami", flag.ExitOnError)
	a := setup(fs, args)
	user, err := a.client.User(context.Background())
	if err != nil {
		fatalf("Error: %v", err)
	}
	if user.Anonymous() {
		fmt.Println("anonymous")
		return
	}
	fmt.Printf("%s <%s>\n", user.Name, user.Email)
}

func cmdVersion(args []string) {
	fs := flag.NewFlagSet("version", flag.ExitOnError)
	a := setup(fs, args)
	fmt.Printf("ghsbrowse %s\n", version)

	s := a.store("/", viewmodel.Options{})
	if err := s.LoadVersion(context.Background()); err != nil {
		fatalf("Error: %v", err)
	}
	fmt.Printf("server    %s (%s)\n", s.Snapshot().Version, a.client.Origin())
}
