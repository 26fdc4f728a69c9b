package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/atotto/clipboard"

	"github.com/ghsbrowse/ghsbrowse/internal/dropwatch"
	"github.com/ghsbrowse/ghsbrowse/internal/logging"
	"github.com/ghsbrowse/ghsbrowse/pkg/format"
	"github.com/ghsbrowse/ghsbrowse/pkg/models"
	"github.com/ghsbrowse/ghsbrowse/pkg/present"
	"github.com/ghsbrowse/ghsbrowse/pkg/viewmodel"
)

// splitPath returns the directory and base name of a server path.
func splitPath(p string) (string, models.FileEntry) {
	p = "/" + strings.Trim(p, "/")
	return path.Dir(p), models.FileEntry{Name: path.Base(p), Path: strings.TrimPrefix(p, "/")}
}

func requireArgs(fs *flag.FlagSet, n int, usage string) {
	if fs.NArg() < n {
		fmt.Fprintf(os.Stderr, "Usage: ghsbrowse %s\n", usage)
		os.Exit(1)
	}
}

func cmdList(args []string) {
	fs := flag.NewFlagSet("ls", flag.ExitOnError)
	all := fs.Bool("a", false, "Show hidden files")
	relative := fs.Bool("t", false, "Show modification times relative to now")
	a := setup(fs, args)
	dir := "/"
	if fs.NArg() > 0 {
		dir = fs.Arg(0)
	}

	s := a.store(dir, viewmodel.Options{ShowHidden: *all, MtimeFromNow: *relative})
	if err := s.Load(context.Background()); err != nil {
		fatalf("Error: %v", err)
	}
	st := s.Snapshot()
	files := st.VisibleFiles()
	if len(files) == 0 {
		fmt.Println("Directory is empty")
		return
	}

	now := time.Now()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSIZE\tMODIFIED")
	for _, f := range files {
		size := "-"
		if !f.IsDir() {
			size = format.Size(f.Size)
		}
		name := f.Name
		if f.IsDir() {
			name += "/"
		}
		fmt.Fprintf(w, "%s %s\t%s\t%s\n", present.Glyph(f), name, size, format.Time(f.ModTime, st.MtimeFromNow, now))
	}
	w.Flush()
	if st.HasReadme() {
		fmt.Printf("\n%s available: ghsbrowse preview %s\n", viewmodel.ReadmeName, st.Location.Path)
	}
}

func cmdInfo(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	a := setup(fs, args)
	requireArgs(fs, 1, "info <path>")

	dir, f := splitPath(fs.Arg(0))
	s := a.store(dir, viewmodel.Options{})
	if err := s.ShowInfo(context.Background(), f); err != nil {
		fatalf("Error: %v", err)
	}
	fmt.Println(s.Snapshot().InfoText)
}

func cmdCat(args []string) {
	fs := flag.NewFlagSet("cat", flag.ExitOnError)
	a := setup(fs, args)
	requireArgs(fs, 1, "cat <path>")

	body, _, err := a.client.Open(context.Background(), fs.Arg(0))
	if err != nil {
		fatalf("Error: %v", err)
	}
	defer body.Close()
	if _, err := io.Copy(os.Stdout, body); err != nil {
		fatalf("Error: %v", err)
	}
}

// cmdPreview prints the preview HTML of a file, or the rendered README
// of a directory.
func cmdPreview(args []string) {
	fs := flag.NewFlagSet("preview", flag.ExitOnError)
	a := setup(fs, args)
	requireArgs(fs, 1, "preview <path>")
	ctx := context.Background()
	p := fs.Arg(0)

	info, err := a.client.Info(ctx, p)
	if err != nil {
		fatalf("Error: %v", err)
	}
	var s *viewmodel.Store
	if info.Type == models.TypeDir {
		s = a.store(p, viewmodel.Options{})
		err = s.Load(ctx)
	} else {
		dir, f := splitPath(p)
		s = a.store(dir, viewmodel.Options{})
		err = s.OpenPreview(ctx, f)
	}
	if err != nil {
		fatalf("Error: %v", err)
	}
	preview := s.Snapshot().Preview
	if preview.ContentHTML == "" {
		fatalf("Nothing to preview in %s", p)
	}
	fmt.Println(preview.ContentHTML)
}

func cmdMkdir(args []string) {
	fs := flag.NewFlagSet("mkdir", flag.ExitOnError)
	a := setup(fs, args)
	requireArgs(fs, 2, "mkdir <dir> <name>")

	s := a.store(fs.Arg(0), viewmodel.Options{})
	err := s.Mkdir(context.Background(), fs.Arg(1))
	switch {
	case errors.Is(err, viewmodel.ErrEmptyFolderName):
		fatalf("%s", viewmodel.EmptyFolderNameMessage)
	case err != nil:
		fatalf("Error: %v", err)
	}
	fmt.Printf("Created %s\n", path.Join("/", fs.Arg(0), fs.Arg(1)))
}

func cmdEdit(args []string) {
	fs := flag.NewFlagSet("edit", flag.ExitOnError)
	force := fs.Bool("force", false, "Edit files that are not yml/yaml")
	a := setup(fs, args)
	requireArgs(fs, 2, "edit <path> <localfile|->")
	ctx := context.Background()

	dir, f := splitPath(fs.Arg(0))
	if !*force && !present.IsEditable(f.Name) {
		fatalf("%s is not editable (use -force)", f.Name)
	}

	var content []byte
	var err error
	if src := fs.Arg(1); src == "-" {
		content, err = io.ReadAll(os.Stdin)
	} else {
		content, err = os.ReadFile(src)
	}
	if err != nil {
		fatalf("Error reading content: %v", err)
	}

	s := a.store(dir, viewmodel.Options{})
	if err := s.LoadForEdit(ctx, f); err != nil {
		fatalf("Error: %v", err)
	}
	if err := s.SaveEdit(ctx, string(content)); err != nil {
		fatalf("Error: %v", err)
	}
	fmt.Printf("Saved %s (%s)\n", fs.Arg(0), format.Size(int64(len(content))))
}

func cmdDelete(args []string) {
	fs := flag.NewFlagSet("rm", flag.ExitOnError)
	yes := fs.Bool("y", false, "Do not ask for confirmation")
	a := setup(fs, args)
	requireArgs(fs, 1, "rm [-y] <path>")

	stdin := bufio.NewReader(os.Stdin)
	dir, f := splitPath(fs.Arg(0))
	s := a.store(dir, viewmodel.Options{
		Confirmer: viewmodel.ConfirmFunc(func(_ context.Context, prompt string) bool {
			if *yes {
				return true
			}
			fmt.Printf("%s [y/N] ", prompt)
			answer, _ := stdin.ReadString('\n')
			answer = strings.ToLower(strings.TrimSpace(answer))
			return answer == "y" || answer == "yes"
		}),
		Alerter: viewmodel.AlertFunc(func(_ context.Context, msg string) {
			fmt.Fprintf(os.Stderr, "Server refused: %s\n", msg)
		}),
	})

	err := s.Delete(context.Background(), f)
	switch {
	case errors.Is(err, viewmodel.ErrCanceled):
		fmt.Println("Cancelled.")
	case err != nil:
		logging.Sync()
		os.Exit(1)
	default:
		fmt.Printf("Deleted %s\n", fs.Arg(0))
	}
}

// uploadFiles opens paths and sends them to the store's directory.
// It returns the number of failures.
func uploadFiles(ctx context.Context, s *viewmodel.Store, paths []string) int {
	var items []viewmodel.UploadItem
	var files []*os.File
	failed := 0
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Skipping %s: %v\n", p, err)
			failed++
			continue
		}
		fi, err := f.Stat()
		if err != nil || fi.IsDir() {
			f.Close()
			fmt.Fprintf(os.Stderr, "Skipping %s: not a regular file\n", p)
			failed++
			continue
		}
		files = append(files, f)
		items = append(items, viewmodel.UploadItem{Name: filepath.Base(p), Size: fi.Size(), Body: f})
	}
	defer func() {
		for _, f := range files {
			f.Close()
		}
	}()
	if len(items) == 0 {
		return failed
	}

	for _, res := range s.Upload(ctx, items) {
		if res.Err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", res.Name, res.Err)
			failed++
			continue
		}
		fmt.Printf("✓ %s -> %s\n", res.Name, res.Destination)
	}
	up := s.Snapshot().Upload
	fmt.Printf("%d/%d uploaded, %s\n", up.Done, up.Total, format.Size(up.Bytes))
	return failed
}

func cmdUpload(args []string) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	watch := fs.Bool("watch", false, "Watch a local folder and upload files dropped into it")
	a := setup(fs, args)
	requireArgs(fs, 2, "upload [-watch] <dir> <files...|localdir>")

	s := a.store(fs.Arg(0), viewmodel.Options{})
	if !*watch {
		if uploadFiles(context.Background(), s, fs.Args()[1:]) > 0 {
			os.Exit(1)
		}
		return
	}

	ctx, cancel := signalContext()
	defer cancel()
	local := fs.Arg(1)
	w := dropwatch.New(local, a.cfg.WatchDebounce, func(ctx context.Context, paths []string) {
		uploadFiles(ctx, s, paths)
	})
	fmt.Printf("Watching %s, uploading to %s (ctrl+c to stop)\n", local, s.Snapshot().Location.Path)
	if err := w.Run(ctx); err != nil {
		fatalf("Error: %v", err)
	}
}

func cmdQR(args []string) {
	fs := flag.NewFlagSet("qr", flag.ExitOnError)
	pngOut := fs.String("png", "", "Write the code as a PNG file instead")
	a := setup(fs, args)
	requireArgs(fs, 1, "qr [-png file] <path>")

	dir, f := splitPath(fs.Arg(0))
	if !present.QREligible(f.Name) {
		fatalf("QR codes are offered for apk and ipa files")
	}
	s := a.store(dir, viewmodel.Options{})
	s.ShowQR(f)
	qr := s.Snapshot().QR

	if *pngOut != "" {
		png, err := present.QRCode(qr.InstallURL)
		if err != nil {
			fatalf("Error: %v", err)
		}
		if err := os.WriteFile(*pngOut, png, 0644); err != nil {
			fatalf("Error: %v", err)
		}
		fmt.Printf("Wrote %s\n", *pngOut)
		return
	}

	code, err := present.QRTerminal(qr.InstallURL)
	if err != nil {
		fatalf("Error: %v", err)
	}
	fmt.Print(code)
	fmt.Printf("%s\ninstall: %s\nfile:    %s\n", qr.Title, qr.InstallURL, qr.FileURL)
}

func cmdLink(args []string) {
	fs := flag.NewFlagSet("link", flag.ExitOnError)
	copyLink := fs.Bool("copy", false, "Copy the link to the clipboard")
	a := setup(fs, args)
	requireArgs(fs, 1, "link [-copy] <path>")

	_, f := splitPath(fs.Arg(0))
	link := present.DownloadURL(a.client.Origin(), f)
	fmt.Println(link)
	if *copyLink {
		if err := clipboard.WriteAll(link); err != nil {
			fatalf("Error copying to clipboard: %v", err)
		}
		fmt.Fprintln(os.Stderr, "Copied to clipboard.")
	}
}
