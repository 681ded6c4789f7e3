package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/zafaroo/postcraft/internal/command"
	"github.com/zafaroo/postcraft/internal/composer"
	"github.com/zafaroo/postcraft/internal/config"
	"github.com/zafaroo/postcraft/internal/export"
	"github.com/zafaroo/postcraft/internal/renderer"
	"github.com/zafaroo/postcraft/internal/session"
	"github.com/zafaroo/postcraft/internal/tui"
	"github.com/zafaroo/postcraft/pkg/postformat"
)

const (
	defaultServerURL = "http://localhost:12212"
	decodeTimeout    = 30 * time.Second
)

func main() {
	var serverURL, configPath string
	flag.StringVar(&serverURL, "server", defaultServerURL, "Server URL")
	flag.StringVar(&serverURL, "s", defaultServerURL, "Server URL (short)")
	flag.StringVar(&configPath, "config", config.DefaultPath, "Path to postcraft.yaml")
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() == 0 {
		printUsage()
		os.Exit(1)
	}

	args := flag.Args()

	var err error
	switch args[0] {
	case "render":
		err = runRender(configPath, args[1:])
	case "tui":
		err = runTUI(configPath, args[1:])
	case "send":
		err = runSend(serverURL, args[1:])
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		err = fmt.Errorf("unknown command: %s", args[0])
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Postcraft CLI

Usage:
  postcraft [flags] <command>

Flags:
  -s, -server <url>    Server URL (default: %s)
  -config <path>       Config file (default: %s)

Commands:
  render <post.json> [-o out.png] [--preview]
    Render a post to a PNG file ("-o -" writes to stdout)

  tui <post.json> [--export-dir dir]
    Edit a post in the terminal

  send <session-id|-> <command...>
    Run an editor command on a server session ("-" for none)

  help
    Show help message

Examples:
  postcraft render ./fire.post -o fire.png
  postcraft render ./fire.post --preview -o preview.png
  postcraft tui ./fire.post
  postcraft send 3f2a... scale 1.5
  postcraft -s http://localhost:8080 send - job list

`, defaultServerURL, config.DefaultPath)
}

// parseArgs parses flags that may follow positional arguments
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}

// openPost loads the config and a .post file into a local session
func openPost(configPath, postPath string) (*session.Registry, *session.Session, *config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	post, err := postformat.ParseFile(postPath)
	if err != nil {
		return nil, nil, nil, err
	}

	fonts, err := renderer.LoadFonts(cfg.Fonts.Bold, cfg.Fonts.Regular)
	if err != nil {
		return nil, nil, nil, err
	}
	r, err := renderer.New(fonts)
	if err != nil {
		return nil, nil, nil, err
	}

	registry := session.NewRegistry(composer.WithRenderer(r))
	sess, err := registry.OpenPost(post)
	if err != nil {
		return nil, nil, nil, err
	}

	return registry, sess, cfg, nil
}

func runRender(configPath string, args []string) error {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	out := fs.String("o", composer.ExportFilename, "Output file, - for stdout")
	preview := fs.Bool("preview", false, "Render the 320x400 preview instead of the final image")

	positional, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(positional) != 1 {
		return fmt.Errorf("usage: render <post.json> [-o out.png] [--preview]")
	}

	registry, sess, _, err := openPost(configPath, positional[0])
	if err != nil {
		return err
	}
	defer registry.CloseAll()

	ctx, cancel := context.WithTimeout(context.Background(), decodeTimeout)
	defer cancel()

	var decodeErr *composer.DecodeError
	if err := sess.AwaitDecode(ctx); errors.As(err, &decodeErr) {
		log.Printf("⚠️  %v, rendering without it", decodeErr)
	} else if err != nil {
		return err
	}

	w := io.Writer(os.Stdout)
	if *out != "-" {
		f, err := os.Create(*out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	if *preview {
		res, err := sess.Preview()
		if err != nil && !errors.As(err, &decodeErr) {
			return err
		}
		if err := renderer.EncodePNG(w, res.Image); err != nil {
			return err
		}
	} else if err := sess.Export(ctx, &export.WriterSink{W: w}); err != nil {
		return err
	}

	if *out != "-" {
		fmt.Printf("✅ Wrote %s\n", *out)
	}
	return nil
}

func runTUI(configPath string, args []string) error {
	fs := flag.NewFlagSet("tui", flag.ContinueOnError)
	exportDir := fs.String("export-dir", "", "Export directory (overrides config)")

	positional, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(positional) != 1 {
		return fmt.Errorf("usage: tui <post.json> [--export-dir dir]")
	}

	registry, sess, cfg, err := openPost(configPath, positional[0])
	if err != nil {
		return err
	}
	defer registry.CloseAll()

	if *exportDir != "" {
		cfg.Export.Dir = *exportDir
	}

	sink, err := export.NewFileSink(cfg.Export.Dir)
	if err != nil {
		return err
	}

	executor := command.NewExecutor(command.Options{
		ExportDir:  cfg.Export.Dir,
		Retries:    cfg.Export.Retries,
		RetryDelay: cfg.Export.RetryDelay,
		AllowURLs:  true,
	})

	// Retry warnings would draw over the screen; the app reports failures itself
	log.SetOutput(io.Discard)
	defer log.SetOutput(os.Stderr)

	app := tui.NewApp(sess, executor, export.WithRetry(sink, cfg.Export.Retries, cfg.Export.RetryDelay))
	return app.Run()
}

// CommandResult mirrors the JSON answer of POST /command
type CommandResult struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message,omitempty"`
	Error   string                 `json:"error,omitempty"`
	Data    map[string]interface{} `json:"-"`
}

func runSend(serverURL string, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: send <session-id|-> <command...>")
	}

	sessionID := args[0]
	if sessionID == "-" {
		sessionID = ""
	}

	result, err := executeCommand(serverURL, sessionID, strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	if !result.Success {
		return errors.New(result.Error)
	}

	printSuccess(result)
	return nil
}

func executeCommand(serverURL, sessionID, cmd string) (*CommandResult, error) {
	url := strings.TrimSuffix(serverURL, "/") + "/command"

	jsonData, err := json.Marshal(map[string]string{
		"session": sessionID,
		"command": cmd,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := http.Post(url, "application/json", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var result CommandResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	// The server merges result data into the top level
	if err := json.Unmarshal(body, &result.Data); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	for _, k := range []string{"success", "message", "error"} {
		delete(result.Data, k)
	}

	return &result, nil
}

func printSuccess(result *CommandResult) {
	if result.Message != "" && !strings.Contains(result.Message, "Available Commands:") {
		fmt.Println(result.Message)
	} else if result.Message != "" {
		fmt.Print(result.Message)
	}

	if lines, ok := result.Data["lines"].([]interface{}); ok {
		fmt.Println("\nTitle lines:")
		for _, l := range lines {
			fmt.Printf("  %v\n", l)
		}
		delete(result.Data, "lines")
	}

	if jobs, ok := result.Data["jobs"].([]interface{}); ok {
		fmt.Println("\nJobs:")
		for _, j := range jobs {
			if job, ok := j.(map[string]interface{}); ok {
				fmt.Printf("  %s: %s (%s)\n", job["id"], job["status"], job["filename"])
			}
		}
		delete(result.Data, "jobs")
	}

	if jobID, ok := result.Data["job_id"].(string); ok {
		fmt.Printf("Job ID: %s\n", jobID)
		delete(result.Data, "job_id")
	}

	if len(result.Data) > 0 {
		out, _ := json.MarshalIndent(result.Data, "", "  ")
		fmt.Println(string(out))
	}
}
