// Package command provides a command language for editing a session
package command

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/zafaroo/postcraft/internal/export"
	"github.com/zafaroo/postcraft/internal/session"
)

// Options configures an Executor
type Options struct {
	ExportDir  string        // default directory of the export command
	Retries    int           // export attempts before giving up
	RetryDelay time.Duration // pause between export attempts
	Queue      *export.Queue // enables "export --async" and the job commands
	Client     *http.Client  // fetches backgrounds given as URLs

	// Restrictions for executors reachable from the network
	AssetDir      string // background paths are opened inside this directory only
	AllowURLs     bool   // permits "background <url>"
	LockExportDir bool   // rejects "export <dir>"
}

// Executor executes commands against a session
type Executor struct {
	exportDir  string
	retries    int
	retryDelay time.Duration
	queue      *export.Queue
	client     *http.Client

	assetDir      string
	allowURLs     bool
	lockExportDir bool
}

// NewExecutor creates a new command executor
func NewExecutor(opts Options) *Executor {
	if opts.ExportDir == "" {
		opts.ExportDir = "."
	}
	if opts.Retries < 1 {
		opts.Retries = 1
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Executor{
		exportDir:  opts.ExportDir,
		retries:    opts.Retries,
		retryDelay: opts.RetryDelay,
		queue:      opts.Queue,
		client:     opts.Client,

		assetDir:      opts.AssetDir,
		allowURLs:     opts.AllowURLs,
		lockExportDir: opts.LockExportDir,
	}
}

// Result represents the result of executing a command
type Result struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

func failure(format string, args ...interface{}) *Result {
	return &Result{
		Success: false,
		Error:   fmt.Sprintf(format, args...),
	}
}

// Execute executes a command string against s and returns a result. s may
// be nil for commands that do not need a session.
func (e *Executor) Execute(s *session.Session, cmdStr string) *Result {
	parts := parseCommand(cmdStr)
	if len(parts) == 0 {
		return failure("empty command")
	}

	command := parts[0]
	args := parts[1:]

	switch command {
	case "help":
		return e.handleHelp(args)
	case "job":
		return e.handleJob(args)
	}

	if s == nil {
		return failure("%s needs a session", command)
	}

	switch command {
	case "title":
		return e.handleTitle(s, args)
	case "scale":
		return e.handleScale(s, args)
	case "offset":
		return e.handleOffset(s, args)
	case "move":
		return e.handleMove(s, args)
	case "align":
		return e.handleAlign(s, args)
	case "shadow":
		return e.handleShadow(s, args)
	case "font":
		return e.handleFont(s, args)
	case "line-height":
		return e.handleLineHeight(s, args)
	case "color":
		return e.handleColor(s, args)
	case "qr":
		return e.handleQR(s, args)
	case "background":
		return e.handleBackground(s, args)
	case "clear-background":
		return e.handleClearBackground(s, args)
	case "reset":
		return e.handleReset(s, args)
	case "state":
		return e.handleState(s, args)
	case "lines":
		return e.handleLines(s, args)
	case "export":
		return e.handleExport(s, args)
	default:
		return failure("unknown command: %s. Type 'help' for available commands", command)
	}
}

// parseCommand parses a command string into parts, handling quoted strings
func parseCommand(cmdStr string) []string {
	cmdStr = strings.TrimSpace(cmdStr)
	if cmdStr == "" {
		return []string{}
	}

	var parts []string
	var current strings.Builder
	inQuotes := false
	hadQuotes := false
	quoteChar := byte(0)

	for i := 0; i < len(cmdStr); i++ {
		char := cmdStr[i]

		if char == '"' || char == '\'' {
			if !inQuotes {
				inQuotes = true
				hadQuotes = true
				quoteChar = char
			} else if char == quoteChar {
				inQuotes = false
				quoteChar = 0
			} else {
				current.WriteByte(char)
			}
		} else if (char == ' ' || char == '\t') && !inQuotes {
			if current.Len() > 0 || hadQuotes {
				parts = append(parts, current.String())
				current.Reset()
				hadQuotes = false
			}
		} else {
			current.WriteByte(char)
		}
	}

	if current.Len() > 0 || hadQuotes {
		parts = append(parts, current.String())
	}

	return parts
}
