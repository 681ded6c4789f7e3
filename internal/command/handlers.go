package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/zafaroo/postcraft/internal/composer"
	"github.com/zafaroo/postcraft/internal/export"
	"github.com/zafaroo/postcraft/internal/geometry"
	"github.com/zafaroo/postcraft/internal/session"
	"github.com/zafaroo/postcraft/pkg/postformat"
)

// maxBackgroundSize caps backgrounds read from files and URLs
const maxBackgroundSize = 32 << 20

// decodeTimeout bounds "background --wait"
const decodeTimeout = 30 * time.Second

func parseFloats(args []string, n int) ([]float64, error) {
	if len(args) < n {
		return nil, fmt.Errorf("expected %d number(s)", n)
	}
	values := make([]float64, n)
	for i := 0; i < n; i++ {
		v, err := strconv.ParseFloat(args[i], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number: %s", args[i])
		}
		values[i] = v
	}
	return values, nil
}

func parseSwitch(args []string) (bool, error) {
	if len(args) < 1 {
		return false, errors.New("expected on or off")
	}
	switch strings.ToLower(args[0]) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	default:
		return false, fmt.Errorf("expected on or off, got %s", args[0])
	}
}

// update runs fn on the session composer and reports the new state
func update(s *session.Session, message string, fn func(c *composer.Composer) error) *Result {
	if err := s.Do(fn); err != nil {
		return failure("%v", err)
	}
	return &Result{
		Success: true,
		Message: message,
		Data:    stateData(s.State()),
	}
}

// handleTitle handles title command
// Usage: title <text>
func (e *Executor) handleTitle(s *session.Session, args []string) *Result {
	if len(args) == 0 {
		return failure("usage: title <text>")
	}
	title := strings.Join(args, " ")
	return update(s, "Title updated", func(c *composer.Composer) error {
		c.SetTitle(title)
		return nil
	})
}

// handleScale handles scale command
// Usage: scale <factor>
func (e *Executor) handleScale(s *session.Session, args []string) *Result {
	v, err := parseFloats(args, 1)
	if err != nil {
		return failure("usage: scale <factor>: %v", err)
	}
	return update(s, fmt.Sprintf("Scale set to %.2f", geometry.ClampScale(v[0])), func(c *composer.Composer) error {
		c.SetScale(v[0])
		return nil
	})
}

// handleOffset handles offset command
// Usage: offset <x> <y>
func (e *Executor) handleOffset(s *session.Session, args []string) *Result {
	v, err := parseFloats(args, 2)
	if err != nil {
		return failure("usage: offset <x> <y>: %v", err)
	}
	p := geometry.ClampOffset(geometry.Point{X: v[0], Y: v[1]})
	return update(s, fmt.Sprintf("Offset set to %.0f,%.0f", p.X, p.Y), func(c *composer.Composer) error {
		c.SetOffset(p)
		return nil
	})
}

// handleMove handles move command
// Usage: move <dx> <dy>
func (e *Executor) handleMove(s *session.Session, args []string) *Result {
	v, err := parseFloats(args, 2)
	if err != nil {
		return failure("usage: move <dx> <dy>: %v", err)
	}
	return update(s, "Image moved", func(c *composer.Composer) error {
		off := c.Offset()
		c.SetOffset(geometry.Point{X: off.X + v[0], Y: off.Y + v[1]})
		return nil
	})
}

// handleAlign handles align command
// Usage: align left|center|right
func (e *Executor) handleAlign(s *session.Session, args []string) *Result {
	if len(args) < 1 || !postformat.IsAlign(args[0]) {
		return failure("usage: align left|center|right")
	}
	return update(s, "Alignment set to "+args[0], func(c *composer.Composer) error {
		c.SetAlign(args[0])
		return nil
	})
}

// handleShadow handles shadow command
// Usage: shadow on|off
func (e *Executor) handleShadow(s *session.Session, args []string) *Result {
	on, err := parseSwitch(args)
	if err != nil {
		return failure("usage: shadow on|off: %v", err)
	}
	return update(s, fmt.Sprintf("Shadow %s", onOff(on)), func(c *composer.Composer) error {
		c.SetShadow(on)
		return nil
	})
}

// handleFont handles font command
// Usage: font title|meta <size>
func (e *Executor) handleFont(s *session.Session, args []string) *Result {
	if len(args) < 2 {
		return failure("usage: font title|meta <size>")
	}
	v, err := parseFloats(args[1:], 1)
	if err != nil {
		return failure("usage: font title|meta <size>: %v", err)
	}

	switch args[0] {
	case "title":
		return update(s, "Title font size updated", func(c *composer.Composer) error {
			c.SetTitleFontSize(v[0])
			return nil
		})
	case "meta":
		return update(s, "Meta font size updated", func(c *composer.Composer) error {
			c.SetMetaFontSize(v[0])
			return nil
		})
	default:
		return failure("unknown font: %s. Use: title, meta", args[0])
	}
}

// handleLineHeight handles line-height command
// Usage: line-height <multiplier>
func (e *Executor) handleLineHeight(s *session.Session, args []string) *Result {
	v, err := parseFloats(args, 1)
	if err != nil {
		return failure("usage: line-height <multiplier>: %v", err)
	}
	return update(s, "Line height updated", func(c *composer.Composer) error {
		c.SetLineHeight(v[0])
		return nil
	})
}

// handleColor handles color command
// Usage: color panel|title #rrggbb
func (e *Executor) handleColor(s *session.Session, args []string) *Result {
	if len(args) < 2 {
		return failure("usage: color panel|title #rrggbb")
	}

	switch args[0] {
	case "panel":
		return update(s, "Panel color set to "+args[1], func(c *composer.Composer) error {
			return c.SetPanelColor(args[1])
		})
	case "title":
		return update(s, "Title color set to "+args[1], func(c *composer.Composer) error {
			return c.SetTitleColor(args[1])
		})
	default:
		return failure("unknown color target: %s. Use: panel, title", args[0])
	}
}

// handleQR handles qr command
// Usage: qr on|off
func (e *Executor) handleQR(s *session.Session, args []string) *Result {
	on, err := parseSwitch(args)
	if err != nil {
		return failure("usage: qr on|off: %v", err)
	}
	return update(s, fmt.Sprintf("Link code %s", onOff(on)), func(c *composer.Composer) error {
		c.SetLinkQR(on)
		return nil
	})
}

// handleBackground handles background command
// Usage: background <path|url> [--wait]
func (e *Executor) handleBackground(s *session.Session, args []string) *Result {
	if len(args) < 1 {
		return failure("usage: background <path|url> [--wait]")
	}

	source := args[0]
	wait := len(args) > 1 && args[1] == "--wait"

	var data []byte
	var err error
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		if !e.allowURLs {
			return failure("loading backgrounds from URLs is disabled")
		}
		data, err = e.loadBackgroundFromURL(source)
	} else {
		data, err = e.loadBackgroundFromFile(source)
	}
	if err != nil {
		return failure("failed to load background: %v", err)
	}

	token, err := s.SetBackgroundImage(data)
	if err != nil {
		return failure("%v", err)
	}

	if !wait {
		return &Result{
			Success: true,
			Message: "Background decoding",
			Data:    map[string]interface{}{"token": token},
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), decodeTimeout)
	defer cancel()

	if err := s.AwaitDecode(ctx); err != nil {
		return failure("background not applied: %v", err)
	}
	return &Result{
		Success: true,
		Message: "Background applied",
		Data:    map[string]interface{}{"token": token},
	}
}

// handleClearBackground handles clear-background command
func (e *Executor) handleClearBackground(s *session.Session, args []string) *Result {
	return update(s, "Background cleared", func(c *composer.Composer) error {
		c.ClearBackground()
		return nil
	})
}

// handleReset handles reset command
func (e *Executor) handleReset(s *session.Session, args []string) *Result {
	return update(s, "Image position and scale reset", func(c *composer.Composer) error {
		c.ResetTransform()
		return nil
	})
}

// handleState handles state command
func (e *Executor) handleState(s *session.Session, args []string) *Result {
	info := s.Info()
	data := stateData(s.State())
	data["has_background"] = info.HasBackground
	data["pending"] = info.Pending
	return &Result{
		Success: true,
		Data:    data,
	}
}

// handleLines handles lines command
func (e *Executor) handleLines(s *session.Session, args []string) *Result {
	var lines []string
	var truncated int
	if err := s.Do(func(c *composer.Composer) error {
		lines, truncated = c.TitleLines()
		return nil
	}); err != nil {
		return failure("%v", err)
	}

	message := strings.Join(lines, "\n")
	if truncated > 0 {
		message += fmt.Sprintf("\n(%d more line(s) not shown)", truncated)
	}
	return &Result{
		Success: true,
		Message: message,
		Data: map[string]interface{}{
			"lines":     lines,
			"truncated": truncated,
		},
	}
}

// handleExport handles export command
// Usage: export [dir] [--async]
func (e *Executor) handleExport(s *session.Session, args []string) *Result {
	dir := e.exportDir
	async := false
	for _, arg := range args {
		if arg == "--async" {
			async = true
		} else {
			dir = arg
		}
	}

	if e.lockExportDir && dir != e.exportDir {
		return failure("export directory is fixed to %s", e.exportDir)
	}

	sink, err := export.NewFileSink(dir)
	if err != nil {
		return failure("%v", err)
	}

	if async {
		if e.queue == nil {
			return failure("background export is not available")
		}
		art, err := s.RenderFinal()
		var decodeErr *composer.DecodeError
		if err != nil && !errors.As(err, &decodeErr) {
			return failure("export failed: %v", err)
		}
		jobID := e.queue.Enqueue(s.ID, art.PNG, art.Filename)
		return &Result{
			Success: true,
			Message: fmt.Sprintf("Export queued: %s", jobID),
			Data:    map[string]interface{}{"job_id": jobID},
		}
	}

	retrying := export.WithRetry(sink, e.retries, e.retryDelay)
	if err := s.Export(context.Background(), retrying); err != nil {
		return failure("%v", err)
	}

	path := sink.Path(composer.ExportFilename)
	return &Result{
		Success: true,
		Message: "Exported " + path,
		Data:    map[string]interface{}{"path": path},
	}
}

// handleJob handles job commands
// Usage: job list|status <id>|clear
func (e *Executor) handleJob(args []string) *Result {
	if e.queue == nil {
		return failure("background export is not available")
	}
	if len(args) == 0 {
		return failure("usage: job list|status <id>|clear")
	}

	switch args[0] {
	case "list":
		jobs := e.queue.GetAllJobs()
		return &Result{
			Success: true,
			Message: fmt.Sprintf("Found %d job(s)", len(jobs)),
			Data: map[string]interface{}{
				"jobs": jobs,
			},
		}

	case "status":
		if len(args) < 2 {
			return failure("usage: job status <id>")
		}
		job := e.queue.GetJob(args[1])
		if job == nil {
			return failure("job not found: %s", args[1])
		}
		return &Result{
			Success: true,
			Message: fmt.Sprintf("Job %s is %s", job.ID, job.Status),
			Data: map[string]interface{}{
				"job": job,
			},
		}

	case "clear":
		e.queue.ClearCompleted()
		return &Result{
			Success: true,
			Message: "Cleared completed jobs",
		}

	default:
		return failure("unknown job subcommand: %s. Use: list, status, clear", args[0])
	}
}

// handleHelp handles help command
func (e *Executor) handleHelp(args []string) *Result {
	helpText := `Available Commands:

  title <text>                 Replace the headline text
  scale <factor>               Image scale (0.3 - 3.0)
  offset <x> <y>               Image offset (x -200..200, y -100..100)
  move <dx> <dy>               Shift the image by dx, dy
  align left|center|right      Text alignment
  shadow on|off                Text shadow
  font title|meta <size>       Title (16-40) or meta (10-20) font size
  line-height <multiplier>     Title line height (1.0 - 2.0)
  color panel|title #rrggbb    Panel background or title color
  qr on|off                    Link code in the image corner
  background <path|url> [--wait]
                               Load a background image
  clear-background             Remove the background image
  reset                        Reset image position and scale
  state                        Show the current composition
  lines                        Show how the title wraps
  export [dir] [--async]       Save facebook_news_post.png
  job list|status <id>|clear   Background export jobs
  help                         Show this help message

Examples:
  title "Fire breaks out near market"
  color panel #1a1a2e
  scale 1.5
  export ./out
`

	return &Result{
		Success: true,
		Message: helpText,
	}
}

// loadBackgroundFromFile reads a background image. With an asset directory
// set, name is opened inside it and may not escape it.
func (e *Executor) loadBackgroundFromFile(name string) ([]byte, error) {
	var f *os.File
	if e.assetDir == "" {
		var err error
		if f, err = os.Open(name); err != nil {
			return nil, err
		}
	} else {
		root, err := os.OpenRoot(e.assetDir)
		if err != nil {
			return nil, fmt.Errorf("asset directory: %w", err)
		}
		defer root.Close()
		if f, err = root.Open(name); err != nil {
			return nil, err
		}
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBackgroundSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxBackgroundSize {
		return nil, fmt.Errorf("background larger than %d bytes", maxBackgroundSize)
	}
	return data, nil
}

// loadBackgroundFromURL downloads a background image
func (e *Executor) loadBackgroundFromURL(url string) ([]byte, error) {
	resp, err := e.client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch background from URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch background: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBackgroundSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read background from URL: %w", err)
	}
	if len(data) > maxBackgroundSize {
		return nil, fmt.Errorf("background larger than %d bytes", maxBackgroundSize)
	}

	return data, nil
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

// stateData flattens a composition state for results
func stateData(st composer.State) map[string]interface{} {
	return map[string]interface{}{
		"title":           st.Title,
		"location":        st.Location,
		"footer":          st.Footer(),
		"panel_color":     postformat.FormatHexColor(st.PanelColor),
		"title_color":     postformat.FormatHexColor(st.TitleColor),
		"shadow":          st.Shadow,
		"title_font_size": st.TitleFontSize,
		"meta_font_size":  st.MetaFontSize,
		"line_height":     st.LineHeight,
		"align":           string(st.Align),
		"link_qr":         st.LinkQR,
		"image_scale":     st.Scale,
		"image_offset":    map[string]float64{"x": st.Offset.X, "y": st.Offset.Y},
	}
}
