package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/dshills/inkwell/internal/editor"
	"github.com/dshills/inkwell/internal/event"
	"github.com/dshills/inkwell/internal/loop"
	"github.com/dshills/inkwell/internal/plugin"
	"github.com/dshills/inkwell/internal/remote"
)

// Script-only ops. Every other op is forwarded to the editor.
const (
	opWait    = "wait"
	opStats   = "stats"
	opEnable  = "enable"
	opDisable = "disable"
)

var errInvalidLine = errors.New("line is not a JSON object")

type runFlags struct {
	script string
}

func newRunCmd(root *rootFlags) *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Play a JSON-lines interaction script against the editor",
		Long: `Run builds the editor from config, starts the enabled plugins and reads
one interaction per line, for example {"op":"input","content":"<p>hi</p>"}.
{"op":"wait","ms":500} advances the virtual clock so plugin timers fire.
Every event is printed as one JSON line.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if flags.script != "" {
				f, err := os.Open(flags.script)
				if err != nil {
					return fmt.Errorf("open script: %w", err)
				}
				defer f.Close()
				in = f
			}
			return runScript(cmd.Context(), root, in, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVarP(&flags.script, "script", "s", "", "Script file (defaults to stdin)")

	return cmd
}

// lineWriter serializes JSON lines onto out.
type lineWriter struct {
	mu    sync.Mutex
	out   io.Writer
	clock *loop.Manual
}

func (w *lineWriter) write(line string) {
	line, _ = sjson.Set(line, "at", w.clock.Now().Milliseconds())
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintln(w.out, line)
}

func (w *lineWriter) event(evt event.Event) {
	line, _ := sjson.Set("", "event", evt.Name.String())
	line, _ = sjson.Set(line, "payload", evt.Payload())
	w.write(line)
}

func (w *lineWriter) submit(value string) {
	line, _ := sjson.Set("", "submit", value)
	w.write(line)
}

func (w *lineWriter) failure(lineNo int, err error) {
	line, _ := sjson.Set("", "line", lineNo)
	line, _ = sjson.Set(line, "error", err.Error())
	w.write(line)
}

func (w *lineWriter) stats(ed *editor.Editor) {
	line, _ := sjson.Set("", "stats.words", ed.GetWordCount())
	line, _ = sjson.Set(line, "stats.chars", ed.GetCharCount())
	line, _ = sjson.Set(line, "stats.dirty", ed.IsDirty())
	line, _ = sjson.Set(line, "stats.field", ed.FieldValue())
	w.write(line)
}

func runScript(ctx context.Context, root *rootFlags, in io.Reader, out, errOut io.Writer) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg, errOut)
	if err != nil {
		return err
	}
	names, err := eventNames(cfg)
	if err != nil {
		return err
	}

	clock := loop.NewManual()
	w := &lineWriter{out: out, clock: clock}
	submit := editor.WithSubmit(func(_ context.Context, value string) error {
		w.submit(value)
		return nil
	})

	ed, ids, err := buildEditor(cfg, clock, log, submit)
	if err != nil {
		return err
	}
	defer ed.Close()

	for _, n := range names {
		if _, err := ed.On(n.String(), func(_ context.Context, evt event.Event) error {
			w.event(evt)
			return nil
		}); err != nil {
			return err
		}
	}

	if err := ed.Load(ctx); err != nil {
		return err
	}
	enablePlugins(ed, cfg, ids, log)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := step(ctx, ed, clock, w, line); err != nil {
			w.failure(lineNo, err)
		}
	}
	return scanner.Err()
}

// step performs one script line.
func step(ctx context.Context, ed *editor.Editor, clock *loop.Manual, w *lineWriter, line string) error {
	if !gjson.Valid(line) || !gjson.Parse(line).IsObject() {
		return errInvalidLine
	}
	fields := gjson.GetMany(line, "op", "content", "ms", "plugin")
	op := fields[0].String()

	switch op {
	case opWait:
		clock.Advance(time.Duration(fields[2].Int()) * time.Millisecond)
		return nil
	case opStats:
		w.stats(ed)
		return nil
	case opEnable:
		return ed.EnablePlugin(plugin.DeriveID(fields[3].String()))
	case opDisable:
		return ed.DisablePlugin(plugin.DeriveID(fields[3].String()))
	default:
		return remote.Apply(ctx, ed, remote.Request{Op: remote.Op(op), Content: fields[1].String()})
	}
}
