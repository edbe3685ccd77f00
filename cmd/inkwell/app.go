package main

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/dshills/inkwell/internal/config"
	"github.com/dshills/inkwell/internal/editor"
	"github.com/dshills/inkwell/internal/event"
	"github.com/dshills/inkwell/internal/field"
	"github.com/dshills/inkwell/internal/logging"
	"github.com/dshills/inkwell/internal/loop"
	"github.com/dshills/inkwell/internal/plugin"
)

// loadConfig reads the config named by the flags, or the defaults plus
// environment overrides when no file is given.
func loadConfig(flags *rootFlags) (*config.Config, error) {
	var cfg *config.Config
	if flags.config == "" {
		cfg = config.Default()
		cfg.ApplyEnv(os.LookupEnv)
		if err := config.Validate(cfg); err != nil {
			return nil, err
		}
	} else {
		loaded, err := config.Load(flags.config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	return cfg, nil
}

// newLogger builds the process logger. Console output is chosen for a
// terminal unless the config says otherwise.
func newLogger(cfg *config.Config, w io.Writer) (*logging.Logger, error) {
	human := isTerminal(w)
	if cfg.Log.Human != nil {
		human = *cfg.Log.Human
	}
	log, err := logging.New(logging.Options{
		Level:         cfg.Log.Level,
		HumanReadable: human,
		Writer:        w,
	})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return log, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// openField returns the configured hidden field.
func openField(cfg *config.Config) (field.Field, error) {
	if cfg.Field.Path != "" {
		return field.OpenFile(cfg.Field.Name, cfg.Field.Path)
	}
	return field.NewMemory(cfg.Field.Name)
}

// buildEditor constructs an editor from cfg and registers every configured
// plugin. Nothing runs until the caller loads the editor.
func buildEditor(cfg *config.Config, sched loop.Scheduler, log *logging.Logger, extra ...editor.Option) (*editor.Editor, []plugin.ID, error) {
	f, err := openField(cfg)
	if err != nil {
		return nil, nil, err
	}
	initial, err := cfg.InitialContent()
	if err != nil {
		return nil, nil, err
	}

	opts := []editor.Option{
		editor.WithContent(initial),
		editor.WithField(f),
		editor.WithLogger(log),
		editor.WithPluginTimeout(cfg.Plugins.Timeout.Std()),
		editor.WithHandlerTimeout(cfg.Plugins.HandlerTimeout.Std()),
	}
	ed, err := editor.New(sched, append(opts, extra...)...)
	if err != nil {
		return nil, nil, err
	}

	ids := make([]plugin.ID, 0, len(cfg.Plugins.List))
	for _, p := range cfg.Plugins.List {
		src, err := p.LoadSource()
		if err != nil {
			ed.Close()
			return nil, nil, err
		}
		var regOpts []plugin.RegisterOption
		if p.Runtime != "" {
			regOpts = append(regOpts, plugin.WithRuntime(p.Runtime))
		}
		id, err := ed.RegisterPlugin(p.Name, p.Description, src, regOpts...)
		if err != nil {
			ed.Close()
			return nil, nil, fmt.Errorf("register plugin %q: %w", p.Name, err)
		}
		ids = append(ids, id)
	}
	return ed, ids, nil
}

// enablePlugins activates the plugins marked enabled. A plugin that fails
// stays disabled and the rest still start. It must run on the editor
// goroutine.
func enablePlugins(ed *editor.Editor, cfg *config.Config, ids []plugin.ID, log *logging.Logger) {
	for i, p := range cfg.Plugins.List {
		if !p.Enabled {
			continue
		}
		if err := ed.EnablePlugin(ids[i]); err != nil {
			log.Error(err, fmt.Sprintf("plugin %q failed to start", p.Name))
		}
	}
}

// eventNames returns the events selected by cfg.
func eventNames(cfg *config.Config) ([]event.Name, error) {
	if len(cfg.Events) == 0 {
		return event.Names(), nil
	}
	names := make([]event.Name, 0, len(cfg.Events))
	for _, s := range cfg.Events {
		n, err := event.ParseName(s)
		if err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, nil
}
