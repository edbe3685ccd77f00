package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/inkwell/internal/loop"
)

func newCheckCmd(root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate config and compile every plugin without running it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			log, err := newLogger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			ed, ids, err := buildEditor(cfg, loop.NewManual(), log)
			if err != nil {
				return err
			}
			defer ed.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "runtimes: %s\n", strings.Join(ed.Runtimes(), ", "))
			failed := 0
			for i, p := range cfg.Plugins.List {
				if err := ed.CheckPlugin(ids[i]); err != nil {
					failed++
					fmt.Fprintf(out, "FAIL %s: %v\n", p.Name, err)
					continue
				}
				fmt.Fprintf(out, "ok   %s\n", p.Name)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d plugins failed to compile", failed, len(ids))
			}
			fmt.Fprintf(out, "config ok, %d plugins\n", len(ids))
			return nil
		},
	}

	return cmd
}
