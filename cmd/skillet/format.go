package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aymanbagabas/go-udiff"
	"github.com/natefinch/atomic"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jingkaihe/skillet/pkg/config"
	"github.com/jingkaihe/skillet/pkg/logger"
	"github.com/jingkaihe/skillet/pkg/presenter"
	"github.com/jingkaihe/skillet/pkg/skills"
	"github.com/jingkaihe/skillet/pkg/telemetry"
)

// FormatConfig holds the flags of the format command
type FormatConfig struct {
	Write bool
	Check bool
	Diff  bool
}

// NewFormatConfig creates a FormatConfig with default values
func NewFormatConfig() *FormatConfig {
	return &FormatConfig{
		Write: false,
		Check: false,
		Diff:  false,
	}
}

var formatCmd = &cobra.Command{
	Use:   "format [dir...]",
	Short: "Format skill definitions into canonical order",
	Long: `Format SKILL.md definitions: header keys are put into canonical order and
trailing whitespace and blank-line runs in the body are normalised.

Without flags the formatted definitions are printed. --write rewrites the files
in place, --diff prints a unified diff of the changes, and --check exits
non-zero when any definition is not formatted.

Examples:
  skillet format --diff skills/
  skillet format --write skills/pdf-tools`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := getFormatConfigFromFlags(cmd)
		return formatSkills(cmd.Context(), presenter.Default(), cmd.OutOrStdout(), appConfig, opts, args)
	},
}

func init() {
	defaults := NewFormatConfig()
	formatCmd.Flags().BoolP("write", "w", defaults.Write, "Write the formatted definitions back to their files")
	formatCmd.Flags().Bool("check", defaults.Check, "Exit non-zero if any definition is not formatted")
	formatCmd.Flags().BoolP("diff", "d", defaults.Diff, "Print a unified diff of the formatting changes")
}

func getFormatConfigFromFlags(cmd *cobra.Command) *FormatConfig {
	opts := NewFormatConfig()
	opts.Write, _ = cmd.Flags().GetBool("write")
	opts.Check, _ = cmd.Flags().GetBool("check")
	opts.Diff, _ = cmd.Flags().GetBool("diff")
	return opts
}

// formatSkills formats every resolved directory. Definitions that cannot be
// parsed are reported and left untouched.
func formatSkills(ctx context.Context, p presenter.Presenter, out io.Writer, cfg config.Config, opts *FormatConfig, args []string) error {
	dirs, err := resolveDirs(ctx, cfg, args)
	if err != nil && len(dirs) == 0 {
		return err
	}
	failed := err != nil
	if err != nil {
		p.Error(err, "discovery")
	}

	printOnly := !opts.Write && !opts.Check && !opts.Diff

	var unformatted []string
	for _, dir := range dirs {
		var res *skills.FormatResult
		err := telemetry.WithSpan(ctx, "skill.format", func(context.Context) error {
			var err error
			res, err = skills.FormatFile(dir)
			return err
		}, attribute.String("skill.dir", dir))
		if err != nil {
			p.Error(err, dir)
			failed = true
			continue
		}

		if printOnly {
			fmt.Fprint(out, res.Formatted)
			continue
		}

		log := logger.G(ctx).WithField("path", res.Path)
		if !res.Changed() {
			log.Debug("already formatted")
			continue
		}
		unformatted = append(unformatted, res.Path)

		if opts.Diff {
			fmt.Fprint(out, udiff.Unified(res.Path, res.Path, res.Original, res.Formatted))
		}
		if opts.Write {
			if err := atomic.WriteFile(res.Path, strings.NewReader(res.Formatted)); err != nil {
				p.Error(errors.Wrapf(err, "failed to write %s", res.Path), dir)
				failed = true
				continue
			}
			log.Debug("formatted")
			p.Success("formatted " + res.Path)
		}
	}

	if opts.Check {
		for _, path := range unformatted {
			p.Warning("not formatted: " + path)
		}
		if len(unformatted) > 0 && !opts.Write {
			failed = true
		}
	}

	if failed {
		return errFindings
	}
	return nil
}
