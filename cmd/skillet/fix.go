package main

import (
	"context"
	"fmt"
	"io"

	"github.com/aymanbagabas/go-udiff"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jingkaihe/skillet/pkg/config"
	"github.com/jingkaihe/skillet/pkg/diagnostics"
	"github.com/jingkaihe/skillet/pkg/logger"
	"github.com/jingkaihe/skillet/pkg/presenter"
	"github.com/jingkaihe/skillet/pkg/skills"
	"github.com/jingkaihe/skillet/pkg/telemetry"
)

// FixConfig holds the flags of the fix command
type FixConfig struct {
	DryRun bool
}

// NewFixConfig creates a FixConfig with default values
func NewFixConfig() *FixConfig {
	return &FixConfig{
		DryRun: false,
	}
}

var fixCmd = &cobra.Command{
	Use:   "fix [dir...]",
	Short: "Apply the suggested fixes to skill definitions",
	Long: `Validate the SKILL.md definitions and apply every fix a finding suggests:
names are truncated, lowercased or have their hyphen runs collapsed, and tags
are stripped from descriptions. Only the affected header fields are rewritten.
Findings that remain afterwards are printed and make the command exit non-zero.

Examples:
  skillet fix skills/pdf-tools
  skillet fix --dry-run skills/`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := getFixConfigFromFlags(cmd)
		return fixSkills(cmd.Context(), presenter.Default(), cmd.OutOrStdout(), appConfig, opts, args)
	},
}

func init() {
	defaults := NewFixConfig()
	fixCmd.Flags().Bool("dry-run", defaults.DryRun, "Print a unified diff of the fixes instead of writing them")
}

func getFixConfigFromFlags(cmd *cobra.Command) *FixConfig {
	opts := NewFixConfig()
	opts.DryRun, _ = cmd.Flags().GetBool("dry-run")
	return opts
}

// fixSkills applies the content-rule fixes to every resolved directory and
// prints what is left. Structure findings cannot be fixed and are not checked.
func fixSkills(ctx context.Context, p presenter.Presenter, out io.Writer, cfg config.Config, opts *FixConfig, args []string) error {
	validator, err := cfg.NewValidator()
	if err != nil {
		return err
	}

	dirs, err := resolveDirs(ctx, cfg, args)
	if err != nil && len(dirs) == 0 {
		return err
	}
	failed := err != nil
	if err != nil {
		p.Error(err, "discovery")
	}

	var counts diagnostics.Counts
	for _, dir := range dirs {
		_, diags, err := checkSkill(ctx, validator, dir, false)
		if err != nil {
			p.Error(err, dir)
			failed = true
			continue
		}

		var fixed int
		err = telemetry.WithSpan(ctx, "skill.fix", func(context.Context) error {
			var err error
			if opts.DryRun {
				fixed, err = previewFixes(out, dir, diags)
			} else {
				fixed, err = skills.ApplyFixes(dir, diags)
			}
			return err
		}, attribute.String("skill.dir", dir), attribute.Bool("fix.dry_run", opts.DryRun))
		if err != nil {
			p.Error(err, dir)
			failed = true
			continue
		}
		logger.G(ctx).WithField("dir", dir).WithField("fixed", fixed).Debug("applied fixes")

		if fixed > 0 && !opts.DryRun {
			p.Success(fmt.Sprintf("%s: fixed %d %s", dir, fixed, plural(fixed, "issue", "issues")))
			// Report what the fixes could not resolve.
			if _, diags, err = checkSkill(ctx, validator, dir, false); err != nil {
				p.Error(err, dir)
				failed = true
				continue
			}
		}

		counts.Add(diags)
		if len(diags) > 0 {
			p.Diagnostics(dir, diags)
		}
	}

	p.Summary(len(dirs), counts)
	if failed || counts.Errors > 0 {
		return errFindings
	}
	return nil
}

// previewFixes prints the diff ApplyFixes would write for dir.
func previewFixes(out io.Writer, dir string, diags []diagnostics.Diagnostic) (int, error) {
	path, content, err := skills.LoadSkillFile(dir)
	if err != nil {
		return 0, err
	}
	fixed, n, err := skills.FixContent(content, diags)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		fmt.Fprint(out, udiff.Unified(path, path, content, fixed))
	}
	return n, nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
