package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillet/pkg/config"
	"github.com/jingkaihe/skillet/pkg/logger"
	"github.com/jingkaihe/skillet/pkg/presenter"
	"github.com/jingkaihe/skillet/pkg/report"
)

// ValidateConfig holds the flags of the validate command
type ValidateConfig struct {
	Target      string
	JSON        bool
	NoStructure bool
}

// NewValidateConfig creates a ValidateConfig with default values
func NewValidateConfig() *ValidateConfig {
	return &ValidateConfig{
		Target:      "",
		JSON:        false,
		NoStructure: false,
	}
}

var validateCmd = &cobra.Command{
	Use:   "validate [dir...]",
	Short: "Check skill definitions for errors",
	Long: `Check the SKILL.md definitions in the given directories. A directory that
holds a SKILL.md is checked itself; any other directory is searched for skill
directories. Without arguments the working directory is searched.

The header fields are checked against the name, description and field rules,
and the skill directory against the reference, script and layout rules. The
command exits non-zero when any error is reported.

Examples:
  skillet validate
  skillet validate skills/pdf-tools
  skillet validate --target extended --json skills/`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := getValidateConfigFromFlags(cmd)
		return validateSkills(cmd.Context(), presenter.Default(), cmd.OutOrStdout(), appConfig, opts, args)
	},
}

func init() {
	defaults := NewValidateConfig()
	validateCmd.Flags().String("target", defaults.Target, "Validation target (standard, extended, permissive); overrides config")
	validateCmd.Flags().Bool("json", defaults.JSON, "Print a JSON report instead of text")
	validateCmd.Flags().Bool("no-structure", defaults.NoStructure, "Skip the directory structure checks")
}

func getValidateConfigFromFlags(cmd *cobra.Command) *ValidateConfig {
	opts := NewValidateConfig()
	opts.Target, _ = cmd.Flags().GetString("target")
	opts.JSON, _ = cmd.Flags().GetBool("json")
	opts.NoStructure, _ = cmd.Flags().GetBool("no-structure")
	return opts
}

// validateSkills checks every resolved directory and prints the outcome,
// either through p or as a JSON report on out. Directories that could not be
// checked are reported through p.Error in text mode and in the report in JSON
// mode. It returns errFindings when any error was reported.
func validateSkills(ctx context.Context, p presenter.Presenter, out io.Writer, cfg config.Config, opts *ValidateConfig, args []string) error {
	if opts.Target != "" {
		cfg.Target = opts.Target
	}
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

	rep := report.New()
	for _, dir := range dirs {
		name, diags, err := checkSkill(ctx, validator, dir, !opts.NoStructure)
		if err != nil {
			logger.G(ctx).WithError(err).WithField("dir", dir).Debug("skill could not be checked")
		}
		rep.Add(dir, name, diags, err)

		if opts.JSON {
			continue
		}
		if err != nil {
			p.Error(err, dir)
			continue
		}
		p.Diagnostics(dir, diags)
	}

	if opts.JSON {
		if err := rep.Write(out); err != nil {
			return err
		}
	} else {
		p.Summary(rep.Summary.Skills, rep.Summary.Counts)
	}

	if failed || rep.HasErrors() {
		return errFindings
	}
	return nil
}
