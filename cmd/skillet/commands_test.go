package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/skillet/pkg/config"
	"github.com/jingkaihe/skillet/pkg/presenter"
	"github.com/jingkaihe/skillet/pkg/report"
)

const validSkill = "---\nname: pdf-tools\ndescription: Extract text and tables from PDF files.\n---\n\n# PDF tools\n"

func writeSkill(t *testing.T, dir, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, "SKILL.md")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

type outputs struct {
	out    bytes.Buffer
	stdout bytes.Buffer
	stderr bytes.Buffer
}

func (o *outputs) presenter() presenter.Presenter {
	return presenter.NewWithOptions(&o.stdout, &o.stderr, presenter.ColorNever)
}

func defaultConfig() config.Config {
	return config.Config{Target: "standard"}
}

func TestValidateSkills(t *testing.T) {
	ctx := context.Background()

	t.Run("valid skill", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "pdf-tools")
		writeSkill(t, dir, validSkill)

		var o outputs
		err := validateSkills(ctx, o.presenter(), &o.out, defaultConfig(), NewValidateConfig(), []string{dir})
		require.NoError(t, err)
		assert.Contains(t, o.stdout.String(), "✓ "+dir)
		assert.Contains(t, o.stdout.String(), "1 skill checked: 0 errors, 0 warnings, 0 info")
		assert.Empty(t, o.stderr.String())
	})

	t.Run("errors fail the run", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "pdf-tools")
		writeSkill(t, dir, "---\nname: PDF-Tools\ndescription: Extract text.\n---\n")

		var o outputs
		err := validateSkills(ctx, o.presenter(), &o.out, defaultConfig(), NewValidateConfig(), []string{dir})
		require.True(t, errors.Is(err, errFindings), "got %v", err)
		assert.Contains(t, o.stdout.String(), "error[NAM003] name:")
		assert.Contains(t, o.stdout.String(), "suggestion: use lowercase: 'pdf-tools'")
	})

	t.Run("target flag overrides config", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "pdf-tools")
		writeSkill(t, dir, "---\nname: pdf-tools\ndescription: Extract text.\ncontext: fork\n---\n")

		var o outputs
		require.NoError(t, validateSkills(ctx, o.presenter(), &o.out, defaultConfig(), NewValidateConfig(), []string{dir}))
		assert.Contains(t, o.stdout.String(), "warning[FLD001] context:")

		o = outputs{}
		opts := NewValidateConfig()
		opts.Target = "extended"
		require.NoError(t, validateSkills(ctx, o.presenter(), &o.out, defaultConfig(), opts, []string{dir}))
		assert.NotContains(t, o.stdout.String(), "FLD001")
	})

	t.Run("invalid target", func(t *testing.T) {
		opts := NewValidateConfig()
		opts.Target = "strict"

		var o outputs
		err := validateSkills(ctx, o.presenter(), &o.out, defaultConfig(), opts, []string{t.TempDir()})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown validation target")
	})

	t.Run("structure checks can be skipped", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "pdf-tools")
		writeSkill(t, dir, validSkill+"\nSee [the guide](guide.md).\n")

		var o outputs
		err := validateSkills(ctx, o.presenter(), &o.out, defaultConfig(), NewValidateConfig(), []string{dir})
		require.True(t, errors.Is(err, errFindings))
		assert.Contains(t, o.stdout.String(), "STR001")

		o = outputs{}
		opts := NewValidateConfig()
		opts.NoStructure = true
		require.NoError(t, validateSkills(ctx, o.presenter(), &o.out, defaultConfig(), opts, []string{dir}))
		assert.NotContains(t, o.stdout.String(), "STR001")
	})

	t.Run("unreadable definition is reported and others still run", func(t *testing.T) {
		root := t.TempDir()
		writeSkill(t, filepath.Join(root, "pdf-tools"), validSkill)
		writeSkill(t, filepath.Join(root, "broken"), "---\nname: broken\n")

		var o outputs
		err := validateSkills(ctx, o.presenter(), &o.out, defaultConfig(), NewValidateConfig(), []string{root})
		require.True(t, errors.Is(err, errFindings))
		assert.Contains(t, o.stderr.String(), filepath.Join(root, "broken"))
		assert.Contains(t, o.stdout.String(), "✓ "+filepath.Join(root, "pdf-tools"))
		assert.Contains(t, o.stdout.String(), "2 skills checked")
	})

	t.Run("no skills found", func(t *testing.T) {
		var o outputs
		err := validateSkills(ctx, o.presenter(), &o.out, defaultConfig(), NewValidateConfig(), []string{t.TempDir()})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no skill directories found")
	})

	t.Run("json report", func(t *testing.T) {
		root := t.TempDir()
		writeSkill(t, filepath.Join(root, "pdf-tools"), validSkill)
		writeSkill(t, filepath.Join(root, "other"), "---\nname: wrong\ndescription: Mismatched.\n---\n")

		opts := NewValidateConfig()
		opts.JSON = true

		var o outputs
		err := validateSkills(ctx, o.presenter(), &o.out, defaultConfig(), opts, []string{root})
		require.True(t, errors.Is(err, errFindings))
		assert.Empty(t, o.stdout.String(), "text output is suppressed")

		var rep report.Report
		require.NoError(t, json.Unmarshal(o.out.Bytes(), &rep))
		assert.Equal(t, report.FormatVersion, rep.Version)
		require.Len(t, rep.Results, 2)
		assert.Equal(t, filepath.Join(root, "other"), rep.Results[0].Directory)
		assert.Equal(t, "wrong", rep.Results[0].Name)
		assert.Equal(t, "NAM008", rep.Results[0].Diagnostics[0].Code)
		assert.Empty(t, rep.Results[1].Diagnostics)
		assert.Equal(t, 2, rep.Summary.Skills)
		assert.Equal(t, 1, rep.Summary.Errors)
	})
}

func TestFormatSkills(t *testing.T) {
	ctx := context.Background()
	unordered := "---\ndescription: Extract text.\nname: pdf-tools\n---\nBody   \n"
	formatted := "---\nname: pdf-tools\ndescription: Extract text.\n---\nBody\n"

	t.Run("prints formatted definitions by default", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "pdf-tools")
		path := writeSkill(t, dir, unordered)

		var o outputs
		require.NoError(t, formatSkills(ctx, o.presenter(), &o.out, defaultConfig(), NewFormatConfig(), []string{dir}))
		assert.Equal(t, formatted, o.out.String())
		assert.Equal(t, unordered, readFile(t, path), "file untouched")
	})

	t.Run("write", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "pdf-tools")
		path := writeSkill(t, dir, unordered)
		require.NoError(t, os.Chmod(path, 0o600))

		opts := NewFormatConfig()
		opts.Write = true

		var o outputs
		require.NoError(t, formatSkills(ctx, o.presenter(), &o.out, defaultConfig(), opts, []string{dir}))
		assert.Equal(t, formatted, readFile(t, path))
		assert.Contains(t, o.stdout.String(), "formatted "+path)

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

		o = outputs{}
		require.NoError(t, formatSkills(ctx, o.presenter(), &o.out, defaultConfig(), opts, []string{dir}))
		assert.Empty(t, o.stdout.String(), "second run has nothing to do")
	})

	t.Run("check", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "pdf-tools")
		path := writeSkill(t, dir, unordered)

		opts := NewFormatConfig()
		opts.Check = true

		var o outputs
		err := formatSkills(ctx, o.presenter(), &o.out, defaultConfig(), opts, []string{dir})
		require.True(t, errors.Is(err, errFindings))
		assert.Contains(t, o.stdout.String(), "not formatted: "+path)

		writeSkill(t, dir, formatted)
		o = outputs{}
		require.NoError(t, formatSkills(ctx, o.presenter(), &o.out, defaultConfig(), opts, []string{dir}))
	})

	t.Run("diff", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "pdf-tools")
		path := writeSkill(t, dir, unordered)

		opts := NewFormatConfig()
		opts.Diff = true

		var o outputs
		require.NoError(t, formatSkills(ctx, o.presenter(), &o.out, defaultConfig(), opts, []string{dir}))
		diff := o.out.String()
		assert.Contains(t, diff, "--- "+path)
		assert.Contains(t, diff, "+++ "+path)
		assert.Contains(t, diff, "-Body   ")
		assert.Contains(t, diff, "+Body")
		assert.Equal(t, unordered, readFile(t, path))
	})

	t.Run("unparseable definition", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "pdf-tools")
		writeSkill(t, dir, "no header\n")

		var o outputs
		err := formatSkills(ctx, o.presenter(), &o.out, defaultConfig(), NewFormatConfig(), []string{dir})
		require.True(t, errors.Is(err, errFindings))
		assert.Contains(t, o.stderr.String(), "[ERROR] "+dir)
	})
}

func TestFixSkills(t *testing.T) {
	ctx := context.Background()

	t.Run("applies fixes and reports the rest", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "pdf-tools")
		path := writeSkill(t, dir, "---\n# keep me\nname: PDF-Tools\ndescription: Extract <b>text</b>.\n---\nBody\n")

		var o outputs
		require.NoError(t, fixSkills(ctx, o.presenter(), &o.out, defaultConfig(), NewFixConfig(), []string{dir}))
		assert.Equal(t, "---\n# keep me\nname: pdf-tools\ndescription: Extract text.\n---\nBody\n", readFile(t, path))
		assert.Contains(t, o.stdout.String(), dir+": fixed 2 issues")
		assert.Contains(t, o.stdout.String(), "1 skill checked: 0 errors")
	})

	t.Run("unfixable errors fail the run", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "pdf-tools")
		writeSkill(t, dir, "---\nname: claude-pdf\ndescription: Extract text.\n---\n")

		var o outputs
		err := fixSkills(ctx, o.presenter(), &o.out, defaultConfig(), NewFixConfig(), []string{dir})
		require.True(t, errors.Is(err, errFindings))
		assert.Contains(t, o.stdout.String(), "NAM007")
		assert.NotContains(t, o.stdout.String(), "fixed")
	})

	t.Run("dry run prints a diff", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "pdf-tools")
		content := "---\nname: PDF-Tools\ndescription: Extract text.\n---\n"
		path := writeSkill(t, dir, content)

		opts := NewFixConfig()
		opts.DryRun = true

		var o outputs
		err := fixSkills(ctx, o.presenter(), &o.out, defaultConfig(), opts, []string{dir})
		require.True(t, errors.Is(err, errFindings), "findings remain until written")
		assert.Contains(t, o.out.String(), "-name: PDF-Tools")
		assert.Contains(t, o.out.String(), "+name: pdf-tools")
		assert.Equal(t, content, readFile(t, path))
	})
}

func TestSchemaCommand(t *testing.T) {
	var out bytes.Buffer
	schemaCmd.SetOut(&out)
	t.Cleanup(func() { schemaCmd.SetOut(nil) })

	require.NoError(t, schemaCmd.RunE(schemaCmd, nil))

	var schema map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &schema))
	assert.Equal(t, "skillet validation report", schema["title"])
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	t.Cleanup(func() { versionCmd.SetOut(nil) })

	require.NoError(t, versionCmd.RunE(versionCmd, nil))

	var info map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &info))
	assert.Contains(t, info, "version")
}

func TestCommandFlags(t *testing.T) {
	require.NoError(t, validateCmd.ParseFlags([]string{"--target", "extended", "--json", "--no-structure"}))
	assert.Equal(t, &ValidateConfig{Target: "extended", JSON: true, NoStructure: true}, getValidateConfigFromFlags(validateCmd))

	require.NoError(t, formatCmd.ParseFlags([]string{"-w", "--check", "-d"}))
	assert.Equal(t, &FormatConfig{Write: true, Check: true, Diff: true}, getFormatConfigFromFlags(formatCmd))

	require.NoError(t, fixCmd.ParseFlags([]string{"--dry-run"}))
	assert.Equal(t, &FixConfig{DryRun: true}, getFixConfigFromFlags(fixCmd))
}
