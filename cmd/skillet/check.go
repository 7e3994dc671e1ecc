package main

import (
	"context"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jingkaihe/skillet/pkg/config"
	"github.com/jingkaihe/skillet/pkg/diagnostics"
	"github.com/jingkaihe/skillet/pkg/logger"
	"github.com/jingkaihe/skillet/pkg/skills"
	"github.com/jingkaihe/skillet/pkg/telemetry"
)

// resolveDirs turns command arguments into skill directories. Each argument is
// either a skill directory or a tree searched for them; no arguments means
// the working directory. Roots that cannot be searched are returned in err
// alongside whatever was found elsewhere.
func resolveDirs(ctx context.Context, cfg config.Config, args []string) ([]string, error) {
	discovery, err := cfg.NewDiscovery(args...)
	if err != nil {
		return nil, err
	}
	dirs, err := discovery.Discover(ctx)
	if len(dirs) == 0 && err == nil {
		return nil, errors.New("no skill directories found")
	}
	return dirs, err
}

// checkSkill runs the content rules and, when structure is set, the directory
// rules against dir. The returned error means the definition could not be
// read or parsed; diagnostics are then empty.
func checkSkill(ctx context.Context, v *skills.Validator, dir string, structure bool) (name string, diags []diagnostics.Diagnostic, err error) {
	err = telemetry.WithSpan(ctx, "skill.check", func(ctx context.Context) error {
		log := logger.G(ctx).WithField("dir", dir)

		props, err := skills.ReadProperties(dir)
		if err != nil {
			return err
		}
		name = props.Name

		diags = v.Validate(props, dir)
		if structure {
			diags = append(diags, skills.ValidateStructure(dir)...)
		}

		telemetry.RecordDiagnostics(ctx, diags)
		log.WithField("diagnostics", len(diags)).Debug("checked skill")
		return nil
	}, attribute.String("skill.dir", dir), attribute.Bool("skill.structure", structure))
	return name, diags, err
}
