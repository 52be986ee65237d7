package config

import (
	"github.com/Masterminds/semver/v3"

	"github.com/teranos/lore/errors"
)

// formatConstraint is the manifest format range this binary can read.
// Major version bumps are breaking; minor/patch within 1.x are not.
const formatConstraint = ">= 1.0.0, < 2.0.0"

// Validate checks the loaded manifest for problems that would only
// surface later as confusing failures.
func Validate(c *Config) error {
	if c.Workspace.Records == "" {
		return errors.Wrap(errors.ErrInvalidWorkspace, "workspace.records must not be empty")
	}

	version, err := semver.NewVersion(c.Workspace.Format)
	if err != nil {
		return errors.Wrapf(errors.ErrInvalidWorkspace,
			"workspace.format %q is not a semantic version", c.Workspace.Format)
	}

	constraint, err := semver.NewConstraint(formatConstraint)
	if err != nil {
		return errors.Wrap(err, "internal format constraint")
	}
	if !constraint.Check(version) {
		return errors.WithHintf(
			errors.Wrapf(errors.ErrInvalidWorkspace,
				"workspace format %s is outside the supported range %s", version, formatConstraint),
			"this build writes format %s", CurrentFormatVersion)
	}

	for _, t := range c.Workspace.Types {
		if t == "" {
			return errors.Wrap(errors.ErrInvalidWorkspace, "workspace.types contains an empty type name")
		}
	}
	return nil
}
