package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rxtech-lab/funding-breakout/pkg/errors"
)

// devVersion marks a development build.
const devVersion = "main"

// CheckCompatibility checks that a backtest binary can contribute results to
// an optimization run by this build.
//
// Rules:
//   - "main" on either side skips the check
//   - major and minor versions must match, since metrics and scoring may change between them
//   - patch versions can differ
func CheckCompatibility(optimizerVersion, binaryVersion string) error {
	optimizerVersion = strings.TrimPrefix(optimizerVersion, "v")
	binaryVersion = strings.TrimPrefix(binaryVersion, "v")

	if optimizerVersion == devVersion || binaryVersion == devVersion {
		return nil
	}

	ours, err := semver.NewVersion(optimizerVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "invalid optimizer version '%s'", optimizerVersion)
	}

	theirs, err := semver.NewVersion(binaryVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "invalid binary version '%s'", binaryVersion)
	}

	if ours.Major() != theirs.Major() || ours.Minor() != theirs.Minor() {
		return errors.Newf(errors.ErrCodeInvalidConfiguration,
			"version mismatch: optimizer is %d.%d.x but backtest binary is %d.%d.x",
			ours.Major(), ours.Minor(), theirs.Major(), theirs.Minor())
	}

	return nil
}

// ParseVersionOutput extracts the version from "<name> version <version>",
// the output of a binary's --version flag.
func ParseVersionOutput(output string) (string, error) {
	fields := strings.Fields(output)
	for i, field := range fields {
		if field == "version" && i+1 < len(fields) {
			return fields[i+1], nil
		}
	}

	return "", errors.Newf(errors.ErrCodeInvalidConfiguration, "no version in %q", strings.TrimSpace(output))
}
