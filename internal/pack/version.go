package pack

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// NextManifestVersion bumps the minor part of a manifest version:
// "1.0" becomes "1.1", "1.9" becomes "1.10".
func NextManifestVersion(current string) (string, error) {
	if current == "" {
		current = InitialManifestVersion
	}
	v, err := semver.NewVersion(current)
	if err != nil {
		return "", fmt.Errorf("parse manifest version %q: %w", current, err)
	}
	next := v.IncMinor()
	return fmt.Sprintf("%d.%d", next.Major(), next.Minor()), nil
}
