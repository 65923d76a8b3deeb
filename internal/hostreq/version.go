package hostreq

import (
	"fmt"
	"regexp"

	"github.com/hashicorp/go-version"
)

var versionPattern = regexp.MustCompile(`\d+(?:\.\d+)*`)

// ExtractVersion pulls the first dotted number sequence out of a version
// banner. Tool banners bury the number in arbitrary prose ("GNU bash,
// version 5.1.16(1)-release"), so anything around the digits is ignored.
func ExtractVersion(banner string) (*version.Version, error) {
	m := versionPattern.FindString(banner)
	if m == "" {
		return nil, fmt.Errorf("no version number in %q", banner)
	}
	v, err := version.NewVersion(m)
	if err != nil {
		return nil, fmt.Errorf("parsing version %q: %w", m, err)
	}
	return v, nil
}

// MeetsMinimum reports whether the version found in banner is at least the
// version found in min. Both sides go through ExtractVersion, so suffixes
// like the "a" in "2.5.1a" drop out before comparison.
func MeetsMinimum(banner, min string) (bool, error) {
	cur, err := ExtractVersion(banner)
	if err != nil {
		return false, err
	}
	req, err := ExtractVersion(min)
	if err != nil {
		return false, err
	}
	return cur.Compare(req) >= 0, nil
}
