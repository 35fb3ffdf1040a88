package shellprefs

import "strings"

// AlternateShellPath is the path prefix the SFDS2 shell is mounted at. TWENTY is served at DefaultShellPath.
const (
	AlternateShellPath = "/sfds2"
	DefaultShellPath   = "/"
)

// Resolve applies a workspace policy over a user preference.
//
// A forced policy always wins and marks the result as forced. Any other policy, including an
// absent or unrecognised one, defers to the user's preference. Resolve is total and pure.
func Resolve(policy FrontendPolicy, preference FrontendPreference) Resolution {
	res := Resolution{
		UserPreference: NormalizePreference(preference),
	}
	if policy != "" {
		p := policy
		res.RawPolicy = &p
	}

	switch policy {
	case PolicyForceSFDS2:
		res.EffectiveShell = ShellSFDS2
		res.IsForced = true
	case PolicyForceTwenty:
		res.EffectiveShell = ShellTwenty
		res.IsForced = true
	default:
		res.EffectiveShell = res.UserPreference.Shell()
	}
	return res
}

// DecideRedirect reports whether the page at currentPath must be replaced by the alternate shell.
// Only SFDS2 ever triggers a navigation, and only when the path is not already under
// AlternateShellPath.
func DecideRedirect(effective Shell, currentPath string) RedirectDecision {
	if effective != ShellSFDS2 || UnderAlternateShell(currentPath) {
		return RedirectDecision{}
	}
	return RedirectDecision{Redirect: true, Location: AlternateShellPath}
}

// UnderAlternateShell reports whether path is AlternateShellPath or below it.
func UnderAlternateShell(path string) bool {
	return path == AlternateShellPath || strings.HasPrefix(path, AlternateShellPath+"/")
}

// NormalizePreference maps anything but SFDS2 to TWENTY.
func NormalizePreference(p FrontendPreference) FrontendPreference {
	if p == PreferenceSFDS2 {
		return PreferenceSFDS2
	}
	return PreferenceTwenty
}

// Shell returns the shell a preference selects.
func (p FrontendPreference) Shell() Shell {
	if p == PreferenceSFDS2 {
		return ShellSFDS2
	}
	return ShellTwenty
}

// IsForced reports whether the policy removes the member's choice.
func (p FrontendPolicy) IsForced() bool {
	return p == PolicyForceTwenty || p == PolicyForceSFDS2
}
