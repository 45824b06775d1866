package types

// UserSettings mirrors the per-user settings document.
type UserSettings struct {
	Athlete   AthleteProfile
	FCMTokens []string
}
