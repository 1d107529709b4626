package session

import "github.com/mvilela/papo/internal/config"

const DefaultProfile = "main"

// Session identifies the authenticated user the sync core acts for.
// It is passed to the engine at construction; nothing looks it up from
// ambient scope.
type Session struct {
	UserID string
	Token  string
}

// FromConfig builds the session from the loaded config.
func FromConfig(cfg *config.Config) Session {
	return Session{UserID: cfg.UserID, Token: cfg.Token}
}

// Resolve determines the active profile name using precedence:
// 1. flagOverride (--profile flag)
// 2. config.toml default_profile
// 3. "main"
func Resolve(flagOverride string) string {
	if flagOverride != "" {
		return flagOverride
	}
	cfg, err := config.Load(ConfigPath())
	if err == nil && cfg.DefaultProfile != "" {
		return cfg.DefaultProfile
	}
	return DefaultProfile
}
