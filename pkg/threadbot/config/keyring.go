package config

import (
	"log/slog"
	"os"

	"github.com/zalando/go-keyring"
)

const (
	// keyringService is the service name used in the OS keyring.
	keyringService = "threadbot"

	// keyringToken is the key name for the Discord bot token.
	keyringToken = "discord_token"

	// TokenEnvVar is read when neither the keyring nor the config has a token.
	TokenEnvVar = "DISCORD_TOKEN"
)

// StoreToken saves the bot token to the OS keyring.
func StoreToken(token string) error {
	return keyring.Set(keyringService, keyringToken, token)
}

// KeyringToken returns the stored token, or "" if none.
func KeyringToken() string {
	val, err := keyring.Get(keyringService, keyringToken)
	if err != nil {
		return ""
	}
	return val
}

// DeleteToken removes the stored token.
func DeleteToken() error {
	return keyring.Delete(keyringService, keyringToken)
}

// ResolveToken fills cfg.Discord.Token using keyring → config → env and
// reports where it came from ("" when no token was found).
func ResolveToken(cfg *Config, logger *slog.Logger) string {
	if logger == nil {
		logger = slog.Default()
	}
	if val := KeyringToken(); val != "" {
		cfg.Discord.Token = val
		logger.Debug("discord token loaded from OS keyring")
		return "keyring"
	}
	if cfg.Discord.Token != "" && !IsEnvReference(cfg.Discord.Token) {
		logger.Debug("discord token loaded from config")
		return "config"
	}
	if val := os.Getenv(TokenEnvVar); val != "" {
		cfg.Discord.Token = val
		logger.Debug("discord token loaded from environment")
		return "env"
	}
	cfg.Discord.Token = ""
	return ""
}
