package config

import (
	"os"
	"strconv"
)

// parseEnv overlays values from the environment. Both AUTH_SECRET and the
// older NEXTAUTH_SECRET name are honoured; the display-name variables also
// accept the NEXT_PUBLIC_ prefix used by existing deployments.
func parseEnv(c *Config) {
	setString(&c.SecretKey, lastSetEnv("NEXTAUTH_SECRET", "AUTH_SECRET"))
	setString(&c.PublicURL, lastSetEnv("NEXTAUTH_URL", "AUTH_URL"))
	setString(&c.DatabaseDSN, os.Getenv("POSTGRES_URL"))
	if v, err := strconv.ParseBool(os.Getenv("TRUST_PROXY")); err == nil {
		c.TrustProxy = v
	}

	setString(&c.OpenAIAPIKey, os.Getenv("OPENAI_API_KEY"))
	setString(&c.OpenAIBaseURL, os.Getenv("OPENAI_API_URL"))
	setString(&c.ChatModel, os.Getenv("OPENAI_CHAT_MODEL"))
	setString(&c.ReasoningModel, os.Getenv("OPENAI_REASONING_MODEL"))
	setString(&c.TitleModel, os.Getenv("OPENAI_TITLE_MODEL"))
	setString(&c.ArtifactModel, os.Getenv("OPENAI_ARTIFACT_MODEL"))
	setString(&c.ChatModelDisplayName, lastSetEnv("OPENAI_CHAT_MODEL_DISPLAY_NAME", "NEXT_PUBLIC_OPENAI_CHAT_MODEL_DISPLAY_NAME"))
	setString(&c.ReasoningModelDisplayName, lastSetEnv("OPENAI_REASONING_MODEL_DISPLAY_NAME", "NEXT_PUBLIC_OPENAI_REASONING_MODEL_DISPLAY_NAME"))
}

// lastSetEnv returns the value of the last non-empty variable in names.
func lastSetEnv(names ...string) string {
	var v string
	for _, name := range names {
		if s := os.Getenv(name); s != "" {
			v = s
		}
	}
	return v
}
