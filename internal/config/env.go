package config

import "strings"

// Environment variable names for credentials. Secrets never live in the TOML
// file; applyEnv overlays them after parsing.
const (
	EnvSiteBaseURL          = "SITE_BASE_URL"
	EnvLLMAPIKey            = "LLM_API_KEY"
	EnvTwitterAppKey        = "TWITTER_APP_KEY"
	EnvTwitterAppSecret     = "TWITTER_APP_SECRET"
	EnvTwitterAccessToken   = "TWITTER_ACCESS_TOKEN"
	EnvTwitterAccessSecret  = "TWITTER_ACCESS_SECRET"
	EnvInstagramAccessToken = "INSTAGRAM_ACCESS_TOKEN"
	EnvInstagramBusinessID  = "INSTAGRAM_BUSINESS_ID"
	EnvS3AccessKey          = "S3_ACCESS_KEY_ID"
	EnvS3SecretKey          = "S3_SECRET_ACCESS_KEY"
	EnvS3Bucket             = "S3_BUCKET"
	EnvS3Region             = "S3_REGION"
	EnvS3Endpoint           = "S3_ENDPOINT"
)

func (c *Config) applyEnv(getenv func(string) string) {
	lookup := func(key string) string {
		return strings.TrimSpace(getenv(key))
	}

	if v := lookup(EnvSiteBaseURL); v != "" {
		c.Site.BaseURL = v
	}
	if v := lookup(EnvLLMAPIKey); v != "" {
		c.Caption.APIKey = v
	}

	c.Platforms.Twitter = Twitter{
		AppKey:       lookup(EnvTwitterAppKey),
		AppSecret:    lookup(EnvTwitterAppSecret),
		AccessToken:  lookup(EnvTwitterAccessToken),
		AccessSecret: lookup(EnvTwitterAccessSecret),
	}
	c.Platforms.Instagram = Instagram{
		AccessToken: lookup(EnvInstagramAccessToken),
		BusinessID:  lookup(EnvInstagramBusinessID),
	}

	c.Hosting.S3AccessKey = lookup(EnvS3AccessKey)
	c.Hosting.S3SecretKey = lookup(EnvS3SecretKey)
	if v := lookup(EnvS3Bucket); v != "" {
		c.Hosting.S3Bucket = v
	}
	if v := lookup(EnvS3Region); v != "" {
		c.Hosting.S3Region = v
	}
	if v := lookup(EnvS3Endpoint); v != "" {
		c.Hosting.S3Endpoint = v
	}
}

// ApplyEnv overlays credentials and endpoint overrides from the supplied
// lookup function. Exposed for tests; Load wires os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	c.applyEnv(getenv)
}

// TwitterConfigured reports whether all four OAuth1 credentials are present.
func (c *Config) TwitterConfigured() bool {
	t := c.Platforms.Twitter
	return t.AppKey != "" && t.AppSecret != "" && t.AccessToken != "" && t.AccessSecret != ""
}

// InstagramConfigured reports whether the Graph API credentials are present.
func (c *Config) InstagramConfigured() bool {
	i := c.Platforms.Instagram
	return i.AccessToken != "" && i.BusinessID != ""
}

// S3Configured reports whether the primary object store can be used.
func (c *Config) S3Configured() bool {
	h := c.Hosting
	return h.S3Bucket != "" && h.S3AccessKey != "" && h.S3SecretKey != ""
}
