package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	MongoURI            string
	MongoDatabase       string // Overrides the database name carried in MongoURI
	PostgresURI         string // Optional; audit events go to the log when empty
	RedisURI            string
	Port                string
	Host                string
	Environment         string // ENV: production, development, etc.
	LogLevel            string
	AllowedOrigins      []string // CORS: from ALLOWED_ORIGINS or FRONTEND_URL(s)
	TrustProxy          bool     // Honour X-Forwarded-For / X-Real-IP for client IPs
	RequireAuth         bool
	SessionTTL          time.Duration
	ReportTimezone      string
	ReportFolder        string
	CloudinaryName      string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
}

func Load() *Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("ENV", "development")
	v.SetDefault("PORT", "8080")
	v.SetDefault("HOST", "http://localhost:8080")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017/cg_portal_feedback")
	v.SetDefault("REDIS_URI", "redis://localhost:6379/0")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("FRONTEND_URL", "http://localhost:3000")
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("REPORT_TIMEZONE", "Asia/Kolkata")
	v.SetDefault("REPORT_FOLDER", "cg-portal/reports")

	env := strings.ToLower(strings.TrimSpace(v.GetString("ENV")))

	mongoURI := v.GetString("MONGODB_URI")
	if mongoURI == "" {
		mongoURI = v.GetString("MONGO_URI")
	}

	// Auth is enforced in production unless REQUIRE_AUTH says otherwise
	requireAuth := env == "production"
	if v.IsSet("REQUIRE_AUTH") {
		requireAuth = v.GetBool("REQUIRE_AUTH")
	}

	sessionTTL := v.GetDuration("SESSION_TTL")
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}

	host := v.GetString("HOST")

	return &Config{
		MongoURI:            mongoURI,
		MongoDatabase:       v.GetString("MONGODB_DATABASE"),
		PostgresURI:         v.GetString("POSTGRES_URI"),
		RedisURI:            v.GetString("REDIS_URI"),
		Port:                v.GetString("PORT"),
		Host:                host,
		Environment:         env,
		LogLevel:            v.GetString("LOG_LEVEL"),
		AllowedOrigins:      resolveOrigins(v, host),
		TrustProxy:          v.GetBool("TRUST_PROXY"),
		RequireAuth:         requireAuth,
		SessionTTL:          sessionTTL,
		ReportTimezone:      v.GetString("REPORT_TIMEZONE"),
		ReportFolder:        v.GetString("REPORT_FOLDER"),
		CloudinaryName:      v.GetString("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:    v.GetString("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret: v.GetString("CLOUDINARY_API_SECRET"),
	}
}

// resolveOrigins builds the CORS allow-list. ALLOWED_ORIGINS wins; otherwise
// the FRONTEND_URL variables are used, plus the apex and www origins of HOST.
func resolveOrigins(v *viper.Viper, host string) []string {
	allowedOrigins := parseOrigins(v.GetString("ALLOWED_ORIGINS"))
	if len(allowedOrigins) > 0 {
		return allowedOrigins
	}

	for _, key := range []string{"FRONTEND_URL", "FRONTEND_URL_2", "FRONTEND_URL_3"} {
		if u := strings.TrimSpace(v.GetString(key)); u != "" {
			allowedOrigins = append(allowedOrigins, u)
		}
	}

	hostname := bareHost(host)
	if hostname != "" && hostname != "localhost" {
		parts := strings.Split(hostname, ".")
		if len(parts) >= 2 {
			domain := strings.Join(parts[1:], ".")
			for _, origin := range []string{"https://" + domain, "https://www." + domain} {
				if !containsOrigin(allowedOrigins, origin) {
					allowedOrigins = append(allowedOrigins, origin)
				}
			}
		}
	}
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000"}
	}
	return allowedOrigins
}

// bareHost strips scheme, path and port from a HOST value.
func bareHost(host string) string {
	for _, prefix := range []string{"https://", "http://"} {
		host = strings.TrimPrefix(host, prefix)
	}
	if idx := strings.Index(host, "/"); idx != -1 {
		host = host[:idx]
	}
	if idx := strings.Index(host, ":"); idx != -1 {
		host = host[:idx]
	}
	return strings.TrimSpace(host)
}

func parseOrigins(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func containsOrigin(list []string, o string) bool {
	o = strings.TrimSpace(strings.ToLower(o))
	for _, v := range list {
		if strings.TrimSpace(strings.ToLower(v)) == o {
			return true
		}
	}
	return false
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return strings.ToLower(strings.TrimSpace(c.Environment)) == "production"
}

// CloudinaryEnabled reports whether all Cloudinary credentials are present.
func (c *Config) CloudinaryEnabled() bool {
	return c.CloudinaryName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}
