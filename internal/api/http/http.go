package http

// Config holds the HTTP server settings.
type Config struct {
	Port uint `mapstructure:"port"`
}
