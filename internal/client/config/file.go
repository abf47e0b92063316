package config

import (
	"github.com/dmitrijs2005/packkeeper/internal/flagx"
	"github.com/spf13/viper"
)

// parseFile overlays Config with values from the file named by -c/-config.
// Keys missing from the file keep their current value. A file that cannot
// be read or parsed makes the function panic.
func parseFile(cfg *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		panic(err)
	}

	if v.IsSet("server_endpoint_addr") {
		cfg.ServerEndpointAddr = v.GetString("server_endpoint_addr")
	}
	if v.IsSet("http_base_url") {
		cfg.HTTPBaseURL = v.GetString("http_base_url")
	}
	if v.IsSet("request_timeout") {
		cfg.RequestTimeout = v.GetDuration("request_timeout")
	}
}
