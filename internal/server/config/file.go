package config

import (
	"strings"

	"github.com/dmitrijs2005/packkeeper/internal/flagx"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by the server,
// e.g. PACKKEEPER_DATABASE_DSN.
const EnvPrefix = "PACKKEEPER"

// parseFile overlays values from the config file named by -c/-config (JSON,
// YAML or TOML, by extension) and from PACKKEEPER_* environment variables.
// Keys that are set in neither place keep their current value.
//
// Recognised keys:
//
//	endpoint_addr_http, endpoint_addr_grpc, database_dsn,
//	s3_root_user, s3_root_password, s3_bucket, s3_region, s3_base_endpoint,
//	blob_backend, work_dir, presign_ttl ("15m"), manifest_cache_size,
//	verifier_identity, log_level
//
// A config file that cannot be read or parsed makes the function panic.
func parseFile(config *Config) {
	v := newViper()

	if path := flagx.ConfigFileFlag(); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			panic(err)
		}
	}

	setString(v, "endpoint_addr_http", &config.EndpointAddrHTTP)
	setString(v, "endpoint_addr_grpc", &config.EndpointAddrGRPC)
	setString(v, "database_dsn", &config.DatabaseDSN)
	setString(v, "s3_root_user", &config.S3RootUser)
	setString(v, "s3_root_password", &config.S3RootPassword)
	setString(v, "s3_bucket", &config.S3Bucket)
	setString(v, "s3_region", &config.S3Region)
	setString(v, "s3_base_endpoint", &config.S3BaseEndpoint)
	setString(v, "blob_backend", &config.BlobBackend)
	setString(v, "work_dir", &config.WorkDir)
	setString(v, "verifier_identity", &config.VerifierIdentity)
	setString(v, "log_level", &config.LogLevel)

	if v.IsSet("presign_ttl") {
		config.PresignTTL = v.GetDuration("presign_ttl")
	}
	if v.IsSet("manifest_cache_size") {
		config.ManifestCacheSize = v.GetInt("manifest_cache_size")
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func setString(v *viper.Viper, key string, dst *string) {
	if v.IsSet(key) {
		*dst = v.GetString(key)
	}
}
