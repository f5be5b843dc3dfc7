package config

import "github.com/spf13/pflag"

// Flags binds the configuration flags to a FlagSet. Only flags the user set
// explicitly override the other sources.
type Flags struct {
	fs *pflag.FlagSet
	v  Config
}

type binding struct {
	name  string
	apply func(dst, src *Config)
}

var bindings = []binding{
	{"database-dsn", func(d, s *Config) { d.DatabaseDSN = s.DatabaseDSN }},
	{"secret-key", func(d, s *Config) { d.SecretKey = s.SecretKey }},
	{"token-validity", func(d, s *Config) { d.TokenValidity = s.TokenValidity }},
	{"s3-access-key", func(d, s *Config) { d.S3AccessKey = s.S3AccessKey }},
	{"s3-secret-key", func(d, s *Config) { d.S3SecretKey = s.S3SecretKey }},
	{"s3-bucket", func(d, s *Config) { d.S3Bucket = s.S3Bucket }},
	{"s3-region", func(d, s *Config) { d.S3Region = s.S3Region }},
	{"s3-endpoint", func(d, s *Config) { d.S3BaseEndpoint = s.S3BaseEndpoint }},
	{"photo-url-validity", func(d, s *Config) { d.PhotoURLValidity = s.PhotoURLValidity }},
	{"log-backend", func(d, s *Config) { d.LogBackend = s.LogBackend }},
	{"log-level", func(d, s *Config) { d.LogLevel = s.LogLevel }},
	{"log-format", func(d, s *Config) { d.LogFormat = s.LogFormat }},
	{"zone-radius", func(d, s *Config) { d.ZoneSearchRadiusKm = s.ZoneSearchRadiusKm }},
	{"zone-min-members", func(d, s *Config) { d.ZoneMinMembers = s.ZoneMinMembers }},
	{"zone-tolerance", func(d, s *Config) { d.ZoneToleranceKm = s.ZoneToleranceKm }},
	{"planting-points", func(d, s *Config) { d.DefaultPlantingPoints = s.DefaultPlantingPoints }},
	{"verifier-min-level", func(d, s *Config) { d.VerifierMinLevel = s.VerifierMinLevel }},
	{"species-rates", func(d, s *Config) { d.SpeciesRatesFile = s.SpeciesRatesFile }},
	{"impact-refresh-interval", func(d, s *Config) { d.ImpactRefreshInterval = s.ImpactRefreshInterval }},
	{"zone-rebuild-interval", func(d, s *Config) { d.ZoneRebuildInterval = s.ZoneRebuildInterval }},
}

// RegisterFlags adds the configuration flags to fs, with the defaults as
// their default values.
func RegisterFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	f.v.LoadDefaults()
	v := &f.v

	fs.StringVarP(&v.DatabaseDSN, "database-dsn", "d", v.DatabaseDSN, "PostgreSQL DSN")
	fs.StringVarP(&v.SecretKey, "secret-key", "s", v.SecretKey, "HMAC key for capability tokens")
	fs.DurationVar(&v.TokenValidity, "token-validity", v.TokenValidity, "capability token lifetime")

	fs.StringVar(&v.S3AccessKey, "s3-access-key", v.S3AccessKey, "S3 access key")
	fs.StringVar(&v.S3SecretKey, "s3-secret-key", v.S3SecretKey, "S3 secret key")
	fs.StringVar(&v.S3Bucket, "s3-bucket", v.S3Bucket, "S3 bucket for photos")
	fs.StringVar(&v.S3Region, "s3-region", v.S3Region, "S3 region")
	fs.StringVar(&v.S3BaseEndpoint, "s3-endpoint", v.S3BaseEndpoint, "S3 base endpoint")
	fs.DurationVar(&v.PhotoURLValidity, "photo-url-validity", v.PhotoURLValidity, "presigned photo URL lifetime")

	fs.StringVar(&v.LogBackend, "log-backend", v.LogBackend, "logger backend: slog or zap")
	fs.StringVar(&v.LogLevel, "log-level", v.LogLevel, "log level: debug, info, warn, error")
	fs.StringVar(&v.LogFormat, "log-format", v.LogFormat, "log format: json or text")

	fs.Float64Var(&v.ZoneSearchRadiusKm, "zone-radius", v.ZoneSearchRadiusKm, "zone search radius, km")
	fs.IntVar(&v.ZoneMinMembers, "zone-min-members", v.ZoneMinMembers, "minimum plantings to form a zone")
	fs.Float64Var(&v.ZoneToleranceKm, "zone-tolerance", v.ZoneToleranceKm, "distance within which an existing zone absorbs a group, km")

	fs.IntVar(&v.DefaultPlantingPoints, "planting-points", v.DefaultPlantingPoints, "points awarded for a validated planting")
	fs.IntVar(&v.VerifierMinLevel, "verifier-min-level", v.VerifierMinLevel, "level that unlocks verification")
	fs.StringVar(&v.SpeciesRatesFile, "species-rates", v.SpeciesRatesFile, "YAML file with species oxygen rates")

	fs.DurationVar(&v.ImpactRefreshInterval, "impact-refresh-interval", v.ImpactRefreshInterval, "impact refresh period, 0 disables")
	fs.DurationVar(&v.ZoneRebuildInterval, "zone-rebuild-interval", v.ZoneRebuildInterval, "zone rebuild period, 0 disables")

	return f
}

func (f *Flags) apply(c *Config) {
	for _, b := range bindings {
		if f.fs.Changed(b.name) {
			b.apply(c, &f.v)
		}
	}
}
