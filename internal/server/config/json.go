package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/reforest/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations use
// timex.Duration so both "15m" and integer nanoseconds are accepted.
type JsonConfig struct {
	DatabaseDSN   string         `json:"database_dsn"`
	SecretKey     string         `json:"secret_key"`
	TokenValidity timex.Duration `json:"token_validity"`

	S3AccessKey      string         `json:"s3_access_key"`
	S3SecretKey      string         `json:"s3_secret_key"`
	S3Bucket         string         `json:"s3_bucket"`
	S3Region         string         `json:"s3_region"`
	S3BaseEndpoint   string         `json:"s3_base_endpoint"`
	PhotoURLValidity timex.Duration `json:"photo_url_validity"`

	LogBackend string `json:"log_backend"`
	LogLevel   string `json:"log_level"`
	LogFormat  string `json:"log_format"`

	ZoneSearchRadiusKm float64 `json:"zone_search_radius_km"`
	ZoneMinMembers     int     `json:"zone_min_members"`
	ZoneToleranceKm    float64 `json:"zone_tolerance_km"`

	DefaultPlantingPoints int    `json:"default_planting_points"`
	VerifierMinLevel      int    `json:"verifier_min_level"`
	SpeciesRatesFile      string `json:"species_rates_file"`

	ImpactRefreshInterval timex.Duration `json:"impact_refresh_interval"`
	ZoneRebuildInterval   timex.Duration `json:"zone_rebuild_interval"`
}

func toJSON(c *Config) *JsonConfig {
	return &JsonConfig{
		DatabaseDSN:           c.DatabaseDSN,
		SecretKey:             c.SecretKey,
		TokenValidity:         timex.Duration{Duration: c.TokenValidity},
		S3AccessKey:           c.S3AccessKey,
		S3SecretKey:           c.S3SecretKey,
		S3Bucket:              c.S3Bucket,
		S3Region:              c.S3Region,
		S3BaseEndpoint:        c.S3BaseEndpoint,
		PhotoURLValidity:      timex.Duration{Duration: c.PhotoURLValidity},
		LogBackend:            c.LogBackend,
		LogLevel:              c.LogLevel,
		LogFormat:             c.LogFormat,
		ZoneSearchRadiusKm:    c.ZoneSearchRadiusKm,
		ZoneMinMembers:        c.ZoneMinMembers,
		ZoneToleranceKm:       c.ZoneToleranceKm,
		DefaultPlantingPoints: c.DefaultPlantingPoints,
		VerifierMinLevel:      c.VerifierMinLevel,
		SpeciesRatesFile:      c.SpeciesRatesFile,
		ImpactRefreshInterval: timex.Duration{Duration: c.ImpactRefreshInterval},
		ZoneRebuildInterval:   timex.Duration{Duration: c.ZoneRebuildInterval},
	}
}

func (j *JsonConfig) copyTo(c *Config) {
	c.DatabaseDSN = j.DatabaseDSN
	c.SecretKey = j.SecretKey
	c.TokenValidity = j.TokenValidity.Duration
	c.S3AccessKey = j.S3AccessKey
	c.S3SecretKey = j.S3SecretKey
	c.S3Bucket = j.S3Bucket
	c.S3Region = j.S3Region
	c.S3BaseEndpoint = j.S3BaseEndpoint
	c.PhotoURLValidity = j.PhotoURLValidity.Duration
	c.LogBackend = j.LogBackend
	c.LogLevel = j.LogLevel
	c.LogFormat = j.LogFormat
	c.ZoneSearchRadiusKm = j.ZoneSearchRadiusKm
	c.ZoneMinMembers = j.ZoneMinMembers
	c.ZoneToleranceKm = j.ZoneToleranceKm
	c.DefaultPlantingPoints = j.DefaultPlantingPoints
	c.VerifierMinLevel = j.VerifierMinLevel
	c.SpeciesRatesFile = j.SpeciesRatesFile
	c.ImpactRefreshInterval = j.ImpactRefreshInterval.Duration
	c.ZoneRebuildInterval = j.ZoneRebuildInterval.Duration
}

// applyJSON overlays the keys present in the file onto config. Keys the file
// leaves out keep their current value.
func applyJSON(config *Config, path string) error {
	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := toJSON(config)
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	c.copyTo(config)
	return nil
}
