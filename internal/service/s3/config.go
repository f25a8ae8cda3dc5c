package s3

import (
	"fmt"

	"veritas/internal/config"
)

// Config addresses one bucket on an S3-compatible endpoint.
type Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// FromStoreConfig lifts the application store section into a client config.
func FromStoreConfig(sc config.StoreConfig) *Config {
	return &Config{
		Endpoint:        sc.Endpoint,
		Region:          sc.Region,
		Bucket:          sc.Bucket,
		AccessKeyID:     sc.AccessKeyID,
		SecretAccessKey: sc.SecretAccessKey,
		UsePathStyle:    sc.UsePathStyle,
	}
}

func (c *Config) Validate() error {
	if c.AccessKeyID == "" {
		return fmt.Errorf("AccessKeyID is required")
	}
	if c.SecretAccessKey == "" {
		return fmt.Errorf("SecretAccessKey is required")
	}
	if c.Bucket == "" {
		return fmt.Errorf("Bucket is required")
	}
	return nil
}
