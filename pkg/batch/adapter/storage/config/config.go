package config

// StorageConfig holds configuration for a single storage connection
// (foottraffic.adapter.storage.<name>).
type StorageConfig struct {
	Type            string `yaml:"type" validate:"required,oneof=local gcs"`
	BucketName      string `yaml:"bucket_name" validate:"required_if=Type gcs"` // Default bucket; a sub-directory for "local".
	CredentialsFile string `yaml:"credentials_file"`                           // Service account key for GCS; empty uses ADC.
	BaseDir         string `yaml:"base_dir" validate:"required_if=Type local"` // Root directory for "local".
}
