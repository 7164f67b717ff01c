package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/signvault/internal/flagx"
	"github.com/dmitrijs2005/signvault/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "1s" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON configuration
// files. After unmarshalling, its fields are copied into the runtime Config
// struct which uses time.Duration.
type JsonConfig struct {
	DatabaseDSN     string         `json:"database_dsn"`
	StorageDir      string         `json:"storage_dir"`
	LinkBaseURL     string         `json:"link_base_url"`
	EnvelopeTTL     timex.Duration `json:"envelope_ttl"`
	ConvertBinary   string         `json:"convert_binary"`
	ConvertTimeout  timex.Duration `json:"convert_timeout"`
	ConvertInterval timex.Duration `json:"convert_interval"`
	ExpireInterval  timex.Duration `json:"expire_interval"`
	PurgeHour       int            `json:"purge_hour"`
	RetentionDays   int            `json:"retention_days"`
	SMTPHost        string         `json:"smtp_host"`
	SMTPPort        int            `json:"smtp_port"`
	SMTPFrom        string         `json:"smtp_from"`
	SMTPUser        string         `json:"smtp_user"`
	SMTPPassword    string         `json:"smtp_password"`
	SigningCertFile string         `json:"signing_cert_file"`
	SigningKeyFile  string         `json:"signing_key_file"`
	S3RootUser      string         `json:"s3_root_user"`
	S3RootPassword  string         `json:"s3_root_password"`
	S3Bucket        string         `json:"s3_bucket"`
	S3Region        string         `json:"s3_region"`
	S3BaseEndpoint  string         `json:"s3_base_endpoint"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The lookup order for the JSON file path is:
//
//	The -c or -config command-line flags.
//	If it is not set, no JSON file is loaded.
//
// If the file path is found, parseJson attempts to read and unmarshal it
// into a JsonConfig. The resulting values are copied into the target Config.
// If the file cannot be read or contains invalid JSON, the function panics.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	config.DatabaseDSN = c.DatabaseDSN
	config.StorageDir = c.StorageDir
	config.LinkBaseURL = c.LinkBaseURL
	config.EnvelopeTTL = time.Duration(c.EnvelopeTTL.Duration)
	config.ConvertBinary = c.ConvertBinary
	config.ConvertTimeout = time.Duration(c.ConvertTimeout.Duration)
	config.ConvertInterval = time.Duration(c.ConvertInterval.Duration)
	config.ExpireInterval = time.Duration(c.ExpireInterval.Duration)
	config.PurgeHour = c.PurgeHour
	config.RetentionDays = c.RetentionDays
	config.SMTPHost = c.SMTPHost
	config.SMTPPort = c.SMTPPort
	config.SMTPFrom = c.SMTPFrom
	config.SMTPUser = c.SMTPUser
	config.SMTPPassword = c.SMTPPassword
	config.SigningCertFile = c.SigningCertFile
	config.SigningKeyFile = c.SigningKeyFile
	config.S3RootUser = c.S3RootUser
	config.S3RootPassword = c.S3RootPassword
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
}
