package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/signvault/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   PostgreSQL DSN
//	-o string   local artifact storage directory
//	-l string   base URL for signer invite links
//	-t int      envelope expiration, hours
//	-m string   SMTP relay host
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes using
//     flagx.FilterArgs, avoiding collisions with other components.
//   - The TTL flag is accepted as an integer in hours and then converted to a
//     time.Duration value. The remaining settings are JSON-file only.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-o", "-l", "-t", "-m", "-u", "-p", "-b", "-g", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.StorageDir, "o", config.StorageDir, "artifact storage directory")
	fs.StringVar(&config.LinkBaseURL, "l", config.LinkBaseURL, "invite link base URL")

	envelopeTTL := fs.Int("t", int(config.EnvelopeTTL.Hours()), "envelope_ttl (in hours)")

	fs.StringVar(&config.SMTPHost, "m", config.SMTPHost, "SMTP relay host")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 root bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 root region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.EnvelopeTTL = time.Duration(*envelopeTTL) * time.Hour
}
