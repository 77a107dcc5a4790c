package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix           = "ATELIER"
	defaultHTTPAddress  = "0.0.0.0:8080"
	defaultStoreBackend = StoreBackendFile
	defaultDataDir      = "data"
	defaultDatabasePath = "atelier.db"
	defaultLogLevel     = "info"
	defaultMailPort     = 587
)

// Supported document store backends.
const (
	StoreBackendFile   = "file"
	StoreBackendSQLite = "sqlite"
	StoreBackendBlob   = "blob"
)

// BlobConfig configures the S3-compatible object store backend.
type BlobConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// AssetsConfig configures the external image-hosting service. Leaving it
// empty disables attachment hosting; intake then records null file URLs.
type AssetsConfig struct {
	CloudName    string
	UploadPreset string
	Endpoint     string
}

// MailConfig configures the outbound notification relay. Leaving it empty
// degrades notification to a logged failure.
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress  string
	SecretToken  string
	LogLevel     string
	StoreBackend string
	DataDir      string
	DatabasePath string
	Blob         BlobConfig
	Assets       AssetsConfig
	Mail         MailConfig
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("store.backend", defaultStoreBackend)
	configViper.SetDefault("store.file.dir", defaultDataDir)
	configViper.SetDefault("store.sqlite.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("mail.port", defaultMailPort)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:  configViper.GetString("http.address"),
		SecretToken:  configViper.GetString("auth.secret_token"),
		LogLevel:     configViper.GetString("log.level"),
		StoreBackend: configViper.GetString("store.backend"),
		DataDir:      configViper.GetString("store.file.dir"),
		DatabasePath: configViper.GetString("store.sqlite.path"),
		Blob: BlobConfig{
			Endpoint:  configViper.GetString("store.blob.endpoint"),
			AccessKey: configViper.GetString("store.blob.access_key"),
			SecretKey: configViper.GetString("store.blob.secret_key"),
			Bucket:    configViper.GetString("store.blob.bucket"),
			UseSSL:    configViper.GetBool("store.blob.use_ssl"),
		},
		Assets: AssetsConfig{
			CloudName:    configViper.GetString("assets.cloud_name"),
			UploadPreset: configViper.GetString("assets.upload_preset"),
			Endpoint:     configViper.GetString("assets.endpoint"),
		},
		Mail: MailConfig{
			Host:     configViper.GetString("mail.host"),
			Port:     configViper.GetInt("mail.port"),
			Username: configViper.GetString("mail.username"),
			Password: configViper.GetString("mail.password"),
			From:     configViper.GetString("mail.from"),
			To:       configViper.GetString("mail.to"),
		},
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.SecretToken) == "" {
		return fmt.Errorf("auth.secret_token is required")
	}

	switch c.StoreBackend {
	case StoreBackendFile:
		if strings.TrimSpace(c.DataDir) == "" {
			return fmt.Errorf("store.file.dir is required for the file backend")
		}
	case StoreBackendSQLite:
		if strings.TrimSpace(c.DatabasePath) == "" {
			return fmt.Errorf("store.sqlite.path is required for the sqlite backend")
		}
	case StoreBackendBlob:
		if strings.TrimSpace(c.Blob.Endpoint) == "" || strings.TrimSpace(c.Blob.Bucket) == "" {
			return fmt.Errorf("store.blob.endpoint and store.blob.bucket are required for the blob backend")
		}
	default:
		return fmt.Errorf("store.backend must be one of %s, %s, %s", StoreBackendFile, StoreBackendSQLite, StoreBackendBlob)
	}

	return nil
}
