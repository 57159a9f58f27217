// Package config loads the service configuration from command line
// flags, environment variables, an optional JSON file and built-in
// defaults, in that order of priority.
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/thoas/go-funk"
)

var allowedLogLevels = []string{"debug", "info", "warn", "error", "dpanic", "panic", "fatal"}

// Config holds every tunable of the service.
type Config struct {
	RunAddr             string        `env:"SERVER_ADDRESS" validate:"hostname_port"`
	FilesBaseURL        string        `env:"FILES_BASE_URL" validate:"url"`
	LogLevel            string        `env:"LOG_LEVEL" validate:"loglevel"`
	DBFileName          string        `env:"FILE_STORAGE_PATH" validate:"filepath"`
	DatabaseDSN         string        `env:"DATABASE_DSN"`
	DBConnectionTimeout time.Duration `env:"DB_CONNECTION_TIMEOUT"`
	MigrationsDir       string        `env:"MIGRATIONS_DIR"`

	JWTSecretKey string        `env:"JWT_SECRET_KEY" validate:"required,min=16"`
	JWTExpiresIn time.Duration `env:"JWT_EXPIRES_IN" validate:"gt=0"`
	BcryptCost   int           `env:"BCRYPT_COST" validate:"min=4,max=31"`

	UploadDirectory      string        `env:"UPLOAD_DIRECTORY"`
	MaxAvatarSize        int64         `env:"MAX_AVATAR_SIZE" validate:"gt=0"`
	RemoverQueueCapacity int           `env:"REMOVER_QUEUE_CAPACITY" validate:"gt=0"`
	RemoverFlushInterval time.Duration `env:"REMOVER_FLUSH_INTERVAL" validate:"gt=0"`

	S3Bucket       string `env:"S3_BUCKET"`
	S3Region       string `env:"S3_REGION"`
	S3BaseEndpoint string `env:"S3_BASE_ENDPOINT"`
	S3AccessKey    string `env:"S3_ACCESS_KEY"`
	S3SecretKey    string `env:"S3_SECRET_KEY"`

	TrustedSubnet     string        `env:"TRUSTED_SUBNET" validate:"omitempty,cidr"`
	ReadHeaderTimeout time.Duration `env:"READ_HEADER_TIMEOUT" validate:"gt=0"`

	ConfigFile string `env:"CONFIG"`
}

// jsonConfig mirrors Config for the JSON file. Durations are written
// the way time.ParseDuration reads them.
type jsonConfig struct {
	RunAddr              string `json:"server_address"`
	FilesBaseURL         string `json:"files_base_url"`
	LogLevel             string `json:"log_level"`
	DBFileName           string `json:"file_storage_path"`
	DatabaseDSN          string `json:"database_dsn"`
	DBConnectionTimeout  string `json:"db_connection_timeout"`
	MigrationsDir        string `json:"migrations_dir"`
	JWTSecretKey         string `json:"jwt_secret_key"`
	JWTExpiresIn         string `json:"jwt_expires_in"`
	BcryptCost           int    `json:"bcrypt_cost"`
	UploadDirectory      string `json:"upload_directory"`
	MaxAvatarSize        int64  `json:"max_avatar_size"`
	RemoverQueueCapacity int    `json:"remover_queue_capacity"`
	RemoverFlushInterval string `json:"remover_flush_interval"`
	S3Bucket             string `json:"s3_bucket"`
	S3Region             string `json:"s3_region"`
	S3BaseEndpoint       string `json:"s3_base_endpoint"`
	S3AccessKey          string `json:"s3_access_key"`
	S3SecretKey          string `json:"s3_secret_key"`
	TrustedSubnet        string `json:"trusted_subnet"`
	ReadHeaderTimeout    string `json:"read_header_timeout"`
}

var defaultConfig = Config{
	RunAddr:              ":8080",
	FilesBaseURL:         "http://localhost:8080/files",
	LogLevel:             "info",
	DBConnectionTimeout:  10 * time.Second,
	MigrationsDir:        "cmd/server/migrations",
	JWTExpiresIn:         24 * time.Hour,
	BcryptCost:           10,
	UploadDirectory:      "tmp/uploads",
	MaxAvatarSize:        5 << 20,
	RemoverQueueCapacity: 100,
	RemoverFlushInterval: time.Second,
	ReadHeaderTimeout:    5 * time.Second,
}

type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
}

// WithDisableFlagsParsing makes New ignore the command line.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// New builds and validates the configuration.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{
		disableFlagsParsing: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	err := godotenv.Load()
	if err != nil {
		log.Printf("Unable to load .env file: %v", err)
	}

	fromFlags := &Config{}
	setFlags := map[string]bool{}
	if !options.disableFlagsParsing {
		setFlags, err = parseFlags(fromFlags, os.Args[1:])
		if err != nil {
			return nil, err
		}
	}

	values := &Config{}

	configFile := os.Getenv("CONFIG")
	if setFlags["c"] {
		configFile = fromFlags.ConfigFile
	}
	if configFile != "" {
		if err := values.loadJSON(configFile); err != nil {
			return nil, err
		}
	}

	if err := env.Parse(values); err != nil {
		return nil, fmt.Errorf("in internal/config/config.go/New(): error while `env.Parse()` calling: %w", err)
	}

	values.applyFlags(fromFlags, setFlags)

	applyDefaults(values, defaultConfig)

	if err := values.validate(); err != nil {
		return nil, err
	}

	return values, nil
}

// UseS3 reports whether blobs go to S3 rather than the upload directory.
func (c *Config) UseS3() bool {
	return c.S3Bucket != ""
}

func parseFlags(values *Config, arguments []string) (map[string]bool, error) {
	flagSet := flag.NewFlagSet("server", flag.ContinueOnError)
	flagSet.StringVar(&values.RunAddr, "a", "", "address and port to run server")
	flagSet.StringVar(&values.FilesBaseURL, "b", "", "base URL the uploaded files are served from")
	flagSet.StringVar(&values.LogLevel, "l", "", "logger level")
	flagSet.StringVar(&values.DBFileName, "f", "", "JSON file name with database")
	flagSet.StringVar(&values.DatabaseDSN, "d", "", "A string with the database connection details")
	flagSet.StringVar(&values.JWTSecretKey, "k", "", "secret key used to sign JWT tokens")
	flagSet.StringVar(&values.UploadDirectory, "u", "", "directory the uploaded files are stored in")
	flagSet.StringVar(&values.TrustedSubnet, "t", "", "CIDR allowed to read the internal stats")
	flagSet.StringVar(&values.ConfigFile, "c", "", "path to the JSON configuration file")

	if err := flagSet.Parse(arguments); err != nil {
		return nil, fmt.Errorf("in internal/config/config.go/parseFlags(): error while `flagSet.Parse()` calling: %w", err)
	}

	setFlags := map[string]bool{}
	flagSet.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	return setFlags, nil
}

func (c *Config) applyFlags(fromFlags *Config, setFlags map[string]bool) {
	overrides := map[string]func(){
		"a": func() { c.RunAddr = fromFlags.RunAddr },
		"b": func() { c.FilesBaseURL = fromFlags.FilesBaseURL },
		"l": func() { c.LogLevel = fromFlags.LogLevel },
		"f": func() { c.DBFileName = fromFlags.DBFileName },
		"d": func() { c.DatabaseDSN = fromFlags.DatabaseDSN },
		"k": func() { c.JWTSecretKey = fromFlags.JWTSecretKey },
		"u": func() { c.UploadDirectory = fromFlags.UploadDirectory },
		"t": func() { c.TrustedSubnet = fromFlags.TrustedSubnet },
		"c": func() { c.ConfigFile = fromFlags.ConfigFile },
	}
	for name, override := range overrides {
		if setFlags[name] {
			override()
		}
	}
}

func (c *Config) loadJSON(fileName string) error {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return fmt.Errorf("in internal/config/config.go/loadJSON(): error while `os.ReadFile()` calling: %w", err)
	}

	var fromFile jsonConfig
	if err := json.Unmarshal(data, &fromFile); err != nil {
		return fmt.Errorf("in internal/config/config.go/loadJSON(): error while `json.Unmarshal()` calling: %w", err)
	}

	durations := []struct {
		raw    string
		target *time.Duration
	}{
		{fromFile.DBConnectionTimeout, &c.DBConnectionTimeout},
		{fromFile.JWTExpiresIn, &c.JWTExpiresIn},
		{fromFile.RemoverFlushInterval, &c.RemoverFlushInterval},
		{fromFile.ReadHeaderTimeout, &c.ReadHeaderTimeout},
	}
	for _, duration := range durations {
		if duration.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(duration.raw)
		if err != nil {
			return fmt.Errorf("in internal/config/config.go/loadJSON(): error while `time.ParseDuration()` calling: %w", err)
		}
		*duration.target = parsed
	}

	c.RunAddr = fromFile.RunAddr
	c.FilesBaseURL = fromFile.FilesBaseURL
	c.LogLevel = fromFile.LogLevel
	c.DBFileName = fromFile.DBFileName
	c.DatabaseDSN = fromFile.DatabaseDSN
	c.MigrationsDir = fromFile.MigrationsDir
	c.JWTSecretKey = fromFile.JWTSecretKey
	c.BcryptCost = fromFile.BcryptCost
	c.UploadDirectory = fromFile.UploadDirectory
	c.MaxAvatarSize = fromFile.MaxAvatarSize
	c.RemoverQueueCapacity = fromFile.RemoverQueueCapacity
	c.S3Bucket = fromFile.S3Bucket
	c.S3Region = fromFile.S3Region
	c.S3BaseEndpoint = fromFile.S3BaseEndpoint
	c.S3AccessKey = fromFile.S3AccessKey
	c.S3SecretKey = fromFile.S3SecretKey
	c.TrustedSubnet = fromFile.TrustedSubnet
	c.ConfigFile = fileName

	return nil
}

// applyDefaults fills every zero field of values from defaults.
func applyDefaults(values *Config, defaults Config) {
	if values.RunAddr == "" {
		values.RunAddr = defaults.RunAddr
	}
	if values.FilesBaseURL == "" {
		values.FilesBaseURL = defaults.FilesBaseURL
	}
	if values.LogLevel == "" {
		values.LogLevel = defaults.LogLevel
	}
	if values.DBConnectionTimeout == 0 {
		values.DBConnectionTimeout = defaults.DBConnectionTimeout
	}
	if values.MigrationsDir == "" {
		values.MigrationsDir = defaults.MigrationsDir
	}
	if values.JWTExpiresIn == 0 {
		values.JWTExpiresIn = defaults.JWTExpiresIn
	}
	if values.BcryptCost == 0 {
		values.BcryptCost = defaults.BcryptCost
	}
	if values.UploadDirectory == "" {
		values.UploadDirectory = defaults.UploadDirectory
	}
	if values.MaxAvatarSize == 0 {
		values.MaxAvatarSize = defaults.MaxAvatarSize
	}
	if values.RemoverQueueCapacity == 0 {
		values.RemoverQueueCapacity = defaults.RemoverQueueCapacity
	}
	if values.RemoverFlushInterval == 0 {
		values.RemoverFlushInterval = defaults.RemoverFlushInterval
	}
	if values.ReadHeaderTimeout == 0 {
		values.ReadHeaderTimeout = defaults.ReadHeaderTimeout
	}
}

func validateFilePath(fieldLevel validator.FieldLevel) bool {
	path := fieldLevel.Field().String()
	_, err := os.Stat(path)

	return err == nil || os.IsNotExist(err)
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	return funk.ContainsString(allowedLogLevels, fieldLevel.Field().String())
}

func (c *Config) validate() error {
	validate := validator.New()

	err := validate.RegisterValidation("loglevel", validateLogLevel)
	if err != nil {
		return err
	}

	err = validate.RegisterValidation("filepath", validateFilePath)
	if err != nil {
		return err
	}

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("in internal/config/config.go/validate(): error while `validate.Struct()` calling: %w", err)
	}

	return nil
}
