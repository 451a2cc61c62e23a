// Package config provides functionality for managing configuration options
// for the application using command-line flags, environment variables and an
// optional JSON config file.
//
// Values are applied in order: defaults, config file, flags, environment.
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Options holds the configuration values for the application.
type Options struct {
	// Port defines the server's listening address (ip:port or :port).
	Port string

	// DatabaseDSN selects the PostgreSQL backend when set.
	DatabaseDSN string

	// FilePath is the path to the storage file for persistent data.
	FilePath string

	// DynamoTable selects the DynamoDB backend when set.
	DynamoTable    string
	DynamoRegion   string
	DynamoEndpoint string

	// ValidationPolicy lists URL checks in the order they run.
	ValidationPolicy []string

	// DNSTimeout bounds a single host lookup of the resolve check.
	DNSTimeout time.Duration

	ViewsDir  string
	PublicDir string

	// TrustedSubnet is the CIDR allowed to read internal stats.
	TrustedSubnet string

	LogLevel string

	// EnablePprof indicates whether to enable pprof for performance profiling.
	EnablePprof bool

	// EnableHTTPS indicates whether to enable https.
	EnableHTTPS bool

	// Config is the path of the JSON config file.
	Config string
}

// fileConfig is the JSON config file layout. Empty fields keep the current value.
type fileConfig struct {
	Port             string `json:"server_address"`
	DatabaseDSN      string `json:"database_dsn"`
	FilePath         string `json:"file_storage_path"`
	DynamoTable      string `json:"dynamodb_table"`
	DynamoRegion     string `json:"aws_region"`
	DynamoEndpoint   string `json:"dynamodb_endpoint"`
	ValidationPolicy string `json:"validation_policy"`
	DNSTimeout       string `json:"dns_timeout"`
	ViewsDir         string `json:"views_dir"`
	PublicDir        string `json:"public_dir"`
	TrustedSubnet    string `json:"trusted_subnet"`
	LogLevel         string `json:"log_level"`
	EnablePprof      bool   `json:"enable_pprof"`
	EnableHTTPS      bool   `json:"enable_https"`
}

func defaults() *Options {
	return &Options{
		Port:             ":3000",
		DynamoRegion:     "us-east-1",
		ValidationPolicy: []string{"pattern"},
		DNSTimeout:       2 * time.Second,
		ViewsDir:         "views",
		PublicDir:        "public",
		LogLevel:         "info",
	}
}

// flagSet binds every flag to o, using the current values of o as defaults.
func flagSet(o *Options, policy *string) *flag.FlagSet {
	fs := flag.NewFlagSet("shortener", flag.ContinueOnError)

	fs.StringVar(&o.Port, "a", o.Port, "run on ip:port server")
	fs.StringVar(&o.DatabaseDSN, "d", o.DatabaseDSN, "db address")
	fs.StringVar(&o.FilePath, "f", o.FilePath, "path to storage file")
	fs.StringVar(&o.DynamoTable, "dynamo-table", o.DynamoTable, "dynamodb table name")
	fs.StringVar(&o.DynamoRegion, "dynamo-region", o.DynamoRegion, "dynamodb region")
	fs.StringVar(&o.DynamoEndpoint, "dynamo-endpoint", o.DynamoEndpoint, "dynamodb endpoint override")
	fs.StringVar(policy, "v", strings.Join(o.ValidationPolicy, ","), "url validation policy (pattern,resolve)")
	fs.DurationVar(&o.DNSTimeout, "dns-timeout", o.DNSTimeout, "host lookup timeout")
	fs.StringVar(&o.ViewsDir, "views", o.ViewsDir, "directory with index.html")
	fs.StringVar(&o.PublicDir, "public", o.PublicDir, "directory with static assets")
	fs.StringVar(&o.TrustedSubnet, "t", o.TrustedSubnet, "trusted subnet (CIDR)")
	fs.StringVar(&o.LogLevel, "l", o.LogLevel, "log level")
	fs.BoolVar(&o.EnablePprof, "p", o.EnablePprof, "enable pprof")
	fs.BoolVar(&o.EnableHTTPS, "s", o.EnableHTTPS, "enable https")
	fs.StringVar(&o.Config, "c", o.Config, "path to json config file")

	return fs
}

// Parse builds Options from args (without the program name), the environment
// and the config file named by -c or CONFIG.
func Parse(args []string) (*Options, error) {
	var probe Options
	var probePolicy string
	if err := flagSet(&probe, &probePolicy).Parse(args); err != nil {
		return nil, err
	}

	path := probe.Config
	if v, ok := os.LookupEnv("CONFIG"); ok && v != "" {
		path = v
	}

	options := defaults()
	if path != "" {
		if err := loadFile(path, options); err != nil {
			return nil, err
		}
	}

	var policy string
	if err := flagSet(options, &policy).Parse(args); err != nil {
		return nil, err
	}
	options.Config = path
	options.ValidationPolicy = splitList(policy)

	if err := applyEnv(options); err != nil {
		return nil, err
	}

	options.Port = normalizeAddr(options.Port)

	return options, nil
}

func loadFile(path string, o *Options) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&o.Port, fc.Port)
	setString(&o.DatabaseDSN, fc.DatabaseDSN)
	setString(&o.FilePath, fc.FilePath)
	setString(&o.DynamoTable, fc.DynamoTable)
	setString(&o.DynamoRegion, fc.DynamoRegion)
	setString(&o.DynamoEndpoint, fc.DynamoEndpoint)
	setString(&o.ViewsDir, fc.ViewsDir)
	setString(&o.PublicDir, fc.PublicDir)
	setString(&o.TrustedSubnet, fc.TrustedSubnet)
	setString(&o.LogLevel, fc.LogLevel)

	if fc.ValidationPolicy != "" {
		o.ValidationPolicy = splitList(fc.ValidationPolicy)
	}
	if fc.DNSTimeout != "" {
		d, err := time.ParseDuration(fc.DNSTimeout)
		if err != nil {
			return fmt.Errorf("config file dns_timeout: %w", err)
		}
		o.DNSTimeout = d
	}

	o.EnablePprof = o.EnablePprof || fc.EnablePprof
	o.EnableHTTPS = o.EnableHTTPS || fc.EnableHTTPS

	return nil
}

// Override flags with environment variables if set
func applyEnv(o *Options) error {
	if port := os.Getenv("PORT"); port != "" {
		o.Port = port
	}
	if serverAddress := os.Getenv("SERVER_ADDRESS"); serverAddress != "" {
		o.Port = serverAddress
	}

	setString(&o.DatabaseDSN, os.Getenv("DATABASE_DSN"))
	setString(&o.FilePath, os.Getenv("FILE_STORAGE_PATH"))
	setString(&o.DynamoTable, os.Getenv("DYNAMODB_TABLE"))
	setString(&o.DynamoRegion, os.Getenv("AWS_REGION"))
	setString(&o.DynamoEndpoint, os.Getenv("DYNAMODB_ENDPOINT"))
	setString(&o.ViewsDir, os.Getenv("VIEWS_DIR"))
	setString(&o.PublicDir, os.Getenv("PUBLIC_DIR"))
	setString(&o.TrustedSubnet, os.Getenv("TRUSTED_SUBNET"))
	setString(&o.LogLevel, os.Getenv("LOG_LEVEL"))

	if policy := os.Getenv("VALIDATION_POLICY"); policy != "" {
		o.ValidationPolicy = splitList(policy)
	}

	if timeout := os.Getenv("DNS_TIMEOUT"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return fmt.Errorf("DNS_TIMEOUT: %w", err)
		}
		o.DNSTimeout = d
	}

	for name, dst := range map[string]*bool{
		"ENABLE_PPROF": &o.EnablePprof,
		"ENABLE_HTTPS": &o.EnableHTTPS,
	} {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = b
	}

	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// normalizeAddr turns a bare port such as "3000" into ":3000".
func normalizeAddr(addr string) string {
	if _, err := strconv.Atoi(addr); err == nil {
		return ":" + addr
	}
	return addr
}
