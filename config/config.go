// Package config loads kpdb settings from a TOML file.
//
//	key_hex = "00112233..."              # or
//	key_file = "/run/secrets/kpdb.key"   # "-" means stdin
//	verify = true
//	padding_size = 10
//	log_dir = "/var/log/kpdb"
//	verbose = false
//
// The authentication key can also be provided in KPDB_KEY environment
// variable (hex), which takes precedence over the file.
package config

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/kjk/kpdb"
	"github.com/kjk/kpdb/log"
)

// EnvKey is the name of environment variable with hex-encoded key
const EnvKey = "KPDB_KEY"

type Config struct {
	KeyHex      string `toml:"key_hex"`
	KeyFile     string `toml:"key_file"`
	Verify      bool   `toml:"verify"`
	PaddingSize uint64 `toml:"padding_size"`
	LogDir      string `toml:"log_dir"`
	Verbose     bool   `toml:"verbose"`

	// for tests
	getenv func(string) string
	stdin  io.Reader
}

func checkUndecoded(md toml.MetaData) error {
	undecoded := md.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}
	var keys []string
	for _, k := range undecoded {
		keys = append(keys, k.String())
	}
	sort.Strings(keys)
	return fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
}

// Load reads config from a TOML file
func Load(path string) (*Config, error) {
	var c Config
	md, err := toml.DecodeFile(path, &c)
	if err != nil {
		return nil, fmt.Errorf("loading config '%s': %w", path, err)
	}
	if err = checkUndecoded(md); err != nil {
		return nil, fmt.Errorf("loading config '%s': %w", path, err)
	}
	return &c, nil
}

// Parse parses TOML config
func Parse(d []byte) (*Config, error) {
	var c Config
	md, err := toml.Decode(string(d), &c)
	if err != nil {
		return nil, err
	}
	if err = checkUndecoded(md); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) env(name string) string {
	if c.getenv != nil {
		return c.getenv(name)
	}
	return os.Getenv(name)
}

func (c *Config) readKeyFile() ([]byte, error) {
	if c.KeyFile != "-" {
		return os.ReadFile(c.KeyFile)
	}
	in := c.stdin
	if in == nil {
		in = os.Stdin
	}
	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return nil, fmt.Errorf("stdin is empty")
	}
	return scanner.Bytes(), nil
}

// ResolveKey returns the authentication key. In order of precedence:
// KPDB_KEY environment variable (hex), key_hex, key_file (raw content,
// surrounding whitespace trimmed). Returns nil key if none is configured
func (c *Config) ResolveKey() (kpdb.Key, error) {
	if s := c.env(EnvKey); s != "" {
		key, err := kpdb.ParseKeyHex(s)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvKey, err)
		}
		return key, nil
	}
	if c.KeyHex != "" {
		key, err := kpdb.ParseKeyHex(c.KeyHex)
		if err != nil {
			return nil, fmt.Errorf("key_hex: %w", err)
		}
		return key, nil
	}
	if c.KeyFile != "" {
		d, err := c.readKeyFile()
		if err != nil {
			return nil, fmt.Errorf("key_file: %w", err)
		}
		key, err := kpdb.NewKey(bytes.TrimSpace(d))
		if err != nil {
			return nil, fmt.Errorf("key_file '%s': %w", c.KeyFile, err)
		}
		return key, nil
	}
	return nil, nil
}

// Options returns kpdb.Options for this config
func (c *Config) Options() (*kpdb.Options, error) {
	key, err := c.ResolveKey()
	if err != nil {
		return nil, err
	}
	if c.Verify && len(key) == 0 {
		return nil, fmt.Errorf("%w: verify requires a key", kpdb.ErrNoKey)
	}
	if c.PaddingSize > kpdb.MaxPaddingSize {
		return nil, fmt.Errorf("padding_size %d is bigger than %d", c.PaddingSize, kpdb.MaxPaddingSize)
	}
	return &kpdb.Options{
		Key:         key,
		Verify:      c.Verify,
		PaddingSize: c.PaddingSize,
	}, nil
}

// InitLog configures logging
func (c *Config) InitLog() {
	log.Verbose = c.Verbose
	if c.LogDir != "" {
		log.Init(&log.Config{Dir: c.LogDir})
	}
}
