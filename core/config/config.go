// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

/*
Package config resolves the API address and token of a client.

The configuration is layered. First the configuration file ~/.telenor-nbiot is read.
It contains lines of the form key=value, for example

	# the API endpoint
	address=https://api.nbiot.telenor.io
	token=8e1d3cbd9b3a6d2e...

Only the keys "address" and "token" are allowed. Empty lines and lines starting
with # are ignored. If the file does not exist, the default address and an empty
token are used.

Then the environment variables TELENOR_NBIOT_ADDRESS and TELENOR_NBIOT_TOKEN override
the values from the file, if they are set. A variable that is set to an empty value is
ignored and does not clear the value from the file.
*/
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joeshaw/envdecode"
	"github.com/spf13/afero"
)

const (
	// FileName is the name of the configuration file in the home directory
	FileName = ".telenor-nbiot"
	// DefaultAddress is the address of the API if nothing else is configured
	DefaultAddress = "https://api.nbiot.telenor.io"
	// AddressEnvVar overrides the address
	AddressEnvVar = "TELENOR_NBIOT_ADDRESS"
	// TokenEnvVar overrides the token
	TokenEnvVar = "TELENOR_NBIOT_TOKEN"
)

// Config holds the address and token for the API
type Config struct {
	Address string `env:"TELENOR_NBIOT_ADDRESS" description:"the address of the NB-IoT API"`
	Token   string `env:"TELENOR_NBIOT_TOKEN" description:"the API token"`
}

// FormatError is returned for a line in the configuration file that cannot be parsed
type FormatError struct {
	Path   string
	Line   int
	Text   string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s on line %d in %s: %s", e.Reason, e.Line, e.Path, e.Text)
}

// Read reads the configuration file at path from fs. A file that does not exist
// yields the default address and an empty token.
func Read(fs afero.Fs, path string) (Config, error) {
	cfg := Config{Address: DefaultAddress}

	f, err := fs.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("cannot open config file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return cfg, &FormatError{Path: path, Line: lineno, Text: line, Reason: "not a key value expression"}
		}
		switch key {
		case "address":
			cfg.Address = value
		case "token":
			cfg.Token = value
		default:
			return cfg, &FormatError{Path: path, Line: lineno, Text: line, Reason: "unknown keyword"}
		}
	}
	if err := scanner.Err(); err != nil {
		return cfg, fmt.Errorf("cannot read config file %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnvironment overrides the fields of cfg with the environment variables
// AddressEnvVar and TokenEnvVar, if they are set.
func ApplyEnvironment(cfg *Config) error {
	err := envdecode.Decode(cfg)
	if err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return fmt.Errorf("cannot decode environment: %w", err)
	}
	return nil
}

// Resolver finds the configuration file in a home directory
type Resolver struct {
	// Fs is the filesystem the configuration file is read from
	Fs afero.Fs
	// Home is the directory that contains FileName
	Home string
}

// NewOsResolver returns a resolver for the configuration file in the home directory
// of the current user.
func NewOsResolver() (Resolver, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Resolver{}, fmt.Errorf("cannot determine home directory: %w", err)
	}
	return Resolver{Fs: afero.NewOsFs(), Home: home}, nil
}

// Path returns the full path of the configuration file
func (r Resolver) Path() string {
	return filepath.Join(r.Home, FileName)
}

// Resolve reads the configuration file and applies the environment overrides
func (r Resolver) Resolve() (Config, error) {
	fs := r.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	cfg, err := Read(fs, r.Path())
	if err != nil {
		return cfg, err
	}
	if err := ApplyEnvironment(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
