// Command nbiot is a command line client for the NB-IoT device management API.
//
// The address and the token are read from ~/.telenor-nbiot and the environment
// variables TELENOR_NBIOT_ADDRESS and TELENOR_NBIOT_TOKEN.
package main

import (
	"bufio"
	"errors"
	"os"

	"github.com/joeshaw/envdecode"
	"github.com/mitchellh/cli"
	"github.com/sirupsen/logrus"

	"github.com/relabs-tech/nbiot/core/config"
	"github.com/relabs-tech/nbiot/core/logger"
	"github.com/relabs-tech/nbiot/nbiot"
)

const version = "0.3.0"

type settings struct {
	LogLevel string `env:"NBIOT_LOG_LEVEL,default=warning" description:"the log level of the command"`
}

func main() {
	os.Exit(Main(os.Args))
}

// Main runs the CLI with the given arguments and returns the exit code.
func Main(args []string) int {
	cliName := args[0]

	var s settings
	if err := envdecode.Decode(&s); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		logrus.WithError(err).Fatal("cannot decode environment")
	}
	if s.LogLevel == "" {
		s.LogLevel = "warning"
	}
	level, err := logrus.ParseLevel(s.LogLevel)
	if err != nil {
		logrus.WithError(err).Fatal("invalid NBIOT_LOG_LEVEL")
	}
	logger.InitLogger(level)

	ui := &cli.BasicUi{
		Reader:      bufio.NewReader(os.Stdin),
		Writer:      os.Stdout,
		ErrorWriter: os.Stderr,
	}

	c := &cli.CLI{
		Name:     cliName,
		Args:     args[1:],
		Version:  version,
		Commands: commands(ui, clientFromConfig),
	}

	exitCode, err := c.Run()
	if err != nil {
		ui.Error(err.Error())
		return 1
	}
	return exitCode
}

func clientFromConfig() (*nbiot.Client, error) {
	resolver, err := config.NewOsResolver()
	if err != nil {
		return nil, err
	}
	return nbiot.NewFromConfig(resolver)
}
