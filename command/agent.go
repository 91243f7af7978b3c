// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package command

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	hclog "github.com/hashicorp/go-hclog"
	colorable "github.com/mattn/go-colorable"

	"github.com/kinderfleet/kinderfleet/command/agent"
	"github.com/kinderfleet/kinderfleet/version"
)

// AgentCommand runs the long-lived kinderfleet agent: state store, planner
// and GraphQL endpoint.
type AgentCommand struct {
	Meta

	configPaths []string
	bindAddr    string
	httpPort    int
	logLevel    string
	devMode     bool
}

func (c *AgentCommand) Help() string {
	helpText := `
Usage: kinderfleet agent [options]

  Starts the kinderfleet agent and runs until an interrupt is received.
  The agent holds the roster and route state and serves the GraphQL API.

Options:

  -config=<path>
    Path to an HCL configuration file. May be specified multiple times;
    later files override earlier ones.

  -bind=<addr>
    Address to bind the HTTP listener to. Overrides the config file.

  -http-port=<port>
    Port for the HTTP listener. Overrides the config file.

  -log-level=<level>
    Log verbosity: TRACE, DEBUG, INFO, WARN or ERROR.

  -dev
    Start in development mode with a built-in depot location, suitable
    for trying the API without a configuration file.
`
	return strings.TrimSpace(helpText)
}

func (c *AgentCommand) Name() string { return "agent" }

func (c *AgentCommand) Synopsis() string {
	return "Runs the kinderfleet agent"
}

func (c *AgentCommand) Run(args []string) int {
	flags := c.FlagSet("agent")
	flags.Usage = func() { c.Ui.Output(c.Help()) }
	flags.Var((*flagList)(&c.configPaths), "config", "")
	flags.StringVar(&c.bindAddr, "bind", "", "")
	flags.IntVar(&c.httpPort, "http-port", 0, "")
	flags.StringVar(&c.logLevel, "log-level", "", "")
	flags.BoolVar(&c.devMode, "dev", false, "")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	config, err := c.readConfig()
	if err != nil {
		c.Ui.Error(err.Error())
		return 1
	}

	logger := hclog.NewInterceptLogger(&hclog.LoggerOptions{
		Name:   "kinderfleet",
		Level:  hclog.LevelFromString(config.LogLevel),
		Output: colorable.NewColorableStderr(),
		Color:  hclog.AutoColor,
	})

	c.Ui.Output(version.GetVersion().FullVersionNumber(true))

	a, err := agent.NewAgent(config, logger)
	if err != nil {
		c.Ui.Error(fmt.Sprintf("Error starting agent: %s", err))
		return 1
	}
	defer a.Shutdown()

	c.Ui.Output(fmt.Sprintf("Kinderfleet agent started! HTTP address: %s", a.HTTPAddr()))

	return c.handleSignals(a)
}

// readConfig layers defaults, config files, environment and CLI flags.
func (c *AgentCommand) readConfig() (*agent.Config, error) {
	config := agent.DefaultConfig()

	if c.devMode {
		config = config.Merge(agent.DevConfig())
	}

	for _, path := range c.configPaths {
		current, err := agent.LoadConfigFile(path)
		if err != nil {
			return nil, fmt.Errorf("Error loading configuration from %s: %s", path, err)
		}
		config = config.Merge(current)
	}

	config.MergeEnv()

	if c.bindAddr != "" {
		config.BindAddr = c.bindAddr
	}
	if c.httpPort != 0 {
		config.HTTPPort = c.httpPort
	}
	if c.logLevel != "" {
		config.LogLevel = c.logLevel
	}
	return config, nil
}

// handleSignals blocks until the agent is told to exit.
func (c *AgentCommand) handleSignals(a *agent.Agent) int {
	signalCh := make(chan os.Signal, 4)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)

	sig := <-signalCh
	c.Ui.Output(fmt.Sprintf("Caught signal: %v", sig))

	if err := a.Shutdown(); err != nil {
		c.Ui.Error(fmt.Sprintf("Error during shutdown: %s", err))
		return 1
	}
	return 0
}

// flagList collects repeated string flags.
type flagList []string

func (f *flagList) String() string {
	return strings.Join(*f, ",")
}

func (f *flagList) Set(value string) error {
	*f = append(*f, value)
	return nil
}
