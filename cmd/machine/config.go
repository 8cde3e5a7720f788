package main

import (
	"fmt"
	"os"
	"time"

	lua "github.com/yuin/gopher-lua"
	"gopkg.in/yaml.v3"

	luamachine "github.com/wippyai/lua-machine"
	"github.com/wippyai/lua-machine/errors"
	"github.com/wippyai/lua-machine/machine"
)

// machineConfig is the on-disk description of a machine: which kernel to
// boot, how fast to tick, and which components are attached.
type machineConfig struct {
	Kernel     string            `yaml:"kernel"`
	Tick       duration          `yaml:"tick"`
	Components []componentConfig `yaml:"components"`
}

// duration parses Go duration strings ("50ms") from YAML, which yaml.v3 does
// not do for time.Duration itself.
type duration time.Duration

func (d *duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = duration(v)
	return nil
}

// TickInterval returns the wall-clock length of one tick.
func (c *machineConfig) TickInterval() time.Duration {
	return time.Duration(c.Tick)
}

type componentConfig struct {
	Address string            `yaml:"address"`
	Type    string            `yaml:"type"`
	Values  map[string]string `yaml:"values"`
	Docs    map[string]string `yaml:"docs"`
}

const defaultTick = time.Second / machine.TicksPerSecond

func loadMachineConfig(path string) (*machineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &machineConfig{Tick: duration(defaultTick)}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Tick <= 0 {
		cfg.Tick = duration(defaultTick)
	}
	for i, c := range cfg.Components {
		if c.Address == "" {
			return nil, fmt.Errorf("component %d: missing address", i)
		}
		if c.Type == "" {
			return nil, fmt.Errorf("component %q: missing type", c.Address)
		}
	}
	return cfg, nil
}

// buildMachine assembles a machine from a description. The returned queue is
// the one signals should be pushed onto.
func buildMachine(cfg *machineConfig) (*machine.Machine, *luamachine.BufferedQueue, error) {
	queue := luamachine.NewBufferedQueue(luamachine.DefaultQueueCapacity)
	registry := luamachine.NewRegistry()
	for _, c := range cfg.Components {
		registry.Add(&staticComponent{
			address: c.Address,
			ctype:   c.Type,
			values:  c.Values,
			docs:    c.Docs,
		})
	}

	mcfg := machine.Config{Queue: queue, Components: registry}
	if cfg.Kernel != "" {
		src, err := os.ReadFile(cfg.Kernel)
		if err != nil {
			return nil, nil, fmt.Errorf("read kernel: %w", err)
		}
		mcfg.Kernel = src
		mcfg.KernelName = "@" + cfg.Kernel
	}

	return machine.New(mcfg), queue, nil
}

// staticComponent serves fixed string values per method, which is enough to
// model simple read-only devices from a config file.
type staticComponent struct {
	address string
	ctype   string
	values  map[string]string
	docs    map[string]string
}

func (c *staticComponent) Address() string { return c.address }
func (c *staticComponent) Type() string    { return c.ctype }

func (c *staticComponent) Invoke(method string, args []lua.LValue) ([]lua.LValue, error) {
	v, ok := c.values[method]
	if !ok {
		return nil, errors.NoSuchMethod(method)
	}
	return []lua.LValue{lua.LString(v)}, nil
}

func (c *staticComponent) Doc(method string) (string, error) {
	doc, ok := c.docs[method]
	if !ok {
		return "", errors.NoSuchMethod(method)
	}
	return doc, nil
}
