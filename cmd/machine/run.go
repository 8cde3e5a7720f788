package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	luamachine "github.com/wippyai/lua-machine"
	"github.com/wippyai/lua-machine/engine"
	"github.com/wippyai/lua-machine/machine"
)

func newRunCmd() *cobra.Command {
	var (
		interactive bool
		verbose     bool
		maxTicks    int
	)

	cmd := &cobra.Command{
		Use:   "run <config.yaml>",
		Short: "Boot a machine and drive its tick loop",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				logger, err := zap.NewDevelopment()
				if err != nil {
					return err
				}
				defer logger.Sync()
				engine.SetLogger(logger)
			}

			cfg, err := loadMachineConfig(args[0])
			if err != nil {
				return err
			}
			m, queue, err := buildMachine(cfg)
			if err != nil {
				return err
			}
			defer m.Close()

			if interactive {
				return runInteractive(args[0], m, queue)
			}
			return runLoop(cmd, cfg, m, queue, maxTicks)
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "open the machine console")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log machine internals")
	cmd.Flags().IntVar(&maxTicks, "max-ticks", 0, "stop after this many ticks (0 = run until shutdown)")
	return cmd
}

// driver advances a machine one tick at a time, tracking sleep debt and the
// synchronized-call handshake between ticks.
type driver struct {
	m          *machine.Machine
	queue      *luamachine.BufferedQueue
	sleep      int32
	syncReturn bool
}

// tick advances one tick. The machine is only resumed when its sleep has
// elapsed or a signal arrived; ran reports whether a resume happened.
func (d *driver) tick() (out machine.Outcome, ran bool, err error) {
	if d.sleep > 0 && d.queue.Len() == 0 {
		d.sleep--
		return machine.Outcome{}, false, nil
	}
	d.sleep = 0

	out = d.m.RunThreaded(d.syncReturn)
	d.syncReturn = false

	switch out.Kind {
	case machine.OutcomeSleep:
		d.sleep = out.Ticks
	case machine.OutcomeSynchronizedCall:
		if err := d.m.RunSynchronized(); err != nil {
			return out, true, fmt.Errorf("synchronized call: %w", err)
		}
		d.syncReturn = true
	}
	return out, true, nil
}

// reboot tears the machine down and boots a fresh kernel.
func (d *driver) reboot() error {
	d.m.Close()
	if !d.m.Initialize() {
		return fmt.Errorf("reboot: machine failed to initialize")
	}
	d.sleep = 0
	d.syncReturn = false
	return nil
}

func runLoop(cmd *cobra.Command, cfg *machineConfig, m *machine.Machine, queue *luamachine.BufferedQueue, maxTicks int) error {
	if !m.Initialize() {
		return fmt.Errorf("machine failed to initialize")
	}

	d := &driver{m: m, queue: queue}
	ticker := time.NewTicker(cfg.TickInterval())
	defer ticker.Stop()

	for count := 0; maxTicks <= 0 || count < maxTicks; count++ {
		<-ticker.C

		out, ran, err := d.tick()
		if err != nil {
			return err
		}
		if !ran {
			continue
		}

		switch out.Kind {
		case machine.OutcomeShutdown:
			if !out.Reboot {
				fmt.Fprintln(cmd.OutOrStdout(), "machine shut down")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "machine rebooting")
			if err := d.reboot(); err != nil {
				return err
			}
		case machine.OutcomeError:
			return fmt.Errorf("machine crashed: %s", out.Message)
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), "tick limit reached")
	return nil
}
