package commands

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/RobiAdawiya/andalan-solution/internal/config"
	"github.com/RobiAdawiya/andalan-solution/internal/watch"
	"github.com/RobiAdawiya/andalan-solution/pkg/floorbus"
)

// errRejected is returned when the coordinator answers with a failure.
var errRejected = errors.New("rejected by coordinator")

// verdict is the coordinator's answer to one scan.
type verdict struct {
	success  bool
	message  string
	details  map[string]string
	commands []floorbus.Command
}

// exchangeFunc publishes a scan and waits for its verdict on sub.
type exchangeFunc func(ctx context.Context, bus *floorbus.Client, topics floorbus.Topics, sub *floorbus.Subscription, timeout time.Duration) (verdict, error)

func newCheckCmd(opts *globalOptions) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Send a scan over the bus and wait for the coordinator's verdict",
		Long: `Publish an operator or product scan exactly as a field device would,
then wait for the coordinator's feedback and any machine commands.

The command exits non-zero when the scan is rejected or no verdict
arrives within --timeout.

Examples:
  # Check operator 42 in or out
  floor check operator 42 "Ana"

  # Start or stop product P7 on machine M1
  floor check product M1 P7`,
	}
	cmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Second, "How long to wait for feedback")

	cmd.AddCommand(&cobra.Command{
		Use:   "operator OPERATOR_ID OPERATOR_NAME",
		Short: "Send an operator badge scan",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ev := floorbus.OperatorEvent{OperatorID: args[0], OperatorName: args[1]}
			return runCheck(cmd, opts, timeout, operatorExchange(ev))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "product MACHINE_ID PRODUCT_ID",
		Short: "Send a product scan",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ev := floorbus.ProductEvent{MachineID: args[0], ProductID: args[1]}
			return runCheck(cmd, opts, timeout, productExchange(ev))
		},
	})

	return cmd
}

func operatorExchange(ev floorbus.OperatorEvent) exchangeFunc {
	return func(ctx context.Context, bus *floorbus.Client, topics floorbus.Topics, sub *floorbus.Subscription, timeout time.Duration) (verdict, error) {
		if err := bus.Publish(ctx, topics.OperatorEvents, ev); err != nil {
			return verdict{}, err
		}
		fb, cmds, err := watch.OperatorVerdict(ctx, sub, topics.OperatorFeedback, topics.MachineCommands, ev.OperatorID, timeout)
		if err != nil {
			return verdict{commands: cmds}, err
		}
		return verdict{
			success:  fb.Success,
			message:  fb.Message,
			commands: cmds,
			details: map[string]string{
				"operatorId":   fb.OperatorID,
				"operatorName": fb.OperatorName,
			},
		}, nil
	}
}

func productExchange(ev floorbus.ProductEvent) exchangeFunc {
	return func(ctx context.Context, bus *floorbus.Client, topics floorbus.Topics, sub *floorbus.Subscription, timeout time.Duration) (verdict, error) {
		if err := bus.Publish(ctx, topics.ProductEvents, ev); err != nil {
			return verdict{}, err
		}
		fb, cmds, err := watch.ProductVerdict(ctx, sub, topics.ProductFeedback, topics.MachineCommands, timeout)
		if err != nil {
			return verdict{commands: cmds}, err
		}
		return verdict{
			success:  fb.Success,
			message:  fb.Message,
			commands: cmds,
			details: map[string]string{
				"machineId": fb.MachineID,
				"productId": fb.ProductID,
			},
		}, nil
	}
}

// runCheck subscribes to the feedback and command topics before publishing,
// so no reply can be missed.
func runCheck(cmd *cobra.Command, opts *globalOptions, timeout time.Duration, exchange exchangeFunc) error {
	p := newPrinter(cmd)

	cfg, err := opts.loadConfig(p)
	if err != nil {
		return err
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, timeout+2*time.Second)
	defer cancel()

	bus, sub, err := connect(ctx, cfg)
	if err != nil {
		return p.ErrorWithContext("bus unavailable", err.Error(), map[string]string{"redis_url": cfg.Bus.RedisURL}, nil)
	}
	defer bus.Close()
	defer sub.Close()

	v, err := exchange(ctx, bus, cfg.Bus.Topics, sub, timeout)
	for _, c := range v.commands {
		for _, w := range c.Writes {
			p.Step("%s = %d\n", w.Tag, w.Value)
		}
	}
	if errors.Is(err, watch.ErrTimeout) {
		return p.Error(
			"no verdict",
			err.Error(),
			[]string{"Check that the coordinator is running and connected to the same broker"},
		)
	}
	if err != nil {
		return p.Error("check failed", err.Error(), nil)
	}

	p.Feedback(v.success, v.message, v.details)
	if !v.success {
		return errRejected
	}
	return nil
}

func connect(ctx context.Context, cfg *config.FloorConfig) (*floorbus.Client, *floorbus.Subscription, error) {
	bus, err := floorbus.NewClientFromURL(cfg.Bus.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	topics := cfg.Bus.Topics
	sub, err := bus.Subscribe(ctx, topics.OperatorFeedback, topics.ProductFeedback, topics.MachineCommands)
	if err != nil {
		bus.Close()
		return nil, nil, err
	}
	return bus, sub, nil
}
