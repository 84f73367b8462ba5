package cmd

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/super-flat/actorsys/actors"
	"github.com/super-flat/actorsys/config"
	"github.com/super-flat/actorsys/log"
	"github.com/super-flat/actorsys/sample/actor"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

var (
	envFile         string
	workers         int
	workItems       int
	maxWorkAmount   uint64
	mailboxSize     int
	shutdownTimeout time.Duration
)

func init() {
	runCMD.Flags().StringVar(&envFile, "env-file", "", "path of a .env file, defaults to ./.env")
	runCMD.Flags().IntVar(&workers, "workers", 0, "number of worker actors")
	runCMD.Flags().IntVar(&workItems, "items", 0, "number of work items")
	runCMD.Flags().Uint64Var(&maxWorkAmount, "max-amount", 0, "upper bound of a work item amount")
	runCMD.Flags().IntVar(&mailboxSize, "mailbox-size", 0, "mailbox capacity of every actor")
	runCMD.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 30*time.Second, "graceful shutdown deadline")
	rootCmd.AddCommand(runCMD)
}

var runCMD = &cobra.Command{
	Use:   "run",
	Short: "Run workers and a manager under a random workload",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return Sample(cmd.Context(), cfg)
	},
}

// loadConfig reads the .env file and environment, then applies the flags that were set
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var files []string
	if envFile != "" {
		files = append(files, envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	if flags.Changed("items") {
		cfg.WorkItems = workItems
	}
	if flags.Changed("max-amount") {
		cfg.MaxWorkAmount = maxWorkAmount
	}
	if flags.Changed("mailbox-size") {
		cfg.MailboxSize = mailboxSize
	}
	return cfg, cfg.Validate()
}

// Sample spreads random work items over the workers and reports them to the manager
func Sample(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel)
	defer func() { _ = logger.Flush() }()

	system := actors.NewActorSystem(
		actors.WithName("bench"),
		actors.WithLogger(logger),
		actors.WithDefaultMailboxSize(cfg.MailboxSize),
	)
	// stops the system when the run ends early
	defer func() {
		if err := stopSystem(system); err != nil && !errors.Is(err, actors.ErrSystemReleased) {
			logger.Errorf("failed to shutdown the actor system: %v", err)
		}
	}()

	workerActors := make([]*actor.Worker, cfg.Workers)
	workerRefs := make([]*actors.ActorRef[*wrapperspb.UInt64Value], cfg.Workers)
	for i := range workerActors {
		workerActors[i] = actor.NewWorker(fmt.Sprintf("worker_%d", i), logger)
		ref, err := actors.CreateActor[*wrapperspb.UInt64Value](ctx, system, workerActors[i])
		if err != nil {
			return errors.Wrap(err, "failed to create worker")
		}
		workerRefs[i] = ref
	}

	manager := actor.NewManager("manager", logger)
	managerRef, err := actors.CreateActor[*wrapperspb.UInt64Value](ctx, system, manager)
	if err != nil {
		return errors.Wrap(err, "failed to create manager")
	}

	metrics := &counter{mtx: &sync.Mutex{}}
	reportCtx, stopReporting := context.WithCancel(ctx)
	defer stopReporting()
	go doReporting(reportCtx, metrics, logger)

	logger.Infof("starting benchmark with %d work items...", cfg.WorkItems)
	start := time.Now()

	var wg sync.WaitGroup
	var sent uint64
	for i := 0; i < cfg.WorkItems; i++ {
		amount := uint64(rand.Int63n(int64(cfg.MaxWorkAmount))) + 1
		sent += amount
		workerRef := workerRefs[rand.Intn(len(workerRefs))].Clone()
		reportRef := managerRef.Clone()

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer workerRef.Release()
			defer reportRef.Release()
			sendMessages(ctx, workerRef, reportRef, amount, metrics, logger)
		}()
	}
	wg.Wait()

	logger.Infof("benchmark completed in %s", time.Since(start))
	stopReporting()
	metrics.Report(logger)

	if err := stopSystem(system); err != nil {
		return errors.Wrap(err, "failed to shutdown the actor system")
	}

	logger.Info("work distribution among workers:")
	for _, worker := range workerActors {
		logger.Infof("  %s: %d units", worker.ID(), worker.WorkDone())
	}
	logger.Infof("manager total: %d units, sent: %d units", manager.TotalWork(), sent)
	logger.Info("actor system shut down successfully")
	return nil
}

func newLogger(level log.Level) log.Logger {
	switch level {
	case log.InfoLevel:
		return log.DefaultLogger
	case log.DebugLevel:
		return log.DebugLogger
	default:
		return log.NewZap(level, os.Stdout)
	}
}

func stopSystem(system *actors.ActorSystem) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return system.Shutdown(ctx)
}

func sendMessages(ctx context.Context, worker, manager *actors.ActorRef[*wrapperspb.UInt64Value], amount uint64, metrics *counter, logger log.Logger) {
	start := time.Now()
	if err := worker.Send(ctx, wrapperspb.UInt64(amount)); err != nil {
		logger.Errorf("failed to send work to %s: %v", worker.ID(), err)
		return
	}
	metrics.Add(time.Since(start))

	time.Sleep(time.Duration(rand.Intn(9)+1) * time.Millisecond)

	start = time.Now()
	if err := manager.Send(ctx, wrapperspb.UInt64(amount)); err != nil {
		logger.Errorf("failed to report work to %s: %v", manager.ID(), err)
		return
	}
	metrics.Add(time.Since(start))
}

func doReporting(ctx context.Context, metrics *counter, logger log.Logger) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.Report(logger)
		}
	}
}

type counter struct {
	calls    int64
	duration time.Duration
	mtx      *sync.Mutex
}

func (c *counter) Add(t time.Duration) {
	c.mtx.Lock()
	c.calls += 1
	c.duration = c.duration + t
	c.mtx.Unlock()
}

func (c *counter) Report(logger log.Logger) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.calls == 0 {
		return
	}
	avg := c.duration / time.Duration(c.calls)
	logger.Infof("[Metrics] avg send=%s, calls=%d", avg, c.calls)
}
