package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/quantlab/stocksignal/internal/scheduler"
	"github.com/quantlab/stocksignal/internal/scheduler/jobs"
)

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Manage the ingestion scheduler",
	Long: `Runs or inspects the recurring ingestion sweeps.

Registered jobs:
  price_refresh        - daily 21:30 UTC, after the US close
  fundamental_refresh  - weekly, Sunday midnight UTC
  indicator_recalc     - hourly

Example:
  go run ./cmd/stocksignal scheduler start
  go run ./cmd/stocksignal scheduler run price_refresh`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler daemon",
		RunE:  runScheduler,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "Run one job immediately",
		Args:  cobra.ExactArgs(1),
		RunE:  runSchedulerJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

// buildScheduler wires the three sweeps onto a scheduler.
func buildScheduler(app *app) (*scheduler.Scheduler, error) {
	sched := scheduler.New(app.logger)

	jobList := []scheduler.Job{
		jobs.NewPriceRefreshJob(app.coordinator, app.securities, app.logger),
		jobs.NewFundamentalsRefreshJob(app.coordinator, app.securities, app.logger),
		jobs.NewIndicatorRecalcJob(app.coordinator, app.securities, app.logger),
	}
	for _, job := range jobList {
		if err := sched.AddJob(job); err != nil {
			return nil, fmt.Errorf("register job %s: %w", job.Name(), err)
		}
	}

	return sched, nil
}

func runScheduler(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	app.coordinator.Start(ctx)
	defer app.coordinator.Stop()

	sched, err := buildScheduler(app)
	if err != nil {
		return err
	}

	sched.Start()
	defer sched.Stop()

	fmt.Println("Scheduler started. Registered jobs:")
	for _, name := range sched.JobNames() {
		fmt.Printf("  - %s\n", name)
	}
	fmt.Println("Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	return nil
}

func runSchedulerJob(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	app.coordinator.Start(ctx)
	defer app.coordinator.Stop()

	sched, err := buildScheduler(app)
	if err != nil {
		return err
	}

	jobName := args[0]
	job, err := sched.JobByName(jobName)
	if err != nil {
		return fmt.Errorf("unknown job %q (known: %v)", jobName, sched.JobNames())
	}

	fmt.Printf("Running job %s...\n", jobName)
	if err := job.Run(context.Background()); err != nil {
		return fmt.Errorf("job %s failed: %w", jobName, err)
	}

	fmt.Println("Done")
	return nil
}
