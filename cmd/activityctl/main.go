// Command activityctl is a small demo harness for the actsched library: it
// builds a sample build/test/deploy pipeline as a task graph, asks the
// operator how to run it via a huh form, then drives the pass with a live
// Bubble Tea dashboard subscribed to the scheduler's event bus.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/rkallberg/actsched"
	"github.com/rkallberg/actsched/internal/tui"
)

type runOptions struct {
	poolSize   string
	retries    string
	sequential bool
	failBuild  bool
}

func promptOptions() (runOptions, error) {
	opts := runOptions{poolSize: "4", retries: "2"}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Pool size").
				Description("Max parallel workers").
				Value(&opts.poolSize).
				Placeholder("4"),

			huh.NewInput().
				Title("Max retries").
				Description("Retry cap per task").
				Value(&opts.retries).
				Placeholder("2"),

			huh.NewConfirm().
				Title("Run sequentially?").
				Value(&opts.sequential),

			huh.NewConfirm().
				Title("Inject a build failure?").
				Description("Exercises the disable-cascade path").
				Value(&opts.failBuild),
		),
	)

	if err := form.Run(); err != nil {
		return opts, err
	}
	return opts, nil
}

// buildPipeline wires a sample CI-shaped DAG: fetch feeds lint and build;
// build feeds unit and integration tests; both test legs feed package;
// package feeds deploy. This exercises a diamond (build -> {unit,
// integration} -> package) alongside a independent lint leg.
func buildPipeline(sched *actsched.Scheduler, failBuild bool) error {
	mk := func(name string, work time.Duration, failTimes int, tags ...string) (*actsched.Task, error) {
		return sched.Create(&demoAction{name: name, work: work, failTimes: failTimes, tags: tags})
	}

	buildFails := 0
	if failBuild {
		buildFails = 99 // never recovers, so dependents cascade-disable
	}

	fetch, err := mk("fetch", 150*time.Millisecond, 0, "io")
	if err != nil {
		return err
	}
	lint, err := mk("lint", 100*time.Millisecond, 0, "quality")
	if err != nil {
		return err
	}
	build, err := mk("build", 300*time.Millisecond, buildFails, "compile")
	if err != nil {
		return err
	}
	unitTest, err := mk("unit-test", 200*time.Millisecond, 1, "test")
	if err != nil {
		return err
	}
	integrationTest, err := mk("integration-test", 400*time.Millisecond, 0, "test")
	if err != nil {
		return err
	}
	pkg, err := mk("package", 150*time.Millisecond, 0, "compile")
	if err != nil {
		return err
	}
	deploy, err := mk("deploy", 100*time.Millisecond, 0, "release")
	if err != nil {
		return err
	}

	if err := fetch.Before(lint, build); err != nil {
		return err
	}
	if err := build.Before(unitTest, integrationTest); err != nil {
		return err
	}
	if err := unitTest.Before(pkg); err != nil {
		return err
	}
	if err := integrationTest.Before(pkg); err != nil {
		return err
	}
	if err := pkg.Before(deploy); err != nil {
		return err
	}
	return nil
}

func main() {
	// Signal-aware context: Ctrl+C cancels any in-flight pass instead of
	// just killing the dashboard, exercising the scheduler's cancellation
	// path (spec §5, §7).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts, err := promptOptions()
	if err != nil {
		fmt.Fprintln(os.Stderr, "aborted:", err)
		os.Exit(1)
	}

	poolSize, err := strconv.Atoi(opts.poolSize)
	if err != nil || poolSize <= 0 {
		poolSize = 4
	}
	retries, err := strconv.Atoi(opts.retries)
	if err != nil || retries < 0 {
		retries = 2
	}

	sched := actsched.New(actsched.Config{
		MaxPoolSize: poolSize,
		MaxRetries:  retries,
	})
	defer sched.Events().Close()

	if err := buildPipeline(sched, opts.failBuild); err != nil {
		fmt.Fprintln(os.Stderr, "failed to build pipeline:", err)
		os.Exit(1)
	}

	done := make(chan error, 1)

	// Subscribe before the pass starts so no early lifecycle event is
	// published into a bus with no listener yet.
	model := tui.New(sched.Events(), done)

	go func() {
		defer close(done)
		done <- sched.ExecuteAll(ctx, !opts.sequential)
	}()

	p := tea.NewProgram(model, tea.WithAltScreen())

	errChan := make(chan error, 1)
	go func() {
		_, err := p.Run()
		errChan <- err
	}()

	select {
	case err := <-errChan:
		if err != nil {
			fmt.Fprintf(os.Stderr, "dashboard error: %v\n", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		stop()
		log.Println("shutdown signal received, cancelling in-flight pass...")
		p.Quit()
		<-errChan
	}

	log.Println("shutdown complete")
}
