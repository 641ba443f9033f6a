// The creator console CLI. It drives the channel-connect workflow
// against the paywall platform, manages subscription plans, and keeps a
// local cache of the creator's channels.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oneclicksub/creatorctl/internal/channels"
	"github.com/oneclicksub/creatorctl/internal/connect"
	"github.com/oneclicksub/creatorctl/internal/core"
	"github.com/oneclicksub/creatorctl/internal/jobs"
	"github.com/oneclicksub/creatorctl/internal/models"
	"github.com/oneclicksub/creatorctl/internal/plans"
)

func main() {
	log.SetOutput(os.Stderr)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	app, err := core.New()
	if err != nil {
		if errors.Is(err, core.ErrNotLoggedIn) {
			fmt.Fprintln(os.Stderr, "Please log in first:", err)
			os.Exit(1)
		}
		log.Fatalf("Fatal error during application setup: %v", err)
	}
	defer app.Close()

	switch os.Args[1] {
	case "connect":
		runConnect(app, os.Args[2:])
	case "channels":
		runChannels(app)
	case "plans":
		runPlans(app, os.Args[2:])
	case "sync":
		runSync(app)
	case "watch":
		runWatch(app)
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: creatorctl <command> [flags]

Commands:
  connect    create a project and link a Telegram channel to it
  channels   list your channels
  plans      list or add subscription plans (plans list|add)
  sync       refresh the local channel cache from the platform
  watch      keep refreshing the cache until interrupted`)
}

// runConnect drives one connection attempt end to end: create the
// project, print the bot deep-link, and poll until the channel is
// connected. Enter triggers an immediate manual check; Ctrl-C cancels.
func runConnect(app *core.App, args []string) {
	fs := flag.NewFlagSet("connect", flag.ExitOnError)
	title := fs.String("title", "New Private Channel", "title for the new channel project")
	fs.Parse(args)

	interval := time.Duration(app.Config().PollIntervalSeconds) * time.Second

	machine := connect.New(app.Client(),
		connect.WithInterval(interval),
		connect.WithOpener(func(url string) error {
			fmt.Println("Open this link and add the bot as an admin to your channel:")
			fmt.Println()
			fmt.Println("    " + url)
			fmt.Println()
			fmt.Println("Waiting for the channel to be connected...")
			fmt.Println("(press Enter to check now, Ctrl-C to cancel)")
			return nil
		}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := machine.Start(ctx, *title); err != nil {
		log.Fatalf("Could not start the connection: %v", err)
	}

	// Manual checks on Enter.
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			connected, err := machine.ManualCheck(ctx)
			switch {
			case connected:
				return
			case errors.Is(err, connect.ErrCheckInFlight):
				// A check is already running; nothing to do.
			case errors.Is(err, connect.ErrNotAwaiting):
				return
			case err != nil:
				fmt.Printf("Check failed (%v), still waiting...\n", err)
			default:
				fmt.Printf("Not connected yet (status: %s), still waiting...\n", machine.Snapshot().Status)
			}
		}
	}()

	// Cancellation on Ctrl-C.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		fmt.Println("\nCancelling. The project stays pending server-side.")
		machine.Cancel()
	}()

	<-machine.Done()

	attempt := machine.Snapshot()
	switch attempt.Phase {
	case connect.PhaseConnected:
		fmt.Println("Channel connected!")
		if project, err := channels.NewService(app.Client(), app.Store()).RefreshOne(ctx, attempt.ProjectID); err == nil {
			fmt.Printf("Share this subscription link with your audience:\n    %s\n",
				models.SubscriptionLink(app.Config().BotUsername, project.ID))
		}
	case connect.PhaseCancelled:
		os.Exit(1)
	default:
		log.Fatalf("Connection failed: %v", attempt.Err)
	}
}

func runChannels(app *core.App) {
	ctx := context.Background()
	svc := channels.NewService(app.Client(), app.Store())
	if err := svc.RefreshAll(ctx); err != nil {
		log.Printf("Warning: could not refresh from the platform, showing cached data: %v", err)
	}

	projects, err := app.Store().ListProjects()
	if err != nil {
		log.Fatalf("Could not list channels: %v", err)
	}
	if len(projects) == 0 {
		fmt.Println("No channels yet. Run 'creatorctl connect' to add one.")
		return
	}

	for _, p := range projects {
		fmt.Printf("%4d  %-30s  %s\n", p.ID, p.DisplayName(), p.LinkStatus())
	}
}

func runPlans(app *core.App, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: creatorctl plans <list|add> [flags]")
		os.Exit(2)
	}

	switch args[0] {
	case "list":
		fs := flag.NewFlagSet("plans list", flag.ExitOnError)
		projectID := fs.Int64("project", 0, "project id")
		fs.Parse(args[1:])
		if *projectID == 0 {
			log.Fatal("The -project flag is required.")
		}

		planList, err := app.Client().ListPlansForProject(context.Background(), *projectID)
		if err != nil {
			log.Fatalf("Could not list plans: %v", err)
		}
		printPlans(planList)

	case "add":
		fs := flag.NewFlagSet("plans add", flag.ExitOnError)
		projectID := fs.Int64("project", 0, "project id")
		name := fs.String("name", "Monthly access", "plan name")
		price := fs.String("price", "", "price, e.g. 9.99 or 9,99")
		duration := fs.String("duration", "30", "duration in days")
		currency := fs.String("currency", "EUR", "currency code (EUR or USD)")
		fs.Parse(args[1:])
		if *projectID == 0 {
			log.Fatal("The -project flag is required.")
		}

		controller := plans.NewController(app.Client())
		planList, err := controller.Submit(context.Background(), *projectID, plans.FormInput{
			Name:     *name,
			Price:    *price,
			Duration: *duration,
			Currency: *currency,
		})
		if err != nil {
			var vErr *plans.ValidationError
			if errors.As(err, &vErr) {
				fmt.Fprintf(os.Stderr, "Invalid %s: %s\n", vErr.Field, vErr.Message)
				os.Exit(1)
			}
			log.Fatalf("Could not create plan: %v", err)
		}
		fmt.Println("Plan created.")
		printPlans(planList)

	default:
		fmt.Fprintln(os.Stderr, "Usage: creatorctl plans <list|add> [flags]")
		os.Exit(2)
	}
}

func printPlans(planList []*models.Plan) {
	if len(planList) == 0 {
		fmt.Println("No plans yet.")
		return
	}
	for _, p := range planList {
		fmt.Printf("%4d  %-25s  %8.2f %s  %4d days\n", p.ID, p.Name, p.Price, p.Currency, p.DurationDays)
	}
}

func runSync(app *core.App) {
	svc := channels.NewService(app.Client(), app.Store())
	if err := svc.RefreshAll(context.Background()); err != nil {
		log.Fatalf("Sync failed: %v", err)
	}
	fmt.Println("Local cache is up to date.")
}

// runWatch runs the scheduled channel refresh until interrupted, so a
// creator can leave it running while waiting on pending channels.
func runWatch(app *core.App) {
	// Refresh once right away; the scheduler takes over from there.
	if err := app.JobManager().RunJob(jobs.ChannelRefreshJob, app); err != nil {
		log.Printf("Initial refresh could not start: %v", err)
	}

	scheduler := jobs.StartJobs(app)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Stopping scheduler...")
	scheduler.Stop()
}
