package jobs

import (
	"log"
	"time"

	"github.com/go-co-op/gocron"
)

// ChannelRefreshJob is the name the periodic cache refresh is
// registered under.
const ChannelRefreshJob = "channel-refresh"

// StartJobs starts the background job scheduler.
func StartJobs(app JobContext) *gocron.Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	startChannelRefreshJob(s, app)

	log.Println("Starting background job scheduler...")
	s.StartAsync()
	return s
}

func startChannelRefreshJob(s *gocron.Scheduler, app JobContext) {
	interval := app.Config().RefreshInterval
	if interval == 0 {
		log.Println("Channel refresh interval is 0, scheduled refresh is disabled.")
		return
	}

	log.Printf("Scheduling job: '%s' to run every %d minutes.", ChannelRefreshJob, interval)

	_, err := s.Every(interval).Minutes().Do(func() {
		log.Println("Scheduler is triggering job:", ChannelRefreshJob)
		// Submit the job to the manager instead of running it directly.
		// This prevents conflicts with manually triggered jobs.
		err := app.JobManager().RunJob(ChannelRefreshJob, app)
		if err != nil {
			log.Printf("Scheduled job '%s' could not start: %v", ChannelRefreshJob, err)
		}
	})
	if err != nil {
		log.Printf("Error scheduling '%s' job: %v", ChannelRefreshJob, err)
	}
}
