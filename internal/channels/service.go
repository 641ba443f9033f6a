// Package channels reconciles the local read-model with the platform:
// it pulls the authoritative project and plan state into the cache so
// listing works offline and newly connected channels get noticed.
package channels

import (
	"context"
	"fmt"
	"log"

	"github.com/oneclicksub/creatorctl/internal/models"
	"github.com/oneclicksub/creatorctl/internal/store"
)

// Client is the subset of the platform API the service needs.
type Client interface {
	ListProjects(ctx context.Context) ([]*models.Project, error)
	GetProject(ctx context.Context, id int64) (*models.Project, error)
	ListPlansForProject(ctx context.Context, projectID int64) ([]*models.Plan, error)
}

// Service holds the dependencies for the channel refresh.
type Service struct {
	client Client
	st     *store.Store
}

// NewService creates a new channel refresh service.
func NewService(client Client, st *store.Store) *Service {
	return &Service{client: client, st: st}
}

// RefreshAll fetches every project the creator owns, replaces the
// cached plan set for each, and logs channels that have become
// connected since the last refresh.
func (s *Service) RefreshAll(ctx context.Context) error {
	projects, err := s.client.ListProjects(ctx)
	if err != nil {
		return fmt.Errorf("refresh channels: %w", err)
	}

	for _, project := range projects {
		s.noteNewlyConnected(project)
		if err := s.st.UpsertProject(project); err != nil {
			return fmt.Errorf("cache project %d: %w", project.ID, err)
		}

		plans, err := s.client.ListPlansForProject(ctx, project.ID)
		if err != nil {
			// Plans are secondary; keep refreshing the rest.
			log.Printf("Refresh: could not fetch plans for project %d: %v", project.ID, err)
			continue
		}
		if err := s.st.ReplacePlansForProject(project.ID, plans); err != nil {
			return fmt.Errorf("cache plans for project %d: %w", project.ID, err)
		}
	}

	log.Printf("Refreshed %d channel(s) from the platform.", len(projects))
	return nil
}

// RefreshOne updates the cache for a single project and its plans.
func (s *Service) RefreshOne(ctx context.Context, projectID int64) (*models.Project, error) {
	project, err := s.client.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	s.noteNewlyConnected(project)
	if err := s.st.UpsertProject(project); err != nil {
		return nil, fmt.Errorf("cache project %d: %w", projectID, err)
	}

	plans, err := s.client.ListPlansForProject(ctx, projectID)
	if err != nil {
		// Plans are secondary; the refreshed project still counts.
		log.Printf("Refresh: could not fetch plans for project %d: %v", projectID, err)
		return project, nil
	}
	if err := s.st.ReplacePlansForProject(projectID, plans); err != nil {
		return nil, fmt.Errorf("cache plans for project %d: %w", projectID, err)
	}
	return project, nil
}

// noteNewlyConnected logs the pending-to-connected transition, which is
// the event a creator waiting on a channel cares about.
func (s *Service) noteNewlyConnected(fresh *models.Project) {
	if !fresh.IsConnected() {
		return
	}
	cached, err := s.st.GetProject(fresh.ID)
	if err != nil || cached.IsConnected() {
		return
	}
	log.Printf("Channel %q (project %d) is now connected.", fresh.DisplayName(), fresh.ID)
}
