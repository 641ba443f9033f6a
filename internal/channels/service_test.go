package channels_test

import (
	"bytes"
	"context"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oneclicksub/creatorctl/internal/channels"
	"github.com/oneclicksub/creatorctl/internal/models"
	"github.com/oneclicksub/creatorctl/internal/store"
	"github.com/oneclicksub/creatorctl/internal/testutil"
)

func TestRefreshAllPopulatesCache(t *testing.T) {
	mock, client := testutil.SetupMockPlatform(t)
	db := testutil.SetupTestDB(t)
	st := store.New(db)
	svc := channels.NewService(client, st)
	ctx := context.Background()

	first, err := client.CreateProject(ctx, "First Channel")
	require.NoError(t, err)
	second, err := client.CreateProject(ctx, "Second Channel")
	require.NoError(t, err)

	_, err = client.CreatePlan(ctx, models.PlanCreate{
		ProjectID: first.ID, Name: "Monthly", Price: 9.99, Currency: "EUR", DurationDays: 30, Active: true,
	})
	require.NoError(t, err)

	require.NoError(t, svc.RefreshAll(ctx))

	cached, err := st.ListProjects()
	require.NoError(t, err)
	require.Len(t, cached, 2)
	assert.Equal(t, "First Channel", cached[0].Title)
	assert.False(t, cached[0].IsConnected())

	plans, err := st.ListPlansForProject(first.ID)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, "Monthly", plans[0].Name)

	// The second project has no plans; the cache agrees.
	plans, err = st.ListPlansForProject(second.ID)
	require.NoError(t, err)
	assert.Empty(t, plans)

	// After the bot confirms the linkage, a refresh flips the cached
	// status too.
	require.True(t, mock.MarkConnected(first.ID, -1001), "project should exist")
	require.NoError(t, svc.RefreshAll(ctx))

	got, err := st.GetProject(first.ID)
	require.NoError(t, err)
	assert.True(t, got.IsConnected())
}

func TestRefreshOne(t *testing.T) {
	mock, client := testutil.SetupMockPlatform(t)
	db := testutil.SetupTestDB(t)
	st := store.New(db)
	svc := channels.NewService(client, st)
	ctx := context.Background()

	created, err := client.CreateProject(ctx, "Solo Channel")
	require.NoError(t, err)
	mock.MarkConnected(created.ID, -1002)

	project, err := svc.RefreshOne(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, project.IsConnected())

	cached, err := st.GetProject(created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConnected, cached.LinkStatus())
}

func TestRefreshOneMissingProject(t *testing.T) {
	_, client := testutil.SetupMockPlatform(t)
	db := testutil.SetupTestDB(t)
	svc := channels.NewService(client, store.New(db))

	_, err := svc.RefreshOne(context.Background(), 999)
	assert.Error(t, err)
}

// A plan fetch failure for one project must not abort the whole
// refresh; the project row itself still lands in the cache.
func TestRefreshAllToleratesPlanFetchFailure(t *testing.T) {
	db := testutil.SetupTestDB(t)
	st := store.New(db)
	client := &flakyPlansClient{}
	svc := channels.NewService(client, st)

	require.NoError(t, svc.RefreshAll(context.Background()))

	cached, err := st.ListProjects()
	require.NoError(t, err)
	assert.Len(t, cached, 1)
}

// A plan fetch failure during a single-project refresh still returns
// the project, and the skipped plan update leaves a trace in the log.
func TestRefreshOneLogsPlanFetchFailure(t *testing.T) {
	var logged bytes.Buffer
	log.SetOutput(&logged)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	db := testutil.SetupTestDB(t)
	st := store.New(db)
	svc := channels.NewService(&flakyPlansClient{}, st)

	project, err := svc.RefreshOne(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), project.ID)

	cached, err := st.GetProject(7)
	require.NoError(t, err)
	assert.Equal(t, "Flaky", cached.Title)

	assert.Contains(t, logged.String(), "could not fetch plans for project 7")
}

type flakyPlansClient struct{}

func (c *flakyPlansClient) ListProjects(ctx context.Context) ([]*models.Project, error) {
	return []*models.Project{{ID: 7, Title: "Flaky"}}, nil
}

func (c *flakyPlansClient) GetProject(ctx context.Context, id int64) (*models.Project, error) {
	return &models.Project{ID: id, Title: "Flaky"}, nil
}

func (c *flakyPlansClient) ListPlansForProject(ctx context.Context, projectID int64) ([]*models.Plan, error) {
	return nil, assert.AnError
}
