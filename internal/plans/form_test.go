package plans

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oneclicksub/creatorctl/internal/models"
	"github.com/oneclicksub/creatorctl/internal/platform"
)

// recordingClient captures every request the controller issues.
type recordingClient struct {
	mu          sync.Mutex
	createCalls []models.PlanCreate
	listCalls   int
	createErr   error
	release     chan struct{} // when set, CreatePlan blocks until closed
}

func (c *recordingClient) CreatePlan(ctx context.Context, spec models.PlanCreate) (*models.Plan, error) {
	c.mu.Lock()
	c.createCalls = append(c.createCalls, spec)
	release := c.release
	c.mu.Unlock()

	if release != nil {
		<-release
	}
	if c.createErr != nil {
		return nil, c.createErr
	}
	return &models.Plan{
		ID:           int64(len(c.createCalls)),
		ProjectID:    spec.ProjectID,
		Name:         spec.Name,
		Price:        spec.Price,
		Currency:     spec.Currency,
		DurationDays: spec.DurationDays,
		Active:       spec.Active,
	}, nil
}

func (c *recordingClient) ListPlansForProject(ctx context.Context, projectID int64) ([]*models.Plan, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listCalls++
	plans := make([]*models.Plan, 0, len(c.createCalls))
	for i, spec := range c.createCalls {
		plans = append(plans, &models.Plan{ID: int64(i + 1), ProjectID: spec.ProjectID, Name: spec.Name})
	}
	return plans, nil
}

func TestParseInputNormalizesPrice(t *testing.T) {
	// Scenario: price "9,99" and duration "30" become 9.99 and 30.
	spec, err := ParseInput(42, FormInput{
		Name:     "Monthly access",
		Price:    "9,99",
		Duration: "30",
		Currency: "EUR",
	})
	require.NoError(t, err)

	assert.Equal(t, 9.99, spec.Price)
	assert.Equal(t, 30, spec.DurationDays)
	assert.Equal(t, "EUR", spec.Currency)
	assert.Equal(t, int64(42), spec.ProjectID)
	assert.True(t, spec.Active)
}

func TestParseInputValidation(t *testing.T) {
	valid := FormInput{Name: "Monthly", Price: "9.99", Duration: "30", Currency: "EUR"}

	cases := []struct {
		name      string
		mutate    func(in *FormInput)
		wantField string
	}{
		{"empty name", func(in *FormInput) { in.Name = "" }, "name"},
		{"whitespace name", func(in *FormInput) { in.Name = "   " }, "name"},
		{"non-numeric price", func(in *FormInput) { in.Price = "abc" }, "price"},
		{"zero price", func(in *FormInput) { in.Price = "0" }, "price"},
		{"negative price", func(in *FormInput) { in.Price = "-5" }, "price"},
		{"non-numeric duration", func(in *FormInput) { in.Duration = "month" }, "duration"},
		{"zero duration", func(in *FormInput) { in.Duration = "0" }, "duration"},
		{"negative duration", func(in *FormInput) { in.Duration = "-1" }, "duration"},
		{"unsupported currency", func(in *FormInput) { in.Currency = "GBP" }, "currency"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := valid
			tc.mutate(&in)

			_, err := ParseInput(42, in)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tc.wantField, vErr.Field)
		})
	}
}

func TestParseInputAcceptsBothSeparatorsAndCase(t *testing.T) {
	spec, err := ParseInput(1, FormInput{Name: " Yearly ", Price: "120.50", Duration: " 365 ", Currency: "usd"})
	require.NoError(t, err)
	assert.Equal(t, "Yearly", spec.Name)
	assert.Equal(t, 120.50, spec.Price)
	assert.Equal(t, 365, spec.DurationDays)
	assert.Equal(t, "USD", spec.Currency)
}

func TestSubmitIssuesExactlyOneCreateAndRefetches(t *testing.T) {
	client := &recordingClient{}
	controller := NewController(client)

	plans, err := controller.Submit(context.Background(), 42, FormInput{
		Name: "Monthly access", Price: "9,99", Duration: "30", Currency: "EUR",
	})
	require.NoError(t, err)

	require.Len(t, client.createCalls, 1)
	sent := client.createCalls[0]
	assert.Equal(t, 9.99, sent.Price)
	assert.Equal(t, 30, sent.DurationDays)

	// The returned list comes from the refetch, not an optimistic merge.
	assert.Equal(t, 1, client.listCalls)
	assert.Len(t, plans, 1)
}

func TestSubmitInvalidInputMakesNoRemoteCalls(t *testing.T) {
	client := &recordingClient{}
	controller := NewController(client)

	_, err := controller.Submit(context.Background(), 42, FormInput{
		Name: "", Price: "9.99", Duration: "30", Currency: "EUR",
	})

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Empty(t, client.createCalls)
	assert.Zero(t, client.listCalls)
}

func TestSubmitGuardsAgainstResubmission(t *testing.T) {
	release := make(chan struct{})
	client := &recordingClient{release: release}
	controller := NewController(client)

	in := FormInput{Name: "Monthly", Price: "9.99", Duration: "30", Currency: "EUR"}

	firstDone := make(chan error, 1)
	go func() {
		_, err := controller.Submit(context.Background(), 42, in)
		firstDone <- err
	}()

	// Wait for the first submission to be in flight.
	require.Eventually(t, func() bool {
		client.mu.Lock()
		defer client.mu.Unlock()
		return len(client.createCalls) == 1
	}, 2*time.Second, time.Millisecond)

	_, err := controller.Submit(context.Background(), 42, in)
	assert.ErrorIs(t, err, ErrSubmitInFlight)

	close(release)
	require.NoError(t, <-firstDone)

	// Only the first submission reached the server.
	assert.Len(t, client.createCalls, 1)
}

func TestSubmitSurfacesServerRejectionVerbatim(t *testing.T) {
	serverErr := &platform.APIError{StatusCode: 422, Detail: "Price must be greater than zero"}
	client := &recordingClient{createErr: serverErr}
	controller := NewController(client)

	_, err := controller.Submit(context.Background(), 42, FormInput{
		Name: "Monthly", Price: "9.99", Duration: "30", Currency: "EUR",
	})

	var apiErr *platform.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Price must be greater than zero", apiErr.Detail)
	// No refetch after a rejected create.
	assert.Zero(t, client.listCalls)
}
