// Package plans validates and submits subscription-tier definitions.
// Validation is a fast-fail: on any invalid field no remote call is
// made, and the server stays the source of truth for acceptance.
package plans

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/oneclicksub/creatorctl/internal/models"
)

// ErrSubmitInFlight is returned while a previous submission is still
// running; resubmission is disallowed until it settles.
var ErrSubmitInFlight = errors.New("plans: a submission is already in flight")

// ValidationError identifies the form field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("plans: invalid %s: %s", e.Field, e.Message)
}

// FormInput is the raw user input for a new plan, as typed.
type FormInput struct {
	Name     string
	Price    string
	Duration string
	Currency string
}

// ParseInput validates the raw input and normalizes it into a create
// request. Price accepts both "." and "," as the decimal separator and
// is normalized to a canonical decimal before submission.
func ParseInput(projectID int64, in FormInput) (*models.PlanCreate, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "must not be empty"}
	}

	price, err := ParsePrice(in.Price)
	if err != nil {
		return nil, err
	}

	duration, err := strconv.Atoi(strings.TrimSpace(in.Duration))
	if err != nil || duration <= 0 {
		return nil, &ValidationError{Field: "duration", Message: "must be a positive number of days"}
	}

	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if !models.CurrencySupported(currency) {
		return nil, &ValidationError{
			Field:   "currency",
			Message: fmt.Sprintf("must be one of %s", strings.Join(models.SupportedCurrencies, ", ")),
		}
	}

	return &models.PlanCreate{
		ProjectID:    projectID,
		Name:         name,
		Price:        price,
		Currency:     currency,
		DurationDays: duration,
		Active:       true,
	}, nil
}

// ParsePrice normalizes a user-typed price to a positive decimal with
// at most two fraction digits.
func ParsePrice(raw string) (float64, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	price, err := strconv.ParseFloat(normalized, 64)
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, &ValidationError{Field: "price", Message: "must be a number"}
	}
	if price <= 0 {
		return 0, &ValidationError{Field: "price", Message: "must be greater than zero"}
	}
	return math.Round(price*100) / 100, nil
}

// Client is the subset of the platform API the controller needs.
type Client interface {
	CreatePlan(ctx context.Context, spec models.PlanCreate) (*models.Plan, error)
	ListPlansForProject(ctx context.Context, projectID int64) ([]*models.Plan, error)
}

// Controller submits validated plans for a project. It issues exactly
// one create call per valid submission and refetches the plan list
// afterwards so the caller always sees server truth, never an
// optimistic merge.
type Controller struct {
	client Client

	mu         sync.Mutex
	submitting bool
}

// NewController creates a plan form controller.
func NewController(client Client) *Controller {
	return &Controller{client: client}
}

// Submit validates in, creates the plan, and returns the refreshed plan
// list. A *ValidationError is returned before any remote call; server
// rejections come back with the server's message intact.
func (c *Controller) Submit(ctx context.Context, projectID int64, in FormInput) ([]*models.Plan, error) {
	spec, err := ParseInput(projectID, in)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return nil, ErrSubmitInFlight
	}
	c.submitting = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.submitting = false
		c.mu.Unlock()
	}()

	if _, err := c.client.CreatePlan(ctx, *spec); err != nil {
		return nil, err
	}

	plans, err := c.client.ListPlansForProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("plan created but list refresh failed: %w", err)
	}
	return plans, nil
}
