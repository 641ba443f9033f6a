package models

import "fmt"

// Plan is a priced, time-boxed subscription tier attached to a project.
type Plan struct {
	ID           int64   `json:"id"`
	ProjectID    int64   `json:"project_id"`
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	Currency     string  `json:"currency"`
	DurationDays int     `json:"duration_days"`
	Active       bool    `json:"active"`
}

// PlanCreate is the request body for creating a subscription plan.
type PlanCreate struct {
	ProjectID    int64   `json:"project_id"`
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	Currency     string  `json:"currency"`
	DurationDays int     `json:"duration_days"`
	Active       bool    `json:"active"`
}

// SupportedCurrencies lists the currency codes the platform accepts.
var SupportedCurrencies = []string{"EUR", "USD"}

// CurrencySupported reports whether code is an accepted currency.
func CurrencySupported(code string) bool {
	for _, c := range SupportedCurrencies {
		if c == code {
			return true
		}
	}
	return false
}

// SubscriptionLink builds the link a creator shares with their audience.
// Subscribers open the bot with the project encoded in the start
// parameter and see the project's plans.
func SubscriptionLink(botUsername string, projectID int64) string {
	return fmt.Sprintf("https://t.me/%s?start=project_%d", botUsername, projectID)
}
