// This file defines the core data structures (models) for the creator
// console. These structs mirror the platform API's wire format.

package models

// ProjectSettings carries the free-form linkage metadata the platform
// attaches to a project. Status is backend-defined; "pending" and
// "connected" are the values the connect workflow cares about.
type ProjectSettings struct {
	Status         string `json:"status,omitempty"`
	ConnectionCode string `json:"connection_code,omitempty"`
}

// Project is the billing-side representation of one Telegram channel a
// creator wants to monetize. TelegramChannelID stays nil until the bot
// has been added to the channel out-of-band.
type Project struct {
	ID                int64            `json:"id"`
	UserID            int64            `json:"user_id"`
	Title             string           `json:"title,omitempty"`
	Username          string           `json:"username,omitempty"`
	TelegramChannelID *int64           `json:"telegram_channel_id"`
	Active            bool             `json:"active"`
	Settings          *ProjectSettings `json:"settings,omitempty"`
}

// ProjectCreate is the request body for creating a new project. The
// backend resolves the owner from the bearer token, not the body.
type ProjectCreate struct {
	Title  string `json:"title,omitempty"`
	Active bool   `json:"active"`
}

// ConnectLink wraps the deep-link the platform issues for handing a
// project off to the Telegram bot. The URL is opaque to the client.
type ConnectLink struct {
	BotLink string `json:"bot_link"`
}

// StatusConnected is the sentinel the backend writes into
// ProjectSettings.Status once the bot has linked the channel.
const StatusConnected = "connected"

// IsConnected reports whether the project's channel linkage has
// completed. Backends may expose either signal, so either one counts:
// a populated channel id or the connected status sentinel.
func (p *Project) IsConnected() bool {
	if p == nil {
		return false
	}
	if p.TelegramChannelID != nil {
		return true
	}
	return p.Settings != nil && p.Settings.Status == StatusConnected
}

// LinkStatus returns the raw status string for display, defaulting to
// "pending" when the backend has not written one yet.
func (p *Project) LinkStatus() string {
	if p != nil && p.Settings != nil && p.Settings.Status != "" {
		return p.Settings.Status
	}
	return "pending"
}

// DisplayName returns the best human-readable label for a project.
func (p *Project) DisplayName() string {
	switch {
	case p.Title != "":
		return p.Title
	case p.Username != "":
		return "@" + p.Username
	default:
		return "Untitled channel"
	}
}
