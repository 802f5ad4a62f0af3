package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ChannelStatus is the lifecycle state of a channel.
type ChannelStatus string

const (
	StatusCreated ChannelStatus = "created"
	StatusActive  ChannelStatus = "active"
	StatusPaused  ChannelStatus = "paused"
	StatusStopped ChannelStatus = "stopped"
)

// String returns the string representation of the status.
func (s ChannelStatus) String() string {
	return string(s)
}

// IsValid checks whether the status is a known value.
func (s ChannelStatus) IsValid() bool {
	switch s {
	case StatusCreated, StatusActive, StatusPaused, StatusStopped:
		return true
	}
	return false
}

// IsLive reports whether a channel in this status is kept in memory across
// restarts.
func (s ChannelStatus) IsLive() bool {
	return s == StatusActive || s == StatusPaused
}

// ParseChannelStatus parses a status name case-insensitively.
func ParseChannelStatus(s string) (ChannelStatus, bool) {
	st := ChannelStatus(strings.ToLower(strings.TrimSpace(s)))
	return st, st.IsValid()
}

// Default channel settings.
const (
	DefaultMaxConnections     = 1000
	DefaultRateLimitPerMinute = 60
)

// ChannelSettings are the per-channel knobs. MaxConnections and
// RateLimitPerMinute are stored and reported but not enforced.
type ChannelSettings struct {
	MaxConnections      int  `json:"max_connections"`
	AllowClientMessages bool `json:"allow_client_messages"`
	PersistMessages     bool `json:"persist_messages"`
	RateLimitPerMinute  *int `json:"rate_limit_per_minute"`
}

// DefaultSettings returns the built-in channel settings.
func DefaultSettings() ChannelSettings {
	limit := DefaultRateLimitPerMinute
	return ChannelSettings{
		MaxConnections:      DefaultMaxConnections,
		AllowClientMessages: true,
		PersistMessages:     false,
		RateLimitPerMinute:  &limit,
	}
}

// Clone returns a deep copy of the settings.
func (s ChannelSettings) Clone() ChannelSettings {
	if s.RateLimitPerMinute != nil {
		v := *s.RateLimitPerMinute
		s.RateLimitPerMinute = &v
	}
	return s
}

// SettingsInput carries caller-supplied settings. Nil fields take the
// registry defaults.
type SettingsInput struct {
	MaxConnections      *int  `json:"max_connections,omitempty"`
	AllowClientMessages *bool `json:"allow_client_messages,omitempty"`
	PersistMessages     *bool `json:"persist_messages,omitempty"`
	RateLimitPerMinute  *int  `json:"rate_limit_per_minute,omitempty"`
}

// Merge overlays the input on defaults and returns the result.
func (in *SettingsInput) Merge(defaults ChannelSettings) ChannelSettings {
	out := defaults.Clone()
	if in == nil {
		return out
	}
	if in.MaxConnections != nil {
		out.MaxConnections = *in.MaxConnections
	}
	if in.AllowClientMessages != nil {
		out.AllowClientMessages = *in.AllowClientMessages
	}
	if in.PersistMessages != nil {
		out.PersistMessages = *in.PersistMessages
	}
	if in.RateLimitPerMinute != nil {
		v := *in.RateLimitPerMinute
		out.RateLimitPerMinute = &v
	}
	return out
}

// CreateChannelInput is the request to create a channel.
type CreateChannelInput struct {
	Name        string         `json:"name"`
	Description *string        `json:"description,omitempty"`
	Settings    *SettingsInput `json:"settings,omitempty"`
}

// Channel is a named broadcast topic.
type Channel struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	Status      ChannelStatus   `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Settings    ChannelSettings `json:"settings"`
}

// Clone returns a deep copy of the channel.
func (c *Channel) Clone() *Channel {
	out := *c
	if c.Description != nil {
		d := *c.Description
		out.Description = &d
	}
	out.Settings = c.Settings.Clone()
	return &out
}

// Touch sets UpdatedAt to now, never moving it backwards.
func (c *Channel) Touch(now time.Time) {
	now = now.UTC()
	if now.Before(c.UpdatedAt) {
		return
	}
	c.UpdatedAt = now
}
