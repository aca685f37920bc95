package sessionkit

import (
	"encoding/json"
	"io"

	internalevents "github.com/vikareta/sessionkit/internal/events"
)

// Role is the account role carried in the user profile.
type Role string

const (
	// RoleBuyer is a purchasing account.
	RoleBuyer Role = "buyer"
	// RoleSeller is a supplier account.
	RoleSeller Role = "seller"
	// RoleAdmin is a platform administrator.
	RoleAdmin Role = "admin"
	// RoleBoth is a combined buyer and seller account.
	RoleBoth Role = "both"
)

// User is the cached profile returned by the backend. It is replaced
// wholesale on every successful auth response and never mutated in place.
type User struct {
	ID               string `json:"id"`
	Email            string `json:"email"`
	FirstName        string `json:"firstName,omitempty"`
	LastName         string `json:"lastName,omitempty"`
	Role             Role   `json:"role"`
	Verified         bool   `json:"isVerified"`
	VerificationTier string `json:"verificationTier,omitempty"`
	BusinessName     string `json:"businessName,omitempty"`
	Phone            string `json:"phone,omitempty"`
}

// Credentials is the input for [Client.Login].
type Credentials struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe,omitempty"`
}

// AuthResult is returned by Login, CheckSession, and Refresh on success.
// Tokens are included so callers embedding the client can mirror them into
// their own transport (cookies, headers) when needed.
type AuthResult struct {
	User         *User
	AccessToken  string
	RefreshToken string
}

// authEnvelope is the wire shape shared by every auth endpoint.
type authEnvelope struct {
	Success      bool   `json:"success"`
	User         *User  `json:"user,omitempty"`
	AccessToken  string `json:"accessToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
	Error        string `json:"error,omitempty"`
}

// csrfEnvelope is the JSON body fallback of the CSRF bootstrap endpoint.
type csrfEnvelope struct {
	CSRFToken string `json:"csrfToken,omitempty"`
	Token     string `json:"token,omitempty"`
}

func (e *csrfEnvelope) value() string {
	if e.CSRFToken != "" {
		return e.CSRFToken
	}
	return e.Token
}

func encodeUser(u *User) []byte {
	if u == nil {
		return nil
	}
	data, err := json.Marshal(u)
	if err != nil {
		return nil
	}
	return data
}

func decodeUser(data []byte) *User {
	if len(data) == 0 {
		return nil
	}
	var u User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil
	}
	return &u
}

// Event is a structured session event emitted by the client's dispatcher.
type Event = internalevents.Event

// EventSink receives [Event] values from the client's event dispatcher.
type EventSink = internalevents.Sink

// NoOpSink is an [EventSink] that silently discards all events.
type NoOpSink = internalevents.NoOpSink

// ChannelSink is a buffered channel-based [EventSink].
type ChannelSink = internalevents.ChannelSink

// JSONWriterSink is an [EventSink] that writes JSON-encoded events to an
// [io.Writer], one object per line.
type JSONWriterSink = internalevents.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalevents.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalevents.NewJSONWriterSink(w)
}

// Event types emitted by the client. Consumers subscribing a sink can use
// these to propagate logout across processes the way browser tabs react to
// storage events.
const (
	EventLogin              = "login"
	EventLoginFailure       = "login_failure"
	EventRefresh            = "refresh"
	EventRefreshFailure     = "refresh_failure"
	EventRefreshExhausted   = "refresh_exhausted"
	EventSessionCheck       = "session_check"
	EventSessionCheckFailed = "session_check_failure"
	EventLogout             = "logout"
	EventLogoutRemoteFailed = "logout_remote_failure"
	EventSessionCleared     = "session_cleared"
	EventRateLimited        = "rate_limited"
	EventCookieFallback     = "cookie_fallback"
)
