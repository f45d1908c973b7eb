package voice

import "time"

// Tenant identifies which brand an inbound call belongs to.
type Tenant string

const (
	TenantBF  Tenant = "BF"
	TenantSLF Tenant = "SLF"
)

// User is a staff member reachable through the phone directory.
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Role      string `json:"role,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	MailboxID string `json:"mailboxId"`
	Extension string `json:"extension"`
}

// Mailbox receives voicemails and fans notifications out to its
// recipients. A user's owned mailbox has exactly one recipient; shared
// mailboxes (intake) notify several.
type Mailbox struct {
	ID         string   `json:"id"`
	Label      string   `json:"label"`
	Recipients []string `json:"recipients"` // ordered user ids
}

// Voicemail is one recorded message in a mailbox.
type Voicemail struct {
	ID           string    `json:"id"`
	MailboxID    string    `json:"mailboxId"`
	From         string    `json:"from"`
	RecordingURL string    `json:"recordingUrl"`
	DurationSec  int       `json:"durationSec"`
	CreatedAt    time.Time `json:"createdAt"`
	Read         bool      `json:"read"`
	Tenant       Tenant    `json:"tenant"`
}

// MailboxSummary is the admin listing shape: mailbox plus unread count.
type MailboxSummary struct {
	Mailbox
	Unread int `json:"unread"`
}

// VoicemailEvent is published for live dashboard listeners when a
// recording completes.
type VoicemailEvent struct {
	Type      string    `json:"type"`
	Voicemail Voicemail `json:"voicemail"`
}
