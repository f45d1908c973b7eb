package voice

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"lending-core/internal/common/config"
	"lending-core/internal/common/logger"
	"lending-core/internal/common/metrics"
)

// CallRouter drives the inbound IVR. Each method renders one webhook
// round-trip of the call state machine; the telephony provider holds
// the actual call state and posts back to the action URLs we emit.
// Handlers always return playable markup, even for bad input: the
// caller hears an error prompt and lands back at the main menu instead
// of a dropped call.
type CallRouter struct {
	config    config.VoiceConfig
	directory *Directory
	store     VoicemailStore
	notifier  *Notifier
	publisher Publisher
	logger    logger.Logger
}

func NewCallRouter(cfg config.VoiceConfig, directory *Directory, store VoicemailStore, notifier *Notifier, publisher Publisher, log logger.Logger) *CallRouter {
	return &CallRouter{
		config:    cfg,
		directory: directory,
		store:     store,
		notifier:  notifier,
		publisher: publisher,
		logger:    log,
	}
}

// TenantFromTo resolves the brand from the dialed number. Only the SLF
// outbound number maps to SLF; everything else is BF.
func (r *CallRouter) TenantFromTo(to string) Tenant {
	if r.config.SLFNumber != "" && strings.TrimSpace(to) == r.config.SLFNumber {
		return TenantSLF
	}
	return TenantBF
}

func tenantName(t Tenant) string {
	if t == TenantSLF {
		return "Streamline Funding"
	}
	return "Beacon Financial"
}

// Inbound renders the tenant-branded main menu. A gather timeout falls
// through to the redirect and replays the menu.
func (r *CallRouter) Inbound(tenant Tenant) *Response {
	metrics.CallsRouted.WithLabelValues(string(tenant), "inbound").Inc()

	resp := NewResponse()
	resp.Gather(1, r.config.MenuTimeout, r.actionURL("/voice/ivr", tenant, ""), r.menuPrompt(tenant))
	resp.Say("We did not receive a selection.")
	resp.Redirect(r.actionURL("/voice/inbound", tenant, ""))
	return resp
}

func (r *CallRouter) menuPrompt(tenant Tenant) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Thank you for calling %s. ", tenantName(tenant))

	digits := make([]string, 0, len(r.config.Menu))
	for d := range r.config.Menu {
		digits = append(digits, d)
	}
	sort.Strings(digits)
	for _, d := range digits {
		label := r.config.Menu[d]
		if mb, err := r.directory.Mailbox(label); err == nil {
			label = mb.Label
		}
		fmt.Fprintf(&b, "Press %s for %s. ", d, label)
	}
	b.WriteString("Press 0 to dial by extension.")
	return b.String()
}

// HandleMenuDigit routes a main-menu selection. Digit 0 opens the
// dial-by-extension prompt; configured digits go straight to the mapped
// mailbox's greeting.
func (r *CallRouter) HandleMenuDigit(tenant Tenant, digit string) *Response {
	digit = strings.TrimSpace(digit)

	if digit == "0" {
		metrics.CallsRouted.WithLabelValues(string(tenant), "directory_prompt").Inc()
		resp := NewResponse()
		resp.Gather(3, r.config.DirectoryTimeout, r.actionURL("/voice/directory", tenant, ""),
			"Please enter the three digit extension of the person you are trying to reach.")
		resp.Redirect(r.actionURL("/voice/inbound", tenant, ""))
		return resp
	}

	if mailboxID, ok := r.config.Menu[digit]; ok {
		if _, err := r.directory.Mailbox(mailboxID); err == nil {
			return r.VoicemailPrompt(tenant, mailboxID)
		}
		r.logger.Error("Menu digit maps to unknown mailbox", map[string]interface{}{
			"digit":      digit,
			"mailbox_id": mailboxID,
		})
	}

	metrics.CallsRouted.WithLabelValues(string(tenant), "invalid_digit").Inc()
	resp := NewResponse()
	resp.Say("Sorry, that is not a valid option.")
	resp.Redirect(r.actionURL("/voice/inbound", tenant, ""))
	return resp
}

// HandleDirectoryDigits resolves a dialed 3-digit extension.
func (r *CallRouter) HandleDirectoryDigits(tenant Tenant, digits string) *Response {
	mailbox, err := r.directory.MailboxByExtension(digits)
	if err != nil {
		metrics.CallsRouted.WithLabelValues(string(tenant), "extension_not_found").Inc()
		resp := NewResponse()
		resp.Say("Sorry, we could not find that extension.")
		resp.Redirect(r.actionURL("/voice/inbound", tenant, ""))
		return resp
	}

	metrics.CallsRouted.WithLabelValues(string(tenant), "directory_match").Inc()
	return r.VoicemailPrompt(tenant, mailbox.ID)
}

// VoicemailPrompt speaks the mailbox greeting and starts a recording.
func (r *CallRouter) VoicemailPrompt(tenant Tenant, mailboxID string) *Response {
	label := mailboxID
	if mb, err := r.directory.Mailbox(mailboxID); err == nil {
		label = mb.Label
	}

	metrics.CallsRouted.WithLabelValues(string(tenant), "voicemail_prompt").Inc()
	resp := NewResponse()
	resp.Say(fmt.Sprintf("Please leave a message for %s after the beep.", label))
	resp.Record(r.config.MaxRecordingSec, r.actionURL("/voice/voicemail-complete", tenant, mailboxID))
	return resp
}

// CompleteRecording persists the finished recording, publishes the
// event, and fans notifications out in the background. Publish and
// notify failures never surface to the telephony provider; the
// voicemail is already stored by then.
func (r *CallRouter) CompleteRecording(ctx context.Context, tenant Tenant, mailboxID, from, recordingURL string, durationSec int) (Voicemail, error) {
	if _, err := r.directory.Mailbox(mailboxID); err != nil {
		return Voicemail{}, err
	}

	vm, err := r.store.Add(ctx, Voicemail{
		MailboxID:    mailboxID,
		From:         from,
		RecordingURL: recordingURL,
		DurationSec:  durationSec,
		Tenant:       tenant,
	})
	if err != nil {
		return Voicemail{}, err
	}

	metrics.VoicemailsRecorded.WithLabelValues(mailboxID).Inc()
	r.logger.Info("Voicemail recorded", map[string]interface{}{
		"voicemail_id": vm.ID,
		"mailbox_id":   mailboxID,
		"tenant":       string(tenant),
		"duration_sec": durationSec,
	})

	if err := r.publisher.PublishVoicemail(ctx, vm); err != nil {
		r.logger.Error("Failed to publish voicemail event", map[string]interface{}{
			"voicemail_id": vm.ID,
			"error":        err.Error(),
		})
	}

	if r.notifier != nil {
		go r.notifier.NotifyMailbox(context.Background(), mailboxID, vm)
	}

	return vm, nil
}

// MailboxSummaries returns every mailbox with its unread count.
func (r *CallRouter) MailboxSummaries(ctx context.Context) ([]MailboxSummary, error) {
	counts, err := r.store.UnreadCounts(ctx)
	if err != nil {
		return nil, err
	}

	mailboxes := r.directory.Mailboxes()
	out := make([]MailboxSummary, 0, len(mailboxes))
	for _, mb := range mailboxes {
		out = append(out, MailboxSummary{Mailbox: mb, Unread: counts[mb.ID]})
	}
	return out, nil
}

func (r *CallRouter) actionURL(path string, tenant Tenant, mailboxID string) string {
	q := url.Values{}
	q.Set("tenant", string(tenant))
	if mailboxID != "" {
		q.Set("mb", mailboxID)
	}
	return path + "?" + q.Encode()
}
