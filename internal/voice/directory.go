package voice

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"lending-core/internal/common/config"
	"lending-core/internal/common/errors"
)

const (
	extensionFirst = 200
	extensionLast  = 999
)

// Directory holds the staff users, their mailboxes, and the
// extension index. All collections are guarded by one lock; mutations
// are short and synchronous.
type Directory struct {
	mu         sync.RWMutex
	users      map[string]*User
	mailboxes  map[string]*Mailbox
	extensions map[string]string // extension -> mailbox id
}

func NewDirectory() *Directory {
	return &Directory{
		users:      make(map[string]*User),
		mailboxes:  make(map[string]*Mailbox),
		extensions: make(map[string]string),
	}
}

// NewDirectoryFromConfig seeds the shared intake mailbox and provisions
// the configured staff. Every seeded staff member also receives intake
// notifications.
func NewDirectoryFromConfig(cfg config.VoiceConfig) (*Directory, error) {
	d := NewDirectory()
	d.mailboxes["intake"] = &Mailbox{
		ID:    "intake",
		Label: "the intake team",
	}

	for _, s := range cfg.Staff {
		if _, err := d.Provision(User{
			ID:    s.ID,
			Name:  s.Name,
			Email: s.Email,
			Phone: s.Phone,
			Role:  s.Role,
		}); err != nil {
			return nil, err
		}
		d.mu.Lock()
		d.mailboxes["intake"].Recipients = append(d.mailboxes["intake"].Recipients, s.ID)
		d.mu.Unlock()
	}
	return d, nil
}

// Provision registers a staff member. Re-provisioning an existing id
// updates contact details in place and keeps the already-assigned
// extension. New users get the next free extension in [200,999] and a
// dedicated mailbox whose sole recipient is the user; exhaustion of the
// extension range is an explicit error, never a colliding fallback.
func (d *Directory) Provision(u User) (*User, error) {
	if u.ID == "" || u.Name == "" {
		return nil, fmt.Errorf("provision requires id and name")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if existing, ok := d.users[u.ID]; ok {
		existing.Name = u.Name
		if u.Email != "" {
			existing.Email = u.Email
		}
		if u.Phone != "" {
			existing.Phone = u.Phone
		}
		if u.Role != "" {
			existing.Role = u.Role
		}
		copied := *existing
		return &copied, nil
	}

	ext, err := d.nextFreeExtensionLocked()
	if err != nil {
		return nil, err
	}

	mailboxID := "mb_" + u.ID
	u.MailboxID = mailboxID
	u.Extension = ext

	d.mailboxes[mailboxID] = &Mailbox{
		ID:         mailboxID,
		Label:      u.Name,
		Recipients: []string{u.ID},
	}
	stored := u
	d.users[u.ID] = &stored
	d.extensions[ext] = mailboxID

	copied := stored
	return &copied, nil
}

func (d *Directory) nextFreeExtensionLocked() (string, error) {
	for ext := extensionFirst; ext <= extensionLast; ext++ {
		candidate := fmt.Sprintf("%03d", ext)
		if _, taken := d.extensions[candidate]; !taken {
			return candidate, nil
		}
	}
	return "", errors.NewExtensionSpaceExhaustedError()
}

// MailboxByExtension resolves a 3-digit directory extension.
func (d *Directory) MailboxByExtension(ext string) (*Mailbox, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	mailboxID, ok := d.extensions[strings.TrimSpace(ext)]
	if !ok {
		return nil, errors.NewExtensionNotFoundError(ext)
	}
	mb := *d.mailboxes[mailboxID]
	return &mb, nil
}

// Mailbox returns a mailbox by id.
func (d *Directory) Mailbox(id string) (*Mailbox, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	mb, ok := d.mailboxes[id]
	if !ok {
		return nil, errors.NewMailboxNotFoundError(id)
	}
	copied := *mb
	return &copied, nil
}

// Mailboxes returns all mailboxes ordered by id.
func (d *Directory) Mailboxes() []Mailbox {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]Mailbox, 0, len(d.mailboxes))
	for _, mb := range d.mailboxes {
		out = append(out, *mb)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Recipients resolves a mailbox's recipient ids to users.
func (d *Directory) Recipients(mailboxID string) ([]User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	mb, ok := d.mailboxes[mailboxID]
	if !ok {
		return nil, errors.NewMailboxNotFoundError(mailboxID)
	}

	users := make([]User, 0, len(mb.Recipients))
	for _, id := range mb.Recipients {
		if u, ok := d.users[id]; ok {
			users = append(users, *u)
		}
	}
	return users, nil
}

// UserByID returns a user by id.
func (d *Directory) UserByID(id string) (*User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	u, ok := d.users[id]
	if !ok {
		return nil, false
	}
	copied := *u
	return &copied, true
}
