package voice

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"lending-core/internal/common/errors"

	"github.com/google/uuid"
)

// VoicemailStore persists recorded messages. The in-memory store backs
// tests and single-node deployments; the Postgres store is used when a
// database DSN is configured.
type VoicemailStore interface {
	Add(ctx context.Context, vm Voicemail) (Voicemail, error)
	List(ctx context.Context, mailboxID string) ([]Voicemail, error)
	SetRead(ctx context.Context, mailboxID, voicemailID string, read bool) error
	Delete(ctx context.Context, mailboxID, voicemailID string) error
	UnreadCounts(ctx context.Context) (map[string]int, error)
}

// MemoryStore keeps voicemails per mailbox, newest first.
type MemoryStore struct {
	mu       sync.RWMutex
	messages map[string][]Voicemail
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{messages: make(map[string][]Voicemail)}
}

func (s *MemoryStore) Add(_ context.Context, vm Voicemail) (Voicemail, error) {
	if vm.ID == "" {
		vm.ID = uuid.New().String()
	}
	if vm.CreatedAt.IsZero() {
		vm.CreatedAt = time.Now().UTC()
	}
	vm.Read = false

	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[vm.MailboxID] = append([]Voicemail{vm}, s.messages[vm.MailboxID]...)
	return vm, nil
}

func (s *MemoryStore) List(_ context.Context, mailboxID string) ([]Voicemail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Voicemail, len(s.messages[mailboxID]))
	copy(out, s.messages[mailboxID])
	return out, nil
}

// SetRead toggles one voicemail. Only the read flag is ever mutated
// after a voicemail is stored.
func (s *MemoryStore) SetRead(_ context.Context, mailboxID, voicemailID string, read bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.messages[mailboxID]
	for i := range msgs {
		if msgs[i].ID == voicemailID {
			msgs[i].Read = read
			return nil
		}
	}
	return errors.NewVoicemailNotFoundError(voicemailID)
}

func (s *MemoryStore) Delete(_ context.Context, mailboxID, voicemailID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.messages[mailboxID]
	for i := range msgs {
		if msgs[i].ID == voicemailID {
			s.messages[mailboxID] = append(msgs[:i], msgs[i+1:]...)
			return nil
		}
	}
	return errors.NewVoicemailNotFoundError(voicemailID)
}

func (s *MemoryStore) UnreadCounts(_ context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for mailboxID, msgs := range s.messages {
		for _, vm := range msgs {
			if !vm.Read {
				counts[mailboxID]++
			}
		}
	}
	return counts, nil
}

// PostgresStore persists voicemails in the voicemails table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Add(ctx context.Context, vm Voicemail) (Voicemail, error) {
	if vm.ID == "" {
		vm.ID = uuid.New().String()
	}
	if vm.CreatedAt.IsZero() {
		vm.CreatedAt = time.Now().UTC()
	}
	vm.Read = false

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO voicemails (id, mailbox_id, from_number, recording_url, duration_sec, created_at, read, tenant)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		vm.ID, vm.MailboxID, vm.From, vm.RecordingURL, vm.DurationSec, vm.CreatedAt, vm.Read, string(vm.Tenant))
	if err != nil {
		return Voicemail{}, errors.NewVoicemailStoreFailedError(err)
	}
	return vm, nil
}

func (s *PostgresStore) List(ctx context.Context, mailboxID string) ([]Voicemail, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, mailbox_id, from_number, recording_url, duration_sec, created_at, read, tenant
		 FROM voicemails WHERE mailbox_id = $1 ORDER BY created_at DESC`,
		mailboxID)
	if err != nil {
		return nil, errors.NewVoicemailStoreFailedError(err)
	}
	defer rows.Close()

	var out []Voicemail
	for rows.Next() {
		var vm Voicemail
		var tenant string
		if err := rows.Scan(&vm.ID, &vm.MailboxID, &vm.From, &vm.RecordingURL,
			&vm.DurationSec, &vm.CreatedAt, &vm.Read, &tenant); err != nil {
			return nil, errors.NewVoicemailStoreFailedError(err)
		}
		vm.Tenant = Tenant(tenant)
		out = append(out, vm)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewVoicemailStoreFailedError(err)
	}
	return out, nil
}

func (s *PostgresStore) SetRead(ctx context.Context, mailboxID, voicemailID string, read bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE voicemails SET read = $1 WHERE mailbox_id = $2 AND id = $3`,
		read, mailboxID, voicemailID)
	if err != nil {
		return errors.NewVoicemailStoreFailedError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.NewVoicemailStoreFailedError(err)
	}
	if n == 0 {
		return errors.NewVoicemailNotFoundError(voicemailID)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, mailboxID, voicemailID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM voicemails WHERE mailbox_id = $1 AND id = $2`,
		mailboxID, voicemailID)
	if err != nil {
		return errors.NewVoicemailStoreFailedError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.NewVoicemailStoreFailedError(err)
	}
	if n == 0 {
		return errors.NewVoicemailNotFoundError(voicemailID)
	}
	return nil
}

func (s *PostgresStore) UnreadCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT mailbox_id, COUNT(*) FROM voicemails WHERE read = false GROUP BY mailbox_id`)
	if err != nil {
		return nil, errors.NewVoicemailStoreFailedError(err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var mailboxID string
		var n int
		if err := rows.Scan(&mailboxID, &n); err != nil {
			return nil, errors.NewVoicemailStoreFailedError(err)
		}
		counts[mailboxID] = n
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewVoicemailStoreFailedError(err)
	}
	return counts, nil
}
