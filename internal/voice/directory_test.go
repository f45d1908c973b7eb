package voice

import (
	"fmt"
	"testing"

	"lending-core/internal/common/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testVoiceConfig() config.VoiceConfig {
	return config.VoiceConfig{
		SLFNumber:        "+15005550006",
		MenuTimeout:      6,
		DirectoryTimeout: 8,
		MaxRecordingSec:  120,
		Menu: map[string]string{
			"1": "intake",
			"2": "mb_andrew",
			"3": "mb_todd",
		},
		Staff: []config.StaffConfig{
			{ID: "andrew", Name: "Andrew", Email: "andrew@example.com", Phone: "+15005550001", Role: "broker"},
			{ID: "todd", Name: "Todd", Email: "todd@example.com", Role: "broker"},
		},
		EventChannel: "voice:events",
	}
}

func TestNewDirectoryFromConfig(t *testing.T) {
	d, err := NewDirectoryFromConfig(testVoiceConfig())
	require.NoError(t, err)

	intake, err := d.Mailbox("intake")
	require.NoError(t, err)
	assert.Equal(t, []string{"andrew", "todd"}, intake.Recipients)

	andrew, ok := d.UserByID("andrew")
	require.True(t, ok)
	assert.Equal(t, "mb_andrew", andrew.MailboxID)
	assert.Equal(t, "200", andrew.Extension)

	todd, ok := d.UserByID("todd")
	require.True(t, ok)
	assert.Equal(t, "201", todd.Extension)
}

func TestDirectory_Provision(t *testing.T) {
	t.Run("assigns the next free extension and a dedicated mailbox", func(t *testing.T) {
		d := NewDirectory()

		first, err := d.Provision(User{ID: "alice", Name: "Alice"})
		require.NoError(t, err)
		assert.Equal(t, "200", first.Extension)
		assert.Equal(t, "mb_alice", first.MailboxID)

		second, err := d.Provision(User{ID: "bob", Name: "Bob"})
		require.NoError(t, err)
		assert.Equal(t, "201", second.Extension)

		mb, err := d.Mailbox("mb_alice")
		require.NoError(t, err)
		assert.Equal(t, []string{"alice"}, mb.Recipients)
	})

	t.Run("re-provisioning updates in place and keeps the extension", func(t *testing.T) {
		d := NewDirectory()

		first, err := d.Provision(User{ID: "alice", Name: "Alice"})
		require.NoError(t, err)

		updated, err := d.Provision(User{ID: "alice", Name: "Alice B", Email: "alice@example.com"})
		require.NoError(t, err)
		assert.Equal(t, first.Extension, updated.Extension)
		assert.Equal(t, "Alice B", updated.Name)
		assert.Equal(t, "alice@example.com", updated.Email)

		// The old extension still resolves; no second one was allocated.
		next, err := d.Provision(User{ID: "bob", Name: "Bob"})
		require.NoError(t, err)
		assert.Equal(t, "201", next.Extension)
	})

	t.Run("rejects missing id or name", func(t *testing.T) {
		d := NewDirectory()
		_, err := d.Provision(User{Name: "No ID"})
		assert.Error(t, err)
		_, err = d.Provision(User{ID: "noname"})
		assert.Error(t, err)
	})

	t.Run("exhausting the extension range is an explicit error", func(t *testing.T) {
		d := NewDirectory()
		for i := extensionFirst; i <= extensionLast; i++ {
			_, err := d.Provision(User{ID: fmt.Sprintf("u%d", i), Name: "U"})
			require.NoError(t, err)
		}

		_, err := d.Provision(User{ID: "overflow", Name: "Overflow"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "EXTENSION_SPACE_EXHAUSTED")
	})
}

func TestDirectory_MailboxByExtension(t *testing.T) {
	d := NewDirectory()
	_, err := d.Provision(User{ID: "alice", Name: "Alice"})
	require.NoError(t, err)

	mb, err := d.MailboxByExtension("200")
	require.NoError(t, err)
	assert.Equal(t, "mb_alice", mb.ID)

	mb, err = d.MailboxByExtension(" 200 ")
	require.NoError(t, err)
	assert.Equal(t, "mb_alice", mb.ID)

	_, err = d.MailboxByExtension("734")
	assert.Error(t, err)
}

func TestDirectory_Recipients(t *testing.T) {
	d, err := NewDirectoryFromConfig(testVoiceConfig())
	require.NoError(t, err)

	users, err := d.Recipients("intake")
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "andrew", users[0].ID)
	assert.Equal(t, "todd", users[1].ID)

	_, err = d.Recipients("mb_nobody")
	assert.Error(t, err)
}
