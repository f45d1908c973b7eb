// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lending-core/internal/api"
	"lending-core/internal/common/config"
	"lending-core/internal/common/logger"
	"lending-core/internal/matching"
	"lending-core/internal/voice"
)

// stack wires the full service in-process: gin engine, memory voicemail
// store, and a miniredis instance backing both the product cache and the
// voicemail event channel.
type stack struct {
	engine *gin.Engine
	rdb    *redis.Client
	cfg    config.VoiceConfig
}

func newStack(t *testing.T, products matching.ProductRepository) *stack {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	voiceCfg := config.VoiceConfig{
		SLFNumber:        "+15005550006",
		MenuTimeout:      6,
		DirectoryTimeout: 8,
		MaxRecordingSec:  120,
		Menu: map[string]string{
			"1": "intake",
			"2": "mb_andrew",
		},
		Staff: []config.StaffConfig{
			{ID: "andrew", Name: "Andrew", Email: "andrew@example.com"},
			{ID: "todd", Name: "Todd", Email: "todd@example.com"},
		},
		EventChannel: "voice:events",
	}

	directory, err := voice.NewDirectoryFromConfig(voiceCfg)
	require.NoError(t, err)

	store := voice.NewMemoryStore()
	publisher := voice.NewRedisPublisher(rdb, voiceCfg.EventChannel)
	log := logger.NewNoOpLogger()
	callRouter := voice.NewCallRouter(voiceCfg, directory, store, nil, publisher, log)

	matchSvc := matching.NewService(matching.ServiceConfig{
		MinScore:     0.3,
		Limit:        50,
		CacheTTL:     time.Minute,
		CacheEnabled: true,
	}, products, nil, rdb, log)

	engine := api.NewRouter(config.AppConfig{Name: "lending-core", Environment: "test"}, log, nil,
		api.NewVoiceHandler(callRouter, store, directory, log),
		api.NewMatchingHandler(matchSvc, log),
	)

	return &stack{engine: engine, rdb: rdb, cfg: voiceCfg}
}

func (s *stack) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *stack) get(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

// TestInboundCallToVoicemail walks a caller through the whole IVR: dial
// in, pick a menu option, leave a message, and verify the message lands
// in the mailbox and on the event channel.
func TestInboundCallToVoicemail(t *testing.T) {
	s := newStack(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sub := s.rdb.Subscribe(ctx, s.cfg.EventChannel)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	// Caller dials the SLF number.
	w := s.postForm("/voice/inbound", url.Values{"To": {"+15005550006"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Streamline Funding")
	assert.Contains(t, w.Body.String(), "<Gather")

	// Presses 2 for Andrew, gets the record prompt.
	w = s.postForm("/voice/ivr?tenant=SLF", url.Values{"Digits": {"2"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Andrew")
	assert.Contains(t, w.Body.String(), "<Record")

	// The provider posts the finished recording.
	w = s.postForm("/voice/voicemail-complete?mb=mb_andrew&tenant=SLF", url.Values{
		"From":              {"+15005550100"},
		"RecordingUrl":      {"https://recordings.example.com/e2e"},
		"RecordingDuration": {"12"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok": true}`, w.Body.String())

	// The voicemail shows up unread.
	w = s.get("/voice/mailbox/mb_andrew/messages")
	require.Equal(t, http.StatusOK, w.Code)
	var listing struct {
		Messages []voice.Voicemail `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listing))
	require.Len(t, listing.Messages, 1)
	assert.Equal(t, "+15005550100", listing.Messages[0].From)
	assert.Equal(t, voice.TenantSLF, listing.Messages[0].Tenant)
	assert.False(t, listing.Messages[0].Read)

	// And on the live event channel.
	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	var event voice.VoicemailEvent
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &event))
	assert.Equal(t, voice.EventVoicemailReceived, event.Type)
	assert.Equal(t, "mb_andrew", event.Voicemail.MailboxID)
}

// TestDirectoryDialByExtension covers the dial-by-extension path end to
// end, including the unmatched-extension recovery loop.
func TestDirectoryDialByExtension(t *testing.T) {
	s := newStack(t, nil)

	w := s.postForm("/voice/ivr?tenant=BF", url.Values{"Digits": {"0"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `numDigits="3"`)

	w = s.postForm("/voice/directory?tenant=BF", url.Values{"Digits": {"201"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Todd")

	w = s.postForm("/voice/directory?tenant=BF", url.Values{"Digits": {"555"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/voice/inbound")
}

type staticProducts []matching.LenderProduct

func (p staticProducts) ListProducts(context.Context) ([]matching.LenderProduct, error) {
	return p, nil
}

func intPtr(v int) *int { return &v }

// TestMatchingThroughCache runs a catalog-backed match twice and checks
// the second read is served from the Redis cache.
func TestMatchingThroughCache(t *testing.T) {
	products := staticProducts{
		{
			ID:                   "prod-001",
			Name:                 "Business Growth Loan",
			MinimumLendingAmount: 10000,
			MaximumLendingAmount: 100000,
			CountryOffered:       "Canada",
			MinimumCreditScore:   intPtr(650),
			Category:             matching.CategoryBusinessLoan,
		},
	}
	s := newStack(t, products)

	body := `{"application": {"requestedAmount": 75000, "purpose": "Equipment purchase", "country": "Canada", "creditScore": 720}}`

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/matching/find", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		s.engine.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Matches []matching.MatchResult `json:"matches"`
			Count   int                    `json:"count"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Equal(t, 1, resp.Count)
		assert.Equal(t, 1.0, resp.Matches[0].Score)
	}

	// The catalog landed in the cache on the first request.
	cached, err := s.rdb.Get(context.Background(), "matching:products").Result()
	require.NoError(t, err)
	assert.Contains(t, cached, "prod-001")
}
