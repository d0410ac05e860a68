package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTelegramAPI serves sendMessage and editMessageText.
type fakeTelegramAPI struct {
	mu       sync.Mutex
	requests []map[string]any
	missing  string
}

func (f *fakeTelegramAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var params map[string]any
	_ = json.NewDecoder(r.Body).Decode(&params)

	f.mu.Lock()
	f.requests = append(f.requests, params)
	missing := f.missing
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":77,"date":0,"chat":{"id":-100123,"type":"channel"},"text":"x"}}`))
	case strings.HasSuffix(r.URL.Path, "/editMessageText"):
		if params["message_id"] == missing {
			_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: message to edit not found"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":77,"date":0,"chat":{"id":-100123,"type":"channel"},"text":"x"}}`))
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":404,"description":"Not Found"}`))
	}
}

func setupTelegram(t *testing.T) (*TelegramSink, *fakeTelegramAPI) {
	t.Helper()
	api := &fakeTelegramAPI{}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	sink, err := NewTelegramSink("123:abc", -100123, srv.URL)
	require.NoError(t, err)
	return sink, api
}

func TestTelegramSink_RenderAndUpdate(t *testing.T) {
	sink, api := setupTelegram(t)
	ctx := context.Background()

	ref, err := sink.Render(ctx, Build(testParty(1), "https://party.example.com"))
	require.NoError(t, err)
	assert.Equal(t, "-100123:77", ref)

	require.NoError(t, sink.Update(ctx, ref, Build(testParty(5), "https://party.example.com")))

	require.Len(t, api.requests, 2)
	text, _ := api.requests[1]["text"].(string)
	assert.Contains(t, text, "<b>[마감됨]</b>")
	assert.Contains(t, text, "5/5명")
	assert.Equal(t, "77", api.requests[1]["message_id"])
}

func TestTelegramSink_MissingMessage(t *testing.T) {
	sink, api := setupTelegram(t)
	api.missing = "78"

	err := sink.Update(context.Background(), "-100123:78", Build(testParty(1), ""))
	assert.ErrorIs(t, err, ErrAnnouncementNotFound)

	err = sink.Retract(context.Background(), "garbage", BuildCancelled(testParty(1), ""))
	assert.ErrorIs(t, err, ErrAnnouncementNotFound)
}

func TestFormatHTML(t *testing.T) {
	a := BuildCancelled(testParty(0), "")
	a.Title = "<script> & raid"

	out := formatHTML(a)
	assert.True(t, strings.HasPrefix(out, "<b>[취소됨]</b> <s>이 파티는 취소되었습니다.</s>"))
	assert.Contains(t, out, "&lt;script&gt; &amp; raid")
	assert.Contains(t, out, "<b>레이드</b> 파티가 모집 중입니다!")
	assert.Contains(t, out, "<i>개최자: kim</i>")
}
