package notify

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// ErrAnnouncementNotFound is returned by Sink.Update and Sink.Retract when the
// referenced message no longer exists.
var ErrAnnouncementNotFound = errors.New("announcement not found")

// Sink publishes announcements to an external channel.
type Sink interface {
	// Name identifies the sink in logs.
	Name() string
	// Render posts a new announcement and returns its reference.
	Render(ctx context.Context, a Announcement) (string, error)
	// Update replaces the content of an existing announcement.
	Update(ctx context.Context, ref string, a Announcement) error
	// Retract turns an existing announcement into its cancelled form.
	Retract(ctx context.Context, ref string, a Announcement) error
}

// LogSink writes announcements to the log instead of a chat service.
type LogSink struct {
	seq  atomic.Int64
	mu   sync.Mutex
	live map[string]bool
}

// NewLogSink creates a LogSink.
func NewLogSink() *LogSink {
	return &LogSink{live: make(map[string]bool)}
}

// Name implements Sink.
func (s *LogSink) Name() string { return "log" }

// Render implements Sink.
func (s *LogSink) Render(_ context.Context, a Announcement) (string, error) {
	ref := "log-" + strconv.FormatInt(s.seq.Add(1), 10)

	s.mu.Lock()
	s.live[ref] = true
	s.mu.Unlock()

	log.Info().
		Str("ref", ref).
		Str("party_id", a.PartyID).
		Str("title", a.Title).
		Str("banner", a.Banner).
		Msg("Announcement rendered")
	return ref, nil
}

// Update implements Sink.
func (s *LogSink) Update(_ context.Context, ref string, a Announcement) error {
	if !s.known(ref) {
		return ErrAnnouncementNotFound
	}
	log.Info().
		Str("ref", ref).
		Str("party_id", a.PartyID).
		Str("title", a.Title).
		Str("banner", a.Banner).
		Msg("Announcement updated")
	return nil
}

// Retract implements Sink.
func (s *LogSink) Retract(_ context.Context, ref string, a Announcement) error {
	if !s.known(ref) {
		return ErrAnnouncementNotFound
	}
	log.Info().Str("ref", ref).Str("party_id", a.PartyID).Msg("Announcement retracted")
	return nil
}

func (s *LogSink) known(ref string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live[ref]
}
