package client

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// Entry is the local copy of a link. IsExpired is derived from ExpiresAt and
// is never checked against the server.
type Entry struct {
	LocalID     int64     `json:"localId"`
	ShortID     string    `json:"shortId"`
	OriginalURL string    `json:"originalUrl"`
	ShortURL    string    `json:"shortUrl"`
	Clicks      int64     `json:"clicks"`
	ExpiresAt   time.Time `json:"expiresAt"`
	IsExpired   bool      `json:"isExpired"`
}

// CreatedAt is when the entry was added locally.
func (e Entry) CreatedAt() time.Time {
	return time.UnixMilli(e.LocalID)
}

// NewEntry builds the history entry for a link that was just shortened.
func NewEntry(originalURL string, res *ShortenResult, now time.Time) Entry {
	return Entry{
		LocalID:     now.UnixMilli(),
		ShortID:     res.ShortID(),
		OriginalURL: originalURL,
		ShortURL:    res.ShortURL,
		Clicks:      res.Clicks,
		ExpiresAt:   res.ExpiresAt,
		IsExpired:   false,
	}
}

// History is a JSON array of entries kept in a file, newest first.
// The file is read once on open and rewritten on every Add and Remove.
type History struct {
	mu      sync.Mutex
	path    string
	entries []Entry
}

func OpenHistory(path string) (*History, error) {
	h := &History{path: path, entries: []Entry{}}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return h, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read history %s", path)
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return h, nil
	}
	if err := json.Unmarshal(raw, &h.entries); err != nil {
		return nil, errors.Wrapf(err, "parse history %s", path)
	}
	if h.entries == nil {
		h.entries = []Entry{}
	}
	return h, nil
}

func (h *History) Add(e Entry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append([]Entry{e}, h.entries...)
	return h.save()
}

// Remove drops every entry with shortID and reports whether one existed.
func (h *History) Remove(shortID string) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	kept := make([]Entry, 0, len(h.entries))
	for _, e := range h.entries {
		if e.ShortID != shortID {
			kept = append(kept, e)
		}
	}
	removed := len(kept) != len(h.entries)
	h.entries = kept
	return removed, h.save()
}

func (h *History) Entries() []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]Entry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Filter returns entries whose original URL contains term, ignoring case.
func (h *History) Filter(term string) []Entry {
	term = strings.ToLower(term)
	var out []Entry
	for _, e := range h.Entries() {
		if strings.Contains(strings.ToLower(e.OriginalURL), term) {
			out = append(out, e)
		}
	}
	return out
}

// Refresh recomputes IsExpired against now and reports whether any flag changed.
// It does not write the file.
func (h *History) Refresh(now time.Time) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	changed := false
	for i := range h.entries {
		expired := !h.entries[i].ExpiresAt.IsZero() && h.entries[i].ExpiresAt.Before(now)
		if expired != h.entries[i].IsExpired {
			h.entries[i].IsExpired = expired
			changed = true
		}
	}
	return changed
}

// Watch calls Refresh every interval until ctx is done and hands the current
// entries to fn after each tick.
func (h *History) Watch(ctx context.Context, interval time.Duration, fn func([]Entry)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			h.Refresh(now)
			fn(h.Entries())
		}
	}
}

func (h *History) save() error {
	raw, err := json.Marshal(h.entries)
	if err != nil {
		return errors.Wrap(err, "encode history")
	}
	if dir := filepath.Dir(h.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create %s", dir)
		}
	}
	tmp := h.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return errors.Wrapf(err, "write history %s", tmp)
	}
	return errors.Wrap(os.Rename(tmp, h.path), "replace history")
}
