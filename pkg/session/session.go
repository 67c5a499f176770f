// Package session holds per-caller server-side state across requests.
//
// A Session is owned by a single request at a time: the HTTP layer loads it
// from a Store, hands it to the account store, and saves or destroys it once
// the handler returns. Values are kept JSON-encoded so every backend stores
// the same bytes.
package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Reserved keys.
const (
	KeyAccount = "account"
	KeyError   = "error"
	KeySuccess = "success"
	KeyFill    = "fill"
)

// Store persists sessions between requests.
type Store interface {
	// Load returns domain.ErrSessionNotFound when id is unknown or expired.
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Destroy(ctx context.Context, id string) error
}

// Session is a mutable key-value map scoped to one caller.
type Session struct {
	ID        string                     `json:"id"`
	Values    map[string]json.RawMessage `json:"values"`
	CreatedAt time.Time                  `json:"created_at"`

	dirty       bool
	invalidated bool
	previousID  string
}

// New creates an empty session with a fresh random ID.
func New() *Session {
	return &Session{
		ID:        uuid.NewString(),
		Values:    map[string]json.RawMessage{},
		CreatedAt: time.Now(),
	}
}

// Set stores v under key.
func (s *Session) Set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.Values[key] = raw
	s.dirty = true
	return nil
}

// Get decodes the value under key into dst. It reports false when the key is absent.
func (s *Session) Get(key string, dst any) (bool, error) {
	raw, ok := s.Values[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, err
	}
	return true, nil
}

// Has reports whether key is set.
func (s *Session) Has(key string) bool {
	_, ok := s.Values[key]
	return ok
}

// Unset removes keys. Missing keys are ignored.
func (s *Session) Unset(keys ...string) {
	for _, k := range keys {
		if _, ok := s.Values[k]; ok {
			delete(s.Values, k)
			s.dirty = true
		}
	}
}

// Clear drops every value.
func (s *Session) Clear() {
	if len(s.Values) > 0 {
		s.dirty = true
	}
	s.Values = map[string]json.RawMessage{}
}

// Invalidate clears the session and marks it for destruction; the owner must
// call Store.Destroy instead of Store.Save.
func (s *Session) Invalidate() {
	s.Clear()
	s.invalidated = true
}

// Renew gives the session a fresh ID and keeps its values. The owner must
// destroy PreviousID in the store when saving.
func (s *Session) Renew() {
	if s.previousID == "" {
		s.previousID = s.ID
	}
	s.ID = uuid.NewString()
	s.dirty = true
}

// PreviousID returns the ID replaced by Renew, or "".
func (s *Session) PreviousID() string { return s.previousID }

// Invalidated reports whether Invalidate was called.
func (s *Session) Invalidated() bool { return s.invalidated }

// Dirty reports whether the session changed since it was loaded.
func (s *Session) Dirty() bool { return s.dirty }

// MarkClean resets the dirty flag after a successful save.
func (s *Session) MarkClean() { s.dirty = false }

// Len returns the number of stored keys.
func (s *Session) Len() int { return len(s.Values) }

// SetError stores a user-facing error message.
func (s *Session) SetError(msg string) { _ = s.Set(KeyError, msg) }

// SetSuccess stores a user-facing success message.
func (s *Session) SetSuccess(msg string) { _ = s.Set(KeySuccess, msg) }

// SetFill stores form values to re-populate after a failed submission.
func (s *Session) SetFill(fields map[string]string) { _ = s.Set(KeyFill, fields) }

// ErrorMessage returns the stored error message, if any.
func (s *Session) ErrorMessage() string { return s.str(KeyError) }

// SuccessMessage returns the stored success message, if any.
func (s *Session) SuccessMessage() string { return s.str(KeySuccess) }

// Fill returns stored form values, if any.
func (s *Session) Fill() map[string]string {
	var m map[string]string
	if ok, err := s.Get(KeyFill, &m); !ok || err != nil {
		return nil
	}
	return m
}

func (s *Session) str(key string) string {
	var v string
	if ok, err := s.Get(key, &v); !ok || err != nil {
		return ""
	}
	return v
}

// clone returns a deep copy so stores never share maps with callers.
func (s *Session) clone() *Session {
	c := &Session{ID: s.ID, CreatedAt: s.CreatedAt, Values: make(map[string]json.RawMessage, len(s.Values))}
	for k, v := range s.Values {
		c.Values[k] = append(json.RawMessage(nil), v...)
	}
	return c
}
