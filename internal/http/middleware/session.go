package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/tendant/simple-accounts/internal/httputil"
	"github.com/tendant/simple-accounts/pkg/domain"
	"github.com/tendant/simple-accounts/pkg/session"
)

// Session loads the session named by the session cookie, or starts a new one,
// and puts it in the request context. Changes are committed just before the
// response headers go out: dirty sessions are saved and the cookie refreshed,
// invalidated sessions are destroyed and the cookie cleared. A renewed
// session also destroys its previous ID.
func Session(store session.Store, ttl time.Duration, cookies httputil.CookieConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, fromCookie := loadSession(r, store, logger)

			sw := &sessionWriter{
				ResponseWriter: w,
				commit: func() {
					commitSession(r.Context(), w, store, sess, fromCookie, ttl, cookies, logger)
				},
			}

			ctx := context.WithValue(r.Context(), SessionKey, sess)
			next.ServeHTTP(sw, r.WithContext(ctx))
			sw.flushSession()
		})
	}
}

// GetSession extracts the session from the request context.
func GetSession(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(SessionKey).(*session.Session)
	return sess
}

func loadSession(r *http.Request, store session.Store, logger *slog.Logger) (*session.Session, bool) {
	id, ok := httputil.GetSessionIDFromCookie(r)
	if !ok {
		return session.New(), false
	}

	sess, err := store.Load(r.Context(), id)
	if err != nil {
		if !errors.Is(err, domain.ErrSessionNotFound) {
			logger.ErrorContext(r.Context(), "failed to load session", "error", err)
		}
		return session.New(), false
	}
	return sess, true
}

func commitSession(ctx context.Context, w http.ResponseWriter, store session.Store, sess *session.Session, fromCookie bool, ttl time.Duration, cookies httputil.CookieConfig, logger *slog.Logger) {
	if sess.Invalidated() {
		if fromCookie {
			id := sess.ID
			if prev := sess.PreviousID(); prev != "" {
				id = prev
			}
			if err := store.Destroy(ctx, id); err != nil {
				logger.ErrorContext(ctx, "failed to destroy session", "error", err)
			}
		}
		httputil.ClearSessionCookie(w, cookies)
		return
	}

	if !sess.Dirty() {
		return
	}
	if !fromCookie && sess.Len() == 0 {
		return
	}
	if err := store.Save(ctx, sess); err != nil {
		logger.ErrorContext(ctx, "failed to save session", "error", err)
		return
	}
	if prev := sess.PreviousID(); prev != "" && fromCookie {
		if err := store.Destroy(ctx, prev); err != nil {
			logger.ErrorContext(ctx, "failed to destroy previous session", "error", err)
		}
	}
	httputil.SetSessionCookie(w, sess.ID, ttl, cookies)
}

// sessionWriter commits the session once, before the first header or body byte.
type sessionWriter struct {
	http.ResponseWriter
	commit    func()
	committed bool
}

func (w *sessionWriter) flushSession() {
	if w.committed {
		return
	}
	w.committed = true
	w.commit()
}

func (w *sessionWriter) WriteHeader(status int) {
	w.flushSession()
	w.ResponseWriter.WriteHeader(status)
}

func (w *sessionWriter) Write(b []byte) (int, error) {
	w.flushSession()
	return w.ResponseWriter.Write(b)
}

func (w *sessionWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
