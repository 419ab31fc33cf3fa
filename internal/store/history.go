package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// UntitledSession is shown for sessions whose runs carry no title.
const UntitledSession = "(Untitled Session)"

// ChatRecord is one persisted orchestration run.
type ChatRecord struct {
	ID             string          `json:"id"`
	SessionID      string          `json:"session_id"`
	SessionTitle   string          `json:"session_title"`
	UserID         string          `json:"user_id"`
	OriginalPrompt string          `json:"original_prompt"`
	RefinedPrompt  string          `json:"refined_prompt"`
	FinalResponse  string          `json:"final_response"`
	Steps          json.RawMessage `json:"steps"`
	Requests       json.RawMessage `json:"requests"`
	CreatedAt      time.Time       `json:"created_at"`
}

type SessionSummary struct {
	SessionID    string `json:"session_id"`
	SessionTitle string `json:"session_title"`
}

// Exchange is one prompt/answer pair replayed from a session.
type Exchange struct {
	UserPrompt  string          `json:"user_prompt"`
	Steps       json.RawMessage `json:"steps"`
	FinalAnswer string          `json:"final_answer"`
}

// SaveRun inserts rec under a fresh id. Existing rows are never updated.
func (s *Store) SaveRun(ctx context.Context, rec ChatRecord) (ChatRecord, error) {
	rec.ID = uuid.New().String()
	created := s.timestamp(rec.CreatedAt)
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO chat_history (id, session_id, session_title, user_id, original_prompt, refined_prompt, final_response, steps, requests, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.SessionID, rec.SessionTitle, rec.UserID, rec.OriginalPrompt, rec.RefinedPrompt,
		rec.FinalResponse, rawText(rec.Steps), rawText(rec.Requests), created)
	if err != nil {
		return ChatRecord{}, err
	}
	rec.CreatedAt = parseTime(created)
	return rec, nil
}

// SessionTitle returns the title of the earliest run in the session and
// whether the session has any history at all.
func (s *Store) SessionTitle(ctx context.Context, sessionID string) (string, bool, error) {
	var title sql.NullString
	err := s.DB.QueryRowContext(ctx,
		`SELECT session_title FROM chat_history WHERE session_id = ? ORDER BY created_at, rowid LIMIT 1`,
		sessionID).Scan(&title)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return title.String, true, nil
}

// ListSessions returns one summary per session, most recently active first.
// The title is the earliest run's, as in SessionTitle.
func (s *Store) ListSessions(ctx context.Context) ([]SessionSummary, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT h.session_id,
			COALESCE((SELECT e.session_title FROM chat_history e
				WHERE e.session_id = h.session_id ORDER BY e.created_at, e.rowid LIMIT 1), ''),
			MAX(h.created_at) AS latest
		FROM chat_history h GROUP BY h.session_id ORDER BY latest DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []SessionSummary{}
	for rows.Next() {
		var sum SessionSummary
		var latest string
		if err := rows.Scan(&sum.SessionID, &sum.SessionTitle, &latest); err != nil {
			return nil, err
		}
		if sum.SessionTitle == "" {
			sum.SessionTitle = UntitledSession
		}
		sessions = append(sessions, sum)
	}
	return sessions, rows.Err()
}

// LoadSession replays a session in chronological order.
func (s *Store) LoadSession(ctx context.Context, sessionID string) ([]Exchange, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT COALESCE(original_prompt, ''), COALESCE(steps, ''), COALESCE(final_response, '')
		FROM chat_history WHERE session_id = ? ORDER BY created_at, rowid`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	exchanges := []Exchange{}
	for rows.Next() {
		var ex Exchange
		var steps string
		if err := rows.Scan(&ex.UserPrompt, &steps, &ex.FinalAnswer); err != nil {
			return nil, err
		}
		if steps == "" {
			steps = "[]"
		}
		ex.Steps = json.RawMessage(steps)
		exchanges = append(exchanges, ex)
	}
	return exchanges, rows.Err()
}

func rawText(m json.RawMessage) string {
	if len(m) == 0 {
		return "[]"
	}
	return string(m)
}
