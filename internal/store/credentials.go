package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Credential is a planning-oracle API credential.
type Credential struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Provider  string    `json:"provider"`
	BaseURL   string    `json:"base_url"`
	APIKey    string    `json:"api_key"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
}

const credentialColumns = `id, name, provider, COALESCE(base_url, ''), COALESCE(api_key, ''), COALESCE(model, ''), created_at`

func scanCredential(sc interface{ Scan(...any) error }) (Credential, error) {
	var c Credential
	var created string
	if err := sc.Scan(&c.ID, &c.Name, &c.Provider, &c.BaseURL, &c.APIKey, &c.Model, &created); err != nil {
		return Credential{}, err
	}
	c.CreatedAt = parseTime(created)
	return c, nil
}

func (s *Store) ListCredentials(ctx context.Context) ([]Credential, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT `+credentialColumns+` FROM llm_apis ORDER BY created_at, rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var creds []Credential
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		creds = append(creds, c)
	}
	return creds, rows.Err()
}

// ActiveCredential returns the earliest registered credential. ok is false
// when the registry is empty.
func (s *Store) ActiveCredential(ctx context.Context) (Credential, bool, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+credentialColumns+` FROM llm_apis ORDER BY created_at, rowid LIMIT 1`)
	c, err := scanCredential(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Credential{}, false, nil
	}
	if err != nil {
		return Credential{}, false, err
	}
	return c, true, nil
}

func (s *Store) getCredential(ctx context.Context, where string, arg string) (Credential, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+credentialColumns+` FROM llm_apis WHERE `+where+` = ?`, arg)
	c, err := scanCredential(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Credential{}, ErrNotFound
	}
	return c, err
}

// SaveCredential updates the credential matching c.ID, else the one matching
// c.Name, else inserts a new one.
func (s *Store) SaveCredential(ctx context.Context, c Credential) (Credential, error) {
	if c.Provider == "" {
		c.Provider = "openai"
	}

	var existing Credential
	var err error = ErrNotFound
	if c.ID != "" {
		existing, err = s.getCredential(ctx, "id", c.ID)
	}
	if errors.Is(err, ErrNotFound) && c.Name != "" {
		existing, err = s.getCredential(ctx, "name", c.Name)
	}

	switch {
	case err == nil:
		c.ID = existing.ID
		c.CreatedAt = existing.CreatedAt
		_, err = s.DB.ExecContext(ctx,
			`UPDATE llm_apis SET name = ?, provider = ?, base_url = ?, api_key = ?, model = ? WHERE id = ?`,
			c.Name, c.Provider, c.BaseURL, c.APIKey, c.Model, c.ID)
		if err != nil {
			return Credential{}, err
		}
		return c, nil
	case !errors.Is(err, ErrNotFound):
		return Credential{}, err
	}

	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	created := s.timestamp(c.CreatedAt)
	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO llm_apis (id, name, provider, base_url, api_key, model, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Provider, c.BaseURL, c.APIKey, c.Model, created)
	if err != nil {
		return Credential{}, err
	}
	c.CreatedAt = parseTime(created)
	return c, nil
}

func (s *Store) DeleteCredential(ctx context.Context, id string) (bool, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM llm_apis WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// MaskedKey keeps only the last four characters of the API key.
func (c Credential) MaskedKey() string {
	key := []rune(c.APIKey)
	if len(key) <= 4 {
		return "****"
	}
	return "****" + string(key[len(key)-4:])
}
