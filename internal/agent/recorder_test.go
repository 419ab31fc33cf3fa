package agent

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/mohamedsaligh/mcp-server-client/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderTitlePolicy(t *testing.T) {
	ctx := context.Background()
	prompt := "what is the area of a circle r" // 30 characters
	require.Len(t, prompt, 30)

	st := &memStore{}
	rec := &Recorder{History: st}

	title, err := rec.Title(ctx, "fresh", prompt)
	require.NoError(t, err)
	assert.Equal(t, prompt[:25], title)

	st.runs = []store.ChatRecord{{SessionID: "titled", SessionTitle: "Shapes and areas"}}
	title, err = rec.Title(ctx, "titled", prompt)
	require.NoError(t, err)
	assert.Equal(t, "Shapes and areas", title)

	st.runs = append(st.runs, store.ChatRecord{SessionID: "untitled"})
	long := "compute the total surface area of a sphere of radius seven please"
	title, err = rec.Title(ctx, "untitled", long)
	require.NoError(t, err)
	assert.Equal(t, long[:40], title)
}

func TestRecorderTitleCountsRunes(t *testing.T) {
	rec := &Recorder{History: &memStore{}}
	title, err := rec.Title(context.Background(), "s", "Площадь квадрата со стороной четыре")
	require.NoError(t, err)
	assert.Equal(t, 25, len([]rune(title)))
}

func TestRecorderWritesFreshRows(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(filepath.Join(t.TempDir(), "rec.db"))
	require.NoError(t, err)
	defer st.Close()

	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	rec := &Recorder{History: st, Now: func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}}

	plan, err := ParsePlan(areaPlan)
	require.NoError(t, err)
	run := Run{
		SessionID:      "s1",
		UserID:         "u1",
		OriginalPrompt: areaPrompt,
		PlanText:       areaPlan,
		Plan:           plan,
		Steps:          []ExecutionStep{{ServerName: "shape-area", Request: plan[0].Payload, Response: json.RawMessage(`{"area":16}`)}},
		FinalAnswer:    "16",
	}

	first, err := rec.Record(ctx, run)
	require.NoError(t, err)
	run.OriginalPrompt = "and now only the circle please"
	second, err := rec.Record(ctx, run)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, first.SessionTitle, second.SessionTitle)

	replay, err := st.LoadSession(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, replay, 2)
	assert.Equal(t, areaPrompt, replay[0].UserPrompt)
	assert.JSONEq(t, `[{"server_name":"shape-area","request":{"shape":"square","dimension1":4},"response":{"area":16}}]`, string(replay[0].Steps))
}

func TestRecorderWrapsStoreFailure(t *testing.T) {
	rec := &Recorder{History: &memStore{saveErr: errors.New("disk full")}}
	_, err := rec.Record(context.Background(), Run{SessionID: "s"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPersistence))
	assert.Contains(t, err.Error(), "disk full")
}
