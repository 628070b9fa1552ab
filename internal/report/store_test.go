package report

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strangerchat/server/internal/session"
)

func newPaired(t *testing.T, pairs ...[2]string) *session.Store {
	t.Helper()
	s := session.NewStore()
	for _, p := range pairs {
		_, err := s.Create(p[0], p[1], "text", nil)
		require.NoError(t, err)
	}
	return s
}

func TestFile_Accepted(t *testing.T) {
	sessions := newPaired(t, [2]string{"A", "B"})
	tr := NewTracker(sessions, 3)
	sess, _ := sessions.Get("A")

	out, err := tr.File("A", "", "harassment", "was rude", "")
	require.NoError(t, err)
	assert.Equal(t, "B", out.Report.ReportedID)
	assert.Equal(t, "A", out.Report.ReporterID)
	assert.Equal(t, sess.ID, out.Report.SessionID)
	assert.False(t, out.Report.Timestamp.IsZero())
	assert.Equal(t, 1, out.Count)
	assert.False(t, out.Ban)
	assert.Equal(t, 1, tr.Total())
}

func TestFile_ExplicitPartnerAndRoom(t *testing.T) {
	sessions := newPaired(t, [2]string{"A", "B"})
	tr := NewTracker(sessions, 3)
	sess, _ := sessions.Get("B")

	_, err := tr.File("B", "A", "spam", "", sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, tr.CountFor("A"))
}

func TestFile_Threshold(t *testing.T) {
	sessions := newPaired(t, [2]string{"E", "P1"})
	tr := NewTracker(sessions, 3)

	out, err := tr.File("P1", "E", "spam", "", "")
	require.NoError(t, err)
	assert.False(t, out.Ban)
	out, err = tr.File("P1", "E", "spam", "", "")
	require.NoError(t, err)
	assert.False(t, out.Ban, "two reports must leave E alone")

	out, err = tr.File("P1", "E", "spam", "", "")
	require.NoError(t, err)
	assert.True(t, out.Ban)
	assert.Equal(t, 3, out.Count)
}

func TestFile_CountSurvivesSessions(t *testing.T) {
	sessions := session.NewStore()
	tr := NewTracker(sessions, 3)

	for i := 0; i < 3; i++ {
		reporter := fmt.Sprintf("P%d", i)
		_, err := sessions.Create(reporter, "E", "video", nil)
		require.NoError(t, err)

		out, err := tr.File(reporter, "E", "explicit", "", "")
		require.NoError(t, err)
		assert.Equal(t, i == 2, out.Ban, "report %d", i+1)

		sessions.Destroy("E")
	}
	assert.Equal(t, 3, tr.CountFor("E"))
}

func TestFile_Rejections(t *testing.T) {
	sessions := newPaired(t, [2]string{"A", "B"}, [2]string{"C", "D"})
	tr := NewTracker(sessions, 3)

	tests := []struct {
		name                         string
		reporter, reported, sessionID string
		reason, message              string
		want                         error
	}{
		{"not in session", "X", "", "", "spam", "", ErrNotInSession},
		{"not partner", "A", "C", "", "spam", "", ErrNotPartner},
		{"self", "A", "A", "", "spam", "", ErrNotPartner},
		{"wrong room", "A", "", "some-other-room", "spam", "", ErrSessionMismatch},
		{"empty reason", "A", "", "", "   ", "", ErrInvalidReason},
		{"long reason", "A", "", "", strings.Repeat("r", MaxReasonChars+1), "", ErrInvalidReason},
		{"long message", "A", "", "", "spam", strings.Repeat("m", MaxMessageChars+1), ErrInvalidReason},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tr.File(tt.reporter, tt.reported, tt.reason, tt.message, tt.sessionID)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.Equal(t, 0, tr.Total(), "rejected reports must not be logged")
	assert.Equal(t, 0, tr.CountFor("B"))
	assert.Equal(t, 0, tr.CountFor("C"))
}

func TestStats_LastN(t *testing.T) {
	sessions := newPaired(t, [2]string{"A", "B"})
	tr := NewTracker(sessions, 100)

	for i := 0; i < 12; i++ {
		_, err := tr.File("A", "", fmt.Sprintf("r%d", i), "", "")
		require.NoError(t, err)
	}

	st := tr.Stats(10)
	assert.Equal(t, 12, st.TotalReports)
	require.Len(t, st.RecentReports, 10)
	assert.Equal(t, "r2", st.RecentReports[0].Reason)
	assert.Equal(t, "r11", st.RecentReports[9].Reason)

	st.RecentReports[0].Reason = "mutated"
	assert.Equal(t, "r2", tr.Stats(10).RecentReports[0].Reason)

	assert.Empty(t, tr.Stats(0).RecentReports)
	assert.Len(t, tr.Stats(50).RecentReports, 12)
}

func TestNewTracker_DefaultThreshold(t *testing.T) {
	tr := NewTracker(session.NewStore(), 0)
	assert.Equal(t, DefaultBanThreshold, tr.Threshold())
}
