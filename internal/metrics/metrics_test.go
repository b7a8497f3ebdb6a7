package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	m := New()

	assert.NotNil(t, m.QuestionsTotal)
	assert.NotNil(t, m.FailedTurnsTotal)
	assert.NotNil(t, m.AnswerDuration)
	assert.NotNil(t, m.IndexedDocuments)
	assert.NotNil(t, m.ActiveSessions)

	// Separate instances own separate registries.
	assert.NotPanics(t, func() { New() })
}

func TestRecorders(t *testing.T) {
	m := New()

	m.RecordQuestion("web")
	m.RecordQuestion("web")
	m.RecordQuestion("api")
	m.RecordFailure("generation")
	m.SetIndexedDocuments(42)
	m.SetActiveSessions(7)
	m.ObserveAnswer(300 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.QuestionsTotal.WithLabelValues("web")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QuestionsTotal.WithLabelValues("api")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FailedTurnsTotal.WithLabelValues("generation")))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.IndexedDocuments))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.ActiveSessions))
	assert.Equal(t, 1, testutil.CollectAndCount(m.AnswerDuration))
}

func TestHandler(t *testing.T) {
	m := New()
	m.RecordQuestion("tui")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `medinsight_questions_total{surface="tui"} 1`))
	assert.Contains(t, body, "go_goroutines")
}
