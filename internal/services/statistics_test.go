package services

import (
	"context"
	"strings"
	"testing"

	"github.com/ad/go-scholar-wizard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatisticsService(t *testing.T) {
	env := newManagerEnv(t)
	m, store := env.manager()
	stats := NewStatisticsService(env.queue)

	empty, err := stats.CalculateStats()
	require.NoError(t, err)
	assert.Zero(t, empty.Audience.Total)
	assert.Empty(t, empty.Steps)

	env.login(t, store, 1, models.RoleScholar)
	env.login(t, store, 2, models.RoleSponsor)
	_, err = store.Dispatch(3, RoleChosen{Role: models.RoleScholar})
	require.NoError(t, err)

	_, err = m.Mount(context.Background(), 1, models.FlowScholarProfile, "", "")
	require.NoError(t, err)

	for _, o := range []models.SaveOutcome{
		{UserID: 1, Flow: models.FlowScholarProfile, Step: models.StepPersonal, OK: true},
		{UserID: 1, Flow: models.FlowScholarProfile, Step: models.StepAddress, Error: "timeout"},
		{UserID: 1, Flow: models.FlowScholarProfile, Step: models.StepAddress, Error: "timeout"},
		{UserID: 2, Flow: models.FlowScholarship, Step: models.StepDetails, OK: true},
	} {
		o := o
		_, err := env.audit.Record(&o)
		require.NoError(t, err)
	}

	st, err := stats.CalculateStats()
	require.NoError(t, err)
	assert.Equal(t, AudienceSegments{Total: 3, Scholars: 2, Sponsors: 1, SignedIn: 2}, st.Audience)
	require.Len(t, st.Steps, 3)
	assert.Equal(t, StepStats{Flow: models.FlowScholarProfile, Step: models.StepAddress, Failed: 2}, st.Steps[0])
	assert.Equal(t, []OpenWizard{{Flow: models.FlowScholarProfile, Step: models.StepPersonal, Users: 1}}, st.Open)

	text := FormatStats(st)
	assert.True(t, strings.HasPrefix(text, "📊 Statistics"))
	assert.Contains(t, text, "❌ 2")
	assert.Contains(t, text, "1 user\n")
}
