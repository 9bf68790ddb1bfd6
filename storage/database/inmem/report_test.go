package inmemrepos

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillustad/proctor/core/interview"
	"github.com/skillustad/proctor/core/report"
)

func newReport(email, technology string, generatedAt time.Time) *report.Report {
	return &report.Report{
		ID:          uuid.New(),
		Config:      interview.Config{Technology: technology, CandidateEmail: email},
		GeneratedAt: generatedAt,
	}
}

func TestReportRepository(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	repo := NewReportRepository()
	older := newReport("a@example.test", "golang", base)
	newer := newReport("b@example.test", "golang", base.Add(time.Hour))
	other := newReport("a@example.test", "python", base.Add(2*time.Hour))
	for _, rpt := range []*report.Report{older, newer, other} {
		require.NoError(t, repo.Save(ctx, rpt))
	}

	t.Run("get", func(t *testing.T) {
		got, err := repo.Get(ctx, older.ID)
		require.NoError(t, err)
		assert.Equal(t, older.ID, got.ID)

		_, err = repo.Get(ctx, uuid.New())
		assert.Equal(t, report.ErrNotFound, err)
	})

	t.Run("filter newest first", func(t *testing.T) {
		got, err := repo.Filter(ctx, report.Filter{Technology: "golang"})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, newer.ID, got[0].ID)
		assert.Equal(t, older.ID, got[1].ID)
	})

	t.Run("filter by email", func(t *testing.T) {
		got, err := repo.Filter(ctx, report.Filter{CandidateEmail: "A@EXAMPLE.TEST"})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("delete before", func(t *testing.T) {
		n, err := repo.DeleteBefore(ctx, base.Add(30*time.Minute))
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		_, err = repo.Get(ctx, older.ID)
		assert.Equal(t, report.ErrNotFound, err)
	})
}
