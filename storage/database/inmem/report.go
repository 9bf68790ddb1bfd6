package inmemrepos

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/skillustad/proctor/core/report"
)

// reportRepository keeps reports in memory. Used in debug and test runs
// where no database is around.
type reportRepository struct {
	mu      sync.RWMutex
	reports map[uuid.UUID]*report.Report
}

var _ report.Repository = (*reportRepository)(nil)

func NewReportRepository() *reportRepository {
	return &reportRepository{reports: make(map[uuid.UUID]*report.Report)}
}

func (repo *reportRepository) Save(ctx context.Context, rpt *report.Report) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.reports[rpt.ID] = rpt
	return nil
}

func (repo *reportRepository) Get(ctx context.Context, id uuid.UUID) (*report.Report, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()
	rpt, ok := repo.reports[id]
	if !ok {
		return nil, report.ErrNotFound
	}
	return rpt, nil
}

func (repo *reportRepository) Filter(ctx context.Context, f report.Filter) ([]*report.Report, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	reports := make([]*report.Report, 0, len(repo.reports))
	for _, rpt := range repo.reports {
		if f.CandidateEmail != "" && !strings.EqualFold(rpt.Config.CandidateEmail, f.CandidateEmail) {
			continue
		}
		if f.Technology != "" && !strings.EqualFold(rpt.Config.Technology, f.Technology) {
			continue
		}
		reports = append(reports, rpt)
	}

	// newest first, matching the database default
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].GeneratedAt.After(reports[j].GeneratedAt)
	})
	return reports, nil
}

func (repo *reportRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	var n int64
	for id, rpt := range repo.reports {
		if rpt.GeneratedAt.Before(cutoff) {
			delete(repo.reports, id)
			n++
		}
	}
	return n, nil
}
