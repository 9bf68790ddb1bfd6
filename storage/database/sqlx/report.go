package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/skillustad/proctor/core/report"
)

// orderableFields whitelists report listing sort fields.
var orderableFields = map[string]bool{
	"generated_at":    true,
	"overall_score":   true,
	"candidate_email": true,
	"technology":      true,
}

type reportRow struct {
	ID             uuid.UUID `db:"id"`
	CandidateEmail string    `db:"candidate_email"`
	Technology     string    `db:"technology"`
	OverallScore   int       `db:"overall_score"`
	SecurityScore  int       `db:"security_score"`
	ComplianceRate int       `db:"compliance_rate"`
	GeneratedAt    time.Time `db:"generated_at"`
	Data           []byte    `db:"data"`
}

type reportRepository struct {
	db *sqlx.DB
}

var _ report.Repository = (*reportRepository)(nil)

func NewReportRepository(db *sql.DB) *reportRepository {
	return &reportRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo reportRepository) Save(ctx context.Context, rpt *report.Report) error {
	data, err := json.Marshal(rpt)
	if err != nil {
		return errors.Wrap(err, "encoding report")
	}
	row := reportRow{
		ID:             rpt.ID,
		CandidateEmail: rpt.Config.CandidateEmail,
		Technology:     rpt.Config.Technology,
		OverallScore:   rpt.Performance.OverallScore,
		SecurityScore:  rpt.SecurityScore,
		ComplianceRate: rpt.Security.ComplianceRate,
		GeneratedAt:    rpt.GeneratedAt,
		Data:           data,
	}

	// re-completing a session overwrites its report
	const query = `
INSERT INTO interview_report (id, candidate_email, technology, overall_score, security_score, compliance_rate, generated_at, data)
VALUES (:id, :candidate_email, :technology, :overall_score, :security_score, :compliance_rate, :generated_at, :data)
ON CONFLICT (id) DO UPDATE
SET candidate_email = EXCLUDED.candidate_email,
    technology      = EXCLUDED.technology,
    overall_score   = EXCLUDED.overall_score,
    security_score  = EXCLUDED.security_score,
    compliance_rate = EXCLUDED.compliance_rate,
    generated_at    = EXCLUDED.generated_at,
    data            = EXCLUDED.data`
	if _, err := repo.db.NamedExecContext(ctx, query, row); err != nil {
		return errors.Wrap(err, "saving report")
	}
	return nil
}

func (repo reportRepository) Get(ctx context.Context, id uuid.UUID) (*report.Report, error) {
	var data []byte
	err := repo.db.GetContext(ctx, &data, "SELECT data FROM interview_report WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, report.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "getting report")
	}
	return decode(data)
}

func (repo reportRepository) Filter(ctx context.Context, f report.Filter) ([]*report.Report, error) {
	query := "SELECT data FROM interview_report"
	var (
		clauses []string
		args    []interface{}
	)
	if f.CandidateEmail != "" {
		args = append(args, f.CandidateEmail)
		clauses = append(clauses, fmt.Sprintf("candidate_email = $%d", len(args)))
	}
	if f.Technology != "" {
		args = append(args, f.Technology)
		clauses = append(clauses, fmt.Sprintf("technology = $%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	var orderings []string
	for _, ord := range f.Ordering {
		if orderableFields[ord.Field] {
			orderings = append(orderings, ord.String())
		}
	}
	if len(orderings) == 0 {
		orderings = []string{"generated_at DESC"}
	}
	query += " ORDER BY " + strings.Join(orderings, ", ")

	var rows [][]byte
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering reports")
	}
	reports := make([]*report.Report, 0, len(rows))
	for _, data := range rows {
		rpt, err := decode(data)
		if err != nil {
			return nil, err
		}
		reports = append(reports, rpt)
	}
	return reports, nil
}

func (repo reportRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM interview_report WHERE generated_at < $1", cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "purging reports")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "purging reports")
	}
	return n, nil
}

func decode(data []byte) (*report.Report, error) {
	var rpt report.Report
	if err := json.Unmarshal(data, &rpt); err != nil {
		return nil, errors.Wrap(err, "decoding report")
	}
	return &rpt, nil
}
