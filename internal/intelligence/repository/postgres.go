package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cold_solutions_backend/internal/intelligence/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the Postgres implementation of Store.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const biLeadColumns = `
	id, business_name, industry, website, city, country, address, zip_code, state,
	google_maps_url, analysis_status, COALESCE(error_message, ''), pushed_to_caller,
	created_at, updated_at`

func scanBILead(row pgx.Row) (domain.BusinessIntelligenceLead, error) {
	var (
		l      domain.BusinessIntelligenceLead
		status string
	)
	err := row.Scan(
		&l.ID, &l.BusinessName, &l.Industry, &l.Website, &l.City, &l.Country, &l.Address, &l.ZipCode, &l.State,
		&l.GoogleMapsURL, &status, &l.ErrorMessage, &l.PushedToCaller,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return domain.BusinessIntelligenceLead{}, err
	}
	l.AnalysisStatus = domain.AnalysisStatus(status)
	return l, nil
}

func collectBILeads(rows pgx.Rows) ([]domain.BusinessIntelligenceLead, error) {
	defer rows.Close()

	items := make([]domain.BusinessIntelligenceLead, 0)
	for rows.Next() {
		l, err := scanBILead(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, l)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

func (r *Repository) Import(ctx context.Context, leads []domain.BusinessIntelligenceLead) error {
	batch := &pgx.Batch{}
	for _, l := range leads {
		status := l.AnalysisStatus
		if status == "" {
			status = domain.StatusNotStarted
		}
		batch.Queue(`
			INSERT INTO bi_leads (id, business_name, industry, website, city, country, address,
				zip_code, state, google_maps_url, analysis_status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (id) DO UPDATE SET
				business_name = EXCLUDED.business_name, industry = EXCLUDED.industry,
				website = EXCLUDED.website, city = EXCLUDED.city, country = EXCLUDED.country,
				address = EXCLUDED.address, zip_code = EXCLUDED.zip_code, state = EXCLUDED.state,
				google_maps_url = EXCLUDED.google_maps_url, updated_at = now()
		`, l.ID, l.BusinessName, l.Industry, l.Website, l.City, l.Country, l.Address,
			l.ZipCode, l.State, l.GoogleMapsURL, string(status))
	}
	return r.pool.SendBatch(ctx, batch).Close()
}

func (r *Repository) GetByID(ctx context.Context, id string) (domain.BusinessIntelligenceLead, error) {
	l, err := scanBILead(r.pool.QueryRow(ctx, `SELECT `+biLeadColumns+` FROM bi_leads WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.BusinessIntelligenceLead{}, ErrNotFound
	}
	return l, err
}

func (r *Repository) List(ctx context.Context, status domain.AnalysisStatus, limit int) ([]domain.BusinessIntelligenceLead, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+biLeadColumns+` FROM bi_leads
		WHERE ($1 = '' OR analysis_status = $1)
		ORDER BY created_at ASC, id ASC
		LIMIT $2`, string(status), limit)
	if err != nil {
		return nil, err
	}
	return collectBILeads(rows)
}

func (r *Repository) FetchUnanalyzed(ctx context.Context, ids []string, limit int) ([]domain.BusinessIntelligenceLead, error) {
	if ids == nil {
		ids = []string{}
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+biLeadColumns+` FROM bi_leads
		WHERE analysis_status IN ($1, $2)
			AND (cardinality($3::text[]) = 0 OR id = ANY($3))
		ORDER BY created_at ASC, id ASC
		LIMIT $4`,
		string(domain.StatusNotStarted), string(domain.StatusFailed), ids, limit)
	if err != nil {
		return nil, err
	}
	return collectBILeads(rows)
}

func (r *Repository) UpdateStatus(ctx context.Context, ids []string, status domain.AnalysisStatus, errMsg string) error {
	var msg *string
	if status == domain.StatusFailed {
		msg = &errMsg
	}
	_, err := r.pool.Exec(ctx, `
		UPDATE bi_leads SET analysis_status = $2, error_message = $3, updated_at = now()
		WHERE id = ANY($1)`, ids, string(status), msg)
	return err
}

func (r *Repository) FailStale(ctx context.Context, cutoff time.Time, errMsg string) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE bi_leads SET analysis_status = $2, error_message = $3, updated_at = now()
		WHERE analysis_status = $1 AND updated_at < $4`,
		string(domain.StatusInProgress), string(domain.StatusFailed), errMsg, cutoff)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *Repository) SaveAnalysis(ctx context.Context, leadID string, a domain.BusinessAnalysis) error {
	fields := []struct {
		value any
		name  string
	}{
		{nonNil(a.PainPoints), "pain points"},
		{nonNil(a.AutomationOpportunities), "automation opportunities"},
		{nonNil(a.RecommendedServices), "recommended services"},
		{nonNil(a.CompetitiveAdvantages), "competitive advantages"},
		{a.DetectedTechnologies, "detected technologies"},
		{a.CompetitorInsights, "competitor insights"},
		{a.ReviewSentiment, "review sentiment"},
	}
	encoded := make([][]byte, len(fields))
	for i, f := range fields {
		data, err := json.Marshal(f.value)
		if err != nil {
			return fmt.Errorf("encode %s: %w", f.name, err)
		}
		encoded[i] = data
	}
	var raw []byte
	if len(a.RawPayload) > 0 {
		raw = a.RawPayload
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO bi_analyses (lead_id, summary, outreach_angle, pain_points, automation_opportunities,
			recommended_services, competitive_advantages, detected_technologies, competitor_insights,
			review_sentiment, degraded, degraded_reason, raw_payload, raw_archive_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (lead_id) DO UPDATE SET
			summary = EXCLUDED.summary, outreach_angle = EXCLUDED.outreach_angle,
			pain_points = EXCLUDED.pain_points, automation_opportunities = EXCLUDED.automation_opportunities,
			recommended_services = EXCLUDED.recommended_services,
			competitive_advantages = EXCLUDED.competitive_advantages,
			detected_technologies = EXCLUDED.detected_technologies,
			competitor_insights = EXCLUDED.competitor_insights, review_sentiment = EXCLUDED.review_sentiment,
			degraded = EXCLUDED.degraded, degraded_reason = EXCLUDED.degraded_reason,
			raw_payload = EXCLUDED.raw_payload, raw_archive_key = EXCLUDED.raw_archive_key,
			created_at = now()
	`, leadID, a.Summary, a.OutreachAngle, encoded[0], encoded[1], encoded[2], encoded[3],
		encoded[4], encoded[5], encoded[6], a.Degraded, a.DegradedReason, raw, a.RawArchiveKey)
	return err
}

func (r *Repository) GetAnalysis(ctx context.Context, leadID string) (domain.BusinessAnalysis, error) {
	var (
		a                                            domain.BusinessAnalysis
		painPoints, automation, services, advantages []byte
		technologies, competitors, sentiment, raw    []byte
	)
	err := r.pool.QueryRow(ctx, `
		SELECT lead_id, summary, outreach_angle, pain_points, automation_opportunities,
			recommended_services, competitive_advantages, detected_technologies, competitor_insights,
			review_sentiment, degraded, degraded_reason, raw_payload, raw_archive_key, created_at
		FROM bi_analyses WHERE lead_id = $1`, leadID).Scan(
		&a.LeadID, &a.Summary, &a.OutreachAngle, &painPoints, &automation,
		&services, &advantages, &technologies, &competitors,
		&sentiment, &a.Degraded, &a.DegradedReason, &raw, &a.RawArchiveKey, &a.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.BusinessAnalysis{}, ErrNotFound
	}
	if err != nil {
		return domain.BusinessAnalysis{}, err
	}

	decode := []struct {
		data []byte
		into any
		name string
	}{
		{painPoints, &a.PainPoints, "pain points"},
		{automation, &a.AutomationOpportunities, "automation opportunities"},
		{services, &a.RecommendedServices, "recommended services"},
		{advantages, &a.CompetitiveAdvantages, "competitive advantages"},
		{technologies, &a.DetectedTechnologies, "detected technologies"},
		{competitors, &a.CompetitorInsights, "competitor insights"},
		{sentiment, &a.ReviewSentiment, "review sentiment"},
	}
	for _, d := range decode {
		if len(d.data) == 0 {
			continue
		}
		if err := json.Unmarshal(d.data, d.into); err != nil {
			return domain.BusinessAnalysis{}, fmt.Errorf("decode %s for lead %s: %w", d.name, leadID, err)
		}
	}
	if len(raw) > 0 {
		a.RawPayload = raw
	}
	return a, nil
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

var _ Store = (*Repository)(nil)
