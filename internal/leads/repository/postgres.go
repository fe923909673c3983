package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cold_solutions_backend/internal/leads/domain"

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

const leadColumns = `
	id, name, email, phone, company, position, source, status, priority, score,
	assigned_to, territory, industry, lead_source, original_source, campaign_id, lead_list_id,
	last_interaction, next_follow_up, notes, tags, estimated_value, expected_close_date,
	custom_fields, stage, stage_changed_at, time_in_stage_secs, is_duplicate, duplicate_of,
	created_at, updated_at`

func scanLead(row pgx.Row) (domain.Lead, error) {
	var (
		l            domain.Lead
		source       string
		status       string
		priority     string
		stage        string
		customFields []byte
	)
	err := row.Scan(
		&l.ID, &l.Name, &l.Email, &l.Phone, &l.Company, &l.Position, &source, &status, &priority, &l.Score,
		&l.AssignedTo, &l.Territory, &l.Industry, &l.LeadSource, &l.OriginalSource, &l.CampaignID, &l.LeadListID,
		&l.LastInteraction, &l.NextFollowUp, &l.Notes, &l.Tags, &l.EstimatedValue, &l.ExpectedCloseDate,
		&customFields, &stage, &l.Lifecycle.StageChangedAt, &l.Lifecycle.TimeInStageSeconds, &l.IsDuplicate, &l.DuplicateOf,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return domain.Lead{}, err
	}
	l.Source = domain.LeadSource(source)
	l.Status = domain.LeadStatus(status)
	l.Priority = domain.Priority(priority)
	l.Lifecycle.Stage = domain.LeadStatus(stage)
	if len(customFields) > 0 {
		if err := json.Unmarshal(customFields, &l.CustomFields); err != nil {
			return domain.Lead{}, fmt.Errorf("decode custom fields for lead %s: %w", l.ID, err)
		}
	}
	if l.Tags == nil {
		l.Tags = []string{}
	}
	return l, nil
}

func (r *Repository) List(ctx context.Context) ([]domain.Lead, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+leadColumns+` FROM leads ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Lead, 0)
	for rows.Next() {
		l, err := scanLead(rows)
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

func (r *Repository) GetByID(ctx context.Context, id string) (domain.Lead, error) {
	l, err := scanLead(r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	return l, err
}

func (r *Repository) Save(ctx context.Context, lead *domain.Lead) error {
	customFields, err := json.Marshal(nonNilMap(lead.CustomFields))
	if err != nil {
		return fmt.Errorf("encode custom fields: %w", err)
	}
	tags := lead.Tags
	if tags == nil {
		tags = []string{}
	}
	lead.UpdatedAt = time.Now().UTC()

	_, err = r.pool.Exec(ctx, `
		INSERT INTO leads (`+leadColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
			$18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, email = EXCLUDED.email, phone = EXCLUDED.phone,
			company = EXCLUDED.company, position = EXCLUDED.position, source = EXCLUDED.source,
			status = EXCLUDED.status, priority = EXCLUDED.priority, score = EXCLUDED.score,
			assigned_to = EXCLUDED.assigned_to, territory = EXCLUDED.territory, industry = EXCLUDED.industry,
			lead_source = EXCLUDED.lead_source, original_source = EXCLUDED.original_source,
			campaign_id = EXCLUDED.campaign_id, lead_list_id = EXCLUDED.lead_list_id,
			last_interaction = EXCLUDED.last_interaction, next_follow_up = EXCLUDED.next_follow_up,
			notes = EXCLUDED.notes, tags = EXCLUDED.tags, estimated_value = EXCLUDED.estimated_value,
			expected_close_date = EXCLUDED.expected_close_date, custom_fields = EXCLUDED.custom_fields,
			stage = EXCLUDED.stage, stage_changed_at = EXCLUDED.stage_changed_at,
			time_in_stage_secs = EXCLUDED.time_in_stage_secs, is_duplicate = EXCLUDED.is_duplicate,
			duplicate_of = EXCLUDED.duplicate_of, created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at
	`,
		lead.ID, lead.Name, lead.Email, lead.Phone, lead.Company, lead.Position,
		string(lead.Source), string(lead.Status), string(lead.Priority), lead.Score,
		lead.AssignedTo, lead.Territory, lead.Industry, lead.LeadSource, lead.OriginalSource,
		lead.CampaignID, lead.LeadListID, lead.LastInteraction, lead.NextFollowUp, lead.Notes,
		tags, lead.EstimatedValue, lead.ExpectedCloseDate, customFields,
		string(lead.Lifecycle.Stage), lead.Lifecycle.StageChangedAt, lead.Lifecycle.TimeInStageSeconds,
		lead.IsDuplicate, lead.DuplicateOf, lead.CreatedAt, lead.UpdatedAt,
	)
	return err
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) Append(ctx context.Context, a domain.LeadActivity) error {
	meta, err := json.Marshal(nonNilMap(a.Metadata))
	if err != nil {
		return fmt.Errorf("encode activity metadata: %w", err)
	}
	var outcome *string
	if a.Outcome != "" {
		o := string(a.Outcome)
		outcome = &o
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO lead_activities (id, lead_id, type, description, created_at, created_by, duration, outcome, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, a.ID, a.LeadID, string(a.Type), a.Description, a.CreatedAt, a.CreatedBy, a.Duration, outcome, meta)
	return err
}

func (r *Repository) ListByLead(ctx context.Context, leadID string) ([]domain.LeadActivity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, type, description, created_at, created_by, duration, outcome, metadata
		FROM lead_activities
		WHERE ($1 = '' OR lead_id = $1)
		ORDER BY created_at DESC, id DESC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.LeadActivity, 0)
	for rows.Next() {
		var (
			a       domain.LeadActivity
			typ     string
			outcome *string
			meta    []byte
		)
		if err := rows.Scan(&a.ID, &a.LeadID, &typ, &a.Description, &a.CreatedAt, &a.CreatedBy, &a.Duration, &outcome, &meta); err != nil {
			return nil, err
		}
		a.Type = domain.ActivityType(typ)
		if outcome != nil {
			a.Outcome = domain.Outcome(*outcome)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &a.Metadata); err != nil {
				return nil, fmt.Errorf("decode activity metadata: %w", err)
			}
		}
		items = append(items, a)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

func (r *Repository) ListScoringRules(ctx context.Context) ([]domain.ScoringRule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, criteria, points, active, priority
		FROM scoring_rules
		ORDER BY priority ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.ScoringRule, 0)
	for rows.Next() {
		var (
			rule     domain.ScoringRule
			criteria []byte
		)
		if err := rows.Scan(&rule.ID, &rule.Name, &criteria, &rule.Points, &rule.Active, &rule.Priority); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(criteria, &rule.Criteria); err != nil {
			return nil, fmt.Errorf("decode criteria for rule %s: %w", rule.ID, err)
		}
		items = append(items, rule)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

func (r *Repository) SaveScoringRule(ctx context.Context, rule domain.ScoringRule) error {
	criteria, err := json.Marshal(rule.Criteria)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO scoring_rules (id, name, criteria, points, active, priority)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, criteria = EXCLUDED.criteria, points = EXCLUDED.points,
			active = EXCLUDED.active, priority = EXCLUDED.priority
	`, rule.ID, rule.Name, criteria, rule.Points, rule.Active, rule.Priority)
	return err
}

func (r *Repository) ListRoutingRules(ctx context.Context) ([]domain.AutoRoutingRule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, conditions, action, active, priority
		FROM auto_routing_rules
		ORDER BY priority ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.AutoRoutingRule, 0)
	for rows.Next() {
		var (
			rule       domain.AutoRoutingRule
			conditions []byte
			action     []byte
		)
		if err := rows.Scan(&rule.ID, &rule.Name, &conditions, &action, &rule.Active, &rule.Priority); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(conditions, &rule.Conditions); err != nil {
			return nil, fmt.Errorf("decode conditions for rule %s: %w", rule.ID, err)
		}
		if err := json.Unmarshal(action, &rule.Action); err != nil {
			return nil, fmt.Errorf("decode action for rule %s: %w", rule.ID, err)
		}
		items = append(items, rule)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

func (r *Repository) SaveRoutingRule(ctx context.Context, rule domain.AutoRoutingRule) error {
	conditions, err := json.Marshal(nonNilConditions(rule.Conditions))
	if err != nil {
		return err
	}
	action, err := json.Marshal(rule.Action)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO auto_routing_rules (id, name, conditions, action, active, priority)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, conditions = EXCLUDED.conditions, action = EXCLUDED.action,
			active = EXCLUDED.active, priority = EXCLUDED.priority
	`, rule.ID, rule.Name, conditions, action, rule.Active, rule.Priority)
	return err
}

func (r *Repository) ListLeadRoutingRules(ctx context.Context) ([]domain.LeadRoutingRule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, conditions, assignment_type, assign_to, users, active, priority, matched, assigned
		FROM lead_routing_rules
		ORDER BY priority ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.LeadRoutingRule, 0)
	for rows.Next() {
		var (
			rule       domain.LeadRoutingRule
			conditions []byte
			typ        string
		)
		if err := rows.Scan(&rule.ID, &rule.Name, &conditions, &typ, &rule.AssignTo, &rule.Users,
			&rule.Active, &rule.Priority, &rule.Stats.Matched, &rule.Stats.Assigned); err != nil {
			return nil, err
		}
		rule.AssignmentType = domain.AssignmentType(typ)
		if err := json.Unmarshal(conditions, &rule.Conditions); err != nil {
			return nil, fmt.Errorf("decode conditions for rule %s: %w", rule.ID, err)
		}
		items = append(items, rule)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

func (r *Repository) SaveLeadRoutingRule(ctx context.Context, rule domain.LeadRoutingRule) error {
	conditions, err := json.Marshal(nonNilConditions(rule.Conditions))
	if err != nil {
		return err
	}
	users := rule.Users
	if users == nil {
		users = []string{}
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO lead_routing_rules (id, name, conditions, assignment_type, assign_to, users, active, priority, matched, assigned)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, conditions = EXCLUDED.conditions,
			assignment_type = EXCLUDED.assignment_type, assign_to = EXCLUDED.assign_to,
			users = EXCLUDED.users, active = EXCLUDED.active, priority = EXCLUDED.priority,
			matched = EXCLUDED.matched, assigned = EXCLUDED.assigned
	`, rule.ID, rule.Name, conditions, string(rule.AssignmentType), rule.AssignTo, users,
		rule.Active, rule.Priority, rule.Stats.Matched, rule.Stats.Assigned)
	return err
}

func (r *Repository) ListTerritories(ctx context.Context) ([]domain.Territory, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, regions, industries, assigned_users FROM territories ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Territory, 0)
	for rows.Next() {
		var t domain.Territory
		if err := rows.Scan(&t.ID, &t.Name, &t.Regions, &t.Industries, &t.AssignedUsers); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

func (r *Repository) SaveTerritory(ctx context.Context, t domain.Territory) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO territories (id, name, regions, industries, assigned_users)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, regions = EXCLUDED.regions,
			industries = EXCLUDED.industries, assigned_users = EXCLUDED.assigned_users
	`, t.ID, t.Name, nonNilStrings(t.Regions), nonNilStrings(t.Industries), nonNilStrings(t.AssignedUsers))
	return err
}

func (r *Repository) GetUser(ctx context.Context, id string) (domain.User, error) {
	var u domain.User
	err := r.pool.QueryRow(ctx, `SELECT id, name, email, active FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Name, &u.Email, &u.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, ErrNotFound
	}
	return u, err
}

func (r *Repository) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, email, active FROM users ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.User, 0)
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Active); err != nil {
			return nil, err
		}
		items = append(items, u)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

func (r *Repository) SaveUser(ctx context.Context, u domain.User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, name, email, active) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email, active = EXCLUDED.active
	`, u.ID, u.Name, u.Email, u.Active)
	return err
}

func nonNilMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilConditions(c []domain.Condition) []domain.Condition {
	if c == nil {
		return []domain.Condition{}
	}
	return c
}

var _ Store = (*Repository)(nil)
