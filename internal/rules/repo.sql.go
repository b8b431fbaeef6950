package rules

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads rules off the pool. Rules change rarely and are read
// outside the posting transaction.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ActiveRules implements RuleSource.
func (r *Repository) ActiveRules(ctx context.Context, event Event) ([]Rule, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("rules repository not initialised")
	}
	rows, err := r.pool.Query(ctx, `SELECT id, name, event, action, field, operator, value, COALESCE(message,''), is_active
FROM voucher_rules WHERE event=$1 AND is_active ORDER BY id`, string(event))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Rule
	for rows.Next() {
		var rule Rule
		var ev, action string
		if err := rows.Scan(&rule.ID, &rule.Name, &ev, &action, &rule.Field, &rule.Operator, &rule.Value, &rule.Message, &rule.IsActive); err != nil {
			return nil, err
		}
		rule.Event = Event(ev)
		rule.Action = Action(action)
		result = append(result, rule)
	}
	return result, rows.Err()
}
