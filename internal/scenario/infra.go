package scenario

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type scenarioRepo struct {
	db *sql.DB
}

func NewRepo(db *sql.DB) Repo {
	return &scenarioRepo{db: db}
}

func (r *scenarioRepo) Create(ctx context.Context, sc *Scenario) (*Scenario, error) {
	if err := sc.validate(); err != nil {
		return nil, err
	}
	if sc.ID == "" {
		sc.ID = uuid.NewString()
	}

	profile, err := marshalProfile(sc)
	if err != nil {
		return nil, err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO scenarios (id, name, buyer_kind, profile, product, industry, difficulty, question_budget, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, sc.ID, sc.Name, string(sc.Buyer), profile, sc.Product, sc.Industry, sc.Difficulty, sc.QuestionBudget, time.Now())
	if err != nil {
		return nil, fmt.Errorf("insert scenario: %w", err)
	}
	return sc, nil
}

func (r *scenarioRepo) Get(ctx context.Context, id string) (*Scenario, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, buyer_kind, profile, product, industry, difficulty, question_budget
		FROM scenarios
		WHERE id = $1
	`, id)
	return scanScenario(row.Scan)
}

func (r *scenarioRepo) List(ctx context.Context) ([]*Scenario, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, buyer_kind, profile, product, industry, difficulty, question_budget
		FROM scenarios
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Scenario
	for rows.Next() {
		sc, err := scanScenario(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *scenarioRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM scenarios WHERE id = $1`, id)
	if err != nil {
		// 23503 — сценарий на кого-то ссылается, отдаём как есть
		if pqErr, ok := err.(*pq.Error); ok {
			return fmt.Errorf("delete scenario: %s", pqErr.Message)
		}
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func marshalProfile(sc *Scenario) ([]byte, error) {
	switch sc.Buyer {
	case BuyerConsumer:
		return json.Marshal(sc.Consumer)
	case BuyerBusiness:
		return json.Marshal(sc.Business)
	}
	return nil, &ConfigError{Field: "buyer"}
}

func scanScenario(scan func(dest ...any) error) (*Scenario, error) {
	var (
		sc      Scenario
		kind    string
		profile []byte
	)
	if err := scan(&sc.ID, &sc.Name, &kind, &profile, &sc.Product, &sc.Industry, &sc.Difficulty, &sc.QuestionBudget); err != nil {
		return nil, err
	}

	sc.Buyer = BuyerKind(kind)
	switch sc.Buyer {
	case BuyerConsumer:
		sc.Consumer = &ConsumerProfile{}
		if err := json.Unmarshal(profile, sc.Consumer); err != nil {
			return nil, fmt.Errorf("decode consumer profile: %w", err)
		}
	case BuyerBusiness:
		sc.Business = &BusinessProfile{}
		if err := json.Unmarshal(profile, sc.Business); err != nil {
			return nil, fmt.Errorf("decode business profile: %w", err)
		}
	}
	return &sc, nil
}
