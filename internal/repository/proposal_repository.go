package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Freeeeeet/mentor_match/internal/apperr"
	"github.com/Freeeeeet/mentor_match/internal/availability"
	"github.com/Freeeeeet/mentor_match/internal/model"
	"github.com/Freeeeeet/mentor_match/internal/repository/base"
	"github.com/jackc/pgx/v5"
)

const proposalColumns = `id, request_id, mentor_id, student_id, slots, status, chosen_slot, created_at, updated_at`

type ProposalRepository struct {
	base.Repository
}

func NewProposalRepository(db base.DBTX) *ProposalRepository {
	return &ProposalRepository{Repository: base.NewRepository(db)}
}

// Слоты хранятся в JSONB в том же виде, что и в API: {"start": "...Z", "end": "...Z"}.
// При чтении каждый слот заново проходит валидацию.
func scanProposal(row pgx.Row) (*model.Proposal, error) {
	var (
		p         model.Proposal
		slotsRaw  []byte
		chosenRaw []byte
	)
	err := row.Scan(
		&p.ID,
		&p.RequestID,
		&p.MentorID,
		&p.StudentID,
		&slotsRaw,
		&p.Status,
		&chosenRaw,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Slots = []availability.Interval{}
	if len(slotsRaw) > 0 {
		if err := json.Unmarshal(slotsRaw, &p.Slots); err != nil {
			return nil, fmt.Errorf("decode slots of proposal %d: %w", p.ID, err)
		}
	}
	if len(chosenRaw) > 0 && string(chosenRaw) != "null" {
		var chosen availability.Interval
		if err := json.Unmarshal(chosenRaw, &chosen); err != nil {
			return nil, fmt.Errorf("decode chosen slot of proposal %d: %w", p.ID, err)
		}
		p.ChosenSlot = &chosen
	}

	return &p, nil
}

func encodeSlots(p *model.Proposal) (string, *string, error) {
	slots := p.Slots
	if slots == nil {
		slots = []availability.Interval{}
	}
	slotsJSON, err := json.Marshal(slots)
	if err != nil {
		return "", nil, fmt.Errorf("encode slots: %w", err)
	}

	if p.ChosenSlot == nil {
		return string(slotsJSON), nil, nil
	}
	chosenJSON, err := json.Marshal(p.ChosenSlot)
	if err != nil {
		return "", nil, fmt.Errorf("encode chosen slot: %w", err)
	}
	chosen := string(chosenJSON)
	return string(slotsJSON), &chosen, nil
}

// Create создает предложение
func (r *ProposalRepository) Create(ctx context.Context, p *model.Proposal) error {
	slots, chosen, err := encodeSlots(p)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO proposals (request_id, mentor_id, student_id, slots, status, chosen_slot, created_at, updated_at)
		VALUES ($1, $2, $3, $4::jsonb, $5, $6::jsonb, $7, $8)
		RETURNING id
	`

	err = r.DB().QueryRow(
		ctx, query,
		p.RequestID,
		p.MentorID,
		p.StudentID,
		slots,
		p.Status,
		chosen,
		p.CreatedAt,
		p.UpdatedAt,
	).Scan(&p.ID)

	if err != nil {
		if base.IsUniqueViolation(err) {
			return apperr.InvalidTransition("request already has a proposal")
		}
		return fmt.Errorf("create proposal: %w", err)
	}

	return nil
}

// GetByID получает предложение по ID
func (r *ProposalRepository) GetByID(ctx context.Context, id int64) (*model.Proposal, error) {
	return r.getOne(ctx, `SELECT `+proposalColumns+` FROM proposals WHERE id = $1`, id)
}

// GetByIDForUpdate получает предложение и блокирует строку
func (r *ProposalRepository) GetByIDForUpdate(ctx context.Context, id int64) (*model.Proposal, error) {
	return r.getOne(ctx, `SELECT `+proposalColumns+` FROM proposals WHERE id = $1 FOR UPDATE`, id)
}

func (r *ProposalRepository) getOne(ctx context.Context, query string, id int64) (*model.Proposal, error) {
	p, err := scanProposal(r.DB().QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get proposal: %w", err)
	}
	return p, nil
}

// ListByUser получает предложения, где пользователь участник
func (r *ProposalRepository) ListByUser(ctx context.Context, userID int64) ([]*model.Proposal, error) {
	query := `
		SELECT ` + proposalColumns + `
		FROM proposals
		WHERE student_id = $1 OR mentor_id = $1
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.DB().Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}

	proposals, err := base.CollectRows(rows, scanProposal)
	if err != nil {
		return nil, fmt.Errorf("scan proposals: %w", err)
	}

	return proposals, nil
}

// Update сохраняет слоты, статус и выбор, если статус всё ещё равен expected
func (r *ProposalRepository) Update(ctx context.Context, p *model.Proposal, expected model.ProposalStatus) error {
	slots, chosen, err := encodeSlots(p)
	if err != nil {
		return err
	}

	query := `
		UPDATE proposals
		SET slots = $1::jsonb, status = $2, chosen_slot = $3::jsonb, updated_at = $4
		WHERE id = $5 AND status = $6
	`

	affected, err := r.ExecAffected(ctx, query, slots, p.Status, chosen, p.UpdatedAt, p.ID, expected)
	if err != nil {
		return fmt.Errorf("update proposal: %w", err)
	}

	if affected == 0 {
		return apperr.InvalidTransition("proposal %d is no longer %s", p.ID, expected)
	}

	return nil
}
