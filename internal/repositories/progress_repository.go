package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/barkatlearn/learn/internal/models"
	"go.uber.org/zap"
)

const selectProgressQuery = `
	SELECT learned_card_ids, saved_card_ids, finished_detail_card_ids, detail_opened_card_ids,
		cards_learned, streak_days, topics_followed, stats_last_learning_date, last_learning_date
	FROM user_progress
	WHERE user_id = ?
`

// progressRepository implements the progress repository on MySQL
type progressRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewProgressRepository creates a new progress repository
func NewProgressRepository(db *sql.DB, logger *zap.Logger) *progressRepository {
	return &progressRepository{
		db:     db,
		logger: logger,
	}
}

// Get retrieves the progress of a user
func (r *progressRepository) Get(ctx context.Context, userID string) (*models.ProgressSnapshot, error) {
	p, err := scanProgress(r.db.QueryRowContext(ctx, selectProgressQuery, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProgressNotFound
	}
	if err != nil {
		r.logger.Error("failed to get progress", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}
	return p, nil
}

// Update applies fn to the user's progress inside a transaction holding the row lock.
//
// A user without progress starts from models.NewProgress. When fn fails the transaction is rolled back.
func (r *progressRepository) Update(ctx context.Context, userID string, fn func(p *models.ProgressSnapshot) error) (*models.ProgressSnapshot, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.logger.Error("failed to begin transaction", zap.Error(err))
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	p, err := scanProgress(tx.QueryRowContext(ctx, selectProgressQuery+" FOR UPDATE", userID))
	if errors.Is(err, sql.ErrNoRows) {
		p = models.NewProgress(0)
	} else if err != nil {
		r.logger.Error("failed to lock progress", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}

	if err := fn(p); err != nil {
		return nil, err
	}

	if err := saveProgress(ctx, tx, userID, p); err != nil {
		r.logger.Error("failed to save progress", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("failed to commit progress", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return p, nil
}

func saveProgress(ctx context.Context, tx *sql.Tx, userID string, p *models.ProgressSnapshot) error {
	query := `
		INSERT INTO user_progress (user_id, learned_card_ids, saved_card_ids, finished_detail_card_ids,
			detail_opened_card_ids, cards_learned, streak_days, topics_followed, stats_last_learning_date,
			last_learning_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			learned_card_ids = VALUES(learned_card_ids),
			saved_card_ids = VALUES(saved_card_ids),
			finished_detail_card_ids = VALUES(finished_detail_card_ids),
			detail_opened_card_ids = VALUES(detail_opened_card_ids),
			cards_learned = VALUES(cards_learned),
			streak_days = VALUES(streak_days),
			topics_followed = VALUES(topics_followed),
			stats_last_learning_date = VALUES(stats_last_learning_date),
			last_learning_date = VALUES(last_learning_date)
	`

	lists := make([]string, 0, 4)
	for _, ids := range [][]string{p.LearnedCardIDs, p.SavedCardIDs, p.FinishedDetailCardIDs, p.DetailOpenedCardIDs} {
		encoded, err := encodeIDs(ids)
		if err != nil {
			return err
		}
		lists = append(lists, encoded)
	}

	stats := models.UserStats{}
	if p.Stats != nil {
		stats = *p.Stats
	}

	_, err := tx.ExecContext(ctx, query,
		userID,
		lists[0],
		lists[1],
		lists[2],
		lists[3],
		stats.CardsLearned,
		stats.StreakDays,
		stats.TopicsFollowed,
		dateValue(stats.LastLearningDate),
		dateValue(p.LastLearningDate),
	)
	if err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}
	return nil
}

func scanProgress(row *sql.Row) (*models.ProgressSnapshot, error) {
	var (
		learned, saved, finished, opened []byte
		stats                            models.UserStats
		statsDate, lastDate              sql.NullTime
	)
	err := row.Scan(
		&learned,
		&saved,
		&finished,
		&opened,
		&stats.CardsLearned,
		&stats.StreakDays,
		&stats.TopicsFollowed,
		&statsDate,
		&lastDate,
	)
	if err != nil {
		return nil, err
	}

	p := &models.ProgressSnapshot{Stats: &stats}
	stats.LastLearningDate = dateFromColumn(statsDate)
	p.LastLearningDate = dateFromColumn(lastDate)

	for _, col := range []struct {
		data []byte
		dst  *[]string
	}{
		{learned, &p.LearnedCardIDs},
		{saved, &p.SavedCardIDs},
		{finished, &p.FinishedDetailCardIDs},
		{opened, &p.DetailOpenedCardIDs},
	} {
		if *col.dst, err = decodeIDs(col.data); err != nil {
			return nil, err
		}
	}
	return p, nil
}
