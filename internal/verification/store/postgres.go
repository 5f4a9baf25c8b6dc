package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	id "talanta/pkg/domain"
	"talanta/pkg/platform/sentinel"
	"talanta/pkg/platform/tx"

	"talanta/internal/verification/models"
)

// PostgresRecordStore persists verification records in Postgres.
type PostgresRecordStore struct {
	db *sql.DB
}

func NewPostgresRecordStore(db *sql.DB) *PostgresRecordStore {
	return &PostgresRecordStore{db: db}
}

const recordColumns = `id, user_id, document_type, storage_key, file_size,
	ocr_data, extracted_name, extracted_serial, extracted_skill, extracted_institution,
	status, rejection_reason, trust_score_delta, verified_at, verified_by,
	created_at, updated_at`

func (s *PostgresRecordStore) Create(ctx context.Context, rec *models.VerificationRecord) error {
	q := tx.Resolve(ctx, s.db)

	ocr, err := json.Marshal(rec.OCRData)
	if err != nil {
		return fmt.Errorf("encoding ocr data: %w", err)
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO verifications (id, user_id, document_type, storage_key, file_size,
			ocr_data, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
		rec.ID.String(), rec.UserID.String(), string(rec.DocumentType), rec.StorageKey,
		rec.FileSize, ocr, string(rec.Status), rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting verification record: %w", err)
	}
	return nil
}

func (s *PostgresRecordStore) FindByID(ctx context.Context, recID id.VerificationID) (*models.VerificationRecord, error) {
	q := tx.Resolve(ctx, s.db)

	row := q.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM verifications WHERE id = $1`, recID.String())
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("verification %s: %w", recID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("finding verification record: %w", err)
	}
	return rec, nil
}

func (s *PostgresRecordStore) ListByUser(ctx context.Context, userID id.UserID) ([]models.VerificationRecord, error) {
	q := tx.Resolve(ctx, s.db)

	rows, err := q.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM verifications WHERE user_id = $1 ORDER BY created_at DESC`,
		userID.String())
	if err != nil {
		return nil, fmt.Errorf("listing verification records: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

func (s *PostgresRecordStore) MarkProcessing(ctx context.Context, recID id.VerificationID) error {
	q := tx.Resolve(ctx, s.db)

	res, err := q.ExecContext(ctx, `
		UPDATE verifications SET status = 'PROCESSING', updated_at = NOW()
		WHERE id = $1 AND status IN ('PENDING', 'PROCESSING')`,
		recID.String())
	if err != nil {
		return fmt.Errorf("marking verification processing: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("marking verification processing: %w", err)
	}
	if n == 0 {
		if _, ferr := s.FindByID(ctx, recID); ferr != nil {
			return ferr
		}
		return fmt.Errorf("verification %s already finalized: %w", recID, sentinel.ErrInvalidState)
	}
	return nil
}

func (s *PostgresRecordStore) Finalize(ctx context.Context, rec *models.VerificationRecord) error {
	q := tx.Resolve(ctx, s.db)

	ocr, err := json.Marshal(rec.OCRData)
	if err != nil {
		return fmt.Errorf("encoding ocr data: %w", err)
	}

	res, err := q.ExecContext(ctx, `
		UPDATE verifications SET
			status = $2, rejection_reason = $3, ocr_data = $4,
			extracted_name = $5, extracted_serial = $6, extracted_skill = $7,
			extracted_institution = $8, trust_score_delta = $9,
			verified_at = $10, verified_by = $11, updated_at = NOW()
		WHERE id = $1 AND status = 'PROCESSING'`,
		rec.ID.String(), string(rec.Status), rec.RejectionReason, ocr,
		rec.ExtractedName, rec.ExtractedSerial, rec.ExtractedSkill,
		rec.ExtractedInstitution, rec.TrustScoreDelta,
		rec.VerifiedAt, rec.VerifiedBy,
	)
	if err != nil {
		return fmt.Errorf("finalizing verification record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finalizing verification record: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("verification %s not in PROCESSING: %w", rec.ID, sentinel.ErrInvalidState)
	}
	return nil
}

func (s *PostgresRecordStore) ListStuckProcessing(ctx context.Context, olderThan time.Duration) ([]models.VerificationRecord, error) {
	q := tx.Resolve(ctx, s.db)

	rows, err := q.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM verifications
		 WHERE status = 'PROCESSING' AND updated_at < NOW() - $1::interval
		 ORDER BY updated_at`,
		fmt.Sprintf("%d seconds", int(olderThan.Seconds())))
	if err != nil {
		return nil, fmt.Errorf("listing stuck verifications: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

func (s *PostgresRecordStore) ListVerifiedWithSkill(ctx context.Context) ([]models.VerificationRecord, error) {
	q := tx.Resolve(ctx, s.db)

	rows, err := q.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM verifications
		 WHERE status = 'VERIFIED' AND extracted_skill <> ''
		 ORDER BY verified_at`)
	if err != nil {
		return nil, fmt.Errorf("listing verified records: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.VerificationRecord, error) {
	var (
		rec                  models.VerificationRecord
		recID, userID        string
		docType, status      string
		ocr                  []byte
		rejection            sql.NullString
		extractedName        sql.NullString
		extractedSerial      sql.NullString
		extractedSkill       sql.NullString
		extractedInstitution sql.NullString
		verifiedAt           sql.NullTime
		verifiedBy           sql.NullString
	)

	err := row.Scan(&recID, &userID, &docType, &rec.StorageKey, &rec.FileSize,
		&ocr, &extractedName, &extractedSerial, &extractedSkill, &extractedInstitution,
		&status, &rejection, &rec.TrustScoreDelta, &verifiedAt, &verifiedBy,
		&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if rec.ID, err = id.ParseVerificationID(recID); err != nil {
		return nil, fmt.Errorf("stored verification id: %w", err)
	}
	if rec.UserID, err = id.ParseUserID(userID); err != nil {
		return nil, fmt.Errorf("stored user id: %w", err)
	}
	rec.DocumentType = models.DocumentType(docType)
	rec.Status = models.Status(status)
	rec.RejectionReason = rejection.String
	rec.ExtractedName = extractedName.String
	rec.ExtractedSerial = extractedSerial.String
	rec.ExtractedSkill = extractedSkill.String
	rec.ExtractedInstitution = extractedInstitution.String
	rec.VerifiedBy = verifiedBy.String
	if verifiedAt.Valid {
		t := verifiedAt.Time
		rec.VerifiedAt = &t
	}
	if len(ocr) > 0 {
		if err := json.Unmarshal(ocr, &rec.OCRData); err != nil {
			return nil, fmt.Errorf("decoding ocr data: %w", err)
		}
	}
	return &rec, nil
}

func collectRecords(rows *sql.Rows) ([]models.VerificationRecord, error) {
	var out []models.VerificationRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning verification record: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating verification records: %w", err)
	}
	return out, nil
}

// PostgresUserStore reads and writes the pipeline's user view.
type PostgresUserStore struct {
	db *sql.DB
}

func NewPostgresUserStore(db *sql.DB) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

func (s *PostgresUserStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	q := tx.Resolve(ctx, s.db)

	var (
		u        models.User
		rawID    string
		fullName sql.NullString
	)
	err := q.QueryRowContext(ctx,
		`SELECT id, full_name, trust_score, is_verified FROM users WHERE id = $1`,
		userID.String()).Scan(&rawID, &fullName, &u.TrustScore, &u.IsVerified)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", userID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("finding user: %w", err)
	}
	if u.ID, err = id.ParseUserID(rawID); err != nil {
		return nil, fmt.Errorf("stored user id: %w", err)
	}
	u.FullName = fullName.String
	return &u, nil
}

func (s *PostgresUserStore) Update(ctx context.Context, user *models.User) error {
	q := tx.Resolve(ctx, s.db)

	res, err := q.ExecContext(ctx, `
		UPDATE users SET full_name = $2, trust_score = $3, is_verified = $4, updated_at = NOW()
		WHERE id = $1`,
		user.ID.String(), user.FullName, user.TrustScore, user.IsVerified)
	if err != nil {
		return fmt.Errorf("updating user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating user: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("user %s: %w", user.ID, sentinel.ErrNotFound)
	}
	return nil
}

// SQLTxRunner implements TxRunner over a database handle.
type SQLTxRunner struct {
	db *sql.DB
}

func NewSQLTxRunner(db *sql.DB) *SQLTxRunner {
	return &SQLTxRunner{db: db}
}

func (r *SQLTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return tx.Run(ctx, r.db, fn)
}
