package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"allocation-engine/internal/domain"
)

func newMockTxRepo(t *testing.T) (TransactionRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewTransactionRepository(db), mock
}

func resolutionAudit() *domain.ResolutionAudit {
	return &domain.ResolutionAudit{
		ID:            uuid.New(),
		TransactionID: 42,
		PolicyNumber:  "P-100",
		Source:        domain.MatchSourceDatabase,
		AppliedBy:     "alice",
		AppliedAt:     time.Now().UTC(),
	}
}

func TestApplyResolution_WritesPolicyAndAudit(t *testing.T) {
	repo, mock := newMockTxRepo(t)
	audit := resolutionAudit()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE transactions").
		WithArgs(audit.PolicyNumber, audit.TransactionID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO resolution_audits").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.ApplyResolution(audit))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyResolution_AlreadyResolved(t *testing.T) {
	repo, mock := newMockTxRepo(t)
	audit := resolutionAudit()

	// Conditional update touches nothing; the transaction exists, so its
	// policy number was already set.
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE transactions").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	err := repo.ApplyResolution(audit)

	assert.True(t, errors.Is(err, domain.ErrAlreadyResolved))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyResolution_TransactionMissing(t *testing.T) {
	repo, mock := newMockTxRepo(t)
	audit := resolutionAudit()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE transactions").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	err := repo.ApplyResolution(audit)

	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}
