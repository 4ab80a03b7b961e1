package postgres_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/opx/controlplane/internal/store"
	"github.com/opx/controlplane/internal/store/postgres"
	"github.com/opx/controlplane/pkg/domain"
)

func TestPostgresAuditStore(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Postgres Audit Store Suite")
}

var _ = Describe("postgres.AuditStore", func() {
	var (
		mockDB *sqlx.DB
		mock   sqlmock.Sqlmock
		repo   *postgres.AuditStore
		ctx    context.Context
	)

	BeforeEach(func() {
		raw, m, err := sqlmock.New()
		Expect(err).ToNot(HaveOccurred())
		mock = m
		mockDB = sqlx.NewDb(raw, "postgres")
		repo = postgres.NewAuditStore(mockDB)
		ctx = context.Background()
	})

	AfterEach(func() {
		mockDB.Close()
	})

	Describe("UpdateStatus", func() {
		It("rejects updating an already-terminal record", func() {
			audit := domain.AutomationAudit{AuditID: "audit-1", Status: domain.AuditSuccess, StartTime: time.Now()}
			auditJSON, err := json.Marshal(audit)
			Expect(err).ToNot(HaveOccurred())

			mock.ExpectQuery(`SELECT data FROM audit_records WHERE key = \$1`).
				WithArgs("audit-1").
				WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow(auditJSON))

			_, err = repo.UpdateStatus(ctx, "audit-1", func(current domain.AutomationAudit) (domain.AutomationAudit, error) {
				current.Status = domain.AuditFailed
				return current, nil
			})
			Expect(err).To(MatchError(store.ErrAlreadyTerminal))
			Expect(mock.ExpectationsWereMet()).To(Succeed())
		})

		It("moves RUNNING to SUCCESS exactly once", func() {
			audit := domain.AutomationAudit{AuditID: "audit-1", Status: domain.AuditRunning, StartTime: time.Now()}
			auditJSON, err := json.Marshal(audit)
			Expect(err).ToNot(HaveOccurred())

			mock.ExpectQuery(`SELECT data FROM audit_records WHERE key = \$1`).
				WithArgs("audit-1").
				WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow(auditJSON))
			mock.ExpectExec(`UPDATE audit_records SET`).
				WillReturnResult(sqlmock.NewResult(0, 1))

			updated, err := repo.UpdateStatus(ctx, "audit-1", func(current domain.AutomationAudit) (domain.AutomationAudit, error) {
				current.Status = domain.AuditSuccess
				return current, nil
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(updated.Status).To(Equal(domain.AuditSuccess))
			Expect(mock.ExpectationsWereMet()).To(Succeed())
		})
	})
})
