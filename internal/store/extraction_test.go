package store_test

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/contracthub/extraction-service/internal/store"
	"github.com/contracthub/extraction-service/internal/store/model"
)

var _ = Describe("extraction store", Ordered, func() {
	var (
		gormDB *gorm.DB
		s      store.Store
	)

	BeforeAll(func() {
		gormDB, s = openTestStore()
	})

	AfterAll(func() {
		Expect(s.Close()).To(Succeed())
	})

	AfterEach(func() {
		gormDB.Exec("DELETE FROM extractions")
	})

	newPending := func(contractID uuid.UUID) *model.Extraction {
		e, err := s.Extraction().Create(context.TODO(), model.Extraction{
			ID:         uuid.New(),
			ContractID: contractID,
			Status:     model.ExtractionStatusPending,
			FileRef:    "contracts/42.pdf",
		})
		Expect(err).To(BeNil())
		return e
	}

	Context("create and get", func() {
		It("round-trips an extraction", func() {
			e := newPending(uuid.New())

			got, err := s.Extraction().Get(context.TODO(), e.ID)
			Expect(err).To(BeNil())
			Expect(got.ContractID).To(Equal(e.ContractID))
			Expect(got.Status).To(Equal(model.ExtractionStatusPending))
			Expect(got.Version).To(Equal(1))
		})

		It("reports a duplicate id", func() {
			e := newPending(uuid.New())

			_, err := s.Extraction().Create(context.TODO(), model.Extraction{
				ID:         e.ID,
				ContractID: e.ContractID,
				Status:     model.ExtractionStatusPending,
				FileRef:    "contracts/42.pdf",
			})
			Expect(errors.Is(err, store.ErrDuplicateKey)).To(BeTrue())
		})

		It("returns not-found for an unknown id", func() {
			_, err := s.Extraction().Get(context.TODO(), uuid.New())
			Expect(errors.Is(err, store.ErrRecordNotFound)).To(BeTrue())
		})
	})

	Context("one active per contract", func() {
		It("rejects a second active extraction for the same contract", func() {
			contractID := uuid.New()
			newPending(contractID)

			_, err := s.Extraction().Create(context.TODO(), model.Extraction{
				ID:         uuid.New(),
				ContractID: contractID,
				Status:     model.ExtractionStatusPending,
				FileRef:    "contracts/42.pdf",
			})
			Expect(errors.Is(err, store.ErrDuplicateKey)).To(BeTrue())
		})

		It("allows a fresh extraction once the previous one is terminal", func() {
			contractID := uuid.New()
			e := newPending(contractID)

			Expect(e.Cancel()).To(Succeed())
			_, err := s.Extraction().Update(context.TODO(), e)
			Expect(err).To(BeNil())

			_, err = s.Extraction().Create(context.TODO(), model.Extraction{
				ID:         uuid.New(),
				ContractID: contractID,
				Status:     model.ExtractionStatusPending,
				FileRef:    "contracts/42.pdf",
			})
			Expect(err).To(BeNil())
		})
	})

	Context("optimistic update", func() {
		It("increments the version on every write", func() {
			e := newPending(uuid.New())

			Expect(e.StartProcessing()).To(Succeed())
			updated, err := s.Extraction().Update(context.TODO(), e)
			Expect(err).To(BeNil())
			Expect(updated.Version).To(Equal(2))

			got, err := s.Extraction().Get(context.TODO(), e.ID)
			Expect(err).To(BeNil())
			Expect(got.Status).To(Equal(model.ExtractionStatusProcessing))
			Expect(got.StartedAt).NotTo(BeNil())
		})

		It("rejects a write based on a stale version", func() {
			e := newPending(uuid.New())

			stale := *e
			Expect(e.StartProcessing()).To(Succeed())
			_, err := s.Extraction().Update(context.TODO(), e)
			Expect(err).To(BeNil())

			Expect(stale.Cancel()).To(Succeed())
			_, err = s.Extraction().Update(context.TODO(), &stale)
			Expect(errors.Is(err, store.ErrStaleVersion)).To(BeTrue())
			Expect(errors.Is(err, store.ErrRecordNotFound)).To(BeFalse())
		})

		It("distinguishes a missing row from a stale one", func() {
			ghost := model.Extraction{ID: uuid.New(), Status: model.ExtractionStatusPending, Version: 1}
			_, err := s.Extraction().Update(context.TODO(), &ghost)
			Expect(errors.Is(err, store.ErrRecordNotFound)).To(BeTrue())
		})
	})

	Context("lookup by contract", func() {
		It("finds the latest extraction of a contract", func() {
			contractID := uuid.New()
			e := newPending(contractID)

			got, err := s.Extraction().FindActiveByContract(context.TODO(), contractID)
			Expect(err).To(BeNil())
			Expect(got.ID).To(Equal(e.ID))
		})

		It("reports whether the contract has a non-terminal extraction", func() {
			contractID := uuid.New()
			e := newPending(contractID)

			active, err := s.Extraction().ExistsActive(context.TODO(), contractID)
			Expect(err).To(BeNil())
			Expect(active).To(BeTrue())

			Expect(e.Cancel()).To(Succeed())
			_, err = s.Extraction().Update(context.TODO(), e)
			Expect(err).To(BeNil())

			active, err = s.Extraction().ExistsActive(context.TODO(), contractID)
			Expect(err).To(BeNil())
			Expect(active).To(BeFalse())
		})

		It("ignores soft-deleted rows", func() {
			contractID := uuid.New()
			e := newPending(contractID)

			Expect(s.Extraction().Delete(context.TODO(), e.ID)).To(Succeed())

			_, err := s.Extraction().FindActiveByContract(context.TODO(), contractID)
			Expect(errors.Is(err, store.ErrRecordNotFound)).To(BeTrue())
		})
	})

	Context("stale processing", func() {
		It("lists only processing rows older than the deadline", func() {
			old := newPending(uuid.New())
			Expect(old.StartProcessing()).To(Succeed())
			past := time.Now().Add(-2 * time.Hour)
			old.StartedAt = &past
			_, err := s.Extraction().Update(context.TODO(), old)
			Expect(err).To(BeNil())

			fresh := newPending(uuid.New())
			Expect(fresh.StartProcessing()).To(Succeed())
			_, err = s.Extraction().Update(context.TODO(), fresh)
			Expect(err).To(BeNil())

			pending := newPending(uuid.New())
			_ = pending

			stale, err := s.Extraction().ListStaleProcessing(context.TODO(), time.Now().Add(-time.Hour))
			Expect(err).To(BeNil())
			Expect(stale).To(HaveLen(1))
			Expect(stale[0].ID).To(Equal(old.ID))
		})
	})

	Context("list", func() {
		It("filters by contract and status", func() {
			contractID := uuid.New()
			newPending(contractID)
			newPending(uuid.New())

			list, err := s.Extraction().List(context.TODO(),
				store.NewExtractionQueryFilter().ByContractID(contractID).ByStatus(model.ExtractionStatusPending))
			Expect(err).To(BeNil())
			Expect(list).To(HaveLen(1))
			Expect(list[0].ContractID).To(Equal(contractID))
		})
	})
})
