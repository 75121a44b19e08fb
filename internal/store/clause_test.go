package store_test

import (
	"context"
	"errors"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/contracthub/extraction-service/internal/store"
	"github.com/contracthub/extraction-service/internal/store/model"
)

var _ = Describe("clause store", Ordered, func() {
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
		gormDB.Exec("DELETE FROM clauses")
	})

	seed := func(extractionID, contractID uuid.UUID) []model.Clause {
		clauses := []model.Clause{
			{
				ID:           uuid.New(),
				ExtractionID: extractionID,
				ContractID:   contractID,
				Type:         model.ClauseTypePayment,
				Content:      "Net 30 from invoice date.",
				RiskLevel:    model.RiskLevelLow,
			},
			{
				ID:           uuid.New(),
				ExtractionID: extractionID,
				ContractID:   contractID,
				Type:         model.ClauseTypeIndemnity,
				Content:      "Supplier indemnifies buyer.",
				RiskLevel:    model.RiskLevelHigh,
			},
		}
		Expect(s.Clause().CreateBatch(context.TODO(), clauses)).To(Succeed())
		return clauses
	}

	It("persists a batch and counts it per extraction", func() {
		extractionID := uuid.New()
		seed(extractionID, uuid.New())

		count, err := s.Clause().CountByExtraction(context.TODO(), extractionID)
		Expect(err).To(BeNil())
		Expect(count).To(Equal(int64(2)))
	})

	It("accepts an empty batch", func() {
		Expect(s.Clause().CreateBatch(context.TODO(), nil)).To(Succeed())
	})

	It("filters by extraction, type and risk level", func() {
		extractionID := uuid.New()
		contractID := uuid.New()
		seed(extractionID, contractID)
		seed(uuid.New(), uuid.New())

		byExtraction, err := s.Clause().List(context.TODO(),
			store.NewClauseQueryFilter().ByExtractionID(extractionID))
		Expect(err).To(BeNil())
		Expect(byExtraction).To(HaveLen(2))

		risky, err := s.Clause().List(context.TODO(),
			store.NewClauseQueryFilter().ByContractID(contractID).ByRiskLevel(model.RiskLevelHigh))
		Expect(err).To(BeNil())
		Expect(risky).To(HaveLen(1))
		Expect(risky[0].Type).To(Equal(model.ClauseTypeIndemnity))
	})

	It("overwrites the analytical fields only", func() {
		clauses := seed(uuid.New(), uuid.New())
		target := clauses[0]

		confidence := 42.0
		updated, err := s.Clause().UpdateAnalysis(context.TODO(), target.ID,
			&confidence, []byte(`{"supplier": "Acme"}`), model.RiskLevelMedium, []byte(`["late fees"]`))
		Expect(err).To(BeNil())
		Expect(*updated.Confidence).To(Equal(42.0))
		Expect(updated.RiskLevel).To(Equal(model.RiskLevelMedium))
		Expect(updated.Content).To(Equal(target.Content))
		Expect(updated.Type).To(Equal(target.Type))
	})

	It("reports not-found when re-analyzing an unknown clause", func() {
		_, err := s.Clause().UpdateAnalysis(context.TODO(), uuid.New(), nil, nil, model.RiskLevelLow, nil)
		Expect(errors.Is(err, store.ErrRecordNotFound)).To(BeTrue())
	})

	It("removes all clauses of an extraction", func() {
		extractionID := uuid.New()
		seed(extractionID, uuid.New())
		kept := seed(uuid.New(), uuid.New())

		Expect(s.Clause().DeleteByExtraction(context.TODO(), extractionID)).To(Succeed())

		count, err := s.Clause().CountByExtraction(context.TODO(), extractionID)
		Expect(err).To(BeNil())
		Expect(count).To(Equal(int64(0)))

		count, err = s.Clause().CountByExtraction(context.TODO(), kept[0].ExtractionID)
		Expect(err).To(BeNil())
		Expect(count).To(Equal(int64(2)))
	})
})
