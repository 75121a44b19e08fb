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

var _ = Describe("prompt store", Ordered, func() {
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
		gormDB.Exec("DELETE FROM prompt_templates")
	})

	It("serves only enabled templates", func() {
		_, err := s.Prompt().Create(context.TODO(), model.PromptTemplate{
			ID: uuid.New(), Name: "clause-extraction", Content: "Extract.", Enabled: true,
		})
		Expect(err).To(BeNil())
		_, err = s.Prompt().Create(context.TODO(), model.PromptTemplate{
			ID: uuid.New(), Name: "clause-extraction-draft", Content: "Draft.", Enabled: false,
		})
		Expect(err).To(BeNil())

		template, err := s.Prompt().FindEnabledByName(context.TODO(), "clause-extraction")
		Expect(err).To(BeNil())
		Expect(template.Content).To(Equal("Extract."))

		_, err = s.Prompt().FindEnabledByName(context.TODO(), "clause-extraction-draft")
		Expect(errors.Is(err, store.ErrRecordNotFound)).To(BeTrue())
	})

	It("rejects a duplicate name", func() {
		_, err := s.Prompt().Create(context.TODO(), model.PromptTemplate{
			ID: uuid.New(), Name: "clause-extraction", Content: "Extract.", Enabled: true,
		})
		Expect(err).To(BeNil())

		_, err = s.Prompt().Create(context.TODO(), model.PromptTemplate{
			ID: uuid.New(), Name: "clause-extraction", Content: "Other.", Enabled: true,
		})
		Expect(errors.Is(err, store.ErrDuplicateKey)).To(BeTrue())
	})

	It("upserts the seed template in place", func() {
		Expect(s.Prompt().Upsert(context.TODO(), model.PromptTemplate{
			ID: uuid.New(), Name: "clause-extraction", Content: "v1", Enabled: true,
		})).To(Succeed())
		Expect(s.Prompt().Upsert(context.TODO(), model.PromptTemplate{
			ID: uuid.New(), Name: "clause-extraction", Content: "v2", Enabled: true,
		})).To(Succeed())

		template, err := s.Prompt().FindEnabledByName(context.TODO(), "clause-extraction")
		Expect(err).To(BeNil())
		Expect(template.Content).To(Equal("v2"))
	})
})
