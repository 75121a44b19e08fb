package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/contracthub/extraction-service/internal/audit"
	"github.com/contracthub/extraction-service/internal/config"
	"github.com/contracthub/extraction-service/internal/extraction/jobs"
	"github.com/contracthub/extraction-service/internal/service"
	"github.com/contracthub/extraction-service/internal/store"
	"github.com/contracthub/extraction-service/internal/store/model"
)

func TestHandlers(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Handlers Suite")
}

type fakeDispatcher struct{}

func (fakeDispatcher) InsertJob(_ context.Context, _ jobs.ExtractArgs) (int64, error) { return 1, nil }
func (fakeDispatcher) CancelJob(_ context.Context, _ int64) error                     { return nil }

type silentSink struct{}

func (silentSink) Append(_ context.Context, _ string, _ audit.ExtractionEvent) {}
func (silentSink) Close() error                                                { return nil }

var _ = Describe("extraction handlers", Ordered, func() {
	var (
		gormDB *gorm.DB
		s      store.Store
		router *chi.Mux
	)

	BeforeAll(func() {
		var err error
		gormDB, err = store.InitDB(config.NewDefault())
		Expect(err).To(BeNil())
		Expect(gormDB.AutoMigrate(&model.Extraction{}, &model.Clause{}, &model.PromptTemplate{})).To(Succeed())
		// AutoMigrate cannot express the partial unique index from the goose schema.
		Expect(gormDB.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS extractions_one_active_per_contract
			ON extractions (contract_id)
			WHERE status IN ('pending', 'processing') AND deleted_at IS NULL`).Error).To(BeNil())
		s = store.NewStore(gormDB)

		svc := service.NewExtractionService(s, fakeDispatcher{}, nil, silentSink{}, service.TriggerModeReuse)
		handler := NewServiceHandler(svc)

		router = chi.NewRouter()
		handler.RegisterRoutes(router)
		router.Get("/health", Health)
	})

	AfterAll(func() {
		Expect(s.Close()).To(Succeed())
	})

	AfterEach(func() {
		gormDB.Exec("DELETE FROM clauses")
		gormDB.Exec("DELETE FROM extractions")
	})

	trigger := func(contractID uuid.UUID, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost,
			fmt.Sprintf("/api/v1/contracts/%s/extractions", contractID),
			bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	It("triggers an extraction and returns 201", func() {
		rec := trigger(uuid.New(), `{"file_ref": "contracts/42.pdf", "requested_by": "reviewer"}`)
		Expect(rec.Code).To(Equal(http.StatusCreated))

		var reply ExtractionReply
		Expect(json.Unmarshal(rec.Body.Bytes(), &reply)).To(Succeed())
		Expect(reply.Status).To(Equal("pending"))
		Expect(reply.Outcome).To(Equal("created"))
	})

	It("returns 200 when the trigger reuses an in-flight extraction", func() {
		contractID := uuid.New()
		first := trigger(contractID, `{"file_ref": "contracts/42.pdf"}`)
		Expect(first.Code).To(Equal(http.StatusCreated))

		second := trigger(contractID, `{"file_ref": "contracts/42.pdf"}`)
		Expect(second.Code).To(Equal(http.StatusOK))

		var reply ExtractionReply
		Expect(json.Unmarshal(second.Body.Bytes(), &reply)).To(Succeed())
		Expect(reply.Outcome).To(Equal("reused"))
	})

	It("rejects a trigger without a file reference", func() {
		rec := trigger(uuid.New(), `{"requested_by": "reviewer"}`)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("rejects a malformed contract id", func() {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/contracts/not-a-uuid/extractions",
			bytes.NewBufferString(`{"file_ref": "a.pdf"}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("serves the extraction status by id and by contract", func() {
		contractID := uuid.New()
		rec := trigger(contractID, `{"file_ref": "a.pdf"}`)
		var created ExtractionReply
		Expect(json.Unmarshal(rec.Body.Bytes(), &created)).To(Succeed())

		byID := httptest.NewRecorder()
		router.ServeHTTP(byID, httptest.NewRequest(http.MethodGet, "/api/v1/extractions/"+created.ID.String(), nil))
		Expect(byID.Code).To(Equal(http.StatusOK))

		byContract := httptest.NewRecorder()
		router.ServeHTTP(byContract, httptest.NewRequest(http.MethodGet,
			fmt.Sprintf("/api/v1/contracts/%s/extraction", contractID), nil))
		Expect(byContract.Code).To(Equal(http.StatusOK))

		var reply ExtractionReply
		Expect(json.Unmarshal(byContract.Body.Bytes(), &reply)).To(Succeed())
		Expect(reply.ID).To(Equal(created.ID))
	})

	It("returns 404 for an unknown extraction", func() {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/extractions/"+uuid.NewString(), nil))
		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("cancels a pending extraction", func() {
		rec := trigger(uuid.New(), `{"file_ref": "a.pdf"}`)
		var created ExtractionReply
		Expect(json.Unmarshal(rec.Body.Bytes(), &created)).To(Succeed())

		cancel := httptest.NewRecorder()
		router.ServeHTTP(cancel, httptest.NewRequest(http.MethodDelete, "/api/v1/extractions/"+created.ID.String(), nil))
		Expect(cancel.Code).To(Equal(http.StatusOK))

		var reply ExtractionReply
		Expect(json.Unmarshal(cancel.Body.Bytes(), &reply)).To(Succeed())
		Expect(reply.Status).To(Equal("cancelled"))

		// A second cancel hits a terminal row.
		again := httptest.NewRecorder()
		router.ServeHTTP(again, httptest.NewRequest(http.MethodDelete, "/api/v1/extractions/"+created.ID.String(), nil))
		Expect(again.Code).To(Equal(http.StatusConflict))
	})

	It("lists the persisted clauses of an extraction", func() {
		contractID := uuid.New()
		rec := trigger(contractID, `{"file_ref": "a.pdf"}`)
		var created ExtractionReply
		Expect(json.Unmarshal(rec.Body.Bytes(), &created)).To(Succeed())

		Expect(s.Clause().CreateBatch(context.TODO(), []model.Clause{{
			ID:           uuid.New(),
			ExtractionID: created.ID,
			ContractID:   contractID,
			Type:         model.ClauseTypePayment,
			Content:      "Net 30.",
			RiskLevel:    model.RiskLevelLow,
		}})).To(Succeed())

		list := httptest.NewRecorder()
		router.ServeHTTP(list, httptest.NewRequest(http.MethodGet,
			fmt.Sprintf("/api/v1/extractions/%s/clauses", created.ID), nil))
		Expect(list.Code).To(Equal(http.StatusOK))

		var clauses []ClauseReply
		Expect(json.Unmarshal(list.Body.Bytes(), &clauses)).To(Succeed())
		Expect(clauses).To(HaveLen(1))
		Expect(clauses[0].Type).To(Equal(model.ClauseTypePayment))
	})

	It("re-analyzes a clause", func() {
		contractID := uuid.New()
		rec := trigger(contractID, `{"file_ref": "a.pdf"}`)
		var created ExtractionReply
		Expect(json.Unmarshal(rec.Body.Bytes(), &created)).To(Succeed())

		clauseID := uuid.New()
		Expect(s.Clause().CreateBatch(context.TODO(), []model.Clause{{
			ID:           clauseID,
			ExtractionID: created.ID,
			ContractID:   contractID,
			Type:         model.ClauseTypeIndemnity,
			Content:      "Supplier indemnifies buyer.",
			RiskLevel:    model.RiskLevelLow,
		}})).To(Succeed())

		body := `{"confidence": 40, "risk_level": "critical", "risk_factors": ["uncapped liability"]}`
		req := httptest.NewRequest(http.MethodPut, "/api/v1/clauses/"+clauseID.String()+"/analysis",
			bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		update := httptest.NewRecorder()
		router.ServeHTTP(update, req)
		Expect(update.Code).To(Equal(http.StatusOK))

		var reply ClauseReply
		Expect(json.Unmarshal(update.Body.Bytes(), &reply)).To(Succeed())
		Expect(reply.RiskLevel).To(Equal(model.RiskLevelCritical))
	})

	It("rejects a re-analysis with an unknown risk level", func() {
		req := httptest.NewRequest(http.MethodPut, "/api/v1/clauses/"+uuid.NewString()+"/analysis",
			bytes.NewBufferString(`{"risk_level": "catastrophic"}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("answers the health probe", func() {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		Expect(rec.Code).To(Equal(http.StatusOK))
	})
})
