package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	bookingservice "github.com/smallbiznis/motorbook/internal/booking/service"
	"github.com/smallbiznis/motorbook/internal/clock"
	"github.com/smallbiznis/motorbook/internal/config"
	documentdomain "github.com/smallbiznis/motorbook/internal/document/domain"
	documentrepository "github.com/smallbiznis/motorbook/internal/document/repository"
	documentservice "github.com/smallbiznis/motorbook/internal/document/service"
	"github.com/smallbiznis/motorbook/internal/maintenance"
	sequencedomain "github.com/smallbiznis/motorbook/internal/sequence/domain"
	sequencerepository "github.com/smallbiznis/motorbook/internal/sequence/repository"
	sequenceservice "github.com/smallbiznis/motorbook/internal/sequence/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testServer struct {
	engine    *gin.Engine
	sequences sequencedomain.Service
}

func newTestServer(t *testing.T, adminToken string) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&sequencedomain.Sequence{}, &documentdomain.Document{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	cfg := config.Config{Timezone: "Europe/London", AdminToken: adminToken}
	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	numbering := config.NewStaticNumberingConfigHolder(config.NumberingConfig{
		Retry: config.RetryPolicy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond},
	})
	log := zap.NewNop()

	sequences := sequenceservice.New(sequenceservice.Params{
		DB:        db,
		Log:       log,
		Repo:      sequencerepository.Provide(),
		Clock:     fake,
		Numbering: numbering,
	})
	docRepo := documentrepository.Provide()
	documents := documentservice.New(documentservice.Params{
		DB:        db,
		Log:       log,
		GenID:     node,
		Repo:      docRepo,
		Sequences: sequences,
		Clock:     fake,
		Numbering: numbering,
	})
	bookings := bookingservice.New(bookingservice.Params{
		DB:           db,
		Log:          log,
		Cfg:          cfg,
		Clock:        fake,
		Numbering:    numbering,
		Sequences:    sequences,
		Documents:    documents,
		DocumentRepo: docRepo,
	})
	cleanup := maintenance.New(maintenance.Params{
		Log:       log,
		Cfg:       cfg,
		Clock:     fake,
		Locker:    maintenance.NoopLocker{},
		Documents: documents,
		Sequences: sequences,
	})

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())
	NewServer(ServerParams{
		Gin:         engine,
		Cfg:         cfg,
		DB:          db,
		DocumentSvc: documents,
		BookingSvc:  bookings,
		SequenceSvc: sequences,
		Maintenance: cleanup,
	})

	return &testServer{engine: engine, sequences: sequences}
}

func (ts *testServer) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	return rec
}

func confirmBody(name string) map[string]any {
	return map[string]any{
		"payload": map[string]any{
			"customer": map[string]any{"name": name, "email": strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com"},
			"vehicle":  map[string]any{"registration": "AB12 CDE"},
		},
		"total_amount_pence": 12000,
		"vat_amount_pence":   2000,
		"issue_quote":        true,
	}
}

type errorBody struct {
	Error struct {
		Type   string `json:"type"`
		Errors []struct {
			Field string `json:"field"`
			Code  string `json:"code"`
		} `json:"errors"`
	} `json:"error"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

type documentsBody struct {
	Data []struct {
		ID     string `json:"id"`
		Number string `json:"number"`
		Type   string `json:"type"`
		Status string `json:"status"`
	} `json:"data"`
	PageInfo struct {
		NextPageToken string `json:"next_page_token"`
		HasMore       bool   `json:"has_more"`
	} `json:"page_info"`
}

func TestConfirmBookingRoute(t *testing.T) {
	ts := newTestServer(t, "")

	rec := ts.do(t, http.MethodPost, "/api/bookings/bkg_1/confirm", confirmBody("Sam Smith"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body struct {
		Data struct {
			Reference string `json:"reference"`
			Invoice   struct {
				Number string `json:"number"`
				Status string `json:"status"`
			} `json:"invoice"`
			Quote *struct {
				Number string `json:"number"`
			} `json:"quote"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "BKG-25000001", body.Data.Reference)
	assert.Equal(t, "INV-2025-00001", body.Data.Invoice.Number)
	assert.Equal(t, "ISSUED", body.Data.Invoice.Status)
	require.NotNil(t, body.Data.Quote)
	assert.Equal(t, "QUO-2025-00001", body.Data.Quote.Number)

	rec = ts.do(t, http.MethodPost, "/api/bookings/bkg_1/confirm", confirmBody("Sam Smith"))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", decodeError(t, rec).Error.Type)

	rec = ts.do(t, http.MethodPost, "/api/bookings/bkg_2/confirm", map[string]any{
		"total_amount_pence": 100,
		"vat_amount_pence":   200,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", decodeError(t, rec).Error.Type)
}

func TestDocumentRoutes(t *testing.T) {
	ts := newTestServer(t, "")

	require.Equal(t, http.StatusCreated, ts.do(t, http.MethodPost, "/api/bookings/bkg_1/confirm", confirmBody("Sam Smith")).Code)
	require.Equal(t, http.StatusCreated, ts.do(t, http.MethodPost, "/api/bookings/bkg_2/confirm", confirmBody("Alex Jones")).Code)

	rec := ts.do(t, http.MethodGet, "/api/documents?q=SMITH&type=invoice", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var list documentsBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Data, 1)
	assert.Equal(t, "INV-2025-00001", list.Data[0].Number)
	assert.False(t, list.PageInfo.HasMore)

	rec = ts.do(t, http.MethodGet, "/api/documents?page_size=3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list.Data, 3)
	assert.True(t, list.PageInfo.HasMore)
	require.NotEmpty(t, list.PageInfo.NextPageToken)

	rec = ts.do(t, http.MethodGet, "/api/documents?page_size=3&page_token="+list.PageInfo.NextPageToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list.Data, 1)
	assert.False(t, list.PageInfo.HasMore)
	id := list.Data[0].ID

	rec = ts.do(t, http.MethodGet, "/api/documents/"+id, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPatch, "/api/documents/"+id+"/status", map[string]any{
		"status":         "paid",
		"paid_at":        "2025-06-02T10:00:00Z",
		"payment_method": "card",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"status":"PAID"`)

	rec = ts.do(t, http.MethodPatch, "/api/documents/"+id+"/status", map[string]any{"status": "void"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_status", decodeError(t, rec).Error.Errors[0].Code)

	rec = ts.do(t, http.MethodGet, "/api/documents/not-a-number", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/documents/12345", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/documents?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/documents?created_from=2025-06-02&created_to=2025-06-01", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_date_range", decodeError(t, rec).Error.Errors[0].Code)
}

func TestExportDocumentsRoute(t *testing.T) {
	ts := newTestServer(t, "")
	require.Equal(t, http.StatusCreated, ts.do(t, http.MethodPost, "/api/bookings/bkg_1/confirm", confirmBody("Sam Smith")).Code)

	rec := ts.do(t, http.MethodGet, "/api/documents/export?type=INVOICE", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="documents-invoice.csv"`)

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "number,type,status,totalPence,vatPence,createdAt,issuedAt,dueAt,paidAt,paymentMethod,bookingId", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "INV-2025-00001,INVOICE,ISSUED,12000,2000,"))
}

func TestExportFilename(t *testing.T) {
	assert.Equal(t, "documents.csv", exportFilename(documentdomain.Filter{}))
	assert.Equal(t, "documents-quote-draft-cancelled.csv", exportFilename(documentdomain.Filter{
		Types:    []documentdomain.Type{documentdomain.TypeQuote},
		Statuses: []documentdomain.Status{documentdomain.StatusDraft, documentdomain.StatusCancelled},
	}))
}

func TestDeleteDocumentsRoute(t *testing.T) {
	ts := newTestServer(t, "")
	require.Equal(t, http.StatusCreated, ts.do(t, http.MethodPost, "/api/bookings/bkg_1/confirm", confirmBody("Sam Smith")).Code)

	rec := ts.do(t, http.MethodDelete, "/api/documents", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "empty_filter", decodeError(t, rec).Error.Errors[0].Code)

	rec = ts.do(t, http.MethodDelete, "/api/documents?status=DRAFT", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"deleted":1}}`, rec.Body.String())

	rec = ts.do(t, http.MethodDelete, "/api/documents?all=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"deleted":1}}`, rec.Body.String())
}

func TestAdminRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t, "s3cret")

	rec := ts.do(t, http.MethodGet, "/api/admin/sequences/2025/invoice", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/admin/sequences/2025/invoice", nil, "Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/api/documents?all=true", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/admin/sequences/2025/invoice", nil, "Authorization", "Bearer s3cret")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"key":"INVOICE","year":2025,"counter":0}}`, rec.Body.String())
}

func TestSequenceRoutes(t *testing.T) {
	ts := newTestServer(t, "")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := ts.sequences.AllocateNext(ctx, sequencedomain.KeyQuote, 2025)
		require.NoError(t, err)
	}

	rec := ts.do(t, http.MethodGet, "/api/admin/sequences/2025/quote", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"key":"QUOTE","year":2025,"counter":3}}`, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/api/admin/sequences/2025", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"counter":3`)

	rec = ts.do(t, http.MethodPost, "/api/admin/sequences/2025/quote/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	next, err := ts.sequences.AllocateNext(ctx, sequencedomain.KeyQuote, 2025)
	require.NoError(t, err)
	assert.Equal(t, int64(1), next)

	rec = ts.do(t, http.MethodGet, "/api/admin/sequences/2025/receipt", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_sequence_key", decodeError(t, rec).Error.Errors[0].Code)

	rec = ts.do(t, http.MethodGet, "/api/admin/sequences/12/quote", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_year", decodeError(t, rec).Error.Errors[0].Code)
}

func TestCleanupRoute(t *testing.T) {
	ts := newTestServer(t, "")
	require.Equal(t, http.StatusCreated, ts.do(t, http.MethodPost, "/api/bookings/bkg_1/confirm", confirmBody("Sam Smith")).Code)

	rec := ts.do(t, http.MethodPost, "/api/admin/cleanup", map[string]any{
		"all":             true,
		"reset_sequences": true,
		"keys":            []string{"invoice", "quote"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"data":{"deleted":2,"year":2025,"reset":["INVOICE","QUOTE"]}}`, rec.Body.String())

	counter, err := ts.sequences.PeekCounter(context.Background(), sequencedomain.KeyBookingReference, 2025)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counter)

	rec = ts.do(t, http.MethodPost, "/api/admin/cleanup", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthAndFallback(t *testing.T) {
	ts := newTestServer(t, "")

	rec := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec).Error.Type)
}
