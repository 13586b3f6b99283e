package metrics

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("sequence_key", "INVOICE"),
		attribute.String("booking_id", "456"),
		attribute.String("document_type", "QUOTE"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != "sequence_key" && attrs[1].Key != "sequence_key" {
		t.Fatalf("expected sequence_key to be retained")
	}
	if attrs[0].Key != "document_type" && attrs[1].Key != "document_type" {
		t.Fatalf("expected document_type to be retained")
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordAllocation(ctx, "INVOICE", time.Millisecond)
	m.RecordAllocationRetry(ctx, "INVOICE")
	m.RecordAllocationFailure(ctx, "INVOICE", "conflict")
	m.RecordSequenceReset(ctx, "INVOICE")
	m.RecordDocumentIssued(ctx, "INVOICE")
	m.RecordDocumentsDeleted(ctx, 3)
	m.RecordDuplicateNumber(ctx, "INVOICE")
}

func TestNoopMetricsRecord(t *testing.T) {
	m := NewNoop()
	if m == nil {
		t.Fatalf("expected noop metrics")
	}
	m.RecordAllocation(context.Background(), "QUOTE", 2*time.Millisecond)
}
