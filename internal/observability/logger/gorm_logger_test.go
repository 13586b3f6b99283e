package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

var errBusy = errors.New("database is locked")

func observeGlobal(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	t.Cleanup(restore)
	return logs
}

func allocationSQL() (string, int64) {
	return "INSERT INTO sequences (seq_key, year, counter, updated_at) VALUES ('INVOICE', 2025, 1, now()) ON CONFLICT DO UPDATE SET counter = sequences.counter + 1 RETURNING counter", 1
}

func TestGormLoggerTransientErrorsAreWarnings(t *testing.T) {
	logs := observeGlobal(t)
	cfg := DefaultGormLoggerConfig()
	cfg.Transient = func(err error) bool { return errors.Is(err, errBusy) }
	l := NewGormLogger(cfg)

	l.Trace(context.Background(), time.Now(), allocationSQL, errBusy)
	l.Trace(context.Background(), time.Now(), allocationSQL, errors.New("syntax error"))

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
	assert.Equal(t, zapcore.ErrorLevel, logs.All()[1].Level)

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "INSERT", fields["operation"])
	assert.Equal(t, "sequences", fields["table"])
}

func TestGormLoggerIgnoresRecordNotFound(t *testing.T) {
	logs := observeGlobal(t)
	l := NewGormLogger(DefaultGormLoggerConfig())

	l.Trace(context.Background(), time.Now(), func() (string, int64) {
		return `SELECT * FROM "documents" WHERE id = 1`, 0
	}, gormlogger.ErrRecordNotFound)

	assert.Equal(t, 0, logs.Len())
}

func TestGormLoggerLogModeAndSilence(t *testing.T) {
	logs := observeGlobal(t)
	l := NewGormLogger(DefaultGormLoggerConfig())

	l.Info(context.Background(), "not shown")
	l.LogMode(gormlogger.Info).Info(context.Background(), "shown")
	l.LogMode(gormlogger.Silent).Trace(context.Background(), time.Now(), allocationSQL, errBusy)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "shown", logs.All()[0].Message)
}

func TestTableFromSQL(t *testing.T) {
	assert.Equal(t, "documents", tableFromSQL(`DELETE FROM "documents" WHERE status IN ('DRAFT')`))
	assert.Equal(t, "sequences", tableFromSQL("UPDATE `sequences` SET counter = 0"))
	assert.Equal(t, "UNKNOWN", operationFromSQL(""))
	assert.Equal(t, "SELECT", operationFromSQL("WITH x AS (SELECT 1) SELECT * FROM x"))
}
