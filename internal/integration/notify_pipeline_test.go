//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/meteo-etl-service/internal/adapter/kafka"
	"github.com/couchcryptid/meteo-etl-service/internal/adapter/openmeteo"
	"github.com/couchcryptid/meteo-etl-service/internal/adapter/parquet"
	"github.com/couchcryptid/meteo-etl-service/internal/adapter/storage"
	"github.com/couchcryptid/meteo-etl-service/internal/domain"
	"github.com/couchcryptid/meteo-etl-service/internal/observability"
	"github.com/couchcryptid/meteo-etl-service/internal/pipeline"
)

const (
	testNotifyTopic = "test-forecast-runs"
	forecastBody    = `{"latitude":-21.22,"longitude":-44.99,"hourly":{"time":["2024-01-01T00:00","2024-01-01T01:00"],"temperature_2m":[22.5,21.8]}}`
)

type runEvent struct {
	EventType string `json:"event_type"`
	RunID     string `json:"run_id"`
	URI       string `json:"uri"`
	Rows      int    `json:"rows"`
}

// TestPipelineNotifiesKafka runs the full pipeline against a stub forecast
// endpoint and local storage, then reads the completion event from Kafka.
func TestPipelineNotifiesKafka(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testNotifyTopic)

	forecast := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, forecastBody)
	}))
	defer forecast.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetricsForTesting()
	dir := t.TempDir()

	codec, err := parquet.NewCodec("SNAPPY")
	require.NoError(t, err)

	notifier := kafka.NewNotifier([]string{broker}, testNotifyTopic, logger)
	defer notifier.Close()

	p := pipeline.New(
		openmeteo.NewClient(forecast.URL, -21.22, -44.99, 10*time.Second, logger, metrics),
		pipeline.NewTransformer(logger),
		storage.NewPersister(domain.NewKeyBuilder("file://"+dir, "open-meteo"), storage.NewLocalOpener(dir),
			codec, parquet.ContentType, 10*time.Second, logger, metrics),
		logger, metrics,
		pipeline.WithNotifier(notifier),
	)

	report, err := p.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Rows)

	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(report.Key.Path())))
	require.NoError(t, err)
	table, err := parquet.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   []string{broker},
		Topic:     testNotifyTopic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  1 << 20,
	})
	defer consumer.Close()

	readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
	defer readCancel()
	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read run notification")

	var event runEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, kafka.EventRunCompleted, event.EventType)
	assert.Equal(t, report.ID, event.RunID)
	assert.Equal(t, report.URI, event.URI)
	assert.True(t, strings.HasPrefix(event.URI, "file://"+dir+"/open-meteo/"))
	assert.Equal(t, 2, event.Rows)
	assert.Equal(t, report.ID, string(msg.Key))
}
