package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/opslens/opslens/internal/storage"
	"github.com/opslens/opslens/pkg/insight"
	"github.com/opslens/opslens/pkg/logger"

	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rabbitmq/amqp091-go"
)

// ScanJobMsg is the wire format of one insight scan job.
type ScanJobMsg struct {
	RequestID string   `json:"request_id"`
	TenantID  string   `json:"tenant_id"`
	Questions []string `json:"questions"`
}

// PublishScanJob enqueues one scan job for the worker.
func PublishScanJob(ch *amqp091.Channel, job ScanJobMsg) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal scan job: %w", err)
	}
	return PublishFIFO(ch, ScanQueue, data)
}

// ProcessScanMessage runs one scan job and archives the resulting insights.
// A store connectivity failure is returned so the worker can retry the job;
// a partially failed scan is not, the surviving insights are archived.
func ProcessScanMessage(
	ctx context.Context,
	s3Client *awss3.Client,
	scanner *insight.Scanner,
	msg string,
) error {
	data := new(ScanJobMsg)
	if err := json.Unmarshal([]byte(msg), data); err != nil {
		return fmt.Errorf("failed to unmarshal scan job: %w", err)
	}

	logger.Info(
		"[Queue] Processing insight scan",
		"request_id", data.RequestID,
		"tenant", data.TenantID,
		"questions", len(data.Questions),
	)

	insights, err := scanner.Scan(ctx, data.TenantID, data.Questions)
	if err != nil {
		return fmt.Errorf("scan failed for tenant %s: %w", data.TenantID, err)
	}

	archived := 0
	for _, ins := range insights {
		key, err := storage.PutInsight(ctx, s3Client, ins)
		if err != nil {
			logger.Error("[Queue] Failed to archive insight", "insight_id", ins.ID, "tenant", ins.TenantID, "err", err)
			continue
		}
		archived++
		logger.Debug("[Queue] Archived insight", "key", key, "severity", ins.Severity)
	}

	logger.Info(
		"[Queue] Insight scan done",
		"request_id", data.RequestID,
		"tenant", data.TenantID,
		"insights", len(insights),
		"archived", archived,
	)
	return nil
}
