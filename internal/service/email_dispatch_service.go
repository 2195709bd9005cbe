package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/kpi-engine-api/internal/models"
	"github.com/noah-isme/kpi-engine-api/internal/observability"
	"github.com/noah-isme/kpi-engine-api/internal/repository"
	"github.com/noah-isme/kpi-engine-api/pkg/mailer"
)

// EmailDispatcher persists a dispatch log row before every send attempt and
// tracks the bounded retry budget of failed sends.
type EmailDispatcher interface {
	Dispatch(ctx context.Context, log *models.EmailDispatchLog, toName string) error
	RetrySweep(ctx context.Context, limit int) (retried, recovered int, err error)
}

type emailDispatcher struct {
	logs       repository.EmailLogRepository
	transport  mailer.Client
	maxRetries int
	logger     zerolog.Logger
	now        func() time.Time
}

// NewEmailDispatcher constructs the dispatcher.
func NewEmailDispatcher(logs repository.EmailLogRepository, transport mailer.Client, maxRetries int, logger zerolog.Logger) EmailDispatcher {
	if maxRetries <= 0 {
		maxRetries = 3
	}

	return &emailDispatcher{
		logs:       logs,
		transport:  transport,
		maxRetries: maxRetries,
		logger:     logger.With().Str("component", "email_dispatcher").Logger(),
		now:        time.Now,
	}
}

// Dispatch creates the log row in the pending state, then attempts the send
// and records the outcome. The pre-send insert guarantees failed sends stay
// on record and retryable.
func (d *emailDispatcher) Dispatch(ctx context.Context, log *models.EmailDispatchLog, toName string) error {
	log.Status = models.EmailPending
	if log.MaxRetries <= 0 {
		log.MaxRetries = d.maxRetries
	}

	if err := d.logs.Create(ctx, log); err != nil {
		return err
	}

	return d.attempt(ctx, log, toName)
}

// RetrySweep re-sends failed dispatch logs that still have retry budget.
func (d *emailDispatcher) RetrySweep(ctx context.Context, limit int) (int, int, error) {
	retryable, err := d.logs.ListRetryable(ctx, limit)
	if err != nil {
		return 0, 0, err
	}

	recovered := 0
	for i := range retryable {
		log := retryable[i]
		log.RetryCount++
		if err := d.attempt(ctx, &log, ""); err != nil {
			d.logger.Warn().Err(err).Uint("email_log_id", log.ID).Int("retry", log.RetryCount).Msg("email retry failed")
			continue
		}
		recovered++
	}

	return len(retryable), recovered, nil
}

func (d *emailDispatcher) attempt(ctx context.Context, log *models.EmailDispatchLog, toName string) error {
	sendErr := d.transport.Send(ctx, mailer.Message{
		ToEmail:   log.RecipientEmail,
		ToName:    toName,
		Subject:   log.Subject,
		PlainText: log.Content,
	})

	if sendErr != nil {
		log.Status = models.EmailFailed
		log.LastError = sendErr.Error()
		observability.EmailDispatchTotal().WithLabelValues(models.EmailFailed).Inc()
	} else {
		sentAt := d.now()
		log.Status = models.EmailSent
		log.LastError = ""
		log.SentAt = &sentAt
		observability.EmailDispatchTotal().WithLabelValues(models.EmailSent).Inc()
	}

	if err := d.logs.Update(ctx, log); err != nil {
		d.logger.Error().Err(err).Uint("email_log_id", log.ID).Msg("failed to update email dispatch log")
		if sendErr == nil {
			return err
		}
	}

	return sendErr
}
