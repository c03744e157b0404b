package archive

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/page-archiver/internal/autoarchive"
)

// Config controls Archiver behavior.
type Config struct {
	Topic string
}

// Archiver turns archive decisions into ArchiveRequests and publishes them.
type Archiver struct {
	publisher autoarchive.Publisher
	idGen     autoarchive.IDGenerator
	clock     autoarchive.Clock
	cfg       Config
	logger    *zap.Logger
}

// New constructs an Archiver.
func New(
	publisher autoarchive.Publisher,
	idGen autoarchive.IDGenerator,
	clock autoarchive.Clock,
	cfg Config,
	logger *zap.Logger,
) *Archiver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Archiver{
		publisher: publisher,
		idGen:     idGen,
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
	}
}

// Archive submits target to the archive service at base (DefaultSubmitURL
// when empty). A verdict, when present, is attached for attribution.
func (a *Archiver) Archive(
	ctx context.Context,
	base string,
	target string,
	trigger autoarchive.Trigger,
	verdict *autoarchive.Verdict,
) (autoarchive.ArchiveRequest, error) {
	submitURL, err := SubmitURL(base, target)
	if err != nil {
		return autoarchive.ArchiveRequest{}, err
	}
	id, err := a.idGen.NewID()
	if err != nil {
		return autoarchive.ArchiveRequest{}, fmt.Errorf("generate archive request id: %w", err)
	}
	req := autoarchive.ArchiveRequest{
		ID:          id,
		URL:         CleanURL(target),
		SubmitURL:   submitURL,
		Trigger:     trigger,
		RequestedAt: a.clock.Now(),
	}
	if verdict != nil {
		req.Indicators = append([]string(nil), verdict.FoundIndicators...)
		req.Reason = verdict.Reason
	}

	if a.publisher != nil {
		msgID, err := a.publisher.Publish(ctx, a.cfg.Topic, req)
		if err != nil {
			return autoarchive.ArchiveRequest{}, fmt.Errorf("publish archive request: %w", err)
		}
		a.logger.Info("archive request published",
			zap.String("request_id", req.ID),
			zap.String("message_id", msgID),
			zap.String("url", req.URL),
			zap.String("trigger", string(trigger)),
			zap.Strings("indicators", req.Indicators),
		)
	}
	return req, nil
}
