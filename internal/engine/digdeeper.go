package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	types "github.com/pressroomhq/pressroom-backend/internal/domain"
	"github.com/pressroomhq/pressroom-backend/internal/pkg/dbctx"
	pkgerrors "github.com/pressroomhq/pressroom-backend/internal/pkg/errors"
)

const deepDiveMarker = "--- DEEP DIVE ---"

const deepDiveSystemPrompt = `You are a research assistant for a newsroom. Given the full text of
an article, pull out the material a writer would actually cite: key facts,
concrete numbers, direct quotes with attribution, and dates. Output a compact
bulleted list, most newsworthy first. No commentary, no introduction.`

func (s *service) DigDeeper(ctx context.Context, orgID, signalID uuid.UUID) (*types.Signal, error) {
	if !s.llm.Configured() {
		return nil, fmt.Errorf("dig deeper: %w: text-completion credentials missing", pkgerrors.ErrNotConfigured)
	}

	sig, err := s.signalRepo.GetByID(dbctx.New(ctx), orgID, signalID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(sig.URL) == "" {
		return nil, fmt.Errorf("dig deeper: %w: signal has no source url", pkgerrors.ErrInvalidArgument)
	}

	article, err := s.extractor.FromURL(ctx, sig.URL)
	if err != nil {
		return nil, fmt.Errorf("dig deeper: %w", err)
	}

	prompt := fmt.Sprintf("Article: %s\n\n%s", article.Title, article.Markdown)
	summary, err := s.llm.GenerateText(ctx, deepDiveSystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("dig deeper: summarize: %w", err)
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return nil, fmt.Errorf("dig deeper: summarizer returned nothing for %s", sig.URL)
	}

	// Re-digging replaces the previous section instead of stacking them.
	body := sig.Body
	if idx := strings.Index(body, deepDiveMarker); idx >= 0 {
		body = strings.TrimSpace(body[:idx])
	}
	body = strings.TrimSpace(body) + "\n\n" + deepDiveMarker + "\n" + summary

	if err := s.signalRepo.UpdateBody(dbctx.New(ctx), orgID, signalID, body); err != nil {
		return nil, err
	}
	sig.Body = body
	s.log.Info("dig deeper enriched signal", "signal_id", signalID, "url", sig.URL, "chars", len(summary))
	return sig, nil
}
