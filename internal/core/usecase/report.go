package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/kirillkom/findit/internal/core/domain"
	"github.com/kirillkom/findit/internal/core/ports"
)

const defaultItemTTL = 30 * 24 * time.Hour

type ReportItemUseCase struct {
	repo     ports.ItemRepository
	queue    ports.MessageQueue
	validate *validator.Validate
	ttl      time.Duration
	now      func() time.Time
}

func NewReportItemUseCase(repo ports.ItemRepository, queue ports.MessageQueue, ttl time.Duration) *ReportItemUseCase {
	if ttl <= 0 {
		ttl = defaultItemTTL
	}
	return &ReportItemUseCase{
		repo:     repo,
		queue:    queue,
		validate: newDraftValidator(),
		ttl:      ttl,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func newDraftValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("item_category", func(fl validator.FieldLevel) bool {
		return domain.Category(fl.Field().String()).Valid()
	})
	return v
}

func (uc *ReportItemUseCase) Report(ctx context.Context, draft domain.ItemDraft) (*domain.Item, error) {
	draft = trimDraft(draft)
	if err := uc.validate.Struct(draft); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "validate item", describeValidation(err))
	}

	now := uc.now()
	expiresAt := now.Add(uc.ttl)
	item := &domain.Item{
		ID:            uuid.NewString(),
		ReporterID:    draft.ReporterID,
		Type:          draft.Type,
		Category:      draft.Category,
		Title:         draft.Title,
		Description:   draft.Description,
		Location:      draft.Location,
		DateLostFound: draft.DateLostFound,
		Tags:          domain.NormalizeTags(draft.Tags),
		Status:        domain.StatusActive,
		ExpiresAt:     &expiresAt,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if draft.ImageAnalysis != nil {
		image := *draft.ImageAnalysis
		item.AIMetadata = &domain.AIMetadata{ImageAnalysis: &image}
	}

	if err := uc.repo.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}

	if err := uc.queue.PublishItemReported(ctx, item.ID); err != nil {
		return nil, fmt.Errorf("publish item reported event: %w", err)
	}

	return item, nil
}

func trimDraft(d domain.ItemDraft) domain.ItemDraft {
	d.ReporterID = strings.TrimSpace(d.ReporterID)
	d.Title = strings.TrimSpace(d.Title)
	d.Description = strings.TrimSpace(d.Description)
	d.Location = strings.TrimSpace(d.Location)
	return d
}

func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}
