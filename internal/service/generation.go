package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/msomdec/picprompt/internal/domain"
)

const (
	maxPromptLength     = 1000
	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 50
)

// Generation outcomes reported to an OutcomeRecorder.
const (
	OutcomeSuccess      = "success"
	OutcomeNoCredit     = "insufficient_credit"
	OutcomeInvalid      = "invalid_input"
	OutcomeProviderAuth = "provider_auth"
	OutcomeProvider     = "provider_error"
	OutcomePersistence  = "persistence_error"
	OutcomeError        = "error"
)

// OutcomeRecorder observes finished generation attempts.
type OutcomeRecorder interface {
	ObserveGeneration(outcome string, elapsed time.Duration)
}

type noopRecorder struct{}

func (noopRecorder) ObserveGeneration(string, time.Duration) {}

// GenerateResult is returned by a successful Generate call.
type GenerateResult struct {
	Generation    *domain.Generation
	ResultImage   string // data URI
	CreditBalance int
}

// GenerationService runs the credit-gated generation workflow and serves
// the generation history.
type GenerationService struct {
	users       domain.UserRepository
	generations domain.GenerationRepository
	provider    domain.ImageProvider
	files       domain.FileStore
	recorder    OutcomeRecorder
	now         func() time.Time
}

// GenerationOption configures a GenerationService.
type GenerationOption func(*GenerationService)

// WithImageStore stores image bytes in files and keeps only an API path
// in the generation record.
func WithImageStore(files domain.FileStore) GenerationOption {
	return func(s *GenerationService) { s.files = files }
}

// WithRecorder reports every Generate outcome to r.
func WithRecorder(r OutcomeRecorder) GenerationOption {
	return func(s *GenerationService) {
		if r != nil {
			s.recorder = r
		}
	}
}

// NewGenerationService creates a new GenerationService.
func NewGenerationService(users domain.UserRepository, generations domain.GenerationRepository, provider domain.ImageProvider, opts ...GenerationOption) *GenerationService {
	s := &GenerationService{
		users:       users,
		generations: generations,
		provider:    provider,
		recorder:    noopRecorder{},
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate checks the balance, calls the provider, debits one credit and
// records the result. A debit is only applied after the provider succeeded.
// If recording fails after the debit, the error wraps ErrPersistence and the
// credit is not refunded.
func (s *GenerationService) Generate(ctx context.Context, userID int64, prompt, style string) (*GenerateResult, error) {
	start := s.now()
	res, err := s.generate(ctx, userID, prompt, style)
	s.recorder.ObserveGeneration(outcomeOf(err), s.now().Sub(start))
	return res, err
}

func (s *GenerationService) generate(ctx context.Context, userID int64, prompt, style string) (*GenerateResult, error) {
	prompt = strings.TrimSpace(prompt)
	style = strings.TrimSpace(style)
	if userID == 0 || prompt == "" {
		return nil, fmt.Errorf("%w: missing details", domain.ErrInvalidInput)
	}
	if utf8.RuneCountInString(prompt) > maxPromptLength {
		return nil, fmt.Errorf("%w: prompt must be at most %d characters", domain.ErrInvalidInput, maxPromptLength)
	}
	if style == "" {
		style = domain.DefaultStyle
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: missing details", domain.ErrInvalidInput)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user.CreditBalance <= 0 {
		return nil, &domain.CreditError{Balance: user.CreditBalance}
	}

	data, err := s.provider.Generate(ctx, prompt)
	if err != nil {
		if errors.Is(err, domain.ErrProviderAuth) || errors.Is(err, domain.ErrProvider) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrProvider, err)
	}
	resultImage := EncodeImageRef(data)

	// Once the provider has delivered, the charge and the record complete
	// even if the client goes away.
	ctx = context.WithoutCancel(ctx)

	balance, err := s.users.DebitCredit(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientCredit) {
			// Another request spent the last credit while the provider ran.
			return nil, &domain.CreditError{Balance: 0}
		}
		return nil, fmt.Errorf("debit credit: %w", err)
	}

	gen := &domain.Generation{
		ID:       uuid.NewString(),
		UserID:   userID,
		Prompt:   prompt,
		Style:    style,
		ImageRef: resultImage,
	}

	if s.files != nil {
		key := generationStorageKey(userID, gen.ID)
		if err := s.files.Save(ctx, key, data); err != nil {
			return nil, fmt.Errorf("%w: save image: %w", domain.ErrPersistence, err)
		}
		gen.StorageKey = key
		gen.ImageRef = generationFileURL(gen.ID)
	}

	if err := s.generations.Create(ctx, gen); err != nil {
		if gen.StorageKey != "" {
			if derr := s.files.Delete(ctx, gen.StorageKey); derr != nil {
				slog.Warn("cleanup stored image", "key", gen.StorageKey, "error", derr)
			}
		}
		return nil, fmt.Errorf("%w: create generation: %w", domain.ErrPersistence, err)
	}

	return &GenerateResult{
		Generation:    gen,
		ResultImage:   resultImage,
		CreditBalance: balance,
	}, nil
}

// ListRecent returns the user's newest generations. A non-positive limit
// means DefaultHistoryLimit; larger limits are capped at MaxHistoryLimit.
func (s *GenerationService) ListRecent(ctx context.Context, userID int64, limit int) ([]domain.Generation, error) {
	if userID == 0 {
		return nil, fmt.Errorf("%w: missing user", domain.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	limit = min(limit, MaxHistoryLimit)

	gens, err := s.generations.ListRecentByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	return gens, nil
}

// GetOne returns a single generation owned by userID. Records of other
// users are reported as ErrNotFound.
func (s *GenerationService) GetOne(ctx context.Context, userID int64, id string) (*domain.Generation, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid generation id", domain.ErrInvalidInput)
	}
	gen, err := s.generations.GetByIDForUser(ctx, parsed.String(), userID)
	if err != nil {
		return nil, fmt.Errorf("get generation: %w", err)
	}
	return gen, nil
}

// GetImageFile returns stored image bytes and their content type.
// Generations kept inline as data URIs have no file.
func (s *GenerationService) GetImageFile(ctx context.Context, userID int64, id string) ([]byte, string, error) {
	gen, err := s.GetOne(ctx, userID, id)
	if err != nil {
		return nil, "", err
	}
	if gen.StorageKey == "" || s.files == nil {
		return nil, "", domain.ErrNotFound
	}

	data, err := s.files.Get(ctx, gen.StorageKey)
	if err != nil {
		return nil, "", fmt.Errorf("get file: %w", err)
	}
	return data, imageContentType(data), nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, domain.ErrInsufficientCredit):
		return OutcomeNoCredit
	case errors.Is(err, domain.ErrInvalidInput):
		return OutcomeInvalid
	case errors.Is(err, domain.ErrProviderAuth):
		return OutcomeProviderAuth
	case errors.Is(err, domain.ErrProvider):
		return OutcomeProvider
	case errors.Is(err, domain.ErrPersistence):
		return OutcomePersistence
	default:
		return OutcomeError
	}
}
