// Package trainer manages trainer registration, public profiles, invite codes and tariffs.
package trainer

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"

	"github.com/Proton-105/trainer-bot/internal/domain"
	apperrors "github.com/Proton-105/trainer-bot/internal/errors"
	"github.com/Proton-105/trainer-bot/internal/repository"
)

const (
	// InviteCodeLength is the number of characters in an invite code.
	InviteCodeLength = 8

	inviteAlphabet  = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	maxCodeAttempts = 5
)

// Service provides business operations over trainers.
type Service struct {
	store    *repository.Store
	validate *validator.Validate
	clock    clockwork.Clock
	log      *slog.Logger
}

// NewService constructs a new Service instance.
func NewService(store *repository.Store, clock clockwork.Clock, log *slog.Logger) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:    store,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		clock:    clock,
		log:      log,
	}
}

type registerInput struct {
	DisplayName string `validate:"required,max=128"`
}

type profileInput struct {
	City    string `validate:"max=64"`
	Pricing string `validate:"max=1000"`
}

type tariffInput struct {
	Title       string `validate:"required,max=100"`
	Description string `validate:"max=1000"`
}

// Register makes chatID a trainer. Registering twice returns the existing profile
// with created=false.
func (s *Service) Register(ctx context.Context, chatID int64, displayName string) (*domain.Trainer, bool, error) {
	existing, err := s.store.TrainerByChatID(ctx, chatID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, repository.AppError("trainer", err)
	}

	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = "Тренер"
	}
	if err := s.validate.Struct(registerInput{DisplayName: displayName}); err != nil {
		return nil, false, apperrors.FromValidation(err)
	}

	trainer := &domain.Trainer{
		ChatID:      chatID,
		DisplayName: displayName,
		CreatedAt:   s.clock.Now(),
	}

	err = s.store.InTx(ctx, func(tx *repository.Store) error {
		code, err := uniqueInviteCode(ctx, tx)
		if err != nil {
			return err
		}
		trainer.InviteCode = code
		return tx.CreateTrainer(ctx, trainer)
	})
	if err != nil {
		s.logError("register", chatID, err)
		return nil, false, repository.AppError("trainer", err)
	}

	s.log.InfoContext(ctx, "trainer registered",
		slog.Int64("trainer_id", trainer.ID),
		slog.Int64("chat_id", chatID),
	)
	return trainer, true, nil
}

// ByChatID returns the trainer registered from chatID or a NotFound error.
func (s *Service) ByChatID(ctx context.Context, chatID int64) (*domain.Trainer, error) {
	t, err := s.store.TrainerByChatID(ctx, chatID)
	if err != nil {
		return nil, repository.AppError("trainer", err)
	}
	return t, nil
}

// ByID returns the trainer with the given id or a NotFound error.
func (s *Service) ByID(ctx context.Context, trainerID int64) (*domain.Trainer, error) {
	t, err := s.store.TrainerByID(ctx, trainerID)
	if err != nil {
		return nil, repository.AppError("trainer", err)
	}
	return t, nil
}

// UpdateProfile stores the public city and pricing text.
func (s *Service) UpdateProfile(ctx context.Context, trainerID int64, city, pricing string) (*domain.Trainer, error) {
	in := profileInput{
		City:    strings.Join(strings.Fields(city), " "),
		Pricing: strings.TrimSpace(pricing),
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, apperrors.FromValidation(err)
	}

	if err := s.store.UpdateTrainerProfile(ctx, trainerID, in.City, in.Pricing); err != nil {
		return nil, repository.AppError("trainer", err)
	}
	return s.ByID(ctx, trainerID)
}

// RotateInviteCode replaces the trainer's invite code. The old code stops working at once.
func (s *Service) RotateInviteCode(ctx context.Context, trainerID int64) (string, error) {
	var code string
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		var err error
		code, err = uniqueInviteCode(ctx, tx)
		if err != nil {
			return err
		}
		return tx.UpdateInviteCode(ctx, trainerID, code)
	})
	if err != nil {
		return "", repository.AppError("trainer", err)
	}
	return code, nil
}

// DirectoryPage is one page of the public trainer directory.
type DirectoryPage struct {
	Trainers []domain.Trainer
	City     string
	Page     int
	Pages    int
	Total    int
}

// Directory lists trainers, optionally only those in city, pageSize at a time. Pages start at 1.
func (s *Service) Directory(ctx context.Context, city string, page, pageSize int) (*DirectoryPage, error) {
	if pageSize <= 0 {
		pageSize = 5
	}

	total, err := s.store.CountTrainers(ctx, city)
	if err != nil {
		return nil, repository.AppError("trainer", err)
	}

	pages := max(1, (total+pageSize-1)/pageSize)
	page = min(max(page, 1), pages)

	trainers, err := s.store.ListTrainers(ctx, city, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, repository.AppError("trainer", err)
	}

	return &DirectoryPage{
		Trainers: trainers,
		City:     strings.TrimSpace(city),
		Page:     page,
		Pages:    pages,
		Total:    total,
	}, nil
}

// AddTariff publishes a priced offer. price must be a positive amount with at most two decimals.
func (s *Service) AddTariff(ctx context.Context, trainerID int64, title, description, price string) (*domain.Tariff, error) {
	in := tariffInput{Title: strings.TrimSpace(title), Description: strings.TrimSpace(description)}
	if err := s.validate.Struct(in); err != nil {
		return nil, apperrors.FromValidation(err)
	}

	amount, err := ParsePrice(price)
	if err != nil {
		return nil, err
	}

	tariff := &domain.Tariff{
		TrainerID:   trainerID,
		Title:       in.Title,
		Description: in.Description,
		Price:       amount,
	}
	if err := s.store.CreateTariff(ctx, tariff); err != nil {
		return nil, repository.AppError("tariff", err)
	}
	return tariff, nil
}

// ListTariffs returns the trainer's tariffs.
func (s *Service) ListTariffs(ctx context.Context, trainerID int64) ([]domain.Tariff, error) {
	tariffs, err := s.store.ListTariffs(ctx, trainerID)
	if err != nil {
		return nil, repository.AppError("tariff", err)
	}
	return tariffs, nil
}

// DeleteTariff removes one of the trainer's own tariffs.
func (s *Service) DeleteTariff(ctx context.Context, trainerID, tariffID int64) error {
	return s.store.InTx(ctx, func(tx *repository.Store) error {
		tariff, err := tx.TariffByID(ctx, tariffID)
		if err != nil {
			return repository.AppError("tariff", err)
		}
		if tariff.TrainerID != trainerID {
			return apperrors.NewForbiddenError("tariff belongs to another trainer")
		}
		return repository.AppError("tariff", tx.DeleteTariff(ctx, tariffID))
	})
}

// ParsePrice reads a positive money amount. Both "1500.50" and "1500,50" are accepted.
func ParsePrice(text string) (decimal.Decimal, error) {
	amount, err := domain.ParseAmount(text)
	if err != nil {
		return decimal.Zero, err
	}
	if !amount.IsPositive() {
		return decimal.Zero, apperrors.NewInvalidInputError("Цена должна быть больше нуля")
	}
	return amount, nil
}

// NewInviteCode returns a random code over an alphabet without look-alike characters.
func NewInviteCode() string {
	id := uuid.New()
	// bytes 6 and 8 carry the version and variant bits and are skipped
	var random [InviteCodeLength]byte
	copy(random[:6], id[0:6])
	copy(random[6:], id[9:])

	var b strings.Builder
	b.Grow(InviteCodeLength)
	for _, v := range random {
		b.WriteByte(inviteAlphabet[int(v)%len(inviteAlphabet)])
	}
	return b.String()
}

// NormalizeInviteCode upper-cases and trims user input so codes match case-insensitively.
func NormalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func uniqueInviteCode(ctx context.Context, tx *repository.Store) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code := NewInviteCode()
		_, err := tx.TrainerByInviteCode(ctx, code)
		if errors.Is(err, repository.ErrNotFound) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", errors.New("could not generate a unique invite code")
}

func (s *Service) logError(operation string, chatID int64, err error) {
	if s == nil || s.log == nil || err == nil {
		return
	}

	s.log.Error("trainer service operation failed",
		slog.String("operation", operation),
		slog.Int64("chat_id", chatID),
		slog.Any("error", err),
	)
}
