// Package relationship implements the trainer/client binding lifecycle: requests,
// invite codes, approval, rejection, removal and leaving.
package relationship

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"

	"github.com/Proton-105/trainer-bot/internal/domain"
	apperrors "github.com/Proton-105/trainer-bot/internal/errors"
	"github.com/Proton-105/trainer-bot/internal/i18n"
	"github.com/Proton-105/trainer-bot/internal/notify"
	"github.com/Proton-105/trainer-bot/internal/repository"
	"github.com/Proton-105/trainer-bot/internal/trainer"
)

const (
	cardHistory      = 5
	upcomingForMe    = 5
	defaultPageSize  = 10
	notifyKindSystem = "relationship"
)

// RequestMarkup builds the reply markup attached to a binding request sent to a trainer.
type RequestMarkup func(clientID int64) any

// Option configures a Service.
type Option func(*Service)

// WithRequestMarkup attaches approve/reject controls to binding requests.
func WithRequestMarkup(fn RequestMarkup) Option {
	return func(s *Service) { s.requestMarkup = fn }
}

// Service provides the binding workflow over the store.
type Service struct {
	store         *repository.Store
	notifier      notify.Notifier
	texts         i18n.Translator
	validate      *validator.Validate
	clock         clockwork.Clock
	log           *slog.Logger
	requestMarkup RequestMarkup
}

// NewService constructs a new Service instance.
func NewService(store *repository.Store, notifier notify.Notifier, texts i18n.Translator, clock clockwork.Clock, log *slog.Logger, opts ...Option) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = slog.Default()
	}
	if texts == nil {
		texts = i18n.MustLoad("").Default()
	}

	s := &Service{
		store:    store,
		notifier: notifier,
		texts:    texts,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		clock:    clock,
		log:      log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type clientInput struct {
	Name  string `validate:"required,max=128"`
	Phone string `validate:"max=32"`
	Notes string `validate:"max=1000"`
}

// RegisterClient creates an unaffiliated client bound to chatID. Registering twice returns
// the existing record with created=false.
func (s *Service) RegisterClient(ctx context.Context, chatID int64, name string) (*domain.Client, bool, error) {
	existing, err := s.store.ClientByChatID(ctx, chatID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, repository.AppError("client", err)
	}

	in := clientInput{Name: strings.TrimSpace(name)}
	if in.Name == "" {
		in.Name = "Клиент"
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, false, apperrors.FromValidation(err)
	}

	client := &domain.Client{
		Name:      in.Name,
		ChatID:    &chatID,
		Status:    domain.StatusPending,
		CreatedAt: s.clock.Now(),
	}
	if err := s.store.CreateClient(ctx, client); err != nil {
		s.logError("register_client", chatID, err)
		return nil, false, repository.AppError("client", err)
	}

	s.log.InfoContext(ctx, "client registered",
		slog.Int64("client_id", client.ID),
		slog.Int64("chat_id", chatID),
	)
	return client, true, nil
}

// ClientByChatID returns the client registered from chatID or a NotFound error.
func (s *Service) ClientByChatID(ctx context.Context, chatID int64) (*domain.Client, error) {
	client, err := s.store.ClientByChatID(ctx, chatID)
	if err != nil {
		return nil, repository.AppError("client", err)
	}
	return client, nil
}

// AddClient creates a client on the trainer's roster. Trainer-added clients are approved
// at once and have no chat.
func (s *Service) AddClient(ctx context.Context, trainerID int64, name, phone, notes string) (*domain.Client, error) {
	in := clientInput{
		Name:  strings.TrimSpace(name),
		Phone: strings.TrimSpace(phone),
		Notes: strings.TrimSpace(notes),
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, apperrors.FromValidation(err)
	}

	client := &domain.Client{
		Name:      in.Name,
		Phone:     in.Phone,
		Notes:     in.Notes,
		TrainerID: &trainerID,
		Status:    domain.StatusApproved,
		CreatedAt: s.clock.Now(),
	}
	if err := s.store.CreateClient(ctx, client); err != nil {
		s.logError("add_client", trainerID, err)
		return nil, repository.AppError("client", err)
	}
	return client, nil
}

// RequestBinding asks trainerID to take the client registered from clientChatID.
// The client stays pending until the trainer approves or rejects.
func (s *Service) RequestBinding(ctx context.Context, clientChatID, trainerID int64) (*domain.Trainer, error) {
	var (
		client   *domain.Client
		target   *domain.Trainer
		repeated bool
	)

	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		var err error
		if client, err = tx.ClientByChatID(ctx, clientChatID); err != nil {
			return repository.AppError("client", err)
		}
		if target, err = tx.TrainerByID(ctx, trainerID); err != nil {
			return repository.AppError("trainer", err)
		}
		if client.Approved() {
			return apperrors.NewInvalidInputError("У вас уже есть тренер. Сначала выполните /leave")
		}
		if client.OwnedBy(trainerID) && client.Status == domain.StatusPending {
			repeated = true
			return nil
		}
		return tx.UpdateClientBinding(ctx, client.ID, &trainerID, domain.StatusPending)
	})
	if err != nil {
		return nil, repository.AppError("client", err)
	}

	if !repeated {
		var opts []any
		if s.requestMarkup != nil {
			opts = append(opts, s.requestMarkup(client.ID))
		}
		notify.Deliver(ctx, s.notifier, s.log, notifyKindSystem, target.ChatID,
			s.texts.F("notify.binding_request", "name", client.DisplayName(), "id", client.ID), opts...)
	}
	return target, nil
}

// RedeemInviteCode binds the client directly as approved to the trainer owning code.
// Unknown codes fail with NotFound and leave the client unchanged.
func (s *Service) RedeemInviteCode(ctx context.Context, clientChatID int64, code string) (*domain.Trainer, error) {
	code = trainer.NormalizeInviteCode(code)
	if len(code) != trainer.InviteCodeLength {
		return nil, apperrors.NewNotFoundError("invite code")
	}

	var (
		client   *domain.Client
		target   *domain.Trainer
		repeated bool
	)

	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		var err error
		if target, err = tx.TrainerByInviteCode(ctx, code); err != nil {
			return repository.AppError("invite code", err)
		}
		if client, err = tx.ClientByChatID(ctx, clientChatID); err != nil {
			return repository.AppError("client", err)
		}
		if client.Approved() {
			if client.OwnedBy(target.ID) {
				repeated = true
				return nil
			}
			return apperrors.NewInvalidInputError("У вас уже есть тренер. Сначала выполните /leave")
		}
		return tx.UpdateClientBinding(ctx, client.ID, &target.ID, domain.StatusApproved)
	})
	if err != nil {
		return nil, repository.AppError("client", err)
	}

	if !repeated {
		notify.Deliver(ctx, s.notifier, s.log, notifyKindSystem, target.ChatID,
			s.texts.F("notify.invite_redeemed", "name", client.DisplayName(), "id", client.ID))
	}
	return target, nil
}

// Approve accepts a pending client into the trainer's roster.
func (s *Service) Approve(ctx context.Context, trainerID, clientID int64) (*domain.Client, error) {
	var (
		client   *domain.Client
		owner    *domain.Trainer
		repeated bool
	)

	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		var err error
		if client, err = tx.ClientByID(ctx, clientID); err != nil {
			return repository.AppError("client", err)
		}
		if err := client.CheckOwner(trainerID); err != nil {
			return err
		}
		if client.Status == domain.StatusApproved {
			repeated = true
			return nil
		}
		if owner, err = tx.TrainerByID(ctx, trainerID); err != nil {
			return repository.AppError("trainer", err)
		}
		client.Status = domain.StatusApproved
		return tx.UpdateClientBinding(ctx, clientID, &trainerID, domain.StatusApproved)
	})
	if err != nil {
		return nil, repository.AppError("client", err)
	}

	if !repeated && client.HasChat() {
		notify.Deliver(ctx, s.notifier, s.log, notifyKindSystem, *client.ChatID,
			s.texts.F("notify.approved", "trainer", owner.DisplayName))
	}
	return client, nil
}

// Reject declines a pending request and clears the client's trainer.
func (s *Service) Reject(ctx context.Context, trainerID, clientID int64) (*domain.Client, error) {
	var (
		client *domain.Client
		owner  *domain.Trainer
	)

	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		var err error
		if client, err = tx.ClientByID(ctx, clientID); err != nil {
			return repository.AppError("client", err)
		}
		if err := client.CheckOwner(trainerID); err != nil {
			return err
		}
		if client.Status != domain.StatusPending {
			return apperrors.NewInvalidInputError("Заявка уже обработана. Чтобы убрать клиента, используйте /delete_client")
		}
		if owner, err = tx.TrainerByID(ctx, trainerID); err != nil {
			return repository.AppError("trainer", err)
		}
		client.Status = domain.StatusRejected
		client.TrainerID = nil
		return tx.UpdateClientBinding(ctx, clientID, nil, domain.StatusRejected)
	})
	if err != nil {
		return nil, repository.AppError("client", err)
	}

	if client.HasChat() {
		notify.Deliver(ctx, s.notifier, s.log, notifyKindSystem, *client.ChatID,
			s.texts.F("notify.rejected", "trainer", owner.DisplayName))
	}
	return client, nil
}

// DeleteClient removes the client with all sessions and payments.
func (s *Service) DeleteClient(ctx context.Context, trainerID, clientID int64) (*domain.Client, error) {
	var (
		client *domain.Client
		owner  *domain.Trainer
	)

	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		var err error
		if client, err = tx.ClientByID(ctx, clientID); err != nil {
			return repository.AppError("client", err)
		}
		if err := client.CheckOwner(trainerID); err != nil {
			return err
		}
		if owner, err = tx.TrainerByID(ctx, trainerID); err != nil {
			return repository.AppError("trainer", err)
		}
		return tx.DeleteClient(ctx, clientID)
	})
	if err != nil {
		return nil, repository.AppError("client", err)
	}

	s.log.InfoContext(ctx, "client deleted",
		slog.Int64("client_id", clientID),
		slog.Int64("trainer_id", trainerID),
	)

	if client.HasChat() {
		notify.Deliver(ctx, s.notifier, s.log, notifyKindSystem, *client.ChatID,
			s.texts.F("notify.removed", "trainer", owner.DisplayName))
	}
	return client, nil
}

// LeaveTrainer ends an approved binding from the client's side. Sessions, payments and
// balance stay as they are.
func (s *Service) LeaveTrainer(ctx context.Context, clientChatID int64) (*domain.Trainer, error) {
	var (
		client *domain.Client
		former *domain.Trainer
	)

	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		var err error
		if client, err = tx.ClientByChatID(ctx, clientChatID); err != nil {
			return repository.AppError("client", err)
		}
		if !client.Approved() {
			return apperrors.NewInvalidInputError("У вас нет подтверждённого тренера")
		}
		if former, err = tx.TrainerByID(ctx, *client.TrainerID); err != nil {
			return repository.AppError("trainer", err)
		}
		return tx.UpdateClientBinding(ctx, client.ID, nil, domain.StatusPending)
	})
	if err != nil {
		return nil, repository.AppError("client", err)
	}

	notify.Deliver(ctx, s.notifier, s.log, notifyKindSystem, former.ChatID,
		s.texts.F("notify.client_left", "name", client.DisplayName(), "id", client.ID))
	return former, nil
}

// ClientPage is one page of a trainer's approved roster.
type ClientPage struct {
	Clients []domain.Client
	Page    int
	Pages   int
	Total   int
}

// ListClients pages through the trainer's approved clients. Pages start at 1.
func (s *Service) ListClients(ctx context.Context, trainerID int64, page, pageSize int) (*ClientPage, error) {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	total, err := s.store.CountClientsByTrainer(ctx, trainerID, domain.StatusApproved)
	if err != nil {
		return nil, repository.AppError("client", err)
	}

	pages := max(1, (total+pageSize-1)/pageSize)
	page = min(max(page, 1), pages)

	clients, err := s.store.ListClientsByTrainer(ctx, trainerID, domain.StatusApproved, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, repository.AppError("client", err)
	}
	return &ClientPage{Clients: clients, Page: page, Pages: pages, Total: total}, nil
}

// ListPending returns requests awaiting the trainer's decision.
func (s *Service) ListPending(ctx context.Context, trainerID int64) ([]domain.Client, error) {
	clients, err := s.store.ListClientsByTrainer(ctx, trainerID, domain.StatusPending, 0, 0)
	if err != nil {
		return nil, repository.AppError("client", err)
	}
	return clients, nil
}

// Card is a client with recent history. Pending cards carry contact data only.
type Card struct {
	Client   *domain.Client
	Pending  bool
	Sessions []domain.Session
	Payments []domain.Payment
}

// ClientCard returns the client with the last sessions and payments. Only the owner may read it,
// and the history and balance only once the client is approved: a pending request must not
// expose what the client did with a previous trainer.
func (s *Service) ClientCard(ctx context.Context, trainerID, clientID int64) (*Card, error) {
	client, err := s.store.ClientByID(ctx, clientID)
	if err != nil {
		return nil, repository.AppError("client", err)
	}
	if err := client.CheckOwner(trainerID); err != nil {
		return nil, err
	}
	if !client.Approved() {
		contact := *client
		contact.Balance = decimal.Zero
		return &Card{Client: &contact, Pending: true}, nil
	}

	sessions, err := s.store.RecentSessions(ctx, clientID, cardHistory)
	if err != nil {
		return nil, repository.AppError("session", err)
	}
	payments, err := s.store.RecentPayments(ctx, clientID, cardHistory)
	if err != nil {
		return nil, repository.AppError("payment", err)
	}
	return &Card{Client: client, Sessions: sessions, Payments: payments}, nil
}

// Profile is what a client sees about themselves.
type Profile struct {
	Client   *domain.Client
	Trainer  *domain.Trainer
	Upcoming []domain.Session
}

// MyProfile returns the client's own record, trainer and next sessions.
func (s *Service) MyProfile(ctx context.Context, clientChatID int64) (*Profile, error) {
	client, err := s.store.ClientByChatID(ctx, clientChatID)
	if err != nil {
		return nil, repository.AppError("client", err)
	}

	profile := &Profile{Client: client}
	if client.TrainerID != nil {
		if profile.Trainer, err = s.store.TrainerByID(ctx, *client.TrainerID); err != nil {
			return nil, repository.AppError("trainer", err)
		}
	}

	upcoming, err := s.store.UpcomingClientSessions(ctx, client.ID, s.clock.Now().Add(-time.Minute), upcomingForMe)
	if err != nil {
		return nil, repository.AppError("session", err)
	}
	profile.Upcoming = upcoming
	return profile, nil
}

func (s *Service) logError(operation string, id int64, err error) {
	if s == nil || s.log == nil || err == nil {
		return
	}

	s.log.Error("relationship operation failed",
		slog.String("operation", operation),
		slog.Int64("id", id),
		slog.Any("error", err),
	)
}
