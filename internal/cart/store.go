package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/hotboat/whatsapp-bot/internal/catalog"
	domerrors "github.com/hotboat/whatsapp-bot/internal/errors"
	"github.com/hotboat/whatsapp-bot/internal/logger"
	"github.com/hotboat/whatsapp-bot/internal/metrics"
)

// ModuleName identifies the cart store in logs.
const ModuleName = "cart"

// Repository persists encoded carts keyed by contact.
// GetCart returns errors.ErrNotFound when the contact has no cart.
type Repository interface {
	GetCart(ctx context.Context, contact string) ([]byte, error)
	SaveCart(ctx context.Context, contact, name string, data []byte) error
	DeleteCart(ctx context.Context, contact string) error
}

// Store is the only writer of carts. Callers serialise mutations for one
// contact (the session lock covers the whole turn).
type Store struct {
	repo    Repository
	policy  catalog.FlexPolicy
	logger  *logger.Logger
	metrics *metrics.Metrics
}

// NewStore creates a cart store. metrics may be nil.
func NewStore(repo Repository, log *logger.Logger, m *metrics.Metrics) *Store {
	return &Store{
		repo:    repo,
		policy:  catalog.DefaultFlex,
		logger:  log.WithModule(ModuleName),
		metrics: m,
	}
}

// Policy returns the surcharge policy used for totals.
func (s *Store) Policy() catalog.FlexPolicy {
	return s.policy
}

// Load reads the cart. A missing cart is an empty cart; storage failures
// are returned wrapped in ErrStorageUnavailable.
func (s *Store) Load(ctx context.Context, contact string) (Cart, error) {
	data, err := s.repo.GetCart(ctx, contact)
	if errors.Is(err, domerrors.ErrNotFound) {
		s.record("get", "empty")
		return Cart{}, nil
	}
	if err != nil {
		s.record("get", "error")
		s.logFailure(ctx, "get", err)
		return Cart{}, fmt.Errorf("%w: get cart: %w", domerrors.ErrStorageUnavailable, err)
	}
	c, err := Unmarshal(data)
	if err != nil {
		s.record("get", "error")
		s.logger.WithError(err).ErrorContext(ctx, "Stored cart is not valid JSON, treating as empty")
		return Cart{}, nil
	}
	s.record("get", "success")
	return c, nil
}

// Get reads the cart, degrading to an empty cart on any failure.
func (s *Store) Get(ctx context.Context, contact string) Cart {
	c, _ := s.Load(ctx, contact)
	return c
}

// Update applies fn to the current cart and saves the result. The cart is
// not saved when fn returns an error; that error is returned unchanged.
func (s *Store) Update(ctx context.Context, contact, name string, fn func(*Cart) error) (Cart, error) {
	c, err := s.Load(ctx, contact)
	if err != nil {
		return Cart{}, err
	}
	if err := fn(&c); err != nil {
		return c, err
	}
	if err := s.save(ctx, contact, name, c); err != nil {
		return c, err
	}
	return c, nil
}

// Save replaces the stored cart.
func (s *Store) Save(ctx context.Context, contact, name string, c Cart) bool {
	return s.save(ctx, contact, name, c) == nil
}

// AddItem appends item, replacing any reservation when item is one.
func (s *Store) AddItem(ctx context.Context, contact, name string, item Item) bool {
	_, err := s.Update(ctx, contact, name, func(c *Cart) error {
		c.Add(item)
		return nil
	})
	s.record("add", status(err))
	return err == nil
}

// RemoveItem deletes the 0-indexed line. Out of range is a false no-op.
func (s *Store) RemoveItem(ctx context.Context, contact, name string, index int) bool {
	_, err := s.Update(ctx, contact, name, func(c *Cart) error {
		if !c.Remove(index) {
			return domerrors.ErrInvalidIndex
		}
		return nil
	})
	s.record("remove", status(err))
	return err == nil
}

// SetFlex turns the flex surcharge on or off.
func (s *Store) SetFlex(ctx context.Context, contact, name string, on bool) bool {
	_, err := s.Update(ctx, contact, name, func(c *Cart) error {
		c.Flex = on
		return nil
	})
	s.record("flex", status(err))
	return err == nil
}

// Clear removes the stored cart.
func (s *Store) Clear(ctx context.Context, contact string) bool {
	if err := s.repo.DeleteCart(ctx, contact); err != nil {
		s.record("clear", "error")
		s.logFailure(ctx, "clear", err)
		return false
	}
	s.record("clear", "success")
	return true
}

func (s *Store) save(ctx context.Context, contact, name string, c Cart) error {
	data, err := Marshal(c)
	if err != nil {
		s.record("save", "error")
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.repo.SaveCart(ctx, contact, name, data); err != nil {
		s.record("save", "error")
		s.logFailure(ctx, "save", err)
		return domerrors.NewWrapper(ModuleName, "save_cart").
			Wrap(fmt.Errorf("%w: %w", domerrors.ErrStorageUnavailable, err), SaveFailedMessage)
	}
	s.record("save", "success")
	return nil
}

func (s *Store) logFailure(ctx context.Context, op string, err error) {
	log := s.logger.WithError(err).WithField("op", op)
	if domerrors.IsTableMissing(err) {
		log.WarnContext(ctx, "Cart table does not exist yet, run migrations")
		return
	}
	log.ErrorContext(ctx, "Cart storage failed")
}

func (s *Store) record(op, st string) {
	if s.metrics != nil {
		s.metrics.RecordCartOperation(op, st)
	}
}

func status(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domerrors.ErrInvalidIndex):
		return "invalid_index"
	default:
		return "error"
	}
}
