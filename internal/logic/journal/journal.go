// Package journal remembers which invoice went to which address, so a rerun
// over the same export skips what already went out.
package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/yusufsyaifudin/tagihan/pkg/cache"
)

// Entry is one successful delivery. An invoice is told apart by its number
// and reference number together, since a later export may reuse a number.
type Entry struct {
	Number    string    `json:"number"`
	Reference string    `json:"reference"`
	Email     string    `json:"email"`
	MessageID string    `json:"message_id,omitempty"`
	SentAt    time.Time `json:"sent_at"`
}

type Config struct {
	Cache cache.Cache `validate:"required"`

	// Retention is how long an entry is kept, zero keeps it forever.
	Retention time.Duration `validate:"gte=0"`
}

type Journal struct {
	cache     cache.Cache
	retention time.Duration
}

func New(cfg Config) (*Journal, error) {
	err := validator.New().Struct(cfg)
	if err != nil {
		err = fmt.Errorf("validation error: %w", err)
		return nil, err
	}

	return &Journal{
		cache:     cfg.Cache,
		retention: cfg.Retention,
	}, nil
}

func key(number, reference, email string) string {
	return "sent:" + strings.TrimSpace(number) +
		":" + strings.TrimSpace(reference) +
		":" + strings.ToLower(strings.TrimSpace(email))
}

// SentAt looks up an earlier delivery of the invoice with this number and
// reference number to email.
func (j *Journal) SentAt(ctx context.Context, number, reference, email string) (entry Entry, found bool, err error) {
	err = j.cache.GetAs(ctx, key(number, reference, email), &entry)
	if errors.Is(err, cache.ErrKeyNotExist) {
		return Entry{}, false, nil
	}

	if err != nil {
		return Entry{}, false, fmt.Errorf("error read journal: %w", err)
	}

	return entry, true, nil
}

func (j *Journal) MarkSent(ctx context.Context, entry Entry) error {
	if entry.SentAt.IsZero() {
		entry.SentAt = time.Now()
	}

	err := j.cache.SetExp(ctx, key(entry.Number, entry.Reference, entry.Email), entry, j.retention)
	if err != nil {
		return fmt.Errorf("error write journal: %w", err)
	}

	return nil
}
