package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is the dataHora format shown by the frontend: DD/MM/YYYY - HH:MM:SS.
const TimestampLayout = "02/01/2006 - 15:04:05"

// TransferRecord is one movement of pizzas and soups from one store to another.
// Records are immutable once stored; the only mutation is deletion.
type TransferRecord struct {
	// ID is the creation time in unix milliseconds. It doubles as the file key.
	ID string `json:"id"`

	Origin      string `json:"lojaOrigem"`
	Destination string `json:"lojaDestino"`

	// Quantities maps a pizza item name to units moved.
	Quantities map[string]Quantity `json:"itensQuantidade"`

	// Weights maps a soup or broth item name to kilograms moved.
	Weights map[string]Weight `json:"itensPeso"`

	// CreatedAt is the human readable creation time (TimestampLayout).
	CreatedAt string `json:"dataHora"`
}

// Validate checks that both stores are named and that they differ.
// The returned error wraps ErrValidation and the specific reason.
func (r TransferRecord) Validate() error {
	origin := strings.TrimSpace(r.Origin)
	destination := strings.TrimSpace(r.Destination)

	switch {
	case origin == "":
		return fmt.Errorf("%w: %w", ErrValidation, ErrMissingOrigin)
	case destination == "":
		return fmt.Errorf("%w: %w", ErrValidation, ErrMissingDestination)
	case strings.EqualFold(origin, destination):
		return fmt.Errorf("%w: %w", ErrValidation, ErrSameStore)
	}
	return nil
}

// Normalize trims store names and replaces nil item maps with empty ones so
// stored files always carry both objects.
func (r TransferRecord) Normalize() TransferRecord {
	r.Origin = strings.TrimSpace(r.Origin)
	r.Destination = strings.TrimSpace(r.Destination)
	if r.Quantities == nil {
		r.Quantities = map[string]Quantity{}
	}
	if r.Weights == nil {
		r.Weights = map[string]Weight{}
	}
	return r
}

// Stamp assigns the id from now and fills CreatedAt when the client left it empty.
func (r TransferRecord) Stamp(now time.Time) TransferRecord {
	r.ID = FormatID(now)
	if strings.TrimSpace(r.CreatedAt) == "" {
		r.CreatedAt = now.Format(TimestampLayout)
	}
	return r
}

// FormatID renders t as a record id.
func FormatID(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

// ParseID reports whether id is a well-formed record id and returns its millisecond value.
func ParseID(id string) (int64, bool) {
	if id == "" {
		return 0, false
	}
	ms, err := strconv.ParseInt(id, 10, 64)
	if err != nil || ms < 0 {
		return 0, false
	}
	return ms, true
}
