package repositories

import "context"

// SlotAccessToken names the only credential slot encore uses.
const SlotAccessToken = "spotify.access_token"

// CredentialStore is a durable, single-value secret slot.
type CredentialStore interface {
	// Load returns the stored value, or "" when the slot is empty.
	Load(ctx context.Context) (string, error)
	// Save replaces the stored value.
	Save(ctx context.Context, value string) error
	// Delete clears the slot. Deleting an empty slot is not an error.
	Delete(ctx context.Context) error
}
