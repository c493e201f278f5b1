package postgres

import (
	"encoding/json"

	"github.com/taskhive/backend/domain"
)

func marshalStatusUpdates(updates []domain.StatusUpdate) []byte {
	if len(updates) == 0 {
		return []byte("[]")
	}
	b, err := json.Marshal(updates)
	if err != nil {
		return []byte("[]")
	}
	return b
}

func unmarshalStatusUpdates(data []byte) []domain.StatusUpdate {
	if len(data) == 0 {
		return nil
	}
	var updates []domain.StatusUpdate
	if err := json.Unmarshal(data, &updates); err != nil {
		return nil
	}
	if len(updates) == 0 {
		return nil
	}
	return updates
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
