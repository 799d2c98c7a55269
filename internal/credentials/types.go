package credentials

import (
	"time"

	"github.com/ziadkadry99/pdfchat/internal/config"
)

// Credential is an API key a user stored for an LLM provider. Secret is
// only populated by Store.Active.
type Credential struct {
	ID        string              `json:"id"`
	UserID    string              `json:"-"`
	Label     string              `json:"label"`
	Provider  config.ProviderType `json:"provider"`
	Masked    string              `json:"masked_key"`
	IsActive  bool                `json:"is_active"`
	CreatedAt time.Time           `json:"created_at"`
	Secret    string              `json:"-"`
}
