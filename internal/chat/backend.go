package chat

import (
	"context"

	"github.com/mbeoliero/chatdesk/internal/entity"
)

// Backend is the REST collaborator surface the sync layer depends on.
// *api.Client satisfies it; tests use a fake.
type Backend interface {
	LoadSidebar(ctx context.Context) ([]entity.ConversationSummary, error)
	LoadHistory(ctx context.Context, customerId string) ([]entity.Message, error)
	SendMessage(ctx context.Context, customerId, text string) (*entity.Message, error)
	MarkConversationRead(ctx context.Context, customerId string) error
}
