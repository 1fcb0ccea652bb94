// Package transport connects the download engine to the people using it.
//
// [Telegram] is the chat front end: it routes /start, /download and quality button presses to a
// [Handler] and implements tasks.Transport over the Bot API.
// [Console] implements the same contract for the command line, copying delivered files into a
// directory and rendering job progress as a progress bar.
package transport

import (
	"context"

	"github.com/desertthunder/tamer/internal/models"
	"github.com/desertthunder/tamer/internal/tasks"
)

// Handler receives chat events. [tasks.Orchestrator] implements it.
type Handler interface {
	OnStart(ctx context.Context, conversationID int64, messageID int, firstName string) error
	OnLinkCommand(ctx context.Context, conversationID int64, messageID int, rawLink string) error
	OnBitrateSelected(ctx context.Context, conversationID int64, messageID int, bitrate models.Bitrate) error
}

var (
	_ Handler         = (*tasks.Orchestrator)(nil)
	_ tasks.Transport = (*Telegram)(nil)
	_ tasks.Transport = (*Console)(nil)
)
