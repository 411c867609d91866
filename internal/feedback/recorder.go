package feedback

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ametel/vidrank/internal/vectorstore"
)

// Action is a user reaction to a video.
type Action string

const (
	ActionLike    Action = "like"
	ActionDislike Action = "dislike"
)

// Valid reports whether the action is one of the two known reactions.
func (a Action) Valid() bool {
	return a == ActionLike || a == ActionDislike
}

// Inserter is the write capability the recorder needs from the vector index.
type Inserter interface {
	Insert(ctx context.Context, docs []vectorstore.Document, ids []string) error
}

// Recorder persists user video reactions as vector documents. Recording is
// best-effort: every failure is logged and reported as false so callers can
// treat feedback as fire-and-forget.
type Recorder struct {
	index Inserter
}

// NewRecorder creates a Recorder backed by the given index.
func NewRecorder(index Inserter) *Recorder {
	return &Recorder{index: index}
}

// Record stores one like/dislike action on a video. Every call produces a
// fresh document with its own id; repeated reactions to the same video
// accumulate rather than overwrite.
func (r *Recorder) Record(ctx context.Context, action Action, videoTitle, videoID string) bool {
	if !action.Valid() || videoTitle == "" || videoID == "" {
		slog.Warn("feedback: invalid input",
			"action", string(action),
			"title_empty", videoTitle == "",
			"video_id_empty", videoID == "")
		return false
	}

	id, err := uuid.NewV7()
	if err != nil {
		slog.Warn("feedback: generating document id failed", "error", err)
		return false
	}

	doc := vectorstore.Document{
		ID:      id.String(),
		Content: videoTitle,
		Metadata: map[string]string{
			vectorstore.MetaAction:    string(action),
			vectorstore.MetaVideoID:   videoID,
			vectorstore.MetaCreatedAt: time.Now().UTC().Format(time.RFC3339),
		},
	}

	if err := r.index.Insert(ctx, []vectorstore.Document{doc}, []string{doc.ID}); err != nil {
		slog.Warn("feedback: storing action failed", "video_id", videoID, "error", err)
		return false
	}
	return true
}
