package notify

import (
	"clipboard-sync/pkg/types"
	"context"
	"strings"

	"go.uber.org/zap"
)

// TopicPrefix is prepended to the creator id to form the topic name.
const TopicPrefix = "creator_"

// PostTrigger announces new creator posts to the creator's subscribers.
type PostTrigger struct {
	sender Sender
	logger *zap.Logger
}

func NewPostTrigger(sender Sender, logger *zap.Logger) *PostTrigger {
	return &PostTrigger{sender: sender, logger: logger}
}

// PostCreated sends a notification for a freshly created post. Private
// posts are skipped.
func (t *PostTrigger) PostCreated(ctx context.Context, post *types.Post) error {
	if !post.IsPublic {
		t.logger.Debug("Skipping notification for private post", zap.String("post", post.ID))
		return nil
	}

	msg := PostMessage(post)
	if err := t.sender.Send(ctx, msg); err != nil {
		t.logger.Error("Failed to send post notification",
			zap.String("post", post.ID),
			zap.String("topic", msg.Topic),
			zap.Error(err))
		return err
	}
	t.logger.Info("Sent post notification", zap.String("post", post.ID), zap.String("topic", msg.Topic))
	return nil
}

// PostMessage builds the notification for a post.
func PostMessage(post *types.Post) Message {
	title := post.LinkTitle
	if title == "" {
		title = "New post"
	}
	body := post.CuratorNote
	if body == "" {
		body = post.LinkDescription
	}
	data := map[string]string{
		"post_id":     post.ID,
		"creator_id":  post.CreatorID,
		"content_url": post.ContentURL,
	}
	if post.ImageURL != "" {
		data["image_url"] = post.ImageURL
	}
	return Message{
		Topic: Topic(post.CreatorID),
		Title: title,
		Body:  types.Truncate(body, 240),
		Data:  data,
	}
}

// Topic maps a creator id onto the topic alphabet [A-Za-z0-9-_.~%].
func Topic(creatorID string) string {
	return TopicPrefix + strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case strings.ContainsRune("-_.~%", r):
			return r
		}
		return '_'
	}, creatorID)
}
