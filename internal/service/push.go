package service

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"smartpark-backend/internal/logger"
)

type firebasePushSender struct {
	client *messaging.Client
}

// NewFirebasePushSender builds an FCM client. With an empty credentials file
// the application default credentials are used.
func NewFirebasePushSender(ctx context.Context, credentialsFile, projectID string) (PushSender, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase messaging: %w", err)
	}
	return &firebasePushSender{client: client}, nil
}

func (p *firebasePushSender) SendPush(ctx context.Context, token, title, body string, data map[string]string) error {
	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}

	logger.ExternalServiceCall("fcm", "send", "title", title)
	id, err := p.client.Send(ctx, msg)
	logger.ExternalServiceResult("fcm", "send", err, "messageID", id)
	return err
}
