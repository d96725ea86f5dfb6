// Package push отправляет Web Push уведомления участникам чата (VAPID).
package push

import (
	"context"
	"encoding/json"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/chatter/internal/logger"
)

// Subscription — браузерная push-подписка (формат PushSubscription.toJSON()).
type Subscription struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

// SubscriptionStore — хранилище подписок. Реализация: repository.SubscriptionRepository.
type SubscriptionStore interface {
	GetByUsername(ctx context.Context, username string) ([]Subscription, error)
	Delete(ctx context.Context, username, endpoint string) error
}

// Notifier шлёт уведомления всем подпискам пользователя. Если keys == nil,
// отправка отключена (Notify — no-op).
type Notifier struct {
	store SubscriptionStore
	opts  *webpush.Options
}

func NewNotifier(store SubscriptionStore, keys *VAPIDKeys) *Notifier {
	n := &Notifier{store: store}
	if keys != nil && keys.PublicKey != "" && keys.PrivateKey != "" {
		n.opts = &webpush.Options{
			Subscriber:      "chatter-push",
			VAPIDPublicKey:  keys.PublicKey,
			VAPIDPrivateKey: keys.PrivateKey,
			TTL:             30,
		}
	}
	return n
}

// Notify отправляет уведомление во все подписки пользователя. Ошибки логируются,
// но не возвращаются: доставка push — best effort.
func (n *Notifier) Notify(ctx context.Context, username, title, body string, data map[string]string) {
	if n.opts == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	subs, err := n.store.GetByUsername(ctx, username)
	if err != nil {
		logger.Errorf("push subscriptions user=%s: %v", username, err)
		return
	}
	payload, err := json.Marshal(map[string]any{"title": title, "body": body, "data": data})
	if err != nil {
		logger.Errorf("push payload: %v", err)
		return
	}
	for i := range subs {
		sub := &subs[i]
		wpSub := &webpush.Subscription{
			Endpoint: sub.Endpoint,
			Keys:     webpush.Keys{P256dh: sub.Keys.P256dh, Auth: sub.Keys.Auth},
		}
		resp, err := webpush.SendNotificationWithContext(ctx, payload, wpSub, n.opts)
		if err != nil {
			logger.Errorf("push send user=%s: %v", username, err)
			continue
		}
		resp.Body.Close()
		// 404/410 — подписка протухла, удаляем.
		if resp.StatusCode == 404 || resp.StatusCode == 410 {
			if err := n.store.Delete(ctx, username, sub.Endpoint); err != nil {
				logger.Errorf("push delete stale user=%s: %v", username, err)
			}
		}
	}
}
