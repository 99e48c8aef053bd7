package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/solacewell/gatekeeper/models"
	"github.com/solacewell/gatekeeper/policy"
)

// Notifier alerts the on-call moderation channel about high-severity
// auto-flags (crisis content, critical takedowns).
type Notifier interface {
	NotifyFlag(ctx context.Context, item *models.ModerationQueueItem, verdict policy.Verdict) error
}

// WebhookNotifier posts a short text summary to an incoming-webhook URL
// (slack-compatible). Outbound posts are rate-limited so a flood of
// flagged content can't flood the channel too.
type WebhookNotifier struct {
	WebhookURL string

	client  *retryablehttp.Client
	limiter *rate.Limiter
}

var _ Notifier = (*WebhookNotifier)(nil)

func NewWebhookNotifier(webhookURL string) *WebhookNotifier {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.Logger = nil
	return &WebhookNotifier{
		WebhookURL: webhookURL,
		client:     client,
		limiter:    rate.NewLimiter(rate.Limit(1), 10),
	}
}

type webhookBody struct {
	Text string `json:"text"`
}

func (n *WebhookNotifier) NotifyFlag(ctx context.Context, item *models.ModerationQueueItem, verdict policy.Verdict) error {
	msg := fmt.Sprintf("⚠️ Auto-flagged content ⚠️\nsubject=`%s` user=`%s` severity=`%s` action=`%s`\n",
		item.SubjectID, item.UserID, item.Severity, item.SuggestedAction)
	if len(verdict.Reasons) > 0 {
		msg += fmt.Sprintf("Reasons: %s\n", strings.Join(verdict.Reasons, "; "))
	}
	return n.send(ctx, msg)
}

func (n *WebhookNotifier) send(ctx context.Context, msg string) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return err
	}
	body, err := json.Marshal(webhookBody{Text: msg})
	if err != nil {
		return err
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, n.WebhookURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json")
	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return fmt.Errorf("failed webhook POST request. status=%d", resp.StatusCode)
	}
	return nil
}
