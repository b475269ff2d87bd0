package mail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	netmail "net/mail"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	appConfig "github.com/tigerroll/foottraffic/internal/config"
	"github.com/tigerroll/foottraffic/pkg/batch/engine/step/retry"
	"github.com/tigerroll/foottraffic/pkg/batch/support/util/exception"
	"github.com/tigerroll/foottraffic/pkg/batch/support/util/logger"
)

// GmailSource fetches report attachments through the Gmail API.
type GmailSource struct {
	svc      *gmail.Service
	user     string
	sender   string
	extra    string
	keywords []string
	limiter  *rate.Limiter
	policy   retry.RetryPolicy
	workers  int
}

// NewGmailSource authenticates with the configured credentials and returns a GmailSource.
// TokenFile (with ClientSecretFile) takes precedence over CredentialsFile; with neither,
// Application Default Credentials are used.
func NewGmailSource(ctx context.Context, cfg appConfig.MailConfig, policy retry.RetryPolicy) (*GmailSource, error) {
	opts, err := clientOptions(ctx, cfg)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to prepare Gmail credentials", err, false, false)
	}
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to create Gmail service", err, false, false)
	}
	return NewGmailSourceWithService(svc, cfg, policy), nil
}

// NewGmailSourceWithService wraps an existing service.
func NewGmailSourceWithService(svc *gmail.Service, cfg appConfig.MailConfig, policy retry.RetryPolicy) *GmailSource {
	user := cfg.User
	if user == "" {
		user = "me"
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return &GmailSource{
		svc:      svc,
		user:     user,
		sender:   cfg.Sender,
		extra:    cfg.Query,
		keywords: cfg.Keywords,
		limiter:  rate.NewLimiter(limit, burst),
		policy:   policy,
		workers:  burst,
	}
}

func clientOptions(ctx context.Context, cfg appConfig.MailConfig) ([]option.ClientOption, error) {
	switch {
	case cfg.TokenFile != "":
		secret, err := os.ReadFile(cfg.ClientSecretFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read client secret file: %w", err)
		}
		oauthCfg, err := google.ConfigFromJSON(secret, gmail.GmailReadonlyScope)
		if err != nil {
			return nil, fmt.Errorf("failed to parse client secret file: %w", err)
		}
		raw, err := os.ReadFile(cfg.TokenFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read token file: %w", err)
		}
		tok := &oauth2.Token{}
		if err := json.Unmarshal(raw, tok); err != nil {
			return nil, fmt.Errorf("failed to parse token file: %w", err)
		}
		return []option.ClientOption{option.WithTokenSource(oauthCfg.TokenSource(ctx, tok))}, nil
	case cfg.CredentialsFile != "":
		return []option.ClientOption{
			option.WithCredentialsFile(cfg.CredentialsFile),
			option.WithScopes(gmail.GmailReadonlyScope),
		}, nil
	default:
		return []option.ClientOption{option.WithScopes(gmail.GmailReadonlyScope)}, nil
	}
}

// Query returns the Gmail search query for w.
func (s *GmailSource) Query(w Window) string {
	parts := []string{"has:attachment"}
	if s.sender != "" {
		parts = append([]string{"from:" + s.sender}, parts...)
	}
	if !w.After.IsZero() {
		// after: has day granularity; Fetch filters the exact instant.
		parts = append(parts, "after:"+w.After.Format("2006/01/02"))
	}
	if s.extra != "" {
		parts = append(parts, s.extra)
	}
	return strings.Join(parts, " ")
}

// Fetch lists matching messages and downloads their report attachments. A message that cannot
// be read is logged and skipped; failing to list messages fails the fetch.
func (s *GmailSource) Fetch(ctx context.Context, w Window) ([]Attachment, error) {
	query := s.Query(w)
	logger.Infof("GmailSource: searching with query %q.", query)

	var ids []string
	pageToken := ""
	for {
		var resp *gmail.ListMessagesResponse
		err := s.call(ctx, "gmail_list", func(ctx context.Context) error {
			call := s.svc.Users.Messages.List(s.user).Q(query).Context(ctx)
			if pageToken != "" {
				call = call.PageToken(pageToken)
			}
			var err error
			resp, err = call.Do()
			return err
		})
		if err != nil {
			return nil, exception.NewBatchError(moduleName, "failed to list Gmail messages", err, false, false)
		}
		for _, m := range resp.Messages {
			ids = append(ids, m.Id)
		}
		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}
	logger.Infof("GmailSource: %d messages matched.", len(ids))

	// Messages are downloaded concurrently, up to the limiter burst; results keep list order.
	perMessage := make([][]Attachment, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, id := range ids {
		g.Go(func() error {
			atts, err := s.fetchMessage(gctx, id, w)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Warnf("GmailSource: skipping message %s: %v", id, err)
				return nil
			}
			perMessage[i] = atts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []Attachment
	for _, atts := range perMessage {
		out = append(out, atts...)
	}
	return out, nil
}

func (s *GmailSource) fetchMessage(ctx context.Context, id string, w Window) ([]Attachment, error) {
	var msg *gmail.Message
	err := s.call(ctx, "gmail_get", func(ctx context.Context) error {
		var err error
		msg, err = s.svc.Users.Messages.Get(s.user, id).Format("full").Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, err
	}
	if msg.Payload == nil {
		return nil, nil
	}

	received := receivedAt(msg)
	if received.IsZero() {
		return nil, errors.New("message has no date")
	}
	if !w.Contains(received) {
		return nil, nil
	}

	var out []Attachment
	for _, part := range reportParts(msg.Payload, s.keywords) {
		content, err := s.partContent(ctx, id, part)
		if err != nil {
			return nil, fmt.Errorf("attachment %s: %w", part.Filename, err)
		}
		out = append(out, Attachment{
			Name:       part.Filename,
			Content:    content,
			ReceivedAt: received,
			MessageID:  id,
		})
	}
	return out, nil
}

func (s *GmailSource) partContent(ctx context.Context, messageID string, part *gmail.MessagePart) ([]byte, error) {
	if part.Body == nil {
		return nil, errors.New("attachment has no body")
	}
	data := part.Body.Data
	if data == "" && part.Body.AttachmentId != "" {
		err := s.call(ctx, "gmail_attachment", func(ctx context.Context) error {
			body, err := s.svc.Users.Messages.Attachments.Get(s.user, messageID, part.Body.AttachmentId).Context(ctx).Do()
			if err != nil {
				return err
			}
			data = body.Data
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return decodeBody(data)
}

// call waits for the rate limiter and runs fn under the retry policy. Rate limiting (429)
// and server errors are marked retryable.
func (s *GmailSource) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	return retry.Do(ctx, s.policy, op, func(ctx context.Context) error {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		err := fn(ctx)
		if err != nil && isRetryableAPIError(err) {
			return exception.NewBatchError(moduleName, op+" failed", err, false, true)
		}
		return err
	})
}

func isRetryableAPIError(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}
	return false
}

// receivedAt prefers the Date header, as the sender stamps it, and falls back to Gmail's
// internal receive time.
func receivedAt(msg *gmail.Message) time.Time {
	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			if strings.EqualFold(h.Name, "Date") {
				if t, err := netmail.ParseDate(h.Value); err == nil {
					return t
				}
			}
		}
	}
	if msg.InternalDate > 0 {
		return time.UnixMilli(msg.InternalDate)
	}
	return time.Time{}
}

// reportParts walks the MIME tree and returns the report attachments.
func reportParts(part *gmail.MessagePart, keywords []string) []*gmail.MessagePart {
	var out []*gmail.MessagePart
	if part.Filename != "" && IsReport(part.Filename, keywords) {
		out = append(out, part)
	}
	for _, child := range part.Parts {
		out = append(out, reportParts(child, keywords)...)
	}
	return out
}

// decodeBody decodes Gmail's URL-safe base64, padded or not.
func decodeBody(data string) ([]byte, error) {
	if b, err := base64.URLEncoding.DecodeString(data); err == nil {
		return b, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
	if err != nil {
		return nil, fmt.Errorf("failed to decode attachment data: %w", err)
	}
	return b, nil
}

var _ Source = (*GmailSource)(nil)
