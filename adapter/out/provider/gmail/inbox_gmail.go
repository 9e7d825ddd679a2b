// Package gmail provides the Gmail mailbox adapter.
package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"inbox_server/core/domain"
	"inbox_server/core/port/out"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// TokenStore resolves the stored OAuth token for an owner.
type TokenStore interface {
	GetToken(ctx context.Context, ownerID string) (*oauth2.Token, error)
}

// Provider implements out.MailboxProvider for Gmail.
type Provider struct {
	config *oauth2.Config
	tokens TokenStore

	mu       sync.Mutex
	services map[string]*gmail.Service
}

// NewProvider creates a new Gmail provider.
func NewProvider(config *oauth2.Config, tokens TokenStore) *Provider {
	return &Provider{
		config:   config,
		tokens:   tokens,
		services: make(map[string]*gmail.Service),
	}
}

// GetProviderName returns the provider name.
func (p *Provider) GetProviderName() string {
	return "gmail"
}

// serviceFor returns a Gmail service authorized as the owner. Services are
// cached per owner; the oauth2 client refreshes expired tokens itself.
func (p *Provider) serviceFor(ctx context.Context, ownerID string) (*gmail.Service, error) {
	p.mu.Lock()
	if svc, ok := p.services[ownerID]; ok {
		p.mu.Unlock()
		return svc, nil
	}
	p.mu.Unlock()

	token, err := p.tokens.GetToken(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load oauth token: %w", err)
	}

	client := p.config.Client(context.Background(), token)
	svc, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}

	p.mu.Lock()
	p.services[ownerID] = svc
	p.mu.Unlock()

	return svc, nil
}

// ListMessages lists one page of messages matching the query. Only header
// level metadata is fetched here; full bodies come from FetchMessage.
func (p *Provider) ListMessages(ctx context.Context, ownerID string, q out.ListQuery) (*domain.MessagePage, error) {
	svc, err := p.serviceFor(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	req := svc.Users.Messages.List("me")
	if q.Query != "" {
		req = req.Q(q.Query)
	}
	if q.ContinuationToken != "" {
		req = req.PageToken(q.ContinuationToken)
	}
	if q.MaxResults > 0 {
		req = req.MaxResults(int64(q.MaxResults))
	}

	resp, err := req.Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	if len(resp.Messages) == 0 {
		return &domain.MessagePage{
			Messages:              []domain.InboundMessage{},
			NextContinuationToken: resp.NextPageToken,
		}, nil
	}

	// Parallel fetch with bounded concurrency to stay under rate limits.
	const maxConcurrency = 5
	type result struct {
		index int
		msg   *gmail.Message
		err   error
	}

	results := make(chan result, len(resp.Messages))
	semaphore := make(chan struct{}, maxConcurrency)

	for i, m := range resp.Messages {
		go func(idx int, msgID string) {
			semaphore <- struct{}{}        // acquire
			defer func() { <-semaphore }() // release

			msg, err := svc.Users.Messages.Get("me", msgID).
				Format("metadata").
				MetadataHeaders("Subject", "From", "Date").
				Context(ctx).
				Do()
			results <- result{index: idx, msg: msg, err: err}
		}(i, m.Id)
	}

	// Collect results in listing order, dropping failed fetches.
	parsed := make([]*domain.InboundMessage, len(resp.Messages))
	for range resp.Messages {
		r := <-results
		if r.err == nil && r.msg != nil {
			parsed[r.index] = parseMessage(r.msg)
		}
	}

	messages := make([]domain.InboundMessage, 0, len(parsed))
	for _, m := range parsed {
		if m != nil {
			messages = append(messages, *m)
		}
	}

	return &domain.MessagePage{
		Messages:              messages,
		NextContinuationToken: resp.NextPageToken,
	}, nil
}

// FetchMessage retrieves the full message including bodies and attachment
// metadata.
func (p *Provider) FetchMessage(ctx context.Context, ownerID, messageID string) (*domain.InboundMessage, error) {
	svc, err := p.serviceFor(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	msg, err := svc.Users.Messages.Get("me", messageID).
		Format("full").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	return parseMessage(msg), nil
}

// FetchAttachmentBytes downloads one attachment's raw bytes.
func (p *Provider) FetchAttachmentBytes(ctx context.Context, ownerID, messageID, attachmentID string) ([]byte, error) {
	svc, err := p.serviceFor(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	body, err := svc.Users.Messages.Attachments.Get("me", messageID, attachmentID).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get attachment: %w", err)
	}

	data, err := base64.URLEncoding.DecodeString(body.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode attachment data: %w", err)
	}

	return data, nil
}

// FetchProfileEmail returns the address of the mailbox the token grants
// access to. Used once at connect time to label the connection.
func FetchProfileEmail(ctx context.Context, config *oauth2.Config, token *oauth2.Token) (string, error) {
	client := config.Client(ctx, token)
	svc, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return "", fmt.Errorf("failed to create gmail service: %w", err)
	}

	profile, err := svc.Users.GetProfile("me").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to get user profile: %w", err)
	}

	return strings.ToLower(profile.EmailAddress), nil
}

// Helper functions

func parseMessage(msg *gmail.Message) *domain.InboundMessage {
	m := &domain.InboundMessage{
		ID:      msg.Id,
		Snippet: msg.Snippet,
		Date:    time.Unix(msg.InternalDate/1000, 0),
	}

	if msg.Payload != nil {
		for _, header := range msg.Payload.Headers {
			switch header.Name {
			case "From":
				m.From = parseSenderAddress(header.Value)
			case "Subject":
				m.Subject = header.Value
			case "Date":
				if t, err := mail.ParseDate(header.Value); err == nil {
					m.Date = t
				}
			}
		}

		m.HTMLBody, m.TextBody = parseBody(msg.Payload)
		m.Attachments = parseAttachments(msg.Payload)
	}

	return m
}

// parseSenderAddress extracts the bare address from a From header and
// lower-cases it so dedup comparisons are case-insensitive.
func parseSenderAddress(value string) string {
	if addr, err := mail.ParseAddress(value); err == nil {
		return strings.ToLower(addr.Address)
	}
	return strings.ToLower(strings.TrimSpace(value))
}

func parseBody(payload *gmail.MessagePart) (html, text string) {
	if payload == nil {
		return "", ""
	}

	// Check this part
	if payload.MimeType == "text/html" && payload.Body != nil {
		data, _ := base64.URLEncoding.DecodeString(payload.Body.Data)
		html = string(data)
	}
	if payload.MimeType == "text/plain" && payload.Body != nil {
		data, _ := base64.URLEncoding.DecodeString(payload.Body.Data)
		text = string(data)
	}

	// Check nested parts
	for _, part := range payload.Parts {
		h, t := parseBody(part)
		if html == "" && h != "" {
			html = h
		}
		if text == "" && t != "" {
			text = t
		}
	}

	return html, text
}

func parseAttachments(payload *gmail.MessagePart) []domain.Attachment {
	var attachments []domain.Attachment

	if payload == nil {
		return attachments
	}

	// Check if this part is an attachment
	if payload.Filename != "" && payload.Body != nil && payload.Body.AttachmentId != "" {
		attachments = append(attachments, domain.Attachment{
			ID:          payload.Body.AttachmentId,
			Filename:    payload.Filename,
			ContentType: payload.MimeType,
			Size:        payload.Body.Size,
		})
	}

	// Check nested parts
	for _, part := range payload.Parts {
		attachments = append(attachments, parseAttachments(part)...)
	}

	return attachments
}
