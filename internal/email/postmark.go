package email

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dukerupert/clausedesk/internal/model"
)

const defaultAPIURL = "https://api.postmarkapp.com/email"

var ErrNotConfigured = errors.New("email client not configured: missing server token")

type Client struct {
	serverToken string
	fromEmail   string
	baseURL     string
	apiURL      string
	httpClient  *http.Client
	maxRetries  uint64
	backoff     time.Duration
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithAPIURL points the client at a different Postmark-compatible endpoint.
func WithAPIURL(u string) Option {
	return func(cl *Client) {
		cl.apiURL = u
	}
}

// WithRetry sets how many times a transient failure is retried and the
// initial backoff.
func WithRetry(maxRetries uint64, backoff time.Duration) Option {
	return func(cl *Client) {
		cl.maxRetries = maxRetries
		cl.backoff = backoff
	}
}

// NewClient builds a Postmark client. baseURL is the public app URL used in
// links.
func NewClient(serverToken, fromEmail, baseURL string, opts ...Option) *Client {
	c := &Client{
		serverToken: serverToken,
		fromEmail:   fromEmail,
		baseURL:     baseURL,
		apiURL:      defaultAPIURL,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		maxRetries:  3,
		backoff:     500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the server token is set.
func (c *Client) Configured() bool {
	return c.serverToken != ""
}

type postmarkEmail struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

func (c *Client) SendWelcome(ctx context.Context, toEmail, name string) error {
	link := c.baseURL + "/"
	text := fmt.Sprintf("Hi %s,\n\nYour ClauseDesk account is ready. Free accounts include a daily allowance of "+
		"contract analyses, questions, generated drafts and PDF reports.\n\nGet started: %s\n", name, link)
	htmlBody := fmt.Sprintf(
		`<p>Hi %s,</p><p>Your ClauseDesk account is ready. Free accounts include a daily allowance of contract analyses, questions, generated drafts and PDF reports.</p><p><a href="%s">Get started</a></p>`,
		html.EscapeString(name), link,
	)
	return c.send(ctx, postmarkEmail{
		To:       toEmail,
		Subject:  "Welcome to ClauseDesk",
		TextBody: text,
		HtmlBody: htmlBody,
	})
}

// SendReminder notifies the owner of an upcoming contract date.
func (c *Client) SendReminder(ctx context.Context, toEmail string, r model.Reminder, daysLeft int) error {
	when := "today"
	switch {
	case daysLeft == 1:
		when = "tomorrow"
	case daysLeft > 1:
		when = fmt.Sprintf("in %d days", daysLeft)
	}
	subject := fmt.Sprintf("Contract reminder: %s (%s)", r.ContractName, when)
	text := fmt.Sprintf("%s\n\nContract: %s\nType: %s\nDue: %s\n\n%s\n\nManage reminders: %s/reminders\n",
		subject, r.ContractName, r.Type, r.DueDate, r.Description, c.baseURL)
	htmlBody := fmt.Sprintf(
		`<p><strong>%s</strong> is due %s.</p><ul><li>Type: %s</li><li>Due: %s</li></ul><p>%s</p><p><a href="%s/reminders">Manage reminders</a></p>`,
		html.EscapeString(r.ContractName), when, html.EscapeString(r.Type), r.DueDate,
		html.EscapeString(r.Description), c.baseURL,
	)
	return c.send(ctx, postmarkEmail{To: toEmail, Subject: subject, TextBody: text, HtmlBody: htmlBody})
}

// SendReminderConfirmation acknowledges a newly created reminder.
func (c *Client) SendReminderConfirmation(ctx context.Context, toEmail string, r model.Reminder) error {
	subject := fmt.Sprintf("Reminder set: %s", r.ContractName)
	text := fmt.Sprintf("We'll remind you about %s on %s.\n\n%s\n", r.ContractName, r.DueDate, r.Description)
	htmlBody := fmt.Sprintf(`<p>We'll remind you about <strong>%s</strong> on %s.</p><p>%s</p>`,
		html.EscapeString(r.ContractName), r.DueDate, html.EscapeString(r.Description))
	return c.send(ctx, postmarkEmail{To: toEmail, Subject: subject, TextBody: text, HtmlBody: htmlBody})
}

func (c *Client) send(ctx context.Context, payload postmarkEmail) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	payload.From = c.fromEmail

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	b := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.backoff))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Postmark-Server-Token", c.serverToken)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("send email: %w", err))
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
			return retry.RetryableError(fmt.Errorf("postmark API error: status %d", resp.StatusCode))
		case resp.StatusCode >= 400:
			return fmt.Errorf("postmark API error: status %d", resp.StatusCode)
		}
		return nil
	})
}
