// -----------------------------------------------------------------------
// IMAP Source - Industry newsletter ingestion from a dedicated mailbox
// -----------------------------------------------------------------------

package ingestion

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/demandcast/internal/common"
	"github.com/ternarybob/demandcast/internal/interfaces"
	"github.com/ternarybob/demandcast/internal/models"
)

// IMAPSource reads newsletters from the configured mailbox folder
type IMAPSource struct {
	config common.MailboxConfig
	logger arbor.ILogger
}

var _ interfaces.ExternalSource = (*IMAPSource)(nil)

// NewIMAPSource creates the newsletter mailbox source
func NewIMAPSource(config common.MailboxConfig, logger arbor.ILogger) *IMAPSource {
	return &IMAPSource{
		config: config,
		logger: logger,
	}
}

// Name identifies the mailbox source in logs and document records
func (s *IMAPSource) Name() string {
	return "newsletter-mailbox"
}

// Fetch connects to the mailbox and pulls newsletters within the max-age
// window, capped at max_mails per run
func (s *IMAPSource) Fetch(ctx context.Context) ([]models.ExternalDocument, error) {
	if s.config.Address == "" || s.config.Username == "" || s.config.Password == "" {
		return nil, fmt.Errorf("mailbox not configured")
	}

	c, err := client.DialTLS(s.config.Address, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to IMAP server: %w", err)
	}
	defer c.Logout()

	if err := c.Login(s.config.Username, s.config.Password); err != nil {
		return nil, fmt.Errorf("IMAP login failed: %w", err)
	}

	folder := s.config.Folder
	if folder == "" {
		folder = "INBOX"
	}
	mbox, err := c.Select(folder, true)
	if err != nil {
		return nil, fmt.Errorf("failed to select folder %s: %w", folder, err)
	}
	if mbox.Messages == 0 {
		return nil, nil
	}

	criteria := imap.NewSearchCriteria()
	criteria.Since = time.Now().Add(-s.maxAge())

	seqNums, err := c.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search mailbox: %w", err)
	}
	if len(seqNums) == 0 {
		return nil, nil
	}

	// Newest messages last in the sequence, keep the tail
	if max := s.config.MaxMails; max > 0 && len(seqNums) > max {
		seqNums = seqNums[len(seqNums)-max:]
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(seqNums...)

	messages := make(chan *imap.Message, len(seqNums))
	section := &imap.BodySectionName{Peek: true}

	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqSet, []imap.FetchItem{imap.FetchEnvelope, section.FetchItem()}, messages)
	}()

	now := time.Now()
	var docs []models.ExternalDocument
	for msg := range messages {
		if msg == nil || msg.Envelope == nil {
			continue
		}

		body, err := parseMessageBody(msg, section)
		if err != nil {
			s.logger.Warn().Err(err).Int64("seq", int64(msg.SeqNum)).Msg("Failed to parse newsletter body")
			continue
		}
		if body == "" {
			continue
		}

		externalID := msg.Envelope.MessageId
		if externalID == "" {
			externalID = fmt.Sprintf("%s/%d/%d", folder, mbox.UidValidity, msg.SeqNum)
		}

		published := msg.Envelope.Date
		doc := models.ExternalDocument{
			ExternalID: externalID,
			Source:     s.Name(),
			Title:      strings.TrimSpace(msg.Envelope.Subject),
			Content:    body,
			FetchedAt:  now,
		}
		if !published.IsZero() {
			doc.PublishedAt = &published
		}
		docs = append(docs, doc)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch newsletters: %w", err)
	}

	return docs, nil
}

// maxAge parses the configured window, defaulting to one week
func (s *IMAPSource) maxAge() time.Duration {
	if d, err := time.ParseDuration(s.config.MaxAge); err == nil && d > 0 {
		return d
	}
	return 168 * time.Hour
}

// parseMessageBody extracts the text/plain part of a message
func parseMessageBody(msg *imap.Message, section *imap.BodySectionName) (string, error) {
	r := msg.GetBody(section)
	if r == nil {
		return "", fmt.Errorf("no body section")
	}

	mr, err := mail.CreateReader(r)
	if err != nil {
		return "", fmt.Errorf("failed to create mail reader: %w", err)
	}

	var body string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read next part: %w", err)
		}

		switch h := p.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := h.ContentType()
			if strings.HasPrefix(contentType, "text/plain") {
				b, err := io.ReadAll(p.Body)
				if err != nil {
					return "", fmt.Errorf("failed to read body: %w", err)
				}
				body = string(b)
			}
		}
	}

	return strings.TrimSpace(body), nil
}
