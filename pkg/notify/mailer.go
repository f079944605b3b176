// pkg/notify/mailer.go
//
// Outbound email via the Microsoft Graph sendMail API. The campaign treats
// any delivery failure as fatal: a half-notified batch is worse than a
// rerun.

package notify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	cerr "github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// DefaultSubject is the enrollment email subject line.
const DefaultSubject = "[ACTION REQUIRED] You are required to sign back into Okta Verify"

// datePlaceholder is the token in the proactive HTML template replaced
// with the operator-supplied change date. HTML-entity encoded because
// that is how it survives the template editors.
const datePlaceholder = "&lt;DATE&gt;"

// Mailer sends campaign email through Microsoft Graph on behalf of a fixed
// source mailbox.
type Mailer struct {
	graphBaseURL string
	source       string
	tokens       *TokenSource
	http         *http.Client
	log          *zap.Logger
}

// NewMailer builds a Graph mailer sending from the given source address.
func NewMailer(source string, tokens *TokenSource, log *zap.Logger) *Mailer {
	return &Mailer{
		graphBaseURL: "https://graph.microsoft.com",
		source:       source,
		tokens:       tokens,
		http:         &http.Client{Timeout: 30 * time.Second},
		log:          log,
	}
}

// Message is one outbound email.
type Message struct {
	To             string
	Subject        string
	HTMLBody       string
	AttachmentPath string
}

// graph wire shapes

type graphRecipient struct {
	EmailAddress struct {
		Address string `json:"address"`
	} `json:"emailAddress"`
}

type graphAttachment struct {
	ODataType    string `json:"@odata.type"`
	Name         string `json:"name"`
	ContentType  string `json:"contentType"`
	ContentBytes string `json:"contentBytes"`
}

type graphMessage struct {
	Subject string `json:"subject"`
	Body    struct {
		ContentType string `json:"contentType"`
		Content     string `json:"content"`
	} `json:"body"`
	ToRecipients   []graphRecipient  `json:"toRecipients"`
	HasAttachments bool              `json:"hasAttachments,omitempty"`
	Attachments    []graphAttachment `json:"attachments,omitempty"`
}

type sendMailRequest struct {
	Message         graphMessage `json:"message"`
	SaveToSentItems string       `json:"saveToSentItems"`
}

// LoadTemplate reads an HTML email template from disk. A missing template
// is an error the workflows treat as fatal before any email is attempted.
func LoadTemplate(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", cerr.Wrapf(err, "failed to load email template %s", path)
	}
	return string(data), nil
}

// SubstituteDate fills the change-date placeholder in a notification
// template.
func SubstituteDate(template, date string) string {
	return strings.ReplaceAll(template, datePlaceholder, date)
}

// Send delivers one message, attaching the file at AttachmentPath when
// set.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return cerr.New("destination email is empty, no email can be sent")
	}

	bearer, err := m.tokens.Token(ctx)
	if err != nil {
		return cerr.Wrap(err, "failed to obtain Graph access token")
	}

	gm := graphMessage{Subject: msg.Subject}
	gm.Body.ContentType = "HTML"
	gm.Body.Content = msg.HTMLBody
	var rcpt graphRecipient
	rcpt.EmailAddress.Address = msg.To
	gm.ToRecipients = []graphRecipient{rcpt}

	if msg.AttachmentPath != "" {
		att, err := loadAttachment(msg.AttachmentPath)
		if err != nil {
			// A broken attachment downgrades to an unattached email rather
			// than losing the notification entirely.
			m.log.Error("Failed to load attachment, sending without it",
				zap.String("path", msg.AttachmentPath),
				zap.Error(err))
		} else {
			gm.HasAttachments = true
			gm.Attachments = []graphAttachment{att}
		}
	}

	payload := sendMailRequest{Message: gm, SaveToSentItems: "true"}
	body, err := json.Marshal(payload)
	if err != nil {
		return cerr.Wrap(err, "failed to encode sendMail payload")
	}

	url := fmt.Sprintf("%s/v1.0/users/%s/sendMail", m.graphBaseURL, m.source)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(body)))
	if err != nil {
		return cerr.Wrap(err, "failed to build sendMail request")
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Content-Type", "application/json")

	m.log.Info("Sending email", zap.String("to", msg.To))
	resp, err := m.http.Do(req)
	if err != nil {
		return cerr.Wrapf(err, "failed to send email to %s", msg.To)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return cerr.Newf("sendMail to %s returned status %d: %s", msg.To, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	m.log.Info("Successfully sent email",
		zap.String("from", m.source),
		zap.String("to", msg.To))
	return nil
}

// SendEnrollment delivers the re-enrollment instruction email.
func (m *Mailer) SendEnrollment(ctx context.Context, dest, templatePath, attachmentPath string) error {
	html, err := LoadTemplate(templatePath)
	if err != nil {
		return err
	}
	return m.Send(ctx, Message{
		To:             dest,
		Subject:        DefaultSubject,
		HTMLBody:       html,
		AttachmentPath: attachmentPath,
	})
}

// SendNotification delivers the proactive advance-warning email with the
// change date substituted into the template.
func (m *Mailer) SendNotification(ctx context.Context, dest, templatePath, attachmentPath, date, subject string) error {
	html, err := LoadTemplate(templatePath)
	if err != nil {
		return err
	}
	if subject == "" {
		subject = DefaultSubject
	}
	return m.Send(ctx, Message{
		To:             dest,
		Subject:        subject,
		HTMLBody:       SubstituteDate(html, date),
		AttachmentPath: attachmentPath,
	})
}

// loadAttachment base64-encodes a PDF attachment for the Graph payload.
func loadAttachment(path string) (graphAttachment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return graphAttachment{}, cerr.Wrapf(err, "failed to read attachment %s", path)
	}
	return graphAttachment{
		ODataType:    "#microsoft.graph.fileAttachment",
		Name:         filepath.Base(path),
		ContentType:  "application/pdf",
		ContentBytes: base64.StdEncoding.EncodeToString(data),
	}, nil
}
