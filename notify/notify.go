// Package notify sends the run outcome email through GC Notify.
package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/bcgov/bc-emli-pin-mgmt-etl/constants"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/logger"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

const emailPath = "/v2/notifications/email"

// Message is the content of one outcome notification.
type Message struct {
	StartTime  time.Time
	Status     string
	Text       string
	Attachment string // path of a file to attach, optional
}

type attachment struct {
	File          string `json:"file"`
	Filename      string `json:"filename"`
	SendingMethod string `json:"sending_method"`
}

type emailRequest struct {
	EmailAddress    string                 `json:"email_address"`
	TemplateID      string                 `json:"template_id"`
	Personalisation map[string]interface{} `json:"personalisation"`
}

// GCNotify posts email notifications to the GC Notify REST API.
type GCNotify struct {
	Log          logger.Logger
	BaseURL      string
	APIKey       string
	EmailAddress string
	TemplateID   string
	Client       *http.Client
}

// NewGCNotify returns a client with a default HTTP timeout when client is nil.
func NewGCNotify(log logger.Logger, baseURL, apiKey, email, templateID string, client *http.Client) *GCNotify {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &GCNotify{Log: log, BaseURL: strings.TrimRight(baseURL, "/"), APIKey: apiKey, EmailAddress: email, TemplateID: templateID, Client: client}
}

// Notify sends m. The attachment, when set, is read and sent inline as base64.
// An unreadable attachment is logged and the email goes out without it.
func (n *GCNotify) Notify(ctx context.Context, m Message) error {
	p := map[string]interface{}{
		"start_time": m.StartTime.Format(constants.TimeFormatNotification),
		"status":     m.Status,
		"message":    m.Text,
	}
	if m.Attachment != "" {
		if b, err := ioutil.ReadFile(m.Attachment); err != nil { // send the outcome without the log.
			n.Log.Error("error reading notification attachment ", m.Attachment, ": ", err)
		} else {
			p["link_to_file"] = attachment{
				File:          base64.StdEncoding.EncodeToString(b),
				Filename:      filepath.Base(m.Attachment),
				SendingMethod: "attach",
			}
		}
	}
	body, err := json.Marshal(emailRequest{EmailAddress: n.EmailAddress, TemplateID: n.TemplateID, Personalisation: p})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.BaseURL+emailPath, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "ApiKey-v1 "+n.APIKey)
	resp, err := n.Client.Do(req)
	if err != nil {
		return errors.Wrap(err, "error sending notification")
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := ioutil.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("notification API returned %v: %s", resp.Status, bytes.TrimSpace(msg))
	}
	n.Log.Info("sent ", m.Status, " notification to ", n.EmailAddress)
	return nil
}

// LogNotifier writes the notification to the log instead of sending it.
// It is used when no notification API is configured.
type LogNotifier struct {
	Log logger.Logger
}

func (n *LogNotifier) Notify(ctx context.Context, m Message) error {
	n.Log.Info("run outcome: status = ", m.Status, "; started = ", m.StartTime.Format(constants.TimeFormatNotification), "; ", m.Text)
	return nil
}
