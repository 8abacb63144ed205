package application

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/url"
	"strings"

	"github.com/Upcasted/optimus-courier/internal/config"
	"github.com/Upcasted/optimus-courier/internal/domain"
	"github.com/Upcasted/optimus-courier/pkg/logging"
)

var emailLayout = template.Must(template.New("awb-email").Parse(`<!DOCTYPE html>
<html lang="ro">
<head><meta charset="utf-8"><title>{{.Subject}}</title></head>
<body style="font-family: Arial, sans-serif; color: #333;">
<h2>Comanda #{{.OrderNumber}} a fost expediată</h2>
<div>{{.Body}}</div>
<p style="color: #777; font-size: 12px;">{{.ShopName}}</p>
</body>
</html>
`))

type emailLayoutData struct {
	Subject     string
	OrderNumber string
	Body        template.HTML
	ShopName    string
}

// Notification is a rendered customer email
type Notification struct {
	Subject  string
	Body     string
	HTMLBody string
}

// TrackingLinkURL builds the public tracking URL of one waybill
func TrackingLinkURL(trackingPageURL, awbNumber string) string {
	return trackingPageURL + "?awb=" + url.QueryEscape(awbNumber)
}

// TrackingLinks returns one link per waybill of awbValue
func TrackingLinks(trackingPageURL, awbValue string) []TrackingLink {
	numbers := domain.SplitAWBNumbers(awbValue)
	links := make([]TrackingLink, 0, len(numbers))
	for _, n := range numbers {
		links = append(links, TrackingLink{AWBNumber: n, URL: TrackingLinkURL(trackingPageURL, n)})
	}
	return links
}

// RenderNotification substitutes the placeholders of the subject and body templates.
// Unknown placeholders are left as written.
func RenderNotification(order *domain.Order, awbNumber string, settings config.Settings) (*Notification, error) {
	links := TrackingLinks(settings.TrackingURL(), awbNumber)
	urls := make([]string, len(links))
	escapedURLs := make([]string, len(links))
	for i, l := range links {
		urls[i] = l.URL
		escapedURLs[i] = template.HTMLEscapeString(l.URL)
	}

	values := map[string]string{
		"{order_number}":      order.Number,
		"{awb_number}":        awbNumber,
		"{awb_tracking_link}": strings.Join(urls, "\n"),
		"{customer_name}":     order.CustomerName(),
		"{shop_name}":         settings.ShopName,
	}
	plain := make([]string, 0, 2*len(values))
	escaped := make([]string, 0, 2*len(values))
	for placeholder, value := range values {
		plain = append(plain, placeholder, value)
		if placeholder == "{awb_tracking_link}" {
			value = strings.Join(escapedURLs, "<br>\n")
		} else {
			value = template.HTMLEscapeString(value)
		}
		escaped = append(escaped, placeholder, value)
	}

	replacer := strings.NewReplacer(plain...)
	n := &Notification{
		Subject: replacer.Replace(settings.SubjectTemplate()),
		Body:    replacer.Replace(settings.BodyTemplate()),
	}

	// the body template is operator-authored HTML; only substituted values are escaped
	var buf bytes.Buffer
	err := emailLayout.Execute(&buf, emailLayoutData{
		Subject:     n.Subject,
		OrderNumber: order.Number,
		Body:        template.HTML(strings.NewReplacer(escaped...).Replace(settings.BodyTemplate())),
		ShopName:    settings.ShopName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render notification: %w", err)
	}
	n.HTMLBody = buf.String()

	return n, nil
}

// Notifier emails the tracking links of a freshly generated waybill
type Notifier struct {
	mailer domain.Mailer
	logger *logging.Logger
}

// NewNotifier creates a Notifier
func NewNotifier(mailer domain.Mailer, logger *logging.Logger) *Notifier {
	return &Notifier{mailer: mailer, logger: logger.WithComponent("notifier")}
}

// NotifyAWBGenerated sends the notification to the billing email of the order
func (n *Notifier) NotifyAWBGenerated(ctx context.Context, order *domain.Order, awbNumber string, settings config.Settings) error {
	to := strings.TrimSpace(order.Billing.Email)
	if to == "" {
		n.logger.WithContext(ctx).WithOrder(order.ID).Warn("No billing email, notification not sent")
		return domain.ErrNoRecipient
	}

	rendered, err := RenderNotification(order, awbNumber, settings)
	if err != nil {
		return err
	}

	msg := &domain.MailMessage{
		FromName:  settings.ShopName,
		FromEmail: settings.ShopEmail,
		To:        to,
		Subject:   rendered.Subject,
		HTMLBody:  rendered.HTMLBody,
	}
	if err := n.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}

	n.logger.WithContext(ctx).WithOrder(order.ID).Info("Customer notified", "awbNumber", awbNumber)
	return nil
}
