package mailer

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-auth-service/pkg/helpers"
	tpl "github.com/oksasatya/go-auth-service/pkg/mailer/templates"
)

var ErrEmptyMessage = errors.New("either template or subject with text/html is required")

// Deliver renders job (when it names a template) and hands it to sender.
func Deliver(ctx context.Context, sender Sender, branding tpl.Branding, job EmailJob) error {
	subject, text, html, err := render(branding, job)
	if err != nil {
		return err
	}
	return sender.Send(ctx, job.To, subject, text, html)
}

func render(branding tpl.Branding, job EmailJob) (subject, text, html string, err error) {
	subject, text, html = job.Subject, job.Text, job.HTML
	if job.Template != "" {
		job.EnsureRecipient()
		branding.Apply(job.Data)
		if subject, text, html, err = tpl.Render(job.Template, job.Data); err != nil {
			return "", "", "", err
		}
	}
	if subject == "" || (text == "" && html == "") {
		return "", "", "", ErrEmptyMessage
	}
	return subject, text, html, nil
}

// QueueNotifier publishes jobs to RabbitMQ for cmd/email_worker.
type QueueNotifier struct {
	Pub *helpers.RabbitPublisher
}

func NewQueueNotifier(pub *helpers.RabbitPublisher) *QueueNotifier {
	return &QueueNotifier{Pub: pub}
}

func (n *QueueNotifier) Send(ctx context.Context, job EmailJob) error {
	return n.Pub.PublishJSON(ctx, job)
}

// DirectNotifier renders and sends in-process.
type DirectNotifier struct {
	Sender   Sender
	Branding tpl.Branding
}

func NewDirectNotifier(sender Sender, branding tpl.Branding) *DirectNotifier {
	return &DirectNotifier{Sender: sender, Branding: branding}
}

func (n *DirectNotifier) Send(ctx context.Context, job EmailJob) error {
	return Deliver(ctx, n.Sender, n.Branding, job)
}

// DisabledNotifier drops every job; used when MAIL_SEND_ENABLED=false.
type DisabledNotifier struct {
	Logger *logrus.Logger
}

func (n DisabledNotifier) Send(_ context.Context, job EmailJob) error {
	if n.Logger != nil {
		n.Logger.WithFields(logrus.Fields{"to": job.To, "template": job.Template}).Debug("mail sending disabled; job dropped")
	}
	return nil
}
