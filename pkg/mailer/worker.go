package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	tpl "github.com/oksasatya/go-auth-service/pkg/mailer/templates"
)

// Outcome tells the queue consumer what to do with a delivery.
type Outcome int

const (
	Ack Outcome = iota
	// Requeue is used for transport failures, which may succeed later.
	Requeue
	// Drop discards messages that can never be delivered (bad JSON, unknown template).
	Drop
)

func (o Outcome) String() string {
	switch o {
	case Ack:
		return "ack"
	case Requeue:
		return "requeue"
	case Drop:
		return "drop"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Process decodes one queued EmailJob and delivers it through sender.
func Process(ctx context.Context, sender Sender, branding tpl.Branding, body []byte) (Outcome, error) {
	var job EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		return Drop, fmt.Errorf("decode job: %w", err)
	}
	if job.To == "" {
		return Drop, errors.New("job has no recipient")
	}
	subject, text, html, err := render(branding, job)
	if err != nil {
		return Drop, fmt.Errorf("render %q: %w", job.Template, err)
	}
	if err := sender.Send(ctx, job.To, subject, text, html); err != nil {
		return Requeue, fmt.Errorf("send: %w", err)
	}
	return Ack, nil
}
