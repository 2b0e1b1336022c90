package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"gopkg.in/gomail.v2"
)

// sender is satisfied by *gomail.Dialer.
type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Email sends the payment receipt, the transfer notice, the day-before
// reminder and the feedback request. Other kinds are ignored.
type Email struct {
	sender sender
	from   string
}

func NewEmail(host string, port int, username, password, from string) *Email {
	return &Email{
		sender: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

var (
	receiptTmpl = template.Must(template.New("receipt").Parse(
		`<p>Hi {{.Ticket.BuyerName}},</p>
<p>Your payment for {{.Ticket.Quantity}} ticket(s){{if .Event}} to <strong>{{.Event.Title}}</strong>{{end}} was received.</p>
<p>Ticket: <strong>{{.Ticket.TicketID}}</strong><br>Receipt: {{.Ticket.ReceiptNumber}}<br>Amount: KES {{.Ticket.Amount.StringFixed 2}}</p>
<p>Show the QR code from your ticket page at the entrance.</p>`))

	transferTmpl = template.Must(template.New("transfer").Parse(
		`<p>Hello,</p>
<p>{{.Ticket.BuyerName}} has transferred ticket <strong>{{.Ticket.TicketID}}</strong>{{if .Event}} for <strong>{{.Event.Title}}</strong>{{end}} to you.</p>`))

	reminderTmpl = template.Must(template.New("reminder").Parse(
		`<p>Hi {{.Ticket.BuyerName}},</p>
<p>See you soon{{if .Event}} at <strong>{{.Event.Title}}</strong>, {{.Event.EventDate.Format "Mon 2 Jan 15:04"}}{{if .Event.Venue}}, {{.Event.Venue}}{{end}}{{end}}.</p>
<p>Ticket: <strong>{{.Ticket.TicketID}}</strong> for {{.Ticket.Quantity}} admission(s). Have the QR code ready at the entrance.</p>`))

	feedbackTmpl = template.Must(template.New("feedback").Parse(
		`<p>Hi {{.Ticket.BuyerName}},</p>
<p>Thanks for coming{{if .Event}} to <strong>{{.Event.Title}}</strong>{{end}}. We would love to hear how it went.</p>
<p>Reply to this email with your feedback and mention ticket {{.Ticket.TicketID}}.</p>`))
)

func (e *Email) Notify(ctx context.Context, msg Message) error {
	var (
		to      string
		subject string
		tmpl    *template.Template
	)
	switch msg.Kind {
	case TicketPaid:
		to, subject, tmpl = msg.Ticket.BuyerEmail, "Your ticket "+msg.Ticket.TicketID, receiptTmpl
	case TicketTransferred:
		to, subject, tmpl = msg.Ticket.TransferredTo, "A ticket has been transferred to you", transferTmpl
	case EventReminder:
		to, subject, tmpl = msg.Ticket.BuyerEmail, "Reminder: "+eventTitle(msg), reminderTmpl
	case FeedbackRequest:
		to, subject, tmpl = msg.Ticket.BuyerEmail, "How was "+eventTitle(msg)+"?", feedbackTmpl
	default:
		return nil
	}
	if to == "" {
		return nil
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, msg); err != nil {
		return fmt.Errorf("render %s email: %w", msg.Kind, err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", e.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body.String())

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("send %s email to %s: %w", msg.Kind, to, err)
	}
	return nil
}

func eventTitle(msg Message) string {
	if msg.Event != nil && msg.Event.Title != "" {
		return msg.Event.Title
	}
	return "your event"
}
