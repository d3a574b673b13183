package notify

import (
	"context"
	"log"
)

// EmailGateway sends an email through an external provider. The boolean
// reports delivery acceptance; errors indicate the gateway itself failed.
type EmailGateway interface {
	Send(ctx context.Context, to, subject, body string, html bool) (bool, error)
}

// SMSGateway sends a text message through an external provider.
type SMSGateway interface {
	Send(ctx context.Context, to, message string) (bool, error)
}

// LogEmailGateway writes emails to the process log. Stands in for an SMTP
// or provider integration in development and tests.
type LogEmailGateway struct {
	From string
}

func (g *LogEmailGateway) Send(_ context.Context, to, subject, body string, html bool) (bool, error) {
	contentType := "text/plain"
	if html {
		contentType = "text/html"
	}
	log.Printf("[EMAIL] from=%s to=%s subject=%q content-type=%s", g.From, to, subject, contentType)
	log.Printf("[EMAIL] body: %s", body)
	return true, nil
}

// LogSMSGateway writes SMS messages to the process log.
type LogSMSGateway struct{}

func (g *LogSMSGateway) Send(_ context.Context, to, message string) (bool, error) {
	log.Printf("[SMS] to=%s message=%q", to, message)
	return true, nil
}
