// Package nats delivers inbox messages over NATS with W3C trace context
// headers.
package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	natsgo "github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/kailas-cloud/crossref/internal/domain/inbox"
)

// DefaultSubject is the subject inbox messages are published on.
const DefaultSubject = "crossref.inbox"

// msgIDHeader is the JetStream deduplication header.
const msgIDHeader = "Nats-Msg-Id"

var propagator = propagation.TraceContext{}

// ErrDisconnected is returned by Ping while the connection is down.
var ErrDisconnected = errors.New("nats connection is not established")

// conn is the part of *nats.Conn the notifier uses.
type conn interface {
	PublishMsg(m *natsgo.Msg) error
	IsConnected() bool
}

// Notifier publishes inbox messages as JSON. The dedup key travels in the
// Nats-Msg-Id header so JetStream streams drop repeats.
type Notifier struct {
	nc      conn
	subject string
}

// NewNotifier creates a notifier on nc. An empty subject means DefaultSubject.
func NewNotifier(nc conn, subject string) *Notifier {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Notifier{nc: nc, subject: subject}
}

// Connect dials url and names the connection after the service.
func Connect(url string) (*natsgo.Conn, error) {
	nc, err := natsgo.Connect(url, natsgo.Name("crossref"), natsgo.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return nc, nil
}

// PostMessage publishes msg.
func (n *Notifier) PostMessage(ctx context.Context, msg inbox.Message) error {
	ctx, span := otel.Tracer("crossref-nats").Start(ctx, "inbox.publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(attribute.String("messaging.destination", n.subject)),
	)
	defer span.End()

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal inbox message: %w", err)
	}

	hdr := natsgo.Header{}
	propagator.Inject(ctx, propagation.HeaderCarrier(hdr))
	if msg.DedupKey != "" {
		hdr.Set(msgIDHeader, msg.DedupKey)
	}

	if err := n.nc.PublishMsg(&natsgo.Msg{Subject: n.subject, Data: data, Header: hdr}); err != nil {
		span.RecordError(err)
		return fmt.Errorf("publish inbox message: %w", err)
	}
	return nil
}

// Ping reports whether the connection is up.
func (n *Notifier) Ping(_ context.Context) error {
	if !n.nc.IsConnected() {
		return ErrDisconnected
	}
	return nil
}
