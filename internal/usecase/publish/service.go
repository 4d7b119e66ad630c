// Package publish turns classification outcomes into analysis results.
package publish

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/crossref/internal/domain"
	"github.com/kailas-cloud/crossref/internal/domain/attribute"
	"github.com/kailas-cloud/crossref/internal/domain/inbox"
	"github.com/kailas-cloud/crossref/internal/domain/item"
	"github.com/kailas-cloud/crossref/internal/domain/outcome"
	"github.com/kailas-cloud/crossref/internal/domain/result"
	"github.com/kailas-cloud/crossref/internal/logger"
	"github.com/kailas-cloud/crossref/internal/metrics"
)

// DefaultModuleName is the set name results are posted under.
const DefaultModuleName = "Central Repository"

// Request is one outcome to publish for an item.
type Request struct {
	Item      item.Item
	Attribute attribute.Attribute
	Outcome   outcome.Outcome
	JobID     int64
}

// Service publishes analysis results idempotently.
type Service struct {
	blackboard Blackboard
	notifier   Notifier
	moduleName string
}

// New creates a publisher. notifier can be nil.
func New(blackboard Blackboard, notifier Notifier) *Service {
	return &Service{
		blackboard: blackboard,
		notifier:   notifier,
		moduleName: DefaultModuleName,
	}
}

// WithModuleName sets the module name results are posted under.
func (s *Service) WithModuleName(name string) *Service {
	if name != "" {
		s.moduleName = name
	}
	return s
}

// Publish creates and posts the result for req unless an equivalent result
// already exists. Reports whether a new result was created. A failed post is
// logged and does not undo the creation.
func (s *Service) Publish(ctx context.Context, req Request) (bool, error) {
	typ, ok := result.TypeFor(req.Outcome.Kind())
	if !ok {
		return false, nil
	}
	log := logger.FromContext(ctx).With(
		zap.Int64("object_id", req.Item.ObjectID()),
		zap.String("result_type", string(typ)),
	)

	attrs := s.attributes(req)
	exists, err := s.blackboard.Exists(ctx, req.Item.ObjectID(), typ, attrs)
	if err != nil {
		metrics.PublishTotal.WithLabelValues("error").Inc()
		return false, fmt.Errorf("check existing result: %w", err)
	}
	if exists {
		metrics.PublishTotal.WithLabelValues("exists").Inc()
		return false, nil
	}

	res, err := result.New(req.Item.ObjectID(), typ, req.Outcome.Score(), justification(req.Outcome), attrs)
	if err != nil {
		metrics.PublishTotal.WithLabelValues("error").Inc()
		return false, fmt.Errorf("build result: %w", err)
	}
	if err := s.blackboard.Create(ctx, res); err != nil {
		if errors.Is(err, domain.ErrPublishConflict) {
			metrics.PublishTotal.WithLabelValues("exists").Inc()
			return false, nil
		}
		metrics.PublishTotal.WithLabelValues("error").Inc()
		return false, fmt.Errorf("create result: %w", err)
	}
	metrics.PublishTotal.WithLabelValues("published").Inc()

	if err := s.blackboard.Post(ctx, res.ID(), s.moduleName, req.JobID); err != nil {
		log.Warn("Failed to post analysis result", zap.String("result_id", res.ID().String()), zap.Error(err))
	}

	if req.Outcome.Kind() == outcome.KindNotable && s.notifier != nil {
		if err := s.notifier.PostMessage(ctx, NotableMessage(req.Item, req.Attribute, req.Outcome.CaseNames())); err != nil {
			log.Warn("Failed to post inbox message", zap.Error(err))
		}
	}
	return true, nil
}

func (s *Service) attributes(req Request) []result.Attribute {
	attrs := []result.Attribute{
		{Name: result.AttrSetName, Value: s.moduleName},
		{Name: result.AttrCorrelationType, Value: req.Attribute.Type().DisplayName()},
		{Name: result.AttrCorrelationValue, Value: req.Attribute.Value()},
	}
	if names := req.Outcome.CaseNames(); len(names) > 0 {
		attrs = append(attrs, result.Attribute{Name: result.AttrOtherCases, Value: strings.Join(names, ",")})
	}
	return attrs
}

func justification(o outcome.Outcome) string {
	names := strings.Join(o.CaseNames(), ",")
	switch o.Kind() {
	case outcome.KindNotable:
		return "Previously marked as notable in cases " + names
	case outcome.KindSeen:
		return "Previously seen in cases " + names
	case outcome.KindUnseen:
		return "Previously unseen in the central repository"
	default:
		return ""
	}
}

// NotableMessage builds the inbox notification for a notable item.
func NotableMessage(it item.Item, a attribute.Attribute, caseNames []string) inbox.Message {
	name := it.Name()
	if name == "" {
		name = a.Value()
	}
	hash := it.MD5()
	if hash == "" && a.Type() == attribute.Files {
		hash = a.Value()
	}

	var b strings.Builder
	b.WriteString("<p>A file in this data source was previously seen and tagged as notable.</p>")
	b.WriteString("<table border='0'>")
	writeRow(&b, "Name:", name)
	if it.Path() != "" {
		writeRow(&b, "Path:", it.Path())
	}
	if hash != "" {
		writeRow(&b, "MD5:", hash)
	} else {
		writeRow(&b, a.Type().DisplayName()+":", a.Value())
	}
	writeRow(&b, "Previous cases:", strings.Join(caseNames, ", "))
	b.WriteString("</table>")

	dedup := hash
	if dedup == "" {
		dedup = a.Value()
	}
	return inbox.Message{
		Subject:     "Notable: " + name,
		DetailsHTML: b.String(),
		DedupKey:    name + dedup,
	}
}

func writeRow(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "<tr><th>%s</th><td>%s</td></tr>", html.EscapeString(label), html.EscapeString(value))
}
