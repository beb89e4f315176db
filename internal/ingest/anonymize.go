package ingest

import (
	"context"
	"strings"

	"netsentry/internal/model"
)

// AnonymizeIP masks the host half of a dotted-quad address, keeping the
// first two octets. Anything that is not four dot-separated parts is masked
// entirely.
func AnonymizeIP(ip string) string {
	parts := strings.Split(ip, ".")
	if len(parts) != 4 {
		return "xxx.xxx.xxx.xxx"
	}
	return parts[0] + "." + parts[1] + ".xxx.xxx"
}

// anonymizer wraps a source and masks endpoint addresses on every record it
// yields.
type anonymizer struct {
	inner model.RecordSource
}

// WithAnonymization decorates src so records carry masked addresses. Name
// and Close pass through to the wrapped source.
func WithAnonymization(src model.RecordSource) model.RecordSource {
	return &anonymizer{inner: src}
}

func (a *anonymizer) Next(ctx context.Context) (model.Record, error) {
	rec, err := a.inner.Next(ctx)
	if err != nil {
		return rec, err
	}
	rec.SrcIP = AnonymizeIP(rec.SrcIP)
	rec.DstIP = AnonymizeIP(rec.DstIP)
	return rec, nil
}

func (a *anonymizer) Name() string { return a.inner.Name() }
func (a *anonymizer) Close() error { return a.inner.Close() }
