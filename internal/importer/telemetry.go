// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package importer

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/mardi4nfdi/importer/pkg/types"
)

var tracer = otel.Tracer("github.com/mardi4nfdi/importer/internal/importer")
var meter = otel.Meter("github.com/mardi4nfdi/importer/internal/importer")

const (
	// attrNamespace tags records with the entity namespace ("item" or "property").
	attrNamespace = "namespace"
	// attrMode tags writes as "create" or "merge" and imports as "full" or
	// "shallow".
	attrMode = "mode"
)

var (
	// remoteFetches counts entity reads from the remote source.
	remoteFetches metric.Int64Counter
	// localWrites counts record writes to the local sink.
	localWrites metric.Int64Counter
	// cacheHits counts imports answered by the mapping cache alone.
	cacheHits metric.Int64Counter
	// importDuration measures a single top-level import, recursion included.
	importDuration metric.Float64Histogram
)

func init() {
	var err error
	remoteFetches, err = meter.Int64Counter(
		"importer.remote.fetches",
		metric.WithDescription("The number of entities fetched from the remote graph."),
	)
	if err != nil {
		panic("importer: failed to init 'importer.remote.fetches' instrument")
	}

	localWrites, err = meter.Int64Counter(
		"importer.local.writes",
		metric.WithDescription("The number of records written to the local graph."),
	)
	if err != nil {
		panic("importer: failed to init 'importer.local.writes' instrument")
	}

	cacheHits, err = meter.Int64Counter(
		"importer.cache.hits",
		metric.WithDescription("The number of imports served from the mapping cache without remote reads."),
	)
	if err != nil {
		panic("importer: failed to init 'importer.cache.hits' instrument")
	}

	importDuration, err = meter.Float64Histogram(
		"importer.import.duration",
		metric.WithDescription("The duration of a single entity import, including referenced entities."),
		metric.WithUnit("ms"),
	)
	if err != nil {
		panic("importer: failed to init 'importer.import.duration' instrument")
	}
}

func nsAttr(ns types.Namespace) attribute.KeyValue {
	return attribute.String(attrNamespace, ns.String())
}

func recordFetch(ctx context.Context, ns types.Namespace, mode string) {
	attrs := attribute.NewSet(nsAttr(ns), attribute.String(attrMode, mode))
	remoteFetches.Add(ctx, 1, metric.WithAttributeSet(attrs))
}

func recordWrite(ctx context.Context, ns types.Namespace, mode string) {
	attrs := attribute.NewSet(nsAttr(ns), attribute.String(attrMode, mode))
	localWrites.Add(ctx, 1, metric.WithAttributeSet(attrs))
}

func recordCacheHit(ctx context.Context, ns types.Namespace) {
	cacheHits.Add(ctx, 1, metric.WithAttributeSet(attribute.NewSet(nsAttr(ns))))
}

// measureImport records the duration of a top-level import. Float division
// keeps sub-millisecond precision.
func measureImport(ctx context.Context, ns types.Namespace, start time.Time) {
	d := float64(time.Since(start)) / float64(time.Millisecond)
	importDuration.Record(ctx, d, metric.WithAttributeSet(attribute.NewSet(nsAttr(ns))))
}
