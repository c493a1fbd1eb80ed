package core

import (
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("cpkit.lib.scrapers.atcoder.core")
