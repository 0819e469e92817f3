package config

import (
    "log"
    "time"
)

// TelemetryConfig controls OpenTelemetry export.  Both signals are off
// unless explicitly enabled.
type TelemetryConfig struct {
    ServiceName    string
    MetricsEnabled bool
    TracingEnabled bool
    // Endpoint is an OTLP/HTTP base URL such as http://localhost:4318.
    Endpoint       string
    Insecure       bool
    ExportInterval time.Duration
}

// LoadTelemetryConfig reads OTEL_* variables.
func LoadTelemetryConfig() TelemetryConfig {
    return TelemetryConfig{
        ServiceName:    envStr("OTEL_SERVICE_NAME", "busticket"),
        MetricsEnabled: envBool("OTEL_METRICS_ENABLED", false),
        TracingEnabled: envBool("OTEL_TRACING_ENABLED", false),
        Endpoint:       envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4318"),
        Insecure:       envBool("OTEL_EXPORTER_OTLP_INSECURE", true),
        ExportInterval: envDur("OTEL_METRIC_EXPORT_INTERVAL", 60*time.Second),
    }
}

// NotifierConfig is the subset the ticket notifier process needs.
type NotifierConfig struct {
    AMQPURL  string
    PDFDir   string
    LogLevel string
    Location *time.Location
    // DeliveryLog receives one line per rendered ticket.
    DeliveryLog string
}

// LoadNotifierConfig reads the notifier's environment without requiring
// database or payment settings.
func LoadNotifierConfig() NotifierConfig {
    dir := envStr("TICKET_PDF_DIR", "tickets")
    loc, err := time.LoadLocation(envStr("APP_TIMEZONE", "UTC"))
    if err != nil {
        log.Fatalf("invalid APP_TIMEZONE: %v", err)
    }
    return NotifierConfig{
        Location:    loc,
        AMQPURL:     AMQPURL(),
        PDFDir:      dir,
        LogLevel:    envStr("LOG_LEVEL", "info"),
        DeliveryLog: envStr("TICKET_DELIVERY_LOG", dir+"/deliveries.log"),
    }
}
