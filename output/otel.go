package output

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"vigil/config"
	"vigil/logger"

	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	otelLog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
)

type otelLogger struct {
	provider *sdklog.LoggerProvider
	logger   otelLog.Logger
	timeout  time.Duration
	endpoint string
	policy   otelPolicy
}

type otelPolicy struct {
	includePaths bool
}

// newOtelLogger returns (nil, nil) when no endpoint is configured: OTEL
// export is opt-in.
func newOtelLogger(cfg *config.Config) (*otelLogger, error) {
	if cfg == nil {
		return nil, nil
	}
	endpoint := resolveOtelEndpoint(cfg)
	if endpoint == "" {
		return nil, nil
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return nil, fmt.Errorf("otel endpoint must include scheme (http or https)")
	}

	opts := []otlploghttp.Option{otlploghttp.WithEndpointURL(endpoint)}
	if len(cfg.OtelHeaders) > 0 {
		opts = append(opts, otlploghttp.WithHeaders(cfg.OtelHeaders))
	}
	if cfg.OtelTimeout > 0 {
		opts = append(opts, otlploghttp.WithTimeout(cfg.OtelTimeout))
	}

	exp, err := otlploghttp.New(context.Background(), opts...)
	if err != nil {
		return nil, err
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(cfg.OtelServiceName),
	)
	provider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exp)),
		sdklog.WithResource(res),
	)

	return &otelLogger{
		provider: provider,
		logger:   provider.Logger("vigil"),
		timeout:  cfg.OtelTimeout,
		endpoint: endpoint,
		policy: otelPolicy{
			includePaths: cfg.OtelExportPaths,
		},
	}, nil
}

func resolveOtelEndpoint(cfg *config.Config) string {
	if cfg == nil {
		return ""
	}
	if endpoint := strings.TrimSpace(cfg.OtelEndpoint); endpoint != "" {
		return endpoint
	}
	if !cfg.OtelFromEnv {
		return ""
	}
	if endpoint := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_LOGS_ENDPOINT")); endpoint != "" {
		return endpoint
	}
	return strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
}

func (o *otelLogger) Endpoint() string {
	if o == nil {
		return ""
	}
	return o.endpoint
}

func (o *otelLogger) Emit(recordType string, payload interface{}) {
	if o == nil || o.logger == nil {
		return
	}
	data := payloadToMap(payload)
	safe := sanitizePayload(recordType, data, o.policy)

	var record otelLog.Record
	record.SetTimestamp(time.Now())
	record.SetObservedTimestamp(time.Now())
	record.SetEventName("vigil.detection")
	record.AddAttributes(
		otelLog.String("record_type", recordType),
		otelLog.String("schema_version", SchemaVersion),
	)
	if attrs := semanticAttributes(safe, o.policy); len(attrs) > 0 {
		record.AddAttributes(attrs...)
	}
	record.SetBody(toLogValue(safe))

	o.logger.Emit(context.Background(), record)
}

func (o *otelLogger) Shutdown() {
	if o == nil || o.provider == nil {
		return
	}
	timeout := o.timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := o.provider.Shutdown(ctx); err != nil {
		logger.Debugf("OTEL shutdown failed: %v", err)
	}
}

// sanitizePayload strips raw filesystem paths from exported detections
// unless the operator asked for them. The local NDJSON file is unaffected.
func sanitizePayload(recordType string, data map[string]interface{}, policy otelPolicy) map[string]interface{} {
	if len(data) == 0 {
		return data
	}
	if policy.includePaths {
		return data
	}
	switch recordType {
	case "forbidden_app", "advanced_detection", "network_detection":
		sanitized := make(map[string]interface{}, len(data))
		for k, v := range data {
			if k == "process_path" {
				continue
			}
			sanitized[k] = v
		}
		return sanitized
	default:
		return data
	}
}

// semanticAttributes lifts the common process fields into standard
// attribute keys so backends can index detections without parsing bodies.
func semanticAttributes(data map[string]interface{}, policy otelPolicy) []otelLog.KeyValue {
	if len(data) == 0 {
		return nil
	}
	var kvs []otelLog.KeyValue

	if pid, ok := getInt64Field(data, "pid"); ok {
		kvs = append(kvs, otelLog.Int64(string(semconv.ProcessPIDKey), pid))
	}
	if name := getStringField(data, "process_name"); name != "" {
		kvs = append(kvs, otelLog.String(string(semconv.ProcessExecutableNameKey), name))
	}
	if policy.includePaths {
		if path := getStringField(data, "process_path"); path != "" {
			kvs = append(kvs, otelLog.String(string(semconv.ProcessExecutablePathKey), path))
		}
	}
	if conf := getStringField(data, "confidence"); conf != "" {
		kvs = append(kvs, otelLog.String("vigil.detection.confidence", conf))
	}
	if detType := getStringField(data, "type"); detType != "" {
		kvs = append(kvs, otelLog.String("vigil.detection.type", detType))
	}
	if domain := getStringField(data, "destination_domain"); domain != "" {
		kvs = append(kvs, otelLog.String("vigil.network.destination_domain", domain))
	}
	if port, ok := getInt64Field(data, "destination_port"); ok && port > 0 {
		kvs = append(kvs, otelLog.Int64("vigil.network.destination_port", port))
	}

	return kvs
}

func toLogValue(value interface{}) otelLog.Value {
	switch v := value.(type) {
	case nil:
		return otelLog.Value{}
	case string:
		return otelLog.StringValue(v)
	case bool:
		return otelLog.BoolValue(v)
	case int:
		return otelLog.IntValue(v)
	case int64:
		return otelLog.Int64Value(v)
	case float64:
		return otelLog.Float64Value(v)
	case map[string]interface{}:
		kvs := make([]otelLog.KeyValue, 0, len(v))
		for key, val := range v {
			kvs = append(kvs, otelLog.KeyValue{Key: key, Value: toLogValue(val)})
		}
		return otelLog.MapValue(kvs...)
	case []interface{}:
		values := make([]otelLog.Value, 0, len(v))
		for _, item := range v {
			values = append(values, toLogValue(item))
		}
		return otelLog.SliceValue(values...)
	case []string:
		values := make([]otelLog.Value, 0, len(v))
		for _, item := range v {
			values = append(values, otelLog.StringValue(item))
		}
		return otelLog.SliceValue(values...)
	default:
		if data, err := json.Marshal(v); err == nil {
			return otelLog.StringValue(string(data))
		}
		return otelLog.Value{}
	}
}

func payloadToMap(payload interface{}) map[string]interface{} {
	switch v := payload.(type) {
	case map[string]interface{}:
		return v
	default:
		data, err := json.Marshal(payload)
		if err != nil {
			return nil
		}
		var decoded map[string]interface{}
		if err := json.Unmarshal(data, &decoded); err != nil {
			return nil
		}
		return decoded
	}
}

func getStringField(values map[string]interface{}, key string) string {
	value, ok := values[key]
	if !ok || value == nil {
		return ""
	}
	if str, ok := value.(string); ok {
		return str
	}
	return fmt.Sprint(value)
}

func getInt64Field(values map[string]interface{}, key string) (int64, bool) {
	value, ok := values[key]
	if !ok || value == nil {
		return 0, false
	}
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		return int64(v), true
	case json.Number:
		if parsed, err := v.Int64(); err == nil {
			return parsed, true
		}
	}
	return 0, false
}
