package metrics

// Config configures the Prometheus registry and the scrape endpoint.
type Config struct {
	// Address is the listen address of the metrics server, e.g. ":9090".
	Address string `yaml:"address" envconfig:"METRICS_ADDRESS" default:":9090"`

	// ServiceName is attached to every series as the "service" label.
	ServiceName string `yaml:"service_name" envconfig:"METRICS_SERVICE_NAME"`

	// Namespace prefixes every metric name, e.g. "registry_serde".
	Namespace string `yaml:"namespace" envconfig:"METRICS_NAMESPACE"`

	// EnableDefaultCollectors registers the Go runtime, process and build
	// info collectors.
	EnableDefaultCollectors bool `yaml:"enable_default_collectors" envconfig:"METRICS_ENABLE_DEFAULT_COLLECTORS"`
}

const defaultAddress = ":9090"
