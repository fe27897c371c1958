// Package config loads extpoint configuration from environment variables or
// a YAML file.
//
// # Environment
//
// Extension loading:
//
//	EXTPOINT_DESCRIPTOR_DIRS="/etc/app/plugins,/opt/app"  # each holds extensions/<point id>
//	EXTPOINT_INSTANCE_POLICY="prototype"                  # prototype or singleton
//	EXTPOINT_SINGLETON_CACHE_SIZE="256"
//	EXTPOINT_SINGLETON_TTL="10m"                          # 0 keeps instances until evicted
//
// Observability:
//
//	EXTPOINT_LOG_LEVEL="info"
//	EXTPOINT_LOG_FORMAT="text"                            # text or json
//	EXTPOINT_METRICS_ENABLED="true"
//	EXTPOINT_OTEL_ENABLED="false"
//	EXTPOINT_OTEL_ENDPOINT="localhost:4317"
//	EXTPOINT_OTEL_SAMPLE_RATIO="1"
//
// Introspection server:
//
//	EXTPOINT_SERVER_ADDR=":9090"
//
// # File
//
// LoadFile reads the same settings from YAML; environment variables still
// win:
//
//	extensions:
//	  descriptor_dirs: [/etc/app/plugins]
//	  instance_policy: singleton
//	  singleton_ttl: 10m
//	observability:
//	  log_level: debug
//	  log_format: json
//
// # Usage
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	rt, err := cfg.Apply(extension.Standard(), prometheus.DefaultRegisterer)
package config
