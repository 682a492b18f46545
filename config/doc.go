// Package config loads the client configuration.
//
// A Loader starts from Defaults, applies each file layer in order (JSON, or YAML
// when the extension is .yaml or .yml), then environment overrides with the
// AIXP_ prefix, and finally validates when asked to:
//
//	loader := config.NewLoader()
//	loader.AddLayer("configs/base.yaml")
//	loader.AddLayer("configs/site.json")
//	loader.EnableValidation(true)
//	cfg, err := loader.Load()
//
// Layers only override the keys they contain. Durations are written as strings
// ("30s", "2m"). Files are read through size, depth and path checks.
//
// Environment overrides:
//
//	AIXP_CLIENT_NAME      client.name
//	AIXP_FLEET            client.fleet (comma separated)
//	AIXP_NATS_URLS        nats.urls (comma separated)
//	AIXP_NATS_USERNAME    nats.username
//	AIXP_NATS_PASSWORD    nats.password
//	AIXP_NATS_TOKEN       nats.token
//	AIXP_BUFFER_BACKEND   buffer.backend
//	AIXP_REDIS_ADDR       buffer.redis_addr
//	AIXP_REDIS_PASSWORD   buffer.redis_password
//	AIXP_METRICS_PORT     metrics.port (also enables metrics)
package config
