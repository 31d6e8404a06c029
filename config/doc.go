// Package config loads speakerkit configuration from YAML files and the
// environment. A config.yml provides the base; environment variables (and an
// optional .env file) override it, with keys mapped by replacing dots with
// underscores (e.g. SPEAKERKIT_CACHE_DIR -> cache.dir).
package config
