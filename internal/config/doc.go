// Package config loads the service configuration.
//
// # Configuration Sources
//
// Values are resolved in increasing order of precedence:
//
//	1. Default()
//	2. YAML file: $SOLARCLEAN_CONFIG, ./config.yaml, ./configs/config.yaml or next to the executable
//	3. Environment variables
//
// # Environment Variables
//
// Variables follow the struct layout under the SOLARCLEAN prefix:
//
//	SOLARCLEAN_SERVER_PORT=8080
//	SOLARCLEAN_LOGGING_LEVEL=debug
//	SOLARCLEAN_UPLOAD_MAX_BYTES=33554432
//	SOLARCLEAN_PROGRESS_TARGET_POLICY=dataset
//	SOLARCLEAN_SOURCES_GOOGLE_SHEETS_CREDENTIALS_FILE=/etc/solarclean/sa.json
//
// The merged struct is validated with go-playground/validator tags before use.
package config
