// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation,
// so tokens can be kept out of the file:
//
//	session:
//	  user_id: 42
//	  token: ${CHAT_TOKEN}
package config
