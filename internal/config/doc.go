// Package config provides configuration management for gotest-mcp.
//
// Configuration is layered. Later sources override earlier ones:
//
//  1. Default Configuration (compiled into the binary)
//  2. User Configuration (~/.config/gotest-mcp/config.yaml)
//  3. Project Configuration (<root>/.gotest-mcp/config.yaml)
//  4. An explicit file passed with --config
//
// Command line flags are applied on top by the cmd package.
//
// # Configuration Structure
//
//	project:
//	  root: "."
//	  goBinary: "go"
//	  envFile: ".env.test"
//	  excludeDirs: ["integration"]
//	execution:
//	  defaultTimeout: 10m
//	  disableCache: true
//	  race: false
//	  tags: "integration"
//	  env:
//	    DATABASE_URL: "${TEST_DATABASE_URL}"
//	server:
//	  transport: "stdio"   # or "streamable-http"
//	  host: "127.0.0.1"
//	  port: 8090
//	  endpointPath: "/mcp"
//	logging:
//	  level: "info"
//	  format: "text"       # or "json"
//
// Values under execution.env are expanded against the process environment
// when the test command is built.
package config
