// Package services implements the business logic layer between the HTTP
// handlers and the analysis packages.
//
// # Architecture
//
// Services follow these principles:
//
//	1. Context propagation for cancellation and tracing
//	2. Dependency injection for loose coupling
//	3. Cross-cutting concerns (logging, metrics, caching) handled here
//
// # Available Services
//
//	- AnalysisService: derives weights from balances, runs the return
//	  builder and risk engine, caches finished reports
//	- HealthService: liveness plus effective analysis configuration
package services
